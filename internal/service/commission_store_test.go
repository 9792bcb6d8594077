package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"axiom-server/internal/models"
	"axiom-server/internal/repository"
	"axiom-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *models.LooseString {
	ls := models.LooseString(s)
	return &ls
}

func costPtr(c float64) *models.Cost {
	v := models.Cost(c)
	return &v
}

func flagPtr(b bool) *models.PublicFlag {
	v := models.PublicFlag(b)
	return &v
}

// newLocalStore собирает хранилище в локальном режиме поверх каталога dir.
func newLocalStore(t *testing.T, dir string) *service.CommissionStore {
	t.Helper()
	return service.NewCommissionStore(context.Background(), service.CommissionStoreDeps{
		Commissions:   repository.NewFileCache[models.CommissionRecord](dir, "commissions", zap.NewNop()),
		FutureArtists: repository.NewFileCache[models.FutureArtistRecord](dir, "future_artists", zap.NewNop()),
		Logger:        zap.NewNop(),
	})
}

// newRemoteStore собирает хранилище поверх заглушки удаленной базы.
func newRemoteStore(t *testing.T, dir string, fake *fakeRemoteStore) *service.CommissionStore {
	t.Helper()
	return service.NewCommissionStore(context.Background(), service.CommissionStoreDeps{
		Connect: func(ctx context.Context) (repository.RemoteStore, error) {
			return fake, nil
		},
		Commissions:   repository.NewFileCache[models.CommissionRecord](dir, "commissions", zap.NewNop()),
		FutureArtists: repository.NewFileCache[models.FutureArtistRecord](dir, "future_artists", zap.NewNop()),
		Logger:        zap.NewNop(),
	})
}

// TestLocalModePersistence проверяет, что записи переживают пересоздание
// хранилища: второй экземпляр поверх того же каталога видит данные первого.
func TestLocalModePersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := newLocalStore(t, dir)
	assert.Equal(t, service.ModeLocal, store.Mode())

	added := store.AddCommission(ctx, models.CommissionData{
		Title:  strPtr("Портрет экипажа"),
		Artist: strPtr("Jane Smith"),
		Cost:   costPtr(120),
	})
	assert.True(t, strings.HasPrefix(added.ID, "local_"), "в локальном режиме id генерируется хранилищем")
	store.Close()

	reopened := newLocalStore(t, dir)
	defer reopened.Close()
	records := reopened.ListCommissions()
	require.Len(t, records, 1)
	assert.Equal(t, added.ID, records[0].ID)
	assert.Equal(t, "Портрет экипажа", records[0].Title)
	assert.Equal(t, 120.0, records[0].Cost)
}

// TestConnectFailureFallsBack проверяет безвозвратный откат: сбой
// подключения при создании переводит хранилище в локальный режим.
func TestConnectFailureFallsBack(t *testing.T) {
	dir := t.TempDir()

	// Готовим локальный кэш с одной записью.
	seed := newLocalStore(t, dir)
	seed.AddCommission(context.Background(), models.CommissionData{Title: strPtr("Из кэша")})
	seed.Close()

	store := service.NewCommissionStore(context.Background(), service.CommissionStoreDeps{
		Connect: func(ctx context.Context) (repository.RemoteStore, error) {
			return nil, errors.New("недоступен firestore")
		},
		Commissions:   repository.NewFileCache[models.CommissionRecord](dir, "commissions", zap.NewNop()),
		FutureArtists: repository.NewFileCache[models.FutureArtistRecord](dir, "future_artists", zap.NewNop()),
		Logger:        zap.NewNop(),
	})
	defer store.Close()

	assert.Equal(t, service.ModeLocal, store.Mode())
	records := store.ListCommissions()
	require.Len(t, records, 1)
	assert.Equal(t, "Из кэша", records[0].Title)
}

// TestInitialListFailureFallsBack: подключение удалось, но первая выборка
// упала — исход тот же, локальный режим до конца жизни экземпляра.
func TestInitialListFailureFallsBack(t *testing.T) {
	fake := newFakeRemoteStore()
	fake.listErr = errors.New("missing index")

	store := newRemoteStore(t, t.TempDir(), fake)
	defer store.Close()

	assert.Equal(t, service.ModeLocal, store.Mode())
}

// TestRemoteMode покрывает счастливый путь удаленного режима.
func TestRemoteMode(t *testing.T) {
	ctx := context.Background()

	t.Run("Initial load from remote", func(t *testing.T) {
		fake := newFakeRemoteStore()
		fake.seed("commissions", "doc1", map[string]any{"title": "Существующий заказ", "isPublic": true})

		store := newRemoteStore(t, t.TempDir(), fake)
		defer store.Close()

		assert.Equal(t, service.ModeRemote, store.Mode())
		records := store.ListCommissions()
		require.Len(t, records, 1)
		assert.Equal(t, "doc1", records[0].ID)
		assert.Equal(t, "Существующий заказ", records[0].Title)
	})

	t.Run("Add gets server-assigned id", func(t *testing.T) {
		fake := newFakeRemoteStore()
		store := newRemoteStore(t, t.TempDir(), fake)
		defer store.Close()

		added := store.AddCommission(ctx, models.CommissionData{Title: strPtr("Новый заказ")})
		assert.True(t, strings.HasPrefix(added.ID, "remote_"))

		got, ok := store.GetCommission(added.ID)
		require.True(t, ok)
		assert.Equal(t, "Новый заказ", got.Title)
	})

	t.Run("Snapshot replaces in-memory state", func(t *testing.T) {
		fake := newFakeRemoteStore()
		store := newRemoteStore(t, t.TempDir(), fake)
		defer store.Close()

		var syncEvents []models.Event
		store.AddListener(func(ev models.Event) {
			if ev.Action == models.ActionSync {
				syncEvents = append(syncEvents, ev)
			}
		})

		fake.seed("commissions", "doc9", map[string]any{"title": "Пришел извне"})
		fake.push("commissions")

		records := store.ListCommissions()
		require.Len(t, records, 1)
		assert.Equal(t, "doc9", records[0].ID)

		require.Len(t, syncEvents, 1)
		assert.Equal(t, models.KindCommission, syncEvents[0].Kind)
		require.Len(t, syncEvents[0].Commissions, 1)
	})
}

// TestSubscriptionOutlivesInitContext: дедлайн или отмена контекста
// инициализации не должны обрывать live-подписки — они живут до Close.
func TestSubscriptionOutlivesInitContext(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeRemoteStore()

	initCtx, cancel := context.WithCancel(context.Background())
	store := service.NewCommissionStore(initCtx, service.CommissionStoreDeps{
		Connect: func(ctx context.Context) (repository.RemoteStore, error) {
			return fake, nil
		},
		Commissions:   repository.NewFileCache[models.CommissionRecord](dir, "commissions", zap.NewNop()),
		FutureArtists: repository.NewFileCache[models.FutureArtistRecord](dir, "future_artists", zap.NewNop()),
		Logger:        zap.NewNop(),
	})
	defer store.Close()
	require.Equal(t, service.ModeRemote, store.Mode())

	// Контекст инициализации истекает сразу после старта.
	cancel()

	for _, collection := range []string{"commissions", "futureArtists"} {
		subCtx := fake.subscribeContext(collection)
		require.NotNil(t, subCtx, "подписка на %s установлена", collection)
		assert.NoError(t, subCtx.Err(), "подписка на %s не отменяется вместе с контекстом инициализации", collection)
		_, hasDeadline := subCtx.Deadline()
		assert.False(t, hasDeadline, "подписка на %s не наследует дедлайн", collection)
	}

	// Снапшоты продолжают применяться.
	fake.seed("commissions", "doc1", map[string]any{"title": "После отмены"})
	fake.push("commissions")
	records := store.ListCommissions()
	require.Len(t, records, 1)
	assert.Equal(t, "После отмены", records[0].Title)
}

// TestWriteErrorCompensation: сбой отдельной записи в удаленном режиме
// не роняет операцию и не меняет режим — запись уходит в локальный кэш.
func TestWriteErrorCompensation(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeRemoteStore()
	store := newRemoteStore(t, dir, fake)
	defer store.Close()
	require.Equal(t, service.ModeRemote, store.Mode())

	fake.addErr = errors.New("deadline exceeded")

	added := store.AddCommission(context.Background(), models.CommissionData{Title: strPtr("Оффлайн заказ")})
	assert.True(t, strings.HasPrefix(added.ID, "local_"), "компенсация присваивает локальный id")
	assert.Equal(t, service.ModeRemote, store.Mode(), "режим после компенсации не меняется")

	// Компенсация дошла до локального кэша.
	cache := repository.NewFileCache[models.CommissionRecord](dir, "commissions", zap.NewNop())
	saved := cache.Load()
	require.Len(t, saved, 1)
	assert.Equal(t, added.ID, saved[0].ID)
}

// TestListenerIsolation: паника одного подписчика не мешает остальным.
func TestListenerIsolation(t *testing.T) {
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	var received []models.Event
	store.AddListener(func(models.Event) {
		panic("подписчик сломался")
	})
	store.AddListener(func(ev models.Event) {
		received = append(received, ev)
	})

	assert.NotPanics(t, func() {
		store.AddCommission(context.Background(), models.CommissionData{Title: strPtr("Заказ")})
	})
	require.NotEmpty(t, received)
	assert.Equal(t, models.ActionAdded, received[len(received)-1].Action)
}

// TestRemoveListener: снятый подписчик событий больше не получает.
func TestRemoveListener(t *testing.T) {
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	calls := 0
	id := store.AddListener(func(models.Event) { calls++ })
	store.AddCommission(context.Background(), models.CommissionData{})
	require.Greater(t, calls, 0)

	before := calls
	store.RemoveListener(id)
	store.AddCommission(context.Background(), models.CommissionData{})
	assert.Equal(t, before, calls)
}

// TestUpdateCommission покрывает частичное обновление и отсутствующую запись.
func TestUpdateCommission(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	added := store.AddCommission(ctx, models.CommissionData{
		Title:  strPtr("Исходный"),
		Artist: strPtr("pixelfox"),
	})

	t.Run("Partial update keeps other fields", func(t *testing.T) {
		updated, ok := store.UpdateCommission(ctx, added.ID, models.CommissionData{
			Status: strPtr(models.StatusCompleted),
		})
		require.True(t, ok)
		assert.Equal(t, "Исходный", updated.Title)
		assert.Equal(t, "pixelfox", updated.Artist)
		assert.Equal(t, models.StatusCompleted, updated.Status)
	})

	t.Run("Unknown id is not an error", func(t *testing.T) {
		_, ok := store.UpdateCommission(ctx, "nope", models.CommissionData{Title: strPtr("x")})
		assert.False(t, ok)
	})
}

// TestDeleteCommission: удаление существующей и неизвестной записи.
func TestDeleteCommission(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	added := store.AddCommission(ctx, models.CommissionData{})
	assert.True(t, store.DeleteCommission(ctx, added.ID))
	assert.Empty(t, store.ListCommissions())
	assert.False(t, store.DeleteCommission(ctx, added.ID))
}

// TestSearchCommissions: поиск подстроки без учета регистра.
func TestSearchCommissions(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddCommission(ctx, models.CommissionData{Title: strPtr("Crew portrait"), Artist: strPtr("Jane Smith")})
	store.AddCommission(ctx, models.CommissionData{Title: strPtr("Chibi sticker"), Artist: strPtr("pixelfox")})
	store.AddCommission(ctx, models.CommissionData{Title: strPtr("Banner"), Description: strPtr("Large smithy scene")})

	assert.Len(t, store.SearchCommissions("jane"), 1)
	assert.Len(t, store.SearchCommissions("SMITH"), 2, "совпадение в artist и в description")
	assert.Len(t, store.SearchCommissions(""), 3, "пустой запрос возвращает все")
	assert.Empty(t, store.SearchCommissions("dragon"))
}

// TestFilterCommissions: фильтр — конъюнкция заданных полей.
func TestFilterCommissions(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddCommission(ctx, models.CommissionData{
		Artist: strPtr("Jane Smith"), Status: strPtr(models.StatusCompleted),
	})
	store.AddCommission(ctx, models.CommissionData{
		Artist: strPtr("Jane Smith"), Status: strPtr(models.StatusPlanning),
	})
	store.AddCommission(ctx, models.CommissionData{
		Artist: strPtr("pixelfox"), Status: strPtr(models.StatusCompleted), IsPublic: flagPtr(false),
	})

	artist := "Jane Smith"
	status := models.StatusCompleted
	isPublic := true

	assert.Len(t, store.FilterCommissions(service.CommissionFilter{Artist: &artist}), 2)
	assert.Len(t, store.FilterCommissions(service.CommissionFilter{Artist: &artist, Status: &status}), 1)
	assert.Len(t, store.FilterCommissions(service.CommissionFilter{Status: &status, IsPublic: &isPublic}), 1)
	assert.Len(t, store.FilterCommissions(service.CommissionFilter{}), 3, "пустой фильтр возвращает все")
}

// TestStats считается по статусам и суммарной стоимости.
func TestStats(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddCommission(ctx, models.CommissionData{Status: strPtr(models.StatusPlanning), Cost: costPtr(10)})
	store.AddCommission(ctx, models.CommissionData{Status: strPtr(models.StatusCompleted), Cost: costPtr(20)})
	store.AddCommission(ctx, models.CommissionData{Status: strPtr(models.StatusCompleted), Cost: costPtr(5.5)})

	stats := store.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Planning)
	assert.Equal(t, 0, stats.InProgress)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, "$35.50", stats.TotalCostFormatted)
}

// TestImportCommissions: импорт добавляет записи к существующим,
// отбрасывает входные id и отклоняет только не-массив.
func TestImportCommissions(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid array is appended", func(t *testing.T) {
		store := newLocalStore(t, t.TempDir())
		defer store.Close()
		store.AddCommission(ctx, models.CommissionData{Title: strPtr("Уже есть")})

		payload := `[
			{"id": "stolen-id", "title": "Импорт 1", "cost": "$15"},
			{"title": "Импорт 2", "status": "completed", "createdAt": "2024-06-01T12:00:00Z"}
		]`
		count, err := store.ImportCommissions(ctx, payload)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		records := store.ListCommissions()
		require.Len(t, records, 3)
		for _, rec := range records {
			assert.NotEqual(t, "stolen-id", rec.ID, "входные идентификаторы отбрасываются")
		}
	})

	t.Run("createdAt survives when parseable", func(t *testing.T) {
		store := newLocalStore(t, t.TempDir())
		defer store.Close()

		_, err := store.ImportCommissions(ctx, `[{"title": "Старый", "createdAt": "2024-06-01T12:00:00Z"}]`)
		require.NoError(t, err)

		records := store.ListCommissions()
		require.Len(t, records, 1)
		assert.Equal(t, 2024, records[0].CreatedAt.Year())
	})

	t.Run("Non-array payload is rejected", func(t *testing.T) {
		store := newLocalStore(t, t.TempDir())
		defer store.Close()

		_, err := store.ImportCommissions(ctx, `{"title": "не массив"}`)
		assert.ErrorIs(t, err, models.ErrInvalidImport)
		assert.Empty(t, store.ListCommissions())
	})

	t.Run("Null payload is rejected", func(t *testing.T) {
		// null без ошибки декодируется в nil-срез, но массивом не является.
		store := newLocalStore(t, t.TempDir())
		defer store.Close()

		_, err := store.ImportCommissions(ctx, `null`)
		assert.ErrorIs(t, err, models.ErrInvalidImport)

		_, err = store.ImportCommissions(ctx, `  null  `)
		assert.ErrorIs(t, err, models.ErrInvalidImport)
		assert.Empty(t, store.ListCommissions())
	})

	t.Run("Garbage elements become default records", func(t *testing.T) {
		store := newLocalStore(t, t.TempDir())
		defer store.Close()

		count, err := store.ImportCommissions(ctx, `[42, "строка", {"title": "Нормальный"}]`)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		records := store.ListCommissions()
		require.Len(t, records, 3)
		assert.Equal(t, "Untitled Commission", records[0].Title)
	})
}

// TestExportCommissions: выгрузка — JSON-массив, который можно импортировать.
func TestExportCommissions(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddCommission(ctx, models.CommissionData{Title: strPtr("Экспортируемый")})
	exported, err := store.ExportCommissions()
	require.NoError(t, err)

	other := newLocalStore(t, t.TempDir())
	defer other.Close()
	count, err := other.ImportCommissions(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "Экспортируемый", other.ListCommissions()[0].Title)
}

// TestListReturnsCopy: мутация возвращенного среза не трогает хранилище.
func TestListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddCommission(ctx, models.CommissionData{Title: strPtr("Оригинал")})
	list := store.ListCommissions()
	list[0].Title = "Испорчен"

	fresh := store.ListCommissions()
	assert.Equal(t, "Оригинал", fresh[0].Title)
}

// TestListPublicCommissions: приватные записи не попадают в публичный список.
func TestListPublicCommissions(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddCommission(ctx, models.CommissionData{Title: strPtr("Публичный")})
	store.AddCommission(ctx, models.CommissionData{Title: strPtr("Приватный"), IsPublic: flagPtr(false)})

	public := store.ListPublicCommissions()
	require.Len(t, public, 1)
	assert.Equal(t, "Публичный", public[0].Title)
}
