package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"axiom-server/internal/models"
	"axiom-server/internal/repository"
)

// BackendMode показывает, куда хранилище пишет данные.
type BackendMode string

const (
	ModeRemote BackendMode = "remote" // удаленная документная база
	ModeLocal  BackendMode = "local"  // только локальный кэш
)

// Имена удаленных коллекций и поля сортировки совпадают с исходной базой,
// чтобы сервер работал поверх уже накопленных данных сайта.
const (
	collectionCommissions   = "commissions"
	collectionFutureArtists = "futureArtists"

	orderFieldCommissions   = "createdAt"
	orderFieldFutureArtists = "dateAdded"
)

// Connector устанавливает подключение к удаленной базе. Выделен в функцию,
// чтобы решение об откате на локальный режим оставалось внутри хранилища
// и проверялось в тестах без живого Firestore.
type Connector func(ctx context.Context) (repository.RemoteStore, error)

// Listener получает событие при каждом изменении состояния хранилища.
type Listener func(models.Event)

// CommissionStoreDeps — зависимости хранилища заказов.
type CommissionStoreDeps struct {
	Connect       Connector
	Commissions   *repository.FileCache[models.CommissionRecord]
	FutureArtists *repository.FileCache[models.FutureArtistRecord]
	Logger        *zap.Logger
}

// CommissionStore владеет списками заказов и будущих художников.
// При создании пытается подключиться к удаленной базе; любой сбой на этапе
// подключения или первичной загрузки переводит хранилище в локальный режим
// до конца жизни экземпляра. Сбой отдельной записи в удаленном режиме
// компенсируется локальной записью, режим при этом не меняется.
type CommissionStore struct {
	mu            sync.RWMutex
	commissions   []models.CommissionRecord
	futureArtists []models.FutureArtistRecord
	mode          BackendMode

	remote        repository.RemoteStore
	commissionCch *repository.FileCache[models.CommissionRecord]
	artistCch     *repository.FileCache[models.FutureArtistRecord]

	listenersMu sync.RWMutex
	listeners   map[string]Listener

	unsubs    []repository.Unsubscribe
	closeOnce sync.Once

	logger *zap.Logger
}

// NewCommissionStore создает хранилище и синхронно проходит машину
// состояний инициализации: Connecting -> LoadingRemote -> Live либо
// LocalFallback. Ошибок не возвращает: деградация в локальный режим —
// штатный исход, а не сбой.
func NewCommissionStore(ctx context.Context, deps CommissionStoreDeps) *CommissionStore {
	s := &CommissionStore{
		commissions:   []models.CommissionRecord{},
		futureArtists: []models.FutureArtistRecord{},
		mode:          ModeLocal,
		commissionCch: deps.Commissions,
		artistCch:     deps.FutureArtists,
		listeners:     make(map[string]Listener),
		logger:        deps.Logger.Named("commission_store"),
	}

	if deps.Connect == nil {
		s.logger.Info("Удаленная база не сконфигурирована, работаем с локальным кэшем")
		s.loadFromCache()
		s.notifyLoad()
		return s
	}

	remote, err := deps.Connect(ctx)
	if err != nil {
		s.logger.Warn("Не удалось подключиться к удаленной базе, откат на локальный кэш", zap.Error(err))
		s.loadFromCache()
		s.notifyLoad()
		return s
	}

	commissions, err := remote.List(ctx, collectionCommissions, orderFieldCommissions)
	if err != nil {
		s.logger.Warn("Не удалось загрузить заказы из удаленной базы, откат на локальный кэш", zap.Error(err))
		s.loadFromCache()
		s.notifyLoad()
		return s
	}
	artists, err := remote.List(ctx, collectionFutureArtists, orderFieldFutureArtists)
	if err != nil {
		s.logger.Warn("Не удалось загрузить художников из удаленной базы, откат на локальный кэш", zap.Error(err))
		s.loadFromCache()
		s.notifyLoad()
		return s
	}

	s.remote = remote
	s.mode = ModeRemote
	s.mu.Lock()
	s.commissions = commissionsFromDocuments(commissions)
	s.futureArtists = artistsFromDocuments(artists)
	s.mu.Unlock()

	s.logger.Info("Хранилище работает в удаленном режиме",
		zap.Int("commissions", len(commissions)),
		zap.Int("future_artists", len(artists)),
	)

	s.subscribeRemote(ctx)
	s.notifyLoad()
	return s
}

// loadFromCache наполняет списки из локального кэша и фиксирует
// локальный режим. Повторных попыток достучаться до удаленной базы
// для этого экземпляра не будет.
func (s *CommissionStore) loadFromCache() {
	s.mu.Lock()
	s.commissions = s.commissionCch.Load()
	s.futureArtists = s.artistCch.Load()
	s.mode = ModeLocal
	s.mu.Unlock()

	s.logger.Info("Хранилище работает в локальном режиме",
		zap.Int("commissions", len(s.ListCommissions())),
		zap.Int("future_artists", len(s.ListFutureArtists())),
	)
}

// subscribeRemote устанавливает live-подписки на обе коллекции.
// Каждый снапшот полностью заменяет список в памяти.
// Подписки живут до Close, а не до истечения контекста инициализации:
// дедлайн на этапе подключения не должен обрывать доставку снапшотов.
func (s *CommissionStore) subscribeRemote(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	unsubCommissions, err := s.remote.Subscribe(ctx, collectionCommissions, orderFieldCommissions, func(docs []repository.Document) {
		s.mu.Lock()
		s.commissions = commissionsFromDocuments(docs)
		s.mu.Unlock()
		s.notify(models.Event{
			Action:      models.ActionSync,
			Kind:        models.KindCommission,
			Commissions: s.ListCommissions(),
		})
	})
	if err != nil {
		s.logger.Error("Не удалось установить подписку на заказы", zap.Error(err))
	} else {
		s.unsubs = append(s.unsubs, unsubCommissions)
	}

	unsubArtists, err := s.remote.Subscribe(ctx, collectionFutureArtists, orderFieldFutureArtists, func(docs []repository.Document) {
		s.mu.Lock()
		s.futureArtists = artistsFromDocuments(docs)
		s.mu.Unlock()
		s.notify(models.Event{
			Action:  models.ActionSync,
			Kind:    models.KindFutureArtist,
			Artists: s.ListFutureArtists(),
		})
	})
	if err != nil {
		s.logger.Error("Не удалось установить подписку на художников", zap.Error(err))
	} else {
		s.unsubs = append(s.unsubs, unsubArtists)
	}
}

// Mode возвращает текущий режим работы хранилища.
func (s *CommissionStore) Mode() BackendMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Close останавливает live-подписки. Повторные вызовы безопасны.
func (s *CommissionStore) Close() {
	s.closeOnce.Do(func() {
		for _, unsub := range s.unsubs {
			unsub()
		}
	})
}

// --- Подписчики ---

// AddListener регистрирует подписчика и возвращает его идентификатор.
func (s *CommissionStore) AddListener(l Listener) string {
	id := uuid.NewString()
	s.listenersMu.Lock()
	s.listeners[id] = l
	s.listenersMu.Unlock()
	return id
}

// RemoveListener убирает подписчика по идентификатору.
func (s *CommissionStore) RemoveListener(id string) {
	s.listenersMu.Lock()
	delete(s.listeners, id)
	s.listenersMu.Unlock()
}

// notify рассылает событие всем подписчикам. Паника одного подписчика
// не мешает остальным получить событие.
func (s *CommissionStore) notify(evt models.Event) {
	s.listenersMu.RLock()
	callbacks := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		callbacks = append(callbacks, l)
	}
	s.listenersMu.RUnlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Подписчик завершился паникой", zap.Any("panic", r))
				}
			}()
			cb(evt)
		}()
	}
}

// notifyLoad рассылает событие load по обеим коллекциям.
func (s *CommissionStore) notifyLoad() {
	s.notify(models.Event{
		Action:      models.ActionLoad,
		Kind:        models.KindCommission,
		Commissions: s.ListCommissions(),
	})
	s.notify(models.Event{
		Action:  models.ActionLoad,
		Kind:    models.KindFutureArtist,
		Artists: s.ListFutureArtists(),
	})
}

// --- CRUD заказов ---

// AddCommission очищает входные данные, сохраняет запись и возвращает ее.
// В удаленном режиме идентификатор присваивает сервер; при сбое записи
// заказ уходит в локальный путь, но операция для вызывающего успешна.
func (s *CommissionStore) AddCommission(ctx context.Context, data models.CommissionData) models.CommissionRecord {
	rec := models.NewCommission(data)
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if s.Mode() == ModeRemote {
		id, err := s.remote.Add(ctx, collectionCommissions, commissionToFields(rec))
		if err == nil {
			rec.ID = id
			s.mu.Lock()
			s.commissions = append(s.commissions, rec)
			s.mu.Unlock()
			s.resyncCommissions(ctx)
			s.notify(models.Event{
				Action:      models.ActionAdded,
				Kind:        models.KindCommission,
				Commission:  &rec,
				Commissions: s.ListCommissions(),
			})
			return rec
		}
		s.logger.Error("Не удалось записать заказ в удаленную базу, сохраняем локально", zap.Error(err))
	}

	rec.ID = newLocalID()
	s.mu.Lock()
	s.commissions = append(s.commissions, rec)
	s.mu.Unlock()
	s.saveCommissionsLocally()
	s.notify(models.Event{
		Action:      models.ActionAdded,
		Kind:        models.KindCommission,
		Commission:  &rec,
		Commissions: s.ListCommissions(),
	})
	return rec
}

// UpdateCommission накладывает переданные поля на запись. Отсутствующая
// запись — не ошибка: возвращается (zero, false).
func (s *CommissionStore) UpdateCommission(ctx context.Context, id string, data models.CommissionData) (models.CommissionRecord, bool) {
	s.mu.Lock()
	idx := s.commissionIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.CommissionRecord{}, false
	}
	rec := s.commissions[idx]
	models.ApplyCommissionData(&rec, data)
	rec.UpdatedAt = time.Now().UTC()
	s.commissions[idx] = rec
	s.mu.Unlock()

	s.persistCommissionWrite(ctx, rec.ID, commissionToFields(rec))
	s.notify(models.Event{
		Action:      models.ActionUpdated,
		Kind:        models.KindCommission,
		Commission:  &rec,
		Commissions: s.ListCommissions(),
	})
	return rec, true
}

// DeleteCommission убирает запись; false, если идентификатор неизвестен.
func (s *CommissionStore) DeleteCommission(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := s.commissionIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	deleted := s.commissions[idx]
	s.commissions = append(s.commissions[:idx], s.commissions[idx+1:]...)
	s.mu.Unlock()

	if s.Mode() == ModeRemote {
		if err := s.remote.Delete(ctx, collectionCommissions, id); err != nil {
			s.logger.Error("Не удалось удалить заказ из удаленной базы, фиксируем локально", zap.Error(err))
			s.saveCommissionsLocally()
		}
	} else {
		s.saveCommissionsLocally()
	}

	s.notify(models.Event{
		Action:      models.ActionDeleted,
		Kind:        models.KindCommission,
		Commission:  &deleted,
		Commissions: s.ListCommissions(),
	})
	return true
}

// GetCommission возвращает запись по идентификатору.
func (s *CommissionStore) GetCommission(id string) (models.CommissionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.commissionIndexLocked(id); idx >= 0 {
		return s.commissions[idx], true
	}
	return models.CommissionRecord{}, false
}

// ListCommissions возвращает защитную копию всех заказов.
func (s *CommissionStore) ListCommissions() []models.CommissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CommissionRecord, len(s.commissions))
	copy(out, s.commissions)
	return out
}

// ListPublicCommissions возвращает только публичные заказы.
func (s *CommissionStore) ListPublicCommissions() []models.CommissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CommissionRecord, 0, len(s.commissions))
	for _, rec := range s.commissions {
		if rec.IsPublic {
			out = append(out, rec)
		}
	}
	return out
}

// SearchCommissions ищет подстроку без учета регистра в названии, имени
// художника, персонаже, описании и типе. Пустой запрос — весь список.
func (s *CommissionStore) SearchCommissions(query string) []models.CommissionRecord {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return s.ListCommissions()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CommissionRecord, 0)
	for _, rec := range s.commissions {
		haystacks := []string{rec.Title, rec.Artist, rec.Character, rec.Description, rec.Type}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), query) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// CommissionFilter — конъюнкция точных совпадений; nil-поля не ограничивают.
type CommissionFilter struct {
	Status    *string
	Character *string
	Artist    *string
	Type      *string
	IsPublic  *bool
}

// FilterCommissions возвращает записи, удовлетворяющие всем заданным полям.
func (s *CommissionStore) FilterCommissions(f CommissionFilter) []models.CommissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CommissionRecord, 0)
	for _, rec := range s.commissions {
		if f.Status != nil && rec.Status != *f.Status {
			continue
		}
		if f.Character != nil && rec.Character != *f.Character {
			continue
		}
		if f.Artist != nil && rec.Artist != *f.Artist {
			continue
		}
		if f.Type != nil && rec.Type != *f.Type {
			continue
		}
		if f.IsPublic != nil && rec.IsPublic != *f.IsPublic {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// CommissionStats — сводка по заказам.
type CommissionStats struct {
	Total              int    `json:"total"`
	Planning           int    `json:"planning"`
	InProgress         int    `json:"inProgress"`
	Completed          int    `json:"completed"`
	TotalCostFormatted string `json:"totalCostFormatted"`
}

// Stats считает количество заказов по статусам и общую стоимость.
func (s *CommissionStore) Stats() CommissionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := CommissionStats{Total: len(s.commissions)}
	var totalCost float64
	for _, rec := range s.commissions {
		switch rec.Status {
		case models.StatusPlanning:
			stats.Planning++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		}
		totalCost += rec.Cost
	}
	stats.TotalCostFormatted = FormatCost(totalCost)
	return stats
}

// FormatCost форматирует сумму как валюту с двумя знаками и знаком доллара.
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.2f", cost)
}

// ExportCommissions сериализует все заказы в отформатированный JSON-массив.
func (s *CommissionStore) ExportCommissions() (string, error) {
	data, err := json.MarshalIndent(s.ListCommissions(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации заказов: %w", err)
	}
	return string(data), nil
}

// ImportCommissions разбирает JSON-массив записей и добавляет их к уже
// существующим. Переданные идентификаторы отбрасываются, каждая запись
// проходит ту же очистку, что и при обычном добавлении. Возвращает число
// импортированных записей. Единственная ошибка, которая доходит до
// вызывающего, — не-массив на входе.
func (s *CommissionStore) ImportCommissions(ctx context.Context, serialized string) (int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(serialized), &items); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidImport, err)
	}
	// JSON null декодируется в nil-срез без ошибки, но массивом не является.
	if items == nil {
		return 0, fmt.Errorf("%w: got null", models.ErrInvalidImport)
	}

	now := time.Now().UTC()
	imported := make([]models.CommissionRecord, 0, len(items))
	for _, item := range items {
		// Нечитаемые элементы дают запись с умолчаниями: импорт, как и
		// обычная валидация, ничего не отклоняет.
		var data models.CommissionData
		_ = json.Unmarshal(item, &data)
		rec := models.NewCommission(data)
		rec.CreatedAt = importedCreatedAt(item, now)
		rec.UpdatedAt = now
		imported = append(imported, rec)
	}

	if s.Mode() == ModeRemote {
		for i := range imported {
			id, err := s.remote.Add(ctx, collectionCommissions, commissionToFields(imported[i]))
			if err != nil {
				s.logger.Error("Не удалось записать импортируемый заказ, присваиваем локальный id", zap.Error(err))
				id = newLocalID()
			}
			imported[i].ID = id
		}
		s.mu.Lock()
		s.commissions = append(s.commissions, imported...)
		s.mu.Unlock()
		s.resyncCommissions(ctx)
	} else {
		for i := range imported {
			imported[i].ID = newLocalID()
		}
		s.mu.Lock()
		s.commissions = append(s.commissions, imported...)
		s.mu.Unlock()
		s.saveCommissionsLocally()
	}

	s.notify(models.Event{
		Action:      models.ActionImported,
		Kind:        models.KindCommission,
		Commissions: s.ListCommissions(),
	})
	return len(imported), nil
}

// --- Вспомогательные методы ---

// commissionIndexLocked ищет индекс записи; вызывается под мьютексом.
func (s *CommissionStore) commissionIndexLocked(id string) int {
	for i := range s.commissions {
		if s.commissions[i].ID == id {
			return i
		}
	}
	return -1
}

// persistCommissionWrite фиксирует обновление записи в текущем бэкенде.
// Сбой удаленной записи компенсируется сохранением в локальный кэш:
// операция для вызывающего всегда успешна, расхождение не reconcile-ится.
func (s *CommissionStore) persistCommissionWrite(ctx context.Context, id string, fields map[string]any) {
	if s.Mode() == ModeRemote {
		if err := s.remote.Update(ctx, collectionCommissions, id, fields); err != nil {
			s.logger.Error("Не удалось обновить заказ в удаленной базе, фиксируем локально", zap.Error(err))
			s.saveCommissionsLocally()
		}
		return
	}
	s.saveCommissionsLocally()
}

// saveCommissionsLocally пишет текущий список в локальный кэш. Последняя
// запись побеждает; ошибка записи глотается с логом — деградация кэша
// не должна ломать операцию.
func (s *CommissionStore) saveCommissionsLocally() {
	if err := s.commissionCch.Save(s.ListCommissions()); err != nil {
		s.logger.Error("Не удалось сохранить заказы в локальный кэш", zap.Error(err))
	}
}

// resyncCommissions перечитывает коллекцию после удаленной записи, чтобы
// память совпала с серверным порядком и серверными идентификаторами.
func (s *CommissionStore) resyncCommissions(ctx context.Context) {
	docs, err := s.remote.List(ctx, collectionCommissions, orderFieldCommissions)
	if err != nil {
		s.logger.Warn("Не удалось перечитать заказы после записи", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.commissions = commissionsFromDocuments(docs)
	s.mu.Unlock()
}

// importedCreatedAt достает createdAt импортируемого элемента, если он
// разбирается как RFC3339, иначе использует текущее время.
func importedCreatedAt(item json.RawMessage, fallback time.Time) time.Time {
	var meta struct {
		CreatedAt string `json:"createdAt"`
	}
	if err := json.Unmarshal(item, &meta); err != nil || meta.CreatedAt == "" {
		return fallback
	}
	parsed, err := time.Parse(time.RFC3339, meta.CreatedAt)
	if err != nil {
		return fallback
	}
	return parsed
}

// newLocalID генерирует идентификатор для записи, созданной без удаленной
// базы: монотонная метка времени плюс случайный суффикс.
func newLocalID() string {
	return fmt.Sprintf("local_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
