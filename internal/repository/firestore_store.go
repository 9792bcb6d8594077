package repository

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirebaseConfig — параметры подключения к Firestore.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string // Путь к файлу ключа сервис-аккаунта (если пусто, используются ADC)
}

// FirestoreStore реализует RemoteStore поверх Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

var _ RemoteStore = (*FirestoreStore)(nil)

var (
	connMu      sync.Mutex
	connections = make(map[string]*FirestoreStore) // projectID -> подключение
)

// Connect открывает подключение к Firestore. Идемпотентно: повторный вызов
// для того же проекта возвращает уже существующее подключение вместо
// второго клиента.
func Connect(ctx context.Context, cfg FirebaseConfig, logger *zap.Logger) (*FirestoreStore, error) {
	connMu.Lock()
	defer connMu.Unlock()

	if store, ok := connections[cfg.ProjectID]; ok {
		return store, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Firebase App для проекта '%s': %w", cfg.ProjectID, err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения Firestore client: %w", err)
	}

	store := &FirestoreStore{
		client: client,
		logger: logger.Named("firestore_store"),
	}
	connections[cfg.ProjectID] = store
	logger.Info("Подключение к Firestore установлено", zap.String("project_id", cfg.ProjectID))
	return store, nil
}

// Close закрывает клиент и убирает подключение из реестра.
func (s *FirestoreStore) Close() error {
	connMu.Lock()
	for id, store := range connections {
		if store == s {
			delete(connections, id)
		}
	}
	connMu.Unlock()
	return s.client.Close()
}

// List возвращает документы коллекции, при возможности отсортированные
// по убыванию orderByField. Сбой сортировки (отсутствующий индекс на пустой
// коллекции) не фатален: повторяем запрос без сортировки.
func (s *FirestoreStore) List(ctx context.Context, collection, orderByField string) ([]Document, error) {
	colRef := s.client.Collection(collection)
	ordered := func() ([]Document, error) {
		return collectDocuments(colRef.OrderBy(orderByField, firestore.Desc).Documents(ctx))
	}
	unordered := func() ([]Document, error) {
		return collectDocuments(colRef.Documents(ctx))
	}
	if orderByField == "" {
		return unordered()
	}
	return listWithFallback(ordered, unordered, s.logger.With(
		zap.String("collection", collection),
		zap.String("order_by", orderByField),
	))
}

// Add создает документ с серверным идентификатором.
func (s *FirestoreStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	docRef, _, err := s.client.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("ошибка добавления документа в '%s': %w", collection, err)
	}
	return docRef.ID, nil
}

// Update сливает переданные поля в документ, не трогая остальные.
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("ошибка обновления документа '%s/%s': %w", collection, id, err)
	}
	return nil
}

// Delete удаляет документ. Firestore не возвращает ошибку для
// несуществующего документа, что совпадает с контрактом.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("ошибка удаления документа '%s/%s': %w", collection, id, err)
	}
	return nil
}

// Subscribe слушает снапшоты коллекции и передает полный срез документов
// в onChange при каждом изменении. При ошибке упорядоченного запроса
// подписка перезапускается без сортировки.
func (s *FirestoreStore) Subscribe(ctx context.Context, collection, orderByField string, onChange func([]Document)) (Unsubscribe, error) {
	subCtx, cancel := context.WithCancel(ctx)
	logger := s.logger.With(zap.String("collection", collection))

	go s.watch(subCtx, collection, orderByField, onChange, logger)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			logger.Info("Live-подписка остановлена")
		})
	}, nil
}

// watch крутит цикл снапшотов. Если упорядоченный запрос падает до первой
// доставки, пробуем без сортировки; дальнейшие ошибки завершают подписку.
func (s *FirestoreStore) watch(ctx context.Context, collection, orderByField string, onChange func([]Document), logger *zap.Logger) {
	query := s.client.Collection(collection).Query
	if orderByField != "" {
		query = query.OrderBy(orderByField, firestore.Desc)
	}

	delivered := false
	snapIter := query.Snapshots(ctx)
	defer func() { snapIter.Stop() }()

	for {
		snap, err := snapIter.Next()
		if err != nil {
			if ctx.Err() != nil {
				return // подписка отменена
			}
			if !delivered && orderByField != "" {
				logger.Warn("Упорядоченная подписка не удалась, повторяем без сортировки", zap.Error(err))
				snapIter.Stop()
				snapIter = s.client.Collection(collection).Query.Snapshots(ctx)
				orderByField = ""
				continue
			}
			logger.Error("Ошибка live-подписки", zap.Error(err))
			return
		}

		docs, err := collectDocuments(snap.Documents)
		if err != nil {
			logger.Error("Ошибка чтения снапшота", zap.Error(err))
			continue
		}
		delivered = true
		onChange(docs)
	}
}

// documentIterator — минимальный интерфейс итератора документов Firestore.
// Выделен, чтобы сбор документов можно было проверить без живого клиента.
type documentIterator interface {
	Next() (*firestore.DocumentSnapshot, error)
	Stop()
}

// collectDocuments вычитывает итератор до конца в срез Document.
func collectDocuments(it documentIterator) ([]Document, error) {
	defer it.Stop()
	docs := make([]Document, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
}

// listWithFallback выполняет упорядоченный запрос и при любой ошибке
// повторяет его без сортировки. Ошибка возвращается только если оба
// варианта не удались.
func listWithFallback(ordered, unordered func() ([]Document, error), logger *zap.Logger) ([]Document, error) {
	docs, err := ordered()
	if err == nil {
		return docs, nil
	}
	logger.Warn("Упорядоченный запрос не удался, повторяем без сортировки", zap.Error(err))
	return unordered()
}
