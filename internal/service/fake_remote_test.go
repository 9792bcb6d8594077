package service_test

import (
	"context"
	"fmt"
	"sync"

	"axiom-server/internal/repository"
)

// fakeRemoteStore — ручная заглушка удаленной базы для тестов хранилищ.
// Держит документы в памяти и позволяет включать ошибки на отдельных
// операциях, чтобы проверять откаты и компенсации.
type fakeRemoteStore struct {
	mu          sync.Mutex
	collections map[string][]repository.Document
	nextID      int

	listErr   error
	addErr    error
	updateErr error
	deleteErr error
	subErr    error

	subscribers map[string][]func([]repository.Document)
	subCtxs     map[string]context.Context // контекст, переданный в Subscribe
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{
		collections: make(map[string][]repository.Document),
		subscribers: make(map[string][]func([]repository.Document)),
		subCtxs:     make(map[string]context.Context),
	}
}

func (f *fakeRemoteStore) List(_ context.Context, collection, _ string) ([]repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.snapshotLocked(collection), nil
}

func (f *fakeRemoteStore) Add(_ context.Context, collection string, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return "", f.addErr
	}
	f.nextID++
	id := fmt.Sprintf("remote_%d", f.nextID)
	f.collections[collection] = append(f.collections[collection], repository.Document{ID: id, Fields: fields})
	return id, nil
}

func (f *fakeRemoteStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, doc := range f.collections[collection] {
		if doc.ID == id {
			for k, v := range fields {
				f.collections[collection][i].Fields[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("документ %s не найден", id)
}

func (f *fakeRemoteStore) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	docs := f.collections[collection]
	for i, doc := range docs {
		if doc.ID == id {
			f.collections[collection] = append(docs[:i], docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRemoteStore) Subscribe(ctx context.Context, collection, _ string, onChange func([]repository.Document)) (repository.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.subCtxs[collection] = ctx
	f.subscribers[collection] = append(f.subscribers[collection], onChange)
	return func() {}, nil
}

// subscribeContext возвращает контекст, с которым была установлена подписка.
func (f *fakeRemoteStore) subscribeContext(collection string) context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subCtxs[collection]
}

// seed кладет документ в коллекцию напрямую, минуя Add.
func (f *fakeRemoteStore) seed(collection, id string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[collection] = append(f.collections[collection], repository.Document{ID: id, Fields: fields})
}

// push разыгрывает доставку снапшота всем подписчикам коллекции.
func (f *fakeRemoteStore) push(collection string) {
	f.mu.Lock()
	docs := f.snapshotLocked(collection)
	subs := append([]func([]repository.Document){}, f.subscribers[collection]...)
	f.mu.Unlock()

	for _, cb := range subs {
		cb(docs)
	}
}

func (f *fakeRemoteStore) snapshotLocked(collection string) []repository.Document {
	docs := f.collections[collection]
	out := make([]repository.Document, len(docs))
	copy(out, docs)
	return out
}
