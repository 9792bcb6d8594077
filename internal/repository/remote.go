package repository

import "context"

// Document — один документ удаленной коллекции: непрозрачный идентификатор
// и плоская карта полей.
type Document struct {
	ID     string
	Fields map[string]any
}

// Unsubscribe останавливает live-подписку и освобождает серверный канал.
// Повторные вызовы безопасны.
type Unsubscribe func()

// RemoteStore — адаптер удаленной документной базы. Операции не выполняют
// внутренних повторов при сетевых сбоях: политика отката принадлежит
// вызывающему хранилищу. Единственное исключение — упорядоченные запросы:
// List и Subscribe обязаны откатиться на неупорядоченный вариант, если
// сортировка недоступна (например, на пустой коллекции без индекса).
//
//go:generate mockery --name RemoteStore --output ./mocks --outpkg mocks --case=underscore
type RemoteStore interface {
	// List возвращает все документы коллекции, опционально отсортированные
	// по убыванию orderByField (пустая строка — без сортировки).
	List(ctx context.Context, collection, orderByField string) ([]Document, error)

	// Add создает документ и возвращает присвоенный сервером идентификатор.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Update сливает переданные поля в существующий документ.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete удаляет документ. Отсутствующий документ не считается ошибкой.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe устанавливает live-канал: onChange вызывается с полным
	// снапшотом коллекции при каждом изменении, включая момент подписки.
	Subscribe(ctx context.Context, collection, orderByField string, onChange func([]Document)) (Unsubscribe, error)
}
