package models

// Action — тег изменения, передаваемый подписчикам хранилища.
type Action string

const (
	ActionLoad     Action = "load"     // смена состояния/первичная загрузка
	ActionAdded    Action = "added"    // добавлена запись
	ActionUpdated  Action = "updated"  // обновлена запись
	ActionDeleted  Action = "deleted"  // удалена запись
	ActionImported Action = "imported" // завершен импорт
	ActionSync     Action = "sync"     // полный снапшот из live-подписки
)

// RecordKind различает коллекции, которыми владеет хранилище.
type RecordKind string

const (
	KindCommission   RecordKind = "commissions"
	KindFutureArtist RecordKind = "futureArtists"
)

// Event доставляется каждому подписчику при изменении состояния.
// Заполнены поля, соответствующие Kind; Commission/Artist равны nil,
// если действие не привязано к конкретной записи (load, sync, imported).
type Event struct {
	Action Action     `json:"action"`
	Kind   RecordKind `json:"kind"`

	Commission  *CommissionRecord    `json:"commission,omitempty"`
	Commissions []CommissionRecord   `json:"commissions,omitempty"`
	Artist      *FutureArtistRecord  `json:"artist,omitempty"`
	Artists     []FutureArtistRecord `json:"artists,omitempty"`
}
