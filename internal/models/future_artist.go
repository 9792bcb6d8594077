package models

import "time"

// Приоритеты художника из списка желаемых.
const (
	PriorityHigh    = "high"
	PriorityMedium  = "medium"
	PriorityLow     = "low"
	PrioritySomeday = "someday"
)

// Статусы работы с художником из списка желаемых.
const (
	ArtistStatusResearching  = "researching"
	ArtistStatusPlanning     = "planning"
	ArtistStatusReady        = "ready"
	ArtistStatusContacted    = "contacted"
	ArtistStatusCommissioned = "commissioned"
)

// FutureArtistRecord описывает художника, у которого заказ пока не сделан.
type FutureArtistRecord struct {
	ID             string    `json:"id"`
	ArtistName     string    `json:"artistName"`
	Platform       string    `json:"platform"`
	Handle         string    `json:"handle"`
	Website        string    `json:"website"`
	Style          string    `json:"style"`
	CommissionType string    `json:"commissionType"`
	EstimatedCost  string    `json:"estimatedCost"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	IsPublic       bool      `json:"isPublic"`
	DateAdded      time.Time `json:"dateAdded"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FutureArtistData — входные данные для создания/обновления записи художника.
// Семантика полей та же, что у CommissionData: nil — поле не передано.
type FutureArtistData struct {
	ArtistName     *LooseString `json:"artistName"`
	Platform       *LooseString `json:"platform"`
	Handle         *LooseString `json:"handle"`
	Website        *LooseString `json:"website"`
	Style          *LooseString `json:"style"`
	CommissionType *LooseString `json:"commissionType"`
	EstimatedCost  *LooseString `json:"estimatedCost"`
	Priority       *LooseString `json:"priority"`
	Status         *LooseString `json:"status"`
	Notes          *LooseString `json:"notes"`
	IsPublic       *PublicFlag  `json:"isPublic"`
}

// NewFutureArtist собирает каноничную запись художника с умолчаниями.
func NewFutureArtist(data FutureArtistData) FutureArtistRecord {
	rec := FutureArtistRecord{
		ArtistName:     "Unknown Artist",
		Platform:       "Unknown",
		CommissionType: "Any",
		Priority:       PriorityMedium,
		Status:         ArtistStatusPlanning,
		IsPublic:       true,
	}
	ApplyFutureArtistData(&rec, data)
	return rec
}

// ApplyFutureArtistData накладывает переданные поля на запись художника.
func ApplyFutureArtistData(rec *FutureArtistRecord, data FutureArtistData) {
	if data.ArtistName != nil {
		rec.ArtistName = sanitizeString(string(*data.ArtistName), "Unknown Artist")
	}
	if data.Platform != nil {
		rec.Platform = sanitizeString(string(*data.Platform), "Unknown")
	}
	if data.Handle != nil {
		rec.Handle = sanitizeString(string(*data.Handle), "")
	}
	if data.Website != nil {
		rec.Website = sanitizeString(string(*data.Website), "")
	}
	if data.Style != nil {
		rec.Style = sanitizeString(string(*data.Style), "")
	}
	if data.CommissionType != nil {
		rec.CommissionType = sanitizeString(string(*data.CommissionType), "Any")
	}
	if data.EstimatedCost != nil {
		rec.EstimatedCost = sanitizeString(string(*data.EstimatedCost), "")
	}
	if data.Priority != nil {
		rec.Priority = SanitizePriority(string(*data.Priority))
	}
	if data.Status != nil {
		rec.Status = SanitizeArtistStatus(string(*data.Status))
	}
	if data.Notes != nil {
		rec.Notes = sanitizeString(string(*data.Notes), "")
	}
	if data.IsPublic != nil {
		rec.IsPublic = bool(*data.IsPublic)
	}
}

// SanitizePriority приводит приоритет к одному из допустимых значений.
func SanitizePriority(priority string) string {
	switch priority {
	case PriorityHigh, PriorityMedium, PriorityLow, PrioritySomeday:
		return priority
	default:
		return PriorityMedium
	}
}

// SanitizeArtistStatus приводит статус художника к допустимому значению.
func SanitizeArtistStatus(status string) string {
	switch status {
	case ArtistStatusResearching, ArtistStatusPlanning, ArtistStatusReady,
		ArtistStatusContacted, ArtistStatusCommissioned:
		return status
	default:
		return ArtistStatusPlanning
	}
}
