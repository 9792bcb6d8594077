package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Статусы заказа. Любое другое значение на входе приводится к StatusPlanning.
const (
	StatusPlanning   = "planning"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// maxFieldLength ограничивает длину всех строковых полей записи.
const maxFieldLength = 1000

// CommissionRecord описывает один заказ (запланированный или выполненный).
// Временные метки сериализуются в RFC3339, поэтому сортировка по строковому
// значению createdAt в удаленной базе совпадает с хронологической.
type CommissionRecord struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Artist               string    `json:"artist"`
	Character            string    `json:"character"`
	AdditionalCharacters string    `json:"additionalCharacters"`
	Type                 string    `json:"type"`
	Status               string    `json:"status"`
	Cost                 float64   `json:"cost"`
	DateCommissioned     string    `json:"dateCommissioned,omitempty"`
	Description          string    `json:"description"`
	Notes                string    `json:"notes"`
	IsPublic             bool      `json:"isPublic"`
	AttachedImage        string    `json:"attachedImage,omitempty"`
	AttachedImageName    string    `json:"attachedImageName,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// CommissionData — входные данные для создания/обновления заказа.
// Все поля опциональны: nil означает "поле не передано" и при обновлении
// сохраняет прежнее значение. Типы полей терпимы к мусору на входе —
// валидация никогда не отклоняет запись, только приводит к умолчаниям.
type CommissionData struct {
	Title                *LooseString `json:"title"`
	Artist               *LooseString `json:"artist"`
	Character            *LooseString `json:"character"`
	AdditionalCharacters *LooseString `json:"additionalCharacters"`
	Type                 *LooseString `json:"type"`
	Status               *LooseString `json:"status"`
	Cost                 *Cost        `json:"cost"`
	DateCommissioned     *LooseString `json:"dateCommissioned"`
	Description          *LooseString `json:"description"`
	Notes                *LooseString `json:"notes"`
	IsPublic             *PublicFlag  `json:"isPublic"`
	AttachedImage        *LooseString `json:"attachedImage"`
	AttachedImageName    *LooseString `json:"attachedImageName"`
}

// LooseString принимает любое JSON-значение: строка остается строкой,
// все остальное превращается в пустую строку вместо ошибки разбора.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*s = ""
		return nil
	}
	*s = LooseString(str)
	return nil
}

// Cost принимает число или строку с символами валюты ("$1,200.50").
// Нераспознаваемое или отрицательное значение становится нулем.
type Cost float64

func (c *Cost) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*c = Cost(clampCost(num))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*c = Cost(ParseCost(str))
		return nil
	}
	*c = 0
	return nil
}

// PublicFlag повторяет семантику оригинала: запись публична, если явно
// не передано false. Любое не-булево значение трактуется как true.
type PublicFlag bool

func (f *PublicFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		*f = true
		return nil
	}
	*f = PublicFlag(b)
	return nil
}

// NewCommission собирает каноничную запись из произвольных входных данных,
// применяя умолчания и ограничения. Идентификатор и временные метки
// проставляет вызывающая сторона (хранилище).
func NewCommission(data CommissionData) CommissionRecord {
	rec := CommissionRecord{
		Title:     "Untitled Commission",
		Artist:    "TBD",
		Character: "Not specified",
		Type:      "General",
		Status:    StatusPlanning,
		IsPublic:  true,
	}
	ApplyCommissionData(&rec, data)
	return rec
}

// ApplyCommissionData накладывает переданные поля на запись, пропуская их
// через те же правила очистки, что и при создании. Непереданные поля
// не трогаются.
func ApplyCommissionData(rec *CommissionRecord, data CommissionData) {
	if data.Title != nil {
		rec.Title = sanitizeString(string(*data.Title), "Untitled Commission")
	}
	if data.Artist != nil {
		rec.Artist = sanitizeString(string(*data.Artist), "TBD")
	}
	if data.Character != nil {
		rec.Character = sanitizeString(string(*data.Character), "Not specified")
	}
	if data.AdditionalCharacters != nil {
		rec.AdditionalCharacters = sanitizeString(string(*data.AdditionalCharacters), "")
	}
	if data.Type != nil {
		rec.Type = sanitizeString(string(*data.Type), "General")
	}
	if data.Status != nil {
		rec.Status = SanitizeStatus(string(*data.Status))
	}
	if data.Cost != nil {
		rec.Cost = clampCost(float64(*data.Cost))
	}
	if data.DateCommissioned != nil {
		rec.DateCommissioned = sanitizeDate(string(*data.DateCommissioned))
	}
	if data.Description != nil {
		rec.Description = sanitizeString(string(*data.Description), "")
	}
	if data.Notes != nil {
		rec.Notes = sanitizeString(string(*data.Notes), "")
	}
	if data.IsPublic != nil {
		rec.IsPublic = bool(*data.IsPublic)
	}
	if data.AttachedImage != nil {
		rec.AttachedImage = string(*data.AttachedImage)
	}
	if data.AttachedImageName != nil {
		rec.AttachedImageName = sanitizeString(string(*data.AttachedImageName), "")
	}
}

// SanitizeStatus приводит статус к одному из допустимых значений.
func SanitizeStatus(status string) string {
	switch status {
	case StatusPlanning, StatusInProgress, StatusCompleted:
		return status
	default:
		return StatusPlanning
	}
}

// ParseCost разбирает стоимость из строки, отбрасывая символы валюты
// и разделители тысяч. Мусор и отрицательные значения дают 0.
func ParseCost(raw string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return clampCost(num)
}

func clampCost(cost float64) float64 {
	if cost < 0 || cost != cost { // NaN тоже отбрасываем
		return 0
	}
	return cost
}

// sanitizeString обрезает пробелы, ограничивает длину и подставляет
// умолчание вместо пустого значения.
func sanitizeString(raw, fallback string) string {
	trimmed := strings.TrimSpace(raw)
	if runes := []rune(trimmed); len(runes) > maxFieldLength {
		trimmed = string(runes[:maxFieldLength])
	}
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

// sanitizeDate принимает только календарную дату ISO 8601 (YYYY-MM-DD),
// все остальное превращает в пустую строку.
func sanitizeDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", trimmed); err != nil {
		return ""
	}
	return trimmed
}
