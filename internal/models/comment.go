package models

import (
	"strings"
	"time"
)

// Comment — комментарий посетителя на странице персонажа.
type Comment struct {
	ID          string    `json:"id"`
	CharacterID string    `json:"characterId"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

// SanitizeCommentText обрезает пробелы и ограничивает длину текста.
// Пустой результат означает, что комментарий публиковать нечего.
func SanitizeCommentText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if runes := []rune(trimmed); len(runes) > maxFieldLength {
		trimmed = string(runes[:maxFieldLength])
	}
	return trimmed
}
