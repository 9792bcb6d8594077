package service

import (
	"encoding/json"

	"axiom-server/internal/models"
	"axiom-server/internal/repository"
)

// Преобразование документов удаленной базы в записи и обратно идет через
// JSON: исходный сайт писал в те же коллекции произвольные объекты, и
// частично совпадающие документы должны декодироваться в той мере,
// в какой их поля читаемы. Нечитаемые поля просто остаются нулевыми.

func commissionFromDocument(doc repository.Document) models.CommissionRecord {
	var rec models.CommissionRecord
	decodeFields(doc.Fields, &rec)
	rec.ID = doc.ID
	return rec
}

func commissionsFromDocuments(docs []repository.Document) []models.CommissionRecord {
	out := make([]models.CommissionRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, commissionFromDocument(doc))
	}
	return out
}

func commissionToFields(rec models.CommissionRecord) map[string]any {
	return encodeFields(rec)
}

func artistFromDocument(doc repository.Document) models.FutureArtistRecord {
	var rec models.FutureArtistRecord
	decodeFields(doc.Fields, &rec)
	rec.ID = doc.ID
	return rec
}

func artistsFromDocuments(docs []repository.Document) []models.FutureArtistRecord {
	out := make([]models.FutureArtistRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, artistFromDocument(doc))
	}
	return out
}

func artistToFields(rec models.FutureArtistRecord) map[string]any {
	return encodeFields(rec)
}

func commentFromDocument(doc repository.Document) models.Comment {
	var c models.Comment
	decodeFields(doc.Fields, &c)
	c.ID = doc.ID
	return c
}

func commentToFields(c models.Comment) map[string]any {
	return encodeFields(c)
}

// decodeFields декодирует карту полей в запись, терпя несовпадения типов.
func decodeFields(fields map[string]any, dst any) {
	data, err := json.Marshal(fields)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, dst)
}

// encodeFields раскладывает запись в плоскую карту полей документа.
// Идентификатор живет в ключе документа, в полях его не храним.
func encodeFields(src any) map[string]any {
	fields := map[string]any{}
	data, err := json.Marshal(src)
	if err != nil {
		return fields
	}
	_ = json.Unmarshal(data, &fields)
	delete(fields, "id")
	return fields
}
