package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"axiom-server/internal/models"
)

// Операции над списком будущих художников зеркалят операции над заказами:
// та же очистка входа, тот же откат записи в локальный кэш, тот же
// протокол уведомлений.

// AddFutureArtist очищает входные данные и сохраняет запись художника.
func (s *CommissionStore) AddFutureArtist(ctx context.Context, data models.FutureArtistData) models.FutureArtistRecord {
	rec := models.NewFutureArtist(data)
	now := time.Now().UTC()
	rec.DateAdded = now
	rec.UpdatedAt = now

	if s.Mode() == ModeRemote {
		id, err := s.remote.Add(ctx, collectionFutureArtists, artistToFields(rec))
		if err == nil {
			rec.ID = id
			s.mu.Lock()
			s.futureArtists = append(s.futureArtists, rec)
			s.mu.Unlock()
			s.resyncFutureArtists(ctx)
			s.notify(models.Event{
				Action:  models.ActionAdded,
				Kind:    models.KindFutureArtist,
				Artist:  &rec,
				Artists: s.ListFutureArtists(),
			})
			return rec
		}
		s.logger.Error("Не удалось записать художника в удаленную базу, сохраняем локально", zap.Error(err))
	}

	rec.ID = newLocalID()
	s.mu.Lock()
	s.futureArtists = append(s.futureArtists, rec)
	s.mu.Unlock()
	s.saveFutureArtistsLocally()
	s.notify(models.Event{
		Action:  models.ActionAdded,
		Kind:    models.KindFutureArtist,
		Artist:  &rec,
		Artists: s.ListFutureArtists(),
	})
	return rec
}

// UpdateFutureArtist накладывает переданные поля на запись художника.
func (s *CommissionStore) UpdateFutureArtist(ctx context.Context, id string, data models.FutureArtistData) (models.FutureArtistRecord, bool) {
	s.mu.Lock()
	idx := s.artistIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.FutureArtistRecord{}, false
	}
	rec := s.futureArtists[idx]
	models.ApplyFutureArtistData(&rec, data)
	rec.UpdatedAt = time.Now().UTC()
	s.futureArtists[idx] = rec
	s.mu.Unlock()

	if s.Mode() == ModeRemote {
		if err := s.remote.Update(ctx, collectionFutureArtists, rec.ID, artistToFields(rec)); err != nil {
			s.logger.Error("Не удалось обновить художника в удаленной базе, фиксируем локально", zap.Error(err))
			s.saveFutureArtistsLocally()
		}
	} else {
		s.saveFutureArtistsLocally()
	}

	s.notify(models.Event{
		Action:  models.ActionUpdated,
		Kind:    models.KindFutureArtist,
		Artist:  &rec,
		Artists: s.ListFutureArtists(),
	})
	return rec, true
}

// DeleteFutureArtist убирает запись художника; false, если id неизвестен.
func (s *CommissionStore) DeleteFutureArtist(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := s.artistIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	deleted := s.futureArtists[idx]
	s.futureArtists = append(s.futureArtists[:idx], s.futureArtists[idx+1:]...)
	s.mu.Unlock()

	if s.Mode() == ModeRemote {
		if err := s.remote.Delete(ctx, collectionFutureArtists, id); err != nil {
			s.logger.Error("Не удалось удалить художника из удаленной базы, фиксируем локально", zap.Error(err))
			s.saveFutureArtistsLocally()
		}
	} else {
		s.saveFutureArtistsLocally()
	}

	s.notify(models.Event{
		Action:  models.ActionDeleted,
		Kind:    models.KindFutureArtist,
		Artist:  &deleted,
		Artists: s.ListFutureArtists(),
	})
	return true
}

// GetFutureArtist возвращает запись художника по идентификатору.
func (s *CommissionStore) GetFutureArtist(id string) (models.FutureArtistRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.artistIndexLocked(id); idx >= 0 {
		return s.futureArtists[idx], true
	}
	return models.FutureArtistRecord{}, false
}

// ListFutureArtists возвращает защитную копию всех записей художников.
func (s *CommissionStore) ListFutureArtists() []models.FutureArtistRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FutureArtistRecord, len(s.futureArtists))
	copy(out, s.futureArtists)
	return out
}

// ListPublicFutureArtists возвращает только публичные записи художников.
func (s *CommissionStore) ListPublicFutureArtists() []models.FutureArtistRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FutureArtistRecord, 0, len(s.futureArtists))
	for _, rec := range s.futureArtists {
		if rec.IsPublic {
			out = append(out, rec)
		}
	}
	return out
}

// SearchFutureArtists ищет подстроку без учета регистра в имени, платформе,
// нике и стиле. Пустой запрос — весь список.
func (s *CommissionStore) SearchFutureArtists(query string) []models.FutureArtistRecord {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return s.ListFutureArtists()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FutureArtistRecord, 0)
	for _, rec := range s.futureArtists {
		haystacks := []string{rec.ArtistName, rec.Platform, rec.Handle, rec.Style}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), query) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// FutureArtistFilter — конъюнкция точных совпадений для записей художников.
type FutureArtistFilter struct {
	Priority *string
	Status   *string
	Platform *string
	IsPublic *bool
}

// FilterFutureArtists возвращает записи, удовлетворяющие всем заданным полям.
func (s *CommissionStore) FilterFutureArtists(f FutureArtistFilter) []models.FutureArtistRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FutureArtistRecord, 0)
	for _, rec := range s.futureArtists {
		if f.Priority != nil && rec.Priority != *f.Priority {
			continue
		}
		if f.Status != nil && rec.Status != *f.Status {
			continue
		}
		if f.Platform != nil && rec.Platform != *f.Platform {
			continue
		}
		if f.IsPublic != nil && rec.IsPublic != *f.IsPublic {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// ExportFutureArtists сериализует записи художников в JSON-массив.
func (s *CommissionStore) ExportFutureArtists() (string, error) {
	data, err := json.MarshalIndent(s.ListFutureArtists(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации художников: %w", err)
	}
	return string(data), nil
}

// ImportFutureArtists разбирает JSON-массив записей художников и добавляет
// их к существующим по тем же правилам, что ImportCommissions.
func (s *CommissionStore) ImportFutureArtists(ctx context.Context, serialized string) (int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(serialized), &items); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidImport, err)
	}
	// JSON null декодируется в nil-срез без ошибки, но массивом не является.
	if items == nil {
		return 0, fmt.Errorf("%w: got null", models.ErrInvalidImport)
	}

	now := time.Now().UTC()
	imported := make([]models.FutureArtistRecord, 0, len(items))
	for _, item := range items {
		var data models.FutureArtistData
		_ = json.Unmarshal(item, &data)
		rec := models.NewFutureArtist(data)
		rec.DateAdded = now
		rec.UpdatedAt = now
		imported = append(imported, rec)
	}

	if s.Mode() == ModeRemote {
		for i := range imported {
			id, err := s.remote.Add(ctx, collectionFutureArtists, artistToFields(imported[i]))
			if err != nil {
				s.logger.Error("Не удалось записать импортируемого художника, присваиваем локальный id", zap.Error(err))
				id = newLocalID()
			}
			imported[i].ID = id
		}
		s.mu.Lock()
		s.futureArtists = append(s.futureArtists, imported...)
		s.mu.Unlock()
		s.resyncFutureArtists(ctx)
	} else {
		for i := range imported {
			imported[i].ID = newLocalID()
		}
		s.mu.Lock()
		s.futureArtists = append(s.futureArtists, imported...)
		s.mu.Unlock()
		s.saveFutureArtistsLocally()
	}

	s.notify(models.Event{
		Action:  models.ActionImported,
		Kind:    models.KindFutureArtist,
		Artists: s.ListFutureArtists(),
	})
	return len(imported), nil
}

// artistIndexLocked ищет индекс записи художника; вызывается под мьютексом.
func (s *CommissionStore) artistIndexLocked(id string) int {
	for i := range s.futureArtists {
		if s.futureArtists[i].ID == id {
			return i
		}
	}
	return -1
}

// saveFutureArtistsLocally пишет текущий список художников в локальный кэш.
func (s *CommissionStore) saveFutureArtistsLocally() {
	if err := s.artistCch.Save(s.ListFutureArtists()); err != nil {
		s.logger.Error("Не удалось сохранить художников в локальный кэш", zap.Error(err))
	}
}

// resyncFutureArtists перечитывает коллекцию художников после записи.
func (s *CommissionStore) resyncFutureArtists(ctx context.Context) {
	docs, err := s.remote.List(ctx, collectionFutureArtists, orderFieldFutureArtists)
	if err != nil {
		s.logger.Warn("Не удалось перечитать художников после записи", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.futureArtists = artistsFromDocuments(docs)
	s.mu.Unlock()
}
