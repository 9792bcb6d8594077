package service_test

import (
	"context"
	"testing"

	"axiom-server/internal/models"
	"axiom-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFutureArtistCRUD покрывает жизненный цикл записи художника.
func TestFutureArtistCRUD(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	added := store.AddFutureArtist(ctx, models.FutureArtistData{
		ArtistName: strPtr("pixelfox"),
		Platform:   strPtr("Twitter"),
		Priority:   strPtr(models.PriorityHigh),
	})
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "pixelfox", added.ArtistName)
	assert.Equal(t, models.PriorityHigh, added.Priority)

	t.Run("Get", func(t *testing.T) {
		got, ok := store.GetFutureArtist(added.ID)
		require.True(t, ok)
		assert.Equal(t, "Twitter", got.Platform)
	})

	t.Run("Partial update", func(t *testing.T) {
		updated, ok := store.UpdateFutureArtist(ctx, added.ID, models.FutureArtistData{
			Status: strPtr(models.ArtistStatusContacted),
		})
		require.True(t, ok)
		assert.Equal(t, "pixelfox", updated.ArtistName)
		assert.Equal(t, models.ArtistStatusContacted, updated.Status)
	})

	t.Run("Delete", func(t *testing.T) {
		assert.True(t, store.DeleteFutureArtist(ctx, added.ID))
		assert.False(t, store.DeleteFutureArtist(ctx, added.ID))
		assert.Empty(t, store.ListFutureArtists())
	})
}

// TestSearchFutureArtists: поиск по имени, платформе, нику и стилю.
func TestSearchFutureArtists(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddFutureArtist(ctx, models.FutureArtistData{
		ArtistName: strPtr("pixelfox"), Platform: strPtr("Twitter"), Style: strPtr("chibi"),
	})
	store.AddFutureArtist(ctx, models.FutureArtistData{
		ArtistName: strPtr("inkwell"), Handle: strPtr("@inkwell_art"), Style: strPtr("realism"),
	})

	assert.Len(t, store.SearchFutureArtists("PIXEL"), 1)
	assert.Len(t, store.SearchFutureArtists("chibi"), 1)
	assert.Len(t, store.SearchFutureArtists("@inkwell"), 1)
	assert.Len(t, store.SearchFutureArtists(""), 2)
	assert.Empty(t, store.SearchFutureArtists("watercolor"))
}

// TestFilterFutureArtists: конъюнкция точных совпадений.
func TestFilterFutureArtists(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddFutureArtist(ctx, models.FutureArtistData{
		Platform: strPtr("Twitter"), Priority: strPtr(models.PriorityHigh),
	})
	store.AddFutureArtist(ctx, models.FutureArtistData{
		Platform: strPtr("Twitter"), Priority: strPtr(models.PriorityLow), IsPublic: flagPtr(false),
	})

	platform := "Twitter"
	priority := models.PriorityHigh
	isPublic := true

	assert.Len(t, store.FilterFutureArtists(service.FutureArtistFilter{Platform: &platform}), 2)
	assert.Len(t, store.FilterFutureArtists(service.FutureArtistFilter{Platform: &platform, Priority: &priority}), 1)
	assert.Len(t, store.FilterFutureArtists(service.FutureArtistFilter{IsPublic: &isPublic}), 1)
}

// TestImportFutureArtists: тот же контракт импорта, что и у заказов.
func TestImportFutureArtists(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	count, err := store.ImportFutureArtists(ctx, `[
		{"artistName": "pixelfox", "priority": "high"},
		{"artistName": "inkwell", "status": "ghosted"}
	]`)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records := store.ListFutureArtists()
	require.Len(t, records, 2)
	assert.Equal(t, models.ArtistStatusPlanning, records[1].Status, "незнакомый статус приводится к умолчанию")

	_, err = store.ImportFutureArtists(ctx, `"не массив"`)
	assert.ErrorIs(t, err, models.ErrInvalidImport)

	_, err = store.ImportFutureArtists(ctx, `null`)
	assert.ErrorIs(t, err, models.ErrInvalidImport)
}

// TestListPublicFutureArtists: приватные записи скрыты из публичного списка.
func TestListPublicFutureArtists(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, t.TempDir())
	defer store.Close()

	store.AddFutureArtist(ctx, models.FutureArtistData{ArtistName: strPtr("Видимый")})
	store.AddFutureArtist(ctx, models.FutureArtistData{ArtistName: strPtr("Скрытый"), IsPublic: flagPtr(false)})

	public := store.ListPublicFutureArtists()
	require.Len(t, public, 1)
	assert.Equal(t, "Видимый", public[0].ArtistName)
}
