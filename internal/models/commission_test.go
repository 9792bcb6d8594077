package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"axiom-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *models.LooseString {
	ls := models.LooseString(s)
	return &ls
}

func costPtr(c float64) *models.Cost {
	v := models.Cost(c)
	return &v
}

func flagPtr(b bool) *models.PublicFlag {
	v := models.PublicFlag(b)
	return &v
}

// TestNewCommission проверяет умолчания и очистку входных данных.
func TestNewCommission(t *testing.T) {
	t.Run("Defaults for empty input", func(t *testing.T) {
		rec := models.NewCommission(models.CommissionData{})

		assert.Equal(t, "Untitled Commission", rec.Title)
		assert.Equal(t, "TBD", rec.Artist)
		assert.Equal(t, "Not specified", rec.Character)
		assert.Equal(t, "General", rec.Type)
		assert.Equal(t, models.StatusPlanning, rec.Status)
		assert.Equal(t, 0.0, rec.Cost)
		assert.True(t, rec.IsPublic)
	})

	t.Run("Unknown status falls back to planning", func(t *testing.T) {
		rec := models.NewCommission(models.CommissionData{Status: strPtr("shipped")})
		assert.Equal(t, models.StatusPlanning, rec.Status)
	})

	t.Run("Valid statuses are kept", func(t *testing.T) {
		for _, status := range []string{models.StatusPlanning, models.StatusInProgress, models.StatusCompleted} {
			rec := models.NewCommission(models.CommissionData{Status: strPtr(status)})
			assert.Equal(t, status, rec.Status)
		}
	})

	t.Run("Over-long title is truncated to 1000 runes", func(t *testing.T) {
		long := strings.Repeat("я", 5000)
		rec := models.NewCommission(models.CommissionData{Title: strPtr(long)})
		assert.Equal(t, 1000, len([]rune(rec.Title)))
	})

	t.Run("Whitespace-only title gets the default", func(t *testing.T) {
		rec := models.NewCommission(models.CommissionData{Title: strPtr("   ")})
		assert.Equal(t, "Untitled Commission", rec.Title)
	})

	t.Run("Negative cost is clamped to zero", func(t *testing.T) {
		rec := models.NewCommission(models.CommissionData{Cost: costPtr(-50)})
		assert.Equal(t, 0.0, rec.Cost)
	})

	t.Run("Malformed date is dropped", func(t *testing.T) {
		rec := models.NewCommission(models.CommissionData{DateCommissioned: strPtr("next tuesday")})
		assert.Equal(t, "", rec.DateCommissioned)

		rec = models.NewCommission(models.CommissionData{DateCommissioned: strPtr("2025-04-01")})
		assert.Equal(t, "2025-04-01", rec.DateCommissioned)
	})

	t.Run("Explicit isPublic false is respected", func(t *testing.T) {
		rec := models.NewCommission(models.CommissionData{IsPublic: flagPtr(false)})
		assert.False(t, rec.IsPublic)
	})
}

// TestApplyCommissionData проверяет, что непереданные поля не трогаются.
func TestApplyCommissionData(t *testing.T) {
	rec := models.NewCommission(models.CommissionData{
		Title:  strPtr("Axiom crew portrait"),
		Artist: strPtr("Jane Smith"),
		Cost:   costPtr(120),
	})

	models.ApplyCommissionData(&rec, models.CommissionData{
		Status: strPtr(models.StatusCompleted),
	})

	assert.Equal(t, "Axiom crew portrait", rec.Title)
	assert.Equal(t, "Jane Smith", rec.Artist)
	assert.Equal(t, 120.0, rec.Cost)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

// TestCommissionDataDecoding проверяет терпимость к мусору в JSON:
// разбор никогда не падает, поля приводятся к безопасным значениям.
func TestCommissionDataDecoding(t *testing.T) {
	t.Run("Cost as currency string", func(t *testing.T) {
		var data models.CommissionData
		require.NoError(t, json.Unmarshal([]byte(`{"cost": "$1,200.50"}`), &data))
		require.NotNil(t, data.Cost)
		assert.Equal(t, 1200.50, float64(*data.Cost))
	})

	t.Run("Cost as garbage string becomes zero", func(t *testing.T) {
		var data models.CommissionData
		require.NoError(t, json.Unmarshal([]byte(`{"cost": "free??"}`), &data))
		require.NotNil(t, data.Cost)
		assert.Equal(t, 0.0, float64(*data.Cost))
	})

	t.Run("Cost as negative number becomes zero", func(t *testing.T) {
		var data models.CommissionData
		require.NoError(t, json.Unmarshal([]byte(`{"cost": -25}`), &data))
		require.NotNil(t, data.Cost)
		assert.Equal(t, 0.0, float64(*data.Cost))
	})

	t.Run("Non-string title becomes empty string", func(t *testing.T) {
		var data models.CommissionData
		require.NoError(t, json.Unmarshal([]byte(`{"title": {"nested": true}}`), &data))
		require.NotNil(t, data.Title)
		assert.Equal(t, "", string(*data.Title))

		// Пустая строка при создании превратится в умолчание.
		rec := models.NewCommission(data)
		assert.Equal(t, "Untitled Commission", rec.Title)
	})

	t.Run("Non-bool isPublic defaults to true", func(t *testing.T) {
		var data models.CommissionData
		require.NoError(t, json.Unmarshal([]byte(`{"isPublic": "yes"}`), &data))
		require.NotNil(t, data.IsPublic)
		assert.True(t, bool(*data.IsPublic))
	})

	t.Run("Missing fields stay nil", func(t *testing.T) {
		var data models.CommissionData
		require.NoError(t, json.Unmarshal([]byte(`{}`), &data))
		assert.Nil(t, data.Title)
		assert.Nil(t, data.Cost)
		assert.Nil(t, data.IsPublic)
	})
}

// TestParseCost покрывает разбор стоимости из строк.
func TestParseCost(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"Plain number", "45", 45},
		{"Currency symbol", "$99.99", 99.99},
		{"Thousands separator", "$1,200.50", 1200.50},
		{"Spaces around", "  300  ", 300},
		{"Garbage", "about tree fiddy", 0},
		{"Negative", "-10", 0},
		{"Empty", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, models.ParseCost(tc.raw))
		})
	}
}
