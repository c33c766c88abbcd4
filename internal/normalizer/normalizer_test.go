package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rowflow/internal/models"
)

var fixedNow = time.Date(2024, 6, 15, 9, 45, 12, 987654321, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(func() time.Time { return fixedNow })
}

func TestNormalize_Derivation(t *testing.T) {
	tests := []struct {
		name         string
		fields       map[string]string
		wantDuration string
		wantSpeed    string
	}{
		{
			name:         "speed from distance and duration",
			fields:       map[string]string{"distance_km": "10", "duration_min": "60"},
			wantDuration: "60.00",
			wantSpeed:    "10.00",
		},
		{
			name:         "duration from distance and speed",
			fields:       map[string]string{"distance_km": "10", "speed_kmh": "20"},
			wantDuration: "30.00",
			wantSpeed:    "20.00",
		},
		{
			name:         "both supplied are kept",
			fields:       map[string]string{"distance_km": "10", "duration_min": "60", "speed_kmh": "12"},
			wantDuration: "60.00",
			wantSpeed:    "12.00",
		},
		{
			name:         "both absent stay absent",
			fields:       map[string]string{"distance_km": "10"},
			wantDuration: "",
			wantSpeed:    "",
		},
		{
			name:         "zero duration derives nothing",
			fields:       map[string]string{"distance_km": "10", "duration_min": "0"},
			wantDuration: "0.00",
			wantSpeed:    "",
		},
		{
			name:         "zero speed derives nothing",
			fields:       map[string]string{"distance_km": "10", "speed_kmh": "0"},
			wantDuration: "",
			wantSpeed:    "0.00",
		},
		{
			name:         "no distance derives nothing",
			fields:       map[string]string{"duration_min": "45"},
			wantDuration: "45.00",
			wantSpeed:    "",
		},
		{
			name:         "unparseable distance is absent",
			fields:       map[string]string{"distance_km": "far", "duration_min": "60"},
			wantDuration: "60.00",
			wantSpeed:    "",
		},
		{
			name:         "derived value is rounded",
			fields:       map[string]string{"distance_km": "7", "duration_min": "33"},
			wantDuration: "33.00",
			wantSpeed:    "12.73",
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := n.Normalize(tt.fields)
			assert.Equal(t, tt.wantDuration, e.DurationMin.String())
			assert.Equal(t, tt.wantSpeed, e.SpeedKMH.String())
		})
	}
}

func TestNormalize_Date(t *testing.T) {
	n := newTestNormalizer()

	for _, in := range []string{"", "  ", "yesterday", "2024-13-01", "15/06/2024"} {
		t.Run("fallback "+in, func(t *testing.T) {
			e := n.Normalize(map[string]string{"date": in})
			assert.Equal(t, "2024-06-15", e.Date)
		})
	}

	e := n.Normalize(map[string]string{"date": " 2023-12-31 "})
	assert.Equal(t, "2023-12-31", e.Date)
}

func TestNormalize_SessionTypeAndNotes(t *testing.T) {
	n := newTestNormalizer()

	e := n.Normalize(map[string]string{"session_type": "Kayak", "notes": "  windy  "})
	assert.Equal(t, models.SessionOther, e.SessionType)
	assert.Equal(t, "windy", e.Notes)

	e = n.Normalize(map[string]string{"session_type": " Strength "})
	assert.Equal(t, models.SessionStrength, e.SessionType)

	e = n.Normalize(nil)
	assert.Equal(t, models.SessionOther, e.SessionType)
}

func TestNormalize_CreatedAtIgnoresClient(t *testing.T) {
	n := newTestNormalizer()

	e := n.Normalize(map[string]string{"created_at": "1999-01-01T00:00:00Z"})
	require.Equal(t, time.Date(2024, 6, 15, 9, 45, 12, 0, time.UTC), e.CreatedAt)
	assert.Equal(t, "2024-06-15T09:45:12Z", e.Record()[6])
}

func TestNormalize_WallClock(t *testing.T) {
	before := time.Now().UTC().Truncate(time.Second)
	e := Normalize(map[string]string{"distance_km": "5"})
	after := time.Now().UTC()

	assert.False(t, e.CreatedAt.Before(before))
	assert.False(t, e.CreatedAt.After(after))
	_, ok := models.ParseDate(e.Date)
	assert.True(t, ok)
}
