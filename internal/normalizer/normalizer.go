// Package normalizer turns raw, user-supplied entry fields into canonical
// training entries.
package normalizer

import (
	"strings"
	"time"

	"github.com/mmynk/rowflow/internal/models"
)

// Normalizer completes raw entries. The zero value uses the wall clock.
type Normalizer struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Normalizer reading the given clock.
func New(now func() time.Time) *Normalizer {
	return &Normalizer{Now: now}
}

var defaultNormalizer = &Normalizer{}

// Normalize normalizes fields using the wall clock.
func Normalize(fields map[string]string) models.Entry {
	return defaultNormalizer.Normalize(fields)
}

// Normalize validates and completes a raw entry. It never fails: every field
// has a fallback.
//
//   - date falls back to today's local date
//   - malformed numbers become absent
//   - a missing speed or duration is derived from the other two values
//   - unknown session types become Other
//   - created_at is always the current UTC second; any supplied value is ignored
func (n *Normalizer) Normalize(fields map[string]string) models.Entry {
	now := n.now()

	date := strings.TrimSpace(fields[models.FieldDate])
	if _, ok := models.ParseDate(date); !ok {
		date = now.Format(models.DateLayout)
	}

	distance := models.ParseMeasure(fields[models.FieldDistanceKM])
	duration := models.ParseMeasure(fields[models.FieldDurationMin])
	speed := models.ParseMeasure(fields[models.FieldSpeedKMH])
	duration, speed = derive(distance, duration, speed)

	return models.Entry{
		Date:        date,
		DistanceKM:  distance.Round2(),
		DurationMin: duration.Round2(),
		SpeedKMH:    speed.Round2(),
		SessionType: models.ParseSessionType(fields[models.FieldSessionType]),
		Notes:       strings.TrimSpace(fields[models.FieldNotes]),
		CreatedAt:   now.UTC().Truncate(time.Second),
	}
}

// derive fills in whichever of duration or speed is missing. At most one
// branch applies, and nothing happens when both are absent.
func derive(distance, duration, speed models.Measure) (models.Measure, models.Measure) {
	switch {
	case !speed.Valid && distance.Valid && duration.Valid && duration.Value > 0:
		speed = models.Some(distance.Value / (duration.Value / 60))
	case !duration.Valid && distance.Valid && speed.Valid && speed.Value > 0:
		duration = models.Some(distance.Value / speed.Value * 60)
	}
	return duration, speed
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}
