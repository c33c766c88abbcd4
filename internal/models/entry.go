package models

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for Entry.Date.
const DateLayout = "2006-01-02"

// TimestampLayout is the format of Entry.CreatedAt and Account.CreatedAt
// when persisted.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Field names of a persisted entry, in column order.
const (
	FieldDate        = "date"
	FieldDistanceKM  = "distance_km"
	FieldDurationMin = "duration_min"
	FieldSpeedKMH    = "speed_kmh"
	FieldSessionType = "session_type"
	FieldNotes       = "notes"
	FieldCreatedAt   = "created_at"
)

// EntryColumns is the header row of a partition.
var EntryColumns = []string{
	FieldDate,
	FieldDistanceKM,
	FieldDurationMin,
	FieldSpeedKMH,
	FieldSessionType,
	FieldNotes,
	FieldCreatedAt,
}

// Entry represents one recorded training session.
// Entries are immutable once appended to a partition.
type Entry struct {
	// Date is the calendar day of the session (YYYY-MM-DD).
	// Entries produced by the normalizer always carry a valid date;
	// entries read back from storage carry whatever was persisted.
	Date string

	// DistanceKM is the distance rowed in kilometres.
	DistanceKM Measure

	// DurationMin is the session length in minutes.
	DurationMin Measure

	// SpeedKMH is the average speed in kilometres per hour.
	SpeedKMH Measure

	// SessionType is the kind of session.
	SessionType SessionType

	// Notes is free text attached to the session.
	Notes string

	// CreatedAt is the UTC time the entry was written, at second precision.
	// Zero when a stored row carried an unreadable timestamp.
	CreatedAt time.Time
}

// ParseDate parses s as a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseTimestamp parses a persisted created_at value.
// Unreadable input yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// FormatTimestamp renders t in TimestampLayout, or "" for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// Fields returns the entry as a column name to value map.
func (e Entry) Fields() map[string]string {
	rec := e.Record()
	fields := make(map[string]string, len(rec))
	for i, name := range EntryColumns {
		fields[name] = rec[i]
	}
	return fields
}

// Record returns the entry's values in EntryColumns order.
func (e Entry) Record() []string {
	return []string{
		e.Date,
		e.DistanceKM.String(),
		e.DurationMin.String(),
		e.SpeedKMH.String(),
		string(e.SessionType),
		e.Notes,
		FormatTimestamp(e.CreatedAt),
	}
}

// EntryFromFields rebuilds a stored entry from its column values.
// Missing or malformed values become absent; nothing is derived.
func EntryFromFields(fields map[string]string) Entry {
	return Entry{
		Date:        strings.TrimSpace(fields[FieldDate]),
		DistanceKM:  ParseMeasure(fields[FieldDistanceKM]),
		DurationMin: ParseMeasure(fields[FieldDurationMin]),
		SpeedKMH:    ParseMeasure(fields[FieldSpeedKMH]),
		SessionType: ParseSessionType(fields[FieldSessionType]),
		Notes:       strings.TrimSpace(fields[FieldNotes]),
		CreatedAt:   ParseTimestamp(fields[FieldCreatedAt]),
	}
}
