// Package api defines the rowflow.v1 request and response messages.
// Messages travel as JSON over the Connect protocol; see package apiconnect.
package api

// Account is the public view of a registered user.
type Account struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Account   *Account `json:"account"`
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Account   *Account `json:"account"`
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
}

// Entry is a training entry in its persisted text form: numbers carry two
// decimals and absent values are empty strings.
type Entry struct {
	Date        string `json:"date"`
	DistanceKM  string `json:"distance_km"`
	DurationMin string `json:"duration_min"`
	SpeedKMH    string `json:"speed_kmh"`
	SessionType string `json:"session_type"`
	Notes       string `json:"notes"`
	CreatedAt   string `json:"created_at"`
}

// LogEntryRequest carries raw, unvalidated form values. Any field may be
// blank or malformed; the server normalizes them.
type LogEntryRequest struct {
	Date        string `json:"date"`
	DistanceKM  string `json:"distance_km"`
	DurationMin string `json:"duration_min"`
	SpeedKMH    string `json:"speed_kmh"`
	SessionType string `json:"session_type"`
	Notes       string `json:"notes"`
}

type LogEntryResponse struct {
	Entry *Entry `json:"entry"`
}

type ListEntriesRequest struct{}

type ListEntriesResponse struct {
	Rows []*Entry `json:"rows"`
}

// YearRequest selects a calendar year. Zero means the current year.
type YearRequest struct {
	Year int `json:"year"`
}

type GetYearlyTableRequest = YearRequest

type DayTotal struct {
	Date string  `json:"date"`
	KM   float64 `json:"km"`
}

type GetYearlyTableResponse struct {
	Year         int         `json:"year"`
	DailyMileage []*DayTotal `json:"daily_mileage"`
	Cumulative   []*DayTotal `json:"cumulative"`
	SkippedRows  int         `json:"skipped_rows"`
}

type GetMonthlyTotalsRequest = YearRequest

type GetMonthlyTotalsResponse struct {
	Year int `json:"year"`
	// Totals maps month ("01".."12") to session type to kilometres.
	Totals       map[string]map[string]float64 `json:"totals"`
	SessionTypes []string                      `json:"session_types"`
}

type ArchiveLogRequest struct{}

type ArchiveLogResponse struct {
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	Entries int    `json:"entries"`
}
