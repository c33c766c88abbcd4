package calculator

import (
	"fmt"
	"time"

	"github.com/mmynk/rowflow/internal/models"
)

// DayTotal is the distance rowed on one calendar day.
type DayTotal struct {
	Date string  // YYYY-MM-DD
	KM   float64 // Sum of distances on that day
}

// CumulativePoint is the running distance total up to and including Date.
type CumulativePoint struct {
	Date string
	KM   float64 // Rounded to 2 decimals
}

// MonthlyTotals maps month ("01".."12") to session type to kilometres.
type MonthlyTotals map[string]map[models.SessionType]float64

// Summary bundles every view of one year.
type Summary struct {
	Year       int
	Daily      []DayTotal
	Monthly    MonthlyTotals
	Cumulative []CumulativePoint

	// Skipped is the number of rows whose date could not be parsed.
	Skipped int
}

// DailyMileage sums distance per calendar day of year.
//
// The result is gap-filled: it has one point for every day from Jan 1 to
// Dec 31 (365 or 366 points) in ascending order, with 0 for days without
// entries. Rows dated outside year, or whose date does not parse, are
// ignored. An absent distance counts as 0.
func DailyMileage(rows []models.Entry, year int) []DayTotal {
	daily, _ := dailyMileage(rows, year)
	return daily
}

func dailyMileage(rows []models.Entry, year int) ([]DayTotal, int) {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := daysIn(year)

	perDay := make([]float64, days)
	skipped := 0
	for _, row := range rows {
		d, ok := models.ParseDate(row.Date)
		if !ok {
			skipped++
			continue
		}
		if d.Year() != year {
			continue
		}
		perDay[d.YearDay()-1] += row.DistanceKM.Or(0)
	}

	daily := make([]DayTotal, days)
	for i := range daily {
		daily[i] = DayTotal{
			Date: first.AddDate(0, 0, i).Format(models.DateLayout),
			KM:   perDay[i],
		}
	}
	return daily, skipped
}

// MonthlyTotalsByType sums distance per month and session type for year.
//
// The grid always holds all 12 months and all session types, zero-filled.
// Unknown session types count as Other and an absent distance counts as 0.
func MonthlyTotalsByType(rows []models.Entry, year int) MonthlyTotals {
	totals := make(MonthlyTotals, 12)
	for m := 1; m <= 12; m++ {
		cells := make(map[models.SessionType]float64, len(models.SessionTypes))
		for _, t := range models.SessionTypes {
			cells[t] = 0
		}
		totals[MonthKey(time.Month(m))] = cells
	}

	for _, row := range rows {
		d, ok := models.ParseDate(row.Date)
		if !ok || d.Year() != year {
			continue
		}
		t := models.ParseSessionType(string(row.SessionType))
		totals[MonthKey(d.Month())][t] += row.DistanceKM.Or(0)
	}
	return totals
}

// CumulativeMileage walks daily in the order given and returns the running
// total at each point. The totals never decrease for non-negative input.
func CumulativeMileage(daily []DayTotal) []CumulativePoint {
	points := make([]CumulativePoint, len(daily))
	total := 0.0
	for i, day := range daily {
		total += day.KM
		points[i] = CumulativePoint{Date: day.Date, KM: models.Round2(total)}
	}
	return points
}

// Summarize computes every view of year and counts undatable rows.
func Summarize(rows []models.Entry, year int) Summary {
	daily, skipped := dailyMileage(rows, year)
	return Summary{
		Year:       year,
		Daily:      daily,
		Monthly:    MonthlyTotalsByType(rows, year),
		Cumulative: CumulativeMileage(daily),
		Skipped:    skipped,
	}
}

// Total returns the sum of all cells.
func (m MonthlyTotals) Total() float64 {
	total := 0.0
	for _, cells := range m {
		for _, km := range cells {
			total += km
		}
	}
	return total
}

// MonthKey formats m as a two-digit month key.
func MonthKey(m time.Month) string {
	return fmt.Sprintf("%02d", int(m))
}

func daysIn(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
