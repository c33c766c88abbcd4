package models

import (
	"math"
	"strconv"
	"strings"
)

// Measure is an optional non-negative quantity such as a distance in
// kilometres or a duration in minutes.
//
// The zero value is absent.
type Measure struct {
	// Value is the quantity. Meaningless when Valid is false.
	Value float64

	// Valid reports whether the quantity is present.
	Valid bool
}

// Some returns a present Measure holding v.
func Some(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

// ParseMeasure parses s as a non-negative real number.
// Blank, unparseable, non-finite and negative inputs yield an absent Measure.
func ParseMeasure(s string) Measure {
	s = strings.TrimSpace(s)
	if s == "" {
		return Measure{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Measure{}
	}
	return Some(v)
}

// Round2 returns the measure rounded to two decimal places.
func (m Measure) Round2() Measure {
	if !m.Valid {
		return m
	}
	return Some(Round2(m.Value))
}

// Or returns the value, or def when the measure is absent.
func (m Measure) Or(def float64) float64 {
	if !m.Valid {
		return def
	}
	return m.Value
}

// String renders the measure with two decimals, or "" when absent.
func (m Measure) String() string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', 2, 64)
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
