package models

import "strings"

// SessionType is the kind of training session.
type SessionType string

const (
	SessionWater         SessionType = "Water"
	SessionErg           SessionType = "Erg"
	SessionCrossTraining SessionType = "Cross-Training"
	SessionStrength      SessionType = "Strength"
	SessionOther         SessionType = "Other"
)

// SessionTypes lists every session type in display order.
var SessionTypes = []SessionType{
	SessionWater,
	SessionErg,
	SessionCrossTraining,
	SessionStrength,
	SessionOther,
}

// ParseSessionType trims s and maps it onto the closed set of session types.
// Matching is case-sensitive; anything unrecognized becomes SessionOther.
func ParseSessionType(s string) SessionType {
	t := SessionType(strings.TrimSpace(s))
	if t.Valid() {
		return t
	}
	return SessionOther
}

// Valid reports whether t is one of SessionTypes.
func (t SessionType) Valid() bool {
	switch t {
	case SessionWater, SessionErg, SessionCrossTraining, SessionStrength, SessionOther:
		return true
	}
	return false
}
