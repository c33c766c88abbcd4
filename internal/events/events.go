// Package events publishes notifications about ledger activity.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmynk/rowflow/internal/models"
)

// RoutingKeyEntryLogged is the routing key of EntryLogged messages.
const RoutingKeyEntryLogged = "entry.logged"

// EntryLogged announces one appended entry. It carries no username.
type EntryLogged struct {
	StorageID   string    `json:"storage_id"`
	Date        string    `json:"date"`
	DistanceKM  *float64  `json:"distance_km"`
	SessionType string    `json:"session_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEntryLogged builds the message for entry appended to storageID.
func NewEntryLogged(storageID string, entry models.Entry) *EntryLogged {
	msg := &EntryLogged{
		StorageID:   storageID,
		Date:        entry.Date,
		SessionType: string(entry.SessionType),
		CreatedAt:   entry.CreatedAt,
	}
	if entry.DistanceKM.Valid {
		km := entry.DistanceKM.Value
		msg.DistanceKM = &km
	}
	return msg
}

// ToJSON converts the message to JSON bytes.
func (m *EntryLogged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryLoggedFromJSON decodes a message.
func EntryLoggedFromJSON(data []byte) (*EntryLogged, error) {
	var msg EntryLogged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Publisher delivers ledger events.
type Publisher interface {
	PublishEntryLogged(ctx context.Context, msg *EntryLogged) error
	Close() error
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishEntryLogged(context.Context, *EntryLogged) error { return nil }
func (Noop) Close() error                                          { return nil }
