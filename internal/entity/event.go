package entity

import (
	"encoding/json"
	"time"

	"restaurant-platform/internal/apperr"
)

// Change-feed event types.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent is the wire format published for every row mutation and
// consumed by the realtime reconciliation layer. Delivery is
// at-least-once; CommitTimestamp lets consumers discard duplicates.
type ChangeEvent struct {
	Type            string          `json:"type"`
	Table           string          `json:"table"`
	Row             json.RawMessage `json:"row"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// ParseChangeEvent decodes and validates a raw change-feed payload.
func ParseChangeEvent(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, apperr.Validationf("malformed change event: %v", err)
	}
	switch ev.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return nil, apperr.Validationf("unknown change event type %q", ev.Type)
	}
	if ev.CommitTimestamp.IsZero() {
		return nil, apperr.Validationf("change event missing commit timestamp")
	}
	return &ev, nil
}
