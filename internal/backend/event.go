// Package backend connects the meter to the native backend that produces
// encounter snapshots.
package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verte-zerg/tuimeter/internal/model"
)

// Push event names.
const (
	EventEncounterUpdate = "encounter-update"
	EventPhaseTransition = "phase-transition"
	EventZoneChange      = "zone-change"
	EventRaidStart       = "raid-start"
	EventResetEncounter  = "reset-encounter"
	EventPauseEncounter  = "pause-encounter"
	EventSaveEncounter   = "save-encounter"
	EventAdmin           = "admin"
)

// Event is a push notification from the backend.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encounter decodes the payload of an encounter-update event.
func (e Event) Encounter() (*model.Encounter, error) {
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("failed to decode %s: empty payload", e.Name)
	}
	var enc model.Encounter
	if err := json.Unmarshal(e.Payload, &enc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", e.Name, err)
	}
	return &enc, nil
}

// Text returns a string payload, or an empty string.
func (e Event) Text() string {
	var s string
	if err := json.Unmarshal(e.Payload, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(e.Payload, &n); err == nil {
		return n.String()
	}
	return ""
}

// Source delivers backend events until Run returns.
type Source interface {
	Run(ctx context.Context) error
	Events() <-chan Event
}
