// Package proto defines the typed event envelope exchanged between agents
// over the in-process bus.
package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of agent event.
type EventType string

const (
	EventTaskCompleted EventType = "task_completed" // Task agent -> analytics agent
	EventTaskCreated   EventType = "task_created"
	EventEventCreated  EventType = "event_created" // Calendar event landed on the schedule
	EventEmailSent     EventType = "email_sent"
	EventNoteCreated   EventType = "note_created"
)

// Common payload keys used in agent events.
const (
	KeyActorID     = "actor_id"
	KeyTaskID      = "task_id"
	KeyEventID     = "event_id"
	KeyEmailID     = "email_id"
	KeyNoteID      = "note_id"
	KeyCompletedAt = "completed_at"
	KeyTitle       = "title"
)

// Event is the envelope for one agent-to-agent notification.
// FromAgent and ToAgent hold registry names; ToAgent may be empty for
// broadcast events.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	FromAgent string         `json:"from_agent"`
	ToAgent   string         `json:"to_agent,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID and timestamp.
func NewEvent(eventType EventType, fromAgent, toAgent string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		FromAgent: fromAgent,
		ToAgent:   toAgent,
		Payload:   make(map[string]any),
		Timestamp: time.Now().UTC(),
	}
}

// SetPayload sets a payload value, initializing the map if needed.
func (e *Event) SetPayload(key string, value any) {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
}

// GetPayload returns a payload value and whether it was present.
func (e *Event) GetPayload(key string) (any, bool) {
	if e.Payload == nil {
		return nil, false
	}
	value, ok := e.Payload[key]
	return value, ok
}

// GetPayloadString returns a payload value as a string, or "" when absent
// or not a string.
func (e *Event) GetPayloadString(key string) string {
	value, ok := e.GetPayload(key)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// ToJSON serializes the event for logging and persistence.
func (e *Event) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
	}
	return data, nil
}

// FromJSON deserializes an event.
func (e *Event) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, e); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return nil
}

func (e *Event) String() string {
	return fmt.Sprintf("Event[%s] %s: %s -> %s", e.ID, e.Type, e.FromAgent, e.ToAgent)
}
