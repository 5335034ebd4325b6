// Package events publishes visualization and ingestion events.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeDataLoaded        = "data.loaded"
	TypeDataFailed        = "data.failed"
	TypeDataEmpty         = "data.empty"
	TypeViewSwitched      = "view.switched"
	TypePlaybackCompleted = "playback.completed"
	TypeStoreIngested     = "store.ingested"
)

// Event is the JSON body of every published message.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Scenario  string    `json:"scenario,omitempty"`
	View      string    `json:"view,omitempty"`
	Count     int       `json:"count,omitempty"`
	Message   string    `json:"message,omitempty"`
	Synthetic bool      `json:"synthetic,omitempty"`
	At        time.Time `json:"at"`
}

// New stamps an event with an id and the current time.
func New(eventType string) Event {
	return Event{ID: uuid.NewString(), Type: eventType, At: time.Now().UTC()}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Memory keeps published events for inspection.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types lists the published event types in order.
func (m *Memory) Types() []string {
	evs := m.Events()
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
