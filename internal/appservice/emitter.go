package appservice

import (
	"context"
	"sync"
)

// Events emitted after successful mutations.
const (
	EventAppCreated = "app.created"
	EventAppUpdated = "app.updated"
	EventAppDeleted = "app.deleted"
)

// AppEvent is the payload of every app.* event.
type AppEvent struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Emitter receives domain events. The SSE broker implements it; services
// depend on this interface so they can be tested without a broker.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// MockEmitter records every emission for test assertions.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}
