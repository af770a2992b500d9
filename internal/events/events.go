package events

import (
	"sync"
	"time"
)

const (
	TypeAppointmentAction  = "appointment.action"
	TypeRescheduleDecision = "reschedule.decision"
	TypeListRefreshed      = "appointment.list_refreshed"
)

// Event describes something a user did to an appointment or request.
type Event struct {
	Type          string
	AccountID     int64
	AppointmentID int64
	RequestID     int64
	Action        string
	Err           error
	CreatedAt     time.Time
}

// Succeeded reports whether the underlying operation completed.
func (e Event) Succeeded() bool {
	return e.Err == nil
}

type Handler func(event Event)

// Bus is an in-process pub/sub for UI events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs the handlers for the event type synchronously. A nil bus
// drops the event.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	for _, h := range handlers {
		h(event)
	}
}
