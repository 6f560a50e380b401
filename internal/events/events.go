package events

import (
	"context"
	"sync"
	"time"

	"coachsite/internal/model"

	"github.com/rs/zerolog"
)

const (
	TypeBookingCreated    = "booking.created"
	TypeContactCreated    = "contact.created"
	TypeSubscriberCreated = "subscriber.created"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   any
	CreatedAt time.Time
}

// Booking returns the payload of a booking.created event.
func (e Event) Booking() (model.Booking, bool) {
	b, ok := e.Payload.(model.Booking)
	return b, ok
}

// Contact returns the payload of a contact.created event.
func (e Event) Contact() (model.ContactMessage, bool) {
	m, ok := e.Payload.(model.ContactMessage)
	return m, ok
}

// Subscriber returns the payload of a subscriber.created event.
func (e Event) Subscriber() (model.NewsletterSubscriber, bool) {
	s, ok := e.Payload.(model.NewsletterSubscriber)
	return s, ok
}

// Handler reacts to an event.
type Handler func(ctx context.Context, event Event) error

// Publisher is the publishing side of the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus constructs an empty bus.
func NewBus(logger *zerolog.Logger) *Bus {
	return &Bus{subscribers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every handler of the event type synchronously. Handler errors are logged and
// never returned.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil && b.logger != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
