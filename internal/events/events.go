package events

import (
	"sync"
	"time"

	"testdrive/internal/models"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReservationEventPayload describes the reservation snapshot for event consumers.
type ReservationEventPayload struct {
	ID            int64     `json:"id"`
	ReservationID string    `json:"reservation_id"`
	VehicleID     int64     `json:"vehicle_id"`
	VehicleType   string    `json:"vehicle_type"`
	Location      string    `json:"location"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	CustomerEmail string    `json:"customer_email"`
}

// NewReservationEventPayload copies the fields consumers care about.
func NewReservationEventPayload(r *models.Reservation) ReservationEventPayload {
	return ReservationEventPayload{
		ID:            r.ID,
		ReservationID: r.ReservationID,
		VehicleID:     r.VehicleID,
		VehicleType:   r.VehicleType,
		Location:      r.Location,
		StartAt:       r.StartAt,
		EndAt:         r.EndAt,
		CustomerEmail: r.CustomerEmail,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into dst.
func (e *Event) Decode(dst interface{}) error {
	return json.Unmarshal(e.Payload, dst)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// ErrorHandler receives handler failures. Publish never fails because of a subscriber.
type ErrorHandler func(event *Event, err error)

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     ErrorHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets the callback for failing handlers.
func (b *EventBus) OnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = h
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
