package bus

import "time"

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Event types published by the decision loop and the simulator.
const (
	TypeTick       = "bot.tick"
	TypeCalibrated = "bot.calibrated"
	TypeHeat       = "bot.heat"
	TypeHit        = "sim.hit"
	TypePickup     = "sim.pickup"
	TypeBomb       = "sim.bomb"
)

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Delivery is synchronous: Publish runs handlers in the caller goroutine,
// in subscription order, exact-type handlers before wildcard ones. Handler
// errors (and panics) are joined and returned from Publish. Handlers should
// be quick or hand work off to their own goroutine.
type EventBus interface {
	// Publish delivers the event to every active subscriber of event.Type()
	// and to wildcard subscribers.
	Publish(event Event) error
	// Subscribe registers a handler for an event type, or Wildcard.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is a no-op.
	Unsubscribe(Subscription) error
	// Stats returns delivery counters.
	Stats() Stats
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

// EventHandler is invoked once per delivered event.
type EventHandler func(event Event) error

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Stats are cumulative counters since the bus was created.
type Stats struct {
	Published   uint64
	Deliveries  uint64
	Errors      uint64
	Subscribers int
}
