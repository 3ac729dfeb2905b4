package sim

// VTimeInSec is virtual time in the simulated world, in seconds.
type VTimeInSec float64

// An Event is something that is scheduled to happen at a future virtual time.
type Event interface {
	// Time returns the virtual time at which the event happens.
	Time() VTimeInSec

	// Handler returns the handler that handles the event.
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. At a given time,
	// secondary events run after all the primary events at the same time are
	// handled.
	IsSecondary() bool
}

// EventBase carries the fields shared by all events.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler
	e.secondary = false
	return e
}

// Time returns the time that the event is scheduled at.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler that handles the event.
//
// A component can only schedule events for itself. The handler of an event
// is therefore the component that scheduled it, with the exception of the
// kick-start events that set a simulation in motion.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler handles events. One event type always belongs to one handler and
// handling an event can only directly mutate that handler's state.
type Handler interface {
	Handle(e Event) error
}
