package sim

// TimeTeller tells the current virtual time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler schedules future events.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler runs after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine drives a discrete event simulation.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes all scheduled events until no event is left.
	Run() error

	// Pause suspends event processing until Continue is called.
	Pause()

	// Continue resumes a paused simulation.
	Continue()

	// RegisterSimulationEndHandler registers a handler to run when the
	// simulation finishes.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandlers.
	Finished()
}
