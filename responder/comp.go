// Package responder provides the component that serves bus transactions
// from a private backing store.
package responder

import (
	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/pipelining"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/storage"
)

// State is the serving state of a responder.
type State int

// The states of a responder. A responder without access latency never
// leaves Idle for more than the serving cycle; the split states are only
// reachable on a split-capable responder.
const (
	StateIdle State = iota
	StateServing
	StateSplitWaiting
	StateSplitReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateServing:
		return "Serving"
	case StateSplitWaiting:
		return "SplitWaiting"
	case StateSplitReady:
		return "SplitReady"
	}

	return "Invalid"
}

// Comp serves read and write requests against its own storage. A request
// that needs device latency is deferred: the bus is released through a
// split notice and the result is delivered later, after the arbiter
// re-grants the bus for the resume.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	topPort  sim.Port
	arbPort  sim.Port
	ctrlPort sim.Port

	arbiterPort  sim.RemotePort
	storage      *storage.Storage
	latency      int
	splitCapable bool

	pipeline        pipelining.Pipeline
	postPipelineBuf sim.Buffer

	state      State
	parked     bus.AccessReq
	finalRsp   sim.Msg
	pendingRsp sim.Msg
}

// Tick advances the responder by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// State reports the current state of the responder.
func (c *Comp) State() State {
	return c.state
}

// Storage returns the backing store of the responder.
func (c *Comp) Storage() *storage.Storage {
	return c.storage
}

// SplitCapable tells whether the responder may defer completion.
func (c *Comp) SplitCapable() bool {
	return c.splitCapable
}

type splitTask struct {
	req bus.AccessReq
}

func (t splitTask) TaskID() string {
	return t.req.Meta().ID
}
