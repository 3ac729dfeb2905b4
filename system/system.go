// Package system assembles the shared-bus interconnect: the initiators,
// the responders, the arbiter, and the connection that carries every
// message between them.
package system

import (
	"github.com/sarchlab/splitbus/arbiter"
	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/initiator"
	"github.com/sarchlab/splitbus/responder"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/sim/directconnection"
)

// A System is a fully wired shared-bus interconnect. Clients reach the bus
// through the initiators; everything else is internal.
type System struct {
	Engine sim.Engine

	addrMap    *bus.AddressMap
	arbiter    *arbiter.Comp
	initiators []*initiator.Comp
	responders []*responder.Comp
	controller *controllerComp
	conn       *directconnection.Comp
}

// Initiator returns an initiator by its index. Index 0 has the highest
// bus priority.
func (s *System) Initiator(i int) *initiator.Comp {
	return s.initiators[i]
}

// InitiatorCount returns the number of initiators on the bus.
func (s *System) InitiatorCount() int {
	return len(s.initiators)
}

// Responder returns the responder that serves the given device select.
func (s *System) Responder(deviceSelect uint8) *responder.Comp {
	return s.responders[deviceSelect]
}

// ResponderCount returns the number of responders on the bus.
func (s *System) ResponderCount() int {
	return len(s.responders)
}

// Arbiter returns the bus arbiter.
func (s *System) Arbiter() *arbiter.Comp {
	return s.arbiter
}

// AddressMap returns the address map shared by all the components.
func (s *System) AddressMap() *bus.AddressMap {
	return s.addrMap
}

// Components returns every component of the system.
func (s *System) Components() []sim.Component {
	comps := []sim.Component{s.arbiter, s.controller, s.conn}

	for _, i := range s.initiators {
		comps = append(comps, i)
	}

	for _, r := range s.responders {
		comps = append(comps, r)
	}

	return comps
}

// Run processes events until every component settles.
func (s *System) Run() error {
	return s.Engine.Run()
}

// Reset returns every state machine to idle and drops all in-flight
// transactions. Backing stores survive; use ClearStorage to wipe them.
// The broadcast goes out twice: a request in flight across the first pass
// can re-park a split-capable responder, and the second pass clears it.
func (s *System) Reset() error {
	s.controller.RequestReset()

	err := s.Engine.Run()
	if err != nil {
		return err
	}

	s.controller.RequestReset()

	return s.Engine.Run()
}

// ClearStorage zeroes the backing store of every responder.
func (s *System) ClearStorage() {
	for _, r := range s.responders {
		r.Storage().Clear()
	}
}
