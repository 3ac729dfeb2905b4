// Package arbiter provides the component that grants bus ownership.
package arbiter

import (
	"log"
	"reflect"

	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/sim"
)

// State is the observable arbitration state.
type State int

// The states of the arbiter. SplitPending is reported only while the bus is
// otherwise free; a split association retained while another initiator holds
// a grant reports as Granted.
const (
	StateIdle State = iota
	StateGranted
	StateSplitPending
	StateSplitResume
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateGranted:
		return "Granted"
	case StateSplitPending:
		return "SplitPending"
	case StateSplitResume:
		return "SplitResume"
	}

	return "Invalid"
}

// A splitAssoc records one parked transaction: which initiator must receive
// the deferred result, and which responder holds it. An association has no
// deadline; it is retained until the responder signals ready or a reset
// clears it.
type splitAssoc struct {
	initiatorArb  sim.RemotePort
	initiatorData sim.RemotePort
	responderArb  sim.RemotePort
	responderData sim.RemotePort
	ready         bool
}

// Comp is the bus arbiter. It is the single writer of the bus-ownership
// token: each tick it grants the bus to at most one initiator, servicing a
// pending split resume before any fresh request, and otherwise following
// the fixed priority order of the initiators.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	reqPort  sim.Port
	ctrlPort sim.Port

	addrMap  *bus.AddressMap
	priority []sim.RemotePort

	owner       sim.RemotePort
	resuming    bool
	pendingReqs map[sim.RemotePort]*bus.RequestBusMsg
	splitAssocs []*splitAssoc
}

// Tick advances the arbiter by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// State reports the current arbitration state.
func (c *Comp) State() State {
	switch {
	case c.owner != "" && c.resuming:
		return StateSplitResume
	case c.owner != "":
		return StateGranted
	case len(c.splitAssocs) > 0:
		return StateSplitPending
	default:
		return StateIdle
	}
}

// Owner returns the arb port of the initiator that holds the bus, or the
// empty string when the bus is free.
func (c *Comp) Owner() sim.RemotePort {
	return c.owner
}

// PendingRequestCount returns the number of buffered bus requests that have
// not been granted yet.
func (c *Comp) PendingRequestCount() int {
	return len(c.pendingReqs)
}

// ParkedTransactionCount returns the number of split associations the
// arbiter retains.
func (c *Comp) ParkedTransactionCount() int {
	return len(c.splitAssocs)
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	madeProgress := false

	madeProgress = m.processCtrl() || madeProgress
	madeProgress = m.processIncoming() || madeProgress
	madeProgress = m.grant() || madeProgress

	return madeProgress
}

func (m *middleware) processCtrl() bool {
	msg := m.ctrlPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	ctrl, ok := msg.(*bus.ControlMsg)
	if !ok {
		log.Panicf("cannot handle ctrl msg of type %s", reflect.TypeOf(msg))
	}

	if ctrl.Reset {
		m.doReset()
	}

	return true
}

func (m *middleware) doReset() {
	m.owner = ""
	m.resuming = false
	m.pendingReqs = make(map[sim.RemotePort]*bus.RequestBusMsg)
	m.splitAssocs = nil

	for m.reqPort.RetrieveIncoming() != nil {
	}
}

func (m *middleware) processIncoming() bool {
	madeProgress := false

	for {
		msg := m.reqPort.RetrieveIncoming()
		if msg == nil {
			return madeProgress
		}

		switch msg := msg.(type) {
		case *bus.RequestBusMsg:
			m.bufferRequest(msg)
		case *bus.ReleaseBusMsg:
			m.release(msg)
		case *bus.SplitNoticeMsg:
			m.recordSplit(msg)
		case *bus.SplitReadyMsg:
			m.markReady(msg)
		default:
			log.Panicf("cannot handle msg of type %s", reflect.TypeOf(msg))
		}

		madeProgress = true
	}
}

func (m *middleware) bufferRequest(msg *bus.RequestBusMsg) {
	src := msg.Meta().Src

	if _, ok := m.pendingReqs[src]; ok {
		log.Panicf("initiator %s requested the bus twice", src)
	}

	m.pendingReqs[src] = msg
}

// release frees the bus. A release from a port that does not own the bus is
// left over from an abandoned transaction and is dropped.
func (m *middleware) release(msg *bus.ReleaseBusMsg) {
	if msg.Meta().Src != m.owner {
		return
	}

	m.owner = ""
	m.resuming = false
}

// recordSplit frees the bus and retains the initiator-responder association
// until the responder signals ready. A notice arriving while no grant is
// active is left over from an abandoned transaction and is dropped.
func (m *middleware) recordSplit(msg *bus.SplitNoticeMsg) {
	if m.owner == "" {
		return
	}

	assoc := &splitAssoc{
		initiatorArb:  m.owner,
		initiatorData: msg.Initiator,
		responderArb:  msg.Meta().Src,
		responderData: msg.Responder,
	}
	m.splitAssocs = append(m.splitAssocs, assoc)

	m.owner = ""
	m.resuming = false
}

func (m *middleware) markReady(msg *bus.SplitReadyMsg) {
	for _, assoc := range m.splitAssocs {
		if assoc.responderData == msg.Responder {
			assoc.ready = true
			return
		}
	}
}

// grant decides bus ownership for the next cycle. A ready split resume is
// serviced before any fresh request; fresh requests are served in fixed
// priority order, skipping initiators whose target responder has a parked
// transaction.
func (m *middleware) grant() bool {
	if m.owner != "" {
		return false
	}

	if m.resumeReadySplit() {
		return true
	}

	return m.grantByPriority()
}

func (m *middleware) resumeReadySplit() bool {
	for i, assoc := range m.splitAssocs {
		if !assoc.ready {
			continue
		}

		resume := bus.ResumeGrantMsgBuilder{}.
			WithSrc(m.reqPort.AsRemote()).
			WithDst(assoc.responderArb).
			WithInitiator(assoc.initiatorData).
			Build()

		err := m.reqPort.Send(resume)
		if err != nil {
			return false
		}

		m.owner = assoc.initiatorArb
		m.resuming = true
		m.splitAssocs = append(m.splitAssocs[:i], m.splitAssocs[i+1:]...)

		return true
	}

	return false
}

func (m *middleware) grantByPriority() bool {
	for _, initiator := range m.priority {
		req, ok := m.pendingReqs[initiator]
		if !ok {
			continue
		}

		entry, valid := m.addrMap.Decode(req.Addr)
		if !valid {
			log.Panicf("bus request from %s targets an unmapped address %s",
				initiator, req.Addr)
		}

		if m.responderParked(entry.Port) {
			continue
		}

		grantMsg := bus.GrantMsgBuilder{}.
			WithSrc(m.reqPort.AsRemote()).
			WithDst(initiator).
			Build()

		err := m.reqPort.Send(grantMsg)
		if err != nil {
			return false
		}

		m.owner = initiator
		m.resuming = false
		delete(m.pendingReqs, initiator)

		return true
	}

	return false
}

func (m *middleware) responderParked(responderData sim.RemotePort) bool {
	for _, assoc := range m.splitAssocs {
		if assoc.responderData == responderData {
			return true
		}
	}

	return false
}
