// Package directconnection connects a group of ports without latency.
package directconnection

import (
	"fmt"

	"github.com/sarchlab/splitbus/sim"
)

// Comp is a connection that delivers a message in the cycle after it is
// sent. Its ticks are secondary events, so all the components that send at
// cycle T complete their updates before any message is moved, and the
// receivers see the messages at cycle T+1.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	nextPortID int
	ports      []sim.Port
	portMap    map[sim.RemotePort]sim.Port
}

// PlugIn marks the port as connected to this connection.
func (c *Comp) PlugIn(port sim.Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.portMap[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug removes the port from this connection.
func (c *Comp) Unplug(_ sim.Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the port can receive
// messages again.
func (c *Comp) NotifyAvailable(p sim.Port) {
	for _, port := range c.ports {
		if port == p {
			continue
		}

		port.NotifyAvailable()
	}

	c.TickNow()
}

// NotifySend is called by a port to notify that messages are waiting to be
// delivered.
func (c *Comp) NotifySend() {
	c.TickNow()
}

// Tick updates the state of the connection.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

type middleware struct {
	*Comp
}

// Tick delivers messages from the outgoing buffers of the plugged ports to
// the incoming buffers of their destinations.
func (m *middleware) Tick() bool {
	madeProgress := false

	for i := 0; i < len(m.ports); i++ {
		portID := (i + m.nextPortID) % len(m.ports)
		port := m.ports[portID]
		madeProgress = m.forwardMany(port) || madeProgress
	}

	m.nextPortID = (m.nextPortID + 1) % len(m.ports)

	return madeProgress
}

func (m *middleware) forwardMany(port sim.Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dst := m.destinationPort(head)
		err := dst.Deliver(head)
		if err != nil {
			break
		}

		madeProgress = true
		port.RetrieveOutgoing()
	}

	return madeProgress
}

func (m *middleware) destinationPort(msg sim.Msg) sim.Port {
	dst := msg.Meta().Dst

	port, found := m.portMap[dst]
	if !found {
		panic(fmt.Sprintf(
			"%s: destination %s is not plugged in", m.Name(), dst))
	}

	return port
}
