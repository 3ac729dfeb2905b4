package system

import (
	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/sim"
)

// controllerComp broadcasts control messages to every component of the
// system. It is the source of the reset signal.
type controllerComp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	ctrlPort sim.Port
	targets  []sim.RemotePort
	pending  []sim.Msg
}

func (c *controllerComp) Tick() bool {
	c.Lock()
	defer c.Unlock()

	return c.MiddlewareHolder.Tick()
}

// RequestReset queues a reset broadcast to every control port.
func (c *controllerComp) RequestReset() {
	c.Lock()
	defer c.Unlock()

	for _, target := range c.targets {
		msg := bus.ControlMsgBuilder{}.
			WithSrc(c.ctrlPort.AsRemote()).
			WithDst(target).
			WithReset(true).
			Build()
		c.pending = append(c.pending, msg)
	}

	c.TickLater()
}

type controllerMiddleware struct {
	*controllerComp
}

func (m *controllerMiddleware) Tick() bool {
	madeProgress := false

	for len(m.pending) > 0 {
		err := m.ctrlPort.Send(m.pending[0])
		if err != nil {
			break
		}

		m.pending = m.pending[1:]
		madeProgress = true
	}

	return madeProgress
}

func buildController(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	targets []sim.RemotePort,
) *controllerComp {
	c := &controllerComp{targets: targets}

	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	c.ctrlPort = sim.NewPort(c, 4, len(targets)+2, name+".Ctrl")
	c.AddPort("Ctrl", c.ctrlPort)

	c.AddMiddleware(&controllerMiddleware{controllerComp: c})

	return c
}
