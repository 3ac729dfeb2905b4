package arbiter

import (
	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/sim"
)

// Builder can build arbiters.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	addrMap    *bus.AddressMap
	initiators []sim.RemotePort
	reqBufSize int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:       1 * sim.GHz,
		reqBufSize: 8,
	}
}

// WithEngine sets the engine that drives the arbiter.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the arbiter.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithAddressMap sets the address map the arbiter uses to locate the target
// responder of each bus request.
func (b Builder) WithAddressMap(addrMap *bus.AddressMap) Builder {
	b.addrMap = addrMap
	return b
}

// WithInitiators sets the arb ports of the initiators, highest priority
// first. The order is fixed for the lifetime of the arbiter.
func (b Builder) WithInitiators(ports ...sim.RemotePort) Builder {
	b.initiators = ports
	return b
}

// WithReqBufSize sets the capacity of the request port buffers.
func (b Builder) WithReqBufSize(size int) Builder {
	b.reqBufSize = size
	return b
}

// Build creates an arbiter with the given name.
func (b Builder) Build(name string) *Comp {
	if b.addrMap == nil {
		panic("arbiter requires an address map")
	}

	if len(b.initiators) == 0 {
		panic("arbiter requires at least one initiator")
	}

	c := &Comp{
		addrMap:     b.addrMap,
		priority:    b.initiators,
		pendingReqs: make(map[sim.RemotePort]*bus.RequestBusMsg),
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.reqPort = sim.NewPort(c, b.reqBufSize, b.reqBufSize, name+".Req")
	c.AddPort("Req", c.reqPort)

	c.ctrlPort = sim.NewPort(c, 4, 4, name+".Ctrl")
	c.AddPort("Ctrl", c.ctrlPort)

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
