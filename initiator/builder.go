package initiator

import (
	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/sim"
)

// Builder can build initiators.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	addrMap     *bus.AddressMap
	arbiterPort sim.RemotePort
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq: 1 * sim.GHz,
	}
}

// WithEngine sets the engine that drives the initiator.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the initiator.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithAddressMap sets the address map used to locate the target responder
// of each transaction.
func (b Builder) WithAddressMap(addrMap *bus.AddressMap) Builder {
	b.addrMap = addrMap
	return b
}

// WithArbiterPort sets the request port of the arbiter that owns the bus.
func (b Builder) WithArbiterPort(port sim.RemotePort) Builder {
	b.arbiterPort = port
	return b
}

// Build creates an initiator with the given name.
func (b Builder) Build(name string) *Comp {
	if b.addrMap == nil {
		panic("initiator requires an address map")
	}

	if b.arbiterPort == "" {
		panic("initiator requires the arbiter port")
	}

	c := &Comp{
		addrMap:     b.addrMap,
		arbiterPort: b.arbiterPort,
		completed:   make(map[TransactionHandle]Result),
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.arbPort = sim.NewPort(c, 4, 4, name+".Arb")
	c.AddPort("Arb", c.arbPort)

	c.dataPort = sim.NewPort(c, 4, 4, name+".Data")
	c.AddPort("Data", c.dataPort)

	c.ctrlPort = sim.NewPort(c, 4, 4, name+".Ctrl")
	c.AddPort("Ctrl", c.ctrlPort)

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
