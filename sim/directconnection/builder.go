package directconnection

import "github.com/sarchlab/splitbus/sim"

// Builder can build direct connections.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq: 1 * sim.GHz,
	}
}

// WithEngine sets the engine that the connection uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency that the connection forwards messages.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// Build creates a connection with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		portMap: make(map[sim.RemotePort]sim.Port),
	}

	c.TickingComponent = sim.NewSecondaryTickingComponent(
		name, b.engine, b.freq, c)
	c.AddMiddleware(&middleware{Comp: c})

	return c
}
