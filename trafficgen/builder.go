package trafficgen

import (
	"math/rand"

	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/initiator"
	"github.com/sarchlab/splitbus/sim"
)

// Builder can build traffic agents.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	initiator *initiator.Comp
	targets   []Target
	writeLeft int
	readLeft  int
	seed      int64
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:      1 * sim.GHz,
		writeLeft: 1000,
		readLeft:  1000,
	}
}

// WithEngine sets the engine the agent runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency the agent submits and polls at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithInitiator sets the initiator the agent drives.
func (b Builder) WithInitiator(i *initiator.Comp) Builder {
	b.initiator = i
	return b
}

// WithTargets sets the address ranges the agent may access.
func (b Builder) WithTargets(targets ...Target) Builder {
	b.targets = targets
	return b
}

// WithWriteLeft sets the number of writes the agent generates.
func (b Builder) WithWriteLeft(n int) Builder {
	b.writeLeft = n
	return b
}

// WithReadLeft sets the number of reads the agent generates.
func (b Builder) WithReadLeft(n int) Builder {
	b.readLeft = n
	return b
}

// WithSeed sets the seed of the random sequence, making the generated
// traffic reproducible.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// Build creates an agent with the given name.
func (b Builder) Build(name string) *Agent {
	if b.initiator == nil {
		panic("traffic agent requires an initiator")
	}

	if len(b.targets) == 0 {
		panic("traffic agent requires at least one target")
	}

	for _, t := range b.targets {
		if t.HighOffset <= t.LowOffset {
			panic("traffic agent target range is empty")
		}
	}

	a := &Agent{
		WriteLeft:   b.writeLeft,
		ReadLeft:    b.readLeft,
		initiator:   b.initiator,
		targets:     b.targets,
		rand:        rand.New(rand.NewSource(b.seed)),
		knownValues: make(map[bus.Address]byte),
	}
	a.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, a)

	return a
}
