package responder

import (
	"github.com/sarchlab/splitbus/pipelining"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/storage"
)

// Builder can build responders.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	arbiterPort  sim.RemotePort
	capacity     uint64
	storage      *storage.Storage
	latency      int
	splitCapable bool
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:     1 * sim.GHz,
		capacity: 4 * storage.KB,
	}
}

// WithEngine sets the engine that drives the responder.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the responder.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithArbiterPort sets the request port of the arbiter that owns the bus.
func (b Builder) WithArbiterPort(port sim.RemotePort) Builder {
	b.arbiterPort = port
	return b
}

// WithNewStorage sets the capacity of the backing store to create.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage sets the backing store of the responder.
func (b Builder) WithStorage(s *storage.Storage) Builder {
	b.storage = s
	return b
}

// WithLatency sets the device latency in cycles. A responder with a
// non-zero latency must also be split capable.
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithSplitCapable marks the responder as allowed to defer completion.
func (b Builder) WithSplitCapable(splitCapable bool) Builder {
	b.splitCapable = splitCapable
	return b
}

// Build creates a responder with the given name.
func (b Builder) Build(name string) *Comp {
	if b.arbiterPort == "" {
		panic("responder requires the arbiter port")
	}

	if b.latency > 0 && !b.splitCapable {
		panic("a responder with access latency must be split capable")
	}

	c := &Comp{
		arbiterPort:  b.arbiterPort,
		latency:      b.latency,
		splitCapable: b.splitCapable,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	if b.storage == nil {
		c.storage = storage.NewStorage(b.capacity)
	} else {
		c.storage = b.storage
	}

	c.topPort = sim.NewPort(c, 4, 4, name+".Top")
	c.AddPort("Top", c.topPort)

	c.arbPort = sim.NewPort(c, 4, 4, name+".Arb")
	c.AddPort("Arb", c.arbPort)

	c.ctrlPort = sim.NewPort(c, 4, 4, name+".Ctrl")
	c.AddPort("Ctrl", c.ctrlPort)

	c.postPipelineBuf = sim.NewBuffer(name+".PostPipelineBuf", 1)
	c.pipeline = pipelining.MakeBuilder().
		WithNumStage(b.latency).
		WithCyclePerStage(1).
		WithPostPipelineBuffer(c.postPipelineBuf).
		Build(name + ".Pipeline")

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
