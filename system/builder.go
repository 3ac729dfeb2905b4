package system

import (
	"github.com/sarchlab/splitbus/arbiter"
	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/initiator"
	"github.com/sarchlab/splitbus/responder"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/sim/directconnection"
	"github.com/sarchlab/splitbus/storage"
)

// Builder can build systems. The topology is fixed: two initiators in
// priority order, responder A at device select 0 with 2 KB, responder B at
// device select 1 with 4 KB, and the split-capable responder C at device
// select 2 with 4 KB.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	splitLatency int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:         1 * sim.GHz,
		splitLatency: 4,
	}
}

// WithEngine sets the engine that drives all the components.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of all the components.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithSplitLatency sets the device latency, in cycles, of the
// split-capable responder.
func (b Builder) WithSplitLatency(latency int) Builder {
	b.splitLatency = latency
	return b
}

// Build creates a system with the given name.
func (b Builder) Build(name string) *System {
	s := &System{Engine: b.engine}

	initiatorNames := []string{
		name + ".Initiator1",
		name + ".Initiator2",
	}

	s.buildAddressMap(name)
	s.buildArbiter(b, name, initiatorNames)
	s.buildInitiators(b, initiatorNames)
	s.buildResponders(b, name)
	s.buildController(b, name)
	s.connectComponents(b, name)

	return s
}

func (s *System) buildAddressMap(name string) {
	s.addrMap = bus.NewAddressMap()
	s.addrMap.AddEntry(bus.MapEntry{
		DeviceSelect: 0,
		Size:         2 * storage.KB,
		Port:         sim.RemotePort(name + ".RespA.Top"),
	})
	s.addrMap.AddEntry(bus.MapEntry{
		DeviceSelect: 1,
		Size:         4 * storage.KB,
		Port:         sim.RemotePort(name + ".RespB.Top"),
	})
	s.addrMap.AddEntry(bus.MapEntry{
		DeviceSelect: 2,
		Size:         4 * storage.KB,
		SplitCapable: true,
		Port:         sim.RemotePort(name + ".RespC.Top"),
	})
}

func (s *System) buildArbiter(
	b Builder,
	name string,
	initiatorNames []string,
) {
	priority := make([]sim.RemotePort, 0, len(initiatorNames))
	for _, initName := range initiatorNames {
		priority = append(priority, sim.RemotePort(initName+".Arb"))
	}

	s.arbiter = arbiter.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithAddressMap(s.addrMap).
		WithInitiators(priority...).
		Build(name + ".Arbiter")
}

func (s *System) buildInitiators(b Builder, initiatorNames []string) {
	arbReq := s.arbiter.GetPortByName("Req").AsRemote()

	for _, initName := range initiatorNames {
		i := initiator.MakeBuilder().
			WithEngine(b.engine).
			WithFreq(b.freq).
			WithAddressMap(s.addrMap).
			WithArbiterPort(arbReq).
			Build(initName)
		s.initiators = append(s.initiators, i)
	}
}

func (s *System) buildResponders(b Builder, name string) {
	arbReq := s.arbiter.GetPortByName("Req").AsRemote()

	respA := responder.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithArbiterPort(arbReq).
		WithNewStorage(2 * storage.KB).
		Build(name + ".RespA")

	respB := responder.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithArbiterPort(arbReq).
		WithNewStorage(4 * storage.KB).
		Build(name + ".RespB")

	respC := responder.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithArbiterPort(arbReq).
		WithNewStorage(4 * storage.KB).
		WithLatency(b.splitLatency).
		WithSplitCapable(true).
		Build(name + ".RespC")

	s.responders = append(s.responders, respA, respB, respC)
}

func (s *System) buildController(b Builder, name string) {
	targets := []sim.RemotePort{
		s.arbiter.GetPortByName("Ctrl").AsRemote(),
	}

	for _, i := range s.initiators {
		targets = append(targets, i.GetPortByName("Ctrl").AsRemote())
	}

	for _, r := range s.responders {
		targets = append(targets, r.GetPortByName("Ctrl").AsRemote())
	}

	s.controller = buildController(
		name+".Controller", b.engine, b.freq, targets)
}

func (s *System) connectComponents(b Builder, name string) {
	s.conn = directconnection.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		Build(name + ".Conn")

	s.conn.PlugIn(s.arbiter.GetPortByName("Req"))
	s.conn.PlugIn(s.arbiter.GetPortByName("Ctrl"))
	s.conn.PlugIn(s.controller.ctrlPort)

	for _, i := range s.initiators {
		s.conn.PlugIn(i.GetPortByName("Arb"))
		s.conn.PlugIn(i.GetPortByName("Data"))
		s.conn.PlugIn(i.GetPortByName("Ctrl"))
	}

	for _, r := range s.responders {
		s.conn.PlugIn(r.GetPortByName("Top"))
		s.conn.PlugIn(r.GetPortByName("Arb"))
		s.conn.PlugIn(r.GetPortByName("Ctrl"))
	}
}
