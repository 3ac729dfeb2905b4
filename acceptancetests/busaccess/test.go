package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/splitbus/datarecording"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/system"
	"github.com/sarchlab/splitbus/tracing"
	"github.com/sarchlab/splitbus/trafficgen"
)

var seedFlag = flag.Int64("seed", 0, "Random Seed")
var numAccessFlag = flag.Int("num-access",
	10000, "Number of accesses per initiator")
var splitLatencyFlag = flag.Int("split-latency",
	4, "Cycles before the split responder turns its access around")
var traceFileFlag = flag.String("trace", "", "Trace database file")

func setupTest(seed int64) (sim.Engine, []*trafficgen.Agent) {
	engine := sim.NewSerialEngine()

	s := system.MakeBuilder().
		WithEngine(engine).
		WithSplitLatency(*splitLatencyFlag).
		Build("Bus")

	agent1 := trafficgen.MakeBuilder().
		WithEngine(engine).
		WithInitiator(s.Initiator(0)).
		WithTargets(
			trafficgen.Target{DeviceSelect: 0, LowOffset: 0, HighOffset: 0x800},
			trafficgen.Target{DeviceSelect: 2, LowOffset: 0, HighOffset: 0x800},
		).
		WithWriteLeft(*numAccessFlag).
		WithReadLeft(*numAccessFlag).
		WithSeed(seed).
		Build("Agent1")

	agent2 := trafficgen.MakeBuilder().
		WithEngine(engine).
		WithInitiator(s.Initiator(1)).
		WithTargets(
			trafficgen.Target{DeviceSelect: 1, LowOffset: 0, HighOffset: 0x1000},
			trafficgen.Target{DeviceSelect: 2, LowOffset: 0x800, HighOffset: 0x1000},
		).
		WithWriteLeft(*numAccessFlag).
		WithReadLeft(*numAccessFlag).
		WithSeed(seed + 1).
		Build("Agent2")

	if *traceFileFlag != "" {
		recorder := datarecording.NewDataRecorder(*traceFileFlag)
		tracer := tracing.NewDBTracer(engine, recorder)

		for i := 0; i < s.InitiatorCount(); i++ {
			tracing.CollectTrace(s.Initiator(i), tracer)
		}

		for d := 0; d < s.ResponderCount(); d++ {
			tracing.CollectTrace(s.Responder(uint8(d)), tracer)
		}
	}

	return engine, []*trafficgen.Agent{agent1, agent2}
}

func main() {
	flag.Parse()

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fmt.Fprintf(os.Stderr, "Seed %d\n", seed)

	engine, agents := setupTest(seed)

	for _, agent := range agents {
		agent.TickLater()
	}

	err := engine.Run()
	if err != nil {
		panic(err)
	}

	for _, agent := range agents {
		if !agent.Done() {
			panic("not all accesses resolved")
		}
	}

	atexit.Exit(0)
}
