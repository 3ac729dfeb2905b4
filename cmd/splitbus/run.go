package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/splitbus/analysis"
	"github.com/sarchlab/splitbus/monitoring"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/simulation"
	"github.com/sarchlab/splitbus/system"
	"github.com/sarchlab/splitbus/tracing"
	"github.com/sarchlab/splitbus/trafficgen"
)

const defaultDashboardPort = 3001

var runFlags struct {
	writes       int
	reads        int
	seed         int64
	splitLatency int
	output       string

	monitor     bool
	monitorPort int
	dashboard   bool

	perfPeriod float64
	traceVis   bool
	logEvents  bool
	logMsgs    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a random-traffic workload on the bus.",
	Long: `Run drives each of the two initiators with a seeded random ` +
		`sequence of writes and reads. Reads only visit addresses written ` +
		`before and every read result is checked. The command fails if an ` +
		`access resolves with the wrong data or never resolves at all.`,
	Run: func(cmd *cobra.Command, _ []string) {
		applyEnvDefaults(cmd)
		runWorkload()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runFlags.writes, "writes", 1000,
		"Number of writes per initiator")
	runCmd.Flags().IntVar(&runFlags.reads, "reads", 1000,
		"Number of reads per initiator")
	runCmd.Flags().Int64Var(&runFlags.seed, "seed", 0,
		"Random seed, 0 picks one from the clock")
	runCmd.Flags().IntVar(&runFlags.splitLatency, "split-latency", 4,
		"Cycles before the split responder turns its access around")
	runCmd.Flags().StringVar(&runFlags.output, "output", "",
		"Name of the output database, without extension")

	runCmd.Flags().BoolVar(&runFlags.monitor, "monitor", true,
		"Serve the monitoring API while the workload runs")
	runCmd.Flags().IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"Port of the monitoring server, 0 picks a random port")
	runCmd.Flags().BoolVar(&runFlags.dashboard, "dashboard", false,
		"Open the monitoring page in a browser")

	runCmd.Flags().Float64Var(&runFlags.perfPeriod, "perf-period", 0,
		"Report port traffic every given number of seconds, 0 disables")
	runCmd.Flags().BoolVar(&runFlags.traceVis, "trace-vis", false,
		"Record transaction tasks into the output database")
	runCmd.Flags().BoolVar(&runFlags.logEvents, "log-events", false,
		"Log every event to stderr")
	runCmd.Flags().BoolVar(&runFlags.logMsgs, "log-msgs", false,
		"Log every port message to stderr")
}

// applyEnvDefaults fills flags the user did not set from the environment,
// typically loaded from a .env file.
func applyEnvDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("output") {
		if v := os.Getenv("SPLITBUS_OUTPUT"); v != "" {
			runFlags.output = v
		}
	}

	if !cmd.Flags().Changed("monitor-port") {
		if v := os.Getenv("SPLITBUS_MONITOR_PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				log.Fatalf("SPLITBUS_MONITOR_PORT: %s", err)
			}
			runFlags.monitorPort = port
		}
	}
}

func runWorkload() {
	if !runFlags.monitor && (runFlags.dashboard || runFlags.monitorPort != 0) {
		log.Fatal("--dashboard and --monitor-port require --monitor")
	}

	if runFlags.dashboard && runFlags.monitorPort == 0 {
		runFlags.monitorPort = defaultDashboardPort
	}

	s := buildSimulation()
	busSystem := buildSystem(s)
	agents := buildAgents(s, busSystem)

	setupPerfAnalyzer(s, busSystem)
	setupVisTracing(s, busSystem)
	setupLogging(s, busSystem)
	openDashboard()

	runAndVerify(s, busSystem, agents)

	s.Terminate()
	atexit.Exit(0)
}

func buildSimulation() *simulation.Simulation {
	builder := simulation.MakeBuilder()

	if !runFlags.monitor {
		builder = builder.WithoutMonitoring()
	}

	if runFlags.monitorPort != 0 {
		builder = builder.WithMonitorPort(runFlags.monitorPort)
	}

	if runFlags.output != "" {
		builder = builder.WithOutputFileName(runFlags.output)
	}

	return builder.Build()
}

func buildSystem(s *simulation.Simulation) *system.System {
	busSystem := system.MakeBuilder().
		WithEngine(s.GetEngine()).
		WithSplitLatency(runFlags.splitLatency).
		Build("Bus")

	for _, c := range busSystem.Components() {
		s.RegisterComponent(c)
	}

	return busSystem
}

func buildAgents(
	s *simulation.Simulation,
	busSystem *system.System,
) []*trafficgen.Agent {
	seed := runFlags.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	fmt.Fprintf(os.Stderr, "Seed %d\n", seed)

	// The agents share the split responder but on disjoint halves, so the
	// read-back checks stay valid.
	agent1 := trafficgen.MakeBuilder().
		WithEngine(s.GetEngine()).
		WithInitiator(busSystem.Initiator(0)).
		WithTargets(
			trafficgen.Target{DeviceSelect: 0, LowOffset: 0, HighOffset: 0x800},
			trafficgen.Target{DeviceSelect: 2, LowOffset: 0, HighOffset: 0x800},
		).
		WithWriteLeft(runFlags.writes).
		WithReadLeft(runFlags.reads).
		WithSeed(seed).
		Build("Agent1")

	agent2 := trafficgen.MakeBuilder().
		WithEngine(s.GetEngine()).
		WithInitiator(busSystem.Initiator(1)).
		WithTargets(
			trafficgen.Target{DeviceSelect: 1, LowOffset: 0, HighOffset: 0x1000},
			trafficgen.Target{DeviceSelect: 2, LowOffset: 0x800, HighOffset: 0x1000},
		).
		WithWriteLeft(runFlags.writes).
		WithReadLeft(runFlags.reads).
		WithSeed(seed + 1).
		Build("Agent2")

	agents := []*trafficgen.Agent{agent1, agent2}
	for _, a := range agents {
		s.RegisterComponent(a)
		a.TickLater()
	}

	return agents
}

func setupPerfAnalyzer(s *simulation.Simulation, busSystem *system.System) {
	if runFlags.perfPeriod <= 0 {
		return
	}

	builder := analysis.MakePerfAnalyzerBuilder().
		WithSQLiteBackend().
		WithPeriod(sim.VTimeInSec(runFlags.perfPeriod))

	if runFlags.output != "" {
		builder = builder.WithDBFilename(runFlags.output + "_perf")
	}

	perfAnalyzer := builder.Build()
	perfAnalyzer.RegisterEngine(s.GetEngine())

	for _, c := range busSystem.Components() {
		perfAnalyzer.RegisterComponent(c)
	}

	if monitor := s.GetMonitor(); monitor != nil {
		monitor.RegisterPerfAnalyzer(perfAnalyzer)
	}
}

func setupVisTracing(s *simulation.Simulation, busSystem *system.System) {
	if !runFlags.traceVis {
		return
	}

	tracer := s.GetVisTracer()

	tracing.CollectTrace(busSystem.Arbiter(), tracer)

	for i := 0; i < busSystem.InitiatorCount(); i++ {
		tracing.CollectTrace(busSystem.Initiator(i), tracer)
	}

	for d := 0; d < busSystem.ResponderCount(); d++ {
		tracing.CollectTrace(busSystem.Responder(uint8(d)), tracer)
	}
}

func setupLogging(s *simulation.Simulation, busSystem *system.System) {
	if runFlags.logEvents {
		logger := log.New(os.Stderr, "", 0)
		s.GetEngine().AcceptHook(sim.NewEventLogger(logger))
	}

	if runFlags.logMsgs {
		logger := log.New(os.Stderr, "", 0)
		hook := sim.NewPortMsgLogger(logger, s.GetEngine())

		for _, c := range busSystem.Components() {
			for _, p := range c.Ports() {
				p.AcceptHook(hook)
			}
		}
	}
}

func openDashboard() {
	if !runFlags.dashboard {
		return
	}

	url := fmt.Sprintf("http://localhost:%d", runFlags.monitorPort)
	if err := browser.OpenURL(url); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
	}
}

func runAndVerify(
	s *simulation.Simulation,
	busSystem *system.System,
	agents []*trafficgen.Agent,
) {
	totalAccesses := uint64(len(agents)) *
		uint64(runFlags.writes+runFlags.reads)

	stopProgress := reportProgress(s.GetMonitor(), agents, totalAccesses)

	start := time.Now()

	err := busSystem.Run()
	if err != nil {
		panic(err)
	}

	stopProgress()

	for _, a := range agents {
		if !a.Done() {
			log.Panicf("agent %s still has accesses in flight", a.Name())
		}
	}

	fmt.Printf("%d accesses completed in %.9f virtual seconds (%.3fs)\n",
		totalAccesses, busSystem.Engine.CurrentTime(),
		time.Since(start).Seconds())
}

// reportProgress samples the remaining access counts into a progress bar
// while the engine runs. The returned function stops the sampling and
// removes the bar.
func reportProgress(
	monitor *monitoring.Monitor,
	agents []*trafficgen.Agent,
	total uint64,
) func() {
	if monitor == nil {
		return func() {}
	}

	bar := monitor.CreateProgressBar("Bus accesses", total)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		reported := uint64(0)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				finished := total - remainingAccesses(agents)
				if finished > reported {
					bar.IncrementFinished(finished - reported)
					reported = finished
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		monitor.CompleteProgressBar(bar)
	}
}

func remainingAccesses(agents []*trafficgen.Agent) uint64 {
	remaining := uint64(0)
	for _, a := range agents {
		remaining += uint64(a.WriteLeft + a.ReadLeft)
	}

	return remaining
}
