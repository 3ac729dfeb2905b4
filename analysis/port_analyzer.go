package analysis

import (
	"math"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/splitbus/sim"
)

type portAnalyzerEntry struct {
	remotePort     sim.RemotePort
	OutTrafficByte int64
	OutTrafficMsg  int64
	InTrafficByte  int64
	InTrafficMsg   int64
}

// portTrafficRsp describes the traffic between a port and one remote port in
// the current sampling period.
type portTrafficRsp struct {
	Port         string `json:"port"`
	Remote       string `json:"remote"`
	IncomingByte int64  `json:"incoming_byte"`
	IncomingMsg  int64  `json:"incoming_msg"`
	OutgoingByte int64  `json:"outgoing_byte"`
	OutgoingMsg  int64  `json:"outgoing_msg"`
}

// PortAnalyzer is a hook that measures the amount of traffic that passes
// through a Port.
type PortAnalyzer struct {
	PerfLogger
	sim.TimeTeller

	usePeriod bool
	period    sim.VTimeInSec
	port      sim.Port

	lastTime           sim.VTimeInSec
	remoteToTrafficMap map[sim.RemotePort]portAnalyzerEntry
}

// Func records the message that passes through the port. Retrieving from the
// port buffers is ignored so that each message is counted once.
func (h *PortAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos == sim.HookPosPortMsgRetrieveIncoming ||
		ctx.Pos == sim.HookPosPortMsgRetrieveOutgoing {
		return
	}

	msg, ok := ctx.Item.(sim.Msg)
	if !ok {
		return
	}

	now := h.CurrentTime()

	if h.usePeriod {
		lastPeriodEndTime := h.periodEndTime(h.lastTime)
		if now > lastPeriodEndTime {
			h.summarize()
		}
	}

	if h.remoteToTrafficMap == nil {
		h.remoteToTrafficMap = make(map[sim.RemotePort]portAnalyzerEntry)
	}

	remotePortName := msg.Meta().Dst
	if h.isIncoming(msg) {
		remotePortName = msg.Meta().Src
	}

	entry, ok := h.remoteToTrafficMap[remotePortName]
	if !ok {
		entry = portAnalyzerEntry{remotePort: remotePortName}
	}

	if h.isIncoming(msg) {
		entry.InTrafficByte += int64(msg.Meta().TrafficBytes)
		entry.InTrafficMsg++
	} else {
		entry.OutTrafficByte += int64(msg.Meta().TrafficBytes)
		entry.OutTrafficMsg++
	}

	h.remoteToTrafficMap[remotePortName] = entry

	h.lastTime = now
}

func (h *PortAnalyzer) isIncoming(msg sim.Msg) bool {
	return msg.Meta().Dst == h.port.AsRemote()
}

func (h *PortAnalyzer) summarize() {
	now := h.CurrentTime()

	startTime := sim.VTimeInSec(0)
	endTime := now

	if h.usePeriod {
		startTime = h.periodStartTime(h.lastTime)
		endTime = h.periodEndTime(h.lastTime)

		if endTime > now {
			endTime = now
		}
	}

	for _, entry := range h.remoteToTrafficMap {
		perfEntry := PerfAnalyzerEntry{
			Start:       startTime,
			End:         endTime,
			Where:       h.port.Name(),
			WhereRemote: entry.remotePort,
			EntryType:   "Traffic",
		}

		if entry.InTrafficMsg != 0 {
			perfEntry.What = "Incoming"
			perfEntry.Value = float64(entry.InTrafficByte)
			perfEntry.Unit = "Byte"
			h.PerfLogger.AddDataEntry(perfEntry)

			perfEntry.Value = float64(entry.InTrafficMsg)
			perfEntry.Unit = "Msg"
			h.PerfLogger.AddDataEntry(perfEntry)
		}

		if entry.OutTrafficMsg != 0 {
			perfEntry.What = "Outgoing"

			perfEntry.Value = float64(entry.OutTrafficByte)
			perfEntry.Unit = "Byte"
			h.PerfLogger.AddDataEntry(perfEntry)

			perfEntry.Value = float64(entry.OutTrafficMsg)
			perfEntry.Unit = "Msg"
			h.PerfLogger.AddDataEntry(perfEntry)
		}
	}

	h.remoteToTrafficMap = make(map[sim.RemotePort]portAnalyzerEntry)
}

func (h *PortAnalyzer) currentTraffic() []portTrafficRsp {
	rsps := make([]portTrafficRsp, 0, len(h.remoteToTrafficMap))

	for _, entry := range h.remoteToTrafficMap {
		rsps = append(rsps, portTrafficRsp{
			Port:         h.port.Name(),
			Remote:       string(entry.remotePort),
			IncomingByte: entry.InTrafficByte,
			IncomingMsg:  entry.InTrafficMsg,
			OutgoingByte: entry.OutTrafficByte,
			OutgoingMsg:  entry.OutTrafficMsg,
		})
	}

	return rsps
}

func (h *PortAnalyzer) periodStartTime(t sim.VTimeInSec) sim.VTimeInSec {
	return sim.VTimeInSec(math.Floor(float64(t/h.period))) * h.period
}

func (h *PortAnalyzer) periodEndTime(t sim.VTimeInSec) sim.VTimeInSec {
	return h.periodStartTime(t) + h.period
}

// PortAnalyzerBuilder can build a PortAnalyzer.
type PortAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller sim.TimeTeller
	usePeriod  bool
	period     sim.VTimeInSec
	port       sim.Port
}

// MakePortAnalyzerBuilder creates a PortAnalyzerBuilder.
func MakePortAnalyzerBuilder() PortAnalyzerBuilder {
	return PortAnalyzerBuilder{}
}

// WithPerfLogger sets the logger to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithPerfLogger(l PerfLogger) PortAnalyzerBuilder {
	b.perfLogger = l
	return b
}

// WithTimeTeller sets the TimeTeller to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithTimeTeller(
	t sim.TimeTeller,
) PortAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod sets the period to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithPeriod(
	p sim.VTimeInSec,
) PortAnalyzerBuilder {
	b.usePeriod = true
	b.period = p

	return b
}

// WithPort sets the port to be analyzed.
func (b PortAnalyzerBuilder) WithPort(p sim.Port) PortAnalyzerBuilder {
	b.port = p
	return b
}

// Build creates a PortAnalyzer.
func (b PortAnalyzerBuilder) Build() *PortAnalyzer {
	if b.perfLogger == nil {
		panic("PortAnalyzer requires a PerfLogger")
	}

	if b.timeTeller == nil {
		panic("PortAnalyzer requires a TimeTeller")
	}

	if b.port == nil {
		panic("PortAnalyzer requires a Port")
	}

	a := &PortAnalyzer{
		PerfLogger: b.perfLogger,
		TimeTeller: b.timeTeller,
		usePeriod:  b.usePeriod,
		period:     b.period,
		port:       b.port,
	}

	atexit.Register(func() { a.summarize() })

	return a
}
