package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/splitbus/sim"
)

type sampleMsg struct {
	sim.MsgMeta
}

func (m *sampleMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

func (m *sampleMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

var _ = Describe("Port Analyzer", func() {
	var (
		mockCtrl *gomock.Controller

		port         *MockPort
		incomingPort *MockPort
		outgoingPort *MockPort
		timeTeller   *MockTimeTeller
		portLogger   *MockPerfLogger
		portAnalyzer *PortAnalyzer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		port = NewMockPort(mockCtrl)
		port.EXPECT().Name().Return("PortName").AnyTimes()
		port.EXPECT().AsRemote().
			Return(sim.RemotePort("PortName")).
			AnyTimes()

		incomingPort = NewMockPort(mockCtrl)
		incomingPort.EXPECT().Name().Return("IncomingPort").AnyTimes()
		incomingPort.EXPECT().AsRemote().
			Return(sim.RemotePort("IncomingPort")).
			AnyTimes()

		outgoingPort = NewMockPort(mockCtrl)
		outgoingPort.EXPECT().Name().Return("OutgoingPort").AnyTimes()
		outgoingPort.EXPECT().AsRemote().
			Return(sim.RemotePort("OutgoingPort")).
			AnyTimes()

		timeTeller = NewMockTimeTeller(mockCtrl)
		portLogger = NewMockPerfLogger(mockCtrl)

		portAnalyzer = MakePortAnalyzerBuilder().
			WithPerfLogger(portLogger).
			WithTimeTeller(timeTeller).
			WithPeriod(1).
			WithPort(port).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should log period traffic", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(0.1))
		portAnalyzer.Func(sim.HookCtx{
			Item:   msg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(1.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Item:   msg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})
	})

	It("should log traffic if only a middle period has value", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Dst:          port.AsRemote(),
				Src:          incomingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(20.5)).
			Times(2)
		portAnalyzer.Func(sim.HookCtx{
			Item:   msg,
			Domain: port,
			Pos:    sim.HookPosPortMsgRecvd,
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       20.0,
			End:         21.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       20.0,
			End:         21.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(26.5)).
			AnyTimes()
		portAnalyzer.summarize()
	})

	It("should log incoming and outgoing traffic", func() {
		outMsg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}
		inMsg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 10000,
				Dst:          port.AsRemote(),
				Src:          incomingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(0.1)).
			Times(2)
		portAnalyzer.Func(sim.HookCtx{
			Item:   outMsg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})
		portAnalyzer.Func(sim.HookCtx{
			Item:   inMsg,
			Domain: port,
			Pos:    sim.HookPosPortMsgRecvd,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(1.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       10000.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Item:   outMsg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})
	})

	It("should log period traffic when there is a gap period", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(0.1))
		portAnalyzer.Func(sim.HookCtx{
			Item:   msg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(3.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Item:   msg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})
	})

	It("should log period traffic when simulation ends", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(0.1))

		portAnalyzer.Func(sim.HookCtx{
			Item:   msg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(3.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Item:   msg,
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       3.0,
			End:         3.1,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       3.0,
			End:         3.1,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.summarize()
	})
})
