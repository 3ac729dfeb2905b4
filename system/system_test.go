package system

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/splitbus/arbiter"
	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/initiator"
	"github.com/sarchlab/splitbus/responder"
	"github.com/sarchlab/splitbus/sim"
)

func isDriving(s initiator.State) bool {
	switch s {
	case initiator.StateDrivingAddress,
		initiator.StateTransferringData,
		initiator.StateAwaitingData:
		return true
	default:
		return false
	}
}

// busProbe samples the system after every event. It records each change of
// bus ownership, the largest number of initiators that were driving the bus
// at the same instant, and whether the bus ever served one initiator while
// another was parked for a split resume.
type busProbe struct {
	system *System

	ownerHistory      []sim.RemotePort
	maxDriving        int
	servedWhileParked bool
}

func (p *busProbe) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	owner := p.system.Arbiter().Owner()
	if len(p.ownerHistory) == 0 ||
		p.ownerHistory[len(p.ownerHistory)-1] != owner {
		p.ownerHistory = append(p.ownerHistory, owner)
	}

	driving := 0
	parked := 0

	for i := 0; i < p.system.InitiatorCount(); i++ {
		state := p.system.Initiator(i).State()

		if isDriving(state) {
			driving++
		}

		if state == initiator.StateAwaitingSplitResume {
			parked++
		}
	}

	if driving > p.maxDriving {
		p.maxDriving = driving
	}

	if driving > 0 && parked > 0 {
		p.servedWhileParked = true
	}
}

// grants returns the sequence of initiators that held the bus, in order.
func (p *busProbe) grants() []sim.RemotePort {
	grants := make([]sim.RemotePort, 0, len(p.ownerHistory))

	for _, owner := range p.ownerHistory {
		if owner != "" {
			grants = append(grants, owner)
		}
	}

	return grants
}

// resetTrigger broadcasts a reset the first time an initiator parks for a
// split resume, so that the reset lands while a transaction is in flight.
type resetTrigger struct {
	system *System
	fired  bool
}

func (t *resetTrigger) Func(ctx sim.HookCtx) {
	if t.fired || ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	for i := 0; i < t.system.InitiatorCount(); i++ {
		if t.system.Initiator(i).State() ==
			initiator.StateAwaitingSplitResume {
			t.system.controller.RequestReset()
			t.fired = true

			return
		}
	}
}

var _ = Describe("System", func() {
	var (
		engine sim.Engine
		s      *System
		probe  *busProbe
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		s = MakeBuilder().
			WithEngine(engine).
			Build("Bus")

		probe = &busProbe{system: s}
		engine.AcceptHook(probe)
	})

	writeByte := func(i int, addr bus.Address, data byte) {
		handle, err := s.Initiator(i).Submit(bus.OpWrite, addr, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run()).To(Succeed())

		result, err := s.Initiator(i).Poll(handle)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(initiator.StatusComplete))
	}

	readByte := func(i int, addr bus.Address) byte {
		handle, err := s.Initiator(i).Submit(bus.OpRead, addr, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run()).To(Succeed())

		result, err := s.Initiator(i).Poll(handle)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(initiator.StatusComplete))

		return result.ReadData
	}

	It("should start with every state machine idle", func() {
		Expect(s.Arbiter().State()).To(Equal(arbiter.StateIdle))
		Expect(s.Arbiter().Owner()).To(Equal(sim.RemotePort("")))
		Expect(s.Arbiter().PendingRequestCount()).To(Equal(0))
		Expect(s.Arbiter().ParkedTransactionCount()).To(Equal(0))

		for i := 0; i < s.InitiatorCount(); i++ {
			Expect(s.Initiator(i).State()).To(Equal(initiator.StateIdle))
		}

		for d := 0; d < s.ResponderCount(); d++ {
			Expect(s.Responder(uint8(d)).State()).
				To(Equal(responder.StateIdle))
		}
	})

	It("should round-trip a write through the bus", func() {
		addr := bus.Address{DeviceSelect: 0, Offset: 0x100}

		writeByte(0, addr, 0xAA)

		stored, err := s.Responder(0).Storage().Read(0x100, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(Equal([]byte{0xAA}))

		Expect(readByte(0, addr)).To(Equal(byte(0xAA)))
	})

	It("should keep written data across unrelated transactions", func() {
		writeByte(0, bus.Address{DeviceSelect: 0, Offset: 0x100}, 0xAA)
		writeByte(1, bus.Address{DeviceSelect: 1, Offset: 0x40}, 0x31)

		Expect(readByte(1, bus.Address{DeviceSelect: 0, Offset: 0x100})).
			To(Equal(byte(0xAA)))
	})

	It("should never let two initiators drive the bus at the same time",
		func() {
			addrs := []bus.Address{
				{DeviceSelect: 0, Offset: 0x10},
				{DeviceSelect: 1, Offset: 0x20},
				{DeviceSelect: 2, Offset: 0x30},
			}

			for round := 0; round < 6; round++ {
				h1, err := s.Initiator(0).Submit(
					bus.OpWrite, addrs[round%3], byte(round))
				Expect(err).NotTo(HaveOccurred())

				h2, err := s.Initiator(1).Submit(
					bus.OpWrite, addrs[(round+1)%3], byte(round))
				Expect(err).NotTo(HaveOccurred())

				Expect(s.Run()).To(Succeed())

				result, err := s.Initiator(0).Poll(h1)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(initiator.StatusComplete))

				result, err = s.Initiator(1).Poll(h2)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(initiator.StatusComplete))
			}

			Expect(probe.maxDriving).To(Equal(1))
		})

	It("should grant the bus in priority order on simultaneous requests",
		func() {
			h1, err := s.Initiator(0).Submit(bus.OpWrite,
				bus.Address{DeviceSelect: 0, Offset: 0x200}, 0x55)
			Expect(err).NotTo(HaveOccurred())

			h2, err := s.Initiator(1).Submit(bus.OpWrite,
				bus.Address{DeviceSelect: 1, Offset: 0x100}, 0x77)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Run()).To(Succeed())

			result, err := s.Initiator(0).Poll(h1)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(initiator.StatusComplete))

			result, err = s.Initiator(1).Poll(h2)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(initiator.StatusComplete))

			Expect(probe.grants()).To(Equal([]sim.RemotePort{
				"Bus.Initiator1.Arb",
				"Bus.Initiator2.Arb",
			}))

			Expect(readByte(0,
				bus.Address{DeviceSelect: 0, Offset: 0x200})).
				To(Equal(byte(0x55)))
			Expect(readByte(1,
				bus.Address{DeviceSelect: 1, Offset: 0x100})).
				To(Equal(byte(0x77)))
		})

	It("should serve the other initiator while a split transaction waits",
		func() {
			h1, err := s.Initiator(0).Submit(bus.OpWrite,
				bus.Address{DeviceSelect: 2, Offset: 0x50}, 0xBB)
			Expect(err).NotTo(HaveOccurred())

			h2, err := s.Initiator(1).Submit(bus.OpWrite,
				bus.Address{DeviceSelect: 1, Offset: 0x80}, 0x44)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Run()).To(Succeed())

			result, err := s.Initiator(0).Poll(h1)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(initiator.StatusComplete))

			result, err = s.Initiator(1).Poll(h2)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(initiator.StatusComplete))

			Expect(probe.servedWhileParked).To(BeTrue())
			Expect(probe.grants()).To(Equal([]sim.RemotePort{
				"Bus.Initiator1.Arb",
				"Bus.Initiator2.Arb",
				"Bus.Initiator1.Arb",
			}))

			Expect(readByte(1,
				bus.Address{DeviceSelect: 2, Offset: 0x50})).
				To(Equal(byte(0xBB)))
		})

	It("should never let an unmapped address reach the bus", func() {
		handle, err := s.Initiator(0).Submit(bus.OpWrite,
			bus.Address{DeviceSelect: 0xF, Offset: 0x0}, 0x99)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run()).To(Succeed())

		result, err := s.Initiator(0).Poll(handle)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(initiator.StatusError))
		Expect(result.Err).To(MatchError(bus.ErrInvalidAddress))

		Expect(probe.grants()).To(BeEmpty())
		Expect(s.Arbiter().State()).To(Equal(arbiter.StateIdle))
		Expect(s.Arbiter().PendingRequestCount()).To(Equal(0))

		for d := 0; d < s.ResponderCount(); d++ {
			Expect(s.Responder(uint8(d)).State()).
				To(Equal(responder.StateIdle))
		}
	})

	It("should return every state machine to idle on a mid-flight reset "+
		"and keep storage", func() {
		writeByte(0, bus.Address{DeviceSelect: 0, Offset: 0x100}, 0xAA)

		trigger := &resetTrigger{system: s}
		engine.AcceptHook(trigger)

		handle, err := s.Initiator(0).Submit(bus.OpWrite,
			bus.Address{DeviceSelect: 2, Offset: 0x50}, 0xBB)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run()).To(Succeed())
		Expect(trigger.fired).To(BeTrue())

		Expect(s.Initiator(0).State()).To(Equal(initiator.StateIdle))
		Expect(s.Initiator(1).State()).To(Equal(initiator.StateIdle))
		Expect(s.Arbiter().State()).To(Equal(arbiter.StateIdle))
		Expect(s.Arbiter().Owner()).To(Equal(sim.RemotePort("")))
		Expect(s.Arbiter().ParkedTransactionCount()).To(Equal(0))

		for d := 0; d < s.ResponderCount(); d++ {
			Expect(s.Responder(uint8(d)).State()).
				To(Equal(responder.StateIdle))
		}

		_, err = s.Initiator(0).Poll(handle)
		Expect(err).To(MatchError(initiator.ErrTransactionNotFound))

		Expect(readByte(0,
			bus.Address{DeviceSelect: 0, Offset: 0x100})).
			To(Equal(byte(0xAA)))
	})

	It("should reset through the client request", func() {
		writeByte(0, bus.Address{DeviceSelect: 0, Offset: 0x100}, 0xAA)

		Expect(s.Reset()).To(Succeed())

		Expect(s.Arbiter().State()).To(Equal(arbiter.StateIdle))
		Expect(s.Initiator(0).State()).To(Equal(initiator.StateIdle))

		Expect(readByte(0,
			bus.Address{DeviceSelect: 0, Offset: 0x100})).
			To(Equal(byte(0xAA)))
	})

	It("should clear storage only through the explicit clear request",
		func() {
			writeByte(0, bus.Address{DeviceSelect: 0, Offset: 0x100}, 0xAA)

			s.ClearStorage()

			Expect(readByte(0,
				bus.Address{DeviceSelect: 0, Offset: 0x100})).
				To(Equal(byte(0x00)))
		})
})
