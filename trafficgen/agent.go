// Package trafficgen provides an agent that exercises the bus with random
// byte accesses and checks every read against the value it wrote.
package trafficgen

import (
	"log"
	"math/rand"

	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/initiator"
	"github.com/sarchlab/splitbus/sim"
)

// A Target is an address range that the agent may access. The offsets are
// half open: LowOffset is included, HighOffset is not.
type Target struct {
	DeviceSelect uint8
	LowOffset    uint64
	HighOffset   uint64
}

type access struct {
	handle initiator.TransactionHandle
	op     bus.Op
	addr   bus.Address
	data   byte
}

// An Agent drives one initiator with random reads and writes. It keeps one
// transaction in flight at a time and polls it once per cycle until it
// resolves. Reads only visit addresses the agent has written before, so
// every read result can be checked. Agents sharing a bus must be given
// disjoint targets.
type Agent struct {
	*sim.TickingComponent

	WriteLeft int
	ReadLeft  int

	initiator   *initiator.Comp
	targets     []Target
	rand        *rand.Rand
	inflight    *access
	knownAddrs  []bus.Address
	knownValues map[bus.Address]byte
}

// Tick submits and polls transactions.
func (a *Agent) Tick() bool {
	if a.inflight != nil {
		return a.pollInflight()
	}

	if a.WriteLeft == 0 && a.ReadLeft == 0 {
		return false
	}

	if a.shouldRead() {
		return a.doRead()
	}

	return a.doWrite()
}

// Done reports whether all the agent's accesses have resolved.
func (a *Agent) Done() bool {
	return a.WriteLeft == 0 && a.ReadLeft == 0 && a.inflight == nil
}

func (a *Agent) pollInflight() bool {
	result, err := a.initiator.Poll(a.inflight.handle)
	if err != nil {
		log.Panicf("agent %s: %s", a.Name(), err)
	}

	switch result.Status {
	case initiator.StatusPending:
	case initiator.StatusComplete:
		a.checkResult(result)
		a.inflight = nil
	case initiator.StatusError:
		log.Panicf("agent %s: access to %s failed: %s",
			a.Name(), a.inflight.addr, result.Err)
	}

	return true
}

func (a *Agent) checkResult(result initiator.Result) {
	if a.inflight.op != bus.OpRead {
		return
	}

	expected := a.knownValues[a.inflight.addr]
	if result.ReadData != expected {
		log.Panicf("agent %s: read 0x%02X at %s, expected 0x%02X",
			a.Name(), result.ReadData, a.inflight.addr, expected)
	}
}

func (a *Agent) shouldRead() bool {
	if len(a.knownAddrs) == 0 {
		return false
	}

	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rand.Float64() > 0.5
}

func (a *Agent) doWrite() bool {
	addr := a.randomAddress()
	data := byte(a.rand.Intn(256))

	handle, err := a.initiator.Submit(bus.OpWrite, addr, data)
	if err != nil {
		// The initiator frees one cycle after it reports completion.
		return true
	}

	a.inflight = &access{
		handle: handle,
		op:     bus.OpWrite,
		addr:   addr,
		data:   data,
	}
	a.WriteLeft--

	if _, known := a.knownValues[addr]; !known {
		a.knownAddrs = append(a.knownAddrs, addr)
	}
	a.knownValues[addr] = data

	return true
}

func (a *Agent) doRead() bool {
	addr := a.knownAddrs[a.rand.Intn(len(a.knownAddrs))]

	handle, err := a.initiator.Submit(bus.OpRead, addr, 0)
	if err != nil {
		return true
	}

	a.inflight = &access{
		handle: handle,
		op:     bus.OpRead,
		addr:   addr,
	}
	a.ReadLeft--

	return true
}

func (a *Agent) randomAddress() bus.Address {
	target := a.targets[a.rand.Intn(len(a.targets))]
	span := int64(target.HighOffset - target.LowOffset)
	offset := target.LowOffset + uint64(a.rand.Int63n(span))

	return bus.Address{
		DeviceSelect: target.DeviceSelect,
		Offset:       offset,
	}
}
