package initiator

import (
	"log"
	"reflect"

	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/tracing"
)

type middleware struct {
	*Comp
}

// Tick advances the state machine before it consumes new messages, so
// every state entered through a message is observable for a full cycle.
func (m *middleware) Tick() bool {
	madeProgress := false

	madeProgress = m.processCtrl() || madeProgress
	madeProgress = m.flushRelease() || madeProgress
	madeProgress = m.advance() || madeProgress
	madeProgress = m.processArb() || madeProgress
	madeProgress = m.processData() || madeProgress

	return madeProgress
}

func (m *middleware) processCtrl() bool {
	msg := m.ctrlPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	ctrl, ok := msg.(*bus.ControlMsg)
	if !ok {
		log.Panicf("cannot handle ctrl msg of type %s", reflect.TypeOf(msg))
	}

	if ctrl.Reset {
		m.doReset()
	}

	return true
}

// doReset abandons the in-flight transaction. Results that were already
// recorded survive, so a client can still poll a transaction that finished
// before the reset.
func (m *middleware) doReset() {
	m.state = StateIdle
	m.txn = nil
	m.releasePending = false

	for m.arbPort.RetrieveIncoming() != nil {
	}

	for m.dataPort.RetrieveIncoming() != nil {
	}
}

// flushRelease hands the bus back when a grant arrived for a transaction
// that no longer exists.
func (m *middleware) flushRelease() bool {
	if !m.releasePending {
		return false
	}

	release := bus.ReleaseBusMsgBuilder{}.
		WithSrc(m.arbPort.AsRemote()).
		WithDst(m.arbiterPort).
		Build()

	err := m.arbPort.Send(release)
	if err != nil {
		return false
	}

	m.releasePending = false

	return true
}

func (m *middleware) advance() bool {
	switch m.state {
	case StateRequestingBus:
		return m.requestBus()
	case StateDrivingAddress:
		return m.driveAddress()
	case StateTransferringData:
		return m.transferData()
	case StateComplete:
		return m.finish()
	case StateErrorAbort:
		return m.abort()
	}

	return false
}

func (m *middleware) requestBus() bool {
	req := bus.RequestBusMsgBuilder{}.
		WithSrc(m.arbPort.AsRemote()).
		WithDst(m.arbiterPort).
		WithAddress(m.txn.addr).
		Build()

	err := m.arbPort.Send(req)
	if err != nil {
		return false
	}

	m.state = StateAwaitingGrant

	return true
}

func (m *middleware) driveAddress() bool {
	if m.txn.op == bus.OpWrite {
		m.state = StateTransferringData
		return true
	}

	readReq := bus.ReadReqBuilder{}.
		WithSrc(m.dataPort.AsRemote()).
		WithDst(m.txn.target.Port).
		WithAddress(m.txn.addr).
		Build()

	err := m.dataPort.Send(readReq)
	if err != nil {
		return false
	}

	m.txn.reqID = readReq.Meta().ID
	m.state = StateAwaitingData

	tracing.TraceReqInitiate(readReq, m, string(m.txn.handle))

	return true
}

func (m *middleware) transferData() bool {
	if m.txn.reqID != "" {
		return false
	}

	writeReq := bus.WriteReqBuilder{}.
		WithSrc(m.dataPort.AsRemote()).
		WithDst(m.txn.target.Port).
		WithAddress(m.txn.addr).
		WithData(m.txn.data).
		Build()

	err := m.dataPort.Send(writeReq)
	if err != nil {
		return false
	}

	m.txn.reqID = writeReq.Meta().ID

	tracing.TraceReqInitiate(writeReq, m, string(m.txn.handle))

	return true
}

func (m *middleware) finish() bool {
	release := bus.ReleaseBusMsgBuilder{}.
		WithSrc(m.arbPort.AsRemote()).
		WithDst(m.arbiterPort).
		Build()

	err := m.arbPort.Send(release)
	if err != nil {
		return false
	}

	m.state = StateIdle
	m.txn = nil

	return true
}

func (m *middleware) abort() bool {
	tracing.EndTask(string(m.txn.handle), m)

	m.state = StateIdle
	m.txn = nil

	return true
}

func (m *middleware) processArb() bool {
	msg := m.arbPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	if _, ok := msg.(*bus.GrantMsg); !ok {
		log.Panicf("cannot handle arb msg of type %s", reflect.TypeOf(msg))
	}

	if m.state != StateAwaitingGrant {
		// The grant crossed a reset. Hand the bus straight back.
		m.releasePending = true
		return true
	}

	m.state = StateDrivingAddress

	return true
}

func (m *middleware) processData() bool {
	msg := m.dataPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(sim.Rsp)
	if !ok {
		log.Panicf("cannot handle data msg of type %s", reflect.TypeOf(msg))
	}

	if m.txn == nil || rsp.GetRspTo() != m.txn.reqID {
		// A response to an abandoned transaction.
		return true
	}

	switch rsp := msg.(type) {
	case *bus.DataReadyRsp:
		m.completeRead(rsp)
	case *bus.WriteDoneRsp:
		m.completeWrite()
	case *bus.SplitRsp:
		m.enterSplitWait()
	default:
		log.Panicf("cannot handle data msg of type %s", reflect.TypeOf(msg))
	}

	return true
}

func (m *middleware) completeRead(rsp *bus.DataReadyRsp) {
	if m.state != StateAwaitingData && m.state != StateAwaitingSplitResume {
		log.Panicf("initiator %s received read data in state %s",
			m.Name(), m.state)
	}

	m.completed[m.txn.handle] = Result{
		Status:   StatusComplete,
		ReadData: rsp.Data,
	}
	m.state = StateComplete

	tracing.EndTask(m.txn.reqID+"_req_out", m)
	tracing.EndTask(string(m.txn.handle), m)
}

func (m *middleware) completeWrite() {
	if m.state != StateTransferringData &&
		m.state != StateAwaitingSplitResume {
		log.Panicf("initiator %s received a write ack in state %s",
			m.Name(), m.state)
	}

	m.completed[m.txn.handle] = Result{Status: StatusComplete}
	m.state = StateComplete

	tracing.EndTask(m.txn.reqID+"_req_out", m)
	tracing.EndTask(string(m.txn.handle), m)
}

func (m *middleware) enterSplitWait() {
	if m.state != StateAwaitingData && m.state != StateTransferringData {
		log.Panicf("initiator %s received a split notice in state %s",
			m.Name(), m.state)
	}

	m.state = StateAwaitingSplitResume
}
