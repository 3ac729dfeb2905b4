package responder

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

func (m *middleware) Tick() bool {
	madeProgress := false

	madeProgress = m.processCtrl() || madeProgress
	madeProgress = m.flushPendingRsp() || madeProgress
	madeProgress = m.pipeline.Tick() || madeProgress
	madeProgress = m.finishDeferredWork() || madeProgress
	madeProgress = m.processArb() || madeProgress
	madeProgress = m.processTop() || madeProgress

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

// doReset drops the parked transaction and every response that was still
// on its way out. The backing store is untouched; clearing it is a
// separate operation.
func (m *middleware) doReset() {
	m.state = StateIdle
	m.parked = nil
	m.finalRsp = nil
	m.pendingRsp = nil
	m.pipeline.Clear()
	m.postPipelineBuf.Clear()

	for m.topPort.RetrieveIncoming() != nil {
	}

	for m.arbPort.RetrieveIncoming() != nil {
	}
}

func (m *middleware) flushPendingRsp() bool {
	if m.pendingRsp == nil {
		return false
	}

	err := m.topPort.Send(m.pendingRsp)
	if err != nil {
		return false
	}

	m.pendingRsp = nil

	if m.state == StateServing {
		m.state = StateIdle
	}

	return true
}

// finishDeferredWork performs the storage access once the device latency
// has elapsed, then tells the arbiter that the parked initiator can be
// resumed.
func (m *middleware) finishDeferredWork() bool {
	if m.state != StateSplitWaiting {
		return false
	}

	if m.postPipelineBuf.Peek() == nil {
		return false
	}

	ready := bus.SplitReadyMsgBuilder{}.
		WithSrc(m.arbPort.AsRemote()).
		WithDst(m.arbiterPort).
		WithResponder(m.topPort.AsRemote()).
		Build()

	err := m.arbPort.Send(ready)
	if err != nil {
		return false
	}

	m.postPipelineBuf.Pop()
	m.finalRsp = m.serve(m.parked)
	m.state = StateSplitReady

	return true
}

func (m *middleware) processArb() bool {
	msg := m.arbPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	resume, ok := msg.(*bus.ResumeGrantMsg)
	if !ok {
		log.Panicf("cannot handle arb msg of type %s", reflect.TypeOf(msg))
	}

	if m.state != StateSplitReady {
		// The resume crossed a reset. The parked transaction is gone.
		return true
	}

	if resume.Initiator != m.parked.Meta().Src {
		log.Panicf("responder %s re-granted for initiator %s, parked for %s",
			m.Name(), resume.Initiator, m.parked.Meta().Src)
	}

	rsp := m.finalRsp
	m.finalRsp = nil

	tracing.TraceReqComplete(m.parked, m)
	m.parked = nil

	err := m.topPort.Send(rsp)
	if err != nil {
		m.pendingRsp = rsp
		m.state = StateServing

		return true
	}

	m.state = StateIdle

	return true
}

func (m *middleware) processTop() bool {
	msg := m.topPort.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(bus.AccessReq)
	if !ok {
		log.Panicf("cannot handle top msg of type %s", reflect.TypeOf(msg))
	}

	if m.state != StateIdle {
		log.Panicf("responder %s received a request while busy", m.Name())
	}

	if m.latency > 0 {
		return m.deferRequest(req)
	}

	return m.serveNow(req)
}

func (m *middleware) serveNow(req bus.AccessReq) bool {
	if !m.topPort.CanSend() {
		return false
	}

	m.topPort.RetrieveIncoming()
	tracing.TraceReqReceive(req, m)

	rsp := m.serve(req)

	sendErr := m.topPort.Send(rsp)
	if sendErr != nil {
		panic("port claimed to accept the response")
	}

	tracing.TraceReqComplete(req, m)

	return true
}

// deferRequest asserts the split: the initiator learns its transaction is
// parked, the arbiter frees the bus, and the device latency starts
// counting. The split response and the notice must leave in the same
// cycle, so the request stays in the buffer until both ports can send.
func (m *middleware) deferRequest(req bus.AccessReq) bool {
	if !m.splitCapable {
		log.Panicf(
			"responder %s has access latency but cannot split", m.Name())
	}

	if !m.topPort.CanSend() || !m.arbPort.CanSend() {
		return false
	}

	m.topPort.RetrieveIncoming()
	tracing.TraceReqReceive(req, m)

	splitRsp := bus.SplitRspBuilder{}.
		WithSrc(m.topPort.AsRemote()).
		WithDst(req.Meta().Src).
		WithRspTo(req.Meta().ID).
		Build()
	sendErr := m.topPort.Send(splitRsp)
	if sendErr != nil {
		panic("port claimed to accept the split response")
	}

	notice := bus.SplitNoticeMsgBuilder{}.
		WithSrc(m.arbPort.AsRemote()).
		WithDst(m.arbiterPort).
		WithInitiator(req.Meta().Src).
		WithResponder(m.topPort.AsRemote()).
		Build()
	sendErr = m.arbPort.Send(notice)
	if sendErr != nil {
		panic("port claimed to accept the split notice")
	}

	m.parked = req
	m.pipeline.Accept(splitTask{req: req})
	m.state = StateSplitWaiting

	return true
}

// serve performs the storage access and builds the response for it.
func (m *middleware) serve(req bus.AccessReq) sim.Msg {
	switch req := req.(type) {
	case *bus.ReadReq:
		data, err := m.storage.Read(req.Addr.Offset, 1)
		if err != nil {
			log.Panicf("responder %s: %s", m.Name(), err)
		}

		return bus.DataReadyRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(req.Meta().Src).
			WithRspTo(req.Meta().ID).
			WithData(data[0]).
			Build()
	case *bus.WriteReq:
		err := m.storage.Write(req.Addr.Offset, []byte{req.Data})
		if err != nil {
			log.Panicf("responder %s: %s", m.Name(), err)
		}

		return bus.WriteDoneRspBuilder{}.
			WithSrc(m.topPort.AsRemote()).
			WithDst(req.Meta().Src).
			WithRspTo(req.Meta().ID).
			Build()
	default:
		log.Panicf("cannot serve request of type %s", reflect.TypeOf(req))
	}

	return nil
}
