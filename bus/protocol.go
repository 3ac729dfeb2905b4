package bus

import (
	"reflect"

	"github.com/sarchlab/splitbus/sim"
)

var arbMsgByteOverhead = 4
var accessReqByteOverhead = 12
var accessRspByteOverhead = 4
var controlMsgByteOverhead = 4

// Op is the operation a transaction performs.
type Op int

// The operations the bus supports.
const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	}

	return "Invalid"
}

// An AccessReq is a read or write request routed to a responder.
type AccessReq interface {
	sim.Msg
	GetAddress() Address
}

// An AccessRsp is a response a responder sends back to an initiator.
type AccessRsp interface {
	sim.Msg
	sim.Rsp
}

// A RequestBusMsg asks the arbiter for bus ownership. The address of the
// transaction is included so that the arbiter can hold the request back
// while the target responder has a parked transaction.
type RequestBusMsg struct {
	sim.MsgMeta

	Addr Address
}

// Meta returns the message metadata.
func (m *RequestBusMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *RequestBusMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// RequestBusMsgBuilder builds RequestBusMsgs.
type RequestBusMsgBuilder struct {
	src, dst sim.RemotePort
	addr     Address
}

// WithSrc sets the source of the message to build.
func (b RequestBusMsgBuilder) WithSrc(src sim.RemotePort) RequestBusMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b RequestBusMsgBuilder) WithDst(dst sim.RemotePort) RequestBusMsgBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address of the transaction the requester wants to
// drive.
func (b RequestBusMsgBuilder) WithAddress(addr Address) RequestBusMsgBuilder {
	b.addr = addr
	return b
}

// Build creates a new RequestBusMsg.
func (b RequestBusMsgBuilder) Build() *RequestBusMsg {
	m := &RequestBusMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(RequestBusMsg{}).String()
	m.TrafficBytes = arbMsgByteOverhead
	m.Addr = b.addr

	return m
}

// A GrantMsg gives bus ownership to one initiator.
type GrantMsg struct {
	sim.MsgMeta
}

// Meta returns the message metadata.
func (m *GrantMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *GrantMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GrantMsgBuilder builds GrantMsgs.
type GrantMsgBuilder struct {
	src, dst sim.RemotePort
}

// WithSrc sets the source of the message to build.
func (b GrantMsgBuilder) WithSrc(src sim.RemotePort) GrantMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b GrantMsgBuilder) WithDst(dst sim.RemotePort) GrantMsgBuilder {
	b.dst = dst
	return b
}

// Build creates a new GrantMsg.
func (b GrantMsgBuilder) Build() *GrantMsg {
	m := &GrantMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(GrantMsg{}).String()
	m.TrafficBytes = arbMsgByteOverhead

	return m
}

// A ReleaseBusMsg returns bus ownership to the arbiter after a transaction
// completes.
type ReleaseBusMsg struct {
	sim.MsgMeta
}

// Meta returns the message metadata.
func (m *ReleaseBusMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *ReleaseBusMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ReleaseBusMsgBuilder builds ReleaseBusMsgs.
type ReleaseBusMsgBuilder struct {
	src, dst sim.RemotePort
}

// WithSrc sets the source of the message to build.
func (b ReleaseBusMsgBuilder) WithSrc(src sim.RemotePort) ReleaseBusMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b ReleaseBusMsgBuilder) WithDst(dst sim.RemotePort) ReleaseBusMsgBuilder {
	b.dst = dst
	return b
}

// Build creates a new ReleaseBusMsg.
func (b ReleaseBusMsgBuilder) Build() *ReleaseBusMsg {
	m := &ReleaseBusMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(ReleaseBusMsg{}).String()
	m.TrafficBytes = arbMsgByteOverhead

	return m
}

// A SplitNoticeMsg tells the arbiter that a responder has deferred the
// transaction of an initiator. The arbiter frees the bus and retains the
// initiator-responder association until the responder signals ready.
type SplitNoticeMsg struct {
	sim.MsgMeta

	Initiator sim.RemotePort
	Responder sim.RemotePort
}

// Meta returns the message metadata.
func (m *SplitNoticeMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *SplitNoticeMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// SplitNoticeMsgBuilder builds SplitNoticeMsgs.
type SplitNoticeMsgBuilder struct {
	src, dst  sim.RemotePort
	initiator sim.RemotePort
	responder sim.RemotePort
}

// WithSrc sets the source of the message to build.
func (b SplitNoticeMsgBuilder) WithSrc(
	src sim.RemotePort,
) SplitNoticeMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b SplitNoticeMsgBuilder) WithDst(
	dst sim.RemotePort,
) SplitNoticeMsgBuilder {
	b.dst = dst
	return b
}

// WithInitiator records the data port of the initiator whose transaction is
// parked. The final response must be delivered to this port and no other.
func (b SplitNoticeMsgBuilder) WithInitiator(
	initiator sim.RemotePort,
) SplitNoticeMsgBuilder {
	b.initiator = initiator
	return b
}

// WithResponder records the data port of the responder that parked the
// transaction.
func (b SplitNoticeMsgBuilder) WithResponder(
	responder sim.RemotePort,
) SplitNoticeMsgBuilder {
	b.responder = responder
	return b
}

// Build creates a new SplitNoticeMsg.
func (b SplitNoticeMsgBuilder) Build() *SplitNoticeMsg {
	m := &SplitNoticeMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(SplitNoticeMsg{}).String()
	m.TrafficBytes = arbMsgByteOverhead
	m.Initiator = b.initiator
	m.Responder = b.responder

	return m
}

// A SplitReadyMsg tells the arbiter that the deferred work of a parked
// transaction has finished and the responder can deliver the result.
type SplitReadyMsg struct {
	sim.MsgMeta

	Responder sim.RemotePort
}

// Meta returns the message metadata.
func (m *SplitReadyMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *SplitReadyMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// SplitReadyMsgBuilder builds SplitReadyMsgs.
type SplitReadyMsgBuilder struct {
	src, dst  sim.RemotePort
	responder sim.RemotePort
}

// WithSrc sets the source of the message to build.
func (b SplitReadyMsgBuilder) WithSrc(
	src sim.RemotePort,
) SplitReadyMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b SplitReadyMsgBuilder) WithDst(
	dst sim.RemotePort,
) SplitReadyMsgBuilder {
	b.dst = dst
	return b
}

// WithResponder records the data port of the responder that is ready.
func (b SplitReadyMsgBuilder) WithResponder(
	responder sim.RemotePort,
) SplitReadyMsgBuilder {
	b.responder = responder
	return b
}

// Build creates a new SplitReadyMsg.
func (b SplitReadyMsgBuilder) Build() *SplitReadyMsg {
	m := &SplitReadyMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(SplitReadyMsg{}).String()
	m.TrafficBytes = arbMsgByteOverhead
	m.Responder = b.responder

	return m
}

// A ResumeGrantMsg gives the bus to a responder so that it can deliver a
// parked result to the initiator recorded in the split association.
type ResumeGrantMsg struct {
	sim.MsgMeta

	Initiator sim.RemotePort
}

// Meta returns the message metadata.
func (m *ResumeGrantMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *ResumeGrantMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ResumeGrantMsgBuilder builds ResumeGrantMsgs.
type ResumeGrantMsgBuilder struct {
	src, dst  sim.RemotePort
	initiator sim.RemotePort
}

// WithSrc sets the source of the message to build.
func (b ResumeGrantMsgBuilder) WithSrc(
	src sim.RemotePort,
) ResumeGrantMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b ResumeGrantMsgBuilder) WithDst(
	dst sim.RemotePort,
) ResumeGrantMsgBuilder {
	b.dst = dst
	return b
}

// WithInitiator names the initiator the parked result belongs to.
func (b ResumeGrantMsgBuilder) WithInitiator(
	initiator sim.RemotePort,
) ResumeGrantMsgBuilder {
	b.initiator = initiator
	return b
}

// Build creates a new ResumeGrantMsg.
func (b ResumeGrantMsgBuilder) Build() *ResumeGrantMsg {
	m := &ResumeGrantMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(ResumeGrantMsg{}).String()
	m.TrafficBytes = arbMsgByteOverhead
	m.Initiator = b.initiator

	return m
}

// A ReadReq asks a responder for the byte at an address.
type ReadReq struct {
	sim.MsgMeta

	Addr Address
}

// Meta returns the message metadata.
func (r *ReadReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *ReadReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetAddress returns the address the request accesses.
func (r *ReadReq) GetAddress() Address {
	return r.Addr
}

// ReadReqBuilder builds ReadReqs.
type ReadReqBuilder struct {
	src, dst sim.RemotePort
	addr     Address
}

// WithSrc sets the source of the request to build.
func (b ReadReqBuilder) WithSrc(src sim.RemotePort) ReadReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ReadReqBuilder) WithDst(dst sim.RemotePort) ReadReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address of the request to build.
func (b ReadReqBuilder) WithAddress(addr Address) ReadReqBuilder {
	b.addr = addr
	return b
}

// Build creates a new ReadReq.
func (b ReadReqBuilder) Build() *ReadReq {
	r := &ReadReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficClass = reflect.TypeOf(ReadReq{}).String()
	r.TrafficBytes = accessReqByteOverhead
	r.Addr = b.addr

	return r
}

// A WriteReq asks a responder to store one byte at an address.
type WriteReq struct {
	sim.MsgMeta

	Addr Address
	Data byte
}

// Meta returns the message metadata.
func (r *WriteReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *WriteReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetAddress returns the address the request accesses.
func (r *WriteReq) GetAddress() Address {
	return r.Addr
}

// WriteReqBuilder builds WriteReqs.
type WriteReqBuilder struct {
	src, dst sim.RemotePort
	addr     Address
	data     byte
}

// WithSrc sets the source of the request to build.
func (b WriteReqBuilder) WithSrc(src sim.RemotePort) WriteReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b WriteReqBuilder) WithDst(dst sim.RemotePort) WriteReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address of the request to build.
func (b WriteReqBuilder) WithAddress(addr Address) WriteReqBuilder {
	b.addr = addr
	return b
}

// WithData sets the byte the request stores.
func (b WriteReqBuilder) WithData(data byte) WriteReqBuilder {
	b.data = data
	return b
}

// Build creates a new WriteReq.
func (b WriteReqBuilder) Build() *WriteReq {
	r := &WriteReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficClass = reflect.TypeOf(WriteReq{}).String()
	r.TrafficBytes = 1 + accessReqByteOverhead
	r.Addr = b.addr
	r.Data = b.data

	return r
}

// A DataReadyRsp carries the byte a ReadReq asked for.
type DataReadyRsp struct {
	sim.MsgMeta

	RespondTo string
	Data      byte
}

// Meta returns the message metadata.
func (r *DataReadyRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *DataReadyRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the request the response answers.
func (r *DataReadyRsp) GetRspTo() string {
	return r.RespondTo
}

// DataReadyRspBuilder builds DataReadyRsps.
type DataReadyRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
	data     byte
}

// WithSrc sets the source of the response to build.
func (b DataReadyRspBuilder) WithSrc(src sim.RemotePort) DataReadyRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b DataReadyRspBuilder) WithDst(dst sim.RemotePort) DataReadyRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request the response answers.
func (b DataReadyRspBuilder) WithRspTo(id string) DataReadyRspBuilder {
	b.rspTo = id
	return b
}

// WithData sets the byte the response carries.
func (b DataReadyRspBuilder) WithData(data byte) DataReadyRspBuilder {
	b.data = data
	return b
}

// Build creates a new DataReadyRsp.
func (b DataReadyRspBuilder) Build() *DataReadyRsp {
	r := &DataReadyRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficClass = reflect.TypeOf(DataReadyRsp{}).String()
	r.TrafficBytes = 1 + accessRspByteOverhead
	r.RespondTo = b.rspTo
	r.Data = b.data

	return r
}

// A WriteDoneRsp acknowledges that a WriteReq has been performed.
type WriteDoneRsp struct {
	sim.MsgMeta

	RespondTo string
}

// Meta returns the message metadata.
func (r *WriteDoneRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *WriteDoneRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the request the response answers.
func (r *WriteDoneRsp) GetRspTo() string {
	return r.RespondTo
}

// WriteDoneRspBuilder builds WriteDoneRsps.
type WriteDoneRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
}

// WithSrc sets the source of the response to build.
func (b WriteDoneRspBuilder) WithSrc(src sim.RemotePort) WriteDoneRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b WriteDoneRspBuilder) WithDst(dst sim.RemotePort) WriteDoneRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request the response answers.
func (b WriteDoneRspBuilder) WithRspTo(id string) WriteDoneRspBuilder {
	b.rspTo = id
	return b
}

// Build creates a new WriteDoneRsp.
func (b WriteDoneRspBuilder) Build() *WriteDoneRsp {
	r := &WriteDoneRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficClass = reflect.TypeOf(WriteDoneRsp{}).String()
	r.TrafficBytes = accessRspByteOverhead
	r.RespondTo = b.rspTo

	return r
}

// A SplitRsp tells the initiator that the responder has deferred the
// transaction. The final response arrives later through a resume grant.
type SplitRsp struct {
	sim.MsgMeta

	RespondTo string
}

// Meta returns the message metadata.
func (r *SplitRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *SplitRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the request the response answers.
func (r *SplitRsp) GetRspTo() string {
	return r.RespondTo
}

// SplitRspBuilder builds SplitRsps.
type SplitRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
}

// WithSrc sets the source of the response to build.
func (b SplitRspBuilder) WithSrc(src sim.RemotePort) SplitRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b SplitRspBuilder) WithDst(dst sim.RemotePort) SplitRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request the response answers.
func (b SplitRspBuilder) WithRspTo(id string) SplitRspBuilder {
	b.rspTo = id
	return b
}

// Build creates a new SplitRsp.
func (b SplitRspBuilder) Build() *SplitRsp {
	r := &SplitRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficClass = reflect.TypeOf(SplitRsp{}).String()
	r.TrafficBytes = accessRspByteOverhead
	r.RespondTo = b.rspTo

	return r
}

// A ControlMsg commands a component to return to its reset state.
type ControlMsg struct {
	sim.MsgMeta

	Reset bool
}

// Meta returns the message metadata.
func (m *ControlMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *ControlMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ControlMsgBuilder builds ControlMsgs.
type ControlMsgBuilder struct {
	src, dst sim.RemotePort
	reset    bool
}

// WithSrc sets the source of the message to build.
func (b ControlMsgBuilder) WithSrc(src sim.RemotePort) ControlMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b ControlMsgBuilder) WithDst(dst sim.RemotePort) ControlMsgBuilder {
	b.dst = dst
	return b
}

// WithReset sets the reset bit of the message to build.
func (b ControlMsgBuilder) WithReset(flag bool) ControlMsgBuilder {
	b.reset = flag
	return b
}

// Build creates a new ControlMsg.
func (b ControlMsgBuilder) Build() *ControlMsg {
	m := &ControlMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(ControlMsg{}).String()
	m.TrafficBytes = controlMsgByteOverhead
	m.Reset = b.reset

	return m
}
