package sim

import "reflect"

// A Msg is a piece of information transferred between components.
type Msg interface {
	Meta() *MsgMeta
	Clone() Msg
}

// MsgMeta is the metadata attached to every message.
type MsgMeta struct {
	ID           string
	Src, Dst     RemotePort
	TrafficClass string
	TrafficBytes int
}

// Rsp is a message that indicates the completion of a request.
type Rsp interface {
	Msg
	GetRspTo() string
}

// GeneralRsp is a generic response that can answer any request.
type GeneralRsp struct {
	MsgMeta

	OriginalReq Msg
}

// Meta returns the metadata of the message.
func (r *GeneralRsp) Meta() *MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the GeneralRsp with a different ID.
func (r *GeneralRsp) Clone() Msg {
	cloneMsg := *r
	cloneMsg.ID = GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the original request.
func (r *GeneralRsp) GetRspTo() string {
	return r.OriginalReq.Meta().ID
}

// GeneralRspBuilder builds GeneralRsps.
type GeneralRspBuilder struct {
	Src, Dst     RemotePort
	TrafficBytes int
	OriginalReq  Msg
}

// WithSrc sets the source of the response.
func (c GeneralRspBuilder) WithSrc(src RemotePort) GeneralRspBuilder {
	c.Src = src
	return c
}

// WithDst sets the destination of the response.
func (c GeneralRspBuilder) WithDst(dst RemotePort) GeneralRspBuilder {
	c.Dst = dst
	return c
}

// WithTrafficBytes sets the number of bytes the response occupies on the
// wire.
func (c GeneralRspBuilder) WithTrafficBytes(
	trafficBytes int,
) GeneralRspBuilder {
	c.TrafficBytes = trafficBytes
	return c
}

// WithOriginalReq sets the request that the response answers.
func (c GeneralRspBuilder) WithOriginalReq(originalReq Msg) GeneralRspBuilder {
	c.OriginalReq = originalReq
	return c
}

// Build creates a new GeneralRsp.
func (c GeneralRspBuilder) Build() *GeneralRsp {
	rsp := &GeneralRsp{
		MsgMeta: MsgMeta{
			ID:           GetIDGenerator().Generate(),
			Src:          c.Src,
			Dst:          c.Dst,
			TrafficClass: reflect.TypeOf(GeneralRsp{}).String(),
			TrafficBytes: c.TrafficBytes,
		},
		OriginalReq: c.OriginalReq,
	}

	return rsp
}
