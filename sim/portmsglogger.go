package sim

import (
	"log"
	"reflect"
)

// PortMsgLogger is a hook that logs messages as they cross a port.
type PortMsgLogger struct {
	LogHookBase

	timeTeller TimeTeller
}

// NewPortMsgLogger creates a PortMsgLogger that writes into the given
// logger.
func NewPortMsgLogger(
	logger *log.Logger,
	timeTeller TimeTeller,
) *PortMsgLogger {
	h := new(PortMsgLogger)
	h.Logger = logger
	h.timeTeller = timeTeller
	return h
}

// Func writes the message information into the logger.
func (h *PortMsgLogger) Func(ctx HookCtx) {
	msg, ok := ctx.Item.(Msg)
	if !ok {
		return
	}

	h.Logger.Printf("%.10f,%s,%s,%s,%s,%s,%s\n",
		h.timeTeller.CurrentTime(),
		ctx.Domain.(Port).Name(),
		ctx.Pos.Name,
		msg.Meta().Src,
		msg.Meta().Dst,
		reflect.TypeOf(msg),
		msg.Meta().ID)
}
