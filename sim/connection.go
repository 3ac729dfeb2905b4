package sim

// SendError marks a failed send or delivery.
type SendError struct{}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	e := new(SendError)
	return e
}

// A Connection delivers messages between the ports plugged into it.
type Connection interface {
	Named
	Hookable

	PlugIn(port Port)
	Unplug(port Port)

	// NotifyAvailable is called by a port to let the connection know that
	// the port can receive messages again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port to let the connection know that
	// messages are waiting in the port's outgoing buffer.
	NotifySend()
}

// HookPosConnStartSend marks when a connection accepts a message to send.
var HookPosConnStartSend = &HookPos{Name: "Conn Start Send"}

// HookPosConnStartTrans marks when a connection starts transmitting a
// message.
var HookPosConnStartTrans = &HookPos{Name: "Conn Start Trans"}

// HookPosConnDoneTrans marks when a connection completes transmitting a
// message.
var HookPosConnDoneTrans = &HookPos{Name: "Conn Done Trans"}

// HookPosConnDeliver marks when a connection delivers a message.
var HookPosConnDeliver = &HookPos{Name: "Conn Deliver"}
