// Package bus defines the address space and the messages of the
// split-transaction bus protocol.
package bus

import "fmt"

// DeviceSelectBits is the width of the device-select field. Device-select
// values that do not fit in this width can never match a map entry.
const DeviceSelectBits = 4

// An Address identifies one byte in the bus address space. The DeviceSelect
// field routes the access to one responder. The Offset field addresses a
// byte within that responder's range.
type Address struct {
	DeviceSelect uint8
	Offset       uint64
}

func (a Address) String() string {
	return fmt.Sprintf("dev %d offset 0x%04X", a.DeviceSelect, a.Offset)
}
