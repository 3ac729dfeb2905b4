package bus

import (
	"errors"
	"fmt"

	"github.com/sarchlab/splitbus/sim"
)

// ErrInvalidAddress is reported when an address matches no responder, either
// because the device-select field is unmapped or because the offset falls
// outside the matched responder's range.
var ErrInvalidAddress = errors.New("invalid address")

// A MapEntry describes the address range that one responder serves.
type MapEntry struct {
	DeviceSelect uint8
	Size         uint64
	SplitCapable bool
	Port         sim.RemotePort
}

// An AddressMap routes addresses to responders. Entries partition the
// address space: each device-select value maps to at most one responder.
// Decoding is a pure function of the entries; the map is fixed once built.
type AddressMap struct {
	entries map[uint8]MapEntry
}

// NewAddressMap creates an empty address map.
func NewAddressMap() *AddressMap {
	return &AddressMap{
		entries: make(map[uint8]MapEntry),
	}
}

// AddEntry registers the range served by one responder. Registering two
// entries with the same device-select value is a configuration error.
func (m *AddressMap) AddEntry(entry MapEntry) {
	if entry.DeviceSelect >= 1<<DeviceSelectBits {
		panic(fmt.Sprintf(
			"device select %d does not fit in %d bits",
			entry.DeviceSelect, DeviceSelectBits))
	}

	if _, ok := m.entries[entry.DeviceSelect]; ok {
		panic(fmt.Sprintf(
			"device select %d is already mapped", entry.DeviceSelect))
	}

	m.entries[entry.DeviceSelect] = entry
}

// Decode returns the entry that serves the address. The second return value
// is false if the device-select value is unmapped or the offset is beyond
// the entry's size; the two cases are indistinguishable to the caller.
func (m *AddressMap) Decode(addr Address) (MapEntry, bool) {
	entry, ok := m.entries[addr.DeviceSelect]
	if !ok {
		return MapEntry{}, false
	}

	if addr.Offset >= entry.Size {
		return MapEntry{}, false
	}

	return entry, true
}

// Entries returns all registered entries keyed by device select.
func (m *AddressMap) Entries() map[uint8]MapEntry {
	entries := make(map[uint8]MapEntry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}

	return entries
}
