// Package storage provides a paged, byte-addressable backing store for
// responders.
package storage

import "errors"

// Capacity units.
const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// A Storage keeps the data of a responder.
//
// The storage is managed in units. Units that are never touched by Read or
// Write are not allocated.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the given capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	s := &Storage{
		unitSize: 4096,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}

	return s
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// Clear discards all the data in the storage. Untouched bytes read as zero
// afterward.
func (s *Storage) Clear() {
	s.data = make(map[uint64][]byte)
}

func (s *Storage) createOrGetStorageUnit(address uint64) ([]byte, error) {
	if address >= s.capacity {
		return nil, errors.New(
			"accessing physical address beyond the storage capacity")
	}

	baseAddr, _ := s.parseAddress(address)
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit, nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr
	return
}

// Read returns byteSize bytes starting at address.
func (s *Storage) Read(address, byteSize uint64) ([]byte, error) {
	currAddr := address
	lenLeft := byteSize
	dataOffset := uint64(0)
	res := make([]byte, byteSize)

	for currAddr < address+byteSize {
		unit, err := s.createOrGetStorageUnit(currAddr)
		if err != nil {
			return nil, err
		}

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenLeftInUnit := baseAddr + s.unitSize - currAddr
		lenToRead := lenLeftInUnit
		if lenLeft < lenLeftInUnit {
			lenToRead = lenLeft
		}

		copy(res[dataOffset:dataOffset+lenToRead],
			unit[inUnitAddr:inUnitAddr+lenToRead])
		lenLeft -= lenToRead
		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		unit, err := s.createOrGetStorageUnit(currAddr)
		if err != nil {
			return err
		}

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenLeftInData := uint64(len(data)) - dataOffset
		lenLeftInUnit := baseAddr + s.unitSize - currAddr
		lenToWrite := lenLeftInUnit
		if lenLeftInData < lenLeftInUnit {
			lenToWrite = lenLeftInData
		}

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])
		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}
