// Package initiator provides the component that drives transactions onto
// the bus on behalf of a client.
package initiator

import (
	"errors"

	"github.com/sarchlab/splitbus/bus"
	"github.com/sarchlab/splitbus/sim"
	"github.com/sarchlab/splitbus/tracing"
)

// State is the transaction-driving state of an initiator.
type State int

// The states an initiator walks through. A write visits TransferringData
// after the address phase; a read waits in AwaitingData. Either path can be
// parked in AwaitingSplitResume when the responder defers completion. The
// parked wait has no deadline: if the responder never signals ready, the
// initiator stays parked until a reset.
const (
	StateIdle State = iota
	StateRequestingBus
	StateAwaitingGrant
	StateDrivingAddress
	StateTransferringData
	StateAwaitingData
	StateAwaitingSplitResume
	StateComplete
	StateErrorAbort
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRequestingBus:
		return "RequestingBus"
	case StateAwaitingGrant:
		return "AwaitingGrant"
	case StateDrivingAddress:
		return "DrivingAddress"
	case StateTransferringData:
		return "TransferringData"
	case StateAwaitingData:
		return "AwaitingData"
	case StateAwaitingSplitResume:
		return "AwaitingSplitResume"
	case StateComplete:
		return "Complete"
	case StateErrorAbort:
		return "ErrorAbort"
	}

	return "Invalid"
}

// ErrBusy is returned by Submit while a prior transaction is unresolved.
var ErrBusy = errors.New("a transaction is already in flight")

// ErrTransactionNotFound is returned by Poll when the handle matches
// neither the in-flight transaction nor an unreported result.
var ErrTransactionNotFound = errors.New("transaction not found")

// A TransactionHandle identifies a submitted transaction.
type TransactionHandle string

// Status tells how far a transaction has progressed.
type Status int

// The values Poll can report.
const (
	StatusPending Status = iota
	StatusComplete
	StatusError
)

// A Result is the outcome of a transaction.
type Result struct {
	Status   Status
	ReadData byte
	Err      error
}

type transaction struct {
	handle TransactionHandle
	op     bus.Op
	addr   bus.Address
	data   byte
	target bus.MapEntry
	reqID  string
}

// Comp drives one transaction at a time across the bus. Clients hand work
// to Submit and collect outcomes with Poll; the component walks its state
// machine one cycle per step.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	arbPort  sim.Port
	dataPort sim.Port
	ctrlPort sim.Port

	addrMap     *bus.AddressMap
	arbiterPort sim.RemotePort

	state          State
	txn            *transaction
	releasePending bool
	completed      map[TransactionHandle]Result
}

// Tick advances the initiator by one cycle.
func (c *Comp) Tick() bool {
	c.Lock()
	defer c.Unlock()

	return c.MiddlewareHolder.Tick()
}

// State reports the current state of the initiator.
func (c *Comp) State() State {
	return c.state
}

// Submit starts a transaction. It returns ErrBusy while a prior
// transaction is unresolved. An address that decodes to no responder
// aborts locally: no bus message is ever sent and Poll reports the
// address error.
func (c *Comp) Submit(
	op bus.Op,
	addr bus.Address,
	data byte,
) (TransactionHandle, error) {
	c.Lock()
	defer c.Unlock()

	if c.state != StateIdle {
		return "", ErrBusy
	}

	handle := TransactionHandle(sim.GetIDGenerator().Generate())
	txn := &transaction{
		handle: handle,
		op:     op,
		addr:   addr,
		data:   data,
	}

	tracing.StartTask(
		string(handle), "", c, "transaction", op.String(), addr)

	entry, valid := c.addrMap.Decode(addr)
	if !valid {
		c.completed[handle] = Result{
			Status: StatusError,
			Err:    bus.ErrInvalidAddress,
		}
		c.txn = txn
		c.state = StateErrorAbort
		c.TickLater()

		return handle, nil
	}

	txn.target = entry
	c.txn = txn
	c.state = StateRequestingBus
	c.TickLater()

	return handle, nil
}

// Poll reports the outcome of a transaction. A terminal result is removed
// when it is reported, so polling the same handle again returns
// ErrTransactionNotFound.
func (c *Comp) Poll(handle TransactionHandle) (Result, error) {
	c.Lock()
	defer c.Unlock()

	if result, ok := c.completed[handle]; ok {
		delete(c.completed, handle)
		return result, nil
	}

	if c.txn != nil && c.txn.handle == handle {
		return Result{Status: StatusPending}, nil
	}

	return Result{}, ErrTransactionNotFound
}
