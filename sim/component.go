package sim

import "sync"

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Component is an element that is being simulated.
type Component interface {
	Named
	Handler
	Hookable
	PortOwner

	// NotifyRecv lets the component know that a port received a message.
	NotifyRecv(port Port)

	// NotifyPortFree lets the component know that an outgoing buffer slot
	// freed up on a port.
	NotifyPortFree(port Port)
}

// ComponentBase provides the common fields of components.
type ComponentBase struct {
	HookableBase
	*PortOwnerBase
	sync.Mutex

	name string
}

// NewComponentBase creates a new ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name
	c.PortOwnerBase = NewPortOwnerBase()
	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
