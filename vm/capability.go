package vm

import "fmt"

// Invokable is an opaque executable body: a method, an initializer
// expression or a block. The front end builds these from expression trees.
type Invokable func(rt *Runtime, self Value, args []Value) (Value, error)

// CapabilityKind tags the closed set of behaviors a selector can resolve to.
type CapabilityKind uint8

const (
	KindMethod      CapabilityKind = iota // Executable body
	KindSlotRead                          // Read of an object slot
	KindSlotWrite                         // Write of an object slot
	KindNestedClass                       // Accessor for a nested class
)

func (k CapabilityKind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindSlotRead:
		return "slot"
	case KindSlotWrite:
		return "slot mutator"
	case KindNestedClass:
		return "class"
	}
	return fmt.Sprintf("CapabilityKind(%d)", uint8(k))
}

// Access is the visibility of a slot or method.
type Access uint8

const (
	Public Access = iota
	Protected
	Private
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return fmt.Sprintf("Access(%d)", uint8(a))
}

// Capability is the behavior behind a selector in a dispatch table.
//
// It is a closed variant: the kind decides which fields are meaningful, and
// every kind is invoked through Invoke. Capabilities are immutable once their
// holder has been assembled.
type Capability struct {
	kind     CapabilityKind
	selector *Selector
	access   Access
	holder   *ClassDescriptor

	// KindMethod
	body  Invokable
	arity int

	// KindSlotRead, KindSlotWrite, KindNestedClass
	slot  *Slot
	index int // among the holder's own slots

	// KindNestedClass
	nested *ClassDescriptor
}

// Kind returns the variant tag.
func (c *Capability) Kind() CapabilityKind { return c.kind }

// Selector returns the selector the capability is installed under.
func (c *Capability) Selector() *Selector { return c.selector }

// Access returns the declared visibility.
func (c *Capability) Access() Access { return c.access }

// Holder returns the class descriptor that declared this capability.
// It is nil only for capabilities that were never assembled into a class.
func (c *Capability) Holder() *ClassDescriptor { return c.holder }

// Slot returns the slot a slot accessor reads or writes, or nil.
func (c *Capability) Slot() *Slot { return c.slot }

// Index returns the position of the accessed slot among the holder's own
// slots. The object index also depends on the receiver's layout.
func (c *Capability) Index() int { return c.index }

// NestedClass returns the descriptor of a nested-class accessor, or nil.
func (c *Capability) NestedClass() *ClassDescriptor { return c.nested }

// Arity returns the number of arguments the capability expects.
func (c *Capability) Arity() int {
	switch c.kind {
	case KindMethod:
		return c.arity
	case KindSlotWrite:
		return 1
	}
	return 0
}

func (c *Capability) String() string {
	if c.holder != nil {
		return fmt.Sprintf("%s %s>>#%s", c.kind, c.holder.Name(), c.selector.Name())
	}
	return fmt.Sprintf("%s #%s", c.kind, c.selector.Name())
}

// Invoke runs the capability against receiver with args.
func (c *Capability) Invoke(rt *Runtime, receiver Value, args []Value) (Value, error) {
	switch c.kind {
	case KindMethod:
		if c.arity >= 0 && len(args) != c.arity {
			return nil, &ArityError{Selector: c.selector, Want: c.arity, Got: len(args)}
		}
		return c.body(rt, receiver, args)

	case KindSlotRead:
		obj, index, err := c.object(receiver)
		if err != nil {
			return nil, err
		}
		return obj.GetSlot(index), nil

	case KindSlotWrite:
		if len(args) != 1 {
			return nil, &ArityError{Selector: c.selector, Want: 1, Got: len(args)}
		}
		obj, index, err := c.object(receiver)
		if err != nil {
			return nil, err
		}
		obj.SetSlot(index, args[0])
		return args[0], nil

	case KindNestedClass:
		obj, index, err := c.object(receiver)
		if err != nil {
			return nil, err
		}
		if cached, ok := obj.GetSlot(index).(*Class); ok {
			return cached, nil
		}
		cls, err := c.nested.Instantiate(rt, receiver)
		if err != nil {
			return nil, err
		}
		obj.SetSlot(index, cls)
		return cls, nil
	}
	return nil, fmt.Errorf("vm: unknown capability kind %d", c.kind)
}

// object returns receiver as an object together with the index of the
// accessed slot in its layout. The holder's slots start at the offset of the
// class built from the holder in the receiver's superclass chain.
func (c *Capability) object(receiver Value) (*Object, int, error) {
	obj, ok := receiver.(*Object)
	if !ok {
		return nil, 0, &PrimitiveError{Selector: c.selector, Message: Describe(receiver) + " has no slots"}
	}
	owner := obj.class.classFor(c.holder)
	if c.holder == nil || owner == nil {
		return nil, 0, &PrimitiveError{Selector: c.selector, Message: Describe(receiver) + " is not an instance of " + c.holderName()}
	}
	index := owner.slotOffset + c.index
	if index < 0 || index >= obj.NumSlots() {
		return nil, 0, &PrimitiveError{Selector: c.selector, Message: "slot index out of range"}
	}
	return obj, index, nil
}

func (c *Capability) holderName() string {
	if c.holder == nil {
		return "an assembled class"
	}
	return c.holder.Name()
}
