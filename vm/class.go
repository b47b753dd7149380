package vm

import (
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// Class: a descriptor instantiated against a concrete superclass
// ---------------------------------------------------------------------------

// Class is the runtime class produced from a ClassDescriptor once its
// superclass and mixins have been resolved. Its dispatch table is flat: the
// superclass's table, then each mixin application, then the descriptor's own
// capabilities, later entries overriding earlier ones.
//
// The same descriptor can yield several classes, e.g. a nested class whose
// superclass expression depends on the enclosing object. Instances are
// guarded by their *Class.
type Class struct {
	name       string
	descriptor *ClassDescriptor
	superclass *Class
	enclosing  Value
	table      *DispatchTable
	meta       *Class

	numSlots   int
	slotOffset int // index of the first slot the descriptor declares
	mixin      bool
}

// Instantiate resolves the superclass and mixins in the context of
// enclosing and builds the runtime class. Each mixin becomes an intermediate
// class between the superclass and the result.
func (d *ClassDescriptor) Instantiate(rt *Runtime, enclosing Value) (*Class, error) {
	var super *Class
	var mixins []*Class
	if d.resolve != nil {
		s, m, err := d.resolve(rt, enclosing)
		if err != nil {
			return nil, err
		}
		super, mixins = s, m
	}
	for _, m := range mixins {
		super = newClass(rt, m.descriptor, super, m.enclosing, true)
	}
	cls := newClass(rt, d, super, enclosing, false)
	log.Debugf("instantiated %s (superclass %s, %d mixins, %d selectors)",
		cls.name, super, len(mixins), cls.table.Len())
	return cls, nil
}

func newClass(rt *Runtime, d *ClassDescriptor, super *Class, enclosing Value, mixin bool) *Class {
	tb := newTableBuilder()
	offset := 0
	if super != nil {
		tb.putAll(super.table)
		offset = super.numSlots
	}
	d.instance.Each(func(c *Capability) {
		// A mixin's own initializer would shadow the one of the class it
		// is applied to; it is reached under its mixin name instead.
		if mixin && c == d.initializer {
			return
		}
		tb.put(c)
	})

	name := d.name
	if mixin {
		name = d.name + " mixin"
	}
	cls := &Class{
		name:       name,
		descriptor: d,
		superclass: super,
		enclosing:  enclosing,
		table:      tb.freeze(),
		numSlots:   offset + len(d.slots),
		slotOffset: offset,
		mixin:      mixin,
	}
	cls.meta = newMetaclass(rt, cls)
	return cls
}

// newMetaclass builds the class side: the behavior every class object has,
// plus the descriptor's factory methods. Factory methods are not inherited.
func newMetaclass(rt *Runtime, cls *Class) *Class {
	tb := newTableBuilder()
	var super *Class
	if rt != nil && rt.kernel.Class != nil {
		super = rt.kernel.Class
		tb.putAll(super.table)
	}
	cls.descriptor.factory.Each(tb.put)
	return &Class{
		name:       cls.name + " class",
		descriptor: cls.descriptor,
		superclass: super,
		table:      tb.freeze(),
	}
}

// Name returns the class name.
func (c *Class) Name() string {
	if c == nil {
		return "<no class>"
	}
	return c.name
}

// Descriptor returns the assembled definition the class was built from.
func (c *Class) Descriptor() *ClassDescriptor { return c.descriptor }

// Superclass returns the resolved superclass, or nil for the root.
func (c *Class) Superclass() *Class { return c.superclass }

// Enclosing returns the object the class was instantiated in.
func (c *Class) Enclosing() Value { return c.enclosing }

// Table returns the flat instance-side dispatch table.
func (c *Class) Table() *DispatchTable { return c.table }

// Meta returns the class-side class, whose table holds the factory methods.
func (c *Class) Meta() *Class { return c.meta }

// NumSlots returns the number of slots of an instance, inherited included.
func (c *Class) NumSlots() int { return c.numSlots }

// IsMixinApplication reports whether the class is an intermediate class
// created by applying a mixin.
func (c *Class) IsMixinApplication() bool { return c.mixin }

// Lookup resolves selector in the class's flat table.
func (c *Class) Lookup(selector *Selector) *Capability {
	return c.table.Resolve(selector)
}

// NewInstance allocates an uninitialized instance.
func (c *Class) NewInstance() *Object {
	return NewObject(c)
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.superclass {
		if current == other {
			return true
		}
	}
	return false
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.superclass; current != nil; current = current.superclass {
		result = append(result, current)
	}
	return result
}

// Depth returns the inheritance depth (0 for root class).
func (c *Class) Depth() int {
	return len(c.Superclasses())
}

func (c *Class) String() string {
	return c.Name()
}

// classFor returns the class in c's superclass chain that was built from
// holder, or nil.
func (c *Class) classFor(holder *ClassDescriptor) *Class {
	for current := c; current != nil; current = current.superclass {
		if current.descriptor == holder {
			return current
		}
	}
	return nil
}

// mixinApplication returns the class created for the i-th mixin applied
// below c, counting in application order.
func (c *Class) mixinApplication(i int) *Class {
	n := c.descriptor.mixinCount
	if i < 0 || i >= n {
		return nil
	}
	current := c
	for k := 0; k < n-i && current != nil; k++ {
		current = current.superclass
	}
	if current == nil || !current.mixin {
		return nil
	}
	return current
}

// slotName returns the name of the slot at index, for diagnostics.
func (c *Class) slotName(index int) string {
	for current := c; current != nil; current = current.superclass {
		own := index - current.slotOffset
		if own >= 0 && own < len(current.descriptor.slots) {
			return current.descriptor.slots[own].Name.Name()
		}
	}
	return "?"
}

// ---------------------------------------------------------------------------
// ClassTable: registry of named classes
// ---------------------------------------------------------------------------

// ClassTable manages registered classes by name.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	old := ct.classes[c.name]
	ct.classes[c.name] = c
	return old
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// Has returns true if a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[name]
	return ok
}

// All returns all registered classes, sorted by name.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}
