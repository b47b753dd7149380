package vm

import "sync/atomic"

var descriptorIDs atomic.Int64

// ClassDescriptor is the assembled, immutable definition of a class: its own
// slot layout, its own instance-side and class-side dispatch tables, its
// superclass and mixin resolution procedure, and its initializer.
//
// A descriptor is shared by every runtime class created from it. Its tables
// only hold what the class itself declares; a runtime Class combines them
// with whatever the late-bound superclass and mixins provide.
type ClassDescriptor struct {
	id     int
	name   string
	source SourceSection
	access Access
	outer  Scope
	root   bool

	slots    []*Slot
	instance *DispatchTable
	factory  *DispatchTable
	nested   []*ClassDescriptor

	resolve ResolutionProcedure

	initializer      *Capability // nil when elided
	mixinInitializer *Capability
	primaryFactory   *Selector
	shadowed         map[*Selector]*Selector

	allSlotsImmutable bool
	valueClass        bool
	mixinCount        int
}

// ID returns a process-unique number for the descriptor.
func (d *ClassDescriptor) ID() int { return d.id }

// Name returns the class name.
func (d *ClassDescriptor) Name() string { return d.name }

// Source returns where the class was declared.
func (d *ClassDescriptor) Source() SourceSection { return d.source }

// Access returns the visibility of the class.
func (d *ClassDescriptor) Access() Access { return d.access }

// Slots returns the slots declared by the class itself, in layout order.
func (d *ClassDescriptor) Slots() []*Slot { return d.slots }

// NumSlots returns the number of slots the class itself declares.
func (d *ClassDescriptor) NumSlots() int { return len(d.slots) }

// InstanceTable returns the instance-side capabilities the class declares.
func (d *ClassDescriptor) InstanceTable() *DispatchTable { return d.instance }

// FactoryTable returns the class-side capabilities the class declares.
func (d *ClassDescriptor) FactoryTable() *DispatchTable { return d.factory }

// NestedClasses returns the descriptors of directly nested classes.
func (d *ClassDescriptor) NestedClasses() []*ClassDescriptor { return d.nested }

// PrimaryFactory returns the selector of the primary factory method.
func (d *ClassDescriptor) PrimaryFactory() *Selector { return d.primaryFactory }

// Initializer returns the synthesized initializer, or nil when it was
// elided in favor of the inherited one.
func (d *ClassDescriptor) Initializer() *Capability { return d.initializer }

// InitializerSelector returns the selector instances are initialized with.
func (d *ClassDescriptor) InitializerSelector() *Selector {
	return InitializerName(d.primaryFactory)
}

// ShadowedFactory returns the selector a user-declared factory method was
// moved to because the primary factory took its name, or nil.
func (d *ClassDescriptor) ShadowedFactory(selector *Selector) *Selector {
	return d.shadowed[selector]
}

// IsValueClass reports whether instances are checked to hold only values.
func (d *ClassDescriptor) IsValueClass() bool { return d.valueClass }

// IsImmutable reports whether every slot is immutable and the enclosing
// scope is immutable. Top-level classes only depend on their own slots.
func (d *ClassDescriptor) IsImmutable() bool {
	if !d.allSlotsImmutable {
		return false
	}
	if d.outer != nil {
		return d.outer.IsImmutable()
	}
	return true
}

// Resolve looks selector up among the instance-side capabilities the class
// declares. Inherited behavior is only visible through a runtime Class.
func (d *ClassDescriptor) Resolve(selector *Selector) *Capability {
	return d.instance.Resolve(selector)
}

// ResolveFactory looks selector up among the class-side capabilities.
func (d *ClassDescriptor) ResolveFactory(selector *Selector) *Capability {
	return d.factory.Resolve(selector)
}

func (d *ClassDescriptor) String() string {
	return "ClassDescriptor(" + d.name + ")"
}
