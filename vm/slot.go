package vm

import "strings"

// Slot is a named field of a class's instances.
type Slot struct {
	Name    *Selector
	Access  Access
	Mutable bool
	Type    Type      // nil when untyped
	Init    Invokable // nil when there is no initializer expression
	Source  SourceSection

	index  int // position among the declaring class's own slots
	nested *ClassDescriptor
}

// Index returns the slot's position among its class's own slots.
func (s *Slot) Index() int { return s.index }

// IsClassSlot reports whether the slot caches a nested class.
func (s *Slot) IsClassSlot() bool { return s.nested != nil }

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Type is a declared slot type. Types are only consulted when type checking
// is enabled.
type Type interface {
	Name() string
	Accepts(rt *Runtime, v Value) bool
}

// StructuralType is satisfied by any value whose class understands every
// one of its selectors.
type StructuralType struct {
	name       string
	signatures []*Selector
}

// NewStructuralType creates a structural type from selector names.
func NewStructuralType(name string, selectors ...string) *StructuralType {
	return &StructuralType{name: name, signatures: Selectors.InternAll(selectors...)}
}

func (t *StructuralType) Name() string { return t.name }

// Signatures returns the selectors a conforming value must understand.
func (t *StructuralType) Signatures() []*Selector { return t.signatures }

func (t *StructuralType) Accepts(rt *Runtime, v Value) bool {
	table := rt.ClassOf(v).Table()
	for _, sig := range t.signatures {
		if !table.Has(sig) {
			return false
		}
	}
	return true
}

func (t *StructuralType) String() string {
	names := make([]string, len(t.signatures))
	for i, s := range t.signatures {
		names[i] = s.Name()
	}
	return t.name + "<" + strings.Join(names, " ") + ">"
}

// ClassType is satisfied by instances of the named class or its subclasses.
type ClassType struct {
	ClassName string
}

func (t ClassType) Name() string { return t.ClassName }

func (t ClassType) Accepts(rt *Runtime, v Value) bool {
	for c := rt.ClassOf(v); c != nil; c = c.Superclass() {
		if c.Name() == t.ClassName {
			return true
		}
	}
	return false
}

// checkType wraps Type.Accepts into an error.
func checkType(rt *Runtime, t Type, v Value, src SourceSection) error {
	if t == nil || t.Accepts(rt, v) {
		return nil
	}
	return &TypeError{Expected: t.Name(), Actual: v, Source: src}
}
