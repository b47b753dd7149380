package vm

import (
	"errors"
	"testing"
)

// greeterClasses defines Base and Derived, both answering #greet.
func greeterClasses(t *testing.T, rt *Runtime) (base, derived *Class) {
	t.Helper()
	bb := rt.NewClassBuilder("Base", nil, src(1))
	mustDeclare(t, bb.DeclareMethod(Sym("greet"), Public, constant("base"), src(2)))
	base = mustInstantiate(t, rt, mustAssemble(t, bb), nil)

	db := rt.NewClassBuilder("Derived", nil, src(3))
	db.SetSimpleInheritance(func(*Runtime, Value) (*Class, error) { return base, nil })
	mustDeclare(t, db.DeclareMethod(Sym("greet"), Public, constant("derived"), src(4)))
	derived = mustInstantiate(t, rt, mustAssemble(t, db), nil)
	return base, derived
}

func TestSuperCallSite(t *testing.T) {
	rt := newTestRuntime(t)
	base, derived := greeterClasses(t, rt)
	d := mustNew(t, rt, derived)
	b := mustNew(t, rt, base)

	if got := mustSend(t, rt, "greet", d); got != "derived" {
		t.Fatalf("greet = %v", got)
	}

	site := rt.NewSuperCallSite(Sym("greet"))
	for _, recv := range []Value{d, b, d} {
		v, err := site.Dispatch(rt, base, recv)
		if err != nil {
			t.Fatal(err)
		}
		if v != "base" {
			t.Errorf("super greet = %v, want base", v)
		}
	}
	if site.LengthOfDispatchChain() != 1 {
		t.Errorf("LengthOfDispatchChain() = %d, want 1", site.LengthOfDispatchChain())
	}
	stats := site.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Specializations != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if supers := site.RealSuperSends(); len(supers) != 1 || !supers[base] {
		t.Errorf("RealSuperSends() = %v, want {Base: true}", supers)
	}
}

func TestSuperCallSiteSendsNormallyForOwnClass(t *testing.T) {
	rt := newTestRuntime(t)
	base, derived := greeterClasses(t, rt)
	b := mustNew(t, rt, base)
	d := mustNew(t, rt, derived)

	site := rt.NewSuperCallSite(Sym("greet"))
	if v, err := site.Dispatch(rt, base, b); err != nil || v != "base" {
		t.Fatalf("greet on Base = %v, %v", v, err)
	}
	if supers := site.RealSuperSends(); len(supers) != 1 || supers[base] {
		t.Fatalf("RealSuperSends() = %v, want {Base: false}", supers)
	}

	// The entry was not created by a real super send, so a subclass
	// instance hitting it is dispatched by its own class.
	if v, err := site.Dispatch(rt, base, d); err != nil || v != "derived" {
		t.Errorf("greet on Derived = %v, %v; want derived", v, err)
	}
	stats := site.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestSuperCallSiteKeyedByLookupClass(t *testing.T) {
	rt := newTestRuntime(t)
	parent := func(name string) *Class {
		b := rt.NewClassBuilder(name, nil, src(1))
		mustDeclare(t, b.DeclareMethod(Sym("origin"), Public, constant(name), src(2)))
		return mustInstantiate(t, rt, mustAssemble(t, b), nil)
	}
	left, right := parent("Left"), parent("Right")

	site := rt.NewSuperCallSite(Sym("origin"))
	b := rt.NewClassBuilder("Child", nil, src(3))
	b.SetSimpleInheritance(func(_ *Runtime, enclosing Value) (*Class, error) {
		return enclosing.(*Class), nil
	})
	var holder *ClassDescriptor
	mustDeclare(t, b.DeclareMethod(Sym("origin"), Public, func(rt *Runtime, self Value, _ []Value) (Value, error) {
		return site.Dispatch(rt, rt.SuperLookupClass(holder, self), self)
	}, src(4)))
	holder = mustAssemble(t, b)

	for _, tt := range []struct {
		super *Class
		want  string
	}{{left, "Left"}, {right, "Right"}, {left, "Left"}} {
		child := mustInstantiate(t, rt, holder, tt.super)
		if got := mustSend(t, rt, "origin", mustNew(t, rt, child)); got != tt.want {
			t.Errorf("origin via %s = %v", tt.super.Name(), got)
		}
	}
	if site.LengthOfDispatchChain() != 2 {
		t.Errorf("LengthOfDispatchChain() = %d, want 2", site.LengthOfDispatchChain())
	}
	supers := site.RealSuperSends()
	if !supers[left] || !supers[right] {
		t.Errorf("RealSuperSends() = %v", supers)
	}
}

func TestPerformInSuperclass(t *testing.T) {
	rt := newTestRuntime(t)
	base, derived := greeterClasses(t, rt)
	d := mustNew(t, rt, derived)

	if lookup := rt.SuperLookupClass(derived.Descriptor(), d); lookup != base {
		t.Fatalf("SuperLookupClass() = %v, want Base", lookup)
	}
	v, err := rt.PerformInSuperclass(Sym("greet"), d, base)
	if err != nil || v != "base" {
		t.Errorf("PerformInSuperclass = %v, %v", v, err)
	}
	v, err = rt.PerformInSuperclass(Sym("printString"), d, rt.Kernel().Object)
	if err != nil || v != "a Derived" {
		t.Errorf("PerformInSuperclass printString = %v, %v", v, err)
	}
	if _, err := rt.PerformInSuperclass(Sym("greet"), d, nil); !errors.Is(err, ErrNotUnderstood) {
		t.Errorf("nil lookup class: got %v", err)
	}
	if _, err := rt.PerformInSuperclass(Sym("greet"), d, rt.Kernel().Object); !errors.Is(err, ErrNotUnderstood) {
		t.Errorf("Object does not understand greet: got %v", err)
	}
}

func TestSuperInitializerChain(t *testing.T) {
	rt := newTestRuntime(t)

	bb := rt.NewClassBuilder("Base", nil, src(1))
	mustDeclare(t, bb.DeclareSlot(SlotDecl{Name: "a", Init: constant(int64(1)), Source: src(2)}))
	base := mustInstantiate(t, rt, mustAssemble(t, bb), nil)

	// Middle adds nothing, so its initializer is elided and the send from
	// Leaf reaches Base directly.
	mb := rt.NewClassBuilder("Middle", nil, src(3))
	mb.SetSimpleInheritance(func(*Runtime, Value) (*Class, error) { return base, nil })
	middleDesc := mustAssemble(t, mb)
	middle := mustInstantiate(t, rt, middleDesc, nil)

	lb := rt.NewClassBuilder("Leaf", nil, src(4))
	lb.SetSimpleInheritance(func(*Runtime, Value) (*Class, error) { return middle, nil })
	mustDeclare(t, lb.DeclareSlot(SlotDecl{Name: "c", Init: constant(int64(3)), Source: src(5)}))
	leaf := mustInstantiate(t, rt, mustAssemble(t, lb), nil)

	if middleDesc.Initializer() != nil {
		t.Error("Middle's initializer should be elided")
	}
	obj := mustNew(t, rt, leaf)
	if got := mustSend(t, rt, "a", obj); got != int64(1) {
		t.Errorf("a = %v, want 1", got)
	}
	if got := mustSend(t, rt, "c", obj); got != int64(3) {
		t.Errorf("c = %v, want 3", got)
	}
}

// ---------------------------------------------------------------------------
// Block call sites
// ---------------------------------------------------------------------------

func TestBlockCallSite(t *testing.T) {
	rt := newTestRuntime(t)
	site := rt.NewBlockCallSite(1)
	if site.LengthOfDispatchChain() != 0 {
		t.Fatal("unused block site should report 0")
	}

	double := NewBlockFunc(1, func(rt *Runtime, args []Value) (Value, error) {
		return rt.Perform(Sym("*"), args[0], int64(2))
	})
	v, err := site.Dispatch(rt, double, int64(21))
	if err != nil || v != int64(42) {
		t.Fatalf("block value: = %v, %v", v, err)
	}
	if site.LengthOfDispatchChain() != GenericChainLength {
		t.Errorf("LengthOfDispatchChain() = %d, want %d", site.LengthOfDispatchChain(), GenericChainLength)
	}

	b := rt.NewClassBuilder("Callable", nil, src(1))
	mustDeclare(t, b.DeclareMethod(Sym("value:"), Public, constant("called"), src(2)))
	callable := mustNew(t, rt, mustInstantiate(t, rt, mustAssemble(t, b), nil))
	if v, err := site.Dispatch(rt, callable, int64(1)); err != nil || v != "called" {
		t.Errorf("non-block receiver: %v, %v", v, err)
	}
	if _, err := site.Dispatch(rt, int64(5), int64(1)); !errors.Is(err, ErrNotUnderstood) {
		t.Errorf("integer value: should not be understood, got %v", err)
	}

	stats := site.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("stats = %+v", stats)
	}

	var arityErr *ArityError
	if _, err := site.Dispatch(rt, double); !errors.As(err, &arityErr) {
		t.Errorf("wrong argument count: got %v", err)
	}
}
