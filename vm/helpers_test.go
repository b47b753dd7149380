package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	return New(DefaultOptions())
}

func src(line int) SourceSection {
	return SourceSection{File: "test.ns", Line: line, Column: 1}
}

func mustAssemble(t *testing.T, b *ClassBuilder) *ClassDescriptor {
	t.Helper()
	d, err := b.Assemble()
	if err != nil {
		t.Fatalf("Assemble(%s): %v", b.Name(), err)
	}
	return d
}

func mustInstantiate(t *testing.T, rt *Runtime, d *ClassDescriptor, enclosing Value) *Class {
	t.Helper()
	cls, err := d.Instantiate(rt, enclosing)
	if err != nil {
		t.Fatalf("Instantiate(%s): %v", d.Name(), err)
	}
	return cls
}

func mustSend(t *testing.T, rt *Runtime, selector string, receiver Value, args ...Value) Value {
	t.Helper()
	v, err := rt.Perform(Sym(selector), receiver, args...)
	if err != nil {
		t.Fatalf("%s #%s: %v", Describe(receiver), selector, err)
	}
	return v
}

func mustNew(t *testing.T, rt *Runtime, cls *Class) *Object {
	t.Helper()
	obj, ok := mustSend(t, rt, "new", cls).(*Object)
	if !ok {
		t.Fatalf("%s new did not answer an object", cls.Name())
	}
	return obj
}

func mustDeclare(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("declaration failed: %v", err)
	}
}

// constant returns a method body that answers v.
func constant(v Value) Invokable {
	return func(*Runtime, Value, []Value) (Value, error) { return v, nil }
}

// pointClass defines Point with mutable slots x and y and a + method that
// answers the sum of both x coordinates.
func pointClass(t *testing.T, rt *Runtime) *Class {
	t.Helper()
	b := rt.NewClassBuilder("Point", nil, src(1))
	mustDeclare(t, b.DeclareSlot(SlotDecl{Name: "x", Mutable: true, Source: src(2)}))
	mustDeclare(t, b.DeclareSlot(SlotDecl{Name: "y", Mutable: true, Source: src(3)}))
	mustDeclare(t, b.DeclareMethod(Sym("+"), Public, func(rt *Runtime, self Value, args []Value) (Value, error) {
		x1, err := rt.Perform(Sym("x"), self)
		if err != nil {
			return nil, err
		}
		x2, err := rt.Perform(Sym("x"), args[0])
		if err != nil {
			return nil, err
		}
		return rt.Perform(Sym("+"), x1, x2)
	}, src(4)))
	return mustInstantiate(t, rt, mustAssemble(t, b), nil)
}

func newPoint(t *testing.T, rt *Runtime, cls *Class, x, y int64) *Object {
	t.Helper()
	p := mustNew(t, rt, cls)
	mustSend(t, rt, "x:", p, x)
	mustSend(t, rt, "y:", p, y)
	return p
}

// shapeClasses defines n unrelated classes that all understand #shape,
// each answering its own index.
func shapeClasses(t *testing.T, rt *Runtime, n int) []*Class {
	t.Helper()
	classes := make([]*Class, n)
	for i := range classes {
		b := rt.NewClassBuilder("Shape"+string(rune('A'+i)), nil, src(10+i))
		mustDeclare(t, b.DeclareMethod(Sym("shape"), Public, constant(int64(i)), src(10+i)))
		classes[i] = mustInstantiate(t, rt, mustAssemble(t, b), nil)
	}
	return classes
}

func literalBlock(name string, result Value) *Block {
	return NewBlock(&BlockMethod{Name: name, Arity: 0, Body: constant(result)}, Nil)
}
