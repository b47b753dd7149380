package vm

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

func TestKernelHierarchy(t *testing.T) {
	rt := newTestRuntime(t)
	k := rt.Kernel()

	tests := []struct {
		value Value
		class *Class
	}{
		{int64(1), k.Integer},
		{new(big.Int).Lsh(big.NewInt(1), 70), k.LargeInteger},
		{1.5, k.Double},
		{true, k.True},
		{false, k.False},
		{"s", k.String},
		{Sym("s"), k.Symbol},
		{Nil, k.Nil},
		{NewArray(0), k.Array},
		{literalBlock("b", Nil), k.Block},
	}
	for _, tt := range tests {
		if got := rt.ClassOf(tt.value); got != tt.class {
			t.Errorf("ClassOf(%s) = %v, want %v", Describe(tt.value), got, tt.class)
		}
	}

	if !k.LargeInteger.IsSubclassOf(k.Integer) || !k.True.IsSubclassOf(k.Boolean) || !k.Symbol.IsSubclassOf(k.String) {
		t.Error("kernel subclass relations are wrong")
	}
	if k.Object.Superclass() != nil || k.Object.Depth() != 0 {
		t.Error("Object must be the root")
	}
	if got := rt.ClassOf(k.Integer); got != k.Integer.Meta() || got.Name() != "Integer class" {
		t.Errorf("ClassOf(Integer) = %v", got)
	}
	if !rt.Classes.Has("Object") || rt.Classes.Lookup("LargeInteger") != k.LargeInteger {
		t.Error("kernel classes should be registered")
	}
}

func TestMetaclassFactories(t *testing.T) {
	rt := newTestRuntime(t)
	base := rt.NewClassBuilder("Base", nil, src(1))
	mustDeclare(t, base.DeclareFactoryMethod(Sym("origin"), Public, constant("base factory"), src(2)))
	baseClass := mustInstantiate(t, rt, mustAssemble(t, base), nil)

	sub := rt.NewClassBuilder("Sub", nil, src(3))
	sub.SetSimpleInheritance(func(*Runtime, Value) (*Class, error) { return baseClass, nil })
	subClass := mustInstantiate(t, rt, mustAssemble(t, sub), nil)

	if got := mustSend(t, rt, "origin", baseClass); got != "base factory" {
		t.Errorf("Base origin = %v", got)
	}
	if subClass.Meta().Lookup(Sym("origin")) != nil {
		t.Error("factory methods must not be inherited")
	}
	if got := mustSend(t, rt, "name", subClass); got != Sym("Sub") {
		t.Errorf("Sub name = %v", got)
	}
	if got := mustSend(t, rt, "superclass", subClass); got != baseClass {
		t.Errorf("Sub superclass = %v", got)
	}
	if got := mustSend(t, rt, "superclass", rt.Kernel().Object); !IsNil(got) {
		t.Errorf("Object superclass = %v", got)
	}
	if got := mustSend(t, rt, "class", mustNew(t, rt, subClass)); got != subClass {
		t.Errorf("instance class = %v", got)
	}
}

func TestClassTable(t *testing.T) {
	ct := NewClassTable()
	rt := newTestRuntime(t)
	a := mustInstantiate(t, rt, mustAssemble(t, rt.NewClassBuilder("Alpha", nil, src(1))), nil)
	b := mustInstantiate(t, rt, mustAssemble(t, rt.NewClassBuilder("Beta", nil, src(2))), nil)
	a2 := mustInstantiate(t, rt, mustAssemble(t, rt.NewClassBuilder("Alpha", nil, src(3))), nil)

	if old := ct.Register(b); old != nil {
		t.Error("first registration should return nil")
	}
	ct.Register(a)
	if old := ct.Register(a2); old != a {
		t.Error("re-registration should return the replaced class")
	}
	if ct.Len() != 2 || ct.Lookup("Alpha") != a2 || ct.Has("Gamma") {
		t.Error("unexpected table contents")
	}
	var names []string
	for _, c := range ct.All() {
		names = append(names, c.Name())
	}
	if diff := cmp.Diff([]string{"Alpha", "Beta"}, names); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectSlots(t *testing.T) {
	rt := newTestRuntime(t)
	b := rt.NewClassBuilder("Wide", nil, src(1))
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		mustDeclare(t, b.DeclareSlot(SlotDecl{Name: name, Mutable: true, Source: src(2)}))
	}
	cls := mustInstantiate(t, rt, mustAssemble(t, b), nil)
	obj := mustNew(t, rt, cls)

	if obj.NumSlots() != 6 {
		t.Fatalf("NumSlots() = %d, want 6", obj.NumSlots())
	}
	for i := 0; i < obj.NumSlots(); i++ {
		if !IsNil(obj.GetSlot(i)) {
			t.Errorf("slot %d = %v, want nil", i, obj.GetSlot(i))
		}
	}
	mustSend(t, rt, "f:", obj, "last")
	mustSend(t, rt, "b:", obj, "second")
	if obj.GetSlot(5) != "last" || obj.GetSlot(1) != "second" {
		t.Errorf("slots = %v, %v", obj.GetSlot(1), obj.GetSlot(5))
	}
}

// ---------------------------------------------------------------------------
// Slot capabilities
// ---------------------------------------------------------------------------

// point3DClass extends Point with a mutable slot z.
func point3DClass(t *testing.T, rt *Runtime, point *Class) *Class {
	t.Helper()
	b := rt.NewClassBuilder("Point3D", nil, src(20))
	b.SetSimpleInheritance(func(*Runtime, Value) (*Class, error) { return point, nil })
	mustDeclare(t, b.DeclareSlot(SlotDecl{Name: "z", Mutable: true, Source: src(21)}))
	return mustInstantiate(t, rt, mustAssemble(t, b), nil)
}

func TestDescriptorSlotCapabilityOnSubclass(t *testing.T) {
	rt := newTestRuntime(t)
	point := pointClass(t, rt)
	point3D := point3DClass(t, rt, point)

	p := newPoint(t, rt, point3D, 11, 22)
	mustSend(t, rt, "z:", p, int64(33))

	tests := []struct {
		desc     *ClassDescriptor
		selector string
		want     Value
	}{
		{point3D.Descriptor(), "z", int64(33)},
		{point.Descriptor(), "x", int64(11)},
		{point.Descriptor(), "y", int64(22)},
	}
	for _, tt := range tests {
		v, err := tt.desc.Resolve(Sym(tt.selector)).Invoke(rt, p, nil)
		if err != nil || v != tt.want {
			t.Errorf("%s>>#%s = %v, %v; want %v", tt.desc.Name(), tt.selector, v, err, tt.want)
		}
	}

	if _, err := point3D.Descriptor().Resolve(Sym("z:")).Invoke(rt, p, []Value{int64(44)}); err != nil {
		t.Fatal(err)
	}
	if got := mustSend(t, rt, "z", p); got != int64(44) {
		t.Errorf("z = %v after the descriptor's setter, want 44", got)
	}
	if got := mustSend(t, rt, "x", p); got != int64(11) {
		t.Errorf("x = %v, want 11", got)
	}
}

func TestSlotCapabilityOnForeignReceiver(t *testing.T) {
	rt := newTestRuntime(t)
	point := pointClass(t, rt)
	empty := mustInstantiate(t, rt, mustAssemble(t, rt.NewClassBuilder("Empty", nil, src(30))), nil)
	e := mustNew(t, rt, empty)

	var primErr *PrimitiveError
	if _, err := rt.PerformInSuperclass(Sym("x"), e, point); !errors.As(err, &primErr) {
		t.Errorf("PerformInSuperclass(#x) on Empty: got %v, want a PrimitiveError", err)
	}
	if _, err := point.Descriptor().Resolve(Sym("x:")).Invoke(rt, e, []Value{int64(1)}); !errors.As(err, &primErr) {
		t.Errorf("x: on Empty: got %v, want a PrimitiveError", err)
	}
	if _, err := point.Descriptor().Resolve(Sym("y")).Invoke(rt, int64(5), nil); !errors.As(err, &primErr) {
		t.Errorf("y on an integer: got %v, want a PrimitiveError", err)
	}
}

// ---------------------------------------------------------------------------
// Kernel primitives
// ---------------------------------------------------------------------------

func TestKernelPrimitives(t *testing.T) {
	rt := newTestRuntime(t)
	arr := NewArrayWithElements(int64(1), int64(2), int64(3))
	var sum int64
	adder := NewBlockFunc(1, func(_ *Runtime, args []Value) (Value, error) {
		sum += args[0].(int64)
		return Nil, nil
	})

	tests := []struct {
		name     string
		selector string
		receiver Value
		args     []Value
		want     Value
	}{
		{"string concat", ",", "ab", []Value{"cd"}, "abcd"},
		{"string length", "length", "hello", nil, int64(5)},
		{"string prefix", "beginsWith:", "hello", []Value{"he"}, true},
		{"symbol arity", "numArgs", Sym("at:put:"), nil, int64(2)},
		{"symbol identity", "=", Sym("x"), []Value{Sym("x")}, true},
		{"as symbol", "asSymbol", "foo", nil, Sym("foo")},
		{"integer print", "printString", int64(-42), nil, "-42"},
		{"negated", "negated", int64(5), nil, int64(-5)},
		{"as double", "asDouble", int64(3), nil, 3.0},
		{"double truncation", "asInteger", 3.7, nil, int64(3)},
		{"not equal", "~=", int64(1), []Value{int64(2)}, true},
		{"nil test", "isNil", Nil, nil, true},
		{"not nil", "notNil", int64(0), nil, true},
		{"responds", "respondsTo:", int64(1), []Value{Sym("+")}, true},
		{"perform", "perform:with:", int64(2), []Value{Sym("*"), int64(21)}, int64(42)},
		{"xor", "xor:", true, []Value{true}, false},
		{"array at", "at:", arr, []Value{int64(3)}, int64(3)},
		{"array put", "at:put:", NewArray(2), []Value{int64(1), "v"}, "v"},
		{"block arity", "numArgs", adder, nil, int64(1)},
		{"includes selector", "includesSelector:", rt.Kernel().Integer, []Value{Sym("+")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustSend(t, rt, tt.selector, tt.receiver, tt.args...); got != tt.want {
				t.Errorf("%s #%s = %v, want %v", Describe(tt.receiver), tt.selector, got, tt.want)
			}
		})
	}

	mustSend(t, rt, "do:", arr, adder)
	if sum != 6 {
		t.Errorf("do: summed %d, want 6", sum)
	}
	if _, err := rt.Perform(Sym("at:"), arr, int64(0)); err == nil {
		t.Error("at: 0 should be out of bounds")
	}
	if _, err := rt.Perform(Sym("asInteger"), math.NaN()); err == nil {
		t.Error("NaN asInteger should fail")
	}
}
