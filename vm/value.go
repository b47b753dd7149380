package vm

import (
	"fmt"
	"math/big"
)

// Value is any object the engine can send a message to.
//
// Kernel values are represented by plain Go values:
//   - Integer: int64, promoted to *big.Int when it overflows
//   - Double: float64
//   - Boolean: bool
//   - String: string
//   - Symbol: *Selector
//   - nil: Nil
//
// Everything else is a pointer: *Object, *Array, *Block, *Class.
type Value = any

type nilObject struct{}

func (nilObject) String() string { return "nil" }

// Nil is the single instance of the Nil class.
var Nil Value = nilObject{}

// IsNil returns true if v is the nil value.
func IsNil(v Value) bool {
	_, ok := v.(nilObject)
	return ok || v == nil
}

// Array is a fixed-size, mutable indexable collection.
type Array struct {
	Elems []Value
}

// NewArray creates an array of n elements, all Nil.
func NewArray(n int) *Array {
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = Nil
	}
	return &Array{Elems: elems}
}

// NewArrayWithElements wraps the given elements in an array.
func NewArrayWithElements(elems ...Value) *Array {
	return &Array{Elems: elems}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsInteger returns true for small and large integers.
func IsInteger(v Value) bool {
	switch v.(type) {
	case int64, *big.Int:
		return true
	}
	return false
}

// IsNumber returns true for integers and doubles.
func IsNumber(v Value) bool {
	switch v.(type) {
	case int64, *big.Int, float64:
		return true
	}
	return false
}

// IsBoolean returns true for true and false.
func IsBoolean(v Value) bool {
	_, ok := v.(bool)
	return ok
}

// IsBlock returns true if v is a closure.
func IsBlock(v Value) bool {
	_, ok := v.(*Block)
	return ok
}

// IsValue returns true if v is deeply immutable: a kernel scalar, a class,
// a block, or an instance of an immutable class.
func IsValue(v Value) bool {
	switch o := v.(type) {
	case nilObject, int64, *big.Int, float64, bool, string, *Selector, *Class, *Block:
		return true
	case *Object:
		return o.class != nil && o.class.descriptor.IsImmutable()
	}
	return false
}

// normalizeInteger reduces a big integer to int64 when it fits.
func normalizeInteger(b *big.Int) Value {
	if b.IsInt64() {
		return b.Int64()
	}
	return b
}

// toBig returns an integer value as *big.Int.
func toBig(v Value) *big.Int {
	switch n := v.(type) {
	case int64:
		return big.NewInt(n)
	case *big.Int:
		return n
	}
	return nil
}

// toFloat converts any numeric value to float64.
func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	}
	return 0, false
}

// Describe renders a value for error messages.
func Describe(v Value) string {
	switch o := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", o)
	case *Selector:
		return "#" + o.Name()
	case *Object:
		return "a " + o.class.Name()
	case *Class:
		return o.Name()
	case *Array:
		return fmt.Sprintf("an Array(%d)", len(o.Elems))
	case *Block:
		return "a Block"
	case fmt.Stringer:
		return o.String()
	}
	return fmt.Sprint(v)
}
