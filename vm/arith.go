package vm

import (
	"math"
	"math/big"
)

// Numeric operations
//
// Each binary operator has a small-integer fast path, a large-integer path
// and a double path. The generic primitives try the fast path and fall back
// to large integers when it reports overflow; eager nodes only ever use the
// fast and double paths and deoptimize otherwise. Both therefore agree on
// every result the eager node produces.

type binaryOp struct {
	name   string
	ints   func(a, b int64) (Value, bool)
	bigs   func(a, b *big.Int) (Value, error)
	floats func(a, b float64) Value // nil when undefined on doubles
}

const msgDivisionByZero = "division by zero"

var binaryOps = map[string]*binaryOp{
	"+": {
		ints: func(a, b int64) (Value, bool) {
			c := a + b
			return c, (c > a) == (b > 0)
		},
		bigs: bigResult(func(z, a, b *big.Int) *big.Int { return z.Add(a, b) }),
		floats: func(a, b float64) Value { return a + b },
	},
	"-": {
		ints: func(a, b int64) (Value, bool) {
			c := a - b
			return c, (c < a) == (b > 0)
		},
		bigs: bigResult(func(z, a, b *big.Int) *big.Int { return z.Sub(a, b) }),
		floats: func(a, b float64) Value { return a - b },
	},
	"*": {
		ints: func(a, b int64) (Value, bool) {
			if a == 0 || b == 0 {
				return int64(0), true
			}
			if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return nil, false
			}
			c := a * b
			return c, c/b == a
		},
		bigs: bigResult(func(z, a, b *big.Int) *big.Int { return z.Mul(a, b) }),
		floats: func(a, b float64) Value { return a * b },
	},
	"/": {
		ints: func(a, b int64) (Value, bool) {
			if b == 0 || (a == math.MinInt64 && b == -1) {
				return nil, false
			}
			return a / b, true
		},
		bigs: func(a, b *big.Int) (Value, error) {
			if b.Sign() == 0 {
				return nil, &PrimitiveError{Selector: Sym("/"), Message: msgDivisionByZero}
			}
			return normalizeInteger(new(big.Int).Quo(a, b)), nil
		},
		floats: func(a, b float64) Value { return a / b },
	},
	"//": {
		ints: func(a, b int64) (Value, bool) {
			return float64(a) / float64(b), true
		},
		bigs: func(a, b *big.Int) (Value, error) {
			fa, _ := toFloat(a)
			fb, _ := toFloat(b)
			return fa / fb, nil
		},
		floats: func(a, b float64) Value { return a / b },
	},
	"%": {
		ints: func(a, b int64) (Value, bool) {
			if b == 0 {
				return nil, false
			}
			m := a % b
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m, true
		},
		bigs: func(a, b *big.Int) (Value, error) {
			if b.Sign() == 0 {
				return nil, &PrimitiveError{Selector: Sym("%"), Message: msgDivisionByZero}
			}
			m := new(big.Int).Rem(a, b)
			if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
				m.Add(m, b)
			}
			return normalizeInteger(m), nil
		},
		floats: func(a, b float64) Value {
			m := math.Mod(a, b)
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m
		},
	},
	"<":  compareOp(func(c int) bool { return c < 0 }),
	"<=": compareOp(func(c int) bool { return c <= 0 }),
	">":  compareOp(func(c int) bool { return c > 0 }),
	">=": compareOp(func(c int) bool { return c >= 0 }),
	"=":  compareOp(func(c int) bool { return c == 0 }),
	"bitXor:": {
		ints: func(a, b int64) (Value, bool) { return a ^ b, true },
		bigs: bigResult(func(z, a, b *big.Int) *big.Int { return z.Xor(a, b) }),
	},
	"&": {
		ints: func(a, b int64) (Value, bool) { return a & b, true },
		bigs: bigResult(func(z, a, b *big.Int) *big.Int { return z.And(a, b) }),
	},
	"<<": {
		ints: func(a, b int64) (Value, bool) {
			if b < 0 || b >= 63 {
				return nil, false
			}
			c := a << uint(b)
			return c, c>>uint(b) == a
		},
		bigs: func(a, b *big.Int) (Value, error) {
			if b.Sign() < 0 || !b.IsInt64() || b.Int64() > math.MaxInt32 {
				return nil, &PrimitiveError{Selector: Sym("<<"), Message: "shift out of range"}
			}
			return normalizeInteger(new(big.Int).Lsh(a, uint(b.Int64()))), nil
		},
	},
}

func init() {
	for name, op := range binaryOps {
		op.name = name
	}
}

func bigResult(fn func(z, a, b *big.Int) *big.Int) func(a, b *big.Int) (Value, error) {
	return func(a, b *big.Int) (Value, error) {
		return normalizeInteger(fn(new(big.Int), a, b)), nil
	}
}

func compareOp(test func(int) bool) *binaryOp {
	return &binaryOp{
		ints: func(a, b int64) (Value, bool) {
			switch {
			case a < b:
				return test(-1), true
			case a > b:
				return test(1), true
			}
			return test(0), true
		},
		bigs: func(a, b *big.Int) (Value, error) {
			return test(a.Cmp(b)), nil
		},
		floats: func(a, b float64) Value {
			switch {
			case a < b:
				return test(-1)
			case a > b:
				return test(1)
			case a == b:
				return test(0)
			}
			return false // NaN
		},
	}
}

// applyBinary is the generic primitive: it handles every combination of
// small integers, large integers and doubles.
func applyBinary(op *binaryOp, a, b Value) (Value, error) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			if v, ok := op.ints(x, y); ok {
				return v, nil
			}
			return op.bigs(big.NewInt(x), big.NewInt(y))
		}
	}
	if IsInteger(a) && IsInteger(b) {
		return op.bigs(toBig(a), toBig(b))
	}
	if op.floats != nil {
		fa, okA := toFloat(a)
		fb, okB := toFloat(b)
		if okA && okB {
			return op.floats(fa, fb), nil
		}
	}
	if op.name == "=" {
		return false, nil
	}
	return nil, &PrimitiveError{Selector: Sym(op.name), Message: "unsupported operand " + Describe(b)}
}

// applyBinaryFast is the eager path. It only handles small integers and
// doubles and reports false for anything else, including overflow.
func applyBinaryFast(op *binaryOp, a, b Value) (Value, bool) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return op.ints(x, y)
		case float64:
			if op.floats != nil {
				return op.floats(float64(x), y), true
			}
		}
	case float64:
		if op.floats == nil {
			return nil, false
		}
		switch y := b.(type) {
		case int64:
			return op.floats(x, float64(y)), true
		case float64:
			return op.floats(x, y), true
		}
	}
	return nil, false
}

// identical implements ==. Numbers are compared by value within the same
// representation.
func identical(a, b Value) bool {
	if x, ok := a.(*big.Int); ok {
		y, ok := b.(*big.Int)
		return ok && x.Cmp(y) == 0
	}
	if IsNil(a) {
		return IsNil(b)
	}
	return a == b
}
