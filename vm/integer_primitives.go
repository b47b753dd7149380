package vm

import (
	"math"
	"math/big"
	"strconv"
)

// ---------------------------------------------------------------------------
// Number Primitives (Integer, LargeInteger, Double)
// ---------------------------------------------------------------------------

// addArithmetic installs every binary operator the class's receivers
// support. Results are produced by applyBinary, which eager nodes agree
// with.
func addArithmetic(c *ClassBuilder, withIntegerOps bool) {
	for _, name := range []string{"+", "-", "*", "/", "//", "%", "<", "<=", ">", ">=", "=", "bitXor:", "&", "<<"} {
		op := binaryOps[name]
		if op.floats == nil && !withIntegerOps {
			continue
		}
		c.AddMethod1(name, func(_ *Runtime, recv Value, arg Value) (Value, error) {
			return applyBinary(op, recv, arg)
		})
	}
}

func defineIntegerPrimitives(c *ClassBuilder) {
	addArithmetic(c, true)

	c.AddMethod0("negated", func(_ *Runtime, recv Value) (Value, error) {
		return applyBinary(binaryOps["-"], int64(0), recv)
	})

	c.AddMethod0("asDouble", func(_ *Runtime, recv Value) (Value, error) {
		f, _ := toFloat(recv)
		return f, nil
	})

	c.AddMethod0("printString", func(_ *Runtime, recv Value) (Value, error) {
		return toBig(recv).String(), nil
	})

	c.AddMethod2("to:do:", func(rt *Runtime, recv Value, limit, block Value) (Value, error) {
		return intLoop(rt, "to:do:", recv, limit, int64(1), block)
	})

	c.AddMethod3("to:by:do:", func(rt *Runtime, recv Value, limit, step, block Value) (Value, error) {
		return intLoop(rt, "to:by:do:", recv, limit, step, block)
	})
}

// intLoop is the generic counting loop behind to:do: and to:by:do:.
func intLoop(rt *Runtime, selector string, recv, limit, step, block Value) (Value, error) {
	start, ok := recv.(int64)
	if !ok {
		return nil, &PrimitiveError{Selector: Sym(selector), Message: "receiver out of range"}
	}
	if !isLoopLimit(limit) {
		return nil, &PrimitiveError{Selector: Sym(selector), Message: Describe(limit) + " is not a loop limit"}
	}
	by, ok := step.(int64)
	if !ok || by == 0 {
		return nil, &PrimitiveError{Selector: Sym(selector), Message: "step must be a non-zero integer"}
	}
	valueWith := Sym("value:")
	err := countUp(start, limit, by, func(i int64) error {
		_, err := rt.Perform(valueWith, block, i)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recv, nil
}

func defineLargeIntegerPrimitives(c *ClassBuilder) {
	// Operators are inherited from Integer; applyBinary handles large
	// receivers. Loops only count over small integers.
	c.AddMethod0("isLarge", func(_ *Runtime, recv Value) (Value, error) {
		_, ok := recv.(*big.Int)
		return ok, nil
	})
}

func defineDoublePrimitives(c *ClassBuilder) {
	addArithmetic(c, false)

	c.AddMethod0("negated", func(_ *Runtime, recv Value) (Value, error) {
		return -recv.(float64), nil
	})

	c.AddMethod0("asInteger", func(_ *Runtime, recv Value) (Value, error) {
		f := recv.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &PrimitiveError{Selector: Sym("asInteger"), Message: Describe(recv) + " has no integer value"}
		}
		if f >= -9.2e18 && f <= 9.2e18 {
			return int64(f), nil
		}
		b, _ := new(big.Float).SetFloat64(f).Int(nil)
		return normalizeInteger(b), nil
	})

	c.AddMethod0("printString", func(_ *Runtime, recv Value) (Value, error) {
		return strconv.FormatFloat(recv.(float64), 'g', -1, 64), nil
	})
}
