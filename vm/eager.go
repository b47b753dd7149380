package vm

import "math"

// Eager nodes
//
// Each constructor returns a node whose eagerFunc checks the operand shapes
// it was built for before doing anything observable. When a check fails the
// node reports !ok and the call site repeats the send generically.

// literalBlocks holds, per argument, the block method a literal argument
// was created from, or nil for arguments that are not block literals.
type literalBlocks []*BlockMethod

// block returns args[i] as a block of the given arity, enforcing literal
// identity when the argument was a literal at specialization time.
func (lits literalBlocks) block(args []Value, i, arity int) (*Block, bool) {
	b, ok := args[i].(*Block)
	if !ok || b.Method.Arity != arity {
		return nil, false
	}
	if i < len(lits) && lits[i] != nil && b.Method != lits[i] {
		return nil, false
	}
	return b, true
}

// expectsLiteral reports whether argument i must be a literal block.
func (lits literalBlocks) expectsLiteral(i int) bool {
	return i < len(lits) && lits[i] != nil
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

func eagerArithmetic(op *binaryOp) *node {
	return &node{
		kind: EagerArithmetic,
		name: op.name,
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			v, ok := applyBinaryFast(op, receiver, args[0])
			return v, ok, nil
		},
	}
}

func eagerIdentity() *node {
	return &node{
		kind: EagerArithmetic,
		name: "==",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			if !IsNumber(receiver) {
				return nil, false, nil
			}
			return identical(receiver, args[0]), true, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Access
// ---------------------------------------------------------------------------

func eagerLength() *node {
	return &node{
		kind: EagerAccess,
		name: "length",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			a, ok := receiver.(*Array)
			if !ok {
				return nil, false, nil
			}
			return int64(len(a.Elems)), true, nil
		},
	}
}

func eagerAt() *node {
	return &node{
		kind: EagerAccess,
		name: "at:",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			a, ok := receiver.(*Array)
			if !ok {
				return nil, false, nil
			}
			i, ok := args[0].(int64)
			if !ok || i < 1 || i > int64(len(a.Elems)) {
				return nil, false, nil
			}
			return a.Elems[i-1], true, nil
		},
	}
}

func eagerNewArray(arrayClass *Class) *node {
	return &node{
		kind: EagerAccess,
		name: "new:",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			if receiver != arrayClass {
				return nil, false, nil
			}
			n, ok := args[0].(int64)
			if !ok || n < 0 {
				return nil, false, nil
			}
			return NewArray(int(n)), true, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Control
// ---------------------------------------------------------------------------

func eagerBlockValue(name string, arity int, literal *BlockMethod) *node {
	return &node{
		kind: EagerControl,
		name: name,
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			b, ok := receiver.(*Block)
			if !ok || b.Method.Arity != arity || (literal != nil && b.Method != literal) {
				return nil, false, nil
			}
			v, err := b.Invoke(rt, args)
			return v, true, err
		},
	}
}

func eagerNot() *node {
	return &node{
		kind: EagerControl,
		name: "not",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			b, ok := receiver.(bool)
			if !ok {
				return nil, false, nil
			}
			return !b, true, nil
		},
	}
}

// eagerIf open-codes ifTrue:, ifFalse: and ifTrue:ifFalse:. branches[i]
// is the truth value that selects argument i.
func eagerIf(name string, lits literalBlocks, branches ...bool) *node {
	return &node{
		kind: EagerControl,
		name: name,
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			cond, ok := receiver.(bool)
			if !ok {
				return nil, false, nil
			}
			blocks := make([]*Block, len(args))
			for i := range args {
				b, ok := lits.block(args, i, 0)
				if !ok {
					return nil, false, nil
				}
				blocks[i] = b
			}
			for i, when := range branches {
				if cond == when {
					v, err := blocks[i].Invoke(rt, nil)
					return v, true, err
				}
			}
			return Nil, true, nil
		},
	}
}

// eagerLogic open-codes and:, &&, or: and ||. shortCircuit is the receiver
// value that makes the argument irrelevant.
func eagerLogic(name string, lits literalBlocks, shortCircuit bool) *node {
	return &node{
		kind: EagerControl,
		name: name,
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			cond, ok := receiver.(bool)
			if !ok {
				return nil, false, nil
			}
			var blk *Block
			if arg, isBool := args[0].(bool); isBool && !lits.expectsLiteral(0) {
				if cond == shortCircuit {
					return cond, true, nil
				}
				return arg, true, nil
			}
			if blk, ok = lits.block(args, 0, 0); !ok {
				return nil, false, nil
			}
			if cond == shortCircuit {
				return cond, true, nil
			}
			v, err := blk.Invoke(rt, nil)
			return v, true, err
		},
	}
}

// eagerWhile open-codes whileTrue: and whileFalse:. The static variant
// requires both blocks to come from the literals seen at specialization
// time; the dynamic variant accepts any zero-argument blocks.
func eagerWhile(name string, until bool, condLiteral *BlockMethod, lits literalBlocks) *node {
	variant := "dynamic"
	if condLiteral != nil && lits.expectsLiteral(0) {
		variant = "static"
	}
	return &node{
		kind: EagerControl,
		name: name + " (" + variant + ")",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			cond, ok := receiver.(*Block)
			if !ok || cond.Method.Arity != 0 || (condLiteral != nil && cond.Method != condLiteral) {
				return nil, false, nil
			}
			body, ok := lits.block(args, 0, 0)
			if !ok {
				return nil, false, nil
			}
			for {
				c, err := cond.Invoke(rt, nil)
				if err != nil {
					return nil, true, err
				}
				if c != !until {
					return Nil, true, nil
				}
				if _, err := body.Invoke(rt, nil); err != nil {
					return nil, true, err
				}
			}
		},
	}
}

// ---------------------------------------------------------------------------
// Iteration
// ---------------------------------------------------------------------------

func eagerToDo(lits literalBlocks) *node {
	return &node{
		kind: EagerIteration,
		name: "to:do:",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			start, ok := receiver.(int64)
			if !ok || !isLoopLimit(args[0]) {
				return nil, false, nil
			}
			body, ok := lits.block(args, 1, 1)
			if !ok {
				return nil, false, nil
			}
			err := countUp(start, args[0], 1, func(i int64) error {
				_, err := body.Invoke(rt, []Value{i})
				return err
			})
			return receiver, true, err
		},
	}
}

func eagerToByDo(lits literalBlocks) *node {
	return &node{
		kind: EagerIteration,
		name: "to:by:do:",
		eager: func(rt *Runtime, receiver Value, args []Value) (Value, bool, error) {
			start, ok := receiver.(int64)
			if !ok || !isLoopLimit(args[0]) {
				return nil, false, nil
			}
			step, ok := args[1].(int64)
			if !ok || step == 0 {
				return nil, false, nil
			}
			body, ok := lits.block(args, 2, 1)
			if !ok {
				return nil, false, nil
			}
			err := countUp(start, args[0], step, func(i int64) error {
				_, err := body.Invoke(rt, []Value{i})
				return err
			})
			return receiver, true, err
		},
	}
}

func isLoopLimit(v Value) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// countUp runs fn for start, start+step, ... while the counter has not
// passed limit. limit is an int64 or a float64; step is non-zero. A NaN
// limit is never reached, so the loop body does not run.
func countUp(start int64, limit Value, step int64, fn func(int64) error) error {
	within := func(i int64) bool {
		var c int
		switch l := limit.(type) {
		case int64:
			switch {
			case i < l:
				c = -1
			case i > l:
				c = 1
			}
		case float64:
			if math.IsNaN(l) {
				return false
			}
			switch f := float64(i); {
			case f < l:
				c = -1
			case f > l:
				c = 1
			}
		}
		if step > 0 {
			return c <= 0
		}
		return c >= 0
	}
	for i := start; within(i); i += step {
		if err := fn(i); err != nil {
			return err
		}
		if (step > 0 && i > maxInt64-step) || (step < 0 && i < minInt64-step) {
			break
		}
	}
	return nil
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)
