package vm

// ---------------------------------------------------------------------------
// Block Primitives
// ---------------------------------------------------------------------------

func defineBlockPrimitives(c *ClassBuilder) {
	c.AddMethod0("value", func(rt *Runtime, recv Value) (Value, error) {
		return recv.(*Block).Invoke(rt, nil)
	})

	c.AddMethod1("value:", func(rt *Runtime, recv Value, arg Value) (Value, error) {
		return recv.(*Block).Invoke(rt, []Value{arg})
	})

	c.AddMethod2("value:value:", func(rt *Runtime, recv Value, arg1, arg2 Value) (Value, error) {
		return recv.(*Block).Invoke(rt, []Value{arg1, arg2})
	})

	c.AddMethod3("value:value:value:", func(rt *Runtime, recv Value, arg1, arg2, arg3 Value) (Value, error) {
		return recv.(*Block).Invoke(rt, []Value{arg1, arg2, arg3})
	})

	c.AddMethod0("numArgs", func(_ *Runtime, recv Value) (Value, error) {
		return int64(recv.(*Block).Method.Arity), nil
	})

	c.AddMethod1("whileTrue:", func(rt *Runtime, recv Value, body Value) (Value, error) {
		return whileLoop(rt, recv, body, true)
	})

	c.AddMethod1("whileFalse:", func(rt *Runtime, recv Value, body Value) (Value, error) {
		return whileLoop(rt, recv, body, false)
	})
}

// whileLoop evaluates body as long as the receiver block answers want.
func whileLoop(rt *Runtime, cond, body Value, want bool) (Value, error) {
	for {
		c, err := rt.Perform(symValue, cond)
		if err != nil {
			return nil, err
		}
		if c != want {
			return Nil, nil
		}
		if _, err := rt.Perform(symValue, body); err != nil {
			return nil, err
		}
	}
}
