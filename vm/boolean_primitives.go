package vm

// ---------------------------------------------------------------------------
// Boolean Primitives (Boolean, True, False)
// ---------------------------------------------------------------------------

var symValue = Sym("value")

func defineBooleanPrimitives(c *ClassBuilder) {
	c.AddMethod1("&", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		return recv == true && arg == true, nil
	})

	c.AddMethod1("|", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		return recv == true || arg == true, nil
	})

	c.AddMethod1("xor:", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		b, ok := arg.(bool)
		if !ok {
			return nil, &PrimitiveError{Selector: Sym("xor:"), Message: Describe(arg) + " is not a boolean"}
		}
		return recv.(bool) != b, nil
	})
}

func defineTruePrimitives(c *ClassBuilder) {
	c.AddMethod0("not", func(_ *Runtime, recv Value) (Value, error) {
		return false, nil
	})

	c.AddMethod1("ifTrue:", func(rt *Runtime, recv Value, block Value) (Value, error) {
		return rt.Perform(symValue, block)
	})

	c.AddMethod1("ifFalse:", func(_ *Runtime, recv Value, block Value) (Value, error) {
		return Nil, nil
	})

	c.AddMethod2("ifTrue:ifFalse:", func(rt *Runtime, recv Value, trueBlock, falseBlock Value) (Value, error) {
		return rt.Perform(symValue, trueBlock)
	})

	// and: - short-circuit and (evaluate block only if receiver is true)
	and := func(rt *Runtime, recv Value, block Value) (Value, error) {
		return rt.Perform(symValue, block)
	}
	c.AddMethod1("and:", and)
	c.AddMethod1("&&", and)

	// or: - short-circuit or (don't evaluate block since receiver is true)
	or := func(_ *Runtime, recv Value, block Value) (Value, error) {
		return true, nil
	}
	c.AddMethod1("or:", or)
	c.AddMethod1("||", or)
}

func defineFalsePrimitives(c *ClassBuilder) {
	c.AddMethod0("not", func(_ *Runtime, recv Value) (Value, error) {
		return true, nil
	})

	c.AddMethod1("ifTrue:", func(_ *Runtime, recv Value, block Value) (Value, error) {
		return Nil, nil
	})

	c.AddMethod1("ifFalse:", func(rt *Runtime, recv Value, block Value) (Value, error) {
		return rt.Perform(symValue, block)
	})

	c.AddMethod2("ifTrue:ifFalse:", func(rt *Runtime, recv Value, trueBlock, falseBlock Value) (Value, error) {
		return rt.Perform(symValue, falseBlock)
	})

	and := func(_ *Runtime, recv Value, block Value) (Value, error) {
		return false, nil
	}
	c.AddMethod1("and:", and)
	c.AddMethod1("&&", and)

	or := func(rt *Runtime, recv Value, block Value) (Value, error) {
		return rt.Perform(symValue, block)
	}
	c.AddMethod1("or:", or)
	c.AddMethod1("||", or)
}
