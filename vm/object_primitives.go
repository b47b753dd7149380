package vm

// ---------------------------------------------------------------------------
// Object, Class and Nil Primitives
// ---------------------------------------------------------------------------

func defineObjectPrimitives(c *ClassBuilder) {
	c.AddMethod1("==", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		return identical(recv, arg), nil
	})

	c.AddMethod1("=", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		return identical(recv, arg), nil
	})

	c.AddMethod1("~=", func(rt *Runtime, recv Value, arg Value) (Value, error) {
		eq, err := rt.Perform(Sym("="), recv, arg)
		if err != nil {
			return nil, err
		}
		return eq != true, nil
	})

	// Any object evaluates to itself, so control structures accept plain
	// values where they expect blocks.
	c.AddMethod0("value", func(_ *Runtime, recv Value) (Value, error) {
		return recv, nil
	})

	c.AddMethod0("yourself", func(_ *Runtime, recv Value) (Value, error) {
		return recv, nil
	})

	c.AddMethod0("class", func(rt *Runtime, recv Value) (Value, error) {
		return rt.ClassOf(recv), nil
	})

	c.AddMethod0("isNil", func(_ *Runtime, recv Value) (Value, error) {
		return false, nil
	})

	c.AddMethod0("notNil", func(_ *Runtime, recv Value) (Value, error) {
		return true, nil
	})

	c.AddMethod0("printString", func(_ *Runtime, recv Value) (Value, error) {
		return Describe(recv), nil
	})

	c.AddMethod1("respondsTo:", func(rt *Runtime, recv Value, sym Value) (Value, error) {
		sel, ok := sym.(*Selector)
		if !ok {
			return false, nil
		}
		return rt.ClassOf(recv).Table().Has(sel), nil
	})

	c.AddMethod1("perform:", func(rt *Runtime, recv Value, sym Value) (Value, error) {
		sel, ok := sym.(*Selector)
		if !ok {
			return nil, &PrimitiveError{Selector: Sym("perform:"), Message: Describe(sym) + " is not a symbol"}
		}
		return rt.Perform(sel, recv)
	})

	c.AddMethod2("perform:with:", func(rt *Runtime, recv Value, sym, arg Value) (Value, error) {
		sel, ok := sym.(*Selector)
		if !ok {
			return nil, &PrimitiveError{Selector: Sym("perform:with:"), Message: Describe(sym) + " is not a symbol"}
		}
		return rt.Perform(sel, recv, arg)
	})
}

func defineClassPrimitives(c *ClassBuilder) {
	c.AddMethod0("name", func(_ *Runtime, recv Value) (Value, error) {
		cls, err := classReceiver("name", recv)
		if err != nil {
			return nil, err
		}
		return Sym(cls.Name()), nil
	})

	c.AddMethod0("superclass", func(_ *Runtime, recv Value) (Value, error) {
		cls, err := classReceiver("superclass", recv)
		if err != nil {
			return nil, err
		}
		if s := cls.Superclass(); s != nil {
			return s, nil
		}
		return Nil, nil
	})

	c.AddMethod1("includesSelector:", func(_ *Runtime, recv Value, sym Value) (Value, error) {
		cls, err := classReceiver("includesSelector:", recv)
		if err != nil {
			return nil, err
		}
		sel, ok := sym.(*Selector)
		return ok && cls.Table().Has(sel), nil
	})
}

func classReceiver(selector string, recv Value) (*Class, error) {
	cls, ok := recv.(*Class)
	if !ok {
		return nil, &PrimitiveError{Selector: Sym(selector), Message: Describe(recv) + " is not a class"}
	}
	return cls, nil
}

func defineNilPrimitives(c *ClassBuilder) {
	c.AddMethod0("isNil", func(_ *Runtime, recv Value) (Value, error) {
		return true, nil
	})

	c.AddMethod0("notNil", func(_ *Runtime, recv Value) (Value, error) {
		return false, nil
	})

	c.AddMethod1("ifNil:", func(rt *Runtime, recv Value, block Value) (Value, error) {
		return rt.Perform(Sym("value"), block)
	})

	c.AddMethod1("ifNotNil:", func(_ *Runtime, recv Value, block Value) (Value, error) {
		return Nil, nil
	})
}
