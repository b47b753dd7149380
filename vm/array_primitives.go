package vm

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func defineArrayPrimitives(c *ClassBuilder) {
	c.AddClassMethod0("new", func(_ *Runtime, recv Value) (Value, error) {
		return NewArray(0), nil
	})

	c.AddClassMethod1("new:", func(_ *Runtime, recv Value, size Value) (Value, error) {
		n, ok := size.(int64)
		if !ok || n < 0 {
			return nil, &PrimitiveError{Selector: Sym("new:"), Message: Describe(size) + " is not a valid size"}
		}
		return NewArray(int(n)), nil
	})

	c.AddMethod0("length", func(_ *Runtime, recv Value) (Value, error) {
		return int64(len(recv.(*Array).Elems)), nil
	})

	c.AddMethod1("at:", func(_ *Runtime, recv Value, index Value) (Value, error) {
		a := recv.(*Array)
		i, err := arrayIndex("at:", a, index)
		if err != nil {
			return nil, err
		}
		return a.Elems[i], nil
	})

	c.AddMethod2("at:put:", func(_ *Runtime, recv Value, index, value Value) (Value, error) {
		a := recv.(*Array)
		i, err := arrayIndex("at:put:", a, index)
		if err != nil {
			return nil, err
		}
		a.Elems[i] = value
		return value, nil
	})

	c.AddMethod1("do:", func(rt *Runtime, recv Value, block Value) (Value, error) {
		valueWith := Sym("value:")
		for _, e := range recv.(*Array).Elems {
			if _, err := rt.Perform(valueWith, block, e); err != nil {
				return nil, err
			}
		}
		return recv, nil
	})
}

// arrayIndex converts a 1-based index into a slice position.
func arrayIndex(selector string, a *Array, index Value) (int, error) {
	i, ok := index.(int64)
	if !ok || i < 1 || i > int64(len(a.Elems)) {
		return 0, &PrimitiveError{Selector: Sym(selector), Message: "index " + Describe(index) + " out of bounds"}
	}
	return int(i - 1), nil
}
