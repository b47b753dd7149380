package vm

import "strings"

// ---------------------------------------------------------------------------
// String and Symbol Primitives
// ---------------------------------------------------------------------------

func defineStringPrimitives(c *ClassBuilder) {
	c.AddMethod0("length", func(_ *Runtime, recv Value) (Value, error) {
		return int64(len(stringOf(recv))), nil
	})

	c.AddMethod1(",", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		s, ok := arg.(string)
		if !ok {
			if sym, isSym := arg.(*Selector); isSym {
				s = sym.Name()
			} else {
				s = Describe(arg)
			}
		}
		return stringOf(recv) + s, nil
	})

	c.AddMethod1("=", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		s, ok := arg.(string)
		return ok && s == stringOf(recv), nil
	})

	c.AddMethod1("beginsWith:", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		s, ok := arg.(string)
		return ok && strings.HasPrefix(stringOf(recv), s), nil
	})

	c.AddMethod0("asSymbol", func(_ *Runtime, recv Value) (Value, error) {
		return Sym(stringOf(recv)), nil
	})

	c.AddMethod0("asString", func(_ *Runtime, recv Value) (Value, error) {
		return stringOf(recv), nil
	})
}

func defineSymbolPrimitives(c *ClassBuilder) {
	c.AddMethod0("numArgs", func(_ *Runtime, recv Value) (Value, error) {
		return int64(recv.(*Selector).Arity()), nil
	})

	// Symbols are unique, so equality is identity.
	c.AddMethod1("=", func(_ *Runtime, recv Value, arg Value) (Value, error) {
		return recv == arg, nil
	})
}

// stringOf returns the text of a string or symbol.
func stringOf(v Value) string {
	switch s := v.(type) {
	case string:
		return s
	case *Selector:
		return s.Name()
	}
	return ""
}
