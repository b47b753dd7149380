package vm

// Method constructors.
//
// Kernel primitives are written against arity-specialized function types so
// the bodies read like the selector they implement. Each is wrapped into a
// KindMethod capability with a fixed arity.

// Method0Func is a primitive taking no arguments.
type Method0Func func(rt *Runtime, receiver Value) (Value, error)

// Method1Func is a primitive taking one argument.
type Method1Func func(rt *Runtime, receiver Value, arg Value) (Value, error)

// Method2Func is a primitive taking two arguments.
type Method2Func func(rt *Runtime, receiver Value, arg1, arg2 Value) (Value, error)

// Method3Func is a primitive taking three arguments.
type Method3Func func(rt *Runtime, receiver Value, arg1, arg2, arg3 Value) (Value, error)

// NewMethod creates a method capability. The arity is taken from the selector.
func NewMethod(selector *Selector, body Invokable) *Capability {
	return &Capability{kind: KindMethod, selector: selector, body: body, arity: selector.Arity()}
}

// NewMethod0 creates a zero-argument method.
func NewMethod0(name string, fn Method0Func) *Capability {
	return NewMethod(Sym(name), func(rt *Runtime, self Value, _ []Value) (Value, error) {
		return fn(rt, self)
	})
}

// NewMethod1 creates a one-argument method.
func NewMethod1(name string, fn Method1Func) *Capability {
	return NewMethod(Sym(name), func(rt *Runtime, self Value, args []Value) (Value, error) {
		return fn(rt, self, args[0])
	})
}

// NewMethod2 creates a two-argument method.
func NewMethod2(name string, fn Method2Func) *Capability {
	return NewMethod(Sym(name), func(rt *Runtime, self Value, args []Value) (Value, error) {
		return fn(rt, self, args[0], args[1])
	})
}

// NewMethod3 creates a three-argument method.
func NewMethod3(name string, fn Method3Func) *Capability {
	return NewMethod(Sym(name), func(rt *Runtime, self Value, args []Value) (Value, error) {
		return fn(rt, self, args[0], args[1], args[2])
	})
}

// MethodName returns the selector name of a capability, or "<anonymous>".
func MethodName(c *Capability) string {
	if c == nil || c.selector == nil {
		return "<anonymous>"
	}
	return c.selector.Name()
}
