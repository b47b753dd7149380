package vm

// BlockMethod is the code of a block literal.
type BlockMethod struct {
	Name  string
	Arity int
	Body  Invokable
}

// Block is a closure: a block method bound to the self of the activation
// that created it.
type Block struct {
	Method *BlockMethod
	Self   Value
}

// NewBlock creates a closure over self.
func NewBlock(method *BlockMethod, self Value) *Block {
	return &Block{Method: method, Self: self}
}

// NewBlockFunc is a shorthand for a block whose body ignores self.
func NewBlockFunc(arity int, fn func(rt *Runtime, args []Value) (Value, error)) *Block {
	return &Block{Method: &BlockMethod{
		Name:  "[]",
		Arity: arity,
		Body: func(rt *Runtime, _ Value, args []Value) (Value, error) {
			return fn(rt, args)
		},
	}}
}

// Invoke evaluates the block with args.
func (b *Block) Invoke(rt *Runtime, args []Value) (Value, error) {
	if len(args) != b.Method.Arity {
		return nil, &ArityError{Selector: valueSelector(len(args)), Want: b.Method.Arity, Got: len(args)}
	}
	return b.Method.Body(rt, b.Self, args)
}

// valueSelector returns value, value:, value:value:, ... for n arguments.
func valueSelector(n int) *Selector {
	if n == 0 {
		return Sym("value")
	}
	name := ""
	for i := 0; i < n; i++ {
		name += "value:"
	}
	return Sym(name)
}
