package vm

// specializer decides, on the first execution of a call site, whether the
// send matches an open-coded pattern. Patterns are keyed by the number of
// arguments and the selector, and only apply when the operands have the
// shape the eager node handles; anything else is cached by receiver class.
type specializer struct{}

// eagerNode returns an eager node for the send, or nil.
func (sp *specializer) eagerNode(rt *Runtime, site *CallSite, receiver Value, args []Value) *node {
	lits := site.literalsOf(args)
	name := site.selector.Name()

	switch len(args) {
	case 0:
		return sp.unary(name, site, receiver)
	case 1:
		return sp.binary(rt, name, site, receiver, args, lits)
	case 2:
		return sp.ternary(name, receiver, args, lits)
	case 3:
		return sp.quaternary(name, receiver, args, lits)
	}
	return nil
}

func (sp *specializer) unary(name string, site *CallSite, receiver Value) *node {
	switch name {
	case "value":
		if b, ok := receiver.(*Block); ok && b.Method.Arity == 0 {
			return eagerBlockValue(name, 0, site.receiverLiteral(receiver))
		}
	case "length":
		if _, ok := receiver.(*Array); ok {
			return eagerLength()
		}
	case "not":
		if IsBoolean(receiver) {
			return eagerNot()
		}
	}
	return nil
}

func (sp *specializer) binary(rt *Runtime, name string, site *CallSite, receiver Value, args []Value, lits literalBlocks) *node {
	if op, ok := binaryOps[name]; ok {
		if _, ok := applyBinaryFast(op, receiver, args[0]); ok {
			return eagerArithmetic(op)
		}
		return nil
	}

	switch name {
	case "==":
		if IsNumber(receiver) {
			return eagerIdentity()
		}
	case "value:":
		if b, ok := receiver.(*Block); ok && b.Method.Arity == 1 {
			return eagerBlockValue(name, 1, site.receiverLiteral(receiver))
		}
	case "at:":
		if _, ok := receiver.(*Array); ok && IsInteger(args[0]) {
			return eagerAt()
		}
	case "new:":
		if receiver == rt.kernel.Array {
			if _, ok := args[0].(int64); ok {
				return eagerNewArray(rt.kernel.Array)
			}
		}
	case "ifTrue:", "ifFalse:":
		if IsBoolean(receiver) && isBlockOfArity(args[0], 0) {
			return eagerIf(name, lits, name == "ifTrue:")
		}
	case "and:", "&&":
		if IsBoolean(receiver) && (lits.expectsLiteral(0) || IsBoolean(args[0]) || isBlockOfArity(args[0], 0)) {
			return eagerLogic(name, lits, false)
		}
	case "or:", "||":
		if IsBoolean(receiver) && (lits.expectsLiteral(0) || IsBoolean(args[0]) || isBlockOfArity(args[0], 0)) {
			return eagerLogic(name, lits, true)
		}
	case "whileTrue:", "whileFalse:":
		if isBlockOfArity(receiver, 0) && isBlockOfArity(args[0], 0) {
			return eagerWhile(name, name == "whileFalse:", site.receiverLiteral(receiver), lits)
		}
	}
	return nil
}

func (sp *specializer) ternary(name string, receiver Value, args []Value, lits literalBlocks) *node {
	switch name {
	case "ifTrue:ifFalse:":
		if IsBoolean(receiver) && isBlockOfArity(args[0], 0) && isBlockOfArity(args[1], 0) {
			return eagerIf(name, lits, true, false)
		}
	case "to:do:":
		if _, ok := receiver.(int64); ok && isLoopLimit(args[0]) && isBlockOfArity(args[1], 1) {
			return eagerToDo(lits)
		}
	}
	return nil
}

func (sp *specializer) quaternary(name string, receiver Value, args []Value, lits literalBlocks) *node {
	if name != "to:by:do:" {
		return nil
	}
	if _, ok := receiver.(int64); !ok || !isLoopLimit(args[0]) {
		return nil
	}
	if step, ok := args[1].(int64); !ok || step == 0 {
		return nil
	}
	if !isBlockOfArity(args[2], 1) {
		return nil
	}
	return eagerToByDo(lits)
}

func isBlockOfArity(v Value, arity int) bool {
	b, ok := v.(*Block)
	return ok && b.Method.Arity == arity
}

// literalsOf captures the block methods of the arguments that are literals
// at this site.
func (s *CallSite) literalsOf(args []Value) literalBlocks {
	if len(s.literalArgs) == 0 {
		return nil
	}
	lits := make(literalBlocks, len(args))
	for i := range args {
		if !s.isLiteralArg(i) {
			continue
		}
		if b, ok := args[i].(*Block); ok {
			lits[i] = b.Method
		}
	}
	return lits
}

// receiverLiteral returns the block method of a literal block receiver.
func (s *CallSite) receiverLiteral(receiver Value) *BlockMethod {
	if !s.literalReceiver {
		return nil
	}
	if b, ok := receiver.(*Block); ok {
		return b.Method
	}
	return nil
}
