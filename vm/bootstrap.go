package vm

// bootstrap defines the kernel classes. They are ordinary classes built with
// ClassBuilder; only Object has no superclass, and the value classes have no
// primary factory because their instances are Go values.
func (rt *Runtime) bootstrap() {
	k := &rt.kernel

	k.Object = rt.kernelClass("Object", nil, false, defineObjectPrimitives)
	k.Class = rt.kernelClass("Class", k.Object, true, defineClassPrimitives)

	// Object and Class were instantiated before the class side existed.
	k.Object.meta = newMetaclass(rt, k.Object)
	k.Class.meta = newMetaclass(rt, k.Class)

	k.Nil = rt.kernelClass("Nil", k.Object, true, defineNilPrimitives)
	k.Boolean = rt.kernelClass("Boolean", k.Object, true, defineBooleanPrimitives)
	k.True = rt.kernelClass("True", k.Boolean, true, defineTruePrimitives)
	k.False = rt.kernelClass("False", k.Boolean, true, defineFalsePrimitives)
	k.Integer = rt.kernelClass("Integer", k.Object, true, defineIntegerPrimitives)
	k.LargeInteger = rt.kernelClass("LargeInteger", k.Integer, true, defineLargeIntegerPrimitives)
	k.Double = rt.kernelClass("Double", k.Object, true, defineDoublePrimitives)
	k.String = rt.kernelClass("String", k.Object, true, defineStringPrimitives)
	k.Symbol = rt.kernelClass("Symbol", k.String, true, defineSymbolPrimitives)
	k.Array = rt.kernelClass("Array", k.Object, true, defineArrayPrimitives)
	k.Block = rt.kernelClass("Block", k.Object, true, defineBlockPrimitives)
}

func (rt *Runtime) kernelClass(name string, super *Class, primitive bool, define func(*ClassBuilder)) *Class {
	b := NewClassBuilder(name, nil, SourceSection{File: "kernel"})
	b.primitive = primitive
	if super == nil {
		b.root = true
		b.SetSuperclassFactorySend(nil, false)
	} else {
		b.SetSimpleInheritance(func(*Runtime, Value) (*Class, error) { return super, nil })
	}
	define(b)

	d, err := b.Assemble()
	if err != nil {
		panic("vm: kernel class " + name + ": " + err.Error())
	}
	cls, err := d.Instantiate(rt, nil)
	if err != nil {
		panic("vm: kernel class " + name + ": " + err.Error())
	}
	rt.Classes.Register(cls)
	return cls
}
