package vm

// Assemble finalizes the class definition. It builds the superclass and
// mixin resolution procedure, synthesizes the initializer and the primary
// factory method, records the declaring class as holder of every capability
// and computes the immutability of instances.
//
// The builder must not be used after Assemble.
func (b *ClassBuilder) Assemble() (*ClassDescriptor, error) {
	if err := b.checkOpen(b.source); err != nil {
		return nil, err
	}

	d := &ClassDescriptor{
		id:                int(descriptorIDs.Add(1)),
		name:              b.name,
		source:            b.source,
		access:            b.access,
		outer:             b.outer,
		root:              b.root,
		slots:             b.ordered,
		nested:            b.nested,
		primaryFactory:    b.primaryFactory,
		allSlotsImmutable: b.allSlotsImmutable,
		valueClass:        b.valueClass,
		mixinCount:        len(b.mixinResolvers),
	}

	initName := InitializerName(b.primaryFactory)
	if existing := b.instance.get(initName); existing != nil {
		return nil, definitionError(b.name, b.primarySource,
			"already contains a %s named %s, which is reserved for the initializer",
			existing.kind, initName.Name())
	}

	if b.canElideInitializer() {
		log.Debugf("eliding initializer of %s", b.name)
	} else {
		d.initializer = &Capability{
			kind:     KindMethod,
			selector: initName,
			access:   Protected,
			arity:    b.primaryFactory.Arity(),
			body:     b.initializerBody(d, true),
		}
		b.instance.put(d.initializer)
	}

	// A class used as a mixin is initialized under a name that the class it
	// is mixed into cannot shadow. It never repeats the superclass send.
	d.mixinInitializer = &Capability{
		kind:     KindMethod,
		selector: MixinInitializerName(b.primaryFactory, d.id),
		access:   Protected,
		arity:    b.primaryFactory.Arity(),
		body:     b.initializerBody(d, false),
	}
	b.instance.put(d.mixinInitializer)

	if !b.primitive {
		b.installPrimaryFactory(d, initName)
	}

	d.resolve = b.resolutionProcedure()

	b.instance.each(func(c *Capability) { c.holder = d })
	b.factory.each(func(c *Capability) { c.holder = d })
	d.instance = b.instance.freeze()
	d.factory = b.factory.freeze()

	b.descriptor = d
	log.Debugf("assembled class %s: %d slots, %d instance selectors, %d factory selectors",
		d.name, len(d.slots), d.instance.Len(), d.factory.Len())
	return d, nil
}

// canElideInitializer reports whether the synthesized initializer would do
// nothing but send the inherited initializer, in which case inheriting it
// directly is observably the same.
func (b *ClassBuilder) canElideInitializer() bool {
	return b.isSimpleSuperFactorySend &&
		len(b.initSteps) == 0 &&
		len(b.mixinFactorySends) == 0 &&
		!b.valueClass &&
		b.primaryFactory == Sym("new")
}

// initializerBody runs the superclass factory send (unless withSuper is
// false), the mixin factory sends and the initializer steps, then checks
// value-class instances.
func (b *ClassBuilder) initializerBody(d *ClassDescriptor, withSuper bool) Invokable {
	superSend := b.superclassFactorySend
	mixinSends := b.mixinFactorySends
	steps := b.initSteps
	checkValues := b.valueClass
	return func(rt *Runtime, self Value, args []Value) (Value, error) {
		if withSuper && superSend != nil {
			if _, err := superSend(rt, self, args); err != nil {
				return nil, err
			}
		}
		for _, send := range mixinSends {
			if _, err := send(rt, self, args); err != nil {
				return nil, err
			}
		}
		for _, step := range steps {
			if _, err := step(rt, self, args); err != nil {
				return nil, err
			}
		}
		if checkValues {
			if err := checkValueSlots(d, self); err != nil {
				return nil, err
			}
		}
		return self, nil
	}
}

// checkValueSlots verifies that every slot of a value-class instance holds
// a value.
func checkValueSlots(d *ClassDescriptor, self Value) error {
	obj, ok := self.(*Object)
	if !ok {
		return nil
	}
	for i := 0; i < obj.NumSlots(); i++ {
		v := obj.GetSlot(i)
		if !IsValue(v) {
			return &ValueCheckError{Class: d.name, Slot: obj.class.slotName(i), Value: v}
		}
	}
	return nil
}

// installPrimaryFactory adds the class-side method that allocates an
// instance and sends it the initializer. If a factory method with the same
// name was declared it keeps working under a unique selector.
func (b *ClassBuilder) installPrimaryFactory(d *ClassDescriptor, initName *Selector) {
	primary := b.primaryFactory
	if existing := b.factory.get(primary); existing != nil {
		moved := *existing
		moved.selector = Selectors.Unique(primary)
		b.factory.put(&moved)
		d.shadowed = map[*Selector]*Selector{primary: moved.selector}
		log.Infof("%s: factory method %s is shadowed by the primary factory", b.name, primary.Name())
	}
	b.factory.put(&Capability{
		kind:     KindMethod,
		selector: primary,
		access:   Public,
		arity:    primary.Arity(),
		body: func(rt *Runtime, self Value, args []Value) (Value, error) {
			cls, ok := self.(*Class)
			if !ok {
				return nil, &PrimitiveError{Selector: primary, Message: Describe(self) + " is not a class"}
			}
			obj := cls.NewInstance()
			if _, err := rt.Perform(initName, obj, args...); err != nil {
				return nil, err
			}
			return obj, nil
		},
	})
}

// resolutionProcedure combines the superclass and mixin expressions. Classes
// without a superclass expression inherit from Object.
func (b *ClassBuilder) resolutionProcedure() ResolutionProcedure {
	if b.root {
		return nil
	}
	superclass := b.superclassResolution
	mixins := b.mixinResolvers
	name := b.name
	return func(rt *Runtime, enclosing Value) (*Class, []*Class, error) {
		var super *Class
		if superclass != nil {
			s, err := superclass(rt, enclosing)
			if err != nil {
				return nil, nil, err
			}
			super = s
		} else {
			super = rt.Kernel().Object
		}
		if super == nil {
			return nil, nil, definitionError(name, b.source, "superclass expression did not yield a class")
		}
		applied := make([]*Class, 0, len(mixins))
		for _, resolve := range mixins {
			m, err := resolve(rt, enclosing)
			if err != nil {
				return nil, nil, err
			}
			if m == nil {
				return nil, nil, definitionError(name, b.source, "mixin expression did not yield a class")
			}
			applied = append(applied, m)
		}
		return super, applied, nil
	}
}
