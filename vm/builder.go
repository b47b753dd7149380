package vm

// ---------------------------------------------------------------------------
// ClassBuilder: accumulates one class definition
// ---------------------------------------------------------------------------

// Scope is a lexically enclosing definition. A class is immutable only if
// its enclosing scope is.
type Scope interface {
	IsImmutable() bool
}

type fixedScope bool

func (s fixedScope) IsImmutable() bool { return bool(s) }

// Enclosing scopes that are not classes, e.g. a method activation that
// contains an object literal.
var (
	ImmutableScope Scope = fixedScope(true)
	MutableScope   Scope = fixedScope(false)
)

// ResolutionProcedure evaluates, at instantiation time, the superclass and
// the mixins to apply on top of it, in application order.
type ResolutionProcedure func(rt *Runtime, enclosing Value) (superclass *Class, mixins []*Class, err error)

// ClassResolver evaluates one class-valued expression in the enclosing scope.
type ClassResolver func(rt *Runtime, enclosing Value) (*Class, error)

// SlotDecl describes a slot declaration.
type SlotDecl struct {
	Name    string
	Access  Access
	Mutable bool
	Type    Type      // optional
	Init    Invokable // optional
	Source  SourceSection
}

// BuilderOption configures a ClassBuilder.
type BuilderOption func(*ClassBuilder)

// WithTypeChecking enables or disables declared slot types.
func WithTypeChecking(enabled bool) BuilderOption {
	return func(b *ClassBuilder) { b.typeChecking = enabled }
}

// WithAccess sets the visibility of the class itself.
func WithAccess(a Access) BuilderOption {
	return func(b *ClassBuilder) { b.access = a }
}

// ClassBuilder collects slot, method and nested class declarations for a
// single class. Builders are used from one goroutine only. Assemble turns
// the builder into an immutable ClassDescriptor; the builder must not be
// used afterwards.
type ClassBuilder struct {
	name         string
	source       SourceSection
	outer        Scope
	access       Access
	typeChecking bool
	root         bool // no superclass
	primitive    bool // instances are kernel values; no primary factory

	slots    map[*Selector]*Slot
	ordered  []*Slot
	instance *tableBuilder
	factory  *tableBuilder

	nested []*ClassDescriptor

	allSlotsImmutable bool

	superclassResolution ClassResolver
	mixinResolvers       []ClassResolver

	superclassFactorySend    Invokable
	isSimpleSuperFactorySend bool
	mixinFactorySends        []Invokable
	initSteps                []Invokable

	primaryFactory *Selector
	primarySource  SourceSection
	valueClass     bool

	// set by Assemble; read lazily by synthesized sends
	descriptor *ClassDescriptor
}

// NewClassBuilder starts a class definition. A nil outer scope denotes a
// top-level module.
func NewClassBuilder(name string, outer Scope, source SourceSection, opts ...BuilderOption) *ClassBuilder {
	b := &ClassBuilder{
		name:              name,
		source:            source,
		outer:             outer,
		typeChecking:      true,
		slots:             make(map[*Selector]*Slot),
		instance:          newTableBuilder(),
		factory:           newTableBuilder(),
		allSlotsImmutable: true,
		primaryFactory:    Sym("new"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.isSimpleSuperFactorySend = true
	b.superclassFactorySend = b.StandardSuperFactorySend(source)
	return b
}

// Name returns the class name.
func (b *ClassBuilder) Name() string { return b.name }

// IsImmutable reports whether every slot declared so far is immutable and
// the enclosing scope is immutable.
func (b *ClassBuilder) IsImmutable() bool {
	if !b.allSlotsImmutable {
		return false
	}
	if b.outer != nil {
		return b.outer.IsImmutable()
	}
	return true
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// DeclareSlot adds a slot. It registers a read capability and, for mutable
// slots, a write capability under the setter name. When the slot is typed
// the raw write is masked and a type-checking method is installed under the
// setter name instead. An initializer expression runs during instance
// initialization, in declaration order.
func (b *ClassBuilder) DeclareSlot(d SlotDecl) error {
	if err := b.checkOpen(d.Source); err != nil {
		return err
	}
	name := Sym(d.Name)
	if existing := b.instance.get(name); existing != nil {
		return definitionError(b.name, d.Source,
			"already defines a %s named '%s'; a slot with the same name is not possible",
			existing.kind, d.Name)
	}
	setter := SetterName(name)
	if d.Mutable {
		if existing := b.instance.get(setter); existing != nil {
			return definitionError(b.name, d.Source,
				"already defines a %s named '%s', which the setter of slot '%s' would replace",
				existing.kind, setter.Name(), d.Name)
		}
	}

	typ := d.Type
	if !b.typeChecking {
		typ = nil
	}

	slot := &Slot{
		Name:    name,
		Access:  d.Access,
		Mutable: d.Mutable,
		Type:    typ,
		Init:    d.Init,
		Source:  d.Source,
		index:   len(b.ordered),
	}
	b.slots[name] = slot
	b.ordered = append(b.ordered, slot)

	if d.Mutable {
		b.allSlotsImmutable = false
	}

	b.instance.put(&Capability{kind: KindSlotRead, selector: name, access: d.Access, slot: slot, index: slot.index})

	if d.Mutable {
		if typ != nil {
			masked := MaskedSetterName(name)
			b.instance.put(&Capability{kind: KindSlotWrite, selector: masked, access: Private, slot: slot, index: slot.index})
			b.instance.put(typedSetter(setter, masked, slot))
		} else {
			b.instance.put(&Capability{kind: KindSlotWrite, selector: setter, access: d.Access, slot: slot, index: slot.index})
		}
	}

	if d.Init != nil {
		b.initSteps = append(b.initSteps, b.slotInitializer(slot))
	}
	return nil
}

// typedSetter checks the argument against the slot's type, then performs
// the masked raw write.
func typedSetter(setter, masked *Selector, slot *Slot) *Capability {
	return &Capability{
		kind:     KindMethod,
		selector: setter,
		access:   slot.Access,
		arity:    1,
		body: func(rt *Runtime, self Value, args []Value) (Value, error) {
			if err := checkType(rt, slot.Type, args[0], slot.Source); err != nil {
				return nil, err
			}
			return rt.Perform(masked, self, args...)
		},
	}
}

// slotInitializer evaluates the slot's init expression and writes the slot
// of the receiver, checking the declared type first.
func (b *ClassBuilder) slotInitializer(slot *Slot) Invokable {
	return func(rt *Runtime, self Value, args []Value) (Value, error) {
		v, err := slot.Init(rt, self, args)
		if err != nil {
			return nil, err
		}
		if err := checkType(rt, slot.Type, v, slot.Source); err != nil {
			return nil, err
		}
		obj, ok := self.(*Object)
		if !ok {
			return nil, &PrimitiveError{Selector: slot.Name, Message: Describe(self) + " has no slots"}
		}
		owner := obj.class.classFor(b.descriptor)
		if owner == nil {
			return nil, &PrimitiveError{Selector: slot.Name, Message: "receiver is not an instance of " + b.name}
		}
		obj.SetSlot(owner.slotOffset+slot.index, v)
		return v, nil
	}
}

// DeclareMethod adds an instance-side method.
func (b *ClassBuilder) DeclareMethod(selector *Selector, access Access, body Invokable, source SourceSection) error {
	if err := b.checkOpen(source); err != nil {
		return err
	}
	if existing := b.instance.get(selector); existing != nil {
		return definitionError(b.name, source,
			"already contains a %s named %s; can't define a method with the same name",
			existing.kind, selector.Name())
	}
	b.instance.put(&Capability{kind: KindMethod, selector: selector, access: access, body: body, arity: selector.Arity()})
	return nil
}

// DeclareFactoryMethod adds a class-side method. The class side is a
// separate namespace: it may reuse names of instance-side selectors.
func (b *ClassBuilder) DeclareFactoryMethod(selector *Selector, access Access, body Invokable, source SourceSection) error {
	if err := b.checkOpen(source); err != nil {
		return err
	}
	if existing := b.factory.get(selector); existing != nil {
		return definitionError(b.name, source,
			"already contains a %s named %s; can't define a method with the same name",
			existing.kind, selector.Name())
	}
	b.factory.put(&Capability{kind: KindMethod, selector: selector, access: access, body: body, arity: selector.Arity()})
	return nil
}

// DeclareNestedClass installs an accessor for an assembled nested class.
// The accessor caches the instantiated class in a slot of the enclosing
// object.
func (b *ClassBuilder) DeclareNestedClass(nested *ClassDescriptor) error {
	if err := b.checkOpen(nested.Source()); err != nil {
		return err
	}
	name := Sym(nested.Name())
	if existing := b.instance.get(name); existing != nil {
		return definitionError(b.name, nested.Source(),
			"already defines a %s with the name '%s'; defining an inner class with the same name is not possible",
			existing.kind, nested.Name())
	}
	slot := &Slot{
		Name:   name,
		Access: nested.Access(),
		Source: nested.Source(),
		index:  len(b.ordered),
		nested: nested,
	}
	b.slots[name] = slot
	b.ordered = append(b.ordered, slot)
	b.nested = append(b.nested, nested)
	b.instance.put(&Capability{kind: KindNestedClass, selector: name, access: nested.Access(), slot: slot, index: slot.index, nested: nested})
	return nil
}

// ---------------------------------------------------------------------------
// Inheritance and initialization
// ---------------------------------------------------------------------------

// SetSuperclassResolution sets the late-bound superclass expression.
func (b *ClassBuilder) SetSuperclassResolution(resolve ClassResolver) {
	b.superclassResolution = resolve
}

// SetSimpleInheritance sets the superclass expression and uses the standard
// no-argument super factory send.
func (b *ClassBuilder) SetSimpleInheritance(resolve ClassResolver) {
	b.superclassResolution = resolve
	b.SetSuperclassFactorySend(b.StandardSuperFactorySend(b.source), true)
}

// AddMixinResolver appends a mixin expression. Mixins are applied on top of
// the superclass in the order they are added.
func (b *ClassBuilder) AddMixinResolver(resolve ClassResolver) {
	b.mixinResolvers = append(b.mixinResolvers, resolve)
}

// SetSuperclassFactorySend sets the first step of the initializer. simple
// marks the standard argument-less send, which permits eliding the
// initializer.
func (b *ClassBuilder) SetSuperclassFactorySend(send Invokable, simple bool) {
	b.superclassFactorySend = send
	b.isSimpleSuperFactorySend = simple
}

// AddMixinFactorySend appends an initializer step that initializes a mixin.
func (b *ClassBuilder) AddMixinFactorySend(send Invokable) {
	b.mixinFactorySends = append(b.mixinFactorySends, send)
}

// AddInitializerExpression appends a statement to the initializer. It runs
// in order with slot initializers.
func (b *ClassBuilder) AddInitializerExpression(expr Invokable) {
	b.initSteps = append(b.initSteps, expr)
}

// SetPrimaryFactory sets the signature of the primary factory method. The
// initializer takes the same arguments.
func (b *ClassBuilder) SetPrimaryFactory(selector *Selector, source SourceSection) {
	b.primaryFactory = selector
	b.primarySource = source
}

// SetValueClass marks the class as a value class: its initializer verifies
// that every slot holds a value.
func (b *ClassBuilder) SetValueClass(isValue bool) {
	b.valueClass = isValue
}

// StandardSuperFactorySend builds the send of the superclass initializer.
// With no arguments it sends initializer`new; each argument appends a colon
// to the factory name.
func (b *ClassBuilder) StandardSuperFactorySend(source SourceSection, argExprs ...Invokable) Invokable {
	name := "new"
	for range argExprs {
		name += ":"
	}
	site := NewSuperCallSite(InitializerName(Sym(name)))
	return func(rt *Runtime, self Value, args []Value) (Value, error) {
		lookup := rt.SuperLookupClass(b.descriptor, self)
		if lookup == nil {
			// Root of the hierarchy: nothing to initialize above us.
			return self, nil
		}
		superArgs, err := evalAll(rt, self, args, argExprs)
		if err != nil {
			return nil, err
		}
		return site.Dispatch(rt, lookup, self, superArgs...)
	}
}

// StandardMixinFactorySend builds the initializer send for the i-th mixin
// (in application order) of the class being built.
func (b *ClassBuilder) StandardMixinFactorySend(i int, argExprs ...Invokable) Invokable {
	name := "new"
	for range argExprs {
		name += ":"
	}
	factory := Sym(name)
	return func(rt *Runtime, self Value, args []Value) (Value, error) {
		obj, ok := self.(*Object)
		if !ok {
			return nil, &PrimitiveError{Selector: factory, Message: Describe(self) + " is not an instance"}
		}
		owner := obj.class.classFor(b.descriptor)
		if owner == nil {
			return self, nil
		}
		mixin := owner.mixinApplication(i)
		if mixin == nil {
			return self, nil
		}
		mixinArgs, err := evalAll(rt, self, args, argExprs)
		if err != nil {
			return nil, err
		}
		return rt.Perform(MixinInitializerName(factory, mixin.descriptor.id), self, mixinArgs...)
	}
}

func evalAll(rt *Runtime, self Value, args []Value, exprs []Invokable) ([]Value, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]Value, len(exprs))
	for i, e := range exprs {
		v, err := e(rt, self, args)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b *ClassBuilder) checkOpen(src SourceSection) error {
	if b.descriptor != nil {
		return definitionError(b.name, src, "class has already been assembled")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Native methods
// ---------------------------------------------------------------------------

// AddMethod0 declares a public native method taking no arguments. It panics
// if the selector is already taken; native definitions are fixed at compile
// time, so a clash is a programming error.
func (b *ClassBuilder) AddMethod0(name string, fn Method0Func) {
	b.mustDeclare(NewMethod0(name, fn), false)
}

// AddMethod1 declares a public native method taking one argument.
func (b *ClassBuilder) AddMethod1(name string, fn Method1Func) {
	b.mustDeclare(NewMethod1(name, fn), false)
}

// AddMethod2 declares a public native method taking two arguments.
func (b *ClassBuilder) AddMethod2(name string, fn Method2Func) {
	b.mustDeclare(NewMethod2(name, fn), false)
}

// AddMethod3 declares a public native method taking three arguments.
func (b *ClassBuilder) AddMethod3(name string, fn Method3Func) {
	b.mustDeclare(NewMethod3(name, fn), false)
}

// AddClassMethod0 declares a native factory method taking no arguments.
func (b *ClassBuilder) AddClassMethod0(name string, fn Method0Func) {
	b.mustDeclare(NewMethod0(name, fn), true)
}

// AddClassMethod1 declares a native factory method taking one argument.
func (b *ClassBuilder) AddClassMethod1(name string, fn Method1Func) {
	b.mustDeclare(NewMethod1(name, fn), true)
}

func (b *ClassBuilder) mustDeclare(c *Capability, classSide bool) {
	var err error
	if classSide {
		err = b.DeclareFactoryMethod(c.selector, Public, c.body, b.source)
	} else {
		err = b.DeclareMethod(c.selector, Public, c.body, b.source)
	}
	if err != nil {
		panic(err)
	}
}
