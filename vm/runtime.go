package vm

import (
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("moth.vm")

// DefaultInlineCacheSize is the number of guarded entries a call site
// accumulates before it becomes megamorphic.
const DefaultInlineCacheSize = 6

// Options configures a Runtime.
type Options struct {
	InlineCacheSize     int  // Bound of a call site's cache chain
	EagerSpecialization bool // Open-code recognized sends
	TypeChecking        bool // Enforce declared slot types
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		InlineCacheSize:     DefaultInlineCacheSize,
		EagerSpecialization: true,
		TypeChecking:        true,
	}
}

// DoesNotUnderstandFunc intercepts failed lookups. Its result becomes the
// result of the send.
type DoesNotUnderstandFunc func(rt *Runtime, err *NotUnderstoodError) (Value, error)

// Kernel holds the classes of built-in values.
type Kernel struct {
	Object       *Class
	Class        *Class
	Nil          *Class
	Boolean      *Class
	True         *Class
	False        *Class
	Integer      *Class
	LargeInteger *Class
	Double       *Class
	String       *Class
	Symbol       *Class
	Array        *Class
	Block        *Class
}

// Runtime owns the kernel classes, the class registry and the call-site
// registry. Dispatch through a Runtime is safe for concurrent use.
type Runtime struct {
	opts        Options
	kernel      Kernel
	specializer specializer
	sites       siteRegistry

	// Classes holds named classes: the kernel and whatever the host
	// registers.
	Classes *ClassTable

	dnu        atomic.Pointer[DoesNotUnderstandFunc]
	superSites sync.Map // *Selector -> *SuperCallSite
}

// New creates and bootstraps a runtime.
func New(opts Options) *Runtime {
	if opts.InlineCacheSize < 1 {
		opts.InlineCacheSize = DefaultInlineCacheSize
	}
	rt := &Runtime{
		opts:    opts,
		Classes: NewClassTable(),
	}
	rt.bootstrap()
	return rt
}

// Options returns the options the runtime was created with.
func (rt *Runtime) Options() Options { return rt.opts }

// Kernel returns the kernel classes.
func (rt *Runtime) Kernel() *Kernel { return &rt.kernel }

// NewClassBuilder starts a class definition using the runtime's type
// checking setting.
func (rt *Runtime) NewClassBuilder(name string, outer Scope, source SourceSection, opts ...BuilderOption) *ClassBuilder {
	opts = append([]BuilderOption{WithTypeChecking(rt.opts.TypeChecking)}, opts...)
	return NewClassBuilder(name, outer, source, opts...)
}

// ClassOf returns the runtime class of any value.
func (rt *Runtime) ClassOf(v Value) *Class {
	switch x := v.(type) {
	case *Object:
		return x.class
	case int64:
		return rt.kernel.Integer
	case *big.Int:
		return rt.kernel.LargeInteger
	case float64:
		return rt.kernel.Double
	case bool:
		if x {
			return rt.kernel.True
		}
		return rt.kernel.False
	case string:
		return rt.kernel.String
	case *Selector:
		return rt.kernel.Symbol
	case *Array:
		return rt.kernel.Array
	case *Block:
		return rt.kernel.Block
	case *Class:
		if x.meta != nil {
			return x.meta
		}
		return rt.kernel.Class
	case nilObject, nil:
		return rt.kernel.Nil
	}
	return rt.kernel.Object
}

// ---------------------------------------------------------------------------
// Sends
// ---------------------------------------------------------------------------

// Perform sends selector to receiver with a fresh table lookup.
func (rt *Runtime) Perform(selector *Selector, receiver Value, args ...Value) (Value, error) {
	return rt.sendGeneric(selector, receiver, args)
}

// PerformInSuperclass sends selector to receiver, starting the lookup at
// lookupClass. Sends are cached per selector and lookup class.
func (rt *Runtime) PerformInSuperclass(selector *Selector, receiver Value, lookupClass *Class, args ...Value) (Value, error) {
	if lookupClass == nil {
		return rt.notUnderstood(selector, receiver, args)
	}
	site, ok := rt.superSites.Load(selector)
	if !ok {
		site, _ = rt.superSites.LoadOrStore(selector, NewSuperCallSite(selector))
	}
	return site.(*SuperCallSite).Dispatch(rt, lookupClass, receiver, args...)
}

// SuperLookupClass returns the class a super send in a method of holder
// starts its lookup at, for the given receiver: the superclass of the class
// in the receiver's chain that was built from holder.
func (rt *Runtime) SuperLookupClass(holder *ClassDescriptor, receiver Value) *Class {
	owner := rt.ClassOf(receiver).classFor(holder)
	if owner == nil {
		return nil
	}
	return owner.superclass
}

func (rt *Runtime) sendGeneric(selector *Selector, receiver Value, args []Value) (Value, error) {
	target := rt.ClassOf(receiver).Lookup(selector)
	if target == nil {
		return rt.notUnderstood(selector, receiver, args)
	}
	return target.Invoke(rt, receiver, args)
}

// SetDoesNotUnderstand installs a hook for failed lookups. Passing nil
// removes it.
func (rt *Runtime) SetDoesNotUnderstand(fn DoesNotUnderstandFunc) {
	if fn == nil {
		rt.dnu.Store(nil)
		return
	}
	rt.dnu.Store(&fn)
}

func (rt *Runtime) notUnderstood(selector *Selector, receiver Value, args []Value) (Value, error) {
	err := &NotUnderstoodError{Selector: selector, Receiver: receiver, Arguments: args}
	if hook := rt.dnu.Load(); hook != nil {
		return (*hook)(rt, err)
	}
	log.Debugf("%s", err)
	return nil, err
}

// ---------------------------------------------------------------------------
// Call sites
// ---------------------------------------------------------------------------

// NewCallSite creates a call site and registers it for statistics.
func (rt *Runtime) NewCallSite(selector *Selector, opts ...SiteOption) *CallSite {
	s := NewCallSite(selector, opts...)
	rt.sites.register(s, &s.registered)
	return s
}

// NewSuperCallSite creates a super send site and registers it.
func (rt *Runtime) NewSuperCallSite(selector *Selector) *SuperCallSite {
	s := NewSuperCallSite(selector)
	rt.sites.register(s, &s.registered)
	return s
}

// NewBlockCallSite creates a closure evaluation site and registers it.
func (rt *Runtime) NewBlockCallSite(arity int) *BlockCallSite {
	s := NewBlockCallSite(arity)
	rt.sites.register(s, &s.registered)
	return s
}
