package vm

import (
	"sync/atomic"

	"github.com/xiaq/persistent/vector"
)

// Adaptive dispatch
//
// A call site starts uninitialized. Its first execution asks the specializer
// for an eager node; if the send does not match a recognized pattern, the
// receiver's class is looked up and a guarded cache entry is appended to the
// site's chain. Entries are tried in insertion order. Once the chain holds
// as many entries as the inline cache allows, the next miss collapses the
// site to the generic path for good.
//
// The state of a site is an immutable snapshot. Every transition builds a
// complete new snapshot and publishes it with a compare-and-swap, so a
// concurrent reader sees either the old chain or the new one. A lost race
// only means an entry is not cached; the send itself still completes.

// GenericChainLength is reported as the chain length of a site that
// performs a table lookup on every send.
const GenericChainLength = 1000

// NodeKind tags the dispatch node installed at a call site.
type NodeKind uint8

const (
	EagerArithmetic NodeKind = iota // Open-coded arithmetic or comparison
	EagerControl                    // Open-coded boolean or block control flow
	EagerIteration                  // Open-coded counting loop
	EagerAccess                     // Open-coded array access
	CachedGuarded                   // Class-guarded capability
	Generic                         // Table lookup on every send
	SuperGuarded                    // Lookup-class-keyed super send
	BlockGeneric                    // Direct closure invocation
)

func (k NodeKind) String() string {
	switch k {
	case EagerArithmetic:
		return "EagerArithmetic"
	case EagerControl:
		return "EagerControl"
	case EagerIteration:
		return "EagerIteration"
	case EagerAccess:
		return "EagerAccess"
	case CachedGuarded:
		return "CachedGuarded"
	case Generic:
		return "Generic"
	case SuperGuarded:
		return "SuperGuarded"
	case BlockGeneric:
		return "BlockGeneric"
	}
	return "NodeKind(?)"
}

// CacheState classifies a call site by the guards it has accumulated.
type CacheState uint8

const (
	CacheEmpty       CacheState = iota // Never executed
	CacheMonomorphic                   // One guard or an eager node
	CachePolymorphic                   // Several guards
	CacheMegamorphic                   // Generic lookup
)

func (s CacheState) String() string {
	switch s {
	case CacheEmpty:
		return "uninitialized"
	case CacheMonomorphic:
		return "monomorphic"
	case CachePolymorphic:
		return "polymorphic"
	case CacheMegamorphic:
		return "megamorphic"
	}
	return "unknown"
}

// classify maps a chain length to a cache state.
func classify(length int) CacheState {
	switch {
	case length <= 0:
		return CacheEmpty
	case length == 1:
		return CacheMonomorphic
	case length >= GenericChainLength:
		return CacheMegamorphic
	}
	return CachePolymorphic
}

// eagerFunc runs an open-coded operation. ok is false when the operands do
// not have the shape the node was built for; in that case nothing has been
// evaluated and the send must be repeated generically.
type eagerFunc func(rt *Runtime, receiver Value, args []Value) (result Value, ok bool, err error)

// node is one immutable dispatch step.
type node struct {
	kind NodeKind
	name string

	eager eagerFunc

	guard  guard
	target *Capability

	lookupClass *Class
	realSuper   bool
}

// guard matches a receiver by its exact class, or for booleans by its
// truth value.
type guard struct {
	class   *Class
	boolean bool
	truth   bool
}

func guardFor(receiver Value, cls *Class) guard {
	if b, ok := receiver.(bool); ok {
		return guard{boolean: true, truth: b}
	}
	return guard{class: cls}
}

func (g guard) matches(rt *Runtime, receiver Value) bool {
	if g.boolean {
		b, ok := receiver.(bool)
		return ok && b == g.truth
	}
	return rt.ClassOf(receiver) == g.class
}

type sitePhase uint8

const (
	phaseUninitialized sitePhase = iota
	phaseEager
	phaseChain
	phaseGeneric
)

// siteState is a published, never-mutated snapshot of a call site.
type siteState struct {
	phase sitePhase
	eager *node
	chain vector.Vector // of *node, in insertion order
}

var uninitializedState = &siteState{phase: phaseUninitialized, chain: vector.Empty}

func (st *siteState) length() int {
	switch st.phase {
	case phaseEager:
		return 1
	case phaseChain:
		return st.chain.Len()
	case phaseGeneric:
		return GenericChainLength
	}
	return 0
}

// ---------------------------------------------------------------------------
// CallSite
// ---------------------------------------------------------------------------

// SiteStats holds the counters of one call site.
type SiteStats struct {
	Hits            uint64
	Misses          uint64
	Specializations uint64
	Deopts          uint64
}

type siteCounters struct {
	hits            atomic.Uint64
	misses          atomic.Uint64
	specializations atomic.Uint64
	deopts          atomic.Uint64
}

func (c *siteCounters) snapshot() SiteStats {
	return SiteStats{
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		Specializations: c.specializations.Load(),
		Deopts:          c.deopts.Load(),
	}
}

// SiteOption configures a call site.
type SiteOption func(*CallSite)

// WithLiteralBlocks records which arguments are block literals in the
// source, so that control-flow sends can be open-coded.
func WithLiteralBlocks(receiver bool, args ...bool) SiteOption {
	return func(s *CallSite) {
		s.literalReceiver = receiver
		s.literalArgs = args
	}
}

// WithSource records where the send appears.
func WithSource(src SourceSection) SiteOption {
	return func(s *CallSite) { s.source = src }
}

// CallSite is the dispatch state of one send location. It is safe for
// concurrent use.
type CallSite struct {
	selector        *Selector
	source          SourceSection
	literalReceiver bool
	literalArgs     []bool

	state      atomic.Pointer[siteState]
	counters   siteCounters
	registered atomic.Bool
}

// NewCallSite creates an uninitialized call site for selector.
func NewCallSite(selector *Selector, opts ...SiteOption) *CallSite {
	s := &CallSite{selector: selector}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(uninitializedState)
	return s
}

// Selector returns the selector sent at this site.
func (s *CallSite) Selector() *Selector { return s.selector }

// Source returns where the send appears.
func (s *CallSite) Source() SourceSection { return s.source }

// isLiteralArg reports whether argument i is a block literal.
func (s *CallSite) isLiteralArg(i int) bool {
	return i < len(s.literalArgs) && s.literalArgs[i]
}

// Dispatch sends the site's selector to receiver.
func (s *CallSite) Dispatch(rt *Runtime, receiver Value, args ...Value) (Value, error) {
	if !s.registered.Load() {
		rt.sites.register(s, &s.registered)
	}
	st := s.state.Load()
	switch st.phase {
	case phaseEager:
		v, ok, err := st.eager.eager(rt, receiver, args)
		if ok {
			s.counters.hits.Add(1)
			return v, err
		}
		return s.deoptimize(rt, st, receiver, args)

	case phaseChain:
		if n := st.lookupChain(rt, receiver); n != nil {
			s.counters.hits.Add(1)
			return n.target.Invoke(rt, receiver, args)
		}
		s.counters.misses.Add(1)
		return s.extend(rt, st, receiver, args)

	case phaseGeneric:
		return rt.sendGeneric(s.selector, receiver, args)
	}

	s.counters.misses.Add(1)
	return s.specialize(rt, st, receiver, args)
}

// specialize handles the first execution of the site.
func (s *CallSite) specialize(rt *Runtime, st *siteState, receiver Value, args []Value) (Value, error) {
	if rt.opts.EagerSpecialization {
		if n := rt.specializer.eagerNode(rt, s, receiver, args); n != nil {
			next := &siteState{phase: phaseEager, eager: n, chain: vector.Empty}
			if !s.state.CompareAndSwap(st, next) {
				return s.Dispatch(rt, receiver, args...)
			}
			s.counters.specializations.Add(1)
			log.Debugf("%s: #%s specialized as %s %s", s.source, s.selector.Name(), n.kind, n.name)
			v, ok, err := n.eager(rt, receiver, args)
			if ok {
				return v, err
			}
			return s.deoptimize(rt, next, receiver, args)
		}
	}
	return s.extend(rt, st, receiver, args)
}

// deoptimize replaces an eager node whose assumptions failed with an empty
// chain and performs the send once through it.
func (s *CallSite) deoptimize(rt *Runtime, st *siteState, receiver Value, args []Value) (Value, error) {
	next := &siteState{phase: phaseChain, chain: vector.Empty}
	if s.state.CompareAndSwap(st, next) {
		s.counters.deopts.Add(1)
		log.Infof("%s: #%s deoptimized %s for %s", s.source, s.selector.Name(), st.eager.name, Describe(receiver))
	} else {
		next = s.state.Load()
	}
	if next.phase == phaseGeneric {
		return rt.sendGeneric(s.selector, receiver, args)
	}
	if n := next.lookupChain(rt, receiver); n != nil {
		return n.target.Invoke(rt, receiver, args)
	}
	return s.extend(rt, next, receiver, args)
}

// lookupChain returns the first chain entry whose guard accepts receiver.
func (st *siteState) lookupChain(rt *Runtime, receiver Value) *node {
	if st.chain == nil {
		return nil
	}
	for it := st.chain.Iterator(); it.HasElem(); it.Next() {
		if n := it.Elem().(*node); n.guard.matches(rt, receiver) {
			return n
		}
	}
	return nil
}

// extend resolves the receiver's class, appends a guarded entry unless the
// chain is full, and invokes the result. A full chain collapses the site to
// the generic path.
func (s *CallSite) extend(rt *Runtime, st *siteState, receiver Value, args []Value) (Value, error) {
	cls := rt.ClassOf(receiver)
	target := cls.Lookup(s.selector)
	if target == nil {
		return rt.notUnderstood(s.selector, receiver, args)
	}

	chain := st.chain
	if chain == nil {
		chain = vector.Empty
	}
	if chain.Len() >= rt.opts.InlineCacheSize {
		if s.state.CompareAndSwap(st, &siteState{phase: phaseGeneric, chain: vector.Empty}) {
			log.Infof("%s: #%s is megamorphic after %d shapes", s.source, s.selector.Name(), chain.Len())
		}
		return target.Invoke(rt, receiver, args)
	}

	entry := &node{
		kind:   CachedGuarded,
		name:   cls.Name(),
		guard:  guardFor(receiver, cls),
		target: target,
	}
	if s.state.CompareAndSwap(st, &siteState{phase: phaseChain, chain: chain.Cons(entry)}) {
		s.counters.specializations.Add(1)
	}
	return target.Invoke(rt, receiver, args)
}

// LengthOfDispatchChain returns 0 for an uninitialized site, 1 for an eager
// node, the number of cache entries for a chain and GenericChainLength once
// the site is megamorphic.
func (s *CallSite) LengthOfDispatchChain() int {
	return s.state.Load().length()
}

// Classification returns the site's cache state.
func (s *CallSite) Classification() CacheState {
	return classify(s.LengthOfDispatchChain())
}

// Kinds returns the kinds of the installed nodes in dispatch order.
func (s *CallSite) Kinds() []NodeKind {
	st := s.state.Load()
	switch st.phase {
	case phaseEager:
		return []NodeKind{st.eager.kind}
	case phaseGeneric:
		return []NodeKind{Generic}
	}
	kinds := make([]NodeKind, 0, st.chain.Len())
	for it := st.chain.Iterator(); it.HasElem(); it.Next() {
		kinds = append(kinds, it.Elem().(*node).kind)
	}
	return kinds
}

// Stats returns a copy of the site's counters.
func (s *CallSite) Stats() SiteStats {
	return s.counters.snapshot()
}

func (s *CallSite) report() SiteReport {
	st := s.state.Load()
	r := SiteReport{
		Kind:        "send",
		Selector:    s.selector.Name(),
		Source:      s.source.String(),
		ChainLength: st.length(),
		State:       classify(st.length()),
		Stats:       s.counters.snapshot(),
	}
	for _, k := range s.Kinds() {
		r.Nodes = append(r.Nodes, k.String())
	}
	return r
}
