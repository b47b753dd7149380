package vm

import (
	"sync/atomic"

	"github.com/xiaq/persistent/vector"
)

type superState struct {
	generic bool
	entries vector.Vector // of *node
}

// SuperCallSite dispatches a send whose lookup starts at a lexically fixed
// class. Entries are keyed by the lookup class rather than the receiver's
// class: a class declared once can be instantiated against several
// superclasses, so one site can see several lookup classes.
type SuperCallSite struct {
	selector *Selector

	state      atomic.Pointer[superState]
	counters   siteCounters
	registered atomic.Bool
}

// NewSuperCallSite creates an uninitialized super send site.
func NewSuperCallSite(selector *Selector) *SuperCallSite {
	s := &SuperCallSite{selector: selector}
	s.state.Store(&superState{entries: vector.Empty})
	return s
}

// Selector returns the selector sent at this site.
func (s *SuperCallSite) Selector() *Selector { return s.selector }

// Dispatch looks the selector up in lookupClass and invokes the result on
// receiver. An entry created for a receiver whose class was the lookup class
// itself is not a real super send: later hits on it send normally, by the
// receiver's class.
func (s *SuperCallSite) Dispatch(rt *Runtime, lookupClass *Class, receiver Value, args ...Value) (Value, error) {
	if !s.registered.Load() {
		rt.sites.register(s, &s.registered)
	}
	st := s.state.Load()
	if st.generic {
		return s.lookup(rt, lookupClass, receiver, args)
	}
	for it := st.entries.Iterator(); it.HasElem(); it.Next() {
		n := it.Elem().(*node)
		if n.lookupClass == lookupClass {
			s.counters.hits.Add(1)
			if !n.realSuper {
				return rt.sendGeneric(s.selector, receiver, args)
			}
			return n.target.Invoke(rt, receiver, args)
		}
	}
	s.counters.misses.Add(1)

	target := lookupClass.Lookup(s.selector)
	if target == nil {
		return rt.notUnderstood(s.selector, receiver, args)
	}
	if st.entries.Len() >= rt.opts.InlineCacheSize {
		if s.state.CompareAndSwap(st, &superState{generic: true, entries: vector.Empty}) {
			log.Infof("super #%s is megamorphic", s.selector.Name())
		}
		return target.Invoke(rt, receiver, args)
	}
	entry := &node{
		kind:        SuperGuarded,
		name:        lookupClass.Name(),
		lookupClass: lookupClass,
		target:      target,
		realSuper:   rt.ClassOf(receiver) != lookupClass,
	}
	if s.state.CompareAndSwap(st, &superState{entries: st.entries.Cons(entry)}) {
		s.counters.specializations.Add(1)
	}
	return target.Invoke(rt, receiver, args)
}

func (s *SuperCallSite) lookup(rt *Runtime, lookupClass *Class, receiver Value, args []Value) (Value, error) {
	target := lookupClass.Lookup(s.selector)
	if target == nil {
		return rt.notUnderstood(s.selector, receiver, args)
	}
	return target.Invoke(rt, receiver, args)
}

// LengthOfDispatchChain returns the number of cached lookup classes, or
// GenericChainLength once the site is megamorphic.
func (s *SuperCallSite) LengthOfDispatchChain() int {
	st := s.state.Load()
	if st.generic {
		return GenericChainLength
	}
	return st.entries.Len()
}

// RealSuperSends reports, per cached lookup class, whether the receiver
// seen when the entry was created was an instance of a subclass of the
// lookup class rather than of the lookup class itself.
func (s *SuperCallSite) RealSuperSends() map[*Class]bool {
	out := make(map[*Class]bool)
	for it := s.state.Load().entries.Iterator(); it.HasElem(); it.Next() {
		n := it.Elem().(*node)
		out[n.lookupClass] = n.realSuper
	}
	return out
}

// Stats returns a copy of the site's counters.
func (s *SuperCallSite) Stats() SiteStats {
	return s.counters.snapshot()
}

func (s *SuperCallSite) report() SiteReport {
	length := s.LengthOfDispatchChain()
	r := SiteReport{
		Kind:        "super",
		Selector:    s.selector.Name(),
		ChainLength: length,
		State:       classify(length),
		Stats:       s.counters.snapshot(),
	}
	if length == GenericChainLength {
		r.Nodes = []string{Generic.String()}
		return r
	}
	for i := 0; i < length; i++ {
		r.Nodes = append(r.Nodes, SuperGuarded.String())
	}
	return r
}
