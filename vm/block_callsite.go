package vm

import "sync/atomic"

// BlockCallSite evaluates closures. Blocks are invoked directly without
// caching; any other receiver gets a generic value, value:, ... send.
type BlockCallSite struct {
	arity int

	used       atomic.Bool
	counters   siteCounters
	registered atomic.Bool
}

// NewBlockCallSite creates a site that evaluates closures with arity
// arguments.
func NewBlockCallSite(arity int) *BlockCallSite {
	return &BlockCallSite{arity: arity}
}

// Dispatch evaluates receiver with args.
func (s *BlockCallSite) Dispatch(rt *Runtime, receiver Value, args ...Value) (Value, error) {
	if !s.registered.Load() {
		rt.sites.register(s, &s.registered)
	}
	s.used.Store(true)
	if b, ok := receiver.(*Block); ok {
		s.counters.hits.Add(1)
		return b.Invoke(rt, args)
	}
	s.counters.misses.Add(1)
	return rt.sendGeneric(valueSelector(len(args)), receiver, args)
}

// LengthOfDispatchChain returns 0 before the first evaluation and
// GenericChainLength afterwards: the site never caches.
func (s *BlockCallSite) LengthOfDispatchChain() int {
	if !s.used.Load() {
		return 0
	}
	return GenericChainLength
}

// Stats returns a copy of the site's counters.
func (s *BlockCallSite) Stats() SiteStats {
	return s.counters.snapshot()
}

func (s *BlockCallSite) report() SiteReport {
	length := s.LengthOfDispatchChain()
	r := SiteReport{
		Kind:        "block",
		Selector:    valueSelector(s.arity).Name(),
		ChainLength: length,
		State:       classify(length),
		Stats:       s.counters.snapshot(),
	}
	if length > 0 {
		r.Nodes = []string{BlockGeneric.String()}
	}
	return r
}
