package vm

import (
	"sync"
	"sync/atomic"
)

// Call-site registry
//
// Every call site registers itself with the runtime the first time it
// dispatches. The registry only feeds tooling: statistics, the hottest
// sites and exported snapshots. Dispatch never consults it.

type reportingSite interface {
	report() SiteReport
}

// SiteReport describes one call site at the time it was taken.
type SiteReport struct {
	ID          int
	Kind        string // send, super or block
	Selector    string
	Source      string
	ChainLength int
	State       CacheState
	Nodes       []string
	Stats       SiteStats
}

type siteRegistry struct {
	mu    sync.Mutex
	sites []reportingSite
}

func (r *siteRegistry) register(s reportingSite, flag *atomic.Bool) {
	if !flag.CompareAndSwap(false, true) {
		return
	}
	r.mu.Lock()
	r.sites = append(r.sites, s)
	r.mu.Unlock()
}

func (r *siteRegistry) all() []reportingSite {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reportingSite, len(r.sites))
	copy(out, r.sites)
	return out
}

// ICStats holds aggregate inline cache statistics.
type ICStats struct {
	TotalCallSites  int     // Total number of registered call sites
	Monomorphic     int     // Call sites in monomorphic state
	Polymorphic     int     // Call sites in polymorphic state
	Megamorphic     int     // Call sites in megamorphic state
	Empty           int     // Call sites never specialized
	TotalHits       uint64  // Total cache hits
	TotalMisses     uint64  // Total cache misses
	Specializations uint64  // Nodes installed
	Deopts          uint64  // Eager nodes abandoned
	HitRate         float64 // Overall hit rate percentage
	MonomorphicRate float64 // Percentage of used call sites that are monomorphic
}

// ICStats gathers statistics from every call site that has dispatched.
func (rt *Runtime) ICStats() ICStats {
	var stats ICStats
	for _, r := range rt.Snapshot() {
		stats.TotalCallSites++
		switch r.State {
		case CacheMonomorphic:
			stats.Monomorphic++
		case CachePolymorphic:
			stats.Polymorphic++
		case CacheMegamorphic:
			stats.Megamorphic++
		case CacheEmpty:
			stats.Empty++
		}
		stats.TotalHits += r.Stats.Hits
		stats.TotalMisses += r.Stats.Misses
		stats.Specializations += r.Stats.Specializations
		stats.Deopts += r.Stats.Deopts
	}

	total := stats.TotalHits + stats.TotalMisses
	if total > 0 {
		stats.HitRate = float64(stats.TotalHits) * 100 / float64(total)
	}
	nonEmpty := stats.TotalCallSites - stats.Empty
	if nonEmpty > 0 {
		stats.MonomorphicRate = float64(stats.Monomorphic) * 100 / float64(nonEmpty)
	}
	return stats
}

// Snapshot reports every registered call site in registration order.
func (rt *Runtime) Snapshot() []SiteReport {
	sites := rt.sites.all()
	out := make([]SiteReport, len(sites))
	for i, s := range sites {
		out[i] = s.report()
		out[i].ID = i + 1
	}
	return out
}

// TopSites returns the n call sites with the most sends.
func (rt *Runtime) TopSites(n int) []SiteReport {
	if n < 0 {
		n = 0
	}
	all := rt.Snapshot()
	sends := func(r SiteReport) uint64 { return r.Stats.Hits + r.Stats.Misses }

	// Simple selection sort for top N (fine for small N)
	for i := 0; i < n && i < len(all); i++ {
		maxIdx := i
		for j := i + 1; j < len(all); j++ {
			if sends(all[j]) > sends(all[maxIdx]) {
				maxIdx = j
			}
		}
		all[i], all[maxIdx] = all[maxIdx], all[i]
	}
	if n < len(all) {
		all = all[:n]
	}
	return all
}
