package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestICStatsAndSnapshot(t *testing.T) {
	rt := newTestRuntime(t)
	shapes := shapeClasses(t, rt, DefaultInlineCacheSize+1)

	mono := rt.NewCallSite(Sym("+"), WithSource(src(40)))
	for i := int64(0); i < 10; i++ {
		if _, err := mono.Dispatch(rt, i, int64(1)); err != nil {
			t.Fatal(err)
		}
	}

	mega := rt.NewCallSite(Sym("shape"), WithSource(src(41)))
	for _, c := range shapes {
		if _, err := mega.Dispatch(rt, mustNew(t, rt, c)); err != nil {
			t.Fatal(err)
		}
	}

	rt.NewCallSite(Sym("unused"), WithSource(src(42)))

	stats := rt.ICStats()
	want := ICStats{
		TotalCallSites:  3,
		Monomorphic:     1,
		Megamorphic:     1,
		Empty:           1,
		TotalHits:       9,
		TotalMisses:     1 + uint64(len(shapes)),
		Specializations: 1 + DefaultInlineCacheSize,
	}
	if diff := cmp.Diff(want, stats, cmpopts.IgnoreFields(ICStats{}, "HitRate", "MonomorphicRate")); diff != "" {
		t.Errorf("ICStats mismatch (-want +got):\n%s", diff)
	}
	if stats.MonomorphicRate != 50 {
		t.Errorf("MonomorphicRate = %v, want 50", stats.MonomorphicRate)
	}

	snap := rt.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() has %d sites, want 3", len(snap))
	}
	wantFirst := SiteReport{
		ID:          1,
		Kind:        "send",
		Selector:    "+",
		Source:      "test.ns:40:1",
		ChainLength: 1,
		State:       CacheMonomorphic,
		Nodes:       []string{"EagerArithmetic"},
		Stats:       SiteStats{Hits: 9, Misses: 1, Specializations: 1},
	}
	if diff := cmp.Diff(wantFirst, snap[0]); diff != "" {
		t.Errorf("first report mismatch (-want +got):\n%s", diff)
	}
	if snap[1].State != CacheMegamorphic || snap[1].ChainLength != GenericChainLength {
		t.Errorf("second report = %+v", snap[1])
	}
	if snap[2].State != CacheEmpty || snap[2].Nodes != nil {
		t.Errorf("third report = %+v", snap[2])
	}
}

func TestTopSites(t *testing.T) {
	rt := newTestRuntime(t)
	counts := map[string]int{"a": 3, "b": 10, "c": 1}
	for _, name := range []string{"a", "b", "c"} {
		site := rt.NewCallSite(Sym("yourself"), WithSource(SourceSection{File: name, Line: 1}))
		for i := 0; i < counts[name]; i++ {
			if _, err := site.Dispatch(rt, int64(i)); err != nil {
				t.Fatal(err)
			}
		}
	}

	top := rt.TopSites(2)
	var got []string
	for _, r := range top {
		got = append(got, r.Source)
	}
	if diff := cmp.Diff([]string{"b:1:0", "a:1:0"}, got); diff != "" {
		t.Errorf("TopSites(2) mismatch (-want +got):\n%s", diff)
	}
	if len(rt.TopSites(10)) != 3 {
		t.Error("TopSites should cap at the number of sites")
	}
	if len(rt.TopSites(-1)) != 0 {
		t.Error("TopSites(-1) should be empty")
	}
}

func TestCacheStateString(t *testing.T) {
	tests := map[CacheState]string{
		CacheEmpty:       "uninitialized",
		CacheMonomorphic: "monomorphic",
		CachePolymorphic: "polymorphic",
		CacheMegamorphic: "megamorphic",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
	for length, want := range map[int]CacheState{0: CacheEmpty, 1: CacheMonomorphic, 4: CachePolymorphic, GenericChainLength: CacheMegamorphic} {
		if got := classify(length); got != want {
			t.Errorf("classify(%d) = %v, want %v", length, got, want)
		}
	}
}
