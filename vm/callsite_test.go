package vm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// Monomorphic sends
// ---------------------------------------------------------------------------

func TestCallSiteMonomorphic(t *testing.T) {
	rt := newTestRuntime(t)
	point := pointClass(t, rt)
	p1 := newPoint(t, rt, point, 1, 2)
	p2 := newPoint(t, rt, point, 3, 4)

	site := rt.NewCallSite(Sym("+"), WithSource(src(20)))
	if site.LengthOfDispatchChain() != 0 || site.Classification() != CacheEmpty {
		t.Fatal("new site should be uninitialized")
	}

	for i := 0; i < 2; i++ {
		v, err := site.Dispatch(rt, p1, p2)
		if err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
		if v != int64(4) {
			t.Errorf("dispatch %d = %v, want 4", i, v)
		}
	}

	want := SiteStats{Hits: 1, Misses: 1, Specializations: 1}
	if diff := cmp.Diff(want, site.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NodeKind{CachedGuarded}, site.Kinds()); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	if site.LengthOfDispatchChain() != 1 {
		t.Errorf("LengthOfDispatchChain() = %d, want 1", site.LengthOfDispatchChain())
	}
	if site.Classification() != CacheMonomorphic {
		t.Errorf("Classification() = %v, want monomorphic", site.Classification())
	}
}

func TestCallSiteSubclassGetsOwnEntry(t *testing.T) {
	rt := newTestRuntime(t)
	point := pointClass(t, rt)

	b := rt.NewClassBuilder("Point3D", nil, src(30))
	b.SetSimpleInheritance(func(*Runtime, Value) (*Class, error) { return point, nil })
	mustDeclare(t, b.DeclareSlot(SlotDecl{Name: "z", Mutable: true, Source: src(31)}))
	point3d := mustInstantiate(t, rt, mustAssemble(t, b), nil)

	site := rt.NewCallSite(Sym("x"))
	for _, obj := range []Value{newPoint(t, rt, point, 1, 0), newPoint(t, rt, point3d, 2, 0)} {
		if _, err := site.Dispatch(rt, obj); err != nil {
			t.Fatal(err)
		}
	}
	if site.LengthOfDispatchChain() != 2 {
		t.Errorf("guards are exact-class: length = %d, want 2", site.LengthOfDispatchChain())
	}
	if site.Classification() != CachePolymorphic {
		t.Errorf("Classification() = %v, want polymorphic", site.Classification())
	}
}

func TestBooleanReceiversGuardOnTruth(t *testing.T) {
	opts := DefaultOptions()
	opts.EagerSpecialization = false
	rt := New(opts)

	site := rt.NewCallSite(Sym("printString"))
	for _, b := range []bool{true, false, true, false} {
		v, err := site.Dispatch(rt, b)
		if err != nil {
			t.Fatal(err)
		}
		want := "false"
		if b {
			want = "true"
		}
		if v != want {
			t.Errorf("%v printString = %v", b, v)
		}
	}
	if site.LengthOfDispatchChain() != 2 {
		t.Errorf("LengthOfDispatchChain() = %d, want 2", site.LengthOfDispatchChain())
	}
}

// ---------------------------------------------------------------------------
// Megamorphic collapse
// ---------------------------------------------------------------------------

func TestCallSiteBecomesMegamorphic(t *testing.T) {
	rt := newTestRuntime(t)
	shapes := shapeClasses(t, rt, DefaultInlineCacheSize+1)
	receivers := make([]Value, len(shapes))
	for i, c := range shapes {
		receivers[i] = mustNew(t, rt, c)
	}

	site := rt.NewCallSite(Sym("shape"))
	for i, r := range receivers[:DefaultInlineCacheSize] {
		v, err := site.Dispatch(rt, r)
		if err != nil {
			t.Fatal(err)
		}
		if v != int64(i) {
			t.Errorf("shape %d answered %v", i, v)
		}
		if got := site.LengthOfDispatchChain(); got != i+1 {
			t.Errorf("after %d shapes length = %d", i+1, got)
		}
	}
	if site.Classification() != CachePolymorphic {
		t.Fatalf("full chain should still be polymorphic, got %v", site.Classification())
	}

	last := len(receivers) - 1
	v, err := site.Dispatch(rt, receivers[last])
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(last) {
		t.Errorf("overflowing shape answered %v, want %d", v, last)
	}
	if site.LengthOfDispatchChain() != GenericChainLength {
		t.Errorf("LengthOfDispatchChain() = %d, want %d", site.LengthOfDispatchChain(), GenericChainLength)
	}
	if site.Classification() != CacheMegamorphic {
		t.Errorf("Classification() = %v, want megamorphic", site.Classification())
	}
	if diff := cmp.Diff([]NodeKind{Generic}, site.Kinds()); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}

	// A megamorphic site never goes back, and still answers correctly.
	for i, r := range receivers {
		v, err := site.Dispatch(rt, r)
		if err != nil || v != int64(i) {
			t.Errorf("shape %d after collapse: %v, %v", i, v, err)
		}
	}
	if site.LengthOfDispatchChain() != GenericChainLength {
		t.Error("megamorphic site must stay generic")
	}
}

func TestInlineCacheSizeOption(t *testing.T) {
	opts := DefaultOptions()
	opts.InlineCacheSize = 2
	rt := New(opts)
	shapes := shapeClasses(t, rt, 3)

	site := rt.NewCallSite(Sym("shape"))
	for _, c := range shapes {
		if _, err := site.Dispatch(rt, mustNew(t, rt, c)); err != nil {
			t.Fatal(err)
		}
	}
	if site.Classification() != CacheMegamorphic {
		t.Errorf("third shape with a cache of 2 should collapse, got %v", site.Classification())
	}

	if New(Options{}).Options().InlineCacheSize != DefaultInlineCacheSize {
		t.Error("zero cache size should fall back to the default")
	}
}

func TestCachedResultMatchesGeneric(t *testing.T) {
	rt := newTestRuntime(t)
	point := pointClass(t, rt)
	receivers := []Value{
		newPoint(t, rt, point, 5, 6),
		"text",
		NewArrayWithElements(int64(1), int64(2)),
		Nil,
		rt.Kernel().Array,
	}

	for _, sel := range []string{"printString", "class", "isNil", "yourself"} {
		site := rt.NewCallSite(Sym(sel))
		for round := 0; round < 2; round++ {
			for _, r := range receivers {
				got, err := site.Dispatch(rt, r)
				if err != nil {
					t.Fatalf("%s #%s: %v", Describe(r), sel, err)
				}
				want := mustSend(t, rt, sel, r)
				if got != want {
					t.Errorf("%s #%s: site = %v, generic = %v", Describe(r), sel, got, want)
				}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Failed lookups
// ---------------------------------------------------------------------------

func TestDoesNotUnderstand(t *testing.T) {
	rt := newTestRuntime(t)
	site := rt.NewCallSite(Sym("frobnicate:"))

	_, err := site.Dispatch(rt, int64(3), "arg")
	if !errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("expected ErrNotUnderstood, got %v", err)
	}
	var dnu *NotUnderstoodError
	if !errors.As(err, &dnu) {
		t.Fatal("expected *NotUnderstoodError")
	}
	if dnu.Selector != Sym("frobnicate:") || dnu.Receiver != int64(3) {
		t.Errorf("unexpected error contents: %+v", dnu)
	}
	if diff := cmp.Diff([]Value{"arg"}, dnu.Arguments); diff != "" {
		t.Errorf("arguments mismatch (-want +got):\n%s", diff)
	}
	if site.LengthOfDispatchChain() != 0 {
		t.Error("failed lookup must not be cached")
	}

	rt.SetDoesNotUnderstand(func(rt *Runtime, e *NotUnderstoodError) (Value, error) {
		return "handled " + e.Selector.Name(), nil
	})
	v, err := site.Dispatch(rt, int64(3), "arg")
	if err != nil || v != "handled frobnicate:" {
		t.Errorf("hook answered %v, %v", v, err)
	}

	rt.SetDoesNotUnderstand(nil)
	if _, err := rt.Perform(Sym("frobnicate:"), Nil, int64(1)); !errors.Is(err, ErrNotUnderstood) {
		t.Errorf("removed hook: got %v", err)
	}
}

func TestArityMismatch(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.Perform(Sym("printString"), int64(1), int64(2))
	var arityErr *ArityError
	if !errors.As(err, &arityErr) {
		t.Fatalf("expected *ArityError, got %v", err)
	}
	if arityErr.Want != 0 || arityErr.Got != 1 {
		t.Errorf("ArityError = %+v", arityErr)
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestCallSiteConcurrentDispatch(t *testing.T) {
	rt := newTestRuntime(t)
	shapes := shapeClasses(t, rt, 4)
	receivers := make([]Value, len(shapes))
	for i, c := range shapes {
		receivers[i] = mustNew(t, rt, c)
	}

	site := rt.NewCallSite(Sym("shape"))
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < 500; i++ {
				k := (i + w) % len(receivers)
				v, err := site.Dispatch(rt, receivers[k])
				if err != nil {
					return err
				}
				if v != int64(k) {
					return errors.New("wrong shape answered")
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := site.LengthOfDispatchChain(); got < 1 || got > len(shapes) {
		t.Errorf("LengthOfDispatchChain() = %d, want 1..%d", got, len(shapes))
	}
	stats := site.Stats()
	if stats.Hits+stats.Misses != 8*500 {
		t.Errorf("hits+misses = %d, want %d", stats.Hits+stats.Misses, 8*500)
	}
}
