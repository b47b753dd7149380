package vm

import "sort"

// DispatchTable maps selectors to capabilities for one namespace of a class.
//
// Capabilities are stored in a slice indexed by selector ID, so lookup is a
// bounds check and an index. The table is flat: everything reachable through
// the class, including inherited and mixed-in behavior, has already been
// copied in. A table is never mutated once built; it is safe to share
// between goroutines without locking.
type DispatchTable struct {
	entries []*Capability
	count   int
}

// Resolve returns the capability for selector, or nil if the class does not
// understand it.
func (t *DispatchTable) Resolve(selector *Selector) *Capability {
	if t == nil || selector == nil {
		return nil
	}
	id := selector.id
	if id < 0 || id >= len(t.entries) {
		return nil
	}
	return t.entries[id]
}

// Has returns true if the table holds a capability for selector.
func (t *DispatchTable) Has(selector *Selector) bool {
	return t.Resolve(selector) != nil
}

// Len returns the number of installed capabilities.
func (t *DispatchTable) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Each calls fn for every capability in selector ID order.
func (t *DispatchTable) Each(fn func(*Capability)) {
	if t == nil {
		return
	}
	for _, c := range t.entries {
		if c != nil {
			fn(c)
		}
	}
}

// Selectors returns the names of all installed selectors, sorted.
func (t *DispatchTable) Selectors() []string {
	names := make([]string, 0, t.Len())
	t.Each(func(c *Capability) {
		names = append(names, c.selector.Name())
	})
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// tableBuilder accumulates capabilities before a DispatchTable is frozen.
// Unlike the frozen table it is keyed by selector pointer, so lookups of
// unique (uninterned) selectors behave the same as interned ones.
type tableBuilder struct {
	bySelector map[*Selector]*Capability
	order      []*Selector
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{bySelector: make(map[*Selector]*Capability)}
}

func (b *tableBuilder) get(selector *Selector) *Capability {
	return b.bySelector[selector]
}

func (b *tableBuilder) has(selector *Selector) bool {
	_, ok := b.bySelector[selector]
	return ok
}

// put adds or replaces the capability for its selector.
func (b *tableBuilder) put(c *Capability) {
	if _, ok := b.bySelector[c.selector]; !ok {
		b.order = append(b.order, c.selector)
	}
	b.bySelector[c.selector] = c
}

// putAll copies every entry of a frozen table.
func (b *tableBuilder) putAll(t *DispatchTable) {
	t.Each(b.put)
}

func (b *tableBuilder) each(fn func(*Capability)) {
	for _, sel := range b.order {
		fn(b.bySelector[sel])
	}
}

// freeze produces the immutable table.
func (b *tableBuilder) freeze() *DispatchTable {
	maxID := -1
	for _, sel := range b.order {
		if sel.id > maxID {
			maxID = sel.id
		}
	}
	t := &DispatchTable{entries: make([]*Capability, maxID+1)}
	for _, sel := range b.order {
		t.entries[sel.id] = b.bySelector[sel]
		t.count++
	}
	return t
}
