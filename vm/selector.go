package vm

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Selector is an interned message name.
//
// Two selectors with the same name obtained from the same Interner are the
// same pointer, so identity comparison suffices for equality. The arity is
// implied by the textual shape of the name: identifiers are unary, operator
// names are binary, and keyword names take one argument per colon.
type Selector struct {
	id       int
	name     string
	arity    int
	interned bool
}

// ID returns the dense numeric ID used to index dispatch tables.
func (s *Selector) ID() int { return s.id }

// Name returns the textual selector.
func (s *Selector) Name() string { return s.name }

// Arity returns the number of arguments, excluding the receiver.
func (s *Selector) Arity() int { return s.arity }

// IsInterned reports whether the selector is reachable by name.
func (s *Selector) IsInterned() bool { return s.interned }

func (s *Selector) String() string { return s.name }

// ArityOf derives the argument count from a selector's textual shape.
func ArityOf(name string) int {
	if n := strings.Count(name, ":"); n > 0 {
		return n
	}
	if name == "" {
		return 0
	}
	r := []rune(name)[0]
	if unicode.IsLetter(r) || r == '_' || r == '`' {
		return 0
	}
	return 1
}

// Interner interns selector names to unique Selectors.
//
// The table is append-only and safe for concurrent use. Selectors live for
// the rest of the program.
type Interner struct {
	mu     sync.RWMutex
	byName map[string]*Selector
	byID   []*Selector
}

// NewInterner creates a new empty interner.
func NewInterner() *Interner {
	return &Interner{
		byName: make(map[string]*Selector),
		byID:   make([]*Selector, 0, 256),
	}
}

// Selectors is the process-wide interner.
var Selectors = NewInterner()

// Sym interns name in the process-wide interner.
func Sym(name string) *Selector {
	return Selectors.Intern(name)
}

// Intern returns the selector for name, creating it if needed.
func (in *Interner) Intern(name string) *Selector {
	// Fast path: read-only lookup
	in.mu.RLock()
	if s, ok := in.byName[name]; ok {
		in.mu.RUnlock()
		return s
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()

	// Double-check after acquiring write lock
	if s, ok := in.byName[name]; ok {
		return s
	}

	s := &Selector{id: len(in.byID), name: name, arity: ArityOf(name), interned: true}
	in.byName[name] = s
	in.byID = append(in.byID, s)
	return s
}

// Lookup returns the selector for name, or nil if it was never interned.
func (in *Interner) Lookup(name string) *Selector {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.byName[name]
}

// Unique allocates a selector that shares base's arity but can never be
// obtained by name. Its printed name is base's name behind a mangling prefix.
func (in *Interner) Unique(base *Selector) *Selector {
	in.mu.Lock()
	defer in.mu.Unlock()

	s := &Selector{id: len(in.byID), name: mangledPrefix + base.name, arity: base.arity}
	in.byID = append(in.byID, s)
	return s
}

// ByID returns the selector with the given ID, or nil.
func (in *Interner) ByID(id int) *Selector {
	in.mu.RLock()
	defer in.mu.RUnlock()

	if id < 0 || id >= len(in.byID) {
		return nil
	}
	return in.byID[id]
}

// Name returns the selector name for an ID, or "" if invalid.
func (in *Interner) Name(id int) string {
	if s := in.ByID(id); s != nil {
		return s.name
	}
	return ""
}

// Len returns the number of allocated selectors, including unique ones.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byID)
}

// All returns all interned selector names in ID order.
// This allocates a new slice; use for debugging only.
func (in *Interner) All() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()

	result := make([]string, 0, len(in.byID))
	for _, s := range in.byID {
		if s.interned {
			result = append(result, s.name)
		}
	}
	return result
}

// InternAll interns multiple names and returns their selectors.
func (in *Interner) InternAll(names ...string) []*Selector {
	sels := make([]*Selector, len(names))
	for i, name := range names {
		sels[i] = in.Intern(name)
	}
	return sels
}

// ---------------------------------------------------------------------------
// Derived names
// ---------------------------------------------------------------------------

const (
	mangledPrefix    = "\x00!"
	maskedPrefix     = "!!!"
	initializerQuote = "initializer`"
)

// SetterName returns the write selector for a slot read selector.
func SetterName(slot *Selector) *Selector {
	return Sym(slot.name + ":")
}

// MaskedSetterName returns the hidden write selector used for typed slots.
func MaskedSetterName(slot *Selector) *Selector {
	return Sym(maskedPrefix + slot.name + ":")
}

// InitializerName returns the initializer selector for a factory selector.
func InitializerName(factory *Selector) *Selector {
	return Sym(initializerQuote + factory.name)
}

// MixinInitializerName returns the initializer selector a mixin is reachable
// under once applied, so that it cannot be shadowed by the class it is mixed into.
func MixinInitializerName(factory *Selector, mixinID int) *Selector {
	return Sym(initializerQuote + strconv.Itoa(mixinID) + "`" + factory.name)
}
