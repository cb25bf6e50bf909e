// Package interner provides pointer-identity string interning.
//
// Two interned strings created from equal byte contents in the same
// Interner compare equal via a simple pointer comparison, so callers never
// need to re-hash or re-compare identifier bytes once interned.
package interner

import "sync"

// Str is an interned string. Its identity is the pointer to the shared
// entry, not its contents; equality is a pointer comparison.
type Str struct {
	value string
}

// Value returns the interned UTF-8 bytes.
func (s *Str) Value() string {
	if s == nil {
		return ""
	}
	return s.value
}

func (s *Str) String() string { return s.Value() }

// Less orders two interned strings by their byte-string contents, used by
// manifestation to emit object fields in lexicographic order.
func Less(a, b *Str) bool {
	return a.Value() < b.Value()
}

// Interner owns the canonical Str for every distinct byte sequence passed
// to Intern.
type Interner struct {
	mu      sync.Mutex
	entries map[string]*Str
}

// New returns an empty Interner.
func New() *Interner {
	return &Interner{entries: make(map[string]*Str)}
}

// Intern returns the canonical *Str for value, allocating one on first use.
func (in *Interner) Intern(value string) *Str {
	in.mu.Lock()
	defer in.mu.Unlock()
	if s, ok := in.entries[value]; ok {
		return s
	}
	s := &Str{value: value}
	in.entries[value] = s
	return s
}

// Lookup returns the canonical *Str for value without creating one, the
// second result reporting whether it already existed.
func (in *Interner) Lookup(value string) (*Str, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	s, ok := in.entries[value]
	return s, ok
}

// Len reports how many distinct strings have been interned.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.entries)
}
