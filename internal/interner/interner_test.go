package interner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jsonnetcore/internal/interner"
)

func TestInternIdentity(t *testing.T) {
	in := interner.New()
	a := in.Intern("self")
	b := in.Intern("self")
	assert.Same(t, a, b, "interning the same contents twice must return the same pointer")
	assert.Equal(t, "self", a.Value())
}

func TestInternDistinct(t *testing.T) {
	in := interner.New()
	a := in.Intern("x")
	b := in.Intern("y")
	assert.NotSame(t, a, b)
}

func TestLookupMissing(t *testing.T) {
	in := interner.New()
	_, ok := in.Lookup("never-interned")
	assert.False(t, ok)
	in.Intern("never-interned")
	s, ok := in.Lookup("never-interned")
	assert.True(t, ok)
	assert.Equal(t, "never-interned", s.Value())
}

func TestLessOrdering(t *testing.T) {
	in := interner.New()
	a := in.Intern("a")
	b := in.Intern("b")
	assert.True(t, interner.Less(a, b))
	assert.False(t, interner.Less(b, a))
}
