package span_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/span"
)

func TestInlineRoundTrip(t *testing.T) {
	m := span.New()
	ctx := m.OpenContext("a.jsonnet", 100)
	id := m.Intern(ctx, 3, 10)
	gotCtx, start, end := m.Resolve(id)
	assert.Equal(t, ctx, gotCtx)
	assert.Equal(t, 3, start)
	assert.Equal(t, 10, end)
}

func TestInternedFallbackForLargeLen(t *testing.T) {
	m := span.New()
	ctx := m.OpenContext("big.jsonnet", 1<<26)
	id := m.Intern(ctx, 0, 1<<26-1)
	gotCtx, start, end := m.Resolve(id)
	assert.Equal(t, ctx, gotCtx)
	assert.Equal(t, 0, start)
	assert.Equal(t, 1<<26-1, end)
}

func TestMultipleContextsDisjoint(t *testing.T) {
	m := span.New()
	c1 := m.OpenContext("one.jsonnet", 10)
	c2 := m.OpenContext("two.jsonnet", 10)
	id1 := m.Intern(c1, 0, 5)
	id2 := m.Intern(c2, 0, 5)
	gotCtx1, _, _ := m.Resolve(id1)
	gotCtx2, _, _ := m.Resolve(id2)
	assert.Equal(t, c1, gotCtx1)
	assert.Equal(t, c2, gotCtx2)
	assert.NotEqual(t, id1, id2)
}

func TestSurrounding(t *testing.T) {
	m := span.New()
	ctx := m.OpenContext("a.jsonnet", 100)
	a := m.Intern(ctx, 3, 5)
	b := m.Intern(ctx, 20, 30)
	s := m.Surrounding(a, b)
	_, start, end := m.Resolve(s)
	assert.Equal(t, 3, start)
	assert.Equal(t, 30, end)
}

func TestInternDeduplicates(t *testing.T) {
	m := span.New()
	ctx := m.OpenContext("big.jsonnet", 1<<26)
	id1 := m.Intern(ctx, 0, 1<<26-1)
	id2 := m.Intern(ctx, 0, 1<<26-1)
	require.Equal(t, id1, id2)
}
