package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jsonnetcore/internal/arena"
	"jsonnetcore/internal/lang"
)

func TestNewExprReturnsDistinctStablePointers(t *testing.T) {
	a := arena.New()
	ptrs := make([]*lang.Expr, 0, 1000)
	for i := 0; i < 1000; i++ {
		ptrs = append(ptrs, a.NewExpr(lang.Expr{Kind: lang.ExprNumber, NumberVal: float64(i)}))
	}
	seen := make(map[*lang.Expr]bool, len(ptrs))
	for i, p := range ptrs {
		assert.False(t, seen[p], "pointer at index %d collides with an earlier allocation", i)
		seen[p] = true
		assert.Equal(t, float64(i), p.NumberVal)
	}
}

func TestNewExprSurvivesSlabRollover(t *testing.T) {
	a := arena.New()
	// Allocate enough nodes to force at least one new slab, then confirm
	// every earlier pointer still reads back the value it was given —
	// rollover must never reuse or reallocate a prior slab's storage.
	const n = 2000
	ptrs := make([]*lang.Expr, n)
	for i := 0; i < n; i++ {
		ptrs[i] = a.NewExpr(lang.Expr{Kind: lang.ExprNumber, NumberVal: float64(i)})
	}
	for i, p := range ptrs {
		assert.Equal(t, lang.ExprNumber, p.Kind)
		assert.Equal(t, float64(i), p.NumberVal, "pointer at index %d was corrupted by a later allocation", i)
	}
}

func TestAllocStringCopiesRatherThanAliases(t *testing.T) {
	a := arena.New()
	b := []byte("hello")
	s := a.AllocString(string(b))
	b[0] = 'H'
	assert.Equal(t, "hello", s, "AllocString must not alias the caller's backing bytes")
}

func TestAllocSliceCopiesRatherThanAliases(t *testing.T) {
	a := arena.New()
	items := []int{1, 2, 3}
	out := arena.AllocSlice(a, items)
	items[0] = 99
	assert.Equal(t, []int{1, 2, 3}, out, "AllocSlice must not alias the caller's backing array")
}
