package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func TestArrayLiteralEvaluatesEachItemLazily(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()

	expr := &lang.Expr{Kind: lang.ExprArray, Items: []*lang.Expr{numExpr(1), numExpr(2), numExpr(3)}}
	v := run(t, ev, h, expr)
	require.Equal(t, lang.ValueArray, v.Kind)
	arr := v.Array.Get()
	require.Equal(t, 3, arr.Len())

	for i, want := range []float64{1, 2, 3} {
		item, err := ev.ForceTopLevel(arr.Items[i])
		require.NoError(t, err)
		assert.Equal(t, want, item.Number)
	}
}

func numArray(vals ...float64) *lang.Expr {
	items := make([]*lang.Expr, len(vals))
	for i, v := range vals {
		items[i] = numExpr(v)
	}
	return &lang.Expr{Kind: lang.ExprArray, Items: items}
}

func TestArrayComprehensionForAndIf(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	x := in.Intern("x")
	// [x * 2 for x in [1, 2, 3, 4] if x > 1]
	expr := &lang.Expr{
		Kind: lang.ExprArrayComp,
		Value: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryMul,
			Lhs:   &lang.Expr{Kind: lang.ExprVar, VarName: x},
			Rhs:   numExpr(2),
		},
		CompSpec: []lang.CompSpecPart{
			{IsFor: true, Var: x, Value: numArray(1, 2, 3, 4)},
			{IsFor: false, Value: &lang.Expr{
				Kind:  lang.ExprBinary,
				BinOp: lang.BinaryGt,
				Lhs:   &lang.Expr{Kind: lang.ExprVar, VarName: x},
				Rhs:   numExpr(1),
			}},
		},
	}

	v := run(t, ev, h, expr)
	require.Equal(t, lang.ValueArray, v.Kind)
	arr := v.Array.Get()
	require.Equal(t, 3, arr.Len())

	got := make([]float64, arr.Len())
	for i, item := range arr.Items {
		fv, err := ev.ForceTopLevel(item)
		require.NoError(t, err)
		got[i] = fv.Number
	}
	assert.Equal(t, []float64{4, 6, 8}, got)
}

func TestArrayComprehensionRequiresArrayIterable(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	x := in.Intern("x")
	expr := &lang.Expr{
		Kind:  lang.ExprArrayComp,
		Value: &lang.Expr{Kind: lang.ExprVar, VarName: x},
		CompSpec: []lang.CompSpecPart{
			{IsFor: true, Var: x, Value: numExpr(1)},
		},
	}

	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(expr, env))
	_, err := ev.ForceTopLevel(thunk)
	assert.Error(t, err)
}
