package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func binExpr(op lang.BinaryOp, lhs, rhs *lang.Expr) *lang.Expr {
	return &lang.Expr{Kind: lang.ExprBinary, BinOp: op, Lhs: lhs, Rhs: rhs}
}

func unExpr(op lang.UnaryOp, rhs *lang.Expr) *lang.Expr {
	return &lang.Expr{Kind: lang.ExprUnary, UnOp: op, Rhs: rhs}
}

func TestArithmeticOperators(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()

	cases := []struct {
		name string
		expr *lang.Expr
		want float64
	}{
		{"add", binExpr(lang.BinaryAdd, numExpr(2), numExpr(3)), 5},
		{"sub", binExpr(lang.BinarySub, numExpr(5), numExpr(3)), 2},
		{"mul", binExpr(lang.BinaryMul, numExpr(4), numExpr(3)), 12},
		{"div", binExpr(lang.BinaryDiv, numExpr(7), numExpr(2)), 3.5},
		{"rem", binExpr(lang.BinaryRem, numExpr(7), numExpr(2)), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := run(t, ev, h, c.expr)
			require.Equal(t, lang.ValueNumber, v.Kind)
			assert.Equal(t, c.want, v.Number)
		})
	}
}

func TestDivisionByZeroFails(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(binExpr(lang.BinaryDiv, numExpr(1), numExpr(0)), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindDivByZero, evalErr.Kind)
}

func TestRemainderByZeroFailsAsDivByZero(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(binExpr(lang.BinaryRem, numExpr(7), numExpr(0)), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindDivByZero, evalErr.Kind)
}

func TestArithmeticOverflowFails(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(
		binExpr(lang.BinaryMul, numExpr(1e200), numExpr(1e200)), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindNumberOverflow, evalErr.Kind)
}

func TestNegativeShiftFails(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(
		binExpr(lang.BinaryShl, numExpr(1), numExpr(-1)), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindShiftByNegative, evalErr.Kind)
}

func TestBitwiseNonIntegralOperandFails(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(
		binExpr(lang.BinaryBitwiseAnd, numExpr(1.5), numExpr(1)), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindTypeMismatch, evalErr.Kind)
}

func TestBitwiseNotNonIntegralOperandFails(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(unExpr(lang.UnaryBitwiseNot, numExpr(1.5)), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindTypeMismatch, evalErr.Kind)
}

func TestStringConcatCoercesNonStringOperand(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	v := run(t, ev, h, binExpr(lang.BinaryAdd, strExpr("n="), numExpr(5)))
	require.Equal(t, lang.ValueString, v.Kind)
	assert.Equal(t, "n=5", v.String)
}

func TestArrayConcatenation(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()
	v := run(t, ev, h, binExpr(lang.BinaryAdd, numArray(1, 2), numArray(3, 4)))
	require.Equal(t, lang.ValueArray, v.Kind)
	arr := v.Array.Get()
	require.Equal(t, 4, arr.Len())
	for i, want := range []float64{1, 2, 3, 4} {
		fv, err := ev.ForceTopLevel(arr.Items[i])
		require.NoError(t, err)
		assert.Equal(t, want, fv.Number)
	}
}

func TestComparisonOperators(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()

	assert.True(t, run(t, ev, h, binExpr(lang.BinaryLt, numExpr(1), numExpr(2))).Bool)
	assert.False(t, run(t, ev, h, binExpr(lang.BinaryLt, numExpr(2), numExpr(2))).Bool)
	assert.True(t, run(t, ev, h, binExpr(lang.BinaryLe, numExpr(2), numExpr(2))).Bool)
	assert.True(t, run(t, ev, h, binExpr(lang.BinaryGt, strExpr("b"), strExpr("a"))).Bool)
	assert.True(t, run(t, ev, h, binExpr(lang.BinaryGe, numArray(1, 2), numArray(1, 1))).Bool, "[1,2] >= [1,1] lexicographically")
}

func TestEqualityIsStructuralAndVisibilityFiltered(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	assert.True(t, run(t, ev, h, binExpr(lang.BinaryEq, numArray(1, 2), numArray(1, 2))).Bool)
	assert.False(t, run(t, ev, h, binExpr(lang.BinaryEq, numArray(1, 2), numArray(1, 3))).Bool)
	assert.True(t, run(t, ev, h, binExpr(lang.BinaryNe, numExpr(1), strExpr("1"))).Bool, "differing kinds are simply unequal")

	a := in.Intern("a")
	b := in.Intern("b")
	visible := &lang.Expr{Kind: lang.ExprObject, Fields: []lang.FieldDef{fixedField(a, numExpr(1), false)}}
	withHidden := &lang.Expr{Kind: lang.ExprObject, Fields: []lang.FieldDef{
		fixedField(a, numExpr(1), false),
		{Name: lang.FieldName{Fixed: b}, Value: numExpr(99), Visibility: lang.VisibilityHidden},
	}}
	assert.True(t, run(t, ev, h, binExpr(lang.BinaryEq, visible, withHidden)).Bool,
		"a hidden field must not participate in equality")
}

func TestBitwiseOperators(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()

	assert.Equal(t, float64(0b1000), run(t, ev, h, binExpr(lang.BinaryBitwiseAnd, numExpr(0b1100), numExpr(0b1010))).Number)
	assert.Equal(t, float64(0b1110), run(t, ev, h, binExpr(lang.BinaryBitwiseOr, numExpr(0b1100), numExpr(0b1010))).Number)
	assert.Equal(t, float64(0b0110), run(t, ev, h, binExpr(lang.BinaryBitwiseXor, numExpr(0b1100), numExpr(0b1010))).Number)
	assert.Equal(t, float64(8), run(t, ev, h, binExpr(lang.BinaryShl, numExpr(1), numExpr(3))).Number)
	assert.Equal(t, float64(2), run(t, ev, h, binExpr(lang.BinaryShr, numExpr(8), numExpr(2))).Number)
	assert.Equal(t, float64(-1), run(t, ev, h, unExpr(lang.UnaryBitwiseNot, numExpr(0))).Number)
}

func TestLogicShortCircuits(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	// false && <var that would panic if forced> must short-circuit.
	undefined := &lang.Expr{Kind: lang.ExprVar, VarName: in.Intern("never_bound")}
	v := run(t, ev, h, binExpr(lang.BinaryLogicAnd, boolExpr(false), undefined))
	assert.False(t, v.Bool)

	v = run(t, ev, h, binExpr(lang.BinaryLogicOr, boolExpr(true), undefined))
	assert.True(t, v.Bool)
}

func TestUnaryOperators(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()

	assert.Equal(t, float64(-5), run(t, ev, h, unExpr(lang.UnaryMinus, numExpr(5))).Number)
	assert.Equal(t, float64(5), run(t, ev, h, unExpr(lang.UnaryPlus, numExpr(5))).Number)
	assert.True(t, run(t, ev, h, unExpr(lang.UnaryLogicNot, boolExpr(false))).Bool)
}

func TestInOperator(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	a := in.Intern("a")
	objExpr := &lang.Expr{Kind: lang.ExprObject, Fields: []lang.FieldDef{fixedField(a, numExpr(1), false)}}
	assert.True(t, run(t, ev, h, binExpr(lang.BinaryIn, strExpr("a"), objExpr)).Bool)
	assert.False(t, run(t, ev, h, binExpr(lang.BinaryIn, strExpr("z"), objExpr)).Bool)
}
