package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func superFieldAccess(name *lang.Str) *lang.Expr {
	return &lang.Expr{Kind: lang.ExprSuperField, FieldNm: name}
}

func TestSuperFieldResolvesThroughExtension(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	a := in.Intern("a")
	b := in.Intern("b")
	lhs := &lang.Expr{Kind: lang.ExprObject, Fields: []lang.FieldDef{fixedField(a, numExpr(1), false)}}
	rhs := &lang.Expr{Kind: lang.ExprObject, Fields: []lang.FieldDef{fixedField(b, superFieldAccess(a), false)}}
	combined := &lang.Expr{Kind: lang.ExprBinary, BinOp: lang.BinaryAdd, Lhs: lhs, Rhs: rhs}

	v := run(t, ev, h, fieldAccess(combined, b))
	require.Equal(t, lang.ValueNumber, v.Kind)
	assert.Equal(t, float64(1), v.Number)
}

func TestSuperFieldWithoutSuperObjectFails(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	a := in.Intern("a")
	b := in.Intern("b")
	objExpr := &lang.Expr{Kind: lang.ExprObject, Fields: []lang.FieldDef{fixedField(b, superFieldAccess(a), false)}}

	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(fieldAccess(objExpr, b), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindSuperWithoutSuperObject, evalErr.Kind)
}

func TestFieldOfNonObjectFails(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(fieldAccess(numExpr(5), in.Intern("a")), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindFieldOfNonObject, evalErr.Kind)
}

func TestUnknownObjectFieldFails(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()

	a := in.Intern("a")
	objExpr := &lang.Expr{Kind: lang.ExprObject, Fields: []lang.FieldDef{fixedField(a, numExpr(1), false)}}

	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(fieldAccess(objExpr, in.Intern("missing")), env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindUnknownObjectField, evalErr.Kind)
}
