package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// addFuncExpr builds `function(a, b=10) a + b`.
func addFuncExpr(in interface {
	Intern(string) *lang.Str
}) (*lang.Expr, *lang.Str, *lang.Str) {
	a := in.Intern("a")
	b := in.Intern("b")
	params := &lang.FuncParams{
		Order: []*lang.Str{a, b},
		ByName: map[*lang.Str]lang.FuncParam{
			a: {Index: 0},
			b: {Index: 1, Default: numExpr(10)},
		},
	}
	body := &lang.Expr{
		Kind:  lang.ExprBinary,
		BinOp: lang.BinaryAdd,
		Lhs:   &lang.Expr{Kind: lang.ExprVar, VarName: a},
		Rhs:   &lang.Expr{Kind: lang.ExprVar, VarName: b},
	}
	return &lang.Expr{Kind: lang.ExprFunc, Params: params, Body: body}, a, b
}

func TestCallPositionalArgsWithDefault(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()
	fn, _, _ := addFuncExpr(in)

	call := &lang.Expr{Kind: lang.ExprCall, Callee: fn, PositionalArgs: []*lang.Expr{numExpr(2)}}
	v := run(t, ev, h, call)
	require.Equal(t, lang.ValueNumber, v.Kind)
	assert.Equal(t, float64(12), v.Number, "b should fall back to its default of 10")
}

func TestCallNamedArgOverridesPositionalDefault(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()
	fn, _, b := addFuncExpr(in)

	call := &lang.Expr{
		Kind:           lang.ExprCall,
		Callee:         fn,
		PositionalArgs: []*lang.Expr{numExpr(1)},
		NamedArgs:      []lang.NamedArg{{Name: b, Value: numExpr(5)}},
	}
	v := run(t, ev, h, call)
	assert.Equal(t, float64(6), v.Number)
}

func TestCallAllNamedArgsOutOfOrder(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()
	fn, a, b := addFuncExpr(in)

	call := &lang.Expr{
		Kind:   lang.ExprCall,
		Callee: fn,
		NamedArgs: []lang.NamedArg{
			{Name: b, Value: numExpr(4)},
			{Name: a, Value: numExpr(3)},
		},
	}
	v := run(t, ev, h, call)
	assert.Equal(t, float64(7), v.Number)
}

func TestCallUnknownNamedArgFails(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()
	fn, _, _ := addFuncExpr(in)

	call := &lang.Expr{
		Kind:           lang.ExprCall,
		Callee:         fn,
		PositionalArgs: []*lang.Expr{numExpr(1)},
		NamedArgs:      []lang.NamedArg{{Name: in.Intern("c"), Value: numExpr(1)}},
	}
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(call, env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindUnknownCallParam, evalErr.Kind)
}

func TestCallDuplicateArgFails(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()
	fn, a, _ := addFuncExpr(in)

	call := &lang.Expr{
		Kind:           lang.ExprCall,
		Callee:         fn,
		PositionalArgs: []*lang.Expr{numExpr(1)},
		NamedArgs:      []lang.NamedArg{{Name: a, Value: numExpr(2)}},
	}
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(call, env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindRepeatedCallParam, evalErr.Kind)
}

func TestCallMissingRequiredArgFails(t *testing.T) {
	ev, in := newTestEvaluator(t)
	h := heap.New()
	fn, _, _ := addFuncExpr(in)

	call := &lang.Expr{Kind: lang.ExprCall, Callee: fn}
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(call, env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindCallParamNotBound, evalErr.Kind)
}

func TestCallTargetNotFunctionFails(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	h := heap.New()

	call := &lang.Expr{Kind: lang.ExprCall, Callee: numExpr(5)}
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(call, env))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	assert.Equal(t, diagnostics.KindCalleeIsNotFunction, evalErr.Kind)
}
