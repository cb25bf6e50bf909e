package eval_test

import (
	"testing"

	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/span"
)

// newTestEvaluator builds an Evaluator with a fresh heap/interner/span
// manager and a generous stack bound, the shape every test in this
// package needs before it can run a program through Run.
func newTestEvaluator(t *testing.T) (*eval.Evaluator, *interner.Interner) {
	t.Helper()
	in := interner.New()
	ev := eval.New(heap.New(), in, span.New(), 10000)
	return ev, in
}

// rootEnv returns an initialized, parent-less environment with the given
// variable bindings (may be nil/empty), suitable as the base environment
// for a top-level expression under test.
func rootEnv(h *heap.Heap, vars map[*lang.Str]heap.Ref[*lang.ThunkData]) heap.Ref[*lang.ThunkEnv] {
	view := heap.AllocView(h, lang.NewThunkEnv())
	view.Value().Init(heap.Ref[*lang.ThunkEnv]{}, vars)
	ref := view.Ref()
	view.Release()
	return ref
}

func numExpr(n float64) *lang.Expr { return &lang.Expr{Kind: lang.ExprNumber, NumberVal: n} }
func strExpr(s string) *lang.Expr  { return &lang.Expr{Kind: lang.ExprString, StringVal: s} }
func boolExpr(b bool) *lang.Expr   { return &lang.Expr{Kind: lang.ExprBool, BoolVal: b} }

// run evaluates expr against a fresh root environment and fails the test
// if evaluation errors.
func run(t *testing.T, ev *eval.Evaluator, h *heap.Heap, expr *lang.Expr) lang.Value {
	t.Helper()
	env := rootEnv(h, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(expr, env))
	v, err := ev.ForceTopLevel(thunk)
	if err != nil {
		t.Fatalf("unexpected eval error: %v", err)
	}
	return v
}
