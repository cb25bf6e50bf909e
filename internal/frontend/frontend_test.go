package frontend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/arena"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/frontend"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/manifest"
	"jsonnetcore/internal/span"
	"jsonnetcore/internal/stdlib"
)

func newHarness(t *testing.T) (*eval.Evaluator, *interner.Interner, *heap.Heap, *span.Manager) {
	t.Helper()
	h := heap.New()
	in := interner.New()
	spans := span.New()
	ev := eval.New(h, in, spans, 500)
	stdlib.Install(ev, in, h)
	return ev, in, h, spans
}

func evalSource(t *testing.T, src string) lang.Value {
	t.Helper()
	ev, in, h, spans := newHarness(t)
	ctx := spans.OpenContext("test", len(src))
	expr, err := frontend.Parse(spans, in, ctx, src, arena.New())
	require.NoError(t, err)
	env := heap.AllocView(h, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(expr, env.Ref()))
	env.Release()
	v, err := ev.ForceTopLevel(thunk)
	require.NoError(t, err)
	return v
}

func manifestSource(t *testing.T, src string) string {
	t.Helper()
	ev, in, h, spans := newHarness(t)
	ctx := spans.OpenContext("test", len(src))
	expr, err := frontend.Parse(spans, in, ctx, src, arena.New())
	require.NoError(t, err)
	env := heap.AllocView(h, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(expr, env.Ref()))
	env.Release()
	text, err := manifest.JSON(ev, thunk, false)
	require.NoError(t, err)
	return text
}

func TestArithmeticAndLocalFunction(t *testing.T) {
	v := evalSource(t, "local add_one(x) = x + 1; add_one(2)")
	require.Equal(t, lang.ValueNumber, v.Kind)
	require.Equal(t, 3.0, v.Number)
}

func TestObjectLiteralManifestsSortedVisibleFields(t *testing.T) {
	text := manifestSource(t, `{ y: true, x: false }`)
	require.Equal(t, `{"x": false, "y": true}`, text)
}

func TestObjectExtensionPlusFieldAndHiddenField(t *testing.T) {
	text := manifestSource(t, `{ a:: 1, b: 2 } + { "b"+: 10 }`)
	require.Equal(t, `{"b": 12}`, text)
}

func TestFoldlOverArrayLiteral(t *testing.T) {
	v := evalSource(t, "local xs = [1,2,3]; std.foldl(function(a,b) a+b, xs, 0)")
	require.Equal(t, 6.0, v.Number)
}

func TestInfiniteRecursionFails(t *testing.T) {
	ev, in, h, spans := newHarness(t)
	src := "local f(x) = f(x); f(1)"
	ctx := spans.OpenContext("test", len(src))
	expr, err := frontend.Parse(spans, in, ctx, src, arena.New())
	require.NoError(t, err)
	env := heap.AllocView(h, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(expr, env.Ref()))
	env.Release()
	_, err = ev.ForceTopLevel(thunk)
	require.Error(t, err)
}

func TestSelfReferenceInObject(t *testing.T) {
	v := evalSource(t, "{ a: self.b, b: 1 }.a")
	require.Equal(t, 1.0, v.Number)
}

func TestAssertFailureMessage(t *testing.T) {
	ev, in, h, spans := newHarness(t)
	src := `{ assert self.x == 1 : "bad x", x: 2 }.x`
	ctx := spans.OpenContext("test", len(src))
	expr, err := frontend.Parse(spans, in, ctx, src, arena.New())
	require.NoError(t, err)
	env := heap.AllocView(h, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(expr, env.Ref()))
	env.Release()
	_, err = ev.ForceTopLevel(thunk)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad x")
}

func TestIfThenElseAndComparisons(t *testing.T) {
	v := evalSource(t, "if 1 < 2 then \"yes\" else \"no\"")
	require.Equal(t, "yes", v.String)
}

func TestStdFieldAccessParsesDirectly(t *testing.T) {
	v := evalSource(t, `std.length([1,2,3])`)
	require.Equal(t, 3.0, v.Number)
}

func TestParseErrorOnUnterminatedString(t *testing.T) {
	_, in, _, spans := newHarness(t)
	src := `"abc`
	ctx := spans.OpenContext("test", len(src))
	_, err := frontend.Parse(spans, in, ctx, src, arena.New())
	require.Error(t, err)
}
