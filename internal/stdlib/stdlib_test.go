package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/span"
	"jsonnetcore/internal/stdlib"
)

func newHarness(t *testing.T) (*eval.Evaluator, *interner.Interner, *heap.Heap) {
	t.Helper()
	in := interner.New()
	h := heap.New()
	ev := eval.New(h, in, span.New(), 10000)
	stdlib.Install(ev, in, h)
	return ev, in, h
}

func rootEnv(h *heap.Heap) heap.Ref[*lang.ThunkEnv] {
	view := heap.AllocView(h, lang.NewThunkEnv())
	view.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)
	ref := view.Ref()
	view.Release()
	return ref
}

func numExpr(n float64) *lang.Expr { return &lang.Expr{Kind: lang.ExprNumber, NumberVal: n} }
func strExpr(s string) *lang.Expr  { return &lang.Expr{Kind: lang.ExprString, StringVal: s} }
func boolExpr(b bool) *lang.Expr   { return &lang.Expr{Kind: lang.ExprBool, BoolVal: b} }
func nullExpr() *lang.Expr         { return &lang.Expr{Kind: lang.ExprNull} }

func arrayExpr(items ...*lang.Expr) *lang.Expr {
	return &lang.Expr{Kind: lang.ExprArray, Items: items}
}

// stdCall builds std.name(args...) as IR and forces it to a Value.
func stdCall(t *testing.T, ev *eval.Evaluator, in *interner.Interner, h *heap.Heap, name string, args ...*lang.Expr) lang.Value {
	t.Helper()
	call := &lang.Expr{
		Kind:           lang.ExprCall,
		Callee:         &lang.Expr{Kind: lang.ExprStdField, FieldNm: in.Intern(name)},
		PositionalArgs: args,
	}
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(call, rootEnv(h)))
	v, err := ev.ForceTopLevel(thunk)
	require.NoError(t, err)
	return v
}

// stdCallErr builds std.name(args...) as IR and expects ForceTopLevel to
// fail, returning the resulting *diagnostics.EvalError.
func stdCallErr(t *testing.T, ev *eval.Evaluator, in *interner.Interner, h *heap.Heap, name string, args ...*lang.Expr) *diagnostics.EvalError {
	t.Helper()
	call := &lang.Expr{
		Kind:           lang.ExprCall,
		Callee:         &lang.Expr{Kind: lang.ExprStdField, FieldNm: in.Intern(name)},
		PositionalArgs: args,
	}
	thunk := heap.Alloc[*lang.ThunkData](h, lang.NewPendingExprThunk(call, rootEnv(h)))
	_, err := ev.ForceTopLevel(thunk)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok, "expected an *diagnostics.EvalError, got %T", err)
	return evalErr
}

func TestType(t *testing.T) {
	ev, in, h := newHarness(t)
	v := stdCall(t, ev, in, h, "type", strExpr("x"))
	assert.Equal(t, "string", v.String)
}

func TestIsArrayAndLength(t *testing.T) {
	ev, in, h := newHarness(t)
	isArr := stdCall(t, ev, in, h, "isArray", arrayExpr(numExpr(1), numExpr(2)))
	assert.True(t, isArr.Bool)

	length := stdCall(t, ev, in, h, "length", arrayExpr(numExpr(1), numExpr(2), numExpr(3)))
	assert.Equal(t, float64(3), length.Number)
}

func TestEqualsAndCompare(t *testing.T) {
	ev, in, h := newHarness(t)
	eq := stdCall(t, ev, in, h, "equals", numExpr(1), numExpr(1))
	assert.True(t, eq.Bool)

	cmp := stdCall(t, ev, in, h, "compare", numExpr(1), numExpr(2))
	assert.Equal(t, float64(-1), cmp.Number)
}

func TestMathBuiltins(t *testing.T) {
	ev, in, h := newHarness(t)
	assert.Equal(t, float64(2), stdCall(t, ev, in, h, "floor", numExpr(2.7)).Number)
	assert.Equal(t, float64(3), stdCall(t, ev, in, h, "ceil", numExpr(2.1)).Number)
	assert.Equal(t, float64(8), stdCall(t, ev, in, h, "pow", numExpr(2), numExpr(3)).Number)
	assert.Equal(t, float64(1), stdCall(t, ev, in, h, "modulo", numExpr(7), numExpr(3)).Number)
}

func TestToStringAndFormat(t *testing.T) {
	ev, in, h := newHarness(t)
	assert.Equal(t, "5", stdCall(t, ev, in, h, "toString", numExpr(5)).String)

	formatted := stdCall(t, ev, in, h, "format", strExpr("%s-%d"), arrayExpr(strExpr("a"), numExpr(1)))
	assert.Equal(t, "a-1", formatted.String)
}

func TestSubstrAndSplit(t *testing.T) {
	ev, in, h := newHarness(t)
	sub := stdCall(t, ev, in, h, "substr", strExpr("hello"), numExpr(1), numExpr(3))
	assert.Equal(t, "ell", sub.String)

	parts := stdCall(t, ev, in, h, "splitLimit", strExpr("a,b,c"), strExpr(","), numExpr(-1))
	require.Equal(t, lang.ValueArray, parts.Kind)
	assert.Equal(t, 3, parts.Array.Get().Len())
}

func TestParseIntAndJSON(t *testing.T) {
	ev, in, h := newHarness(t)
	n := stdCall(t, ev, in, h, "parseInt", strExpr("42"))
	assert.Equal(t, float64(42), n.Number)

	parsed := stdCall(t, ev, in, h, "parseJson", strExpr(`{"a": 1, "b": [2, 3]}`))
	require.Equal(t, lang.ValueObject, parsed.Kind)
	assert.True(t, parsed.Object.Get().HasField(0, in.Intern("a")))
}

func TestEncodeDecodeUTF8(t *testing.T) {
	ev, in, h := newHarness(t)
	encoded := stdCall(t, ev, in, h, "encodeUTF8", strExpr("hi"))
	require.Equal(t, lang.ValueArray, encoded.Kind)
	assert.Equal(t, 2, encoded.Array.Get().Len())

	encodedExpr := arrayExpr(numExpr(104), numExpr(105))
	decoded := stdCall(t, ev, in, h, "decodeUTF8", encodedExpr)
	assert.Equal(t, "hi", decoded.String)
}

func TestMakeArrayFilterFoldl(t *testing.T) {
	ev, in, h := newHarness(t)
	double := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"i"}),
		Body: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryMul,
			Lhs:   &lang.Expr{Kind: lang.ExprVar, VarName: in.Intern("i")},
			Rhs:   numExpr(2),
		},
	}
	made := stdCall(t, ev, in, h, "makeArray", numExpr(4), double)
	require.Equal(t, lang.ValueArray, made.Kind)
	require.Equal(t, 4, made.Array.Get().Len())
	last, err := ev.ForceTopLevel(made.Array.Get().Items[3])
	require.NoError(t, err)
	assert.Equal(t, float64(6), last.Number)

	isEven := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"x"}),
		Body: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryEq,
			Lhs: &lang.Expr{
				Kind:  lang.ExprBinary,
				BinOp: lang.BinaryRem,
				Lhs:   &lang.Expr{Kind: lang.ExprVar, VarName: in.Intern("x")},
				Rhs:   numExpr(2),
			},
			Rhs: numExpr(0),
		},
	}
	filtered := stdCall(t, ev, in, h, "filter", isEven, arrayExpr(numExpr(1), numExpr(2), numExpr(3), numExpr(4)))
	assert.Equal(t, 2, filtered.Array.Get().Len())

	add := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"acc", "x"}),
		Body: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryAdd,
			Lhs:   &lang.Expr{Kind: lang.ExprVar, VarName: in.Intern("acc")},
			Rhs:   &lang.Expr{Kind: lang.ExprVar, VarName: in.Intern("x")},
		},
	}
	sum := stdCall(t, ev, in, h, "foldl", add, arrayExpr(numExpr(1), numExpr(2), numExpr(3)), numExpr(0))
	assert.Equal(t, float64(6), sum.Number)
}

func TestRangeSliceJoinReverse(t *testing.T) {
	ev, in, h := newHarness(t)
	r := stdCall(t, ev, in, h, "range", numExpr(1), numExpr(3))
	assert.Equal(t, 3, r.Array.Get().Len())

	sliced := stdCall(t, ev, in, h, "slice", arrayExpr(numExpr(1), numExpr(2), numExpr(3), numExpr(4)), numExpr(1), numExpr(3), nullExpr())
	assert.Equal(t, 2, sliced.Array.Get().Len())

	joined := stdCall(t, ev, in, h, "join", strExpr(","), arrayExpr(strExpr("a"), strExpr("b")))
	assert.Equal(t, "a,b", joined.String)

	reversed := stdCall(t, ev, in, h, "reverse", arrayExpr(numExpr(1), numExpr(2), numExpr(3)))
	first, err := ev.ForceTopLevel(reversed.Array.Get().Items[0])
	require.NoError(t, err)
	assert.Equal(t, float64(3), first.Number)
}

func TestSortAndUniq(t *testing.T) {
	ev, in, h := newHarness(t)
	sorted := stdCall(t, ev, in, h, "sort", arrayExpr(numExpr(3), numExpr(1), numExpr(2)), nullExpr())
	first, err := ev.ForceTopLevel(sorted.Array.Get().Items[0])
	require.NoError(t, err)
	assert.Equal(t, float64(1), first.Number)

	uniq := stdCall(t, ev, in, h, "uniq", arrayExpr(numExpr(1), numExpr(1), numExpr(2)), nullExpr())
	assert.Equal(t, 2, uniq.Array.Get().Len())
}

func TestSetOperations(t *testing.T) {
	ev, in, h := newHarness(t)
	union := stdCall(t, ev, in, h, "setUnion", arrayExpr(numExpr(1), numExpr(2)), arrayExpr(numExpr(2), numExpr(3)), nullExpr())
	assert.Equal(t, 3, union.Array.Get().Len())

	member := stdCall(t, ev, in, h, "setMember", numExpr(2), arrayExpr(numExpr(1), numExpr(2)), nullExpr())
	assert.True(t, member.Bool)
}

func TestAssertEqualAndMd5(t *testing.T) {
	ev, in, h := newHarness(t)
	ok := stdCall(t, ev, in, h, "assertEqual", numExpr(1), numExpr(1))
	assert.True(t, ok.Bool)

	sum := stdCall(t, ev, in, h, "md5", strExpr(""))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", sum.String)
}

func TestExtVar(t *testing.T) {
	ev, in, h := newHarness(t)
	ev.ExtVars = map[string]heap.Ref[*lang.ThunkData]{
		"greeting": heap.Alloc[*lang.ThunkData](h, lang.NewDoneThunk(lang.StringValue("hi"))),
	}
	v := stdCall(t, ev, in, h, "extVar", strExpr("greeting"))
	assert.Equal(t, "hi", v.String)
}

func TestAssertEqualFailureKind(t *testing.T) {
	ev, in, h := newHarness(t)
	evalErr := stdCallErr(t, ev, in, h, "assertEqual", numExpr(1), numExpr(2))
	assert.Equal(t, diagnostics.KindAssertEqualFailed, evalErr.Kind)
}

func TestExtVarUndefinedFailureKind(t *testing.T) {
	ev, in, h := newHarness(t)
	evalErr := stdCallErr(t, ev, in, h, "extVar", strExpr("missing"))
	assert.Equal(t, diagnostics.KindUnknownExtVar, evalErr.Kind)
}

func TestPreludeObjectHasAndMap(t *testing.T) {
	ev, in, h := newHarness(t)
	obj := &lang.Expr{
		Kind: lang.ExprObject,
		Fields: []lang.FieldDef{
			{Name: lang.FieldName{Fixed: in.Intern("a")}, Value: numExpr(1), Visibility: lang.VisibilityDefault},
		},
	}
	has := stdCall(t, ev, in, h, "objectHas", obj, strExpr("a"))
	assert.True(t, has.Bool)

	double := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"x"}),
		Body: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryMul,
			Lhs:   &lang.Expr{Kind: lang.ExprVar, VarName: in.Intern("x")},
			Rhs:   numExpr(2),
		},
	}
	mapped := stdCall(t, ev, in, h, "map", double, arrayExpr(numExpr(1), numExpr(2), numExpr(3)))
	require.Equal(t, 3, mapped.Array.Get().Len())
	last, err := ev.ForceTopLevel(mapped.Array.Get().Items[2])
	require.NoError(t, err)
	assert.Equal(t, float64(6), last.Number)
}

func TestPreludeRepeat(t *testing.T) {
	ev, in, h := newHarness(t)
	repeated := stdCall(t, ev, in, h, "repeat", strExpr("ab"), numExpr(3))
	assert.Equal(t, "ababab", repeated.String)
}
