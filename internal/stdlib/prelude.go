package stdlib

import (
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
)

// The functions below are convenience wrappers over the core builtins,
// exactly the role std.jsonnet's own prelude layer plays over its *Ex
// primitives (e.g. `objectHas(o, f):: std.objectHasEx(o, f, false)`).
// Rather than being loaded from source text through internal/frontend,
// each is assembled directly as the IR a parser would have
// produced: a FuncNormal closure whose body is a call through
// ExprStdField back into the core, with any fixed trailing arguments
// spliced in as literals.
func init() {
	registerPrelude(
		preludeEntry{name: "objectHas", build: buildObjectHas},
		preludeEntry{name: "objectFields", build: buildObjectFields},
		preludeEntry{name: "objectHasAll", build: buildObjectHasAll},
		preludeEntry{name: "objectFieldsAll", build: buildObjectFieldsAll},
		preludeEntry{name: "manifestJson", build: buildManifestJson},
		preludeEntry{name: "mapWithIndex", build: buildMapWithIndex},
		preludeEntry{name: "map", build: buildMap},
		preludeEntry{name: "member", build: buildMember},
		preludeEntry{name: "flattenArrays", build: buildFlattenArrays},
		preludeEntry{name: "repeat", build: buildRepeat},
	)
}

func varExpr(name *lang.Str) *lang.Expr {
	return &lang.Expr{Kind: lang.ExprVar, VarName: name}
}

func boolLit(b bool) *lang.Expr { return &lang.Expr{Kind: lang.ExprBool, BoolVal: b} }

func stdFieldExpr(name *lang.Str) *lang.Expr {
	return &lang.Expr{Kind: lang.ExprStdField, FieldNm: name}
}

func callExpr(callee *lang.Expr, args ...*lang.Expr) *lang.Expr {
	return &lang.Expr{Kind: lang.ExprCall, Callee: callee, PositionalArgs: args}
}

// buildPrelude wires up a FuncNormal over a root (parentless) environment
// — the body only ever references its own parameters and std.*, so no
// captured environment is needed.
func buildPrelude(h *heap.Heap, in *interner.Interner, paramNames []string, body *lang.Expr) heap.Ref[*lang.FuncData] {
	rootEnv := heap.AllocView(h, lang.NewThunkEnv())
	rootEnv.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)
	fn := &lang.FuncData{
		Kind:   lang.FuncNormal,
		Params: lang.NewSimpleParams(in, paramNames),
		Body:   body,
		Env:    rootEnv.Ref(),
	}
	ref := heap.Alloc[*lang.FuncData](h, fn)
	rootEnv.Release()
	return ref
}

func buildObjectHas(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	o, f := in.Intern("o"), in.Intern("f")
	body := callExpr(stdFieldExpr(in.Intern("objectHasEx")), varExpr(o), varExpr(f), boolLit(false))
	return buildPrelude(h, in, []string{"o", "f"}, body)
}

func buildObjectHasAll(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	o, f := in.Intern("o"), in.Intern("f")
	body := callExpr(stdFieldExpr(in.Intern("objectHasEx")), varExpr(o), varExpr(f), boolLit(true))
	return buildPrelude(h, in, []string{"o", "f"}, body)
}

func buildObjectFields(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	o := in.Intern("o")
	body := callExpr(stdFieldExpr(in.Intern("objectFieldsEx")), varExpr(o), boolLit(false))
	return buildPrelude(h, in, []string{"o"}, body)
}

func buildObjectFieldsAll(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	o := in.Intern("o")
	body := callExpr(stdFieldExpr(in.Intern("objectFieldsEx")), varExpr(o), boolLit(true))
	return buildPrelude(h, in, []string{"o"}, body)
}

func buildManifestJson(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	v := in.Intern("v")
	body := callExpr(stdFieldExpr(in.Intern("manifestJsonEx")), varExpr(v), &lang.Expr{Kind: lang.ExprString, StringVal: "    "})
	return buildPrelude(h, in, []string{"v"}, body)
}

// buildMapWithIndex builds std.mapWithIndex(func, arr) in terms of
// makeArray and length, the same definition the reference prelude uses:
// std.makeArray(std.length(arr), function(i) func(i, arr[i])).
func buildMapWithIndex(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	fn, arr, i := in.Intern("func"), in.Intern("arr"), in.Intern("i")
	indexBody := callExpr(varExpr(fn), varExpr(i), &lang.Expr{
		Kind:    lang.ExprIndex,
		Object:  varExpr(arr),
		Index:   varExpr(i),
	})
	inner := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"i"}),
		Body:   indexBody,
	}
	body := callExpr(stdFieldExpr(in.Intern("makeArray")),
		callExpr(stdFieldExpr(in.Intern("length")), varExpr(arr)),
		inner,
	)
	return buildPrelude(h, in, []string{"func", "arr"}, body)
}

// buildMap builds std.map(func, arr) = std.makeArray(std.length(arr),
// function(i) func(arr[i])) — mapWithIndex without the index argument.
func buildMap(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	fn, arr, i := in.Intern("func"), in.Intern("arr"), in.Intern("i")
	indexBody := callExpr(varExpr(fn), &lang.Expr{
		Kind:   lang.ExprIndex,
		Object: varExpr(arr),
		Index:  varExpr(i),
	})
	inner := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"i"}),
		Body:   indexBody,
	}
	body := callExpr(stdFieldExpr(in.Intern("makeArray")),
		callExpr(stdFieldExpr(in.Intern("length")), varExpr(arr)),
		inner,
	)
	return buildPrelude(h, in, []string{"func", "arr"}, body)
}

// buildMember builds std.member(arr, x) = std.length(std.filter(function(y)
// y == x, arr)) > 0, the reference prelude's own definition (generalized
// here to arrays only — the string case is handled by findSubstr instead).
func buildMember(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	arr, x, y := in.Intern("arr"), in.Intern("x"), in.Intern("y")
	pred := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"y"}),
		Body: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryEq,
			Lhs:   varExpr(y),
			Rhs:   varExpr(x),
		},
	}
	filtered := callExpr(stdFieldExpr(in.Intern("filter")), pred, varExpr(arr))
	length := callExpr(stdFieldExpr(in.Intern("length")), filtered)
	body := &lang.Expr{
		Kind:  lang.ExprBinary,
		BinOp: lang.BinaryGt,
		Lhs:   length,
		Rhs:   &lang.Expr{Kind: lang.ExprNumber, NumberVal: 0},
	}
	return buildPrelude(h, in, []string{"arr", "x"}, body)
}

// buildFlattenArrays builds std.flattenArrays(arrs) =
// std.foldl(function(a, b) a + b, arrs, []).
func buildFlattenArrays(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	arrs, a, b := in.Intern("arrs"), in.Intern("a"), in.Intern("b")
	combine := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"a", "b"}),
		Body: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryAdd,
			Lhs:   varExpr(a),
			Rhs:   varExpr(b),
		},
	}
	body := callExpr(stdFieldExpr(in.Intern("foldl")), combine, varExpr(arrs), &lang.Expr{Kind: lang.ExprArray})
	return buildPrelude(h, in, []string{"arrs"}, body)
}

// buildRepeat builds std.repeat(what, count) = std.join(if
// std.isString(what) then "" else [], std.makeArray(count, function(i)
// what)) — the reference prelude's own definition, picking the right
// empty separator for a string vs. array repeat.
func buildRepeat(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData] {
	what, count := in.Intern("what"), in.Intern("count")
	inner := &lang.Expr{
		Kind:   lang.ExprFunc,
		Params: lang.NewSimpleParams(in, []string{"i"}),
		Body:   varExpr(what),
	}
	made := callExpr(stdFieldExpr(in.Intern("makeArray")), varExpr(count), inner)
	sep := &lang.Expr{
		Kind: lang.ExprIf,
		Cond: callExpr(stdFieldExpr(in.Intern("isString")), varExpr(what)),
		Then: &lang.Expr{Kind: lang.ExprString, StringVal: ""},
		Else: &lang.Expr{Kind: lang.ExprArray},
	}
	body := callExpr(stdFieldExpr(in.Intern("join")), sep, made)
	return buildPrelude(h, in, []string{"what", "count"}, body)
}
