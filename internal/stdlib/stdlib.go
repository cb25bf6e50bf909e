// Package stdlib implements std, the library every program can reach
// through the field std.* (and through the identifier std itself). Per
// the hybrid split spec.md describes, a small core of primitives is
// wired here directly as eval.BuiltInCtor evaluator states (one per
// lang.BuiltInFunc kind — type/reflection checks, math, string
// manipulation, parsing, array/set operations, manifestation), and a
// thin prelude layer of convenience wrappers is built on top of that
// core as ordinary closures, the same way the reference library's own
// std.jsonnet defines e.g. objectHas in terms of the lower-level
// objectHasEx. Without a parser in this tree (internal/frontend covers
// only enough surface syntax to drive a demo program, not the full
// grammar std.jsonnet itself would need), the prelude layer is built
// directly as IR rather than parsed from embedded source text — the
// same observable std.* surface, assembled one level closer to the
// machine.
package stdlib

import (
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
)

// Install registers every core built-in with ev and builds the std
// object, wiring it in as ev.StdObject so that std.foo field accesses
// (and an ordinary `std` identifier reference) resolve against it.
func Install(ev *eval.Evaluator, in *interner.Interner, h *heap.Heap) {
	registerCore(ev)

	fields := make(map[*lang.Str]*lang.ObjectField, len(coreEntries)+len(preludeEntries))
	for _, e := range coreEntries {
		fields[in.Intern(e.name)] = doneField(h, lang.FunctionValue(coreFuncValue(h, in, e)))
	}
	for _, e := range preludeEntries {
		fields[in.Intern(e.name)] = doneField(h, lang.FunctionValue(e.build(h, in)))
	}

	obj := lang.NewSimpleObject(fields)
	ev.StdObject = heap.Alloc[*lang.ObjectData](h, obj)
}

func doneField(h *heap.Heap, v lang.Value) *lang.ObjectField {
	return &lang.ObjectField{
		Visibility: lang.VisibilityDefault,
		Thunk:      heap.Alloc[*lang.ThunkData](h, lang.NewDoneThunk(v)),
	}
}

// coreEntry binds one lang.BuiltInFunc kind to the std field name
// callers use to reach it and its declared parameter names. Each
// category file (types.go, math.go, ...) registers its own entries from
// an init func via registerEntries, rather than this file enumerating
// every builtin itself.
type coreEntry struct {
	name    string
	kind    lang.BuiltInFunc
	params  []string
	builtIn eval.BuiltInCtor
}

var coreEntries []coreEntry

func registerEntries(entries ...coreEntry) {
	coreEntries = append(coreEntries, entries...)
}

// preludeEntry is a convenience std.* function assembled as hand-built IR
// on top of the core builtins, the role std.jsonnet's own source-level
// prelude plays in the reference library.
type preludeEntry struct {
	name  string
	build func(h *heap.Heap, in *interner.Interner) heap.Ref[*lang.FuncData]
}

var preludeEntries []preludeEntry

func registerPrelude(entries ...preludeEntry) {
	preludeEntries = append(preludeEntries, entries...)
}

func coreFuncValue(h *heap.Heap, in *interner.Interner, e coreEntry) heap.Ref[*lang.FuncData] {
	return heap.Alloc[*lang.FuncData](h, &lang.FuncData{
		Kind:    lang.FuncBuiltIn,
		Name:    in.Intern(e.name),
		Params:  lang.NewSimpleParams(in, e.params),
		BuiltIn: e.kind,
	})
}

func registerCore(ev *eval.Evaluator) {
	for _, e := range coreEntries {
		ev.RegisterBuiltIn(e.kind, e.builtIn)
	}
}
