// Package program is the embedding API: the one stateful object a host
// constructs, feeds source and external variables into, and drives to a
// manifested result. It wires internal/eval, internal/stdlib,
// internal/frontend, and internal/manifest together behind the narrow
// surface spec.md's external-interfaces section describes, the same
// role the teacher's top-level Program/session types play for its own
// subsystems.
package program

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jsonnetcore/internal/arena"
	"jsonnetcore/internal/config"
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/frontend"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/manifest"
	"jsonnetcore/internal/span"
	"jsonnetcore/internal/stdlib"
)

// Program owns one arena's worth of state: heap, interner, span table,
// and evaluator, plus the external-variable and native-function
// registries a host populates before evaluating anything.
type Program struct {
	Heap     *heap.Heap
	Interner *interner.Interner
	Spans    *span.Manager
	Eval     *eval.Evaluator
	Config   *config.Config
	Logger   *zap.Logger
	Arena    *arena.Arena

	sessionID string

	extVarNames  map[string]bool
	nativeParams map[string]*lang.FuncParams

	roots []*lang.Expr
}

// New builds a Program from cfg (config.Default() if nil), installing
// the standard library and a fresh logger the way the teacher wires its
// own per-session state up front rather than lazily. It hands the
// Program a freshly constructed Arena; a host that wants to share one
// Arena across several Programs, or reuse one after a Close, should call
// NewWithArena directly instead.
func New(cfg *config.Config) (*Program, error) {
	return NewWithArena(cfg, arena.New())
}

// NewWithArena is New with an explicit Arena, mirroring the reference
// embedding API's own Program::new(arena) constructor: the arena that
// will back every IR node LoadSource parses is supplied by the caller
// rather than allocated implicitly.
func NewWithArena(cfg *config.Config, a *arena.Arena) (*Program, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if a == nil {
		a = arena.New()
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}
	logger, err := diagnostics.NewLogger(level)
	if err != nil {
		return nil, fmt.Errorf("program: build logger: %w", err)
	}

	h := heap.New()
	in := interner.New()
	spans := span.New()
	ev := eval.New(h, in, spans, cfg.MaxStack)
	stdlib.Install(ev, in, h)

	p := &Program{
		Heap:         h,
		Interner:     in,
		Spans:        spans,
		Eval:         ev,
		Config:       cfg,
		Logger:       logger,
		Arena:        a,
		sessionID:    config.SessionID(),
		extVarNames:  make(map[string]bool),
		nativeParams: make(map[string]*lang.FuncParams),
	}
	logger.Info("program initialized",
		zap.String("session_id", p.sessionID),
		zap.Int("max_stack", cfg.MaxStack))
	return p, nil
}

// SessionID returns the session identifier stamped on this Program,
// stable for its whole lifetime.
func (p *Program) SessionID() string { return p.sessionID }

// InternStr interns s through this Program's string table.
func (p *Program) InternStr(s string) *lang.Str { return p.Interner.Intern(s) }

// AddExtVar registers an external variable under name, at most once;
// a second registration of the same name is rejected rather than
// silently overwriting the first, matching the reference
// implementation's own at-most-once rule.
func (p *Program) AddExtVar(name string, value lang.Value) error {
	if p.extVarNames[name] {
		return fmt.Errorf("program: external variable %q already registered", name)
	}
	p.extVarNames[name] = true
	if p.Eval.ExtVars == nil {
		p.Eval.ExtVars = make(map[string]heap.Ref[*lang.ThunkData])
	}
	p.Eval.ExtVars[name] = p.ValueToThunk(value)
	return nil
}

// RegisterNativeFunc declares a native function name and its positional
// parameter names, at most once. The actual call is dispatched later,
// per-evaluation, through the Callbacks a host passes to EvalValue or
// EvalCall — RegisterNativeFunc only needs to be enough for
// std.native(name) to build a correctly-aritied function value before
// any particular evaluation even begins.
func (p *Program) RegisterNativeFunc(name string, paramNames []string) error {
	if _, ok := p.nativeParams[name]; ok {
		return fmt.Errorf("program: native function %q already registered", name)
	}
	p.nativeParams[name] = lang.NewSimpleParams(p.Interner, paramNames)
	return nil
}

// LoadSource parses src (internal/frontend's minimal grammar stands in
// for the out-of-scope tokenizer/parser/analyzer) and returns a thunk
// that, when evaluated, yields the program's value. withStdlib is
// accepted for interface parity with the reference embedding API, whose
// std.jsonnet bootstrap is the one source that must load with it
// false — this core never parses std from source (internal/stdlib
// builds it directly as Go-constructed IR), so every call here behaves
// as if withStdlib were true.
func (p *Program) LoadSource(src []byte, withStdlib bool, thisFileLabel string) (heap.Ref[*lang.ThunkData], error) {
	_ = withStdlib
	text := string(src)
	ctx := p.Spans.OpenContext(thisFileLabel, len(text))
	expr, err := frontend.Parse(p.Spans, p.Interner, ctx, text, p.Arena)
	if err != nil {
		return heap.Ref[*lang.ThunkData]{}, err
	}
	p.roots = append(p.roots, expr)
	env := heap.AllocView(p.Heap, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, map[*lang.Str]heap.Ref[*lang.ThunkData]{
		p.Interner.Intern("std"): p.ValueToThunk(lang.ObjectValue(p.Eval.StdObject)),
	})
	thunk := heap.Alloc[*lang.ThunkData](p.Heap, lang.NewPendingExprThunk(expr, env.Ref()))
	env.Release()
	return thunk, nil
}

// ValueToThunk wraps an already-computed Value as a done thunk.
func (p *Program) ValueToThunk(v lang.Value) heap.Ref[*lang.ThunkData] {
	return heap.Alloc[*lang.ThunkData](p.Heap, lang.NewDoneThunk(v))
}

// MakeArray builds an array Value directly from already-computed items.
func (p *Program) MakeArray(items []lang.Value) lang.Value {
	thunks := make([]heap.Ref[*lang.ThunkData], len(items))
	for i, v := range items {
		thunks[i] = p.ValueToThunk(v)
	}
	return lang.ArrayValue(heap.Alloc[*lang.ArrayData](p.Heap, &lang.ArrayData{Items: thunks}))
}

// NamedValue is one make_object field: a name paired with its
// already-computed value.
type NamedValue struct {
	Name  string
	Value lang.Value
}

// MakeObject builds a single-core object directly from already-computed
// field values, all default-visible — the same shape
// lang.NewSimpleObject gives stdlib's own synthesized objects.
func (p *Program) MakeObject(fields []NamedValue) lang.Value {
	m := make(map[*lang.Str]*lang.ObjectField, len(fields))
	for _, f := range fields {
		m[p.Interner.Intern(f.Name)] = &lang.ObjectField{
			Visibility: lang.VisibilityDefault,
			Thunk:      p.ValueToThunk(f.Value),
		}
	}
	return lang.ObjectValue(heap.Alloc[*lang.ObjectData](p.Heap, lang.NewSimpleObject(m)))
}

// withCallbacks installs cb as the evaluator's importer, native
// dispatcher, and trace sink for the duration of fn, restoring whatever
// was there before on return — the same save/swap/restore discipline
// Evaluator.Run itself uses to stay reentrant.
func (p *Program) withCallbacks(cb Callbacks, fn func() (lang.Value, error)) (lang.Value, error) {
	savedImporter, savedNative, savedHook := p.Eval.Importer, p.Eval.NativeCaller, p.Eval.TraceHook
	if cb != nil {
		p.Eval.Importer = cb
		p.Eval.NativeCaller = &nativeAdapter{params: p.nativeParams, cb: cb}
		p.Eval.TraceHook = func(message string, stack []diagnostics.StackFrame) {
			cb.Trace(message, stack)
		}
	}
	defer func() {
		p.Eval.Importer, p.Eval.NativeCaller, p.Eval.TraceHook = savedImporter, savedNative, savedHook
	}()
	return fn()
}

// EvalValue forces thunk to completion, routing import/native/trace
// requests through cb.
func (p *Program) EvalValue(thunk heap.Ref[*lang.ThunkData], cb Callbacks) (lang.Value, error) {
	return p.withCallbacks(cb, func() (lang.Value, error) {
		return p.Eval.ForceTopLevel(thunk)
	})
}

// EvalCall forces thunk to a function value and calls it with the given
// positional and named arguments (already-computed Values), routing
// import/native/trace requests through cb.
func (p *Program) EvalCall(thunk heap.Ref[*lang.ThunkData], positional []lang.Value, named map[string]lang.Value, cb Callbacks) (lang.Value, error) {
	return p.withCallbacks(cb, func() (lang.Value, error) {
		fnVal, err := p.Eval.ForceTopLevel(thunk)
		if err != nil {
			return lang.Value{}, err
		}
		if fnVal.Kind != lang.ValueFunction {
			return lang.Value{}, p.Eval.Fail(diagnostics.KindCalleeIsNotFunction, "eval_call target is not a function")
		}
		args := make([]heap.Ref[*lang.ThunkData], len(positional))
		for i, v := range positional {
			args[i] = p.ValueToThunk(v)
		}
		// Named arguments bind by looking the parameter up in the
		// callee's own declared order, the same resolution CallFunction's
		// callers rely on elsewhere (package stdlib never needs named
		// args since every builtin and prelude wrapper calls positionally).
		fn := fnVal.Function.Get()
		if len(named) > 0 {
			for name, v := range named {
				s := p.Interner.Intern(name)
				param, ok := fn.Params.ByName[s]
				if !ok {
					return lang.Value{}, p.Eval.Fail(diagnostics.KindUnknownCallParam, "unknown call parameter: "+name)
				}
				for len(args) <= param.Index {
					args = append(args, heap.Ref[*lang.ThunkData]{})
				}
				args[param.Index] = p.ValueToThunk(v)
			}
		}
		return p.Eval.CallFunction(fnVal.Function, args)
	})
}

// ManifestJSON renders v as JSON text.
func (p *Program) ManifestJSON(v lang.Value, multiline bool) (string, error) {
	return manifest.JSON(p.Eval, p.ValueToThunk(v), multiline)
}

// ManifestYAMLDoc renders v as a single YAML document.
func (p *Program) ManifestYAMLDoc(v lang.Value, indentArrayInObject, quoteKeys bool) (string, error) {
	return manifest.Doc(p.Eval, p.ValueToThunk(v), indentArrayInObject, quoteKeys)
}

// ManifestYAMLStream renders v (an array of documents) as a YAML stream.
func (p *Program) ManifestYAMLStream(v lang.Value, indentArrayInObject, quoteKeys bool) (string, error) {
	return manifest.Stream(p.Eval, p.ValueToThunk(v), indentArrayInObject, quoteKeys)
}

// ObjectFieldValue forces and returns the value of name on v, running v's
// asserts first if they haven't already fired for it — the same
// first-access-triggers-asserts rule ordinary field-access expressions
// follow, exposed for hosts that walk an object's fields one at a time
// (cmd/jlang's -m flag does, to write one file per field) instead of
// through manifestation.
func (p *Program) ObjectFieldValue(v lang.Value, name string) (lang.Value, error) {
	if v.Kind != lang.ValueObject {
		return lang.Value{}, p.Eval.Fail(diagnostics.KindFieldOfNonObject, "field access requires an object")
	}
	s := p.Interner.Intern(name)
	return p.Eval.ForceObjectField(v.Object, s)
}

// GC runs an unconditional collection cycle.
func (p *Program) GC() { p.Heap.Collect() }

// Close tears down every IR tree this Program parsed via LoadSource,
// iteratively (lang.DropChildren never recurses the host stack even for
// a deeply nested literal) rather than leaving it for ordinary Go
// garbage collection to unwind recursively. Call it once a Program and
// everything evaluated from it are done; a thunk still holding a
// pointer into a dropped tree must never be forced afterward.
func (p *Program) Close() {
	for _, root := range p.roots {
		lang.DropChildren(root)
	}
	p.roots = nil
}

// MaybeGC runs a collection only once the population has grown enough
// past the last cycle to be worth the pass, per cfg.GCPopulationThreshold.
func (p *Program) MaybeGC() {
	if p.Heap.ShouldCollect(p.Config.GCPopulationThreshold) {
		p.Heap.Collect()
	}
}

// SetMaxStack adjusts the evaluator's call-depth bound.
func (p *Program) SetMaxStack(n int) { p.Eval.MaxStack = n }
