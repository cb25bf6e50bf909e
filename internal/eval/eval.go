// Package eval implements the stack-machine evaluator: an explicit value
// stack plus an explicit state (continuation) stack. Every State.Step call
// performs exactly one reducing step. A Step may itself call Run (directly
// or through ForceTopLevel) to force a value it needs, for example a
// comprehension's iterable, a value rendered to a string, or a callback a
// standard-library built-in invokes; each such nested Run occupies host
// call frames, so that kind of nesting grows the host stack.
package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/span"
)

// State is one continuation on the evaluator's state stack. Step may
// push further states and/or values, and may call Run or ForceTopLevel
// when it needs a value forced before it can continue (see Run).
type State interface {
	Step(ev *Evaluator) error
}

// Evaluator holds the two explicit stacks plus the heap and span/string
// tables every evaluation step may need.
type Evaluator struct {
	Heap     *heap.Heap
	Interner *interner.Interner
	Spans    *span.Manager

	values []lang.Value
	states []State

	// MaxStack bounds len(states); exceeding it is reported the same way
	// the spec treats any other evaluation failure, never as a host
	// panic.
	MaxStack int

	trace []diagnostics.StackFrame

	// builtins is consulted by pushCall for FuncBuiltIn calls; wired in
	// by package stdlib via RegisterBuiltIn to avoid an import cycle
	// (stdlib depends on eval for the Evaluator and State types).
	builtins map[lang.BuiltInFunc]BuiltInCtor

	// Importer resolves import/importstr/importbin expressions; nil
	// means the core was embedded without one, and any Import* node
	// fails with KindBadImport. Import resolution is an external
	// collaborator's responsibility per the core's scope.
	Importer Importer

	identityFuncCache heap.Ref[*lang.FuncData]

	// StdObject is the evaluated standard library object, installed once
	// by package stdlib; `std.foo` field accesses resolve against it.
	StdObject heap.Ref[*lang.ObjectData]

	// ExtVars holds one already-wrapped thunk per external variable the
	// embedding host registered (program.AddExtVar); std.extVar(name)
	// looks a name up here, failing if absent. Owned by package program,
	// consulted read-only by package stdlib's BuiltInExtVar.
	ExtVars map[string]heap.Ref[*lang.ThunkData]

	// NativeCaller dispatches FuncNative calls to the embedding host;
	// nil means none was installed, so any such call fails. Native
	// functions are themselves an external collaborator's responsibility
	// (program.Callbacks.NativeCall) — the evaluator only needs a narrow
	// seam to reach it.
	NativeCaller NativeCaller

	// TraceHook, if set, receives every std.trace call's message and the
	// current stack, mirroring it out to the embedding host
	// (program.Callbacks.Trace) in addition to the always-on zap log
	// line std.trace already emits. nil means no host is listening.
	TraceHook func(message string, stack []diagnostics.StackFrame)
}

// Importer is the evaluator's only hook into file/module resolution.
type Importer interface {
	Import(path string, fromSpan span.ID) (lang.Value, error)
	ImportStr(path string, fromSpan span.ID) (string, error)
	ImportBin(path string, fromSpan span.ID) ([]byte, error)
}

// NativeCaller dispatches one std.native(name)-reached call to the
// embedding host, which owns the actual Go function registered under
// that name. NativeParams reports the parameter names the host
// registered name under, so std.native(name) can build a properly
// arity-checked function value without the core needing its own
// separate native-function registry.
type NativeCaller interface {
	NativeCall(name string, args []lang.Value) (lang.Value, error)
	NativeParams(name string) (*lang.FuncParams, bool)
}

// BuiltInCtor builds the State that implements one call to a
// lang.BuiltInFunc, given its already-bound positional argument thunks
// (defaults already substituted by the call protocol). It returns a
// State rather than a Value so that the built-in runs as a step of the
// trampoline. The built-ins in package stdlib do their whole computation
// in that one Step and invoke user-supplied callbacks (std.filter,
// std.foldl, std.sort's comparator, ...) through CallFunction and
// ForceTopLevel, each of which runs a nested Run on the host stack.
type BuiltInCtor func(args []heap.Ref[*lang.ThunkData]) State

// New returns an Evaluator with empty stacks.
func New(h *heap.Heap, in *interner.Interner, spans *span.Manager, maxStack int) *Evaluator {
	return &Evaluator{
		Heap:     h,
		Interner: in,
		Spans:    spans,
		MaxStack: maxStack,
		builtins: make(map[lang.BuiltInFunc]BuiltInCtor),
	}
}

// RegisterBuiltIn installs the implementation for one BuiltInFunc kind.
func (ev *Evaluator) RegisterBuiltIn(kind lang.BuiltInFunc, ctor BuiltInCtor) {
	ev.builtins[kind] = ctor
}

// PushValue pushes a finished value onto the value stack.
func (ev *Evaluator) PushValue(v lang.Value) { ev.values = append(ev.values, v) }

// PopValue pops and returns the top of the value stack.
func (ev *Evaluator) PopValue() lang.Value {
	n := len(ev.values) - 1
	v := ev.values[n]
	ev.values = ev.values[:n]
	return v
}

// PeekValue returns the top of the value stack without popping it.
func (ev *Evaluator) PeekValue() lang.Value { return ev.values[len(ev.values)-1] }

// PushState pushes one continuation, failing with KindStackOverflow if
// MaxStack is exceeded.
func (ev *Evaluator) PushState(s State) error {
	if ev.MaxStack > 0 && len(ev.states) >= ev.MaxStack {
		return &diagnostics.EvalError{Kind: diagnostics.KindStackOverflow, Message: "evaluator state stack exceeded max_stack"}
	}
	ev.states = append(ev.states, s)
	return nil
}

// PushTrace records a trace frame for a point a backtrace should mention
// on failure; variable lookup (ExprVar) is the only state that pushes one.
func (ev *Evaluator) PushTrace(sp span.ID, desc string) {
	ev.trace = append(ev.trace, diagnostics.StackFrame{Span: sp, Description: desc})
}

// PopTrace discards the innermost trace frame, called once a state that
// pushed one completes successfully.
func (ev *Evaluator) PopTrace() {
	if len(ev.trace) > 0 {
		ev.trace = ev.trace[:len(ev.trace)-1]
	}
}

// Trace returns a copy of the current trace, innermost-first.
func (ev *Evaluator) Trace() []diagnostics.StackFrame {
	out := make([]diagnostics.StackFrame, len(ev.trace))
	for i, f := range ev.trace {
		out[len(ev.trace)-1-i] = f
	}
	return out
}

// Fail builds an EvalError of the given kind and message carrying the
// evaluator's current trace.
func (ev *Evaluator) Fail(kind diagnostics.Kind, message string) error {
	return &diagnostics.EvalError{Kind: kind, Message: message, Stack: ev.Trace()}
}

// Run drives the trampoline until the state stack empties, then returns
// the single value left on the value stack. initial is pushed before the
// loop starts.
//
// Run is reentrant: it swaps in fresh state/value stacks for the
// duration of this call and restores whatever was there before on
// return, so a State.Step may itself call Run (directly or via
// ForceTopLevel) to force a value it needs before it can decide what to
// push next — e.g. resolving a comprehension's iterable, or rendering a
// nested value to a string — without that nested loop draining the
// frames the outer computation has already queued.
func (ev *Evaluator) Run(initial State) (lang.Value, error) {
	savedStates, savedValues := ev.states, ev.values
	ev.states, ev.values = nil, nil
	defer func() { ev.states, ev.values = savedStates, savedValues }()

	if err := ev.PushState(initial); err != nil {
		return lang.Value{}, err
	}
	for len(ev.states) > 0 {
		n := len(ev.states) - 1
		s := ev.states[n]
		ev.states = ev.states[:n]
		if err := s.Step(ev); err != nil {
			return lang.Value{}, err
		}
	}
	if len(ev.values) != 1 {
		panic("eval: trampoline finished with an unbalanced value stack")
	}
	return ev.PopValue(), nil
}

// ForceTopLevel evaluates a thunk to completion through its own nested
// Run loop and returns its Value. Safe to call both from a genuine
// top-level entry point (Program.Eval, a manifestation driver) and from
// within a State.Step that needs a concrete value before it can proceed
// (see Run's reentrancy note). MaxStack bounds the state stack of each
// nested Run on its own; it does not bound how deeply Run calls nest, and
// every nesting level uses host call frames.
func (ev *Evaluator) ForceTopLevel(thunk heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	return ev.Run(&doThunkState{thunk: thunk})
}
