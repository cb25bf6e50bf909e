package program

import (
	"fmt"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/span"
)

// Callbacks is implemented by the embedding host. Its Import/ImportStr/
// ImportBin methods double as eval.Importer — import resolution and
// caching are the host's responsibility per spec.md §4.7 — so a
// Callbacks value can be assigned directly to Evaluator.Importer without
// an adapter. Trace and NativeCall have no equivalent core-side
// interface of their own: Trace is a one-way notification, and
// NativeCall is wrapped by nativeAdapter so the evaluator's
// eval.NativeCaller also gets the parameter metadata Program's own
// registry owns.
type Callbacks interface {
	Import(path string, fromSpan span.ID) (lang.Value, error)
	ImportStr(path string, fromSpan span.ID) (string, error)
	ImportBin(path string, fromSpan span.ID) ([]byte, error)
	Trace(message string, stack []diagnostics.StackFrame)
	NativeCall(name string, args []lang.Value) (lang.Value, error)
}

// nativeAdapter satisfies eval.NativeCaller by combining Program's own
// registered parameter metadata (known up front, independent of any one
// evaluation) with a particular call's host callback (known only once
// EvalValue/EvalCall is invoked).
type nativeAdapter struct {
	params map[string]*lang.FuncParams
	cb     Callbacks
}

func (a *nativeAdapter) NativeParams(name string) (*lang.FuncParams, bool) {
	p, ok := a.params[name]
	return p, ok
}

func (a *nativeAdapter) NativeCall(name string, args []lang.Value) (lang.Value, error) {
	if _, ok := a.params[name]; !ok {
		return lang.Value{}, fmt.Errorf("program: native function %q not registered", name)
	}
	return a.cb.NativeCall(name, args)
}

// NoopCallbacks is a Callbacks implementation that fails every import
// and native call and discards traces — a convenient base for a host
// that only needs a subset (embed it and override the rest), and the
// default a demo that never imports or calls natives can use as-is.
type NoopCallbacks struct{}

func (NoopCallbacks) Import(path string, fromSpan span.ID) (lang.Value, error) {
	return lang.Value{}, &diagnostics.EvalError{Kind: diagnostics.KindBadImport, Message: "import not supported: " + path}
}

func (NoopCallbacks) ImportStr(path string, fromSpan span.ID) (string, error) {
	return "", &diagnostics.EvalError{Kind: diagnostics.KindBadImport, Message: "importstr not supported: " + path}
}

func (NoopCallbacks) ImportBin(path string, fromSpan span.ID) ([]byte, error) {
	return nil, &diagnostics.EvalError{Kind: diagnostics.KindBadImport, Message: "importbin not supported: " + path}
}

func (NoopCallbacks) Trace(message string, stack []diagnostics.StackFrame) {}

func (NoopCallbacks) NativeCall(name string, args []lang.Value) (lang.Value, error) {
	return lang.Value{}, fmt.Errorf("program: no native call handler installed for %q", name)
}
