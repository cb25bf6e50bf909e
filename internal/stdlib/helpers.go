package stdlib

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// nativeFn is one core built-in's implementation: given its (already
// default-bound) argument thunks, produce a Value or fail. Forcing
// whichever arguments it needs is the implementation's own job, via
// ev.ForceTopLevel — safe to call mid-Step per the evaluator's
// reentrancy guarantee.
type nativeFn func(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error)

// nativeState adapts a nativeFn to the eval.State interface: exactly one
// Step call runs the whole built-in and pushes its result, mirroring how
// every other single-reduction evaluator state behaves.
type nativeState struct {
	args []heap.Ref[*lang.ThunkData]
	fn   nativeFn
}

func (s *nativeState) Step(ev *eval.Evaluator) error {
	v, err := s.fn(ev, s.args)
	if err != nil {
		return err
	}
	ev.PushValue(v)
	return nil
}

func wrap(fn nativeFn) eval.BuiltInCtor {
	return func(args []heap.Ref[*lang.ThunkData]) eval.State {
		return &nativeState{args: args, fn: fn}
	}
}

func arg(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData], i int) (lang.Value, error) {
	return ev.ForceTopLevel(args[i])
}

func requireNumber(ev *eval.Evaluator, v lang.Value, who string) (float64, error) {
	if v.Kind != lang.ValueNumber {
		return 0, ev.Fail(diagnostics.KindTypeMismatch, who+" requires a number")
	}
	return v.Number, nil
}

func requireString(ev *eval.Evaluator, v lang.Value, who string) (string, error) {
	if v.Kind != lang.ValueString {
		return "", ev.Fail(diagnostics.KindTypeMismatch, who+" requires a string")
	}
	return v.String, nil
}

func requireBool(ev *eval.Evaluator, v lang.Value, who string) (bool, error) {
	if v.Kind != lang.ValueBool {
		return false, ev.Fail(diagnostics.KindTypeMismatch, who+" requires a boolean")
	}
	return v.Bool, nil
}

func requireArray(ev *eval.Evaluator, v lang.Value, who string) (*lang.ArrayData, error) {
	if v.Kind != lang.ValueArray {
		return nil, ev.Fail(diagnostics.KindTypeMismatch, who+" requires an array")
	}
	return v.Array.Get(), nil
}

func requireObject(ev *eval.Evaluator, v lang.Value, who string) (heap.Ref[*lang.ObjectData], error) {
	if v.Kind != lang.ValueObject {
		return heap.Ref[*lang.ObjectData]{}, ev.Fail(diagnostics.KindTypeMismatch, who+" requires an object")
	}
	return v.Object, nil
}

func requireFunction(ev *eval.Evaluator, v lang.Value, who string) (heap.Ref[*lang.FuncData], error) {
	if v.Kind != lang.ValueFunction {
		return heap.Ref[*lang.FuncData]{}, ev.Fail(diagnostics.KindTypeMismatch, who+" requires a function")
	}
	return v.Function, nil
}

// forceEach forces every element of arr, in order — bounded by the
// array's own length, the same non-recursive precedent evalCompSpecEnvs
// already sets for walking a fixed-size clause or element list with
// direct ForceTopLevel calls rather than per-element evaluator states.
func forceEach(ev *eval.Evaluator, arr *lang.ArrayData) ([]lang.Value, error) {
	out := make([]lang.Value, arr.Len())
	for i, item := range arr.Items {
		v, err := ev.ForceTopLevel(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func doneThunk(h *heap.Heap, v lang.Value) heap.Ref[*lang.ThunkData] {
	return heap.Alloc[*lang.ThunkData](h, lang.NewDoneThunk(v))
}

func newArray(h *heap.Heap, items []heap.Ref[*lang.ThunkData]) lang.Value {
	return lang.ArrayValue(heap.Alloc[*lang.ArrayData](h, &lang.ArrayData{Items: items}))
}

func newArrayOfValues(h *heap.Heap, vals []lang.Value) lang.Value {
	items := make([]heap.Ref[*lang.ThunkData], len(vals))
	for i, v := range vals {
		items[i] = doneThunk(h, v)
	}
	return newArray(h, items)
}
