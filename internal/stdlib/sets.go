package stdlib

import (
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func init() {
	registerEntries(
		coreEntry{name: "set", kind: lang.BuiltInSet, params: []string{"arr", "keyF"}, builtIn: wrap(builtinSetConstruct)},
		coreEntry{name: "setInter", kind: lang.BuiltInSetInter, params: []string{"a", "b", "keyF"}, builtIn: wrap(builtinSetInter)},
		coreEntry{name: "setUnion", kind: lang.BuiltInSetUnion, params: []string{"a", "b", "keyF"}, builtIn: wrap(builtinSetUnion)},
		coreEntry{name: "setDiff", kind: lang.BuiltInSetDiff, params: []string{"a", "b", "keyF"}, builtIn: wrap(builtinSetDiff)},
		coreEntry{name: "setMember", kind: lang.BuiltInSetMember, params: []string{"x", "arr", "keyF"}, builtIn: wrap(builtinSetMember)},
	)
}

// A set is represented the same way an ordinary array is: sorted,
// duplicate-free by key. These builtins assume (per spec) that their
// array arguments already have that shape, except setConstruct which
// builds it from an arbitrary array.

func builtinSetConstruct(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sorted, err := builtinSort(ev, []heap.Ref[*lang.ThunkData]{args[0], args[1]})
	if err != nil {
		return lang.Value{}, err
	}
	return builtinUniq(ev, []heap.Ref[*lang.ThunkData]{doneThunk(ev.Heap, sorted), args[1]})
}

func builtinSetInter(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	a, b, err := setPair(ev, args)
	if err != nil {
		return lang.Value{}, err
	}
	keyOf, err := setKeyFunc(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	bKeys := make(map[string]bool, len(b))
	for _, v := range b {
		k, err := keyOf(v)
		if err != nil {
			return lang.Value{}, err
		}
		bKeys[k] = true
	}
	var out []lang.Value
	for _, v := range a {
		k, err := keyOf(v)
		if err != nil {
			return lang.Value{}, err
		}
		if bKeys[k] {
			out = append(out, v)
		}
	}
	return newArrayOfValues(ev.Heap, out), nil
}

func builtinSetUnion(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	a, b, err := setPair(ev, args)
	if err != nil {
		return lang.Value{}, err
	}
	keyOf, err := setKeyFunc(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	seen := make(map[string]bool, len(a)+len(b))
	var out []lang.Value
	for _, v := range append(append([]lang.Value{}, a...), b...) {
		k, err := keyOf(v)
		if err != nil {
			return lang.Value{}, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return newArrayOfValues(ev.Heap, out), nil
}

func builtinSetDiff(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	a, b, err := setPair(ev, args)
	if err != nil {
		return lang.Value{}, err
	}
	keyOf, err := setKeyFunc(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	bKeys := make(map[string]bool, len(b))
	for _, v := range b {
		k, err := keyOf(v)
		if err != nil {
			return lang.Value{}, err
		}
		bKeys[k] = true
	}
	var out []lang.Value
	for _, v := range a {
		k, err := keyOf(v)
		if err != nil {
			return lang.Value{}, err
		}
		if !bKeys[k] {
			out = append(out, v)
		}
	}
	return newArrayOfValues(ev.Heap, out), nil
}

func builtinSetMember(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	x, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arrV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "setMember")
	if err != nil {
		return lang.Value{}, err
	}
	vals, err := forceEach(ev, arr)
	if err != nil {
		return lang.Value{}, err
	}
	keyOf, err := setKeyFunc(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	xKey, err := keyOf(x)
	if err != nil {
		return lang.Value{}, err
	}
	for _, v := range vals {
		k, err := keyOf(v)
		if err != nil {
			return lang.Value{}, err
		}
		if k == xKey {
			return lang.BoolValue(true), nil
		}
	}
	return lang.BoolValue(false), nil
}

func setPair(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) ([]lang.Value, []lang.Value, error) {
	av, err := arg(ev, args, 0)
	if err != nil {
		return nil, nil, err
	}
	a, err := requireArray(ev, av, "set operation")
	if err != nil {
		return nil, nil, err
	}
	aVals, err := forceEach(ev, a)
	if err != nil {
		return nil, nil, err
	}
	bv, err := arg(ev, args, 1)
	if err != nil {
		return nil, nil, err
	}
	b, err := requireArray(ev, bv, "set operation")
	if err != nil {
		return nil, nil, err
	}
	bVals, err := forceEach(ev, b)
	if err != nil {
		return nil, nil, err
	}
	return aVals, bVals, nil
}

func setKeyFunc(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData], i int) (func(lang.Value) (string, error), error) {
	keyFV, err := arg(ev, args, i)
	if err != nil {
		return nil, err
	}
	if keyFV.Kind == lang.ValueNull {
		return func(v lang.Value) (string, error) {
			text, err := manifestKey(ev, v)
			return text, err
		}, nil
	}
	fn, err := requireFunction(ev, keyFV, "set operation")
	if err != nil {
		return nil, err
	}
	return func(v lang.Value) (string, error) {
		k, err := ev.CallFunction(fn, []heap.Ref[*lang.ThunkData]{doneThunk(ev.Heap, v)})
		if err != nil {
			return "", err
		}
		return manifestKey(ev, k)
	}, nil
}

func manifestKey(ev *eval.Evaluator, v lang.Value) (string, error) {
	s, err := builtinToString(ev, []heap.Ref[*lang.ThunkData]{doneThunk(ev.Heap, v)})
	if err != nil {
		return "", err
	}
	return s.String, nil
}
