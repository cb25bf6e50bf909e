package stdlib

import (
	"sort"

	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func init() {
	registerEntries(
		coreEntry{name: "makeArray", kind: lang.BuiltInMakeArray, params: []string{"sz", "func"}, builtIn: wrap(builtinMakeArray)},
		coreEntry{name: "filter", kind: lang.BuiltInFilter, params: []string{"func", "arr"}, builtIn: wrap(builtinFilter)},
		coreEntry{name: "foldl", kind: lang.BuiltInFoldl, params: []string{"func", "arr", "init"}, builtIn: wrap(builtinFoldl)},
		coreEntry{name: "foldr", kind: lang.BuiltInFoldr, params: []string{"func", "arr", "init"}, builtIn: wrap(builtinFoldr)},
		coreEntry{name: "range", kind: lang.BuiltInRange, params: []string{"from", "to"}, builtIn: wrap(builtinRange)},
		coreEntry{name: "slice", kind: lang.BuiltInSlice, params: []string{"indexable", "index", "end", "step"}, builtIn: wrap(builtinSlice)},
		coreEntry{name: "join", kind: lang.BuiltInJoin, params: []string{"sep", "arr"}, builtIn: wrap(builtinJoin)},
		coreEntry{name: "reverse", kind: lang.BuiltInReverse, params: []string{"arr"}, builtIn: wrap(builtinReverse)},
		coreEntry{name: "sort", kind: lang.BuiltInSort, params: []string{"arr", "keyF"}, builtIn: wrap(builtinSort)},
		coreEntry{name: "uniq", kind: lang.BuiltInUniq, params: []string{"arr", "keyF"}, builtIn: wrap(builtinUniq)},
		coreEntry{name: "all", kind: lang.BuiltInAll, params: []string{"arr"}, builtIn: wrap(builtinAll)},
		coreEntry{name: "any", kind: lang.BuiltInAny, params: []string{"arr"}, builtIn: wrap(builtinAny)},
	)
}

func builtinMakeArray(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	szV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	sz, err := requireNumber(ev, szV, "makeArray")
	if err != nil {
		return lang.Value{}, err
	}
	fnV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	fn, err := requireFunction(ev, fnV, "makeArray")
	if err != nil {
		return lang.Value{}, err
	}
	n := int(sz)
	items := make([]heap.Ref[*lang.ThunkData], n)
	for i := 0; i < n; i++ {
		v, err := ev.CallFunction(fn, []heap.Ref[*lang.ThunkData]{doneThunk(ev.Heap, lang.NumberValue(float64(i)))})
		if err != nil {
			return lang.Value{}, err
		}
		items[i] = doneThunk(ev.Heap, v)
	}
	return newArray(ev.Heap, items), nil
}

func builtinFilter(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	fnV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	fn, err := requireFunction(ev, fnV, "filter")
	if err != nil {
		return lang.Value{}, err
	}
	arrV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "filter")
	if err != nil {
		return lang.Value{}, err
	}
	var kept []heap.Ref[*lang.ThunkData]
	for _, item := range arr.Items {
		r, err := ev.CallFunction(fn, []heap.Ref[*lang.ThunkData]{item})
		if err != nil {
			return lang.Value{}, err
		}
		keep, err := requireBool(ev, r, "filter")
		if err != nil {
			return lang.Value{}, err
		}
		if keep {
			kept = append(kept, item)
		}
	}
	return newArray(ev.Heap, kept), nil
}

func builtinFoldl(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	return foldImpl(ev, args, false)
}

func builtinFoldr(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	return foldImpl(ev, args, true)
}

func foldImpl(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData], fromRight bool) (lang.Value, error) {
	fnV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	fn, err := requireFunction(ev, fnV, "foldl/foldr")
	if err != nil {
		return lang.Value{}, err
	}
	arrV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "foldl/foldr")
	if err != nil {
		return lang.Value{}, err
	}
	acc := args[2]
	n := len(arr.Items)
	for i := 0; i < n; i++ {
		idx := i
		if fromRight {
			idx = n - 1 - i
		}
		item := arr.Items[idx]
		var callArgs []heap.Ref[*lang.ThunkData]
		if fromRight {
			callArgs = []heap.Ref[*lang.ThunkData]{item, acc}
		} else {
			callArgs = []heap.Ref[*lang.ThunkData]{acc, item}
		}
		v, err := ev.CallFunction(fn, callArgs)
		if err != nil {
			return lang.Value{}, err
		}
		acc = doneThunk(ev.Heap, v)
	}
	return ev.ForceTopLevel(acc)
}

func builtinRange(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	fromV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	from, err := requireNumber(ev, fromV, "range")
	if err != nil {
		return lang.Value{}, err
	}
	toV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	to, err := requireNumber(ev, toV, "range")
	if err != nil {
		return lang.Value{}, err
	}
	var vals []lang.Value
	for i := int(from); i <= int(to); i++ {
		vals = append(vals, lang.NumberValue(float64(i)))
	}
	return newArrayOfValues(ev.Heap, vals), nil
}

func builtinSlice(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	arrV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "slice")
	if err != nil {
		return lang.Value{}, err
	}
	index, err := optionalIndex(ev, args, 1, 0)
	if err != nil {
		return lang.Value{}, err
	}
	end, err := optionalIndex(ev, args, 2, len(arr.Items))
	if err != nil {
		return lang.Value{}, err
	}
	step, err := optionalIndex(ev, args, 3, 1)
	if err != nil {
		return lang.Value{}, err
	}
	if step <= 0 {
		step = 1
	}
	index = clampIndex(index, len(arr.Items))
	end = clampIndex(end, len(arr.Items))
	var items []heap.Ref[*lang.ThunkData]
	for i := index; i < end; i += step {
		items = append(items, arr.Items[i])
	}
	return newArray(ev.Heap, items), nil
}

func optionalIndex(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData], i, def int) (int, error) {
	v, err := arg(ev, args, i)
	if err != nil {
		return 0, err
	}
	if v.Kind == lang.ValueNull {
		return def, nil
	}
	n, err := requireNumber(ev, v, "slice")
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func builtinJoin(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sepV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arrV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "join")
	if err != nil {
		return lang.Value{}, err
	}
	vals, err := forceEach(ev, arr)
	if err != nil {
		return lang.Value{}, err
	}
	if sepV.Kind == lang.ValueString {
		var out []byte
		first := true
		for _, v := range vals {
			if v.Kind == lang.ValueNull {
				continue
			}
			s, err := requireString(ev, v, "join")
			if err != nil {
				return lang.Value{}, err
			}
			if !first {
				out = append(out, sepV.String...)
			}
			out = append(out, s...)
			first = false
		}
		return lang.StringValue(string(out)), nil
	}
	sep, err := requireArray(ev, sepV, "join")
	if err != nil {
		return lang.Value{}, err
	}
	sepVals, err := forceEach(ev, sep)
	if err != nil {
		return lang.Value{}, err
	}
	var out []lang.Value
	first := true
	for _, v := range vals {
		if v.Kind == lang.ValueNull {
			continue
		}
		elems, err := requireArray(ev, v, "join")
		if err != nil {
			return lang.Value{}, err
		}
		elemVals, err := forceEach(ev, elems)
		if err != nil {
			return lang.Value{}, err
		}
		if !first {
			out = append(out, sepVals...)
		}
		out = append(out, elemVals...)
		first = false
	}
	return newArrayOfValues(ev.Heap, out), nil
}

func builtinReverse(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	arrV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "reverse")
	if err != nil {
		return lang.Value{}, err
	}
	n := len(arr.Items)
	items := make([]heap.Ref[*lang.ThunkData], n)
	for i, it := range arr.Items {
		items[n-1-i] = it
	}
	return newArray(ev.Heap, items), nil
}

func builtinSort(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	arrV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "sort")
	if err != nil {
		return lang.Value{}, err
	}
	keys, items, err := sortKeys(ev, args, arr)
	if err != nil {
		return lang.Value{}, err
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		c, err := eval.ValuesCompare(ev, keys[idx[i]], keys[idx[j]])
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return lang.Value{}, sortErr
	}
	out := make([]heap.Ref[*lang.ThunkData], len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return newArray(ev.Heap, out), nil
}

func sortKeys(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData], arr *lang.ArrayData) ([]lang.Value, []heap.Ref[*lang.ThunkData], error) {
	vals, err := forceEach(ev, arr)
	if err != nil {
		return nil, nil, err
	}
	keyFV, err := arg(ev, args, 1)
	if err != nil {
		return nil, nil, err
	}
	if keyFV.Kind == lang.ValueNull {
		return vals, arr.Items, nil
	}
	fn, err := requireFunction(ev, keyFV, "sort")
	if err != nil {
		return nil, nil, err
	}
	keys := make([]lang.Value, len(arr.Items))
	for i, item := range arr.Items {
		k, err := ev.CallFunction(fn, []heap.Ref[*lang.ThunkData]{item})
		if err != nil {
			return nil, nil, err
		}
		keys[i] = k
	}
	return keys, arr.Items, nil
}

func builtinUniq(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	arrV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "uniq")
	if err != nil {
		return lang.Value{}, err
	}
	keys, items, err := sortKeys(ev, args, arr)
	if err != nil {
		return lang.Value{}, err
	}
	var out []heap.Ref[*lang.ThunkData]
	for i, item := range items {
		if i > 0 {
			eq, err := eval.ValuesEqual(ev, keys[i-1], keys[i])
			if err != nil {
				return lang.Value{}, err
			}
			if eq {
				continue
			}
		}
		out = append(out, item)
	}
	return newArray(ev.Heap, out), nil
}

func builtinAll(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	arrV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "all")
	if err != nil {
		return lang.Value{}, err
	}
	vals, err := forceEach(ev, arr)
	if err != nil {
		return lang.Value{}, err
	}
	for _, v := range vals {
		b, err := requireBool(ev, v, "all")
		if err != nil {
			return lang.Value{}, err
		}
		if !b {
			return lang.BoolValue(false), nil
		}
	}
	return lang.BoolValue(true), nil
}

func builtinAny(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	arrV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, arrV, "any")
	if err != nil {
		return lang.Value{}, err
	}
	vals, err := forceEach(ev, arr)
	if err != nil {
		return lang.Value{}, err
	}
	for _, v := range vals {
		b, err := requireBool(ev, v, "any")
		if err != nil {
			return lang.Value{}, err
		}
		if b {
			return lang.BoolValue(true), nil
		}
	}
	return lang.BoolValue(false), nil
}
