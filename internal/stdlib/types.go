package stdlib

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func init() {
	registerEntries(
		coreEntry{name: "type", kind: lang.BuiltInType, params: []string{"x"}, builtIn: wrap(builtinType)},
		coreEntry{name: "isArray", kind: lang.BuiltInIsArray, params: []string{"v"}, builtIn: wrap(isKind(lang.ValueArray))},
		coreEntry{name: "isBoolean", kind: lang.BuiltInIsBoolean, params: []string{"v"}, builtIn: wrap(isKind(lang.ValueBool))},
		coreEntry{name: "isFunction", kind: lang.BuiltInIsFunction, params: []string{"v"}, builtIn: wrap(isKind(lang.ValueFunction))},
		coreEntry{name: "isNumber", kind: lang.BuiltInIsNumber, params: []string{"v"}, builtIn: wrap(isKind(lang.ValueNumber))},
		coreEntry{name: "isObject", kind: lang.BuiltInIsObject, params: []string{"v"}, builtIn: wrap(isKind(lang.ValueObject))},
		coreEntry{name: "isString", kind: lang.BuiltInIsString, params: []string{"v"}, builtIn: wrap(isKind(lang.ValueString))},
		coreEntry{name: "length", kind: lang.BuiltInLength, params: []string{"x"}, builtIn: wrap(builtinLength)},
		coreEntry{name: "objectHasEx", kind: lang.BuiltInObjectHasEx, params: []string{"o", "f", "hidden"}, builtIn: wrap(builtinObjectHasEx)},
		coreEntry{name: "objectFieldsEx", kind: lang.BuiltInObjectFieldsEx, params: []string{"o", "hidden"}, builtIn: wrap(builtinObjectFieldsEx)},
		coreEntry{name: "primitiveEquals", kind: lang.BuiltInPrimitiveEquals, params: []string{"a", "b"}, builtIn: wrap(builtinEquals)},
		coreEntry{name: "equals", kind: lang.BuiltInEquals, params: []string{"a", "b"}, builtIn: wrap(builtinEquals)},
		coreEntry{name: "compare", kind: lang.BuiltInCompare, params: []string{"a", "b"}, builtIn: wrap(builtinCompare)},
		coreEntry{name: "__compareArray", kind: lang.BuiltInCompareArray, params: []string{"a", "b"}, builtIn: wrap(builtinCompare)},
	)
}

func builtinType(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	v, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	return lang.StringValue(v.TypeName()), nil
}

func isKind(k lang.ValueKind) nativeFn {
	return func(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
		v, err := arg(ev, args, 0)
		if err != nil {
			return lang.Value{}, err
		}
		return lang.BoolValue(v.Kind == k), nil
	}
}

func builtinLength(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	v, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	switch v.Kind {
	case lang.ValueString:
		return lang.NumberValue(float64(len([]rune(v.String)))), nil
	case lang.ValueArray:
		return lang.NumberValue(float64(v.Array.Get().Len())), nil
	case lang.ValueObject:
		names := v.Object.Get().FieldsOrder()
		n := 0
		for _, name := range names {
			if v.Object.Get().FieldIsVisible(name) {
				n++
			}
		}
		return lang.NumberValue(float64(n)), nil
	case lang.ValueFunction:
		return lang.NumberValue(float64(v.Function.Get().NumParams())), nil
	default:
		return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "length requires a string, array, object, or function")
	}
}

func builtinObjectHasEx(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	ov, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	obj, err := requireObject(ev, ov, "objectHasEx")
	if err != nil {
		return lang.Value{}, err
	}
	fv, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	fname, err := requireString(ev, fv, "objectHasEx")
	if err != nil {
		return lang.Value{}, err
	}
	hv, err := arg(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	includeHidden, err := requireBool(ev, hv, "objectHasEx")
	if err != nil {
		return lang.Value{}, err
	}
	name, ok := ev.Interner.Lookup(fname)
	if !ok || !obj.Get().HasField(0, name) {
		return lang.BoolValue(false), nil
	}
	if includeHidden {
		return lang.BoolValue(true), nil
	}
	return lang.BoolValue(obj.Get().FieldIsVisible(name)), nil
}

func builtinObjectFieldsEx(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	ov, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	obj, err := requireObject(ev, ov, "objectFieldsEx")
	if err != nil {
		return lang.Value{}, err
	}
	hv, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	includeHidden, err := requireBool(ev, hv, "objectFieldsEx")
	if err != nil {
		return lang.Value{}, err
	}
	all := obj.Get().FieldsOrder()
	names := make([]lang.Value, 0, len(all))
	for _, n := range all {
		if includeHidden || obj.Get().FieldIsVisible(n) {
			names = append(names, lang.StringValue(n.Value()))
		}
	}
	return newArrayOfValues(ev.Heap, names), nil
}

func builtinEquals(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	a, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	b, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	eq, err := eval.ValuesEqual(ev, a, b)
	if err != nil {
		return lang.Value{}, err
	}
	return lang.BoolValue(eq), nil
}

func builtinCompare(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	a, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	b, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	c, err := eval.ValuesCompare(ev, a, b)
	if err != nil {
		return lang.Value{}, err
	}
	return lang.NumberValue(float64(c)), nil
}
