package stdlib

import (
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/manifest"
)

func init() {
	registerEntries(
		coreEntry{name: "parseInt", kind: lang.BuiltInParseInt, params: []string{"str"}, builtIn: wrap(parseBase(10))},
		coreEntry{name: "parseOctal", kind: lang.BuiltInParseOctal, params: []string{"str"}, builtIn: wrap(parseBase(8))},
		coreEntry{name: "parseHex", kind: lang.BuiltInParseHex, params: []string{"str"}, builtIn: wrap(parseBase(16))},
		coreEntry{name: "parseJson", kind: lang.BuiltInParseJSON, params: []string{"str"}, builtIn: wrap(builtinParseJSON)},
		coreEntry{name: "parseYaml", kind: lang.BuiltInParseYAML, params: []string{"str"}, builtIn: wrap(builtinParseYAML)},
		coreEntry{name: "encodeUTF8", kind: lang.BuiltInEncodeUTF8, params: []string{"str"}, builtIn: wrap(builtinEncodeUTF8)},
		coreEntry{name: "decodeUTF8", kind: lang.BuiltInDecodeUTF8, params: []string{"arr"}, builtIn: wrap(builtinDecodeUTF8)},
		coreEntry{name: "manifestJsonEx", kind: lang.BuiltInManifestJSONEx, params: []string{"value", "indent"}, builtIn: wrap(builtinManifestJSONEx)},
	)
}

func parseBase(base int) nativeFn {
	return func(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
		sv, err := arg(ev, args, 0)
		if err != nil {
			return lang.Value{}, err
		}
		s, err := requireString(ev, sv, "parseInt")
		if err != nil {
			return lang.Value{}, err
		}
		n, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return lang.Value{}, ev.Fail(diagnostics.KindBadFormat, "invalid integer literal: "+s)
		}
		return lang.NumberValue(float64(n)), nil
	}
}

func builtinParseJSON(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "parseJson")
	if err != nil {
		return lang.Value{}, err
	}
	var data any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return lang.Value{}, ev.Fail(diagnostics.KindBadFormat, "invalid JSON: "+err.Error())
	}
	return goValueToJsonnet(ev.Heap, ev.Interner, data), nil
}

func builtinParseYAML(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "parseYaml")
	if err != nil {
		return lang.Value{}, err
	}
	var data any
	if err := yaml.Unmarshal([]byte(s), &data); err != nil {
		return lang.Value{}, ev.Fail(diagnostics.KindBadFormat, "invalid YAML: "+err.Error())
	}
	return goValueToJsonnet(ev.Heap, ev.Interner, data), nil
}

// goValueToJsonnet converts the result of encoding/json or yaml.v3
// unmarshaling (itself already fully realized, acyclic Go data) directly
// into a Jsonnet value tree built from already-done thunks — no deferred
// evaluation makes sense for data that exists eagerly in Go memory.
func goValueToJsonnet(h *heap.Heap, in *interner.Interner, v any) lang.Value {
	switch x := v.(type) {
	case nil:
		return lang.NullValue
	case bool:
		return lang.BoolValue(x)
	case string:
		return lang.StringValue(x)
	case float64:
		return lang.NumberValue(x)
	case int:
		return lang.NumberValue(float64(x))
	case []any:
		items := make([]heap.Ref[*lang.ThunkData], len(x))
		for i, e := range x {
			items[i] = doneThunk(h, goValueToJsonnet(h, in, e))
		}
		return newArray(h, items)
	case map[string]any:
		fields := make(map[*lang.Str]*lang.ObjectField, len(x))
		for k, e := range x {
			fields[in.Intern(k)] = doneField(h, goValueToJsonnet(h, in, e))
		}
		obj := lang.NewSimpleObject(fields)
		return lang.ObjectValue(heap.Alloc[*lang.ObjectData](h, obj))
	case map[any]any:
		fields := make(map[*lang.Str]*lang.ObjectField, len(x))
		for k, e := range x {
			ks, _ := k.(string)
			fields[in.Intern(ks)] = doneField(h, goValueToJsonnet(h, in, e))
		}
		obj := lang.NewSimpleObject(fields)
		return lang.ObjectValue(heap.Alloc[*lang.ObjectData](h, obj))
	default:
		return lang.NullValue
	}
}

func builtinEncodeUTF8(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "encodeUTF8")
	if err != nil {
		return lang.Value{}, err
	}
	bytes := []byte(s)
	vals := make([]lang.Value, len(bytes))
	for i, b := range bytes {
		vals[i] = lang.NumberValue(float64(b))
	}
	return newArrayOfValues(ev.Heap, vals), nil
}

func builtinDecodeUTF8(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	av, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	arr, err := requireArray(ev, av, "decodeUTF8")
	if err != nil {
		return lang.Value{}, err
	}
	vals, err := forceEach(ev, arr)
	if err != nil {
		return lang.Value{}, err
	}
	bytes := make([]byte, len(vals))
	for i, v := range vals {
		n, err := requireNumber(ev, v, "decodeUTF8")
		if err != nil {
			return lang.Value{}, err
		}
		bytes[i] = byte(int64(n))
	}
	if !utf8.Valid(bytes) {
		return lang.Value{}, ev.Fail(diagnostics.KindBadFormat, "decodeUTF8: invalid UTF-8 byte sequence")
	}
	return lang.StringValue(string(bytes)), nil
}

func builtinManifestJSONEx(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	indentV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	indent, err := requireString(ev, indentV, "manifestJsonEx")
	if err != nil {
		return lang.Value{}, err
	}
	text, err := manifest.JSON(ev, args[0], indent != "")
	if err != nil {
		return lang.Value{}, err
	}
	return lang.StringValue(text), nil
}
