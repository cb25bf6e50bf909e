package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// coerceToStringState runs inner, then rewrites the value it produces
// into a string value via the same conversion std.toString and string
// `+`-coercion use. It is the trampoline-friendly equivalent of the
// reference implementation's CoerceToString followed by
// CoerceToStringValue.
type coerceToStringState struct {
	inner State
}

func (s *coerceToStringState) Step(ev *Evaluator) error {
	if err := ev.PushState(toStringValueState{}); err != nil {
		return err
	}
	return ev.PushState(s.inner)
}

// toStringValueState pops the top value and pushes its string rendering.
// Scalars convert directly; arrays and objects are rendered as compact
// JSON by jsonBuildState, whose walk recurses through Go call frames, so
// the host stack depth grows with the value's nesting.
type toStringValueState struct{}

func (toStringValueState) Step(ev *Evaluator) error {
	v := ev.PopValue()
	if v.Kind == lang.ValueString {
		ev.PushValue(v)
		return nil
	}
	if !v.MightNeedDeep() {
		ev.PushValue(lang.StringValue(scalarToString(v)))
		return nil
	}
	return ev.PushState(&jsonBuildState{collect: true, value: v})
}

func scalarToString(v lang.Value) string {
	switch v.Kind {
	case lang.ValueNull:
		return "null"
	case lang.ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case lang.ValueNumber:
		return lang.FormatNumber(v.Number)
	case lang.ValueString:
		return v.String
	default:
		panic("eval: scalarToString on a non-scalar value")
	}
}

// jsonBuildState renders value as compact JSON text onto a string
// accumulator in a single Step, via appendJSONValue, which recurses
// through Go call frames once per nesting level and forces each nested
// thunk through ForceTopLevel.
// When collect is true the finished text is pushed as a Value; this lets
// toStringValueState reuse it for string coercion instead of duplicating
// the walk.
type jsonBuildState struct {
	collect bool
	value   lang.Value
	buf     *[]byte
}

func (s *jsonBuildState) Step(ev *Evaluator) error {
	buf := s.buf
	if buf == nil {
		b := make([]byte, 0, 64)
		buf = &b
	}
	if err := appendJSONValue(ev, buf, s.value); err != nil {
		return err
	}
	if s.collect {
		ev.PushValue(lang.StringValue(string(*buf)))
	}
	return nil
}

// appendJSONValue renders value fully before returning: arrays/objects
// recurse through Go call frames, one per level of the data's own
// nesting. It serves string coercion (toStringValueState and the string
// operand of `+`); package manifest's manifestation path instead walks
// nested values by pushing continuation states (PushDoThunk).
func appendJSONValue(ev *Evaluator, buf *[]byte, v lang.Value) error {
	switch v.Kind {
	case lang.ValueNull:
		*buf = append(*buf, "null"...)
	case lang.ValueBool:
		*buf = append(*buf, scalarToString(v)...)
	case lang.ValueNumber:
		*buf = append(*buf, lang.FormatNumber(v.Number)...)
	case lang.ValueString:
		appendJSONString(buf, v.String)
	case lang.ValueArray:
		arr := v.Array.Get()
		*buf = append(*buf, '[')
		for i, item := range arr.Items {
			if i > 0 {
				*buf = append(*buf, ',', ' ')
			}
			iv, err := ev.ForceTopLevel(item)
			if err != nil {
				return err
			}
			if err := appendJSONValue(ev, buf, iv); err != nil {
				return err
			}
		}
		*buf = append(*buf, ']')
	case lang.ValueObject:
		obj := v.Object.Get()
		*buf = append(*buf, '{')
		first := true
		for _, name := range obj.FieldsOrder() {
			if !obj.FieldIsVisible(name) {
				continue
			}
			if !first {
				*buf = append(*buf, ',', ' ')
			}
			first = false
			appendJSONString(buf, name.Value())
			*buf = append(*buf, ':', ' ')
			coreI, field, _ := obj.FindField(0, name)
			thunk := objectFieldThunk(ev, v.Object, coreI, name, field)
			fv, err := ev.ForceTopLevel(thunk)
			if err != nil {
				return err
			}
			if err := appendJSONValue(ev, buf, fv); err != nil {
				return err
			}
		}
		*buf = append(*buf, '}')
	default:
		return ev.Fail(diagnostics.KindTypeMismatch, "cannot render a function as a string")
	}
	return nil
}

func appendJSONString(buf *[]byte, s string) {
	*buf = append(*buf, '"')
	for _, r := range s {
		switch r {
		case '"':
			*buf = append(*buf, `\"`...)
		case '\\':
			*buf = append(*buf, `\\`...)
		case '\n':
			*buf = append(*buf, `\n`...)
		case '\t':
			*buf = append(*buf, `\t`...)
		case '\r':
			*buf = append(*buf, `\r`...)
		default:
			if r < 0x20 {
				*buf = append(*buf, []byte(escapeControl(r))...)
			} else {
				*buf = append(*buf, string(r)...)
			}
		}
	}
	*buf = append(*buf, '"')
}

func escapeControl(r rune) string {
	const hex = "0123456789abcdef"
	return string([]byte{'\\', 'u', '0', '0', hex[(r>>4)&0xf], hex[r&0xf]})
}

// objectFieldThunk resolves and, if necessary, lazily builds the thunk
// backing field, mirroring Program::get_object_field_thunk: a field
// whose expression hasn't been forced yet gets a fresh pending thunk
// closed over its owning core's environment (or its own BaseEnv, if the
// field was bound to a different one than its core's, as happens after
// object extension).
func objectFieldThunk(ev *Evaluator, object heap.Ref[*lang.ObjectData], coreI int, name *lang.Str, field *lang.ObjectField) heap.Ref[*lang.ThunkData] {
	if field.Thunk.Valid() {
		return field.Thunk
	}
	var env heap.Ref[*lang.ThunkEnv]
	if field.BaseEnv.Valid() {
		env = initObjectEnv(ev, object, coreI, field.BaseEnv)
	} else {
		env = getObjectCoreEnv(ev, object, coreI)
	}
	field.Thunk = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(field.Expr, env))
	return field.Thunk
}

// getObjectCoreEnv returns (building and caching it on first use) the
// environment a given object core's field/assert bodies resolve self,
// super, and locals against.
func getObjectCoreEnv(ev *Evaluator, object heap.Ref[*lang.ObjectData], coreI int) heap.Ref[*lang.ThunkEnv] {
	core := object.Get().Core(coreI)
	if core.Env.Valid() {
		return core.Env
	}
	core.Env = initObjectEnv(ev, object, coreI, core.BaseEnv)
	return core.Env
}

// initObjectEnv builds a fresh environment for object's core at coreI,
// rooted at baseEnv, binding every local the core declares and setting
// self/top to object (or, for a non-top core, inheriting top from
// baseEnv).
func initObjectEnv(ev *Evaluator, object heap.Ref[*lang.ObjectData], coreI int, baseEnv heap.Ref[*lang.ThunkEnv]) heap.Ref[*lang.ThunkEnv] {
	core := object.Get().Core(coreI)
	env := heap.AllocView(ev.Heap, lang.NewThunkEnv())
	vars := make(map[*lang.Str]heap.Ref[*lang.ThunkData], len(core.Locals))
	for _, b := range core.Locals {
		vars[b.Name] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(b.Value, env.Ref()))
	}
	env.Value().Init(baseEnv, vars)
	top := object
	if !core.IsTop {
		if bv := baseEnv; bv.Valid() {
			top = bv.Get().TopObject()
		}
	}
	env.Value().SetObject(object, coreI, top)
	ref := env.Ref()
	env.Release()
	return ref
}
