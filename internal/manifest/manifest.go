// Package manifest renders evaluated values to JSON and YAML text.
//
// Unlike the shortcut appendJSONValue in package eval (used for string
// coercion, including the string operand of `+`, and recursing through
// Go calls once per nesting level), every renderer here walks arrays and objects by
// pushing continuation states onto the evaluator's own trampoline rather
// than recursing through Go function calls. A config value with millions
// of nested objects manifests in bounded host-stack depth; only the
// evaluator's MaxStack (reported as KindStackOverflow, never a host
// panic) limits how deep it can go.
package manifest

import (
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/lang"
)

// jsonIndentUnit is JSON manifestation's per-level indent, fixed by the spec
// at three spaces.
const jsonIndentUnit = "   "

func jsonIndent(depth int) string {
	buf := make([]byte, depth*len(jsonIndentUnit))
	for i := range buf {
		buf[i] = ' '
	}
	return string(buf)
}

func scalarText(v lang.Value) string {
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
		panic("manifest: scalarText on a non-scalar value")
	}
}

// visibleFieldNames returns object's fields in the lexicographic,
// visibility-filtered order every renderer must emit (spec §4.8/§8.5).
func visibleFieldNames(object *lang.ObjectData) []*lang.Str {
	all := object.FieldsOrder()
	names := make([]*lang.Str, 0, len(all))
	for _, n := range all {
		if object.FieldIsVisible(n) {
			names = append(names, n)
		}
	}
	return names
}

// finishState pushes buf's accumulated text as the trampoline's single
// remaining value, so the Run call driving a renderer can return it
// directly instead of needing a side channel.
type finishState struct {
	buf *[]byte
}

func (s *finishState) Step(ev *eval.Evaluator) error {
	ev.PushValue(lang.StringValue(string(*s.buf)))
	return nil
}
