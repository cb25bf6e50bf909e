package manifest

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// JSON renders thunk's forced value as JSON text: compact (one line, ", "
// and ": " separators) when multiline is false, three-space-indented
// pretty-printing when true. Both modes emit empty arrays/objects as
// "[]"/"{}" regardless of mode, and object fields in ascending
// lexicographic order of their visible names only (spec §4.8/§8.5).
func JSON(ev *eval.Evaluator, thunk heap.Ref[*lang.ThunkData], multiline bool) (string, error) {
	buf := make([]byte, 0, 256)
	v, err := ev.Run(&jsonEntryState{buf: &buf, multiline: multiline, thunk: thunk})
	if err != nil {
		return "", err
	}
	return v.String, nil
}

type jsonEntryState struct {
	buf       *[]byte
	multiline bool
	thunk     heap.Ref[*lang.ThunkData]
}

func (s *jsonEntryState) Step(ev *eval.Evaluator) error {
	if err := ev.PushState(&finishState{buf: s.buf}); err != nil {
		return err
	}
	if err := ev.PushState(&jsonRenderState{buf: s.buf, multiline: s.multiline, depth: 0}); err != nil {
		return err
	}
	return ev.PushDoThunk(s.thunk)
}

// jsonForceState forces thunk and renders the value it produces at depth,
// used for every nested element/field a container holds.
type jsonForceState struct {
	buf       *[]byte
	multiline bool
	depth     int
	thunk     heap.Ref[*lang.ThunkData]
}

func (s *jsonForceState) Step(ev *eval.Evaluator) error {
	if err := ev.PushState(&jsonRenderState{buf: s.buf, multiline: s.multiline, depth: s.depth}); err != nil {
		return err
	}
	return ev.PushDoThunk(s.thunk)
}

// jsonRenderState pops the value doThunkState just forced and appends its
// JSON text to buf, pushing further continuation states for a non-empty
// array or object instead of recursing in Go.
type jsonRenderState struct {
	buf       *[]byte
	multiline bool
	depth     int
}

func (s *jsonRenderState) Step(ev *eval.Evaluator) error {
	v := ev.PopValue()
	switch v.Kind {
	case lang.ValueFunction:
		return ev.Fail(diagnostics.KindManifestFunction, "cannot manifest a function")
	case lang.ValueArray:
		return s.renderArray(ev, v)
	case lang.ValueObject:
		return s.renderObject(ev, v)
	default:
		*s.buf = append(*s.buf, appendJSONScalar(v)...)
		return nil
	}
}

func appendJSONScalar(v lang.Value) []byte {
	if v.Kind == lang.ValueString {
		var b []byte
		appendJSONString(&b, v.String)
		return b
	}
	return []byte(scalarText(v))
}

func (s *jsonRenderState) renderArray(ev *eval.Evaluator, v lang.Value) error {
	arr := v.Array.Get()
	if arr.Len() == 0 {
		*s.buf = append(*s.buf, '[', ']')
		return nil
	}
	*s.buf = append(*s.buf, '[')
	if s.multiline {
		*s.buf = append(*s.buf, '\n')
		*s.buf = append(*s.buf, jsonIndent(s.depth+1)...)
	}
	if err := ev.PushState(&jsonArrayContState{buf: s.buf, multiline: s.multiline, depth: s.depth, items: arr.Items, idx: 0}); err != nil {
		return err
	}
	return ev.PushState(&jsonForceState{buf: s.buf, multiline: s.multiline, depth: s.depth + 1, thunk: arr.Items[0]})
}

type jsonArrayContState struct {
	buf       *[]byte
	multiline bool
	depth     int
	items     []heap.Ref[*lang.ThunkData]
	idx       int
}

func (s *jsonArrayContState) Step(ev *eval.Evaluator) error {
	next := s.idx + 1
	if next == len(s.items) {
		if s.multiline {
			*s.buf = append(*s.buf, '\n')
			*s.buf = append(*s.buf, jsonIndent(s.depth)...)
		}
		*s.buf = append(*s.buf, ']')
		return nil
	}
	*s.buf = append(*s.buf, ',')
	if s.multiline {
		*s.buf = append(*s.buf, '\n')
		*s.buf = append(*s.buf, jsonIndent(s.depth+1)...)
	} else {
		*s.buf = append(*s.buf, ' ')
	}
	if err := ev.PushState(&jsonArrayContState{buf: s.buf, multiline: s.multiline, depth: s.depth, items: s.items, idx: next}); err != nil {
		return err
	}
	return ev.PushState(&jsonForceState{buf: s.buf, multiline: s.multiline, depth: s.depth + 1, thunk: s.items[next]})
}

func (s *jsonRenderState) renderObject(ev *eval.Evaluator, v lang.Value) error {
	object := v.Object
	names := visibleFieldNames(object.Get())
	if err := ev.PushState(&jsonObjectFieldsState{buf: s.buf, multiline: s.multiline, depth: s.depth, object: object, names: names}); err != nil {
		return err
	}
	return ev.PushObjectAsserts(object)
}

type jsonObjectFieldsState struct {
	buf       *[]byte
	multiline bool
	depth     int
	object    heap.Ref[*lang.ObjectData]
	names     []*lang.Str
}

func (s *jsonObjectFieldsState) Step(ev *eval.Evaluator) error {
	if len(s.names) == 0 {
		*s.buf = append(*s.buf, '{', '}')
		return nil
	}
	*s.buf = append(*s.buf, '{')
	if s.multiline {
		*s.buf = append(*s.buf, '\n')
		*s.buf = append(*s.buf, jsonIndent(s.depth+1)...)
	}
	if err := ev.PushState(&jsonObjectContState{buf: s.buf, multiline: s.multiline, depth: s.depth, object: s.object, names: s.names, idx: 0}); err != nil {
		return err
	}
	return pushJSONField(ev, s.buf, s.multiline, s.depth+1, s.object, s.names[0])
}

type jsonObjectContState struct {
	buf       *[]byte
	multiline bool
	depth     int
	object    heap.Ref[*lang.ObjectData]
	names     []*lang.Str
	idx       int
}

func (s *jsonObjectContState) Step(ev *eval.Evaluator) error {
	next := s.idx + 1
	if next == len(s.names) {
		if s.multiline {
			*s.buf = append(*s.buf, '\n')
			*s.buf = append(*s.buf, jsonIndent(s.depth)...)
		}
		*s.buf = append(*s.buf, '}')
		return nil
	}
	*s.buf = append(*s.buf, ',')
	if s.multiline {
		*s.buf = append(*s.buf, '\n')
		*s.buf = append(*s.buf, jsonIndent(s.depth+1)...)
	} else {
		*s.buf = append(*s.buf, ' ')
	}
	if err := ev.PushState(&jsonObjectContState{buf: s.buf, multiline: s.multiline, depth: s.depth, object: s.object, names: s.names, idx: next}); err != nil {
		return err
	}
	return pushJSONField(ev, s.buf, s.multiline, s.depth+1, s.object, s.names[next])
}

// pushJSONField writes `"name": ` and schedules the field's value to
// render immediately after.
func pushJSONField(ev *eval.Evaluator, buf *[]byte, multiline bool, depth int, object heap.Ref[*lang.ObjectData], name *lang.Str) error {
	appendJSONString(buf, name.Value())
	*buf = append(*buf, ':', ' ')
	thunk, err := eval.LookupFieldThunk(ev, object, 0, name)
	if err != nil {
		return err
	}
	return ev.PushState(&jsonForceState{buf: buf, multiline: multiline, depth: depth, thunk: thunk})
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
				const hex = "0123456789abcdef"
				*buf = append(*buf, '\\', 'u', '0', '0', hex[(r>>4)&0xf], hex[r&0xf])
			} else {
				*buf = append(*buf, string(r)...)
			}
		}
	}
	*buf = append(*buf, '"')
}
