package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func (s *exprState) stepField(ev *Evaluator) error {
	e := s.expr
	if err := ev.PushState(&fieldOfState{name: e.FieldNm}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: e.Object, env: s.env})
}

type fieldOfState struct {
	name *lang.Str
}

func (s *fieldOfState) Step(ev *Evaluator) error {
	v := ev.PopValue()
	if v.Kind != lang.ValueObject {
		return ev.Fail(diagnostics.KindFieldOfNonObject, "field access requires an object")
	}
	return ev.pushFieldAccess(v.Object, 0, s.name)
}

// lookupField finds name starting at coreI, failing if absent, and
// returns its (lazily built, per-object-context) thunk.
func lookupField(ev *Evaluator, object heap.Ref[*lang.ObjectData], coreI int, name *lang.Str) (heap.Ref[*lang.ThunkData], error) {
	foundCore, field, ok := object.Get().FindField(coreI, name)
	if !ok {
		return heap.Ref[*lang.ThunkData]{}, ev.Fail(diagnostics.KindUnknownObjectField, "field not present: "+name.Value())
	}
	return objectFieldThunk(ev, object, foundCore, name, field), nil
}

// LookupFieldThunk resolves name starting at coreI and returns its
// lazily-built thunk, without scheduling the object's asserts. Exported
// for package manifest, which must run a whole object's asserts exactly
// once (via PushObjectAsserts) before walking its fields, rather than
// once per field the way an ordinary field-access expression does.
func LookupFieldThunk(ev *Evaluator, object heap.Ref[*lang.ObjectData], coreI int, name *lang.Str) (heap.Ref[*lang.ThunkData], error) {
	return lookupField(ev, object, coreI, name)
}

// PushObjectAsserts schedules object's asserts (self then supers, in
// declaration order) to run as the next steps of the current trampoline,
// unless they have already run for this object. Exported for package
// manifest: manifestation counts as the "first field access" the spec
// requires to fire an object's asserts exactly once.
func (ev *Evaluator) PushObjectAsserts(object heap.Ref[*lang.ObjectData]) error {
	if object.Get().AssertsChecked() {
		return nil
	}
	return ev.pushObjectAsserts(object, 0)
}

// pushFieldAccess resolves name on object and pushes the states needed
// to produce its value, running the object's asserts first the one time
// they haven't already run for this object (AssertsChecked flips its own
// flag, so this check-and-schedule happens at most once per object).
func (ev *Evaluator) pushFieldAccess(object heap.Ref[*lang.ObjectData], coreI int, name *lang.Str) error {
	thunk, err := lookupField(ev, object, coreI, name)
	if err != nil {
		return err
	}
	if !object.Get().AssertsChecked() {
		if err := ev.PushState(&doThunkState{thunk: thunk}); err != nil {
			return err
		}
		return ev.pushObjectAsserts(object, 0)
	}
	return ev.PushState(&doThunkState{thunk: thunk})
}

// ForceObjectField runs asserts (once) and forces name's value on object,
// driving the whole thing through a fresh Run the way manifestation does,
// for hosts that need one field's value without walking the whole object.
func (ev *Evaluator) ForceObjectField(object heap.Ref[*lang.ObjectData], name *lang.Str) (lang.Value, error) {
	return ev.Run(&objectFieldEntryState{object: object, name: name})
}

type objectFieldEntryState struct {
	object heap.Ref[*lang.ObjectData]
	name   *lang.Str
}

func (s *objectFieldEntryState) Step(ev *Evaluator) error {
	thunk, err := lookupField(ev, s.object, 0, s.name)
	if err != nil {
		return err
	}
	if err := ev.PushState(&doThunkState{thunk: thunk}); err != nil {
		return err
	}
	return ev.PushObjectAsserts(s.object)
}

func (s *exprState) stepIndex(ev *Evaluator) error {
	e := s.expr
	if err := ev.PushState(&indexState{}); err != nil {
		return err
	}
	if err := ev.PushState(&exprState{expr: e.Index, env: s.env}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: e.Object, env: s.env})
}

type indexState struct{}

func (indexState) Step(ev *Evaluator) error {
	idx := ev.PopValue()
	v := ev.PopValue()
	switch v.Kind {
	case lang.ValueArray:
		if idx.Kind != lang.ValueNumber {
			return ev.Fail(diagnostics.KindTypeMismatch, "array index must be a number")
		}
		i, ok := lang.ToUSizeExact(idx.Number)
		arr := v.Array.Get()
		if !ok || i >= arr.Len() {
			return ev.Fail(diagnostics.KindRuntime, "array index out of bounds")
		}
		return ev.PushState(&doThunkState{thunk: arr.Items[i]})
	case lang.ValueObject:
		if idx.Kind != lang.ValueString {
			return ev.Fail(diagnostics.KindTypeMismatch, "object index must be a string")
		}
		name, ok := internedLookup(ev, idx.String)
		if !ok {
			return ev.Fail(diagnostics.KindUnknownObjectField, "field not present: "+idx.String)
		}
		if !v.Object.Get().HasField(0, name) {
			return ev.Fail(diagnostics.KindUnknownObjectField, "field not present: "+idx.String)
		}
		return ev.pushFieldAccess(v.Object, 0, name)
	default:
		return ev.Fail(diagnostics.KindTypeMismatch, "index requires an array or object")
	}
}

func internedLookup(ev *Evaluator, s string) (*lang.Str, bool) {
	return ev.Interner.Lookup(s)
}

func (s *exprState) stepSuperField(ev *Evaluator) error {
	obj, coreI := s.env.Get().Object()
	if coreI+1 >= obj.Get().NumCores() {
		return ev.Fail(diagnostics.KindSuperWithoutSuperObject, "no super object")
	}
	return ev.pushFieldAccess(obj, coreI+1, s.expr.FieldNm)
}

func (s *exprState) stepSuperIndex(ev *Evaluator) error {
	if err := ev.PushState(&superIndexState{env: s.env}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: s.expr.Index, env: s.env})
}

type superIndexState struct {
	env heap.Ref[*lang.ThunkEnv]
}

func (s *superIndexState) Step(ev *Evaluator) error {
	idx := ev.PopValue()
	if idx.Kind != lang.ValueString {
		return ev.Fail(diagnostics.KindTypeMismatch, "super index must be a string")
	}
	name, ok := internedLookup(ev, idx.String)
	obj, coreI := s.env.Get().Object()
	if coreI+1 >= obj.Get().NumCores() {
		return ev.Fail(diagnostics.KindSuperWithoutSuperObject, "no super object")
	}
	if !ok || !obj.Get().HasField(coreI+1, name) {
		return ev.Fail(diagnostics.KindUnknownObjectField, "field not present: "+idx.String)
	}
	return ev.pushFieldAccess(obj, coreI+1, name)
}

func (s *exprState) stepInSuper(ev *Evaluator) error {
	if err := ev.PushState(&inSuperState{env: s.env}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: s.expr.Lhs, env: s.env})
}

type inSuperState struct {
	env heap.Ref[*lang.ThunkEnv]
}

func (s *inSuperState) Step(ev *Evaluator) error {
	v := ev.PopValue()
	if v.Kind != lang.ValueString {
		return ev.Fail(diagnostics.KindTypeMismatch, "in super requires a string")
	}
	name, ok := internedLookup(ev, v.String)
	obj, coreI := s.env.Get().Object()
	ev.PushValue(lang.BoolValue(ok && obj.Get().HasField(coreI+1, name)))
	return nil
}

// stepStdField resolves a field access on the standard library object
// directly, the same shortcut the reference lowering pass takes for
// `std.foo` rather than routing it through an ordinary Var("std")
// lookup; package stdlib installs ev.StdObject once at startup.
func (s *exprState) stepStdField(ev *Evaluator) error {
	if !ev.StdObject.Valid() {
		return ev.Fail(diagnostics.KindRuntime, "standard library not installed")
	}
	thunk, err := lookupField(ev, ev.StdObject, 0, s.expr.FieldNm)
	if err != nil {
		return err
	}
	return ev.PushState(&doThunkState{thunk: thunk})
}
