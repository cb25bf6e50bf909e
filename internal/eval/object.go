package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// stepObject builds an object literal. Fixed-name fields are installed
// directly; any `[e]: ...` dynamic-name fields must be forced to learn
// their names before they can be installed, and — matching the reference
// implementation's ordering — that forcing happens against the object's
// own per-core environment (so a dynamic name may itself reference self,
// super, or the object's locals) rather than the enclosing environment.
func (s *exprState) stepObject(ev *Evaluator) error {
	e := s.expr
	core := lang.ObjectCore{
		IsTop:   e.IsTop,
		Locals:  e.Locals,
		BaseEnv: s.env,
		Fields:  make(map[*lang.Str]*lang.ObjectField, len(e.Fields)),
	}
	for _, a := range e.Asserts {
		core.Asserts = append(core.Asserts, lang.ObjectAssert{Cond: a.Cond, CondSpan: a.CondSpan, Msg: a.Msg})
	}
	var dynFields []lang.FieldDef
	for _, f := range e.Fields {
		if f.Name.Fixed != nil {
			if _, dup := core.Fields[f.Name.Fixed]; dup {
				return ev.Fail(diagnostics.KindRepeatedFieldName, "repeated field name: "+f.Name.Fixed.Value())
			}
			core.Fields[f.Name.Fixed] = &lang.ObjectField{
				Visibility: f.Visibility,
				Expr:       wrapPlusField(f.Name.Fixed, f),
			}
		} else {
			dynFields = append(dynFields, f)
		}
	}

	view := heap.AllocView(ev.Heap, &lang.ObjectData{SelfCore: core})
	object := view.Ref()
	view.Release()

	if len(dynFields) == 0 {
		ev.PushValue(lang.ObjectValue(object))
		return nil
	}
	env := getObjectCoreEnv(ev, object, 0)
	return ev.pushDynFields(object, env, dynFields, 0)
}

// wrapPlusField desugars a `+:` field's value into `if name in super then
// super.name + value else value`, reusing the ordinary InSuper/SuperField/
// Binary states instead of inventing a dedicated thunk kind.
func wrapPlusField(name *lang.Str, f lang.FieldDef) *lang.Expr {
	if !f.Plus {
		return f.Value
	}
	return &lang.Expr{
		Kind: lang.ExprIf,
		Cond: &lang.Expr{Kind: lang.ExprInSuper, Lhs: &lang.Expr{Kind: lang.ExprString, StringVal: name.Value()}},
		Then: &lang.Expr{
			Kind:  lang.ExprBinary,
			BinOp: lang.BinaryAdd,
			Lhs:   &lang.Expr{Kind: lang.ExprSuperField, FieldNm: name},
			Rhs:   f.Value,
		},
		Else: f.Value,
	}
}

// pushDynFields resolves fields[idx:] one at a time, each against env,
// installing the resolved field into object's self core before moving on
// to the next; once exhausted it pushes the finished object value.
func (ev *Evaluator) pushDynFields(object heap.Ref[*lang.ObjectData], env heap.Ref[*lang.ThunkEnv], fields []lang.FieldDef, idx int) error {
	if idx == len(fields) {
		ev.PushValue(lang.ObjectValue(object))
		return nil
	}
	f := fields[idx]
	if err := ev.PushState(&objectDynFieldState{object: object, env: env, fields: fields, idx: idx}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: f.Name.Dyn, env: env})
}

type objectDynFieldState struct {
	object heap.Ref[*lang.ObjectData]
	env    heap.Ref[*lang.ThunkEnv]
	fields []lang.FieldDef
	idx    int
}

func (s *objectDynFieldState) Step(ev *Evaluator) error {
	v := ev.PopValue()
	if v.Kind != lang.ValueString {
		return ev.Fail(diagnostics.KindFieldNameIsNotString, "field name must be a string")
	}
	f := s.fields[s.idx]
	name := ev.Interner.Intern(v.String)
	if _, dup := s.object.Get().SelfCore.Fields[name]; dup {
		return ev.Fail(diagnostics.KindRepeatedFieldName, "repeated field name: "+name.Value())
	}
	s.object.Get().SelfCore.Fields[name] = &lang.ObjectField{
		Visibility: f.Visibility,
		Expr:       wrapPlusField(name, f),
	}
	return ev.pushDynFields(s.object, s.env, s.fields, s.idx+1)
}

// stepObjectComp evaluates an object comprehension: the for/if clauses
// produce one environment per surviving binding tuple, optionally
// extended with the comprehension's own local bindings, and each such
// environment backs exactly one resulting field — closed over its own
// per-iteration environment via ObjectField.BaseEnv so its value (and,
// unlike a plain object's fields, not its name) may still reference self.
func (s *exprState) stepObjectComp(ev *Evaluator) error {
	e := s.expr
	envs, err := ev.evalCompSpecEnvs(e.CompSpec, s.env)
	if err != nil {
		return err
	}
	fieldEnvs := make([]heap.Ref[*lang.ThunkEnv], len(envs))
	for i, env := range envs {
		if len(e.Locals) == 0 {
			fieldEnvs[i] = env
			continue
		}
		child := heap.AllocView(ev.Heap, lang.NewThunkEnv())
		vars := make(map[*lang.Str]heap.Ref[*lang.ThunkData], len(e.Locals))
		for _, b := range e.Locals {
			vars[b.Name] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(b.Value, child.Ref()))
		}
		child.Value().Init(env, vars)
		fieldEnvs[i] = child.Ref()
		child.Release()
	}

	core := lang.ObjectCore{IsTop: e.IsTop, BaseEnv: s.env, Fields: make(map[*lang.Str]*lang.ObjectField, len(fieldEnvs))}
	view := heap.AllocView(ev.Heap, &lang.ObjectData{SelfCore: core})
	object := view.Ref()
	view.Release()

	return ev.pushObjectCompFields(object, e.FieldName.Value(), e.FieldValue, fieldEnvs, 0)
}

func (ev *Evaluator) pushObjectCompFields(object heap.Ref[*lang.ObjectData], nameExpr, valueExpr *lang.Expr, envs []heap.Ref[*lang.ThunkEnv], idx int) error {
	if idx == len(envs) {
		ev.PushValue(lang.ObjectValue(object))
		return nil
	}
	env := envs[idx]
	if err := ev.PushState(&objectCompFieldState{
		object: object, nameExpr: nameExpr, valueExpr: valueExpr, envs: envs, idx: idx, fieldEnv: env,
	}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: nameExpr, env: env})
}

type objectCompFieldState struct {
	object    heap.Ref[*lang.ObjectData]
	nameExpr  *lang.Expr
	valueExpr *lang.Expr
	envs      []heap.Ref[*lang.ThunkEnv]
	idx       int
	fieldEnv  heap.Ref[*lang.ThunkEnv]
}

func (s *objectCompFieldState) Step(ev *Evaluator) error {
	v := ev.PopValue()
	if v.Kind != lang.ValueString {
		return ev.Fail(diagnostics.KindFieldNameIsNotString, "object comprehension field name must be a string")
	}
	name := ev.Interner.Intern(v.String)
	s.object.Get().SelfCore.Fields[name] = &lang.ObjectField{
		BaseEnv:    s.fieldEnv,
		Visibility: lang.VisibilityDefault,
		Expr:       s.valueExpr,
	}
	return ev.pushObjectCompFields(s.object, s.nameExpr, s.valueExpr, s.envs, s.idx+1)
}

// pushObjectAsserts schedules every assert declared across object's
// cores, starting at coreI, to run in order; it is a no-op once coreI
// runs past the last core. Call it only the first time a given object's
// fields are touched (see AssertsChecked), since asserts fire exactly
// once per object regardless of how many fields are later accessed.
func (ev *Evaluator) pushObjectAsserts(object heap.Ref[*lang.ObjectData], coreI int) error {
	if coreI >= object.Get().NumCores() {
		return nil
	}
	core := object.Get().Core(coreI)
	return ev.pushCoreAsserts(object, coreI, core.Asserts, 0)
}

func (ev *Evaluator) pushCoreAsserts(object heap.Ref[*lang.ObjectData], coreI int, asserts []lang.ObjectAssert, idx int) error {
	if idx >= len(asserts) {
		return ev.pushObjectAsserts(object, coreI+1)
	}
	a := asserts[idx]
	env := getObjectCoreEnv(ev, object, coreI)
	if err := ev.PushState(&objectAssertCheckState{
		object: object, coreI: coreI, asserts: asserts, idx: idx, env: env, assert: a,
	}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: a.Cond, env: env})
}

type objectAssertCheckState struct {
	object  heap.Ref[*lang.ObjectData]
	coreI   int
	asserts []lang.ObjectAssert
	idx     int
	env     heap.Ref[*lang.ThunkEnv]
	assert  lang.ObjectAssert
}

func (s *objectAssertCheckState) Step(ev *Evaluator) error {
	cond := ev.PopValue()
	if cond.Kind != lang.ValueBool {
		return ev.Fail(diagnostics.KindTypeMismatch, "object assert condition must be a boolean")
	}
	if !cond.Bool {
		if s.assert.Msg != nil {
			if err := ev.PushState(&objectAssertFailState{}); err != nil {
				return err
			}
			return ev.PushState(&coerceToStringState{inner: &exprState{expr: s.assert.Msg, env: s.env}})
		}
		return ev.Fail(diagnostics.KindAssertFailed, "object assertion failed")
	}
	return ev.pushCoreAsserts(s.object, s.coreI, s.asserts, s.idx+1)
}

type objectAssertFailState struct{}

func (objectAssertFailState) Step(ev *Evaluator) error {
	msg := ev.PopValue()
	return ev.Fail(diagnostics.KindAssertFailed, msg.String)
}
