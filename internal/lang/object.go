package lang

import (
	"sort"

	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/span"
)

// ObjectData is a Jsonnet object: one "self" core plus zero or more
// "super" cores contributed by earlier `+` operands, most-recently-added
// first. Field lookup and super resolution both walk this core list in
// order starting from a given index, which is how `super.f` simply means
// "look up f starting one core further along."
type ObjectData struct {
	SelfCore      ObjectCore
	SuperCores    []ObjectCore
	fieldsOrder   []*Str
	fieldsOrderOK bool
	assertsChecked bool
}

// NewSimpleObject builds a single-core object with no locals, base
// environment, or asserts — used for values std functions synthesize
// directly (e.g. the std object itself and std.parseJson's objects).
func NewSimpleObject(fields map[*Str]*ObjectField) *ObjectData {
	return &ObjectData{
		SelfCore: ObjectCore{
			Fields: fields,
		},
		assertsChecked: true,
	}
}

// Trace visits both core lists.
func (o *ObjectData) Trace(ctx *heap.TraceCtx) {
	o.SelfCore.Trace(ctx)
	for i := range o.SuperCores {
		o.SuperCores[i].Trace(ctx)
	}
}

// Core returns the core at position coreI (0 is self, 1.. are supers).
func (o *ObjectData) Core(coreI int) *ObjectCore {
	if coreI == 0 {
		return &o.SelfCore
	}
	return &o.SuperCores[coreI-1]
}

// NumCores reports how many cores (self plus supers) this object has.
func (o *ObjectData) NumCores() int { return 1 + len(o.SuperCores) }

// FindField searches cores starting at coreI (inclusive) for name,
// returning the owning core index and the field. It implements both
// plain field lookup (coreI == 0) and `super.f` lookup (coreI == the
// environment's core index + 1).
func (o *ObjectData) FindField(coreI int, name *Str) (int, *ObjectField, bool) {
	if coreI == 0 {
		if f, ok := o.SelfCore.Fields[name]; ok {
			return 0, f, true
		}
		coreI = 1
	}
	for i := coreI - 1; i < len(o.SuperCores); i++ {
		if f, ok := o.SuperCores[i].Fields[name]; ok {
			return i + 1, f, true
		}
	}
	return 0, nil, false
}

// HasField reports whether name resolves starting from coreI.
func (o *ObjectData) HasField(coreI int, name *Str) bool {
	_, _, ok := o.FindField(coreI, name)
	return ok
}

// FieldsOrder returns every distinct field name across all cores, sorted
// lexicographically, memoizing the result since field sets never change
// after extension.
func (o *ObjectData) FieldsOrder() []*Str {
	if o.fieldsOrderOK {
		return o.fieldsOrder
	}
	seen := make(map[*Str]struct{})
	var names []*Str
	add := func(core *ObjectCore) {
		for n := range core.Fields {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	add(&o.SelfCore)
	for i := range o.SuperCores {
		add(&o.SuperCores[i])
	}
	sort.Slice(names, func(i, j int) bool { return interner.Less(names[i], names[j]) })
	o.fieldsOrder = names
	o.fieldsOrderOK = true
	return names
}

// FieldIsVisible reports whether name manifests by default: the nearest
// core that declares it (self first, then supers in order) decides,
// unless it leaves visibility at Default, in which case the search
// continues to the next core that mentions the name at all.
func (o *ObjectData) FieldIsVisible(name *Str) bool {
	check := func(core *ObjectCore) (visible bool, decided bool) {
		f, ok := core.Fields[name]
		if !ok {
			return false, false
		}
		switch f.Visibility {
		case VisibilityHidden:
			return false, true
		case VisibilityForceVisible:
			return true, true
		default:
			return false, false
		}
	}
	if v, decided := check(&o.SelfCore); decided {
		return v
	}
	for i := range o.SuperCores {
		if v, decided := check(&o.SuperCores[i]); decided {
			return v
		}
	}
	return true
}

// AssertsChecked reports whether this object's asserts have already run,
// and marks them as run; asserts fire exactly once per object regardless
// of how many times its fields are accessed.
func (o *ObjectData) AssertsChecked() bool {
	already := o.assertsChecked
	o.assertsChecked = true
	return already
}

// ObjectCore is one layer (self or one super) of an object's definition:
// its locals, the asserts and fields declared at that layer, and the
// lazily-built environment those field/assert bodies close over.
type ObjectCore struct {
	IsTop   bool
	Locals  []Bind
	BaseEnv heap.Ref[*ThunkEnv] // valid only before Env is built
	Env     heap.Ref[*ThunkEnv] // valid once built, see getObjectCoreEnv
	Fields  map[*Str]*ObjectField
	Asserts []ObjectAssert
}

// Trace visits the core's lazily built env, its base env, and its fields.
func (c *ObjectCore) Trace(ctx *heap.TraceCtx) {
	c.BaseEnv.Trace(ctx)
	c.Env.Trace(ctx)
	for _, f := range c.Fields {
		f.Trace(ctx)
	}
}

// ObjectField is one field slot: its visibility, the expression that
// produces its value (nil once cloned from a super core whose thunk was
// already forced independently of any expression), and a lazily forced
// thunk cache.
type ObjectField struct {
	BaseEnv    heap.Ref[*ThunkEnv] // valid if the field closes over a different env than its core's
	Visibility Visibility
	Expr       *Expr // nil if Thunk is pre-populated instead
	Thunk      heap.Ref[*ThunkData]
}

// Trace visits the field's base env and, once forced, its thunk.
func (f *ObjectField) Trace(ctx *heap.TraceCtx) {
	f.BaseEnv.Trace(ctx)
	if f.Thunk.Valid() {
		f.Thunk.Trace(ctx)
	}
}

// ObjectAssert is one `assert cond : msg` attached to an object core.
type ObjectAssert struct {
	Cond     *Expr
	CondSpan span.ID
	Msg      *Expr // nil if absent
}

// CloneCoreForExtend deep-copies core the way `lhs + rhs` must: every
// field whose value came from an expression gets a fresh, unforced thunk
// slot (the extended object's copy of that field must be evaluated in
// the extended object's own self/super context, not the original's),
// while a field whose thunk was already forced independently (no
// backing expression) can share that cached thunk directly.
func CloneCoreForExtend(core *ObjectCore) ObjectCore {
	newFields := make(map[*Str]*ObjectField, len(core.Fields))
	for name, f := range core.Fields {
		nf := &ObjectField{
			BaseEnv:    f.BaseEnv,
			Visibility: f.Visibility,
			Expr:       f.Expr,
		}
		if f.Expr == nil {
			nf.Thunk = f.Thunk
		}
		newFields[name] = nf
	}
	newAsserts := make([]ObjectAssert, len(core.Asserts))
	copy(newAsserts, core.Asserts)
	return ObjectCore{
		IsTop:   core.IsTop,
		Locals:  core.Locals,
		BaseEnv: core.BaseEnv,
		Fields:  newFields,
		Asserts: newAsserts,
	}
}

// ExtendObject builds `lhs + rhs`'s combined object: rhs's core becomes
// the new self (so its field lookups and overrides win), and lhs's full
// core chain (self then supers) is appended as additional super cores
// behind rhs's own former supers — exactly the chain order `super`
// inside rhs must walk to eventually reach lhs's fields.
func ExtendObject(lhs, rhs *ObjectData) *ObjectData {
	selfCore := CloneCoreForExtend(&rhs.SelfCore)

	superCores := make([]ObjectCore, 0, len(lhs.SuperCores)+len(rhs.SuperCores)+1)
	for i := range rhs.SuperCores {
		superCores = append(superCores, CloneCoreForExtend(&rhs.SuperCores[i]))
	}
	superCores = append(superCores, CloneCoreForExtend(&lhs.SelfCore))
	for i := range lhs.SuperCores {
		superCores = append(superCores, CloneCoreForExtend(&lhs.SuperCores[i]))
	}

	return &ObjectData{
		SelfCore:   selfCore,
		SuperCores: superCores,
	}
}
