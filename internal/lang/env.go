package lang

import "jsonnetcore/internal/heap"

// ThunkEnv is a lexical scope: a chain of variable bindings plus, inside
// an object's field/assert bodies, the self/super/top object context
// those bodies resolve against. Environments are set once, then
// immutable — the OnceCell-style guard in the reference implementation is
// modeled here by simply requiring Init be called exactly once before any
// lookup.
type ThunkEnv struct {
	initialized bool
	parent      heap.Ref[*ThunkEnv]
	vars        map[*Str]heap.Ref[*ThunkData]
	hasObject   bool
	object      heap.Ref[*ObjectData]
	coreIndex   int
	top         heap.Ref[*ObjectData]
}

// NewThunkEnv returns an uninitialized environment; call Init before use.
func NewThunkEnv() *ThunkEnv {
	return &ThunkEnv{}
}

// Init sets the environment's parent (if any) and variable bindings. The
// object context, if present, is inherited from parent until SetObject
// overrides it, mirroring how a nested local or comprehension body stays
// inside whichever object's self/super it was evaluated under.
func (e *ThunkEnv) Init(parent heap.Ref[*ThunkEnv], vars map[*Str]heap.Ref[*ThunkData]) {
	if e.initialized {
		panic("lang: env already initialized")
	}
	e.initialized = true
	e.parent = parent.Retain()
	e.vars = vars
	for _, v := range vars {
		v.Retain()
	}
	if parent.Valid() {
		if p := parent.Get(); p.hasObject {
			e.hasObject = true
			e.object = p.object.Retain()
			e.coreIndex = p.coreIndex
			e.top = p.top.Retain()
		}
	}
}

// SetObject overrides the environment's self/super context, used when
// initializing a field or assert body's environment for a specific
// object core.
func (e *ThunkEnv) SetObject(object heap.Ref[*ObjectData], coreIndex int, top heap.Ref[*ObjectData]) {
	e.hasObject = true
	e.object = object.Retain()
	e.coreIndex = coreIndex
	e.top = top.Retain()
}

// GetVar resolves name by walking this environment, then its parent
// chain. It panics if the variable isn't found, since unresolved
// variables are rejected at lowering time and never reach evaluation.
func (e *ThunkEnv) GetVar(name *Str) heap.Ref[*ThunkData] {
	env := e
	for {
		if t, ok := env.vars[name]; ok {
			return t
		}
		if !env.parent.Valid() {
			panic("lang: variable not found: " + name.Value())
		}
		env = env.parent.Get()
	}
}

// Object returns the self object and core index this environment's
// field/assert bodies resolve self/super against.
func (e *ThunkEnv) Object() (heap.Ref[*ObjectData], int) {
	if !e.hasObject {
		panic("lang: no object context")
	}
	return e.object, e.coreIndex
}

// TopObject returns the outermost enclosing object, the target of `$`.
func (e *ThunkEnv) TopObject() heap.Ref[*ObjectData] {
	if !e.hasObject {
		panic("lang: no object context")
	}
	return e.top
}

// HasObject reports whether self/$ resolve to anything in this environment.
func (e *ThunkEnv) HasObject() bool { return e.hasObject }

// Trace visits the parent chain, every bound variable, and the object
// context.
func (e *ThunkEnv) Trace(ctx *heap.TraceCtx) {
	e.parent.Trace(ctx)
	for _, v := range e.vars {
		v.Trace(ctx)
	}
	if e.hasObject {
		e.object.Trace(ctx)
		e.top.Trace(ctx)
	}
}
