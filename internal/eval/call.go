package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// CallFunction invokes fn with args to completion through its own
// nested Run loop and returns its result Value. Exported for package
// stdlib: a built-in like std.map or std.foldl takes a callback
// function value as an ordinary argument and must apply it once per
// element the same way a call expression would, rather than reaching
// into fn's body itself.
func (ev *Evaluator) CallFunction(fn heap.Ref[*lang.FuncData], args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	return ev.Run(&callState{fn: fn, args: args})
}

type callState struct {
	fn   heap.Ref[*lang.FuncData]
	args []heap.Ref[*lang.ThunkData]
}

func (s *callState) Step(ev *Evaluator) error {
	return ev.pushCall(s.fn, s.args, false)
}

// pushCall drives one function invocation: a Normal function gets a
// fresh environment binding its parameters to args (falling back to
// each parameter's default thunk, built fresh in that environment, for
// any parameter args doesn't supply) and has its body pushed as the
// next expression state; a BuiltIn function is handed to its registered
// BuiltInCtor; a Native function is out of this package's scope (the
// embedding host's callback drives it — see program.Callbacks) and is
// reported as such if no hook is installed.
func (ev *Evaluator) pushCall(fn heap.Ref[*lang.FuncData], args []heap.Ref[*lang.ThunkData], tailstrict bool) error {
	f := fn.Get()
	if len(args) > f.NumParams() {
		return ev.Fail(diagnostics.KindTooManyCallArgs, "too many arguments")
	}

	switch f.Kind {
	case lang.FuncNormal:
		return ev.pushNormalCall(fn, f, args)
	case lang.FuncBuiltIn:
		ctor, ok := ev.builtins[f.BuiltIn]
		if !ok {
			return ev.Fail(diagnostics.KindRuntime, "built-in not implemented")
		}
		full, err := ev.bindDefaults(fn, f, args)
		if err != nil {
			return err
		}
		return ev.PushState(ctor(full))
	default:
		if ev.NativeCaller == nil {
			return ev.Fail(diagnostics.KindRuntime, "native functions require a host callback, none installed")
		}
		full, err := ev.bindDefaults(fn, f, args)
		if err != nil {
			return err
		}
		return ev.PushState(&nativeCallState{name: f.NativeName, args: full})
	}
}

// nativeCallState forces every argument to a concrete Value (native
// functions cross into host Go code, which cannot itself force a thunk)
// and hands them to the installed NativeCaller.
type nativeCallState struct {
	name string
	args []heap.Ref[*lang.ThunkData]
}

func (s *nativeCallState) Step(ev *Evaluator) error {
	forced := make([]lang.Value, len(s.args))
	for i, a := range s.args {
		v, err := ev.ForceTopLevel(a)
		if err != nil {
			return err
		}
		forced[i] = v
	}
	v, err := ev.NativeCaller.NativeCall(s.name, forced)
	if err != nil {
		if _, ok := err.(*diagnostics.EvalError); ok {
			return err
		}
		return ev.Fail(diagnostics.KindNativeCallFailed, err.Error())
	}
	ev.PushValue(v)
	return nil
}

func (ev *Evaluator) pushNormalCall(fn heap.Ref[*lang.FuncData], f *lang.FuncData, args []heap.Ref[*lang.ThunkData]) error {
	full, err := ev.bindDefaults(fn, f, args)
	if err != nil {
		return err
	}
	env := heap.AllocView(ev.Heap, lang.NewThunkEnv())
	vars := make(map[*lang.Str]heap.Ref[*lang.ThunkData], len(full))
	for i, name := range f.Params.Order {
		vars[name] = full[i]
	}
	env.Value().Init(f.Env, vars)
	err = ev.PushState(&exprState{expr: f.Body, env: env.Ref()})
	env.Release()
	return err
}

// bindDefaults extends a positional argument list out to the function's
// full parameter count, building a fresh pending-expr thunk (closed over
// a temporary env with the positional args already bound, so a default
// expression can reference earlier parameters) for any trailing
// parameter args didn't supply and that declares one; a missing
// parameter with no default is a call-arity error.
func (ev *Evaluator) bindDefaults(fn heap.Ref[*lang.FuncData], f *lang.FuncData, args []heap.Ref[*lang.ThunkData]) ([]heap.Ref[*lang.ThunkData], error) {
	if len(args) == f.NumParams() {
		return args, nil
	}
	full := make([]heap.Ref[*lang.ThunkData], f.NumParams())
	copy(full, args)

	defaultsEnv := heap.AllocView(ev.Heap, lang.NewThunkEnv())
	vars := make(map[*lang.Str]heap.Ref[*lang.ThunkData], len(full))
	for i := range args {
		vars[f.Params.Order[i]] = args[i]
	}
	defaultsEnv.Value().Init(f.Env, vars)

	for i := len(args); i < f.NumParams(); i++ {
		name := f.Params.Order[i]
		param := f.Params.ByName[name]
		if param.Default == nil {
			defaultsEnv.Release()
			return nil, ev.Fail(diagnostics.KindCallParamNotBound, "missing argument: "+name.Value())
		}
		full[i] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(param.Default, defaultsEnv.Ref()))
		vars[name] = full[i]
	}
	defaultsEnv.Release()
	return full, nil
}
