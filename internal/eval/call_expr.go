package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// stepCall evaluates the callee, then resolves positional and named
// arguments against its parameter list (arguments themselves stay lazy:
// each becomes its own pending-expr thunk, not forced here) before
// handing the fully-bound argument list to pushCall.
func (s *exprState) stepCall(ev *Evaluator) error {
	e := s.expr
	if err := ev.PushState(&callArgsState{call: e, env: s.env}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: e.Callee, env: s.env})
}

type callArgsState struct {
	call *lang.Expr
	env  heap.Ref[*lang.ThunkEnv]
}

func (s *callArgsState) Step(ev *Evaluator) error {
	fnVal := ev.PopValue()
	if fnVal.Kind != lang.ValueFunction {
		return ev.Fail(diagnostics.KindCalleeIsNotFunction, "call target is not a function")
	}
	f := fnVal.Function.Get()
	if len(s.call.PositionalArgs) > f.NumParams() {
		return ev.Fail(diagnostics.KindTooManyCallArgs, "too many arguments")
	}

	full := make([]heap.Ref[*lang.ThunkData], f.NumParams())
	set := make([]bool, f.NumParams())
	for i, argExpr := range s.call.PositionalArgs {
		full[i] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(argExpr, s.env))
		set[i] = true
	}
	for _, na := range s.call.NamedArgs {
		param, ok := f.Params.ByName[na.Name]
		if !ok {
			return ev.Fail(diagnostics.KindUnknownCallParam, "unknown parameter: "+na.Name.Value())
		}
		if set[param.Index] {
			return ev.Fail(diagnostics.KindRepeatedCallParam, "duplicate argument: "+na.Name.Value())
		}
		full[param.Index] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(na.Value, s.env))
		set[param.Index] = true
	}

	defaultsEnv := heap.AllocView(ev.Heap, lang.NewThunkEnv())
	vars := make(map[*lang.Str]heap.Ref[*lang.ThunkData], f.NumParams())
	for i, ok := range set {
		if ok {
			vars[f.Params.Order[i]] = full[i]
		}
	}
	defaultsEnv.Value().Init(f.Env, vars)
	for i, ok := range set {
		if ok {
			continue
		}
		name := f.Params.Order[i]
		param := f.Params.ByName[name]
		if param.Default == nil {
			defaultsEnv.Release()
			return ev.Fail(diagnostics.KindCallParamNotBound, "missing argument: "+name.Value())
		}
		full[i] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(param.Default, defaultsEnv.Ref()))
		vars[name] = full[i]
	}
	defaultsEnv.Release()

	return ev.pushCall(fnVal.Function, full, s.call.Tailstrict)
}
