package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// exprState evaluates one IR node in env, pushing exactly the further
// states/values one reducing step implies — never recursing into a
// sub-expression via a Go call.
type exprState struct {
	expr *lang.Expr
	env  heap.Ref[*lang.ThunkEnv]
}

func (s *exprState) Step(ev *Evaluator) error {
	e := s.expr
	switch e.Kind {
	case lang.ExprNull:
		ev.PushValue(lang.NullValue)
		return nil
	case lang.ExprBool:
		ev.PushValue(lang.BoolValue(e.BoolVal))
		return nil
	case lang.ExprNumber:
		ev.PushValue(lang.NumberValue(e.NumberVal))
		return nil
	case lang.ExprString:
		ev.PushValue(lang.StringValue(e.StringVal))
		return nil
	case lang.ExprSelfObj:
		obj, _ := s.env.Get().Object()
		ev.PushValue(lang.ObjectValue(obj))
		return nil
	case lang.ExprTopObj:
		ev.PushValue(lang.ObjectValue(s.env.Get().TopObject()))
		return nil
	case lang.ExprIdentityFunc:
		ev.PushValue(lang.FunctionValue(ev.identityFunc()))
		return nil
	case lang.ExprVar:
		thunk := s.env.Get().GetVar(e.VarName)
		ev.PushTrace(e.VarSpan, "variable "+e.VarName.Value())
		return runAndPopTrace(ev, &doThunkState{thunk: thunk})
	case lang.ExprFunc:
		ev.PushValue(lang.FunctionValue(heap.Alloc[*lang.FuncData](ev.Heap, &lang.FuncData{
			Kind:   lang.FuncNormal,
			Params: e.Params,
			Body:   e.Body,
			Env:    s.env.Retain(),
		})))
		return nil
	case lang.ExprLocal:
		return s.stepLocal(ev)
	case lang.ExprIf:
		return s.stepIf(ev)
	case lang.ExprError:
		return s.stepError(ev)
	case lang.ExprAssert:
		return s.stepAssert(ev)
	case lang.ExprArray:
		return s.stepArray(ev)
	case lang.ExprArrayComp:
		return s.stepArrayComp(ev)
	case lang.ExprObject:
		return s.stepObject(ev)
	case lang.ExprObjectComp:
		return s.stepObjectComp(ev)
	case lang.ExprField:
		return s.stepField(ev)
	case lang.ExprIndex:
		return s.stepIndex(ev)
	case lang.ExprSuperField:
		return s.stepSuperField(ev)
	case lang.ExprSuperIndex:
		return s.stepSuperIndex(ev)
	case lang.ExprStdField:
		return s.stepStdField(ev)
	case lang.ExprCall:
		return s.stepCall(ev)
	case lang.ExprBinary:
		return s.stepBinary(ev)
	case lang.ExprUnary:
		return s.stepUnary(ev)
	case lang.ExprInSuper:
		return s.stepInSuper(ev)
	case lang.ExprImport, lang.ExprImportStr, lang.ExprImportBin:
		return s.stepImport(ev)
	default:
		return ev.Fail(diagnostics.KindRuntime, "unhandled expression kind")
	}
}

// runAndPopTrace pushes a completion state that pops the trace frame
// exprState.Step just pushed, then pushes inner — the trace entry stays
// live for exactly the duration inner (and anything it pushes) runs.
func runAndPopTrace(ev *Evaluator, inner State) error {
	if err := ev.PushState(popTraceState{}); err != nil {
		return err
	}
	return ev.PushState(inner)
}

type popTraceState struct{}

func (popTraceState) Step(ev *Evaluator) error {
	ev.PopTrace()
	return nil
}

func (s *exprState) stepLocal(ev *Evaluator) error {
	e := s.expr
	env := heap.AllocView(ev.Heap, lang.NewThunkEnv())
	vars := make(map[*lang.Str]heap.Ref[*lang.ThunkData], len(e.Bindings))
	for _, b := range e.Bindings {
		vars[b.Name] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(b.Value, env.Ref()))
	}
	env.Value().Init(s.env, vars)
	err := ev.PushState(&exprState{expr: e.Inner, env: env.Ref()})
	env.Release()
	return err
}

func (s *exprState) stepIf(ev *Evaluator) error {
	e := s.expr
	if err := ev.PushState(&ifBranchState{expr: s}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: e.Cond, env: s.env})
}

type ifBranchState struct {
	expr *exprState
}

func (s *ifBranchState) Step(ev *Evaluator) error {
	cond := ev.PopValue()
	if cond.Kind != lang.ValueBool {
		return ev.Fail(diagnostics.KindTypeMismatch, "if condition must be a boolean")
	}
	e := s.expr.expr
	if cond.Bool {
		return ev.PushState(&exprState{expr: e.Then, env: s.expr.env})
	}
	if e.Else != nil {
		return ev.PushState(&exprState{expr: e.Else, env: s.expr.env})
	}
	ev.PushValue(lang.NullValue)
	return nil
}

func (s *exprState) stepError(ev *Evaluator) error {
	if err := ev.PushState(&errorState{}); err != nil {
		return err
	}
	return ev.PushState(&coerceToStringState{inner: &exprState{expr: s.expr.Msg, env: s.env}})
}

type errorState struct{}

func (errorState) Step(ev *Evaluator) error {
	msg := ev.PopValue()
	return ev.Fail(diagnostics.KindExplicitError, msg.String)
}

func (s *exprState) stepAssert(ev *Evaluator) error {
	a := s.expr.AssertNode
	if err := ev.PushState(&assertCheckState{assert: a, env: s.env, inner: s.expr.Inner}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: a.Cond, env: s.env})
}

type assertCheckState struct {
	assert *lang.Assert
	env    heap.Ref[*lang.ThunkEnv]
	inner  *lang.Expr
}

func (s *assertCheckState) Step(ev *Evaluator) error {
	cond := ev.PopValue()
	if cond.Kind != lang.ValueBool {
		return ev.Fail(diagnostics.KindTypeMismatch, "assert condition must be a boolean")
	}
	if !cond.Bool {
		if s.assert.Msg != nil {
			if err := ev.PushState(&assertFailState{}); err != nil {
				return err
			}
			return ev.PushState(&coerceToStringState{inner: &exprState{expr: s.assert.Msg, env: s.env}})
		}
		return ev.Fail(diagnostics.KindAssertFailed, "assertion failed")
	}
	return ev.PushState(&exprState{expr: s.inner, env: s.env})
}

type assertFailState struct{}

func (assertFailState) Step(ev *Evaluator) error {
	msg := ev.PopValue()
	return ev.Fail(diagnostics.KindAssertFailed, msg.String)
}

func (s *exprState) stepImport(ev *Evaluator) error {
	if ev.Importer == nil {
		return ev.Fail(diagnostics.KindBadImport, "no importer installed")
	}
	e := s.expr
	switch e.Kind {
	case lang.ExprImport:
		v, err := ev.Importer.Import(e.Path, e.ImportSpan)
		if err != nil {
			return ev.Fail(diagnostics.KindBadImport, err.Error())
		}
		ev.PushValue(v)
		return nil
	case lang.ExprImportStr:
		v, err := ev.Importer.ImportStr(e.Path, e.ImportSpan)
		if err != nil {
			return ev.Fail(diagnostics.KindBadImport, err.Error())
		}
		ev.PushValue(lang.StringValue(v))
		return nil
	default:
		v, err := ev.Importer.ImportBin(e.Path, e.ImportSpan)
		if err != nil {
			return ev.Fail(diagnostics.KindBadImport, err.Error())
		}
		items := make([]heap.Ref[*lang.ThunkData], len(v))
		for i, b := range v {
			items[i] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewDoneThunk(lang.NumberValue(float64(b))))
		}
		ev.PushValue(lang.ArrayValue(heap.Alloc[*lang.ArrayData](ev.Heap, &lang.ArrayData{Items: items})))
		return nil
	}
}

// identityFunc lazily builds and caches the single built-in identity
// function value, mirroring the reference implementation's IdentityFunc
// IR node resolving to one shared BuiltInFunc::Identity closure.
func (ev *Evaluator) identityFunc() heap.Ref[*lang.FuncData] {
	if ev.identityFuncCache.Valid() {
		return ev.identityFuncCache
	}
	params := &lang.FuncParams{Order: []*lang.Str{ev.Interner.Intern("x")}, ByName: map[*lang.Str]lang.FuncParam{}}
	params.ByName[params.Order[0]] = lang.FuncParam{Index: 0}
	ref := heap.Alloc[*lang.FuncData](ev.Heap, &lang.FuncData{Kind: lang.FuncBuiltIn, Params: params, BuiltIn: lang.BuiltInIdentity})
	ev.identityFuncCache = ref
	return ref
}
