package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// PushDoThunk schedules thunk to be forced as the next step of the
// current trampoline, leaving its value on top of the value stack once
// done. Exported so package manifest, whose manifestation pass descends
// into arbitrarily deep arrays/objects, can force each nested thunk by
// pushing a continuation State rather than calling ForceTopLevel, which
// would open a second, independent trampoline instead of continuing this
// one.
func (ev *Evaluator) PushDoThunk(thunk heap.Ref[*lang.ThunkData]) error {
	return ev.PushState(&doThunkState{thunk: thunk})
}

// doThunkState forces thunk: a Done thunk's value is pushed immediately;
// a Pending thunk transitions to InProgress and has its payload driven
// through the trampoline behind a finishThunkState that will cache the
// result; an InProgress thunk means thunk is already being forced
// somewhere below this point on the state stack — the definition of
// infinite recursion, reported as a first-class EvalError rather than a
// host stack overflow.
type doThunkState struct {
	thunk heap.Ref[*lang.ThunkData]
}

func (s *doThunkState) Step(ev *Evaluator) error {
	t := s.thunk.Get()
	kind, pendingKind, expr, env, fn, args := t.SwitchState()
	switch kind {
	case lang.ThunkDone:
		ev.PushValue(t.DoneValue())
		return nil
	case lang.ThunkInProgress:
		return ev.Fail(diagnostics.KindInfiniteRecursion, "infinite recursion detected while forcing a thunk")
	default:
		if err := ev.PushState(&finishThunkState{thunk: s.thunk}); err != nil {
			return err
		}
		switch pendingKind {
		case lang.PendingExpr:
			return ev.PushState(&exprState{expr: expr, env: env})
		default:
			return ev.pushCall(fn, args, false)
		}
	}
}

// finishThunkState caches the value a forced thunk's pending computation
// produced, leaving it on the value stack for whoever pushed doThunkState.
type finishThunkState struct {
	thunk heap.Ref[*lang.ThunkData]
}

func (s *finishThunkState) Step(ev *Evaluator) error {
	v := ev.PeekValue()
	s.thunk.Get().SetDone(v)
	return nil
}

// discardValueState pops a forced value and discards it, for a force
// whose result is not kept. No state in this package pushes it.
type discardValueState struct{}

func (discardValueState) Step(ev *Evaluator) error {
	ev.PopValue()
	return nil
}
