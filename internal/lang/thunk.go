package lang

import (
	"sync"

	"jsonnetcore/internal/heap"
)

// ThunkStateKind tags a thunk's current lifecycle stage.
type ThunkStateKind int

const (
	// ThunkDone holds a finished Value.
	ThunkDone ThunkStateKind = iota
	// ThunkPending has not started evaluating yet.
	ThunkPending
	// ThunkInProgress is being evaluated; re-entering it is the
	// definition of infinite recursion and must be rejected by the
	// evaluator, never silently re-run.
	ThunkInProgress
)

// PendingKind tags which arm of a pending thunk's payload is populated.
type PendingKind int

const (
	// PendingExpr defers evaluation of an IR expression in an environment.
	PendingExpr PendingKind = iota
	// PendingCall defers invocation of a function with already-built
	// argument thunks (built by NewPendingCallThunk, which nothing in
	// this tree calls).
	PendingCall
)

// ThunkData is a memoizing, lazily evaluated cell: forcing it the first
// time runs its pending computation and caches the result; subsequent
// forces just read the cached Value. The mutex guards only the state
// transition itself (switch/set), not the evaluation it guards — the
// single-writer-wins race is exactly the state machine Done/Pending/
// InProgress models.
type ThunkData struct {
	mu    sync.Mutex
	state ThunkStateKind

	done Value

	pendingKind PendingKind
	expr        *Expr
	env         heap.Ref[*ThunkEnv]
	callFunc    heap.Ref[*FuncData]
	callArgs    []heap.Ref[*ThunkData]
}

// NewDoneThunk returns an already-evaluated thunk.
func NewDoneThunk(v Value) *ThunkData {
	return &ThunkData{state: ThunkDone, done: v}
}

// NewPendingExprThunk returns a thunk that evaluates expr in env on first force.
func NewPendingExprThunk(expr *Expr, env heap.Ref[*ThunkEnv]) *ThunkData {
	return &ThunkData{state: ThunkPending, pendingKind: PendingExpr, expr: expr, env: env.Retain()}
}

// NewPendingCallThunk returns a thunk that invokes fn with args on first force.
func NewPendingCallThunk(fn heap.Ref[*FuncData], args []heap.Ref[*ThunkData]) *ThunkData {
	retained := make([]heap.Ref[*ThunkData], len(args))
	for i, a := range args {
		retained[i] = a.Retain()
	}
	return &ThunkData{state: ThunkPending, pendingKind: PendingCall, callFunc: fn.Retain(), callArgs: retained}
}

// State reports the thunk's current lifecycle stage without mutating it.
func (t *ThunkData) State() ThunkStateKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// DoneValue returns the cached value; callers must only call this after
// confirming State() == ThunkDone.
func (t *ThunkData) DoneValue() Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// SwitchState consumes the thunk for evaluation: a Done thunk is returned
// unchanged, a Pending thunk transitions to InProgress and its payload is
// handed to the caller to drive through the evaluator, and an already
// InProgress thunk is returned as-is so the caller can raise the infinite
// recursion error the reference implementation treats as a first-class
// evaluation failure rather than a host stack overflow.
func (t *ThunkData) SwitchState() (kind ThunkStateKind, pendingKind PendingKind, expr *Expr, env heap.Ref[*ThunkEnv], fn heap.Ref[*FuncData], args []heap.Ref[*ThunkData]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case ThunkDone:
		return ThunkDone, 0, nil, heap.Ref[*ThunkEnv]{}, heap.Ref[*FuncData]{}, nil
	case ThunkInProgress:
		return ThunkInProgress, 0, nil, heap.Ref[*ThunkEnv]{}, heap.Ref[*FuncData]{}, nil
	default:
		pk, e, en, f, a := t.pendingKind, t.expr, t.env, t.callFunc, t.callArgs
		t.state = ThunkInProgress
		return ThunkPending, pk, e, en, f, a
	}
}

// SetDone completes an InProgress thunk with value, releasing whatever
// pending payload it was holding.
func (t *ThunkData) SetDone(value Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != ThunkInProgress {
		panic("lang: SetDone called on a thunk that is not in progress")
	}
	t.env.Release()
	t.callFunc.Release()
	for _, a := range t.callArgs {
		a.Release()
	}
	t.expr = nil
	t.env = heap.Ref[*ThunkEnv]{}
	t.callFunc = heap.Ref[*FuncData]{}
	t.callArgs = nil
	t.state = ThunkDone
	t.done = value
}

// Trace visits whatever the thunk currently holds.
func (t *ThunkData) Trace(ctx *heap.TraceCtx) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case ThunkDone:
		t.done.Trace(ctx)
	case ThunkPending:
		switch t.pendingKind {
		case PendingExpr:
			t.env.Trace(ctx)
		case PendingCall:
			t.callFunc.Trace(ctx)
			for _, a := range t.callArgs {
				a.Trace(ctx)
			}
		}
	case ThunkInProgress:
	}
}
