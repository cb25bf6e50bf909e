package lang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func TestDoneThunkStaysDone(t *testing.T) {
	th := lang.NewDoneThunk(lang.NumberValue(3))
	require.Equal(t, lang.ThunkDone, th.State())
	kind, _, _, _, _, _ := th.SwitchState()
	assert.Equal(t, lang.ThunkDone, kind)
	assert.Equal(t, lang.NumberValue(3), th.DoneValue())
}

func TestPendingThunkTransitionsThroughInProgress(t *testing.T) {
	h := heap.New()
	env := heap.AllocView(h, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)

	th := lang.NewPendingExprThunk(lang.Null, env.Ref())
	require.Equal(t, lang.ThunkPending, th.State())

	kind, pk, expr, _, _, _ := th.SwitchState()
	assert.Equal(t, lang.ThunkPending, kind)
	assert.Equal(t, lang.PendingExpr, pk)
	assert.Equal(t, lang.Null, expr)
	assert.Equal(t, lang.ThunkInProgress, th.State())

	th.SetDone(lang.BoolValue(true))
	assert.Equal(t, lang.ThunkDone, th.State())
	assert.Equal(t, lang.BoolValue(true), th.DoneValue())
}

func TestReenteringInProgressThunkIsReported(t *testing.T) {
	h := heap.New()
	env := heap.AllocView(h, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)

	th := lang.NewPendingExprThunk(lang.Null, env.Ref())
	th.SwitchState()

	kind, _, _, _, _, _ := th.SwitchState()
	assert.Equal(t, lang.ThunkInProgress, kind, "a second force while in progress must be distinguishable from a fresh pending thunk")
}
