package heap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/heap"
)

// node is a minimal Trace value used to exercise cycles: it holds a mutable
// slice of tracked refs to other nodes, mirroring the TestObj fixture used
// by the reference implementation's own GC test suite.
type node struct {
	id   int
	subs []heap.Ref[*node]
}

func (n *node) Trace(ctx *heap.TraceCtx) {
	for _, s := range n.subs {
		s.Trace(ctx)
	}
}

func newNode(h *heap.Heap, id int) heap.View[*node] {
	return heap.AllocView(h, &node{id: id})
}

func TestEmptyHeapCollectIsNoop(t *testing.T) {
	h := heap.New()
	h.Collect()
	assert.Equal(t, 0, h.NumObjects())
}

func TestUnreachableAcyclicReclaimedAfterOneGC(t *testing.T) {
	h := heap.New()
	v := newNode(h, 1)
	v.Release()
	require.Equal(t, 1, h.NumObjects())
	h.Collect()
	assert.Equal(t, 0, h.NumObjects(), "object with no view and no tracked ref is reclaimed")
}

func TestViewPinsObject(t *testing.T) {
	h := heap.New()
	v := newNode(h, 1)
	h.Collect()
	assert.Equal(t, 1, h.NumObjects(), "a live View is a root and survives collection")
	v.Release()
	h.Collect()
	assert.Equal(t, 0, h.NumObjects())
}

func TestTrackedRefFromRootSurvives(t *testing.T) {
	h := heap.New()
	root := newNode(h, 1)
	child := newNode(h, 2)
	root.Value().subs = append(root.Value().subs, child.Ref())
	child.Release()

	h.Collect()
	assert.Equal(t, 2, h.NumObjects(), "child reachable from a rooted parent survives")

	root.Release()
	h.Collect()
	assert.Equal(t, 0, h.NumObjects())
}

func TestPureCycleReclaimedWithinTwoGCs(t *testing.T) {
	h := heap.New()
	a := newNode(h, 1)
	b := newNode(h, 2)
	a.Value().subs = append(a.Value().subs, b.Ref())
	b.Value().subs = append(b.Value().subs, a.Ref())
	a.Release()
	b.Release()

	require.Equal(t, 2, h.NumObjects())
	h.Collect()
	// A self-contained cycle with no external view or tracked ref never
	// satisfies tracked>visits, so it is caught by the immediate
	// no-view/no-tracked path or the first full pass; at most one more
	// cycle is ever needed for arbitrarily shaped cyclic graphs.
	if h.NumObjects() != 0 {
		h.Collect()
	}
	assert.Equal(t, 0, h.NumObjects(), "a pure cycle is eventually reclaimed")
}

func TestCycleReachableFromViewSurvives(t *testing.T) {
	h := heap.New()
	a := newNode(h, 1)
	b := newNode(h, 2)
	a.Value().subs = append(a.Value().subs, b.Ref())
	b.Value().subs = append(b.Value().subs, a.Ref())
	b.Release()

	h.Collect()
	assert.Equal(t, 2, h.NumObjects(), "a cycle reachable from a live root survives wholly")

	a.Release()
	h.Collect()
	assert.Equal(t, 0, h.NumObjects())
}

func TestDereferencingSweptRefPanics(t *testing.T) {
	h := heap.New()
	v := newNode(h, 1)
	r := v.Ref()
	v.Release()
	r.Release()
	h.Collect()

	assert.Panics(t, func() {
		_ = r.Get()
	})
}
