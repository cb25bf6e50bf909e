// Package heap implements the cycle-collecting heap that backs thunks,
// arrays, objects, functions, and environments.
//
// Two reference sorts exist over the same underlying box: a View pins its
// target (a collector root) for as long as the caller holds it; a Ref is a
// weak, mark-traced reference and is the only form of reference permitted
// to live inside another heap value. Collection is mark-and-sweep with a
// root-identification pre-pass tuned for the common mix of view-held vs.
// only-tracked objects (see Collect).
package heap

// Trace is implemented by every value stored in the heap; it must visit
// every Ref it directly holds via ctx.Visit.
type Trace interface {
	Trace(ctx *TraceCtx)
}

// TraceCtx carries the collector's traversal state into a value's Trace
// method. Callers never construct one directly.
type TraceCtx struct {
	marking   bool
	releasing bool
	queue     []*box
}

// Visit records a reachability edge to the box backing a Ref. Trace
// implementations call this once per Ref field; it is a no-op for a Ref
// whose target has already been swept.
func (ctx *TraceCtx) Visit(b *box) {
	if b == nil || !b.alive {
		return
	}
	if ctx.releasing {
		b.tracked--
		return
	}
	if !ctx.marking {
		b.visits++
		return
	}
	if !b.mark {
		b.mark = true
		ctx.queue = append(ctx.queue, b)
	}
}

type box struct {
	views   int
	tracked int
	visits  int
	mark    bool
	alive   bool
	value   Trace
}

// Ref is a weak, structural reference to a heap value. It is the only
// reference form allowed inside another Trace value; dereferencing one
// whose target has been swept is a programming error and panics.
type Ref[T Trace] struct {
	b *box
}

// Trace visits the referenced box, participating in mark-and-sweep.
func (r Ref[T]) Trace(ctx *TraceCtx) {
	if r.b != nil {
		ctx.Visit(r.b)
	}
}

// Valid reports whether the Ref was ever bound to a box.
func (r Ref[T]) Valid() bool { return r.b != nil }

// Retain marks this Ref as embedded inside another heap value's field,
// counting it toward the target's tracked-ref total used by root
// identification during Collect. Call it once, at the point a Ref is
// stored into a container struct.
func (r Ref[T]) Retain() Ref[T] {
	if r.b != nil {
		r.b.tracked++
	}
	return r
}

// Release gives up a previously Retained structural slot, used when a
// field holding this Ref is overwritten or cleared (e.g. resetting a
// cached field thunk during object extension).
func (r Ref[T]) Release() {
	if r.b != nil {
		r.b.tracked--
	}
}

// Get dereferences the Ref, panicking if its target has been collected.
func (r Ref[T]) Get() T {
	if r.b == nil || !r.b.alive {
		panic("heap: dereferencing a tracked ref whose target has been swept")
	}
	return r.b.value.(T)
}

// View upgrades the Ref to a pinning View.
func (r Ref[T]) View() View[T] {
	if r.b == nil || !r.b.alive {
		panic("heap: attempted to access destroyed object")
	}
	r.b.views++
	return View[T]{b: r.b}
}

// View is a strong, pinning handle to a heap value; holding one is itself
// a collector root.
type View[T Trace] struct {
	b *box
}

// Value dereferences the View.
func (v View[T]) Value() T {
	return v.b.value.(T)
}

// Ref downgrades the View to a weak, structural Ref suitable for embedding
// inside another heap value.
func (v View[T]) Ref() Ref[T] {
	v.b.tracked++
	return Ref[T]{b: v.b}
}

// Release gives up the View's pin. Callers that keep a View only for the
// duration of one evaluation step must call this when done with it;
// forgetting to do so simply keeps the object alive longer than necessary.
func (v View[T]) Release() {
	if v.b != nil {
		v.b.views--
	}
}

// Valid reports whether the View is bound to a box.
func (v View[T]) Valid() bool { return v.b != nil }

// Heap owns every tracked object's box and runs mark-and-sweep collection
// over them.
type Heap struct {
	objs              []*box
	objsAfterLastGC   int
}

// New returns an empty Heap.
func New() *Heap {
	return &Heap{}
}

// Alloc stores value in the heap and returns a weak Ref to it. Use this
// when the caller does not need to hold a pinning handle immediately (the
// object may be collected on the next GC cycle if nothing else pins it).
func Alloc[T Trace](h *Heap, value T) Ref[T] {
	b := &box{alive: true, value: value}
	h.objs = append(h.objs, b)
	return Ref[T]{b: b}
}

// AllocView stores value in the heap and returns a pinning View to it.
func AllocView[T Trace](h *Heap, value T) View[T] {
	b := &box{alive: true, value: value, views: 1}
	h.objs = append(h.objs, b)
	return View[T]{b: b}
}

// NumObjects reports the live object count, the same population
// ShouldCollect's heuristic measures.
func (h *Heap) NumObjects() int {
	return len(h.objs)
}

// ShouldCollect applies the default growth heuristic: run when the
// population exceeds threshold and has more than doubled since the last
// collection.
func (h *Heap) ShouldCollect(threshold int) bool {
	return len(h.objs) > threshold && len(h.objs) > 2*h.objsAfterLastGC
}

// Collect runs one mark-and-sweep cycle: (1) objects pinned by a live View
// are roots, marked immediately via DFS; objects with neither a View nor a
// tracked ref are reclaimed immediately; everything else accumulates a
// visit count. (2) any still-unmarked object whose total tracked-ref count
// exceeds its accumulated visit count has a reference reachable only from
// outside the already-marked subgraph, and is itself marked as a root via
// DFS. (3) unmarked objects are swept; survivors have their mark and visit
// counters reset for the next cycle. Objects with a live View are also
// moved to the front of the internal list to keep the common fast path
// (everything still pinned) cheap on the next cycle.
func (h *Heap) Collect() {
	ctx := &TraceCtx{}

	knownWithView := 0
	i := 0
	for i < len(h.objs) {
		obj := h.objs[i]
		switch {
		case obj.views > 0:
			if !obj.mark {
				ctx.marking = true
				obj.mark = true
				obj.value.Trace(ctx)
				h.drainQueue(ctx)
			}
			if i > knownWithView {
				h.objs[i], h.objs[knownWithView] = h.objs[knownWithView], h.objs[i]
			}
			knownWithView++
			i++
		case obj.tracked == 0:
			h.removeAt(i)
		case !obj.mark:
			ctx.marking = false
			obj.value.Trace(ctx)
			i++
		default:
			i++
		}
	}

	ctx.marking = true
	for _, obj := range h.objs {
		if !obj.mark && obj.tracked > obj.visits {
			obj.mark = true
			obj.value.Trace(ctx)
			h.drainQueue(ctx)
		}
	}

	i = 0
	for i < len(h.objs) {
		obj := h.objs[i]
		if obj.mark {
			obj.visits = 0
			obj.mark = false
			i++
		} else {
			h.removeAt(i)
		}
	}

	h.objsAfterLastGC = len(h.objs)
}

func (h *Heap) drainQueue(ctx *TraceCtx) {
	for len(ctx.queue) > 0 {
		n := len(ctx.queue) - 1
		obj := ctx.queue[n]
		ctx.queue = ctx.queue[:n]
		obj.value.Trace(ctx)
	}
}

// removeAt destroys the box at index i. Destroying it releases every
// tracked ref it directly holds (decrementing the targets' tracked-ref
// counts), the same way dropping a Rust value cascades into dropping the
// Weak pointers nested inside it — this is what lets an entire unreachable
// chain collapse within a single Collect pass instead of one GC per link.
func (h *Heap) removeAt(i int) {
	obj := h.objs[i]
	obj.alive = false
	if obj.value != nil {
		obj.value.Trace(&TraceCtx{releasing: true})
	}
	obj.value = nil
	last := len(h.objs) - 1
	h.objs[i] = h.objs[last]
	h.objs[last] = nil
	h.objs = h.objs[:last]
}
