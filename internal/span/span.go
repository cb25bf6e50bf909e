// Package span maps IR and AST nodes to source locations.
//
// Every node carries an opaque ID resolvable back to (context, start, end).
// Most spans are encoded inline in the ID itself; spans that don't fit the
// inline encoding fall back to an interned side table.
package span

import "fmt"

const (
	offsetBits = 38
	offsetMask = (uint64(1) << offsetBits) - 1
	lenMax     = (uint64(1) << (63 - offsetBits)) - 1
	internedBit = uint64(1) << 63
)

// ID identifies a span. The zero value is not a valid ID.
type ID uint64

func (id ID) interned() bool { return uint64(id)&internedBit != 0 }

// ContextID identifies one opened source context (one per source file).
type ContextID int

// Context describes where a ContextID's bytes came from.
type Context struct {
	Label string
}

type internedSpan struct {
	ctx        ContextID
	start, end int
}

// Manager owns the context table and the span-ID encoding for a single
// program (arena lifetime).
type Manager struct {
	contexts    []contextEntry
	spanToIdx   map[internedSpan]int
	idxToSpan   []internedSpan
}

type contextEntry struct {
	endOffset uint64
	ctx       Context
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{spanToIdx: make(map[internedSpan]int)}
}

// OpenContext reserves a disjoint range of the offset space for a
// source of the given byte length and returns its ContextID.
func (m *Manager) OpenContext(label string, length int) ContextID {
	var base uint64
	if n := len(m.contexts); n > 0 {
		base = m.contexts[n-1].endOffset
	}
	id := ContextID(len(m.contexts))
	m.contexts = append(m.contexts, contextEntry{
		endOffset: base + uint64(length) + 1,
		ctx:       Context{Label: label},
	})
	return id
}

// Context returns the Context a ContextID was opened with.
func (m *Manager) Context(id ContextID) Context {
	return m.contexts[id].ctx
}

func (m *Manager) contextOffsets(id ContextID) (min, max uint64) {
	if id == 0 {
		return 0, m.contexts[0].endOffset
	}
	return m.contexts[id-1].endOffset, m.contexts[id].endOffset
}

func (m *Manager) contextFromOffset(offset uint64) ContextID {
	// Binary search over contexts[i].endOffset, the same role
	// Vec::binary_search_by_key plays in the reference implementation.
	lo, hi := 0, len(m.contexts)
	for lo < hi {
		mid := (lo + hi) / 2
		if m.contexts[mid].endOffset <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return ContextID(lo)
}

// Intern returns the ID for (ctx, start, end), reusing prior calls with the
// same inputs.
func (m *Manager) Intern(ctx ContextID, start, end int) ID {
	if start > end {
		panic("span: start after end")
	}
	minOff, maxOff := m.contextOffsets(ctx)
	startOff := minOff + uint64(start)
	endOff := minOff + uint64(end)
	if startOff >= maxOff || endOff >= maxOff {
		panic("span: offset out of context range")
	}

	length := uint64(end - start)
	if length > lenMax || startOff >= offsetMask {
		key := internedSpan{ctx: ctx, start: start, end: end}
		if i, ok := m.spanToIdx[key]; ok {
			return ID(uint64(i) | internedBit)
		}
		i := len(m.idxToSpan)
		m.idxToSpan = append(m.idxToSpan, key)
		m.spanToIdx[key] = i
		return ID(uint64(i) | internedBit)
	}
	return ID((startOff + 1) | (length << offsetBits))
}

// Resolve recovers the (context, start, end) an ID was interned with.
func (m *Manager) Resolve(id ID) (ContextID, int, int) {
	if id.interned() {
		s := m.idxToSpan[uint64(id)&^internedBit]
		return s.ctx, s.start, s.end
	}
	inner := uint64(id)
	startOff := (inner & offsetMask) - 1
	length := inner >> offsetBits
	ctx := m.contextFromOffset(startOff)
	minOff, _ := m.contextOffsets(ctx)
	start := int(startOff - minOff)
	return ctx, start, start + int(length)
}

// Surrounding forms the minimal span covering both a and b, which must
// belong to the same context.
func (m *Manager) Surrounding(a, b ID) ID {
	ctxA, startA, _ := m.Resolve(a)
	ctxB, _, endB := m.Resolve(b)
	if ctxA != ctxB {
		panic("span: surrounding spans from different contexts")
	}
	return m.Intern(ctxA, startA, endB)
}

// String renders "label:start-end" for diagnostics.
func (m *Manager) String(id ID) string {
	ctx, start, end := m.Resolve(id)
	return fmt.Sprintf("%s:%d-%d", m.Context(ctx).Label, start, end)
}
