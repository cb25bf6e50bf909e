// Package arena provides a bump allocator for the IR nodes
// internal/frontend's parser produces, the same role
// rsjsonnet-lang/src/arena.rs's bumpalo-backed Arena plays for the
// reference parser: a whole parse's worth of *lang.Expr nodes live in a
// handful of growable slabs instead of as individually heap-allocated
// objects, and the slabs themselves are simply left for the garbage
// collector once nothing points into them anymore — there is no
// explicit Arena.free, since Go (unlike Rust) has no deterministic drop
// to hang one off of.
package arena

import "jsonnetcore/internal/lang"

// exprSlabLen is the node count of each slab; chosen so that a typical
// source file's worth of IR fits in one or two slabs without either
// allocating a slab per node or wasting much of a slab on a small file.
const exprSlabLen = 256

// Arena owns the slabs backing every *lang.Expr it has allocated. The
// zero value is not usable; construct one with New.
type Arena struct {
	exprSlabs [][]lang.Expr
	strBytes  int
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{}
}

// NewExpr copies value into the arena's current slab (starting a fresh
// one if the current slab is full) and returns a pointer to the copy.
// The returned pointer stays valid for the arena's whole lifetime: a
// slab's backing array, once allocated at its fixed capacity, is never
// reallocated out from under an already-returned pointer.
func (a *Arena) NewExpr(value lang.Expr) *lang.Expr {
	n := len(a.exprSlabs)
	if n == 0 || len(a.exprSlabs[n-1]) == cap(a.exprSlabs[n-1]) {
		a.exprSlabs = append(a.exprSlabs, make([]lang.Expr, 0, exprSlabLen))
		n++
	}
	slab := &a.exprSlabs[n-1]
	*slab = append(*slab, value)
	return &(*slab)[len(*slab)-1]
}

// AllocString returns a copy of s. Go's string type is already
// immutable and a conversion from a byte slice always copies, so unlike
// alloc_str this buys no aliasing the arena's slabs actually back — it
// exists for parity with the reference Arena's surface and as the
// single place parser.go interns a literal's text, should that copy
// ever need to move into a slab for real.
func (a *Arena) AllocString(s string) string {
	a.strBytes += len(s)
	b := make([]byte, len(s))
	copy(b, s)
	return string(b)
}

// AllocSlice returns a fresh copy of items. Go disallows a method with
// its own type parameter distinct from its receiver's, so this is a
// package-level function rather than an Arena method; it does not pack
// across calls into one shared slab the way alloc_slice_copy does,
// trading that packing for a signature simple enough to drop in at each
// of the parser's slice-literal call sites.
func AllocSlice[T any](a *Arena, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
