package lang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/lang"
)

func TestDropChildrenOnNilOrNullIsANoop(t *testing.T) {
	lang.DropChildren(nil)
	lang.DropChildren(lang.Null)
	assert.Equal(t, lang.ExprNull, lang.Null.Kind)
}

func TestDropChildrenZeroesBinaryTree(t *testing.T) {
	lhs := &lang.Expr{Kind: lang.ExprNumber, NumberVal: 1}
	rhs := &lang.Expr{Kind: lang.ExprNumber, NumberVal: 2}
	root := &lang.Expr{Kind: lang.ExprBinary, BinOp: lang.BinaryAdd, Lhs: lhs, Rhs: rhs}

	lang.DropChildren(root)

	assert.Equal(t, lang.ExprNull, root.Kind)
	assert.Equal(t, lang.ExprNull, lhs.Kind, "DropChildren must also zero children it visited, not just the root")
	assert.Equal(t, lang.ExprNull, rhs.Kind)
}

// TestDropChildrenHandlesDeepNestingWithoutRecursing builds a chain of
// nested unary negations thousands deep — a tree that would overflow the
// host stack if torn down by ordinary recursive Go destruction — and
// confirms DropChildren's explicit worklist unwinds it all the same.
func TestDropChildrenHandlesDeepNestingWithoutRecursing(t *testing.T) {
	const depth = 200000
	var root *lang.Expr
	nodes := make([]*lang.Expr, depth)
	var leaf *lang.Expr
	for i := 0; i < depth; i++ {
		n := &lang.Expr{Kind: lang.ExprUnary, UnOp: lang.UnaryMinus}
		nodes[i] = n
		if root == nil {
			root = n
		} else {
			nodes[i-1].Rhs = n
		}
	}
	leaf = &lang.Expr{Kind: lang.ExprNumber, NumberVal: 1}
	nodes[depth-1].Rhs = leaf

	require.NotPanics(t, func() {
		lang.DropChildren(root)
	})

	assert.Equal(t, lang.ExprNull, root.Kind)
	assert.Equal(t, lang.ExprNull, nodes[depth-1].Kind)
	assert.Equal(t, lang.ExprNull, leaf.Kind)
}

func TestDropChildrenZeroesObjectSubtree(t *testing.T) {
	fieldValue := &lang.Expr{Kind: lang.ExprNumber, NumberVal: 1}
	assertCond := &lang.Expr{Kind: lang.ExprBool, BoolVal: true}
	root := &lang.Expr{
		Kind:    lang.ExprObject,
		Asserts: []lang.Assert{{Cond: assertCond}},
		Fields: []lang.FieldDef{
			{Name: lang.FieldName{Fixed: nil}, Value: fieldValue},
		},
	}

	lang.DropChildren(root)

	assert.Equal(t, lang.ExprNull, root.Kind)
	assert.Equal(t, lang.ExprNull, fieldValue.Kind)
	assert.Equal(t, lang.ExprNull, assertCond.Kind)
}
