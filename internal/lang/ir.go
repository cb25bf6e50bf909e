package lang

import (
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/span"
)

// Str is the interned-string handle used throughout the IR and data model;
// its identity is pointer equality, as established by package interner.
type Str = interner.Str

// BinaryOp enumerates binary operators surviving into IR.
type BinaryOp int

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryRem
	BinaryShl
	BinaryShr
	BinaryLt
	BinaryLe
	BinaryGt
	BinaryGe
	BinaryEq
	BinaryNe
	BinaryIn
	BinaryBitwiseAnd
	BinaryBitwiseOr
	BinaryBitwiseXor
	BinaryLogicAnd
	BinaryLogicOr
)

// UnaryOp enumerates unary operators surviving into IR.
type UnaryOp int

const (
	UnaryMinus UnaryOp = iota
	UnaryPlus
	UnaryBitwiseNot
	UnaryLogicNot
)

// Visibility is an object field's manifestation visibility.
type Visibility int

const (
	VisibilityDefault Visibility = iota
	VisibilityHidden
	VisibilityForceVisible
)

// ExprKind tags which arm of Expr is populated; the zero kind is ExprNull,
// matching the sentinel the destructor relies on.
type ExprKind int

const (
	ExprNull ExprKind = iota
	ExprBool
	ExprNumber
	ExprString
	ExprObject
	ExprObjectComp
	ExprArray
	ExprArrayComp
	ExprField
	ExprIndex
	ExprSuperField
	ExprSuperIndex
	ExprStdField
	ExprCall
	ExprVar
	ExprSelfObj
	ExprTopObj
	ExprLocal
	ExprIf
	ExprBinary
	ExprUnary
	ExprInSuper
	ExprIdentityFunc
	ExprFunc
	ExprError
	ExprAssert
	ExprImport
	ExprImportStr
	ExprImportBin
)

// Bind is a single name/value binding in a local or function param list.
type Bind struct {
	Name  *Str
	Value *Expr
}

// Assert is a single top-level or object-level assertion.
type Assert struct {
	Span     span.ID
	Cond     *Expr
	CondSpan span.ID
	Msg      *Expr // nil if absent
}

// FieldName is either a statically known interned name or a dynamically
// computed one (a `[e]: ...` field).
type FieldName struct {
	Fixed *Str  // non-nil for a fixed name
	Dyn   *Expr // non-nil for a computed name
}

// FieldDef is one `name: value` entry of an object literal, as written in
// the IR — distinct from ObjectField in object.go, which is the built
// object's runtime field slot.
type FieldDef struct {
	Name       FieldName
	NameSpan   span.ID
	Plus       bool
	Visibility Visibility
	Value      *Expr
}

// CompSpecPart is one `for x in e` or `if e` clause of a comprehension.
type CompSpecPart struct {
	IsFor     bool
	Var       *Str // valid when IsFor
	Value     *Expr
	ValueSpan span.ID
	CondSpan  span.ID // valid when !IsFor
}

// FuncParams is a function's parameter list: Order gives the declaration
// (and positional-binding) order, ByName maps a parameter name to its
// position and optional default-value expression.
type FuncParams struct {
	Order  []*Str
	ByName map[*Str]FuncParam
}

// FuncParam is one entry of FuncParams.ByName.
type FuncParam struct {
	Index   int
	Default *Expr // nil if the parameter has no default
}

// NewSimpleParams builds a FuncParams for a list of required-by-position
// parameter names, interned through in.
func NewSimpleParams(in *interner.Interner, names []string) *FuncParams {
	order := make([]*Str, len(names))
	byName := make(map[*Str]FuncParam, len(names))
	for i, n := range names {
		s := in.Intern(n)
		order[i] = s
		byName[s] = FuncParam{Index: i}
	}
	return &FuncParams{Order: order, ByName: byName}
}

// Expr is the IR for one evaluatable node. It is a tagged union: exactly
// the fields relevant to Kind are populated. Expr is always handled
// through *Expr so a tree of nodes can be torn down iteratively (see
// DropChildren) instead of via recursive Go destruction, which would
// recurse one stack frame per nesting level on a deeply nested literal.
type Expr struct {
	Kind ExprKind

	BoolVal bool

	NumberVal  float64
	NumberSpan span.ID

	StringVal string

	// Object / ObjectComp
	IsTop        bool
	Locals       []Bind
	Asserts      []Assert
	Fields       []FieldDef
	FieldName    FieldName
	FieldNameSpan span.ID
	FieldValue   *Expr
	CompSpec     []CompSpecPart

	// Array / ArrayComp
	Items []*Expr
	Value *Expr

	// Field / Index / SuperField / SuperIndex / StdField
	Object    *Expr
	FieldNm   *Str
	Index     *Expr
	SuperSpan span.ID
	ExprSpan  span.ID

	// Call
	Callee         *Expr
	PositionalArgs []*Expr
	NamedArgs      []NamedArg
	Tailstrict     bool
	CallSpan       span.ID

	// Var
	VarName *Str
	VarSpan span.ID

	// Local
	Bindings []Bind
	Inner    *Expr

	// If
	Cond     *Expr
	CondSpan span.ID
	Then     *Expr
	Else     *Expr // nil if absent

	// Binary / Unary
	BinOp BinaryOp
	UnOp  UnaryOp
	Lhs   *Expr
	Rhs   *Expr
	OpSpan span.ID

	// Func
	Params *FuncParams
	Body   *Expr

	// Error / Assert
	Msg        *Expr
	AssertNode *Assert

	// Import / ImportStr / ImportBin
	Path     string
	ImportSpan span.ID
}

// NamedArg is one `name = value` call argument.
type NamedArg struct {
	Name *Str
	Span span.ID
	Value *Expr
}

// Null is the canonical empty node used as a placeholder once a node's
// children have been taken during iterative teardown.
var Null = &Expr{Kind: ExprNull}

// DropChildren iteratively empties e's subtree in place, replacing e
// itself with the Null sentinel. It exists so that releasing a deeply
// nested expression tree (e.g. a generated config with thousands of
// nested object literals) never recurses the host stack: children are
// pushed to an explicit worklist instead of torn down via ordinary Go
// garbage collection of a recursive structure. Call it when an *Expr is
// known to have no other owners (e.g. when an IR-owning Program is being
// discarded).
func DropChildren(root *Expr) {
	if root == nil || root.Kind == ExprNull {
		return
	}
	queue := []*Expr{root}
	for len(queue) > 0 {
		n := len(queue) - 1
		cur := queue[n]
		queue = queue[:n]
		if cur == nil || cur.Kind == ExprNull {
			continue
		}
		queue = appendChildren(queue, cur)
		*cur = Expr{Kind: ExprNull}
	}
}

func appendChildren(out []*Expr, e *Expr) []*Expr {
	switch e.Kind {
	case ExprObject:
		for _, b := range e.Locals {
			out = append(out, b.Value)
		}
		for _, a := range e.Asserts {
			out = append(out, a.Cond)
			if a.Msg != nil {
				out = append(out, a.Msg)
			}
		}
		for _, f := range e.Fields {
			if f.Name.Dyn != nil {
				out = append(out, f.Name.Dyn)
			}
			out = append(out, f.Value)
		}
	case ExprObjectComp:
		for _, b := range e.Locals {
			out = append(out, b.Value)
		}
		out = append(out, e.FieldName.Value())
		out = append(out, e.FieldValue)
		out = appendCompSpec(out, e.CompSpec)
	case ExprArray:
		out = append(out, e.Items...)
	case ExprArrayComp:
		out = append(out, e.Value)
		out = appendCompSpec(out, e.CompSpec)
	case ExprField:
		out = append(out, e.Object)
	case ExprIndex:
		out = append(out, e.Object, e.Index)
	case ExprSuperIndex:
		out = append(out, e.Index)
	case ExprCall:
		out = append(out, e.Callee)
		out = append(out, e.PositionalArgs...)
		for _, a := range e.NamedArgs {
			out = append(out, a.Value)
		}
	case ExprLocal:
		for _, b := range e.Bindings {
			out = append(out, b.Value)
		}
		out = append(out, e.Inner)
	case ExprIf:
		out = append(out, e.Cond, e.Then)
		if e.Else != nil {
			out = append(out, e.Else)
		}
	case ExprBinary:
		out = append(out, e.Lhs, e.Rhs)
	case ExprUnary:
		out = append(out, e.Rhs)
	case ExprInSuper:
		out = append(out, e.Lhs)
	case ExprFunc:
		out = append(out, e.Body)
	case ExprError:
		out = append(out, e.Msg)
	case ExprAssert:
		out = append(out, e.AssertNode.Cond)
		if e.AssertNode.Msg != nil {
			out = append(out, e.AssertNode.Msg)
		}
		out = append(out, e.Inner)
	}
	return out
}

func appendCompSpec(out []*Expr, parts []CompSpecPart) []*Expr {
	for _, p := range parts {
		out = append(out, p.Value)
	}
	return out
}

// Value returns the FieldName's dynamic expression if any, else nil; a
// tiny helper so appendChildren can treat ObjectComp's always-dynamic
// field name uniformly with FieldDef's optionally-dynamic one.
func (f FieldName) Value() *Expr {
	if f.Dyn != nil {
		return f.Dyn
	}
	return nil
}
