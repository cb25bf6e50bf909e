package lang

import "jsonnetcore/internal/heap"

// FuncKind tags which arm of FuncData is populated.
type FuncKind int

const (
	// FuncNormal is a user-written `function(...) body` closure.
	FuncNormal FuncKind = iota
	// FuncBuiltIn is one of the interpreter's native std.* implementations.
	FuncBuiltIn
	// FuncNative is a host-registered callback reachable only through
	// std.native(name), the embedding API's extension point.
	FuncNative
)

// FuncData is a callable value: a user closure, a built-in standard
// library implementation, or a host-registered native function.
type FuncData struct {
	Kind   FuncKind
	Name   *Str // empty for an anonymous Normal function
	Params *FuncParams

	Body *Expr              // FuncNormal
	Env  heap.Ref[*ThunkEnv] // FuncNormal

	BuiltIn BuiltInFunc // FuncBuiltIn

	NativeName string // FuncNative: the name registered with the host
}

// Trace visits a Normal function's closed-over environment; built-in and
// native functions hold no heap references.
func (f *FuncData) Trace(ctx *heap.TraceCtx) {
	if f.Kind == FuncNormal {
		f.Env.Trace(ctx)
	}
}

// NumParams reports the function's declared parameter count, used for
// arity checks before a call thunk is even built.
func (f *FuncData) NumParams() int { return len(f.Params.Order) }

// BuiltInFunc enumerates the std.* implementations backed by native Go
// code rather than the embedded Jsonnet prelude (see package stdlib for
// the split between the two).
type BuiltInFunc int

const (
	BuiltInIdentity BuiltInFunc = iota
	BuiltInExtVar

	// Types and reflection.
	BuiltInType
	BuiltInIsArray
	BuiltInIsBoolean
	BuiltInIsFunction
	BuiltInIsNumber
	BuiltInIsObject
	BuiltInIsString
	BuiltInLength
	BuiltInObjectHasEx
	BuiltInObjectFieldsEx
	BuiltInPrimitiveEquals
	BuiltInEquals
	BuiltInCompare
	BuiltInCompareArray

	// Mathematical utilities.
	BuiltInExponent
	BuiltInMantissa
	BuiltInFloor
	BuiltInCeil
	BuiltInModulo
	BuiltInPow
	BuiltInExp
	BuiltInLog
	BuiltInSqrt
	BuiltInSin
	BuiltInCos
	BuiltInTan
	BuiltInAsin
	BuiltInAcos
	BuiltInAtan

	// Assertions.
	BuiltInAssertEqual

	// String manipulation.
	BuiltInToString
	BuiltInCodepoint
	BuiltInChar
	BuiltInSubstr
	BuiltInFindSubstr
	BuiltInStartsWith
	BuiltInEndsWith
	BuiltInSplitLimit
	BuiltInSplitLimitR
	BuiltInStrReplace
	BuiltInAsciiUpper
	BuiltInAsciiLower
	BuiltInStringChars
	BuiltInFormat
	BuiltInEscapeStringJSON
	BuiltInEscapeStringBash
	BuiltInEscapeStringDollars
	BuiltInEscapeStringXML

	// Parsing.
	BuiltInParseInt
	BuiltInParseOctal
	BuiltInParseHex
	BuiltInParseJSON
	BuiltInParseYAML
	BuiltInEncodeUTF8
	BuiltInDecodeUTF8

	// Manifestation.
	BuiltInManifestJSONEx

	// Arrays.
	BuiltInMakeArray
	BuiltInFilter
	BuiltInFoldl
	BuiltInFoldr
	BuiltInRange
	BuiltInSlice
	BuiltInJoin
	BuiltInReverse
	BuiltInSort
	BuiltInUniq
	BuiltInAll
	BuiltInAny

	// Sets.
	BuiltInSet
	BuiltInSetInter
	BuiltInSetUnion
	BuiltInSetDiff
	BuiltInSetMember

	// Encoding.
	BuiltInMd5

	// Native functions.
	BuiltInNative

	// Debugging.
	BuiltInTrace
)
