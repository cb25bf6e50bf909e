package eval

import (
	"math"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func (s *exprState) stepBinary(ev *Evaluator) error {
	e := s.expr
	if e.BinOp == lang.BinaryLogicAnd || e.BinOp == lang.BinaryLogicOr {
		if err := ev.PushState(&logicState{op: e.BinOp, rhs: e.Rhs, env: s.env}); err != nil {
			return err
		}
		return ev.PushState(&exprState{expr: e.Lhs, env: s.env})
	}
	if err := ev.PushState(&binaryApplyState{op: e.BinOp}); err != nil {
		return err
	}
	if err := ev.PushState(&exprState{expr: e.Rhs, env: s.env}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: e.Lhs, env: s.env})
}

// logicState implements && and || short-circuiting: the right operand's
// exprState is only ever pushed once the left operand's value can't
// decide the result on its own.
type logicState struct {
	op  lang.BinaryOp
	rhs *lang.Expr
	env heap.Ref[*lang.ThunkEnv]
}

func (s *logicState) Step(ev *Evaluator) error {
	lhs := ev.PopValue()
	if lhs.Kind != lang.ValueBool {
		return ev.Fail(diagnostics.KindTypeMismatch, "&& and || require booleans")
	}
	if s.op == lang.BinaryLogicAnd && !lhs.Bool {
		ev.PushValue(lang.BoolValue(false))
		return nil
	}
	if s.op == lang.BinaryLogicOr && lhs.Bool {
		ev.PushValue(lang.BoolValue(true))
		return nil
	}
	if err := ev.PushState(requireBoolState{}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: s.rhs, env: s.env})
}

type requireBoolState struct{}

func (requireBoolState) Step(ev *Evaluator) error {
	if ev.PeekValue().Kind != lang.ValueBool {
		return ev.Fail(diagnostics.KindTypeMismatch, "&& and || require booleans")
	}
	return nil
}

type binaryApplyState struct {
	op lang.BinaryOp
}

func (s *binaryApplyState) Step(ev *Evaluator) error {
	rhs := ev.PopValue()
	lhs := ev.PopValue()
	v, err := ev.applyBinary(s.op, lhs, rhs)
	if err != nil {
		return err
	}
	ev.PushValue(v)
	return nil
}

func (ev *Evaluator) applyBinary(op lang.BinaryOp, lhs, rhs lang.Value) (lang.Value, error) {
	switch op {
	case lang.BinaryAdd:
		return ev.applyAdd(lhs, rhs)
	case lang.BinarySub:
		if lhs.Kind != lang.ValueNumber || rhs.Kind != lang.ValueNumber {
			return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "- requires numbers")
		}
		return ev.finiteNumber(lhs.Number - rhs.Number)
	case lang.BinaryMul:
		if lhs.Kind != lang.ValueNumber || rhs.Kind != lang.ValueNumber {
			return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "* requires numbers")
		}
		return ev.finiteNumber(lhs.Number * rhs.Number)
	case lang.BinaryDiv:
		if lhs.Kind != lang.ValueNumber || rhs.Kind != lang.ValueNumber {
			return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "/ requires numbers")
		}
		if rhs.Number == 0 {
			return lang.Value{}, ev.Fail(diagnostics.KindDivByZero, "division by zero")
		}
		return ev.finiteNumber(lhs.Number / rhs.Number)
	case lang.BinaryRem:
		if lhs.Kind != lang.ValueNumber || rhs.Kind != lang.ValueNumber {
			return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "%% requires numbers")
		}
		if rhs.Number == 0 {
			return lang.Value{}, ev.Fail(diagnostics.KindDivByZero, "division by zero")
		}
		return ev.finiteNumber(math.Mod(lhs.Number, rhs.Number))
	case lang.BinaryShl, lang.BinaryShr, lang.BinaryBitwiseAnd, lang.BinaryBitwiseOr, lang.BinaryBitwiseXor:
		return ev.applyBitwise(op, lhs, rhs)
	case lang.BinaryLt, lang.BinaryLe, lang.BinaryGt, lang.BinaryGe:
		c, err := valuesCompare(ev, lhs, rhs)
		if err != nil {
			return lang.Value{}, err
		}
		switch op {
		case lang.BinaryLt:
			return lang.BoolValue(c < 0), nil
		case lang.BinaryLe:
			return lang.BoolValue(c <= 0), nil
		case lang.BinaryGt:
			return lang.BoolValue(c > 0), nil
		default:
			return lang.BoolValue(c >= 0), nil
		}
	case lang.BinaryEq, lang.BinaryNe:
		eq, err := valuesEqual(ev, lhs, rhs)
		if err != nil {
			return lang.Value{}, err
		}
		if op == lang.BinaryNe {
			eq = !eq
		}
		return lang.BoolValue(eq), nil
	case lang.BinaryIn:
		if rhs.Kind != lang.ValueObject {
			return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "in requires an object")
		}
		if lhs.Kind != lang.ValueString {
			return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "in requires a string key")
		}
		name, ok := ev.Interner.Lookup(lhs.String)
		return lang.BoolValue(ok && rhs.Object.Get().HasField(0, name)), nil
	default:
		return lang.Value{}, ev.Fail(diagnostics.KindRuntime, "unhandled binary operator")
	}
}

// finiteNumber rejects a NaN or infinite arithmetic result instead of
// letting it silently propagate: the language exposes no IEEE-754
// infinities or NaN, so a number that escapes into one is reported as
// an overflow or as a NaN result rather than returned as a value.
func (ev *Evaluator) finiteNumber(n float64) (lang.Value, error) {
	if math.IsNaN(n) {
		return lang.Value{}, ev.Fail(diagnostics.KindNumberNaN, "arithmetic produced NaN")
	}
	if math.IsInf(n, 0) {
		return lang.Value{}, ev.Fail(diagnostics.KindNumberOverflow, "arithmetic overflowed")
	}
	return lang.NumberValue(n), nil
}

// applyAdd implements every `+` overload: arithmetic, array concatenation,
// object extension, and string concatenation (which coerces whichever
// operand isn't already a string the same way std.toString does).
func (ev *Evaluator) applyAdd(lhs, rhs lang.Value) (lang.Value, error) {
	switch {
	case lhs.Kind == lang.ValueNumber && rhs.Kind == lang.ValueNumber:
		return ev.finiteNumber(lhs.Number + rhs.Number)
	case lhs.Kind == lang.ValueArray && rhs.Kind == lang.ValueArray:
		la, ra := lhs.Array.Get(), rhs.Array.Get()
		items := make([]heap.Ref[*lang.ThunkData], 0, la.Len()+ra.Len())
		items = append(items, la.Items...)
		items = append(items, ra.Items...)
		return lang.ArrayValue(heap.Alloc[*lang.ArrayData](ev.Heap, &lang.ArrayData{Items: items})), nil
	case lhs.Kind == lang.ValueObject && rhs.Kind == lang.ValueObject:
		combined := lang.ExtendObject(lhs.Object.Get(), rhs.Object.Get())
		return lang.ObjectValue(heap.Alloc[*lang.ObjectData](ev.Heap, combined)), nil
	case lhs.Kind == lang.ValueString || rhs.Kind == lang.ValueString:
		ls, err := ev.toPlusString(lhs)
		if err != nil {
			return lang.Value{}, err
		}
		rs, err := ev.toPlusString(rhs)
		if err != nil {
			return lang.Value{}, err
		}
		return lang.StringValue(ls + rs), nil
	default:
		return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "+ requires numbers, strings, arrays, or objects")
	}
}

func (ev *Evaluator) toPlusString(v lang.Value) (string, error) {
	if v.Kind == lang.ValueString {
		return v.String, nil
	}
	if !v.MightNeedDeep() {
		return scalarToString(v), nil
	}
	buf := make([]byte, 0, 64)
	if err := appendJSONValue(ev, &buf, v); err != nil {
		return "", err
	}
	return string(buf), nil
}

// applyBitwise implements &, |, ^, <<, and >>, all defined over integral
// (not merely finite) float operands truncated to a signed 32-bit width,
// matching the reference implementation's bitwise builtins.
func (ev *Evaluator) applyBitwise(op lang.BinaryOp, lhs, rhs lang.Value) (lang.Value, error) {
	if lhs.Kind != lang.ValueNumber || rhs.Kind != lang.ValueNumber {
		return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "bitwise operators require numbers")
	}
	a, aok := lang.ToI32Exact(lhs.Number)
	b, bok := lang.ToI32Exact(rhs.Number)
	if !aok || !bok {
		return lang.Value{}, ev.Fail(diagnostics.KindTypeMismatch, "bitwise operators require integral operands")
	}
	switch op {
	case lang.BinaryBitwiseAnd:
		return lang.NumberValue(float64(a & b)), nil
	case lang.BinaryBitwiseOr:
		return lang.NumberValue(float64(a | b)), nil
	case lang.BinaryBitwiseXor:
		return lang.NumberValue(float64(a ^ b)), nil
	case lang.BinaryShl:
		if b < 0 {
			return lang.Value{}, ev.Fail(diagnostics.KindShiftByNegative, "shift by negative amount")
		}
		return lang.NumberValue(float64(a << (uint32(b) & 31))), nil
	default: // BinaryShr
		if b < 0 {
			return lang.Value{}, ev.Fail(diagnostics.KindShiftByNegative, "shift by negative amount")
		}
		return lang.NumberValue(float64(a >> (uint32(b) & 31))), nil
	}
}

func (s *exprState) stepUnary(ev *Evaluator) error {
	e := s.expr
	if err := ev.PushState(&unaryApplyState{op: e.UnOp}); err != nil {
		return err
	}
	return ev.PushState(&exprState{expr: e.Rhs, env: s.env})
}

type unaryApplyState struct {
	op lang.UnaryOp
}

func (s *unaryApplyState) Step(ev *Evaluator) error {
	v := ev.PopValue()
	switch s.op {
	case lang.UnaryMinus:
		if v.Kind != lang.ValueNumber {
			return ev.Fail(diagnostics.KindTypeMismatch, "unary - requires a number")
		}
		ev.PushValue(lang.NumberValue(-v.Number))
	case lang.UnaryPlus:
		if v.Kind != lang.ValueNumber {
			return ev.Fail(diagnostics.KindTypeMismatch, "unary + requires a number")
		}
		ev.PushValue(v)
	case lang.UnaryBitwiseNot:
		if v.Kind != lang.ValueNumber {
			return ev.Fail(diagnostics.KindTypeMismatch, "~ requires a number")
		}
		i, ok := lang.ToI32Exact(v.Number)
		if !ok {
			return ev.Fail(diagnostics.KindTypeMismatch, "~ requires an integral operand")
		}
		ev.PushValue(lang.NumberValue(float64(^i)))
	case lang.UnaryLogicNot:
		if v.Kind != lang.ValueBool {
			return ev.Fail(diagnostics.KindTypeMismatch, "! requires a boolean")
		}
		ev.PushValue(lang.BoolValue(!v.Bool))
	default:
		return ev.Fail(diagnostics.KindRuntime, "unhandled unary operator")
	}
	return nil
}

// ValuesEqual exposes valuesEqual's structural-equality check to package
// stdlib, which needs the identical rule for std.equals/std.primitiveEquals
// rather than re-deriving visibility-filtered object comparison.
func ValuesEqual(ev *Evaluator, a, b lang.Value) (bool, error) {
	return valuesEqual(ev, a, b)
}

// ValuesCompare exposes valuesCompare's three-way ordering to package
// stdlib for std.compare/std.compareArray.
func ValuesCompare(ev *Evaluator, a, b lang.Value) (int, error) {
	return valuesCompare(ev, a, b)
}

// valuesEqual implements ==/!=: values of differing kinds are simply
// unequal (never an error), arrays compare element-wise, and objects
// compare only their visible fields by name and value — a field hidden
// by `::` never participates in equality, matching manifestation's own
// visibility filter. Function values have no equality and always fail.
func valuesEqual(ev *Evaluator, a, b lang.Value) (bool, error) {
	if a.Kind != b.Kind {
		return false, nil
	}
	switch a.Kind {
	case lang.ValueNull:
		return true, nil
	case lang.ValueBool:
		return a.Bool == b.Bool, nil
	case lang.ValueNumber:
		return a.Number == b.Number, nil
	case lang.ValueString:
		return a.String == b.String, nil
	case lang.ValueArray:
		aa, bb := a.Array.Get(), b.Array.Get()
		if aa.Len() != bb.Len() {
			return false, nil
		}
		for i := range aa.Items {
			av, err := ev.ForceTopLevel(aa.Items[i])
			if err != nil {
				return false, err
			}
			bv, err := ev.ForceTopLevel(bb.Items[i])
			if err != nil {
				return false, err
			}
			eq, err := valuesEqual(ev, av, bv)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case lang.ValueObject:
		ao, bo := a.Object.Get(), b.Object.Get()
		avis := visibleFields(ao)
		bvis := visibleFields(bo)
		if len(avis) != len(bvis) {
			return false, nil
		}
		for i, name := range avis {
			if name != bvis[i] {
				return false, nil
			}
			coreI, field, _ := ao.FindField(0, name)
			at := objectFieldThunk(ev, a.Object, coreI, name, field)
			coreI, field, _ = bo.FindField(0, name)
			bt := objectFieldThunk(ev, b.Object, coreI, name, field)
			av, err := ev.ForceTopLevel(at)
			if err != nil {
				return false, err
			}
			bv, err := ev.ForceTopLevel(bt)
			if err != nil {
				return false, err
			}
			eq, err := valuesEqual(ev, av, bv)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	default:
		return false, ev.Fail(diagnostics.KindTypeMismatch, "cannot test equality of functions")
	}
}

func visibleFields(o *lang.ObjectData) []*lang.Str {
	var out []*lang.Str
	for _, name := range o.FieldsOrder() {
		if o.FieldIsVisible(name) {
			out = append(out, name)
		}
	}
	return out
}

// valuesCompare implements the three-way ordering behind </<=/>/>=:
// numbers and strings order by value, arrays order lexicographically
// (a prefix of the other is the lesser one), and objects and functions
// have no ordering at all.
func valuesCompare(ev *Evaluator, a, b lang.Value) (int, error) {
	if a.Kind != b.Kind {
		return 0, ev.Fail(diagnostics.KindCompareIncompatible, "cannot compare values of different types")
	}
	switch a.Kind {
	case lang.ValueNumber:
		switch {
		case a.Number < b.Number:
			return -1, nil
		case a.Number > b.Number:
			return 1, nil
		default:
			return 0, nil
		}
	case lang.ValueString:
		switch {
		case a.String < b.String:
			return -1, nil
		case a.String > b.String:
			return 1, nil
		default:
			return 0, nil
		}
	case lang.ValueArray:
		aa, bb := a.Array.Get(), b.Array.Get()
		n := aa.Len()
		if bb.Len() < n {
			n = bb.Len()
		}
		for i := 0; i < n; i++ {
			av, err := ev.ForceTopLevel(aa.Items[i])
			if err != nil {
				return 0, err
			}
			bv, err := ev.ForceTopLevel(bb.Items[i])
			if err != nil {
				return 0, err
			}
			c, err := valuesCompare(ev, av, bv)
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		switch {
		case aa.Len() < bb.Len():
			return -1, nil
		case aa.Len() > bb.Len():
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, ev.Fail(diagnostics.KindCompareIncompatible, "values of this type are not ordered")
	}
}
