package stdlib

import (
	"math"

	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func init() {
	registerEntries(
		coreEntry{name: "exponent", kind: lang.BuiltInExponent, params: []string{"x"}, builtIn: wrap(builtinExponent)},
		coreEntry{name: "mantissa", kind: lang.BuiltInMantissa, params: []string{"x"}, builtIn: wrap(builtinMantissa)},
		coreEntry{name: "floor", kind: lang.BuiltInFloor, params: []string{"x"}, builtIn: wrap(mathUnary(math.Floor))},
		coreEntry{name: "ceil", kind: lang.BuiltInCeil, params: []string{"x"}, builtIn: wrap(mathUnary(math.Ceil))},
		coreEntry{name: "modulo", kind: lang.BuiltInModulo, params: []string{"a", "b"}, builtIn: wrap(builtinModulo)},
		coreEntry{name: "pow", kind: lang.BuiltInPow, params: []string{"x", "n"}, builtIn: wrap(mathBinary(math.Pow))},
		coreEntry{name: "exp", kind: lang.BuiltInExp, params: []string{"x"}, builtIn: wrap(mathUnary(math.Exp))},
		coreEntry{name: "log", kind: lang.BuiltInLog, params: []string{"x"}, builtIn: wrap(mathUnary(math.Log))},
		coreEntry{name: "sqrt", kind: lang.BuiltInSqrt, params: []string{"x"}, builtIn: wrap(mathUnary(math.Sqrt))},
		coreEntry{name: "sin", kind: lang.BuiltInSin, params: []string{"x"}, builtIn: wrap(mathUnary(math.Sin))},
		coreEntry{name: "cos", kind: lang.BuiltInCos, params: []string{"x"}, builtIn: wrap(mathUnary(math.Cos))},
		coreEntry{name: "tan", kind: lang.BuiltInTan, params: []string{"x"}, builtIn: wrap(mathUnary(math.Tan))},
		coreEntry{name: "asin", kind: lang.BuiltInAsin, params: []string{"x"}, builtIn: wrap(mathUnary(math.Asin))},
		coreEntry{name: "acos", kind: lang.BuiltInAcos, params: []string{"x"}, builtIn: wrap(mathUnary(math.Acos))},
		coreEntry{name: "atan", kind: lang.BuiltInAtan, params: []string{"x"}, builtIn: wrap(mathUnary(math.Atan))},
	)
}

func mathUnary(f func(float64) float64) nativeFn {
	return func(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
		xv, err := arg(ev, args, 0)
		if err != nil {
			return lang.Value{}, err
		}
		x, err := requireNumber(ev, xv, "math")
		if err != nil {
			return lang.Value{}, err
		}
		return lang.NumberValue(f(x)), nil
	}
}

func mathBinary(f func(a, b float64) float64) nativeFn {
	return func(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
		av, err := arg(ev, args, 0)
		if err != nil {
			return lang.Value{}, err
		}
		a, err := requireNumber(ev, av, "math")
		if err != nil {
			return lang.Value{}, err
		}
		bv, err := arg(ev, args, 1)
		if err != nil {
			return lang.Value{}, err
		}
		b, err := requireNumber(ev, bv, "math")
		if err != nil {
			return lang.Value{}, err
		}
		return lang.NumberValue(f(a, b)), nil
	}
}

func builtinExponent(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	xv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	x, err := requireNumber(ev, xv, "exponent")
	if err != nil {
		return lang.Value{}, err
	}
	_, exp := lang.Frexp(x)
	return lang.NumberValue(float64(exp)), nil
}

func builtinMantissa(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	xv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	x, err := requireNumber(ev, xv, "mantissa")
	if err != nil {
		return lang.Value{}, err
	}
	frac, _ := lang.Frexp(x)
	return lang.NumberValue(frac), nil
}

func builtinModulo(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	av, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	a, err := requireNumber(ev, av, "modulo")
	if err != nil {
		return lang.Value{}, err
	}
	bv, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	b, err := requireNumber(ev, bv, "modulo")
	if err != nil {
		return lang.Value{}, err
	}
	return lang.NumberValue(math.Mod(a, b)), nil
}
