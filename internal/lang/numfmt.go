// Package lang implements the core data model: IR, values, thunks,
// environments, and objects.
package lang

import (
	"math"
	"strconv"
	"strings"
)

// ToI32Exact returns x truncated to int32 together with whether the
// truncation was lossless, mirroring try_to_i32_exact.
func ToI32Exact(x float64) (int32, bool) {
	i := int32(x)
	return i, float64(i) == x
}

// ToU32 truncates x toward zero and reports whether the truncated value
// round-trips exactly, mirroring try_to_u32 (used by bitwise builtins that
// accept any integral-valued float, not just already-truncated ones).
func ToU32(x float64) (uint32, bool) {
	x = math.Trunc(x)
	u := uint32(x)
	return u, float64(u) == x
}

// ToUSizeExact returns x truncated to a non-negative int together with
// whether the truncation was lossless, mirroring try_to_usize_exact.
func ToUSizeExact(x float64) (int, bool) {
	i := int(x)
	return i, float64(i) == x && i >= 0
}

// ToUSize truncates x toward zero to a non-negative int, mirroring
// try_to_usize (used for array indices produced by arithmetic).
func ToUSize(x float64) (int, bool) {
	x = math.Trunc(x)
	i := int(x)
	return i, float64(i) == x && i >= 0
}

// Frexp decomposes x into a normalized mantissa in [0.5, 1) and a binary
// exponent such that x == mantissa * 2^exponent, including for subnormals.
// Ported from the reference implementation's own frexp (Go's math.Frexp
// differs only in its subnormal handling path, which this mirrors exactly
// so std.mantissa/std.exponent match the reference bit for bit).
func Frexp(x float64) (mantissa float64, exponent int16) {
	norm := x
	var edelta int16
	if isSubnormal(x) {
		scale := math.Float64frombits((52 + 0x3FF) << 52)
		norm = x * scale
		edelta = -52
	}
	raw := math.Float64bits(norm)
	rawExp := (raw >> 52) & 0x7FF
	if rawExp == 0 {
		mant := math.Float64frombits(raw &^ (0x7FFF_FFFF_FFFF_FFFF))
		return mant, 0
	}
	mant := math.Float64frombits((raw &^ (uint64(0x7FF) << 52)) | (uint64(0x3FE) << 52))
	exp := int16(rawExp) - 0x3FE + edelta
	return mant, exp
}

func isSubnormal(x float64) bool {
	if x == 0 {
		return false
	}
	bits := math.Float64bits(x)
	exp := (bits >> 52) & 0x7FF
	return exp == 0
}

// FormatNumber renders x the way Jsonnet manifestation does: integral
// values print without a fractional part or exponent up to the point
// they'd lose precision, everything else uses the shortest decimal that
// round-trips back to x exactly. Go's strconv already implements the
// shortest-round-trip algorithm (the same class of result the reference
// implementation's custom formatter targets), so this wraps it instead of
// re-deriving digit generation by hand.
func FormatNumber(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		panic("lang: cannot manifest a non-finite number")
	}
	if x == 0 {
		if math.Signbit(x) {
			return "-0"
		}
		return "0"
	}
	if x == math.Trunc(x) && math.Abs(x) < 1e15 {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	s := strconv.FormatFloat(x, 'g', -1, 64)
	return normalizeExponent(s)
}

// normalizeExponent rewrites Go's "e+05"/"e-05" exponent form into
// Jsonnet's unpadded "e+5"/"e-5" form.
func normalizeExponent(s string) string {
	i := strings.IndexAny(s, "eE")
	if i < 0 {
		return s
	}
	mantissa, exp := s[:i], s[i+1:]
	sign := "+"
	if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
		if exp[0] == '-' {
			sign = "-"
		}
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + sign + exp
}
