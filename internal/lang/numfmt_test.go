package lang_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"jsonnetcore/internal/lang"
)

func TestFrexpMatchesReferenceCases(t *testing.T) {
	cases := []struct {
		in       float64
		mant     float64
		exponent int16
	}{
		{0.0, 0.0, 0},
		{0.09375, 0.75, -3},
		{-0.09375, -0.75, -3},
		{0.25, 0.5, -1},
		{0.5, 0.5, 0},
		{1.0, 0.5, 1},
		{20.0, 0.625, 5},
	}
	for _, c := range cases {
		m, e := lang.Frexp(c.in)
		assert.Equal(t, c.mant, m, "mantissa of %v", c.in)
		assert.Equal(t, c.exponent, e, "exponent of %v", c.in)
	}
}

func TestFormatNumberIntegral(t *testing.T) {
	assert.Equal(t, "0", lang.FormatNumber(0))
	assert.Equal(t, "-0", lang.FormatNumber(math.Copysign(0, -1)))
	assert.Equal(t, "3", lang.FormatNumber(3))
	assert.Equal(t, "-12", lang.FormatNumber(-12))
}

func TestFormatNumberDecimal(t *testing.T) {
	assert.Equal(t, "1.5", lang.FormatNumber(1.5))
	assert.Equal(t, "0.1", lang.FormatNumber(0.1))
}

func TestFormatNumberExponent(t *testing.T) {
	assert.Equal(t, "1e+20", lang.FormatNumber(1e20))
	assert.Equal(t, "1e-20", lang.FormatNumber(1e-20))
}

func TestToI32ExactRejectsFraction(t *testing.T) {
	_, ok := lang.ToI32Exact(1.5)
	assert.False(t, ok)
	v, ok := lang.ToI32Exact(42)
	assert.True(t, ok)
	assert.Equal(t, int32(42), v)
}
