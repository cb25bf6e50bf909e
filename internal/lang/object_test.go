package lang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
)

func field(vis lang.Visibility) *lang.ObjectField {
	return &lang.ObjectField{Visibility: vis, Expr: lang.Null}
}

func TestFindFieldChecksSelfThenSupers(t *testing.T) {
	in := interner.New()
	a := in.Intern("a")
	b := in.Intern("b")

	obj := &lang.ObjectData{
		SelfCore: lang.ObjectCore{Fields: map[*interner.Str]*lang.ObjectField{a: field(lang.VisibilityDefault)}},
		SuperCores: []lang.ObjectCore{
			{Fields: map[*interner.Str]*lang.ObjectField{b: field(lang.VisibilityDefault)}},
		},
	}

	coreI, f, ok := obj.FindField(0, a)
	require.True(t, ok)
	assert.Equal(t, 0, coreI)
	assert.NotNil(t, f)

	coreI, f, ok = obj.FindField(0, b)
	require.True(t, ok)
	assert.Equal(t, 1, coreI)
	assert.NotNil(t, f)

	_, _, ok = obj.FindField(0, in.Intern("missing"))
	assert.False(t, ok)
}

func TestFieldVisibilityHiddenWins(t *testing.T) {
	in := interner.New()
	h := in.Intern("h")

	obj := &lang.ObjectData{
		SelfCore: lang.ObjectCore{Fields: map[*interner.Str]*lang.ObjectField{h: field(lang.VisibilityHidden)}},
	}
	assert.False(t, obj.FieldIsVisible(h))
}

func TestFieldsOrderIsLexicographic(t *testing.T) {
	in := interner.New()
	z := in.Intern("z")
	a := in.Intern("a")
	m := in.Intern("m")

	obj := &lang.ObjectData{
		SelfCore: lang.ObjectCore{Fields: map[*interner.Str]*lang.ObjectField{
			z: field(lang.VisibilityDefault),
			a: field(lang.VisibilityDefault),
			m: field(lang.VisibilityDefault),
		}},
	}
	order := obj.FieldsOrder()
	require.Len(t, order, 3)
	assert.Equal(t, []string{"a", "m", "z"}, []string{order[0].Value(), order[1].Value(), order[2].Value()})
}

func TestExtendObjectPutsRhsAsNewSelf(t *testing.T) {
	in := interner.New()
	a := in.Intern("a")
	b := in.Intern("b")

	lhs := &lang.ObjectData{SelfCore: lang.ObjectCore{Fields: map[*interner.Str]*lang.ObjectField{a: field(lang.VisibilityDefault)}}}
	rhs := &lang.ObjectData{SelfCore: lang.ObjectCore{Fields: map[*interner.Str]*lang.ObjectField{b: field(lang.VisibilityDefault)}}}

	combined := lang.ExtendObject(lhs, rhs)

	_, _, ok := combined.FindField(0, b)
	assert.True(t, ok, "rhs's field must resolve from the new self core")
	_, _, ok = combined.FindField(0, a)
	assert.True(t, ok, "lhs's field must still resolve, via the appended super core")
	require.Len(t, combined.SuperCores, 1)
}

func TestAssertsCheckedOnlyOnce(t *testing.T) {
	obj := &lang.ObjectData{}
	assert.False(t, obj.AssertsChecked(), "an object with pending asserts starts unchecked")
	assert.True(t, obj.AssertsChecked(), "once checked, the flag stays set for the object's lifetime")
}
