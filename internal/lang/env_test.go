package lang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
)

func TestGetVarWalksParentChain(t *testing.T) {
	h := heap.New()
	in := interner.New()
	x := in.Intern("x")
	y := in.Intern("y")

	parentEnv := heap.AllocView(h, lang.NewThunkEnv())
	parentEnv.Value().Init(heap.Ref[*lang.ThunkEnv]{}, map[*interner.Str]heap.Ref[*lang.ThunkData]{
		x: heap.Alloc[*lang.ThunkData](h, lang.NewDoneThunk(lang.NumberValue(1))),
	})

	childEnv := heap.AllocView(h, lang.NewThunkEnv())
	childEnv.Value().Init(parentEnv.Ref(), map[*interner.Str]heap.Ref[*lang.ThunkData]{
		y: heap.Alloc[*lang.ThunkData](h, lang.NewDoneThunk(lang.NumberValue(2))),
	})

	xThunk := childEnv.Value().GetVar(x)
	assert.Equal(t, lang.NumberValue(1), xThunk.Get().DoneValue())

	yThunk := childEnv.Value().GetVar(y)
	assert.Equal(t, lang.NumberValue(2), yThunk.Get().DoneValue())
}

func TestGetVarMissingPanics(t *testing.T) {
	h := heap.New()
	in := interner.New()
	env := heap.AllocView(h, lang.NewThunkEnv())
	env.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)

	assert.Panics(t, func() {
		env.Value().GetVar(in.Intern("missing"))
	})
}

func TestObjectContextInheritedFromParent(t *testing.T) {
	h := heap.New()
	obj := heap.AllocView(h, lang.NewSimpleObject(nil))

	parentEnv := heap.AllocView(h, lang.NewThunkEnv())
	parentEnv.Value().Init(heap.Ref[*lang.ThunkEnv]{}, nil)
	parentEnv.Value().SetObject(obj.Ref(), 0, obj.Ref())

	childEnv := heap.AllocView(h, lang.NewThunkEnv())
	childEnv.Value().Init(parentEnv.Ref(), nil)

	assert.True(t, childEnv.Value().HasObject())
	gotObj, coreI := childEnv.Value().Object()
	assert.Equal(t, 0, coreI)
	assert.Same(t, obj.Value(), gotObj.Get())
}
