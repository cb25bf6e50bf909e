package eval

import (
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

// stepArray builds an array literal's thunks directly: each element is
// lazy, so no evaluation happens here, only the allocation of one
// pending-expr thunk per item closed over the current environment.
func (s *exprState) stepArray(ev *Evaluator) error {
	items := make([]heap.Ref[*lang.ThunkData], len(s.expr.Items))
	for i, item := range s.expr.Items {
		items[i] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(item, s.env))
	}
	ev.PushValue(lang.ArrayValue(heap.Alloc[*lang.ArrayData](ev.Heap, &lang.ArrayData{Items: items})))
	return nil
}

// stepArrayComp evaluates an array comprehension: the for/if clauses'
// own iterable expressions must be forced to learn their lengths, but
// the comprehension body stays lazy, one pending thunk per surviving
// binding tuple. evalCompSpecEnvs walks the clauses with plain loops
// inside this one Step and forces each generator's iterable through
// ForceTopLevel, a nested Run that uses host call frames.
func (s *exprState) stepArrayComp(ev *Evaluator) error {
	envs, err := ev.evalCompSpecEnvs(s.expr.CompSpec, s.env)
	if err != nil {
		return err
	}
	items := make([]heap.Ref[*lang.ThunkData], len(envs))
	for i, env := range envs {
		items[i] = heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(s.expr.Value, env))
	}
	ev.PushValue(lang.ArrayValue(heap.Alloc[*lang.ArrayData](ev.Heap, &lang.ArrayData{Items: items})))
	return nil
}

// evalCompSpecEnvs walks parts left to right, maintaining a set of
// in-progress environments (initially just the base env), extending it
// with one more bound variable per For clause (forcing that clause's
// iterable once per already-bound tuple) and narrowing it by forcing
// each If clause's condition. The returned environments are the ones
// that survive to the end of parts, one per surviving binding tuple;
// callers (array and object comprehensions) each decide what to build
// against them.
func (ev *Evaluator) evalCompSpecEnvs(parts []lang.CompSpecPart, base heap.Ref[*lang.ThunkEnv]) ([]heap.Ref[*lang.ThunkEnv], error) {
	envs := []heap.Ref[*lang.ThunkEnv]{base}
	for _, part := range parts {
		var next []heap.Ref[*lang.ThunkEnv]
		for _, env := range envs {
			if part.IsFor {
				iterThunk := heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(part.Value, env))
				iterVal, err := ev.ForceTopLevel(iterThunk)
				if err != nil {
					return nil, err
				}
				if iterVal.Kind != lang.ValueArray {
					return nil, ev.Fail(diagnostics.KindTypeMismatch, "for clause requires an array")
				}
				arr := iterVal.Array.Get()
				for _, item := range arr.Items {
					child := heap.AllocView(ev.Heap, lang.NewThunkEnv())
					child.Value().Init(env, map[*lang.Str]heap.Ref[*lang.ThunkData]{part.Var: item})
					next = append(next, child.Ref())
					child.Release()
				}
			} else {
				condThunk := heap.Alloc[*lang.ThunkData](ev.Heap, lang.NewPendingExprThunk(part.Value, env))
				condVal, err := ev.ForceTopLevel(condThunk)
				if err != nil {
					return nil, err
				}
				if condVal.Kind != lang.ValueBool {
					return nil, ev.Fail(diagnostics.KindTypeMismatch, "if clause requires a boolean")
				}
				if condVal.Bool {
					next = append(next, env)
				}
			}
		}
		envs = next
	}
	return envs, nil
}
