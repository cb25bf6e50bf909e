package stdlib

import (
	"crypto/md5"
	"encoding/hex"

	"go.uber.org/zap"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
)

func init() {
	registerEntries(
		coreEntry{name: "assertEqual", kind: lang.BuiltInAssertEqual, params: []string{"a", "b"}, builtIn: wrap(builtinAssertEqual)},
		coreEntry{name: "md5", kind: lang.BuiltInMd5, params: []string{"s"}, builtIn: wrap(builtinMd5)},
		coreEntry{name: "native", kind: lang.BuiltInNative, params: []string{"name"}, builtIn: wrap(builtinNative)},
		coreEntry{name: "trace", kind: lang.BuiltInTrace, params: []string{"str", "rest"}, builtIn: wrap(builtinTrace)},
		coreEntry{name: "__identity", kind: lang.BuiltInIdentity, params: []string{"x"}, builtIn: wrap(builtinIdentity)},
		coreEntry{name: "extVar", kind: lang.BuiltInExtVar, params: []string{"name"}, builtIn: wrap(builtinExtVar)},
	)
}

func builtinIdentity(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	return arg(ev, args, 0)
}

func builtinAssertEqual(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	a, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	b, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	eq, err := eval.ValuesEqual(ev, a, b)
	if err != nil {
		return lang.Value{}, err
	}
	if !eq {
		aText, err := builtinToString(ev, []heap.Ref[*lang.ThunkData]{doneThunk(ev.Heap, a)})
		if err != nil {
			return lang.Value{}, err
		}
		bText, err := builtinToString(ev, []heap.Ref[*lang.ThunkData]{doneThunk(ev.Heap, b)})
		if err != nil {
			return lang.Value{}, err
		}
		return lang.Value{}, ev.Fail(diagnostics.KindAssertEqualFailed, "assertEqual failed: "+aText.String+" != "+bText.String)
	}
	return lang.BoolValue(true), nil
}

func builtinMd5(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "md5")
	if err != nil {
		return lang.Value{}, err
	}
	sum := md5.Sum([]byte(s))
	return lang.StringValue(hex.EncodeToString(sum[:])), nil
}

// builtinNative resolves std.native(name) to a callable function value
// dispatching through ev.NativeCaller, the host embedding callback the
// reference implementation calls through its own analogous native
// function table (see program.Callbacks).
func builtinNative(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	nameV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	name, err := requireString(ev, nameV, "native")
	if err != nil {
		return lang.Value{}, err
	}
	if ev.NativeCaller == nil {
		return lang.Value{}, ev.Fail(diagnostics.KindRuntime, "native function not registered: "+name)
	}
	params, ok := ev.NativeCaller.NativeParams(name)
	if !ok {
		return lang.Value{}, ev.Fail(diagnostics.KindRuntime, "native function not registered: "+name)
	}
	fn := &lang.FuncData{
		Kind:       lang.FuncNative,
		Name:       ev.Interner.Intern(name),
		Params:     params,
		NativeName: name,
	}
	return lang.FunctionValue(heap.Alloc[*lang.FuncData](ev.Heap, fn)), nil
}

func builtinTrace(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	strV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	str, err := requireString(ev, strV, "trace")
	if err != nil {
		return lang.Value{}, err
	}
	zap.L().Info("TRACE", zap.String("message", str))
	if ev.TraceHook != nil {
		ev.TraceHook(str, ev.Trace())
	}
	return arg(ev, args, 1)
}

func builtinExtVar(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	nameV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	name, err := requireString(ev, nameV, "extVar")
	if err != nil {
		return lang.Value{}, err
	}
	thunk, ok := ev.ExtVars[name]
	if !ok {
		return lang.Value{}, ev.Fail(diagnostics.KindUnknownExtVar, "undefined external variable: "+name)
	}
	return ev.ForceTopLevel(thunk)
}
