package stdlib

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/eval"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/manifest"
)

func init() {
	registerEntries(
		coreEntry{name: "toString", kind: lang.BuiltInToString, params: []string{"a"}, builtIn: wrap(builtinToString)},
		coreEntry{name: "codepoint", kind: lang.BuiltInCodepoint, params: []string{"str"}, builtIn: wrap(builtinCodepoint)},
		coreEntry{name: "char", kind: lang.BuiltInChar, params: []string{"n"}, builtIn: wrap(builtinChar)},
		coreEntry{name: "substr", kind: lang.BuiltInSubstr, params: []string{"str", "from", "len"}, builtIn: wrap(builtinSubstr)},
		coreEntry{name: "findSubstr", kind: lang.BuiltInFindSubstr, params: []string{"pat", "str"}, builtIn: wrap(builtinFindSubstr)},
		coreEntry{name: "startsWith", kind: lang.BuiltInStartsWith, params: []string{"a", "b"}, builtIn: wrap(stringPredicate(strings.HasPrefix))},
		coreEntry{name: "endsWith", kind: lang.BuiltInEndsWith, params: []string{"a", "b"}, builtIn: wrap(stringPredicate(strings.HasSuffix))},
		coreEntry{name: "splitLimit", kind: lang.BuiltInSplitLimit, params: []string{"str", "c", "maxsplits"}, builtIn: wrap(builtinSplitLimit)},
		coreEntry{name: "splitLimitR", kind: lang.BuiltInSplitLimitR, params: []string{"str", "c", "maxsplits"}, builtIn: wrap(builtinSplitLimitR)},
		coreEntry{name: "strReplace", kind: lang.BuiltInStrReplace, params: []string{"str", "from", "to"}, builtIn: wrap(builtinStrReplace)},
		coreEntry{name: "asciiUpper", kind: lang.BuiltInAsciiUpper, params: []string{"str"}, builtIn: wrap(stringMap(strings.ToUpper))},
		coreEntry{name: "asciiLower", kind: lang.BuiltInAsciiLower, params: []string{"str"}, builtIn: wrap(stringMap(strings.ToLower))},
		coreEntry{name: "stringChars", kind: lang.BuiltInStringChars, params: []string{"str"}, builtIn: wrap(builtinStringChars)},
		coreEntry{name: "format", kind: lang.BuiltInFormat, params: []string{"str", "vals"}, builtIn: wrap(builtinFormat)},
		coreEntry{name: "escapeStringJson", kind: lang.BuiltInEscapeStringJSON, params: []string{"str"}, builtIn: wrap(builtinEscapeStringJSON)},
		coreEntry{name: "escapeStringBash", kind: lang.BuiltInEscapeStringBash, params: []string{"str"}, builtIn: wrap(builtinEscapeStringBash)},
		coreEntry{name: "escapeStringDollars", kind: lang.BuiltInEscapeStringDollars, params: []string{"str"}, builtIn: wrap(stringMap(func(s string) string { return strings.ReplaceAll(s, "$", "$$") }))},
		coreEntry{name: "escapeStringXml", kind: lang.BuiltInEscapeStringXML, params: []string{"str"}, builtIn: wrap(builtinEscapeStringXML)},
	)
}

func builtinToString(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	v, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	if v.Kind == lang.ValueString {
		return v, nil
	}
	text, err := manifest.JSON(ev, doneThunk(ev.Heap, v), false)
	if err != nil {
		return lang.Value{}, err
	}
	return lang.StringValue(text), nil
}

func builtinCodepoint(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "codepoint")
	if err != nil {
		return lang.Value{}, err
	}
	r, _ := utf8.DecodeRuneInString(s)
	return lang.NumberValue(float64(r)), nil
}

func builtinChar(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	nv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	n, err := requireNumber(ev, nv, "char")
	if err != nil {
		return lang.Value{}, err
	}
	return lang.StringValue(string(rune(int32(n)))), nil
}

func builtinSubstr(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "substr")
	if err != nil {
		return lang.Value{}, err
	}
	fromV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	from, err := requireNumber(ev, fromV, "substr")
	if err != nil {
		return lang.Value{}, err
	}
	lenV, err := arg(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	length, err := requireNumber(ev, lenV, "substr")
	if err != nil {
		return lang.Value{}, err
	}
	runes := []rune(s)
	start := clampIndex(int(from), len(runes))
	end := clampIndex(int(from)+int(length), len(runes))
	if end < start {
		end = start
	}
	return lang.StringValue(string(runes[start:end])), nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func builtinFindSubstr(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	patV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	pat, err := requireString(ev, patV, "findSubstr")
	if err != nil {
		return lang.Value{}, err
	}
	strV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	str, err := requireString(ev, strV, "findSubstr")
	if err != nil {
		return lang.Value{}, err
	}
	if pat == "" {
		return newArrayOfValues(ev.Heap, nil), nil
	}
	runes := []rune(str)
	patRunes := []rune(pat)
	var results []lang.Value
	for i := 0; i+len(patRunes) <= len(runes); i++ {
		if string(runes[i:i+len(patRunes)]) == pat {
			results = append(results, lang.NumberValue(float64(i)))
		}
	}
	return newArrayOfValues(ev.Heap, results), nil
}

func stringPredicate(f func(a, b string) bool) nativeFn {
	return func(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
		av, err := arg(ev, args, 0)
		if err != nil {
			return lang.Value{}, err
		}
		a, err := requireString(ev, av, "string predicate")
		if err != nil {
			return lang.Value{}, err
		}
		bv, err := arg(ev, args, 1)
		if err != nil {
			return lang.Value{}, err
		}
		b, err := requireString(ev, bv, "string predicate")
		if err != nil {
			return lang.Value{}, err
		}
		return lang.BoolValue(f(a, b)), nil
	}
}

func stringMap(f func(string) string) nativeFn {
	return func(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
		sv, err := arg(ev, args, 0)
		if err != nil {
			return lang.Value{}, err
		}
		s, err := requireString(ev, sv, "string")
		if err != nil {
			return lang.Value{}, err
		}
		return lang.StringValue(f(s)), nil
	}
}

func builtinSplitLimit(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	return splitLimitImpl(ev, args, false)
}

func builtinSplitLimitR(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	return splitLimitImpl(ev, args, true)
}

func splitLimitImpl(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData], fromRight bool) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "splitLimit")
	if err != nil {
		return lang.Value{}, err
	}
	cv, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	c, err := requireString(ev, cv, "splitLimit")
	if err != nil {
		return lang.Value{}, err
	}
	maxV, err := arg(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	maxsplits, err := requireNumber(ev, maxV, "splitLimit")
	if err != nil {
		return lang.Value{}, err
	}

	var parts []string
	if maxsplits < 0 {
		parts = strings.Split(s, c)
	} else if fromRight {
		parts = splitNFromRight(s, c, int(maxsplits)+1)
	} else {
		parts = strings.SplitN(s, c, int(maxsplits)+1)
	}
	vals := make([]lang.Value, len(parts))
	for i, p := range parts {
		vals[i] = lang.StringValue(p)
	}
	return newArrayOfValues(ev.Heap, vals), nil
}

func splitNFromRight(s, sep string, n int) []string {
	if n <= 0 {
		return nil
	}
	all := strings.Split(s, sep)
	if len(all) <= n {
		return all
	}
	head := strings.Join(all[:len(all)-n+1], sep)
	out := append([]string{head}, all[len(all)-n+1:]...)
	return out
}

func builtinStrReplace(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "strReplace")
	if err != nil {
		return lang.Value{}, err
	}
	fromV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	from, err := requireString(ev, fromV, "strReplace")
	if err != nil {
		return lang.Value{}, err
	}
	toV, err := arg(ev, args, 2)
	if err != nil {
		return lang.Value{}, err
	}
	to, err := requireString(ev, toV, "strReplace")
	if err != nil {
		return lang.Value{}, err
	}
	return lang.StringValue(strings.ReplaceAll(s, from, to)), nil
}

func builtinStringChars(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "stringChars")
	if err != nil {
		return lang.Value{}, err
	}
	runes := []rune(s)
	vals := make([]lang.Value, len(runes))
	for i, r := range runes {
		vals[i] = lang.StringValue(string(r))
	}
	return newArrayOfValues(ev.Heap, vals), nil
}

// builtinFormat implements a pragmatic subset of printf-style %-formatting
// over an array of values — the common cases (%s, %d, %f, %%) rather than
// the reference library's full format-spec grammar.
func builtinFormat(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	strV, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	format, err := requireString(ev, strV, "format")
	if err != nil {
		return lang.Value{}, err
	}
	valsV, err := arg(ev, args, 1)
	if err != nil {
		return lang.Value{}, err
	}
	var vals []lang.Value
	if valsV.Kind == lang.ValueArray {
		vals, err = forceEach(ev, valsV.Array.Get())
		if err != nil {
			return lang.Value{}, err
		}
	} else {
		vals = []lang.Value{valsV}
	}

	var out strings.Builder
	argi := 0
	next := func() (lang.Value, error) {
		if argi >= len(vals) {
			return lang.Value{}, ev.Fail(diagnostics.KindBadFormat, "not enough values for format string")
		}
		v := vals[argi]
		argi++
		return v, nil
	}
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '%' {
			out.WriteRune(c)
			continue
		}
		i++
		if i >= len(runes) {
			return lang.Value{}, ev.Fail(diagnostics.KindBadFormat, "trailing %% in format string")
		}
		switch runes[i] {
		case '%':
			out.WriteByte('%')
		case 's':
			v, err := next()
			if err != nil {
				return lang.Value{}, err
			}
			text, err := builtinToString(ev, []heap.Ref[*lang.ThunkData]{doneThunk(ev.Heap, v)})
			if err != nil {
				return lang.Value{}, err
			}
			out.WriteString(text.String)
		case 'd':
			v, err := next()
			if err != nil {
				return lang.Value{}, err
			}
			n, err := requireNumber(ev, v, "format")
			if err != nil {
				return lang.Value{}, err
			}
			out.WriteString(strconv.FormatInt(int64(n), 10))
		case 'f':
			v, err := next()
			if err != nil {
				return lang.Value{}, err
			}
			n, err := requireNumber(ev, v, "format")
			if err != nil {
				return lang.Value{}, err
			}
			out.WriteString(strconv.FormatFloat(n, 'f', 6, 64))
		default:
			return lang.Value{}, ev.Fail(diagnostics.KindBadFormat, "unsupported format verb: %"+string(runes[i]))
		}
	}
	return lang.StringValue(out.String()), nil
}

func builtinEscapeStringJSON(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "escapeStringJson")
	if err != nil {
		return lang.Value{}, err
	}
	text, err := manifest.JSON(ev, doneThunk(ev.Heap, lang.StringValue(s)), false)
	if err != nil {
		return lang.Value{}, err
	}
	return lang.StringValue(text), nil
}

func builtinEscapeStringBash(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "escapeStringBash")
	if err != nil {
		return lang.Value{}, err
	}
	return lang.StringValue("'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"), nil
}

func builtinEscapeStringXML(ev *eval.Evaluator, args []heap.Ref[*lang.ThunkData]) (lang.Value, error) {
	sv, err := arg(ev, args, 0)
	if err != nil {
		return lang.Value{}, err
	}
	s, err := requireString(ev, sv, "escapeStringXml")
	if err != nil {
		return lang.Value{}, err
	}
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return lang.StringValue(r.Replace(s)), nil
}
