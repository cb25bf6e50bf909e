// Package frontend is the minimal lexer/parser/lowering layer standing
// in for the tokenizer, surface parser, and static analyzer spec.md
// names as external collaborators out of its own scope. It recognizes a
// deliberately reduced grammar — enough to drive load_source, the
// end-to-end property tests, and the cmd/jlang demo — and lowers
// directly to *lang.Expr IR as it parses, the same "no separate AST"
// shortcut internal/stdlib's prelude layer takes in the other
// direction (hand-building IR instead of parsing it).
//
// Out of scope here, deliberately: object/array comprehensions, the `$`
// top-object reference, triple-quoted verbatim strings, field-visibility
// combinations beyond `:` / `::` / `+:`, and multiple-output slicing
// syntax. None of these are excluded from the evaluator itself — only
// from what this surface can express; internal/eval implements
// ExprObjectComp/ExprArrayComp/ExprTopObj and tests the two
// comprehensions directly via hand-built IR (see
// internal/eval/array_test.go, object_test.go).
package frontend

import (
	"jsonnetcore/internal/arena"
	"jsonnetcore/internal/interner"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/span"
)

// superKind marks a bare `super` primary awaiting `.field` or `[index]`
// in parsePostfix; it is never a real lang.ExprKind value (those are all
// non-negative) and never reaches the evaluator.
const superKind = lang.ExprKind(-1)

// ParseError reports a lexical or syntactic failure, positioned against
// the span context Parse was given. It is distinct from
// diagnostics.EvalError: a parse failure happens before there is any
// evaluator trace to attach, matching the reference implementation's own
// split between parser errors and evaluation errors.
type ParseError struct {
	Message string
	Span    span.ID
}

func (e *ParseError) Error() string { return e.Message }

// Parse lexes and parses src (already opened as ctx in spans) and lowers
// it directly to *lang.Expr, allocating every node out of a, ready to be
// wrapped in a thunk and forced by the evaluator.
func Parse(spans *span.Manager, in *interner.Interner, ctx span.ContextID, src string, a *arena.Arena) (*lang.Expr, error) {
	p := &parser{lex: newLexer(src), spans: spans, ctx: ctx, in: in, arena: a}
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return e, nil
}

type parser struct {
	lex   *lexer
	spans *span.Manager
	ctx   span.ContextID
	in    *interner.Interner
	arena *arena.Arena
	tok   token
}

// newExpr is shorthand for p.arena.NewExpr, used at every IR construction
// site so a parse's whole tree lives in the arena's slabs rather than as
// individually heap-allocated nodes.
func (p *parser) newExpr(e lang.Expr) *lang.Expr { return p.arena.NewExpr(e) }

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) wrap(err error) error {
	if le, ok := err.(*lexError); ok {
		return &ParseError{Message: le.msg, Span: p.span(le.pos, le.pos)}
	}
	return err
}

func (p *parser) errorf(msg string) error {
	return &ParseError{Message: msg, Span: p.span(p.tok.start, p.tok.end)}
}

func (p *parser) span(start, end int) span.ID {
	return p.spans.Intern(p.ctx, start, end)
}

func (p *parser) isPunct(s string) bool { return p.tok.kind == tokPunct && p.tok.text == s }
func (p *parser) isIdent(s string) bool { return p.tok.kind == tokIdent && p.tok.text == s }

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected '" + s + "'")
	}
	return p.advance()
}

func (p *parser) intern(s string) *lang.Str { return p.in.Intern(s) }

// --- expressions ---

// binOps maps an operator token's text to its IR op and precedence
// (higher binds tighter), following standard Jsonnet precedence.
var binOps = map[string]struct {
	op   lang.BinaryOp
	prec int
}{
	"||": {lang.BinaryLogicOr, 1},
	"&&": {lang.BinaryLogicAnd, 2},
	"|":  {lang.BinaryBitwiseOr, 3},
	"^":  {lang.BinaryBitwiseXor, 4},
	"&":  {lang.BinaryBitwiseAnd, 5},
	"==": {lang.BinaryEq, 6},
	"!=": {lang.BinaryNe, 6},
	"<":  {lang.BinaryLt, 7},
	"<=": {lang.BinaryLe, 7},
	">":  {lang.BinaryGt, 7},
	">=": {lang.BinaryGe, 7},
	"in": {lang.BinaryIn, 7},
	"<<": {lang.BinaryShl, 8},
	">>": {lang.BinaryShr, 8},
	"+":  {lang.BinaryAdd, 9},
	"-":  {lang.BinarySub, 9},
	"*":  {lang.BinaryMul, 10},
	"/":  {lang.BinaryDiv, 10},
	"%":  {lang.BinaryRem, 10},
}

func (p *parser) peekBinOp() (string, lang.BinaryOp, int, bool) {
	if p.tok.kind == tokPunct {
		if e, ok := binOps[p.tok.text]; ok {
			return p.tok.text, e.op, e.prec, true
		}
	}
	if p.tok.kind == tokIdent && p.tok.text == "in" {
		return "in", lang.BinaryIn, 7, true
	}
	return "", 0, 0, false
}

func (p *parser) parseExpr(minPrec int) (*lang.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		text, op, prec, ok := p.peekBinOp()
		if !ok || prec < minPrec {
			return lhs, nil
		}
		opSpan := p.span(p.tok.start, p.tok.end)
		_ = text
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = p.newExpr(lang.Expr{Kind: lang.ExprBinary, BinOp: op, Lhs: lhs, Rhs: rhs, OpSpan: opSpan})
	}
}

func (p *parser) parseUnary() (*lang.Expr, error) {
	if p.tok.kind == tokPunct {
		var op lang.UnaryOp
		switch p.tok.text {
		case "-":
			op = lang.UnaryMinus
		case "+":
			op = lang.UnaryPlus
		case "!":
			op = lang.UnaryLogicNot
		case "~":
			op = lang.UnaryBitwiseNot
		default:
			goto notUnary
		}
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.newExpr(lang.Expr{Kind: lang.ExprUnary, UnOp: op, Rhs: inner}), nil
	}
notUnary:
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (*lang.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			if p.tok.kind != tokIdent {
				return nil, p.errorf("expected field name after '.'")
			}
			name := p.tok.text
			nameSpan := p.span(p.tok.start, p.tok.end)
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			if e.Kind == lang.ExprVar && e.VarName.Value() == "std" {
				e = p.newExpr(lang.Expr{Kind: lang.ExprStdField, FieldNm: p.intern(name), ExprSpan: nameSpan})
			} else if e.Kind == superKind {
				e = p.newExpr(lang.Expr{Kind: lang.ExprSuperField, FieldNm: p.intern(name), SuperSpan: nameSpan})
			} else {
				e = p.newExpr(lang.Expr{Kind: lang.ExprField, Object: e, FieldNm: p.intern(name), ExprSpan: nameSpan})
			}
		case p.isPunct("["):
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			if e.Kind == superKind {
				e = p.newExpr(lang.Expr{Kind: lang.ExprSuperIndex, Index: idx})
			} else {
				e = p.newExpr(lang.Expr{Kind: lang.ExprIndex, Object: e, Index: idx})
			}
		case p.isPunct("("):
			call, err := p.parseCallArgs(e)
			if err != nil {
				return nil, err
			}
			e = call
		default:
			return e, nil
		}
	}
}

func (p *parser) parseCallArgs(callee *lang.Expr) (*lang.Expr, error) {
	callSpan := p.span(p.tok.start, p.tok.end)
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	var positional []*lang.Expr
	var named []lang.NamedArg
	for !p.isPunct(")") {
		if p.tok.kind == tokIdent && !keywords[p.tok.text] {
			save := *p.lex
			saveTok := p.tok
			name := p.tok.text
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			if p.isPunct("=") {
				if err := p.advance(); err != nil {
					return nil, p.wrap(err)
				}
				val, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				named = append(named, lang.NamedArg{Name: p.intern(name), Value: val})
				if p.isPunct(",") {
					if err := p.advance(); err != nil {
						return nil, p.wrap(err)
					}
				}
				continue
			}
			*p.lex = save
			p.tok = saveTok
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		positional = append(positional, val)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
		}
	}
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	return p.newExpr(lang.Expr{
		Kind:           lang.ExprCall,
		Callee:         callee,
		PositionalArgs: positional,
		NamedArgs:      named,
		CallSpan:       callSpan,
	}), nil
}

func (p *parser) parsePrimary() (*lang.Expr, error) {
	switch {
	case p.tok.kind == tokNumber:
		n := p.tok.num
		sp := p.span(p.tok.start, p.tok.end)
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		return p.newExpr(lang.Expr{Kind: lang.ExprNumber, NumberVal: n, NumberSpan: sp}), nil

	case p.tok.kind == tokString:
		s := p.tok.text
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		return p.newExpr(lang.Expr{Kind: lang.ExprString, StringVal: p.arena.AllocString(s)}), nil

	case p.isPunct("("):
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil

	case p.isPunct("["):
		return p.parseArray()

	case p.isPunct("{"):
		return p.parseObject(true)

	case p.tok.kind == tokIdent:
		return p.parseIdentExpr()
	}
	return nil, p.errorf("unexpected token")
}

func (p *parser) parseIdentExpr() (*lang.Expr, error) {
	name := p.tok.text
	varSpan := p.span(p.tok.start, p.tok.end)
	switch name {
	case "null":
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		return p.newExpr(lang.Expr{Kind: lang.ExprNull}), nil
	case "true", "false":
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		return p.newExpr(lang.Expr{Kind: lang.ExprBool, BoolVal: name == "true"}), nil
	case "self":
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		return p.newExpr(lang.Expr{Kind: lang.ExprSelfObj}), nil
	case "super":
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		return p.newExpr(lang.Expr{Kind: superKind}), nil
	case "local":
		return p.parseLocal()
	case "if":
		return p.parseIf()
	case "function":
		return p.parseFunction()
	case "assert":
		return p.parseTopAssert()
	case "error":
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		msg, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return p.newExpr(lang.Expr{Kind: lang.ExprError, Msg: msg}), nil
	case "import", "importstr", "importbin":
		return p.parseImport(name)
	}
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	return p.newExpr(lang.Expr{Kind: lang.ExprVar, VarName: p.intern(name), VarSpan: varSpan}), nil
}

func (p *parser) parseImport(kw string) (*lang.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	if p.tok.kind != tokString {
		return nil, p.errorf("expected string literal after " + kw)
	}
	path := p.tok.text
	sp := p.span(p.tok.start, p.tok.end)
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	kind := lang.ExprImport
	switch kw {
	case "importstr":
		kind = lang.ExprImportStr
	case "importbin":
		kind = lang.ExprImportBin
	}
	return p.newExpr(lang.Expr{Kind: kind, Path: p.arena.AllocString(path), ImportSpan: sp}), nil
}

func (p *parser) parseLocal() (*lang.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	var binds []lang.Bind
	for {
		b, err := p.parseBind()
		if err != nil {
			return nil, err
		}
		binds = append(binds, b)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			continue
		}
		break
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	inner, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return p.newExpr(lang.Expr{Kind: lang.ExprLocal, Bindings: binds, Inner: inner}), nil
}

// parseBind parses `name = expr` or the function-sugar form
// `name(params) = expr`, desugaring the latter to `name = function(params) expr`.
func (p *parser) parseBind() (lang.Bind, error) {
	if p.tok.kind != tokIdent || keywords[p.tok.text] {
		return lang.Bind{}, p.errorf("expected a binding name")
	}
	name := p.intern(p.tok.text)
	if err := p.advance(); err != nil {
		return lang.Bind{}, p.wrap(err)
	}
	if p.isPunct("(") {
		params, err := p.parseParams()
		if err != nil {
			return lang.Bind{}, err
		}
		if err := p.expectPunct("="); err != nil {
			return lang.Bind{}, err
		}
		body, err := p.parseExpr(0)
		if err != nil {
			return lang.Bind{}, err
		}
		return lang.Bind{Name: name, Value: p.newExpr(lang.Expr{Kind: lang.ExprFunc, Params: params, Body: body})}, nil
	}
	if err := p.expectPunct("="); err != nil {
		return lang.Bind{}, err
	}
	val, err := p.parseExpr(0)
	if err != nil {
		return lang.Bind{}, err
	}
	return lang.Bind{Name: name, Value: val}, nil
}

func (p *parser) parseParams() (*lang.FuncParams, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	order := []*lang.Str{}
	byName := map[*lang.Str]lang.FuncParam{}
	idx := 0
	for !p.isPunct(")") {
		if p.tok.kind != tokIdent {
			return nil, p.errorf("expected parameter name")
		}
		name := p.intern(p.tok.text)
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		var def *lang.Expr
		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			d, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			def = d
		}
		order = append(order, name)
		byName[name] = lang.FuncParam{Index: idx, Default: def}
		idx++
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
		}
	}
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	return &lang.FuncParams{Order: order, ByName: byName}, nil
}

func (p *parser) parseFunction() (*lang.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return p.newExpr(lang.Expr{Kind: lang.ExprFunc, Params: params, Body: body}), nil
}

func (p *parser) parseIf() (*lang.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	condSpan := p.span(p.tok.start, p.tok.end)
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if !p.isIdent("then") {
		return nil, p.errorf("expected 'then'")
	}
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	then, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	var elseE *lang.Expr
	if p.isIdent("else") {
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		elseE = e
	}
	return p.newExpr(lang.Expr{Kind: lang.ExprIf, Cond: cond, CondSpan: condSpan, Then: then, Else: elseE}), nil
}

// parseTopAssert parses `assert cond [: msg]; rest`, the standalone
// expression-level assert (distinct from an object's own `assert`
// members, handled in parseObject).
func (p *parser) parseTopAssert() (*lang.Expr, error) {
	assertSpan := p.span(p.tok.start, p.tok.end)
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	condSpan := p.span(p.tok.start, p.tok.end)
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	var msg *lang.Expr
	if p.isPunct(":") {
		if err := p.advance(); err != nil {
			return nil, p.wrap(err)
		}
		m, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		msg = m
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	inner, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return p.newExpr(lang.Expr{
		Kind:       lang.ExprAssert,
		AssertNode: &lang.Assert{Span: assertSpan, Cond: cond, CondSpan: condSpan, Msg: msg},
		Inner:      inner,
	}), nil
}

func (p *parser) parseArray() (*lang.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	var items []*lang.Expr
	for !p.isPunct("]") {
		item, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
		}
	}
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	return p.newExpr(lang.Expr{Kind: lang.ExprArray, Items: items}), nil
}

// parseObject parses `{ members }`: comma-separated `local` bindings,
// `assert` clauses, and fields (`name: v`, `name:: v`, `name+: v`, or a
// computed `[e]: v` key). isTop sets the literal's core as a top object;
// parsePrimary passes true for every object literal, nested ones included.
func (p *parser) parseObject(isTop bool) (*lang.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	e := p.newExpr(lang.Expr{Kind: lang.ExprObject, IsTop: isTop})
	for !p.isPunct("}") {
		switch {
		case p.isIdent("local"):
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			b, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			e.Locals = append(e.Locals, b)
		case p.isIdent("assert"):
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
			condSpan := p.span(p.tok.start, p.tok.end)
			cond, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			var msg *lang.Expr
			if p.isPunct(":") {
				if err := p.advance(); err != nil {
					return nil, p.wrap(err)
				}
				m, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				msg = m
			}
			e.Asserts = append(e.Asserts, lang.Assert{Cond: cond, CondSpan: condSpan, Msg: msg})
		default:
			fd, err := p.parseField()
			if err != nil {
				return nil, err
			}
			e.Fields = append(e.Fields, fd)
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, p.wrap(err)
			}
		}
	}
	if err := p.advance(); err != nil {
		return nil, p.wrap(err)
	}
	return e, nil
}

func (p *parser) parseField() (lang.FieldDef, error) {
	var fieldName lang.FieldName
	var nameSpan span.ID
	switch {
	case p.tok.kind == tokIdent:
		fieldName = lang.FieldName{Fixed: p.intern(p.tok.text)}
		nameSpan = p.span(p.tok.start, p.tok.end)
		if err := p.advance(); err != nil {
			return lang.FieldDef{}, p.wrap(err)
		}
	case p.tok.kind == tokString:
		fieldName = lang.FieldName{Fixed: p.intern(p.tok.text)}
		nameSpan = p.span(p.tok.start, p.tok.end)
		if err := p.advance(); err != nil {
			return lang.FieldDef{}, p.wrap(err)
		}
	case p.isPunct("["):
		if err := p.advance(); err != nil {
			return lang.FieldDef{}, p.wrap(err)
		}
		dyn, err := p.parseExpr(0)
		if err != nil {
			return lang.FieldDef{}, err
		}
		if err := p.expectPunct("]"); err != nil {
			return lang.FieldDef{}, err
		}
		fieldName = lang.FieldName{Dyn: dyn}
	default:
		return lang.FieldDef{}, p.errorf("expected field name")
	}

	plus := false
	visibility := lang.VisibilityDefault
	switch {
	case p.isPunct("+:"):
		plus = true
		if err := p.advance(); err != nil {
			return lang.FieldDef{}, p.wrap(err)
		}
	case p.isPunct("::"):
		visibility = lang.VisibilityHidden
		if err := p.advance(); err != nil {
			return lang.FieldDef{}, p.wrap(err)
		}
	case p.isPunct(":"):
		if err := p.advance(); err != nil {
			return lang.FieldDef{}, p.wrap(err)
		}
	default:
		return lang.FieldDef{}, p.errorf("expected ':', '::', or '+:' after field name")
	}

	val, err := p.parseExpr(0)
	if err != nil {
		return lang.FieldDef{}, err
	}
	return lang.FieldDef{Name: fieldName, NameSpan: nameSpan, Plus: plus, Visibility: visibility, Value: val}, nil
}
