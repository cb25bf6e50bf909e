package frontend

// kind classifies one lexical token. The lexer recognizes only the
// surface this package's parser consumes — a scoped-down grammar, not
// the full language's tokenizer.
type kind int

const (
	tokEOF kind = iota
	tokNumber
	tokString
	tokIdent
	tokPunct
)

// token is one lexical unit plus its byte offsets in the source, used to
// build spans for the IR nodes the parser emits.
type token struct {
	kind  kind
	text  string
	num   float64
	start int
	end   int
}

// keywords the parser treats specially rather than as plain identifiers.
var keywords = map[string]bool{
	"local": true, "function": true, "if": true, "then": true, "else": true,
	"self": true, "super": true, "import": true, "importstr": true,
	"importbin": true, "true": true, "false": true, "null": true,
	"error": true, "assert": true, "in": true,
}

// puncts lists multi-character operators the lexer must match greedily
// before falling back to single-character punctuation, longest first.
var puncts = []string{
	"::", "&&", "||", "==", "!=", "<=", ">=", "<<", ">>", "+:",
}
