package lexer

import "ppscan/internal/grammar"

// Kind classifies a token.
type Kind uint8

const (
	HeaderName Kind = iota
	Identifier
	Number
	CharLiteral
	StringLiteral
	Punctuator
	Other

	// Whitespace and Comment spans are reported to sinks only.
	Whitespace
	Comment
)

var kindNames = [...]string{
	HeaderName:    "header-name",
	Identifier:    "identifier",
	Number:        "number",
	CharLiteral:   "char",
	StringLiteral: "string",
	Punctuator:    "punctuator",
	Other:         "other",
	Whitespace:    "whitespace",
	Comment:       "comment",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(?)"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// kindOf maps the entities referenced by preprocessing_token to token kinds.
var kindOf = map[grammar.Entity]Kind{
	grammar.HeaderName:             HeaderName,
	grammar.Identifier:             Identifier,
	grammar.PPNumber:               Number,
	grammar.CharacterLiteral:       CharLiteral,
	grammar.StringLiteral:          StringLiteral,
	grammar.PreprocessingOpOrPunc:  Punctuator,
	grammar.NonWhitespaceCharacter: Other,
}

// Token is a span of the normalized buffer.
type Token struct {
	Kind   Kind
	Offset int
	Len    int
}

// End returns the offset just past the token.
func (t Token) End() int { return t.Offset + t.Len }

// Text returns the token's bytes in buf.
func (t Token) Text(buf []byte) string { return string(buf[t.Offset:t.End()]) }

// Sink observes every span the tokenizer consumes, skipped whitespace and
// comments included, in order.
type Sink interface {
	Emit(tok Token, text []byte)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tok Token, text []byte)

func (f SinkFunc) Emit(tok Token, text []byte) { f(tok, text) }
