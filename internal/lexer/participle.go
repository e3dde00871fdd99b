package lexer

import (
	"errors"
	"fmt"
	"io"

	plexer "github.com/alecthomas/participle/v2/lexer"

	"ppscan/internal/grammar"
	"ppscan/internal/normalize"
	"ppscan/internal/srcpos"
)

// Symbol names of the token types produced by Definition.
var symbolNames = map[Kind]string{
	HeaderName:    "HeaderName",
	Identifier:    "Ident",
	Number:        "Number",
	CharLiteral:   "Char",
	StringLiteral: "String",
	Punctuator:    "Punct",
	Other:         "Other",
}

func tokenType(k Kind) plexer.TokenType { return plexer.TokenType(-2 - int(k)) }

// Definition lets participle grammars consume preprocessing tokens. Input is
// normalized before it is tokenized; token positions refer to the raw input.
type Definition struct {
	g    *grammar.Grammar
	opts []Option
}

var _ plexer.Definition = (*Definition)(nil)

// NewDefinition returns a participle lexer definition over g. A nil grammar
// selects grammar.Default.
func NewDefinition(g *grammar.Grammar, opts ...Option) *Definition {
	return &Definition{g: g, opts: opts}
}

func (d *Definition) Symbols() map[string]plexer.TokenType {
	syms := map[string]plexer.TokenType{"EOF": plexer.EOF}
	for k, name := range symbolNames {
		syms[name] = tokenType(k)
	}
	return syms
}

func (d *Definition) Lex(filename string, r io.Reader) (plexer.Lexer, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	res := normalize.Bytes(raw)
	t, err := New(d.g, res.Text, d.opts...)
	if err != nil {
		return nil, err
	}
	return &participleLexer{t: t, buf: res.Text, index: srcpos.New(filename, raw, res)}, nil
}

type participleLexer struct {
	t     *Tokenizer
	buf   []byte
	index *srcpos.Index
}

func (l *participleLexer) Next() (plexer.Token, error) {
	tok, err := l.t.Next()
	if err == io.EOF {
		return plexer.EOFToken(l.position(len(l.buf))), nil
	}
	if err != nil {
		var pos plexer.Position
		var stall *StallError
		if errors.As(err, &stall) {
			pos = l.position(stall.Offset)
		}
		return plexer.Token{}, &plexer.Error{Msg: err.Error(), Pos: pos}
	}
	return plexer.Token{
		Type:  tokenType(tok.Kind),
		Value: tok.Text(l.buf),
		Pos:   l.position(tok.Offset),
	}, nil
}

func (l *participleLexer) position(off int) plexer.Position {
	p := l.index.Position(off)
	return plexer.Position{
		Filename: p.Filename,
		Offset:   p.Offset,
		Line:     p.Line,
		Column:   p.Column,
	}
}
