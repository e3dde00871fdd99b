// Package lexer splits a normalized buffer into preprocessing tokens using a
// grammar table, skipping whitespace and comments between them.
package lexer

import (
	"errors"
	"fmt"
	"io"

	"ppscan/internal/grammar"
)

// State is the state of a tokenizer's scan loop.
type State uint8

const (
	Scanning State = iota
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "state(?)"
}

// StallError reports input at which no whitespace, comment or token matches.
type StallError struct {
	Offset    int
	Remainder []byte
}

func (e *StallError) Error() string {
	return fmt.Sprintf("failed to tokenize starting at byte offset %d", e.Offset)
}

// HeaderMode selects where header names are recognized.
type HeaderMode uint8

const (
	// Include recognizes header names only where a directive or
	// __has_include expects one.
	Include HeaderMode = iota
	// Always tries header names at every position, as the table does.
	Always
)

func (m HeaderMode) String() string {
	if m == Always {
		return "always"
	}
	return "include"
}

// ParseHeaderMode parses "include" or "always".
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch s {
	case "include", "":
		return Include, nil
	case "always":
		return Always, nil
	}
	return 0, fmt.Errorf("unknown header name mode %q", s)
}

type options struct {
	sinks   []Sink
	headers HeaderMode
}

// Option configures a Tokenizer.
type Option func(*options)

// WithSink adds a sink that observes every consumed span.
func WithSink(s Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s) }
}

// WithHeaderNames sets where header names are recognized.
func WithHeaderNames(m HeaderMode) Option {
	return func(o *options) { o.headers = m }
}

// Tokenizer scans one normalized buffer. It is not safe for concurrent use;
// the grammar it uses may be shared.
type Tokenizer struct {
	g     *grammar.Grammar
	buf   []byte
	pos   int
	state State
	err   error
	opts  options
	skip  *skipper
	line  directive
}

// New returns a tokenizer over buf. A nil grammar selects grammar.Default.
// Header names default to the Include mode.
func New(g *grammar.Grammar, buf []byte, opts ...Option) (*Tokenizer, error) {
	if g == nil {
		g = grammar.Default()
	}
	if !g.Defined(grammar.PreprocessingToken) {
		return nil, errors.New("grammar does not define preprocessing_token")
	}
	skip, err := newSkipper(buf)
	if err != nil {
		return nil, fmt.Errorf("build whitespace scanner: %w", err)
	}
	t := &Tokenizer{g: g, buf: buf, skip: skip}
	for _, opt := range opts {
		opt(&t.opts)
	}
	t.line.reset()
	return t, nil
}

// State returns the current scan state.
func (t *Tokenizer) State() State { return t.state }

// Offset returns the cursor position.
func (t *Tokenizer) Offset() int { return t.pos }

// Next returns the next token. At the end of the buffer it returns io.EOF; if
// no token can be matched it returns a *StallError, and keeps returning it.
func (t *Tokenizer) Next() (Token, error) {
	switch t.state {
	case Done:
		return Token{}, io.EOF
	case Failed:
		return Token{}, t.err
	}
	for {
		if t.pos >= len(t.buf) {
			t.state = Done
			return Token{}, io.EOF
		}
		if sp, ok := t.skip.at(t.pos); ok {
			t.emit(Token{Kind: sp.kind, Offset: t.pos, Len: sp.end - t.pos})
			if sp.newline {
				t.line.reset()
			}
			t.pos = sp.end
			continue
		}

		var mask grammar.Set
		if t.opts.headers == Include && !t.line.wantsHeader() {
			mask = grammar.SetOf(grammar.HeaderName)
		}
		idx, n := t.g.Scan(grammar.PreprocessingToken, t.buf, t.pos, mask)
		if n == 0 {
			t.state = Failed
			t.err = &StallError{Offset: t.pos, Remainder: t.buf[t.pos:]}
			return Token{}, t.err
		}
		tok := Token{Kind: t.classify(idx), Offset: t.pos, Len: n}
		t.pos += n
		t.line.push(tok, t.buf)
		t.emit(tok)
		return tok, nil
	}
}

func (t *Tokenizer) classify(idx int) Kind {
	if ref, ok := t.g.Base(grammar.PreprocessingToken)[idx].(grammar.Ref); ok {
		if k, ok := kindOf[grammar.Entity(ref)]; ok {
			return k
		}
	}
	return Other
}

func (t *Tokenizer) emit(tok Token) {
	for _, s := range t.opts.sinks {
		s.Emit(tok, t.buf[tok.Offset:tok.End()])
	}
}

// Tokenize scans all of buf. On a stall it returns the tokens before the
// stall together with the *StallError. Unless WithHeaderNames(Always) is
// given, header names are only recognized after #include, #import,
// #include_next, __has_include( and a line-initial import; elsewhere
// <a.h> and "a.h" lex as punctuators or string literals.
func Tokenize(g *grammar.Grammar, buf []byte, opts ...Option) ([]Token, error) {
	t, err := New(g, buf, opts...)
	if err != nil {
		return nil, err
	}
	var toks []Token
	for {
		tok, err := t.Next()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
	}
}

// directive tracks the tokens of the current logical line far enough to tell
// whether a header name may follow.
type directive struct {
	count int
	first string
	prev  [2]string
}

func (d *directive) reset() { *d = directive{} }

func (d *directive) push(tok Token, buf []byte) {
	text := ""
	if tok.Kind == Identifier || tok.Kind == Punctuator {
		text = tok.Text(buf)
	}
	if d.count == 0 {
		d.first = text
	}
	d.count++
	d.prev[0], d.prev[1] = d.prev[1], text
}

func (d *directive) wantsHeader() bool {
	switch d.count {
	case 1:
		if d.first == "import" {
			return true
		}
	case 2:
		if d.first == "#" || d.first == "%:" {
			switch d.prev[1] {
			case "include", "import", "include_next":
				return true
			}
		}
	}
	if d.count >= 2 && d.prev[1] == "(" {
		switch d.prev[0] {
		case "__has_include", "__has_include_next":
			return true
		}
	}
	return false
}

// Replay feeds s the spans a Tokenizer would have reported for buf, given the
// tokens it produced: the tokens themselves plus the whitespace and comments
// between them. Bytes after the last token that are neither, such as the
// remainder of a stalled scan, are reported as one Other span.
func Replay(buf []byte, toks []Token, s Sink) error {
	k, err := newSkipper(buf)
	if err != nil {
		return fmt.Errorf("build whitespace scanner: %w", err)
	}
	pos := 0
	gap := func(end int) {
		for pos < end {
			sp, ok := k.at(pos)
			if !ok || sp.end > end {
				s.Emit(Token{Kind: Other, Offset: pos, Len: end - pos}, buf[pos:end])
				pos = end
				return
			}
			s.Emit(Token{Kind: sp.kind, Offset: pos, Len: sp.end - pos}, buf[pos:sp.end])
			pos = sp.end
		}
	}
	for _, tok := range toks {
		if tok.Offset < pos || tok.End() > len(buf) {
			return fmt.Errorf("token at %d does not fit the buffer", tok.Offset)
		}
		gap(tok.Offset)
		s.Emit(tok, buf[tok.Offset:tok.End()])
		pos = tok.End()
	}
	gap(len(buf))
	return nil
}
