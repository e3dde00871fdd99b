package lexer

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppscan/internal/grammar"
)

type lexeme struct {
	Kind Kind
	Text string
}

func lex(t *testing.T, input string, opts ...Option) []lexeme {
	t.Helper()
	toks, err := Tokenize(nil, []byte(input), opts...)
	require.NoError(t, err)
	out := make([]lexeme, len(toks))
	for i, tok := range toks {
		out[i] = lexeme{tok.Kind, tok.Text([]byte(input))}
	}
	return out
}

func TestNextToken(t *testing.T) {
	input := `#include <stdio.h>
#include "local.h"
%:import <x>
int main(void) {
  auto s = u8"héllo" "x"_sfx;
  char c = L'\n';
  x >>= 0x1p-3 + 3.14e+10f; // comment
  a<::>c; /* block
  comment */ y = R"d(raw \n)d";
  #if __has_include(<vector>)
  $ @
}
`
	want := []lexeme{
		{Punctuator, "#"},
		{Identifier, "include"},
		{HeaderName, "<stdio.h>"},
		{Punctuator, "#"},
		{Identifier, "include"},
		{HeaderName, `"local.h"`},
		{Punctuator, "%:"},
		{Identifier, "import"},
		{HeaderName, "<x>"},
		{Identifier, "int"},
		{Identifier, "main"},
		{Punctuator, "("},
		{Identifier, "void"},
		{Punctuator, ")"},
		{Punctuator, "{"},
		{Identifier, "auto"},
		{Identifier, "s"},
		{Punctuator, "="},
		{StringLiteral, `u8"héllo"`},
		{StringLiteral, `"x"_sfx`},
		{Punctuator, ";"},
		{Identifier, "char"},
		{Identifier, "c"},
		{Punctuator, "="},
		{CharLiteral, `L'\n'`},
		{Punctuator, ";"},
		{Identifier, "x"},
		{Punctuator, ">>="},
		{Number, "0x1p-3"},
		{Punctuator, "+"},
		{Number, "3.14e+10f"},
		{Punctuator, ";"},
		{Identifier, "a"},
		{Punctuator, "<"},
		{Punctuator, "::"},
		{Punctuator, ">"},
		{Identifier, "c"},
		{Punctuator, ";"},
		{Identifier, "y"},
		{Punctuator, "="},
		{StringLiteral, `R"d(raw \n)d"`},
		{Punctuator, ";"},
		{Punctuator, "#"},
		{Identifier, "if"},
		{Identifier, "__has_include"},
		{Punctuator, "("},
		{HeaderName, "<vector>"},
		{Punctuator, ")"},
		{Other, "$"},
		{Other, "@"},
		{Punctuator, "}"},
	}
	if diff := cmp.Diff(want, lex(t, input)); diff != "" {
		t.Errorf("tokens (-want +got):\n%s", diff)
	}
}

func TestStandaloneTokens(t *testing.T) {
	tests := []struct {
		input string
		want  []lexeme
	}{
		{">>=", []lexeme{{Punctuator, ">>="}}},
		{"<::>", []lexeme{{Punctuator, "<"}, {Punctuator, "::"}, {Punctuator, ">"}}},
		{"<::x", []lexeme{{Punctuator, "<:"}, {Punctuator, ":"}, {Identifier, "x"}}},
		{"3.14e+10f", []lexeme{{Number, "3.14e+10f"}}},
		{"1..e", []lexeme{{Number, "1..e"}}},
		{"u8'a'", []lexeme{{CharLiteral, "u8'a'"}}},
		{"u8 x", []lexeme{{Identifier, "u8"}, {Identifier, "x"}}},
		{"x+++y", []lexeme{{Identifier, "x"}, {Punctuator, "++"}, {Punctuator, "+"}, {Identifier, "y"}}},
		{"a...b", []lexeme{{Identifier, "a"}, {Punctuator, "..."}, {Identifier, "b"}}},
		{"'unterminated", []lexeme{{Other, "'"}, {Identifier, "unterminated"}}},
		{`"abc"`, []lexeme{{StringLiteral, `"abc"`}}},
		{"a<b>c", []lexeme{{Identifier, "a"}, {Punctuator, "<"}, {Identifier, "b"}, {Punctuator, ">"}, {Identifier, "c"}}},
		{"€", []lexeme{{Other, "€"}}},
		{"notanumber1e+5", []lexeme{{Identifier, "notanumber1e"}, {Punctuator, "+"}, {Number, "5"}}},
		{"and_eq", []lexeme{{Identifier, "and_eq"}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, lex(t, tt.input)); diff != "" {
				t.Errorf("tokens (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHeaderNameContext(t *testing.T) {
	tests := []struct {
		name  string
		input string
		mode  HeaderMode
		want  []lexeme
	}{
		{
			"string outside directive",
			`"abc"`, Include,
			[]lexeme{{StringLiteral, `"abc"`}},
		},
		{
			"always",
			`"abc"`, Always,
			[]lexeme{{HeaderName, `"abc"`}},
		},
		{
			"always angle",
			"a<b>c", Always,
			[]lexeme{{Identifier, "a"}, {HeaderName, "<b>"}, {Identifier, "c"}},
		},
		{
			"comment inside directive",
			"#include /* x\n */ <a.h>", Include,
			[]lexeme{{Punctuator, "#"}, {Identifier, "include"}, {HeaderName, "<a.h>"}},
		},
		{
			"newline ends directive",
			"#include\n<a.h>", Include,
			[]lexeme{
				{Punctuator, "#"}, {Identifier, "include"},
				{Punctuator, "<"}, {Identifier, "a"}, {Punctuator, "."}, {Identifier, "h"}, {Punctuator, ">"},
			},
		},
		{
			"include_next",
			"# include_next <a.h>", Include,
			[]lexeme{{Punctuator, "#"}, {Identifier, "include_next"}, {HeaderName, "<a.h>"}},
		},
		{
			"only the first operand",
			`#include "a.h" "b.h"`, Include,
			[]lexeme{{Punctuator, "#"}, {Identifier, "include"}, {HeaderName, `"a.h"`}, {StringLiteral, `"b.h"`}},
		},
		{
			"not a directive",
			"x # include <a>", Include,
			[]lexeme{
				{Identifier, "x"}, {Punctuator, "#"}, {Identifier, "include"},
				{Punctuator, "<"}, {Identifier, "a"}, {Punctuator, ">"},
			},
		},
		{
			"module import",
			"import <iostream>;", Include,
			[]lexeme{{Identifier, "import"}, {HeaderName, "<iostream>"}, {Punctuator, ";"}},
		},
		{
			"has_include_next",
			`__has_include_next("a.h")`, Include,
			[]lexeme{{Identifier, "__has_include_next"}, {Punctuator, "("}, {HeaderName, `"a.h"`}, {Punctuator, ")"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, lex(t, tt.input, WithHeaderNames(tt.mode))); diff != "" {
				t.Errorf("tokens (-want +got):\n%s", diff)
			}
		})
	}
}

type recorder struct {
	toks []Token
	text strings.Builder
}

func (r *recorder) Emit(tok Token, text []byte) {
	r.toks = append(r.toks, tok)
	r.text.Write(text)
}

func TestRoundTripCoverage(t *testing.T) {
	inputs := []string{
		"",
		"   \t\n",
		"/*a*/   //b\nint x;",
		"x /* never closed",
		"// only a comment",
		"#include <a.h>\r\n#define X(a) a##__VA_ARGS__ \\\n",
		"a\v\fb\r\rc",
		"R\"x(unterminated raw",
		"'\"\\",
		"\x00\xff\xfe",
	}
	for _, in := range inputs {
		rec := &recorder{}
		toks, err := Tokenize(nil, []byte(in), WithSink(rec))
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, in, rec.text.String())

		next := 0
		var emitted []Token
		for _, tok := range rec.toks {
			require.Equal(t, next, tok.Offset, "input %q", in)
			require.Positive(t, tok.Len)
			next = tok.End()
			if tok.Kind != Whitespace && tok.Kind != Comment {
				emitted = append(emitted, tok)
			}
		}
		assert.Equal(t, len(in), next)
		if diff := cmp.Diff(toks, emitted); diff != "" {
			t.Errorf("input %q: sink and result disagree (-result +sink):\n%s", in, diff)
		}
	}
}

func TestSinkSeesSkippedSpans(t *testing.T) {
	var kinds []Kind
	var texts []string
	sink := SinkFunc(func(tok Token, text []byte) {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, string(text))
	})
	_, err := Tokenize(nil, []byte("a /*c*/ b//d\n"), WithSink(sink))
	require.NoError(t, err)
	assert.Equal(t, []Kind{Identifier, Whitespace, Comment, Whitespace, Identifier, Comment, Whitespace}, kinds)
	assert.Equal(t, []string{"a", " ", "/*c*/", " ", "b", "//d", "\n"}, texts)
}

func TestStall(t *testing.T) {
	g := grammar.MustParse("idents", `
		preprocessing_token := identifier ;
		identifier := nondigit | identifier nondigit ;
	`)
	tz, err := New(g, []byte("ab 1 cd"))
	require.NoError(t, err)

	tok, err := tz.Next()
	require.NoError(t, err)
	assert.Equal(t, Token{Kind: Identifier, Offset: 0, Len: 2}, tok)
	assert.Equal(t, Scanning, tz.State())

	_, err = tz.Next()
	var stall *StallError
	require.True(t, errors.As(err, &stall))
	assert.Equal(t, 3, stall.Offset)
	assert.Equal(t, "1 cd", string(stall.Remainder))
	assert.EqualError(t, err, "failed to tokenize starting at byte offset 3")
	assert.Equal(t, Failed, tz.State())
	assert.Equal(t, 3, tz.Offset())

	_, again := tz.Next()
	assert.Same(t, err, again)

	toks, err := Tokenize(g, []byte("ab 1 cd"))
	assert.Len(t, toks, 1)
	assert.Error(t, err)
}

func TestTermination(t *testing.T) {
	in := []byte(strings.Repeat("x = 1'000 + 'a' /* */ <:::> ?? \\ \n", 200))
	tz, err := New(nil, in)
	require.NoError(t, err)
	last := -1
	for {
		_, err := tz.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Greater(t, tz.Offset(), last)
		last = tz.Offset()
	}
	assert.Equal(t, Done, tz.State())
	assert.Equal(t, len(in), tz.Offset())
	_, err = tz.Next()
	assert.Equal(t, io.EOF, err)
}

func TestNewRequiresTokenRule(t *testing.T) {
	g := grammar.MustParse("partial", `identifier := nondigit ;`)
	_, err := New(g, []byte("x"))
	assert.Error(t, err)
}

func TestKindNames(t *testing.T) {
	for k := HeaderName; k <= Comment; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("keyword")
	assert.False(t, ok)

	m, err := ParseHeaderMode("always")
	require.NoError(t, err)
	assert.Equal(t, Always, m)
	_, err = ParseHeaderMode("never")
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	in := []byte("a /* c */ b // d\n  \"s\" ")
	live := &recorder{}
	toks, err := Tokenize(nil, in, WithSink(live))
	require.NoError(t, err)

	replayed := &recorder{}
	require.NoError(t, Replay(in, toks, replayed))
	if diff := cmp.Diff(live.toks, replayed.toks); diff != "" {
		t.Errorf("replay (-live +replayed):\n%s", diff)
	}
	assert.Equal(t, string(in), replayed.text.String())
}

func TestReplayStalledRemainder(t *testing.T) {
	in := []byte("ab 1 cd")
	rec := &recorder{}
	require.NoError(t, Replay(in, []Token{{Kind: Identifier, Offset: 0, Len: 2}}, rec))
	assert.Equal(t, []Token{
		{Kind: Identifier, Offset: 0, Len: 2},
		{Kind: Whitespace, Offset: 2, Len: 1},
		{Kind: Other, Offset: 3, Len: 4},
	}, rec.toks)

	assert.Error(t, Replay(in, []Token{{Offset: 5, Len: 9}}, rec))
}
