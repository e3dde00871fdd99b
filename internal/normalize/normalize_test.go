package normalize

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "int x;\n", "int x;\n"},
		{"all trigraphs", "??= ??/ ??' ??( ??) ??! ??< ??> ??-", `# \ ^ [ ] | { } ~`},
		{"not a trigraph", "??x ?? ?", "??x ?? ?"},
		{"triple question mark", "???=", "?#"},
		{"trigraph at end", "a??", "a??"},
		{"splice lf", "a\\\nb", "ab"},
		{"splice crlf", "a\\\r\nb", "ab"},
		{"splice cr", "a\\\rb", "ab"},
		{"double splice", "a\\\n\\\nb", "ab"},
		{"backslash not before newline", `a\b`, `a\b`},
		{"trailing backslash", "a\\", "a\\"},
		{"trigraph backslash splices", "#define X 1 ??/\n+ 2", "#define X 1 + 2"},
		{"trigraph backslash crlf", "a??/\r\nb", "ab"},
		{"raw string keeps trigraph", `R"(??=)" ??=`, `R"(??=)" #`},
		{"raw string keeps splice", "R\"(a\\\nb)\"\\\nc", "R\"(a\\\nb)\"c"},
		{"prefixed raw", `u8R"x(??<)x"`, `u8R"x(??<)x"`},
		{"identifier ending in R", `FOOR"(??=)"`, `FOOR"(#)"`},
		{"prefix inside identifier", `xuR"(??=)"`, `xuR"(#)"`},
		{"bad delimiter", `R"a b(??=)a b"`, `R"a b(#)a b"`},
		{"mismatched closer", `R"ab(x)a"??=)ab"`, `R"ab(x)a"??=)ab"`},
		{"unterminated raw", `R"q(??= never closed`, `R"q(??= never closed`},
		{"no open paren", `R"abc`, `R"abc`},
		{"splice inside trigraph", "??\\\n=", "#"},
		{"splice between question marks", "?\\\n?=", "#"},
		{"splice forms trigraph splice", "??\\\n/\nx", "x"},
		{"splice forms splice", "a\\\\\n\nb", "ab"},
		{"splice in raw introducer", "R\\\n\"(??=)\"", `R"(#)"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, String(tt.in)); diff != "" {
				t.Errorf("String(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestTrigraphIdempotent(t *testing.T) {
	inputs := []string{
		"??=define ARR(x) x??(0??) ??!??! ??-x",
		"????==??//??'",
		`s = "??<??>"; R"d(??=)d" ??=`,
		"a ??/ b",
		"??\\\n=",
		"?\\\n?=",
		"??\\\n/\n",
		"\\\\\n\n",
		"x??\\\r\n?\\\n??/\\\n\n",
	}
	for _, in := range inputs {
		once := Bytes([]byte(in)).Text
		twice := Bytes(once).Text
		assert.Equal(t, string(once), string(twice), "input %q", in)
	}
}

func TestSpliceInvariant(t *testing.T) {
	for _, nl := range []string{"\n", "\r\n", "\r"} {
		got := String("a\\" + nl + " b")
		assert.Equal(t, "a b", got, "newline %q", nl)
	}
}

func TestRawStringContainment(t *testing.T) {
	in := `x = R"XY(a"??=b)XY"; y = '??=';`
	got := String(in)
	assert.Contains(t, got, `R"XY(a"??=b)XY"`)
	assert.True(t, strings.HasSuffix(got, `y = '#';`), got)
}

func TestRawStringDelimiterLimit(t *testing.T) {
	ok := `R"` + strings.Repeat("d", MaxDelimiter) + `(??=)` + strings.Repeat("d", MaxDelimiter) + `"`
	assert.Equal(t, ok, String(ok))

	long := `R"` + strings.Repeat("d", MaxDelimiter+1) + `(??=)"`
	assert.Contains(t, String(long), "(#)")
}

func TestNeverLonger(t *testing.T) {
	inputs := []string{"", "??=??=", "\\\n\\\r\n", `R"(`, "plain text", "??/\r\n??/"}
	for _, in := range inputs {
		assert.LessOrEqual(t, len(String(in)), len(in), "input %q", in)
	}
}

func TestOrigin(t *testing.T) {
	raw := "a??=b\\\nc\\\r\nd"
	res := Bytes([]byte(raw))
	require.Equal(t, "a#bcd", string(res.Text))

	want := []int{0, 1, 4, 7, 11, 12}
	for off, w := range want {
		assert.Equal(t, w, res.Origin(off), "offset %d", off)
	}
	for off := 0; off < len(res.Text); off++ {
		if c := res.Text[off]; c != '#' {
			assert.Equal(t, c, raw[res.Origin(off)], "offset %d", off)
		}
	}
}

func TestOriginAcrossPasses(t *testing.T) {
	raw := "a??\\\n=b"
	res := Bytes([]byte(raw))
	require.Equal(t, "a#b", string(res.Text))
	assert.Equal(t, 0, res.Origin(0))
	assert.Equal(t, 1, res.Origin(1))
	assert.Equal(t, 6, res.Origin(2))
	assert.Equal(t, byte('b'), raw[res.Origin(2)])
}

func TestOriginWithoutChanges(t *testing.T) {
	res := Bytes([]byte("abc"))
	for off := 0; off <= 3; off++ {
		assert.Equal(t, off, res.Origin(off))
	}
}

func TestRawStringEnd(t *testing.T) {
	tests := []struct {
		in   string
		pos  int
		want int
	}{
		{`R"(x)"`, 0, 6},
		{`R"ab(x)ab" tail`, 0, 10},
		{`uR"(x)"`, 1, 7},
		{`R"ab(x)`, 0, 7},
		{`R(x)`, 0, 0},
		{`R"a\b(x)a\b"`, 0, 0},
		{`Q"(x)"`, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RawStringEnd([]byte(tt.in), tt.pos), "input %q", tt.in)
	}
}
