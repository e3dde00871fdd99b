package grammar

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"ppscan/internal/normalize"
)

func (m *matcher) leaf(e Entity, pos int) int {
	buf := m.buf
	c := buf[pos]
	switch e {
	case Digit:
		return bool1(c >= '0' && c <= '9')
	case NonzeroDigit:
		return bool1(c >= '1' && c <= '9')
	case OctalDigit:
		return bool1(c >= '0' && c <= '7')
	case HexadecimalDigit:
		return bool1(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F')
	case Nondigit:
		return nondigit(buf, pos)
	case Sign:
		return bool1(c == '+' || c == '-')
	case HChar:
		return bool1(!isNewline(c) && c != '>')
	case QChar:
		return bool1(!isNewline(c) && c != '"')
	case BasicCChar:
		return bool1(!isNewline(c) && c != '\'' && c != '\\')
	case BasicSChar:
		return bool1(!isNewline(c) && c != '"' && c != '\\')
	case SimpleEscapeChar:
		switch c {
		case '\'', '"', '?', '\\', 'a', 'b', 'f', 'n', 'r', 't', 'v':
			return 1
		}
	case PreprocessingOpOrPunc:
		return m.g.punct.Match(buf, pos)
	case RawString:
		if end := normalize.RawStringEnd(buf, pos); end > 0 {
			return end - pos
		}
	case NonWhitespaceCharacter:
		if IsSpace(c) {
			return 0
		}
		if _, size := utf8.DecodeRune(buf[pos:]); size > 1 {
			return size
		}
		return 1
	}
	return 0
}

func bool1(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

func isNewline(c byte) bool { return c == '\n' || c == '\r' }

// IsSpace reports whether c is one of the whitespace characters the
// tokenizer skips.
func IsSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// nondigit accepts ASCII letters, the underscore and any UTF-8 encoded letter.
func nondigit(buf []byte, pos int) int {
	c := buf[pos]
	if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return 1
	}
	if c < utf8.RuneSelf {
		return 0
	}
	r, size := utf8.DecodeRune(buf[pos:])
	if r != utf8.RuneError && unicode.IsLetter(r) {
		return size
	}
	return 0
}

// Punctuators matches operators and punctuators by longest match.
type Punctuators struct {
	list []string
	// index of "<:" in list, or -1
	digraph int
}

var defaultPunctuators = NewPunctuators([]string{
	"{", "}", "[", "]", "#", "##", "(", ")",
	"<:", ":>", "<%", "%>", "%:", "%:%:",
	";", ":", "...",
	"new", "delete", "?", "::", ".", ".*", "->", "->*", "~",
	"!", "+", "-", "*", "/", "%", "^", "&", "|",
	"=", "+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=",
	"==", "!=", "<", ">", "<=", ">=", "<=>", "&&", "||",
	"<<", ">>", "<<=", ">>=", "++", "--", ",",
	"and", "and_eq", "bitand", "bitor", "compl", "not", "not_eq",
	"or", "or_eq", "xor", "xor_eq",
})

// NewPunctuators sorts ps longest first, keeping the given order among
// punctuators of equal length.
func NewPunctuators(ps []string) *Punctuators {
	list := append([]string(nil), ps...)
	sort.SliceStable(list, func(i, j int) bool { return len(list[i]) > len(list[j]) })
	p := &Punctuators{list: list, digraph: -1}
	for i, s := range list {
		if s == "<:" {
			p.digraph = i
		}
	}
	return p
}

// List returns the punctuators in matching order.
func (p *Punctuators) List() []string { return append([]string(nil), p.list...) }

// Match returns the length of the longest punctuator at buf[pos:], or 0.
//
// "<:" is not taken when it is followed by ':' and then ':' or '>'; the '<'
// then stands alone so that "<::>" does not start with a digraph.
func (p *Punctuators) Match(buf []byte, pos int) int {
	rest := buf[pos:]
	for i, s := range p.list {
		if len(s) > len(rest) || string(rest[:len(s)]) != s {
			continue
		}
		if i == p.digraph && len(rest) > 3 && rest[2] == ':' && (rest[3] == ':' || rest[3] == '>') {
			continue
		}
		return len(s)
	}
	return 0
}
