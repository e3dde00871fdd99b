// Package normalize implements translation phase 1: trigraph replacement,
// backslash-newline splicing and raw string literal pass-through.
package normalize

import "sort"

// trigraphs maps the three bytes of a trigraph, packed big-endian into the low
// 24 bits of a key, to the character it stands for.
var trigraphs = map[uint32]byte{
	pack('?', '?', '='): '#',
	pack('?', '?', '/'): '\\',
	pack('?', '?', '\''): '^',
	pack('?', '?', '('): '[',
	pack('?', '?', ')'): ']',
	pack('?', '?', '!'): '|',
	pack('?', '?', '<'): '{',
	pack('?', '?', '>'): '}',
	pack('?', '?', '-'): '~',
}

// MaxDelimiter is the longest raw string delimiter accepted.
const MaxDelimiter = 16

func pack(a, b, c byte) uint32 { return uint32(a)<<16 | uint32(b)<<8 | uint32(c) }

// shift records that from normalized offset At onwards, raw offsets are
// Delta bytes ahead.
type shift struct {
	At    int
	Delta int
}

// Result is the normalized text of one source file.
type Result struct {
	Text []byte
	// passes holds the shifts of every pass that changed its input, in order.
	passes [][]shift
}

// Origin maps an offset into Text back to the offset in the raw input it was
// produced from. Offsets past the end map to the end of the raw input.
func (r *Result) Origin(off int) int {
	for i := len(r.passes) - 1; i >= 0; i-- {
		off = origin(r.passes[i], off)
	}
	return off
}

func origin(shifts []shift, off int) int {
	i := sort.Search(len(shifts), func(i int) bool { return shifts[i].At > off })
	if i == 0 {
		return off
	}
	return off + shifts[i-1].Delta
}

// Bytes normalizes src. It never fails: malformed trigraphs, stray
// backslashes and unterminated raw strings are copied through.
//
// Removing a splice can bring together the pieces of a trigraph or of another
// splice. Passes are repeated until one changes nothing, so the result
// normalizes to itself.
func Bytes(src []byte) *Result {
	res := &Result{Text: src}
	for {
		n := &normalizer{src: res.Text, out: make([]byte, 0, len(res.Text))}
		n.run()
		res.Text = n.out
		if len(n.shifts) == 0 {
			return res
		}
		res.passes = append(res.passes, n.shifts)
	}
}

// String is Bytes for string input, returning only the text.
func String(src string) string {
	return string(Bytes([]byte(src)).Text)
}

type normalizer struct {
	src    []byte
	out    []byte
	pos    int
	delta  int
	shifts []shift
}

func (n *normalizer) run() {
	for n.pos < len(n.src) {
		switch {
		case n.trigraph():
		case n.splice():
		case n.rawString():
		default:
			n.out = append(n.out, n.src[n.pos])
			n.pos++
		}
	}
}

// consumed advances the input by in bytes after emit bytes were appended and
// records the offset shift when in > emit.
func (n *normalizer) consumed(in, emit int) {
	n.pos += in
	if in == emit {
		return
	}
	n.delta += in - emit
	at := len(n.out)
	if k := len(n.shifts); k > 0 && n.shifts[k-1].At == at {
		n.shifts[k-1].Delta = n.delta
		return
	}
	n.shifts = append(n.shifts, shift{At: at, Delta: n.delta})
}

func (n *normalizer) trigraph() bool {
	if n.pos+2 >= len(n.src) || n.src[n.pos] != '?' || n.src[n.pos+1] != '?' {
		return false
	}
	c, ok := trigraphs[pack('?', '?', n.src[n.pos+2])]
	if !ok {
		return false
	}
	if c == '\\' {
		// ??/ followed by a newline splices like a plain backslash.
		if nl := newlineAt(n.src, n.pos+3); nl > 0 {
			n.consumed(3+nl, 0)
			return true
		}
	}
	n.out = append(n.out, c)
	n.consumed(3, 1)
	return true
}

func (n *normalizer) splice() bool {
	if n.src[n.pos] != '\\' {
		return false
	}
	nl := newlineAt(n.src, n.pos+1)
	if nl == 0 {
		return false
	}
	n.consumed(1+nl, 0)
	return true
}

// newlineAt returns the length of the newline starting at i: 2 for CRLF, 1 for
// LF or a bare CR, 0 otherwise.
func newlineAt(b []byte, i int) int {
	if i >= len(b) {
		return 0
	}
	switch b[i] {
	case '\n':
		return 1
	case '\r':
		if i+1 < len(b) && b[i+1] == '\n' {
			return 2
		}
		return 1
	}
	return 0
}

func (n *normalizer) rawString() bool {
	if n.src[n.pos] != 'R' || !rawPrefixOK(n.out) {
		return false
	}
	end := RawStringEnd(n.src, n.pos)
	if end == 0 {
		return false
	}
	n.out = append(n.out, n.src[n.pos:end]...)
	n.pos = end
	return true
}

// rawPrefixOK reports whether an R written after out would begin a raw string
// literal rather than continue an identifier.
func rawPrefixOK(out []byte) bool {
	k := len(out)
	for _, p := range [...]string{"u8", "u", "U", "L"} {
		if k >= len(p) && string(out[k-len(p):]) == p {
			return k == len(p) || !isIdentByte(out[k-len(p)-1])
		}
	}
	return k == 0 || !isIdentByte(out[k-1])
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// RawStringEnd matches R"delim( ... )delim" starting at b[pos] and returns the
// offset just past the literal, or 0 if no raw string introducer starts at pos.
// A literal without its closing sequence runs to the end of b.
func RawStringEnd(b []byte, pos int) int {
	if pos+1 >= len(b) || b[pos] != 'R' || b[pos+1] != '"' {
		return 0
	}
	i := pos + 2
	for ; i < len(b) && b[i] != '('; i++ {
		if !isDelimByte(b[i]) || i-pos-2 == MaxDelimiter {
			return 0
		}
	}
	if i >= len(b) {
		return 0
	}
	delim := b[pos+2 : i]
	for j := i + 1; j < len(b); j++ {
		if b[j] != ')' {
			continue
		}
		k := j + 1 + len(delim)
		if k < len(b) && string(b[j+1:k]) == string(delim) && b[k] == '"' {
			return k + 1
		}
	}
	return len(b)
}

func isDelimByte(c byte) bool {
	switch c {
	case ' ', '(', ')', '\\', '\t', '\v', '\f', '\n', '\r', '"':
		return false
	}
	return true
}
