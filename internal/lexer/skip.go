package lexer

import (
	"bytes"
	"sync"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// span is one run of whitespace or one comment.
type span struct {
	kind    Kind
	end     int
	newline bool
}

var skipLexer = sync.OnceValues(func() (*lexmachine.Lexer, error) {
	l := lexmachine.NewLexer()
	// \v and \f are written as the raw bytes.
	l.Add([]byte("[ \t\n\r\f\v]+"), whitespace)
	l.Add([]byte(`//[^\n\r]*`), lineComment)
	l.Add([]byte(`/\*`), blockComment)
	if err := l.Compile(); err != nil {
		return nil, err
	}
	return l, nil
})

func whitespace(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return span{
		kind:    Whitespace,
		end:     s.TC,
		newline: bytes.ContainsAny(m.Bytes, "\n\r"),
	}, nil
}

func lineComment(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return span{kind: Comment, end: s.TC}, nil
}

// blockComment runs to the first "*/", or to the end of the buffer when the
// comment is not closed.
func blockComment(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	end := len(s.Text)
	if i := bytes.Index(s.Text[s.TC:], []byte("*/")); i >= 0 {
		end = s.TC + i + 2
	}
	s.TC = end
	return span{kind: Comment, end: end}, nil
}

// skipper matches whitespace and comments at arbitrary offsets of one buffer.
type skipper struct {
	scan *lexmachine.Scanner
}

func newSkipper(buf []byte) (*skipper, error) {
	l, err := skipLexer()
	if err != nil {
		return nil, err
	}
	scan, err := l.Scanner(buf)
	if err != nil {
		return nil, err
	}
	return &skipper{scan: scan}, nil
}

// at returns the whitespace run or comment starting at pos. ok is false when
// neither starts there.
func (k *skipper) at(pos int) (sp span, ok bool) {
	if pos >= len(k.scan.Text) {
		return span{}, false
	}
	k.scan.TC = pos
	tok, err, eos := k.scan.Next()
	if err != nil || eos {
		return span{}, false
	}
	sp, ok = tok.(span)
	return sp, ok && sp.end > pos
}
