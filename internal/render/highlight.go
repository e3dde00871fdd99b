package render

import (
	"bytes"
	"io"

	"ppscan/internal/lexer"
)

// Highlighter is a lexer.Sink reprinting the consumed text with each token
// styled by kind.
type Highlighter struct {
	w      io.Writer
	styles *Styles
	err    error
}

var _ lexer.Sink = (*Highlighter)(nil)

// NewHighlighter writes highlighted source to w.
func NewHighlighter(w io.Writer, styles *Styles) *Highlighter {
	return &Highlighter{w: w, styles: styles}
}

func (h *Highlighter) Emit(tok lexer.Token, text []byte) {
	if h.err != nil {
		return
	}
	if tok.Kind == lexer.Whitespace {
		_, h.err = h.w.Write(text)
		return
	}
	style := h.styles.Kind(tok.Kind)
	// Styles are applied line by line so that multi-line comments and raw
	// strings are not padded into a block.
	for i, line := range bytes.Split(text, []byte{'\n'}) {
		if i > 0 {
			if _, h.err = io.WriteString(h.w, "\n"); h.err != nil {
				return
			}
		}
		if len(line) == 0 {
			continue
		}
		if _, h.err = io.WriteString(h.w, style.Render(string(line))); h.err != nil {
			return
		}
	}
}

// Err returns the first write error.
func (h *Highlighter) Err() error { return h.err }
