package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"ppscan/internal/lexer"
)

// Color palette
var (
	ColorHeader  = lipgloss.Color("#F59E0B") // Amber
	ColorIdent   = lipgloss.Color("#F8FAFC") // Slate 50
	ColorNumber  = lipgloss.Color("#06B6D4") // Cyan
	ColorString  = lipgloss.Color("#10B981") // Emerald
	ColorPunct   = lipgloss.Color("#8B5CF6") // Violet
	ColorOther   = lipgloss.Color("#EF4444") // Red
	ColorComment = lipgloss.Color("#6B7280") // Gray
	ColorMuted   = lipgloss.Color("#64748B") // Slate 500
)

// NewRenderer returns a renderer for w. color is "always", "never" or
// "auto"; auto follows the terminal and the NO_COLOR / CLICOLOR_FORCE
// environment variables.
func NewRenderer(w io.Writer, color string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch color {
	case "never":
		r.SetColorProfile(termenv.Ascii)
	case "always":
		r.SetColorProfile(termenv.ANSI256)
	default:
		r.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
	}
	return r
}

// Styles holds one style per token kind.
type Styles struct {
	kinds [lexer.Comment + 1]lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
}

// NewStyles builds the token styles on r.
func NewStyles(r *lipgloss.Renderer) *Styles {
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	s := &Styles{
		Muted: base.Foreground(ColorMuted),
		Error: base.Foreground(ColorOther).Bold(true),
	}
	s.kinds[lexer.HeaderName] = base.Foreground(ColorHeader).Underline(true)
	s.kinds[lexer.Identifier] = base.Foreground(ColorIdent)
	s.kinds[lexer.Number] = base.Foreground(ColorNumber)
	s.kinds[lexer.CharLiteral] = base.Foreground(ColorString)
	s.kinds[lexer.StringLiteral] = base.Foreground(ColorString)
	s.kinds[lexer.Punctuator] = base.Foreground(ColorPunct).Bold(true)
	s.kinds[lexer.Other] = base.Foreground(ColorOther).Reverse(true)
	s.kinds[lexer.Whitespace] = base
	s.kinds[lexer.Comment] = base.Foreground(ColorComment).Italic(true)
	return s
}

// Kind returns the style for tokens of kind k.
func (s *Styles) Kind(k lexer.Kind) lipgloss.Style {
	if int(k) < len(s.kinds) {
		return s.kinds[k]
	}
	return s.kinds[lexer.Other]
}
