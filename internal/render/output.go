// Package render presents token streams: highlighted source, a token table,
// YAML and JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"ppscan/internal/lexer"
	"ppscan/internal/srcpos"
)

// Record is one token as written by Table, YAML and JSON.
type Record struct {
	Kind   string `json:"kind" yaml:"kind"`
	Text   string `json:"text" yaml:"text"`
	Offset int    `json:"offset" yaml:"offset"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

// File is the result for one input.
type File struct {
	Path   string   `json:"path" yaml:"path"`
	Tokens []Record `json:"tokens" yaml:"tokens"`
	Error  string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Records converts tokens of buf to records positioned by index.
func Records(toks []lexer.Token, buf []byte, index *srcpos.Index) []Record {
	out := make([]Record, len(toks))
	for i, tok := range toks {
		pos := index.Position(tok.Offset)
		out[i] = Record{
			Kind:   tok.Kind.String(),
			Text:   tok.Text(buf),
			Offset: pos.Offset,
			Line:   pos.Line,
			Column: pos.Column,
		}
	}
	return out
}

// Table writes one token per line as line:column, kind and text.
func Table(w io.Writer, styles *Styles, files []File) error {
	for _, f := range files {
		if len(files) > 1 {
			if _, err := fmt.Fprintf(w, "%s\n", styles.Muted.Render("== "+f.Path)); err != nil {
				return err
			}
		}
		for _, r := range f.Tokens {
			kind, _ := lexer.ParseKind(r.Kind)
			loc := styles.Muted.Render(fmt.Sprintf("%5d:%-4d", r.Line, r.Column))
			label := styles.Kind(kind).Render(fmt.Sprintf("%-12s", r.Kind))
			if _, err := fmt.Fprintf(w, "%s %s %s\n", loc, label, printable(r.Text)); err != nil {
				return err
			}
		}
		if f.Error != "" {
			if _, err := fmt.Fprintf(w, "%s\n", styles.Error.Render(f.Error)); err != nil {
				return err
			}
		}
	}
	return nil
}

// printable quotes text that would break the one-token-per-line layout.
func printable(s string) string {
	for _, r := range s {
		if r < ' ' || r == 0x7f {
			return strconv.Quote(s)
		}
	}
	return s
}

// YAML writes files as a YAML document.
func YAML(w io.Writer, files []File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(files); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// JSON writes files as an indented JSON array.
func JSON(w io.Writer, files []File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(files); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
