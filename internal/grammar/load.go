package grammar

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

//go:embed cpp.grammar
var defaultSource string

type grammarFile struct {
	Rules []*ruleDecl `parser:"@@*"`
}

type ruleDecl struct {
	Pos  lexer.Position
	Name string     `parser:"@Ident ':='"`
	Alts []*altDecl `parser:"@@ ( '|' @@ )* ';'"`
}

type altDecl struct {
	Pos   lexer.Position
	Elems []*elemDecl `parser:"@@+"`
}

type elemDecl struct {
	Pos      lexer.Position
	Char     *string `parser:"( @Char"`
	Str      *string `parser:"| @String"`
	Ref      *string `parser:"| @Ident )"`
	Optional bool    `parser:"@'?'?"`
}

var grammarLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Char", Pattern: `'(\\.|[^'\\])'`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Punct", Pattern: `:=|[|?;]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[grammarFile](
	participle.Lexer(grammarLexer),
	participle.Elide("Comment", "Whitespace"),
)

// LoadError reports an invalid grammar.
type LoadError struct {
	Pos lexer.Position
	Msg string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func loadErrorf(pos lexer.Position, format string, args ...any) *LoadError {
	return &LoadError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

var (
	defaultOnce    sync.Once
	defaultGrammar *Grammar
)

// Default returns the built-in preprocessing-token grammar. It is parsed once
// and shared.
func Default() *Grammar {
	defaultOnce.Do(func() {
		defaultGrammar = MustParse("cpp.grammar", defaultSource)
	})
	return defaultGrammar
}

// DefaultSource returns the text of the built-in grammar.
func DefaultSource() string { return defaultSource }

// MustParse is Parse that panics on error.
func MustParse(name, src string) *Grammar {
	g, err := Parse(name, src)
	if err != nil {
		panic(err)
	}
	return g
}

// Parse builds a grammar from its textual form.
func Parse(name, src string) (*Grammar, error) {
	file, err := parser.ParseString(name, src)
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}
	g := &Grammar{punct: defaultPunctuators}
	sum := sha256.Sum256([]byte(src))
	g.fingerprint = hex.EncodeToString(sum[:8])

	for _, decl := range file.Rules {
		e, ok := Lookup(decl.Name)
		switch {
		case !ok:
			return nil, loadErrorf(decl.Pos, "unknown entity %q", decl.Name)
		case e.IsLeaf():
			return nil, loadErrorf(decl.Pos, "%s is primitive and cannot have rules", e)
		case g.defined.Has(e):
			return nil, loadErrorf(decl.Pos, "duplicate rule for %s", e)
		}
		g.defined = g.defined.With(e)

		r := &g.rules[e]
		for _, ad := range decl.Alts {
			alt, err := buildAlt(ad)
			if err != nil {
				return nil, err
			}
			if rest, ok := continuation(e, alt); ok {
				if len(rest) == 0 {
					return nil, loadErrorf(ad.Pos, "%s refers only to itself", e)
				}
				if allOptional(rest) {
					return nil, loadErrorf(ad.Pos, "continuation of %s can match nothing", e)
				}
				r.cont = append(r.cont, rest)
				continue
			}
			r.base = append(r.base, alt)
		}
		if len(r.base) == 0 {
			return nil, loadErrorf(decl.Pos, "%s has no non-recursive alternative", e)
		}
	}
	if err := g.validate(file); err != nil {
		return nil, err
	}
	return g, nil
}

func buildAlt(ad *altDecl) (Alternative, error) {
	seq := make(Seq, 0, len(ad.Elems))
	for _, ed := range ad.Elems {
		term, err := buildTerm(ed)
		if err != nil {
			return nil, err
		}
		seq = append(seq, Elem{Term: term, Optional: ed.Optional})
	}
	if allOptional(seq) {
		return nil, loadErrorf(ad.Pos, "alternative %s can match nothing", seq)
	}
	if len(seq) == 1 {
		return seq[0].Term, nil
	}
	return seq, nil
}

func buildTerm(ed *elemDecl) (Term, error) {
	switch {
	case ed.Char != nil:
		s, err := strconv.Unquote(*ed.Char)
		if err != nil || len(s) != 1 {
			return nil, loadErrorf(ed.Pos, "bad character %s", *ed.Char)
		}
		return Char(s[0]), nil
	case ed.Str != nil:
		s, err := strconv.Unquote(*ed.Str)
		if err != nil || s == "" {
			return nil, loadErrorf(ed.Pos, "bad string %s", *ed.Str)
		}
		return Literal(s), nil
	default:
		e, ok := Lookup(*ed.Ref)
		if !ok {
			return nil, loadErrorf(ed.Pos, "unknown entity %q", *ed.Ref)
		}
		return Ref(e), nil
	}
}

// continuation reports whether alt is a left-recursive alternative of e and
// returns the elements following the self reference.
func continuation(e Entity, alt Alternative) (Seq, bool) {
	switch a := alt.(type) {
	case Ref:
		if Entity(a) == e {
			return Seq{}, true
		}
	case Seq:
		if r, ok := a[0].Term.(Ref); ok && Entity(r) == e && !a[0].Optional {
			return a[1:], true
		}
	}
	return nil, false
}

func allOptional(s Seq) bool {
	for _, el := range s {
		if !el.Optional {
			return false
		}
	}
	return true
}

func (g *Grammar) validate(file *grammarFile) error {
	for _, decl := range file.Rules {
		e, _ := Lookup(decl.Name)
		for _, alt := range g.rules[e].alternatives() {
			for _, ref := range refs(alt) {
				if !ref.IsLeaf() && !g.defined.Has(ref) {
					return loadErrorf(decl.Pos, "%s refers to undefined entity %s", e, ref)
				}
			}
		}
	}
	for _, decl := range file.Rules {
		e, _ := Lookup(decl.Name)
		if path := g.leftCycle(e); path != nil {
			return loadErrorf(decl.Pos, "indirect left recursion: %v", path)
		}
	}
	return nil
}

// leftCycle looks for a chain of leading references that leads from start
// back to start through at least one other entity.
func (g *Grammar) leftCycle(start Entity) []Entity {
	var visited Set
	var walk func(e Entity, path []Entity) []Entity
	walk = func(e Entity, path []Entity) []Entity {
		for _, alt := range g.rules[e].base {
			for _, next := range leading(alt) {
				if next == start {
					return append(path, next)
				}
				if next.IsLeaf() || visited.Has(next) {
					continue
				}
				visited = visited.With(next)
				if p := walk(next, append(path, next)); p != nil {
					return p
				}
			}
		}
		return nil
	}
	return walk(start, []Entity{start})
}

// leading returns the entities that can be matched first by alt.
func leading(alt Alternative) []Entity {
	switch a := alt.(type) {
	case Ref:
		return []Entity{Entity(a)}
	case Seq:
		var out []Entity
		for _, el := range a {
			if r, ok := el.Term.(Ref); ok {
				out = append(out, Entity(r))
			}
			if !el.Optional {
				break
			}
		}
		return out
	}
	return nil
}
