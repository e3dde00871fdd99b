package grammar

import (
	"strconv"
	"strings"
)

// Alternative is one right-hand side of a rule. The variants are Char,
// Literal, Ref and Seq.
type Alternative interface {
	alternative()
	// Len is the number of elements the alternative is built from.
	Len() int
	String() string
}

// Term is an alternative that may also appear inside a Seq.
type Term interface {
	Alternative
	term()
}

// Char matches one byte.
type Char byte

// Literal matches a fixed string.
type Literal string

// Ref matches another entity.
type Ref Entity

// Elem is one element of a Seq.
type Elem struct {
	Term     Term
	Optional bool
}

// Seq matches its elements one after another.
type Seq []Elem

func (Char) alternative()    {}
func (Literal) alternative() {}
func (Ref) alternative()     {}
func (Seq) alternative()     {}

func (Char) term()    {}
func (Literal) term() {}
func (Ref) term()     {}

func (Char) Len() int    { return 1 }
func (Literal) Len() int { return 1 }
func (Ref) Len() int     { return 1 }
func (s Seq) Len() int   { return len(s) }

func (c Char) String() string    { return strconv.QuoteRune(rune(c)) }
func (l Literal) String() string { return strconv.Quote(string(l)) }
func (r Ref) String() string     { return Entity(r).String() }

func (s Seq) String() string {
	parts := make([]string, len(s))
	for i, el := range s {
		parts[i] = el.String()
	}
	return strings.Join(parts, " ")
}

func (el Elem) String() string {
	if el.Optional {
		return el.Term.String() + "?"
	}
	return el.Term.String()
}

// refs returns the entities an alternative references, in order.
func refs(a Alternative) []Entity {
	switch a := a.(type) {
	case Ref:
		return []Entity{Entity(a)}
	case Seq:
		var out []Entity
		for _, el := range a {
			if r, ok := el.Term.(Ref); ok {
				out = append(out, Entity(r))
			}
		}
		return out
	}
	return nil
}
