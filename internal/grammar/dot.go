package grammar

import (
	"fmt"
	"io"
	"strings"
)

// ExportDOT writes the entity reference graph of g in Graphviz format. Table
// entities are ellipses, primitives are boxes; edges from continuation
// alternatives are dashed and left recursion shows up as a self loop.
func ExportDOT(w io.Writer, g *Grammar) error {
	var b strings.Builder
	fmt.Fprintln(&b, "digraph grammar {")
	fmt.Fprintln(&b, "    rankdir=LR;")

	var used Set
	for _, e := range Entities() {
		if !g.Defined(e) {
			continue
		}
		used = used.With(e)
		seen := map[Entity]bool{}
		for _, alt := range g.Base(e) {
			for _, ref := range refs(alt) {
				used = used.With(ref)
				if seen[ref] {
					continue
				}
				seen[ref] = true
				fmt.Fprintf(&b, "    %s -> %s;\n", e, ref)
			}
		}
		if len(g.Continuations(e)) > 0 {
			fmt.Fprintf(&b, "    %s -> %s [label=\"cont\"];\n", e, e)
		}
		seen = map[Entity]bool{}
		for _, c := range g.Continuations(e) {
			for _, ref := range refs(c) {
				used = used.With(ref)
				if seen[ref] {
					continue
				}
				seen[ref] = true
				fmt.Fprintf(&b, "    %s -> %s [style=dashed];\n", e, ref)
			}
		}
	}

	for _, e := range Entities() {
		if !used.Has(e) {
			continue
		}
		shape := "ellipse"
		if e.IsLeaf() {
			shape = "box"
		}
		fmt.Fprintf(&b, "    %s [shape=%s];\n", e, shape)
	}
	fmt.Fprintln(&b, "}")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTo prints the table in the grammar text format, continuations
// restored to their left-recursive form.
func (g *Grammar) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, e := range Entities() {
		if !g.Defined(e) {
			continue
		}
		fmt.Fprintf(&b, "%s\n", e)
		sep := ":="
		for _, alt := range g.Base(e) {
			fmt.Fprintf(&b, "    %s %s\n", sep, alt)
			sep = " |"
		}
		for _, c := range g.Continuations(e) {
			fmt.Fprintf(&b, "    %s %s %s\n", sep, e, c)
		}
		fmt.Fprintln(&b, "    ;")
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
