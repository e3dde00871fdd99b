package grammar

// Grammar is an immutable production table. It is safe for concurrent use.
type Grammar struct {
	rules       [numEntities]rule
	defined     Set
	punct       *Punctuators
	fingerprint string
}

type rule struct {
	base []Alternative
	// cont holds the left-recursive alternatives without their leading self
	// reference.
	cont []Seq
}

func (r *rule) alternatives() []Alternative {
	out := make([]Alternative, 0, len(r.base)+len(r.cont))
	out = append(out, r.base...)
	for _, c := range r.cont {
		out = append(out, c)
	}
	return out
}

// Fingerprint identifies the grammar text the table was built from.
func (g *Grammar) Fingerprint() string { return g.fingerprint }

// Defined reports whether e has rules in the table.
func (g *Grammar) Defined(e Entity) bool { return g.defined.Has(e) }

// Base returns the non-recursive alternatives of e in table order.
func (g *Grammar) Base(e Entity) []Alternative { return g.rules[e].base }

// Continuations returns the left-recursive alternatives of e, without the
// leading self reference, in table order.
func (g *Grammar) Continuations(e Entity) []Seq { return g.rules[e].cont }

// Punctuators returns the punctuator table used by preprocessing_op_or_punc.
func (g *Grammar) Punctuators() *Punctuators { return g.punct }

// Match returns the number of bytes of buf, starting at pos, matched by e, or
// 0 if e does not match there.
func (g *Grammar) Match(e Entity, buf []byte, pos int) int {
	m := matcher{g: g, buf: buf}
	return m.entity(e, pos)
}

// Best reports which base alternative of e wins at pos and how many bytes it
// matches, before any continuation is applied. idx is -1 when nothing
// matches. Entities in skip are treated as never matching.
func (g *Grammar) Best(e Entity, buf []byte, pos int, skip Set) (idx, n int) {
	m := matcher{g: g, buf: buf, skip: skip}
	return m.best(e, pos)
}

// Scan is Match that also reports which base alternative seeded the match, as
// Best does. Entities in skip are treated as never matching.
func (g *Grammar) Scan(e Entity, buf []byte, pos int, skip Set) (idx, n int) {
	m := matcher{g: g, buf: buf, skip: skip}
	idx, n = m.best(e, pos)
	if idx < 0 {
		return -1, 0
	}
	return idx, m.grow(e, pos, n)
}

type matcher struct {
	g    *Grammar
	buf  []byte
	skip Set
}

func (m *matcher) entity(e Entity, pos int) int {
	if pos >= len(m.buf) || m.skip.Has(e) {
		return 0
	}
	if e.IsLeaf() {
		return m.leaf(e, pos)
	}
	_, n := m.best(e, pos)
	if n == 0 {
		return 0
	}
	return m.grow(e, pos, n)
}

// grow applies the continuations of e to a match of total bytes at pos, the
// first one that matches each time, until none does.
func (m *matcher) grow(e Entity, pos, total int) int {
	if e.IsLeaf() {
		return total
	}
	conts := m.g.rules[e].cont
	for {
		grown := 0
		for _, c := range conts {
			if n := m.seq(c, pos+total); n > 0 {
				grown = n
				break
			}
		}
		if grown == 0 {
			return total
		}
		total += grown
	}
}

// best picks the base alternative with the most elements, then the longest
// match, then the earliest in table order.
func (m *matcher) best(e Entity, pos int) (idx, n int) {
	idx = -1
	if pos >= len(m.buf) || m.skip.Has(e) {
		return idx, 0
	}
	if e.IsLeaf() {
		if n = m.leaf(e, pos); n > 0 {
			idx = 0
		}
		return idx, n
	}
	bestLen := 0
	for i, alt := range m.g.rules[e].base {
		k := m.alt(alt, pos)
		if k == 0 {
			continue
		}
		if l := alt.Len(); l > bestLen || l == bestLen && k > n {
			idx, n, bestLen = i, k, l
		}
	}
	return idx, n
}

func (m *matcher) alt(a Alternative, pos int) int {
	switch a := a.(type) {
	case Seq:
		return m.seq(a, pos)
	case Term:
		return m.term(a, pos)
	}
	return 0
}

func (m *matcher) seq(s Seq, pos int) int {
	total := 0
	for _, el := range s {
		n := m.term(el.Term, pos+total)
		if n == 0 && !el.Optional {
			return 0
		}
		total += n
	}
	return total
}

func (m *matcher) term(t Term, pos int) int {
	switch t := t.(type) {
	case Char:
		if pos < len(m.buf) && m.buf[pos] == byte(t) {
			return 1
		}
	case Literal:
		if end := pos + len(t); end <= len(m.buf) && string(m.buf[pos:end]) == string(t) {
			return len(t)
		}
	case Ref:
		return m.entity(Entity(t), pos)
	}
	return 0
}
