// Package srcpos maps offsets of the normalized buffer to lines and columns of
// the physical source file.
package srcpos

import (
	"modernc.org/token"

	"ppscan/internal/normalize"
)

// Position is a physical source position.
type Position = token.Position

// Index resolves normalized offsets of one file.
type Index struct {
	file *token.File
	res  *normalize.Result
	size int
}

// New indexes raw, the unmodified contents of the file called name, and res,
// the normalizer's output for it. res may be nil when offsets are raw.
func New(name string, raw []byte, res *normalize.Result) *Index {
	f := token.NewFile(name, len(raw))
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\n':
			f.AddLine(i + 1)
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				continue
			}
			f.AddLine(i + 1)
		}
	}
	return &Index{file: f, res: res, size: len(raw)}
}

// Raw maps a normalized offset to the raw offset it came from.
func (x *Index) Raw(off int) int {
	if x.res != nil {
		off = x.res.Origin(off)
	}
	return min(max(off, 0), x.size)
}

// Position returns the filename, line and column of the normalized offset.
// Columns count bytes, starting at 1.
func (x *Index) Position(off int) Position {
	return x.file.Position(x.file.Pos(x.Raw(off)))
}

// Lines returns the number of lines in the file.
func (x *Index) Lines() int { return x.file.LineCount() }
