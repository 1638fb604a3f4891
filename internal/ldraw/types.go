package ldraw

import (
	"fmt"

	"ldraw2stl/internal/mathutil"
)

// Kind is the line type, the first token of every command line.
type Kind int

const (
	KindMeta     Kind = 0 // comment or META command
	KindSubfile  Kind = 1 // sub-file reference
	KindLine     Kind = 2 // edge line, collected as a curve hint
	KindTriangle Kind = 3
	KindQuad     Kind = 4
	KindOptional Kind = 5 // optional (conditional) line
)

func (k Kind) String() string {
	switch k {
	case KindMeta:
		return "meta"
	case KindSubfile:
		return "subfile"
	case KindLine:
		return "line"
	case KindTriangle:
		return "triangle"
	case KindQuad:
		return "quad"
	case KindOptional:
		return "optional"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Face holds indices into the vertex buffer it was created against.
// Triangles have 3 indices; curve edges have 2 and never reach the mesh.
type Face []int

func (f Face) IsTriangle() bool { return len(f) == 3 }

// Offset returns a copy of f with every index shifted by n.
func (f Face) Offset(n int) Face {
	out := make(Face, len(f))
	for i, v := range f {
		out[i] = v + n
	}
	return out
}

// CurveHint is one already-transformed segment of an approximated arc.
type CurveHint [2]mathutil.Vec3

// PartReference is a sub-file command: the normalized name plus the
// placement composed with the transform of the file it appears in.
type PartReference struct {
	Name      string
	Color     string
	Local     mathutil.Mat4 // placement as written in the file
	Transform mathutil.Mat4 // parent × Local
	Line      int
}

// Geometry is a vertex buffer plus faces indexing into it.
type Geometry struct {
	Vertices []mathutil.Vec3
	Faces    []Face
}

// Append merges g2 into g, shifting g2's face indices by the vertex count
// of g before the merge. Only triangles cross the merge boundary.
func (g *Geometry) Append(g2 Geometry) {
	offset := len(g.Vertices)
	g.Vertices = append(g.Vertices, g2.Vertices...)
	for _, f := range g2.Faces {
		if !f.IsTriangle() {
			continue
		}
		g.Faces = append(g.Faces, f.Offset(offset))
	}
}

// File is the result of parsing one part file under one transform.
type File struct {
	Name string
	Geometry
	Hints  []CurveHint
	Refs   []PartReference
	Errors []*FormatError
	Counts [6]int // commands per Kind
}

// FormatError reports a malformed command line.
type FormatError struct {
	File   string
	Line   int // 1-based
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ldraw: %s:%d: %s: %q", e.File, e.Line, e.Reason, e.Text)
}
