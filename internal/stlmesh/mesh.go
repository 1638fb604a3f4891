// Package stlmesh turns a resolved vertex/face buffer into a triangle mesh
// and persists it as binary STL.
package stlmesh

import (
	"fmt"

	"ldraw2stl/internal/ldraw"
	"ldraw2stl/internal/mathutil"
)

// Mesh is an indexed triangle mesh. Every face has exactly three indices,
// all valid against Vertices.
type Mesh struct {
	Name     string
	Vertices []mathutil.Vec3
	Faces    [][3]int
}

// Triangle is one face by its vertex positions.
type Triangle [3]mathutil.Vec3

// Normal returns the unit face normal from the winding order, or the zero
// vector for a degenerate triangle.
func (t Triangle) Normal() mathutil.Vec3 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Normalize()
}

// Assemble keeps the 3-index faces of g in order and drops everything else
// (curve edges, in particular). An out-of-range index is an error.
func Assemble(name string, g ldraw.Geometry) (*Mesh, error) {
	m := &Mesh{
		Name:     name,
		Vertices: g.Vertices,
		Faces:    make([][3]int, 0, len(g.Faces)),
	}
	n := len(g.Vertices)
	for i, f := range g.Faces {
		if !f.IsTriangle() {
			continue
		}
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return nil, fmt.Errorf("stlmesh: %s: face %d index %d out of range [0,%d)", name, i, idx, n)
			}
		}
		m.Faces = append(m.Faces, [3]int{f[0], f[1], f[2]})
	}
	return m, nil
}

// Triangles expands the mesh to a triangle soup.
func (m *Mesh) Triangles() []Triangle {
	tris := make([]Triangle, len(m.Faces))
	for i, f := range m.Faces {
		tris[i] = Triangle{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
	}
	return tris
}

// Bounds returns the bounding box of all vertices referenced by a face.
func (m *Mesh) Bounds() mathutil.Bounds {
	var b mathutil.Bounds
	for _, f := range m.Faces {
		for _, idx := range f {
			b.Extend(m.Vertices[idx])
		}
	}
	return b
}
