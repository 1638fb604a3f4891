package stlmesh

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hschendel/stl"
)

const headerSize = 80

// Solid converts the mesh to an STL solid with computed face normals.
func (m *Mesh) Solid() *stl.Solid {
	header := make([]byte, headerSize)
	copy(header, "ldraw2stl "+m.Name)

	solid := &stl.Solid{
		Name:         m.Name,
		BinaryHeader: header,
		Triangles:    make([]stl.Triangle, len(m.Faces)),
	}
	for i, t := range m.Triangles() {
		solid.Triangles[i] = stl.Triangle{
			Normal: stl.Vec3(t.Normal().Float32()),
			Vertices: [3]stl.Vec3{
				stl.Vec3(t[0].Float32()),
				stl.Vec3(t[1].Float32()),
				stl.Vec3(t[2].Float32()),
			},
		}
	}
	return solid
}

// Encode writes the mesh as binary STL to w.
func Encode(w io.Writer, m *Mesh) error {
	if err := m.Solid().WriteAll(w); err != nil {
		return fmt.Errorf("stlmesh: encode %s: %w", m.Name, err)
	}
	return nil
}

// Write writes the mesh as binary STL to path, creating parent directories.
func Write(path string, m *Mesh) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("stlmesh: mkdir for %s: %w", path, err)
	}
	if err := m.Solid().WriteFile(path); err != nil {
		return fmt.Errorf("stlmesh: write %s: %w", path, err)
	}
	return nil
}

// ScaleFile multiplies every vertex coordinate of the STL file at path by
// factor and rewrites it in place.
func ScaleFile(path string, factor float64) error {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return fmt.Errorf("stlmesh: read %s: %w", path, err)
	}
	solid.Scale(factor)
	if err := solid.WriteFile(path); err != nil {
		return fmt.Errorf("stlmesh: write %s: %w", path, err)
	}
	return nil
}

// Read loads an STL file.
func Read(path string) (*stl.Solid, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stlmesh: read %s: %w", path, err)
	}
	return solid, nil
}
