package stlmesh

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldraw2stl/internal/ldraw"
	"ldraw2stl/internal/mathutil"
)

func sampleGeometry() ldraw.Geometry {
	return ldraw.Geometry{
		Vertices: []mathutil.Vec3{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{2, -1, 4}, {3, -1, 4}, {2, 0, 4},
		},
		Faces: []ldraw.Face{
			{0, 1, 2},
			{1, 2},
			{3, 4, 5},
			{4, 5},
			{2, 1, 0},
		},
	}
}

func TestAssembleKeepsTrianglesInOrder(t *testing.T) {
	m, err := Assemble("mix", sampleGeometry())
	require.NoError(t, err)
	assert.Equal(t, [][3]int{{0, 1, 2}, {3, 4, 5}, {2, 1, 0}}, m.Faces)
	assert.Len(t, m.Vertices, 6)
}

func TestAssembleRejectsBadIndex(t *testing.T) {
	g := ldraw.Geometry{
		Vertices: []mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    []ldraw.Face{{0, 1, 3}},
	}
	_, err := Assemble("bad", g)
	assert.ErrorContains(t, err, "out of range")
}

func TestTriangleNormal(t *testing.T) {
	tri := Triangle{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	assert.Equal(t, mathutil.Vec3{0, 0, 1}, tri.Normal())

	flat := Triangle{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	assert.Equal(t, mathutil.Vec3{}, flat.Normal())
}

func TestEncodeBinaryLayout(t *testing.T) {
	m, err := Assemble("layout", sampleGeometry())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, m))

	// header, count, then 50 bytes per triangle
	require.Equal(t, headerSize+4+50*3, buf.Len())
	count := binary.LittleEndian.Uint32(buf.Bytes()[headerSize:])
	assert.Equal(t, uint32(3), count)
}

func TestWriteAndReadBack(t *testing.T) {
	m, err := Assemble("roundtrip", sampleGeometry())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "part.stl")
	require.NoError(t, Write(path, m))

	solid, err := Read(path)
	require.NoError(t, err)
	require.Len(t, solid.Triangles, 3)
	assert.Equal(t, [3]float32{2, -1, 4}, [3]float32(solid.Triangles[1].Vertices[0]))
	assert.Equal(t, [3]float32{0, 0, 1}, [3]float32(solid.Triangles[0].Normal))
}

func TestScaleFile(t *testing.T) {
	m, err := Assemble("scale", sampleGeometry())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "scale.stl")
	require.NoError(t, Write(path, m))

	require.NoError(t, ScaleFile(path, 0.5))

	solid, err := Read(path)
	require.NoError(t, err)
	require.Len(t, solid.Triangles, 3)
	assert.Equal(t, [3]float32{1, -0.5, 2}, [3]float32(solid.Triangles[1].Vertices[0]))
	for i, tri := range m.Triangles() {
		for j := 0; j < 3; j++ {
			want := tri[j].Scale(0.5).Float32()
			assert.Equal(t, want, [3]float32(solid.Triangles[i].Vertices[j]))
		}
	}
}

func TestScaleFileMissing(t *testing.T) {
	err := ScaleFile(filepath.Join(t.TempDir(), "nope.stl"), 2)
	assert.ErrorContains(t, err, "nope.stl")
}

func TestBounds(t *testing.T) {
	m, err := Assemble("b", sampleGeometry())
	require.NoError(t, err)
	b := m.Bounds()
	assert.Equal(t, mathutil.Vec3{0, -1, 0}, b.Min)
	assert.Equal(t, mathutil.Vec3{3, 1, 4}, b.Max)
}
