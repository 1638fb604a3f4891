package mathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func placement(a, b, c, d, e, f, g, h, i, tx, ty, tz float64) Mat4 {
	return FromMat3Translation(Mat3{a, b, c, d, e, f, g, h, i}, Vec3{tx, ty, tz})
}

func TestMat4MulIdentity(t *testing.T) {
	m := placement(0, 0, 1, 0, 1, 0, -1, 0, 0, 10, -24, 5)
	assert.Equal(t, m, Mat4Mul(Mat4Identity(), m))
	assert.Equal(t, m, Mat4Mul(m, Mat4Identity()))
}

func TestMat4MulAssociative(t *testing.T) {
	a := placement(1, 0, 0, 0, 0, -1, 0, 1, 0, 1, 2, 3)
	b := placement(2, 0, 0, 0, 2, 0, 0, 0, 2, -4, 0, 8)
	c := placement(0, -1, 0, 1, 0, 0, 0, 0, 1, 0.5, 0.25, -1)

	left := Mat4Mul(Mat4Mul(a, b), c)
	right := Mat4Mul(a, Mat4Mul(b, c))
	assert.True(t, left.ApproxEqual(right, 1e-9))
}

func TestMulPointComposesParentFirst(t *testing.T) {
	parent := placement(1, 0, 0, 0, 1, 0, 0, 0, 1, 1, 0, 0)
	local := placement(0, -1, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0)
	world := Mat4Mul(parent, local)

	// rotate (1,0,0) by 90° about Z, then translate by (1,0,0)
	got := world.MulPoint(Vec3{1, 0, 0})
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[1], 1e-12)
	assert.InDelta(t, 0.0, got[2], 1e-12)

	assert.Equal(t, world.MulPoint(Vec3{1, 0, 0}), parent.MulPoint(local.MulPoint(Vec3{1, 0, 0})))
}

func TestLinearTranslationSplit(t *testing.T) {
	m := placement(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	assert.Equal(t, Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}, m.Linear())
	assert.Equal(t, Vec3{10, 11, 12}, m.Translation())
	assert.False(t, m.IsIdentity())
	assert.True(t, Mat4Identity().IsIdentity())
}

func TestMirrorDeterminant(t *testing.T) {
	assert.Less(t, Mat3Diag(-1, 1, 1).Det(), 0.0)
	assert.InDelta(t, 1.0, RotY(0.7).Det(), 1e-12)
}

func TestBounds(t *testing.T) {
	var b Bounds
	assert.True(t, b.Empty())
	b.Extend(Vec3{1, -2, 3})
	b.Extend(Vec3{-1, 4, 0})
	assert.False(t, b.Empty())
	assert.Equal(t, Vec3{-1, -2, 0}, b.Min)
	assert.Equal(t, Vec3{1, 4, 3}, b.Max)
	assert.Equal(t, Vec3{0, 1, 1.5}, b.Center())
	assert.Equal(t, Vec3{2, 6, 3}, b.Size())
}
