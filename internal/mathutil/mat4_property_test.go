//go:build property
// +build property

package mathutil

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genAffine() gopter.Gen {
	return gen.SliceOfN(12, gen.Float64Range(-100, 100)).Map(func(v []float64) Mat4 {
		return placement(v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8], v[9], v[10], v[11])
	})
}

func TestTransformProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("composition is associative", prop.ForAll(
		func(a, b, c Mat4) bool {
			left := Mat4Mul(Mat4Mul(a, b), c)
			right := Mat4Mul(a, Mat4Mul(b, c))
			// entries reach ~1e6, compare relative to that magnitude
			return left.ApproxEqual(right, 1e-6)
		},
		genAffine(), genAffine(), genAffine(),
	))

	properties.Property("composition keeps the affine bottom row", prop.ForAll(
		func(a, b Mat4) bool {
			m := Mat4Mul(a, b)
			return m[12] == 0 && m[13] == 0 && m[14] == 0 && m[15] == 1
		},
		genAffine(), genAffine(),
	))

	properties.Property("applying a composition equals nested application", prop.ForAll(
		func(a, b Mat4, x, y, z float64) bool {
			p := Vec3{x, y, z}
			got := Mat4Mul(a, b).MulPoint(p)
			want := a.MulPoint(b.MulPoint(p))
			return got.Dist(want) < 1e-4
		},
		genAffine(), genAffine(),
		gen.Float64Range(-50, 50), gen.Float64Range(-50, 50), gen.Float64Range(-50, 50),
	))

	properties.TestingRun(t)
}
