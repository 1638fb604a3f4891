package preview

import (
	"math"

	"ldraw2stl/internal/mathutil"
)

// Lighting holds precomputed flat-shading parameters.
type Lighting struct {
	LightDir mathutil.Vec3
	RimDir   mathutil.Vec3
	HalfMain mathutil.Vec3 // Blinn-Phong half vector
	Ambient  float64
	Hemi     float64
	Direct   float64
	Rim      float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64
}

// DefaultLighting is a key light from the upper right, a cool rim light from
// behind and a hemisphere fill.
func DefaultLighting() Lighting {
	lightDir := mathutil.Vec3{180, 260, 140}.Normalize()
	rimDir := mathutil.Vec3{-160, 130, -210}.Normalize()
	viewDir := mathutil.Vec3{0, -110, -400}.Normalize()

	return Lighting{
		LightDir: lightDir,
		RimDir:   rimDir,
		HalfMain: lightDir.Sub(viewDir).Normalize(),
		Ambient:  0.35,
		Hemi:     0.40,
		Direct:   1.10,
		Rim:      0.40,
		SpecInt:  0.30,
		SpecPow:  16.0,
		Exposure: 1.0,
		InvGamma: 1.0 / 2.2,
	}
}

// Shade returns the lighting scalar for a unit face normal. Faces are lit
// from both sides since part winding is not guaranteed.
func (l *Lighting) Shade(n mathutil.Vec3) float64 {
	ndlMain := math.Abs(n.Dot(l.LightDir))
	ndlRim := math.Abs(n.Dot(l.RimDir))

	hemi := ((1.0-math.Abs(n[1]))*0.5 + 0.5) * l.Hemi

	ndh := n.Dot(l.HalfMain)
	if ndh < 0 {
		ndh = 0
	}
	spec := math.Pow(ndh, l.SpecPow) * l.SpecInt

	return l.Ambient + hemi + ndlMain*l.Direct + ndlRim*l.Rim + spec
}

// shadeColor applies shade to an sRGB color: decode, scale, ACES tone map,
// encode.
func (l *Lighting) shadeColor(c [3]uint8, shade float64) [3]uint8 {
	var out [3]uint8
	for i, v := range c {
		lin := srgbToLinear[v] * shade * l.Exposure
		out[i] = clamp255(math.Pow(acesTonemap(lin), l.InvGamma) * 255)
	}
	return out
}

var srgbToLinear [256]float64

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// acesTonemap is the ACES filmic curve.
func acesTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
