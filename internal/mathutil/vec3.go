package mathutil

import "math"

// Vec3 is a 3-component vector (value type, stack-allocated).
type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return Vec3{}
	}
	return Vec3{v[0] / l, v[1] / l, v[2] / l}
}

// Dist returns the Euclidean distance between a and b.
func (a Vec3) Dist(b Vec3) float64 {
	return a.Sub(b).Len()
}

// Float32 narrows the vector for single-precision mesh formats.
func (v Vec3) Float32() [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// Bounds is an axis-aligned bounding box. The zero value is empty.
type Bounds struct {
	Min, Max Vec3
	valid    bool
}

// Extend grows the box to include v.
func (b *Bounds) Extend(v Vec3) {
	if !b.valid {
		b.Min, b.Max, b.valid = v, v, true
		return
	}
	for k := 0; k < 3; k++ {
		if v[k] < b.Min[k] {
			b.Min[k] = v[k]
		}
		if v[k] > b.Max[k] {
			b.Max[k] = v[k]
		}
	}
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool { return !b.valid }

func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b Bounds) Size() Vec3 {
	return b.Max.Sub(b.Min)
}
