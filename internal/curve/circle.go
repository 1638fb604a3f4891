// Package curve replaces the short edge lines collected while parsing one
// part file with a single smooth circle.
//
// All hints of one invocation are assumed to lie on one circle. A file that
// draws several distinct circles gets one averaged circle instead; this is a
// known limitation of the heuristic, not something Approximate corrects.
package curve

import (
	"math"

	"ldraw2stl/internal/ldraw"
	"ldraw2stl/internal/mathutil"
)

// DefaultSegments is the vertex count of a generated circle.
const DefaultSegments = 100

// yAxis is the default circle axis; part primitives are drawn around Y.
var yAxis = mathutil.Vec3{0, 1, 0}

// Circle is a fitted circle in 3D.
type Circle struct {
	Center mathutil.Vec3
	Radius float64
	Axis   mathutil.Vec3 // unit normal of the circle plane
}

// Fit averages the first point of every hint for the center and takes the
// distance to the first hint's first point as the radius.
// Returns false when there are no hints.
func Fit(hints []ldraw.CurveHint) (Circle, bool) {
	if len(hints) == 0 {
		return Circle{}, false
	}

	var sum mathutil.Vec3
	for _, h := range hints {
		sum = sum.Add(h[0])
	}
	center := sum.Scale(1 / float64(len(hints)))
	radius := hints[0][0].Dist(center)

	return Circle{
		Center: center,
		Radius: radius,
		Axis:   detectAxis(hints, center, radius),
	}, true
}

// detectAxis returns the normal of the plane spanned by the hint points
// around center, or Y when the points give no usable plane.
func detectAxis(hints []ldraw.CurveHint, center mathutil.Vec3, radius float64) mathutil.Vec3 {
	if radius < 1e-9 {
		return yAxis
	}
	r0 := hints[0][0].Sub(center)

	var best mathutil.Vec3
	bestLen := 0.0
	for _, h := range hints {
		for _, p := range h {
			c := r0.Cross(p.Sub(center))
			if l := c.Len(); l > bestLen {
				best, bestLen = c, l
			}
		}
	}
	// relative to r², below this the points are collinear with the center
	if bestLen < 1e-6*radius*radius {
		return yAxis
	}
	n := best.Normalize()
	if math.Abs(n.Dot(yAxis)) > 1-1e-9 {
		return yAxis
	}
	return n
}

// Points returns segments evenly spaced points on the circle, starting at
// angle 0. Around Y the circle lies in the X/Z plane:
// (cx + r·cos t, cy, cz + r·sin t).
func (c Circle) Points(segments int) []mathutil.Vec3 {
	if segments < 3 {
		segments = 3
	}
	u, v := mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, 1}
	if c.Axis != yAxis {
		u = perpendicular(c.Axis)
		v = c.Axis.Cross(u).Normalize()
	}

	pts := make([]mathutil.Vec3, segments)
	for i := range pts {
		t := 2 * math.Pi * float64(i) / float64(segments)
		off := u.Scale(c.Radius * math.Cos(t)).Add(v.Scale(c.Radius * math.Sin(t)))
		pts[i] = c.Center.Add(off)
	}
	return pts
}

// perpendicular returns a unit vector orthogonal to n.
func perpendicular(n mathutil.Vec3) mathutil.Vec3 {
	ref := mathutil.Vec3{1, 0, 0}
	if math.Abs(n[0]) > 0.9 {
		ref = mathutil.Vec3{0, 0, 1}
	}
	return n.Cross(ref).Normalize()
}

// Approximate fits hints and returns the circle vertices plus 2-index edge
// faces joining consecutive vertices, wrapping from the last to the first.
// Edge indices start at base, the vertex count of the buffer the vertices
// will be appended to. No hints yields nothing.
func Approximate(hints []ldraw.CurveHint, segments, base int) ldraw.Geometry {
	c, ok := Fit(hints)
	if !ok {
		return ldraw.Geometry{}
	}

	pts := c.Points(segments)
	edges := make([]ldraw.Face, len(pts))
	for i := range pts {
		next := (i + 1) % len(pts)
		edges[i] = ldraw.Face{base + i, base + next}
	}
	return ldraw.Geometry{Vertices: pts, Faces: edges}
}
