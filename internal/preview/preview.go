// Package preview renders a flat-shaded thumbnail of an assembled mesh and
// encodes it as lossless WebP.
package preview

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"

	"ldraw2stl/internal/mathutil"
	"ldraw2stl/internal/stlmesh"
)

const (
	DefaultSize        = 256
	DefaultSupersample = 2
	margin             = 16 // pixels at output size
)

// DefaultColor is a neutral light bluish gray.
var DefaultColor = [3]uint8{160, 165, 175}

// Options controls a render.
type Options struct {
	Size        int // output edge length in pixels
	Supersample int // render at Size*Supersample, then downsample
	View        mathutil.Mat3
	Color       [3]uint8
	Lighting    Lighting
}

// DefaultOptions renders a 256px isometric view.
func DefaultOptions() Options {
	return Options{
		Size:        DefaultSize,
		Supersample: DefaultSupersample,
		View:        mathutil.ViewIso,
		Color:       DefaultColor,
		Lighting:    DefaultLighting(),
	}
}

func (o Options) normalized() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Supersample <= 0 {
		o.Supersample = 1
	}
	if o.View == (mathutil.Mat3{}) {
		o.View = mathutil.ViewIso
	}
	if o.Color == ([3]uint8{}) {
		o.Color = DefaultColor
	}
	if o.Lighting == (Lighting{}) {
		o.Lighting = DefaultLighting()
	}
	return o
}

// Render draws m centered and scaled to fit. Pixels not covered by any
// triangle are fully transparent. An empty mesh yields a blank image.
func Render(m *stlmesh.Mesh, opts Options) *image.NRGBA {
	opts = opts.normalized()
	renderSize := opts.Size * opts.Supersample

	fb := newFrameBuffer(renderSize)
	if len(m.Faces) == 0 {
		return fb.image()
	}

	view := make([]mathutil.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		view[i] = opts.View.MulVec3(v)
	}
	var b mathutil.Bounds
	for _, f := range m.Faces {
		for _, idx := range f {
			b.Extend(view[idx])
		}
	}

	span := max(b.Size()[0], b.Size()[1], 0.001)
	scale := float64(renderSize-2*margin*opts.Supersample) / span
	px, py, pz := project(view, b.Center(), scale, renderSize)

	for _, f := range m.Faces {
		n := stlmesh.Triangle{view[f[0]], view[f[1]], view[f[2]]}.Normal()
		if n == (mathutil.Vec3{}) {
			continue
		}
		rgb := opts.Lighting.shadeColor(opts.Color, opts.Lighting.Shade(n))
		fillTriangle(fb, px, py, pz, f, rgb)
	}

	img := fb.image()
	if opts.Supersample > 1 {
		img = downsample(img, opts.Size)
	}
	return img
}

// project maps view-space points to pixel coordinates. Screen Y grows
// downward; depth is view Z.
func project(view []mathutil.Vec3, center mathutil.Vec3, scale float64, renderSize int) (px, py, pz []float64) {
	n := len(view)
	px = make([]float64, n)
	py = make([]float64, n)
	pz = make([]float64, n)

	half := float64(renderSize) / 2
	for i, t := range view {
		px[i] = (t[0]-center[0])*scale + half
		py[i] = -(t[1]-center[1])*scale + half
		pz[i] = t[2]
	}
	return px, py, pz
}

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("preview: webp encode: %w", err)
	}
	return nil
}

// WriteFile renders m and writes the WebP to path, creating parent
// directories.
func WriteFile(path string, m *stlmesh.Mesh, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("preview: create dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: create %s: %w", path, err)
	}
	if err := Encode(f, Render(m, opts)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
