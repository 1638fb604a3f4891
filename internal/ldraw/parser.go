package ldraw

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"ldraw2stl/internal/mathutil"
)

// fields per command kind, including the kind token and color.
var arity = map[Kind]int{
	KindLine:     8,
	KindTriangle: 11,
	KindQuad:     14,
	KindOptional: 14,
}

// minimum for sub-file lines; the name may contain spaces.
const subfileFields = 15

// NormalizeName converts a referenced file name to the store key form:
// backslash separators become '/', and redundant elements are cleaned.
func NormalizeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	return path.Clean(name)
}

// IsLocalName reports whether a normalized name stays below the library
// root: not empty, not absolute, and without leading ".." elements.
func IsLocalName(name string) bool {
	return filepath.IsLocal(filepath.FromSlash(name))
}

// Parse tokenizes the content of one part file and applies transform to
// every point. Malformed lines are recorded in File.Errors and skipped;
// parsing continues with the next line.
func Parse(name, content string, transform mathutil.Mat4) *File {
	f := &File{Name: name}
	content = strings.TrimPrefix(content, "\ufeff")

	for i, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lineNo := i + 1

		kindNum, err := strconv.Atoi(fields[0])
		if err != nil || kindNum < 0 || kindNum > int(KindOptional) {
			f.fail(lineNo, line, "unknown line type "+strconv.Quote(fields[0]))
			continue
		}
		kind := Kind(kindNum)
		if kind == KindMeta {
			f.Counts[kind]++
			continue
		}

		if kind == KindSubfile {
			if len(fields) < subfileFields {
				f.fail(lineNo, line, fmt.Sprintf("subfile needs %d fields, got %d", subfileFields, len(fields)))
				continue
			}
		} else if len(fields) != arity[kind] {
			f.fail(lineNo, line, fmt.Sprintf("%s needs %d fields, got %d", kind, arity[kind], len(fields)))
			continue
		}

		nums := arity[kind] - 2
		if kind == KindSubfile {
			nums = 12
		}
		vals, err := parseFloats(fields[2 : 2+nums])
		if err != nil {
			f.fail(lineNo, line, err.Error())
			continue
		}
		var refName string
		if kind == KindSubfile {
			refName = NormalizeName(strings.Join(fields[subfileFields-1:], " "))
			if !IsLocalName(refName) {
				f.fail(lineNo, line, "file name leaves the library: "+strconv.Quote(refName))
				continue
			}
		}
		f.Counts[kind]++

		switch kind {
		case KindSubfile:
			// x y z a b c d e f g h i
			local := mathutil.FromMat3Translation(
				mathutil.Mat3{
					vals[3], vals[4], vals[5],
					vals[6], vals[7], vals[8],
					vals[9], vals[10], vals[11],
				},
				mathutil.Vec3{vals[0], vals[1], vals[2]},
			)
			f.Refs = append(f.Refs, PartReference{
				Name:      refName,
				Color:     fields[1],
				Local:     local,
				Transform: mathutil.Mat4Mul(transform, local),
				Line:      lineNo,
			})

		case KindLine:
			pts := points(vals, 2, transform)
			f.Hints = append(f.Hints, CurveHint{pts[0], pts[1]})

		case KindTriangle:
			f.Vertices = append(f.Vertices, points(vals, 3, transform)...)
			n := len(f.Vertices)
			f.Faces = append(f.Faces, Face{n - 3, n - 2, n - 1})

		case KindQuad:
			f.Vertices = append(f.Vertices, points(vals, 4, transform)...)
			n := len(f.Vertices)
			// fan from the first corner; assumes a convex planar quad
			f.Faces = append(f.Faces,
				Face{n - 4, n - 3, n - 2},
				Face{n - 4, n - 2, n - 1},
			)

		case KindOptional:
			// control points 3 and 4 are read but unused
			f.Vertices = append(f.Vertices, points(vals, 2, transform)...)
		}
	}

	return f
}

func (f *File) fail(lineNo int, text, reason string) {
	f.Errors = append(f.Errors, &FormatError{
		File:   f.Name,
		Line:   lineNo,
		Text:   strings.TrimSpace(text),
		Reason: reason,
	})
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric field %d %q", i+3, s)
		}
		vals[i] = v
	}
	return vals, nil
}

// points transforms the first n xyz triples of vals.
func points(vals []float64, n int, m mathutil.Mat4) []mathutil.Vec3 {
	out := make([]mathutil.Vec3, n)
	for i := 0; i < n; i++ {
		out[i] = m.MulPoint(mathutil.Vec3{vals[i*3], vals[i*3+1], vals[i*3+2]})
	}
	return out
}
