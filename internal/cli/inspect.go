package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ldraw2stl/internal/ldraw"
	"ldraw2stl/internal/mathutil"
	"ldraw2stl/internal/partstore"
	"ldraw2stl/internal/resolve"
	"ldraw2stl/internal/stlmesh"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <part>...",
		Short: "Show the commands, references and resolved size of parts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.store()
			for _, arg := range args {
				name := arg
				if !partstore.IsPartFile(name) {
					name += ".dat"
				}
				if err := Inspect(cmd.OutOrStdout(), store, name, a.cfg.Curve.Segments); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// Inspect writes a report on one part file: per-kind command counts,
// malformed lines, direct references, and the bounds of the fully resolved
// mesh. Nothing is fetched.
func Inspect(w io.Writer, store partstore.Store, name string, segments int) error {
	name = ldraw.NormalizeName(name)
	content, ok, err := store.Lookup(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: not found", name)
	}

	f := ldraw.Parse(name, content, mathutil.Mat4Identity())
	fmt.Fprintf(w, "=== %s ===\n", name)

	counts := make([]string, 0, len(f.Counts))
	for k, n := range f.Counts {
		counts = append(counts, fmt.Sprintf("%s=%d", ldraw.Kind(k), n))
	}
	fmt.Fprintf(w, "commands: %s\n", strings.Join(counts, " "))
	fmt.Fprintf(w, "curve hints: %d\n", len(f.Hints))

	if len(f.Errors) > 0 {
		fmt.Fprintf(w, "diagnostics (%d):\n", len(f.Errors))
		for _, e := range f.Errors {
			fmt.Fprintf(w, "  %v\n", e)
		}
	}

	if len(f.Refs) > 0 {
		fmt.Fprintf(w, "references (%d):\n", len(f.Refs))
		for _, r := range f.Refs {
			t := r.Local.Translation()
			mirrored := ""
			if r.Local.Linear().Det() < 0 {
				mirrored = " mirrored"
			}
			fmt.Fprintf(w, "  line %d: %s color=%s at (%g, %g, %g)%s\n", r.Line, r.Name, r.Color, t[0], t[1], t[2], mirrored)
		}
	}

	res, err := resolve.New(store, resolve.WithSegments(segments)).Resolve(name, mathutil.Mat4Identity())
	if err != nil {
		return err
	}
	mesh, err := stlmesh.Assemble(name, res.Geometry)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "resolved: files=%d unique=%d vertices=%d triangles=%d\n",
		res.Files, len(res.Parts), len(mesh.Vertices), len(mesh.Faces))
	if len(res.Missing) > 0 {
		fmt.Fprintf(w, "missing (%d): %s\n", len(res.Missing), strings.Join(res.Missing, ", "))
	}

	if b := mesh.Bounds(); !b.Empty() {
		s := b.Size()
		fmt.Fprintf(w, "bounds: min=(%g, %g, %g) max=(%g, %g, %g) size=(%g, %g, %g)\n",
			b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2], s[0], s[1], s[2])
	}
	return nil
}
