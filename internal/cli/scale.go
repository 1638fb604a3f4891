package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ldraw2stl/internal/stlmesh"
)

func newScaleCmd(a *app) *cobra.Command {
	var factor float64
	cmd := &cobra.Command{
		Use:   "scale <file.stl|dir>...",
		Short: "Rescale STL files in place",
		Long: `Scale multiplies every vertex of the given STL files by one factor and
rewrites them in place. Directories are searched for *.stl files. The factor
defaults to scale.factor from the configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("factor") {
				factor = a.cfg.Scale.Factor
			}
			if factor <= 0 {
				return fmt.Errorf("scale factor must be positive, got %g", factor)
			}

			files, err := stlFiles(args)
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := stlmesh.ScaleFile(f, factor); err != nil {
					return err
				}
				a.log.Debug(cmd.Context(), "scaled", "file", f, "factor", factor)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scaled %d file(s) by %g\n", len(files), factor)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&factor, "factor", "f", 0, "scale factor (default scale.factor)")
	return cmd
}

// stlFiles expands directories to the .stl files below them.
func stlFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !e.IsDir() && strings.EqualFold(filepath.Ext(p), ".stl") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
