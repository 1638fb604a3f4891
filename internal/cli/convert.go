package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ldraw2stl/internal/batch"
	"ldraw2stl/internal/workspace"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		project  string
		manifest string
	)
	cmd := &cobra.Command{
		Use:     "convert <part|list.csv>...",
		Aliases: []string{"c"},
		Short:   "Convert parts to binary STL",
		Long: `Convert resolves each part with everything it references and writes
<output-dir>/<part>.stl. Arguments ending in .csv are part lists: the first
column of every row after the header, print variants (3001pr0001) reduced to
the base part.

With --project, a project directory is created first, the files of base_dir
are copied into it, and STL files go to <project>/STL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputSet := cmd.Flags().Changed("output-dir")
			return a.runConvert(cmd, args, project, manifest, outputSet)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&project, "project", "p", "", "set up a project directory and write into its STL/")
	f.StringVarP(&manifest, "manifest", "m", "", "write a run manifest (.json or .yaml)")
	f.StringP("output-dir", "o", "./STL", "directory for STL files")
	f.Float64("scale", 0.395, "rescale written files by this factor (0 or 1 disables)")
	f.Bool("preview", false, "also write a WebP thumbnail per part")
	bind(a.v, f, map[string]string{
		"output_dir":      "output-dir",
		"scale.factor":    "scale",
		"preview.enabled": "preview",
	})
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, args []string, project, manifest string, outputSet bool) error {
	ctx := cmd.Context()
	cfg := a.cfg

	roots, err := collectRoots(args)
	if err != nil {
		return err
	}

	outDir := cfg.OutputDir
	if project != "" {
		ws, err := workspace.Setup(project, cfg.BaseDir)
		if err != nil {
			return err
		}
		a.log.Info(ctx, "project ready", "dir", ws.Root, "copied", len(ws.Copied))
		if !outputSet {
			outDir = ws.STL
		}
	}

	store := a.store()
	rootFetcher, partsFetcher := a.fetchers(store)
	if rootFetcher != nil {
		if err := rootFetcher.FetchMissing(ctx, roots); err != nil {
			return fmt.Errorf("fetch roots: %w", err)
		}
	}

	start := time.Now()
	results := batch.Run(ctx, batch.Config{
		OutputDir:   outDir,
		Resolver:    a.resolver(store),
		Fetcher:     partFetcher(partsFetcher),
		Workers:     cfg.Workers,
		ScaleFactor: cfg.Scale.Factor,
		Preview:     cfg.PreviewOptions(),
		Logger:      a.log,
	}, roots)

	if manifest != "" {
		if !filepath.IsAbs(manifest) && filepath.Dir(manifest) == "." {
			manifest = filepath.Join(outDir, manifest)
		}
		if err := batch.WriteManifest(manifest, results); err != nil {
			a.log.Warn(ctx, err, "manifest not written")
		} else {
			a.log.Info(ctx, "manifest written", "path", manifest)
		}
	}

	s := batch.Summarize(results)
	printSummary(cmd.OutOrStdout(), s, time.Since(start))
	if len(s.Failed) > 0 {
		return fmt.Errorf("%d of %d parts failed", len(s.Failed), s.Total)
	}
	return nil
}

func printSummary(w io.Writer, s batch.Summary, elapsed time.Duration) {
	fmt.Fprintf(w, "Done in %.1fs\n", elapsed.Seconds())
	fmt.Fprintf(w, "Converted: %d/%d\n", s.Succeeded, s.Total)

	if len(s.Failed) > 0 {
		fmt.Fprintf(w, "\nFailed (%d):\n", len(s.Failed))
		for _, r := range s.Failed {
			fmt.Fprintf(w, "  %s: %s\n", r.Name, r.Error)
		}
	}
	if len(s.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nSkipped lines (%d):\n", len(s.Diagnostics))
		for _, d := range s.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	if len(s.Missing) > 0 {
		fmt.Fprintf(w, "\nMissing parts (%d):\n", len(s.Missing))
		for _, m := range s.Missing {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
}
