package cli

import (
	"context"

	"github.com/spf13/cobra"

	"ldraw2stl/internal/batch"
	"ldraw2stl/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <part|list.csv>...",
		Short: "Convert parts, then rebuild them whenever their files change",
		Long: `Watch converts the given parts once, then watches parts_dir. When a file
changes, every part built from it is converted again, including parts that
failed because the file was missing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roots, err := collectRoots(args)
			if err != nil {
				return err
			}

			store := a.store()
			_, partsFetcher := a.fetchers(store)
			cfg := batch.Config{
				OutputDir:   a.cfg.OutputDir,
				Resolver:    a.resolver(store),
				Fetcher:     partFetcher(partsFetcher),
				Workers:     a.cfg.Workers,
				ScaleFactor: a.cfg.Scale.Factor,
				Preview:     a.cfg.PreviewOptions(),
				Logger:      a.log,
			}

			graph := watch.NewGraph()
			convert := func(ctx context.Context, roots []string) {
				results := batch.Run(ctx, cfg, roots)
				for _, r := range results {
					graph.Record(r.Name, r.Parts, r.Missing)
				}
				s := batch.Summarize(results)
				a.log.Info(ctx, "converted", "ok", s.Succeeded, "total", s.Total, "missing", len(s.Missing))
			}
			convert(ctx, roots)

			w, err := watch.New(store, watch.DefaultDelay, func(ctx context.Context, changed []string) error {
				affected := graph.Affected(changed)
				if len(affected) == 0 {
					return nil
				}
				convert(ctx, affected)
				return nil
			}, a.log)
			if err != nil {
				return err
			}
			defer w.Close()

			a.log.Info(ctx, "watching for changes", "dir", store.Root(), "parts", len(roots))
			return w.Run(ctx)
		},
	}
}
