package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ldraw2stl/internal/resolve"
)

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <part|list.csv>...",
		Short: "Download parts and everything they reference",
		Long: `Fetch downloads the given parts into parts_dir, then resolves each one
and downloads any sub-part or primitive it references that is not present.
Files already present are never downloaded again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roots, err := collectRoots(args)
			if err != nil {
				return err
			}

			store := a.store()
			rootFetcher, partsFetcher := a.fetchers(store)
			if rootFetcher == nil {
				return errors.New("fetching is disabled (fetch.enabled=false)")
			}
			if err := rootFetcher.FetchMissing(ctx, roots); err != nil {
				return err
			}

			r := a.resolver(store)
			incomplete := 0
			for _, root := range roots {
				res, err := r.Build(ctx, root, partsFetcher)
				var mpe *resolve.MissingPartError
				switch {
				case errors.As(err, &mpe):
					incomplete++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d missing: %v\n", root, len(mpe.Names), mpe.Names)
				case err != nil:
					return err
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: complete (%d files)\n", root, len(res.Parts))
				}
			}
			if incomplete > 0 {
				return fmt.Errorf("%d of %d parts incomplete", incomplete, len(roots))
			}
			return nil
		},
	}
}
