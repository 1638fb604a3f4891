// Package cli provides the ldraw2stl command tree.
//
// Settings are read, lowest priority first, from built-in defaults, the
// config file (--config, or .ldraw2stl.yaml in the working directory),
// LDRAW2STL_<SECTION>_<KEY> environment variables, and flags.
package cli

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ldraw2stl/internal/config"
	"ldraw2stl/internal/fetch"
	"ldraw2stl/internal/logging"
	"ldraw2stl/internal/partlist"
	"ldraw2stl/internal/partstore"
	"ldraw2stl/internal/resolve"
)

// app carries the per-invocation configuration shared by all commands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     logging.Logger
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "ldraw2stl",
		Short: "Convert LDraw parts to binary STL",
		Long: `ldraw2stl resolves LDraw part files, including every sub-part and
primitive they reference, into one triangle mesh per part and writes it as
binary STL. Parts missing locally are downloaded from the LDraw library.

Examples:
  ldraw2stl convert 3001 3003              # convert two parts
  ldraw2stl convert set.csv --project castle
  ldraw2stl scale --factor 0.5 STL/
  ldraw2stl inspect 3001.dat`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default .ldraw2stl.yaml)")
	pf.String("parts-dir", "./parts", "directory holding the part library")
	pf.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.IntP("workers", "j", 0, "conversion workers (default NumCPU)")
	pf.Int("segments", 100, "vertices per approximated curve")
	pf.Bool("fetch", true, "download missing parts")
	bind(a.v, pf, map[string]string{
		"parts_dir":      "parts-dir",
		"log.level":      "log-level",
		"log.format":     "log-format",
		"workers":        "workers",
		"curve.segments": "segments",
		"fetch.enabled":  "fetch",
	})

	root.AddCommand(
		newConvertCmd(a),
		newScaleCmd(a),
		newFetchCmd(a),
		newInspectCmd(a),
		newWatchCmd(a),
	)
	return root
}

// bind ties config keys to flags. A flag only overrides the file and the
// environment when it is set on the command line.
func bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("cli: bind %s: %v", flag, err))
		}
	}
}

func (a *app) load(cmd *cobra.Command) error {
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	a.log = logging.New(lc)
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug(cmd.Context(), "using config file", "path", used)
	}
	return nil
}

func (a *app) store() *partstore.Dir {
	return partstore.NewDir(a.cfg.PartsDir)
}

func (a *app) resolver(store partstore.Store) *resolve.Resolver {
	return resolve.New(store,
		resolve.WithSegments(a.cfg.Curve.Segments),
		resolve.WithLogger(a.log.WithComponent("resolve")),
	)
}

// fetchers returns the root fetcher and the sub-part fetcher, or nils when
// fetching is disabled.
func (a *app) fetchers(store *partstore.Dir) (roots, parts *fetch.Fetcher) {
	if !a.cfg.Fetch.Enabled {
		return nil, nil
	}
	opts := []fetch.Option{
		fetch.WithWorkers(a.cfg.Fetch.Workers),
		fetch.WithTimeout(a.cfg.Fetch.Timeout),
		fetch.WithLogger(a.log),
	}
	roots = fetch.New(store, append(opts, fetch.WithBaseURLs(fetch.PartsFirst(a.cfg.Fetch.URLs)...))...)
	parts = fetch.New(store, append(opts, fetch.WithBaseURLs(a.cfg.Fetch.URLs...))...)
	return roots, parts
}

// partFetcher converts a possibly nil *fetch.Fetcher to the interface
// without producing a typed nil.
func partFetcher(f *fetch.Fetcher) resolve.Fetcher {
	if f == nil {
		return nil
	}
	return f
}

// collectRoots expands arguments into root part file names. A .csv argument
// is read as a part list; a bare part number gets the .dat extension.
// Order is preserved and duplicates dropped.
func collectRoots(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var roots []string
	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		roots = append(roots, name)
	}

	for _, arg := range args {
		if strings.EqualFold(path.Ext(arg), ".csv") {
			parts, err := partlist.Read(arg)
			if err != nil {
				return nil, err
			}
			for _, p := range parts {
				add(partlist.FileName(p))
			}
			continue
		}
		name := strings.TrimSpace(arg)
		if name == "" {
			continue
		}
		if !partstore.IsPartFile(name) {
			name = partlist.FileName(name)
		}
		add(name)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no parts given")
	}
	return roots, nil
}
