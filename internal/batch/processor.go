// Package batch converts many root parts to STL with a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ldraw2stl/internal/logging"
	"ldraw2stl/internal/preview"
	"ldraw2stl/internal/resolve"
	"ldraw2stl/internal/stlmesh"
)

// DefaultProgressInterval is how often Run logs throughput.
const DefaultProgressInterval = 2 * time.Second

// Config holds the shared resources of a batch run.
type Config struct {
	OutputDir string
	Resolver  *resolve.Resolver
	Fetcher   resolve.Fetcher // nil disables fetching
	Workers   int

	// ScaleFactor rescales every written file in place. 0 and 1 disable it.
	ScaleFactor float64

	// Preview, when set, writes a WebP thumbnail next to every STL.
	Preview *preview.Options

	ProgressInterval time.Duration
	Logger           logging.Logger
}

// Result is the outcome of converting one root.
type Result struct {
	Name        string        `json:"name" yaml:"name"`
	Success     bool          `json:"success" yaml:"success"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	Output      string        `json:"output,omitempty" yaml:"output,omitempty"`
	Preview     string        `json:"preview,omitempty" yaml:"preview,omitempty"`
	Triangles   int           `json:"triangles" yaml:"triangles"`
	Missing     []string      `json:"missing,omitempty" yaml:"missing,omitempty"`
	Diagnostics []string      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration"`

	// Parts lists every file the root was built from.
	Parts []string `json:"-" yaml:"-"`
}

// OutputName maps a root part name to its STL file name: "s/3001s01.dat"
// becomes "3001s01.stl".
func OutputName(root string) string {
	base := path.Base(strings.ReplaceAll(root, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base)) + ".stl"
}

// Run converts every root. Results are returned in input order. A failing
// root never stops the others; a cancelled context marks the remaining
// roots as failed.
func Run(ctx context.Context, cfg Config, roots []string) []Result {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithComponent("batch")
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	total := len(roots)
	results := make([]Result, total)
	var processed atomic.Int64
	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info(ctx, "progress", "done", p, "total", total, "per_sec", rate)
				}
			}
		}
	}()

	work := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = processRoot(ctx, cfg, log, roots[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range roots {
		work <- i
	}
	close(work)

	wg.Wait()
	close(done)

	log.Info(ctx, "batch finished", "total", total, "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}

func processRoot(ctx context.Context, cfg Config, log logging.Logger, root string) (res Result) {
	start := time.Now()
	res = Result{Name: root}
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	built, err := cfg.Resolver.Build(ctx, root, cfg.Fetcher)
	if built != nil {
		res.Parts = built.Parts
		res.Missing = built.Missing
		for _, d := range built.Diagnostics {
			log.Warn(ctx, d, "malformed line skipped", "root", root, "file", d.File, "line", d.Line)
			res.Diagnostics = append(res.Diagnostics, d.Error())
		}
	}
	if err != nil {
		var mpe *resolve.MissingPartError
		if errors.As(err, &mpe) {
			res.Missing = mpe.Names
		}
		log.Warn(ctx, err, "resolve failed", "root", root)
		res.Error = err.Error()
		return res
	}

	mesh, err := stlmesh.Assemble(root, built.Geometry)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Triangles = len(mesh.Faces)

	out := filepath.Join(cfg.OutputDir, OutputName(root))
	if err := stlmesh.Write(out, mesh); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = out

	if cfg.ScaleFactor != 0 && cfg.ScaleFactor != 1 {
		if err := stlmesh.ScaleFile(out, cfg.ScaleFactor); err != nil {
			res.Error = err.Error()
			return res
		}
	}

	if cfg.Preview != nil {
		img := strings.TrimSuffix(out, ".stl") + ".webp"
		if err := preview.WriteFile(img, mesh, *cfg.Preview); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Preview = img
	}

	log.Debug(ctx, "converted", "root", root, "triangles", res.Triangles, "output", out)
	res.Success = true
	return res
}
