// Package resolve expands a part file and its sub-file references into one
// flat vertex/face buffer.
//
// Each recursive call parses into fresh buffers and returns them; the caller
// appends the child's vertices and shifts the child's face indices by its own
// vertex count at that moment. Nothing is shared between sibling calls, so
// independent roots may be resolved concurrently against a concurrency-safe
// store.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"ldraw2stl/internal/curve"
	"ldraw2stl/internal/ldraw"
	"ldraw2stl/internal/logging"
	"ldraw2stl/internal/mathutil"
	"ldraw2stl/internal/partstore"
)

// Fetcher retrieves missing part files into the store. Names it cannot
// retrieve are left absent; an error means the fetch itself failed.
type Fetcher interface {
	FetchMissing(ctx context.Context, names []string) error
}

// Result is the outcome of one resolution pass.
type Result struct {
	ldraw.Geometry
	Missing     []string // sorted, unique
	Parts       []string // every name found and parsed, sorted, unique
	Diagnostics []*ldraw.FormatError
	Files       int // part files parsed, counting repeats
}

// Resolver resolves part names against a store.
type Resolver struct {
	store    partstore.Store
	segments int
	log      logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSegments sets the vertex count of generated curve circles.
func WithSegments(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.segments = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a Resolver reading from store.
func New(store partstore.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		segments: curve.DefaultSegments,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs one full pass over name and everything it references,
// placing name's content with transform. Missing parts are collected rather
// than failing the pass. A reference cycle returns a *CycleError; a store
// read failure is returned wrapped.
func (r *Resolver) Resolve(name string, transform mathutil.Mat4) (*Result, error) {
	p := &pass{
		r:       r,
		missing: make(map[string]struct{}),
		found:   make(map[string]struct{}),
	}
	geom, err := p.resolve(ldraw.NormalizeName(name), transform)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Geometry:    geom,
		Diagnostics: p.diags,
		Files:       p.files,
	}
	res.Missing = sortedKeys(p.missing)
	res.Parts = sortedKeys(p.found)
	return res, nil
}

// Build resolves root from the identity transform. When parts are missing
// it asks fetcher for them and re-runs the whole pass exactly once. Parts
// still missing after that yield a *MissingPartError alongside the partial
// result. A nil fetcher skips the retry.
func (r *Resolver) Build(ctx context.Context, root string, fetcher Fetcher) (*Result, error) {
	res, err := r.Resolve(root, mathutil.Mat4Identity())
	if err != nil {
		return nil, err
	}
	if len(res.Missing) == 0 {
		return res, nil
	}

	log := r.log.With("root", root)
	if fetcher == nil {
		return res, &MissingPartError{Root: root, Names: res.Missing}
	}

	log.Info(ctx, "fetching missing parts", "count", len(res.Missing), "names", res.Missing)
	if err := fetcher.FetchMissing(ctx, res.Missing); err != nil {
		return nil, fmt.Errorf("resolve: fetch parts for %s: %w", root, err)
	}

	res, err = r.Resolve(root, mathutil.Mat4Identity())
	if err != nil {
		return nil, err
	}
	if len(res.Missing) > 0 {
		return res, &MissingPartError{Root: root, Names: res.Missing}
	}
	log.Debug(ctx, "resolved after fetch", "vertices", len(res.Vertices), "faces", len(res.Faces))
	return res, nil
}

// pass carries the state of one top-level resolution.
type pass struct {
	r       *Resolver
	missing map[string]struct{}
	found   map[string]struct{}
	diags   []*ldraw.FormatError
	active  []string // names currently being resolved, outermost first
	files   int
}

func (p *pass) resolve(name string, transform mathutil.Mat4) (ldraw.Geometry, error) {
	for i, a := range p.active {
		if a == name {
			path := append(append([]string{}, p.active[i:]...), name)
			return ldraw.Geometry{}, &CycleError{Path: path}
		}
	}

	content, ok, err := p.r.store.Lookup(name)
	if err != nil {
		return ldraw.Geometry{}, fmt.Errorf("resolve: lookup %s: %w", name, err)
	}
	if !ok {
		p.missing[name] = struct{}{}
		return ldraw.Geometry{}, nil
	}

	p.active = append(p.active, name)
	defer func() { p.active = p.active[:len(p.active)-1] }()

	f := ldraw.Parse(name, content, transform)
	p.files++
	p.found[name] = struct{}{}
	p.diags = append(p.diags, f.Errors...)

	geom := f.Geometry
	for _, ref := range f.Refs {
		sub, err := p.resolve(ref.Name, ref.Transform)
		if err != nil {
			return ldraw.Geometry{}, err
		}
		if len(sub.Vertices) == 0 {
			continue
		}
		geom.Append(sub)
	}

	circle := curve.Approximate(f.Hints, p.r.segments, len(geom.Vertices))
	geom.Vertices = append(geom.Vertices, circle.Vertices...)
	geom.Faces = append(geom.Faces, circle.Faces...)

	return geom, nil
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
