// Package fetch downloads part files that are missing from the local store.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ldraw2stl/internal/ldraw"
	"ldraw2stl/internal/logging"
)

// DefaultBaseURLs are tried in order for every name. Primitives live under
// p/, parts and sub-parts under parts/; the unofficial library is last.
var DefaultBaseURLs = []string{
	"https://library.ldraw.org/library/official/p/",
	"https://library.ldraw.org/library/official/parts/",
	"https://library.ldraw.org/library/unofficial/parts/",
	"https://library.ldraw.org/library/unofficial/p/",
}

const (
	DefaultWorkers = 8
	DefaultTimeout = 30 * time.Second
)

// ErrNotLocal rejects names that would be written outside the target.
var ErrNotLocal = errors.New("name leaves the parts directory")

// Target is where fetched files are written. partstore.Dir implements it.
type Target interface {
	Exists(name string) bool
	Path(name string) string
}

// Error reports a name that could not be fetched for a reason other than
// every location answering "not found".
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch: %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// statusError is a non-success HTTP response.
type statusError struct {
	URL    string
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

func (e *statusError) notFound() bool {
	return e.Status == http.StatusNotFound || e.Status == http.StatusGone
}

// Fetcher downloads parts into a Target. It is safe for concurrent use and
// does nothing for names already present.
type Fetcher struct {
	target  Target
	client  *http.Client
	bases   []string
	workers int
	log     logging.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithBaseURLs(urls ...string) Option {
	return func(f *Fetcher) {
		if len(urls) > 0 {
			f.bases = urls
		}
	}
}

func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds every request, connection to end of body.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client = &http.Client{Timeout: d}
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates a Fetcher writing into target.
func New(target Target, opts ...Option) *Fetcher {
	f := &Fetcher{
		target:  target,
		client:  &http.Client{Timeout: DefaultTimeout},
		bases:   DefaultBaseURLs,
		workers: DefaultWorkers,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.WithComponent("fetch")
	return f
}

// FetchMissing downloads names with at most the configured number of
// concurrent requests. Names found nowhere are logged and left absent.
// Every other failure is returned, joined.
func (f *Fetcher) FetchMissing(ctx context.Context, names []string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(f.workers)

	for _, name := range names {
		g.Go(func() error {
			if _, err := f.Fetch(ctx, name); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Fetch downloads one name, trying each base URL in order. It reports
// whether the file is now present.
func (f *Fetcher) Fetch(ctx context.Context, name string) (bool, error) {
	if !ldraw.IsLocalName(name) {
		return false, &Error{Name: name, Err: ErrNotLocal}
	}
	if f.target.Exists(name) {
		f.log.Debug(ctx, "already present, skipping download", "name", name)
		return true, nil
	}

	var lastErr error
	for _, base := range f.bases {
		u, err := partURL(base, name)
		if err != nil {
			return false, &Error{Name: name, Err: err}
		}

		err = f.download(ctx, u, f.target.Path(name))
		if err == nil {
			f.log.Info(ctx, "downloaded part", "name", name, "url", u)
			return true, nil
		}
		if ctx.Err() != nil {
			return false, &Error{Name: name, Err: ctx.Err()}
		}

		var se *statusError
		if errors.As(err, &se) && se.notFound() {
			f.log.Debug(ctx, "not found, trying next location", "name", name, "url", u)
			continue
		}
		var we *writeError
		if errors.As(err, &we) {
			return false, &Error{Name: name, Err: err}
		}
		lastErr = err
	}

	if lastErr != nil {
		return false, &Error{Name: name, Err: lastErr}
	}
	f.log.Warn(ctx, nil, "part not available from any location", "name", name)
	return false, nil
}

// writeError is a local failure storing a downloaded body.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func (f *Fetcher) download(ctx context.Context, u, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{URL: u, Status: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &writeError{err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return &writeError{err}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("read body of %s: %w", u, err)
	}
	if err := tmp.Close(); err != nil {
		return &writeError{err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return &writeError{err}
	}
	return nil
}

// PartsFirst reorders urls so that part directories come before primitive
// directories, keeping relative order otherwise. Root parts live under
// parts/, so trying it first saves a request per root.
func PartsFirst(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.Contains(u, "/parts/") {
			out = append(out, u)
		}
	}
	for _, u := range urls {
		if !strings.Contains(u, "/parts/") {
			out = append(out, u)
		}
	}
	return out
}

// partURL joins base and a '/'-separated part name, escaping each element.
func partURL(base, name string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("bad base URL %q: %w", base, err)
	}
	segs := strings.Split(name, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return b.JoinPath(segs...).String(), nil
}
