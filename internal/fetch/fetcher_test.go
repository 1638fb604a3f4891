package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldraw2stl/internal/partstore"
)

// library serves files keyed by URL path and counts requests per path.
type library struct {
	mu    sync.Mutex
	files map[string]string
	hits  map[string]int
	fail  bool
}

func (l *library) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[r.URL.Path]++
	if l.fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	body, ok := l.files[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(body))
}

func newLibrary(t *testing.T, files map[string]string) (*library, []string) {
	t.Helper()
	lib := &library{files: files, hits: make(map[string]int)}
	srv := httptest.NewServer(lib)
	t.Cleanup(srv.Close)
	return lib, []string{
		srv.URL + "/official/p/",
		srv.URL + "/official/parts/",
		srv.URL + "/unofficial/parts/",
		srv.URL + "/unofficial/p/",
	}
}

func TestFetchFallsThroughLocations(t *testing.T) {
	lib, bases := newLibrary(t, map[string]string{
		"/official/parts/3001.dat":     "3 16 0 0 0 1 0 0 0 1 0\n",
		"/official/parts/s/3001s01.dat": "0 sub\n",
		"/unofficial/p/odd.dat":         "0 odd\n",
	})
	dir := partstore.NewDir(t.TempDir())
	f := New(dir, WithBaseURLs(bases...))

	ok, err := f.Fetch(context.Background(), "3001.dat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, lib.hits["/official/p/3001.dat"])
	assert.Equal(t, 1, lib.hits["/official/parts/3001.dat"])
	assert.Zero(t, lib.hits["/unofficial/parts/3001.dat"])

	data, err := os.ReadFile(dir.Path("3001.dat"))
	require.NoError(t, err)
	assert.Equal(t, "3 16 0 0 0 1 0 0 0 1 0\n", string(data))

	ok, err = f.Fetch(context.Background(), "s/3001s01.dat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, filepath.Join(dir.Root(), "s", "3001s01.dat"))

	ok, err = f.Fetch(context.Background(), "odd.dat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, lib.hits["/unofficial/parts/odd.dat"])
}

func TestFetchSkipsPresentFiles(t *testing.T) {
	lib, bases := newLibrary(t, map[string]string{"/official/p/x.dat": "0 remote\n"})
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.dat"), []byte("0 local\n"), 0644))

	f := New(partstore.NewDir(root), WithBaseURLs(bases...))
	ok, err := f.Fetch(context.Background(), "x.dat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, lib.hits)

	data, err := os.ReadFile(filepath.Join(root, "x.dat"))
	require.NoError(t, err)
	assert.Equal(t, "0 local\n", string(data))
}

func TestFetchUnavailableLeftAbsent(t *testing.T) {
	lib, bases := newLibrary(t, nil)
	dir := partstore.NewDir(t.TempDir())
	f := New(dir, WithBaseURLs(bases...))

	ok, err := f.Fetch(context.Background(), "nope.dat")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, dir.Exists("nope.dat"))
	assert.Len(t, lib.hits, 4)
}

func TestFetchServerErrorReported(t *testing.T) {
	lib, bases := newLibrary(t, nil)
	lib.fail = true
	f := New(partstore.NewDir(t.TempDir()), WithBaseURLs(bases...))

	ok, err := f.Fetch(context.Background(), "a.dat")
	assert.False(t, ok)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "a.dat", fe.Name)
	assert.Contains(t, err.Error(), "500")
}

func TestFetchMissingConcurrent(t *testing.T) {
	files := map[string]string{}
	names := []string{"a.dat", "b.dat", "c.dat", "d.dat", "e.dat", "gone.dat"}
	for _, n := range names[:5] {
		files["/official/parts/"+n] = "0 " + n + "\n"
	}
	_, bases := newLibrary(t, files)
	dir := partstore.NewDir(t.TempDir())
	f := New(dir, WithBaseURLs(bases...), WithWorkers(2))

	require.NoError(t, f.FetchMissing(context.Background(), names))
	for _, n := range names[:5] {
		assert.True(t, dir.Exists(n), n)
	}
	assert.False(t, dir.Exists("gone.dat"))
}

func TestFetchMissingBoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		_, _ = w.Write([]byte("0\n"))
	}))
	t.Cleanup(srv.Close)

	f := New(partstore.NewDir(t.TempDir()), WithBaseURLs(srv.URL+"/"), WithWorkers(3))
	done := make(chan error, 1)
	go func() {
		done <- f.FetchMissing(context.Background(), []string{"1.dat", "2.dat", "3.dat", "4.dat", "5.dat", "6.dat", "7.dat"})
	}()
	close(release)
	require.NoError(t, <-done)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPartURLEscapes(t *testing.T) {
	u, err := partURL("https://example.org/lib/official/parts/", "s/a b.dat")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/lib/official/parts/s/a%20b.dat", u)
}

func TestPartsFirst(t *testing.T) {
	got := PartsFirst(DefaultBaseURLs)
	assert.Equal(t, []string{
		"https://library.ldraw.org/library/official/parts/",
		"https://library.ldraw.org/library/unofficial/parts/",
		"https://library.ldraw.org/library/official/p/",
		"https://library.ldraw.org/library/unofficial/p/",
	}, got)
	assert.Equal(t, "https://library.ldraw.org/library/official/p/", DefaultBaseURLs[0])
}

func TestWithTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	f := New(partstore.NewDir(t.TempDir()), WithBaseURLs(srv.URL+"/"), WithTimeout(50*time.Millisecond))
	ok, err := f.Fetch(context.Background(), "slow.dat")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestFetchRejectsNamesOutsideTarget(t *testing.T) {
	lib, bases := newLibrary(t, map[string]string{
		"/escaped.dat": "0 escaped\n",
	})
	root := t.TempDir()
	parts := filepath.Join(root, "a", "parts")
	f := New(partstore.NewDir(parts), WithBaseURLs(bases...))

	for _, name := range []string{"../../escaped.dat", "/escaped.dat", ".."} {
		ok, err := f.Fetch(context.Background(), name)
		assert.False(t, ok, name)
		require.ErrorIs(t, err, ErrNotLocal, name)
	}
	assert.Empty(t, lib.hits)
	assert.NoFileExists(t, filepath.Join(root, "escaped.dat"))

	err := f.FetchMissing(context.Background(), []string{"../../escaped.dat"})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "../../escaped.dat", fe.Name)
}
