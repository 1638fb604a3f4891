// Package partstore reads part files by name from local storage.
package partstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ldraw2stl/internal/ldraw"
)

// ErrNotLocal is returned for names that would resolve outside the root.
var ErrNotLocal = errors.New("partstore: name leaves the parts directory")

// Store looks up the raw text of a part file by its normalized name.
// A missing file is (_, false, nil); err is reserved for read failures.
type Store interface {
	Lookup(name string) (string, bool, error)
}

// Dir is a concurrency-safe, directory-backed Store. Names use '/' and are
// mapped below the root directory. Successful reads are cached; misses are
// not, so files written later by a fetch become visible.
type Dir struct {
	root string

	mu    sync.RWMutex
	items map[string]string
}

// NewDir creates a store rooted at dir.
func NewDir(dir string) *Dir {
	return &Dir{
		root:  dir,
		items: make(map[string]string),
	}
}

// Root returns the directory the store reads from.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the file path name maps to.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// Exists reports whether name is present, exactly or lower-cased.
func (d *Dir) Exists(name string) bool {
	if !ldraw.IsLocalName(name) {
		return false
	}
	for _, c := range candidates(name) {
		if info, err := os.Stat(d.Path(c)); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// Lookup reads a part file, trying the exact name and then its lower-case
// form (library files are stored lower case).
func (d *Dir) Lookup(name string) (string, bool, error) {
	if !ldraw.IsLocalName(name) {
		return "", false, fmt.Errorf("%w: %q", ErrNotLocal, name)
	}

	// Fast path: read lock
	d.mu.RLock()
	if content, ok := d.items[name]; ok {
		d.mu.RUnlock()
		return content, true, nil
	}
	d.mu.RUnlock()

	for _, c := range candidates(name) {
		raw, err := os.ReadFile(d.Path(c))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("partstore: read %s: %w", d.Path(c), err)
		}

		d.mu.Lock()
		d.items[name] = string(raw)
		d.mu.Unlock()
		return string(raw), true, nil
	}
	return "", false, nil
}

// Invalidate drops cached content for the given names, compared without
// case, or everything when called without names.
func (d *Dir) Invalidate(names ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(names) == 0 {
		d.items = make(map[string]string)
		return
	}
	for key := range d.items {
		for _, n := range names {
			if strings.EqualFold(key, n) {
				delete(d.items, key)
				break
			}
		}
	}
}

// Name converts a file path below the root back to a store name.
func (d *Dir) Name(path string) (string, bool) {
	rel, err := filepath.Rel(d.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Names lists every .dat/.ldr/.mpd file below the root, sorted.
func (d *Dir) Names() ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || !IsPartFile(path) {
			return nil
		}
		if n, ok := d.Name(path); ok {
			names = append(names, n)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("partstore: walk %s: %w", d.root, err)
	}
	sort.Strings(names)
	return names, nil
}

// IsPartFile reports whether path has a part-file extension.
func IsPartFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dat", ".ldr", ".mpd":
		return true
	}
	return false
}

func candidates(name string) []string {
	lower := strings.ToLower(name)
	if lower == name {
		return []string{name}
	}
	return []string{name, lower}
}

// Memory is an in-memory Store keyed by name.
type Memory map[string]string

func (m Memory) Lookup(name string) (string, bool, error) {
	content, ok := m[name]
	return content, ok, nil
}
