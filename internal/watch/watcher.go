// Package watch rebuilds roots when the part files they depend on change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ldraw2stl/internal/logging"
	"ldraw2stl/internal/partstore"
)

// DefaultDelay groups bursts of writes, such as a fetch run, into one rebuild.
const DefaultDelay = 300 * time.Millisecond

// Handler receives the store names changed during one debounce window.
type Handler func(ctx context.Context, names []string) error

// Watcher observes a part store directory tree.
type Watcher struct {
	fsw     *fsnotify.Watcher
	store   *partstore.Dir
	handler Handler
	delay   time.Duration
	log     logging.Logger
}

// New creates a Watcher over every directory below store's root.
func New(store *partstore.Dir, delay time.Duration, handler Handler, log logging.Logger) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = logging.Nop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		fsw:     fsw,
		store:   store,
		handler: handler,
		delay:   delay,
		log:     log.WithComponent("watch"),
	}
	if err := w.addRecursive(store.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers changes to the handler until ctx is done. The store cache is
// invalidated for changed names before the handler runs. Handler errors are
// logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		flush   = make(chan struct{}, 1)
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			name, ok := w.event(ev)
			if !ok {
				continue
			}
			mu.Lock()
			pending[name] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.delay, func() {
				select {
				case flush <- struct{}{}:
				default:
				}
			})
			mu.Unlock()

		case <-flush:
			mu.Lock()
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			pending = make(map[string]struct{})
			mu.Unlock()
			if len(names) == 0 {
				continue
			}
			sort.Strings(names)

			w.store.Invalidate(names...)
			w.log.Info(ctx, "parts changed", "count", len(names), "names", names)
			if err := w.handler(ctx, names); err != nil {
				w.log.Error(ctx, err, "rebuild failed")
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, err, "watcher error")
		}
	}
}

// event maps an fsnotify event to a store name. New directories are added
// to the watch set and never reported themselves.
func (w *Watcher) event(ev fsnotify.Event) (string, bool) {
	if ev.Has(fsnotify.Create) {
		if err := w.addIfDir(ev.Name); err != nil {
			w.log.Warn(context.Background(), err, "cannot watch new directory", "path", ev.Name)
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if !partstore.IsPartFile(ev.Name) {
		return "", false
	}
	return w.store.Name(ev.Name)
}

func (w *Watcher) addIfDir(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil
	}
	return w.addRecursive(path)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
