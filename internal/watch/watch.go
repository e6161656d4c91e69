// Package watch keeps an index current by following file system events
// under a source root.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 250 * time.Millisecond

// Indexer is the part of the engine the watcher drives.
type Indexer interface {
	IndexFiles(ctx context.Context, paths []string) error
	Sweep() ([]string, error)
	Affected() []string
}

// Batch is the outcome of one debounced group of events.
type Batch struct {
	Changed  []string // sources handed to IndexFiles
	Removed  []string // summaries dropped by Sweep
	Affected []string // files whose summaries may depend on the change
	Err      error
}

// Watcher re-indexes changed sources and sweeps deleted ones.
type Watcher struct {
	idx      Indexer
	root     string
	debounce time.Duration
	exclude  map[string]bool
	logger   *slog.Logger
	onBatch  func(Batch)
	exists   func(path string) bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a batch is processed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExcludeDirs adds directory names that are never watched.
func WithExcludeDirs(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			w.exclude[d] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithOnBatch registers fn to be called after every processed batch.
func WithOnBatch(fn func(Batch)) Option {
	return func(w *Watcher) {
		w.onBatch = fn
	}
}

// New creates a Watcher for the directory tree at root.
func New(idx Indexer, root string, opts ...Option) *Watcher {
	w := &Watcher{
		idx:      idx,
		root:     filepath.Clean(root),
		debounce: DefaultDebounce,
		exclude: map[string]bool{
			"node_modules": true,
			"build":        true,
			"target":       true,
			"out":          true,
		},
		logger: slog.Default(),
		onBatch: func(Batch) {},
		exists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. Events are collected until the tree has
// been quiet for the debounce period and then processed as one batch.
// Indexing errors are reported in the batch and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root, nil); err != nil {
		return fmt.Errorf("watch: %s: %w", w.root, err)
	}
	w.logger.Info("watch.start", "root", w.root, "debounce", w.debounce)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]bool{}
	armed := false

	mark := func(path string) {
		pending[path] = true
		if armed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
		armed = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if ignored(path) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					// Files written before the watch was added produce no
					// events of their own.
					var found []string
					if err := w.addRecursive(fw, path, &found); err != nil {
						w.logger.Warn("watch.add", "path", path, "err", err)
					}
					for _, p := range found {
						mark(p)
					}
					continue
				}
			}
			removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			if !isSource(path) && !removed {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			mark(path)

		case <-timer.C:
			armed = false
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]bool{}
			w.onBatch(w.Process(ctx, paths))

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

// Process handles one batch of changed paths. Sources that still exist are
// re-indexed; anything else triggers a sweep of deleted files.
func (w *Watcher) Process(ctx context.Context, paths []string) Batch {
	var b Batch
	sweep := false
	for _, p := range paths {
		if isSource(p) && w.exists(p) {
			b.Changed = append(b.Changed, p)
		} else {
			sweep = true
		}
	}

	if len(b.Changed) > 0 {
		if err := w.idx.IndexFiles(ctx, b.Changed); err != nil {
			b.Err = err
			w.logger.Warn("watch.index", "err", err)
		}
	}
	if sweep {
		removed, err := w.idx.Sweep()
		b.Removed = removed
		if err != nil {
			w.logger.Warn("watch.sweep", "err", err)
			if b.Err == nil {
				b.Err = err
			}
		}
	}
	b.Affected = w.idx.Affected()

	w.logger.Info("watch.batch",
		"changed", len(b.Changed), "removed", len(b.Removed), "affected", len(b.Affected))
	return b
}

// addRecursive watches dir and every directory below it that is not
// skipped. When found is not nil the sources seen on the way are appended.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string, found *[]string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			if found != nil && isSource(path) {
				*found = append(*found, path)
			}
			return nil
		}
		if path != w.root && w.skipDir(entry.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || w.exclude[name]
}

// ignored reports editor droppings that never matter.
func ignored(path string) bool {
	base := filepath.Base(path)
	return base == ".DS_Store" || strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") || strings.HasPrefix(base, ".#") ||
		strings.HasSuffix(base, "~")
}

func isSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".java")
}
