package arbor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/internal/syntax"
)

// ErrNotIndexed is returned for paths the Engine holds no summary for.
var ErrNotIndexed = errors.New("arbor: file not indexed")

// Engine owns the summary registry and its snapshot database and serializes
// every access to them.
type Engine struct {
	mu     sync.Mutex
	reg    *registry.Registry
	fsys   *registry.AferoFS
	parser syntax.Parser
	store  *store.Store // nil without a database
	logger *slog.Logger

	afs         afero.Fs
	encodings   []string
	excludeDirs map[string]bool
	progress    Progress

	// affected accumulates the paths touched by shape changes since the
	// last call to Affected.
	affected map[string]bool

	// restoreErr is the reason the stored snapshot was discarded, if it was.
	restoreErr error

	// useParallel enables the parallel parse phase.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the Engine and everything it owns.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallel controls the parallel parse phase. When true (default),
// IndexFiles parses stale files on a bounded worker pool and then builds
// their summaries serially. Set to false for a fully serial walk.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithFS makes the Engine read sources from fsys instead of the real disk.
func WithFS(fsys afero.Fs) Option {
	return func(e *Engine) {
		e.afs = fsys
	}
}

// WithEncodings sets the fallback encodings tried for sources that are not
// valid UTF-8. See registry.Encodings for the accepted names.
func WithEncodings(names ...string) Option {
	return func(e *Engine) {
		e.encodings = names
	}
}

// WithExcludeDirs adds directory names skipped by IndexDirectory.
func WithExcludeDirs(dirs ...string) Option {
	return func(e *Engine) {
		for _, d := range dirs {
			e.excludeDirs[d] = true
		}
	}
}

// WithProgress reports bulk indexing progress to p.
func WithProgress(p Progress) Option {
	return func(e *Engine) {
		e.progress = p
	}
}

// New creates an Engine. With a non-empty dbPath the summaries are kept in a
// SQLite database there and restored from it on start; an empty dbPath keeps
// everything in memory.
//
// A stored snapshot that cannot be restored is discarded: the Engine starts
// empty and RestoreErr reports why.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      slog.Default(),
		afs:         afero.NewOsFs(),
		excludeDirs: defaultExcludeDirs(),
		progress:    nopProgress{},
		affected:    make(map[string]bool),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	fsys, err := registry.NewFS(e.afs, e.encodings...)
	if err != nil {
		return nil, fmt.Errorf("arbor: filesystem: %w", err)
	}
	e.fsys = fsys
	e.parser = syntax.NewJavaParser()
	e.reg = registry.New(fsys, e.parser, registry.WithLogger(e.logger))

	if dbPath == "" {
		return e, nil
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: migrate: %w", err)
	}
	e.store = s
	e.restore()
	return e, nil
}

func (e *Engine) restore() {
	pkgs, err := e.store.LoadSnapshot()
	if err != nil {
		e.reg.Reset()
		e.restoreErr = err
		e.logger.Warn("engine.restore", "err", err)
		if err := e.store.Clear(); err != nil {
			e.logger.Warn("engine.restore.clear", "err", err)
		}
		return
	}
	e.reg.Adopt(pkgs)
	e.logger.Info("engine.restore", "files", e.reg.Len())
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store, or nil without a database.
func (e *Engine) Store() *Store {
	return e.store
}

// RestoreErr returns the error that made New discard the stored snapshot.
func (e *Engine) RestoreErr() error {
	return e.restoreErr
}

// View runs fn with exclusive access to the registry.
func (e *Engine) View(fn func(r *registry.Registry) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.reg)
}

// Query returns a new QueryBuilder over the Engine's registry.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{e: e}
}

// IndexFiles brings the given paths up to date. Files whose modification
// time has not moved past the one they were built from are skipped; changed
// files are rebuilt in place and written to the database.
//
// Errors on individual files are collected and processing continues. The
// context is checked between files.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	paths = sortedUnique(paths)
	e.progress.Start(len(paths), "indexing")
	defer e.progress.Finish()

	start := time.Now()
	var (
		loaded []*model.FileSummary
		errs   []error
	)
	if e.useParallel {
		loaded, errs = e.indexFilesParallel(ctx, paths)
	} else {
		loaded, errs = e.indexFilesSerial(ctx, paths)
	}
	if err := e.persist(loaded, nil); err != nil {
		errs = append(errs, err)
	}
	e.logger.Info("index.done",
		"files", len(paths), "loaded", len(loaded), "errors", len(errs),
		"elapsed", time.Since(start))

	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) ([]*model.FileSummary, []error) {
	var (
		loaded []*model.FileSummary
		errs   []error
	)
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if i > 0 {
			goruntime.Gosched()
		}
		f, err := e.indexFile(ctx, path, e.parser)
		e.progress.Add(1)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if f != nil {
			loaded = append(loaded, f)
		}
	}
	return loaded, errs
}

// indexFile loads path through parser and records the blast radius of the
// change. It returns the summary only when it was built or rebuilt.
func (e *Engine) indexFile(ctx context.Context, path string, parser syntax.Parser) (*model.FileSummary, error) {
	stale, err := e.reg.Stale(path)
	if err != nil {
		return nil, err
	}
	if !stale {
		return nil, nil
	}

	var before fileShape
	cached, reloaded := e.reg.File(path)
	if reloaded {
		before = captureShape(cached)
	}
	f, err := e.reg.GetOrLoadWith(ctx, path, parser)
	if err != nil {
		return nil, err
	}
	e.recordChange(f, before, captureShape(f), reloaded)
	return f, nil
}

// Remove drops path from the index and the database.
func (e *Engine) Remove(path string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.reg.File(path)
	if !ok {
		return false, nil
	}
	shape := captureShape(f)
	e.reg.Remove(path)
	e.recordRemoval(f.Path, shape)
	return true, e.persist(nil, []string{f.Path})
}

// Sweep removes every indexed file whose backing file no longer exists and
// returns the removed paths.
func (e *Engine) Sweep() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	shapes := make(map[string]fileShape)
	for _, f := range e.reg.Files() {
		shapes[f.Path] = captureShape(f)
	}
	gone := e.reg.SweepDeleted()
	for _, p := range gone {
		e.recordRemoval(p, shapes[p])
	}
	return gone, e.persist(nil, gone)
}

// Save replaces the stored snapshot with the whole index.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		return nil
	}
	if err := e.store.SaveSnapshot(e.reg.Packages()); err != nil {
		return fmt.Errorf("arbor: save snapshot: %w", err)
	}
	return e.stamp()
}

func (e *Engine) persist(files []*model.FileSummary, removed []string) error {
	if e.store == nil || (len(files) == 0 && len(removed) == 0) {
		return nil
	}
	if err := e.store.SaveFiles(files, removed); err != nil {
		return fmt.Errorf("arbor: save: %w", err)
	}
	return e.stamp()
}

func (e *Engine) stamp() error {
	if err := e.store.SetMetadata(metaIndexedAt, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return e.store.SetMetadata(metaFiles, strconv.Itoa(e.reg.Len()))
}

// IndexedAt returns when the database was last written, or the zero time.
func (e *Engine) IndexedAt() (time.Time, error) {
	if e.store == nil {
		return time.Time{}, nil
	}
	v, err := e.store.GetMetadata(metaIndexedAt)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}

// LoadBuffer builds a detached summary for in-memory source. It returns nil
// when the source declares no type.
func (e *Engine) LoadBuffer(ctx context.Context, src []byte) (*File, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.LoadBuffer(ctx, src)
}

// Anomalies returns the structural anomalies found when path was last built.
func (e *Engine) Anomalies(path string) []Anomaly {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Anomalies(path)
}

// Print writes the diagnostic rendering of the summary of path to w.
func (e *Engine) Print(w io.Writer, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.reg.File(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotIndexed, path)
	}
	return model.Fprint(w, f)
}

// defaultExcludeDirs returns directories that never hold sources worth
// indexing.
func defaultExcludeDirs() map[string]bool {
	return map[string]bool{
		"node_modules": true,
		"build":        true,
		"target":       true,
		"out":          true,
	}
}

// IndexDirectory indexes every .java file under root. On the real disk
// inside a git repository, git ls-files is used so .gitignore is respected;
// otherwise the tree is walked. Hidden and excluded directories are skipped
// either way.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.ListSources(root)
	if err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// ListSources returns the .java files IndexDirectory would index.
func (e *Engine) ListSources(root string) ([]string, error) {
	if _, ok := e.afs.(*afero.OsFs); ok {
		if paths, err := e.gitListFiles(root); err == nil {
			return paths, nil
		}
	}
	return e.walkListFiles(root)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) sources under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !isSource(line) || e.excluded(filepath.Dir(line)) {
			continue
		}
		paths = append(paths, filepath.Join(root, line))
	}
	return paths, nil
}

// walkListFiles discovers sources by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := afero.Walk(e.afs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && e.skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isSource(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

func (e *Engine) skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || e.excludeDirs[name]
}

// excluded reports whether any element of the relative directory dir is
// skipped.
func (e *Engine) excluded(dir string) bool {
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part != "" && part != "." && e.skipDir(part) {
			return true
		}
	}
	return false
}

func isSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".java")
}

func sortedUnique(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	j := 0
	for i, p := range out {
		if i > 0 && p == out[j-1] {
			continue
		}
		out[j] = p
		j++
	}
	return out[:j]
}
