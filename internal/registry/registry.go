// Package registry caches file summaries by canonical path and interns
// package summaries by name. A cached file is reloaded when its on-disk
// modification time is strictly newer than the one it was built from; reload
// rebuilds the same *model.FileSummary so holders of the pointer see the new
// contents.
//
// A Registry is not safe for concurrent use. The Engine serializes access.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jward/arbor/internal/loader"
	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/syntax"
)

// UnknownPath is the key used for paths that cannot be canonicalized.
const UnknownPath = "<unknown>"

var (
	// ErrParse is returned when a source cannot be parsed. A previously
	// cached summary for the path is left untouched.
	ErrParse = errors.New("registry: parse failed")
	// ErrNotFound is returned when a path cannot be read or stat'ed.
	ErrNotFound = errors.New("registry: file not found")
	// ErrUnknownPath is returned for paths mapped to UnknownPath.
	ErrUnknownPath = errors.New("registry: path cannot be canonicalized")
)

// Registry is the file and package table.
type Registry struct {
	fs     FileSystem
	parser syntax.Parser
	logger *slog.Logger
	loader *loader.Loader

	files     map[string]*model.FileSummary
	packages  map[string]*model.PackageSummary
	anomalies map[string][]loader.Anomaly
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for registry and loader events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New returns an empty registry reading through fs and parsing with parser.
func New(fs FileSystem, parser syntax.Parser, opts ...Option) *Registry {
	r := &Registry{
		fs:        fs,
		parser:    parser,
		logger:    slog.Default(),
		files:     make(map[string]*model.FileSummary),
		packages:  make(map[string]*model.PackageSummary),
		anomalies: make(map[string][]loader.Anomaly),
	}
	for _, o := range opts {
		o(r)
	}
	r.loader = loader.New(r, loader.WithLookup(r), loader.WithLogger(r.logger))
	return r
}

// Package returns the package named name, creating it on first use. The
// empty name is the default package.
func (r *Registry) Package(name string) *model.PackageSummary {
	if p, ok := r.packages[name]; ok {
		return p
	}
	p := model.NewPackage(name)
	r.packages[name] = p
	return p
}

// LookupPackage returns the package named name if it was ever interned.
func (r *Registry) LookupPackage(name string) (*model.PackageSummary, bool) {
	p, ok := r.packages[name]
	return p, ok
}

// Key returns the cache key for path, or UnknownPath.
func (r *Registry) Key(path string) string {
	key, err := r.fs.Canonical(path)
	if err != nil {
		r.logger.Warn("registry.canonicalize", "path", path, "err", err)
		return UnknownPath
	}
	return key
}

// File returns the cached summary for path without loading it.
func (r *Registry) File(path string) (*model.FileSummary, bool) {
	f, ok := r.files[r.Key(path)]
	return f, ok
}

// Files returns the cached files ordered by path.
func (r *Registry) Files() []*model.FileSummary {
	out := make([]*model.FileSummary, 0, len(r.files))
	for _, f := range r.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Packages returns the packages that hold at least one file, ordered by name.
func (r *Registry) Packages() []*model.PackageSummary {
	out := make([]*model.PackageSummary, 0, len(r.packages))
	for _, p := range r.packages {
		if len(p.Files()) > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Anomalies returns the structural anomalies found the last time path was
// built.
func (r *Registry) Anomalies(path string) []loader.Anomaly {
	return r.anomalies[r.Key(path)]
}

// Stale reports whether path would be (re)built by GetOrLoad.
func (r *Registry) Stale(path string) (bool, error) {
	key := r.Key(path)
	if key == UnknownPath {
		return false, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	mtime, err := r.fs.ModTime(key)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrNotFound, key, err)
	}
	f, ok := r.files[key]
	return !ok || mtime.After(f.ModTime), nil
}

// GetOrLoad returns the summary for path, building it when it is absent and
// rebuilding it in place when the file changed on disk since it was built.
func (r *Registry) GetOrLoad(ctx context.Context, path string) (*model.FileSummary, error) {
	return r.GetOrLoadWith(ctx, path, r.parser)
}

// GetOrLoadWith is GetOrLoad with an explicit parser for this call.
//
// When the file cannot be read or parsed any cached summary is returned
// unchanged together with the error.
func (r *Registry) GetOrLoadWith(ctx context.Context, path string, parser syntax.Parser) (*model.FileSummary, error) {
	key := r.Key(path)
	if key == UnknownPath {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	cached, ok := r.files[key]

	mtime, err := r.fs.ModTime(key)
	if err != nil {
		return cached, fmt.Errorf("%w: %s: %w", ErrNotFound, key, err)
	}
	if ok && !mtime.After(cached.ModTime) {
		return cached, nil
	}

	src, err := r.fs.ReadFile(key)
	if err != nil {
		return cached, fmt.Errorf("%w: %s: %w", ErrNotFound, key, err)
	}
	tree, err := parser.Parse(ctx, src)
	if err != nil {
		r.logger.Warn("registry.parse", "path", key, "err", err)
		return cached, fmt.Errorf("%w: %s: %w", ErrParse, key, err)
	}
	defer tree.Close()

	var res *loader.Result
	if ok {
		res = r.loader.Reload(tree, cached)
		r.logger.Debug("registry.reload", "path", key, "types", res.Types, "moved", res.Moved)
	} else {
		res = r.loader.Load(tree, key)
		r.files[key] = res.File
		r.logger.Debug("registry.load", "path", key, "types", res.Types)
	}
	res.File.ModTime = mtime
	if len(res.Anomalies) > 0 {
		r.anomalies[key] = res.Anomalies
	} else {
		delete(r.anomalies, key)
	}
	return res.File, nil
}

// Remove drops path from the table and from its package. It reports whether
// the path was cached.
func (r *Registry) Remove(path string) bool {
	key := r.Key(path)
	f, ok := r.files[key]
	if !ok {
		return false
	}
	delete(r.files, key)
	delete(r.anomalies, key)
	f.Deleted = true
	f.Relink(nil)
	r.logger.Debug("registry.remove", "path", key)
	return true
}

// SweepDeleted removes every cached file whose backing file is gone and
// returns the removed paths in order.
func (r *Registry) SweepDeleted() []string {
	var gone []string
	for key := range r.files {
		if !r.fs.Exists(key) {
			gone = append(gone, key)
		}
	}
	sort.Strings(gone)
	for _, key := range gone {
		r.Remove(key)
	}
	if len(gone) > 0 {
		r.logger.Info("registry.sweep", "removed", len(gone))
	}
	return gone
}

// LoadBuffer builds a summary for in-memory source that has no path. A
// buffer that declares no type yields nil.
//
// The result is detached from the registry and is not cached. Its owner is a
// fresh package that only it belongs to. That package carries the name of
// the buffer's package declaration, or is the default package when there is
// none, so that PackageName and QualifiedName still read as written. The
// private package is never interned, listed or visible to lookups.
func (r *Registry) LoadBuffer(ctx context.Context, src []byte) (*model.FileSummary, error) {
	tree, err := r.parser.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: buffer: %w", ErrParse, err)
	}
	defer tree.Close()

	ld := loader.New(detached{}, loader.WithLookup(r), loader.WithLogger(r.logger))
	res := ld.Load(tree, "")
	if res.Types == 0 {
		return nil, nil
	}
	return res.File, nil
}

// Source returns the decoded text of an indexed file. Paths that are not in
// the table yield ErrNotFound.
func (r *Registry) Source(path string) ([]byte, error) {
	key := r.Key(path)
	if _, ok := r.files[key]; !ok {
		return nil, fmt.Errorf("%w: %s: not indexed", ErrNotFound, path)
	}
	return r.fs.ReadFile(key)
}

// detached interns nothing: every call yields a fresh package.
type detached struct{}

func (detached) Package(name string) *model.PackageSummary { return model.NewPackage(name) }

// LookupType finds the type ref names among cached files. Nested types are
// found by dotted name ("Outer.Inner").
func (r *Registry) LookupType(ref *model.TypeDecl) *model.TypeSummary {
	if ref == nil || ref.Primitive || ref.Name == "" {
		return nil
	}
	pkg, ok := r.packages[ref.Package]
	if !ok {
		return nil
	}
	parts := strings.Split(ref.Name, ".")
	for _, f := range pkg.Files() {
		for _, t := range f.Types() {
			if t.Name != parts[0] {
				continue
			}
			found := t
			for _, part := range parts[1:] {
				if found = found.Nested(part); found == nil {
					break
				}
			}
			if found != nil {
				return found
			}
		}
	}
	return nil
}

// Adopt replaces the table with pkgs and rebuilds the path index from their
// files. Files without a path are not indexed.
func (r *Registry) Adopt(pkgs []*model.PackageSummary) {
	r.Reset()
	for _, p := range pkgs {
		r.packages[p.Name] = p
		for _, f := range p.Files() {
			if f.Path != "" {
				r.files[f.Path] = f
			}
		}
	}
}

// Reset empties the registry.
func (r *Registry) Reset() {
	r.files = make(map[string]*model.FileSummary)
	r.packages = make(map[string]*model.PackageSummary)
	r.anomalies = make(map[string][]loader.Anomaly)
}

// Len returns the number of cached files.
func (r *Registry) Len() int { return len(r.files) }
