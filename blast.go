package arbor

import (
	"sort"
	"strings"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/store"
)

// typeKey names a top-level type by package and simple name.
type typeKey struct {
	Package string
	Name    string
}

// fileShape is the outward shape of a file's top-level types.
type fileShape struct {
	pkg    string
	hashes map[string]string // type name -> signature hash
}

func captureShape(f *model.FileSummary) fileShape {
	s := fileShape{pkg: f.PackageName(), hashes: make(map[string]string, len(f.Types()))}
	for _, t := range f.Types() {
		s.hashes[t.Name] = store.ComputeSignatureHash(t)
	}
	return s
}

// changedTypes compares two shapes of the same file and returns the types
// whose shape differs, including types that appeared or disappeared. A
// package move changes every type on both sides.
func changedTypes(before, after fileShape) map[typeKey]bool {
	moved := before.pkg != after.pkg
	out := make(map[typeKey]bool)
	for name, h := range before.hashes {
		if nh, ok := after.hashes[name]; moved || !ok || nh != h {
			out[typeKey{before.pkg, name}] = true
		}
	}
	for name, h := range after.hashes {
		if oh, ok := before.hashes[name]; moved || !ok || oh != h {
			out[typeKey{after.pkg, name}] = true
		}
	}
	return out
}

// recordChange adds f and every file depending on its changed types to the
// blast radius. before is the zero shape for a first load.
func (e *Engine) recordChange(f *model.FileSummary, before, after fileShape, reloaded bool) {
	e.affected[f.Path] = true
	if !reloaded {
		before = fileShape{pkg: after.pkg}
	}
	changed := changedTypes(before, after)
	if len(changed) == 0 {
		return
	}
	for _, p := range e.dependents(changed, f) {
		e.affected[p] = true
	}
	e.logger.Debug("engine.blast_radius", "path", f.Path, "types", len(changed))
}

// recordRemoval adds the dependents of a removed file's types to the blast
// radius.
func (e *Engine) recordRemoval(path string, shape fileShape) {
	delete(e.affected, path)
	changed := changedTypes(shape, fileShape{pkg: shape.pkg})
	for _, p := range e.dependents(changed, nil) {
		e.affected[p] = true
	}
}

// dependents returns the indexed files, other than skip, that can see one
// of the changed types: files of the same package, files importing the
// type or its whole package, and files holding a reference to it.
func (e *Engine) dependents(changed map[typeKey]bool, skip *model.FileSummary) []string {
	pkgs := make(map[string]bool)
	for k := range changed {
		pkgs[k.Package] = true
	}
	var out []string
	for _, g := range e.reg.Files() {
		if g == skip {
			continue
		}
		if dependsOn(g, changed, pkgs) {
			out = append(out, g.Path)
		}
	}
	return out
}

func dependsOn(g *model.FileSummary, changed map[typeKey]bool, pkgs map[string]bool) bool {
	if pkgs[g.PackageName()] {
		return true
	}
	for _, imp := range g.Imports() {
		pkg := imp.PackageName()
		if !pkgs[pkg] {
			continue
		}
		if imp.IsWildcard() || changed[typeKey{pkg, topName(imp.TypeName)}] {
			return true
		}
	}
	found := false
	model.Inspect(g, func(s model.Summary) bool {
		if found || s == nil {
			return false
		}
		if d, ok := s.(*model.TypeDecl); ok && changed[typeKey{d.Package, topName(d.Name)}] {
			found = true
		}
		return !found
	})
	return found
}

// topName returns the outermost type of a dotted nested name.
func topName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Affected returns the files touched by changes since the previous call,
// ordered by path, and starts a new accumulation.
func (e *Engine) Affected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.affected))
	for p := range e.affected {
		out = append(out, p)
	}
	sort.Strings(out)
	e.affected = make(map[string]bool)
	return out
}
