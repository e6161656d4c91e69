package arbor

import (
	"fmt"
	"sort"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
)

// Dependencies returns the qualified names of the types the file at path
// refers to, outside its own declarations: supertypes, member and local
// variable types, return and exception types, explicit imports, and
// receivers of sends and accesses that name a type. Wildcard imports are
// reported as "pkg.*". Primitives are left out.
func (q *QueryBuilder) Dependencies(path string) ([]string, error) {
	var out []string
	err := q.e.View(func(r *registry.Registry) error {
		f, ok := r.File(path)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotIndexed, path)
		}
		own := make(map[string]bool)
		model.Inspect(f, func(s model.Summary) bool {
			if t, ok := s.(*model.TypeSummary); ok && !t.IsAnonymous() {
				own[t.QualifiedName()] = true
			}
			return s != nil
		})

		deps := make(map[string]bool)
		add := func(d *model.TypeDecl) {
			if d == nil || d.Primitive || d.Name == "" {
				return
			}
			if name := d.QualifiedName(); !own[name] {
				deps[name] = true
			}
		}
		// A receiver such as System.out names a type followed by fields.
		addReceiver := func(d *model.TypeDecl) {
			if d != nil {
				add(&model.TypeDecl{Package: d.Package, Name: topName(d.Name)})
			}
		}
		model.Inspect(f, func(s model.Summary) bool {
			switch n := s.(type) {
			case *model.ImportSummary:
				if n.IsWildcard() {
					deps[n.String()] = true
				} else if !n.Static {
					add(&model.TypeDecl{Package: n.PackageName(), Name: n.TypeName})
				}
			case *model.TypeDecl:
				add(n)
			case *model.MessageSendSummary:
				addReceiver(n.ResolveType())
			case *model.FieldAccessSummary:
				addReceiver(n.ResolveType())
			}
			return s != nil
		})

		out = make([]string, 0, len(deps))
		for name := range deps {
			out = append(out, name)
		}
		sort.Strings(out)
		return nil
	})
	return out, err
}

// Dependents returns the files outside pkg that import from it or refer to
// one of its types, ordered by path.
func (q *QueryBuilder) Dependents(pkg string) ([]string, error) {
	var out []string
	err := q.e.View(func(r *registry.Registry) error {
		for _, f := range r.Files() {
			if f.PackageName() != pkg && refersTo(f, pkg) {
				out = append(out, f.Path)
			}
		}
		return nil
	})
	return out, err
}

func refersTo(f *model.FileSummary, pkg string) bool {
	for _, imp := range f.Imports() {
		if imp.PackageName() == pkg {
			return true
		}
	}
	found := false
	model.Inspect(f, func(s model.Summary) bool {
		if found || s == nil {
			return false
		}
		if d, ok := s.(*model.TypeDecl); ok && !d.Primitive && d.Package == pkg {
			found = true
		}
		return !found
	})
	return found
}
