package arbor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"` // total matching results (before pagination)
}

func paginate[T any](all []T, page Pagination) *PagedResult[T] {
	page = page.normalize()
	out := &PagedResult[T]{TotalCount: len(all), Items: []T{}}
	if page.Offset >= len(all) {
		return out
	}
	end := min(page.Offset+page.Limit, len(all))
	out.Items = all[page.Offset:end]
	return out
}

// TypeFilter specifies which types to include. Empty fields match anything.
type TypeFilter struct {
	Package    string   // exact package name
	Flavors    []string // match any of these flavors
	Modifiers  []string // type must have ALL of these modifiers
	NamePrefix string   // prefix of the simple name
	PathPrefix string   // restrict to files under this path
}

func (f TypeFilter) match(t *model.TypeSummary) bool {
	if f.NamePrefix != "" && !strings.HasPrefix(t.Name, f.NamePrefix) {
		return false
	}
	if f.Package != "" {
		p, err := model.PackageOf(t)
		if err != nil || p.Name != f.Package {
			return false
		}
	}
	if len(f.Flavors) > 0 && !containsString(f.Flavors, string(t.Flavor)) {
		return false
	}
	for _, m := range f.Modifiers {
		if !containsString(t.Modifiers, m) {
			return false
		}
	}
	if f.PathPrefix != "" {
		file := model.FileOf(t)
		if file == nil || !strings.HasPrefix(file.Path, f.PathPrefix) {
			return false
		}
	}
	return true
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// --- Type discovery ---

// Types lists the named types matching filter, ordered by qualified name.
func (q *QueryBuilder) Types(filter TypeFilter, page Pagination) (*PagedResult[TypeResult], error) {
	var all []TypeResult
	err := q.e.View(func(r *registry.Registry) error {
		eachType(r, func(t *model.TypeSummary) {
			if filter.match(t) {
				all = append(all, typeResult(t))
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortTypes(all)
	return paginate(all, page), nil
}

// TypesNamed returns every type whose simple name is name, in any package.
func (q *QueryBuilder) TypesNamed(name string) ([]TypeResult, error) {
	var out []TypeResult
	err := q.e.View(func(r *registry.Registry) error {
		eachType(r, func(t *model.TypeSummary) {
			if t.Name == name {
				out = append(out, typeResult(t))
			}
		})
		return nil
	})
	sortTypes(out)
	return out, err
}

// Type returns the type with the given package-qualified nested name
// ("com.acme.Outer.Inner").
func (q *QueryBuilder) Type(qualified string) (*TypeResult, error) {
	var out *TypeResult
	err := q.e.View(func(r *registry.Registry) error {
		t := findType(r, qualified)
		if t == nil {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, qualified)
		}
		res := typeResult(t)
		out = &res
		return nil
	})
	return out, err
}

func sortTypes(ts []TypeResult) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Qualified != ts[j].Qualified {
			return ts[i].Qualified < ts[j].Qualified
		}
		return ts[i].File < ts[j].File
	})
}

// --- Digest ---

// ProjectSummary provides a high-level overview of the index.
type ProjectSummary struct {
	Packages   int            `json:"packages"`
	Files      int            `json:"files"`
	Lines      int            `json:"lines"`
	Flavors    map[string]int `json:"flavors"`
	Types      int            `json:"types"`
	Methods    int            `json:"methods"`
	Fields     int            `json:"fields"`
	Statements int            `json:"statements"`
	Sends      int            `json:"sends"`
	Accesses   int            `json:"accesses"`
	Anomalies  int            `json:"anomalies"`
	// Deepest lists the methods with the deepest block nesting, most
	// statements first among equals.
	Deepest []MethodResult `json:"deepest"`
}

// Summary returns counts over the whole index and the topN most deeply
// nested methods.
func (q *QueryBuilder) Summary(topN int) (*ProjectSummary, error) {
	s := &ProjectSummary{Flavors: make(map[string]int)}
	var methods []*model.MethodSummary
	err := q.e.View(func(r *registry.Registry) error {
		s.Packages = len(r.Packages())
		for _, f := range r.Files() {
			s.Files++
			s.Lines += f.EndLine()
			s.Anomalies += len(r.Anomalies(f.Path))
			model.Inspect(f, func(n model.Summary) bool {
				switch x := n.(type) {
				case *model.TypeSummary:
					s.Types++
					s.Flavors[string(x.Flavor)]++
				case *model.MethodSummary:
					s.Methods++
					s.Statements += x.Statements
					methods = append(methods, x)
				case *model.FieldSummary:
					s.Fields++
				case *model.MessageSendSummary:
					s.Sends++
				case *model.FieldAccessSummary:
					s.Accesses++
				}
				return n != nil
			})
		}

		sort.SliceStable(methods, func(i, j int) bool {
			a, b := methods[i], methods[j]
			if a.MaxBlockDepth() != b.MaxBlockDepth() {
				return a.MaxBlockDepth() > b.MaxBlockDepth()
			}
			return a.Statements > b.Statements
		})
		s.Deepest = []MethodResult{}
		for _, m := range methods[:min(max(topN, 0), len(methods))] {
			s.Deepest = append(s.Deepest, methodResult(m))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
