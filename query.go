package arbor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
)

// ErrTypeNotFound is returned when a qualified type name matches no indexed
// type.
var ErrTypeNotFound = errors.New("arbor: type not found")

// QueryBuilder provides read access to the indexed summaries. Every call
// takes the Engine lock for its duration and returns plain values, so
// results stay valid after later reloads.
type QueryBuilder struct {
	e *Engine
}

// Location represents a line range in an indexed file.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	DeclLine  int    `json:"decl_line"`
	EndLine   int    `json:"end_line"`
}

func locationOf(s model.Summary) Location {
	loc := Location{StartLine: s.StartLine(), DeclLine: s.DeclLine(), EndLine: s.EndLine()}
	if f := model.FileOf(s); f != nil {
		loc.File = f.Path
	}
	return loc
}

// TypeResult describes one type declaration.
type TypeResult struct {
	Name       string   `json:"name"`
	Qualified  string   `json:"qualified"`
	Package    string   `json:"package"`
	Flavor     string   `json:"flavor"`
	Modifiers  []string `json:"modifiers,omitempty"`
	Parent     string   `json:"parent,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Fields     int      `json:"fields"`
	Methods    int      `json:"methods"`
	Location
}

func typeResult(t *model.TypeSummary) TypeResult {
	r := TypeResult{
		Name:      t.NestedName(),
		Qualified: t.QualifiedName(),
		Flavor:    string(t.Flavor),
		Modifiers: t.Modifiers,
		Fields:    len(t.Fields()),
		Methods:   len(t.Methods()),
		Location:  locationOf(t),
	}
	if p, err := model.PackageOf(t); err == nil {
		r.Package = p.Name
	}
	if t.Parent != nil {
		r.Parent = t.Parent.String()
	}
	for _, d := range t.Implements {
		r.Implements = append(r.Implements, d.String())
	}
	return r
}

// MethodResult describes one method, constructor or initializer.
type MethodResult struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Signature  string   `json:"signature"`
	Return     string   `json:"return,omitempty"`
	Modifiers  []string `json:"modifiers,omitempty"`
	Exceptions []string `json:"exceptions,omitempty"`
	Statements int      `json:"statements"`
	MaxDepth   int      `json:"max_depth"`
	Location
}

func methodResult(m *model.MethodSummary) MethodResult {
	r := MethodResult{
		Name:       m.Name,
		Signature:  m.Signature(),
		Modifiers:  m.Modifiers,
		Statements: m.Statements,
		MaxDepth:   m.MaxBlockDepth(),
		Location:   locationOf(m),
	}
	if t := m.Type(); t != nil {
		r.Type = t.QualifiedName()
	}
	if m.Return != nil {
		r.Return = m.Return.String()
	}
	for _, e := range m.Exceptions() {
		r.Exceptions = append(r.Exceptions, e.String())
	}
	return r
}

// FileResult describes one indexed file.
type FileResult struct {
	Path      string    `json:"path"`
	Package   string    `json:"package"`
	ModTime   time.Time `json:"mod_time"`
	Lines     int       `json:"lines"`
	Imports   []string  `json:"imports,omitempty"`
	Types     []string  `json:"types,omitempty"`
	Anomalies []string  `json:"anomalies,omitempty"`
}

// PackageResult describes one package.
type PackageResult struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
	Types []string `json:"types"`
}

// Package returns the files and top-level types of the named package. The
// empty name is the default package. Returns nil with no error if the
// package holds no indexed file.
func (q *QueryBuilder) Package(name string) (*PackageResult, error) {
	var out *PackageResult
	err := q.e.View(func(r *registry.Registry) error {
		p, ok := r.LookupPackage(name)
		if !ok || len(p.Files()) == 0 {
			return nil
		}
		out = &PackageResult{Name: name}
		for _, f := range p.Files() {
			out.Files = append(out.Files, f.Path)
			for _, t := range f.Types() {
				out.Types = append(out.Types, t.QualifiedName())
			}
		}
		sort.Strings(out.Files)
		sort.Strings(out.Types)
		return nil
	})
	return out, err
}

// Packages returns the names of the packages holding indexed files.
func (q *QueryBuilder) Packages() ([]string, error) {
	var out []string
	err := q.e.View(func(r *registry.Registry) error {
		for _, p := range r.Packages() {
			out = append(out, p.Name)
		}
		return nil
	})
	return out, err
}

// File describes the indexed file at path.
func (q *QueryBuilder) File(path string) (*FileResult, error) {
	var out *FileResult
	err := q.e.View(func(r *registry.Registry) error {
		f, ok := r.File(path)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotIndexed, path)
		}
		out = &FileResult{
			Path:    f.Path,
			Package: f.PackageName(),
			ModTime: f.ModTime,
			Lines:   f.EndLine(),
		}
		for _, imp := range f.Imports() {
			out.Imports = append(out.Imports, imp.String())
		}
		for _, t := range f.Types() {
			out.Types = append(out.Types, t.QualifiedName())
		}
		for _, a := range r.Anomalies(path) {
			out.Anomalies = append(out.Anomalies, a.String())
		}
		return nil
	})
	return out, err
}

// Files returns the indexed paths in order.
func (q *QueryBuilder) Files() ([]string, error) {
	var out []string
	err := q.e.View(func(r *registry.Registry) error {
		for _, f := range r.Files() {
			out = append(out, f.Path)
		}
		return nil
	})
	return out, err
}

// eachType calls fn for every named type of every indexed file, nested and
// local types included, in file then declaration order.
func eachType(r *registry.Registry, fn func(t *model.TypeSummary)) {
	for _, f := range r.Files() {
		model.Inspect(f, func(s model.Summary) bool {
			switch n := s.(type) {
			case *model.TypeSummary:
				if !n.IsAnonymous() {
					fn(n)
				}
			case *model.TypeDecl, *model.ImportSummary, nil:
				return false
			}
			return true
		})
	}
}

// eachMethod calls fn for every method of every indexed type.
func eachMethod(r *registry.Registry, fn func(m *model.MethodSummary)) {
	for _, f := range r.Files() {
		model.Inspect(f, func(s model.Summary) bool {
			m, ok := s.(*model.MethodSummary)
			if ok {
				fn(m)
			}
			return s != nil
		})
	}
}

// findType returns the type whose qualified name is qualified.
func findType(r *registry.Registry, qualified string) *model.TypeSummary {
	var found *model.TypeSummary
	eachType(r, func(t *model.TypeSummary) {
		if found == nil && t.QualifiedName() == qualified {
			found = t
		}
	})
	return found
}
