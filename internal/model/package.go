package model

import (
	"slices"
	"time"
)

// PackageSummary groups the files that declare the same package. The empty
// name is the default package.
type PackageSummary struct {
	span
	Name  string
	files []*FileSummary
}

// NewPackage returns an empty package. Packages are normally interned by the
// registry rather than built directly.
func NewPackage(name string) *PackageSummary {
	return &PackageSummary{Name: name}
}

func (p *PackageSummary) Kind() Kind { return KindPackage }

// IsDefault reports whether p is the unnamed top-level package.
func (p *PackageSummary) IsDefault() bool { return p.Name == "" }

// Files returns the package's files in insertion order.
func (p *PackageSummary) Files() []*FileSummary { return p.files }

// AddFile makes p the owner of f, detaching it from any previous package.
func (p *PackageSummary) AddFile(f *FileSummary) {
	if prev, ok := f.Owner().(*PackageSummary); ok {
		if prev == p {
			return
		}
		prev.RemoveFile(f)
	}
	p.files = append(p.files, f)
	attach(p, f)
}

// RemoveFile drops f from the package. It reports whether f was present.
func (p *PackageSummary) RemoveFile(f *FileSummary) bool {
	i := slices.Index(p.files, f)
	if i < 0 {
		return false
	}
	p.files = slices.Delete(p.files, i, i+1)
	if f.Owner() == Summary(p) {
		f.setOwner(nil)
	}
	return true
}

// FileSummary is the summary of one compilation unit. Registry callers hold
// on to the pointer; a reload clears and rebuilds the same value.
type FileSummary struct {
	span
	Path    string
	ModTime time.Time

	// Moving is set from the moment a reload links the file under a different
	// package until that reload finishes.
	Moving bool
	// Deleted is set once the file has been removed from the index.
	Deleted bool

	imports []*ImportSummary
	types   []*TypeSummary
}

// NewFile returns an empty, unowned file summary.
func NewFile(path string) *FileSummary {
	return &FileSummary{Path: path}
}

func (f *FileSummary) Kind() Kind { return KindFile }

// Package returns the owning package, or nil for a detached file.
func (f *FileSummary) Package() *PackageSummary {
	p, _ := f.Owner().(*PackageSummary)
	return p
}

// PackageName returns the owning package's name, or "" when detached.
func (f *FileSummary) PackageName() string {
	if p := f.Package(); p != nil {
		return p.Name
	}
	return ""
}

func (f *FileSummary) Imports() []*ImportSummary { return f.imports }
func (f *FileSummary) Types() []*TypeSummary { return f.types }

// Relink moves f under pkg and marks it Moving when that changes its
// package. The loader clears the flag. A nil pkg detaches f.
func (f *FileSummary) Relink(pkg *PackageSummary) {
	if pkg != nil {
		if prev := f.Package(); prev != nil && prev != pkg {
			f.Moving = true
		}
		pkg.AddFile(f)
		return
	}
	if prev := f.Package(); prev != nil {
		prev.RemoveFile(f)
	}
}

// AddImport appends an import owned by f.
func (f *FileSummary) AddImport(i *ImportSummary) {
	f.imports = append(f.imports, i)
	attach(f, i)
}

// AddType appends a top-level type owned by f.
func (f *FileSummary) AddType(t *TypeSummary) {
	f.types = append(f.types, t)
	attach(f, t)
}

// Reset clears the file's contents and flags in place. The path, timestamp
// and owning package are kept.
func (f *FileSummary) Reset() {
	for _, i := range f.imports {
		i.setOwner(nil)
	}
	for _, t := range f.types {
		t.setOwner(nil)
	}
	f.imports = nil
	f.types = nil
	f.Moving = false
	f.Deleted = false
	f.start, f.end, f.decl, f.hasDecl = 0, 0, 0, false
}

// ImportSummary is one import declaration. An empty TypeName imports every
// type of Package.
type ImportSummary struct {
	span
	Package  *PackageSummary
	TypeName string
	Static   bool
}

func (i *ImportSummary) Kind() Kind { return KindImport }

// IsWildcard reports whether the import names a whole package.
func (i *ImportSummary) IsWildcard() bool { return i.TypeName == "" }

// PackageName returns the target package name.
func (i *ImportSummary) PackageName() string {
	if i.Package == nil {
		return ""
	}
	return i.Package.Name
}

// String renders the import the way it is written in source.
func (i *ImportSummary) String() string {
	name := i.PackageName()
	switch {
	case i.IsWildcard() && name == "":
		name = "*"
	case i.IsWildcard():
		name += ".*"
	case name == "":
		name = i.TypeName
	default:
		name += "." + i.TypeName
	}
	if i.Static {
		return "static " + name
	}
	return name
}
