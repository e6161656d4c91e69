// Package typeref turns the type names written in Java source into canonical
// model.TypeDecl references: package, simple (possibly nested) name, primitive
// flag and array rank.
//
// Resolution is name based only. An unqualified name is placed using the
// member types of the enclosing types, the file's imports, the java.lang
// defaults and finally the file's own package; the registry lookup is
// consulted only to pick between wildcard imports.
package typeref

import (
	"strings"
	"unicode"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/syntax"
)

// Inferred is the placeholder type name of a "var" declaration.
const Inferred = "var"

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

// IsPrimitive reports whether name is a primitive type keyword or void.
func IsPrimitive(name string) bool { return primitives[name] }

// javaLang lists the java.lang types visible without an import.
var javaLang = map[string]bool{
	"AssertionError": true, "AutoCloseable": true, "Boolean": true, "Byte": true,
	"CharSequence": true, "Character": true, "Class": true, "ClassCastException": true,
	"ClassLoader": true, "CloneNotSupportedException": true, "Cloneable": true,
	"Comparable": true, "Deprecated": true, "Double": true, "Enum": true, "Error": true,
	"Exception": true, "Float": true, "FunctionalInterface": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"IndexOutOfBoundsException": true, "Integer": true, "InterruptedException": true,
	"Iterable": true, "Long": true, "Math": true, "NullPointerException": true,
	"Number": true, "NumberFormatException": true, "Object": true, "Override": true,
	"Process": true, "Record": true, "Runnable": true, "Runtime": true,
	"RuntimeException": true, "SafeVarargs": true, "Short": true, "StrictMath": true,
	"String": true, "StringBuffer": true, "StringBuilder": true, "SuppressWarnings": true,
	"System": true, "Thread": true, "ThreadLocal": true, "Throwable": true,
	"UnsupportedOperationException": true, "Void": true,
}

// JavaLang is the package every compilation unit imports implicitly.
const JavaLang = "java.lang"

// SplitQualified splits dotted name parts into a package and a type name.
// Leading segments that start with a lower-case letter form the package; the
// rest, starting at the first capitalized segment, is the (nested) type name.
// A name with no capitalized segment is treated as a bare type name.
func SplitQualified(parts []string) (pkg, name string) {
	for i, p := range parts {
		if startsUpper(p) {
			return strings.Join(parts[:i], "."), strings.Join(parts[i:], ".")
		}
	}
	if len(parts) == 0 {
		return "", ""
	}
	return strings.Join(parts[:len(parts)-1], "."), parts[len(parts)-1]
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// Scope is where a type name is written.
type Scope interface {
	// File is the compilation unit, or nil.
	File() *model.FileSummary
	// Type is the innermost enclosing type, or nil at file level.
	Type() *model.TypeSummary
	// Declares reports whether t has a member type named simple, including
	// members not built yet.
	Declares(t *model.TypeSummary, simple string) bool
}

type fileScope struct{ f *model.FileSummary }

func (s fileScope) File() *model.FileSummary { return s.f }
func (fileScope) Type() *model.TypeSummary   { return nil }
func (fileScope) Declares(t *model.TypeSummary, simple string) bool {
	return t.Nested(simple) != nil
}

// InFile returns the scope of a name written at the top level of f.
func InFile(f *model.FileSummary) Scope { return fileScope{f} }

// Resolver builds TypeDecls in the context of one file.
type Resolver struct {
	lookup model.TypeLookup
}

// New returns a resolver. lookup may be nil, in which case wildcard imports
// never claim a name.
func New(lookup model.TypeLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Lookup returns the collaborator used for same-type checks.
func (r *Resolver) Lookup() model.TypeLookup { return r.lookup }

// Same reports whether a and b denote the same declared type.
func (r *Resolver) Same(a, b *model.TypeDecl) bool {
	return a.SameType(b, r.lookup)
}

// Resolve builds a reference for the dotted name parts written in scope.
// scope may be nil.
func (r *Resolver) Resolve(parts []string, rank int, scope Scope) *model.TypeDecl {
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 && IsPrimitive(parts[0]) {
		return &model.TypeDecl{Name: parts[0], Primitive: true, Rank: rank}
	}
	if len(parts) == 1 && parts[0] == Inferred {
		return &model.TypeDecl{Name: Inferred, Rank: rank}
	}

	if pkg, name := SplitQualified(parts); pkg != "" {
		return &model.TypeDecl{Package: pkg, Name: name, Rank: rank}
	}

	first, rest := parts[0], parts[1:]
	pkg, name := r.place(first, scope)
	if len(rest) > 0 {
		name += "." + strings.Join(rest, ".")
	}
	return &model.TypeDecl{Package: pkg, Name: name, Rank: rank}
}

// place finds the package of a simple type name and returns the name as it
// is known in that package (an imported nested type keeps its outer names).
func (r *Resolver) place(simple string, scope Scope) (pkg, name string) {
	if scope == nil {
		return "", simple
	}
	file := scope.File()
	if file == nil {
		return "", simple
	}
	if nested := enclosingMember(simple, scope); nested != "" {
		return file.PackageName(), nested
	}
	for _, imp := range file.Imports() {
		if imp.IsWildcard() {
			continue
		}
		if imp.TypeName == simple || strings.HasSuffix(imp.TypeName, "."+simple) {
			return imp.PackageName(), imp.TypeName
		}
	}
	own := file.PackageName()
	for _, t := range file.Types() {
		if t.Name == simple {
			return own, simple
		}
	}
	if r.lookup != nil {
		for _, imp := range file.Imports() {
			if !imp.IsWildcard() || imp.Static {
				continue
			}
			ref := &model.TypeDecl{Package: imp.PackageName(), Name: simple}
			if r.lookup.LookupType(ref) != nil {
				return ref.Package, simple
			}
		}
		if r.lookup.LookupType(&model.TypeDecl{Package: own, Name: simple}) != nil {
			return own, simple
		}
	}
	if javaLang[simple] {
		return JavaLang, simple
	}
	return own, simple
}

// enclosingMember returns the nested name of simple when it names one of
// the enclosing types or one of their member types, innermost first.
func enclosingMember(simple string, scope Scope) string {
	for t := scope.Type(); t != nil; t = model.TypeOf(t.Owner()) {
		nested := t.NestedName()
		if nested == "" {
			// anonymous, or inside one
			continue
		}
		if t.Name == simple {
			return nested
		}
		if scope.Declares(t, simple) {
			return nested + "." + simple
		}
	}
	return ""
}

// FromNode builds a reference from a tree-sitter type node. extraRank is
// added to the rank written on the type itself, e.g. the brackets of a
// declarator ("int[] x[]" has rank 2).
func (r *Resolver) FromNode(n syntax.Node, extraRank int, scope Scope) *model.TypeDecl {
	switch n.Kind() {
	case "":
		return nil
	case "array_type":
		return r.FromNode(n.Field("element"), extraRank+Dimensions(n.Field("dimensions")), scope)
	case "annotated_type":
		named := n.NamedChildren()
		if len(named) == 0 {
			return nil
		}
		return r.FromNode(named[len(named)-1], extraRank, scope)
	case "integral_type", "floating_point_type":
		return r.Resolve([]string{strings.TrimSpace(n.Text())}, extraRank, scope)
	case "boolean_type", "void_type":
		return r.Resolve([]string{n.Text()}, extraRank, scope)
	case "wildcard":
		// "? extends T" names T; a bare "?" names nothing.
		for _, c := range n.NamedChildren() {
			if c.Kind() != "annotation" && c.Kind() != "marker_annotation" {
				return r.FromNode(c, extraRank, scope)
			}
		}
		return nil
	}
	return r.Resolve(n.NameParts(), extraRank, scope)
}

// Dimensions counts the bracket pairs of a dimensions node.
func Dimensions(n syntax.Node) int {
	if n.IsNull() {
		return 0
	}
	count := 0
	for _, c := range n.Children() {
		if c.Kind() == "[" {
			count++
		}
	}
	return count
}
