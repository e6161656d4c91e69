package model

import (
	"strings"
	"unicode"
)

// TypeLookup finds the type summary a reference names, if it is indexed.
type TypeLookup interface {
	LookupType(ref *TypeDecl) *TypeSummary
}

// TypeDecl is a reference to a declared type. Name may be dotted for nested
// types ("Map.Entry"); Package is empty for primitives and for names that
// could not be placed in a package.
type TypeDecl struct {
	span
	Package   string
	Name      string
	Primitive bool
	Rank      int
}

func (t *TypeDecl) Kind() Kind { return KindTypeDecl }

// QualifiedName returns package and name joined by a dot.
func (t *TypeDecl) QualifiedName() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

func (t *TypeDecl) String() string {
	return t.QualifiedName() + strings.Repeat("[]", t.Rank)
}

// Equal reports value equality, including array rank.
func (t *TypeDecl) Equal(o *TypeDecl) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Package == o.Package && t.Name == o.Name &&
		t.Primitive == o.Primitive && t.Rank == o.Rank
}

// SameType reports whether both references denote the same declared type.
// Primitives compare by name. Other references must both resolve through
// lookup to the identical summary; an unresolved reference is never the
// same as anything. Array rank is not part of the comparison.
func (t *TypeDecl) SameType(o *TypeDecl, lookup TypeLookup) bool {
	if t == nil || o == nil {
		return false
	}
	if t.Primitive || o.Primitive {
		return t.Primitive && o.Primitive && t.Name == o.Name
	}
	if lookup == nil {
		return false
	}
	a := lookup.LookupType(t)
	if a == nil {
		return false
	}
	return a == lookup.LookupType(o)
}

// Clone returns an unowned copy with the given rank.
func (t *TypeDecl) Clone(rank int) *TypeDecl {
	return &TypeDecl{Package: t.Package, Name: t.Name, Primitive: t.Primitive, Rank: rank}
}

// MessageSendSummary records a method call found in a method body.
type MessageSendSummary struct {
	span
	Object  string
	Package string
	Message string
}

func (m *MessageSendSummary) Kind() Kind { return KindMessageSend }

// ResolveType returns the receiver as a type reference when the receiver
// looks like a type name, otherwise nil.
func (m *MessageSendSummary) ResolveType() *TypeDecl {
	return resolveObject(m.Package, m.Object)
}

func (m *MessageSendSummary) String() string {
	return joinName(m.Package, m.Object, m.Message) + "()"
}

// FieldAccessSummary records a field or variable read or write found in a
// method body.
type FieldAccessSummary struct {
	span
	Object  string
	Package string
	Field   string
	Write   bool
}

func (f *FieldAccessSummary) Kind() Kind { return KindFieldAccess }

// ResolveType returns the object part as a type reference when it looks
// like a type name, otherwise nil.
func (f *FieldAccessSummary) ResolveType() *TypeDecl {
	return resolveObject(f.Package, f.Object)
}

func (f *FieldAccessSummary) String() string {
	return joinName(f.Package, f.Object, f.Field)
}

func resolveObject(pkg, object string) *TypeDecl {
	if object == "" {
		return nil
	}
	first := []rune(object)[0]
	if !unicode.IsUpper(first) {
		return nil
	}
	return &TypeDecl{Package: pkg, Name: object}
}

func joinName(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}
