// Package model defines the summary entities built for a Java source tree:
// packages, files, imports, types, methods, variables, type references and
// the field-access and message-send records found in method bodies.
//
// Every entity except a package has exactly one owner. Owner links are plain
// pointers kept by the containers that add the entity; a file summary is the
// stable handle for its contents and is refreshed in place on reload.
package model

import (
	"errors"
	"fmt"
)

// ErrDetached is returned when an owner chain does not end in a package.
var ErrDetached = errors.New("model: summary is not attached to a package")

// maxOwnerDepth bounds owner walks so a corrupted chain cannot loop forever.
const maxOwnerDepth = 1024

// Kind identifies the concrete entity behind a Summary.
type Kind int

const (
	KindPackage Kind = iota
	KindFile
	KindImport
	KindType
	KindMethod
	KindField
	KindParameter
	KindLocalVariable
	KindTypeDecl
	KindMessageSend
	KindFieldAccess
)

var kindNames = [...]string{
	KindPackage:       "package",
	KindFile:          "file",
	KindImport:        "import",
	KindType:          "type",
	KindMethod:        "method",
	KindField:         "field",
	KindParameter:     "parameter",
	KindLocalVariable: "local",
	KindTypeDecl:      "typedecl",
	KindMessageSend:   "send",
	KindFieldAccess:   "access",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Summary is implemented by every entity in this package and only by them.
type Summary interface {
	Kind() Kind
	Owner() Summary
	StartLine() int
	EndLine() int
	DeclLine() int
	SetLines(start, end int)
	SetDeclLine(line int)

	setOwner(Summary)
}

// span holds the owner link and line range shared by all entities.
type span struct {
	owner   Summary
	start   int
	end     int
	decl    int
	hasDecl bool
}

func (s *span) Owner() Summary { return s.owner }
func (s *span) setOwner(o Summary) { s.owner = o }
func (s *span) StartLine() int { return s.start }
func (s *span) EndLine() int { return s.end }

// DeclLine returns the explicit declaration line, or min(start+1, end).
func (s *span) DeclLine() int {
	if s.hasDecl {
		return s.decl
	}
	return min(s.start+1, s.end)
}

// SetLines records the inclusive range. A start after end is clamped down.
func (s *span) SetLines(start, end int) {
	s.start, s.end = start, end
	s.normalize()
}

// SetDeclLine overrides the derived declaration line.
func (s *span) SetDeclLine(line int) {
	s.decl, s.hasDecl = line, true
	s.normalize()
}

func (s *span) normalize() {
	if s.end < s.start {
		s.start = s.end
	}
	if !s.hasDecl {
		return
	}
	if s.decl > s.end {
		s.decl = s.end
	}
	if s.decl < s.start {
		s.start = s.decl
	}
}

// attach makes owner the owner of child, replacing any previous owner.
func attach(owner, child Summary) {
	if child != nil {
		child.setOwner(owner)
	}
}

// PackageOf walks owner links from s to the enclosing package.
func PackageOf(s Summary) (*PackageSummary, error) {
	cur := s
	for range maxOwnerDepth {
		if cur == nil {
			return nil, ErrDetached
		}
		if p, ok := cur.(*PackageSummary); ok {
			return p, nil
		}
		cur = cur.Owner()
	}
	return nil, fmt.Errorf("%w: owner chain deeper than %d", ErrDetached, maxOwnerDepth)
}

// FileOf walks owner links from s to the enclosing file, or nil.
func FileOf(s Summary) *FileSummary {
	cur := s
	for range maxOwnerDepth {
		if cur == nil {
			return nil
		}
		if f, ok := cur.(*FileSummary); ok {
			return f
		}
		cur = cur.Owner()
	}
	return nil
}

// TypeOf walks owner links from s to the nearest enclosing type, or nil.
// A type is its own nearest type.
func TypeOf(s Summary) *TypeSummary {
	cur := s
	for range maxOwnerDepth {
		if cur == nil {
			return nil
		}
		if t, ok := cur.(*TypeSummary); ok {
			return t
		}
		cur = cur.Owner()
	}
	return nil
}

// OwnerDepth returns the number of owner links from s to its package.
func OwnerDepth(s Summary) (int, error) {
	depth := 0
	cur := s
	for range maxOwnerDepth {
		if cur == nil {
			return depth, ErrDetached
		}
		if _, ok := cur.(*PackageSummary); ok {
			return depth, nil
		}
		cur = cur.Owner()
		depth++
	}
	return depth, fmt.Errorf("%w: owner chain deeper than %d", ErrDetached, maxOwnerDepth)
}
