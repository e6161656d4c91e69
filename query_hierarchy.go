package arbor

import (
	"fmt"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
)

// TypeRelation represents a relationship between two types in a hierarchy.
type TypeRelation struct {
	Type TypeResult `json:"type"`
	Kind string     `json:"kind"` // "extends" or "implements"
}

// TypeHierarchy is the hierarchy view of a single type.
type TypeHierarchy struct {
	Type       TypeResult      `json:"type"`
	Supertypes []string        `json:"supertypes"` // parent chain, nearest first
	Subtypes   []*TypeRelation `json:"subtypes"`   // direct subtypes
}

// Subtypes returns the indexed types that directly extend or implement the
// type with the given qualified name.
//
// A supertype reference matches when the registry resolves it to the queried
// type. References to types that are not indexed match by qualified name.
func (q *QueryBuilder) Subtypes(qualified string) ([]*TypeRelation, error) {
	var out []*TypeRelation
	err := q.e.View(func(r *registry.Registry) error {
		out = subtypes(r, qualified, findType(r, qualified))
		return nil
	})
	return out, err
}

func subtypes(r *registry.Registry, qualified string, target *model.TypeSummary) []*TypeRelation {
	names := func(d *model.TypeDecl) bool {
		if target != nil {
			return r.LookupType(d) == target
		}
		return d.QualifiedName() == qualified
	}
	var out []*TypeRelation
	eachType(r, func(t *model.TypeSummary) {
		if t == target {
			return
		}
		if t.Parent != nil && names(t.Parent) {
			out = append(out, &TypeRelation{Type: typeResult(t), Kind: "extends"})
			return
		}
		for _, d := range t.Implements {
			if names(d) {
				out = append(out, &TypeRelation{Type: typeResult(t), Kind: "implements"})
				return
			}
		}
	})
	return out
}

// TypeHierarchy returns the parent chain and direct subtypes of an indexed
// type. The chain stops at the first parent that is not indexed; its name is
// still reported.
func (q *QueryBuilder) TypeHierarchy(qualified string) (*TypeHierarchy, error) {
	var out *TypeHierarchy
	err := q.e.View(func(r *registry.Registry) error {
		t := findType(r, qualified)
		if t == nil {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, qualified)
		}
		out = &TypeHierarchy{
			Type:       typeResult(t),
			Supertypes: []string{},
			Subtypes:   subtypes(r, qualified, t),
		}
		seen := map[*model.TypeSummary]bool{t: true}
		for cur := t; cur.Parent != nil; {
			out.Supertypes = append(out.Supertypes, cur.Parent.QualifiedName())
			next := r.LookupType(cur.Parent)
			if next == nil || seen[next] {
				break
			}
			seen[next] = true
			cur = next
		}
		return nil
	})
	return out, err
}
