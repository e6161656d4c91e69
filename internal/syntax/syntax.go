// Package syntax wraps the tree-sitter Java grammar behind a small node
// protocol: ordered children, node kinds, field lookup, sibling tokens,
// the special text (whitespace and comments) that precedes a node, and the
// name parts of dotted names.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// ErrNoTree is returned when the parser produces no syntax tree.
var ErrNoTree = errors.New("syntax: parser returned no tree")

// Parser turns source text into a syntax tree.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*Tree, error)
}

// JavaParser parses Java source with tree-sitter. A fresh tree-sitter parser
// is created per call, so a single JavaParser is safe for concurrent use.
type JavaParser struct{}

// NewJavaParser returns a Parser for Java source.
func NewJavaParser() *JavaParser {
	return &JavaParser{}
}

// Parse parses src and returns its tree.
func (p *JavaParser) Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: tree-sitter parse: %w", err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, ErrNoTree
	}
	return &Tree{tree: tree, src: src}, nil
}

// Tree is a parsed source unit together with the bytes it was parsed from.
type Tree struct {
	tree *sitter.Tree
	src  []byte
}

// Root returns the root node (kind "program").
func (t *Tree) Root() Node {
	return Node{n: t.tree.RootNode(), src: t.src}
}

// Source returns the parsed bytes.
func (t *Tree) Source() []byte {
	return t.src
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Node is a value handle on a syntax node. The zero Node is null.
type Node struct {
	n   *sitter.Node
	src []byte
}

// IsNull reports whether the node is absent.
func (n Node) IsNull() bool { return n.n == nil || n.n.IsNull() }

// Kind returns the grammar symbol name, e.g. "class_declaration" or "{".
func (n Node) Kind() string {
	if n.IsNull() {
		return ""
	}
	return n.n.Type()
}

// ChildCount returns the number of children, named and anonymous.
func (n Node) ChildCount() int {
	if n.IsNull() {
		return 0
	}
	return int(n.n.ChildCount())
}

// Child returns the i-th child.
func (n Node) Child(i int) Node {
	if n.IsNull() {
		return Node{}
	}
	return n.wrap(n.n.Child(i))
}

// Children returns all children in source order.
func (n Node) Children() []Node {
	count := n.ChildCount()
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// NamedChildren returns the named, non-extra children in source order.
func (n Node) NamedChildren() []Node {
	var out []Node
	for _, c := range n.Children() {
		if c.IsNamed() && !c.IsExtra() {
			out = append(out, c)
		}
	}
	return out
}

// Field returns the child stored under the grammar field name, or a null node.
func (n Node) Field(name string) Node {
	if n.IsNull() {
		return Node{}
	}
	return n.wrap(n.n.ChildByFieldName(name))
}

// Token returns the first direct child of the given kind, or a null node.
// It is the lookup used for keywords and punctuation such as "throws" or "{".
func (n Node) Token(kind string) Node {
	for _, c := range n.Children() {
		if c.Kind() == kind {
			return c
		}
	}
	return Node{}
}

// Parent returns the enclosing node.
func (n Node) Parent() Node {
	if n.IsNull() {
		return Node{}
	}
	return n.wrap(n.n.Parent())
}

// NextSibling returns the next node at the same level, skipping comments.
func (n Node) NextSibling() Node {
	if n.IsNull() {
		return Node{}
	}
	next := n.wrap(n.n.NextSibling())
	for !next.IsNull() && next.IsExtra() {
		next = next.wrap(next.n.NextSibling())
	}
	return next
}

// IsNamed reports whether the node is a named grammar rule.
func (n Node) IsNamed() bool { return !n.IsNull() && n.n.IsNamed() }

// IsExtra reports whether the node is an extra such as a comment.
func (n Node) IsExtra() bool { return !n.IsNull() && n.n.IsExtra() }

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return n.ChildCount() == 0 }

// HasError reports whether the subtree contains a syntax error.
func (n Node) HasError() bool { return !n.IsNull() && n.n.HasError() }

// StartByte returns the offset of the first byte of the node.
func (n Node) StartByte() uint32 {
	if n.IsNull() {
		return 0
	}
	return n.n.StartByte()
}

// EndByte returns the offset one past the last byte of the node.
func (n Node) EndByte() uint32 {
	if n.IsNull() {
		return 0
	}
	return n.n.EndByte()
}

// Line returns the 1-based line the node starts on.
func (n Node) Line() int {
	if n.IsNull() {
		return 0
	}
	return int(n.n.StartPoint().Row) + 1
}

// Text returns the source text covered by the node.
func (n Node) Text() string {
	if n.IsNull() {
		return ""
	}
	return n.n.Content(n.src)
}

// Leading returns the special text between the end of the previous sibling
// (or the start of the parent) and the start of this node.
func (n Node) Leading() string {
	if n.IsNull() {
		return ""
	}
	var from uint32
	if prev := n.n.PrevSibling(); prev != nil {
		from = prev.EndByte()
	} else if parent := n.n.Parent(); parent != nil {
		from = parent.StartByte()
	}
	to := n.StartByte()
	if from >= to || int(to) > len(n.src) {
		return ""
	}
	return string(n.src[from:to])
}

// Same reports whether both handles denote the same node.
func (n Node) Same(o Node) bool {
	if n.IsNull() || o.IsNull() {
		return n.IsNull() && o.IsNull()
	}
	return n.StartByte() == o.StartByte() && n.EndByte() == o.EndByte() && n.Kind() == o.Kind()
}

// NameParts returns the dotted segments of a name-valued node:
// identifiers, scoped identifiers, type identifiers and generic types.
// Annotations inside scoped types are dropped.
func (n Node) NameParts() []string {
	switch n.Kind() {
	case "identifier", "type_identifier", "this", "super":
		return []string{n.Text()}
	case "scoped_identifier", "scoped_type_identifier":
		var parts []string
		for _, c := range n.NamedChildren() {
			switch c.Kind() {
			case "annotation", "marker_annotation":
				continue
			}
			parts = append(parts, c.NameParts()...)
		}
		return parts
	case "generic_type":
		for _, c := range n.NamedChildren() {
			if c.Kind() != "type_arguments" {
				return c.NameParts()
			}
		}
	}
	if text := strings.TrimSpace(n.Text()); text != "" {
		return strings.Split(text, ".")
	}
	return nil
}

func (n Node) wrap(c *sitter.Node) Node {
	if c == nil {
		return Node{}
	}
	return Node{n: c, src: n.src}
}
