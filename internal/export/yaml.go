package export

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jward/arbor/internal/model"
)

// Node is one summary in the YAML tree.
type Node struct {
	Kind     string  `yaml:"kind"`
	Label    string  `yaml:"label"`
	Lines    string  `yaml:"lines,omitempty"`
	Children []*Node `yaml:"children,omitempty"`
}

// YAMLExporter writes every package as a tree of kind/label nodes in Walk
// order.
type YAMLExporter struct{}

// NewYAMLExporter creates a YAMLExporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

// Export implements Exporter.
func (e *YAMLExporter) Export(w io.Writer, pkgs []*model.PackageSummary) error {
	roots := Tree(pkgs)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]*Node{"packages": roots}); err != nil {
		return fmt.Errorf("export: yaml: %w", err)
	}
	return enc.Close()
}

// Tree converts packages to Nodes. Packages without files are left out.
func Tree(pkgs []*model.PackageSummary) []*Node {
	var roots []*Node
	for _, p := range pkgs {
		if len(p.Files()) == 0 {
			continue
		}
		b := &treeBuilder{}
		model.Walk(b, p)
		roots = append(roots, b.root)
	}
	return roots
}

// treeBuilder is a model.Visitor that mirrors the walk as Nodes.
type treeBuilder struct {
	root  *Node
	stack []*Node
}

func (b *treeBuilder) Visit(s model.Summary) model.Visitor {
	if s == nil {
		b.stack = b.stack[:len(b.stack)-1]
		return nil
	}
	n := &Node{Kind: s.Kind().String(), Label: model.Label(s)}
	if s.EndLine() > 0 {
		n.Lines = fmt.Sprintf("%d-%d", s.StartLine(), s.EndLine())
	}
	if len(b.stack) == 0 {
		b.root = n
	} else {
		top := b.stack[len(b.stack)-1]
		top.Children = append(top.Children, n)
	}
	b.stack = append(b.stack, n)
	return b
}
