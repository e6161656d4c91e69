package arbor

import (
	"fmt"
	"sort"

	"github.com/jward/arbor/internal/registry"
)

// DependencyGraph is the package-to-package dependency graph, aggregated
// from file-level imports.
type DependencyGraph struct {
	Packages []PackageNode   `json:"packages"`
	Edges    []DependencyEdge `json:"edges"`
}

// PackageNode represents a package in the dependency graph.
type PackageNode struct {
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
	TypeCount int    `json:"type_count"`
	LineCount int    `json:"line_count"`
}

// DependencyEdge represents a dependency between two packages with the
// number of file-level imports that contribute to it.
type DependencyEdge struct {
	FromPackage string `json:"from"`
	ToPackage   string `json:"to"`
	ImportCount int    `json:"import_count"`
}

// PackageDependencyGraph returns the package-to-package dependency graph.
// Every import of a file counts towards the edge from the file's package to
// the imported package; imports of the file's own package are not counted.
// Imported packages without indexed files (java.util, ...) appear only as
// edge targets.
func (q *QueryBuilder) PackageDependencyGraph() (*DependencyGraph, error) {
	type edgeKey struct{ from, to string }
	edgeCounts := map[edgeKey]int{}
	var packages []PackageNode

	err := q.e.View(func(r *registry.Registry) error {
		for _, p := range r.Packages() {
			node := PackageNode{Name: p.Name, FileCount: len(p.Files())}
			for _, f := range p.Files() {
				node.TypeCount += len(f.Types())
				node.LineCount += f.EndLine()
				for _, imp := range f.Imports() {
					to := imp.PackageName()
					if to == p.Name {
						continue
					}
					edgeCounts[edgeKey{p.Name, to}]++
				}
			}
			packages = append(packages, node)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("package graph: %w", err)
	}

	var edges []DependencyEdge
	for ek, count := range edgeCounts {
		edges = append(edges, DependencyEdge{
			FromPackage: ek.from,
			ToPackage:   ek.to,
			ImportCount: count,
		})
	}
	// Sort edges for deterministic output.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromPackage != edges[j].FromPackage {
			return edges[i].FromPackage < edges[j].FromPackage
		}
		return edges[i].ToPackage < edges[j].ToPackage
	})

	if packages == nil {
		packages = []PackageNode{}
	}
	if edges == nil {
		edges = []DependencyEdge{}
	}

	return &DependencyGraph{Packages: packages, Edges: edges}, nil
}

// CircularDependencies detects cycles in the package dependency graph using
// Tarjan's strongly connected components algorithm.
// Returns a list of cycles, each represented as a list of package names
// (first element repeated at end for clarity).
// Returns empty list (not nil) for acyclic graphs.
func (q *QueryBuilder) CircularDependencies() ([][]string, error) {
	graph, err := q.PackageDependencyGraph()
	if err != nil {
		return nil, fmt.Errorf("circular dependencies: %w", err)
	}

	// Build adjacency list and detect self-loops.
	adj := map[string][]string{}
	selfLoops := map[string]bool{}
	for _, edge := range graph.Edges {
		if edge.FromPackage == edge.ToPackage {
			selfLoops[edge.FromPackage] = true
		}
		adj[edge.FromPackage] = append(adj[edge.FromPackage], edge.ToPackage)
	}

	// Tarjan's SCC algorithm.
	type nodeInfo struct {
		index   int
		lowlink int
		onStack bool
	}
	info := map[string]*nodeInfo{}
	index := 0
	var stack []string
	var result [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		ni := &nodeInfo{index: index, lowlink: index, onStack: true}
		info[v] = ni
		index++
		stack = append(stack, v)

		for _, w := range adj[v] {
			wInfo, visited := info[w]
			if !visited {
				strongconnect(w)
				wInfo = info[w]
				if wInfo.lowlink < ni.lowlink {
					ni.lowlink = wInfo.lowlink
				}
			} else if wInfo.onStack {
				if wInfo.index < ni.lowlink {
					ni.lowlink = wInfo.index
				}
			}
		}

		if ni.lowlink == ni.index {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				info[w].onStack = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Only report SCCs with size > 1 (actual cycles) or self-loops.
			if len(scc) > 1 || selfLoops[scc[0]] {
				// Reverse the SCC to get a natural cycle order (Tarjan pops in reverse).
				for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
					scc[i], scc[j] = scc[j], scc[i]
				}
				// Append first element to end for cycle clarity.
				scc = append(scc, scc[0])
				result = append(result, scc)
			}
		}
	}

	// Process all package nodes (including those with no edges).
	for _, pkg := range graph.Packages {
		if _, visited := info[pkg.Name]; !visited {
			strongconnect(pkg.Name)
		}
	}

	if result == nil {
		result = [][]string{}
	}

	// Sort for deterministic output.
	sort.Slice(result, func(i, j int) bool {
		return result[i][0] < result[j][0]
	})

	return result, nil
}
