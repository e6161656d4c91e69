package store

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/jward/arbor/internal/model"
)

// ComputeSignatureHash computes a deterministic hash of a type's outward
// shape: name, flavor, modifiers, supertypes, fields, method signatures and
// nested type shapes. Line positions and method bodies do NOT affect it.
func ComputeSignatureHash(t *model.TypeSummary) string {
	h := xxh3.New()
	writeTypeShape(h, t)
	return fmt.Sprintf("%016x", h.Sum64())
}

func writeTypeShape(h io.Writer, t *model.TypeSummary) {
	// Core identity.
	fmt.Fprintf(h, "type:%s:%s\n", t.Name, t.Flavor)
	fmt.Fprintf(h, "modifiers:%s\n", sortedJoin(t.Modifiers))
	if t.Parent != nil {
		fmt.Fprintf(h, "parent:%s\n", t.Parent)
	}

	// Supertypes sorted for determinism.
	impls := make([]string, 0, len(t.Implements))
	for _, d := range t.Implements {
		impls = append(impls, d.String())
	}
	fmt.Fprintf(h, "implements:%s\n", sortedJoin(impls))

	// Fields keep declaration order; reordering fields is a shape change.
	for _, f := range t.Fields() {
		fmt.Fprintf(h, "field:%s:%s:%s\n", f.Name, refString(f.Type), sortedJoin(f.Modifiers))
	}

	// Methods sorted by signature.
	sigs := make([]string, 0, len(t.Methods()))
	for _, m := range t.Methods() {
		var exc []string
		for _, e := range m.Exceptions() {
			exc = append(exc, e.String())
		}
		sigs = append(sigs, m.Signature()+":"+refString(m.Return)+":"+sortedJoin(m.Modifiers)+":"+sortedJoin(exc))
	}
	sort.Strings(sigs)
	for _, s := range sigs {
		fmt.Fprintf(h, "method:%s\n", s)
	}

	for _, n := range t.Types() {
		writeTypeShape(h, n)
	}
	io.WriteString(h, "end\n")
}

func refString(d *model.TypeDecl) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func sortedJoin(ss []string) string {
	sorted := make([]string, len(ss))
	copy(sorted, ss)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
