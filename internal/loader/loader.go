// Package loader builds model summaries from a Java syntax tree. It rides on
// the line-accounting walker: every token of the tree is consumed exactly
// once and in source order, so each construct gets its start, declaration
// and end lines while its entity is created and linked to its owner.
//
// What a node means depends on the traversal mode held in State. Regions the
// loader does not extract from (modifiers, type parameters, field
// initializers, default values) are walked in ModeIgnore.
package loader

import (
	"log/slog"
	"strings"

	"github.com/jward/arbor/internal/lines"
	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/syntax"
	"github.com/jward/arbor/internal/typeref"
)

// Loader turns parsed files into summaries. It holds no per-file state and
// may be reused, but not concurrently with itself on the same Packages.
type Loader struct {
	pkgs   Packages
	lookup model.TypeLookup
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger anomalies are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithLookup sets the type lookup used to place names imported by wildcard.
func WithLookup(lookup model.TypeLookup) Option {
	return func(ld *Loader) { ld.lookup = lookup }
}

// New returns a loader that interns packages through pkgs.
func New(pkgs Packages, opts ...Option) *Loader {
	l := &Loader{pkgs: pkgs, logger: slog.Default()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Result is the outcome of loading one file.
type Result struct {
	File      *model.FileSummary
	Anomalies []Anomaly
	// Types counts every type declared in the file, nested and local ones
	// included.
	Types int
	// Moved reports that a reload moved the file to another package.
	Moved bool
}

// Load builds a new file summary for tree. The file is linked under its
// declared package, or the default package when it declares none.
func (l *Loader) Load(tree *syntax.Tree, path string) *Result {
	return l.run(tree, NewState(l.pkgs, path))
}

// Reload clears f and rebuilds it from tree in place, so holders of f see
// the new contents. A changed package declaration moves f between packages.
func (l *Loader) Reload(tree *syntax.Tree, f *model.FileSummary) *Result {
	f.Reset()
	return l.run(tree, SeededState(l.pkgs, f))
}

// build is the per-file traversal.
type build struct {
	l   *Loader
	st  *State
	c   *lines.Counter
	w   *lines.Walker
	res *typeref.Resolver

	anomalies  []Anomaly
	types      int
	sawPackage bool

	// scopes holds the variable names visible in the method bodies being
	// walked, innermost last.
	scopes []map[string]bool
	// components records how many leading fields of a record are its
	// components.
	components map[*model.TypeSummary]int
}

func (l *Loader) newBuild(tree *syntax.Tree, st *State) *build {
	c := lines.NewCounter(tree.Source())
	return &build{
		l:          l,
		st:         st,
		c:          c,
		w:          lines.NewWalker(c),
		res:        typeref.New(l.lookup),
		components: make(map[*model.TypeSummary]int),
	}
}

func (l *Loader) run(tree *syntax.Tree, st *State) *Result {
	b := l.newBuild(tree, st)
	for _, child := range tree.Root().Children() {
		b.visit(child)
	}

	f := st.File()
	if !b.sawPackage && (f.Package() == nil || !f.Package().IsDefault()) {
		st.EnterPackage("")
	}
	f.SetLines(1, max(b.line(), 1))
	b.checkOwners(f)

	moved := f.Moving
	f.Moving = false
	return &Result{File: f, Anomalies: b.anomalies, Types: b.types, Moved: moved}
}

// checkOwners reports types whose owner chain does not reach a package.
func (b *build) checkOwners(f *model.FileSummary) {
	model.Inspect(f, func(s model.Summary) bool {
		t, ok := s.(*model.TypeSummary)
		if !ok {
			return s != nil
		}
		if _, err := model.PackageOf(t); err != nil {
			b.anomalies = append(b.anomalies, Anomaly{
				Path:      b.st.path,
				Line:      t.DeclLine(),
				Construct: "type " + t.Name,
				Mode:      b.st.Mode(),
				Message:   err.Error(),
			})
			b.l.logger.Warn("loader.anomaly", "path", b.st.path, "type", t.Name, "err", err)
		}
		return true
	})
}

// visit dispatches n according to the current mode.
func (b *build) visit(n syntax.Node) {
	if n.IsNull() || n.IsExtra() {
		return
	}
	switch b.st.Mode() {
	case ModeIgnore:
		b.skip(n)
	case ModeInitializing, ModeLoadingFile:
		b.visitFileLevel(n)
	case ModeLoadingType:
		b.visitTypeHeader(n)
	case ModeLoadingClassBody:
		b.visitMember(n)
	case ModeLoadingInterfaceList:
		b.visitInterface(n)
	case ModeLoadingExceptions:
		b.visitException(n)
	case ModeLoadingParameters:
		b.visitParameter(n)
	case ModeLoadingMethodBody:
		b.visitBody(n)
	case ModeLoadingFieldValue:
		b.visitFieldValue(n)
	default:
		b.anomaly(n, "unknown traversal mode")
		b.skip(n)
	}
}

func (b *build) children(n syntax.Node) {
	for _, c := range n.Children() {
		b.visit(c)
	}
}

// skip consumes n for line accounting only.
func (b *build) skip(n syntax.Node) { b.w.Skip(n) }

func (b *build) start() int { return b.c.NextStart() }
func (b *build) line() int  { return b.c.Line() }

// within pushes s in mode for the duration of fn.
func (b *build) within(s model.Summary, mode Mode, fn func()) {
	b.st.Push(s, mode)
	defer b.st.Pop()
	fn()
}

// inMode switches mode for the duration of fn.
func (b *build) inMode(mode Mode, fn func()) {
	prev := b.st.SetMode(mode)
	defer b.st.SetMode(prev)
	fn()
}

func (b *build) visitFileLevel(n syntax.Node) {
	switch n.Kind() {
	case "package_declaration":
		b.packageDecl(n)
	case "import_declaration":
		b.importDecl(n)
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		b.typeDecl(n)
	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		b.methodDecl(n)
	default:
		b.skip(n)
	}
}

func (b *build) packageDecl(n syntax.Node) {
	name := nameNode(n)
	b.st.EnterPackage(strings.Join(name.NameParts(), "."))
	b.sawPackage = true
	b.skip(n)
}

func (b *build) importDecl(n syntax.Node) {
	start := b.start()
	parts := nameNode(n).NameParts()
	static := !n.Token("static").IsNull()
	wildcard := !n.Token("asterisk").IsNull()

	var pkg, typeName string
	switch {
	case wildcard && !static:
		pkg = strings.Join(parts, ".")
	case static && !wildcard && len(parts) > 0:
		// import static a.B.member: keep the declaring type
		pkg, typeName = typeref.SplitQualified(parts[:len(parts)-1])
	default:
		pkg, typeName = typeref.SplitQualified(parts)
	}

	imp := &model.ImportSummary{
		Package:  b.st.pkgs.Package(pkg),
		TypeName: typeName,
		Static:   static,
	}
	b.st.File().AddImport(imp)
	b.skip(n)
	imp.SetLines(start, b.line())
}

// nameNode returns the first identifier or scoped identifier child of n.
func nameNode(n syntax.Node) syntax.Node {
	for _, c := range n.NamedChildren() {
		switch c.Kind() {
		case "identifier", "scoped_identifier":
			return c
		}
	}
	return syntax.Node{}
}

// modifiers returns the modifier keywords of a declaration, annotations
// excluded.
func modifiers(n syntax.Node) []string {
	mods := n.Token("modifiers")
	if mods.IsNull() {
		return nil
	}
	var out []string
	for _, c := range mods.Children() {
		switch c.Kind() {
		case "annotation", "marker_annotation":
			continue
		}
		if !c.IsExtra() {
			out = append(out, c.Text())
		}
	}
	return out
}

// isTypeNode reports whether kind is one of the grammar's type rules.
func isTypeNode(kind string) bool {
	switch kind {
	case "type_identifier", "scoped_type_identifier", "generic_type", "array_type",
		"integral_type", "floating_point_type", "boolean_type", "void_type", "annotated_type":
		return true
	}
	return false
}

// typeRefs returns the reference for a type node followed by the references
// in its type arguments, all at rank 0. Primitives and "var" are dropped.
func (b *build) typeRefs(n syntax.Node) []*model.TypeDecl {
	var out []*model.TypeDecl
	var collect func(syntax.Node)
	collect = func(n syntax.Node) {
		if ref := b.res.FromNode(n, 0, b.st); ref != nil && !ref.Primitive && ref.Name != typeref.Inferred {
			out = append(out, ref.Clone(0))
		}
		switch n.Kind() {
		case "generic_type":
			for _, c := range n.NamedChildren() {
				if c.Kind() == "type_arguments" {
					for _, arg := range c.NamedChildren() {
						collect(arg)
					}
				}
			}
		case "array_type":
			collect(n.Field("element"))
		case "wildcard", "annotated_type":
			// FromNode already looked through them.
		}
	}
	collect(n)
	// an array type and its element name the same reference
	uniq := out[:0]
	for _, r := range out {
		dup := false
		for _, u := range uniq {
			if u.Equal(r) {
				dup = true
				break
			}
		}
		if !dup {
			uniq = append(uniq, r)
		}
	}
	return uniq
}

// typeDeps records the references of a type node as dependencies of m and
// consumes the node.
func (b *build) typeDeps(m *model.MethodSummary, n syntax.Node) {
	if m != nil {
		for _, ref := range b.typeRefs(n) {
			m.AddDependency(ref)
		}
	}
	b.skip(n)
}
