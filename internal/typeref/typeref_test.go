package typeref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/model"
)

type mapLookup map[string]*model.TypeSummary

func (m mapLookup) LookupType(ref *model.TypeDecl) *model.TypeSummary {
	return m[ref.QualifiedName()]
}

func newFile(pkgName string, imports ...*model.ImportSummary) *model.FileSummary {
	pkg := model.NewPackage(pkgName)
	f := model.NewFile("/src/F.java")
	pkg.AddFile(f)
	for _, imp := range imports {
		f.AddImport(imp)
	}
	return f
}

func importOf(pkg, typeName string) *model.ImportSummary {
	return &model.ImportSummary{Package: model.NewPackage(pkg), TypeName: typeName}
}

func TestSplitQualified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parts []string
		pkg   string
		name  string
	}{
		{[]string{"java", "util", "List"}, "java.util", "List"},
		{[]string{"java", "util", "Map", "Entry"}, "java.util", "Map.Entry"},
		{[]string{"Map", "Entry"}, "", "Map.Entry"},
		{[]string{"Widget"}, "", "Widget"},
		{[]string{"com", "acme", "thing"}, "com.acme", "thing"},
		{nil, "", ""},
	}
	for _, tt := range tests {
		pkg, name := SplitQualified(tt.parts)
		assert.Equal(t, tt.pkg, pkg, "%v", tt.parts)
		assert.Equal(t, tt.name, name, "%v", tt.parts)
	}
}

func TestResolve_Primitives(t *testing.T) {
	t.Parallel()
	r := New(nil)

	ref := r.Resolve([]string{"int"}, 2, nil)
	require.NotNil(t, ref)
	assert.True(t, ref.Primitive)
	assert.Equal(t, 2, ref.Rank)
	assert.Empty(t, ref.Package)

	assert.True(t, IsPrimitive("void"))
	assert.False(t, IsPrimitive("String"))
}

func TestResolve_UnqualifiedOrder(t *testing.T) {
	t.Parallel()
	widget := model.NewType("Widget", model.FlavorClass)
	lookup := mapLookup{"com.parts.Widget": widget}
	r := New(lookup)

	f := newFile("com.acme",
		importOf("java.util", "List"),
		importOf("java.util", "Map.Entry"),
		importOf("com.parts", ""),
	)

	assert.Equal(t, "java.util.List", r.Resolve([]string{"List"}, 0, InFile(f)).QualifiedName())
	assert.Equal(t, "java.util.Map.Entry", r.Resolve([]string{"Entry"}, 0, InFile(f)).QualifiedName())
	assert.Equal(t, "com.parts.Widget", r.Resolve([]string{"Widget"}, 0, InFile(f)).QualifiedName())
	assert.Equal(t, "java.lang.String", r.Resolve([]string{"String"}, 0, InFile(f)).QualifiedName())
	assert.Equal(t, "com.acme.Gadget", r.Resolve([]string{"Gadget"}, 0, InFile(f)).QualifiedName())
	assert.Equal(t, "java.util.List.Sub", r.Resolve([]string{"List", "Sub"}, 0, InFile(f)).QualifiedName())
}

func TestResolve_OwnTypeShadowsJavaLang(t *testing.T) {
	t.Parallel()
	f := newFile("com.acme")
	f.AddType(model.NewType("String", model.FlavorClass))

	ref := New(nil).Resolve([]string{"String"}, 0, InFile(f))
	assert.Equal(t, "com.acme.String", ref.QualifiedName())
}

func TestResolve_Qualified(t *testing.T) {
	t.Parallel()
	f := newFile("com.acme", importOf("java.util", "List"))
	ref := New(nil).Resolve([]string{"org", "other", "List"}, 1, InFile(f))
	assert.Equal(t, "org.other", ref.Package)
	assert.Equal(t, "List", ref.Name)
	assert.Equal(t, 1, ref.Rank)
}

func TestResolver_Same(t *testing.T) {
	t.Parallel()
	widget := model.NewType("Widget", model.FlavorClass)
	r := New(mapLookup{"com.acme.Widget": widget})
	f := newFile("com.acme")

	a := r.Resolve([]string{"Widget"}, 0, InFile(f))
	b := r.Resolve([]string{"com", "acme", "Widget"}, 1, nil)
	assert.True(t, r.Same(a, b))

	i := r.Resolve([]string{"int"}, 0, nil)
	j := New(nil).Resolve([]string{"int"}, 3, nil)
	assert.True(t, r.Same(i, j))
	assert.False(t, r.Same(a, i))
}

// typeScope places a name inside a type.
type typeScope struct {
	f *model.FileSummary
	t *model.TypeSummary
}

func (s typeScope) File() *model.FileSummary { return s.f }
func (s typeScope) Type() *model.TypeSummary { return s.t }
func (s typeScope) Declares(t *model.TypeSummary, simple string) bool {
	return t.Nested(simple) != nil
}

func TestResolve_MemberTypes(t *testing.T) {
	t.Parallel()
	f := newFile("p", importOf("q", "Inner"))
	outer := model.NewType("Outer", model.FlavorClass)
	f.AddType(outer)
	inner := model.NewType("Inner", model.FlavorClass)
	outer.AddType(inner)
	sibling := model.NewType("Sibling", model.FlavorClass)
	outer.AddType(sibling)
	r := New(nil)

	inOuter := typeScope{f, outer}
	assert.Equal(t, "p.Outer.Inner", r.Resolve([]string{"Inner"}, 0, inOuter).QualifiedName())
	assert.Equal(t, "p.Outer", r.Resolve([]string{"Outer"}, 0, inOuter).QualifiedName())
	assert.Equal(t, "p.Outer.Inner.Deep", r.Resolve([]string{"Inner", "Deep"}, 0, inOuter).QualifiedName())

	inInner := typeScope{f, inner}
	assert.Equal(t, "p.Outer.Inner", r.Resolve([]string{"Inner"}, 0, inInner).QualifiedName())
	assert.Equal(t, "p.Outer.Sibling", r.Resolve([]string{"Sibling"}, 0, inInner).QualifiedName())

	// outside Outer the single-type import wins
	assert.Equal(t, "q.Inner", r.Resolve([]string{"Inner"}, 0, InFile(f)).QualifiedName())
}

func TestResolve_AnonymousTypeSeesOuterMembers(t *testing.T) {
	t.Parallel()
	f := newFile("p")
	outer := model.NewType("Outer", model.FlavorClass)
	f.AddType(outer)
	outer.AddType(model.NewType("Inner", model.FlavorClass))
	anon := model.NewType("", model.FlavorClass)
	outer.AddType(anon)

	ref := New(nil).Resolve([]string{"Inner"}, 0, typeScope{f, anon})
	assert.Equal(t, "p.Outer.Inner", ref.QualifiedName())
}
