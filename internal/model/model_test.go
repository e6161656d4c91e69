package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapLookup resolves references by qualified name.
type mapLookup map[string]*TypeSummary

func (m mapLookup) LookupType(ref *TypeDecl) *TypeSummary {
	return m[ref.QualifiedName()]
}

// buildSample returns pkg "com.acme" holding Widget.java with one class,
// a field, a method and a nested type.
func buildSample(t *testing.T) (*PackageSummary, *FileSummary, *TypeSummary, *MethodSummary) {
	t.Helper()
	pkg := NewPackage("com.acme")
	f := NewFile("/src/com/acme/Widget.java")
	pkg.AddFile(f)

	imp := &ImportSummary{Package: NewPackage("java.util"), TypeName: "List"}
	f.AddImport(imp)

	typ := NewType("Widget", FlavorClass)
	f.AddType(typ)

	field := NewField("count")
	field.SetType(field, &TypeDecl{Name: "int", Primitive: true})
	typ.AddField(field)

	m := NewMethod("run")
	m.SetReturn(&TypeDecl{Name: "void", Primitive: true})
	p := NewParameter("args")
	p.SetType(p, &TypeDecl{Package: "java.lang", Name: "String", Rank: 1})
	m.AddParameter(p)
	m.AddDependency(&MessageSendSummary{Object: "x", Message: "y"})
	typ.AddMethod(m)

	typ.AddType(NewType("Inner", FlavorClass))
	return pkg, f, typ, m
}

// =============================================================================
// Lines
// =============================================================================

func TestSpan_ClampsStartDownToEnd(t *testing.T) {
	t.Parallel()
	f := NewField("x")
	f.SetLines(10, 4)
	assert.Equal(t, 4, f.StartLine())
	assert.Equal(t, 4, f.EndLine())
}

func TestSpan_DerivedDeclLine(t *testing.T) {
	t.Parallel()
	m := NewMethod("m")
	m.SetLines(3, 9)
	assert.Equal(t, 4, m.DeclLine())

	m.SetLines(5, 5)
	assert.Equal(t, 5, m.DeclLine())
}

func TestSpan_ExplicitDeclLineStaysInRange(t *testing.T) {
	t.Parallel()
	m := NewMethod("m")
	m.SetLines(3, 9)
	m.SetDeclLine(20)
	assert.Equal(t, 9, m.DeclLine())

	m.SetDeclLine(1)
	assert.Equal(t, 1, m.DeclLine())
	assert.Equal(t, 1, m.StartLine())
	assert.LessOrEqual(t, m.StartLine(), m.DeclLine())
	assert.LessOrEqual(t, m.DeclLine(), m.EndLine())
}

// =============================================================================
// Ownership
// =============================================================================

func TestOwnership_ChainEndsAtPackage(t *testing.T) {
	t.Parallel()
	pkg, _, typ, m := buildSample(t)

	got, err := PackageOf(m.Parameters()[0].Type)
	require.NoError(t, err)
	assert.Same(t, pkg, got)

	depth, err := OwnerDepth(m.Parameters()[0].Type)
	require.NoError(t, err)
	// typedecl -> parameter -> method -> type -> file -> package
	assert.Equal(t, 5, depth)

	assert.Same(t, typ, TypeOf(m))
	assert.Same(t, typ, m.Type())
}

func TestOwnership_EveryEntityReachesPackage(t *testing.T) {
	t.Parallel()
	pkg, _, _, _ := buildSample(t)

	Inspect(pkg, func(s Summary) bool {
		if s == nil {
			return false
		}
		got, err := PackageOf(s)
		require.NoError(t, err, "%s %s", s.Kind(), Label(s))
		assert.Same(t, pkg, got)
		return true
	})
}

func TestOwnership_DetachedValue(t *testing.T) {
	t.Parallel()
	typ := NewType("Loose", FlavorClass)
	_, err := PackageOf(typ)
	assert.ErrorIs(t, err, ErrDetached)
	assert.Nil(t, FileOf(typ))
}

func TestPackage_AddFileMovesBetweenPackages(t *testing.T) {
	t.Parallel()
	a := NewPackage("a")
	b := NewPackage("b")
	f := NewFile("/x/F.java")

	a.AddFile(f)
	b.AddFile(f)

	assert.Empty(t, a.Files())
	assert.Equal(t, []*FileSummary{f}, b.Files())
	assert.Same(t, b, f.Package())

	f.Relink(a)
	assert.Empty(t, b.Files())
	assert.Same(t, a, f.Package())
	assert.True(t, f.Moving)

	f.Moving = false
	f.Relink(a)
	assert.False(t, f.Moving)

	f.Relink(nil)
	assert.Nil(t, f.Package())
	assert.Empty(t, a.Files())
}

func TestFile_ResetKeepsIdentity(t *testing.T) {
	t.Parallel()
	pkg, f, typ, _ := buildSample(t)
	f.Deleted = true
	f.Moving = true
	f.SetLines(1, 40)

	f.Reset()

	assert.Empty(t, f.Imports())
	assert.Empty(t, f.Types())
	assert.False(t, f.Deleted)
	assert.False(t, f.Moving)
	assert.Equal(t, 0, f.EndLine())
	assert.Same(t, pkg, f.Package())
	assert.Nil(t, typ.Owner())
}

// =============================================================================
// Types & Methods
// =============================================================================

func TestType_QualifiedNames(t *testing.T) {
	t.Parallel()
	_, _, typ, m := buildSample(t)
	inner := typ.Nested("Inner")
	require.NotNil(t, inner)

	assert.Equal(t, "com.acme.Widget", typ.QualifiedName())
	assert.Equal(t, "Widget.Inner", inner.NestedName())
	assert.Equal(t, "com.acme.Widget.Inner", inner.QualifiedName())

	local := NewType("Local", FlavorClass)
	m.AddDependency(local)
	assert.Equal(t, "com.acme.Widget.Local", local.QualifiedName())

	anon := NewType("", FlavorClass)
	m.AddDependency(anon)
	assert.Equal(t, "", anon.QualifiedName())
	assert.Nil(t, typ.Nested(""))
}

func TestType_InitializerCreatedOnce(t *testing.T) {
	t.Parallel()
	typ := NewType("T", FlavorClass)

	s1 := typ.Initializer(true)
	s2 := typ.Initializer(true)
	i1 := typ.Initializer(false)

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, i1)
	assert.Len(t, typ.Methods(), 2)

	assert.True(t, s1.IsInitializer())
	assert.True(t, s1.IsStaticInitializer())
	assert.False(t, s1.IsConstructor())
	assert.False(t, i1.IsStaticInitializer())
	assert.False(t, i1.IsConstructor())

	ctor := NewMethod("T")
	assert.True(t, ctor.IsConstructor())
}

func TestMethod_DependencyDedup(t *testing.T) {
	t.Parallel()
	m := NewMethod("m")

	assert.True(t, m.AddDependency(&TypeDecl{Package: "a", Name: "B"}))
	assert.False(t, m.AddDependency(&TypeDecl{Package: "a", Name: "B"}))
	assert.True(t, m.AddDependency(&TypeDecl{Package: "a", Name: "B", Rank: 1}))

	assert.True(t, m.AddDependency(&FieldAccessSummary{Object: "this", Field: "z"}))
	assert.True(t, m.AddDependency(&FieldAccessSummary{Object: "this", Field: "z", Write: true}))
	assert.False(t, m.AddDependency(&FieldAccessSummary{Object: "this", Field: "z", Write: true}))

	assert.True(t, m.AddDependency(&MessageSendSummary{Object: "x", Message: "y"}))
	assert.False(t, m.AddDependency(&MessageSendSummary{Object: "x", Message: "y"}))

	// Locals are kept by identity even when they look alike.
	assert.True(t, m.AddDependency(NewLocalVariable("i")))
	assert.True(t, m.AddDependency(NewLocalVariable("i")))

	assert.Len(t, m.Dependencies(), 7)
	for _, d := range m.Dependencies() {
		assert.Same(t, m, d.Owner())
	}
}

func TestMethod_BlockDepth(t *testing.T) {
	t.Parallel()
	m := NewMethod("m")
	m.EnterBlock()
	m.EnterBlock()
	m.ExitBlock()
	m.EnterBlock()
	m.ExitBlock()
	m.ExitBlock()
	m.ExitBlock()

	assert.Equal(t, 0, m.BlockDepth())
	assert.Equal(t, 2, m.MaxBlockDepth())
}

// =============================================================================
// Type references
// =============================================================================

func TestTypeDecl_SameType(t *testing.T) {
	t.Parallel()
	target := NewType("Widget", FlavorClass)
	lookup := mapLookup{"com.acme.Widget": target}

	a := &TypeDecl{Package: "com.acme", Name: "Widget"}
	b := &TypeDecl{Package: "com.acme", Name: "Widget", Rank: 2}
	missing := &TypeDecl{Package: "com.acme", Name: "Gadget"}

	assert.True(t, a.SameType(b, lookup), "rank is not compared")
	assert.False(t, a.SameType(missing, lookup))
	assert.False(t, missing.SameType(missing, lookup), "unresolved is never the same")
	assert.False(t, a.SameType(b, nil))

	i1 := &TypeDecl{Name: "int", Primitive: true}
	i2 := &TypeDecl{Name: "int", Primitive: true, Rank: 1}
	l := &TypeDecl{Name: "long", Primitive: true}
	assert.True(t, i1.SameType(i2, nil))
	assert.False(t, i1.SameType(l, nil))
	assert.False(t, i1.SameType(a, lookup))
}

func TestTypeDecl_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "java.lang.String[][]", (&TypeDecl{Package: "java.lang", Name: "String", Rank: 2}).String())
	assert.Equal(t, "int", (&TypeDecl{Name: "int", Primitive: true}).String())
}

func TestReference_ResolveType(t *testing.T) {
	t.Parallel()
	send := &MessageSendSummary{Object: "Math", Package: "java.lang", Message: "max"}
	ref := send.ResolveType()
	require.NotNil(t, ref)
	assert.Equal(t, "java.lang.Math", ref.QualifiedName())
	assert.Equal(t, "java.lang.Math.max()", send.String())

	access := &FieldAccessSummary{Object: "list", Field: "size"}
	assert.Nil(t, access.ResolveType())
	assert.Equal(t, "list.size", access.String())
}

func TestMethod_CompareSignature(t *testing.T) {
	t.Parallel()
	str := NewType("String", FlavorClass)
	lookup := mapLookup{"java.lang.String": str}

	mk := func(name string, ret *TypeDecl, params ...*TypeDecl) *MethodSummary {
		m := NewMethod(name)
		if ret != nil {
			m.SetReturn(ret)
		}
		for _, d := range params {
			p := NewParameter("p")
			p.SetType(p, d)
			m.AddParameter(p)
		}
		return m
	}
	strRef := func(rank int) *TypeDecl { return &TypeDecl{Package: "java.lang", Name: "String", Rank: rank} }
	intRef := &TypeDecl{Name: "int", Primitive: true}

	base := mk("put", intRef, strRef(0))

	assert.Equal(t, SignatureExact, base.CompareSignature(mk("put", intRef, strRef(0)), lookup))
	assert.Equal(t, SignatureNearMiss, base.CompareSignature(mk("put", intRef, strRef(1)), lookup))
	assert.Equal(t, SignatureNearMiss, base.CompareSignature(mk("put", intRef, intRef), lookup))
	assert.Equal(t, SignatureDifferent, base.CompareSignature(mk("get", intRef, strRef(0)), lookup))
	assert.Equal(t, SignatureDifferent, base.CompareSignature(mk("put", intRef), lookup))

	// An unresolvable return type is never an exact match.
	unknown := &TypeDecl{Package: "x", Name: "Unknown"}
	assert.Equal(t, SignatureNearMiss, mk("put", unknown, strRef(0)).CompareSignature(mk("put", unknown, strRef(0)), lookup))

	assert.Equal(t, "put(java.lang.String)", base.Signature())
}

// =============================================================================
// Traversal
// =============================================================================

func TestWalk_Order(t *testing.T) {
	t.Parallel()
	pkg, _, _, _ := buildSample(t)

	var kinds []string
	Inspect(pkg, func(s Summary) bool {
		if s != nil {
			kinds = append(kinds, s.Kind().String())
		}
		return true
	})

	assert.Equal(t, []string{
		"package", "file", "import", "type",
		"field", "typedecl",
		"method", "typedecl", "parameter", "typedecl", "send",
		"type",
	}, kinds)
}

func TestInspect_PruneSubtree(t *testing.T) {
	t.Parallel()
	pkg, _, _, _ := buildSample(t)

	count := 0
	Inspect(pkg, func(s Summary) bool {
		if s == nil {
			return false
		}
		count++
		return s.Kind() != KindType
	})
	// package, file, import, type
	assert.Equal(t, 4, count)
}

func TestFprint(t *testing.T) {
	t.Parallel()
	pkg, f, _, _ := buildSample(t)
	f.SetLines(1, 20)

	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, pkg))
	out := buf.String()

	assert.Contains(t, out, "package com.acme [0-0]\n")
	assert.Contains(t, out, "  file /src/com/acme/Widget.java [1-20]\n")
	assert.Contains(t, out, "    type class Widget")
	assert.Contains(t, out, "      method run(java.lang.String[]) void")
	assert.Contains(t, out, "        send x.y()")
}
