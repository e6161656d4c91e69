package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/syntax"
)

// packageTable interns packages for tests.
type packageTable map[string]*model.PackageSummary

func (p packageTable) Package(name string) *model.PackageSummary {
	if pkg, ok := p[name]; ok {
		return pkg
	}
	pkg := model.NewPackage(name)
	p[name] = pkg
	return pkg
}

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.NewJavaParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func load(t *testing.T, src string) (*Result, packageTable) {
	t.Helper()
	pkgs := packageTable{}
	res := New(pkgs).Load(parse(t, src), "/src/Test.java")
	require.NotNil(t, res.File)
	return res, pkgs
}

func onlyType(t *testing.T, f *model.FileSummary) *model.TypeSummary {
	t.Helper()
	require.Len(t, f.Types(), 1)
	return f.Types()[0]
}

func method(t *testing.T, typ *model.TypeSummary, name string) *model.MethodSummary {
	t.Helper()
	m := typ.Method(name)
	require.NotNil(t, m, "method %s", name)
	return m
}

func sends(m *model.MethodSummary) []*model.MessageSendSummary {
	var out []*model.MessageSendSummary
	for _, d := range m.Dependencies() {
		if s, ok := d.(*model.MessageSendSummary); ok {
			out = append(out, s)
		}
	}
	return out
}

func accesses(m *model.MethodSummary) []*model.FieldAccessSummary {
	var out []*model.FieldAccessSummary
	for _, d := range m.Dependencies() {
		if a, ok := d.(*model.FieldAccessSummary); ok {
			out = append(out, a)
		}
	}
	return out
}

func typeDeps(m *model.MethodSummary) []string {
	var out []string
	for _, d := range m.Dependencies() {
		if r, ok := d.(*model.TypeDecl); ok {
			out = append(out, r.String())
		}
	}
	return out
}

func localTypes(m *model.MethodSummary) []*model.TypeSummary {
	var out []*model.TypeSummary
	for _, d := range m.Dependencies() {
		if ts, ok := d.(*model.TypeSummary); ok {
			out = append(out, ts)
		}
	}
	return out
}

// assertWellFormed checks owner chains and line ranges of every summary
// under f.
func assertWellFormed(t *testing.T, f *model.FileSummary) {
	t.Helper()
	model.Inspect(f, func(s model.Summary) bool {
		if s == nil {
			return false
		}
		depth, err := model.OwnerDepth(s)
		require.NoError(t, err, "%s %s", s.Kind(), model.Label(s))
		assert.Positive(t, depth)
		assert.LessOrEqual(t, s.StartLine(), s.EndLine(), "%s %s", s.Kind(), model.Label(s))
		assert.GreaterOrEqual(t, s.DeclLine(), s.StartLine(), "%s %s", s.Kind(), model.Label(s))
		assert.LessOrEqual(t, s.DeclLine(), s.EndLine(), "%s %s", s.Kind(), model.Label(s))
		return true
	})
}

// =============================================================================
// Files & Packages
// =============================================================================

const widgetSrc = `package com.acme;

import java.util.List;

/** Doc. */
public class Widget {
    private int a, b;

    public int sum(int x) {
        return a + b + x;
    }
}
`

func TestLoad_PackageAndImports(t *testing.T) {
	t.Parallel()
	res, pkgs := load(t, widgetSrc)
	f := res.File

	require.Contains(t, pkgs, "com.acme")
	assert.Same(t, pkgs["com.acme"], f.Package())
	assert.Equal(t, []*model.FileSummary{f}, pkgs["com.acme"].Files())
	assert.Equal(t, "/src/Test.java", f.Path)

	require.Len(t, f.Imports(), 1)
	imp := f.Imports()[0]
	assert.Equal(t, "java.util", imp.PackageName())
	assert.Equal(t, "List", imp.TypeName)
	assert.False(t, imp.IsWildcard())
	assert.Empty(t, res.Anomalies)
	assert.Equal(t, 1, res.Types)
}

func TestLoad_Lines(t *testing.T) {
	t.Parallel()
	res, _ := load(t, widgetSrc)
	f := res.File
	assertWellFormed(t, f)

	assert.Equal(t, 1, f.StartLine())
	assert.Equal(t, 12, f.EndLine())

	imp := f.Imports()[0]
	assert.Equal(t, 2, imp.StartLine())
	assert.Equal(t, 3, imp.EndLine())

	typ := onlyType(t, f)
	assert.Equal(t, 4, typ.StartLine())
	assert.Equal(t, 6, typ.DeclLine())
	assert.Equal(t, 12, typ.EndLine())

	require.Len(t, typ.Fields(), 2)
	for _, fld := range typ.Fields() {
		assert.Equal(t, 7, fld.StartLine(), fld.Name)
		assert.Equal(t, 7, fld.EndLine(), fld.Name)
	}

	m := method(t, typ, "sum")
	assert.Equal(t, 8, m.StartLine())
	assert.Equal(t, 9, m.DeclLine())
	assert.Equal(t, 11, m.EndLine())
	assert.Equal(t, 1, m.Statements)
	assert.Equal(t, 0, m.MaxBlockDepth())
}

func TestLoad_NoPackageUsesDefault(t *testing.T) {
	t.Parallel()
	res, pkgs := load(t, "class A {}\n")
	require.Contains(t, pkgs, "")
	assert.Same(t, pkgs[""], res.File.Package())
	assert.Equal(t, "A", onlyType(t, res.File).QualifiedName())
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Parallel()
	res, pkgs := load(t, "")
	assert.Same(t, pkgs[""], res.File.Package())
	assert.Empty(t, res.File.Types())
	assert.Equal(t, 1, res.File.EndLine())
	assert.Equal(t, 0, res.Types)
}

func TestLoad_WildcardAndStaticImports(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `import java.util.*;
import static java.lang.Math.max;
import static org.junit.Assert.*;
import java.util.Map.Entry;
class A {}
`)
	imps := res.File.Imports()
	require.Len(t, imps, 4)

	assert.True(t, imps[0].IsWildcard())
	assert.Equal(t, "java.util", imps[0].PackageName())

	assert.True(t, imps[1].Static)
	assert.Equal(t, "java.lang", imps[1].PackageName())
	assert.Equal(t, "Math", imps[1].TypeName)

	assert.True(t, imps[2].Static)
	assert.Equal(t, "org.junit", imps[2].PackageName())
	assert.Equal(t, "Assert", imps[2].TypeName)

	assert.Equal(t, "java.util", imps[3].PackageName())
	assert.Equal(t, "Map.Entry", imps[3].TypeName)
}

// =============================================================================
// Types
// =============================================================================

func TestLoad_TypeHeaders(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `package p;

import java.io.Serializable;

public abstract class Shape extends Base implements Comparable<Shape>, Serializable {
}

interface Named extends java.util.function.Supplier<String> {
    String name() throws IllegalStateException;
    int LIMIT = 3;
}
`)
	types := res.File.Types()
	require.Len(t, types, 2)

	shape := types[0]
	assert.Equal(t, "Shape", shape.Name)
	assert.Equal(t, model.FlavorClass, shape.Flavor)
	assert.Equal(t, []string{"public", "abstract"}, shape.Modifiers)
	require.NotNil(t, shape.Parent)
	assert.Equal(t, "p.Base", shape.Parent.QualifiedName())
	require.Len(t, shape.Implements, 2)
	assert.Equal(t, "java.lang.Comparable", shape.Implements[0].QualifiedName())
	assert.Equal(t, "java.io.Serializable", shape.Implements[1].QualifiedName())

	named := types[1]
	assert.True(t, named.IsInterface())
	require.Len(t, named.Implements, 1)
	assert.Equal(t, "java.util.function.Supplier", named.Implements[0].QualifiedName())

	m := method(t, named, "name")
	require.NotNil(t, m.Return)
	assert.Equal(t, "java.lang.String", m.Return.QualifiedName())
	require.Len(t, m.Exceptions(), 1)
	assert.Equal(t, "java.lang.IllegalStateException", m.Exceptions()[0].QualifiedName())
	assert.Contains(t, typeDeps(m), "java.lang.IllegalStateException")
	assert.Equal(t, 0, m.Statements)

	limit := named.Field("LIMIT")
	require.NotNil(t, limit)
	assert.Equal(t, []string{"public", "static", "final"}, limit.Modifiers)
	assertWellFormed(t, res.File)
}

func TestLoad_NestedLocalAndAnonymousTypes(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `package p;

public class Outer {
    class Inner {}

    public void run() {
        class Local {}
        Runnable r = new Runnable() {
            public void run() {}
        };
    }
}
`)
	outer := onlyType(t, res.File)
	require.Len(t, outer.Types(), 1)
	inner := outer.Types()[0]
	assert.Equal(t, "p.Outer.Inner", inner.QualifiedName())

	run := method(t, outer, "run")
	local := localTypes(run)
	require.Len(t, local, 2)

	assert.Equal(t, "Local", local[0].Name)
	assert.Equal(t, "p.Outer.Local", local[0].QualifiedName())
	assert.Same(t, run, local[0].Owner())

	anon := local[1]
	assert.True(t, anon.IsAnonymous())
	require.NotNil(t, anon.Parent)
	assert.Equal(t, "java.lang.Runnable", anon.Parent.QualifiedName())
	require.Len(t, anon.Methods(), 1)
	assert.Equal(t, "run", anon.Methods()[0].Name)

	assert.Contains(t, typeDeps(run), "java.lang.Runnable")
	assert.Equal(t, 4, res.Types)
	assert.Empty(t, res.Anomalies)
	assertWellFormed(t, res.File)
}

func TestLoad_AnonymousTypeInFieldInitializer(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `package p;

class Outer {
    Runnable r = new Runnable() {
        public void run() { hidden(); }
    };
    int n = compute();
}
`)
	outer := onlyType(t, res.File)
	field := outer.Field("r")
	require.NotNil(t, field)
	assert.Equal(t, "java.lang.Runnable", field.Type.QualifiedName())

	require.Len(t, outer.Types(), 1)
	anon := outer.Types()[0]
	assert.True(t, anon.IsAnonymous())
	assert.Same(t, outer, anon.Owner())
	require.NotNil(t, anon.Parent)
	assert.Equal(t, "java.lang.Runnable", anon.Parent.QualifiedName())
	assert.GreaterOrEqual(t, anon.StartLine(), field.StartLine())
	assert.LessOrEqual(t, anon.EndLine(), field.EndLine())

	run := method(t, anon, "run")
	require.Len(t, sends(run), 1)
	assert.Equal(t, "hidden", sends(run)[0].Message)

	// the initializers themselves record nothing
	assert.Empty(t, outer.Methods())
	assert.Equal(t, 2, res.Types)
	assert.Empty(t, res.Anomalies)
	assertWellFormed(t, res.File)
}

func TestLoad_EnumConstantsAndRecordComponents(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `package p;

enum Color {
    RED,
    GREEN {
        void f() {}
    };

    void g() {}
}

record Point(int x, int y) {
    Point {
        check(x);
    }
}
`)
	types := res.File.Types()
	require.Len(t, types, 2)

	color := types[0]
	assert.Equal(t, model.FlavorEnum, color.Flavor)
	require.Len(t, color.Fields(), 2)
	red := color.Fields()[0]
	assert.Equal(t, "RED", red.Name)
	assert.Equal(t, "p.Color", red.Type.QualifiedName())
	require.Len(t, color.Types(), 1)
	assert.True(t, color.Types()[0].IsAnonymous())
	assert.NotNil(t, color.Method("g"))

	point := types[1]
	assert.Equal(t, model.FlavorRecord, point.Flavor)
	require.Len(t, point.Fields(), 2)
	assert.Equal(t, "x", point.Fields()[0].Name)
	assert.True(t, point.Fields()[0].Type.Primitive)

	ctor := method(t, point, "Point")
	assert.True(t, ctor.IsConstructor())
	require.Len(t, ctor.Parameters(), 2)
	assert.Equal(t, "y", ctor.Parameters()[1].Name)
	assert.Equal(t, 1, ctor.Statements)
	assertWellFormed(t, res.File)
}

// =============================================================================
// Members
// =============================================================================

func TestLoad_ArrayRankAccumulates(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    int[] x[];
    void m(String[] args[], int... rest) {
        long[][] y[] = null;
    }
}
`)
	typ := onlyType(t, res.File)

	x := typ.Field("x")
	require.NotNil(t, x)
	assert.True(t, x.Type.Primitive)
	assert.Equal(t, 2, x.Type.Rank)

	m := method(t, typ, "m")
	require.Len(t, m.Parameters(), 2)
	assert.Equal(t, 2, m.Parameters()[0].Type.Rank)
	assert.Equal(t, "java.lang.String", m.Parameters()[0].Type.QualifiedName())
	assert.Equal(t, 1, m.Parameters()[1].Type.Rank)

	var y *model.LocalVariableSummary
	for _, d := range m.Dependencies() {
		if lv, ok := d.(*model.LocalVariableSummary); ok {
			y = lv
		}
	}
	require.NotNil(t, y)
	assert.Equal(t, 3, y.Type.Rank)
}

func TestLoad_MultipleDeclaratorsShareTypeAndModifiers(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    private static String first = "a",
        second,
        third = "c";
}
`)
	typ := onlyType(t, res.File)
	require.Len(t, typ.Fields(), 3)

	wantLines := [][2]int{{2, 2}, {3, 3}, {4, 4}}
	for i, f := range typ.Fields() {
		assert.Equal(t, []string{"private", "static"}, f.Modifiers)
		assert.Equal(t, "java.lang.String", f.Type.QualifiedName())
		assert.Equal(t, wantLines[i][0], f.StartLine(), f.Name)
		assert.Equal(t, wantLines[i][1], f.EndLine(), f.Name)
	}
}

func TestLoad_Constructors(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    A() {
        this(1);
    }
    A(int n) {
        super();
        count = n;
    }
    int count;
}
`)
	typ := onlyType(t, res.File)
	var ctors []*model.MethodSummary
	for _, m := range typ.Methods() {
		if m.IsConstructor() {
			ctors = append(ctors, m)
		}
	}
	require.Len(t, ctors, 2)

	assert.Equal(t, 1, ctors[0].Statements)
	require.Len(t, sends(ctors[0]), 1)
	assert.Equal(t, "this", sends(ctors[0])[0].Message)

	assert.Equal(t, 2, ctors[1].Statements)
	require.Len(t, sends(ctors[1]), 1)
	assert.Equal(t, "super", sends(ctors[1])[0].Message)
	acc := accesses(ctors[1])
	require.Len(t, acc, 1)
	assert.Equal(t, "count", acc[0].Field)
	assert.True(t, acc[0].Write)
}

func TestLoad_Initializers(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    static int n;
    static {
        n = 1;
    }
    {
        foo();
    }
    static {
        n = 2;
    }
}
`)
	typ := onlyType(t, res.File)
	require.Len(t, typ.Methods(), 2)

	static := typ.Initializer(true)
	assert.Equal(t, model.StaticInitializerName, static.Name)
	assert.Equal(t, 2, static.Statements)
	assert.Len(t, accesses(static), 1)
	assert.Equal(t, 3, static.StartLine())
	assert.Equal(t, 11, static.EndLine())
	assert.False(t, static.IsConstructor())

	inst := typ.Initializer(false)
	assert.Equal(t, model.InstanceInitializerName, inst.Name)
	require.Len(t, sends(inst), 1)
	assert.Equal(t, "foo", sends(inst)[0].Message)
	assert.Len(t, typ.Methods(), 2)
}

// =============================================================================
// Method bodies
// =============================================================================

func TestLoad_DependencyCompleteness(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    void m() {
        x.y();
        this.z = 1;
    }
}
`)
	m := method(t, onlyType(t, res.File), "m")

	s := sends(m)
	require.Len(t, s, 1)
	assert.Equal(t, "x", s[0].Object)
	assert.Equal(t, "y", s[0].Message)

	a := accesses(m)
	require.Len(t, a, 1)
	assert.Equal(t, "this", a[0].Object)
	assert.Equal(t, "z", a[0].Field)
	assert.True(t, a[0].Write)

	assert.Equal(t, 2, m.Statements)
}

func TestLoad_BlockDepth(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    void m(boolean a, boolean b) {
        if (a) {
            while (b) {
                c();
            }
        }
    }
}
`)
	m := method(t, onlyType(t, res.File), "m")
	assert.Equal(t, 2, m.MaxBlockDepth())
	assert.Equal(t, 0, m.BlockDepth())
	// if, while and the call; the nested blocks add nothing
	assert.Equal(t, 3, m.Statements)
	// parameters are not field accesses
	assert.Empty(t, accesses(m))
}

func TestLoad_SwitchCountsAsBlock(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    void m(int k) {
        switch (k) {
            case 1:
                a();
                break;
            default:
                b();
        }
    }
}
`)
	m := method(t, onlyType(t, res.File), "m")
	assert.Equal(t, 1, m.MaxBlockDepth())
	// switch, a(), break, b()
	assert.Equal(t, 4, m.Statements)
}

func TestLoad_ChainsAndQualifiedReceivers(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `import java.util.Collections;
class A {
    int[] data;
    void m(java.util.List<String> items) {
        Collections.sort(items);
        java.util.Objects.requireNonNull(items).size();
        this.data[0] = 4;
        int n = other.count;
        Math.max(n, 2);
    }
}
`)
	m := method(t, onlyType(t, res.File), "m")

	byMessage := map[string]*model.MessageSendSummary{}
	for _, s := range sends(m) {
		byMessage[s.Message] = s
	}
	require.Contains(t, byMessage, "sort")
	assert.Equal(t, "Collections", byMessage["sort"].Object)
	assert.Equal(t, "java.util", byMessage["sort"].Package)
	require.NotNil(t, byMessage["sort"].ResolveType())
	assert.Equal(t, "java.util.Collections", byMessage["sort"].ResolveType().QualifiedName())

	require.Contains(t, byMessage, "requireNonNull")
	assert.Equal(t, "java.util", byMessage["requireNonNull"].Package)
	assert.Equal(t, "Objects", byMessage["requireNonNull"].Object)

	require.Contains(t, byMessage, "size")
	assert.Empty(t, byMessage["size"].Object)

	require.Contains(t, byMessage, "max")
	assert.Equal(t, "java.lang", byMessage["max"].Package)

	byField := map[string]*model.FieldAccessSummary{}
	for _, a := range accesses(m) {
		byField[a.Field] = a
	}
	require.Contains(t, byField, "data")
	assert.Equal(t, "this", byField["data"].Object)
	assert.True(t, byField["data"].Write)

	require.Contains(t, byField, "count")
	assert.Equal(t, "other", byField["count"].Object)
	assert.False(t, byField["count"].Write)

	assert.NotContains(t, byField, "n", "locals are not field accesses")
	assert.Contains(t, typeDeps(m), "java.util.List")
	assert.Contains(t, typeDeps(m), "java.lang.String")
}

func TestLoad_BodyTypeReferences(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `package p;
class A {
    Object m(Object o) throws java.io.IOException {
        if (o instanceof Widget w) {
            return (Gadget) w.part();
        }
        for (Item i : items) {
            i.use();
        }
        try {
            run();
        } catch (IllegalStateException | IllegalArgumentException e) {
            log(e);
        }
        return Thing.class;
    }
}
`)
	m := method(t, onlyType(t, res.File), "m")
	deps := typeDeps(m)
	for _, want := range []string{
		"java.lang.Object", "java.io.IOException", "p.Widget", "p.Gadget",
		"p.Item", "java.lang.IllegalStateException", "java.lang.IllegalArgumentException", "p.Thing",
	} {
		assert.Contains(t, deps, want)
	}

	var locals []string
	for _, d := range m.Dependencies() {
		if lv, ok := d.(*model.LocalVariableSummary); ok {
			locals = append(locals, lv.Name)
		}
	}
	assert.ElementsMatch(t, []string{"w", "i", "e"}, locals)

	// catch and try blocks, the if and for bodies
	assert.Equal(t, 1, m.MaxBlockDepth())
	assertWellFormed(t, res.File)
}

func TestLoad_LambdaAndMethodReference(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    void m() {
        items.forEach(item -> item.close());
        items.stream().map(String::valueOf);
    }
}
`)
	m := method(t, onlyType(t, res.File), "m")
	byMessage := map[string]*model.MessageSendSummary{}
	for _, s := range sends(m) {
		byMessage[s.Message] = s
	}
	assert.Contains(t, byMessage, "forEach")
	assert.Contains(t, byMessage, "close")
	require.Contains(t, byMessage, "valueOf")
	assert.Equal(t, "String", byMessage["valueOf"].Object)

	for _, a := range accesses(m) {
		assert.NotEqual(t, "item", a.Field)
	}
}

func TestLoad_InnerScopesEndWithTheirStatement(t *testing.T) {
	t.Parallel()
	res, _ := load(t, `class A {
    int z, w, i, e, s;

    void m(java.util.List<Integer> xs) {
        { int z = 1; }
        xs.forEach(w -> w.hashCode());
        for (int i = 0; i < 1; i++) { }
        for (Integer s : xs) { }
        try { } catch (RuntimeException e) { }
        z = 2;
        w = 3;
        i = 4;
        e = 5;
        s = 6;
    }
}
`)
	m := method(t, onlyType(t, res.File), "m")

	var writes []string
	for _, a := range accesses(m) {
		assert.True(t, a.Write, a.Field)
		writes = append(writes, a.Field)
	}
	assert.ElementsMatch(t, []string{"z", "w", "i", "e", "s"}, writes)
	assert.Empty(t, res.Anomalies)
}

// =============================================================================
// Reload & anomalies
// =============================================================================

func TestReload_PreservesIdentity(t *testing.T) {
	t.Parallel()
	pkgs := packageTable{}
	l := New(pkgs)

	res := l.Load(parse(t, "package a;\nclass Old {}\n"), "/src/F.java")
	f := res.File
	require.Same(t, pkgs["a"], f.Package())

	again := l.Reload(parse(t, "package b;\n\nclass New {}\nclass Newer {}\n"), f)
	assert.Same(t, f, again.File)
	assert.Same(t, pkgs["b"], f.Package())
	assert.Empty(t, pkgs["a"].Files())
	assert.Equal(t, []*model.FileSummary{f}, pkgs["b"].Files())
	require.Len(t, f.Types(), 2)
	assert.Equal(t, "b.New", f.Types()[0].QualifiedName())
	assert.Equal(t, 4, f.EndLine())
	assert.Equal(t, "/src/F.java", f.Path)
}

func TestReload_DroppedPackageMovesToDefault(t *testing.T) {
	t.Parallel()
	pkgs := packageTable{}
	l := New(pkgs)
	first := l.Load(parse(t, "package a;\nclass A {}\n"), "/src/A.java")
	assert.False(t, first.Moved)
	f := first.File

	res := l.Reload(parse(t, "class A {}\n"), f)
	assert.Same(t, pkgs[""], f.Package())
	assert.Empty(t, pkgs["a"].Files())
	assert.True(t, res.Moved)
	assert.False(t, f.Moving)

	res = l.Reload(parse(t, "class A {}\n"), f)
	assert.False(t, res.Moved)
}

func TestReload_MovingSetWhileBuilding(t *testing.T) {
	t.Parallel()
	pkgs := packageTable{}
	l := New(pkgs)
	f := l.Load(parse(t, "package a;\nclass A {}\n"), "/src/A.java").File
	f.Reset()

	st := SeededState(pkgs, f)
	st.EnterPackage("b")
	assert.True(t, f.Moving)
	assert.Same(t, pkgs["b"], f.Package())

	st.EnterPackage("b")
	assert.True(t, f.Moving, "stays set until the reload finishes")
}

func TestAnomaly_MethodOutsideClassBody(t *testing.T) {
	t.Parallel()
	tree := parse(t, "class A { void m() { int x = 1; } }")
	classNode := tree.Root().NamedChildren()[0]
	body := classNode.Field("body")
	var methodNode syntax.Node
	for _, c := range body.NamedChildren() {
		if c.Kind() == "method_declaration" {
			methodNode = c
		}
	}
	require.False(t, methodNode.IsNull())

	pkgs := packageTable{}
	b := New(pkgs).newBuild(tree, NewState(pkgs, "/src/A.java"))
	b.st.EnterPackage("")

	b.methodDecl(methodNode)

	require.Len(t, b.anomalies, 1)
	a := b.anomalies[0]
	assert.Equal(t, "method_declaration", a.Construct)
	assert.Equal(t, ModeLoadingFile, a.Mode)
	assert.Equal(t, 1, a.Line)
	assert.Contains(t, a.String(), "/src/A.java:1")
	// line accounting still covered the skipped method
	assert.Equal(t, methodNode.EndByte(), b.c.Offset())
	assert.Empty(t, b.st.File().Types())
	assert.Equal(t, ModeLoadingFile, b.st.Mode())
}
