package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor"
	"github.com/jward/arbor/internal/config"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

// withGlobals restores the package-level flag and config state after a test.
func withGlobals(t *testing.T) {
	t.Helper()
	oldDB, oldCfg := flagDB, cfg
	t.Cleanup(func() {
		flagDB, cfg = oldDB, oldCfg
	})
}

func TestResolveDBPath(t *testing.T) {
	withGlobals(t)

	cfg = config.Default()
	flagDB = ""
	assert.Equal(t, filepath.Join("/repo", ".arbor.db"), resolveDBPath("/repo"))

	flagDB = "idx/my.db"
	assert.Equal(t, filepath.Join("/repo", "idx", "my.db"), resolveDBPath("/repo"))

	flagDB = "/abs/my.db"
	assert.Equal(t, "/abs/my.db", resolveDBPath("/repo"))

	flagDB = ""
	cfg.Database = ""
	assert.Equal(t, "", resolveDBPath("/repo"), "empty database keeps the index in memory")
}

func TestResolveTargetDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	got, err := resolveTargetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	file := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0o644))
	_, err = resolveTargetDir([]string{file})
	assert.ErrorContains(t, err, "not a directory")

	_, err = resolveTargetDir([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "directory not found")
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("xml"), `invalid format "xml"`)
}

func TestReceiver(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "-", receiver("", ""))
	assert.Equal(t, "item", receiver("item", ""))
	assert.Equal(t, "java.util.Collections", receiver("Collections", "java.util"))
}

func newMemEngine(t *testing.T) *arbor.Engine {
	t.Helper()
	mem := afero.NewMemMapFs()
	mtime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	files := map[string]string{
		"/src/a/Cart.java":  "package a;\n\npublic class Cart {\n    int total() {\n        return 0;\n    }\n}\n",
		"/src/b/Cart.java":  "package b;\n\nimport a.Cart;\n\nclass Basket extends Cart {\n}\n",
		"/src/b/Other.java": "package b;\n\nclass Cart {\n}\n",
	}
	var paths []string
	for p, src := range files {
		require.NoError(t, afero.WriteFile(mem, p, []byte(src), 0o644))
		require.NoError(t, mem.Chtimes(p, mtime, mtime))
		paths = append(paths, p)
	}
	e, err := arbor.New("", arbor.WithFS(mem))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.IndexFiles(context.Background(), paths))
	return e
}

func TestLookupTypes(t *testing.T) {
	t.Parallel()
	q := newMemEngine(t).Query()

	types, err := lookupTypes(q, "a.Cart")
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "a.Cart", types[0].Qualified)

	types, err = lookupTypes(q, "Cart")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "a.Cart", types[0].Qualified)
	assert.Equal(t, "b.Cart", types[1].Qualified)

	_, err = lookupTypes(q, "c.Cart")
	assert.ErrorIs(t, err, arbor.ErrTypeNotFound)
}

func TestFormatSummaryText(t *testing.T) {
	t.Parallel()
	s, err := newMemEngine(t).Query().Summary(1)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatSummaryText(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "Packages:   2")
	assert.Contains(t, out, "Types:      3")
	assert.Contains(t, out, "  class: 3")
	assert.Contains(t, out, "a.Cart.total() - depth")
}

func TestFormatGraphText(t *testing.T) {
	t.Parallel()
	g := CLIGraph{
		DependencyGraph: &arbor.DependencyGraph{
			Edges: []arbor.DependencyEdge{{FromPackage: "b", ToPackage: "a", ImportCount: 1}},
		},
		Cycles: [][]string{{"a", "b", "a"}},
	}
	var buf bytes.Buffer
	formatGraphText(&buf, g)
	assert.Contains(t, buf.String(), "FROM  TO  IMPORTS")
	assert.Contains(t, buf.String(), "a -> b -> a")
}

func TestFormatFileText_DefaultPackage(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatFileText(&buf, CLIFileDetail{
		FileResult:   &arbor.FileResult{Path: "/src/A.java", Lines: 3, Types: []string{"A"}},
		Dependencies: []string{"java.lang.String"},
	})
	out := buf.String()
	assert.Contains(t, out, "Package: (default)")
	assert.Contains(t, out, "Types:\n  A\n")
	assert.Contains(t, out, "Dependencies:\n  java.lang.String\n")
	assert.NotContains(t, out, "Imports:")
}
