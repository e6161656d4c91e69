package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
	"github.com/jward/arbor/internal/syntax"
)

const counterSrc = `package com.acme;

import java.util.List;

public class Counter {
    private int count;

    public void inc() {
        count = count + 1;
    }

    int get() {
        return count;
    }
}
`

func loadPackages(t *testing.T, sources map[string]string) []*model.PackageSummary {
	t.Helper()
	mem := afero.NewMemMapFs()
	fsys, err := registry.NewFS(mem)
	require.NoError(t, err)
	reg := registry.New(fsys, syntax.NewJavaParser())

	mtime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for path, src := range sources {
		require.NoError(t, afero.WriteFile(mem, path, []byte(src), 0o644))
		require.NoError(t, mem.Chtimes(path, mtime, mtime))
		_, err := reg.GetOrLoad(context.Background(), path)
		require.NoError(t, err)
	}
	return reg.Packages()
}

// =============================================================================
// Format selection
// =============================================================================

func TestNew(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"yaml", "YML", " yaml "} {
		e, err := New(name)
		require.NoError(t, err, name)
		assert.IsType(t, &YAMLExporter{}, e)
	}
	for _, name := range []string{"xlsx", "Excel"} {
		e, err := New(name)
		require.NoError(t, err, name)
		assert.IsType(t, &ExcelExporter{}, e)
	}

	_, err := New("docx")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "yaml", FormatForPath("out/report.yaml"))
	assert.Equal(t, "yaml", FormatForPath("report.YML"))
	assert.Equal(t, "xlsx", FormatForPath("report.xlsx"))
	assert.Equal(t, "", FormatForPath("report.csv"))
}

// =============================================================================
// YAML
// =============================================================================

func TestTree_MirrorsWalkOrder(t *testing.T) {
	t.Parallel()
	pkgs := loadPackages(t, map[string]string{"/src/com/acme/Counter.java": counterSrc})

	roots := Tree(pkgs)
	require.Len(t, roots, 1, "packages without files are skipped")
	pkg := roots[0]
	assert.Equal(t, "package", pkg.Kind)
	assert.Equal(t, "com.acme", pkg.Label)

	require.Len(t, pkg.Children, 1)
	file := pkg.Children[0]
	assert.Equal(t, "file", file.Kind)
	assert.Equal(t, "/src/com/acme/Counter.java", file.Label)
	assert.Equal(t, "1-15", file.Lines)

	require.Len(t, file.Children, 2)
	assert.Equal(t, "import", file.Children[0].Kind)
	assert.Equal(t, "java.util.List", file.Children[0].Label)
	typ := file.Children[1]
	assert.Equal(t, "class Counter", typ.Label)

	var methods []string
	for _, c := range typ.Children {
		if c.Kind == "method" {
			methods = append(methods, c.Label)
		}
	}
	assert.Equal(t, []string{"inc() void", "get() int"}, methods)
}

func TestYAMLExporter_Export(t *testing.T) {
	t.Parallel()
	pkgs := loadPackages(t, map[string]string{"/src/com/acme/Counter.java": counterSrc})

	var buf bytes.Buffer
	require.NoError(t, NewYAMLExporter().Export(&buf, pkgs))

	var doc struct {
		Packages []*Node `yaml:"packages"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Packages, 1)
	assert.Equal(t, "com.acme", doc.Packages[0].Label)
	assert.Contains(t, buf.String(), "label: class Counter")
}

// =============================================================================
// XLSX
// =============================================================================

func TestExcelExporter_Export(t *testing.T) {
	t.Parallel()
	pkgs := loadPackages(t, map[string]string{"/src/com/acme/Counter.java": counterSrc})

	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter().Export(&buf, pkgs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTypes, SheetMethods, SheetDependencies}, f.GetSheetList())

	types, err := f.GetRows(SheetTypes)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, typeHeaders, types[0])
	assert.Equal(t, "com.acme", types[1][0])
	assert.Equal(t, "Counter", types[1][1])
	assert.Equal(t, "class", types[1][2])
	assert.Equal(t, "public", types[1][3])

	methods, err := f.GetRows(SheetMethods)
	require.NoError(t, err)
	require.Len(t, methods, 3)
	assert.Equal(t, "com.acme.Counter", methods[1][0])
	assert.Equal(t, "inc()", methods[1][1])
	assert.Equal(t, "void", methods[1][2])
	assert.Equal(t, "get()", methods[2][1])

	deps, err := f.GetRows(SheetDependencies)
	require.NoError(t, err)
	require.Greater(t, len(deps), 1)
	assert.Equal(t, dependencyHeaders, deps[0])
	var kinds []string
	for _, row := range deps[1:] {
		assert.Equal(t, "com.acme.Counter", row[0])
		kinds = append(kinds, row[2])
	}
	assert.Contains(t, kinds, "access")
}

func TestExcelExporter_EmptyIndex(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter().Export(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetTypes)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
