package main_test

import (
	"encoding/json"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the arbor command into a temp directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "arbor"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "arbor")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the module root by walking up from the test file's
// directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// copyFixture copies testdata/java/<level>/src into a fresh directory and
// returns its resolved path.
func copyFixture(t *testing.T, level string) string {
	t.Helper()
	src := filepath.Join(projectRoot(t), "testdata", "java", level, "src")
	dst, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

type cli struct {
	t   *testing.T
	bin string
	dir string
	db  string
}

// indexFixture builds the binary and indexes a fixture into a database
// outside the source tree.
func indexFixture(t *testing.T, level string) *cli {
	t.Helper()
	c := &cli{t: t, bin: buildBinary(t), dir: copyFixture(t, level)}
	c.db = filepath.Join(t.TempDir(), "index.db")

	out, err := c.command("index", "--progress=false", c.dir).CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))
	require.FileExists(t, c.db)
	return c
}

func (c *cli) command(args ...string) *exec.Cmd {
	cmd := exec.Command(c.bin, append([]string{"--db", c.db}, args...)...)
	cmd.Dir = c.dir
	cmd.Env = append(os.Environ(), "HOME="+c.t.TempDir())
	return cmd
}

// query runs an arbor query command and returns the parsed CLIResult.
func (c *cli) query(args ...string) map[string]any {
	c.t.Helper()
	stdout, err := c.command(append([]string{"query"}, args...)...).Output()
	if err != nil && len(stdout) == 0 {
		c.t.Fatalf("query command failed with no output: %v", err)
	}
	var result map[string]any
	require.NoError(c.t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result
}

func (c *cli) path(rel string) string {
	return filepath.Join(c.dir, filepath.FromSlash(rel))
}

func TestCLI_QueryPackagesAndFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	result := c.query("packages")
	assert.Equal(t, "packages", result["command"])
	assert.Equal(t, []any{"com.acme.billing", "com.acme.shop"}, result["results"])

	result = c.query("files")
	assert.Len(t, result["results"], 5)

	result = c.query("file", "--deps", c.path("com/acme/shop/Cart.java"))
	file := result["results"].(map[string]any)
	assert.Equal(t, "com.acme.shop", file["package"])
	assert.Contains(t, file["imports"], "com.acme.billing.Invoice")
	assert.Contains(t, file["dependencies"], "com.acme.billing.Invoice")
}

func TestCLI_QueryType(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	result := c.query("type", "Cart")
	types := result["results"].([]any)
	require.Len(t, types, 1)
	cart := types[0].(map[string]any)
	assert.Equal(t, "com.acme.shop.Cart", cart["qualified"])
	methods := cart["method_list"].([]any)
	require.Len(t, methods, 3)
	assert.Equal(t, "add(com.acme.shop.Item)", methods[0].(map[string]any)["signature"])

	result = c.query("type", "Nope")
	assert.Contains(t, result["error"], "type not found")
}

func TestCLI_QueryReferences(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	sends := c.query("senders", "price")["results"].([]any)
	require.Len(t, sends, 2)
	for _, s := range sends {
		sender := s.(map[string]any)["sender"].(map[string]any)
		assert.Equal(t, "com.acme.shop.Cart", sender["type"])
	}

	writes := c.query("accessors", "cents", "--writes")["results"].([]any)
	require.NotEmpty(t, writes)
	for _, w := range writes {
		assert.Equal(t, true, w.(map[string]any)["write"])
	}

	subs := c.query("subtypes", "com.acme.shop.Priced")["results"].([]any)
	var names []string
	for _, s := range subs {
		names = append(names, s.(map[string]any)["type"].(map[string]any)["qualified"].(string))
	}
	assert.ElementsMatch(t, []string{"com.acme.billing.Invoice", "com.acme.shop.Item"}, names)
}

func TestCLI_QueryGraph(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	result := c.query("dependents", "com.acme.billing")
	assert.Equal(t, []any{c.path("com/acme/shop/Cart.java")}, result["results"])

	graph := c.query("graph", "--cycles")["results"].(map[string]any)
	cycles := graph["cycles"].([]any)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 3)

	summary := c.query("summary")["results"].(map[string]any)
	assert.Equal(t, float64(5), summary["files"])
	assert.Equal(t, float64(5), summary["types"])
}

func TestCLI_TextFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	out, err := c.command("--format", "text", "query", "types", "--package", "com.acme.shop").Output()
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "QUALIFIED"), text)
	assert.Contains(t, text, "com.acme.shop.GiftCart")
	assert.NotContains(t, text, "com.acme.billing.Invoice")
}

func TestCLI_NestedTypes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-02-nested-types")

	result := c.query("types", "--flavor", "enum,record")
	types := result["results"].([]any)
	var names []string
	for _, ty := range types {
		names = append(names, ty.(map[string]any)["qualified"].(string))
	}
	assert.Equal(t, []string{"com.acme.events.Bus.Event", "com.acme.events.Bus.Level"}, names)

	methods := c.query("methods", "com.acme.events.Bus")["results"].([]any)
	var sigs []string
	for _, m := range methods {
		sigs = append(sigs, m.(map[string]any)["signature"].(string))
	}
	assert.Contains(t, sigs, "subscribe(com.acme.events.Bus.Listener)")

	deps := c.query("method-deps", "com.acme.events.Bus", "publish")["results"].([]any)
	var kinds []string
	for _, d := range deps {
		kinds = append(kinds, d.(map[string]any)["kind"].(string))
	}
	assert.Contains(t, kinds, "send")

	out, err := c.command("print", c.path("com/acme/events/Bus.java")).Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Bus")
}

func TestCLI_ExportAndReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	yamlPath := filepath.Join(t.TempDir(), "index.yaml")
	out, err := c.command("export", "-o", yamlPath).CombinedOutput()
	require.NoError(t, err, string(out))
	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "packages:"), string(data))

	xlsxPath := filepath.Join(t.TempDir(), "index.xlsx")
	out, err = c.command("export", "-o", xlsxPath).CombinedOutput()
	require.NoError(t, err, string(out))
	assert.FileExists(t, xlsxPath)

	out, err = c.command("report", "summary").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "com.acme.shop\t4\t4")
}

func TestCLI_SweepAfterDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	gift := c.path("com/acme/shop/GiftCart.java")
	require.NoError(t, os.Remove(gift))

	out, err := c.command("sweep").Output()
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, []any{gift}, result["results"])

	assert.Len(t, c.query("files")["results"], 4)
}

func TestCLI_ReindexSkipsUnchanged(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := indexFixture(t, "level-01-shop")

	out, err := c.command("index", "--progress=false", c.dir).CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "(5 files, 0 removed, 0 affected)")
}

func TestCLI_MissingDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := &cli{t: t, bin: buildBinary(t), dir: t.TempDir()}
	c.db = filepath.Join(c.dir, "missing.db")

	result := c.query("files")
	assert.Contains(t, result["error"], "database not found")
}
