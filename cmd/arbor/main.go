package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
	"github.com/jward/arbor/internal/config"
	"github.com/jward/arbor/internal/ui"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// cfg and logger are set up by the root command before any subcommand runs.
var (
	cfg    = config.Default()
	logger = slog.Default()
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "arbor",
	Short:         "Incremental semantic summaries of Java sources",
	Long:          "Arbor parses Java sources with tree-sitter into a tree of package, file, type and method summaries, keeps it current as files change and answers queries over it.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return setup()
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: database from config, relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.DefaultFile+" if present)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads the configuration and installs the stderr logger.
func setup() error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	level, err := c.Level()
	if err != nil {
		return err
	}
	cfg = c
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var (
	flagForce    bool
	flagProgress bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the Java sources under a directory",
	Long:  "Parses every .java file under path (default: current directory), rebuilds the summaries of changed files and writes them to the database. Unchanged files are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().BoolVar(&flagProgress, "progress", true, "show a progress bar (also index.progress in config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	if flagForce && dbPath != "" {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
	}

	var opts []arbor.Option
	if cfg.Index.Progress && flagProgress {
		opts = append(opts, arbor.WithProgress(ui.NewProgressBar(os.Stderr)))
	}
	engine, err := newEngine(dbPath, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	removed, err := engine.Sweep()
	if err != nil {
		return fmt.Errorf("sweeping: %w", err)
	}

	files, _ := engine.Query().Files()
	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d files, %d removed, %d affected)\n",
		targetDir, time.Since(start).Round(time.Millisecond),
		len(files), len(removed), len(engine.Affected()))
	if dbPath != "" {
		fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	}
	return nil
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Drop the summaries of deleted files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return outputError("sweep", err)
		}
		defer engine.Close()

		removed, err := engine.Sweep()
		if err != nil {
			return outputError("sweep", err)
		}
		if removed == nil {
			removed = []string{}
		}
		return outputResult(CLIResult{Command: "sweep", Results: removed})
	},
}

var printCmd = &cobra.Command{
	Use:   "print <file>",
	Short: "Dump the summary tree of an indexed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		path, err := resolveFilePath(args[0])
		if err != nil {
			return err
		}
		return engine.Print(os.Stdout, path)
	},
}

// newEngine creates an Engine configured from cfg.
func newEngine(dbPath string, extra ...arbor.Option) (*arbor.Engine, error) {
	opts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithParallel(cfg.Index.Parallel),
	}
	if len(cfg.Index.Encodings) > 0 {
		opts = append(opts, arbor.WithEncodings(cfg.Index.Encodings...))
	}
	if len(cfg.Index.ExcludeDirs) > 0 {
		opts = append(opts, arbor.WithExcludeDirs(cfg.Index.ExcludeDirs...))
	}
	opts = append(opts, extra...)

	engine, err := arbor.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if err := engine.RestoreErr(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: stored index discarded: %s\n", err)
	}
	return engine, nil
}

// openEngine opens the existing database for the current repository.
func openEngine() (*arbor.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if dbPath == "" {
		return nil, fmt.Errorf("no database configured (set --db or database in %s)", config.DefaultFile)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'arbor index' first)", dbPath)
	}
	return newEngine(dbPath)
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// configured database, relative paths taken from repoRoot. Empty means the
// index lives in memory only.
func resolveDBPath(repoRoot string) string {
	db := cfg.Database
	if flagDB != "" {
		db = flagDB
	}
	if db == "" || filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(repoRoot, db)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}
