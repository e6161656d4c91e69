package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/arbor/internal/runtime"
	"github.com/jward/arbor/scripts"
)

var (
	flagScriptsDir string
	flagReportTop  int
)

var reportCmd = &cobra.Command{
	Use:   "report <name|script.risor>",
	Short: "Run a report script over the index",
	Long: `Run one of the built-in report scripts (summary, hotspots, api, docs) or a Risor script file.

Scripts see the index through packages(), files(), file(), types(), methods(),
fields(), dependencies(), senders() and db_query(). source(path) returns an
indexed file's text; parse_src(), query(), node_text(), node_child() and
node_lines() inspect its syntax tree. Output goes through emit(), and "top"
holds the --top value.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load scripts from disk path instead of embedded")
	reportCmd.Flags().IntVar(&flagReportTop, "top", 10, "number of rows for ranking reports")
}

func runReport(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := []runtime.RuntimeOption{
		runtime.WithOutput(cmd.OutOrStdout()),
		runtime.WithRuntimeLogger(logger),
	}
	if s := engine.Store(); s != nil {
		opts = append(opts, runtime.WithStore(s))
	}

	name := args[0]
	scriptPath := name
	scriptsDir := flagScriptsDir
	switch {
	case strings.HasSuffix(name, ".risor"):
		// A script file named on the command line is read from disk.
	case scriptsDir != "":
		scriptPath = runtime.ReportScriptPath(name)
	default:
		scriptPath = runtime.ReportScriptPath(name)
		opts = append(opts, runtime.WithRuntimeFS(scripts.FS))
	}

	rt := runtime.NewRuntime(engine, scriptsDir, opts...)
	ctx, cancel := signalContext()
	defer cancel()
	return rt.RunScript(ctx, scriptPath, map[string]any{"top": flagReportTop})
}
