package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/arbor/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index a directory and keep the index current as files change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(findRepoRoot(targetDir))
	engine, err := newEngine(dbPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		logger.Warn("watch.initial", "err", err)
	}
	if _, err := engine.Sweep(); err != nil {
		logger.Warn("watch.sweep", "err", err)
	}
	engine.Affected()

	w := watch.New(engine, targetDir,
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithExcludeDirs(cfg.Index.ExcludeDirs...),
		watch.WithLogger(logger),
		watch.WithOnBatch(func(b watch.Batch) {
			fmt.Fprintf(os.Stderr, "changed %d, removed %d, affected %d\n",
				len(b.Changed), len(b.Removed), len(b.Affected))
			for _, p := range b.Affected {
				fmt.Fprintf(os.Stderr, "  %s\n", p)
			}
		}),
	)
	fmt.Fprintf(os.Stderr, "Watching %s\n", targetDir)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
