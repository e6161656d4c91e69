package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/arbor/internal/export"
	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
)

var (
	flagOutput     string
	flagExportType string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the index as a YAML tree or an XLSX workbook",
	Long:  "Write every indexed package to a file. The format comes from --type, then export.format in config, then the output file extension.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default: export.output from config)")
	exportCmd.Flags().StringVar(&flagExportType, "type", "", "export format: yaml|xlsx")
}

func runExport(cmd *cobra.Command, args []string) error {
	output := flagOutput
	if output == "" {
		output = cfg.Export.Output
	}
	format := flagExportType
	if format == "" {
		format = cfg.Export.Format
	}
	if format == "" {
		format = export.FormatForPath(output)
	}
	exp, err := export.New(format)
	if err != nil {
		return err
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	var pkgs []*model.PackageSummary
	err = engine.View(func(r *registry.Registry) error {
		pkgs = r.Packages()
		return exp.Export(f, pkgs)
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Exported %d package(s) to %s\n", len(pkgs), output)
	return nil
}
