// Package export writes the summary graph to report formats: an indented
// YAML tree and an XLSX workbook with one sheet per entity kind.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jward/arbor/internal/model"
)

// ErrUnknownFormat is returned by New for a format it cannot write.
var ErrUnknownFormat = errors.New("export: unknown format")

// Exporter writes a set of packages to w.
type Exporter interface {
	Export(w io.Writer, pkgs []*model.PackageSummary) error
}

// New returns the exporter for format. Format names are case-insensitive;
// "excel" is accepted for xlsx and "yml" for yaml.
func New(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		return NewYAMLExporter(), nil
	case "xlsx", "excel":
		return NewExcelExporter(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// FormatForPath guesses the export format from an output file name. It
// returns "" when the extension is not recognized.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".xlsx":
		return "xlsx"
	}
	return ""
}
