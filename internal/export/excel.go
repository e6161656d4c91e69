package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jward/arbor/internal/model"
)

// Sheet names written by ExcelExporter.
const (
	SheetTypes        = "Types"
	SheetMethods      = "Methods"
	SheetDependencies = "Dependencies"
)

var (
	typeHeaders       = []string{"Package", "Type", "Flavor", "Modifiers", "Extends", "Implements", "Fields", "Methods", "File", "Start", "End"}
	methodHeaders     = []string{"Type", "Signature", "Return", "Modifiers", "Statements", "Max Depth", "Dependencies", "Start", "End"}
	dependencyHeaders = []string{"Type", "Method", "Kind", "Label"}
)

// ExcelExporter writes types, methods and method dependencies to separate
// sheets of one workbook.
type ExcelExporter struct{}

// NewExcelExporter creates an ExcelExporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Export implements Exporter.
func (e *ExcelExporter) Export(w io.Writer, pkgs []*model.PackageSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#000000"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetTypes); err != nil {
		return fmt.Errorf("export: xlsx: %w", err)
	}
	for _, name := range []string{SheetMethods, SheetDependencies} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: xlsx: %w", err)
		}
	}

	c := &rowCollector{}
	for _, p := range pkgs {
		model.Walk(c, p)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{SheetTypes, typeHeaders, c.types},
		{SheetMethods, methodHeaders, c.methods},
		{SheetDependencies, dependencyHeaders, c.deps},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.headers, s.rows, headerStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: xlsx %s: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("export: xlsx %s: %w", sheet, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: xlsx %s: %w", sheet, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("export: xlsx %s: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "B", 40)
}

// rowCollector is a model.Visitor gathering one row per type, method and
// method dependency.
type rowCollector struct {
	types   [][]any
	methods [][]any
	deps    [][]any
}

func (c *rowCollector) Visit(s model.Summary) model.Visitor {
	switch n := s.(type) {
	case nil:
		return nil
	case *model.TypeSummary:
		c.types = append(c.types, typeRow(n))
	case *model.MethodSummary:
		owner := ownerName(n)
		c.methods = append(c.methods, []any{
			owner, n.Signature(), declString(n.Return), strings.Join(n.Modifiers, " "),
			n.Statements, n.MaxBlockDepth(), len(n.Dependencies()), n.StartLine(), n.EndLine(),
		})
		for _, d := range n.Dependencies() {
			c.deps = append(c.deps, []any{owner, n.Signature(), d.Kind().String(), model.Label(d)})
		}
	case *model.ImportSummary, *model.TypeDecl:
		return nil
	}
	return c
}

func typeRow(t *model.TypeSummary) []any {
	pkg, file := "", ""
	if p, err := model.PackageOf(t); err == nil {
		pkg = p.Name
	}
	if f := model.FileOf(t); f != nil {
		file = f.Path
	}
	implements := make([]string, 0, len(t.Implements))
	for _, d := range t.Implements {
		implements = append(implements, d.String())
	}
	name := t.NestedName()
	if t.IsAnonymous() {
		name = model.Label(t)
	}
	return []any{
		pkg, name, string(t.Flavor), strings.Join(t.Modifiers, " "), declString(t.Parent),
		strings.Join(implements, ", "), len(t.Fields()), len(t.Methods()), file, t.StartLine(), t.EndLine(),
	}
}

func ownerName(m *model.MethodSummary) string {
	t := m.Type()
	if t == nil {
		return ""
	}
	if t.IsAnonymous() {
		return model.Label(t)
	}
	return t.QualifiedName()
}

func declString(d *model.TypeDecl) string {
	if d == nil {
		return ""
	}
	return d.String()
}
