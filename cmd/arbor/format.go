package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/arbor"
)

// formatStringsText writes one value per line.
func formatStringsText(w io.Writer, items []string) {
	for _, s := range items {
		fmt.Fprintln(w, s)
	}
}

// formatTypesText formats TypeResult values as aligned columns.
func formatTypesText(w io.Writer, types []arbor.TypeResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUALIFIED\tFLAVOR\tFIELDS\tMETHODS\tFILE\tLINE")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%d\n",
			t.Qualified, t.Flavor, t.Fields, t.Methods, t.File, t.StartLine)
	}
	tw.Flush()
}

// formatMethodsText formats MethodResult values as aligned columns.
func formatMethodsText(w io.Writer, methods []arbor.MethodResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSIGNATURE\tRETURN\tSTATEMENTS\tDEPTH\tLINE")
	for _, m := range methods {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			m.Type, m.Signature, m.Return, m.Statements, m.MaxDepth, m.StartLine)
	}
	tw.Flush()
}

// formatSendsText formats SendResult values as aligned columns.
func formatSendsText(w io.Writer, sends []arbor.SendResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SENDER\tOBJECT\tMESSAGE\tFILE\tLINE")
	for _, s := range sends {
		fmt.Fprintf(tw, "%s.%s\t%s\t%s\t%s\t%d\n",
			s.Sender.Type, s.Sender.Signature, receiver(s.Object, s.Package), s.Message,
			s.Sender.File, s.Sender.StartLine)
	}
	tw.Flush()
}

// formatAccessesText formats AccessResult values as aligned columns.
func formatAccessesText(w io.Writer, accesses []arbor.AccessResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCESSOR\tOBJECT\tFIELD\tWRITE\tFILE")
	for _, a := range accesses {
		fmt.Fprintf(tw, "%s.%s\t%s\t%s\t%t\t%s\n",
			a.Accessor.Type, a.Accessor.Signature, receiver(a.Object, a.Package), a.Field,
			a.Write, a.Accessor.File)
	}
	tw.Flush()
}

func receiver(object, pkg string) string {
	switch {
	case object == "":
		return "-"
	case pkg != "":
		return pkg + "." + object
	}
	return object
}

// formatDependenciesText formats DependencyResult values as aligned columns.
func formatDependenciesText(w io.Writer, deps []arbor.DependencyResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tLABEL")
	for _, d := range deps {
		fmt.Fprintf(tw, "%s\t%s\n", d.Kind, d.Label)
	}
	tw.Flush()
}

// formatRelationsText formats TypeRelation values as aligned columns.
func formatRelationsText(w io.Writer, rels []*arbor.TypeRelation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tTYPE\tFILE")
	for _, r := range rels {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Kind, r.Type.Qualified, r.Type.File)
	}
	tw.Flush()
}

// formatPackageText formats PackageResult as readable text.
func formatPackageText(w io.Writer, pkg *arbor.PackageResult) {
	fmt.Fprintf(w, "Package: %s\n", displayPackage(pkg.Name))
	fmt.Fprintf(w, "Files: %d\n", len(pkg.Files))
	fmt.Fprintln(w)
	for _, f := range pkg.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if len(pkg.Types) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Types:")
		for _, t := range pkg.Types {
			fmt.Fprintf(w, "  %s\n", t)
		}
	}
}

// formatFileText formats CLIFileDetail as readable text.
func formatFileText(w io.Writer, f CLIFileDetail) {
	fmt.Fprintf(w, "File: %s\n", f.Path)
	fmt.Fprintf(w, "Package: %s\n", displayPackage(f.Package))
	fmt.Fprintf(w, "Lines: %d\n", f.Lines)
	sections := []struct {
		title string
		items []string
	}{
		{"Imports", f.Imports},
		{"Types", f.Types},
		{"Dependencies", f.Dependencies},
		{"Anomalies", f.Anomalies},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", s.title)
		for _, item := range s.items {
			fmt.Fprintf(w, "  %s\n", item)
		}
	}
}

// formatTypeDetailsText formats each type with its methods.
func formatTypeDetailsText(w io.Writer, details []CLITypeDetail) {
	for i, d := range details {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s (%s:%d-%d)\n", d.Flavor, d.Qualified, d.File, d.StartLine, d.EndLine)
		if d.Parent != "" {
			fmt.Fprintf(w, "  extends %s\n", d.Parent)
		}
		if len(d.Implements) > 0 {
			fmt.Fprintf(w, "  implements %s\n", strings.Join(d.Implements, ", "))
		}
		for _, m := range d.MethodList {
			fmt.Fprintf(w, "  %s", m.Signature)
			if m.Return != "" {
				fmt.Fprintf(w, " %s", m.Return)
			}
			fmt.Fprintln(w)
		}
	}
}

// formatHierarchyText formats a TypeHierarchy as readable text.
func formatHierarchyText(w io.Writer, h *arbor.TypeHierarchy) {
	fmt.Fprintf(w, "%s %s\n", h.Type.Flavor, h.Type.Qualified)
	if len(h.Supertypes) > 0 {
		fmt.Fprintln(w, "Supertypes:")
		for _, s := range h.Supertypes {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	if len(h.Subtypes) > 0 {
		fmt.Fprintln(w, "Subtypes:")
		for _, r := range h.Subtypes {
			fmt.Fprintf(w, "  %s (%s)\n", r.Type.Qualified, r.Kind)
		}
	}
}

// formatSummaryText formats ProjectSummary as readable text.
func formatSummaryText(w io.Writer, s *arbor.ProjectSummary) {
	fmt.Fprintln(w, "Project Summary")
	fmt.Fprintln(w, "===============")
	fmt.Fprintf(w, "Packages:   %d\n", s.Packages)
	fmt.Fprintf(w, "Files:      %d (%d lines)\n", s.Files, s.Lines)
	fmt.Fprintf(w, "Types:      %d\n", s.Types)
	fmt.Fprintf(w, "Methods:    %d (%d statements)\n", s.Methods, s.Statements)
	fmt.Fprintf(w, "Fields:     %d\n", s.Fields)
	fmt.Fprintf(w, "Sends:      %d\n", s.Sends)
	fmt.Fprintf(w, "Accesses:   %d\n", s.Accesses)
	fmt.Fprintf(w, "Anomalies:  %d\n", s.Anomalies)

	if len(s.Flavors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flavors:")
		flavors := make([]string, 0, len(s.Flavors))
		for f := range s.Flavors {
			flavors = append(flavors, f)
		}
		sort.Strings(flavors)
		for _, f := range flavors {
			fmt.Fprintf(w, "  %s: %d\n", f, s.Flavors[f])
		}
	}

	if len(s.Deepest) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Deepest Methods:")
		for _, m := range s.Deepest {
			fmt.Fprintf(w, "  %s.%s - depth %d, %d statements\n",
				m.Type, m.Signature, m.MaxDepth, m.Statements)
		}
	}
}

// formatGraphText formats the package graph as aligned columns.
func formatGraphText(w io.Writer, g CLIGraph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tIMPORTS")
	for _, e := range g.Edges {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", displayPackage(e.FromPackage), displayPackage(e.ToPackage), e.ImportCount)
	}
	tw.Flush()
	if len(g.Cycles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Cycles:")
		for _, c := range g.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(c, " -> "))
		}
	}
}

func displayPackage(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []string:
		formatStringsText(w, v)
	case []arbor.TypeResult:
		formatTypesText(w, v)
	case []arbor.MethodResult:
		formatMethodsText(w, v)
	case []arbor.SendResult:
		formatSendsText(w, v)
	case []arbor.AccessResult:
		formatAccessesText(w, v)
	case []arbor.DependencyResult:
		formatDependenciesText(w, v)
	case []*arbor.TypeRelation:
		formatRelationsText(w, v)
	case []CLITypeDetail:
		formatTypeDetailsText(w, v)
	case *arbor.PackageResult:
		formatPackageText(w, v)
	case CLIFileDetail:
		formatFileText(w, v)
	case *arbor.TypeHierarchy:
		formatHierarchyText(w, v)
	case *arbor.ProjectSummary:
		formatSummaryText(w, v)
	case CLIGraph:
		formatGraphText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []string:
		return len(r)
	case []arbor.TypeResult:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
