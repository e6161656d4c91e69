package model

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented dump of s and everything below it, one summary
// per line with its kind, label and line range.
func Fprint(w io.Writer, s Summary) error {
	p := &printer{w: w}
	Walk(p, s)
	return p.err
}

type printer struct {
	w     io.Writer
	depth int
	err   error
}

func (p *printer) Visit(s Summary) Visitor {
	if s == nil {
		p.depth--
		return nil
	}
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, "%s%s %s [%d-%d]\n",
			strings.Repeat("  ", p.depth), s.Kind(), Label(s), s.StartLine(), s.EndLine())
	}
	p.depth++
	return p
}

// Label returns a short human readable name for s.
func Label(s Summary) string {
	switch n := s.(type) {
	case *PackageSummary:
		if n.IsDefault() {
			return "<default>"
		}
		return n.Name
	case *FileSummary:
		if n.Path == "" {
			return "<buffer>"
		}
		return n.Path
	case *ImportSummary:
		return n.String()
	case *TypeSummary:
		name := n.Name
		if name == "" {
			name = "<anonymous>"
		}
		return string(n.Flavor) + " " + name
	case *MethodSummary:
		label := n.Signature()
		if n.Return != nil {
			label += " " + n.Return.String()
		}
		return label
	case *FieldSummary:
		return variableLabel(&n.Variable)
	case *ParameterSummary:
		return variableLabel(&n.Variable)
	case *LocalVariableSummary:
		return variableLabel(&n.Variable)
	case *TypeDecl:
		return n.String()
	case *MessageSendSummary:
		return n.String()
	case *FieldAccessSummary:
		if n.Write {
			return n.String() + " (write)"
		}
		return n.String()
	}
	return ""
}

func variableLabel(v *Variable) string {
	if v.Type == nil {
		return v.Name
	}
	return v.Name + " " + v.Type.String()
}
