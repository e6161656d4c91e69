package model

import "fmt"

// A Visitor's Visit method is invoked for each summary encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of s
// with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(s Summary) (w Visitor)
}

// Walk traverses the summary graph in depth-first order: packages visit
// their files; files their imports then types; types their parent and
// implemented references, then fields, methods and nested types; methods
// their return type, parameters, exceptions and dependencies; variables
// their declared type. Children are visited in declared order.
func Walk(v Visitor, s Summary) {
	if v = v.Visit(s); v == nil {
		return
	}

	switch n := s.(type) {
	case *PackageSummary:
		for _, f := range n.files {
			Walk(v, f)
		}

	case *FileSummary:
		for _, i := range n.imports {
			Walk(v, i)
		}
		for _, t := range n.types {
			Walk(v, t)
		}

	case *TypeSummary:
		if n.Parent != nil {
			Walk(v, n.Parent)
		}
		for _, d := range n.Implements {
			Walk(v, d)
		}
		for _, f := range n.fields {
			Walk(v, f)
		}
		for _, m := range n.methods {
			Walk(v, m)
		}
		for _, t := range n.types {
			Walk(v, t)
		}

	case *MethodSummary:
		if n.Return != nil {
			Walk(v, n.Return)
		}
		for _, p := range n.params {
			Walk(v, p)
		}
		for _, e := range n.exceptions {
			Walk(v, e)
		}
		for _, d := range n.deps {
			Walk(v, d)
		}

	case *FieldSummary:
		walkVariableType(v, &n.Variable)
	case *ParameterSummary:
		walkVariableType(v, &n.Variable)
	case *LocalVariableSummary:
		walkVariableType(v, &n.Variable)

	case *ImportSummary, *TypeDecl, *MessageSendSummary, *FieldAccessSummary:
		// leaves

	default:
		panic(fmt.Sprintf("model.Walk: unexpected summary type %T", n))
	}

	v.Visit(nil)
}

func walkVariableType(v Visitor, vr *Variable) {
	if vr.Type != nil {
		Walk(v, vr.Type)
	}
}

type inspector func(Summary) bool

func (f inspector) Visit(s Summary) Visitor {
	if f(s) {
		return f
	}
	return nil
}

// Inspect traverses the graph in depth-first order: It starts by calling
// f(s); s must not be nil. If f returns true, Inspect invokes f recursively
// for each of the children of s, followed by a call of f(nil).
func Inspect(s Summary, f func(Summary) bool) {
	Walk(inspector(f), s)
}
