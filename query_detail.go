package arbor

import (
	"fmt"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
)

// SendResult is one message send and the method it was found in.
type SendResult struct {
	Sender  MethodResult `json:"sender"`
	Object  string       `json:"object,omitempty"`
	Package string       `json:"package,omitempty"`
	Message string       `json:"message"`
}

// AccessResult is one field access and the method it was found in.
type AccessResult struct {
	Accessor MethodResult `json:"accessor"`
	Object   string       `json:"object,omitempty"`
	Package  string       `json:"package,omitempty"`
	Field    string       `json:"field"`
	Write    bool         `json:"write"`
}

// DependencyResult is one entry of a method's dependency list.
type DependencyResult struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// Methods returns the methods of the type with the given qualified name in
// declaration order. Initializers come last.
func (q *QueryBuilder) Methods(qualifiedType string) ([]MethodResult, error) {
	var out []MethodResult
	err := q.e.View(func(r *registry.Registry) error {
		t := findType(r, qualifiedType)
		if t == nil {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, qualifiedType)
		}
		for _, m := range t.Methods() {
			out = append(out, methodResult(m))
		}
		return nil
	})
	return out, err
}

// MethodDependencies returns the dependency list of every method named
// method on the given type: type references, message sends, field accesses,
// local variables and local or anonymous types, in the order found.
func (q *QueryBuilder) MethodDependencies(qualifiedType, method string) ([]DependencyResult, error) {
	var out []DependencyResult
	err := q.e.View(func(r *registry.Registry) error {
		t := findType(r, qualifiedType)
		if t == nil {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, qualifiedType)
		}
		for _, m := range t.Methods() {
			if m.Name != method {
				continue
			}
			for _, d := range m.Dependencies() {
				out = append(out, DependencyResult{
					Kind:  d.Kind().String(),
					Label: model.Label(d),
				})
			}
		}
		return nil
	})
	return out, err
}

// Senders returns every send of message, ordered by file and method.
func (q *QueryBuilder) Senders(message string) ([]SendResult, error) {
	var out []SendResult
	err := q.e.View(func(r *registry.Registry) error {
		eachMethod(r, func(m *model.MethodSummary) {
			for _, d := range m.Dependencies() {
				send, ok := d.(*model.MessageSendSummary)
				if !ok || send.Message != message {
					continue
				}
				out = append(out, SendResult{
					Sender:  methodResult(m),
					Object:  send.Object,
					Package: send.Package,
					Message: send.Message,
				})
			}
		})
		return nil
	})
	return out, err
}

// Accessors returns every access of field, ordered by file and method. With
// writesOnly only assignments are returned.
func (q *QueryBuilder) Accessors(field string, writesOnly bool) ([]AccessResult, error) {
	var out []AccessResult
	err := q.e.View(func(r *registry.Registry) error {
		eachMethod(r, func(m *model.MethodSummary) {
			for _, d := range m.Dependencies() {
				acc, ok := d.(*model.FieldAccessSummary)
				if !ok || acc.Field != field || (writesOnly && !acc.Write) {
					continue
				}
				out = append(out, AccessResult{
					Accessor: methodResult(m),
					Object:   acc.Object,
					Package:  acc.Package,
					Field:    acc.Field,
					Write:    acc.Write,
				})
			}
		})
		return nil
	})
	return out, err
}
