package model

import (
	"strings"
)

// Reserved names of the synthesized initializer methods.
const (
	StaticInitializerName   = "<static-init>"
	InstanceInitializerName = "<instance-init>"
)

// Flavor is the declaration keyword a type was declared with.
type Flavor string

const (
	FlavorClass      Flavor = "class"
	FlavorInterface  Flavor = "interface"
	FlavorEnum       Flavor = "enum"
	FlavorRecord     Flavor = "record"
	FlavorAnnotation Flavor = "annotation"
)

// TypeSummary is a class, interface, enum, record or annotation type.
// Anonymous types have an empty Name.
type TypeSummary struct {
	span
	Name       string
	Flavor     Flavor
	Modifiers  []string
	Parent     *TypeDecl
	Implements []*TypeDecl

	fields  []*FieldSummary
	methods []*MethodSummary
	types   []*TypeSummary

	staticInit   *MethodSummary
	instanceInit *MethodSummary
}

// NewType returns an unowned type.
func NewType(name string, flavor Flavor) *TypeSummary {
	return &TypeSummary{Name: name, Flavor: flavor}
}

func (t *TypeSummary) Kind() Kind { return KindType }

// IsInterface reports whether the type is an interface or annotation type.
func (t *TypeSummary) IsInterface() bool {
	return t.Flavor == FlavorInterface || t.Flavor == FlavorAnnotation
}

// IsAnonymous reports whether the type has no name.
func (t *TypeSummary) IsAnonymous() bool { return t.Name == "" }

func (t *TypeSummary) Fields() []*FieldSummary   { return t.fields }
func (t *TypeSummary) Methods() []*MethodSummary { return t.methods }
func (t *TypeSummary) Types() []*TypeSummary     { return t.types }

// SetParent records the extended class.
func (t *TypeSummary) SetParent(d *TypeDecl) {
	t.Parent = d
	attach(t, d)
}

// AddImplements records an implemented (or, for interfaces, extended) type.
func (t *TypeSummary) AddImplements(d *TypeDecl) {
	t.Implements = append(t.Implements, d)
	attach(t, d)
}

func (t *TypeSummary) AddField(f *FieldSummary) {
	t.fields = append(t.fields, f)
	attach(t, f)
}

func (t *TypeSummary) AddMethod(m *MethodSummary) {
	t.methods = append(t.methods, m)
	attach(t, m)
}

// AddType adds a nested member type.
func (t *TypeSummary) AddType(n *TypeSummary) {
	t.types = append(t.types, n)
	attach(t, n)
}

// Initializer returns the synthesized method collecting the static or
// instance initializer blocks, creating it on first use.
func (t *TypeSummary) Initializer(static bool) *MethodSummary {
	slot := &t.instanceInit
	name := InstanceInitializerName
	if static {
		slot = &t.staticInit
		name = StaticInitializerName
	}
	if *slot == nil {
		m := NewMethod(name)
		if static {
			m.Modifiers = []string{"static"}
		}
		*slot = m
		t.AddMethod(m)
	}
	return *slot
}

// Method returns the first method with the given name, or nil.
func (t *TypeSummary) Method(name string) *MethodSummary {
	for _, m := range t.methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field returns the field with the given name, or nil.
func (t *TypeSummary) Field(name string) *FieldSummary {
	for _, f := range t.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Nested returns the member type with the given simple name, or nil.
func (t *TypeSummary) Nested(name string) *TypeSummary {
	for _, n := range t.types {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// NestedName returns the dotted name of the type within its package,
// e.g. "Outer.Inner". Anonymous types and types inside anonymous types
// have no nested name.
func (t *TypeSummary) NestedName() string {
	if t.IsAnonymous() {
		return ""
	}
	var outer *TypeSummary
	switch o := t.Owner().(type) {
	case *TypeSummary:
		outer = o
	case *MethodSummary:
		outer = TypeOf(o.Owner())
	}
	if outer == nil {
		return t.Name
	}
	prefix := outer.NestedName()
	if prefix == "" {
		return ""
	}
	return prefix + "." + t.Name
}

// QualifiedName returns the package-qualified nested name, or "" for
// anonymous types.
func (t *TypeSummary) QualifiedName() string {
	nested := t.NestedName()
	if nested == "" {
		return ""
	}
	p, err := PackageOf(t)
	if err != nil || p.Name == "" {
		return nested
	}
	return p.Name + "." + nested
}

// Ref returns a reference naming this type.
func (t *TypeSummary) Ref() *TypeDecl {
	d := &TypeDecl{Name: t.NestedName()}
	if p, err := PackageOf(t); err == nil {
		d.Package = p.Name
	}
	return d
}

// SignatureMatch is the result of comparing two method signatures.
type SignatureMatch int

const (
	SignatureDifferent SignatureMatch = iota
	// SignatureNearMiss means same name and arity but the types do not
	// provably agree.
	SignatureNearMiss
	SignatureExact
)

func (s SignatureMatch) String() string {
	switch s {
	case SignatureExact:
		return "exact"
	case SignatureNearMiss:
		return "near-miss"
	default:
		return "different"
	}
}

// MethodSummary is a method, constructor or synthesized initializer.
// A nil Return marks a constructor.
type MethodSummary struct {
	span
	Name      string
	Modifiers []string
	Return    *TypeDecl

	// Statements counts the statements in the body.
	Statements int

	params     []*ParameterSummary
	exceptions []*TypeDecl
	deps       []Summary
	depth      int
	maxDepth   int
}

// NewMethod returns an unowned method.
func NewMethod(name string) *MethodSummary {
	return &MethodSummary{Name: name}
}

func (m *MethodSummary) Kind() Kind { return KindMethod }

func (m *MethodSummary) Parameters() []*ParameterSummary { return m.params }
func (m *MethodSummary) Exceptions() []*TypeDecl         { return m.exceptions }
func (m *MethodSummary) Dependencies() []Summary         { return m.deps }

// Type returns the declaring type.
func (m *MethodSummary) Type() *TypeSummary {
	t, _ := m.Owner().(*TypeSummary)
	return t
}

func (m *MethodSummary) SetReturn(d *TypeDecl) {
	m.Return = d
	attach(m, d)
}

func (m *MethodSummary) AddParameter(p *ParameterSummary) {
	m.params = append(m.params, p)
	attach(m, p)
}

func (m *MethodSummary) AddException(d *TypeDecl) {
	m.exceptions = append(m.exceptions, d)
	attach(m, d)
}

// AddDependency records something the method touches. Type references,
// message sends and field accesses are de-duplicated by value; local
// variables and local types by identity. It reports whether s was added.
func (m *MethodSummary) AddDependency(s Summary) bool {
	for _, d := range m.deps {
		if sameDependency(d, s) {
			return false
		}
	}
	m.deps = append(m.deps, s)
	attach(m, s)
	return true
}

func sameDependency(a, b Summary) bool {
	switch x := a.(type) {
	case *TypeDecl:
		y, ok := b.(*TypeDecl)
		return ok && x.Equal(y)
	case *MessageSendSummary:
		y, ok := b.(*MessageSendSummary)
		return ok && x.Object == y.Object && x.Package == y.Package && x.Message == y.Message
	case *FieldAccessSummary:
		y, ok := b.(*FieldAccessSummary)
		return ok && x.Object == y.Object && x.Package == y.Package && x.Field == y.Field && x.Write == y.Write
	default:
		return a == b
	}
}

// EnterBlock opens a nested block or switch.
func (m *MethodSummary) EnterBlock() {
	m.depth++
	if m.depth > m.maxDepth {
		m.maxDepth = m.depth
	}
}

// ExitBlock closes the innermost block.
func (m *MethodSummary) ExitBlock() {
	if m.depth > 0 {
		m.depth--
	}
}

func (m *MethodSummary) BlockDepth() int    { return m.depth }
func (m *MethodSummary) MaxBlockDepth() int { return m.maxDepth }

// SetMaxBlockDepth restores a recorded high-water mark.
func (m *MethodSummary) SetMaxBlockDepth(d int) { m.maxDepth = d }

// CountStatement adds one statement.
func (m *MethodSummary) CountStatement() { m.Statements++ }

// IsInitializer reports whether m collects initializer blocks.
func (m *MethodSummary) IsInitializer() bool {
	return m.Name == StaticInitializerName || m.Name == InstanceInitializerName
}

// IsStaticInitializer reports whether m collects static initializer blocks.
func (m *MethodSummary) IsStaticInitializer() bool {
	return m.Name == StaticInitializerName
}

// IsConstructor reports whether m is a constructor.
func (m *MethodSummary) IsConstructor() bool {
	return m.Return == nil && !m.IsInitializer()
}

// Signature renders the name and parameter types, e.g. "put(String,int[])".
func (m *MethodSummary) Signature() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			b.WriteByte(',')
		}
		if p.Type != nil {
			b.WriteString(p.Type.String())
		}
	}
	b.WriteByte(')')
	return b.String()
}

// CompareSignature compares name, parameters and return type. Parameters and
// return types must be the same declared type with the same rank for an
// exact match. A reference the lookup cannot resolve never matches, so an
// unresolved return or parameter type yields at best a near miss.
func (m *MethodSummary) CompareSignature(o *MethodSummary, lookup TypeLookup) SignatureMatch {
	if m.Name != o.Name || len(m.params) != len(o.params) {
		return SignatureDifferent
	}
	for i, p := range m.params {
		if !sameVariableType(p.Type, o.params[i].Type, lookup) {
			return SignatureNearMiss
		}
	}
	switch {
	case m.Return == nil && o.Return == nil:
		return SignatureExact
	case m.Return == nil || o.Return == nil:
		return SignatureNearMiss
	case !sameVariableType(m.Return, o.Return, lookup):
		return SignatureNearMiss
	}
	return SignatureExact
}

func sameVariableType(a, b *TypeDecl, lookup TypeLookup) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Rank == b.Rank && a.SameType(b, lookup)
}

// Variable is the part shared by fields, parameters and local variables.
type Variable struct {
	span
	Name      string
	Type      *TypeDecl
	Modifiers []string
}

// SetType records the declared type; its rank already includes any
// brackets written on the declarator.
func (v *Variable) SetType(self Summary, d *TypeDecl) {
	v.Type = d
	attach(self, d)
}

type FieldSummary struct{ Variable }

func NewField(name string) *FieldSummary { return &FieldSummary{Variable{Name: name}} }

func (f *FieldSummary) Kind() Kind { return KindField }

type ParameterSummary struct{ Variable }

func NewParameter(name string) *ParameterSummary {
	return &ParameterSummary{Variable{Name: name}}
}

func (p *ParameterSummary) Kind() Kind { return KindParameter }

type LocalVariableSummary struct{ Variable }

func NewLocalVariable(name string) *LocalVariableSummary {
	return &LocalVariableSummary{Variable{Name: name}}
}

func (l *LocalVariableSummary) Kind() Kind { return KindLocalVariable }
