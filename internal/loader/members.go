package loader

import (
	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/syntax"
	"github.com/jward/arbor/internal/typeref"
)

var flavors = map[string]model.Flavor{
	"class_declaration":           model.FlavorClass,
	"interface_declaration":       model.FlavorInterface,
	"enum_declaration":            model.FlavorEnum,
	"record_declaration":          model.FlavorRecord,
	"annotation_type_declaration": model.FlavorAnnotation,
}

// typeDecl loads a named type. Under a file or type it becomes a structural
// child; under a method (a local class) it is one of the method's
// dependencies.
func (b *build) typeDecl(n syntax.Node) {
	start := b.start()
	nameNode := n.Field("name")
	t := model.NewType(nameNode.Text(), flavors[n.Kind()])
	t.Modifiers = modifiers(n)

	switch owner := b.st.Current().(type) {
	case *model.FileSummary:
		owner.AddType(t)
	case *model.TypeSummary:
		owner.AddType(t)
	case *model.MethodSummary:
		owner.AddDependency(t)
	default:
		b.anomaly(n, "type declaration without an enclosing file, type or method")
		b.skip(n)
		return
	}
	b.types++
	b.st.DeclareMembers(t, memberTypes(n.Field("body")))

	decl := 0
	b.within(t, ModeLoadingType, func() {
		for _, c := range n.Children() {
			if c.Same(nameNode) {
				b.skip(c)
				decl = b.line()
				continue
			}
			b.visit(c)
		}
	})
	t.SetLines(start, b.line())
	if decl > 0 {
		t.SetDeclLine(decl)
	}
}

// memberTypes returns the names of the types declared directly in a type
// body, enum body declarations included.
func memberTypes(body syntax.Node) []string {
	var names []string
	var scan func(syntax.Node)
	scan = func(n syntax.Node) {
		for _, c := range n.NamedChildren() {
			if _, ok := flavors[c.Kind()]; ok {
				names = append(names, c.Field("name").Text())
				continue
			}
			if c.Kind() == "enum_body_declarations" {
				scan(c)
			}
		}
	}
	if !body.IsNull() {
		scan(body)
	}
	return names
}

// anonymousType loads the class body of "new T() {...}" in a field
// initializer or of an enum constant as a nameless member type of owner
// extending parent.
func (b *build) anonymousType(owner *model.TypeSummary, body syntax.Node, parent *model.TypeDecl) *model.TypeSummary {
	start := b.start()
	t := model.NewType("", model.FlavorClass)
	if parent != nil {
		t.SetParent(parent)
	}
	owner.AddType(t)
	b.types++
	return b.finishType(t, body, start)
}

func (b *build) finishType(t *model.TypeSummary, body syntax.Node, start int) *model.TypeSummary {
	b.within(t, ModeLoadingType, func() {
		b.classBody(body)
	})
	t.SetLines(start, b.line())
	return t
}

// visitTypeHeader handles the children of a type declaration.
func (b *build) visitTypeHeader(n syntax.Node) {
	t, ok := b.st.Current().(*model.TypeSummary)
	if !ok {
		b.anomaly(n, "type header outside a type")
		b.skip(n)
		return
	}
	switch n.Kind() {
	case "superclass":
		for _, c := range n.Children() {
			if isTypeNode(c.Kind()) && t.Parent == nil {
				t.SetParent(b.res.FromNode(c, 0, b.st))
			}
			b.skip(c)
		}
	case "super_interfaces", "extends_interfaces":
		b.inMode(ModeLoadingInterfaceList, func() { b.children(n) })
	case "formal_parameters":
		// record header
		b.inMode(ModeLoadingParameters, func() { b.children(n) })
	case "class_body", "interface_body", "enum_body", "annotation_type_body":
		b.classBody(n)
	default:
		// modifiers, keyword, type parameters, permits
		b.skip(n)
	}
}

func (b *build) classBody(n syntax.Node) {
	b.inMode(ModeLoadingClassBody, func() { b.children(n) })
}

// visitInterface handles an implements or extends list.
func (b *build) visitInterface(n syntax.Node) {
	switch {
	case n.Kind() == "type_list":
		b.children(n)
	case isTypeNode(n.Kind()):
		if t, ok := b.st.Current().(*model.TypeSummary); ok {
			if ref := b.res.FromNode(n, 0, b.st); ref != nil {
				t.AddImplements(ref)
			}
		}
		b.skip(n)
	default:
		b.skip(n)
	}
}

func (b *build) visitMember(n syntax.Node) {
	switch n.Kind() {
	case "field_declaration", "constant_declaration":
		b.fieldDecl(n)
	case "method_declaration", "annotation_type_element_declaration",
		"constructor_declaration", "compact_constructor_declaration":
		b.methodDecl(n)
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		b.typeDecl(n)
	case "static_initializer":
		b.initializer(n, true)
	case "block":
		b.initializer(n, false)
	case "enum_constant":
		b.enumConstant(n)
	case "enum_body_declarations":
		b.children(n)
	default:
		b.skip(n)
	}
}

// methodDecl loads a method, constructor, compact constructor or annotation
// element. Headers are only legal directly in a class body.
func (b *build) methodDecl(n syntax.Node) {
	if mode := b.st.Mode(); mode != ModeLoadingClassBody {
		b.anomaly(n, "method header outside a class body")
		b.skip(n)
		return
	}
	t, ok := b.st.Current().(*model.TypeSummary)
	if !ok {
		b.anomaly(n, "method header without an enclosing type")
		b.skip(n)
		return
	}

	start := b.start()
	m := model.NewMethod(n.Field("name").Text())
	m.Modifiers = modifiers(n)
	t.AddMethod(m)

	typeNode := n.Field("type")
	dims := n.Field("dimensions")
	body := n.Field("body")
	decl := 0

	b.scoped(func() {
		b.within(m, ModeIgnore, func() {
			if n.Kind() == "compact_constructor_declaration" {
				b.recordParameters(t, m)
			}
			for _, c := range n.Children() {
				switch {
				case c.Same(typeNode):
					if ref := b.res.FromNode(c, 0, b.st); ref != nil {
						m.SetReturn(ref)
					}
					b.typeDeps(m, c)
				case c.Same(dims):
					if m.Return != nil {
						m.Return.Rank += typeref.Dimensions(c)
					}
					b.skip(c)
				case c.Kind() == "formal_parameters":
					b.inMode(ModeLoadingParameters, func() { b.children(c) })
				case c.Kind() == "throws":
					b.inMode(ModeLoadingExceptions, func() { b.children(c) })
				case c.Same(body):
					decl = b.line()
					b.inMode(ModeLoadingMethodBody, func() { b.methodBody(c) })
				case c.Kind() == ";" && decl == 0:
					decl = b.line()
					b.skip(c)
				default:
					b.visit(c)
				}
			}
		})
	})
	if decl == 0 {
		decl = b.line()
	}
	m.SetLines(start, b.line())
	m.SetDeclLine(decl)
}

// recordParameters gives a compact constructor the record's components as
// parameters.
func (b *build) recordParameters(t *model.TypeSummary, m *model.MethodSummary) {
	fields := t.Fields()
	for _, f := range fields[:min(b.components[t], len(fields))] {
		p := model.NewParameter(f.Name)
		if f.Type != nil {
			p.SetType(p, f.Type.Clone(f.Type.Rank))
		}
		m.AddParameter(p)
		b.declare(f.Name)
	}
}

// methodBody walks the statements of a method, constructor or initializer
// body. The body block itself does not add to the block depth.
func (b *build) methodBody(body syntax.Node) {
	for _, c := range body.Children() {
		switch c.Kind() {
		case "{", "}":
			b.skip(c)
		default:
			b.visit(c)
		}
	}
}

// visitParameter handles one entry of a formal parameter list. In a record
// header the parameters are the record's components and become fields.
func (b *build) visitParameter(n syntax.Node) {
	switch n.Kind() {
	case "formal_parameter", "spread_parameter":
	default:
		// parentheses, commas and receiver parameters
		b.skip(n)
		return
	}

	start := b.start()
	typeNode, nameNode, rank := parameterParts(n)
	ref := b.res.FromNode(typeNode, rank, b.st)

	switch owner := b.st.Current().(type) {
	case *model.MethodSummary:
		p := model.NewParameter(nameNode.Text())
		p.Modifiers = modifiers(n)
		if ref != nil {
			p.SetType(p, ref)
		}
		owner.AddParameter(p)
		for _, r := range b.typeRefs(typeNode) {
			owner.AddDependency(r)
		}
		b.declare(p.Name)
		b.skip(n)
		p.SetLines(start, b.line())
	case *model.TypeSummary:
		f := model.NewField(nameNode.Text())
		f.Modifiers = []string{"private", "final"}
		if ref != nil {
			f.SetType(f, ref)
		}
		owner.AddField(f)
		b.components[owner]++
		b.skip(n)
		f.SetLines(start, b.line())
	default:
		b.anomaly(n, "parameter outside a method or record header")
		b.skip(n)
	}
}

// parameterParts returns the type node, name node and declarator rank of a
// formal or variable-arity parameter.
func parameterParts(n syntax.Node) (typ, name syntax.Node, rank int) {
	if n.Kind() == "formal_parameter" {
		return n.Field("type"), n.Field("name"), typeref.Dimensions(n.Field("dimensions"))
	}
	// spread_parameter: modifiers? type "..." variable_declarator
	for _, c := range n.NamedChildren() {
		switch {
		case c.Kind() == "variable_declarator":
			name = c.Field("name")
			rank = typeref.Dimensions(c.Field("dimensions"))
		case isTypeNode(c.Kind()) && typ.IsNull():
			typ = c
		}
	}
	return typ, name, rank + 1
}

// visitException handles one entry of a throws clause.
func (b *build) visitException(n syntax.Node) {
	m := b.st.Method()
	if m == nil || !isTypeNode(n.Kind()) {
		b.skip(n)
		return
	}
	if ref := b.res.FromNode(n, 0, b.st); ref != nil {
		m.AddException(ref)
	}
	b.typeDeps(m, n)
}

// fieldDecl loads one field per declarator. The first field's lines start
// with the declaration; each later one starts after the preceding comma.
func (b *build) fieldDecl(n syntax.Node) {
	t, ok := b.st.Current().(*model.TypeSummary)
	if !ok {
		b.anomaly(n, "field outside a type")
		b.skip(n)
		return
	}
	typeNode := n.Field("type")
	mods := modifiers(n)
	if t.IsInterface() && len(mods) == 0 {
		mods = []string{"public", "static", "final"}
	}

	b.declarators(n, func(d syntax.Node) model.Summary {
		f := model.NewField(d.Field("name").Text())
		f.Modifiers = mods
		if ref := b.res.FromNode(typeNode, typeref.Dimensions(d.Field("dimensions")), b.st); ref != nil {
			f.SetType(f, ref)
		}
		t.AddField(f)
		return f
	}, ModeLoadingFieldValue)
}

// visitFieldValue handles a node of a field initializer. The initializer
// records no dependencies, but an anonymous class created in it becomes a
// member type of the field's type.
func (b *build) visitFieldValue(n syntax.Node) {
	if n.Kind() != "object_creation_expression" {
		if n.IsLeaf() {
			b.skip(n)
			return
		}
		b.children(n)
		return
	}
	t := b.st.Type()
	typeNode := n.Field("type")
	for _, c := range n.Children() {
		if c.Kind() != "class_body" || t == nil {
			b.visit(c)
			continue
		}
		var parent *model.TypeDecl
		if ref := b.res.FromNode(typeNode, 0, b.st); ref != nil {
			parent = ref.Clone(0)
		}
		b.anonymousType(t, c, parent)
	}
}

// declarators walks a field or local variable declaration. For each
// variable_declarator it calls create, then consumes the declarator with its
// initializer walked in valueMode, and gives the entity its line slice.
func (b *build) declarators(n syntax.Node, create func(syntax.Node) model.Summary, valueMode Mode) {
	start := b.start()
	var (
		pending      model.Summary
		pendingStart int
		pendingDecl  int
	)
	finish := func() {
		if pending != nil {
			pending.SetLines(pendingStart, b.line())
			pending.SetDeclLine(pendingDecl)
			pending = nil
		}
	}
	first := true
	for _, c := range n.Children() {
		switch c.Kind() {
		case "variable_declarator":
			s := start
			if !first {
				s = b.start()
			}
			first = false
			pending, pendingStart = create(c), s
			name := c.Field("name")
			value := c.Field("value")
			for _, part := range c.Children() {
				switch {
				case part.Same(name):
					b.skip(part)
					pendingDecl = b.line()
				case part.Same(value):
					b.inMode(valueMode, func() { b.visit(part) })
				default:
					b.skip(part)
				}
			}
		case ",", ";":
			b.skip(c)
			finish()
		default:
			b.visit(c)
		}
	}
	finish()
}

// initializer routes a static or instance initializer block to the type's
// synthesized initializer method. Repeated blocks extend its line range.
func (b *build) initializer(n syntax.Node, static bool) {
	t, ok := b.st.Current().(*model.TypeSummary)
	if !ok {
		b.anomaly(n, "initializer outside a type")
		b.skip(n)
		return
	}
	start := b.start()
	m := t.Initializer(static)
	first := m.EndLine() == 0

	b.scoped(func() {
		b.within(m, ModeLoadingMethodBody, func() {
			if n.Kind() == "block" {
				b.methodBody(n)
				return
			}
			for _, c := range n.Children() {
				if c.Kind() == "block" {
					b.methodBody(c)
					continue
				}
				b.skip(c)
			}
		})
	})
	if first {
		m.SetLines(start, b.line())
	} else {
		m.SetLines(m.StartLine(), b.line())
	}
}

// enumConstant loads a constant as a public static final field typed by its
// enum. A constant with a class body also gets an anonymous nested type.
func (b *build) enumConstant(n syntax.Node) {
	t, ok := b.st.Current().(*model.TypeSummary)
	if !ok {
		b.anomaly(n, "enum constant outside an enum")
		b.skip(n)
		return
	}
	start := b.start()
	nameNode := n.Field("name")
	f := model.NewField(nameNode.Text())
	f.Modifiers = []string{"public", "static", "final"}
	f.SetType(f, t.Ref())
	t.AddField(f)

	decl := 0
	for _, c := range n.Children() {
		switch {
		case c.Same(nameNode):
			b.skip(c)
			decl = b.line()
		case c.Kind() == "class_body":
			b.anonymousType(t, c, t.Ref())
		default:
			b.skip(c)
		}
	}
	f.SetLines(start, b.line())
	if decl > 0 {
		f.SetDeclLine(decl)
	}
}
