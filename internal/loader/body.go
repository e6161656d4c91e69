package loader

import (
	"strings"
	"unicode"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/syntax"
	"github.com/jward/arbor/internal/typeref"
)

var statementKinds = map[string]bool{
	"expression_statement":            true,
	"local_variable_declaration":      true,
	"if_statement":                    true,
	"while_statement":                 true,
	"for_statement":                   true,
	"enhanced_for_statement":          true,
	"do_statement":                    true,
	"return_statement":                true,
	"break_statement":                 true,
	"continue_statement":              true,
	"throw_statement":                 true,
	"try_statement":                   true,
	"try_with_resources_statement":    true,
	"synchronized_statement":          true,
	"assert_statement":                true,
	"yield_statement":                 true,
	"switch_statement":                true,
	"explicit_constructor_invocation": true,
	"class_declaration":               true,
	"interface_declaration":           true,
	"enum_declaration":                true,
	"record_declaration":              true,
}

// statementParents are the nodes whose direct children are statements.
var statementParents = map[string]bool{
	"block":                        true,
	"constructor_body":             true,
	"switch_block_statement_group": true,
	"switch_rule":                  true,
	"labeled_statement":            true,
	"if_statement":                 true,
	"while_statement":              true,
	"for_statement":                true,
	"enhanced_for_statement":       true,
	"do_statement":                 true,
}

var assignmentOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
}

// isStatement reports whether n counts as one statement. Blocks never do; a
// switch counts when it stands as a statement rather than inside an
// expression, and a for loop's own variable declaration is part of the loop.
func isStatement(n syntax.Node) bool {
	kind := n.Kind()
	if kind != "switch_expression" && !statementKinds[kind] {
		return false
	}
	parent := n.Parent().Kind()
	if parent == "for_statement" && kind == "local_variable_declaration" {
		return false
	}
	return statementParents[parent]
}

// isWrite reports whether next is an assignment operator.
func isWrite(next syntax.Node) bool {
	return !next.IsNull() && assignmentOps[next.Kind()]
}

func (b *build) declare(name string) {
	if len(b.scopes) > 0 && name != "" {
		b.scopes[len(b.scopes)-1][name] = true
	}
}

// scoped runs fn with a fresh innermost variable scope.
func (b *build) scoped(fn func()) {
	b.scopes = append(b.scopes, map[string]bool{})
	defer func() { b.scopes = b.scopes[:len(b.scopes)-1] }()
	fn()
}

func (b *build) declared(name string) bool {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if b.scopes[i][name] {
			return true
		}
	}
	return false
}

// visitBody handles a node inside a method, constructor or initializer body.
func (b *build) visitBody(n syntax.Node) {
	m := b.st.Method()
	if m == nil {
		b.anomaly(n, "method body outside a method")
		b.skip(n)
		return
	}
	if isStatement(n) {
		m.CountStatement()
	}

	switch kind := n.Kind(); kind {
	case "block", "switch_block":
		m.EnterBlock()
		b.scoped(func() { b.children(n) })
		m.ExitBlock()

	case "for_statement", "catch_clause", "try_with_resources_statement":
		// loop, catch and resource variables end with the statement
		b.scoped(func() { b.children(n) })

	case "local_variable_declaration":
		b.localDecl(n, m)

	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		b.typeDecl(n)

	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		b.methodDecl(n)

	case "identifier", "field_access", "method_invocation", "array_access",
		"this", "super", "scoped_identifier":
		b.expression(n, m)

	case "object_creation_expression":
		b.newObject(n, m)

	case "explicit_constructor_invocation":
		b.constructorCall(n, m)

	case "method_reference":
		b.methodReference(n, m)

	case "lambda_expression":
		b.scoped(func() { b.lambda(n, m) })

	case "enhanced_for_statement":
		b.scoped(func() { b.enhancedFor(n, m) })

	case "catch_formal_parameter":
		b.catchParameter(n, m)

	case "resource":
		b.resource(n, m)

	case "cast_expression", "array_creation_expression", "class_literal":
		for _, c := range n.Children() {
			if isTypeNode(c.Kind()) {
				b.typeDeps(m, c)
				continue
			}
			b.visit(c)
		}

	case "instanceof_expression":
		b.instanceOf(n, m)

	case "type_pattern", "record_pattern", "record_pattern_component":
		b.pattern(n, m)

	case "labeled_statement", "break_statement", "continue_statement":
		// labels are not variable references
		for _, c := range n.Children() {
			if c.Kind() == "identifier" {
				b.skip(c)
				continue
			}
			b.visit(c)
		}

	case "modifiers", "annotation", "marker_annotation", "type_parameters":
		b.skip(n)

	case "type_arguments":
		for _, c := range n.Children() {
			if isTypeNode(c.Kind()) || c.Kind() == "wildcard" {
				b.typeDeps(m, c)
				continue
			}
			b.skip(c)
		}

	default:
		if isTypeNode(kind) {
			b.typeDeps(m, n)
			return
		}
		if n.IsLeaf() {
			b.skip(n)
			return
		}
		b.children(n)
	}
}

// localDecl loads one local variable per declarator. Initializers are
// walked as body code.
func (b *build) localDecl(n syntax.Node, m *model.MethodSummary) {
	typeNode := n.Field("type")
	mods := modifiers(n)
	b.declarators(n, func(d syntax.Node) model.Summary {
		lv := model.NewLocalVariable(d.Field("name").Text())
		lv.Modifiers = mods
		if ref := b.res.FromNode(typeNode, typeref.Dimensions(d.Field("dimensions")), b.st); ref != nil {
			lv.SetType(lv, ref)
		}
		m.AddDependency(lv)
		b.declare(lv.Name)
		return lv
	}, ModeLoadingMethodBody)
}

// local records a single-name local variable (for-each, catch and resource
// variables, pattern bindings) and consumes its name.
func (b *build) local(m *model.MethodSummary, typeNode, nameNode syntax.Node, rank int) {
	start := b.start()
	lv := model.NewLocalVariable(nameNode.Text())
	if ref := b.res.FromNode(typeNode, rank, b.st); ref != nil {
		lv.SetType(lv, ref)
	}
	m.AddDependency(lv)
	b.declare(lv.Name)
	b.skip(nameNode)
	lv.SetLines(start, b.line())
}

// expression decomposes a primary expression chain and records what is left
// pending at its end as a field access.
func (b *build) expression(n syntax.Node, m *model.MethodSummary) {
	parts := b.chain(n, m)
	if len(parts) > 0 {
		b.access(parts, isWrite(n.NextSibling()), m)
	}
}

// chain walks a primary expression left to right and returns the name parts
// accumulated at its end. Calls turn the accumulated name into a message
// send and index segments into a field access; both restart accumulation.
// Anything that is not a name segment is walked as ordinary body code.
func (b *build) chain(n syntax.Node, m *model.MethodSummary) []string {
	switch n.Kind() {
	case "identifier", "this", "super", "type_identifier":
		b.skip(n)
		return []string{n.Text()}

	case "scoped_identifier":
		b.skip(n)
		return n.NameParts()

	case "field_access":
		object, field := n.Field("object"), n.Field("field")
		var parts []string
		for _, c := range n.Children() {
			switch {
			case c.Same(object):
				parts = b.chain(c, m)
			case c.Same(field):
				b.skip(c)
				parts = append(parts, c.Text())
			default:
				b.skip(c)
			}
		}
		return parts

	case "method_invocation":
		object, name := n.Field("object"), n.Field("name")
		var parts []string
		for _, c := range n.Children() {
			switch {
			case c.Same(object):
				parts = b.chain(c, m)
			case c.Same(name):
				b.skip(c)
				b.send(parts, c.Text(), m)
			case c.Kind() == "argument_list" || c.Kind() == "type_arguments":
				b.visit(c)
			default:
				b.skip(c)
			}
		}
		return []string{}

	case "array_access":
		array := n.Field("array")
		for _, c := range n.Children() {
			switch {
			case c.Same(array):
				if parts := b.chain(c, m); len(parts) > 0 {
					b.access(parts, isWrite(n.NextSibling()), m)
				}
			case c.Kind() == "[" || c.Kind() == "]":
				b.skip(c)
			default:
				b.visit(c)
			}
		}
		return []string{}
	}

	b.visit(n)
	return nil
}

// access records a field access for the accumulated name parts. A bare
// local variable or parameter, this and super on their own and qualified
// this are not field accesses.
func (b *build) access(parts []string, write bool, m *model.MethodSummary) {
	field := parts[len(parts)-1]
	switch {
	case field == "this" || field == "super" || field == "class":
		return
	case len(parts) == 1 && b.declared(field):
		return
	}
	pkg, object := b.splitObject(parts[:len(parts)-1])
	m.AddDependency(&model.FieldAccessSummary{
		Object:  object,
		Package: pkg,
		Field:   field,
		Write:   write,
	})
}

func (b *build) send(parts []string, message string, m *model.MethodSummary) {
	pkg, object := b.splitObject(parts)
	m.AddDependency(&model.MessageSendSummary{
		Object:  object,
		Package: pkg,
		Message: message,
	})
}

// splitObject separates a package prefix from the object part of a
// reference. A receiver written with a leading type name is placed in the
// package that name resolves to.
func (b *build) splitObject(parts []string) (pkg, object string) {
	if len(parts) == 0 {
		return "", ""
	}
	for i, p := range parts {
		if !startsUpper(p) {
			continue
		}
		if i > 0 {
			return strings.Join(parts[:i], "."), strings.Join(parts[i:], ".")
		}
		if b.declared(p) {
			break
		}
		ref := b.res.Resolve(parts[:1], 0, b.st)
		return ref.Package, strings.Join(parts, ".")
	}
	return "", strings.Join(parts, ".")
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// newObject handles "new T(...)", recording T and loading an anonymous class
// body as a nameless type that is one of the method's dependencies.
func (b *build) newObject(n syntax.Node, m *model.MethodSummary) {
	typeNode := n.Field("type")
	for _, c := range n.Children() {
		switch {
		case c.Same(typeNode):
			b.typeDeps(m, c)
		case c.Kind() == "class_body":
			var parent *model.TypeDecl
			if ref := b.res.FromNode(typeNode, 0, b.st); ref != nil {
				parent = ref.Clone(0)
			}
			start := b.start()
			anon := model.NewType("", model.FlavorClass)
			if parent != nil {
				anon.SetParent(parent)
			}
			m.AddDependency(anon)
			b.types++
			b.finishType(anon, c, start)
		case c.Kind() == "new":
			b.skip(c)
		default:
			b.visit(c)
		}
	}
}

// constructorCall handles this(...) and super(...) as a message send.
func (b *build) constructorCall(n syntax.Node, m *model.MethodSummary) {
	ctor := n.Field("constructor")
	for _, c := range n.Children() {
		if c.Same(ctor) {
			b.skip(c)
			b.send(nil, c.Text(), m)
			continue
		}
		b.visit(c)
	}
}

// methodReference handles "Type::method", "expr::method" and "Type::new".
func (b *build) methodReference(n syntax.Node, m *model.MethodSummary) {
	var parts []string
	seenColons := false
	for _, c := range n.Children() {
		switch {
		case c.Kind() == "::":
			seenColons = true
			b.skip(c)
		case !seenColons && isTypeNode(c.Kind()):
			parts = c.NameParts()
			b.typeDeps(m, c)
		case !seenColons:
			parts = b.chain(c, m)
		case c.Kind() == "identifier" || c.Kind() == "new":
			b.skip(c)
			b.send(parts, c.Text(), m)
		default:
			b.visit(c)
		}
	}
}

// lambda declares the lambda's parameters and walks its body.
func (b *build) lambda(n syntax.Node, m *model.MethodSummary) {
	params := n.Field("parameters")
	for _, c := range n.Children() {
		if !c.Same(params) {
			b.visit(c)
			continue
		}
		switch c.Kind() {
		case "identifier":
			b.declare(c.Text())
		case "inferred_parameters":
			for _, id := range c.NamedChildren() {
				b.declare(id.Text())
			}
		case "formal_parameters":
			for _, p := range c.NamedChildren() {
				if p.Kind() != "formal_parameter" && p.Kind() != "spread_parameter" {
					continue
				}
				typeNode, nameNode, _ := parameterParts(p)
				for _, ref := range b.typeRefs(typeNode) {
					m.AddDependency(ref)
				}
				b.declare(nameNode.Text())
			}
		}
		b.skip(c)
	}
}

func (b *build) enhancedFor(n syntax.Node, m *model.MethodSummary) {
	typeNode, nameNode := n.Field("type"), n.Field("name")
	rank := typeref.Dimensions(n.Field("dimensions"))
	for _, c := range n.Children() {
		switch {
		case c.Same(typeNode):
			b.typeDeps(m, c)
		case c.Same(nameNode):
			b.local(m, typeNode, c, rank)
		default:
			b.visit(c)
		}
	}
}

func (b *build) catchParameter(n syntax.Node, m *model.MethodSummary) {
	nameNode := n.Field("name")
	var first syntax.Node
	for _, c := range n.Children() {
		switch {
		case c.Kind() == "catch_type":
			for _, t := range c.Children() {
				if isTypeNode(t.Kind()) {
					if first.IsNull() {
						first = t
					}
					b.typeDeps(m, t)
					continue
				}
				b.skip(t)
			}
		case c.Same(nameNode):
			b.local(m, first, c, typeref.Dimensions(n.Field("dimensions")))
		default:
			b.skip(c)
		}
	}
}

// resource handles one try-with-resources entry: a declaration or a
// reference to an existing variable.
func (b *build) resource(n syntax.Node, m *model.MethodSummary) {
	typeNode := n.Field("type")
	if typeNode.IsNull() {
		b.children(n)
		return
	}
	nameNode := n.Field("name")
	for _, c := range n.Children() {
		switch {
		case c.Same(typeNode):
			b.typeDeps(m, c)
		case c.Same(nameNode):
			b.local(m, typeNode, c, typeref.Dimensions(n.Field("dimensions")))
		default:
			b.visit(c)
		}
	}
}

func (b *build) instanceOf(n syntax.Node, m *model.MethodSummary) {
	right, nameNode := n.Field("right"), n.Field("name")
	for _, c := range n.Children() {
		switch {
		case c.Same(right):
			b.typeDeps(m, c)
		case c.Same(nameNode):
			b.local(m, right, c, 0)
		default:
			b.visit(c)
		}
	}
}

// pattern handles "T name" and record deconstruction patterns.
func (b *build) pattern(n syntax.Node, m *model.MethodSummary) {
	var typeNode syntax.Node
	for _, c := range n.Children() {
		switch {
		case isTypeNode(c.Kind()):
			typeNode = c
			b.typeDeps(m, c)
		case c.Kind() == "identifier" && !typeNode.IsNull():
			b.local(m, typeNode, c, 0)
		default:
			b.visit(c)
		}
	}
}
