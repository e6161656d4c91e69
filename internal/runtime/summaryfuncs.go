package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/registry"
	"github.com/jward/arbor/internal/store"
)

// --- Summary query functions ---

// makePackagesFn creates "packages".
//
// packages() → [{name, files, types}]
func makePackagesFn(src Source) *object.Builtin {
	return object.NewBuiltin("packages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("packages", 0, len(args))
		}
		var results []object.Object
		err := src.View(func(r *registry.Registry) error {
			for _, p := range r.Packages() {
				if len(p.Files()) == 0 {
					continue
				}
				types := 0
				for _, f := range p.Files() {
					types += len(f.Types())
				}
				results = append(results, object.NewMap(map[string]object.Object{
					"name":  object.NewString(p.Name),
					"files": object.NewInt(int64(len(p.Files()))),
					"types": object.NewInt(int64(types)),
				}))
			}
			return nil
		})
		if err != nil {
			return object.Errorf("packages: %v", err)
		}
		return listOrEmpty(results)
	})
}

// makeFilesFn creates "files".
//
// files() → [{path, package, lines, types, imports}]
func makeFilesFn(src Source) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		var results []object.Object
		err := src.View(func(r *registry.Registry) error {
			for _, f := range r.Files() {
				results = append(results, fileToMap(f, false))
			}
			return nil
		})
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		return listOrEmpty(results)
	})
}

// makeFileFn creates "file".
//
// file(path) → {path, package, lines, types, imports} or nil
//
// Unlike files(), types and imports are lists rather than counts.
func makeFileFn(src Source) *object.Builtin {
	return object.NewBuiltin("file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("file", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("file: %v", err)
		}
		var result object.Object = object.Nil
		viewErr := src.View(func(r *registry.Registry) error {
			if f, ok := r.File(path); ok {
				result = fileToMap(f, true)
			}
			return nil
		})
		if viewErr != nil {
			return object.Errorf("file: %v", viewErr)
		}
		return result
	})
}

// makeSourceFn creates "source", the text of an indexed file for
// parse_src.
//
// source(path) → string
func makeSourceFn(src Source) *object.Builtin {
	return object.NewBuiltin("source", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("source", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("source: %v", err)
		}
		var text []byte
		viewErr := src.View(func(r *registry.Registry) error {
			var err error
			text, err = r.Source(path)
			return err
		})
		if viewErr != nil {
			return object.Errorf("source: %v", viewErr)
		}
		return object.NewString(string(text))
	})
}

// makeTypesFn creates "types". With no argument every named type is
// returned; with a package name only that package's types.
//
// types([package]) → [{name, qualified, package, flavor, ...}]
func makeTypesFn(src Source) *object.Builtin {
	return object.NewBuiltin("types", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.NewArgsRangeError("types", 0, 1, len(args))
		}
		pkg, filtered := "", false
		if len(args) == 1 {
			s, err := toString(args[0])
			if err != nil {
				return object.Errorf("types: %v", err)
			}
			pkg, filtered = s, true
		}
		var results []object.Object
		err := src.View(func(r *registry.Registry) error {
			eachNamedType(r, func(t *model.TypeSummary) {
				m := typeToMap(t)
				if filtered && getString(m, "package") != pkg {
					return
				}
				results = append(results, object.NewMap(m))
			})
			return nil
		})
		if err != nil {
			return object.Errorf("types: %v", err)
		}
		return listOrEmpty(results)
	})
}

// makeMethodsFn creates "methods".
//
// methods(qualified_type) → [{name, signature, return, statements, max_depth, ...}]
func makeMethodsFn(src Source) *object.Builtin {
	return object.NewBuiltin("methods", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("methods", 1, len(args))
		}
		qualified, err := toString(args[0])
		if err != nil {
			return object.Errorf("methods: %v", err)
		}
		var results []object.Object
		viewErr := src.View(func(r *registry.Registry) error {
			t := lookupQualified(r, qualified)
			if t == nil {
				return fmt.Errorf("type %s not found", qualified)
			}
			for _, m := range t.Methods() {
				results = append(results, methodToMap(m))
			}
			return nil
		})
		if viewErr != nil {
			return object.Errorf("methods: %v", viewErr)
		}
		return listOrEmpty(results)
	})
}

// makeFieldsFn creates "fields".
//
// fields(qualified_type) → [{name, type, modifiers}]
func makeFieldsFn(src Source) *object.Builtin {
	return object.NewBuiltin("fields", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fields", 1, len(args))
		}
		qualified, err := toString(args[0])
		if err != nil {
			return object.Errorf("fields: %v", err)
		}
		var results []object.Object
		viewErr := src.View(func(r *registry.Registry) error {
			t := lookupQualified(r, qualified)
			if t == nil {
				return fmt.Errorf("type %s not found", qualified)
			}
			for _, f := range t.Fields() {
				typ := ""
				if f.Type != nil {
					typ = f.Type.String()
				}
				results = append(results, object.NewMap(map[string]object.Object{
					"name":      object.NewString(f.Name),
					"type":      object.NewString(typ),
					"modifiers": stringList(f.Modifiers),
				}))
			}
			return nil
		})
		if viewErr != nil {
			return object.Errorf("fields: %v", viewErr)
		}
		return listOrEmpty(results)
	})
}

// makeDependenciesFn creates "dependencies". Every method with the given
// name contributes, so overloads are merged in declaration order.
//
// dependencies(qualified_type, method) → [{kind, label, ...}]
func makeDependenciesFn(src Source) *object.Builtin {
	return object.NewBuiltin("dependencies", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("dependencies", 2, len(args))
		}
		qualified, err := toString(args[0])
		if err != nil {
			return object.Errorf("dependencies: %v", err)
		}
		method, err := toString(args[1])
		if err != nil {
			return object.Errorf("dependencies: %v", err)
		}
		var results []object.Object
		viewErr := src.View(func(r *registry.Registry) error {
			t := lookupQualified(r, qualified)
			if t == nil {
				return fmt.Errorf("type %s not found", qualified)
			}
			for _, m := range t.Methods() {
				if m.Name != method {
					continue
				}
				for _, d := range m.Dependencies() {
					results = append(results, dependencyToMap(d))
				}
			}
			return nil
		})
		if viewErr != nil {
			return object.Errorf("dependencies: %v", viewErr)
		}
		return listOrEmpty(results)
	})
}

// makeSendersFn creates "senders".
//
// senders(message) → [{type, method, object, package}]
func makeSendersFn(src Source) *object.Builtin {
	return object.NewBuiltin("senders", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("senders", 1, len(args))
		}
		message, err := toString(args[0])
		if err != nil {
			return object.Errorf("senders: %v", err)
		}
		var results []object.Object
		viewErr := src.View(func(r *registry.Registry) error {
			for _, f := range r.Files() {
				model.Inspect(f, func(s model.Summary) bool {
					m, ok := s.(*model.MethodSummary)
					if !ok {
						return s != nil
					}
					for _, d := range m.Dependencies() {
						send, ok := d.(*model.MessageSendSummary)
						if !ok || send.Message != message {
							continue
						}
						owner := ""
						if t := m.Type(); t != nil {
							owner = t.QualifiedName()
						}
						results = append(results, object.NewMap(map[string]object.Object{
							"type":    object.NewString(owner),
							"method":  object.NewString(m.Signature()),
							"object":  object.NewString(send.Object),
							"package": object.NewString(send.Package),
						}))
					}
					return true
				})
			}
			return nil
		})
		if viewErr != nil {
			return object.Errorf("senders: %v", viewErr)
		}
		return listOrEmpty(results)
	})
}

// makeEmitFn creates "emit", which writes its arguments to the report
// output separated by spaces and followed by a newline.
//
// emit(args...)
func makeEmitFn(w io.Writer) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, a := range args {
			if s, ok := a.(*object.String); ok {
				parts[i] = s.Value()
			} else {
				parts[i] = a.Inspect()
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return object.Errorf("emit: %v", err)
		}
		return object.Nil
	})
}

// --- Summary to object conversion ---

func fileToMap(f *model.FileSummary, detail bool) object.Object {
	m := map[string]object.Object{
		"path":    object.NewString(f.Path),
		"package": object.NewString(f.PackageName()),
		"lines":   object.NewInt(int64(f.EndLine())),
	}
	if !detail {
		m["types"] = object.NewInt(int64(len(f.Types())))
		m["imports"] = object.NewInt(int64(len(f.Imports())))
		return object.NewMap(m)
	}
	imports := make([]string, 0, len(f.Imports()))
	for _, imp := range f.Imports() {
		imports = append(imports, imp.String())
	}
	types := make([]object.Object, 0, len(f.Types()))
	for _, t := range f.Types() {
		types = append(types, object.NewMap(typeToMap(t)))
	}
	m["imports"] = stringList(imports)
	m["types"] = object.NewList(types)
	return object.NewMap(m)
}

func typeToMap(t *model.TypeSummary) map[string]object.Object {
	pkg := ""
	if p, err := model.PackageOf(t); err == nil {
		pkg = p.Name
	}
	parent := ""
	if t.Parent != nil {
		parent = t.Parent.String()
	}
	implements := make([]string, 0, len(t.Implements))
	for _, d := range t.Implements {
		implements = append(implements, d.String())
	}
	file := ""
	if f := model.FileOf(t); f != nil {
		file = f.Path
	}
	return map[string]object.Object{
		"name":       object.NewString(t.NestedName()),
		"qualified":  object.NewString(t.QualifiedName()),
		"package":    object.NewString(pkg),
		"flavor":     object.NewString(string(t.Flavor)),
		"modifiers":  stringList(t.Modifiers),
		"parent":     object.NewString(parent),
		"implements": stringList(implements),
		"fields":     object.NewInt(int64(len(t.Fields()))),
		"methods":    object.NewInt(int64(len(t.Methods()))),
		"file":       object.NewString(file),
		"start_line": object.NewInt(int64(t.StartLine())),
		"end_line":   object.NewInt(int64(t.EndLine())),
	}
}

func methodToMap(m *model.MethodSummary) object.Object {
	ret := ""
	if m.Return != nil {
		ret = m.Return.String()
	}
	exceptions := make([]string, 0, len(m.Exceptions()))
	for _, e := range m.Exceptions() {
		exceptions = append(exceptions, e.String())
	}
	return object.NewMap(map[string]object.Object{
		"name":         object.NewString(m.Name),
		"signature":    object.NewString(m.Signature()),
		"return":       object.NewString(ret),
		"modifiers":    stringList(m.Modifiers),
		"exceptions":   stringList(exceptions),
		"statements":   object.NewInt(int64(m.Statements)),
		"max_depth":    object.NewInt(int64(m.MaxBlockDepth())),
		"dependencies": object.NewInt(int64(len(m.Dependencies()))),
		"constructor":  object.NewBool(m.IsConstructor()),
		"initializer":  object.NewBool(m.IsInitializer()),
		"start_line":   object.NewInt(int64(m.StartLine())),
		"end_line":     object.NewInt(int64(m.EndLine())),
	})
}

func dependencyToMap(d model.Summary) object.Object {
	m := map[string]object.Object{
		"kind":  object.NewString(d.Kind().String()),
		"label": object.NewString(model.Label(d)),
	}
	switch n := d.(type) {
	case *model.TypeDecl:
		m["name"] = object.NewString(n.QualifiedName())
	case *model.MessageSendSummary:
		m["object"] = object.NewString(n.Object)
		m["package"] = object.NewString(n.Package)
		m["name"] = object.NewString(n.Message)
	case *model.FieldAccessSummary:
		m["object"] = object.NewString(n.Object)
		m["package"] = object.NewString(n.Package)
		m["name"] = object.NewString(n.Field)
		m["write"] = object.NewBool(n.Write)
	case *model.LocalVariableSummary:
		m["name"] = object.NewString(n.Name)
	case *model.TypeSummary:
		m["name"] = object.NewString(n.Name)
	}
	return object.NewMap(m)
}

func eachNamedType(r *registry.Registry, fn func(t *model.TypeSummary)) {
	for _, f := range r.Files() {
		model.Inspect(f, func(s model.Summary) bool {
			switch n := s.(type) {
			case *model.TypeSummary:
				if !n.IsAnonymous() {
					fn(n)
				}
			case *model.TypeDecl, *model.ImportSummary, nil:
				return false
			}
			return true
		})
	}
}

func lookupQualified(r *registry.Registry, qualified string) *model.TypeSummary {
	var found *model.TypeSummary
	eachNamedType(r, func(t *model.TypeSummary) {
		if found == nil && t.QualifiedName() == qualified {
			found = t
		}
	})
	return found
}

func stringList(ss []string) object.Object {
	items := make([]object.Object, len(ss))
	for i, s := range ss {
		items[i] = object.NewString(s)
	}
	return object.NewList(items)
}

func listOrEmpty(items []object.Object) object.Object {
	if items == nil {
		items = []object.Object{}
	}
	return object.NewList(items)
}

// --- Map extraction helpers ---

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// --- Snapshot database ---

// makeDBQueryFn creates "db_query", a read-only SQL escape hatch over the
// snapshot tables.
//
// db_query(sql, args...) → [{column: value}]
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return listOrEmpty(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
