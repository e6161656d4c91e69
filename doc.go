// Package arbor builds and maintains an incremental semantic summary index
// of Java source trees. Each source file is parsed once with tree-sitter and
// turned into a model of packages, files, types, members and the
// dependencies between them: type references, message sends and field
// accesses.
//
// # Pipeline
//
// Arbor indexes in three steps:
//
//  1. Load: a file is parsed and walked by a mode-driven visitor that builds
//     its summary and records start, declaration and end lines for every
//     entity.
//
//  2. Cache: summaries are kept in a registry keyed by canonical path. A
//     file whose modification time is newer than the one it was built from
//     is rebuilt in place, so holders of the *File pointer see the new
//     contents.
//
//  3. Persist: when the Engine has a database, changed files are written to
//     SQLite and the whole graph is restored on the next start.
//
// # Usage
//
// Create an Engine, index a source tree and query it:
//
//	e, err := arbor.New("arbor.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//
//	q := e.Query()
//	sends, err := q.Senders("close")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] answers questions about the
// indexed tree:
//
//   - [QueryBuilder.Package], [QueryBuilder.File]: what a package or file holds.
//   - [QueryBuilder.Type], [QueryBuilder.TypesNamed]: find type declarations.
//   - [QueryBuilder.Subtypes]: types extending or implementing a type.
//   - [QueryBuilder.Senders], [QueryBuilder.Accessors]: methods sending a
//     message or touching a field.
//   - [QueryBuilder.Dependencies], [QueryBuilder.Dependents]: type-level
//     dependencies of a file and the files depending on a package.
//   - [QueryBuilder.PackageDependencyGraph], [QueryBuilder.Summary]: whole-index views.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] skips files whose modification time has not moved.
// When a reloaded file changes the outward shape of its types, the files
// that import its package or refer to those types are reported by
// [Engine.Affected].
package arbor
