package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var (
	flagLimit  int
	flagOffset int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the summary index",
	Long:  "Run queries against an indexed source tree. Line numbers are 1-based.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")

	queryCmd.AddCommand(packagesCmd)
	queryCmd.AddCommand(packageCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(fileCmd)
	queryCmd.AddCommand(typesCmd)
	queryCmd.AddCommand(typeCmd)
	queryCmd.AddCommand(methodsCmd)
	queryCmd.AddCommand(methodDepsCmd)
	queryCmd.AddCommand(sendersCmd)
	queryCmd.AddCommand(accessorsCmd)
	queryCmd.AddCommand(subtypesCmd)
	queryCmd.AddCommand(hierarchyCmd)
	queryCmd.AddCommand(depsCmd)
	queryCmd.AddCommand(dependentsCmd)
	queryCmd.AddCommand(summaryCmd)
	queryCmd.AddCommand(graphCmd)
}

// runQuery opens the index, runs fn against it and prints the result under
// the command's name.
func runQuery(command string, fn func(q *arbor.QueryBuilder) (CLIResult, error)) error {
	engine, err := openEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer engine.Close()

	result, err := fn(engine.Query())
	if err != nil {
		return outputError(command, err)
	}
	result.Command = command
	return outputResult(result)
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() arbor.Pagination {
	return arbor.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// --- Packages and files ---

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List packages holding indexed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("packages", func(q *arbor.QueryBuilder) (CLIResult, error) {
			pkgs, err := q.Packages()
			return CLIResult{Results: emptyIfNil(pkgs)}, err
		})
	},
}

var packageCmd = &cobra.Command{
	Use:   "package <name>",
	Short: "Show the files and types of a package",
	Long:  "Show the files and top-level types of a package. Use \"\" for the default package.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("package", func(q *arbor.QueryBuilder) (CLIResult, error) {
			pkg, err := q.Package(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			if pkg == nil {
				return CLIResult{}, fmt.Errorf("package not found: %s", args[0])
			}
			return CLIResult{Results: pkg}, nil
		})
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("files", func(q *arbor.QueryBuilder) (CLIResult, error) {
			files, err := q.Files()
			return CLIResult{Results: emptyIfNil(files)}, err
		})
	},
}

var flagWithDeps bool

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Show the summary of an indexed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("file", func(q *arbor.QueryBuilder) (CLIResult, error) {
			path, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			f, err := q.File(path)
			if err != nil {
				return CLIResult{}, err
			}
			detail := CLIFileDetail{FileResult: f}
			if flagWithDeps {
				if detail.Dependencies, err = q.Dependencies(path); err != nil {
					return CLIResult{}, err
				}
			}
			return CLIResult{Results: detail}, nil
		})
	},
}

func init() {
	fileCmd.Flags().BoolVar(&flagWithDeps, "deps", false, "include the types the file refers to")
}

// --- Types ---

var (
	flagPackage    string
	flagFlavor     string
	flagModifier   []string
	flagPrefix     string
	flagPathPrefix string
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List types with optional filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("types", func(q *arbor.QueryBuilder) (CLIResult, error) {
			filter := arbor.TypeFilter{
				Package:    flagPackage,
				Modifiers:  flagModifier,
				NamePrefix: flagPrefix,
				PathPrefix: flagPathPrefix,
			}
			if flagFlavor != "" {
				filter.Flavors = strings.Split(flagFlavor, ",")
			}
			page, err := q.Types(filter, buildPagination())
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: page.Items, TotalCount: &page.TotalCount}, nil
		})
	},
}

func init() {
	typesCmd.Flags().StringVar(&flagPackage, "package", "", "filter by package name")
	typesCmd.Flags().StringVar(&flagFlavor, "flavor", "", "comma-separated flavors (class, interface, enum, record, annotation)")
	typesCmd.Flags().StringSliceVar(&flagModifier, "modifier", nil, "require modifier (repeatable)")
	typesCmd.Flags().StringVar(&flagPrefix, "prefix", "", "filter by simple name prefix")
	typesCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "filter by file path prefix")
}

var typeCmd = &cobra.Command{
	Use:   "type <name>",
	Short: "Show a type and its methods",
	Long:  "Show types by qualified name (com.acme.Outer.Inner) or, failing that, by simple name in any package.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("type", func(q *arbor.QueryBuilder) (CLIResult, error) {
			types, err := lookupTypes(q, args[0])
			if err != nil {
				return CLIResult{}, err
			}
			details := make([]CLITypeDetail, 0, len(types))
			for _, t := range types {
				methods, err := q.Methods(t.Qualified)
				if err != nil {
					return CLIResult{}, err
				}
				details = append(details, CLITypeDetail{TypeResult: t, MethodList: methods})
			}
			return CLIResult{Results: details}, nil
		})
	},
}

// lookupTypes resolves a qualified name first and a simple name second.
func lookupTypes(q *arbor.QueryBuilder, name string) ([]arbor.TypeResult, error) {
	if strings.Contains(name, ".") {
		t, err := q.Type(name)
		if err == nil {
			return []arbor.TypeResult{*t}, nil
		}
		if !errors.Is(err, arbor.ErrTypeNotFound) {
			return nil, err
		}
	}
	types, err := q.TypesNamed(name)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: %s", arbor.ErrTypeNotFound, name)
	}
	return types, nil
}

var methodsCmd = &cobra.Command{
	Use:   "methods <qualified-type>",
	Short: "List the methods of a type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("methods", func(q *arbor.QueryBuilder) (CLIResult, error) {
			methods, err := q.Methods(args[0])
			return CLIResult{Results: emptyIfNil(methods)}, err
		})
	},
}

var methodDepsCmd = &cobra.Command{
	Use:   "method-deps <qualified-type> <method>",
	Short: "List what a method depends on",
	Long:  "List the type references, sends, field accesses, locals and local or anonymous types of every method with the given name.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("method-deps", func(q *arbor.QueryBuilder) (CLIResult, error) {
			deps, err := q.MethodDependencies(args[0], args[1])
			return CLIResult{Results: emptyIfNil(deps)}, err
		})
	},
}

// --- References ---

var sendersCmd = &cobra.Command{
	Use:   "senders <message>",
	Short: "List the methods that send a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("senders", func(q *arbor.QueryBuilder) (CLIResult, error) {
			sends, err := q.Senders(args[0])
			return CLIResult{Results: emptyIfNil(sends)}, err
		})
	},
}

var flagWritesOnly bool

var accessorsCmd = &cobra.Command{
	Use:   "accessors <field>",
	Short: "List the methods that read or write a field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("accessors", func(q *arbor.QueryBuilder) (CLIResult, error) {
			accesses, err := q.Accessors(args[0], flagWritesOnly)
			return CLIResult{Results: emptyIfNil(accesses)}, err
		})
	},
}

func init() {
	accessorsCmd.Flags().BoolVar(&flagWritesOnly, "writes", false, "only assignments")
}

// --- Hierarchy ---

var subtypesCmd = &cobra.Command{
	Use:   "subtypes <qualified-type>",
	Short: "List the types that directly extend or implement a type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("subtypes", func(q *arbor.QueryBuilder) (CLIResult, error) {
			rels, err := q.Subtypes(args[0])
			return CLIResult{Results: emptyIfNil(rels)}, err
		})
	},
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <qualified-type>",
	Short: "Show the supertype chain and direct subtypes of a type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("hierarchy", func(q *arbor.QueryBuilder) (CLIResult, error) {
			h, err := q.TypeHierarchy(args[0])
			return CLIResult{Results: h}, err
		})
	},
}

// --- Graph ---

var depsCmd = &cobra.Command{
	Use:   "deps <file>",
	Short: "List the types a file refers to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("deps", func(q *arbor.QueryBuilder) (CLIResult, error) {
			path, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			deps, err := q.Dependencies(path)
			return CLIResult{Results: emptyIfNil(deps)}, err
		})
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <package>",
	Short: "List the files outside a package that depend on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("dependents", func(q *arbor.QueryBuilder) (CLIResult, error) {
			files, err := q.Dependents(args[0])
			return CLIResult{Results: emptyIfNil(files)}, err
		})
	},
}

var flagCycles bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the package dependency graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("graph", func(q *arbor.QueryBuilder) (CLIResult, error) {
			g, err := q.PackageDependencyGraph()
			if err != nil {
				return CLIResult{}, err
			}
			out := CLIGraph{DependencyGraph: g}
			if flagCycles {
				if out.Cycles, err = q.CircularDependencies(); err != nil {
					return CLIResult{}, err
				}
			}
			return CLIResult{Results: out}, nil
		})
	},
}

func init() {
	graphCmd.Flags().BoolVar(&flagCycles, "cycles", false, "also report circular package dependencies")
}

var flagTop int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show counts over the whole index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery("summary", func(q *arbor.QueryBuilder) (CLIResult, error) {
			s, err := q.Summary(flagTop)
			return CLIResult{Results: s}, err
		})
	},
}

func init() {
	summaryCmd.Flags().IntVar(&flagTop, "top", 10, "number of deepest methods to list")
}
