package store

import "time"

// File is one row of the files table.
type File struct {
	ID          int64
	Path        string
	Package     string
	ModTime     time.Time
	StartLine   int
	EndLine     int
	LastIndexed time.Time
}

// Role says which slot of its owner a type reference fills.
type Role string

const (
	RoleNone       Role = ""
	RoleParent     Role = "parent"
	RoleImplements Role = "implements"
	RoleReturn     Role = "return"
	RoleException  Role = "exception"
	RoleType       Role = "type"
	RoleDependency Role = "dependency"
)

// Node is one summary below a file. Columns are shared across kinds:
//
//	import   Package, Name (type name), Flag (static)
//	type     Name, Flavor, Modifiers, SignatureHash
//	method   Name, Modifiers, Statements, MaxDepth
//	field, parameter, local
//	         Name, Modifiers
//	typedecl Package, Name, Flag (primitive), Rank, Role
//	send     Object, Package, Name (message)
//	access   Object, Package, Name (field), Flag (write)
type Node struct {
	ID            int64
	FileID        int64
	ParentID      *int64
	Kind          string
	Role          Role
	Name          string
	Package       string
	Object        string
	Flavor        string
	Flag          bool
	Rank          int
	Modifiers     []string
	Statements    int
	MaxDepth      int
	StartLine     int
	DeclLine      int
	EndLine       int
	SignatureHash string
}
