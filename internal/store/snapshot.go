package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jward/arbor/internal/model"
)

// ErrSnapshotDiscarded is returned when a stored snapshot cannot be turned
// back into a summary graph. The caller discards the partial graph.
var ErrSnapshotDiscarded = errors.New("store: snapshot discarded")

// WriteFile writes f and everything it owns to ds. Files without a path are
// skipped.
func WriteFile(ds DataStore, f *model.FileSummary) error {
	if f.Path == "" {
		return nil
	}
	fileID, err := ds.InsertFile(&File{
		Path:        f.Path,
		Package:     f.PackageName(),
		ModTime:     f.ModTime,
		StartLine:   f.StartLine(),
		EndLine:     f.EndLine(),
		LastIndexed: time.Now(),
	})
	if err != nil {
		return err
	}
	w := &snapshotWriter{ds: ds, fileID: fileID}
	model.Walk(w, f)
	return w.err
}

// snapshotWriter is a model.Visitor that inserts one row per summary. The
// visitor returned for a node carries that node's row ID so children link
// to it.
type snapshotWriter struct {
	ds     DataStore
	fileID int64
	parent *int64
	err    error

	root *snapshotWriter
}

func (w *snapshotWriter) Visit(s model.Summary) model.Visitor {
	root := w.root
	if root == nil {
		root = w
	}
	if s == nil || root.err != nil {
		return nil
	}
	switch s.(type) {
	case *model.PackageSummary, *model.FileSummary:
		return w
	}

	n := toNode(s)
	n.FileID = w.fileID
	n.ParentID = w.parent
	id, err := w.ds.InsertNode(n)
	if err != nil {
		root.err = err
		return nil
	}
	return &snapshotWriter{ds: w.ds, fileID: w.fileID, parent: &id, root: root}
}

func toNode(s model.Summary) *Node {
	n := &Node{
		Kind:      s.Kind().String(),
		StartLine: s.StartLine(),
		DeclLine:  s.DeclLine(),
		EndLine:   s.EndLine(),
	}
	switch x := s.(type) {
	case *model.ImportSummary:
		n.Package = x.PackageName()
		n.Name = x.TypeName
		n.Flag = x.Static
	case *model.TypeSummary:
		n.Name = x.Name
		n.Flavor = string(x.Flavor)
		n.Modifiers = x.Modifiers
		n.SignatureHash = ComputeSignatureHash(x)
	case *model.MethodSummary:
		n.Name = x.Name
		n.Modifiers = x.Modifiers
		n.Statements = x.Statements
		n.MaxDepth = x.MaxBlockDepth()
	case *model.FieldSummary:
		n.Name, n.Modifiers = x.Name, x.Modifiers
	case *model.ParameterSummary:
		n.Name, n.Modifiers = x.Name, x.Modifiers
	case *model.LocalVariableSummary:
		n.Name, n.Modifiers = x.Name, x.Modifiers
	case *model.TypeDecl:
		n.Package = x.Package
		n.Name = x.Name
		n.Flag = x.Primitive
		n.Rank = x.Rank
		n.Role = roleOf(x)
	case *model.MessageSendSummary:
		n.Object, n.Package, n.Name = x.Object, x.Package, x.Message
	case *model.FieldAccessSummary:
		n.Object, n.Package, n.Name = x.Object, x.Package, x.Field
		n.Flag = x.Write
	}
	return n
}

// roleOf names the slot d fills in its owner.
func roleOf(d *model.TypeDecl) Role {
	switch o := d.Owner().(type) {
	case *model.TypeSummary:
		if o.Parent == d {
			return RoleParent
		}
		return RoleImplements
	case *model.MethodSummary:
		if o.Return == d {
			return RoleReturn
		}
		for _, e := range o.Exceptions() {
			if e == d {
				return RoleException
			}
		}
		return RoleDependency
	case *model.FieldSummary, *model.ParameterSummary, *model.LocalVariableSummary:
		return RoleType
	}
	return RoleNone
}

// SaveFiles stores files, replacing their previous rows, and deletes the
// rows of removed paths, all in one transaction.
func (s *Store) SaveFiles(files []*model.FileSummary, removed []string) error {
	batch := NewBatchedStore()
	for _, f := range files {
		if err := WriteFile(batch, f); err != nil {
			return fmt.Errorf("store: write %s: %w", f.Path, err)
		}
	}
	for _, p := range removed {
		batch.Remove(p)
	}
	if batch.Empty() {
		return nil
	}
	return s.CommitBatch(batch)
}

// SaveSnapshot replaces the stored snapshot with every file of pkgs.
func (s *Store) SaveSnapshot(pkgs []*model.PackageSummary) error {
	batch := NewBatchedStore()
	batch.Replace = true
	for _, p := range pkgs {
		for _, f := range p.Files() {
			if err := WriteFile(batch, f); err != nil {
				return fmt.Errorf("store: write %s: %w", f.Path, err)
			}
		}
	}
	return s.CommitBatch(batch)
}

// LoadSnapshot rebuilds the package graph from the stored rows. The result
// holds every package a stored file belongs to or imports, ordered by name.
// Any inconsistency fails the whole load with ErrSnapshotDiscarded.
func (s *Store) LoadSnapshot() ([]*model.PackageSummary, error) {
	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotDiscarded, err)
	}

	r := &restorer{pkgs: make(map[string]*model.PackageSummary)}
	for _, row := range files {
		nodes, err := s.NodesByFile(row.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotDiscarded, err)
		}
		if err := r.file(row, nodes); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSnapshotDiscarded, row.Path, err)
		}
	}

	out := make([]*model.PackageSummary, 0, len(r.pkgs))
	for _, p := range r.pkgs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type restorer struct {
	pkgs map[string]*model.PackageSummary
}

func (r *restorer) pkg(name string) *model.PackageSummary {
	if p, ok := r.pkgs[name]; ok {
		return p
	}
	p := model.NewPackage(name)
	r.pkgs[name] = p
	return p
}

func (r *restorer) file(row *File, nodes []*Node) error {
	f := model.NewFile(row.Path)
	f.ModTime = row.ModTime
	f.SetLines(row.StartLine, row.EndLine)
	r.pkg(row.Package).AddFile(f)

	byID := make(map[int64]model.Summary, len(nodes))
	for _, n := range nodes {
		var owner model.Summary = f
		if n.ParentID != nil {
			o, ok := byID[*n.ParentID]
			if !ok {
				return fmt.Errorf("%s %q: owner %d not restored", n.Kind, n.Name, *n.ParentID)
			}
			owner = o
		}
		s, err := r.node(owner, n)
		if err != nil {
			return err
		}
		s.SetLines(n.StartLine, n.EndLine)
		s.SetDeclLine(n.DeclLine)
		byID[n.ID] = s
	}
	return nil
}

// node creates the summary for n and links it under owner.
func (r *restorer) node(owner model.Summary, n *Node) (model.Summary, error) {
	bad := func() error {
		return fmt.Errorf("%s %q cannot be owned by a %s", n.Kind, n.Name, owner.Kind())
	}

	switch n.Kind {
	case model.KindImport.String():
		f, ok := owner.(*model.FileSummary)
		if !ok {
			return nil, bad()
		}
		imp := &model.ImportSummary{Package: r.pkg(n.Package), TypeName: n.Name, Static: n.Flag}
		f.AddImport(imp)
		return imp, nil

	case model.KindType.String():
		t := model.NewType(n.Name, model.Flavor(n.Flavor))
		t.Modifiers = n.Modifiers
		switch o := owner.(type) {
		case *model.FileSummary:
			o.AddType(t)
		case *model.TypeSummary:
			o.AddType(t)
		case *model.MethodSummary:
			o.AddDependency(t)
		default:
			return nil, bad()
		}
		return t, nil

	case model.KindMethod.String():
		t, ok := owner.(*model.TypeSummary)
		if !ok {
			return nil, bad()
		}
		var m *model.MethodSummary
		switch n.Name {
		case model.StaticInitializerName:
			m = t.Initializer(true)
		case model.InstanceInitializerName:
			m = t.Initializer(false)
		default:
			m = model.NewMethod(n.Name)
			t.AddMethod(m)
		}
		m.Modifiers = n.Modifiers
		m.Statements = n.Statements
		m.SetMaxBlockDepth(n.MaxDepth)
		return m, nil

	case model.KindField.String():
		t, ok := owner.(*model.TypeSummary)
		if !ok {
			return nil, bad()
		}
		f := model.NewField(n.Name)
		f.Modifiers = n.Modifiers
		t.AddField(f)
		return f, nil

	case model.KindParameter.String():
		m, ok := owner.(*model.MethodSummary)
		if !ok {
			return nil, bad()
		}
		p := model.NewParameter(n.Name)
		p.Modifiers = n.Modifiers
		m.AddParameter(p)
		return p, nil

	case model.KindLocalVariable.String():
		m, ok := owner.(*model.MethodSummary)
		if !ok {
			return nil, bad()
		}
		lv := model.NewLocalVariable(n.Name)
		lv.Modifiers = n.Modifiers
		m.AddDependency(lv)
		return lv, nil

	case model.KindTypeDecl.String():
		d := &model.TypeDecl{Package: n.Package, Name: n.Name, Primitive: n.Flag, Rank: n.Rank}
		if !attachRef(owner, n.Role, d) {
			return nil, bad()
		}
		return d, nil

	case model.KindMessageSend.String():
		m, ok := owner.(*model.MethodSummary)
		if !ok {
			return nil, bad()
		}
		send := &model.MessageSendSummary{Object: n.Object, Package: n.Package, Message: n.Name}
		m.AddDependency(send)
		return send, nil

	case model.KindFieldAccess.String():
		m, ok := owner.(*model.MethodSummary)
		if !ok {
			return nil, bad()
		}
		acc := &model.FieldAccessSummary{Object: n.Object, Package: n.Package, Field: n.Name, Write: n.Flag}
		m.AddDependency(acc)
		return acc, nil
	}
	return nil, fmt.Errorf("unknown summary kind %q", n.Kind)
}

func attachRef(owner model.Summary, role Role, d *model.TypeDecl) bool {
	switch o := owner.(type) {
	case *model.TypeSummary:
		switch role {
		case RoleParent:
			o.SetParent(d)
		case RoleImplements:
			o.AddImplements(d)
		default:
			return false
		}
	case *model.MethodSummary:
		switch role {
		case RoleReturn:
			o.SetReturn(d)
		case RoleException:
			o.AddException(d)
		case RoleDependency:
			o.AddDependency(d)
		default:
			return false
		}
	case *model.FieldSummary:
		o.SetType(o, d)
	case *model.ParameterSummary:
		o.SetType(o, d)
	case *model.LocalVariableSummary:
		o.SetType(o, d)
	default:
		return false
	}
	return true
}
