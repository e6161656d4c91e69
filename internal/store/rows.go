package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// --- Files ---

func (s *Store) InsertFile(f *File) (int64, error) {
	id, err := insertFileTx(s.db, f)
	if err != nil {
		return 0, fmt.Errorf("insert file %s: %w", f.Path, err)
	}
	f.ID = id
	return id, nil
}

// FileByPath returns the stored file at path, or nil when absent.
func (s *Store) FileByPath(path string) (*File, error) {
	row := s.db.QueryRow(
		`SELECT id, path, package, mod_time, start_line, end_line, last_indexed
		 FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every stored file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query(
		`SELECT id, path, package, mod_time, start_line, end_line, last_indexed
		 FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var out []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	var f File
	var mtime int64
	var indexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Package, &mtime, &f.StartLine, &f.EndLine, &indexed); err != nil {
		return nil, err
	}
	f.ModTime = time.Unix(0, mtime)
	if indexed.Valid {
		f.LastIndexed = indexed.Time
	}
	return &f, nil
}

// --- Summaries ---

func (s *Store) InsertNode(n *Node) (int64, error) {
	id, err := insertNodeTx(s.db, n)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", n.Kind, n.Name, err)
	}
	n.ID = id
	return id, nil
}

// NodesByFile returns a file's summaries in insertion order, so owners come
// before what they own.
func (s *Store) NodesByFile(fileID int64) ([]*Node, error) {
	return s.queryNodes(nodeSelect+" WHERE file_id = ? ORDER BY id", fileID)
}

// NodesByKind returns every summary of a kind, e.g. "type".
func (s *Store) NodesByKind(kind string) ([]*Node, error) {
	return s.queryNodes(nodeSelect+" WHERE kind = ? ORDER BY id", kind)
}

// CountByKind returns the number of stored summaries per kind.
func (s *Store) CountByKind() (map[string]int, error) {
	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM summaries GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}

const nodeSelect = `SELECT id, file_id, parent_id, kind, role, name, package, object, flavor,
	flag, rank, modifiers, statements, max_depth, start_line, decl_line, end_line,
	signature_hash FROM summaries`

func (s *Store) queryNodes(query string, args ...any) ([]*Node, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()
	var out []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNode(scanner interface{ Scan(...any) error }) (*Node, error) {
	var n Node
	var parent sql.NullInt64
	var role, mods string
	var hash sql.NullString
	err := scanner.Scan(&n.ID, &n.FileID, &parent, &n.Kind, &role, &n.Name, &n.Package,
		&n.Object, &n.Flavor, &n.Flag, &n.Rank, &mods, &n.Statements, &n.MaxDepth,
		&n.StartLine, &n.DeclLine, &n.EndLine, &hash)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		n.ParentID = &parent.Int64
	}
	n.Role = Role(role)
	n.Modifiers = unmarshalModifiers(mods)
	n.SignatureHash = hash.String
	return &n, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertFileTx(x execer, f *File) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO files (path, package, mod_time, start_line, end_line, last_indexed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.Path, f.Package, f.ModTime.UnixNano(), f.StartLine, f.EndLine, f.LastIndexed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertNodeTx(x execer, n *Node) (int64, error) {
	var hash any
	if n.SignatureHash != "" {
		hash = n.SignatureHash
	}
	res, err := x.Exec(
		`INSERT INTO summaries (file_id, parent_id, kind, role, name, package, object, flavor,
			flag, rank, modifiers, statements, max_depth, start_line, decl_line, end_line, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.FileID, n.ParentID, n.Kind, string(n.Role), n.Name, n.Package, n.Object, n.Flavor,
		n.Flag, n.Rank, marshalModifiers(n.Modifiers), n.Statements, n.MaxDepth,
		n.StartLine, n.DeclLine, n.EndLine, hash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
