package store

import (
	"fmt"
)

// CommitBatch writes all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive) IDs, and every file_id and parent_id within the batch is
// rewritten using the fakeToReal mapping.
//
// Order:
//  1. Replace drops every stored file; otherwise Removed paths and the
//     paths of the batch's files are deleted.
//  2. Files.
//  3. Nodes, owners before what they own.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	// 1. Stale rows
	if batch.Replace {
		if err := clearTx(tx); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	} else {
		stale := append([]string(nil), batch.Removed...)
		for _, f := range batch.Files {
			stale = append(stale, f.Path)
		}
		if err := deletePathsTx(tx, stale); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	fakeToReal := make(map[int64]int64, len(batch.Files)+len(batch.Nodes))

	// 2. Files
	for _, f := range batch.Files {
		realID, err := insertFileTx(tx, &f)
		if err != nil {
			return fmt.Errorf("commit batch: file %q: %w", f.Path, err)
		}
		fakeToReal[f.ID] = realID
	}

	// 3. Nodes
	for _, n := range batch.Nodes {
		if n.FileID < 0 {
			realID, ok := fakeToReal[n.FileID]
			if !ok {
				return fmt.Errorf("commit batch: %s %q has file_id=%d not in fakeToReal map (have %d files)", n.Kind, n.Name, n.FileID, len(batch.Files))
			}
			n.FileID = realID
		}
		if n.ParentID != nil && *n.ParentID < 0 {
			realID, ok := fakeToReal[*n.ParentID]
			if !ok {
				return fmt.Errorf("commit batch: %s %q has parent_id=%d before its parent", n.Kind, n.Name, *n.ParentID)
			}
			n.ParentID = &realID
		}
		realID, err := insertNodeTx(tx, &n)
		if err != nil {
			return fmt.Errorf("commit batch: %s %q: %w", n.Kind, n.Name, err)
		}
		fakeToReal[n.ID] = realID
	}

	return tx.Commit()
}
