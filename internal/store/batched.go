package store

import "sync"

// BatchedStore buffers snapshot inserts in memory using fake (negative)
// IDs. It implements DataStore so the snapshot writer can target it without
// knowing whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Files []File
	Nodes []Node

	// Removed lists paths whose stored rows are deleted on commit.
	Removed []string
	// Replace makes the commit drop every stored file first.
	Replace bool

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertFile(f *File) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Files = append(b.Files, *f)
	return fakeID, nil
}

func (b *BatchedStore) InsertNode(n *Node) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	n.ID = fakeID
	b.Nodes = append(b.Nodes, *n)
	return fakeID, nil
}

// Remove queues the deletion of path.
func (b *BatchedStore) Remove(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Removed = append(b.Removed, path)
}

// Empty reports whether committing the batch would change nothing.
func (b *BatchedStore) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.Replace && len(b.Files) == 0 && len(b.Removed) == 0
}
