package store

// DataStore is the write interface the snapshot writer targets. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering committed in one
// transaction) implement it.
type DataStore interface {
	// Each insert returns the assigned ID.
	InsertFile(f *File) (int64, error)
	InsertNode(n *Node) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
