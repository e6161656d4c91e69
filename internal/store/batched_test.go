package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_AllocatesNegativeIDs(t *testing.T) {
	t.Parallel()
	batch := NewBatchedStore()

	fid, err := batch.InsertFile(&File{Path: "/src/A.java"})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), fid)

	nid, err := batch.InsertNode(&Node{FileID: fid, Kind: "type", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), nid)

	assert.Len(t, batch.Files, 1)
	assert.Len(t, batch.Nodes, 1)
	assert.False(t, batch.Empty())
}

func TestBatchedStore_Empty(t *testing.T) {
	t.Parallel()
	batch := NewBatchedStore()
	assert.True(t, batch.Empty())

	batch.Remove("/src/A.java")
	assert.False(t, batch.Empty())

	replace := NewBatchedStore()
	replace.Replace = true
	assert.False(t, replace.Empty())
}

func TestCommitBatch_RemapsFakeIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore()

	fid, _ := batch.InsertFile(&File{Path: "/src/A.java", Package: "p"})
	typ, _ := batch.InsertNode(&Node{FileID: fid, Kind: "type", Name: "A"})
	_, _ = batch.InsertNode(&Node{FileID: fid, ParentID: ptr(typ), Kind: "method", Name: "m"})

	require.NoError(t, s.CommitBatch(batch))

	f, err := s.FileByPath("/src/A.java")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Positive(t, f.ID)

	nodes, err := s.NodesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Positive(t, nodes[0].ID)
	require.NotNil(t, nodes[1].ParentID)
	assert.Equal(t, nodes[0].ID, *nodes[1].ParentID)
}

func TestCommitBatch_ReplaceDropsEverything(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.InsertFile(&File{Path: "/src/Old.java"})
	require.NoError(t, err)

	batch := NewBatchedStore()
	batch.Replace = true
	_, _ = batch.InsertFile(&File{Path: "/src/New.java"})
	require.NoError(t, s.CommitBatch(batch))

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/src/New.java", files[0].Path)
}

func TestCommitBatch_ParentBeforeOwnerFails(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore()

	fid, _ := batch.InsertFile(&File{Path: "/src/A.java"})
	batch.Nodes = append(batch.Nodes, Node{ID: -50, FileID: fid, ParentID: ptr(int64(-99)), Kind: "field"})

	err := s.CommitBatch(batch)
	require.Error(t, err)

	// the transaction rolled back
	f, err := s.FileByPath("/src/A.java")
	require.NoError(t, err)
	assert.Nil(t, f)
}
