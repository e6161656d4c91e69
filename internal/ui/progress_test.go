package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar_Lifecycle(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	pb := NewProgressBar(&buf)

	pb.Add(1) // before Start
	assert.Equal(t, int64(0), pb.Current())

	pb.Start(3, "indexing")
	pb.Add(1)
	pb.Add(1)
	assert.Equal(t, int64(2), pb.Current())
	assert.Contains(t, buf.String(), "[indexing]")

	pb.Finish()
	assert.Equal(t, int64(0), pb.Current())
	pb.Finish() // idempotent
}

func TestProgressBar_RestartsPerStart(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	pb := NewProgressBar(&buf)

	pb.Start(2, "first")
	pb.Add(2)
	pb.Finish()

	pb.Start(5, "second")
	pb.Add(1)
	assert.Equal(t, int64(1), pb.Current())
	pb.Finish()
}
