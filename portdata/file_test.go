package portdata

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLines allocates a fresh partition on d and fills it with n
// newline-delimited records, exercising GetPartition the way a task
// writing its output would.
func writeLines(t *testing.T, d Data, n int) {
	t.Helper()
	part, err := d.GetPartition(context.Background())
	require.NoError(t, err)
	dd, ok := part.(*dirData)
	require.True(t, ok)

	files, err := dd.partitionFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	last := files[len(files)-1]

	fh, err := os.OpenFile(last, os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := fh.WriteString("record\n")
		require.NoError(t, err)
	}
	require.NoError(t, fh.Close())
}

func TestFileStore_SourceSizeGrowsAcrossPartitions(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	d, err := store.CreatePortData(context.Background(), "wf.a.out")
	require.NoError(t, err)

	n, err := d.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	writeLines(t, d, 10)
	n, err = d.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	writeLines(t, d, 5)
	n, err = d.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, n)
}

func TestFileStore_SourceSourcesIsItself(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	d, err := store.CreatePortData(context.Background(), "wf.a.out")
	require.NoError(t, err)

	assert.Equal(t, []Data{d}, d.Sources())
}

func TestFileStore_GetSliceOutOfRangeErrors(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	d, err := store.CreatePortData(context.Background(), "wf.a.out")
	require.NoError(t, err)
	writeLines(t, d, 5)

	_, err = d.GetSlice(context.Background(), 0, 10)
	assert.Error(t, err)
}

func TestFileStore_LinkedDataIsNotWritable(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	upstream, err := store.CreatePortData(context.Background(), "wf.a.out")
	require.NoError(t, err)
	writeLines(t, upstream, 20)

	linked, err := store.CreatePortLinkedData(context.Background(), "wf.b.in", upstream)
	require.NoError(t, err)

	n, err := linked.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	_, err = linked.GetPartition(context.Background())
	assert.Error(t, err)

	assert.Equal(t, []Data{upstream}, linked.Sources())
}

func TestFileStore_JoinedDataConcatenatesInOrder(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.CreatePortData(context.Background(), "wf.a.out")
	require.NoError(t, err)
	writeLines(t, first, 10)

	second, err := store.CreatePortData(context.Background(), "wf.b.out")
	require.NoError(t, err)
	writeLines(t, second, 15)

	joined, err := store.CreatePortJoinedData(context.Background(), "wf.j.in", []Data{first, second})
	require.NoError(t, err)

	n, err := joined.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, []Data{first, second}, joined.Sources())

	_, err = joined.GetPartition(context.Background())
	assert.Error(t, err)
}

func TestFileStore_SliceNarrowsRangeOnReslice(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	d, err := store.CreatePortData(context.Background(), "wf.a.out")
	require.NoError(t, err)
	writeLines(t, d, 100)

	outer, err := d.GetSlice(context.Background(), 10, 50)
	require.NoError(t, err)
	n, err := outer.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	inner, err := outer.GetSlice(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, "wf.a.out[15:25]", inner.ID())

	_, err = outer.GetSlice(context.Background(), 45, 10)
	assert.Error(t, err, "45+10 exceeds the outer slice's own 50-record window")
}
