package partition

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/portdata"
)

// fakeData is a fixed-size in-memory portdata.Data for partition tests.
type fakeData struct {
	id   string
	size int
}

func (f *fakeData) ID() string { return f.id }
func (f *fakeData) Size(context.Context) (int, error) { return f.size, nil }
func (f *fakeData) GetPartition(context.Context) (portdata.Data, error) {
	return &fakeData{id: f.id + ".partition"}, nil
}
func (f *fakeData) GetSlice(_ context.Context, start, size int) (portdata.Data, error) {
	return &fakeData{id: fmt.Sprintf("%s[%d:%d]", f.id, start, start+size), size: size}, nil
}
func (f *fakeData) Sources() []portdata.Data { return []portdata.Data{f} }

func newLeaf(t *testing.T, name string, wsize, maxpar int, inSizes []int, numOut int) *node.LeafModuleNode {
	t.Helper()
	leaf := node.NewLeafModuleNode(name, name, nil)
	leaf.SetWsize(wsize)
	leaf.SetMaxpar(maxpar)

	in := make([]*node.PortNode, len(inSizes))
	for i, sz := range inSizes {
		in[i] = &node.PortNode{Name: fmt.Sprintf("in%d", i), Data: &fakeData{id: fmt.Sprintf("in%d", i), size: sz}}
	}
	out := make([]*node.PortNode, numOut)
	for i := range out {
		out[i] = &node.PortNode{Name: fmt.Sprintf("out%d", i), Data: &fakeData{id: fmt.Sprintf("out%d", i)}}
	}
	leaf.SetInPorts(in)
	leaf.SetOutPorts(out)
	return leaf
}

func TestPartition_LinearPipelineExactDivision(t *testing.T) {
	leaf := newLeaf(t, "resize", 10, 0, []int{100}, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 0, 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 10)
	for i, task := range tasks {
		assert.Equal(t, i, task.Index)
		assert.Len(t, task.InPortData, 1)
		assert.Len(t, task.OutPortData, 1)
	}
}

func TestPartition_MaxparCap(t *testing.T) {
	leaf := newLeaf(t, "resize", 10, 3, []int{100}, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 0, 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

func TestPartition_InstanceMaxparAppliesWhenModuleUnset(t *testing.T) {
	leaf := newLeaf(t, "resize", 10, 0, []int{100}, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 2, 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestPartition_NoInputPorts(t *testing.T) {
	leaf := newLeaf(t, "source", 10, 0, nil, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].InPortData)
	assert.Len(t, tasks[0].OutPortData, 1)
}

func TestPartition_UnequalInputSizesFallsBackToSingleTask(t *testing.T) {
	leaf := newLeaf(t, "join", 10, 0, []int{100, 40}, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Len(t, tasks[0].InPortData, 2)
}

func TestPartition_ZeroWsizeFallsBackToSingleTask(t *testing.T) {
	leaf := newLeaf(t, "resize", 0, 0, []int{100}, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 0, 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestPartition_EmptyInput(t *testing.T) {
	leaf := newLeaf(t, "resize", 10, 0, []int{0}, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPartition_LastTaskGetsRemainder(t *testing.T) {
	leaf := newLeaf(t, "resize", 10, 0, []int{95}, 1)
	tasks, err := Partition(context.Background(), zerolog.Nop(), leaf, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 10)
	assert.Equal(t, 5, tasks[9].InPortData[0].(*fakeData).size)
	for _, task := range tasks[:9] {
		assert.Equal(t, 10, task.InPortData[0].(*fakeData).size)
	}
}
