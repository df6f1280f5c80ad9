package portconn

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/portdata"
)

// fakeData is a minimal portdata.Data for connector tests; it only
// needs an identity and a sources list.
type fakeData struct {
	id  string
	src []portdata.Data
}

func (f *fakeData) ID() string                                          { return f.id }
func (f *fakeData) Size(context.Context) (int, error)                   { return 0, nil }
func (f *fakeData) GetPartition(context.Context) (portdata.Data, error) { return f, nil }
func (f *fakeData) GetSlice(context.Context, int, int) (portdata.Data, error) {
	return f, nil
}
func (f *fakeData) Sources() []portdata.Data {
	if f.src != nil {
		return f.src
	}
	return []portdata.Data{f}
}

// fakeStore mints fakeData handles, recording every allocation so tests
// can assert on call counts and ordering.
type fakeStore struct {
	sources []string
	linked  []string
	joined  []string
}

func (s *fakeStore) CreatePortData(_ context.Context, path string) (portdata.Data, error) {
	s.sources = append(s.sources, path)
	return &fakeData{id: path}, nil
}

func (s *fakeStore) CreatePortLinkedData(_ context.Context, path string, upstream portdata.Data) (portdata.Data, error) {
	s.linked = append(s.linked, path)
	return &fakeData{id: path, src: []portdata.Data{upstream}}, nil
}

func (s *fakeStore) CreatePortJoinedData(_ context.Context, path string, upstreams []portdata.Data) (portdata.Data, error) {
	s.joined = append(s.joined, path)
	members := make([]portdata.Data, len(upstreams))
	copy(members, upstreams)
	return &fakeData{id: path, src: members}, nil
}

func TestConnect_SourcePortsGetFreshData(t *testing.T) {
	root := node.NewFlowNode("wf", "wf", nil)
	a := node.NewLeafModuleNode("wf.a", "a", root)
	a.SetOutPorts([]*node.PortNode{{Name: "out", Path: "wf.a.out"}})
	root.Modules = []node.Module{a}

	store := &fakeStore{}
	require.NoError(t, Connect(context.Background(), store, root))

	assert.NotNil(t, a.OutPorts()[0].Data)
	assert.Contains(t, store.sources, "wf.a.out")
}

func TestConnect_SingleLinkCreatesLinkedView(t *testing.T) {
	root := node.NewFlowNode("wf", "wf", nil)
	a := node.NewLeafModuleNode("wf.a", "a", root)
	a.SetOutPorts([]*node.PortNode{{Name: "out", Path: "wf.a.out"}})
	b := node.NewLeafModuleNode("wf.b", "b", root)
	b.SetInPorts([]*node.PortNode{{Name: "in", Path: "wf.b.in", Link: []string{"a.out"}}})
	root.Modules = []node.Module{a, b}

	store := &fakeStore{}
	require.NoError(t, Connect(context.Background(), store, root))

	assert.Contains(t, store.linked, "wf.b.in")
	assert.Empty(t, store.joined)
	require.NotNil(t, b.InPorts()[0].Data)
	assert.Equal(t, []portdata.Data{a.OutPorts()[0].Data}, b.InPorts()[0].Data.Sources())
}

func TestConnect_MultipleLinksCreateJoinedView(t *testing.T) {
	root := node.NewFlowNode("wf", "wf", nil)
	a := node.NewLeafModuleNode("wf.a", "a", root)
	a.SetOutPorts([]*node.PortNode{{Name: "out", Path: "wf.a.out"}})
	b := node.NewLeafModuleNode("wf.b", "b", root)
	b.SetOutPorts([]*node.PortNode{{Name: "out", Path: "wf.b.out"}})
	j := node.NewLeafModuleNode("wf.j", "j", root)
	j.SetInPorts([]*node.PortNode{{Name: "in", Path: "wf.j.in", Link: []string{"a.out", "b.out"}}})
	root.Modules = []node.Module{a, b, j}

	store := &fakeStore{}
	require.NoError(t, Connect(context.Background(), store, root))

	assert.Contains(t, store.joined, "wf.j.in")
	require.Len(t, j.InPorts()[0].Data.Sources(), 2)
}

func TestConnect_UnresolvedLinkErrors(t *testing.T) {
	root := node.NewFlowNode("wf", "wf", nil)
	b := node.NewLeafModuleNode("wf.b", "b", root)
	b.SetInPorts([]*node.PortNode{{Name: "in", Path: "wf.b.in", Link: []string{"nope.out"}}})
	root.Modules = []node.Module{b}

	err := Connect(context.Background(), &fakeStore{}, root)
	assert.Error(t, err)
}

func TestConnect_SerializerMismatchErrors(t *testing.T) {
	root := node.NewFlowNode("wf", "wf", nil)
	a := node.NewLeafModuleNode("wf.a", "a", root)
	a.SetOutPorts([]*node.PortNode{{Name: "out", Path: "wf.a.out", Serializer: "json"}})
	b := node.NewLeafModuleNode("wf.b", "b", root)
	b.SetInPorts([]*node.PortNode{{Name: "in", Path: "wf.b.in", Serializer: "csv", Link: []string{"a.out"}}})
	root.Modules = []node.Module{a, b}

	err := Connect(context.Background(), &fakeStore{}, root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serializer")
}

func TestConnect_DescendsIntoChildFlows(t *testing.T) {
	root := node.NewFlowNode("wf", "wf", nil)
	sub := node.NewFlowNode("wf.sub", "sub", root)
	leaf := node.NewLeafModuleNode("wf.sub.leaf", "leaf", sub)
	leaf.SetOutPorts([]*node.PortNode{{Name: "out", Path: "wf.sub.leaf.out"}})
	sub.Modules = []node.Module{leaf}
	root.Modules = []node.Module{sub}

	store := &fakeStore{}
	require.NoError(t, Connect(context.Background(), store, root))

	assert.Contains(t, store.sources, "wf.sub.leaf.out")
}

func TestConnect_EveryPortEndsUpWithData(t *testing.T) {
	root := node.NewFlowNode("wf", "wf", nil)
	a := node.NewLeafModuleNode("wf.a", "a", root)
	a.SetOutPorts([]*node.PortNode{{Name: "out", Path: "wf.a.out"}})
	b := node.NewLeafModuleNode("wf.b", "b", root)
	b.SetInPorts([]*node.PortNode{{Name: "in", Path: "wf.b.in", Link: []string{"a.out"}}})
	root.Modules = []node.Module{a, b}

	require.NoError(t, Connect(context.Background(), &fakeStore{}, root))

	for _, m := range root.Modules {
		for _, p := range append(m.InPorts(), m.OutPorts()...) {
			assert.NotNil(t, p.Data, fmt.Sprintf("%s should be connected", p.Path))
		}
	}
}
