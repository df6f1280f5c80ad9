package instance

import (
	"context"
	"sort"

	"github.com/wokengine/wok/depanalysis"
	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/portconn"
	"github.com/wokengine/wok/portdata"
)

func connectAndAnalyze(ctx context.Context, store portdata.Store, root *node.FlowNode, idx map[string]node.Module) error {
	if err := portconn.Connect(ctx, store, root); err != nil {
		return err
	}
	if err := depanalysis.Analyze(root, idx); err != nil {
		return err
	}
	depanalysis.AssignPriorities(root)
	return nil
}

// applyStartModule marks every module that precedes startID in
// topological (priority) order as FINISHED, so a resumed run can skip
// modules an earlier run already completed.
func applyStartModule(root *node.FlowNode, idx map[string]node.Module, startID string) {
	if startID == "" {
		return
	}
	target, ok := idx[startID]
	if !ok {
		return
	}

	var leaves []*node.LeafModuleNode
	collectLeaves(root, &leaves)
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Priority() < leaves[j].Priority() })

	for _, leaf := range leaves {
		if leaf.Priority() >= target.Priority() {
			break
		}
		leaf.SetState(node.Finished)
		onLeafFinished(leaf)
	}
}

func collectLeaves(m node.Module, out *[]*node.LeafModuleNode) {
	if leaf, ok := m.(*node.LeafModuleNode); ok {
		*out = append(*out, leaf)
		return
	}
	if f, ok := m.(*node.FlowNode); ok {
		for _, child := range f.Modules {
			collectLeaves(child, out)
		}
	}
}
