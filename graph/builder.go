// Package graph recursively expands a workflow definition (model.Flow)
// into the connected node tree.
package graph

import (
	"context"
	"fmt"

	"github.com/wokengine/wok/model"
	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/wconfig"
)

// Index maps a module's dotted id to its node.
type Index map[string]node.Module

// Build constructs the root FlowNode from def and returns the flat id
// index alongside it.
func Build(ctx context.Context, def *model.Flow, loader model.Loader) (*node.FlowNode, Index, error) {
	idx := Index{}
	root, err := buildFlow(ctx, def, "", nil, loader, idx)
	if err != nil {
		return nil, nil, err
	}
	return root, idx, nil
}

func buildFlow(ctx context.Context, def *model.Flow, namespace string, parent *node.FlowNode, loader model.Loader, idx Index) (*node.FlowNode, error) {
	id := wconfig.DottedJoin(namespace, def.Name)
	flow := node.NewFlowNode(id, def.Name, parent)

	in, out, err := attachPorts(id, def.InPorts, def.OutPorts)
	if err != nil {
		return nil, err
	}
	flow.SetInPorts(in)
	flow.SetOutPorts(out)
	flow.SetConf(def.Conf)
	flow.SetWsize(def.Wsize)
	flow.SetMaxpar(def.Maxpar)
	idx[id] = flow

	for _, mdef := range def.Modules {
		if mdef.Enabled != nil && !*mdef.Enabled {
			continue
		}
		child, err := buildModule(ctx, mdef, id, flow, loader, idx)
		if err != nil {
			return nil, err
		}
		flow.Modules = append(flow.Modules, child)
	}

	return flow, nil
}

func buildModule(ctx context.Context, mdef *model.Module, namespace string, parent *node.FlowNode, loader model.Loader, idx Index) (node.Module, error) {
	if !mdef.IsFlowRef() {
		return buildLeaf(mdef, namespace, parent, idx)
	}

	refFlow, err := loader.Load(ctx, mdef.FlowRef)
	if err != nil {
		return nil, errUnknownFlowRef(mdef.FlowRef, err)
	}

	overrideFlowAsModule(refFlow, mdef)

	childFlow, err := buildFlow(ctx, refFlow, namespace, parent, loader, idx)
	if err != nil {
		return nil, err
	}
	childFlow.SetExplicitDepends(mdef.Depends)
	childFlow.SetModelPriority(mdef.Priority)

	if err := overridePorts(childFlow, mdef, mdef.FlowRef); err != nil {
		return nil, err
	}

	return childFlow, nil
}

func buildLeaf(mdef *model.Module, namespace string, parent *node.FlowNode, idx Index) (*node.LeafModuleNode, error) {
	id := wconfig.DottedJoin(namespace, mdef.Name)
	leaf := node.NewLeafModuleNode(id, mdef.Name, parent)

	in, out, err := attachPorts(id, mdef.InPorts, mdef.OutPorts)
	if err != nil {
		return nil, err
	}
	leaf.SetInPorts(in)
	leaf.SetOutPorts(out)
	leaf.SetConf(mdef.Conf)
	leaf.SetWsize(mdef.Wsize)
	leaf.SetMaxpar(mdef.Maxpar)
	leaf.SetExplicitDepends(mdef.Depends)
	leaf.SetModelPriority(mdef.Priority)

	idx[id] = leaf
	return leaf, nil
}

func attachPorts(ownerID string, inDefs, outDefs []*model.Port) ([]*node.PortNode, []*node.PortNode, error) {
	seen := map[string]bool{}
	build := func(defs []*model.Port, mode node.PortMode) ([]*node.PortNode, error) {
		ports := make([]*node.PortNode, 0, len(defs))
		for _, pd := range defs {
			if seen[pd.Name] {
				return nil, errDuplicatePort(ownerID, pd.Name)
			}
			seen[pd.Name] = true
			ports = append(ports, &node.PortNode{
				Name:       pd.Name,
				Mode:       mode,
				Enabled:    pd.Enabled == nil || *pd.Enabled,
				Serializer: pd.Serializer,
				Wsize:      pd.Wsize,
				Link:       pd.Link,
				Path:       wconfig.DottedJoin(ownerID, pd.Name),
			})
		}
		return ports, nil
	}

	in, err := build(inDefs, node.PortModeIn)
	if err != nil {
		return nil, nil, err
	}
	out, err := build(outDefs, node.PortModeOut)
	if err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

// overrideFlowAsModule applies the including module's non-null fields
// onto the referenced flow's root: title/desc/enabled/serializer/wsize/
// maxpar are overwritten and conf is merged. The including module's
// priority and depends are set on the built flow node by buildModule.
func overrideFlowAsModule(flow *model.Flow, mdef *model.Module) {
	if mdef.Title != "" {
		flow.Title = mdef.Title
	}
	if mdef.Desc != "" {
		flow.Desc = mdef.Desc
	}
	if mdef.Enabled != nil {
		flow.Enabled = mdef.Enabled
	}
	if mdef.Serializer != "" {
		flow.Serializer = mdef.Serializer
	}
	if mdef.Wsize > 0 {
		flow.Wsize = mdef.Wsize
	}
	if mdef.Maxpar > 0 {
		flow.Maxpar = mdef.Maxpar
	}
	if mdef.Conf != nil {
		flow.Conf = wconfig.Merge(flow.Conf, mdef.Conf)
	}
	// flow.Name is replaced: the node id is built from the including
	// module's name (mdef.Name), not the referenced flow's own name, so
	// the tree reflects where it was included.
	flow.Name = mdef.Name
}

// overridePorts applies port override onto the flow's matching
// outer ports: enabled/serializer/wsize/link come from the including
// module's port definitions; names must match. A port definition's
// title and desc are not applied, since PortNode has no such fields.
func overridePorts(flow *node.FlowNode, mdef *model.Module, ref string) error {
	apply := func(ownPorts []*node.PortNode, overrideDefs []*model.Port) error {
		byName := map[string]*node.PortNode{}
		for _, p := range ownPorts {
			byName[p.Name] = p
		}
		for _, od := range overrideDefs {
			target, ok := byName[od.Name]
			if !ok {
				return errUnknownOuterPort(ref, od.Name)
			}
			if od.Enabled != nil {
				target.Enabled = *od.Enabled
			}
			if od.Serializer != "" {
				target.Serializer = od.Serializer
			}
			if od.Wsize > 0 {
				target.Wsize = od.Wsize
			}
			if len(od.Link) > 0 {
				target.Link = od.Link
			}
		}
		return nil
	}

	if err := apply(flow.InPorts(), mdef.InPorts); err != nil {
		return err
	}
	if err := apply(flow.OutPorts(), mdef.OutPorts); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}
