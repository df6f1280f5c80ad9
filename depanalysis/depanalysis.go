// Package depanalysis computes the depends/notify/waiting back-reference
// sets and the depth-weighted priority order.
package depanalysis

import (
	"fmt"

	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/wconfig"
)

// Analyze walks the tree once to build the producer map, then computes
// depends/notify/waiting for every leaf, and rejects cyclic dependency
// graphs at build time.
func Analyze(root *node.FlowNode, idx map[string]node.Module) error {
	producers := producerMap(root)

	var leaves []*node.LeafModuleNode
	walkLeaves(root, &leaves)

	for _, leaf := range leaves {
		if err := resolveDepends(leaf, producers, idx); err != nil {
			return err
		}
	}

	return detectCycles(leaves)
}

// producerMap maps a PortData identity to the module whose own output
// port directly owns it.
func producerMap(flow *node.FlowNode) map[string]node.Module {
	out := map[string]node.Module{}
	var walk func(node.Module)
	walk = func(m node.Module) {
		for _, p := range m.OutPorts() {
			if p.Data != nil {
				out[p.Data.ID()] = m
			}
		}
		if f, ok := m.(*node.FlowNode); ok {
			for _, child := range f.Modules {
				walk(child)
			}
		}
	}
	walk(flow)
	return out
}

func walkLeaves(m node.Module, out *[]*node.LeafModuleNode) {
	if leaf, ok := m.(*node.LeafModuleNode); ok {
		*out = append(*out, leaf)
		return
	}
	if f, ok := m.(*node.FlowNode); ok {
		for _, child := range f.Modules {
			walkLeaves(child, out)
		}
	}
}

func resolveDepends(leaf *node.LeafModuleNode, producers map[string]node.Module, idx map[string]node.Module) error {
	depends := leaf.Depends()

	namespace := ""
	if leaf.Parent() != nil {
		namespace = leaf.Parent().ID()
	}
	for _, name := range leaf.ExplicitDepends() {
		absPath := wconfig.DottedJoin(namespace, name)
		dep, ok := idx[absPath]
		if !ok {
			return fmt.Errorf("depanalysis: %s: unresolved explicit depends %q", leaf.ID(), name)
		}
		depends[dep.ID()] = dep
	}

	for _, p := range leaf.InPorts() {
		if p.Data == nil {
			continue
		}
		for _, src := range p.Data.Sources() {
			if prod, ok := producers[src.ID()]; ok && prod.ID() != leaf.ID() {
				depends[prod.ID()] = prod
			}
		}
	}

	for id, dep := range depends {
		dep.Notify()[leaf.ID()] = leaf
		leaf.Waiting()[id] = dep
	}

	return nil
}

func detectCycles(leaves []*node.LeafModuleNode) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(l *node.LeafModuleNode) error
	visit = func(l *node.LeafModuleNode) error {
		color[l.ID()] = gray
		for _, dep := range l.Depends() {
			depLeaf, ok := dep.(*node.LeafModuleNode)
			if !ok {
				continue
			}
			switch color[depLeaf.ID()] {
			case gray:
				return fmt.Errorf("depanalysis: cyclic dependency involving %s and %s", l.ID(), depLeaf.ID())
			case white:
				if err := visit(depLeaf); err != nil {
					return err
				}
			}
		}
		color[l.ID()] = black
		return nil
	}

	for _, l := range leaves {
		if color[l.ID()] == white {
			if err := visit(l); err != nil {
				return err
			}
		}
	}
	return nil
}
