// Package portconn assigns every port in the tree a PortData handle:
// a two-pass walk per flow level, then recursion into child flows.
package portconn

import (
	"context"
	"fmt"

	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/portdata"
	"github.com/wokengine/wok/wconfig"
)

// Connect walks flow and its descendants, binding every port's Data.
func Connect(ctx context.Context, store portdata.Store, flow *node.FlowNode) error {
	universe := localUniverse(flow)

	// Pass 1: source ports.
	for _, p := range universe {
		if len(p.Link) == 0 && p.Data == nil {
			data, err := store.CreatePortData(ctx, p.Path)
			if err != nil {
				return fmt.Errorf("portconn: allocate source for %s: %w", p.Path, err)
			}
			p.Data = data
		}
	}

	// Pass 2: linked ports.
	for _, p := range universe {
		if len(p.Link) == 0 {
			continue
		}

		upstreams := make([]portdata.Data, 0, len(p.Link))
		for _, l := range p.Link {
			absPath := wconfig.DottedJoin(flow.ID(), l)
			up, ok := universe[absPath]
			if !ok {
				return fmt.Errorf("portconn: %s: unresolved link %q", p.Path, l)
			}
			if up.Data == nil {
				return fmt.Errorf("portconn: %s: upstream %q not yet connected (reference order violation)", p.Path, l)
			}
			if p.Serializer != "" && up.Serializer != "" && p.Serializer != up.Serializer {
				return fmt.Errorf("portconn: %s: serializer %q does not match upstream %q's %q", p.Path, p.Serializer, l, up.Serializer)
			}
			upstreams = append(upstreams, up.Data)
		}

		var data portdata.Data
		var err error
		if len(upstreams) == 1 {
			data, err = store.CreatePortLinkedData(ctx, p.Path, upstreams[0])
		} else {
			data, err = store.CreatePortJoinedData(ctx, p.Path, upstreams)
		}
		if err != nil {
			return fmt.Errorf("portconn: connect %s: %w", p.Path, err)
		}
		p.Data = data
	}

	for _, m := range flow.Modules {
		if child, ok := m.(*node.FlowNode); ok {
			if err := Connect(ctx, store, child); err != nil {
				return err
			}
		}
	}

	return nil
}

// localUniverse is {outer ports of flow} ∪ {ports of direct children},
// indexed by dotted path.
func localUniverse(flow *node.FlowNode) map[string]*node.PortNode {
	universe := map[string]*node.PortNode{}
	add := func(ports []*node.PortNode) {
		for _, p := range ports {
			universe[p.Path] = p
		}
	}

	add(flow.InPorts())
	add(flow.OutPorts())
	for _, m := range flow.Modules {
		add(m.InPorts())
		add(m.OutPorts())
	}
	return universe
}
