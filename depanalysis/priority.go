package depanalysis

import "github.com/wokengine/wok/node"

// AssignPriorities walks the tree pre-order from root, computing each
// module's priority = parent.priority + (model.priority ?? 0.5) / factor,
// where factor starts at 1 and is multiplied by 10 at each descent.
func AssignPriorities(root *node.FlowNode) {
	assign(root, 0, 1)
}

func assign(m node.Module, parentPriority, factor float64) {
	own := 0.5
	if p := m.ModelPriority(); p != nil {
		own = *p
	}
	m.SetPriority(parentPriority + own/factor)
	m.SetPriorityFactor(factor)

	if f, ok := m.(*node.FlowNode); ok {
		for _, child := range f.Modules {
			assign(child, m.Priority(), factor*10)
		}
	}
}
