// Package state implements the hierarchical state machine: flow
// state as a pure reduction of children states, and the FINISHED
// notify-clearing rule.
package state

import "github.com/wokengine/wok/node"

// priority of each state when a flow's children are in more than one
// state; first match wins.
var reducePriority = []node.State{node.Failed, node.Running, node.Waiting, node.Paused, node.Ready}

// ReduceFlow computes a flow's state from the multiset of its direct
// children's states. An empty children list reduces to Finished (a flow
// with no modules is vacuously done).
func ReduceFlow(children []node.State) node.State {
	if len(children) == 0 {
		return node.Finished
	}

	unique := children[0]
	mixed := false
	for _, c := range children[1:] {
		if c != unique {
			mixed = true
			break
		}
	}
	if !mixed {
		return unique
	}

	set := map[node.State]bool{}
	for _, c := range children {
		set[c] = true
	}
	for _, s := range reducePriority {
		if set[s] {
			return s
		}
	}
	// Unreachable: a mixed set holds at least one state other than
	// FINISHED, and reducePriority lists every such state.
	return node.Failed
}

// RecomputeFlow sets flow's state from its children and reports whether
// it changed.
func RecomputeFlow(flow *node.FlowNode) bool {
	children := make([]node.State, len(flow.Modules))
	for i, m := range flow.Modules {
		children[i] = m.State()
	}
	next := ReduceFlow(children)
	if next == flow.State() {
		return false
	}
	flow.SetState(next)
	return true
}

// PropagateUp recomputes every ancestor flow's state, starting at m's
// parent and walking to the root. The scheduler calls this after any
// leaf or flow transition. An ancestor whose state changes to FINISHED
// gets OnFinished applied, releasing the modules waiting on it.
func PropagateUp(m node.Module) {
	for parent := m.Parent(); parent != nil; parent = parent.Parent() {
		if RecomputeFlow(parent) && parent.State() == node.Finished {
			OnFinished(parent)
		}
	}
}

// OnFinished applies the generic FINISHED transition side effect: for
// every module notified by m, remove m from that module's waiting set.
// This runs uniformly whether m is a leaf or a flow, since a flow's own
// outer output port can be the dependency source a leaf links against.
func OnFinished(m node.Module) {
	for _, n := range m.Notify() {
		delete(n.Waiting(), m.ID())
	}
}
