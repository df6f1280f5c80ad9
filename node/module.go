// Package node is the in-memory tree of FlowNode, LeafModuleNode, PortNode
// and TaskNode that the rest of the engine operates on.
package node

// Module is the common surface shared by FlowNode and LeafModuleNode. The
// graph builder, port connector, dependency analyzer, priority pass and
// state machine all operate through this interface so they can walk the
// tree without knowing whether a given node is a flow or a leaf.
type Module interface {
	ID() string
	Name() string
	Parent() *FlowNode

	State() State
	SetState(State)

	Priority() float64
	SetPriority(float64)
	PriorityFactor() float64
	SetPriorityFactor(float64)
	ModelPriority() *float64

	InPorts() []*PortNode
	OutPorts() []*PortNode

	// Depends, Notify and Waiting are back-reference sets keyed by
	// module id. Notify is meaningful for every module, since a
	// flow's outer output port can be the source a leaf depends on;
	// Depends/Waiting are only ever populated for leaves.
	Depends() map[string]Module
	Notify() map[string]Module
	Waiting() map[string]Module

	// ExplicitDepends is the raw, unresolved `depends` list from the
	// module definition. The graph builder sets it on leaves and on
	// flows included through flow_ref; depanalysis resolves it for
	// leaves only.
	ExplicitDepends() []string

	// Wsize and Maxpar are the module-level overrides from its
	// definition; 0 means "unset, fall through to instance defaults".
	Wsize() int
	Maxpar() int

	// Conf is the module's merged configuration element.
	Conf() map[string]any
	SetConf(map[string]any)

	IsLeaf() bool
}

// Base implements the bookkeeping shared by every Module.
type Base struct {
	id             string
	name           string
	parent         *FlowNode
	state          State
	priority       float64
	priorityFactor float64
	in             []*PortNode
	out            []*PortNode
	depends        map[string]Module
	notify         map[string]Module
	waiting        map[string]Module
	explicitDeps   []string
	wsize          int
	maxpar         int
	conf           map[string]any
	modelPriority  *float64
}

func newBase(id, name string, parent *FlowNode) Base {
	return Base{
		id:      id,
		name:    name,
		parent:  parent,
		state:   Ready,
		depends: map[string]Module{},
		notify:  map[string]Module{},
		waiting: map[string]Module{},
	}
}

func (b *Base) ID() string         { return b.id }
func (b *Base) Name() string       { return b.name }
func (b *Base) Parent() *FlowNode  { return b.parent }

func (b *Base) State() State     { return b.state }
func (b *Base) SetState(s State) { b.state = s }

func (b *Base) Priority() float64        { return b.priority }
func (b *Base) SetPriority(p float64)    { b.priority = p }
func (b *Base) PriorityFactor() float64  { return b.priorityFactor }
func (b *Base) SetPriorityFactor(f float64) { b.priorityFactor = f }

func (b *Base) InPorts() []*PortNode  { return b.in }
func (b *Base) OutPorts() []*PortNode { return b.out }

func (b *Base) Depends() map[string]Module { return b.depends }
func (b *Base) Notify() map[string]Module  { return b.notify }
func (b *Base) Waiting() map[string]Module { return b.waiting }

func (b *Base) ExplicitDepends() []string { return b.explicitDeps }

func (b *Base) Wsize() int  { return b.wsize }
func (b *Base) Maxpar() int { return b.maxpar }

func (b *Base) Conf() map[string]any     { return b.conf }
func (b *Base) SetConf(c map[string]any) { b.conf = c }

// FlowNode is a composite module: its children are other modules. It may
// itself act as a module when referenced elsewhere via flow_ref.
type FlowNode struct {
	Base
	Modules []Module
}

// NewFlowNode creates a flow node under parent (nil for the root).
func NewFlowNode(id, name string, parent *FlowNode) *FlowNode {
	return &FlowNode{Base: newBase(id, name, parent)}
}

func (f *FlowNode) IsLeaf() bool { return false }

// LeafModuleNode is a module with no children; it owns the TaskNodes
// produced by partitioning.
type LeafModuleNode struct {
	Base
	Tasks []*TaskNode
}

// NewLeafModuleNode creates a leaf node under parent.
func NewLeafModuleNode(id, name string, parent *FlowNode) *LeafModuleNode {
	return &LeafModuleNode{Base: newBase(id, name, parent)}
}

func (l *LeafModuleNode) IsLeaf() bool { return true }

// SetWsize and SetMaxpar let the graph builder apply module-definition
// overrides after construction (Base keeps them unexported to force
// callers through these setters rather than poking the zero value).
func (b *Base) SetWsize(w int)            { b.wsize = w }
func (b *Base) SetMaxpar(m int)           { b.maxpar = m }
func (b *Base) SetExplicitDepends(d []string) { b.explicitDeps = d }
func (b *Base) SetInPorts(p []*PortNode)  { b.in = p }
func (b *Base) SetOutPorts(p []*PortNode) { b.out = p }

// ModelPriority is the raw `priority` from the module definition, or nil
// if unset.
func (b *Base) ModelPriority() *float64     { return b.modelPriority }
func (b *Base) SetModelPriority(p *float64) { b.modelPriority = p }
