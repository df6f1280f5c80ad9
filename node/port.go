package node

import "github.com/wokengine/wok/portdata"

// PortMode is the direction of a PortNode.
type PortMode int

const (
	PortModeIn PortMode = iota
	PortModeOut
)

func (m PortMode) String() string {
	if m == PortModeOut {
		return "out"
	}
	return "in"
}

// PortNode belongs to exactly one module (flow or leaf). Its Data is nil
// until the port connector runs.
type PortNode struct {
	Name       string
	Mode       PortMode
	Enabled    bool
	Serializer string
	Wsize      int
	Link       []string
	Data       portdata.Data

	// Owner is a slot for the module this port belongs to; the graph
	// builder does not set it, so it is nil on built trees. Path is the
	// dotted identifier "<owner.ID>.<name>" used to index the local port
	// universe during connection.
	Owner Module
	Path  string
}
