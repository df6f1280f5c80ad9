// Package model holds the workflow definition types produced by a loader
// and consumed by the graph builder. Definitions carry topology only; no
// runtime state lives here.
package model

// PortMode is the direction of a port.
type PortMode string

const (
	PortModeIn  PortMode = "in"
	PortModeOut PortMode = "out"
)

// Port is a port definition: a named endpoint with optional overrides and
// an ordered link list (empty means "source port").
type Port struct {
	Name       string   `yaml:"name"`
	Title      string   `yaml:"title,omitempty"`
	Desc       string   `yaml:"desc,omitempty"`
	Enabled    *bool    `yaml:"enabled,omitempty"`
	Serializer string   `yaml:"serializer,omitempty"`
	Wsize      int      `yaml:"wsize,omitempty"`
	Link       []string `yaml:"link,omitempty"`
	Mode       PortMode `yaml:"-"`
}

// Module is a child module definition within a flow. A module with a
// non-empty FlowRef is a sub-flow inclusion; otherwise it is a leaf.
type Module struct {
	Name       string         `yaml:"name"`
	Title      string         `yaml:"title,omitempty"`
	Desc       string         `yaml:"desc,omitempty"`
	Enabled    *bool          `yaml:"enabled,omitempty"`
	Serializer string         `yaml:"serializer,omitempty"`
	Conf       map[string]any `yaml:"conf,omitempty"`
	Priority   *float64       `yaml:"priority,omitempty"`
	Wsize      int            `yaml:"wsize,omitempty"`
	Maxpar     int            `yaml:"maxpar,omitempty"`
	Depends    []string       `yaml:"depends,omitempty"`
	FlowRef    string         `yaml:"flow_ref,omitempty"`
	InPorts    []*Port        `yaml:"in_ports,omitempty"`
	OutPorts   []*Port        `yaml:"out_ports,omitempty"`
}

// IsFlowRef reports whether this module definition includes a sub-flow
// rather than describing a leaf.
func (m *Module) IsFlowRef() bool { return m.FlowRef != "" }

// Flow is a composite module definition: its own outer ports plus an
// ordered list of child module definitions.
type Flow struct {
	Name       string         `yaml:"name"`
	Title      string         `yaml:"title,omitempty"`
	Desc       string         `yaml:"desc,omitempty"`
	Enabled    *bool          `yaml:"enabled,omitempty"`
	Serializer string         `yaml:"serializer,omitempty"`
	Conf       map[string]any `yaml:"conf,omitempty"`
	Wsize      int            `yaml:"wsize,omitempty"`
	Maxpar     int            `yaml:"maxpar,omitempty"`
	InPorts    []*Port        `yaml:"in_ports,omitempty"`
	OutPorts   []*Port        `yaml:"out_ports,omitempty"`
	Modules    []*Module      `yaml:"modules,omitempty"`
}
