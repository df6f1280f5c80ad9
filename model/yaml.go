package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLLoader resolves flow_ref URIs of the form "file://relative/path" (or
// a bare relative path) against a search root, parsing the target file as
// a Flow definition.
//
// Other flow_ref schemes can be supported by a different Loader
// implementation; this one only resolves "file".
type YAMLLoader struct {
	Root string
}

// NewYAMLLoader returns a loader resolving flow_ref paths under root.
func NewYAMLLoader(root string) *YAMLLoader {
	return &YAMLLoader{Root: root}
}

func (l *YAMLLoader) Load(_ context.Context, ref string) (*Flow, error) {
	path := strings.TrimPrefix(ref, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.Root, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: load flow_ref %q: %w", ref, err)
	}

	var flow Flow
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("model: parse flow_ref %q: %w", ref, err)
	}

	applyPortModes(&flow)
	return &flow, nil
}

func applyPortModes(flow *Flow) {
	for _, p := range flow.InPorts {
		p.Mode = PortModeIn
	}
	for _, p := range flow.OutPorts {
		p.Mode = PortModeOut
	}
	for _, m := range flow.Modules {
		for _, p := range m.InPorts {
			p.Mode = PortModeIn
		}
		for _, p := range m.OutPorts {
			p.Mode = PortModeOut
		}
	}
}
