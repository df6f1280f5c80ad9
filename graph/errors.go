package graph

import "fmt"

// BuildError wraps the three explicit build-time failure modes: a
// duplicated port name, an unknown outer port on a referenced sub-flow,
// and an unresolvable flow_ref.
type BuildError struct {
	Kind string
	Msg  string
}

func (e *BuildError) Error() string { return fmt.Sprintf("graph: %s: %s", e.Kind, e.Msg) }

func errDuplicatePort(namespace, name string) error {
	return &BuildError{Kind: "duplicate port", Msg: fmt.Sprintf("%q already declared in %s", name, namespace)}
}

func errUnknownOuterPort(flowRef, name string) error {
	return &BuildError{Kind: "unknown outer port", Msg: fmt.Sprintf("%q not declared by sub-flow %s", name, flowRef)}
}

func errUnknownFlowRef(ref string, cause error) error {
	return &BuildError{Kind: "unknown flow_ref", Msg: fmt.Sprintf("%s: %v", ref, cause)}
}
