package model

import "context"

// Loader resolves a flow_ref URI to a Flow definition. The graph builder
// calls this whenever a module declares flow_ref.
type Loader interface {
	Load(ctx context.Context, ref string) (*Flow, error)
}
