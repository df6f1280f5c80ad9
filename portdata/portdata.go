// Package portdata defines the storage contract a port connects to once the
// graph is built, plus a file-backed implementation.
package portdata

import "context"

// Slice is a read-only view into a contiguous range of a PortData stream.
type Slice struct {
	Start int
	Size  int
}

// Data is a handle to a logical record stream living on shared storage. A
// source port owns a fresh Data; a linked port's Data is a view (or join)
// derived from one or more upstream Data handles.
type Data interface {
	// ID identifies this handle for logging and persistence.
	ID() string

	// Size reports the number of records currently available.
	Size(ctx context.Context) (int, error)

	// GetPartition acquires a fresh appendable partition. Tasks write their
	// output here.
	GetPartition(ctx context.Context) (Data, error)

	// GetSlice acquires a read-only view into [start, start+size).
	GetSlice(ctx context.Context, start, size int) (Data, error)

	// Sources returns the upstream handles this one is derived from. A
	// source handle's Sources is itself; a joined handle lists every member
	// in join order.
	Sources() []Data
}

// Store is the storage-layer contract consumed by the port connector;
// the partitioner works on the Data handles it produces.
type Store interface {
	// CreatePortData allocates fresh source storage for a port identified
	// by its dotted path.
	CreatePortData(ctx context.Context, portPath string) (Data, error)

	// CreatePortLinkedData wraps a single upstream handle with a view bound
	// to the given port path.
	CreatePortLinkedData(ctx context.Context, portPath string, upstream Data) (Data, error)

	// CreatePortJoinedData concatenates multiple upstream handles, in
	// order, behind a single view bound to the given port path.
	CreatePortJoinedData(ctx context.Context, portPath string, upstreams []Data) (Data, error)
}
