package inventory

import (
	"context"
)

// Source defines what the probe needs from a configuration-management
// inventory. It abstracts over PuppetDB's HTTP API, its Postgres schema,
// exported SQLite snapshots and the Redis/Consul inventory caches.
type Source interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// ListNodes returns the identifiers of all active nodes in discovery order.
	ListNodes(ctx context.Context) ([]string, error)

	// LatestReports returns the reports flagged as the latest for a node.
	// A well-formed inventory returns zero or one report; the caller decides
	// what more than one means.
	LatestReports(ctx context.Context, node string) ([]Report, error)

	// Close releases connections held by the source.
	Close() error
}
