package inventory

import (
	"fmt"
)

// Resource type for cache keys
type Resource string

const (
	ResourceNodes  Resource = "nodes"
	ResourceReport Resource = "report"
)

const keyPrefix = "nodesync"

// NodesKey is the Redis set holding every node identifier.
// Format: nodesync:nodes
func NodesKey() string {
	return fmt.Sprintf("%s:%s", keyPrefix, ResourceNodes)
}

// ReportKey is the Redis hash holding the latest report of a node.
// Format: nodesync:node:{node}:report
func ReportKey(node string) string {
	return fmt.Sprintf("%s:node:%s:%s", keyPrefix, node, ResourceReport)
}

// DefaultConsulPrefix is the KV folder holding one key per node.
// Format: nodesync/nodes/{node}
const DefaultConsulPrefix = keyPrefix + "/" + string(ResourceNodes) + "/"
