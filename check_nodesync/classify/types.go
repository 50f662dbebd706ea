package classify

import (
	"fmt"

	"github.com/fluxforge/nodesync/check_nodesync/inventory"
)

// Status is the outcome of a node's latest configuration run.
type Status int

const (
	StatusUnchanged Status = iota
	StatusChanged
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusChanged:
		return "changed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus maps a report status string onto the closed set of statuses.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "unchanged":
		return StatusUnchanged, nil
	case "changed":
		return StatusChanged, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

// NodeRecord is one node as observed during a probe run. Report is nil when
// the node never reported or was excluded before being queried.
type NodeRecord struct {
	Identifier string
	Report     *inventory.Report
	Ignored    bool
	InSync     bool
}

// Metric names, in the order they are emitted.
const (
	MetricTotal     = "nodes_total"
	MetricIgnored   = "nodes_ignored"
	MetricChanged   = "nodes_changed"
	MetricUnchanged = "nodes_unchanged"
	MetricFailed    = "nodes_failed"
	MetricInSync    = "nodes_in_sync"
	MetricNoSync    = "nodes_no_sync"
)

// Metric is one numeric bucket of a Result.
type Metric struct {
	Name  string
	Value int
}

// Result holds the per-category node lists of one probe run, each in
// discovery order.
//
// Ignored, NoReport and Changed+Unchanged+Failed partition Total.
// InSync and NoSync partition Changed+Unchanged+Failed.
type Result struct {
	Total     []string
	Ignored   []string
	NoReport  []string
	Changed   []string
	Unchanged []string
	Failed    []string
	InSync    []string
	NoSync    []string

	Records []NodeRecord
}

// Counts returns the seven numeric buckets in emission order.
func (r *Result) Counts() []Metric {
	return []Metric{
		{MetricTotal, len(r.Total)},
		{MetricIgnored, len(r.Ignored)},
		{MetricChanged, len(r.Changed)},
		{MetricUnchanged, len(r.Unchanged)},
		{MetricFailed, len(r.Failed)},
		{MetricInSync, len(r.InSync)},
		{MetricNoSync, len(r.NoSync)},
	}
}

// Reported is the number of nodes classified by report status.
func (r *Result) Reported() int {
	return len(r.Changed) + len(r.Unchanged) + len(r.Failed)
}
