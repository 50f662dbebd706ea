package severity

import (
	"fmt"
	"strings"

	"github.com/fluxforge/nodesync/check_nodesync/classify"
)

// List check names and labels.
const (
	ListFailed = "failed"
	ListNoSync = "no_sync"

	LabelFailed = "failed"
	LabelNoSync = "out of sync"
)

// Policy decides which states a classification result raises.
type Policy struct {
	// Warning and Critical map a metric name to its range. Metrics without a
	// range are always OK.
	Warning  map[string]*Range
	Critical map[string]*Range

	FailedState State
	NoSyncState State
}

// DefaultPolicy sets no scalar thresholds, raises CRITICAL for failed nodes
// and WARNING for nodes out of sync.
func DefaultPolicy() Policy {
	return Policy{
		Warning:     map[string]*Range{},
		Critical:    map[string]*Range{},
		FailedState: Critical,
		NoSyncState: Warning,
	}
}

// Checks builds the seven scalar checks followed by the failed and no_sync
// list checks.
func (p Policy) Checks(res *classify.Result) []Check {
	counts := res.Counts()
	checks := make([]Check, 0, len(counts)+2)
	for _, m := range counts {
		checks = append(checks, ScalarCheck(m.Name, m.Value, p.Warning[m.Name], p.Critical[m.Name]))
	}
	checks = append(checks,
		ListCheck(ListFailed, LabelFailed, res.Failed, p.FailedState),
		ListCheck(ListNoSync, LabelNoSync, res.NoSync, p.NoSyncState),
	)
	return checks
}

// Evaluate aggregates the checks of res under p.
func (p Policy) Evaluate(res *classify.Result) Summary {
	return Aggregate(p.Checks(res))
}

// SetThreshold parses "metric=range" and stores it at the given level.
func (p *Policy) SetThreshold(level State, expr string) error {
	metric, spec, ok := strings.Cut(expr, "=")
	if !ok {
		return fmt.Errorf("threshold %q: expected metric=range", expr)
	}
	metric = strings.TrimSpace(metric)
	if !KnownMetric(metric) {
		return fmt.Errorf("threshold %q: unknown metric %q", expr, metric)
	}
	r, err := ParseRange(spec)
	if err != nil {
		return err
	}

	switch level {
	case Warning:
		if p.Warning == nil {
			p.Warning = map[string]*Range{}
		}
		p.Warning[metric] = r
	case Critical:
		if p.Critical == nil {
			p.Critical = map[string]*Range{}
		}
		p.Critical[metric] = r
	default:
		return fmt.Errorf("threshold %q: level must be WARNING or CRITICAL, got %s", expr, level)
	}
	return nil
}

// KnownMetric reports whether name is one of the emitted scalar metrics.
func KnownMetric(name string) bool {
	for _, m := range (&classify.Result{}).Counts() {
		if m.Name == name {
			return true
		}
	}
	return false
}
