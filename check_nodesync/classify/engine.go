package classify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/fluxforge/nodesync/check_nodesync/inventory"
)

// DefaultMaxSyncMinutes is the staleness cutoff used when none is configured.
const DefaultMaxSyncMinutes = 60

// Options carries the thresholds of one classification pass.
type Options struct {
	MaxSyncMinutes int
	// Exclude must be anchored at the start of the identifier, see CompileExclude.
	Exclude *regexp.Regexp
	Logger  *slog.Logger
}

// LookupFunc returns the latest reports stored for a node.
type LookupFunc func(node string) ([]inventory.Report, error)

// CompileExclude compiles an exclude pattern so that it only matches at the
// start of a node identifier. An empty pattern yields a nil regexp.
func CompileExclude(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
	}
	return re, nil
}

// MatchExclude reports whether node is excluded by re.
func MatchExclude(re *regexp.Regexp, node string) bool {
	if re == nil {
		return false
	}
	loc := re.FindStringIndex(node)
	return loc != nil && loc[0] == 0
}

// Classify lists every node of src and sorts it into the result buckets.
// Source errors are returned unchanged and abort the pass.
func Classify(ctx context.Context, src inventory.Source, now time.Time, opts Options) (*Result, error) {
	nodes, err := src.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	return ClassifyNodes(nodes, func(node string) ([]inventory.Report, error) {
		return src.LatestReports(ctx, node)
	}, now, opts)
}

// ClassifyNodes classifies nodes in order, querying lookup once per node that
// is not excluded. It does not modify nodes.
func ClassifyNodes(nodes []string, lookup LookupFunc, now time.Time, opts Options) (*Result, error) {
	maxSync := opts.MaxSyncMinutes
	if maxSync <= 0 {
		maxSync = DefaultMaxSyncMinutes
	}
	threshold := time.Duration(maxSync) * time.Minute
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{
		Total:     []string{},
		Ignored:   []string{},
		NoReport:  []string{},
		Changed:   []string{},
		Unchanged: []string{},
		Failed:    []string{},
		InSync:    []string{},
		NoSync:    []string{},
		Records:   make([]NodeRecord, 0, len(nodes)),
	}

	for _, node := range nodes {
		logger.Debug("[CLASSIFY] processing node", "node", node)
		res.Total = append(res.Total, node)

		if MatchExclude(opts.Exclude, node) {
			logger.Debug("[CLASSIFY] node excluded", "node", node)
			res.Ignored = append(res.Ignored, node)
			res.Records = append(res.Records, NodeRecord{Identifier: node, Ignored: true})
			continue
		}

		logger.Debug("[CLASSIFY] querying latest report", "node", node)
		reports, err := lookup(node)
		if err != nil {
			return nil, err
		}

		switch {
		case len(reports) == 0:
			logger.Debug("[CLASSIFY] no report", "node", node)
			res.NoReport = append(res.NoReport, node)
			res.Records = append(res.Records, NodeRecord{Identifier: node})
			continue
		case len(reports) > 1:
			return nil, &IntegrityError{
				Node:   node,
				Kind:   KindDuplicateReport,
				Detail: fmt.Sprintf("%d latest reports found, expected at most one", len(reports)),
			}
		}

		report := reports[0]
		status, err := ParseStatus(report.Status)
		if err != nil {
			return nil, &IntegrityError{Node: node, Kind: KindUnknownStatus, Detail: err.Error()}
		}
		if report.Timestamp.IsZero() {
			return nil, &IntegrityError{Node: node, Kind: KindMissingTimestamp, Detail: "report has no timestamp"}
		}
		logger.Debug("[CLASSIFY] report found", "node", node, "status", status.String(), "timestamp", report.Timestamp)

		switch status {
		case StatusChanged:
			res.Changed = append(res.Changed, node)
		case StatusUnchanged:
			res.Unchanged = append(res.Unchanged, node)
		case StatusFailed:
			res.Failed = append(res.Failed, node)
		}

		age := now.Sub(report.Timestamp)
		inSync := age <= threshold
		if inSync {
			logger.Debug("[CLASSIFY] node in sync", "node", node, "age", age, "threshold", threshold)
			res.InSync = append(res.InSync, node)
		} else {
			logger.Debug("[CLASSIFY] node out of sync", "node", node, "age", age, "threshold", threshold)
			res.NoSync = append(res.NoSync, node)
		}

		r := report
		res.Records = append(res.Records, NodeRecord{Identifier: node, Report: &r, InSync: inSync})
	}

	return res, nil
}
