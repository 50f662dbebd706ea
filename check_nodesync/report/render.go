// Package report renders probe results in monitoring plugin format.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fluxforge/nodesync/check_nodesync/classify"
	"github.com/fluxforge/nodesync/check_nodesync/severity"
)

// Prefix names the check on the status line.
const Prefix = "NODESYNC"

// Verbosity levels.
const (
	VerboseProblems = 1
	VerboseAll      = 2
	VerboseDebug    = 3
)

// Render writes the status line and, depending on verbose, the long output.
func Render(w io.Writer, s severity.Summary, res *classify.Result, verbose int) error {
	var b strings.Builder
	b.WriteString(StatusLine(s, res))
	b.WriteByte('\n')

	if verbose >= VerboseProblems {
		for _, o := range s.Outcomes {
			if o.State == severity.OK && verbose < VerboseAll {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", o.State, o.Message)
		}
	}
	if verbose >= VerboseAll && res != nil {
		b.WriteString(NodeLists(res))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError writes the UNKNOWN line for a failed run. No perfdata is
// written since the metrics are incomplete.
func RenderError(w io.Writer, err error) error {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	_, werr := fmt.Fprintf(w, "%s %s - %s\n", Prefix, severity.Unknown, msg)
	return werr
}

// StatusLine is the first output line: state, message and perfdata.
func StatusLine(s severity.Summary, res *classify.Result) string {
	line := fmt.Sprintf("%s %s - %s", Prefix, s.State, Message(s, res))
	if perf := Perfdata(s); perf != "" {
		line += " | " + perf
	}
	return line
}

// Message joins the problem messages, or describes the healthy fleet when
// every check is OK.
func Message(s severity.Summary, res *classify.Result) string {
	problems := s.Problems()
	if len(problems) == 0 {
		if res == nil {
			return "all checks OK"
		}
		return fmt.Sprintf("%d of %d nodes in sync (%d ignored, %d without report)",
			len(res.InSync), len(res.Total), len(res.Ignored), len(res.NoReport))
	}

	msgs := make([]string, 0, len(problems))
	for _, o := range problems {
		msgs = append(msgs, o.Message)
	}
	return strings.Join(msgs, ", ")
}

// Perfdata formats every scalar outcome as name=value[;warn[;crit]].
func Perfdata(s severity.Summary) string {
	scalars := s.Scalars()
	parts := make([]string, 0, len(scalars))
	for _, o := range scalars {
		parts = append(parts, perfValue(o.Check))
	}
	return strings.Join(parts, " ")
}

func perfValue(c severity.Check) string {
	v := fmt.Sprintf("%s=%d", c.Name, c.Value)
	switch {
	case c.Critical != nil:
		warn := ""
		if c.Warning != nil {
			warn = c.Warning.String()
		}
		return v + ";" + warn + ";" + c.Critical.String()
	case c.Warning != nil:
		return v + ";" + c.Warning.String()
	default:
		return v
	}
}

// NodeLists lists the members of every category, one per line.
func NodeLists(res *classify.Result) string {
	lists := []struct {
		name  string
		nodes []string
	}{
		{"total", res.Total},
		{"ignored", res.Ignored},
		{"no_report", res.NoReport},
		{"changed", res.Changed},
		{"unchanged", res.Unchanged},
		{"failed", res.Failed},
		{"in_sync", res.InSync},
		{"no_sync", res.NoSync},
	}

	var b strings.Builder
	for _, l := range lists {
		nodes := "-"
		if len(l.nodes) > 0 {
			nodes = strings.Join(l.nodes, ",")
		}
		fmt.Fprintf(&b, "%s (%d): %s\n", l.name, len(l.nodes), nodes)
	}
	return b.String()
}
