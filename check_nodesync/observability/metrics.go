package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxforge/nodesync/check_nodesync/classify"
	"github.com/fluxforge/nodesync/check_nodesync/inventory"
	"github.com/fluxforge/nodesync/check_nodesync/severity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder holds the metrics of a single probe run on a private registry, so
// repeated runs in one process never collide.
type Recorder struct {
	Registry *prometheus.Registry

	// Nodes tracks the size of each classification bucket.
	Nodes *prometheus.GaugeVec

	// ProbeState tracks the overall state (0=OK, 1=WARNING, 2=CRITICAL, 3=UNKNOWN).
	ProbeState prometheus.Gauge

	// ProbeDuration tracks the wall time of the run.
	ProbeDuration prometheus.Gauge

	// LastSuccess is the unix time of the last run that produced a result.
	LastSuccess prometheus.Gauge

	// SourceQueries counts inventory queries by operation and result.
	SourceQueries *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		Registry: reg,
		Nodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nodesync_nodes",
			Help: "Number of nodes per classification bucket",
		}, []string{"bucket"}),
		ProbeState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodesync_probe_state",
			Help: "Overall probe state (0=OK, 1=WARNING, 2=CRITICAL, 3=UNKNOWN)",
		}),
		ProbeDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodesync_probe_duration_seconds",
			Help: "Duration of the last probe run",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodesync_last_success_timestamp_seconds",
			Help: "Unix time of the last probe run that classified the inventory",
		}),
		SourceQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodesync_source_queries_total",
			Help: "Inventory queries issued by the probe",
		}, []string{"source", "op", "result"}),
	}
}

// ObserveResult sets one gauge per bucket, including no_report.
func (r *Recorder) ObserveResult(res *classify.Result, at time.Time) {
	for _, m := range res.Counts() {
		r.Nodes.WithLabelValues(m.Name).Set(float64(m.Value))
	}
	r.Nodes.WithLabelValues("nodes_no_report").Set(float64(len(res.NoReport)))
	r.LastSuccess.Set(float64(at.Unix()))
}

// ObserveRun records the final state and duration of a run.
func (r *Recorder) ObserveRun(state severity.State, d time.Duration) {
	r.ProbeState.Set(float64(state))
	r.ProbeDuration.Set(d.Seconds())
}

// WriteTextfile writes the registry in node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("write textfile %s: %w", path, err)
	}
	return nil
}

// Push sends the registry to a Pushgateway, replacing the job's metrics.
func (r *Recorder) Push(ctx context.Context, url, job, instance string) error {
	pusher := push.New(url, job).Gatherer(r.Registry)
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Instrument wraps src so every query is counted.
func (r *Recorder) Instrument(src inventory.Source) inventory.Source {
	return &instrumented{Source: src, rec: r}
}

type instrumented struct {
	inventory.Source
	rec *Recorder
}

func (s *instrumented) ListNodes(ctx context.Context) ([]string, error) {
	nodes, err := s.Source.ListNodes(ctx)
	s.count("nodes", err)
	return nodes, err
}

func (s *instrumented) LatestReports(ctx context.Context, node string) ([]inventory.Report, error) {
	reports, err := s.Source.LatestReports(ctx, node)
	s.count("reports", err)
	return reports, err
}

func (s *instrumented) count(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.rec.SourceQueries.WithLabelValues(s.Source.Name(), op, result).Inc()
}
