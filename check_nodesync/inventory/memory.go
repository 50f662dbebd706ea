package inventory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// MemorySource holds an inventory snapshot in memory.
// It implements the Source interface.
type MemorySource struct {
	mu      sync.RWMutex
	name    string
	nodes   []string
	reports map[string][]Report
}

// NewMemorySource initializes an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		name:    "memory",
		reports: make(map[string][]Report),
	}
}

// Put registers a node with its latest reports. Registering a node again
// replaces its reports but keeps its original position.
func (s *MemorySource) Put(node string, reports ...Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[node]; !ok {
		s.nodes = append(s.nodes, node)
	}
	s.reports[node] = append([]Report(nil), reports...)
}

func (s *MemorySource) Name() string { return s.name }

func (s *MemorySource) ListNodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return copy
	return append([]string(nil), s.nodes...), nil
}

func (s *MemorySource) LatestReports(ctx context.Context, node string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports, ok := s.reports[node]
	if !ok || len(reports) == 0 {
		return nil, nil
	}
	return append([]Report(nil), reports...), nil
}

func (s *MemorySource) Close() error { return nil }

// --- File snapshots ---

// Snapshot is the YAML layout of a static inventory file.
//
//	nodes:
//	  - name: web01
//	    reports:
//	      - status: unchanged
//	        timestamp: 2026-10-18T10:00:00Z
//	  - name: db01
type Snapshot struct {
	Nodes []SnapshotNode `yaml:"nodes"`
}

type SnapshotNode struct {
	Name    string   `yaml:"name"`
	Reports []Report `yaml:"reports"`
}

// LoadFile reads a YAML inventory snapshot into a MemorySource.
func LoadFile(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, connErr("file", "read", err)
	}
	return ParseSnapshot(path, data)
}

// ParseSnapshot decodes a YAML inventory snapshot. name is used in errors.
func ParseSnapshot(name string, data []byte) (*MemorySource, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, connErr("file", "decode", fmt.Errorf("%s: %w", name, err))
	}

	src := NewMemorySource()
	src.name = "file"
	seen := make(map[string]bool, len(snap.Nodes))
	for i, n := range snap.Nodes {
		if n.Name == "" {
			return nil, connErr("file", "decode", fmt.Errorf("%s: node #%d has no name", name, i+1))
		}
		if seen[n.Name] {
			return nil, connErr("file", "decode", fmt.Errorf("%s: node #%d: duplicate node %q", name, i+1, n.Name))
		}
		seen[n.Name] = true
		reports := make([]Report, 0, len(n.Reports))
		for _, r := range n.Reports {
			r.Timestamp = r.Timestamp.UTC()
			reports = append(reports, r)
		}
		src.Put(n.Name, reports...)
	}
	return src, nil
}

// parseTimestamp accepts the timestamp encodings produced by PuppetDB and by
// the database drivers the SQL sources use. A missing or blank value yields
// the zero time; rejecting a report without a timestamp is up to the caller.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case []byte:
		return parseTimestamp(string(t))
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, nil
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", t)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}
