package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	consulapi "github.com/hashicorp/consul/api"
)

// Consul reads an inventory kept in the Consul KV store: one key per node
// under prefix, the value being the latest report as JSON. A key with an
// empty value is a node that never reported.
type Consul struct {
	kv     *consulapi.KV
	prefix string
}

type consulReport struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func NewConsul(addr, token, prefix string) (*Consul, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	if token != "" {
		cfg.Token = token
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, connErr("consul", "connect", err)
	}
	if prefix == "" {
		prefix = DefaultConsulPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Consul{kv: cli.KV(), prefix: prefix}, nil
}

func (s *Consul) Name() string { return "consul" }

func (s *Consul) ListNodes(ctx context.Context) ([]string, error) {
	q := (&consulapi.QueryOptions{}).WithContext(ctx)
	keys, _, err := s.kv.Keys(s.prefix, "/", q)
	if err != nil {
		return nil, connErr(s.Name(), "list nodes", err)
	}

	var nodes []string
	for _, k := range keys {
		name := strings.TrimPrefix(k, s.prefix)
		// Skip the folder itself and nested folders
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		nodes = append(nodes, name)
	}
	return nodes, nil
}

func (s *Consul) LatestReports(ctx context.Context, node string) ([]Report, error) {
	q := (&consulapi.QueryOptions{}).WithContext(ctx)
	pair, _, err := s.kv.Get(s.prefix+node, q)
	if err != nil {
		return nil, connErr(s.Name(), "query reports", err)
	}
	if pair == nil || len(pair.Value) == 0 {
		return nil, nil
	}

	var cr consulReport
	if err := json.Unmarshal(pair.Value, &cr); err != nil {
		return nil, connErr(s.Name(), "query reports", fmt.Errorf("node %s: %w", node, err))
	}
	ts, err := parseTimestamp(cr.Timestamp)
	if err != nil {
		return nil, connErr(s.Name(), "query reports", fmt.Errorf("node %s: %w", node, err))
	}
	return []Report{{Status: cr.Status, Timestamp: ts}}, nil
}

func (s *Consul) Close() error { return nil }
