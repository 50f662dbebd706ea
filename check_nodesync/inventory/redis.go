package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis reads an inventory cache kept in Redis: the set NodesKey() lists the
// nodes, the hash ReportKey(node) holds status and timestamp of the latest
// report.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and pings the server, bounded by ctx.
func NewRedis(ctx context.Context, addr string, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, connErr("redis", "ping", err)
	}

	return &Redis{client: client}, nil
}

func (s *Redis) Name() string { return "redis" }

// ListNodes returns the members of the node set sorted by name; Redis sets
// carry no order of their own.
func (s *Redis) ListNodes(ctx context.Context) ([]string, error) {
	nodes, err := s.client.SMembers(ctx, NodesKey()).Result()
	if err != nil {
		return nil, connErr(s.Name(), "list nodes", err)
	}
	sort.Strings(nodes)
	return nodes, nil
}

func (s *Redis) LatestReports(ctx context.Context, node string) ([]Report, error) {
	fields, err := s.client.HGetAll(ctx, ReportKey(node)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, connErr(s.Name(), "query reports", err)
	}
	report, err := decodeReportHash(fields)
	if err != nil {
		return nil, connErr(s.Name(), "query reports", fmt.Errorf("node %s: %w", node, err))
	}
	if report == nil {
		return nil, nil
	}
	return []Report{*report}, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}

// decodeReportHash turns the fields of a report hash into a Report.
// An empty hash means the node never reported. A hash without a timestamp
// field yields a zero Timestamp.
func decodeReportHash(fields map[string]string) (*Report, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	ts, err := parseTimestamp(fields["timestamp"])
	if err != nil {
		return nil, err
	}
	return &Report{Status: fields["status"], Timestamp: ts}, nil
}
