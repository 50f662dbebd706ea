package inventory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reads nodes and reports straight from PuppetDB's PostgreSQL
// database.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres initializes a small connection pool and verifies it.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	// One query at a time; a second connection covers a stale one.
	config.MaxConns = 2
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, connErr("postgres", "connect", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, connErr("postgres", "ping", err)
	}

	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Name() string { return "postgres" }

func (s *Postgres) ListNodes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, listNodesSQL)
	if err != nil {
		return nil, connErr(s.Name(), "list nodes", err)
	}
	defer rows.Close()

	var nodes []string
	for rows.Next() {
		var certname string
		if err := rows.Scan(&certname); err != nil {
			return nil, connErr(s.Name(), "list nodes", err)
		}
		nodes = append(nodes, certname)
	}
	return nodes, connErr(s.Name(), "list nodes", rows.Err())
}

func (s *Postgres) LatestReports(ctx context.Context, node string) ([]Report, error) {
	rows, err := s.pool.Query(ctx, Rebind(latestReportSQL), node)
	if err != nil {
		return nil, connErr(s.Name(), "query reports", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var (
			status string
			ts     *time.Time
		)
		if err := rows.Scan(&status, &ts); err != nil {
			return nil, connErr(s.Name(), "query reports", err)
		}
		reports = append(reports, reportFromRow(status, ts))
	}
	return reports, connErr(s.Name(), "query reports", rows.Err())
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// reportFromRow builds a Report from a reports row. A NULL timestamp is kept
// as the zero time.
func reportFromRow(status string, ts *time.Time) Report {
	r := Report{Status: status}
	if ts != nil {
		r.Timestamp = ts.UTC()
	}
	return r
}
