package inventory

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite reads an exported copy of PuppetDB's certnames, reports and
// report_statuses tables.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the snapshot at path and checks the schema is readable.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, connErr("sqlite", "open", fmt.Errorf("open sqlite: %w", err))
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, connErr("sqlite", "ping", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) ListNodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listNodesSQL)
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

func (s *SQLite) LatestReports(ctx context.Context, node string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, latestReportSQL, node)
	if err != nil {
		return nil, connErr(s.Name(), "query reports", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var (
			status string
			raw    any
		)
		if err := rows.Scan(&status, &raw); err != nil {
			return nil, connErr(s.Name(), "query reports", err)
		}
		// Timestamps come back as TEXT or time.Time depending on the
		// declared column type of the export.
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, connErr(s.Name(), "query reports", fmt.Errorf("node %s: %w", node, err))
		}
		reports = append(reports, Report{Status: status, Timestamp: ts})
	}
	return reports, connErr(s.Name(), "query reports", rows.Err())
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
