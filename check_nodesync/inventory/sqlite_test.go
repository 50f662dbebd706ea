package inventory

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE report_statuses (id INTEGER PRIMARY KEY, status TEXT NOT NULL);
CREATE TABLE certnames (
	id INTEGER PRIMARY KEY,
	certname TEXT NOT NULL UNIQUE,
	latest_report_id INTEGER,
	deactivated TEXT,
	expired TEXT
);
CREATE TABLE reports (
	id INTEGER PRIMARY KEY,
	certname TEXT NOT NULL,
	producer_timestamp TEXT NOT NULL,
	status_id INTEGER
);
INSERT INTO report_statuses (id, status) VALUES (1, 'unchanged'), (2, 'changed'), (3, 'failed');
INSERT INTO reports (id, certname, producer_timestamp, status_id) VALUES
	(10, 'web01', '2026-10-18T09:00:00Z', 1),
	(11, 'web01', '2026-10-18T10:00:00Z', 3),
	(12, 'db01', '2026-10-18 08:30:00', NULL),
	(13, 'blank01', '', 2);
INSERT INTO certnames (id, certname, latest_report_id, deactivated, expired) VALUES
	(1, 'web01', 11, NULL, NULL),
	(2, 'db01', 12, NULL, NULL),
	(3, 'new01', NULL, NULL, NULL),
	(4, 'old01', 10, '2026-01-01T00:00:00Z', NULL),
	(5, 'gone01', 10, NULL, '2026-01-01T00:00:00Z'),
	(6, 'blank01', 13, NULL, NULL);
`

// testSQLite creates a temporary PuppetDB export for testing.
func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "puppetdb.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := NewSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestSQLiteListNodesSkipsInactive(t *testing.T) {
	src := testSQLite(t)

	nodes, err := src.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"blank01", "db01", "new01", "web01"}, nodes)
}

func TestSQLiteLatestReports(t *testing.T) {
	src := testSQLite(t)
	ctx := context.Background()

	reports, err := src.LatestReports(ctx, "web01")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "failed", reports[0].Status)
	assert.True(t, reports[0].Timestamp.Equal(time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)))

	reports, err = src.LatestReports(ctx, "db01")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "", reports[0].Status, "missing status row maps to an empty status")

	reports, err = src.LatestReports(ctx, "blank01")
	require.NoError(t, err, "a blank timestamp is reported, not treated as a read failure")
	require.Len(t, reports, 1)
	assert.Equal(t, "changed", reports[0].Status)
	assert.True(t, reports[0].Timestamp.IsZero())

	reports, err = src.LatestReports(ctx, "new01")
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSQLiteClosedDatabase(t *testing.T) {
	src := testSQLite(t)
	require.NoError(t, src.Close())

	_, err := src.ListNodes(context.Background())
	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "sqlite", connErr.Source)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Contains(t, Rebind(latestReportSQL), "c.certname = $1")
}
