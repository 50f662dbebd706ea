package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "nodesync:nodes", NodesKey())
	assert.Equal(t, "nodesync:node:web01.example:report", ReportKey("web01.example"))
	assert.Equal(t, "nodesync/nodes/", DefaultConsulPrefix)
}

func TestDecodeReportHash(t *testing.T) {
	r, err := decodeReportHash(nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = decodeReportHash(map[string]string{
		"status":    "unchanged",
		"timestamp": "2026-10-18T10:00:00Z",
	})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "unchanged", r.Status)
	assert.True(t, r.Timestamp.Equal(time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)))

	r, err = decodeReportHash(map[string]string{"status": "failed"})
	require.NoError(t, err, "a missing timestamp is left for the classifier to reject")
	require.NotNil(t, r)
	assert.Equal(t, "failed", r.Status)
	assert.True(t, r.Timestamp.IsZero())

	r, err = decodeReportHash(map[string]string{"status": "changed", "timestamp": ""})
	require.NoError(t, err)
	assert.True(t, r.Timestamp.IsZero())

	_, err = decodeReportHash(map[string]string{"status": "failed", "timestamp": "later"})
	assert.Error(t, err)
}

func TestNewRedisHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := NewRedis(ctx, "127.0.0.1:1", "", 0)
	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "ping", connErr.Op)
	assert.Less(t, time.Since(start), 2*time.Second)
}
