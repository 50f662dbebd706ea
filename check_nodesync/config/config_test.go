package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fluxforge/nodesync/check_nodesync/severity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, SourcePuppetDB, cfg.Source)
	assert.Equal(t, "localhost", cfg.PuppetDB.Host)
	assert.Equal(t, 8080, cfg.PuppetDB.Port)
	assert.Equal(t, 60*time.Second, cfg.Timeout.Duration())
	assert.Equal(t, 60, cfg.MaxSyncMinutes)
	assert.Equal(t, severity.Critical, cfg.Thresholds.Failed)
	assert.Equal(t, severity.Warning, cfg.Thresholds.NoSync)
	assert.NoError(t, Validate(cfg))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "nodesync.yaml", `
source: puppetdb
puppetdb:
  host: puppetdb.example.com
  port: 8081
  ssl_ca: /etc/puppetlabs/puppet/ssl/certs/ca.pem
timeout: 30s
sync_time: 90
exclude: "^test-"
thresholds:
  warning: ["nodes_failed=0"]
  critical: ["nodes_total=1:"]
  no_sync: critical
metrics:
  textfile: /var/lib/node_exporter/nodesync.prom
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "puppetdb.example.com", cfg.PuppetDB.Host)
	assert.Equal(t, 8081, cfg.PuppetDB.Port)
	assert.Equal(t, "/etc/puppetlabs/puppet/ssl/certs/ca.pem", cfg.PuppetDB.CAFile)
	assert.Equal(t, 30*time.Second, cfg.Timeout.Duration())
	assert.Equal(t, 90, cfg.MaxSyncMinutes)
	assert.Equal(t, severity.Critical, cfg.Thresholds.NoSync)
	assert.Equal(t, severity.Critical, cfg.Thresholds.Failed, "unset keys keep their defaults")
	assert.Equal(t, "/var/lib/node_exporter/nodesync.prom", cfg.Metrics.Textfile)
	require.NoError(t, Validate(cfg))

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, "0", p.Warning["nodes_failed"].String())
	assert.Equal(t, "1:", p.Critical["nodes_total"].String())
	assert.Equal(t, severity.Critical, p.NoSyncState)
}

func TestLoadTimeoutForms(t *testing.T) {
	tests := map[string]time.Duration{
		"timeout: 60\n":     60 * time.Second,
		"timeout: \"45\"\n": 45 * time.Second,
		"timeout: 1m30s\n":  90 * time.Second,
		"timeout: 500ms\n":  500 * time.Millisecond,
	}

	for content, want := range tests {
		t.Run(content, func(t *testing.T) {
			cfg := Defaults()
			require.NoError(t, LoadFile(cfg, writeFile(t, "nodesync.yaml", content)))
			assert.Equal(t, want, cfg.Timeout.Duration())
		})
	}

	err := LoadFile(Defaults(), writeFile(t, "nodesync.yaml", "timeout: soon\n"))
	assert.ErrorContains(t, err, "parse config")
	err = LoadFile(Defaults(), writeFile(t, "nodesync.yaml", "timeout: [60]\n"))
	assert.ErrorContains(t, err, "timeout must be seconds or a duration")
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "sync_time: [1, 2\n")
	_, err := Load(path, "")
	assert.ErrorContains(t, err, "parse config")

	path = writeFile(t, "badstate.yaml", "thresholds:\n  failed: fatal\n")
	_, err = Load(path, "")
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("NODESYNC_SOURCE", "redis")
	t.Setenv("NODESYNC_REDIS_ADDR", "cache:6379")
	t.Setenv("NODESYNC_REDIS_DB", "2")
	t.Setenv("NODESYNC_TIMEOUT", "15")
	t.Setenv("NODESYNC_QUERY_RATE", "2.5")

	cfg := Defaults()
	require.NoError(t, LoadEnv(cfg, ""))

	assert.Equal(t, SourceRedis, cfg.Source)
	assert.Equal(t, "cache:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 15*time.Second, cfg.Timeout.Duration())
	assert.Equal(t, 2.5, cfg.QueryRate)
}

func TestLoadEnvDurationAndErrors(t *testing.T) {
	t.Setenv("NODESYNC_TIMEOUT", "1m30s")
	cfg := Defaults()
	require.NoError(t, LoadEnv(cfg, ""))
	assert.Equal(t, 90*time.Second, cfg.Timeout.Duration())

	t.Setenv("NODESYNC_PORT", "eighty")
	err := LoadEnv(Defaults(), "")
	assert.ErrorContains(t, err, "NODESYNC_PORT")
}

func TestLoadEnvFile(t *testing.T) {
	os.Unsetenv("NODESYNC_SYNC_TIME")
	t.Cleanup(func() { os.Unsetenv("NODESYNC_SYNC_TIME") })
	t.Setenv("NODESYNC_DB", "from-environment")

	envFile := writeFile(t, ".env", "NODESYNC_SYNC_TIME=15\nNODESYNC_DB=from-file\n")
	cfg := Defaults()
	require.NoError(t, LoadEnv(cfg, envFile))

	assert.Equal(t, 15, cfg.MaxSyncMinutes)
	assert.Equal(t, "from-environment", cfg.PuppetDB.Host)

	assert.NoError(t, LoadEnv(Defaults(), filepath.Join(t.TempDir(), "missing.env")))
}

func TestFileOverridesEnvironment(t *testing.T) {
	t.Setenv("NODESYNC_SYNC_TIME", "15")
	t.Setenv("NODESYNC_EXCLUDE", "lab-")
	path := writeFile(t, "nodesync.yaml", "sync_time: 45\n")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.MaxSyncMinutes)
	assert.Equal(t, "lab-", cfg.Exclude)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown source", func(c *Config) { c.Source = "ldap" }, "source"},
		{"empty host", func(c *Config) { c.PuppetDB.Host = "" }, "db"},
		{"bad port", func(c *Config) { c.PuppetDB.Port = 0 }, "port"},
		{"cert without key", func(c *Config) { c.PuppetDB.CertFile = "cert.pem" }, "ssl-cert"},
		{"postgres without dsn", func(c *Config) { c.Source = SourcePostgres }, "dsn"},
		{"file without dsn", func(c *Config) { c.Source = SourceFile }, "dsn"},
		{"negative redis db", func(c *Config) { c.Source = SourceRedis; c.Redis.DB = -1 }, "redis-db"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"zero sync time", func(c *Config) { c.MaxSyncMinutes = 0 }, "sync-time"},
		{"negative sync time", func(c *Config) { c.MaxSyncMinutes = -5 }, "sync-time"},
		{"negative rate", func(c *Config) { c.QueryRate = -1 }, "query-rate"},
		{"bad exclude", func(c *Config) { c.Exclude = "web(" }, "exclude"},
		{"bad threshold", func(c *Config) { c.Thresholds.Warning = []string{"nodes_total"} }, "thresholds"},
		{"push without job", func(c *Config) { c.Metrics.Pushgateway = "http://gw:9091"; c.Metrics.Job = "" }, "metrics job"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			before := *cfg

			err := Validate(cfg)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, before, *cfg, "validation must not mutate the config")
		})
	}
}

func TestClassifyOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Exclude = "web"
	cfg.MaxSyncMinutes = 30

	opts, err := cfg.ClassifyOptions()
	require.NoError(t, err)
	assert.Equal(t, 30, opts.MaxSyncMinutes)
	assert.True(t, opts.Exclude.MatchString("web01"))
	assert.False(t, opts.Exclude.MatchString("myweb01"))
}
