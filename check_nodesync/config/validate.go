package config

import (
	"fmt"
	"slices"
)

// ValidationError names the offending setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if !slices.Contains(Sources, cfg.Source) {
		return invalid("source", "%q is not one of %v", cfg.Source, Sources)
	}

	switch cfg.Source {
	case SourcePuppetDB:
		if cfg.PuppetDB.Host == "" {
			return invalid("db", "host must not be empty")
		}
		if cfg.PuppetDB.Port < 1 || cfg.PuppetDB.Port > 65535 {
			return invalid("port", "%d is out of range", cfg.PuppetDB.Port)
		}
		if (cfg.PuppetDB.CertFile == "") != (cfg.PuppetDB.KeyFile == "") {
			return invalid("ssl-cert", "client certificate and key must be set together")
		}
	case SourcePostgres, SourceSQLite, SourceFile:
		if cfg.DSN == "" {
			return invalid("dsn", "required for source %q", cfg.Source)
		}
	case SourceRedis:
		if cfg.Redis.Address == "" {
			return invalid("redis address", "must not be empty")
		}
		if cfg.Redis.DB < 0 {
			return invalid("redis-db", "%d is negative", cfg.Redis.DB)
		}
	}

	if cfg.Timeout <= 0 {
		return invalid("timeout", "%s must be positive", cfg.Timeout)
	}
	if cfg.MaxSyncMinutes <= 0 {
		return invalid("sync-time", "%d must be a positive number of minutes", cfg.MaxSyncMinutes)
	}
	if cfg.QueryRate < 0 {
		return invalid("query-rate", "%g must not be negative", cfg.QueryRate)
	}
	if cfg.Verbose < 0 {
		return invalid("verbose", "%d must not be negative", cfg.Verbose)
	}
	if _, err := cfg.ClassifyOptions(); err != nil {
		return invalid("exclude", "%v", err)
	}
	if _, err := cfg.Policy(); err != nil {
		return invalid("thresholds", "%v", err)
	}
	if cfg.Metrics.Pushgateway != "" && cfg.Metrics.Job == "" {
		return invalid("metrics job", "required when pushing metrics")
	}
	return nil
}
