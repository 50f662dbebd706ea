package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "NODESYNC_"

type envSetter func(cfg *Config, v string) error

var envVars = map[string]envSetter{
	"SOURCE":         func(c *Config, v string) error { c.Source = v; return nil },
	"DB":             func(c *Config, v string) error { c.PuppetDB.Host = v; return nil },
	"PORT":           func(c *Config, v string) error { return setInt(&c.PuppetDB.Port, v) },
	"SSL_CA":         func(c *Config, v string) error { c.PuppetDB.CAFile = v; return nil },
	"SSL_CERT":       func(c *Config, v string) error { c.PuppetDB.CertFile = v; return nil },
	"SSL_KEY":        func(c *Config, v string) error { c.PuppetDB.KeyFile = v; return nil },
	"DSN":            func(c *Config, v string) error { c.DSN = v; return nil },
	"REDIS_ADDR":     func(c *Config, v string) error { c.Redis.Address = v; return nil },
	"REDIS_PASSWORD": func(c *Config, v string) error { c.Redis.Password = v; return nil },
	"REDIS_DB":       func(c *Config, v string) error { return setInt(&c.Redis.DB, v) },
	"CONSUL_ADDR":    func(c *Config, v string) error { c.Consul.Address = v; return nil },
	"CONSUL_TOKEN":   func(c *Config, v string) error { c.Consul.Token = v; return nil },
	"CONSUL_PREFIX":  func(c *Config, v string) error { c.Consul.Prefix = v; return nil },
	"TIMEOUT": func(c *Config, v string) error {
		var d time.Duration
		if err := setSeconds(&d, v); err != nil {
			return err
		}
		c.Timeout = Seconds(d)
		return nil
	},
	"SYNC_TIME":      func(c *Config, v string) error { return setInt(&c.MaxSyncMinutes, v) },
	"EXCLUDE":        func(c *Config, v string) error { c.Exclude = v; return nil },
	"QUERY_RATE": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.QueryRate = f
		return nil
	},
	"TEXTFILE":    func(c *Config, v string) error { c.Metrics.Textfile = v; return nil },
	"PUSHGATEWAY": func(c *Config, v string) error { c.Metrics.Pushgateway = v; return nil },
}

// LoadEnv reads envFile into the process environment when it exists, then
// applies every NODESYNC_* variable to cfg. Variables already set in the
// environment win over the file.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
		}
	}

	for name, set := range envVars {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// setSeconds accepts a plain number of seconds or a Go duration.
func setSeconds(dst *time.Duration, v string) error {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
