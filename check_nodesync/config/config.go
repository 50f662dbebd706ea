package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fluxforge/nodesync/check_nodesync/classify"
	"github.com/fluxforge/nodesync/check_nodesync/severity"
	"gopkg.in/yaml.v3"
)

// Source names accepted by Config.Source.
const (
	SourcePuppetDB = "puppetdb"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceRedis    = "redis"
	SourceConsul   = "consul"
	SourceFile     = "file"
)

// Sources lists every supported inventory source.
var Sources = []string{SourcePuppetDB, SourcePostgres, SourceSQLite, SourceRedis, SourceConsul, SourceFile}

type Config struct {
	Source   string         `yaml:"source"`
	PuppetDB PuppetDBConfig `yaml:"puppetdb"`
	// DSN is the connection string for postgres, or the file path for the
	// sqlite and file sources.
	DSN    string       `yaml:"dsn"`
	Redis  RedisConfig  `yaml:"redis"`
	Consul ConsulConfig `yaml:"consul"`

	Timeout        Seconds       `yaml:"timeout"`
	MaxSyncMinutes int           `yaml:"sync_time"`
	Exclude        string        `yaml:"exclude"`
	Verbose        int           `yaml:"verbose"`
	QueryRate      float64       `yaml:"query_rate"`

	Thresholds ThresholdConfig `yaml:"thresholds"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// Seconds is a duration written either as a whole number of seconds
// ("timeout: 60") or as a Go duration ("timeout: 1m30s").
type Seconds time.Duration

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

func (s Seconds) String() string { return time.Duration(s).String() }

func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: timeout must be seconds or a duration", value.Line)
	}
	var d time.Duration
	if err := setSeconds(&d, value.Value); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = Seconds(d)
	return nil
}

type PuppetDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	CAFile   string `yaml:"ssl_ca"`
	CertFile string `yaml:"ssl_cert"`
	KeyFile  string `yaml:"ssl_key"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ConsulConfig struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Prefix  string `yaml:"prefix"`
}

// ThresholdConfig holds "metric=range" expressions and the states raised by
// the failed and no_sync host lists.
type ThresholdConfig struct {
	Warning  []string       `yaml:"warning"`
	Critical []string       `yaml:"critical"`
	Failed   severity.State `yaml:"failed"`
	NoSync   severity.State `yaml:"no_sync"`
}

type MetricsConfig struct {
	Textfile    string `yaml:"textfile"`
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

func Defaults() *Config {
	return &Config{
		Source: SourcePuppetDB,
		PuppetDB: PuppetDBConfig{
			Host: "localhost",
			Port: 8080,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Consul: ConsulConfig{
			Prefix: "nodesync/nodes/",
		},
		Timeout:        Seconds(60 * time.Second),
		MaxSyncMinutes: classify.DefaultMaxSyncMinutes,
		Thresholds: ThresholdConfig{
			Failed: severity.Critical,
			NoSync: severity.Warning,
		},
		Metrics: MetricsConfig{
			Job: "check_nodesync",
		},
	}
}

// Load builds a configuration from defaults, then the environment (after
// reading envFile), then the YAML file at path. A missing file is not an
// error. Empty paths are skipped.
func Load(path, envFile string) (*Config, error) {
	cfg := Defaults()
	if err := LoadEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Policy builds the severity policy described by the thresholds.
func (c *Config) Policy() (severity.Policy, error) {
	p := severity.DefaultPolicy()
	p.FailedState = c.Thresholds.Failed
	p.NoSyncState = c.Thresholds.NoSync
	for _, expr := range c.Thresholds.Warning {
		if err := p.SetThreshold(severity.Warning, expr); err != nil {
			return p, err
		}
	}
	for _, expr := range c.Thresholds.Critical {
		if err := p.SetThreshold(severity.Critical, expr); err != nil {
			return p, err
		}
	}
	return p, nil
}

// ClassifyOptions returns the thresholds of the classification pass.
func (c *Config) ClassifyOptions() (classify.Options, error) {
	re, err := classify.CompileExclude(c.Exclude)
	if err != nil {
		return classify.Options{}, err
	}
	return classify.Options{MaxSyncMinutes: c.MaxSyncMinutes, Exclude: re}, nil
}
