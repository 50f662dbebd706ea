package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fluxforge/nodesync/check_nodesync/config"
	"github.com/fluxforge/nodesync/check_nodesync/inventory"
	"github.com/fluxforge/nodesync/check_nodesync/observability"
	"github.com/fluxforge/nodesync/check_nodesync/probe"
	"github.com/fluxforge/nodesync/check_nodesync/report"
	"github.com/fluxforge/nodesync/check_nodesync/severity"
	"github.com/spf13/cobra"
)

type cliFlags struct {
	configFile string
	envFile    string

	source   string
	host     string
	port     int
	timeout  int
	verbose  int
	exclude  string
	syncTime int

	sslCA   string
	sslCert string
	sslKey  string

	dsn           string
	redisAddr     string
	redisPassword string
	redisDB       int
	consulAddr    string
	consulToken   string
	queryRate     float64

	textfile    string
	pushgateway string

	warning  []string
	critical []string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the check and returns the plugin exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	exitCode := severity.Unknown.ExitCode()
	cmd := newRootCommand(stdout, stderr, &exitCode)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return renderFailure(stdout, newLogger(stderr, 0), err)
	}
	return exitCode
}

// renderFailure prints the UNKNOWN line for err and returns its exit code.
func renderFailure(stdout io.Writer, logger *slog.Logger, err error) int {
	if werr := report.RenderError(stdout, err); werr != nil {
		logger.Error("[OUTPUT] failed to write result", "error", werr, "cause", err)
	}
	return severity.Unknown.ExitCode()
}

// sourceError labels a failure to open the inventory source. Running out of
// time while connecting is reported like any other timeout.
func sourceError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &probe.TimeoutError{After: timeout}
	}
	var ce *inventory.ConnectivityError
	if errors.As(err, &ce) {
		return fmt.Errorf("connectivity: %w", err)
	}
	return err
}

func newRootCommand(stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	f := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "check_nodesync",
		Short: "Check that configuration-managed nodes report in time",
		Long: `check_nodesync queries PuppetDB (or a compatible inventory) for every
node's latest report and raises CRITICAL for failed runs and WARNING for
nodes that have not reported within the sync time.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			*exitCode = execute(cmd.Context(), cfg, stdout, stderr)
			return nil
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("usage: %w", err)
	})

	flags := cmd.Flags()
	flags.StringVar(&f.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&f.envFile, "env-file", ".env", "file of NODESYNC_* variables loaded into the environment")
	flags.StringVar(&f.source, "source", config.SourcePuppetDB, "inventory source: puppetdb, postgres, sqlite, redis, consul or file")
	flags.StringVarP(&f.host, "db", "d", "localhost", "PuppetDB host")
	flags.IntVarP(&f.port, "port", "p", 8080, "PuppetDB port")
	flags.IntVarP(&f.timeout, "timeout", "t", 60, "abort the check after this many seconds")
	flags.CountVarP(&f.verbose, "verbose", "v", "increase output verbosity (use up to 3 times)")
	flags.StringVarP(&f.exclude, "exclude", "e", "", "regex of node names to ignore, matched at the start of the name")
	flags.IntVarP(&f.syncTime, "sync-time", "s", 60, "minutes after which a node without a new report is out of sync")
	flags.StringVar(&f.sslCA, "ssl-ca", "", "CA certificate used to verify PuppetDB")
	flags.StringVar(&f.sslCert, "ssl-cert", "", "client certificate for PuppetDB")
	flags.StringVar(&f.sslKey, "ssl-key", "", "client key for PuppetDB")
	flags.StringVar(&f.dsn, "dsn", "", "postgres connection string, or the path of a sqlite or YAML snapshot")
	flags.StringVar(&f.redisAddr, "redis-addr", "localhost:6379", "redis address")
	flags.StringVar(&f.redisPassword, "redis-password", "", "redis password")
	flags.IntVar(&f.redisDB, "redis-db", 0, "redis database")
	flags.StringVar(&f.consulAddr, "consul-addr", "", "consul address (defaults to CONSUL_HTTP_ADDR)")
	flags.StringVar(&f.consulToken, "consul-token", "", "consul ACL token")
	flags.Float64Var(&f.queryRate, "query-rate", 0, "maximum inventory queries per second (0 = unlimited)")
	flags.StringVar(&f.textfile, "textfile", "", "write Prometheus metrics to this node_exporter textfile")
	flags.StringVar(&f.pushgateway, "pushgateway", "", "push Prometheus metrics to this Pushgateway URL")
	flags.StringArrayVar(&f.warning, "warning", nil, "warning range for a metric, as metric=range (repeatable)")
	flags.StringArrayVar(&f.critical, "critical", nil, "critical range for a metric, as metric=range (repeatable)")

	return cmd
}

// loadConfig resolves defaults, environment, config file and flags, in
// increasing order of precedence, and validates the result.
func loadConfig(cmd *cobra.Command, f *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile, f.envFile)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	set := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}
	set("source", func() { cfg.Source = f.source })
	set("db", func() { cfg.PuppetDB.Host = f.host })
	set("port", func() { cfg.PuppetDB.Port = f.port })
	set("timeout", func() { cfg.Timeout = config.Seconds(time.Duration(f.timeout) * time.Second) })
	set("verbose", func() { cfg.Verbose = f.verbose })
	set("exclude", func() { cfg.Exclude = f.exclude })
	set("sync-time", func() { cfg.MaxSyncMinutes = f.syncTime })
	set("ssl-ca", func() { cfg.PuppetDB.CAFile = f.sslCA })
	set("ssl-cert", func() { cfg.PuppetDB.CertFile = f.sslCert })
	set("ssl-key", func() { cfg.PuppetDB.KeyFile = f.sslKey })
	set("dsn", func() { cfg.DSN = f.dsn })
	set("redis-addr", func() { cfg.Redis.Address = f.redisAddr })
	set("redis-password", func() { cfg.Redis.Password = f.redisPassword })
	set("redis-db", func() { cfg.Redis.DB = f.redisDB })
	set("consul-addr", func() { cfg.Consul.Address = f.consulAddr })
	set("consul-token", func() { cfg.Consul.Token = f.consulToken })
	set("query-rate", func() { cfg.QueryRate = f.queryRate })
	set("textfile", func() { cfg.Metrics.Textfile = f.textfile })
	set("pushgateway", func() { cfg.Metrics.Pushgateway = f.pushgateway })
	cfg.Thresholds.Warning = append(cfg.Thresholds.Warning, f.warning...)
	cfg.Thresholds.Critical = append(cfg.Thresholds.Critical, f.critical...)

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose int) *slog.Logger {
	level := slog.LevelWarn
	if verbose >= report.VerboseDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// execute opens the source, runs the probe, prints the result and exports
// metrics. It returns the plugin exit code.
func execute(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) int {
	logger := newLogger(stderr, cfg.Verbose)

	policy, err := cfg.Policy()
	if err != nil {
		return renderFailure(stdout, logger, err)
	}
	copts, err := cfg.ClassifyOptions()
	if err != nil {
		return renderFailure(stdout, logger, err)
	}

	// The deadline covers connecting as well as the run itself.
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout.Duration())
	defer cancel()

	src, err := openSource(ctx, cfg)
	if err != nil {
		return renderFailure(stdout, logger, sourceError(ctx, err, cfg.Timeout.Duration()))
	}
	defer src.Close()

	var rec *observability.Recorder
	if cfg.Metrics.Textfile != "" || cfg.Metrics.Pushgateway != "" {
		rec = observability.NewRecorder()
	}

	out := probe.Run(ctx, probe.Deps{
		Source:   src,
		Recorder: rec,
		Logger:   logger,
	}, probe.Options{
		Classify: copts,
		Policy:   policy,
		Timeout:  cfg.Timeout.Duration(),
	})

	if out.Err != nil {
		renderFailure(stdout, logger, out.Err)
	} else if err := report.Render(stdout, *out.Summary, out.Result, cfg.Verbose); err != nil {
		logger.Error("[OUTPUT] failed to write result", "error", err)
	}

	if rec != nil {
		exportMetrics(cfg, rec, logger)
	}
	return out.State.ExitCode()
}

// exportMetrics never changes the check result; failures are logged.
func exportMetrics(cfg *config.Config, rec *observability.Recorder, logger *slog.Logger) {
	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("[METRICS] textfile export failed", "error", err)
		}
	}
	if cfg.Metrics.Pushgateway != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		instance, _ := os.Hostname()
		if err := rec.Push(ctx, cfg.Metrics.Pushgateway, cfg.Metrics.Job, instance); err != nil {
			logger.Warn("[METRICS] push failed", "error", err)
		}
	}
}
