// Package main provides the cypherfuzz CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orneryd/cypherfuzz/pkg/bolt"
	"github.com/orneryd/cypherfuzz/pkg/config"
	"github.com/orneryd/cypherfuzz/pkg/fuzz"
	"github.com/orneryd/cypherfuzz/pkg/generator"
	"github.com/orneryd/cypherfuzz/pkg/redisgraph"
	"github.com/orneryd/cypherfuzz/pkg/schema"
	"github.com/orneryd/cypherfuzz/pkg/stats"
	"github.com/orneryd/cypherfuzz/pkg/store"
)

var (
	version   = "1.0.0"
	commit    = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cypherfuzz",
		Short: "cypherfuzz - schema-aware Cypher query fuzzer",
		Long: `cypherfuzz generates random, schema-valid openCypher queries and
sends them to a graph database over Bolt or RedisGraph.

Queries the target rejects are kept as findings so they can be replayed.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cypherfuzz v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	// Run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fuzz a target database",
		RunE:  runFuzz,
	}
	runCmd.Flags().String("config", getEnvStr("CYPHERFUZZ_CONFIG", ""), "Config file (default: search standard locations)")
	runCmd.Flags().String("schema", getEnvStr("CYPHERFUZZ_SCHEMA", ""), "Graph schema file (JSON or YAML)")
	runCmd.Flags().String("target", getEnvStr("CYPHERFUZZ_TARGET", "bolt"), "Target driver: bolt, redisgraph or dryrun")
	runCmd.Flags().String("address", getEnvStr("CYPHERFUZZ_ADDRESS", "localhost:7687"), "Target address (host:port)")
	runCmd.Flags().String("username", getEnvStr("CYPHERFUZZ_USERNAME", ""), "Username for the target")
	runCmd.Flags().String("password", getEnvStr("CYPHERFUZZ_PASSWORD", ""), "Password for the target")
	runCmd.Flags().String("database", getEnvStr("CYPHERFUZZ_DATABASE", ""), "Bolt database name")
	runCmd.Flags().String("graph", getEnvStr("CYPHERFUZZ_GRAPH", "fuzz"), "RedisGraph graph key")
	runCmd.Flags().Int("queries", getEnvInt("CYPHERFUZZ_QUERIES", 1000), "Number of queries to generate (0 = unlimited)")
	runCmd.Flags().Duration("duration", 0, "Stop after this long (0 = no limit)")
	runCmd.Flags().Int("workers", getEnvInt("CYPHERFUZZ_WORKERS", 4), "Concurrent workers")
	runCmd.Flags().Float64("rate", 0, "Maximum queries per second across all workers (0 = unlimited)")
	runCmd.Flags().Int64("seed", 0, "Base random seed (0 = time-seeded)")
	runCmd.Flags().Int("complexity", getEnvInt("CYPHERFUZZ_COMPLEXITY_LIMIT", 24), "Complexity budget per query")
	runCmd.Flags().String("findings", getEnvStr("CYPHERFUZZ_FINDINGS", "none"), "Findings store: badger, sqlite or none")
	runCmd.Flags().String("findings-path", getEnvStr("CYPHERFUZZ_FINDINGS_PATH", "./findings"), "Findings store location")
	runCmd.Flags().String("stats-csv", getEnvStr("CYPHERFUZZ_STATS_CSV", ""), "Write per-query statistics to this CSV file")
	runCmd.Flags().String("metrics-address", getEnvStr("CYPHERFUZZ_METRICS_ADDRESS", ""), "Serve Prometheus metrics on this address")
	runCmd.Flags().Bool("dedup", getEnvBool("CYPHERFUZZ_DEDUP", true), "Skip queries that were sent recently")
	runCmd.Flags().String("log-level", getEnvStr("CYPHERFUZZ_LOG_LEVEL", "info"), "Log level")
	runCmd.Flags().Bool("json-logs", getEnvBool("CYPHERFUZZ_JSON_LOGS", false), "Log as JSON")
	rootCmd.AddCommand(runCmd)

	// Generate command
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Print generated queries without executing them",
		RunE:  runGenerate,
	}
	generateCmd.Flags().String("schema", getEnvStr("CYPHERFUZZ_SCHEMA", ""), "Graph schema file (JSON or YAML)")
	generateCmd.Flags().Int("count", 10, "Number of queries to print")
	generateCmd.Flags().Int64("seed", 0, "Random seed (0 = time-seeded)")
	generateCmd.Flags().Int("complexity", getEnvInt("CYPHERFUZZ_COMPLEXITY_LIMIT", 24), "Complexity budget per query")
	generateCmd.Flags().Int("expression-complexity", getEnvInt("CYPHERFUZZ_EXPRESSION_COMPLEXITY", 4), "Operator chain limit per expression")
	generateCmd.Flags().Int("retry", getEnvInt("CYPHERFUZZ_RETRY_LIMIT", 16), "Attempts per query before giving up")
	generateCmd.Flags().String("shape", "", "Write node count and depth per query as CSV to this file")
	rootCmd.AddCommand(generateCmd)

	// Schema commands
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Graph schema operations",
	}
	schemaCmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Check that a schema file is usable",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchemaValidate,
	})
	rootCmd.AddCommand(schemaCmd)

	return rootCmd
}

func runFuzz(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if configPath != "" {
		log.WithField("path", configPath).Debug("loaded config")
	}
	log.WithField("config", cfg.String()).Info("starting cypherfuzz")

	catalog, err := loadCatalog(cfg.Schema.Path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := stats.Multi{}
	if cfg.Output.StatsCSV != "" {
		csvw, err := stats.CreateCSV(cfg.Output.StatsCSV)
		if err != nil {
			return err
		}
		defer func() {
			if err := csvw.Close(); err != nil {
				log.WithError(err).Warn("failed to write statistics")
			}
		}()
		sinks = append(sinks, csvw)
	}
	if cfg.Output.MetricsAddress != "" {
		m := stats.NewMetrics()
		go func() {
			if err := m.Serve(ctx, cfg.Output.MetricsAddress, log); err != nil {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
		sinks = append(sinks, m)
	}

	findings, err := store.Open(cfg.Output.Findings, cfg.Output.FindingsPath)
	if err != nil {
		return err
	}
	defer findings.Close()

	runner := &fuzz.Runner{
		Config: fuzz.Config{
			Queries:    cfg.Run.Queries,
			Duration:   cfg.Run.Duration,
			Workers:    cfg.Run.Workers,
			Rate:       cfg.Run.Rate,
			DedupCache: cfg.Run.DedupCache,
			Seed:       cfg.Generator.Seed,
			Generator: generator.Options{
				ComplexityLimit:      cfg.Generator.ComplexityLimit,
				ExpressionComplexity: cfg.Generator.ExpressionComplexity,
				ScopeCost:            cfg.Generator.ScopeCost,
				RetryLimit:           cfg.Generator.RetryLimit,
			},
		},
		Catalog:  catalog,
		Dial:     dialer(cfg.Target, log),
		Stats:    sinks,
		Findings: findings,
		Log:      log,
	}
	sum, runErr := runner.Run(ctx)

	total, err := findings.Count(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to count findings")
	}
	printSummary(cmd.OutOrStdout(), sum, total, cfg.Output)
	return runErr
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}

	str("schema", &cfg.Schema.Path)
	str("target", &cfg.Target.Driver)
	str("address", &cfg.Target.Address)
	str("username", &cfg.Target.Username)
	str("password", &cfg.Target.Password)
	str("database", &cfg.Target.Database)
	str("graph", &cfg.Target.Graph)
	str("findings", &cfg.Output.Findings)
	str("findings-path", &cfg.Output.FindingsPath)
	str("stats-csv", &cfg.Output.StatsCSV)
	str("metrics-address", &cfg.Output.MetricsAddress)
	str("log-level", &cfg.Logging.Level)
	num("queries", &cfg.Run.Queries)
	num("workers", &cfg.Run.Workers)
	num("complexity", &cfg.Generator.ComplexityLimit)

	if f.Changed("duration") {
		cfg.Run.Duration, _ = f.GetDuration("duration")
	}
	if f.Changed("rate") {
		cfg.Run.Rate, _ = f.GetFloat64("rate")
	}
	if f.Changed("seed") {
		cfg.Generator.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("dedup") {
		if on, _ := f.GetBool("dedup"); !on {
			cfg.Run.DedupCache = 0
		}
	}
	if f.Changed("json-logs") {
		if on, _ := f.GetBool("json-logs"); on {
			cfg.Logging.Format = "json"
		} else {
			cfg.Logging.Format = "text"
		}
	}
	cfg.Target.Driver = strings.ToLower(cfg.Target.Driver)
	if cfg.Target.Driver == "redisgraph" && cfg.Target.Address == config.LoadDefaults().Target.Address {
		cfg.Target.Address = "localhost:6379"
	}
	cfg.Output.Findings = strings.ToLower(cfg.Output.Findings)
}

func newLogger(cfg config.LoggingConfig, out io.Writer) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(l), nil
}

func loadCatalog(path string) (*schema.Catalog, error) {
	if path == "" {
		return nil, errors.New("no schema file given (use --schema)")
	}
	g, err := schema.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return schema.NewCatalog(g)
}

// dialer opens one executor per worker for the configured driver.
func dialer(t config.TargetConfig, log *logrus.Entry) fuzz.Dialer {
	switch t.Driver {
	case "bolt":
		return func(ctx context.Context, worker int) (fuzz.Executor, error) {
			c, err := bolt.Dial(ctx, bolt.Config{
				Address:   t.Address,
				Username:  t.Username,
				Password:  t.Password,
				Database:  t.Database,
				UserAgent: "cypherfuzz/" + version,
				Timeout:   t.Timeout,
			}, log.WithField("worker", worker))
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	case "redisgraph":
		return func(ctx context.Context, worker int) (fuzz.Executor, error) {
			c, err := redisgraph.New(ctx, redisgraph.Config{
				Address:  t.Address,
				Password: t.Password,
				Graph:    t.Graph,
				Timeout:  t.Timeout,
				PoolSize: 1,
			}, log.WithField("worker", worker))
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	default:
		return func(context.Context, int) (fuzz.Executor, error) { return fuzz.DryRun{}, nil }
	}
}

func printSummary(w io.Writer, sum fuzz.Summary, findings int, out config.OutputConfig) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "\nRun %s (seed %d)\n", sum.RunID, sum.Seed)
	line := func(label string, value any) {
		fmt.Fprintf(w, "  %-21s %v\n", label+":", value)
	}
	line("generated", sum.Generated)
	line("executed", sum.Executed)
	line("duplicates", sum.Duplicates)
	line("generation failures", sum.GenerationFailures)

	rejected := color.New(color.FgGreen).Sprint(sum.Failures)
	if sum.Failures > 0 {
		rejected = color.New(color.FgRed, color.Bold).Sprint(sum.Failures)
	}
	line("rejected", rejected)

	var qps float64
	if secs := sum.Elapsed.Seconds(); secs > 0 {
		qps = float64(sum.Executed) / secs
	}
	line("elapsed", fmt.Sprintf("%s (%.1f q/s)", sum.Elapsed.Round(time.Millisecond), qps))
	if out.Findings != store.BackendNone && out.Findings != "" {
		line("findings stored", fmt.Sprintf("%d in %s (%s)", findings, out.FindingsPath, out.Findings))
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	schemaPath, _ := cmd.Flags().GetString("schema")
	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetInt64("seed")
	complexity, _ := cmd.Flags().GetInt("complexity")
	exprComplexity, _ := cmd.Flags().GetInt("expression-complexity")
	retry, _ := cmd.Flags().GetInt("retry")
	shapePath, _ := cmd.Flags().GetString("shape")

	catalog, err := loadCatalog(schemaPath)
	if err != nil {
		return err
	}

	var shapes *stats.CSVWriter
	if shapePath != "" {
		if shapes, err = stats.CreateCSV(shapePath); err != nil {
			return err
		}
	}

	l := logrus.New()
	l.SetOutput(cmd.ErrOrStderr())
	l.SetLevel(logrus.WarnLevel)
	session := generator.NewSession(catalog, generator.Options{
		ComplexityLimit:      complexity,
		ExpressionComplexity: exprComplexity,
		RetryLimit:           retry,
		Seed:                 seed,
		Logger:               logrus.NewEntry(l),
	})

	out := cmd.OutOrStdout()
	for i := 0; i < count; i++ {
		res, err := session.Generate()
		if err != nil {
			if errors.Is(err, generator.ErrRetryLimit) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s query %d: %v\n", color.YellowString("skipped"), i+1, err)
				continue
			}
			if shapes != nil {
				shapes.Close()
			}
			return err
		}
		fmt.Fprintln(out, res.Text)
		if shapes != nil {
			shapes.RecordTreeShape(res.Shape.Nodes, res.Shape.Depth)
		}
	}
	if shapes != nil {
		return shapes.Close()
	}
	return nil
}

func runSchemaValidate(cmd *cobra.Command, args []string) error {
	g, err := schema.LoadFromFile(args[0])
	if err != nil {
		return err
	}
	if _, err := schema.NewCatalog(g); err != nil {
		return err
	}
	name := g.Name
	if name == "" {
		name = args[0]
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d vertex labels, %d edge labels\n",
		color.GreenString("valid"), name, len(g.VertexLabels), len(g.EdgeLabels))
	return nil
}

// Helper functions for environment variables
func getEnvStr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
