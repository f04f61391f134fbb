// Package config handles cypherfuzz configuration via YAML files and
// environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--queries, --workers, etc.)
//  2. Environment variables (CYPHERFUZZ_*)
//  3. Config file (cypherfuzz.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables (all use CYPHERFUZZ_ prefix):
//
// Generator:
//   - CYPHERFUZZ_COMPLEXITY_LIMIT=24
//   - CYPHERFUZZ_EXPRESSION_COMPLEXITY=4
//   - CYPHERFUZZ_RETRY_LIMIT=16
//   - CYPHERFUZZ_SEED=0 (0 picks a seed from the clock)
//
// Run:
//   - CYPHERFUZZ_QUERIES=1000, CYPHERFUZZ_DURATION="10m"
//   - CYPHERFUZZ_WORKERS=4, CYPHERFUZZ_RATE=50, CYPHERFUZZ_DEDUP_CACHE=4096
//
// Target:
//   - CYPHERFUZZ_TARGET="bolt", "redisgraph" or "dryrun"
//   - CYPHERFUZZ_ADDRESS="localhost:7687"
//   - CYPHERFUZZ_AUTH="neo4j:password" or "none"
//   - CYPHERFUZZ_DATABASE, CYPHERFUZZ_GRAPH, CYPHERFUZZ_TIMEOUT
//
// Output:
//   - CYPHERFUZZ_SCHEMA="./schema.json"
//   - CYPHERFUZZ_STATS_CSV, CYPHERFUZZ_METRICS_ADDRESS
//   - CYPHERFUZZ_FINDINGS="badger", "sqlite" or "none", CYPHERFUZZ_FINDINGS_PATH
//
// Logging:
//   - CYPHERFUZZ_LOG_LEVEL="info"
//   - CYPHERFUZZ_LOG_FORMAT="text" or "json"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all cypherfuzz configuration.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Run       RunConfig       `yaml:"run"`
	Target    TargetConfig    `yaml:"target"`
	Schema    SchemaConfig    `yaml:"schema"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GeneratorConfig controls the size of generated queries.
type GeneratorConfig struct {
	// ComplexityLimit is the budget each query starts with. 0 produces the
	// smallest valid query.
	ComplexityLimit      int   `yaml:"complexity_limit" validate:"gte=0,lte=1000"`
	ExpressionComplexity int   `yaml:"expression_complexity" validate:"gte=1,lte=64"`
	ScopeCost            int   `yaml:"scope_cost" validate:"gte=1"`
	RetryLimit           int   `yaml:"retry_limit" validate:"gte=1,lte=10000"`
	Seed                 int64 `yaml:"seed"`
}

// RunConfig bounds a fuzzing run. Zero Queries and Duration mean unbounded.
type RunConfig struct {
	Queries    int           `yaml:"queries" validate:"gte=0"`
	Duration   time.Duration `yaml:"duration" validate:"gte=0"`
	Workers    int           `yaml:"workers" validate:"gte=1,lte=1024"`
	Rate       float64       `yaml:"rate" validate:"gte=0"`
	DedupCache int           `yaml:"dedup_cache" validate:"gte=0"`
}

// TargetConfig says where queries are sent.
type TargetConfig struct {
	Driver   string        `yaml:"driver" validate:"oneof=bolt redisgraph dryrun"`
	Address  string        `yaml:"address" validate:"required_unless=Driver dryrun"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Database string        `yaml:"database"`
	Graph    string        `yaml:"graph"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

// SchemaConfig points at the graph schema file.
type SchemaConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// OutputConfig holds the statistics and findings sinks.
type OutputConfig struct {
	StatsCSV       string `yaml:"stats_csv"`
	Findings       string `yaml:"findings" validate:"oneof=badger sqlite none"`
	FindingsPath   string `yaml:"findings_path"`
	MetricsAddress string `yaml:"metrics_address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// LoadDefaults returns a Config with built-in defaults.
//
// Default values are applied first, then overridden by:
//  1. Config file (YAML)
//  2. Environment variables
//  3. Command-line arguments (applied in main.go)
func LoadDefaults() *Config {
	config := &Config{}

	config.Generator.ComplexityLimit = 24
	config.Generator.ExpressionComplexity = 4
	config.Generator.ScopeCost = 1
	config.Generator.RetryLimit = 16

	config.Run.Queries = 1000
	config.Run.Workers = 4
	config.Run.DedupCache = 4096

	config.Target.Driver = "bolt"
	config.Target.Address = "localhost:7687"
	config.Target.Graph = "fuzz"
	config.Target.Timeout = 30 * time.Second

	config.Output.Findings = "none"
	config.Output.FindingsPath = "./findings"

	config.Logging.Level = "info"
	config.Logging.Format = "text"

	return config
}

// LoadFromEnv returns the defaults with environment overrides applied.
func LoadFromEnv() *Config {
	config := LoadDefaults()
	applyEnvVars(config)
	return config
}

// LoadFromFile loads configuration with proper precedence:
//  1. Built-in defaults (lowest priority)
//  2. YAML config file
//  3. Environment variables (highest priority before CLI args)
//
// A missing file is not an error; an empty path skips the file.
//
// Example YAML:
//
//	generator:
//	  complexity_limit: 32
//	target:
//	  driver: bolt
//	  address: "localhost:7687"
//	  username: neo4j
//	schema:
//	  path: ./social.json
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			// fields absent from the file keep their defaults
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvVars(config)
	return config, nil
}

// ApplyEnvVars applies environment variable overrides to an existing config.
// This is the exported version for use in main.go.
func ApplyEnvVars(config *Config) {
	applyEnvVars(config)
}

func applyEnvVars(config *Config) {
	g := &config.Generator
	g.ComplexityLimit = getEnvInt("CYPHERFUZZ_COMPLEXITY_LIMIT", g.ComplexityLimit)
	g.ExpressionComplexity = getEnvInt("CYPHERFUZZ_EXPRESSION_COMPLEXITY", g.ExpressionComplexity)
	g.RetryLimit = getEnvInt("CYPHERFUZZ_RETRY_LIMIT", g.RetryLimit)
	g.Seed = getEnvInt64("CYPHERFUZZ_SEED", g.Seed)

	r := &config.Run
	r.Queries = getEnvInt("CYPHERFUZZ_QUERIES", r.Queries)
	r.Duration = getEnvDuration("CYPHERFUZZ_DURATION", r.Duration)
	r.Workers = getEnvInt("CYPHERFUZZ_WORKERS", r.Workers)
	r.Rate = getEnvFloat("CYPHERFUZZ_RATE", r.Rate)
	r.DedupCache = getEnvInt("CYPHERFUZZ_DEDUP_CACHE", r.DedupCache)

	t := &config.Target
	t.Driver = strings.ToLower(getEnv("CYPHERFUZZ_TARGET", t.Driver))
	t.Address = getEnv("CYPHERFUZZ_ADDRESS", t.Address)
	// Authentication - supports both "username:password" and "username/password" formats
	if auth := getEnv("CYPHERFUZZ_AUTH", ""); auth != "" {
		if auth == "none" {
			t.Username, t.Password = "", ""
		} else {
			parts := strings.SplitN(auth, ":", 2)
			if len(parts) != 2 {
				parts = strings.SplitN(auth, "/", 2)
			}
			if len(parts) == 2 {
				t.Username, t.Password = parts[0], parts[1]
			} else {
				t.Username, t.Password = "neo4j", auth
			}
		}
	}
	t.Username = getEnv("CYPHERFUZZ_USERNAME", t.Username)
	t.Password = getEnv("CYPHERFUZZ_PASSWORD", t.Password)
	t.Database = getEnv("CYPHERFUZZ_DATABASE", t.Database)
	t.Graph = getEnv("CYPHERFUZZ_GRAPH", t.Graph)
	t.Timeout = getEnvDuration("CYPHERFUZZ_TIMEOUT", t.Timeout)

	config.Schema.Path = getEnv("CYPHERFUZZ_SCHEMA", config.Schema.Path)

	o := &config.Output
	o.StatsCSV = getEnv("CYPHERFUZZ_STATS_CSV", o.StatsCSV)
	o.Findings = strings.ToLower(getEnv("CYPHERFUZZ_FINDINGS", o.Findings))
	o.FindingsPath = getEnv("CYPHERFUZZ_FINDINGS_PATH", o.FindingsPath)
	o.MetricsAddress = getEnv("CYPHERFUZZ_METRICS_ADDRESS", o.MetricsAddress)

	config.Logging.Level = strings.ToLower(getEnv("CYPHERFUZZ_LOG_LEVEL", config.Logging.Level))
	config.Logging.Format = strings.ToLower(getEnv("CYPHERFUZZ_LOG_FORMAT", config.Logging.Format))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their YAML names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the leading "Config."
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, describe(fe)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_unless":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// String returns a safe string representation of the Config. The password
// is never included.
func (c *Config) String() string {
	auth := "none"
	if c.Target.Username != "" {
		auth = c.Target.Username
	}
	return fmt.Sprintf(
		"Config{Target: %s://%s, Auth: %s, Schema: %s, Workers: %d, Queries: %d, Complexity: %d, Findings: %s}",
		c.Target.Driver, c.Target.Address, auth, c.Schema.Path,
		c.Run.Workers, c.Run.Queries, c.Generator.ComplexityLimit, c.Output.Findings,
	)
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first config file found, or empty string if none found.
// Search order:
//  1. ~/.cypherfuzz/config.yaml
//  2. Same directory as the binary (cypherfuzz.yaml)
//  3. Current working directory (cypherfuzz.yaml, config.yaml)
//  4. ~/.config/cypherfuzz/config.yaml (XDG)
func FindConfigFile() string {
	var candidates []string

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		candidates = append(candidates, filepath.Join(home, ".cypherfuzz", "config.yaml"))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "cypherfuzz.yaml"))
	}
	candidates = append(candidates, "cypherfuzz.yaml", "config.yaml")
	if homeErr == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "cypherfuzz", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
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

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
