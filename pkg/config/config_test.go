package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnvVars blanks every CYPHERFUZZ_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, "CYPHERFUZZ_") {
			t.Setenv(key, "")
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := LoadDefaults()

	if cfg.Generator.ComplexityLimit != 24 {
		t.Errorf("expected complexity limit 24, got %d", cfg.Generator.ComplexityLimit)
	}
	if cfg.Generator.ExpressionComplexity != 4 {
		t.Errorf("expected expression complexity 4, got %d", cfg.Generator.ExpressionComplexity)
	}
	if cfg.Generator.RetryLimit != 16 {
		t.Errorf("expected retry limit 16, got %d", cfg.Generator.RetryLimit)
	}
	if cfg.Target.Driver != "bolt" {
		t.Errorf("expected driver 'bolt', got %q", cfg.Target.Driver)
	}
	if cfg.Target.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Target.Timeout)
	}
	if cfg.Output.Findings != "none" {
		t.Errorf("expected findings 'none', got %q", cfg.Output.Findings)
	}
	if cfg.Run.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Run.Workers)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("CYPHERFUZZ_COMPLEXITY_LIMIT", "40")
	t.Setenv("CYPHERFUZZ_SEED", "9007199254740993")
	t.Setenv("CYPHERFUZZ_DURATION", "90")
	t.Setenv("CYPHERFUZZ_RATE", "12.5")
	t.Setenv("CYPHERFUZZ_TARGET", "RedisGraph")
	t.Setenv("CYPHERFUZZ_LOG_FORMAT", "JSON")
	t.Setenv("CYPHERFUZZ_WORKERS", "not-a-number")

	cfg := LoadFromEnv()

	if cfg.Generator.ComplexityLimit != 40 {
		t.Errorf("expected complexity limit 40, got %d", cfg.Generator.ComplexityLimit)
	}
	if cfg.Generator.Seed != 9007199254740993 {
		t.Errorf("expected 64-bit seed, got %d", cfg.Generator.Seed)
	}
	if cfg.Run.Duration != 90*time.Second {
		t.Errorf("expected bare seconds to parse as 90s, got %v", cfg.Run.Duration)
	}
	if cfg.Run.Rate != 12.5 {
		t.Errorf("expected rate 12.5, got %v", cfg.Run.Rate)
	}
	if cfg.Target.Driver != "redisgraph" {
		t.Errorf("expected driver 'redisgraph', got %q", cfg.Target.Driver)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Run.Workers != 4 {
		t.Errorf("expected unparsable workers to keep the default, got %d", cfg.Run.Workers)
	}
}

func TestApplyEnvVars_Auth(t *testing.T) {
	tests := []struct {
		name     string
		auth     string
		username string
		password string
	}{
		{"colon format", "neo4j:secret", "neo4j", "secret"},
		{"slash format", "admin/pass/word", "admin", "pass/word"},
		{"password only", "hunter2", "neo4j", "hunter2"},
		{"none", "none", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv("CYPHERFUZZ_AUTH", tt.auth)

			cfg := LoadDefaults()
			cfg.Target.Username = "preset"
			ApplyEnvVars(cfg)

			if cfg.Target.Username != tt.username {
				t.Errorf("expected username %q, got %q", tt.username, cfg.Target.Username)
			}
			if cfg.Target.Password != tt.password {
				t.Errorf("expected password %q, got %q", tt.password, cfg.Target.Password)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "cypherfuzz.yaml")
	yaml := `
generator:
  complexity_limit: 0
  seed: 7
run:
  duration: 5m
  workers: 2
target:
  driver: dryrun
schema:
  path: ./social.json
output:
  findings: sqlite
  findings_path: ./findings.db
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CYPHERFUZZ_WORKERS", "8")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generator.ComplexityLimit != 0 {
		t.Errorf("expected explicit zero complexity, got %d", cfg.Generator.ComplexityLimit)
	}
	if cfg.Generator.RetryLimit != 16 {
		t.Errorf("expected default retry limit to survive, got %d", cfg.Generator.RetryLimit)
	}
	if cfg.Run.Duration != 5*time.Minute {
		t.Errorf("expected duration 5m, got %v", cfg.Run.Duration)
	}
	if cfg.Run.Workers != 8 {
		t.Errorf("expected env to override file, got %d workers", cfg.Run.Workers)
	}
	if cfg.Output.Findings != "sqlite" {
		t.Errorf("expected findings 'sqlite', got %q", cfg.Output.Findings)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	clearEnvVars(t)
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if cfg.Generator.ComplexityLimit != 24 {
		t.Errorf("expected defaults, got complexity %d", cfg.Generator.ComplexityLimit)
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("run: [workers"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing schema", func(c *Config) { c.Schema.Path = "" }, "schema.path: is required"},
		{"unknown driver", func(c *Config) { c.Target.Driver = "gremlin" }, "target.driver: must be one of"},
		{"bolt needs address", func(c *Config) { c.Target.Address = "" }, "target.address: is required"},
		{"dryrun needs no address", func(c *Config) { c.Target.Driver = "dryrun"; c.Target.Address = "" }, ""},
		{"negative complexity", func(c *Config) { c.Generator.ComplexityLimit = -1 }, "generator.complexity_limit: must be at least 0"},
		{"no workers", func(c *Config) { c.Run.Workers = 0 }, "run.workers: must be at least 1"},
		{"zero timeout", func(c *Config) { c.Target.Timeout = 0 }, "target.timeout: must be greater than 0"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad findings backend", func(c *Config) { c.Output.Findings = "postgres" }, "output.findings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaults()
			cfg.Schema.Path = "./schema.json"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestString_HidesPassword(t *testing.T) {
	cfg := LoadDefaults()
	cfg.Target.Username = "neo4j"
	cfg.Target.Password = "topsecret"

	s := cfg.String()
	if strings.Contains(s, "topsecret") {
		t.Errorf("password leaked: %s", s)
	}
	if !strings.Contains(s, "bolt://localhost:7687") {
		t.Errorf("expected target in %s", s)
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(); got != "" {
		t.Errorf("expected no config file, got %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "cypherfuzz.yaml"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != "cypherfuzz.yaml" {
		t.Errorf("expected cypherfuzz.yaml, got %q", got)
	}
}
