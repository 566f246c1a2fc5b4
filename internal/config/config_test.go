package config

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func validConfig() Config {
	c := Config{}
	c.HTTP.Port = 8080
	c.Graph.URI = "bolt://localhost:7687"
	c.Model.Model = "gpt-4o-mini"
	c.ApplyDefaults()
	return c
}

func TestApplyDefaults(t *testing.T) {
	c := validConfig()

	if c.Pipeline.MinConfidence != 0.5 {
		t.Errorf("expected default min_confidence 0.5, got %g", c.Pipeline.MinConfidence)
	}
	if c.Pipeline.MaxParseRetries != 2 {
		t.Errorf("expected default max_parse_retries 2, got %d", c.Pipeline.MaxParseRetries)
	}
	if c.Pipeline.GraphMaxAttempts != 3 {
		t.Errorf("expected default graph_max_attempts 3, got %d", c.Pipeline.GraphMaxAttempts)
	}
	if c.Pipeline.ModelMaxAttempts != 3 {
		t.Errorf("expected default model_max_attempts 3, got %d", c.Pipeline.ModelMaxAttempts)
	}
	if c.Pipeline.ModelBackoffBaseMs != 200 {
		t.Errorf("expected default model_backoff_base_ms 200, got %d", c.Pipeline.ModelBackoffBaseMs)
	}
	if c.Pipeline.ResultLimit != 20 {
		t.Errorf("expected default result_limit 20, got %d", c.Pipeline.ResultLimit)
	}
	if c.Pipeline.ContextBudgetRunes != 4000 {
		t.Errorf("expected default context_budget_runes 4000, got %d", c.Pipeline.ContextBudgetRunes)
	}
	if c.Pipeline.TotalTimeoutSec != 75 {
		t.Errorf("expected default total_timeout_sec 75, got %d", c.Pipeline.TotalTimeoutSec)
	}
	if c.Cache.Backend != "memory" {
		t.Errorf("expected default memory backend, got %q", c.Cache.Backend)
	}
	if c.Cache.IntentTTLSec != 3600 || c.Cache.ResultTTLSec != 300 {
		t.Errorf("unexpected TTL defaults: %d/%d", c.Cache.IntentTTLSec, c.Cache.ResultTTLSec)
	}
	if c.Cache.KeyPrefix != "soudan:" {
		t.Errorf("expected default key prefix, got %q", c.Cache.KeyPrefix)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }},
		{"missing graph uri", func(c *Config) { c.Graph.URI = "" }},
		{"missing model", func(c *Config) { c.Model.Model = "" }},
		{"min_confidence above 1", func(c *Config) { c.Pipeline.MinConfidence = 1.5 }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis backend without addrs", func(c *Config) { c.Cache.Backend = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateConfigSchemas(t *testing.T) {
	doc := `
schemas:
  - id: custom
    label: Custom
    name_property: name
    dimensions:
      - name: kind
        kind: string
        property: kind
`
	c := validConfig()
	if err := yaml.Unmarshal([]byte(doc), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}

	c.Schemas[0].Label = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for invalid config schema")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SOUDAN_TEST_URI", "bolt://graph:7687")
	os.Unsetenv("SOUDAN_TEST_ABSENT")

	in := []byte("uri: ${SOUDAN_TEST_URI}\nfallback: ${SOUDAN_TEST_ABSENT:-default-value}\nempty: ${SOUDAN_TEST_ABSENT}")
	out := string(expandEnvVars(in))

	if !strings.Contains(out, "uri: bolt://graph:7687") {
		t.Errorf("expected env substitution, got %s", out)
	}
	if !strings.Contains(out, "fallback: default-value") {
		t.Errorf("expected default substitution, got %s", out)
	}
	if strings.Contains(out, "${") {
		t.Errorf("all placeholders must be expanded, got %s", out)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(dir+"/config", 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `
http:
  port: 9090
graph:
  uri: bolt://localhost:7687
model:
  model: test-model
pipeline:
  min_confidence: 0.6
`
	if err := os.WriteFile(dir+"/config/test.yaml", []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Pipeline.MinConfidence != 0.6 {
		t.Errorf("expected min_confidence 0.6, got %g", cfg.Pipeline.MinConfidence)
	}
	// defaults fill the rest
	if cfg.Pipeline.ResultLimit != 20 {
		t.Errorf("expected default result_limit, got %d", cfg.Pipeline.ResultLimit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("no-such-env"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDurationAccessors(t *testing.T) {
	c := validConfig()
	if c.Pipeline.TotalTimeout().Seconds() != 75 {
		t.Errorf("TotalTimeout = %v", c.Pipeline.TotalTimeout())
	}
	if c.Cache.ResultTTL().Seconds() != 300 {
		t.Errorf("ResultTTL = %v", c.Cache.ResultTTL())
	}
	if c.Pipeline.GraphBackoffBase().Milliseconds() != 100 {
		t.Errorf("GraphBackoffBase = %v", c.Pipeline.GraphBackoffBase())
	}
	if c.Pipeline.ModelBackoffBase().Milliseconds() != 200 {
		t.Errorf("ModelBackoffBase = %v", c.Pipeline.ModelBackoffBase())
	}
}
