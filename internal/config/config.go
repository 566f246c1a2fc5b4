package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kitaq-care/soudan/internal/domain/schema"
)

// Config holds the soudan API configuration.
type Config struct {
	HTTP     HTTPConfig      `yaml:"http"`
	Graph    GraphConfig     `yaml:"graph"`
	Model    ModelConfig     `yaml:"model"`
	Pipeline PipelineConfig  `yaml:"pipeline"`
	Cache    CacheConfig     `yaml:"cache"`
	Logging  LoggingConfig   `yaml:"logging"`
	Schemas  []schema.Schema `yaml:"schemas"` // extra or overriding domain schemas
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// GraphConfig holds graph store connection settings.
type GraphConfig struct {
	URI               string `yaml:"uri"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	Database          string `yaml:"database"`
	MaxPoolSize       int    `yaml:"max_pool_size"`
	AcquireTimeoutSec int    `yaml:"acquire_timeout_sec"`
}

// ModelConfig holds the model-serving endpoint settings.
type ModelConfig struct {
	BaseURL             string  `yaml:"base_url"`
	APIKey              string  `yaml:"api_key"`
	Model               string  `yaml:"model"`
	ExtractTemperature  float32 `yaml:"extract_temperature"`
	GenerateTemperature float32 `yaml:"generate_temperature"`
	MaxOutputTokens     int     `yaml:"max_output_tokens"`
}

// PipelineConfig holds the tuning knobs of the query pipeline. Every
// bound the pipeline enforces lives here rather than in code.
type PipelineConfig struct {
	// MinConfidence is the per-dimension confidence threshold; below it a
	// value is dropped, and if nothing reaches it the query is ambiguous.
	MinConfidence float64 `yaml:"min_confidence"`
	// MaxParseRetries bounds re-prompts after unparseable extraction output.
	MaxParseRetries int `yaml:"max_parse_retries"`
	// GraphMaxAttempts bounds graph query attempts (first try included).
	GraphMaxAttempts int `yaml:"graph_max_attempts"`
	// GraphBackoffBaseMs is the first retry delay; it doubles per attempt.
	GraphBackoffBaseMs int `yaml:"graph_backoff_base_ms"`
	// ModelMaxAttempts bounds model endpoint attempts on transient
	// failures (first try included).
	ModelMaxAttempts int `yaml:"model_max_attempts"`
	// ModelBackoffBaseMs is the first model retry delay; it doubles per attempt.
	ModelBackoffBaseMs int `yaml:"model_backoff_base_ms"`
	// ResultLimit is the hard per-query result cap.
	ResultLimit int `yaml:"result_limit"`
	// ContextBudgetRunes bounds the serialized evidence window.
	ContextBudgetRunes int `yaml:"context_budget_runes"`
	// Per-stage and aggregate deadlines.
	ExtractTimeoutSec  int `yaml:"extract_timeout_sec"`
	ExecuteTimeoutSec  int `yaml:"execute_timeout_sec"`
	GenerateTimeoutSec int `yaml:"generate_timeout_sec"`
	TotalTimeoutSec    int `yaml:"total_timeout_sec"`
}

// CacheConfig holds request-cache settings.
type CacheConfig struct {
	Backend            string   `yaml:"backend"` // memory, redis (default: memory)
	RedisAddrs         []string `yaml:"redis_addrs"`
	RedisPassword      string   `yaml:"redis_password"`
	IntentTTLSec       int      `yaml:"intent_ttl_sec"`
	ResultTTLSec       int      `yaml:"result_ttl_sec"`
	JanitorIntervalSec int      `yaml:"janitor_interval_sec"`
	KeyPrefix          string   `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generation can legitimately take tens of seconds.
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Graph.MaxPoolSize <= 0 {
		c.Graph.MaxPoolSize = 25
	}
	if c.Graph.AcquireTimeoutSec <= 0 {
		c.Graph.AcquireTimeoutSec = 10
	}
	if c.Model.MaxOutputTokens <= 0 {
		c.Model.MaxOutputTokens = 1024
	}
	if c.Model.ExtractTemperature <= 0 {
		c.Model.ExtractTemperature = 0.1
	}
	if c.Model.GenerateTemperature <= 0 {
		c.Model.GenerateTemperature = 0.3
	}
	if c.Pipeline.MinConfidence <= 0 {
		c.Pipeline.MinConfidence = 0.5
	}
	if c.Pipeline.MaxParseRetries <= 0 {
		c.Pipeline.MaxParseRetries = 2
	}
	if c.Pipeline.GraphMaxAttempts <= 0 {
		c.Pipeline.GraphMaxAttempts = 3
	}
	if c.Pipeline.GraphBackoffBaseMs <= 0 {
		c.Pipeline.GraphBackoffBaseMs = 100
	}
	if c.Pipeline.ModelMaxAttempts <= 0 {
		c.Pipeline.ModelMaxAttempts = 3
	}
	if c.Pipeline.ModelBackoffBaseMs <= 0 {
		c.Pipeline.ModelBackoffBaseMs = 200
	}
	if c.Pipeline.ResultLimit <= 0 {
		c.Pipeline.ResultLimit = 20
	}
	if c.Pipeline.ContextBudgetRunes <= 0 {
		c.Pipeline.ContextBudgetRunes = 4000
	}
	if c.Pipeline.ExtractTimeoutSec <= 0 {
		c.Pipeline.ExtractTimeoutSec = 20
	}
	if c.Pipeline.ExecuteTimeoutSec <= 0 {
		c.Pipeline.ExecuteTimeoutSec = 10
	}
	if c.Pipeline.GenerateTimeoutSec <= 0 {
		c.Pipeline.GenerateTimeoutSec = 30
	}
	if c.Pipeline.TotalTimeoutSec <= 0 {
		c.Pipeline.TotalTimeoutSec = 75
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.IntentTTLSec <= 0 {
		c.Cache.IntentTTLSec = 3600
	}
	if c.Cache.ResultTTLSec <= 0 {
		c.Cache.ResultTTLSec = 300
	}
	if c.Cache.JanitorIntervalSec <= 0 {
		c.Cache.JanitorIntervalSec = 60
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "soudan:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Graph.URI == "" {
		return fmt.Errorf("graph.uri is required")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model is required")
	}
	if c.Pipeline.MinConfidence > 1 {
		return fmt.Errorf("pipeline.min_confidence must be in (0,1], got %g", c.Pipeline.MinConfidence)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if len(c.Cache.RedisAddrs) == 0 {
			return fmt.Errorf("cache.redis_addrs is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Cache.Backend)
	}
	for _, s := range c.Schemas {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("schemas: %w", err)
		}
	}
	return nil
}

// Duration accessors.

func (p PipelineConfig) ExtractTimeout() time.Duration {
	return time.Duration(p.ExtractTimeoutSec) * time.Second
}

func (p PipelineConfig) ExecuteTimeout() time.Duration {
	return time.Duration(p.ExecuteTimeoutSec) * time.Second
}

func (p PipelineConfig) GenerateTimeout() time.Duration {
	return time.Duration(p.GenerateTimeoutSec) * time.Second
}

func (p PipelineConfig) TotalTimeout() time.Duration {
	return time.Duration(p.TotalTimeoutSec) * time.Second
}

func (p PipelineConfig) GraphBackoffBase() time.Duration {
	return time.Duration(p.GraphBackoffBaseMs) * time.Millisecond
}

func (p PipelineConfig) ModelBackoffBase() time.Duration {
	return time.Duration(p.ModelBackoffBaseMs) * time.Millisecond
}

func (c CacheConfig) IntentTTL() time.Duration {
	return time.Duration(c.IntentTTLSec) * time.Second
}

func (c CacheConfig) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLSec) * time.Second
}

func (c CacheConfig) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
