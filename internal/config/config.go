package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the clubrec service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Recommend RecommendConfig `yaml:"recommend"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port               int             `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec     int             `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int             `yaml:"write_timeout_sec"`
	ShutdownSec        int             `yaml:"shutdown_timeout_sec"`
	CORSAllowedOrigins []string        `yaml:"cors_allowed_origins"`
	RateLimit          RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig limits inbound recommendation requests per client IP.
type RateLimitConfig struct {
	Requests  int `yaml:"requests" validate:"min=0"` // 0 = unlimited
	WindowSec int `yaml:"window_sec"`
}

// DatabaseConfig holds Valkey/Redis connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver" validate:"oneof=valkey redis"`
	Addrs            []string `yaml:"addrs" validate:"min=1,dive,required"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string  `yaml:"provider"`
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url" validate:"omitempty,url"`
	Model               string  `yaml:"model" validate:"required"`
	Dimensions          int     `yaml:"dimensions" validate:"min=1"`
	QueryInstruction    string  `yaml:"query_instruction"`
	DocumentInstruction string  `yaml:"document_instruction"`
	TimeoutMS           int     `yaml:"timeout_ms"`
	RateLimitRPS        float64 `yaml:"rate_limit_rps" validate:"min=0"` // 0 = unlimited
	RateLimitBurst      int     `yaml:"rate_limit_burst"`
	CacheEnabled        bool    `yaml:"cache_enabled"`
	CacheTTLSec         int     `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	KeyPrefix       string `yaml:"key_prefix"`
	DistanceMetric  string `yaml:"distance_metric" validate:"oneof=COSINE IP L2"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	TimeoutMS       int    `yaml:"timeout_ms"`
}

// CatalogConfig selects the store used to enrich results with display metadata.
type CatalogConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=valkey sqlite none"`
	SQLitePath  string `yaml:"sqlite_path"`
	TimeoutMS   int    `yaml:"timeout_ms"`
	Concurrency int    `yaml:"concurrency" validate:"min=1"`
}

// RecommendConfig bounds recommendation requests.
type RecommendConfig struct {
	DefaultTopN     int         `yaml:"default_top_n" validate:"min=1"`
	MaxTopN         int         `yaml:"max_top_n" validate:"min=1"`
	MaxQueryBytes   int         `yaml:"max_query_bytes" validate:"min=1"`
	OverfetchFactor int         `yaml:"overfetch_factor" validate:"min=1"`
	Retry           RetryConfig `yaml:"retry"`
}

// RetryConfig controls the retry of transient upstream failures.
type RetryConfig struct {
	MaxRetries *int `yaml:"max_retries" validate:"omitempty,min=0,max=1"`
	BackoffMS  int  `yaml:"backoff_ms"`
}

// BreakerConfig configures circuit breakers around the embedding provider and vector index.
type BreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MinRequests      uint32  `yaml:"min_requests"`
	FailureRatio     float64 `yaml:"failure_ratio" validate:"gte=0,lte=1"`
	IntervalSec      int     `yaml:"interval_sec"`
	OpenTimeoutSec   int     `yaml:"open_timeout_sec"`
	HalfOpenRequests uint32  `yaml:"half_open_requests"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

// LoadDotEnv populates the process environment from .env files.
// Variables that are already set are left untouched; missing files are ignored.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RateLimit.WindowSec <= 0 {
		c.HTTP.RateLimit.WindowSec = 60
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutMS <= 0 {
		c.Embedding.TimeoutMS = 5000
	}
	if c.Embedding.RateLimitBurst <= 0 {
		c.Embedding.RateLimitBurst = 1
	}
	if c.Index.Name == "" {
		c.Index.Name = "clubrec:items:idx"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "clubrec:"
	}
	if c.Index.DistanceMetric == "" {
		c.Index.DistanceMetric = "COSINE"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.TimeoutMS <= 0 {
		c.Index.TimeoutMS = 2000
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "valkey"
	}
	if c.Catalog.TimeoutMS <= 0 {
		c.Catalog.TimeoutMS = 500
	}
	if c.Catalog.Concurrency <= 0 {
		c.Catalog.Concurrency = 8
	}
	if c.Recommend.DefaultTopN <= 0 {
		c.Recommend.DefaultTopN = 10
	}
	if c.Recommend.MaxTopN <= 0 {
		c.Recommend.MaxTopN = 50
	}
	if c.Recommend.MaxQueryBytes <= 0 {
		c.Recommend.MaxQueryBytes = 8192
	}
	if c.Recommend.OverfetchFactor <= 0 {
		c.Recommend.OverfetchFactor = 2
	}
	if c.Recommend.Retry.MaxRetries == nil {
		one := 1
		c.Recommend.Retry.MaxRetries = &one
	}
	if c.Recommend.Retry.BackoffMS <= 0 {
		c.Recommend.Retry.BackoffMS = 100
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 10
	}
	if c.Breaker.FailureRatio <= 0 {
		c.Breaker.FailureRatio = 0.6
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 60
	}
	if c.Breaker.OpenTimeoutSec <= 0 {
		c.Breaker.OpenTimeoutSec = 30
	}
	if c.Breaker.HalfOpenRequests == 0 {
		c.Breaker.HalfOpenRequests = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return translateError(err)
	}
	if c.Recommend.DefaultTopN > c.Recommend.MaxTopN {
		return fmt.Errorf("recommend.default_top_n (%d) must not exceed recommend.max_top_n (%d)",
			c.Recommend.DefaultTopN, c.Recommend.MaxTopN)
	}
	if c.Catalog.Driver == "sqlite" && c.Catalog.SQLitePath == "" {
		return errors.New("catalog.sqlite_path is required when catalog.driver is sqlite")
	}
	return nil
}

// EmbedTimeout is the deadline for a single embedding call.
func (c EmbeddingConfig) EmbedTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CacheTTL is the embedding cache expiry; zero keeps entries forever.
func (c EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// SearchTimeout is the deadline for a single vector index query.
func (c IndexConfig) SearchTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// LookupTimeout is the deadline for a single catalog lookup.
func (c CatalogConfig) LookupTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Backoff is the pause before the single retry.
func (c RetryConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMS) * time.Millisecond
}

// Retries returns the configured retry count.
func (c RetryConfig) Retries() int {
	if c.MaxRetries == nil {
		return 1
	}
	return *c.MaxRetries
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// translateError turns validator output into "section.field: rule" messages keyed by YAML names.
func translateError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", path, rule, fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
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
