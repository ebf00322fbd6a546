package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Thresholds are the policy constants driving alert classification, the
// risk-adjusted ratio, and the circuit-breaker regime. They are configuration,
// not code, so boundary behavior stays testable and overridable.
type Thresholds struct {
	SellThreshold        float64    `yaml:"sell_threshold" envconfig:"SELL_THRESHOLD"`
	ReviewDeltaThreshold float64    `yaml:"review_delta_threshold" envconfig:"REVIEW_DELTA_THRESHOLD"`
	RiskFloor            float64    `yaml:"risk_floor" envconfig:"RISK_FLOOR"`
	CircuitBreakerVIX    float64    `yaml:"circuit_breaker_vix_threshold" envconfig:"CIRCUIT_BREAKER_VIX_THRESHOLD"`
	VIXInputRange        []float64  `yaml:"vix_input_range" envconfig:"VIX_INPUT_RANGE"`
}

// IngestConfig locates the snapshot inputs. JSON is preferred; the CSV path
// is the flat-file fallback when the JSON document is absent or invalid.
type IngestConfig struct {
	SnapshotJSON  string `yaml:"snapshot_json" envconfig:"SNAPSHOT_JSON"`
	SnapshotCSV   string `yaml:"snapshot_csv" envconfig:"SNAPSHOT_CSV"`
	VIXHistoryCSV string `yaml:"vix_history_csv" envconfig:"VIX_HISTORY_CSV"`
}

// ServerConfig controls the dashboard API surface.
type ServerConfig struct {
	ListenAddr     string  `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
}

// RefreshConfig controls the periodic re-evaluation loop in serve mode.
type RefreshConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"REFRESH_ENABLED"`
	Schedule string `yaml:"schedule" envconfig:"REFRESH_SCHEDULE"` // cron spec, e.g. "@every 5m"
}

// RedisConfig locates the optional latest-report cache. Empty Addr disables it.
type RedisConfig struct {
	Addr string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	TTL  time.Duration `yaml:"ttl" envconfig:"REDIS_TTL"`
}

// PostgresConfig locates the optional alert history store. Empty DSN disables it.
type PostgresConfig struct {
	DSN string `yaml:"dsn" envconfig:"POSTGRES_DSN"`
}

// VIXProviderConfig locates the optional external volatility feed. Empty URL
// disables it and the caller supplies VIX readings by hand.
type VIXProviderConfig struct {
	URL            string        `yaml:"url" envconfig:"VIX_PROVIDER_URL"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"VIX_PROVIDER_TIMEOUT"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" envconfig:"VIX_PROVIDER_RATE_LIMIT_RPS"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout" envconfig:"VIX_PROVIDER_BREAKER_TIMEOUT"`
	BreakerMaxFail uint32        `yaml:"breaker_max_failures" envconfig:"VIX_PROVIDER_BREAKER_MAX_FAILURES"`
}

// Config is the complete runtime configuration.
type Config struct {
	Thresholds Thresholds        `yaml:"thresholds"`
	Ingest     IngestConfig      `yaml:"ingest"`
	Server     ServerConfig      `yaml:"server"`
	Refresh    RefreshConfig     `yaml:"refresh"`
	Redis      RedisConfig       `yaml:"redis"`
	Postgres   PostgresConfig    `yaml:"postgres"`
	VIX        VIXProviderConfig `yaml:"vix_provider"`
}

// Defaults returns the built-in configuration matching the documented policy
// constants: sell < 5.0, review |Δ| > 0.8, risk floor 0.1, circuit breaker
// VIX > 25.0, advisory VIX input range [10, 80].
func Defaults() *Config {
	return &Config{
		Thresholds: Thresholds{
			SellThreshold:        5.0,
			ReviewDeltaThreshold: 0.8,
			RiskFloor:            0.1,
			CircuitBreakerVIX:    25.0,
			VIXInputRange:        []float64{10.0, 80.0},
		},
		Ingest: IngestConfig{
			SnapshotJSON:  "scoruri_live.json",
			SnapshotCSV:   "portfolio_scores.csv",
			VIXHistoryCSV: "vix_history.csv",
		},
		Server: ServerConfig{
			ListenAddr:     ":8090",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Schedule: "@every 5m",
		},
		Redis: RedisConfig{
			TTL: 10 * time.Minute,
		},
		VIX: VIXProviderConfig{
			Timeout:        5 * time.Second,
			RateLimitRPS:   1,
			BreakerTimeout: 30 * time.Second,
			BreakerMaxFail: 3,
		},
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file when path is non-empty, overlaid by QUANTFOLIO_* environment
// variables. The result is validated before use.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := envconfig.Process("quantfolio", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects threshold combinations that would make the policy
// constants meaningless.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.ReviewDeltaThreshold < 0 {
		return fmt.Errorf("review_delta_threshold must be >= 0, got %.2f", t.ReviewDeltaThreshold)
	}
	if t.RiskFloor <= 0 {
		return fmt.Errorf("risk_floor must be > 0, got %.2f", t.RiskFloor)
	}
	if len(t.VIXInputRange) != 2 {
		return fmt.Errorf("vix_input_range must have exactly two bounds, got %d", len(t.VIXInputRange))
	}
	if t.VIXInputRange[0] >= t.VIXInputRange[1] {
		return fmt.Errorf("vix_input_range must be ascending, got [%.1f, %.1f]",
			t.VIXInputRange[0], t.VIXInputRange[1])
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("server rate limit must be positive")
	}
	if c.Refresh.Enabled && c.Refresh.Schedule == "" {
		return fmt.Errorf("refresh.schedule required when refresh is enabled")
	}
	return nil
}
