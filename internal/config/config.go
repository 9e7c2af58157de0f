package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	Audit           AuditConfig           `mapstructure:"audit"`
	Analyzer        AnalyzerConfig        `mapstructure:"analyzer"`
	Scoring         ScoringConfig         `mapstructure:"scoring"`
	Recommendations RecommendationsConfig `mapstructure:"recommendations"`
	Impact          ImpactConfig          `mapstructure:"impact"`
	AutoFix         AutoFixConfig         `mapstructure:"autofix"`
	History         HistoryConfig         `mapstructure:"history"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	MaxWorkers         int           `mapstructure:"max_workers"`
	MaxPages           int           `mapstructure:"max_pages"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
	UserAgent          string        `mapstructure:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Retries            int           `mapstructure:"retries"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	FollowRobotsTxt    bool          `mapstructure:"follow_robots_txt"`
	IncludeSubdomains  bool          `mapstructure:"include_subdomains"`
	CheckExternalLinks bool          `mapstructure:"check_external_links"`
	CheckBoundaryLinks bool          `mapstructure:"check_boundary_links"`
}

// AuditConfig bounds a whole audit request
type AuditConfig struct {
	Deadline time.Duration `mapstructure:"deadline"`
}

// AnalyzerConfig holds the page check thresholds
type AnalyzerConfig struct {
	ThinContentWords     int     `mapstructure:"thin_content_words"`
	AltCoverageThreshold float64 `mapstructure:"alt_coverage_threshold"`
	SlowPageMS           int64   `mapstructure:"slow_page_ms"`
	DuplicateSimilarity  float64 `mapstructure:"duplicate_similarity"`
}

// ScoringConfig is the severity weight table and the per-issue page cap
type ScoringConfig struct {
	Weights WeightTable `mapstructure:"weights"`
	PageCap int         `mapstructure:"page_cap"`
}

// WeightTable maps each severity to its penalty weight
type WeightTable struct {
	Critical float64 `mapstructure:"critical"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
	Low      float64 `mapstructure:"low"`
}

// RecommendationsConfig holds the heuristic impact multipliers
type RecommendationsConfig struct {
	RankingFactor float64 `mapstructure:"ranking_factor"`
	TrafficFactor float64 `mapstructure:"traffic_factor"`
}

// ImpactConfig holds the impact simulator table
type ImpactConfig struct {
	RecoveryFactor    float64 `mapstructure:"recovery_factor"`
	TrafficPerPoint   float64 `mapstructure:"traffic_per_point"`
	PositionsPerPoint float64 `mapstructure:"positions_per_point"`
	SmallImprovement  float64 `mapstructure:"small_improvement"`
	MediumImprovement float64 `mapstructure:"medium_improvement"`
	SmallDays         int     `mapstructure:"small_days"`
	MediumDays        int     `mapstructure:"medium_days"`
	LargeDays         int     `mapstructure:"large_days"`
}

// AutoFixConfig configures where auto-fix patches are written
type AutoFixConfig struct {
	PatchDir string `mapstructure:"patch_dir"`
}

// HistoryConfig bounds the in-memory audit history
type HistoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "text"
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment. An empty configPath
// searches the default locations; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.auditsmith")
	}

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}

// Default returns the built-in configuration without touching the
// filesystem or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")

	// Crawler defaults
	v.SetDefault("crawler.max_workers", 8)
	v.SetDefault("crawler.max_pages", 500)
	v.SetDefault("crawler.requests_per_second", 10)
	v.SetDefault("crawler.user_agent", "Auditsmith/1.0 (+https://github.com/amosWeiskopf/auditsmith)")
	v.SetDefault("crawler.timeout", "10s")
	v.SetDefault("crawler.retries", 1)
	v.SetDefault("crawler.retry_backoff", "200ms")
	v.SetDefault("crawler.max_body_bytes", 5<<20)
	v.SetDefault("crawler.follow_robots_txt", true)
	v.SetDefault("crawler.include_subdomains", false)
	v.SetDefault("crawler.check_external_links", true)
	v.SetDefault("crawler.check_boundary_links", true)

	v.SetDefault("audit.deadline", "120s")

	v.SetDefault("analyzer.thin_content_words", 300)
	v.SetDefault("analyzer.alt_coverage_threshold", 0.8)
	v.SetDefault("analyzer.slow_page_ms", 2000)
	v.SetDefault("analyzer.duplicate_similarity", 0.9)

	v.SetDefault("scoring.weights.critical", 20)
	v.SetDefault("scoring.weights.high", 10)
	v.SetDefault("scoring.weights.medium", 5)
	v.SetDefault("scoring.weights.low", 2)
	v.SetDefault("scoring.page_cap", 5)

	v.SetDefault("recommendations.ranking_factor", 0.75)
	v.SetDefault("recommendations.traffic_factor", 2.0)

	v.SetDefault("impact.recovery_factor", 1.0)
	v.SetDefault("impact.traffic_per_point", 2.5)
	v.SetDefault("impact.positions_per_point", 0.2)
	v.SetDefault("impact.small_improvement", 10)
	v.SetDefault("impact.medium_improvement", 25)
	v.SetDefault("impact.small_days", 30)
	v.SetDefault("impact.medium_days", 60)
	v.SetDefault("impact.large_days", 90)

	v.SetDefault("autofix.patch_dir", "./patches")

	v.SetDefault("history.capacity", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output_path", "stderr")
}

// bindEnvVars binds environment variables
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("AUDITSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Crawler.MaxWorkers <= 0 {
		return fmt.Errorf("crawler.max_workers must be positive")
	}
	if c.Crawler.RequestsPerSecond < 0 {
		return fmt.Errorf("crawler.requests_per_second must not be negative")
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be positive")
	}
	if c.Crawler.Retries < 0 {
		return fmt.Errorf("crawler.retries must not be negative")
	}
	if c.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must not be negative")
	}
	if c.Audit.Deadline <= 0 {
		return fmt.Errorf("audit.deadline must be positive")
	}
	if c.Scoring.PageCap <= 0 {
		return fmt.Errorf("scoring.page_cap must be positive")
	}
	w := c.Scoring.Weights
	if w.Critical < 0 || w.High < 0 || w.Medium < 0 || w.Low < 0 {
		return fmt.Errorf("scoring.weights must not be negative")
	}
	if t := c.Analyzer.AltCoverageThreshold; t < 0 || t > 1 {
		return fmt.Errorf("analyzer.alt_coverage_threshold must be within [0,1]")
	}
	if s := c.Analyzer.DuplicateSimilarity; s <= 0 || s > 1 {
		return fmt.Errorf("analyzer.duplicate_similarity must be within (0,1]")
	}
	if c.Impact.SmallImprovement > c.Impact.MediumImprovement {
		return fmt.Errorf("impact.small_improvement must not exceed impact.medium_improvement")
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}
