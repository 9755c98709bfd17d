package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort              = "8080"
	defaultRateLimitRPS      = 25.0
	defaultRateLimitBurst    = 50
	defaultLogLevel          = "info"
	defaultLowStockThreshold = 10.0
	defaultStockCacheTTL     = 30 * time.Second
	defaultStockCacheSize    = 64
	defaultEnvFile           = ".env"
)

var defaultCategories = []string{"Paper", "Inks", "Chemicals", "Poly Films"}

var validLogLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string

	Categories        []string
	FitCategory       string
	LowStockThreshold float64
	DefaultMinPieces  int
	StockCacheTTL     time.Duration
	StockCacheSize    int
	SeedWorkbook      string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	LogLevel             string        `yaml:"log_level"`
	Inventory            yamlInventory `yaml:"inventory"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlInventory represents the inventory section in YAML.
type yamlInventory struct {
	Categories        []string `yaml:"categories"`
	FitCategory       string   `yaml:"fit_category"`
	LowStockThreshold *float64 `yaml:"low_stock_threshold"`
	DefaultMinPieces  *int     `yaml:"default_min_pieces"`
	StockCacheTTL     string   `yaml:"stock_cache_ttl"`
	StockCacheSize    int      `yaml:"stock_cache_size"`
	SeedWorkbook      string   `yaml:"seed_workbook"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
	SeedWorkbook   *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	envFile := defaultEnvFile
	if overrides != nil && overrides.EnvFile != "" {
		envFile = overrides.EnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             defaultLogLevel,
		Categories:           append([]string(nil), defaultCategories...),
		FitCategory:          defaultCategories[0],
		LowStockThreshold:    defaultLowStockThreshold,
		StockCacheTTL:        defaultStockCacheTTL,
		StockCacheSize:       defaultStockCacheSize,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// loadEnvFile populates the process environment from a dotenv file without
// overriding variables that are already set. A missing file is ignored.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	setDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	setDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	setDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	setDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(yamlCfg.LogLevel)
	}

	inv := yamlCfg.Inventory
	if categories := cleanList(inv.Categories); len(categories) > 0 {
		cfg.Categories = categories
	}
	if inv.FitCategory != "" {
		cfg.FitCategory = strings.TrimSpace(inv.FitCategory)
	}
	if inv.LowStockThreshold != nil {
		cfg.LowStockThreshold = *inv.LowStockThreshold
	}
	if inv.DefaultMinPieces != nil {
		cfg.DefaultMinPieces = *inv.DefaultMinPieces
	}
	setDuration(&cfg.StockCacheTTL, inv.StockCacheTTL)
	if inv.StockCacheSize > 0 {
		cfg.StockCacheSize = inv.StockCacheSize
	}
	if inv.SeedWorkbook != "" {
		cfg.SeedWorkbook = inv.SeedWorkbook
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if raw := env("CATEGORIES"); raw != "" {
		if categories := cleanList(strings.Split(raw, ",")); len(categories) > 0 {
			cfg.Categories = categories
		}
	}

	if category := env("FIT_CATEGORY"); category != "" {
		cfg.FitCategory = category
	}

	if threshold := env("LOW_STOCK_THRESHOLD"); threshold != "" {
		if value, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.LowStockThreshold = value
		}
	}

	if minPieces := env("DEFAULT_MIN_PIECES"); minPieces != "" {
		if value, err := strconv.Atoi(minPieces); err == nil {
			cfg.DefaultMinPieces = value
		}
	}

	setDuration(&cfg.StockCacheTTL, env("STOCK_CACHE_TTL"))

	if seed := env("SEED_WORKBOOK"); seed != "" {
		cfg.SeedWorkbook = seed
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*overrides.LogLevel)
	}

	if overrides.SeedWorkbook != nil && *overrides.SeedWorkbook != "" {
		cfg.SeedWorkbook = *overrides.SeedWorkbook
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if _, ok := validLogLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("categories cannot be empty")
	}
	if !containsFold(cfg.Categories, cfg.FitCategory) {
		return fmt.Errorf("fit category %q is not one of the configured categories", cfg.FitCategory)
	}
	if cfg.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must be >= 0")
	}
	if cfg.DefaultMinPieces < 0 {
		return fmt.Errorf("DEFAULT_MIN_PIECES must be >= 0")
	}
	if cfg.StockCacheTTL < 0 {
		return fmt.Errorf("STOCK_CACHE_TTL must be >= 0")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
