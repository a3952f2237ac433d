// Package config loads server settings from a YAML file, an optional .env
// file and STAYMATCH_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Cache    CacheConfig    `yaml:"cache"`
	Matching MatchingConfig `yaml:"matching"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StorageConfig configures the SQLite database.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// OracleConfig configures the language-model oracle. An empty APIKey
// disables it.
type OracleConfig struct {
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	Temperature   float32       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

// CacheConfig configures oracle answer caching.
type CacheConfig struct {
	LocalEntries  int           `yaml:"local_entries"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Memcache      []string      `yaml:"memcache"`
}

// MatchingConfig tunes normalization and ranking.
type MatchingConfig struct {
	TopN            int     `yaml:"top_n"`
	AcceptThreshold float64 `yaml:"accept_threshold"`
	LocationCutoff  float64 `yaml:"location_cutoff"`
	FuzzyCutoff     float64 `yaml:"fuzzy_cutoff"`
	ReferenceYear   int     `yaml:"reference_year"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "./static",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Oracle: OracleConfig{
			Timeout:       60 * time.Second,
			RatePerSecond: 2,
			Burst:         4,
		},
		Cache: CacheConfig{
			LocalEntries: 1000,
			TTL:          24 * time.Hour,
		},
		Matching: MatchingConfig{
			TopN:            10,
			AcceptThreshold: 0.65,
			LocationCutoff:  0.7,
			FuzzyCutoff:     0.5,
			ReferenceYear:   2025,
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "STAYMATCH_ADDR")
	setString(&c.Server.StaticDir, "STAYMATCH_STATIC_DIR")
	setString(&c.Storage.DataDir, "STAYMATCH_DATA_DIR")
	setString(&c.Oracle.APIKey, "OPENAI_API_KEY")
	setString(&c.Oracle.APIKey, "STAYMATCH_OPENAI_API_KEY")
	setString(&c.Oracle.BaseURL, "STAYMATCH_OPENAI_BASE_URL")
	setString(&c.Oracle.Model, "STAYMATCH_OPENAI_MODEL")
	setString(&c.Cache.RedisAddr, "STAYMATCH_REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "STAYMATCH_REDIS_PASSWORD")

	if v := os.Getenv("STAYMATCH_MEMCACHE_SERVERS"); v != "" {
		c.Cache.Memcache = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Cache.Memcache = append(c.Cache.Memcache, s)
			}
		}
	}

	if v := os.Getenv("STAYMATCH_TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STAYMATCH_TOP_N: %w", err)
		}
		c.Matching.TopN = n
	}
	if v := os.Getenv("STAYMATCH_ORACLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STAYMATCH_ORACLE_TIMEOUT: %w", err)
		}
		c.Oracle.Timeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if c.Matching.TopN < 1 {
		errs = append(errs, fmt.Errorf("matching.top_n must be at least 1, got %d", c.Matching.TopN))
	}
	for name, v := range map[string]float64{
		"matching.accept_threshold": c.Matching.AcceptThreshold,
		"matching.location_cutoff":  c.Matching.LocationCutoff,
		"matching.fuzzy_cutoff":     c.Matching.FuzzyCutoff,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %g", name, v))
		}
	}
	if c.Oracle.Timeout <= 0 {
		errs = append(errs, errors.New("oracle.timeout must be positive"))
	}
	if c.Oracle.RatePerSecond > 0 && c.Oracle.Burst < 1 {
		errs = append(errs, errors.New("oracle.burst must be at least 1 when rate limiting"))
	}
	if c.Cache.LocalEntries < 0 {
		errs = append(errs, errors.New("cache.local_entries cannot be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
