package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the vitals collector.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Rules   RulesConfig   `yaml:"rules"`
	Archive ArchiveConfig `yaml:"archive"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the beacon listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
}

// EngineConfig maps onto the per-instance aggregator options.
type EngineConfig struct {
	Threshold             *float64 `yaml:"threshold"`
	ReportAllChanges      bool     `yaml:"reportAllChanges"`
	Debug                 bool     `yaml:"debug"`
	DetectIssues          *bool    `yaml:"detectIssues"`
	TrackAttribution      *bool    `yaml:"trackAttribution"`
	MinInteractionLatency float64  `yaml:"minInteractionLatency"`
	LongTaskThreshold     float64  `yaml:"longTaskThreshold"`
	PageOrigin            string   `yaml:"pageOrigin"`
}

// RulesConfig controls rule-pack loading for the classifier.
type RulesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// ArchiveConfig controls the SQLite session archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CacheConfig controls Valkey-backed publication of the latest snapshots.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	SnapshotTTL  time.Duration `yaml:"snapshotTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment
// overrides, then validates it. Misconfiguration fails here, never once the
// stream is running.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VITALS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine would refuse at construction.
func (c *Config) Validate() error {
	if c.Engine.Threshold != nil && *c.Engine.Threshold < 0 {
		return fmt.Errorf("engine.threshold must not be negative, got %v", *c.Engine.Threshold)
	}
	if c.Engine.MinInteractionLatency < 0 {
		return fmt.Errorf("engine.minInteractionLatency must not be negative, got %v", c.Engine.MinInteractionLatency)
	}
	if c.Engine.LongTaskThreshold < 0 {
		return fmt.Errorf("engine.longTaskThreshold must not be negative, got %v", c.Engine.LongTaskThreshold)
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		return errors.New("archive.path is required when the archive is enabled")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.New("cache.addr is required when the cache is enabled")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8380",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    15 * time.Second,
		},
		Engine: EngineConfig{
			MinInteractionLatency: 40,
			LongTaskThreshold:     50,
		},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Archive: ArchiveConfig{Enabled: false, Path: "vitals.db"},
		Cache: CacheConfig{
			Enabled:      false,
			SnapshotTTL:  5 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VITALS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("VITALS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("VITALS_PAGE_ORIGIN"); v != "" {
		cfg.Engine.PageOrigin = v
	}
	if v := os.Getenv("VITALS_MIN_INTERACTION_LATENCY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.MinInteractionLatency = f
		}
	}
	if v := os.Getenv("VITALS_LONG_TASK_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.LongTaskThreshold = f
		}
	}
	if v := os.Getenv("VITALS_REPORT_ALL_CHANGES"); v != "" {
		cfg.Engine.ReportAllChanges = truthy(v)
	}
	if v := os.Getenv("VITALS_DEBUG"); v != "" {
		cfg.Engine.Debug = truthy(v)
	}
	if v := os.Getenv("VITALS_DETECT_ISSUES"); v != "" {
		b := truthy(v)
		cfg.Engine.DetectIssues = &b
	}
	if v := os.Getenv("VITALS_TRACK_ATTRIBUTION"); v != "" {
		b := truthy(v)
		cfg.Engine.TrackAttribution = &b
	}
	if v := os.Getenv("VITALS_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("VITALS_RULES_WATCH"); v != "" {
		cfg.Rules.Watch = truthy(v)
	}
	if v := os.Getenv("VITALS_ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = truthy(v)
	}
	if v := os.Getenv("VITALS_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("VITALS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = truthy(v)
	}
	if v := os.Getenv("VITALS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("VITALS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("VITALS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("VITALS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("VITALS_CACHE_TLS"); v != "" {
		cfg.Cache.TLS = truthy(v)
	}
	if v := os.Getenv("VITALS_CACHE_SNAPSHOT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SnapshotTTL = d
		}
	}
	if v := os.Getenv("VITALS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VITALS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
