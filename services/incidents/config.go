// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package incidents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/racerisk/pkg/logging"
	"github.com/AleutianAI/racerisk/services/incidents/records"
	"github.com/AleutianAI/racerisk/services/incidents/telemetry"
)

// =============================================================================
// Configuration
// =============================================================================

// Defaults applied by applyConfigDefaults.
const (
	DefaultPort            = 8000
	DefaultResourceDir     = "./resources"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRateLimit       = 20.0
	DefaultRateBurst       = 40
)

// Config is the full service configuration.
//
// # Description
//
// Loaded from YAML by LoadConfig. Every field is optional; zero values are
// replaced by applyConfigDefaults and a small set of environment variables
// override the file.
//
// # Examples
//
//	server:
//	  port: 8000
//	  rate_limit: 20
//	predictor:
//	  resource_dir: /var/lib/racerisk/model
//	records:
//	  backend: badger
//	  path: /var/lib/racerisk/records
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Predictor PredictorConfig  `yaml:"predictor"`
	Records   records.Config   `yaml:"records"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Port is the listen port. Default: 8000
	Port int `yaml:"port"`

	// GinMode is debug, release or test. Default: release
	GinMode string `yaml:"gin_mode"`

	// RateLimit is requests per second for /api/incidents. Zero uses the
	// default; a negative value disables throttling.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PredictorConfig configures model loading.
type PredictorConfig struct {
	// ResourceDir holds the model artifacts. Default: ./resources
	ResourceDir string `yaml:"resource_dir"`

	// ClassifierEndpoint replaces the in-process classifier with a remote
	// model server.
	ClassifierEndpoint string        `yaml:"classifier_endpoint"`
	ClassifierTimeout  time.Duration `yaml:"classifier_timeout"`

	// SerializeClassifier allows one classifier call at a time.
	SerializeClassifier bool `yaml:"serialize_classifier"`

	// LazyLoad defers loading until the first prediction.
	LazyLoad bool `yaml:"lazy_load"`

	// MaxParallel bounds per-race prediction concurrency. Zero means
	// GOMAXPROCS.
	MaxParallel int `yaml:"max_parallel"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// LoggerConfig converts c into a logging.Config.
func (c LoggingConfig) LoggerConfig(service string) (logging.Config, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:   level,
		Format:  logging.Format(c.Format),
		LogDir:  c.Dir,
		Service: service,
	}, nil
}

// DefaultConfig returns a configuration with every default and environment
// override applied.
func DefaultConfig() Config {
	return applyEnvOverrides(applyConfigDefaults(Config{}))
}

// LoadConfig reads the YAML file at path. An empty path returns
// DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML and applies defaults and environment overrides.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = applyEnvOverrides(applyConfigDefaults(cfg))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no default can repair.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("server.gin_mode %q must be debug, release or test", c.Server.GinMode)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be positive when rate_limit is set")
	}
	switch c.Records.Backend {
	case records.BackendMemory:
	case records.BackendBadger, records.BackendSQLite:
		if c.Records.Path == "" {
			return fmt.Errorf("records.path is required for the %s backend", c.Records.Backend)
		}
	default:
		return fmt.Errorf("%w: %q", records.ErrUnknownBackend, c.Records.Backend)
	}
	if c.Telemetry.TraceSampleRatio < 0 {
		return fmt.Errorf("telemetry.trace_sample_ratio %v must not be negative", c.Telemetry.TraceSampleRatio)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// applyConfigDefaults fills in zero-valued fields.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = gin.ReleaseMode
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = DefaultRateLimit
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = DefaultRateBurst
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Predictor.ResourceDir == "" {
		cfg.Predictor.ResourceDir = DefaultResourceDir
	}

	if cfg.Records.Backend == "" {
		cfg.Records.Backend = records.BackendMemory
	}

	tdef := telemetry.DefaultConfig()
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = tdef.ServiceName
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = tdef.ServiceVersion
	}
	if cfg.Telemetry.Environment == "" {
		cfg.Telemetry.Environment = tdef.Environment
	}
	if cfg.Telemetry.TraceExporter == "" {
		cfg.Telemetry.TraceExporter = tdef.TraceExporter
	}
	if cfg.Telemetry.MetricExporter == "" {
		cfg.Telemetry.MetricExporter = tdef.MetricExporter
	}
	if cfg.Telemetry.OTLPEndpoint == "" {
		cfg.Telemetry.OTLPEndpoint = tdef.OTLPEndpoint
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = string(logging.FormatAuto)
	}
	return cfg
}

// applyEnvOverrides lets deployment environments override the file.
func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("RACERISK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RACERISK_RESOURCE_DIR"); v != "" {
		cfg.Predictor.ResourceDir = v
	}
	if v := os.Getenv("RACERISK_CLASSIFIER_URL"); v != "" {
		cfg.Predictor.ClassifierEndpoint = v
	}
	if v := os.Getenv("RACERISK_RECORDS_BACKEND"); v != "" {
		cfg.Records.Backend = v
	}
	if v := os.Getenv("RACERISK_RECORDS_PATH"); v != "" {
		cfg.Records.Path = v
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.Telemetry.MetricExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return cfg
}
