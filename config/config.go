// Package config loads BubbleMind settings from YAML and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment selects logging defaults and hot reloading.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the full application configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development production"`
	LogLevel    string      `yaml:"log_level" validate:"required,oneof=debug info warn error"`

	Backend Backend `yaml:"backend"`
	Server  Server  `yaml:"server"`
	Canvas  Canvas  `yaml:"canvas"`
}

// Backend configures the REST client used by the canvas.
type Backend struct {
	URL       string  `yaml:"url" validate:"required,url"`
	TimeoutMS int     `yaml:"timeout_ms" validate:"gt=0"`
	Breaker   Breaker `yaml:"breaker"`
}

// Breaker configures the client's circuit breaker.
type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"gte=1"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Server configures the reference REST server.
type Server struct {
	Addr string `yaml:"addr" validate:"required"`
	// RedisURL selects the Redis repository; empty keeps records in memory.
	RedisURL       string   `yaml:"redis_url" validate:"omitempty,url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	OCRTexts       []string `yaml:"ocr_texts"`
}

// Canvas configures the desktop front end.
type Canvas struct {
	Width      int     `yaml:"width" validate:"gt=0"`
	Height     int     `yaml:"height" validate:"gt=0"`
	DPR        float64 `yaml:"dpr" validate:"gte=0"` // 0 asks the monitor
	CaptureDir string  `yaml:"capture_dir"`
	Script     string  `yaml:"script"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Backend: Backend{
			URL:       "http://localhost:9999",
			TimeoutMS: 5000,
			Breaker: Breaker{
				MaxRequests:      1,
				Interval:         30 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 0.8,
				MinRequests:      5,
			},
		},
		Server: Server{
			Addr:           ":9999",
			AllowedOrigins: []string{"*"},
		},
		Canvas: Canvas{
			Width:  1280,
			Height: 800,
		},
	}
}

// Timeout is the backend call window.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutMS) * time.Millisecond
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads path over the defaults, applies BUBBLEMIND_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BUBBLEMIND_ENV"); v != "" {
		cfg.Environment = Environment(strings.ToLower(v))
	}
	if v := os.Getenv("BUBBLEMIND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("BUBBLEMIND_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("BUBBLEMIND_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUBBLEMIND_TIMEOUT_MS: %w", err)
		}
		cfg.Backend.TimeoutMS = ms
	}
	if v := os.Getenv("BUBBLEMIND_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BUBBLEMIND_REDIS_URL"); v != "" {
		cfg.Server.RedisURL = v
	}
	return nil
}

// NewLogger builds a zap logger for the environment and level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	return c.BuildLogger(zap.NewAtomicLevelAt(level))
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// BuildLogger builds a logger whose level is controlled by level, so a
// config reload can change verbosity without rebuilding the logger.
func (c *Config) BuildLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	var zc zap.Config
	if c.Environment == Production {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
