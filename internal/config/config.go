// Package config loads the service configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"gopkg.in/yaml.v3"
)

// Environment variables read on top of the file.
const (
	EnvConfig = "CEBX_CONFIG"
	EnvDebug  = "CEBX_DEBUG"
	EnvDBPath = "CEBX_DB_PATH"
)

// Load reads a YAML config over the defaults, then applies env overrides.
// An empty path yields the defaults. ${VAR} references in the file are expanded.
func Load(path string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	if path != "" {
		// #nosec G304 -- path is operator-provided config path.
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		expanded := os.ExpandEnv(string(raw))
		expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	ApplyEnv(cfg, os.Getenv)
	return cfg, Validate(cfg)
}

// FromEnv loads the file named by CEBX_CONFIG, or the defaults when it is unset.
func FromEnv() (*domain.Config, error) {
	return Load(os.Getenv(EnvConfig))
}

// ApplyEnv applies the environment overrides.
func ApplyEnv(cfg *domain.Config, getenv func(string) string) {
	if getenv(EnvDebug) == "true" {
		cfg.Logging.Level = "debug"
	}
	if p := getenv(EnvDBPath); p != "" {
		cfg.Repository.SQLitePath = p
	}
}

// Validate checks the settings the service cannot start without.
func Validate(cfg *domain.Config) error {
	var errs []error

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}

	switch cfg.Repository.Driver {
	case "sqlite", "":
	case "postgres":
		if cfg.Repository.PostgresDSN == "" && cfg.Repository.PostgresUser == "" {
			errs = append(errs, errors.New("repository.postgres_dsn or repository.postgres_user is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("repository.driver %q is not supported", cfg.Repository.Driver))
	}

	switch cfg.Cache.Type {
	case "memory", "", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.type %q is not supported", cfg.Cache.Type))
	}

	switch cfg.EventBus.Type {
	case "channel", "", "nats":
	default:
		errs = append(errs, fmt.Errorf("event_bus.type %q is not supported", cfg.EventBus.Type))
	}

	if cfg.Engines.BatchWorkers < 0 {
		errs = append(errs, errors.New("engines.batch_workers must not be negative"))
	}
	if cfg.Engines.SignalCacheTTL < 0 {
		errs = append(errs, errors.New("engines.signal_cache_ttl must not be negative"))
	}
	if cfg.Worker.BatchScanInterval < 0 {
		errs = append(errs, errors.New("worker.batch_scan_interval must not be negative"))
	}

	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel maps a logging level name to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level %q is not supported", level)
	}
	return l, nil
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg domain.LoggingConfig, w io.Writer) *slog.Logger {
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
