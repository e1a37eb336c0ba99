package domain

import "time"

// Config holds the complete service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"event_bus"`

	// Engines
	Engines EnginesConfig `yaml:"engines"`

	// Async worker
	Worker WorkerConfig `yaml:"worker"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
}

// EnginesConfig selects the rate tables and engine tunables.
type EnginesConfig struct {
	// TablesPath points at a YAML rate/weight/factor table file.
	// Empty means the built-in tables.
	TablesPath string `yaml:"tables_path"`

	// Locale of the recommended action text: "ar" or "en".
	Locale string `yaml:"locale"`

	// BatchWorkers bounds the fraud batch scan worker pool.
	BatchWorkers int `yaml:"batch_workers"`

	// SignalCacheTTL caches shipment counts; zero disables caching.
	SignalCacheTTL time.Duration `yaml:"signal_cache_ttl"`
}

// WorkerConfig holds async worker settings.
type WorkerConfig struct {
	Enabled bool `yaml:"enabled"`

	// BatchScanInterval runs a periodic fraud batch scan; zero disables it.
	BatchScanInterval time.Duration `yaml:"batch_scan_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// DefaultConfig returns a single-node configuration backed by SQLite,
// an in-memory cache and a channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./cebx.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engines: EnginesConfig{
			Locale:         "ar",
			BatchWorkers:   8,
			SignalCacheTTL: 30 * time.Second,
		},
		Worker: WorkerConfig{
			Enabled:           true,
			BatchScanInterval: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "cebx",
		},
	}
}
