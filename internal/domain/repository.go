// Package domain defines the core interfaces and types for the CEBX decision layer.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// It is also the backing store of the signal source.
type Repository interface {
	ShipmentLister

	// Account operations
	SaveAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, accountID string) (*Account, error)

	// Shipment operations
	SaveShipment(ctx context.Context, shipment *Shipment) error
	GetShipment(ctx context.Context, shipmentID string) (*Shipment, error)
	UpdateShipmentStatus(ctx context.Context, shipmentID string, status ShipmentStatus, at time.Time) error

	// Aggregate queries
	CountShipments(ctx context.Context, filter ShipmentFilter) (int64, error)
	AverageDeclaredValue(ctx context.Context, accountID string, exclude ShipmentStatus) (float64, error)
	HasDangerousItems(ctx context.Context, shipmentID string) (bool, error)

	// Risk records
	SaveFraudScan(ctx context.Context, result *FraudScanResult) error
	LatestFraudScan(ctx context.Context, shipmentID string) (*FraudScanResult, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlite_path"`

	// PostgreSQL specific. PostgresDSN wins over the discrete fields.
	PostgresDSN      string `yaml:"postgres_dsn"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}
