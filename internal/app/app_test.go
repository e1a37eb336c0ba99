package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/clock"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
)

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	cfg := domain.DefaultConfig()
	cfg.Repository.SQLitePath = filepath.Join(t.TempDir(), "app.db")
	cfg.Engines.Locale = "en"
	return cfg
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)

	a, err := New(testConfig(t), clock.Fixed(now))
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	defer a.Close()

	engines := a.Engines()
	if engines.Fraud == nil || engines.Pricing == nil || engines.Commission == nil {
		t.Fatal("expected all engines to be wired")
	}

	quote, err := a.Pricing.Calculate(context.Background(), domain.PricingParams{BasePrice: domain.Float(100)})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.Currency != "SAR" {
		t.Errorf("expected SAR, got %s", quote.Currency)
	}
}

func TestNewWithTablesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engines.TablesPath = filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(cfg.Engines.TablesPath, []byte("commission:\n  currency: USD\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	a, err := New(cfg, clock.System{})
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	defer a.Close()

	if a.Tables.Commission.Currency != "USD" {
		t.Errorf("expected USD, got %s", a.Tables.Commission.Currency)
	}
}

func TestNewFailures(t *testing.T) {
	t.Run("MissingTables", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Engines.TablesPath = filepath.Join(t.TempDir(), "missing.yaml")
		if _, err := New(cfg, clock.System{}); err == nil {
			t.Error("expected error for missing tables file")
		}
	})

	t.Run("InvalidLocale", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Engines.Locale = "not a locale!"
		if _, err := New(cfg, clock.System{}); err == nil {
			t.Error("expected error for invalid locale")
		}
	})

	t.Run("UnknownBus", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.EventBus.Type = "carrier-pigeon"
		if _, err := New(cfg, clock.System{}); err == nil {
			t.Error("expected error for unknown bus type")
		}
	})
}
