// Package app assembles the decision layer from a configuration.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/api"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/bus"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/cache"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/clock"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/commission"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/fraud"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/locale"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/pricing"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/repository"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/rules"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/signals"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/tables"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// App holds the wired components.
type App struct {
	Config     *domain.Config
	Tables     *tables.Tables
	Repository *repository.SQLRepository
	Cache      domain.Cache
	Bus        domain.EventBus
	Source     *signals.Source

	Fraud      *fraud.Engine
	Pricing    *pricing.Engine
	Commission *commission.Engine
}

// New opens storage, cache and bus, loads the tables and builds the engines.
// On error everything opened so far is closed again.
func New(cfg *domain.Config, clk clock.Clock) (app *App, err error) {
	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	if cfg.Tracing.Enabled {
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	app.Tables = tables.Default()
	if cfg.Engines.TablesPath != "" {
		if app.Tables, err = tables.Load(cfg.Engines.TablesPath); err != nil {
			return app, err
		}
	}

	if app.Repository, err = repository.New(cfg.Repository); err != nil {
		return app, fmt.Errorf("failed to initialize repository: %w", err)
	}
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	if app.Cache, err = cache.New(cfg.Cache); err != nil {
		return app, fmt.Errorf("failed to initialize cache: %w", err)
	}
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	if app.Bus, err = bus.New(cfg.EventBus); err != nil {
		return app, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	app.Source = signals.NewSource(app.Repository, app.Cache, cfg.Engines.SignalCacheTTL)

	predicates, err := rules.NewEngine()
	if err != nil {
		return app, fmt.Errorf("failed to initialize predicate engine: %w", err)
	}
	if err := predicates.CompileTables(&app.Tables.Commission); err != nil {
		return app, err
	}

	actions, err := locale.New(cfg.Engines.Locale)
	if err != nil {
		return app, err
	}

	app.Fraud = fraud.NewEngine(&app.Tables.Fraud, app.Source, app.Repository, actions, clk, cfg.Engines.BatchWorkers)
	app.Commission = commission.NewEngine(&app.Tables.Commission, predicates, app.Repository)
	if app.Pricing, err = pricing.NewEngine(&app.Tables.Pricing, app.Source, clk); err != nil {
		return app, err
	}

	slog.Info("engines initialized",
		"locale", actions.Language().String(),
		"predicates", predicates.Compiled(),
		"tables", tablesSource(cfg.Engines.TablesPath),
	)
	return app, nil
}

// Engines returns the engines in the shape the HTTP layer takes.
func (a *App) Engines() api.Engines {
	return api.Engines{
		Fraud:      a.Fraud,
		Pricing:    a.Pricing,
		Commission: a.Commission,
	}
}

// Close releases the bus, cache and repository.
func (a *App) Close() error {
	var errs []error
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Repository != nil {
		errs = append(errs, a.Repository.Close())
	}
	return errors.Join(errs...)
}

func tablesSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
