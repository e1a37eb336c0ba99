// Package pricing composes demand, time, capacity, season, fuel and service
// factors into a bounded price quote.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/clock"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/locale"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/money"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/tables"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("cebx-pricing")

// Engine quotes prices. It holds no mutable state.
type Engine struct {
	table  *tables.Pricing
	source domain.SignalSource
	clock  clock.Clock
	loc    *time.Location
}

// NewEngine creates a pricing engine evaluating time bands in the table's timezone.
func NewEngine(table *tables.Pricing, source domain.SignalSource, clk clock.Clock) (*Engine, error) {
	loc, err := table.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing timezone: %w", err)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{
		table:  table,
		source: source,
		clock:  clk,
		loc:    loc,
	}, nil
}

// request is PricingParams with every default resolved.
type request struct {
	basePrice   float64
	origin      string
	destination string
	mode        domain.ShipmentMode
	weight      float64
	service     string
	currency    string
}

func (e *Engine) resolve(p domain.PricingParams) request {
	r := request{
		basePrice:   domain.Value(p.BasePrice),
		origin:      locale.CountryCode(p.OriginCountry),
		destination: locale.CountryCode(p.DestinationCountry),
		mode:        domain.ShipmentMode(strings.ToLower(strings.TrimSpace(string(p.Mode)))),
		weight:      domain.Value(p.Weight),
		service:     strings.ToLower(strings.TrimSpace(p.ServiceLevel)),
		currency:    strings.ToUpper(strings.TrimSpace(p.Currency)),
	}
	if r.origin == "" {
		r.origin = e.table.DefaultOrigin
	}
	if r.destination == "" {
		r.destination = e.table.DefaultDestination
	}
	if r.mode == "" {
		r.mode = e.table.DefaultMode
	}
	if r.service == "" {
		r.service = e.table.DefaultServiceLevel
	}
	if r.currency == "" {
		r.currency = e.table.DefaultCurrency
	}
	return r
}

// Calculate builds a quote. Only signal source failures are returned as errors.
func (e *Engine) Calculate(ctx context.Context, params domain.PricingParams) (*domain.PricingQuote, error) {
	req := e.resolve(params)
	now := e.clock.Now(ctx).UTC()
	local := now.In(e.loc)

	ctx, span := tracer.Start(ctx, "pricing.Calculate")
	defer span.End()
	span.SetAttributes(
		attribute.String("shipment.mode", string(req.mode)),
		attribute.String("route", req.origin+"-"+req.destination),
		attribute.String("service_level", req.service),
	)

	var recent, active int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.source.CountShipments(gctx, domain.ShipmentFilter{
			OriginCountry:      req.origin,
			DestinationCountry: req.destination,
			Mode:               req.mode,
			CreatedSince:       now.Add(-e.table.DemandWindow),
		})
		recent = n
		return domain.NewSignalError("demand", err)
	})
	g.Go(func() error {
		n, err := e.source.CountShipments(gctx, domain.ShipmentFilter{
			Mode:     req.mode,
			Statuses: domain.ActiveStatuses,
		})
		active = n
		return domain.NewSignalError("capacity", err)
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signal source")
		return nil, err
	}

	factors := domain.PricingFactors{
		Demand:   e.table.Demand.Resolve(float64(recent)),
		Time:     e.table.Time.Resolve(local),
		Capacity: e.capacityFactor(req.mode, active),
		Season:   e.table.SeasonFactor(local.Month()),
		Fuel:     e.table.FuelRate(req.mode),
		Service:  e.table.ServiceFactor(req.service),
	}
	combined := Combine(factors, e.table.MinFactor, e.table.MaxFactor)

	quote := &domain.PricingQuote{
		BasePrice:          req.basePrice,
		DynamicPrice:       money.Scale(req.basePrice, combined),
		Currency:           req.currency,
		OriginCountry:      req.origin,
		DestinationCountry: req.destination,
		Mode:               req.mode,
		ServiceLevel:       req.service,
		Weight:             req.weight,
		CalculatedAt:       now,
		ExpiresAt:          now.Add(e.table.QuoteTTL),
	}
	quote.FuelSurcharge = money.Scale(quote.DynamicPrice, factors.Fuel)
	quote.TotalPrice = money.Amount(money.Sum(quote.DynamicPrice, quote.FuelSurcharge))

	switch {
	case combined < 1:
		quote.Savings = money.Amount(money.Sum(req.basePrice, -quote.DynamicPrice))
	case combined > 1:
		quote.Surge = money.Amount(money.Sum(quote.DynamicPrice, -req.basePrice))
	}

	quote.Factors = domain.PricingFactors{
		Demand:   money.Round(factors.Demand, money.FactorPlaces),
		Time:     money.Round(factors.Time, money.FactorPlaces),
		Capacity: money.Round(factors.Capacity, money.FactorPlaces),
		Season:   money.Round(factors.Season, money.FactorPlaces),
		Fuel:     money.Round(factors.Fuel, money.FactorPlaces),
		Service:  money.Round(factors.Service, money.FactorPlaces),
		Combined: money.Round(combined, money.FactorPlaces),
	}

	span.SetAttributes(attribute.Float64("pricing.combined_factor", quote.Factors.Combined))
	return quote, nil
}

func (e *Engine) capacityFactor(mode domain.ShipmentMode, active int64) float64 {
	capacity := e.table.CapacityFor(mode)
	if capacity <= 0 {
		return 1
	}
	return e.table.Utilization.Resolve(float64(active) / capacity)
}

// Combine multiplies the demand, time, capacity, season and service factors
// and clamps the product to [lo, hi]. Fuel is a surcharge and does not take part.
func Combine(f domain.PricingFactors, lo, hi float64) float64 {
	product := f.Demand * f.Time * f.Capacity * f.Season * f.Service
	return min(max(product, lo), hi)
}
