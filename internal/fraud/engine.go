// Package fraud scores shipments for fraud risk and classifies them into action tiers.
package fraud

import (
	"context"
	"math"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/clock"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/money"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/tables"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("cebx-fraud")

const maxScore = 100

// Actions resolves the recommended action text of a tier.
type Actions interface {
	Action(tier domain.Tier) string
}

// Engine scores shipments. It holds no mutable state.
type Engine struct {
	table   *tables.Fraud
	source  domain.SignalSource
	lister  domain.ShipmentLister
	actions Actions
	clock   clock.Clock
	workers int
}

// NewEngine creates a fraud engine. The lister is only needed by BatchScan;
// workers bounds its concurrency.
func NewEngine(table *tables.Fraud, source domain.SignalSource, lister domain.ShipmentLister, actions Actions, clk clock.Clock, workers int) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		table:   table,
		source:  source,
		lister:  lister,
		actions: actions,
		clock:   clk,
		workers: workers,
	}
}

// Scan scores one shipment. Only signal source failures are returned as errors.
func (e *Engine) Scan(ctx context.Context, s *domain.Shipment) (*domain.FraudScanResult, error) {
	now := e.clock.Now(ctx).UTC()

	ctx, span := tracer.Start(ctx, "fraud.Scan")
	defer span.End()
	span.SetAttributes(attribute.String("shipment.id", s.ID))

	var subs domain.SubScores
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subs.ValueAnomaly, err = e.valueAnomaly(gctx, s)
		return err
	})
	g.Go(func() (err error) {
		subs.VelocityCheck, err = e.velocity(gctx, s, now)
		return err
	})
	g.Go(func() (err error) {
		subs.NewAccount, err = e.newAccount(gctx, s, now)
		return err
	})
	g.Go(func() (err error) {
		subs.RestrictedGoods, err = e.restrictedGoods(gctx, s)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signal source")
		return nil, err
	}

	// No geocoding source exists, so address mismatch never contributes.
	subs.AddressMismatch = 0
	subs.HighInsurance = e.highInsurance(s)

	// Tiers come from the unrounded score; only the reported value is rounded.
	raw := e.weighted(subs)
	score := money.Round(raw, 2)
	tier := e.Classify(raw)
	subs.ValueAnomaly = money.Round(subs.ValueAnomaly, 2)

	span.SetAttributes(
		attribute.Float64("fraud.score", score),
		attribute.String("fraud.tier", string(tier)),
	)

	return &domain.FraudScanResult{
		ShipmentID:        s.ID,
		FraudScore:        score,
		SubScores:         subs,
		Tier:              tier,
		RecommendedAction: e.action(tier),
		ScannedAt:         now,
	}, nil
}

// Combine returns the weighted fraud score, clamped to [0, 100] and rounded
// to two decimals.
func (e *Engine) Combine(subs domain.SubScores) float64 {
	return money.Round(e.weighted(subs), 2)
}

func (e *Engine) weighted(subs domain.SubScores) float64 {
	return min(max(e.table.Combine(subs), 0), maxScore)
}

// Classify maps a score to its tier. Bands are closed at the lower bound.
func (e *Engine) Classify(score float64) domain.Tier {
	return e.table.Classify(score)
}

func (e *Engine) action(tier domain.Tier) string {
	if e.actions == nil {
		return ""
	}
	return e.actions.Action(tier)
}

func (e *Engine) valueAnomaly(ctx context.Context, s *domain.Shipment) (float64, error) {
	if s.DeclaredValue == nil || s.AccountID == "" {
		return 0, nil
	}
	avg, err := e.source.AverageDeclaredValue(ctx, s.AccountID, domain.StatusCancelled)
	if err != nil {
		return 0, domain.NewSignalError("average_declared_value", err)
	}
	if avg == 0 {
		return 0, nil
	}
	deviation := math.Abs(*s.DeclaredValue-avg) / avg
	return min(deviation*e.table.DeviationScale, maxScore), nil
}

func (e *Engine) velocity(ctx context.Context, s *domain.Shipment, now time.Time) (float64, error) {
	if s.AccountID == "" {
		return 0, nil
	}
	n, err := e.source.CountShipments(ctx, domain.ShipmentFilter{
		AccountID:    s.AccountID,
		CreatedSince: now.Add(-e.table.VelocityWindow),
	})
	if err != nil {
		return 0, domain.NewSignalError("velocity", err)
	}
	return e.table.Velocity.Resolve(float64(n)), nil
}

func (e *Engine) newAccount(ctx context.Context, s *domain.Shipment, now time.Time) (float64, error) {
	var days float64
	if s.AccountID != "" {
		createdAt, ok, err := e.source.AccountCreatedAt(ctx, s.AccountID)
		if err != nil {
			return 0, domain.NewSignalError("account_age", err)
		}
		if ok && now.After(createdAt) {
			days = math.Floor(now.Sub(createdAt).Hours() / 24)
		}
	}
	return e.table.AccountAge.Resolve(days), nil
}

func (e *Engine) highInsurance(s *domain.Shipment) float64 {
	declared := domain.Value(s.DeclaredValue)
	if declared <= 0 {
		return e.table.InsuranceRatio.Resolve(0)
	}
	return e.table.InsuranceRatio.Resolve(domain.Value(s.InsuranceValue) / declared)
}

func (e *Engine) restrictedGoods(ctx context.Context, s *domain.Shipment) (float64, error) {
	dangerous, loaded := s.HasDangerousItems()
	if !loaded && s.ID != "" {
		var err error
		dangerous, err = e.source.HasDangerousItems(ctx, s.ID)
		if err != nil {
			return 0, domain.NewSignalError("restricted_goods", err)
		}
	}
	if dangerous {
		return e.table.RestrictedGoodsScore, nil
	}
	return 0, nil
}

// BatchScan scores every shipment still in "created" status within the batch
// window. Tallies cover all tiers; the flagged list keeps retrieval order.
func (e *Engine) BatchScan(ctx context.Context) (*domain.BatchScanResult, error) {
	now := e.clock.Now(ctx).UTC()

	ctx, span := tracer.Start(ctx, "fraud.BatchScan")
	defer span.End()

	shipments, err := e.lister.ListShipments(ctx, domain.ShipmentQuery{
		Statuses:     []domain.ShipmentStatus{domain.StatusCreated},
		CreatedSince: now.Add(-e.table.BatchWindow),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list created shipments")
		return nil, domain.NewSignalError("created_shipments", err)
	}

	results := make([]*domain.FraudScanResult, len(shipments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range shipments {
		g.Go(func() error {
			r, err := e.Scan(gctx, s)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan")
		return nil, err
	}

	batch := &domain.BatchScanResult{
		Scanned:   len(shipments),
		Tiers:     make(map[domain.Tier]int, len(domain.Tiers)),
		Flagged:   []domain.FlaggedShipment{},
		ScannedAt: now,
	}
	for _, tier := range domain.Tiers {
		batch.Tiers[tier] = 0
	}
	for i, r := range results {
		batch.Tiers[r.Tier]++
		if r.Tier == domain.TierClear {
			continue
		}
		batch.Flagged = append(batch.Flagged, domain.FlaggedShipment{
			ID:             shipments[i].ID,
			TrackingNumber: shipments[i].TrackingNumber,
			Score:          r.FraudScore,
			Tier:           r.Tier,
		})
	}

	span.SetAttributes(
		attribute.Int("fraud.scanned", batch.Scanned),
		attribute.Int("fraud.flagged", len(batch.Flagged)),
	)
	return batch, nil
}
