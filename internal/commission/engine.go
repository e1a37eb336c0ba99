// Package commission splits shipment revenue into per-party commission lines.
package commission

import (
	"context"
	"log/slog"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/money"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/tables"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("cebx-commission")

// Predicates decides whether a rate rule with a `when` predicate applies.
type Predicates interface {
	Applies(s *domain.Shipment, party domain.CommissionType, rule tables.RateRule) (bool, error)
}

// Engine computes commissions from a read-only rate table.
type Engine struct {
	table      *tables.Commission
	predicates Predicates
	lister     domain.ShipmentLister
}

// NewEngine creates a commission engine. The lister is only needed by Report.
func NewEngine(table *tables.Commission, predicates Predicates, lister domain.ShipmentLister) *Engine {
	return &Engine{
		table:      table,
		predicates: predicates,
		lister:     lister,
	}
}

type party struct {
	typ      domain.CommissionType
	id       string
	entity   string
	category string
}

// parties lists the commissionable parties present on a shipment.
func parties(s *domain.Shipment) []party {
	out := make([]party, 0, 4)
	if s.AgentID != "" {
		category := domain.CategoryDomestic
		if s.International() {
			category = domain.CategoryInternational
		}
		out = append(out, party{domain.CommissionAgent, s.AgentID, domain.EntityAgent, category})
	}
	if s.OriginBranchID != "" {
		out = append(out, party{domain.CommissionOriginBranch, s.OriginBranchID, domain.EntityBranch, domain.CategoryOrigin})
	}
	if s.DestinationBranchID != "" {
		out = append(out, party{domain.CommissionDestinationBranch, s.DestinationBranchID, domain.EntityBranch, domain.CategoryDestination})
	}
	if s.BrokerID != "" {
		out = append(out, party{domain.CommissionCustomsBroker, s.BrokerID, domain.EntityBroker, domain.CategoryCustomsClearance})
	}
	return out
}

// Calculate computes the commission breakdown of a shipment. It never fails:
// missing amounts count as 0 and parties without an applicable rule are skipped.
func (e *Engine) Calculate(s *domain.Shipment) *domain.CommissionResult {
	revenue := s.Revenue()

	result := &domain.CommissionResult{
		ShipmentID:  s.ID,
		Revenue:     revenue,
		Commissions: []domain.CommissionLine{},
		Currency:    e.table.Currency,
	}

	amounts := make([]float64, 0, 4)
	for _, p := range parties(s) {
		line, ok := e.line(s, p, revenue)
		if !ok {
			continue
		}
		result.Commissions = append(result.Commissions, line)
		amounts = append(amounts, line.Commission)
	}

	result.TotalCommission = money.Amount(money.Sum(amounts...))
	result.NetRevenue = money.Amount(money.Sum(revenue, -result.TotalCommission))
	if revenue > 0 {
		result.MarginPercent = money.Round(result.NetRevenue/revenue*100, money.PercentPlaces)
	}

	return result
}

func (e *Engine) line(s *domain.Shipment, p party, base float64) (domain.CommissionLine, bool) {
	rule, ok := e.table.Lookup(p.entity, p.category)
	if !ok {
		return domain.CommissionLine{}, false
	}

	if rule.When != "" {
		if e.predicates == nil {
			slog.Warn("rate rule predicate ignored, no predicate engine",
				"shipment_id", s.ID,
				"type", p.typ,
			)
			return domain.CommissionLine{}, false
		}
		applies, err := e.predicates.Applies(s, p.typ, rule)
		if err != nil {
			slog.Warn("rate rule predicate failed",
				"shipment_id", s.ID,
				"type", p.typ,
				"error", err,
			)
			return domain.CommissionLine{}, false
		}
		if !applies {
			return domain.CommissionLine{}, false
		}
	}

	var commission float64
	switch rule.Mode {
	case tables.RatePercentage:
		commission = money.Percent(base, rule.Rate)
	case tables.RateFixed:
		commission = money.Amount(rule.Rate)
	}

	return domain.CommissionLine{
		Type:       p.typ,
		EntityID:   p.id,
		EntityType: p.entity,
		Category:   p.category,
		Rate:       rule.Rate,
		RateType:   string(rule.Mode),
		BaseAmount: base,
		Commission: commission,
		Currency:   e.table.Currency,
	}, true
}

// Report sums the commissions of an account's delivered shipments created
// between the start of from and the end of to, both taken as UTC dates.
func (e *Engine) Report(ctx context.Context, accountID string, from, to time.Time) (*domain.CommissionReport, error) {
	start, end := dayStart(from), dayStart(to).AddDate(0, 0, 1)

	ctx, span := tracer.Start(ctx, "commission.Report")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.String("report.from", start.Format(time.DateOnly)),
		attribute.String("report.to", dayStart(to).Format(time.DateOnly)),
	)

	shipments, err := e.lister.ListShipments(ctx, domain.ShipmentQuery{
		AccountID:     accountID,
		Statuses:      []domain.ShipmentStatus{domain.StatusDelivered},
		CreatedSince:  start,
		CreatedBefore: end,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list delivered shipments")
		return nil, domain.NewSignalError("delivered_shipments", err)
	}

	var revenue, commission, net money.Accumulator
	byType := make(map[domain.CommissionType]*money.Accumulator)

	for _, s := range shipments {
		r := e.Calculate(s)
		revenue.Add(r.Revenue)
		commission.Add(r.TotalCommission)
		net.Add(r.NetRevenue)
		for _, line := range r.Commissions {
			acc, ok := byType[line.Type]
			if !ok {
				acc = &money.Accumulator{}
				byType[line.Type] = acc
			}
			acc.Add(line.Commission)
		}
	}

	report := &domain.CommissionReport{
		AccountID:       accountID,
		From:            start,
		To:              dayStart(to),
		Shipments:       len(shipments),
		TotalRevenue:    revenue.Total(),
		TotalCommission: commission.Total(),
		NetRevenue:      net.Total(),
		ByType:          make(map[domain.CommissionType]float64, len(byType)),
		Currency:        e.table.Currency,
	}
	for typ, acc := range byType {
		report.ByType[typ] = acc.Total()
	}

	span.SetAttributes(attribute.Int("report.shipments", report.Shipments))
	return report, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
