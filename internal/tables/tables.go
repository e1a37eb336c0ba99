// Package tables holds the rate, weight and factor tables the engines read.
//
// Tables are built once at startup, either from Default or from a YAML file,
// and are shared read-only by every engine afterwards.
package tables

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"gopkg.in/yaml.v3"
)

// RateMode selects how a rate rule turns a base amount into a commission.
type RateMode string

const (
	RatePercentage RateMode = "percentage"
	RateFixed      RateMode = "fixed"
)

// RateRule is the rate of one (entity, category) pair.
type RateRule struct {
	Rate float64  `yaml:"rate"`
	Mode RateMode `yaml:"mode"`

	// When is an optional CEL predicate over the shipment. Empty always applies.
	When string `yaml:"when,omitempty"`
}

// Commission is the commission rate table.
type Commission struct {
	Currency string `yaml:"currency"`

	// Rates is keyed by entity type, then category.
	Rates map[string]map[string]RateRule `yaml:"rates"`
}

// Lookup returns the rate rule for an entity type and category.
func (c *Commission) Lookup(entity, category string) (RateRule, bool) {
	byCategory, ok := c.Rates[entity]
	if !ok {
		return RateRule{}, false
	}
	rule, ok := byCategory[category]
	return rule, ok
}

// TierBand assigns Tier to scores at or above Min.
type TierBand struct {
	Tier domain.Tier `yaml:"tier"`
	Min  float64     `yaml:"min"`
}

// Fraud is the fraud rule table.
type Fraud struct {
	// Weights per rule name. They need not sum to 100.
	Weights map[string]int `yaml:"weights"`

	// Value anomaly: relative deviation times DeviationScale, capped at 100.
	DeviationScale float64 `yaml:"deviation_scale"`

	// Velocity counts the account's shipments over VelocityWindow.
	VelocityWindow time.Duration `yaml:"velocity_window"`
	Velocity       Ladder        `yaml:"velocity"`

	// AccountAge is keyed by account age in whole days.
	AccountAge Ladder `yaml:"account_age"`

	// InsuranceRatio is keyed by insurance value over declared value.
	InsuranceRatio Ladder `yaml:"insurance_ratio"`

	RestrictedGoodsScore float64 `yaml:"restricted_goods_score"`

	// Tiers ordered by descending Min; scores below every band are clear.
	Tiers []TierBand `yaml:"tiers"`

	// BatchWindow bounds how far back a batch scan looks.
	BatchWindow time.Duration `yaml:"batch_window"`
}

// Combine folds sub-scores into the weighted fraud score:
// the sum over rules of subScore/100 times the rule weight.
func (f *Fraud) Combine(s domain.SubScores) float64 {
	var total float64
	for _, rule := range domain.FraudRules {
		total += s.ByRule(rule) / 100 * float64(f.Weights[rule])
	}
	return total
}

// Classify returns the first tier whose lower bound the score reaches.
func (f *Fraud) Classify(score float64) domain.Tier {
	for _, band := range f.Tiers {
		if score >= band.Min {
			return band.Tier
		}
	}
	return domain.TierClear
}

// HourRange is an inclusive range of hours of the day.
type HourRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

func (r HourRange) contains(hour int) bool {
	return hour >= r.From && hour <= r.To
}

// TimeBands maps the local day and hour to a multiplier.
type TimeBands struct {
	WeekendDays   []time.Weekday `yaml:"weekend_days"`
	Weekend       float64        `yaml:"weekend"`
	BusinessHours HourRange      `yaml:"business_hours"`
	Business      float64        `yaml:"business"`
	OffHours      []HourRange    `yaml:"off_hours"`
	OffPeak       float64        `yaml:"off_peak"`
	Default       float64        `yaml:"default"`
}

// Resolve returns the multiplier for a local time. Weekend wins over hours.
func (t TimeBands) Resolve(local time.Time) float64 {
	for _, d := range t.WeekendDays {
		if local.Weekday() == d {
			return t.Weekend
		}
	}
	hour := local.Hour()
	if t.BusinessHours.contains(hour) {
		return t.Business
	}
	for _, r := range t.OffHours {
		if r.contains(hour) {
			return t.OffPeak
		}
	}
	return t.Default
}

// Pricing is the dynamic pricing factor table.
type Pricing struct {
	DefaultOrigin       string              `yaml:"default_origin"`
	DefaultDestination  string              `yaml:"default_destination"`
	DefaultMode         domain.ShipmentMode `yaml:"default_mode"`
	DefaultServiceLevel string              `yaml:"default_service_level"`
	DefaultCurrency     string              `yaml:"default_currency"`

	// Timezone the time and season factors are evaluated in.
	Timezone string `yaml:"timezone"`

	DemandWindow time.Duration `yaml:"demand_window"`
	Demand       Ladder        `yaml:"demand"`

	Time TimeBands `yaml:"time"`

	Season        map[time.Month]float64 `yaml:"season"`
	SeasonDefault float64                `yaml:"season_default"`

	Capacity        map[domain.ShipmentMode]float64 `yaml:"capacity"`
	CapacityDefault float64                         `yaml:"capacity_default"`
	Utilization     Ladder                          `yaml:"utilization"`

	Fuel        map[domain.ShipmentMode]float64 `yaml:"fuel"`
	FuelDefault float64                         `yaml:"fuel_default"`

	ServiceLevels  map[string]float64 `yaml:"service_levels"`
	ServiceDefault float64            `yaml:"service_default"`

	MinFactor float64       `yaml:"min_factor"`
	MaxFactor float64       `yaml:"max_factor"`
	QuoteTTL  time.Duration `yaml:"quote_ttl"`
}

// SeasonFactor returns the multiplier for a month.
func (p *Pricing) SeasonFactor(m time.Month) float64 {
	if v, ok := p.Season[m]; ok {
		return v
	}
	return p.SeasonDefault
}

// CapacityFor returns the capacity constant of a mode.
func (p *Pricing) CapacityFor(mode domain.ShipmentMode) float64 {
	if v, ok := p.Capacity[mode]; ok {
		return v
	}
	return p.CapacityDefault
}

// FuelRate returns the fuel surcharge rate of a mode.
func (p *Pricing) FuelRate(mode domain.ShipmentMode) float64 {
	if v, ok := p.Fuel[mode]; ok {
		return v
	}
	return p.FuelDefault
}

// ServiceFactor returns the multiplier of a service level.
func (p *Pricing) ServiceFactor(level string) float64 {
	if v, ok := p.ServiceLevels[level]; ok {
		return v
	}
	return p.ServiceDefault
}

// Location resolves Timezone, falling back to UTC.
func (p *Pricing) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(p.Timezone)
}

// Tables bundles every table the engines need.
type Tables struct {
	Commission Commission `yaml:"commission"`
	Fraud      Fraud      `yaml:"fraud"`
	Pricing    Pricing    `yaml:"pricing"`
}

// Load reads a YAML table file on top of the defaults.
// Environment variables in the file are expanded.
func Load(path string) (*Tables, error) {
	// #nosec G304 -- path is the operator-provided tables path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes YAML tables on top of the defaults and validates the result.
func Parse(data []byte) (*Tables, error) {
	t := Default()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the tables for values the engines cannot work with.
func (t *Tables) Validate() error {
	var errs []error

	if strings.TrimSpace(t.Commission.Currency) == "" {
		errs = append(errs, errors.New("commission.currency is required"))
	}

	for _, rule := range domain.FraudRules {
		w, ok := t.Fraud.Weights[rule]
		if !ok {
			errs = append(errs, fmt.Errorf("fraud.weights.%s is required", rule))
			continue
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("fraud.weights.%s must not be negative", rule))
		}
	}
	if len(t.Fraud.Tiers) == 0 {
		errs = append(errs, errors.New("fraud.tiers must not be empty"))
	}
	for i, band := range t.Fraud.Tiers {
		if !slices.Contains(domain.Tiers, band.Tier) {
			errs = append(errs, fmt.Errorf("fraud.tiers[%d]: unknown tier %q", i, band.Tier))
		}
	}
	if !sort.SliceIsSorted(t.Fraud.Tiers, func(i, j int) bool { return t.Fraud.Tiers[i].Min > t.Fraud.Tiers[j].Min }) {
		errs = append(errs, errors.New("fraud.tiers must be ordered by descending min"))
	}
	errs = append(errs,
		t.Fraud.Velocity.validate("fraud.velocity"),
		t.Fraud.AccountAge.validate("fraud.account_age"),
		t.Fraud.InsuranceRatio.validate("fraud.insurance_ratio"),
		t.Pricing.Demand.validate("pricing.demand"),
		t.Pricing.Utilization.validate("pricing.utilization"),
	)

	p := t.Pricing
	if p.MinFactor <= 0 || p.MinFactor > p.MaxFactor {
		errs = append(errs, fmt.Errorf("pricing factor band [%v, %v] is invalid", p.MinFactor, p.MaxFactor))
	}
	for mode, c := range p.Capacity {
		if c <= 0 {
			errs = append(errs, fmt.Errorf("pricing.capacity.%s must be positive", mode))
		}
	}
	if p.CapacityDefault <= 0 {
		errs = append(errs, errors.New("pricing.capacity_default must be positive"))
	}
	if p.QuoteTTL <= 0 {
		errs = append(errs, errors.New("pricing.quote_ttl must be positive"))
	}
	if _, err := p.Location(); err != nil {
		errs = append(errs, fmt.Errorf("pricing.timezone: %w", err))
	}

	return errors.Join(errs...)
}
