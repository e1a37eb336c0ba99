package tables

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefaultReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Fraud.Weights[domain.RuleValueAnomaly] = 99
	a.Pricing.Capacity[domain.ModeAir] = 1

	b := Default()
	assert.Equal(t, 25, b.Fraud.Weights[domain.RuleValueAnomaly])
	assert.Equal(t, 500.0, b.Pricing.CapacityFor(domain.ModeAir))
}

func TestLadderResolve(t *testing.T) {
	demand := Default().Pricing.Demand

	tests := []struct {
		count float64
		want  float64
	}{
		{150, 1.25},
		{101, 1.25},
		{100, 1.15},
		{51, 1.15},
		{50, 1.05},
		{21, 1.05},
		{20, 1.0},
		{5, 1.0},
		{4, 0.90},
		{0, 0.90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, demand.Resolve(tt.count), "count=%v", tt.count)
	}
}

func TestFraudLadders(t *testing.T) {
	f := Default().Fraud

	assert.Equal(t, 90.0, f.Velocity.Resolve(51))
	assert.Equal(t, 50.0, f.Velocity.Resolve(50))
	assert.Equal(t, 25.0, f.Velocity.Resolve(11))
	assert.Equal(t, 0.0, f.Velocity.Resolve(10))

	assert.Equal(t, 80.0, f.AccountAge.Resolve(0))
	assert.Equal(t, 50.0, f.AccountAge.Resolve(1))
	assert.Equal(t, 20.0, f.AccountAge.Resolve(29))
	assert.Equal(t, 0.0, f.AccountAge.Resolve(30))

	assert.Equal(t, 80.0, f.InsuranceRatio.Resolve(3.01))
	assert.Equal(t, 40.0, f.InsuranceRatio.Resolve(3))
	assert.Equal(t, 0.0, f.InsuranceRatio.Resolve(1.5))
}

func TestClassify(t *testing.T) {
	f := Default().Fraud

	tests := []struct {
		score float64
		want  domain.Tier
	}{
		{0, domain.TierClear},
		{19.999, domain.TierClear},
		{20, domain.TierFlag},
		{39.999, domain.TierFlag},
		{40, domain.TierReview},
		{59.999, domain.TierReview},
		{60, domain.TierBlocked},
		{100, domain.TierBlocked},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Classify(tt.score), "score=%v", tt.score)
	}
}

func TestCombine(t *testing.T) {
	f := Default().Fraud

	assert.Equal(t, 0.0, f.Combine(domain.SubScores{}))

	all := domain.SubScores{
		ValueAnomaly:    100,
		VelocityCheck:   100,
		AddressMismatch: 100,
		NewAccount:      100,
		HighInsurance:   100,
		RestrictedGoods: 100,
	}
	assert.InDelta(t, 100.0, f.Combine(all), 1e-9)
}

func TestTimeBands(t *testing.T) {
	bands := Default().Pricing.Time
	riyadh, err := time.LoadLocation("Asia/Riyadh")
	require.NoError(t, err)

	// 2026-10-12 is a Monday.
	at := func(day, hour int) time.Time {
		return time.Date(2026, time.October, day, hour, 30, 0, 0, riyadh)
	}

	assert.Equal(t, 1.10, bands.Resolve(at(12, 9)))
	assert.Equal(t, 1.10, bands.Resolve(at(12, 14)))
	assert.Equal(t, 1.0, bands.Resolve(at(12, 15)))
	assert.Equal(t, 1.0, bands.Resolve(at(12, 7)))
	assert.Equal(t, 0.88, bands.Resolve(at(12, 22)))
	assert.Equal(t, 0.88, bands.Resolve(at(12, 3)))
	assert.Equal(t, 0.92, bands.Resolve(at(16, 10)), "friday")
	assert.Equal(t, 0.92, bands.Resolve(at(17, 23)), "saturday")
	assert.Equal(t, 1.10, bands.Resolve(at(18, 10)), "sunday is a working day")
}

func TestPricingLookups(t *testing.T) {
	p := Default().Pricing

	assert.Equal(t, 1.20, p.SeasonFactor(time.December))
	assert.Equal(t, 1.0, p.SeasonFactor(time.October))
	assert.Equal(t, 2000.0, p.CapacityFor(domain.ModeSea))
	assert.Equal(t, 500.0, p.CapacityFor("rail"))
	assert.Equal(t, 0.18, p.FuelRate(domain.ModeAir))
	assert.Equal(t, 0.15, p.FuelRate("rail"))
	assert.Equal(t, 1.8, p.ServiceFactor(domain.ServiceExpress))
	assert.Equal(t, 1.0, p.ServiceFactor("overnight"))
}

func TestCommissionLookup(t *testing.T) {
	c := Default().Commission

	rule, ok := c.Lookup(domain.EntityBroker, domain.CategoryCustomsClearance)
	require.True(t, ok)
	assert.Equal(t, RateFixed, rule.Mode)
	assert.Equal(t, 150.0, rule.Rate)

	_, ok = c.Lookup(domain.EntityAgent, "regional")
	assert.False(t, ok)
	_, ok = c.Lookup("carrier", domain.CategoryDomestic)
	assert.False(t, ok)
}

func TestParseOverlaysDefaults(t *testing.T) {
	tb, err := Parse([]byte(`
commission:
  rates:
    agent:
      international: {rate: 7.5, mode: percentage, when: "shipment.mode == 'sea'"}
fraud:
  weights:
    restricted_goods: 30
pricing:
  timezone: UTC
  quote_ttl: 15m
  fuel:
    air: 0.2
`))
	require.NoError(t, err)

	rule, ok := tb.Commission.Lookup(domain.EntityAgent, domain.CategoryInternational)
	require.True(t, ok)
	assert.Equal(t, 7.5, rule.Rate)
	assert.Equal(t, "shipment.mode == 'sea'", rule.When)

	// Untouched entries keep their defaults.
	_, ok = tb.Commission.Lookup(domain.EntityBroker, domain.CategoryCustomsClearance)
	assert.True(t, ok)
	assert.Equal(t, "SAR", tb.Commission.Currency)

	assert.Equal(t, 30, tb.Fraud.Weights[domain.RuleRestrictedGoods])
	assert.Equal(t, 25, tb.Fraud.Weights[domain.RuleValueAnomaly])
	assert.Equal(t, 15*time.Minute, tb.Pricing.QuoteTTL)
	assert.Equal(t, 0.2, tb.Pricing.FuelRate(domain.ModeAir))
	assert.Equal(t, 0.08, tb.Pricing.FuelRate(domain.ModeSea))
}

func TestParseRejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative weight", "fraud: {weights: {velocity_check: -1}}"},
		{"unordered tiers", "fraud: {tiers: [{tier: flag, min: 20}, {tier: blocked, min: 60}]}"},
		{"unknown tier", "fraud: {tiers: [{tier: blokced, min: 60}, {tier: review, min: 40}, {tier: flag, min: 20}, {tier: clear, min: 0}]}"},
		{"unknown op", "pricing: {demand: {steps: [{op: between, bound: 1, value: 2}]}}"},
		{"inverted band", "pricing: {min_factor: 1.5, max_factor: 1.4}"},
		{"zero capacity", "pricing: {capacity: {air: 0}}"},
		{"bad timezone", "pricing: {timezone: Mars/Olympus}"},
		{"empty currency", "commission: {currency: ''}"},
		{"malformed", "fraud: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseNamesUnknownTier(t *testing.T) {
	_, err := Parse([]byte("fraud: {tiers: [{tier: blocked, min: 60}, {tier: reveiw, min: 40}, {tier: clear, min: 0}]}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `fraud.tiers[1]: unknown tier "reveiw"`)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("CEBX_TEST_CURRENCY", "AED")

	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commission:\n  currency: ${CEBX_TEST_CURRENCY}\n"), 0o600))

	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AED", tb.Commission.Currency)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
