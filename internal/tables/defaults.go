package tables

import (
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
)

// Default returns the built-in tables. Each call returns a fresh copy.
func Default() *Tables {
	return &Tables{
		Commission: Commission{
			Currency: "SAR",
			Rates: map[string]map[string]RateRule{
				domain.EntityAgent: {
					domain.CategoryInternational: {Rate: 5, Mode: RatePercentage},
					domain.CategoryDomestic:      {Rate: 3, Mode: RatePercentage},
				},
				domain.EntityBranch: {
					domain.CategoryOrigin:      {Rate: 2, Mode: RatePercentage},
					domain.CategoryDestination: {Rate: 1.5, Mode: RatePercentage},
				},
				domain.EntityBroker: {
					domain.CategoryCustomsClearance: {Rate: 150, Mode: RateFixed},
				},
			},
		},
		Fraud: Fraud{
			Weights: map[string]int{
				domain.RuleValueAnomaly:    25,
				domain.RuleVelocityCheck:   20,
				domain.RuleAddressMismatch: 15,
				domain.RuleNewAccount:      15,
				domain.RuleHighInsurance:   10,
				domain.RuleRestrictedGoods: 15,
			},
			DeviationScale: 50,
			VelocityWindow: 24 * time.Hour,
			Velocity: Ladder{
				Steps: []Step{gt(50, 90), gt(20, 50), gt(10, 25)},
			},
			AccountAge: Ladder{
				Steps: []Step{lt(1, 80), lt(7, 50), lt(30, 20)},
			},
			InsuranceRatio: Ladder{
				Steps: []Step{gt(3, 80), gt(1.5, 40)},
			},
			RestrictedGoodsScore: 40,
			Tiers: []TierBand{
				{Tier: domain.TierBlocked, Min: 60},
				{Tier: domain.TierReview, Min: 40},
				{Tier: domain.TierFlag, Min: 20},
			},
			BatchWindow: 24 * time.Hour,
		},
		Pricing: Pricing{
			DefaultOrigin:       "SA",
			DefaultDestination:  "SA",
			DefaultMode:         domain.ModeAir,
			DefaultServiceLevel: domain.ServiceStandard,
			DefaultCurrency:     "SAR",
			Timezone:            "Asia/Riyadh",
			DemandWindow:        24 * time.Hour,
			Demand: Ladder{
				Steps:   []Step{gt(100, 1.25), gt(50, 1.15), gt(20, 1.05), lt(5, 0.90)},
				Default: 1.0,
			},
			Time: TimeBands{
				WeekendDays:   []time.Weekday{time.Friday, time.Saturday},
				Weekend:       0.92,
				BusinessHours: HourRange{From: 9, To: 14},
				Business:      1.10,
				OffHours:      []HourRange{{From: 22, To: 23}, {From: 0, To: 6}},
				OffPeak:       0.88,
				Default:       1.0,
			},
			Season: map[time.Month]float64{
				time.November: 1.20,
				time.December: 1.20,
				time.January:  1.10,
				time.June:     1.05,
				time.July:     1.05,
				time.February: 0.95,
				time.March:    0.95,
			},
			SeasonDefault: 1.0,
			Capacity: map[domain.ShipmentMode]float64{
				domain.ModeAir:  500,
				domain.ModeSea:  2000,
				domain.ModeLand: 1000,
			},
			CapacityDefault: 500,
			Utilization: Ladder{
				Steps:   []Step{gt(0.9, 1.30), gt(0.7, 1.15), gt(0.5, 1.05), lt(0.2, 0.85)},
				Default: 1.0,
			},
			Fuel: map[domain.ShipmentMode]float64{
				domain.ModeAir:  0.18,
				domain.ModeSea:  0.08,
				domain.ModeLand: 0.12,
			},
			FuelDefault: 0.15,
			ServiceLevels: map[string]float64{
				domain.ServiceExpress:  1.8,
				domain.ServiceStandard: 1.0,
				domain.ServiceEconomy:  0.7,
			},
			ServiceDefault: 1.0,
			MinFactor:      0.6,
			MaxFactor:      1.4,
			QuoteTTL:       30 * time.Minute,
		},
	}
}
