package domain

import "time"

// Service levels accepted by the pricing engine.
const (
	ServiceExpress  = "express"
	ServiceStandard = "standard"
	ServiceEconomy  = "economy"
)

// PricingParams is the input of a price quote. Empty or nil fields
// take the defaults of the pricing table.
type PricingParams struct {
	BasePrice          *float64     `json:"base_price,omitempty"`
	OriginCountry      string       `json:"origin_country,omitempty"`
	DestinationCountry string       `json:"destination_country,omitempty"`
	Mode               ShipmentMode `json:"mode,omitempty"`
	Weight             *float64     `json:"weight,omitempty"`
	ServiceLevel       string       `json:"service_level,omitempty"`
	Currency           string       `json:"currency,omitempty"`
}

// PricingFactors are the multipliers that produced a quote.
type PricingFactors struct {
	Demand   float64 `json:"demand"`
	Time     float64 `json:"time"`
	Capacity float64 `json:"capacity"`
	Season   float64 `json:"season"`
	Fuel     float64 `json:"fuel"`
	Service  float64 `json:"service"`
	Combined float64 `json:"combined"`
}

// PricingQuote is a priced offer valid until ExpiresAt.
type PricingQuote struct {
	BasePrice          float64        `json:"base_price"`
	DynamicPrice       float64        `json:"dynamic_price"`
	FuelSurcharge      float64        `json:"fuel_surcharge"`
	TotalPrice         float64        `json:"total_price"`
	Currency           string         `json:"currency"`
	Factors            PricingFactors `json:"factors"`
	Savings            float64        `json:"savings"`
	Surge              float64        `json:"surge"`
	OriginCountry      string         `json:"origin_country"`
	DestinationCountry string         `json:"destination_country"`
	Mode               ShipmentMode   `json:"mode"`
	ServiceLevel       string         `json:"service_level"`
	Weight             float64        `json:"weight"`
	CalculatedAt       time.Time      `json:"calculated_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
}
