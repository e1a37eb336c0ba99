package domain

import "time"

// CommissionType identifies which party a commission line pays.
type CommissionType string

const (
	CommissionAgent             CommissionType = "agent"
	CommissionOriginBranch      CommissionType = "origin_branch"
	CommissionDestinationBranch CommissionType = "destination_branch"
	CommissionCustomsBroker     CommissionType = "customs_broker"
)

// Entity types used as the first key of the rate table.
const (
	EntityAgent  = "agent"
	EntityBranch = "branch"
	EntityBroker = "broker"
)

// Rate table categories.
const (
	CategoryInternational    = "international"
	CategoryDomestic         = "domestic"
	CategoryOrigin           = "origin"
	CategoryDestination      = "destination"
	CategoryCustomsClearance = "customs_clearance"
)

// CommissionLine is a single computed commission for one party.
type CommissionLine struct {
	Type       CommissionType `json:"type"`
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Category   string         `json:"category"`
	Rate       float64        `json:"rate"`
	RateType   string         `json:"rate_type"`
	BaseAmount float64        `json:"base_amount"`
	Commission float64        `json:"commission"`
	Currency   string         `json:"currency"`
}

// CommissionResult is the commission breakdown of one shipment.
type CommissionResult struct {
	ShipmentID      string           `json:"shipment_id"`
	Revenue         float64          `json:"revenue"`
	Commissions     []CommissionLine `json:"commissions"`
	TotalCommission float64          `json:"total_commission"`
	NetRevenue      float64          `json:"net_revenue"`
	MarginPercent   float64          `json:"margin_percent"`
	Currency        string           `json:"currency"`
}

// CommissionReport summarizes commissions for an account over a period.
type CommissionReport struct {
	AccountID       string                     `json:"account_id"`
	From            time.Time                  `json:"from"`
	To              time.Time                  `json:"to"`
	Shipments       int                        `json:"shipments"`
	TotalRevenue    float64                    `json:"total_revenue"`
	TotalCommission float64                    `json:"total_commission"`
	NetRevenue      float64                    `json:"net_revenue"`
	ByType          map[CommissionType]float64 `json:"by_type"`
	Currency        string                     `json:"currency"`
}
