package domain

import "time"

// Tier is the action bucket a fraud score falls into.
type Tier string

const (
	TierClear   Tier = "clear"
	TierFlag    Tier = "flag"
	TierReview  Tier = "review"
	TierBlocked Tier = "blocked"
)

// Tiers lists every tier from least to most severe.
var Tiers = []Tier{TierClear, TierFlag, TierReview, TierBlocked}

// Fraud rule names, also the keys of the weight table.
const (
	RuleValueAnomaly    = "value_anomaly"
	RuleVelocityCheck   = "velocity_check"
	RuleAddressMismatch = "address_mismatch"
	RuleNewAccount      = "new_account"
	RuleHighInsurance   = "high_insurance"
	RuleRestrictedGoods = "restricted_goods"
)

// FraudRules lists the rule names in evaluation order.
var FraudRules = []string{
	RuleValueAnomaly,
	RuleVelocityCheck,
	RuleAddressMismatch,
	RuleNewAccount,
	RuleHighInsurance,
	RuleRestrictedGoods,
}

// SubScores holds the six independent 0-100 indicators.
type SubScores struct {
	ValueAnomaly    float64 `json:"value_anomaly"`
	VelocityCheck   float64 `json:"velocity_check"`
	AddressMismatch float64 `json:"address_mismatch"`
	NewAccount      float64 `json:"new_account"`
	HighInsurance   float64 `json:"high_insurance"`
	RestrictedGoods float64 `json:"restricted_goods"`
}

// ByRule returns the sub-score stored under a rule name.
func (s SubScores) ByRule(rule string) float64 {
	switch rule {
	case RuleValueAnomaly:
		return s.ValueAnomaly
	case RuleVelocityCheck:
		return s.VelocityCheck
	case RuleAddressMismatch:
		return s.AddressMismatch
	case RuleNewAccount:
		return s.NewAccount
	case RuleHighInsurance:
		return s.HighInsurance
	case RuleRestrictedGoods:
		return s.RestrictedGoods
	default:
		return 0
	}
}

// FraudScanResult is the outcome of scanning one shipment.
type FraudScanResult struct {
	ShipmentID        string    `json:"shipment_id"`
	FraudScore        float64   `json:"fraud_score"`
	SubScores         SubScores `json:"sub_scores"`
	Tier              Tier      `json:"tier"`
	RecommendedAction string    `json:"recommended_action"`
	ScannedAt         time.Time `json:"scanned_at"`
}

// FlaggedShipment is the lightweight record kept for non-clear batch results.
type FlaggedShipment struct {
	ID             string  `json:"id"`
	TrackingNumber string  `json:"tracking_number"`
	Score          float64 `json:"score"`
	Tier           Tier    `json:"tier"`
}

// BatchScanResult tallies a batch scan.
type BatchScanResult struct {
	Scanned   int               `json:"scanned"`
	Tiers     map[Tier]int      `json:"tiers"`
	Flagged   []FlaggedShipment `json:"flagged"`
	ScannedAt time.Time         `json:"scanned_at"`
}
