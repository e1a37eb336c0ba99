package domain

import (
	"strings"
	"time"
)

// ShipmentMode is the transport mode of a shipment.
type ShipmentMode string

const (
	ModeAir  ShipmentMode = "air"
	ModeSea  ShipmentMode = "sea"
	ModeLand ShipmentMode = "land"
)

// ShipmentStatus is the lifecycle status of a shipment.
type ShipmentStatus string

const (
	StatusCreated     ShipmentStatus = "created"
	StatusBooked      ShipmentStatus = "booked"
	StatusAtOriginHub ShipmentStatus = "at_origin_hub"
	StatusInTransit   ShipmentStatus = "in_transit"
	StatusDelivered   ShipmentStatus = "delivered"
	StatusCancelled   ShipmentStatus = "cancelled"
)

// ActiveStatuses are the statuses that consume carrier capacity.
var ActiveStatuses = []ShipmentStatus{StatusBooked, StatusInTransit, StatusAtOriginHub}

// Shipment is the shipment fact the engines read. Engines never mutate it.
type Shipment struct {
	// Core identifiers
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	AccountID      string `json:"account_id,omitempty"`

	Status ShipmentStatus `json:"status"`
	Mode   ShipmentMode   `json:"mode"`

	OriginCountry      string `json:"origin_country"`
	DestinationCountry string `json:"destination_country"`

	// Financial details. Nil means the value was never captured.
	DeclaredValue  *float64 `json:"declared_value,omitempty"`
	InsuranceValue *float64 `json:"insurance_value,omitempty"`
	TotalCharges   *float64 `json:"total_charges,omitempty"`
	Cost           *float64 `json:"cost,omitempty"`

	// Parties. Empty string means the party is not assigned.
	AgentID             string `json:"agent_id,omitempty"`
	OriginBranchID      string `json:"origin_branch_id,omitempty"`
	DestinationBranchID string `json:"destination_branch_id,omitempty"`
	BrokerID            string `json:"broker_id,omitempty"`

	// Temporal
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	// Items is nil when the item list was not loaded with the shipment.
	Items []Item `json:"items,omitempty"`
}

// Item is a single line of a shipment.
type Item struct {
	ID             string `json:"id"`
	Description    string `json:"description,omitempty"`
	Quantity       int    `json:"quantity"`
	DangerousGoods bool   `json:"dangerous_goods"`
}

// Account is the shipper account a shipment belongs to.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// International reports whether the shipment crosses a border.
func (s *Shipment) International() bool {
	return !strings.EqualFold(strings.TrimSpace(s.OriginCountry), strings.TrimSpace(s.DestinationCountry))
}

// Revenue resolves the revenue figure: total charges, then cost, then 0.
func (s *Shipment) Revenue() float64 {
	if s.TotalCharges != nil {
		return *s.TotalCharges
	}
	if s.Cost != nil {
		return *s.Cost
	}
	return 0
}

// HasDangerousItems reports whether any loaded item carries the dangerous-goods flag.
// The second return value is false when items were not loaded.
func (s *Shipment) HasDangerousItems() (bool, bool) {
	if s.Items == nil {
		return false, false
	}
	for _, item := range s.Items {
		if item.DangerousGoods {
			return true, true
		}
	}
	return false, true
}

// Float returns a pointer to v. Handy for optional amounts.
func Float(v float64) *float64 {
	return &v
}

// Value dereferences an optional amount, defaulting to 0.
func Value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
