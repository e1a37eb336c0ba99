package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSignalUnavailable marks failures of the signal source.
// Engines never turn such a failure into a zero sub-score.
var ErrSignalUnavailable = errors.New("signal source unavailable")

// SignalError wraps a signal source failure with the signal that was being read.
type SignalError struct {
	Signal string
	Err    error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSignalUnavailable, e.Signal, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *SignalError) Unwrap() []error {
	return []error{ErrSignalUnavailable, e.Err}
}

// NewSignalError wraps err, or returns nil when err is nil.
func NewSignalError(signal string, err error) error {
	if err == nil {
		return nil
	}
	return &SignalError{Signal: signal, Err: err}
}

// ShipmentFilter narrows aggregate queries over shipment history.
// Zero values do not filter.
type ShipmentFilter struct {
	AccountID          string
	OriginCountry      string
	DestinationCountry string
	Mode               ShipmentMode
	Statuses           []ShipmentStatus
	CreatedSince       time.Time
}

// SignalSource answers the read-only aggregate queries the engines depend on.
// Retry and timeout policy belongs to implementations, not to the engines.
type SignalSource interface {
	// CountShipments counts shipments matching the filter.
	CountShipments(ctx context.Context, filter ShipmentFilter) (int64, error)

	// AverageDeclaredValue averages the declared value of an account's shipments,
	// skipping the excluded status. Returns 0 when there is no history.
	AverageDeclaredValue(ctx context.Context, accountID string, exclude ShipmentStatus) (float64, error)

	// HasDangerousItems reports whether any item of the shipment is dangerous goods.
	HasDangerousItems(ctx context.Context, shipmentID string) (bool, error)

	// AccountCreatedAt returns the account creation time; ok is false when the
	// account does not exist.
	AccountCreatedAt(ctx context.Context, accountID string) (createdAt time.Time, ok bool, err error)
}

// ShipmentQuery selects shipments to stream through a batch operation.
type ShipmentQuery struct {
	AccountID     string
	Statuses      []ShipmentStatus
	CreatedSince  time.Time
	CreatedBefore time.Time
	Limit         int
}

// ShipmentLister streams shipments for batch scans and reports.
type ShipmentLister interface {
	ListShipments(ctx context.Context, q ShipmentQuery) ([]*Shipment, error)
}
