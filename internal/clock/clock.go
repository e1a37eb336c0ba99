// Package clock provides the time source injected into time-dependent engines.
package clock

import (
	"context"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// System reads the wall clock in UTC.
type System struct{}

func (System) Now(ctx context.Context) time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now(ctx context.Context) time.Time {
	return time.Time(f)
}
