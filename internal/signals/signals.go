// Package signals answers the engines' aggregate queries from the repository.
package signals

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/cache"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/metrics"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/repository"
)

// Store is the subset of the repository the signal source reads.
type Store interface {
	CountShipments(ctx context.Context, filter domain.ShipmentFilter) (int64, error)
	AverageDeclaredValue(ctx context.Context, accountID string, exclude domain.ShipmentStatus) (float64, error)
	HasDangerousItems(ctx context.Context, shipmentID string) (bool, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// Source implements domain.SignalSource.
//
// Shipment counts are cached for ttl. The window start of a cached count is
// rounded up to a multiple of ttl so that concurrent callers share a key; a
// count never covers more history than asked for, and may cover up to ttl less.
type Source struct {
	store Store
	cache domain.Cache
	ttl   time.Duration
}

// NewSource creates a signal source. A nil cache or zero ttl disables caching.
func NewSource(store Store, c domain.Cache, ttl time.Duration) *Source {
	return &Source{
		store: store,
		cache: c,
		ttl:   ttl,
	}
}

// CountShipments counts shipments matching the filter.
func (s *Source) CountShipments(ctx context.Context, filter domain.ShipmentFilter) (int64, error) {
	if s.cache == nil || s.ttl <= 0 {
		return s.count(ctx, filter)
	}

	if !filter.CreatedSince.IsZero() {
		filter.CreatedSince = ceil(filter.CreatedSince.UTC(), s.ttl)
	}
	key := countKey(filter)

	var n int64
	hit, err := cache.GetJSON(ctx, s.cache, key, &n)
	if err != nil {
		slog.Debug("signal cache read failed", "key", key, "error", err)
	}
	if hit {
		metrics.SignalCacheHits.Inc()
		return n, nil
	}
	metrics.SignalCacheMisses.Inc()

	n, err = s.count(ctx, filter)
	if err != nil {
		return 0, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, n, s.ttl); err != nil {
		slog.Debug("signal cache write failed", "key", key, "error", err)
	}
	return n, nil
}

func (s *Source) count(ctx context.Context, filter domain.ShipmentFilter) (int64, error) {
	n, err := s.store.CountShipments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count shipments: %w", err)
	}
	return n, nil
}

// AverageDeclaredValue averages an account's declared values, skipping one status.
func (s *Source) AverageDeclaredValue(ctx context.Context, accountID string, exclude domain.ShipmentStatus) (float64, error) {
	avg, err := s.store.AverageDeclaredValue(ctx, accountID, exclude)
	if err != nil {
		return 0, fmt.Errorf("failed to average declared value: %w", err)
	}
	return avg, nil
}

// HasDangerousItems reports whether a shipment carries dangerous goods.
func (s *Source) HasDangerousItems(ctx context.Context, shipmentID string) (bool, error) {
	ok, err := s.store.HasDangerousItems(ctx, shipmentID)
	if err != nil {
		return false, fmt.Errorf("failed to check dangerous items: %w", err)
	}
	return ok, nil
}

// AccountCreatedAt returns the account's creation time; ok is false for unknown accounts.
func (s *Source) AccountCreatedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get account: %w", err)
	}
	return account.CreatedAt, true, nil
}

// ceil rounds t up to a multiple of d.
func ceil(t time.Time, d time.Duration) time.Time {
	floor := t.Truncate(d)
	if floor.Before(t) {
		return floor.Add(d)
	}
	return floor
}

func countKey(f domain.ShipmentFilter) string {
	statuses := make([]string, len(f.Statuses))
	for i, st := range f.Statuses {
		statuses[i] = string(st)
	}
	var since string
	if !f.CreatedSince.IsZero() {
		since = f.CreatedSince.Format(time.RFC3339)
	}

	raw := strings.Join([]string{
		f.AccountID,
		f.OriginCountry,
		f.DestinationCountry,
		string(f.Mode),
		strings.Join(statuses, ","),
		since,
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return "count:" + hex.EncodeToString(sum[:12])
}

var _ domain.SignalSource = (*Source)(nil)
