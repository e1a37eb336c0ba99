package signals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/cache"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/repository"
)

type fakeStore struct {
	mu      sync.Mutex
	count   int64
	calls   int
	filters []domain.ShipmentFilter
	err     error
	account *domain.Account
}

func (f *fakeStore) CountShipments(_ context.Context, filter domain.ShipmentFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.filters = append(f.filters, filter)
	return f.count, f.err
}

func (f *fakeStore) AverageDeclaredValue(context.Context, string, domain.ShipmentStatus) (float64, error) {
	return 250, f.err
}

func (f *fakeStore) HasDangerousItems(context.Context, string) (bool, error) {
	return true, f.err
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.account == nil || f.account.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.account, nil
}

func TestCountShipmentsCaching(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{count: 7}
	src := NewSource(store, cache.NewLRUCache(100), time.Minute)

	since := time.Date(2026, 10, 12, 9, 30, 15, 0, time.UTC)
	filter := domain.ShipmentFilter{OriginCountry: "SA", DestinationCountry: "AE", Mode: domain.ModeAir, CreatedSince: since}

	for i := 0; i < 3; i++ {
		n, err := src.CountShipments(ctx, filter)
		if err != nil {
			t.Fatalf("CountShipments failed: %v", err)
		}
		if n != 7 {
			t.Errorf("expected 7, got %d", n)
		}
	}
	if store.calls != 1 {
		t.Errorf("expected 1 store call, got %d", store.calls)
	}

	t.Run("RoundsWindowStartUp", func(t *testing.T) {
		want := time.Date(2026, 10, 12, 9, 31, 0, 0, time.UTC)
		got := store.filters[0].CreatedSince
		if !got.Equal(want) {
			t.Errorf("expected window start %v, got %v", want, got)
		}
		if got.Before(since) {
			t.Errorf("window start %v covers more history than %v", got, since)
		}

		// A few seconds later still lands in the same minute.
		later := filter
		later.CreatedSince = since.Add(20 * time.Second)
		_, _ = src.CountShipments(ctx, later)
		if store.calls != 1 {
			t.Errorf("expected cached count, got %d store calls", store.calls)
		}
	})

	t.Run("DistinctFiltersMiss", func(t *testing.T) {
		other := filter
		other.Mode = domain.ModeSea
		_, _ = src.CountShipments(ctx, other)
		if store.calls != 2 {
			t.Errorf("expected 2 store calls, got %d", store.calls)
		}
	})
}

func TestCountShipmentsAlignedWindow(t *testing.T) {
	store := &fakeStore{}
	src := NewSource(store, cache.NewLRUCache(100), time.Minute)

	since := time.Date(2026, 10, 12, 9, 30, 0, 0, time.UTC)
	_, _ = src.CountShipments(context.Background(), domain.ShipmentFilter{CreatedSince: since})

	if got := store.filters[0].CreatedSince; !got.Equal(since) {
		t.Errorf("expected aligned window start to stay %v, got %v", since, got)
	}
}

func TestCountShipmentsWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{count: 3}
	src := NewSource(store, nil, time.Minute)

	since := time.Date(2026, 10, 12, 9, 30, 15, 0, time.UTC)
	_, _ = src.CountShipments(ctx, domain.ShipmentFilter{CreatedSince: since})
	_, _ = src.CountShipments(ctx, domain.ShipmentFilter{CreatedSince: since})

	if store.calls != 2 {
		t.Errorf("expected 2 store calls, got %d", store.calls)
	}
	if !store.filters[0].CreatedSince.Equal(since) {
		t.Error("expected window start to be passed through untouched")
	}
}

func TestCountShipmentsErrorNotCached(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{err: errors.New("connection refused")}
	src := NewSource(store, cache.NewLRUCache(100), time.Minute)

	if _, err := src.CountShipments(ctx, domain.ShipmentFilter{AccountID: "acc-1"}); err == nil {
		t.Fatal("expected error")
	}

	store.err = nil
	store.count = 4
	n, err := src.CountShipments(ctx, domain.ShipmentFilter{AccountID: "acc-1"})
	if err != nil {
		t.Fatalf("CountShipments failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
}

func TestAccountCreatedAt(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{account: &domain.Account{ID: "acc-1", CreatedAt: created}}
	src := NewSource(store, nil, 0)

	t.Run("Known", func(t *testing.T) {
		at, ok, err := src.AccountCreatedAt(ctx, "acc-1")
		if err != nil || !ok {
			t.Fatalf("expected account, got ok=%v err=%v", ok, err)
		}
		if !at.Equal(created) {
			t.Errorf("expected %v, got %v", created, at)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, ok, err := src.AccountCreatedAt(ctx, "acc-2")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Error("expected ok=false for unknown account")
		}
	})

	t.Run("Failure", func(t *testing.T) {
		store.err = errors.New("timeout")
		defer func() { store.err = nil }()

		if _, _, err := src.AccountCreatedAt(ctx, "acc-1"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestPassThroughQueries(t *testing.T) {
	ctx := context.Background()
	src := NewSource(&fakeStore{}, nil, 0)

	avg, err := src.AverageDeclaredValue(ctx, "acc-1", domain.StatusCancelled)
	if err != nil || avg != 250 {
		t.Errorf("expected 250, got %v (err %v)", avg, err)
	}

	dg, err := src.HasDangerousItems(ctx, "s1")
	if err != nil || !dg {
		t.Errorf("expected dangerous items, got %v (err %v)", dg, err)
	}
}
