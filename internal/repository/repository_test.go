package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
)

func newSQLite(t *testing.T) *SQLRepository {
	t.Helper()

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "cebx-test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

var base = time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

func seedShipments(t *testing.T, repo *SQLRepository) {
	t.Helper()
	ctx := context.Background()

	shipments := []*domain.Shipment{
		{ID: "s1", TrackingNumber: "CBX-1", AccountID: "acc-1", Status: domain.StatusCreated, Mode: domain.ModeAir,
			OriginCountry: "SA", DestinationCountry: "AE", DeclaredValue: domain.Float(100), CreatedAt: base},
		{ID: "s2", TrackingNumber: "CBX-2", AccountID: "acc-1", Status: domain.StatusInTransit, Mode: domain.ModeAir,
			OriginCountry: "SA", DestinationCountry: "AE", DeclaredValue: domain.Float(300), CreatedAt: base.Add(time.Hour)},
		{ID: "s3", TrackingNumber: "CBX-3", AccountID: "acc-1", Status: domain.StatusCancelled, Mode: domain.ModeSea,
			OriginCountry: "SA", DestinationCountry: "EG", DeclaredValue: domain.Float(5000), CreatedAt: base.Add(2 * time.Hour)},
		{ID: "s4", TrackingNumber: "CBX-4", AccountID: "acc-1", Status: domain.StatusBooked, Mode: domain.ModeAir,
			OriginCountry: "SA", DestinationCountry: "AE", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "s5", TrackingNumber: "CBX-5", AccountID: "acc-2", Status: domain.StatusCreated, Mode: domain.ModeLand,
			OriginCountry: "SA", DestinationCountry: "SA", DeclaredValue: domain.Float(80), CreatedAt: base.Add(-48 * time.Hour)},
	}
	for _, s := range shipments {
		if err := repo.SaveShipment(ctx, s); err != nil {
			t.Fatalf("SaveShipment(%s) failed: %v", s.ID, err)
		}
	}
}

func TestSQLiteRepository(t *testing.T) {
	repo := newSQLite(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetAccount", func(t *testing.T) {
		acc := &domain.Account{ID: "acc-1", Name: "Gulf Traders", CreatedAt: base.Add(-72 * time.Hour)}
		if err := repo.SaveAccount(ctx, acc); err != nil {
			t.Fatalf("SaveAccount failed: %v", err)
		}

		got, err := repo.GetAccount(ctx, "acc-1")
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if got.Name != acc.Name {
			t.Errorf("expected name %s, got %s", acc.Name, got.Name)
		}
		if !got.CreatedAt.Equal(acc.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", acc.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("SaveAndGetShipment", func(t *testing.T) {
		delivered := base.Add(30 * time.Hour)
		s := &domain.Shipment{
			ID:                  "sx",
			TrackingNumber:      "CBX-X",
			AccountID:           "acc-1",
			Status:              domain.StatusDelivered,
			Mode:                domain.ModeSea,
			OriginCountry:       "SA",
			DestinationCountry:  "JO",
			DeclaredValue:       domain.Float(1200.5),
			InsuranceValue:      domain.Float(2400),
			TotalCharges:        domain.Float(980.25),
			AgentID:             "agent-7",
			OriginBranchID:      "br-ruh",
			DestinationBranchID: "br-amm",
			BrokerID:            "brk-1",
			CreatedAt:           base.Add(-5 * 24 * time.Hour),
			DeliveredAt:         &delivered,
			Items: []domain.Item{
				{ID: "sx-1", Description: "batteries", Quantity: 4, DangerousGoods: true},
				{ID: "sx-2", Description: "cables", Quantity: 10},
			},
		}
		if err := repo.SaveShipment(ctx, s); err != nil {
			t.Fatalf("SaveShipment failed: %v", err)
		}

		got, err := repo.GetShipment(ctx, "sx")
		if err != nil {
			t.Fatalf("GetShipment failed: %v", err)
		}
		if got.Status != domain.StatusDelivered || got.Mode != domain.ModeSea {
			t.Errorf("unexpected status/mode %s/%s", got.Status, got.Mode)
		}
		if got.DeclaredValue == nil || *got.DeclaredValue != 1200.5 {
			t.Errorf("expected declared value 1200.5, got %v", got.DeclaredValue)
		}
		if got.Cost != nil {
			t.Errorf("expected nil cost, got %v", *got.Cost)
		}
		if got.DeliveredAt == nil || !got.DeliveredAt.Equal(delivered) {
			t.Errorf("expected delivered_at %v, got %v", delivered, got.DeliveredAt)
		}
		if len(got.Items) != 2 || !got.Items[0].DangerousGoods {
			t.Errorf("expected 2 items with a dangerous first item, got %+v", got.Items)
		}
		if got.BrokerID != "brk-1" {
			t.Errorf("expected broker brk-1, got %s", got.BrokerID)
		}
	})

	t.Run("ItemsLoadedEvenWhenEmpty", func(t *testing.T) {
		_ = repo.SaveShipment(ctx, &domain.Shipment{ID: "sy", TrackingNumber: "CBX-Y", Status: domain.StatusCreated,
			Mode: domain.ModeAir, OriginCountry: "SA", DestinationCountry: "SA", CreatedAt: base})

		got, err := repo.GetShipment(ctx, "sy")
		if err != nil {
			t.Fatalf("GetShipment failed: %v", err)
		}
		if got.Items == nil {
			t.Error("expected a non-nil empty item list")
		}
	})

	t.Run("HasDangerousItems", func(t *testing.T) {
		dg, err := repo.HasDangerousItems(ctx, "sx")
		if err != nil || !dg {
			t.Errorf("expected dangerous items for sx, got %v (err %v)", dg, err)
		}
		dg, err = repo.HasDangerousItems(ctx, "sy")
		if err != nil || dg {
			t.Errorf("expected no dangerous items for sy, got %v (err %v)", dg, err)
		}
	})

	t.Run("UpdateShipmentStatus", func(t *testing.T) {
		at := base.Add(6 * time.Hour)
		if err := repo.UpdateShipmentStatus(ctx, "sy", domain.StatusDelivered, at); err != nil {
			t.Fatalf("UpdateShipmentStatus failed: %v", err)
		}
		got, _ := repo.GetShipment(ctx, "sy")
		if got.Status != domain.StatusDelivered {
			t.Errorf("expected delivered, got %s", got.Status)
		}
		if got.DeliveredAt == nil || !got.DeliveredAt.Equal(at) {
			t.Errorf("expected delivered_at %v, got %v", at, got.DeliveredAt)
		}

		if err := repo.UpdateShipmentStatus(ctx, "nope", domain.StatusBooked, at); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetShipment(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetAccount(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.LatestFraudScan(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("RequiresID", func(t *testing.T) {
		if err := repo.SaveShipment(ctx, &domain.Shipment{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := repo.SaveAccount(ctx, &domain.Account{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestAggregateQueries(t *testing.T) {
	repo := newSQLite(t)
	seedShipments(t, repo)
	ctx := context.Background()

	t.Run("CountShipments", func(t *testing.T) {
		tests := []struct {
			name   string
			filter domain.ShipmentFilter
			want   int64
		}{
			{"All", domain.ShipmentFilter{}, 5},
			{"Account", domain.ShipmentFilter{AccountID: "acc-1"}, 4},
			{"Lane", domain.ShipmentFilter{OriginCountry: "SA", DestinationCountry: "AE", Mode: domain.ModeAir}, 3},
			{"SinceInclusive", domain.ShipmentFilter{AccountID: "acc-1", CreatedSince: base.Add(time.Hour)}, 3},
			{"ActiveStatuses", domain.ShipmentFilter{Mode: domain.ModeAir, Statuses: domain.ActiveStatuses}, 2},
			{"NoMatch", domain.ShipmentFilter{Mode: domain.ModeSea, Statuses: []domain.ShipmentStatus{domain.StatusCreated}}, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				n, err := repo.CountShipments(ctx, tt.filter)
				if err != nil {
					t.Fatalf("CountShipments failed: %v", err)
				}
				if n != tt.want {
					t.Errorf("expected %d, got %d", tt.want, n)
				}
			})
		}
	})

	t.Run("AverageDeclaredValue", func(t *testing.T) {
		// s3 is cancelled and s4 has no declared value.
		avg, err := repo.AverageDeclaredValue(ctx, "acc-1", domain.StatusCancelled)
		if err != nil {
			t.Fatalf("AverageDeclaredValue failed: %v", err)
		}
		if avg != 200 {
			t.Errorf("expected 200, got %v", avg)
		}

		avg, err = repo.AverageDeclaredValue(ctx, "acc-none", domain.StatusCancelled)
		if err != nil || avg != 0 {
			t.Errorf("expected 0 without history, got %v (err %v)", avg, err)
		}
	})

	t.Run("ListShipments", func(t *testing.T) {
		list, err := repo.ListShipments(ctx, domain.ShipmentQuery{
			AccountID:     "acc-1",
			CreatedSince:  base,
			CreatedBefore: base.Add(3 * time.Hour),
		})
		if err != nil {
			t.Fatalf("ListShipments failed: %v", err)
		}

		ids := make([]string, len(list))
		for i, s := range list {
			ids[i] = s.ID
		}
		want := []string{"s1", "s2", "s3"}
		if len(ids) != len(want) {
			t.Fatalf("expected %v, got %v", want, ids)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("expected %v, got %v", want, ids)
				break
			}
		}
		if list[0].Items != nil {
			t.Error("expected items not to be loaded")
		}
	})

	t.Run("ListShipmentsStatusAndLimit", func(t *testing.T) {
		list, err := repo.ListShipments(ctx, domain.ShipmentQuery{
			Statuses: []domain.ShipmentStatus{domain.StatusCreated},
			Limit:    1,
		})
		if err != nil {
			t.Fatalf("ListShipments failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != "s5" {
			t.Errorf("expected oldest created shipment s5, got %+v", list)
		}
	})
}

func TestFraudScans(t *testing.T) {
	repo := newSQLite(t)
	ctx := context.Background()

	first := &domain.FraudScanResult{
		ShipmentID:        "s1",
		FraudScore:        37,
		SubScores:         domain.SubScores{ValueAnomaly: 100, NewAccount: 80},
		Tier:              domain.TierFlag,
		RecommendedAction: "flag",
		ScannedAt:         base,
	}
	second := &domain.FraudScanResult{
		ShipmentID:        "s1",
		FraudScore:        61,
		SubScores:         domain.SubScores{ValueAnomaly: 100, VelocityCheck: 90, RestrictedGoods: 40},
		Tier:              domain.TierBlocked,
		RecommendedAction: "block",
		ScannedAt:         base.Add(time.Hour),
	}

	for _, r := range []*domain.FraudScanResult{first, second} {
		if err := repo.SaveFraudScan(ctx, r); err != nil {
			t.Fatalf("SaveFraudScan failed: %v", err)
		}
	}

	got, err := repo.LatestFraudScan(ctx, "s1")
	if err != nil {
		t.Fatalf("LatestFraudScan failed: %v", err)
	}
	if got.Tier != domain.TierBlocked || got.FraudScore != 61 {
		t.Errorf("expected latest blocked scan, got %+v", got)
	}
	if got.SubScores.VelocityCheck != 90 {
		t.Errorf("expected sub-scores to round-trip, got %+v", got.SubScores)
	}
	if !got.ScannedAt.Equal(second.ScannedAt) {
		t.Errorf("expected scanned_at %v, got %v", second.ScannedAt, got.ScannedAt)
	}

	if err := repo.SaveFraudScan(ctx, &domain.FraudScanResult{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "mysql"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestPostgresDSN(t *testing.T) {
	t.Run("Explicit", func(t *testing.T) {
		dsn := postgresDSN(domain.RepositoryConfig{PostgresDSN: "postgres://u:p@db/cebx", PostgresHost: "ignored"})
		if dsn != "postgres://u:p@db/cebx" {
			t.Errorf("expected explicit DSN, got %s", dsn)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		dsn := postgresDSN(domain.RepositoryConfig{PostgresUser: "cebx"})
		want := "host=localhost port=5432 user=cebx password= dbname=cebx sslmode=disable"
		if dsn != want {
			t.Errorf("expected %q, got %q", want, dsn)
		}
	})
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}

	sqlite := &SQLRepository{driver: "sqlite"}
	if got := sqlite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("expected sqlite query untouched, got %q", got)
	}
}
