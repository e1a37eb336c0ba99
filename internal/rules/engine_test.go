package rules

import (
	"sync"
	"testing"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/tables"
)

func testShipment() *domain.Shipment {
	return &domain.Shipment{
		ID:                 "shp-001",
		AccountID:          "acc-001",
		Mode:               domain.ModeSea,
		Status:             domain.StatusDelivered,
		OriginCountry:      "SA",
		DestinationCountry: "AE",
		DeclaredValue:      domain.Float(4000),
		TotalCharges:       domain.Float(2500),
		AgentID:            "agent-7",
		Items: []domain.Item{
			{ID: "it-1", Quantity: 2},
			{ID: "it-2", Quantity: 1, DangerousGoods: true},
		},
	}
}

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	if engine.Compiled() != 0 {
		t.Errorf("expected 0 programs, got %d", engine.Compiled())
	}
}

func TestEmptyPredicateAlwaysApplies(t *testing.T) {
	engine, _ := NewEngine()

	ok, err := engine.Applies(testShipment(), domain.CommissionAgent, tables.RateRule{Rate: 5, Mode: tables.RatePercentage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected rule without predicate to apply")
	}
	if engine.Compiled() != 0 {
		t.Errorf("expected no program for empty predicate, got %d", engine.Compiled())
	}
}

func TestPredicates(t *testing.T) {
	engine, _ := NewEngine()
	s := testShipment()

	tests := []struct {
		name  string
		when  string
		party domain.CommissionType
		want  bool
	}{
		{"mode match", "shipment.mode == 'sea'", domain.CommissionAgent, true},
		{"mode mismatch", "mode == 'air'", domain.CommissionAgent, false},
		{"revenue threshold", "revenue >= 2500.0", domain.CommissionAgent, true},
		{"international", "international && shipment.destination_country == 'AE'", domain.CommissionAgent, true},
		{"party", "party == 'customs_broker'", domain.CommissionAgent, false},
		{"dangerous goods", "shipment.dangerous_goods == true", domain.CommissionAgent, true},
		{"declared value", "declared_value > 5000.0", domain.CommissionAgent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Applies(s, tt.party, tables.RateRule{Rate: 1, Mode: tables.RatePercentage, When: tt.when})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestInvalidPredicate(t *testing.T) {
	engine, _ := NewEngine()

	if err := engine.Compile("this is not valid CEL !!!"); err == nil {
		t.Error("expected error for invalid CEL expression")
	}
	if err := engine.Compile("revenue * 2.0"); err == nil {
		t.Error("expected error for non-bool predicate")
	}
	if engine.Compiled() != 0 {
		t.Errorf("expected failed predicates not to be cached, got %d", engine.Compiled())
	}
}

func TestProgramsAreCached(t *testing.T) {
	engine, _ := NewEngine()
	rule := tables.RateRule{Rate: 2, Mode: tables.RatePercentage, When: "revenue > 100.0"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Applies(testShipment(), domain.CommissionOriginBranch, rule); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if engine.Compiled() != 1 {
		t.Errorf("expected 1 cached program, got %d", engine.Compiled())
	}
}

func TestCompileTables(t *testing.T) {
	engine, _ := NewEngine()

	c := tables.Default().Commission
	c.Rates[domain.EntityAgent][domain.CategoryInternational] = tables.RateRule{
		Rate: 5, Mode: tables.RatePercentage, When: "shipment.mode != 'land'",
	}
	if err := engine.CompileTables(&c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Compiled() != 1 {
		t.Errorf("expected 1 cached program, got %d", engine.Compiled())
	}

	c.Rates[domain.EntityBroker][domain.CategoryCustomsClearance] = tables.RateRule{
		Rate: 150, Mode: tables.RateFixed, When: "revenue +",
	}
	if err := engine.CompileTables(&c); err == nil {
		t.Error("expected error for broken predicate in table")
	}
}
