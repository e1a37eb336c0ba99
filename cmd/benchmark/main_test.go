package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
)

const sampleCSV = `tracking_number,account_id,origin_country,destination_country,mode,declared_value,insurance_value,dangerous_goods,is_fraud
CBX-1,acc-1,SA,AE,air,100,400,1,1
CBX-2,acc-2,SA,SA,land,250,,0,0
CBX-3,acc-3,SA,SA,sea,oops,,0,1
`

func TestReadSamples(t *testing.T) {
	samples, err := readSamples(strings.NewReader(sampleCSV), 0)
	if err != nil {
		t.Fatalf("failed to read samples: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}

	first := samples[0]
	if !first.IsFraud || first.Shipment.InsuranceValue == nil || *first.Shipment.InsuranceValue != 400 {
		t.Errorf("unexpected first sample %+v", first)
	}
	if !first.Shipment.Items[0].DangerousGoods {
		t.Error("expected dangerous goods on first sample")
	}
	if samples[1].Shipment.InsuranceValue != nil {
		t.Error("expected empty insurance to stay nil")
	}
	if samples[2].Shipment.DeclaredValue != nil {
		t.Error("expected unparseable amount to stay nil")
	}

	limited, _ := readSamples(strings.NewReader(sampleCSV), 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}

	if _, err := readSamples(strings.NewReader("a,b\n1,2\n"), 0); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestRunBenchmark(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s domain.Shipment
		_ = json.NewDecoder(r.Body).Decode(&s)

		tier := domain.TierClear
		if s.TrackingNumber == "CBX-1" || s.TrackingNumber == "CBX-2" {
			tier = domain.TierFlag
		}
		_ = json.NewEncoder(w).Encode(domain.FraudScanResult{Tier: tier})
	}))
	defer server.Close()

	samples, _ := readSamples(strings.NewReader(sampleCSV), 0)
	m := runBenchmark(context.Background(), server.Client(), server.URL, samples, 2, false)

	if m.TotalProcessed != 3 || m.TotalErrors != 0 {
		t.Fatalf("expected 3 processed without errors, got %d/%d", m.TotalProcessed, m.TotalErrors)
	}
	if m.TruePositives != 1 || m.FalsePositives != 1 || m.FalseNegatives != 1 || m.TrueNegatives != 0 {
		t.Errorf("unexpected confusion matrix %+v", m)
	}
	if m.Precision() != 0.5 || m.Recall() != 0.5 {
		t.Errorf("expected precision and recall of 0.5, got %v/%v", m.Precision(), m.Recall())
	}
}
