// Benchmark tool for replaying labelled shipments against the fraud engine.
//
// Usage:
//
//	go run ./cmd/benchmark -csv /path/to/shipments.csv -url http://localhost:8080
//
// The CSV header must name the columns tracking_number, account_id,
// origin_country, destination_country, mode, declared_value, insurance_value,
// dangerous_goods and is_fraud. Any tier other than clear counts as a
// fraud prediction.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Sample is one labelled shipment.
type Sample struct {
	Shipment domain.Shipment
	IsFraud  bool
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // fraud scored above clear
	FalsePositives int64 // legitimate scored above clear
	TrueNegatives  int64
	FalseNegatives int64 // missed fraud

	TotalProcessed int64
	TotalFraud     int64
	TotalNonFraud  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to the labelled shipment CSV")
	baseURL := flag.String("url", "http://localhost:8080", "CEBX base URL")
	limit := flag.Int("limit", 10000, "Maximum shipments to replay (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each scan result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/shipments.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("CEBX BENCHMARK - fraud scan replay")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("CEBX URL:    %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	client := &http.Client{Timeout: 10 * time.Second}
	if err := checkHealth(client, *baseURL); err != nil {
		fmt.Printf("ERROR: CEBX not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	samples, err := readSamples(file, *limit)
	file.Close()
	if err != nil {
		fmt.Printf("ERROR: failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d shipments\n", len(samples))

	start := time.Now()
	m := runBenchmark(context.Background(), client, *baseURL, samples, *workers, *verbose)
	printResults(m, time.Since(start))
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readSamples(r io.Reader, limit int) ([]Sample, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"tracking_number", "is_fraud"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}

	field := func(record []string, name string) string {
		if i, ok := col[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	amount := func(record []string, name string) *float64 {
		v, err := strconv.ParseFloat(field(record, name), 64)
		if err != nil {
			return nil
		}
		return &v
	}

	var samples []Sample
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}

		s := domain.Shipment{
			TrackingNumber:     field(record, "tracking_number"),
			AccountID:          field(record, "account_id"),
			OriginCountry:      field(record, "origin_country"),
			DestinationCountry: field(record, "destination_country"),
			Mode:               domain.ShipmentMode(field(record, "mode")),
			DeclaredValue:      amount(record, "declared_value"),
			InsuranceValue:     amount(record, "insurance_value"),
			Items: []domain.Item{{
				ID:             "1",
				Quantity:       1,
				DangerousGoods: field(record, "dangerous_goods") == "1",
			}},
		}
		samples = append(samples, Sample{Shipment: s, IsFraud: field(record, "is_fraud") == "1"})

		if limit > 0 && len(samples) >= limit {
			break
		}
	}
	return samples, nil
}

func runBenchmark(ctx context.Context, client *http.Client, baseURL string, samples []Sample, workers int, verbose bool) *Metrics {
	m := &Metrics{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, sample := range samples {
		g.Go(func() error {
			start := time.Now()
			result, err := scan(ctx, client, baseURL, &sample.Shipment)
			atomic.AddInt64(&m.ProcessingTimeMs, time.Since(start).Milliseconds())
			atomic.AddInt64(&m.TotalProcessed, 1)

			if err != nil {
				atomic.AddInt64(&m.TotalErrors, 1)
				if verbose {
					fmt.Printf("ERROR: %s -> %v\n", sample.Shipment.TrackingNumber, err)
				}
				return nil
			}
			m.record(sample.IsFraud, result.Tier != domain.TierClear)

			if verbose {
				fmt.Printf("%-14s | fraud: %-5v | score: %6.2f | tier: %s\n",
					sample.Shipment.TrackingNumber, sample.IsFraud, result.FraudScore, result.Tier)
			}
			return nil
		})
	}
	_ = g.Wait()

	return m
}

func (m *Metrics) record(actual, predicted bool) {
	if actual {
		atomic.AddInt64(&m.TotalFraud, 1)
	} else {
		atomic.AddInt64(&m.TotalNonFraud, 1)
	}

	switch {
	case predicted && actual:
		atomic.AddInt64(&m.TruePositives, 1)
	case predicted:
		atomic.AddInt64(&m.FalsePositives, 1)
	case actual:
		atomic.AddInt64(&m.FalseNegatives, 1)
	default:
		atomic.AddInt64(&m.TrueNegatives, 1)
	}
}

func scan(ctx context.Context, client *http.Client, baseURL string, s *domain.Shipment) (*domain.FraudScanResult, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/fraud/scan", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result domain.FraudScanResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Precision is the share of flagged shipments that were fraud.
func (m *Metrics) Precision() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
}

// Recall is the share of fraud that was flagged.
func (m *Metrics) Recall() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")

	fmt.Printf("\nDATASET\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Fraud:      %d\n", m.TotalFraud)
	fmt.Printf("   Total Non-Fraud:  %d\n", m.TotalNonFraud)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nCONFUSION MATRIX\n")
	fmt.Println("                  flagged     clear")
	fmt.Printf("   fraud       %10d %10d   (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Printf("   legitimate  %10d %10d   (FP, TN)\n", m.FalsePositives, m.TrueNegatives)

	precision, recall := m.Precision(), m.Recall()
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	accuracy := ratio(m.TruePositives+m.TrueNegatives,
		m.TruePositives+m.TrueNegatives+m.FalsePositives+m.FalseNegatives)

	fmt.Printf("\nDETECTION\n")
	fmt.Printf("   Precision:  %.4f\n", precision)
	fmt.Printf("   Recall:     %.4f\n", recall)
	fmt.Printf("   F1-Score:   %.4f\n", f1)
	fmt.Printf("   Accuracy:   %.4f\n", accuracy)

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		fmt.Printf("   Avg Latency:      %.2f ms\n", float64(m.ProcessingTimeMs)/float64(m.TotalProcessed))
		fmt.Printf("   Throughput:       %.2f scans/sec\n", float64(m.TotalProcessed)/duration.Seconds())
	}
	fmt.Println()
}
