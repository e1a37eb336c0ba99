// Package worker reacts to shipment lifecycle events from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/metrics"
)

// Scanner scores shipments for fraud.
type Scanner interface {
	Scan(ctx context.Context, s *domain.Shipment) (*domain.FraudScanResult, error)
	BatchScan(ctx context.Context) (*domain.BatchScanResult, error)
}

// Calculator computes commissions.
type Calculator interface {
	Calculate(s *domain.Shipment) *domain.CommissionResult
}

// Store is the part of the repository the worker touches.
type Store interface {
	GetShipment(ctx context.Context, shipmentID string) (*domain.Shipment, error)
	SaveFraudScan(ctx context.Context, result *domain.FraudScanResult) error
}

// Worker scans created shipments, computes commissions on delivery and
// runs the periodic batch scan.
type Worker struct {
	bus        domain.EventBus
	store      Store
	scanner    Scanner
	calculator Calculator

	mu            sync.Mutex
	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// BatchScanInterval runs BatchScan periodically; zero disables it.
	BatchScanInterval time.Duration
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, store Store, scanner Scanner, calculator Calculator) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:        bus,
		store:      store,
		scanner:    scanner,
		calculator: calculator,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the shipment topics and starts the batch loop.
func (w *Worker) Start(cfg Config) error {
	handlers := []struct {
		topic   string
		handler domain.MessageHandler
	}{
		{domain.TopicShipmentCreated, w.handleCreated},
		{domain.TopicShipmentDelivered, w.handleDelivered},
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, h := range handlers {
		sub, err := w.bus.Subscribe(w.ctx, h.topic, h.handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", h.topic, err)
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	if cfg.BatchScanInterval > 0 {
		w.wg.Add(1)
		go w.batchLoop(cfg.BatchScanInterval)
	}

	slog.Info("worker started",
		"topics", len(w.subscriptions),
		"batch_scan_interval", cfg.BatchScanInterval.String(),
	)

	return nil
}

func (w *Worker) batchLoop(interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunBatchScan(w.ctx); err != nil {
				slog.Error("batch scan failed", "error", err)
			}
		}
	}
}

// RunBatchScan runs one batch scan and publishes its tally.
func (w *Worker) RunBatchScan(ctx context.Context) (*domain.BatchScanResult, error) {
	start := time.Now()

	result, err := w.scanner.BatchScan(ctx)
	if err != nil {
		return nil, err
	}
	metrics.BatchScans.Inc()

	w.publish(ctx, domain.TopicFraudBatch, result)

	slog.Info("batch scan completed",
		"scanned", result.Scanned,
		"flagged", len(result.Flagged),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (w *Worker) shipment(ctx context.Context, msg *domain.Message) (*domain.Shipment, error) {
	var event domain.ShipmentEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse shipment event: %w", err)
	}
	if event.ShipmentID == "" {
		return nil, fmt.Errorf("shipment event %s has no shipment id", msg.ID)
	}

	s, err := w.store.GetShipment(ctx, event.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipment %s: %w", event.ShipmentID, err)
	}
	return s, nil
}

func (w *Worker) handleCreated(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	s, err := w.shipment(ctx, msg)
	if err != nil {
		return err
	}

	result, err := w.scanner.Scan(ctx, s)
	if err != nil {
		metrics.SignalFailures.Inc()
		return fmt.Errorf("failed to scan shipment %s: %w", s.ID, err)
	}
	metrics.ObserveScan(result)

	if err := w.store.SaveFraudScan(ctx, result); err != nil {
		slog.Error("failed to save fraud scan",
			"shipment_id", s.ID,
			"error", err,
		)
	}

	w.publish(ctx, domain.TopicFraudScanned, result)
	if result.Tier != domain.TierClear {
		w.publish(ctx, domain.TopicFraudFlagged, result)
	}

	slog.Info("shipment scanned",
		"shipment_id", s.ID,
		"score", result.FraudScore,
		"tier", result.Tier,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) handleDelivered(ctx context.Context, msg *domain.Message) error {
	s, err := w.shipment(ctx, msg)
	if err != nil {
		return err
	}

	result := w.calculator.Calculate(s)
	metrics.ObserveCommission(result)

	w.publish(ctx, domain.TopicCommissionCalculated, result)

	slog.Info("commission calculated",
		"shipment_id", s.ID,
		"total_commission", result.TotalCommission,
		"lines", len(result.Commissions),
	)
	return nil
}

func (w *Worker) publish(ctx context.Context, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode event", "topic", topic, "error", err)
		return
	}
	if err := w.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil
	w.mu.Unlock()

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscription_count"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
