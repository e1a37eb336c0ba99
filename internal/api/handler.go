package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/metrics"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/repository"
)

const dateLayout = "2006-01-02"

// FraudScanner scores shipments.
type FraudScanner interface {
	Scan(ctx context.Context, s *domain.Shipment) (*domain.FraudScanResult, error)
	BatchScan(ctx context.Context) (*domain.BatchScanResult, error)
}

// Quoter prices shipments.
type Quoter interface {
	Calculate(ctx context.Context, params domain.PricingParams) (*domain.PricingQuote, error)
}

// Commissioner computes commissions and period reports.
type Commissioner interface {
	Calculate(s *domain.Shipment) *domain.CommissionResult
	Report(ctx context.Context, accountID string, from, to time.Time) (*domain.CommissionReport, error)
}

// Engines bundles the three decision engines.
type Engines struct {
	Fraud      FraudScanner
	Pricing    Quoter
	Commission Commissioner
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engines Engines
	version string
	now     func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engines Engines, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		engines: engines,
		version: version,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready handles GET /ready. The service is ready once storage answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"ready": "false"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"ready": "true"})
}

// CreateShipment handles POST /shipments.
func (h *Handler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var s domain.Shipment
	if !decode(w, r, &s) {
		return
	}

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = domain.StatusCreated
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = h.now()
	}

	if err := h.repo.SaveShipment(r.Context(), &s); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r.Context(), domain.TopicShipmentCreated, s.ID)

	writeJSON(w, http.StatusCreated, &s)
}

// MarkDelivered handles POST /shipments/{id}/delivered.
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	at := h.now()

	if err := h.repo.UpdateShipmentStatus(r.Context(), id, domain.StatusDelivered, at); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r.Context(), domain.TopicShipmentDelivered, id)

	writeJSON(w, http.StatusOK, map[string]any{
		"shipment_id":  id,
		"status":       domain.StatusDelivered,
		"delivered_at": at,
	})
}

// ShipmentCommission handles GET /shipments/{id}/commission.
func (h *Handler) ShipmentCommission(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.GetShipment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	result := h.engines.Commission.Calculate(s)
	metrics.ObserveCommission(result)
	writeJSON(w, http.StatusOK, result)
}

// ShipmentFraudScan handles POST /shipments/{id}/fraud-scan and records the verdict.
func (h *Handler) ShipmentFraudScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, err := h.repo.GetShipment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, ok := h.scan(ctx, w, s)
	if !ok {
		return
	}

	if err := h.repo.SaveFraudScan(ctx, result); err != nil {
		slog.Error("failed to save fraud scan",
			"shipment_id", s.ID,
			"error", err,
		)
	}

	writeJSON(w, http.StatusOK, result)
}

// CalculateCommission handles POST /commission/calculate.
func (h *Handler) CalculateCommission(w http.ResponseWriter, r *http.Request) {
	var s domain.Shipment
	if !decode(w, r, &s) {
		return
	}

	result := h.engines.Commission.Calculate(&s)
	metrics.ObserveCommission(result)
	writeJSON(w, http.StatusOK, result)
}

// CommissionReport handles GET /accounts/{id}/commission-report?from=&to=.
func (h *Handler) CommissionReport(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be a YYYY-MM-DD date"})
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be a YYYY-MM-DD date"})
		return
	}

	report, err := h.engines.Commission.Report(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Quote handles POST /pricing/quote. An empty body prices the defaults.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var params domain.PricingParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON request body"})
		return
	}

	quote, err := h.engines.Pricing.Calculate(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ObserveQuote(quote)
	writeJSON(w, http.StatusOK, quote)
}

// FraudScan handles POST /fraud/scan for an unsaved shipment.
func (h *Handler) FraudScan(w http.ResponseWriter, r *http.Request) {
	var s domain.Shipment
	if !decode(w, r, &s) {
		return
	}

	if result, ok := h.scan(r.Context(), w, &s); ok {
		writeJSON(w, http.StatusOK, result)
	}
}

// BatchScan handles POST /fraud/batch-scan.
func (h *Handler) BatchScan(w http.ResponseWriter, r *http.Request) {
	result, err := h.engines.Fraud.BatchScan(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.BatchScans.Inc()
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) scan(ctx context.Context, w http.ResponseWriter, s *domain.Shipment) (*domain.FraudScanResult, bool) {
	result, err := h.engines.Fraud.Scan(ctx, s)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	metrics.ObserveScan(result)
	return result, true
}

func (h *Handler) publish(ctx context.Context, topic, shipmentID string) {
	if h.bus == nil {
		return
	}

	payload, _ := json.Marshal(domain.ShipmentEvent{
		ShipmentID: shipmentID,
		TraceID:    TraceID(ctx),
	})
	if err := h.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish event",
			"topic", topic,
			"shipment_id", shipmentID,
			"error", err,
		)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON request body"})
		return false
	}
	return true
}

// writeError maps engine and storage errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSignalUnavailable):
		metrics.SignalFailures.Inc()
		slog.Error("signal source failure", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "computation unavailable: data source failure",
		})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repository.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
