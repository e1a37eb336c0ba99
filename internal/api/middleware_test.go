package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestTracingMiddleware(t *testing.T) {
	var gotTrace, gotRequest string
	h := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = TraceID(r.Context())
		gotRequest = RequestID(r.Context())
	}))

	t.Run("RequestIDStandsInWithoutTrace", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/fraud/scan", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if gotRequest != "req-42" || gotTrace != "req-42" {
			t.Errorf("expected request and trace id req-42, got %q and %q", gotRequest, gotTrace)
		}
		if rr.Header().Get(TraceIDHeader) != "req-42" {
			t.Errorf("expected trace header req-42, got %q", rr.Header().Get(TraceIDHeader))
		}
	})

	t.Run("MintsRequestID", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		if gotRequest == "" {
			t.Fatal("expected a minted request id")
		}
		if rr.Header().Get(RequestIDHeader) != gotRequest {
			t.Errorf("expected response to echo %q, got %q", gotRequest, rr.Header().Get(RequestIDHeader))
		}
	})

	t.Run("JoinsInboundTrace", func(t *testing.T) {
		prev := otel.GetTextMapPropagator()
		otel.SetTextMapPropagator(propagation.TraceContext{})
		t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

		req := httptest.NewRequest(http.MethodPost, "/shipments/", nil)
		req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		want := "4bf92f3577b34da6a3ce929d0e0e4736"
		if gotTrace != want {
			t.Errorf("expected trace id %s, got %s", want, gotTrace)
		}
		if gotRequest == want {
			t.Error("expected request id to stay independent of the trace id")
		}
	})
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(TracingMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil rate table")
	})))

	req := httptest.NewRequest(http.MethodPost, "/commission/calculate", nil)
	req.Header.Set(RequestIDHeader, "req-panic")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "internal server error" || body["request_id"] != "req-panic" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusNoContent, slog.LevelInfo},
		{http.StatusBadRequest, slog.LevelWarn},
		{http.StatusNotFound, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
		{http.StatusServiceUnavailable, slog.LevelError},
	}
	for _, tt := range tests {
		if got := logLevel(tt.status); got != tt.want {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, got)
		}
	}
}
