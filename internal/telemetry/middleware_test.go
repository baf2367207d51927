package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/sequences/{seqID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := APIRequestsTotal.WithLabelValues(http.MethodGet, "/sequences/{seqID}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sequences/"+id, nil))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected 2 requests under the route pattern, got %v", got)
	}
	if got := testutil.ToFloat64(APIActiveConnections); got != 0 {
		t.Fatalf("expected no active connections after requests, got %v", got)
	}
}

func TestMetricsMiddlewareImplicitOK(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	counter := APIRequestsTotal.WithLabelValues(http.MethodGet, "/plain", "200")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected one 200 request, got %v", got)
	}
}

func TestMetricsMiddlewareSkipsWebsocketUpgrade(t *testing.T) {
	var sawRaw bool
	rec := httptest.NewRecorder()
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawRaw = w.(*httptest.ResponseRecorder)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(rec, req)

	if !sawRaw {
		t.Fatal("expected websocket upgrade to receive the raw writer")
	}
}

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingOptions{Service: "signboard"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("setup tracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	_, span := StartSpan(context.Background(), "test", "noop")
	RecordError(span, errors.New("boom"))
	span.End()
	if span.SpanContext().IsValid() {
		t.Fatal("expected a non-recording span from the no-op provider")
	}
}

func TestProviderRecordsFailedSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, err := newProvider(context.Background(), exporter, TracingOptions{Service: "signboard", Version: "test", SampleRatio: 1})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, span := provider.Tracer("test").Start(context.Background(), "stacks.list_items")
	RecordError(span, errors.New("stacks unavailable"))
	RecordError(span, nil)
	span.End()
	if err := provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	got := spans[0]
	if got.Status.Code != codes.Error || got.Status.Description != "stacks unavailable" {
		t.Fatalf("unexpected status %+v", got.Status)
	}
	if len(got.Events) != 1 {
		t.Fatalf("expected one error event, got %d", len(got.Events))
	}
	var service string
	for _, kv := range got.Resource.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			service = kv.Value.AsString()
		}
	}
	if service != "signboard" {
		t.Fatalf("expected service.name signboard, got %q", service)
	}
	_ = provider.Shutdown(context.Background())
}

func TestProviderSampleRatioZeroDropsRoots(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, err := newProvider(context.Background(), exporter, TracingOptions{Service: "signboard", SampleRatio: 0})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, span := provider.Tracer("test").Start(context.Background(), "dropped")
	span.End()
	_ = provider.ForceFlush(context.Background())
	if n := len(exporter.GetSpans()); n != 0 {
		t.Fatalf("expected no sampled spans, got %d", n)
	}
	_ = provider.Shutdown(context.Background())
}
