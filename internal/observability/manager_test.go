package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/handyman/internal/config"
)

func TestPrometheusMetricsEndpoint(t *testing.T) {
	cfg := config.Config{Observability: config.Observability{
		ServiceName:     "handyman",
		Environment:     "test",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	}}
	mgr, err := NewManager(fxtest.NewLifecycle(t), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if mgr.TracingEnabled() {
		t.Fatalf("tracing must stay off when disabled")
	}
	if !mgr.MetricsEnabled() || mgr.Registry() == nil {
		t.Fatalf("expected prometheus metrics to be enabled")
	}

	counter, err := mgr.meterProvider.Meter("test").Int64Counter("orders_created")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", mgr.PrometheusPath(), nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "orders_created") {
		t.Fatalf("expected counter in scrape output:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("expected runtime collectors in scrape output")
	}
}

func TestUnknownExportersDisableSignals(t *testing.T) {
	cfg := config.Config{Observability: config.Observability{
		ServiceName:     "handyman",
		EnableTracing:   true,
		TraceExporter:   "zipkin",
		EnableMetrics:   true,
		MetricsExporter: "statsd",
	}}
	mgr, err := NewManager(fxtest.NewLifecycle(t), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if mgr.TracingEnabled() || mgr.MetricsEnabled() || mgr.MetricsHandler() != nil {
		t.Fatalf("unsupported exporters must leave signals disabled")
	}
}
