package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keyhaven/keyhaven-backend/internal/invoices"
	"github.com/keyhaven/keyhaven-backend/internal/orders"
	"github.com/keyhaven/keyhaven-backend/pkg/config"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
)

type stubOrders struct {
	result *orders.StoredOrder
	err    error
}

func (s *stubOrders) Submit(context.Context, orders.SubmitOrderRequest) (*orders.StoredOrder, error) {
	return s.result, s.err
}

type stubInvoices struct {
	status invoices.InvoiceStatus
	err    error
}

func (s *stubInvoices) Status(context.Context, string) (invoices.InvoiceStatus, error) {
	return s.status, s.err
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, ordersSvc orders.Service, invoicesSvc invoices.Service) http.Handler {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Env: "test", Port: "8080"}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	return NewRouter(cfg, logg, &stubPinger{}, nil, ordersSvc, invoicesSvc, prometheus.NewRegistry())
}

func TestRouterSubmitOrder(t *testing.T) {
	router := newTestRouter(t,
		&stubOrders{result: &orders.StoredOrder{ID: "rec-1"}},
		&stubInvoices{},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"cart_ref":"c-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"rec-1"`) {
		t.Fatalf("expected stored order in response: %s", rec.Body.String())
	}
}

func TestRouterWrongMethodReturns405Envelope(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, &stubInvoices{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeMethodNotAllowed) {
		t.Fatalf("unexpected code: %s", payload.Error.Code)
	}
}

func TestRouterUnknownRouteReturns404Envelope(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, &stubInvoices{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRouterInvoiceStatus(t *testing.T) {
	router := newTestRouter(t, &stubOrders{},
		&stubInvoices{status: invoices.InvoiceStatus{InvoiceID: "inv-1", Status: "pending"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv-1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"pending"`) {
		t.Fatalf("expected mapped status: %s", rec.Body.String())
	}
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, &stubInvoices{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, &stubInvoices{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
