package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	invoicesvc "github.com/keyhaven/keyhaven-backend/internal/invoices"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
)

type stubInvoicesService struct {
	status invoicesvc.InvoiceStatus
	err    error
	lastID string
}

func (s *stubInvoicesService) Status(_ context.Context, invoiceID string) (invoicesvc.InvoiceStatus, error) {
	s.lastID = invoiceID
	return s.status, s.err
}

func invoiceRouter(svc invoicesvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/invoices/{invoiceID}/status", InvoiceStatus(svc, testLogger()))
	return r
}

func TestInvoiceStatusReturnsMappedStatus(t *testing.T) {
	svc := &stubInvoicesService{status: invoicesvc.InvoiceStatus{InvoiceID: "inv-1", Status: "paid"}}
	router := invoiceRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv-1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastID != "inv-1" {
		t.Fatalf("unexpected invoice id: %s", svc.lastID)
	}

	var payload struct {
		Data invoicesvc.InvoiceStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.Status != "paid" {
		t.Fatalf("unexpected status: %s", payload.Data.Status)
	}
}

func TestInvoiceStatusMapsNotFound(t *testing.T) {
	svc := &stubInvoicesService{err: pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")}
	router := invoiceRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/missing/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInvoiceStatusMapsProviderFailure(t *testing.T) {
	svc := &stubInvoicesService{err: pkgerrors.New(pkgerrors.CodeDependency, "provider unavailable")}
	router := invoiceRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv-1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
