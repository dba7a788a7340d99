package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keyhaven/keyhaven-backend/api/responses"
	invoicesvc "github.com/keyhaven/keyhaven-backend/internal/invoices"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
)

// InvoiceStatus reports the store-side payment state of a provider invoice.
func InvoiceStatus(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoices service unavailable"))
			return
		}

		invoiceID := chi.URLParam(r, "invoiceID")
		status, err := svc.Status(r.Context(), invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
