package controllers

import (
	"net/http"

	"github.com/keyhaven/keyhaven-backend/api/responses"
	"github.com/keyhaven/keyhaven-backend/api/validators"
	ordersvc "github.com/keyhaven/keyhaven-backend/internal/orders"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
)

// SubmitOrder handles storefront order snapshot submissions.
func SubmitOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload ordersvc.SubmitOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Submit(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}
