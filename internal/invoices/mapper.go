package invoices

import (
	"github.com/keyhaven/keyhaven-backend/pkg/enums"
)

// MapProviderStatus translates the payment provider's invoice status
// vocabulary into the store-side one. Values the mapping does not know are
// passed through unchanged so new provider states surface instead of being
// swallowed.
func MapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case "PAID":
		return enums.InvoiceStatusPaid
	case "PAYMENT_PENDING":
		return enums.InvoiceStatusPending
	default:
		return providerStatus
	}
}
