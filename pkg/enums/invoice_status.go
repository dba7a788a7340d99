package enums

// Store-side invoice status vocabulary. The payment provider's own
// vocabulary is mapped onto these by internal/invoices; unknown provider
// values pass through untranslated, so this list is intentionally not closed.
const (
	InvoiceStatusPaid    = "paid"
	InvoiceStatusPending = "pending"
)
