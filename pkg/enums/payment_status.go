package enums

import "fmt"

// PaymentStatus is the lifecycle state an order submission carries. The
// storefront only ever submits abandoned (in-progress checkout) or completed
// (checkout finished) snapshots.
type PaymentStatus string

const (
	PaymentStatusAbandoned PaymentStatus = "abandoned"
	PaymentStatusCompleted PaymentStatus = "completed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusAbandoned,
	PaymentStatusCompleted,
}

// IsValid reports whether the value matches the canonical payment status enum.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts the raw string to PaymentStatus. An empty value
// defaults to abandoned, matching the submit endpoint's default.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	if value == "" {
		return PaymentStatusAbandoned, nil
	}
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
