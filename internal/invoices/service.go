package invoices

import (
	"context"

	"github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
)

// PaymentProvider is the slice of the payments client the service needs.
type PaymentProvider interface {
	InvoiceStatus(ctx context.Context, invoiceID string) (string, error)
}

// InvoiceStatus is what the storefront polls while waiting for a payment.
type InvoiceStatus struct {
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
}

// Service resolves invoice payment state from the payment provider.
type Service interface {
	Status(ctx context.Context, invoiceID string) (InvoiceStatus, error)
}

type service struct {
	provider PaymentProvider
	logger   *logger.Logger
}

func NewService(provider PaymentProvider, logg *logger.Logger) (Service, error) {
	if provider == nil {
		return nil, errors.New(errors.CodeInternal, "invoices service requires a payment provider")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "invoices service requires a logger")
	}
	return &service{provider: provider, logger: logg}, nil
}

func (s *service) Status(ctx context.Context, invoiceID string) (InvoiceStatus, error) {
	if invoiceID == "" {
		return InvoiceStatus{}, errors.New(errors.CodeValidation, "invoice id is required")
	}

	providerStatus, err := s.provider.InvoiceStatus(ctx, invoiceID)
	if err != nil {
		return InvoiceStatus{}, err
	}

	status := InvoiceStatus{
		InvoiceID: invoiceID,
		Status:    MapProviderStatus(providerStatus),
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"invoice_id":      invoiceID,
		"provider_status": providerStatus,
		"status":          status.Status,
	}), "invoice status resolved")
	return status, nil
}
