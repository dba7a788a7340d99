package invoices

import (
	"bytes"
	"context"
	"testing"

	"github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	status string
	err    error
	calls  int
	lastID string
}

func (p *stubProvider) InvoiceStatus(_ context.Context, invoiceID string) (string, error) {
	p.calls++
	p.lastID = invoiceID
	return p.status, p.err
}

func newTestService(t *testing.T, provider *stubProvider) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	svc, err := NewService(provider, logg)
	require.NoError(t, err)
	return svc
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PAID", "paid"},
		{"PAYMENT_PENDING", "pending"},
		{"EXPIRED", "EXPIRED"},
		{"paid", "paid"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, MapProviderStatus(tc.in), "input %q", tc.in)
	}
}

func TestStatusMapsProviderVocabulary(t *testing.T) {
	provider := &stubProvider{status: "PAYMENT_PENDING"}
	svc := newTestService(t, provider)

	status, err := svc.Status(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, "inv-1", provider.lastID)
	assert.Equal(t, InvoiceStatus{InvoiceID: "inv-1", Status: "pending"}, status)
}

func TestStatusPassesUnknownValuesThrough(t *testing.T) {
	provider := &stubProvider{status: "SETTLEMENT_HOLD"}
	svc := newTestService(t, provider)

	status, err := svc.Status(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "SETTLEMENT_HOLD", status.Status)
}

func TestStatusRejectsEmptyInvoiceID(t *testing.T) {
	provider := &stubProvider{status: "PAID"}
	svc := newTestService(t, provider)

	_, err := svc.Status(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
	assert.Equal(t, 0, provider.calls)
}

func TestStatusPropagatesProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New(errors.CodeDependency, "provider unavailable")}
	svc := newTestService(t, provider)

	_, err := svc.Status(context.Background(), "inv-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeDependency, errors.As(err).Code())
}
