package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/keyhaven/keyhaven-backend/pkg/enums"
	"github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
	"github.com/keyhaven/keyhaven-backend/pkg/recordstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	listCalls   int
	createCalls int
	updateCalls int

	active     *StoredOrder
	listErr    error
	createErr  error
	updateErr  error
	lastFilter recordstore.Filter
	lastCreate StoredOrder
	lastID     string
	lastPatch  map[string]any

	nextID int
}

func (s *stubStore) ListFirst(_ context.Context, filter recordstore.Filter, out any) (bool, error) {
	s.listCalls++
	s.lastFilter = filter
	if s.listErr != nil {
		return false, s.listErr
	}
	if s.active == nil {
		return false, nil
	}
	*(out.(*StoredOrder)) = *s.active
	return true, nil
}

func (s *stubStore) Create(_ context.Context, record any, out any) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	s.lastCreate = record.(StoredOrder)
	s.nextID++
	created := s.lastCreate
	created.ID = newRecordID(s.nextID)
	if out != nil {
		*(out.(*StoredOrder)) = created
	}
	return nil
}

func (s *stubStore) Update(_ context.Context, id string, fields map[string]any, out any) error {
	s.updateCalls++
	s.lastID = id
	s.lastPatch = fields
	if s.updateErr != nil {
		return s.updateErr
	}
	if out != nil {
		updated := StoredOrder{ID: id}
		if s.active != nil {
			updated = *s.active
		}
		*(out.(*StoredOrder)) = updated
	}
	return nil
}

func newRecordID(n int) string {
	return fmt.Sprintf("created-%d", n)
}

func newTestService(t *testing.T, store *stubStore) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	svc, err := NewService(store, "licensepay", logg, nil)
	require.NoError(t, err)
	return svc
}

func TestSubmitCreatesAbandonedCart(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store)

	created, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 0, store.updateCalls)

	assert.Equal(t,
		"(customer_device_hash='dev-1' && cart_ref='cart-1' && payment_status='abandoned')",
		store.lastFilter.Encode())

	assert.Equal(t, "cart-1", created.OrderNumber)
	assert.Equal(t, "licensepay", store.lastCreate.PaymentProvider)
	assert.Equal(t, enums.DeliveryStatusPending, store.lastCreate.DeliveryStatus)
	assert.NotNil(t, store.lastCreate.DeliveryMessages)
	assert.Empty(t, store.lastCreate.DeliveryMessages)
	assert.False(t, store.lastCreate.AbandonedCartProcessed)
	assert.Nil(t, store.lastCreate.RefundedAt)
}

func TestSubmitIdenticalResubmissionIsNoop(t *testing.T) {
	snap, err := ParseSnapshot(validRequest())
	require.NoError(t, err)

	active := storedFrom(snap)
	store := &stubStore{active: active}
	svc := newTestService(t, store)

	result, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, 0, store.createCalls)
	assert.Equal(t, 0, store.updateCalls)
	assert.Equal(t, active.ID, result.ID)
}

func TestSubmitChangedCartUpdatesInPlace(t *testing.T) {
	snap, err := ParseSnapshot(validRequest())
	require.NoError(t, err)

	store := &stubStore{active: storedFrom(snap)}
	svc := newTestService(t, store)

	req := validRequest()
	req.CustomerInfo = json.RawMessage(`{"name": "Ada", "email": "ada@example.com", "discountCode": "SAVE10"}`)

	result, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0, store.createCalls)
	assert.Equal(t, 1, store.updateCalls)
	assert.Equal(t, store.active.ID, result.ID)
	assert.Equal(t, store.active.ID, store.lastID)

	// Only storefront-controlled fields are patched.
	for _, managed := range []string{"delivery_status", "abandoned_cart_processed", "order_number", "payment_provider"} {
		assert.NotContains(t, store.lastPatch, managed)
	}
	assert.Contains(t, store.lastPatch, "items")
	assert.Contains(t, store.lastPatch, "customer_info")
}

func TestSubmitCompletedRetiresActiveCart(t *testing.T) {
	snap, err := ParseSnapshot(validRequest())
	require.NoError(t, err)

	active := storedFrom(snap)
	store := &stubStore{active: active}
	svc := newTestService(t, store)

	req := validRequest()
	req.PaymentStatus = "completed"

	result, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, store.createCalls)
	assert.NotEqual(t, active.ID, result.ID)
	assert.Equal(t, enums.PaymentStatusCompleted, store.lastCreate.PaymentStatus)

	require.Equal(t, 1, store.updateCalls)
	assert.Equal(t, active.ID, store.lastID)
	assert.Equal(t, map[string]any{"abandoned_cart_processed": true}, store.lastPatch)
}

func TestSubmitCompletedWithoutActiveCartSkipsPatch(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store)

	req := validRequest()
	req.PaymentStatus = "completed"

	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 0, store.updateCalls)
}

func TestSubmitCompletedSurvivesRetirePatchFailure(t *testing.T) {
	snap, err := ParseSnapshot(validRequest())
	require.NoError(t, err)

	store := &stubStore{
		active:    storedFrom(snap),
		updateErr: errors.New(errors.CodeDependency, "record store unavailable"),
	}
	svc := newTestService(t, store)

	req := validRequest()
	req.PaymentStatus = "completed"

	result, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
}

func TestSubmitLookupFailureFallsBackToCreate(t *testing.T) {
	store := &stubStore{listErr: errors.New(errors.CodeDependency, "record store unavailable")}
	svc := newTestService(t, store)

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 0, store.updateCalls)
}

func TestSubmitInvalidPayloadTouchesNoCollaborators(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store)

	req := validRequest()
	req.Items = json.RawMessage(`[{"productId": "p", "name": "n", "variant": {"name": "v"}, "quantity": 1}]`)

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())

	assert.Equal(t, 0, store.listCalls)
	assert.Equal(t, 0, store.createCalls)
	assert.Equal(t, 0, store.updateCalls)
}

func TestSubmitCreateFailurePropagates(t *testing.T) {
	store := &stubStore{createErr: errors.New(errors.CodeDependency, "record store unavailable")}
	svc := newTestService(t, store)

	_, err := svc.Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeDependency, errors.As(err).Code())
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})

	_, err := NewService(nil, "licensepay", logg, nil)
	assert.Error(t, err)

	_, err = NewService(&stubStore{}, "", logg, nil)
	assert.Error(t, err)

	_, err = NewService(&stubStore{}, "licensepay", nil, nil)
	assert.Error(t, err)
}
