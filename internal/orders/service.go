package orders

import (
	"context"

	"github.com/keyhaven/keyhaven-backend/pkg/enums"
	"github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
	"github.com/keyhaven/keyhaven-backend/pkg/metrics"
)

// Reconciliation outcomes, also used as metric labels.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeCompleted = "completed"
)

// Service reconciles submitted order snapshots against the record store.
type Service interface {
	Submit(ctx context.Context, req SubmitOrderRequest) (*StoredOrder, error)
}

type service struct {
	store    RecordStore
	locator  *Locator
	provider string
	logger   *logger.Logger
	metrics  *metrics.ReconcilerMetrics
}

func NewService(store RecordStore, provider string, logg *logger.Logger, m *metrics.ReconcilerMetrics) (Service, error) {
	if store == nil {
		return nil, errors.New(errors.CodeInternal, "orders service requires a record store")
	}
	if provider == "" {
		return nil, errors.New(errors.CodeInternal, "orders service requires a payment provider name")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "orders service requires a logger")
	}
	return &service{
		store:    store,
		locator:  NewLocator(store, logg),
		provider: provider,
		logger:   logg,
		metrics:  m,
	}, nil
}

// Submit reconciles one snapshot. Completed snapshots always create a fresh
// record and retire the active cart. Abandoned snapshots create, update, or
// leave the active cart alone depending on whether anything changed, which
// keeps repeated identical submissions idempotent.
func (s *service) Submit(ctx context.Context, req SubmitOrderRequest) (*StoredOrder, error) {
	snap, err := ParseSnapshot(req)
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithDeviceHash(ctx, snap.DeviceHash)
	ctx = s.logger.WithCartRef(ctx, snap.CartRef)

	active := s.locator.FindActiveCart(ctx, snap.DeviceHash, snap.CartRef)

	if snap.PaymentStatus == enums.PaymentStatusCompleted {
		return s.submitCompleted(ctx, snap, active)
	}
	return s.submitAbandoned(ctx, snap, active)
}

func (s *service) submitCompleted(ctx context.Context, snap OrderSnapshot, active *StoredOrder) (*StoredOrder, error) {
	created, err := s.create(ctx, snap)
	if err != nil {
		return nil, err
	}

	// Retire the cart the completed order grew out of so recovery flows skip
	// it. The order itself already exists, so a failure here only logs.
	if active != nil {
		patch := map[string]any{"abandoned_cart_processed": true}
		if err := s.store.Update(ctx, active.ID, patch, nil); err != nil {
			fields := map[string]any{"active_cart_id": active.ID, "error": err.Error()}
			s.logger.Warn(s.logger.WithFields(ctx, fields),
				"failed to mark abandoned cart processed")
		}
	}

	s.metrics.IncOutcome(OutcomeCompleted)
	s.logger.Info(s.logger.WithOrderID(ctx, created.ID), "completed order recorded")
	return created, nil
}

func (s *service) submitAbandoned(ctx context.Context, snap OrderSnapshot, active *StoredOrder) (*StoredOrder, error) {
	if active == nil {
		created, err := s.create(ctx, snap)
		if err != nil {
			return nil, err
		}
		s.metrics.IncOutcome(OutcomeCreated)
		s.logger.Info(s.logger.WithOrderID(ctx, created.ID), "abandoned cart recorded")
		return created, nil
	}

	if !HasChanged(active, snap) {
		s.metrics.IncOutcome(OutcomeUnchanged)
		return active, nil
	}

	var updated StoredOrder
	if err := s.store.Update(ctx, active.ID, snapshotPatch(snap), &updated); err != nil {
		return nil, err
	}
	s.metrics.IncOutcome(OutcomeUpdated)
	s.logger.Info(s.logger.WithOrderID(ctx, updated.ID), "abandoned cart updated")
	return &updated, nil
}

func (s *service) create(ctx context.Context, snap OrderSnapshot) (*StoredOrder, error) {
	record := StoredOrder{
		OrderNumber:            snap.CartRef,
		Items:                  snap.Items,
		Customer:               snap.Customer,
		Subtotal:               snap.Subtotal,
		Total:                  snap.Total,
		DeviceHash:             snap.DeviceHash,
		CartRef:                snap.CartRef,
		PaymentStatus:          snap.PaymentStatus,
		PaymentProvider:        s.provider,
		DeliveryStatus:         enums.DeliveryStatusPending,
		DeliveryMessages:       []string{},
		AbandonedCartProcessed: false,
		RecoveryEmailSent:      "",
	}

	var created StoredOrder
	if err := s.store.Create(ctx, record, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// snapshotPatch builds the partial update for an existing cart. Only the
// storefront-controlled fields are touched; server-managed fields like
// delivery status and the processed flag survive the update.
func snapshotPatch(snap OrderSnapshot) map[string]any {
	var customer any
	if snap.Customer != nil {
		customer = snap.Customer
	}
	return map[string]any{
		"items":            snap.Items,
		"customer_info":    customer,
		"subtotal":         snap.Subtotal,
		"total":            snap.Total,
		FieldPaymentStatus: snap.PaymentStatus,
	}
}
