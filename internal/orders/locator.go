package orders

import (
	"context"

	"github.com/keyhaven/keyhaven-backend/pkg/enums"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
	"github.com/keyhaven/keyhaven-backend/pkg/recordstore"
)

// Locator finds the single abandoned order a device currently has open for a
// given cart. It never fails the caller: a lookup error is logged and treated
// as no active cart, which at worst creates a duplicate record rather than
// losing the submission.
type Locator struct {
	store  RecordStore
	logger *logger.Logger
}

func NewLocator(store RecordStore, logg *logger.Logger) *Locator {
	return &Locator{store: store, logger: logg}
}

// FindActiveCart returns the stored abandoned order for the device and cart,
// or nil when none exists or the lookup fails.
func (l *Locator) FindActiveCart(ctx context.Context, deviceHash, cartRef string) *StoredOrder {
	if deviceHash == "" || cartRef == "" {
		return nil
	}

	filter := recordstore.Where(FieldDeviceHash, deviceHash).
		And(FieldCartRef, cartRef).
		And(FieldPaymentStatus, string(enums.PaymentStatusAbandoned))

	var stored StoredOrder
	found, err := l.store.ListFirst(ctx, filter, &stored)
	if err != nil {
		ctx = l.logger.WithDeviceHash(ctx, deviceHash)
		ctx = l.logger.WithCartRef(ctx, cartRef)
		l.logger.Warn(l.logger.WithField(ctx, "error", err.Error()),
			"active cart lookup failed, treating as absent")
		return nil
	}
	if !found {
		return nil
	}
	return &stored
}
