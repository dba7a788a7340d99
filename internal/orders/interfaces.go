package orders

import (
	"context"

	"github.com/keyhaven/keyhaven-backend/pkg/recordstore"
)

// RecordStore is the slice of the record store client the reconciler needs.
type RecordStore interface {
	ListFirst(ctx context.Context, filter recordstore.Filter, out any) (bool, error)
	Create(ctx context.Context, record any, out any) error
	Update(ctx context.Context, id string, fields map[string]any, out any) error
}
