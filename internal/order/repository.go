package order

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	// Create persists the order and its items.
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, merchantID, id string) (*model.Order, error)
	// LockByID is FindByID holding a row lock on the order.
	LockByID(ctx context.Context, merchantID, id string) (*model.Order, error)
	UpdateStatus(ctx context.Context, o *model.Order) error
}

// VariantReader resolves order line variants within the merchant catalog.
type VariantReader interface {
	FindByID(ctx context.Context, merchantID, id string) (*model.Variant, error)
}
