package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	// LockVariant reads the variant and holds a row lock on it until the
	// surrounding transaction ends.
	LockVariant(ctx context.Context, merchantID, variantID string) (*model.Variant, error)
	UpdateQuantity(ctx context.Context, variantID string, quantity int) error

	InsertMovement(ctx context.Context, movement *model.StockMovement) error
	FindMovement(ctx context.Context, merchantID, id string) (*model.StockMovement, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	ListMovementsByReference(ctx context.Context, merchantID, refType, refID string) ([]model.StockMovement, error)
	SumDeltas(ctx context.Context, variantID string) (int, error)

	ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.Variant, int, error)
}

// StockObserver is told about every quantity-decreasing movement, inside the
// same transaction, with the post-movement quantity.
type StockObserver interface {
	OnStockDecreased(ctx context.Context, v *model.Variant, quantity int) error
}
