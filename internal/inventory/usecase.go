package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	Append(ctx context.Context, input *dto.AppendInput) (*dto.AppendResult, error)
	GetMovements(ctx context.Context, merchantID, variantID string) ([]model.StockMovement, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	ListByReference(ctx context.Context, merchantID, refType, refID string) ([]model.StockMovement, error)

	// Privileged repair paths. History is never removed.
	CorrectMovement(ctx context.Context, input *dto.CorrectMovementInput) (*dto.AppendResult, error)
	RecomputeQuantity(ctx context.Context, merchantID, variantID string, actor model.Actor) (int, error)

	Transfer(ctx context.Context, input *dto.TransferInput) error
	ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.Variant, int, error)
}
