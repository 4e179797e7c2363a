package variant

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/variant/dto"
)

type UseCase interface {
	GenerateVariants(ctx context.Context, input *dto.GenerateVariantsInput) ([]model.Variant, error)
	CreateVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.Variant, error)
	GetVariant(ctx context.Context, merchantID, id string) (*model.Variant, error)
	ListVariants(ctx context.Context, merchantID, productID string) ([]model.Variant, error)
	SearchVariants(ctx context.Context, merchantID, query string, limit int) ([]model.Variant, error)
	DeleteVariant(ctx context.Context, merchantID, id string) error
}
