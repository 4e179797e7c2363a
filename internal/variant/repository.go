package variant

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	// Create inserts the variant row and its ordered attribute pairs.
	Create(ctx context.Context, v *model.Variant) error
	FindByID(ctx context.Context, merchantID, id string) (*model.Variant, error)
	ListByProduct(ctx context.Context, merchantID, productID string) ([]model.Variant, error)
	SearchBySKU(ctx context.Context, merchantID, query string, limit int) ([]model.Variant, error)
	Delete(ctx context.Context, merchantID, id string) error

	// ExistingSKUs returns the subset of skus already used in the merchant catalog.
	ExistingSKUs(ctx context.Context, merchantID string, skus []string) ([]string, error)
	CombinationExists(ctx context.Context, productID, combinationKey string) (bool, error)
}

// Indexer keeps the search index in sync with the catalog.
type Indexer interface {
	Index(ctx context.Context, v *model.Variant) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, merchantID, query string, limit int) ([]model.Variant, error)
}
