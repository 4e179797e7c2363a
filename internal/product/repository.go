package product

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Repository is the read side of the product catalog. Products are created
// and edited by the catalog service; this core only checks that a product
// exists and belongs to the merchant.
type Repository interface {
	FindByID(ctx context.Context, merchantID, id string) (*model.Product, error)
}
