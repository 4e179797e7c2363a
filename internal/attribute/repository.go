package attribute

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	// Lookups are case-insensitive on name and value.
	FindByName(ctx context.Context, merchantID, name string) (*model.Attribute, error)
	FindValue(ctx context.Context, attributeID, value string) (*model.AttributeValue, error)

	// Create returns the stored row. If a concurrent writer inserted the same
	// name first, that row is returned instead.
	Create(ctx context.Context, attr *model.Attribute) (*model.Attribute, error)
	CreateValue(ctx context.Context, value *model.AttributeValue) (*model.AttributeValue, error)

	ListByMerchant(ctx context.Context, merchantID string) ([]model.Attribute, error)
}
