package attribute

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/attribute/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	EnsureAttribute(ctx context.Context, merchantID, name string) (*model.Attribute, error)
	EnsureValue(ctx context.Context, attr *model.Attribute, value string) (*model.AttributeValue, error)

	CreateAttribute(ctx context.Context, input *dto.CreateAttributeInput) (*model.Attribute, error)
	ListAttributes(ctx context.Context, merchantID string) ([]model.Attribute, error)
}
