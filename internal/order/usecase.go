package order

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, merchantID, id string) (*model.Order, error)

	TransitionToFulfilled(ctx context.Context, input *dto.TransitionInput) (*model.Order, error)
	Cancel(ctx context.Context, input *dto.TransitionInput) (*model.Order, error)
	Refund(ctx context.Context, input *dto.TransitionInput) (*model.Order, error)
}
