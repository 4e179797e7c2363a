package notification

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/notification/dto"
)

type UseCase interface {
	OnStockDecreased(ctx context.Context, v *model.Variant, quantity int) error

	ListNotifications(ctx context.Context, filters *dto.NotificationFilters) ([]model.StockNotification, int, error)
	UnreadCount(ctx context.Context, merchantID string) (int, error)
	MarkRead(ctx context.Context, merchantID, id string, actor model.Actor) (*model.StockNotification, error)
}
