package notification

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/notification/dto"
)

type Repository interface {
	ExistsUnread(ctx context.Context, variantID string, typ model.NotificationType) (bool, error)
	// Create reports false when an unread notification of the same type
	// already exists for the variant.
	Create(ctx context.Context, n *model.StockNotification) (bool, error)
	FindByID(ctx context.Context, merchantID, id string) (*model.StockNotification, error)
	List(ctx context.Context, filters *dto.NotificationFilters) ([]model.StockNotification, int, error)
	CountUnread(ctx context.Context, merchantID string) (int, error)
	MarkRead(ctx context.Context, id, readBy string, at time.Time) error
}

// Mailer delivers notification emails. Delivery is best effort.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RecipientResolver returns the address that receives stock alerts for a
// merchant. An empty address disables email for that merchant.
type RecipientResolver interface {
	NotificationEmail(ctx context.Context, merchantID string) (string, error)
}
