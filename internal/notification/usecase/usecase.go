package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/notification"
	"github.com/fekuna/omnipos-inventory-service/internal/notification/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/i18n"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

type notificationUseCase struct {
	repo       notification.Repository
	mailer     notification.Mailer
	recipients notification.RecipientResolver
	metrics    *metrics.Metrics
	locale     string
	logger     logger.ZapLogger
	now        func() time.Time
}

func NewNotificationUseCase(
	repo notification.Repository,
	mailer notification.Mailer,
	recipients notification.RecipientResolver,
	m *metrics.Metrics,
	locale string,
	log logger.ZapLogger,
) notification.UseCase {
	if locale == "" {
		locale = "en"
	}
	return &notificationUseCase{
		repo:       repo,
		mailer:     mailer,
		recipients: recipients,
		metrics:    m,
		locale:     locale,
		logger:     log,
		now:        time.Now,
	}
}

// OnStockDecreased runs inside the ledger transaction. quantity is the
// post-movement quantity returned by the append, never a fresh read.
func (uc *notificationUseCase) OnStockDecreased(ctx context.Context, v *model.Variant, quantity int) error {
	var typ model.NotificationType
	switch {
	case quantity == 0:
		typ = model.NotificationOutOfStock
	case quantity > 0 && quantity <= v.Threshold:
		typ = model.NotificationLowStock
	default:
		return nil
	}

	exists, err := uc.repo.ExistsUnread(ctx, v.ID, typ)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	data := map[string]interface{}{
		"SKU":       v.SKU,
		"Quantity":  quantity,
		"Threshold": v.Threshold,
	}
	messageID, subjectID := "StockLowMessage", "StockLowSubject"
	if typ == model.NotificationOutOfStock {
		messageID, subjectID = "StockOutMessage", "StockOutSubject"
	}

	n := &model.StockNotification{
		ID:         uuid.New().String(),
		MerchantID: v.MerchantID,
		VariantID:  v.ID,
		Type:       typ,
		Message:    i18n.T(uc.locale, messageID, data),
		CreatedAt:  uc.now(),
	}
	created, err := uc.repo.Create(ctx, n)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	uc.metrics.NotificationRaised(string(typ))
	uc.logger.Info("Stock notification raised",
		zap.String("merchant_id", n.MerchantID),
		zap.String("variant_id", n.VariantID),
		zap.String("type", string(typ)),
		zap.Int("quantity", quantity),
	)

	subject := i18n.T(uc.locale, subjectID, data)
	database.AfterCommit(ctx, func() {
		go uc.sendEmail(n, subject)
	})
	return nil
}

// sendEmail is best effort. It runs detached from the request that raised
// the notification, so it uses its own context.
func (uc *notificationUseCase) sendEmail(n *model.StockNotification, subject string) {
	if uc.mailer == nil || uc.recipients == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	to, err := uc.recipients.NotificationEmail(ctx, n.MerchantID)
	if err != nil {
		uc.metrics.EmailFailed()
		uc.logger.Error("Failed to resolve notification recipient",
			zap.String("merchant_id", n.MerchantID),
			zap.Error(err),
		)
		return
	}
	if to == "" {
		return
	}

	if err := uc.mailer.Send(ctx, to, subject, n.Message); err != nil {
		uc.metrics.EmailFailed()
		uc.logger.Error("Failed to send stock notification email",
			zap.String("notification_id", n.ID),
			zap.String("to", to),
			zap.Error(err),
		)
	}
}

func (uc *notificationUseCase) ListNotifications(ctx context.Context, filters *dto.NotificationFilters) ([]model.StockNotification, int, error) {
	if filters.MerchantID == "" {
		return nil, 0, apperror.Validation("merchant is required")
	}
	items, count, err := uc.repo.List(ctx, filters)
	if err != nil {
		uc.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, 0, apperror.Internal(err)
	}
	return items, count, nil
}

func (uc *notificationUseCase) UnreadCount(ctx context.Context, merchantID string) (int, error) {
	count, err := uc.repo.CountUnread(ctx, merchantID)
	if err != nil {
		uc.logger.Error("Failed to count unread notifications", zap.Error(err))
		return 0, apperror.Internal(err)
	}
	return count, nil
}

// MarkRead clears the suppression for the notification's (variant, type),
// so the next breach raises a new one.
func (uc *notificationUseCase) MarkRead(ctx context.Context, merchantID, id string, actor model.Actor) (*model.StockNotification, error) {
	n, err := uc.repo.FindByID(ctx, merchantID, id)
	if err != nil {
		uc.logger.Error("Failed to find notification", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	if n == nil {
		return nil, apperror.NotFound("notification", id)
	}
	if n.IsRead {
		return n, nil
	}

	at := uc.now()
	if err := uc.repo.MarkRead(ctx, id, actor.ID, at); err != nil {
		uc.logger.Error("Failed to mark notification read", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	n.IsRead = true
	n.ReadAt = &at
	if actor.ID != "" {
		n.ReadBy = &actor.ID
	}
	return n, nil
}
