package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventOrderPaid     = "OrderPaid"
	EventOrderCanceled = "OrderCanceled"
	EventOrderRefunded = "OrderRefunded"
)

const (
	retryInitial = 500 * time.Millisecond
	retryMax     = 30 * time.Second
)

// MessageReader is the consumer side of the broker. *broker.KafkaConsumer
// satisfies it.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OrderListener struct {
	consumer     MessageReader
	uc           order.UseCase
	logger       logger.ZapLogger
	retryInitial time.Duration
	retryMax     time.Duration
}

func NewOrderListener(consumer MessageReader, uc order.UseCase, logger logger.ZapLogger) *OrderListener {
	return &OrderListener{
		consumer:     consumer,
		uc:           uc,
		logger:       logger,
		retryInitial: retryInitial,
		retryMax:     retryMax,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order Kafka listener")
			return
		default:
			msg, err := l.consumer.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			if !l.handle(ctx, msg) {
				return
			}
		}
	}
}

// handle applies msg until it succeeds or is rejected for a business reason,
// then commits its offset. Infrastructure failures are retried with backoff
// and the offset stays uncommitted. It returns false when ctx ends first.
func (l *OrderListener) handle(ctx context.Context, msg kafka.Message) bool {
	wait := l.retryInitial
	for {
		err := l.processMessage(ctx, msg.Value)
		if err == nil {
			break
		}
		l.logger.Warn("Retrying order event",
			zap.Int64("offset", msg.Offset),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		if wait *= 2; wait > l.retryMax {
			wait = l.retryMax
		}
	}

	if err := l.consumer.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return false
		}
		l.logger.Error("Failed to commit kafka offset", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
	return true
}

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	OrderID    string  `json:"order_id"`
	MerchantID string  `json:"merchant_id"`
	BranchID   *string `json:"branch_id"`
	UserID     string  `json:"user_id"`
}

// processMessage applies one order event. Malformed events and business
// rejections are logged and acknowledged since redelivery would not change
// the outcome. Only internal failures are returned.
func (l *OrderListener) processMessage(ctx context.Context, value []byte) error {
	var event OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return nil
	}

	// Tenant and branch travel in the context the way a gRPC caller's do.
	ctx = auth.WithUserContext(ctx, auth.UserContext{
		MerchantID: event.Payload.MerchantID,
		BranchID:   event.Payload.BranchID,
		UserID:     event.Payload.UserID,
	})
	input := &dto.TransitionInput{
		OrderID: event.Payload.OrderID,
		Actor:   model.Actor{ID: event.Payload.UserID, Type: model.ActorTypeSystem},
	}

	var err error
	switch event.EventType {
	case EventOrderPaid:
		_, err = l.uc.TransitionToFulfilled(ctx, input)
		if apperror.Is(err, apperror.CodeAlreadyFulfilled) {
			l.logger.Info("Order already fulfilled, skipping", zap.String("order_id", input.OrderID))
			return nil
		}
	case EventOrderCanceled:
		_, err = l.uc.Cancel(ctx, input)
	case EventOrderRefunded:
		_, err = l.uc.Refund(ctx, input)
	default:
		return nil
	}

	if err != nil {
		if apperror.Code(err) == apperror.CodeInternal {
			return err
		}
		l.logger.Error("Rejected order event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.String("order_id", input.OrderID),
			zap.String("code", apperror.Code(err)),
			zap.Error(err),
		)
		return nil
	}
	l.logger.Info("Order event applied",
		zap.String("event_type", event.EventType),
		zap.String("order_id", input.OrderID),
	)
	return nil
}
