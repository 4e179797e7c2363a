package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDTO "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	lockRetries  = 3
	lockInterval = 100 * time.Millisecond
)

var tracer = otel.Tracer("github.com/fekuna/omnipos-inventory-service/internal/order")

// Locker is a distributed mutex. *cache.RedisClient satisfies it.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type orderUseCase struct {
	repo     order.Repository
	variants order.VariantReader
	ledger   inventory.UseCase
	tx       database.Transactor
	locker   Locker
	lockTTL  time.Duration
	metrics  *metrics.Metrics
	logger   logger.ZapLogger
	now      func() time.Time
}

// NewOrderUseCase builds order fulfillment. locker may be nil, in which case
// only the database row lock guards concurrent transitions.
func NewOrderUseCase(
	repo order.Repository,
	variants order.VariantReader,
	ledger inventory.UseCase,
	tx database.Transactor,
	locker Locker,
	lockTTL time.Duration,
	m *metrics.Metrics,
	log logger.ZapLogger,
) order.UseCase {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &orderUseCase{
		repo:     repo,
		variants: variants,
		ledger:   ledger,
		tx:       tx,
		locker:   locker,
		lockTTL:  lockTTL,
		metrics:  m,
		logger:   log,
		now:      time.Now,
	}
}

// CreateOrder records the order as pending. Stock is not touched until the
// order is fulfilled.
func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	in := *input
	in.MerchantID, in.BranchID, in.Actor = fromCaller(ctx, in.MerchantID, in.BranchID, in.Actor)
	input = &in
	if err := apperror.ValidateStruct(input); err != nil {
		return nil, err
	}

	now := uc.now()
	o := &model.Order{
		BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		MerchantID: input.MerchantID,
		BranchID:   input.BranchID,
		CustomerID: input.CustomerID,
		Status:     model.OrderPending,
		CreatedBy:  actorID(input.Actor),
	}

	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		total := decimal.Zero
		for _, item := range input.Items {
			v, err := uc.variants.FindByID(ctx, input.MerchantID, item.VariantID)
			if err != nil {
				return err
			}
			if v == nil {
				return apperror.NotFound("variant", item.VariantID)
			}

			unitPrice := v.SellingPrice
			if item.UnitPrice != nil {
				unitPrice = *item.UnitPrice
			}
			if unitPrice.IsNegative() {
				return apperror.Validation("unit price cannot be negative").WithDetail("variant_id", item.VariantID)
			}
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			if item.TotalPrice != nil {
				lineTotal = *item.TotalPrice
			}

			o.Items = append(o.Items, model.OrderItem{
				ID:         uuid.New().String(),
				OrderID:    o.ID,
				VariantID:  v.ID,
				Quantity:   item.Quantity,
				UnitPrice:  unitPrice,
				TotalPrice: lineTotal,
			})
			total = total.Add(lineTotal)
		}
		o.TotalAmount = total
		return uc.repo.Create(ctx, o)
	})
	if err != nil {
		return nil, uc.fail(err, "create order")
	}

	uc.logger.Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("merchant_id", o.MerchantID),
		zap.Int("items", len(o.Items)),
	)
	return o, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, merchantID, id string) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, merchantID, id)
	if err != nil {
		return nil, uc.fail(err, "get order", zap.String("order_id", id))
	}
	if o == nil {
		return nil, apperror.NotFound("order", id)
	}
	return o, nil
}

// TransitionToFulfilled consumes stock for every item in one transaction.
// Any shortage rolls back every movement already written for the order.
func (uc *orderUseCase) TransitionToFulfilled(ctx context.Context, input *dto.TransitionInput) (*model.Order, error) {
	input = transitionFromCaller(ctx, input)
	if err := apperror.ValidateStruct(input); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "order.TransitionToFulfilled")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", input.OrderID))

	o, err := uc.withOrderLock(ctx, input.OrderID, func() (*model.Order, error) {
		var o *model.Order
		err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			o, err = uc.lockOrder(ctx, input.MerchantID, input.OrderID)
			if err != nil {
				return err
			}
			switch {
			case o.Status == model.OrderCompleted:
				return apperror.AlreadyFulfilled(o.ID)
			case o.Status.Terminal():
				return apperror.Conflict("order is "+string(o.Status)).WithDetail("order_id", o.ID)
			}

			// Lock variants in a fixed order so two orders sharing variants
			// cannot deadlock.
			items := append([]model.OrderItem(nil), o.Items...)
			sort.SliceStable(items, func(i, j int) bool { return items[i].VariantID < items[j].VariantID })
			for _, item := range items {
				if _, err := uc.ledger.Append(ctx, &invDTO.AppendInput{
					MerchantID:    o.MerchantID,
					BranchID:      branchOf(input.BranchID, o.BranchID),
					VariantID:     item.VariantID,
					Type:          model.MovementSale,
					Delta:         -item.Quantity,
					Reason:        "order fulfillment",
					ReferenceType: model.ReferenceOrder,
					ReferenceID:   o.ID,
					Actor:         input.Actor,
				}); err != nil {
					return err
				}
			}

			now := uc.now()
			o.Status = model.OrderCompleted
			o.FulfilledAt = &now
			o.UpdatedAt = now
			return uc.repo.UpdateStatus(ctx, o)
		})
		return o, err
	})
	uc.metrics.OrderTransition(string(model.OrderCompleted), outcome(err))
	if err != nil {
		return nil, uc.fail(err, "fulfill order", zap.String("order_id", input.OrderID))
	}

	uc.logger.Info("Order fulfilled", zap.String("order_id", o.ID), zap.Int("items", len(o.Items)))
	return o, nil
}

// Cancel restores consumed stock when the order was fulfilled, then marks it
// canceled. A pending order only changes status.
func (uc *orderUseCase) Cancel(ctx context.Context, input *dto.TransitionInput) (*model.Order, error) {
	return uc.close(ctx, input, model.OrderCanceled)
}

// Refund is Cancel for a fulfilled order, ending in refunded.
func (uc *orderUseCase) Refund(ctx context.Context, input *dto.TransitionInput) (*model.Order, error) {
	return uc.close(ctx, input, model.OrderRefunded)
}

func (uc *orderUseCase) close(ctx context.Context, input *dto.TransitionInput, target model.OrderStatus) (*model.Order, error) {
	input = transitionFromCaller(ctx, input)
	if err := apperror.ValidateStruct(input); err != nil {
		return nil, err
	}

	o, err := uc.withOrderLock(ctx, input.OrderID, func() (*model.Order, error) {
		var o *model.Order
		err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			o, err = uc.lockOrder(ctx, input.MerchantID, input.OrderID)
			if err != nil {
				return err
			}
			if o.Status.Terminal() {
				return apperror.Conflict("order is already "+string(o.Status)).WithDetail("order_id", o.ID)
			}
			if target == model.OrderRefunded && o.Status != model.OrderCompleted {
				return apperror.Conflict("only fulfilled orders can be refunded").WithDetail("order_id", o.ID)
			}

			if o.Status == model.OrderCompleted {
				if err := uc.restoreStock(ctx, o, input, "order "+string(target)); err != nil {
					return err
				}
			}

			now := uc.now()
			o.Status = target
			o.CanceledAt = &now
			o.UpdatedAt = now
			return uc.repo.UpdateStatus(ctx, o)
		})
		return o, err
	})
	uc.metrics.OrderTransition(string(target), outcome(err))
	if err != nil {
		return nil, uc.fail(err, "close order", zap.String("order_id", input.OrderID), zap.String("target", string(target)))
	}

	uc.logger.Info("Order closed", zap.String("order_id", o.ID), zap.String("status", string(target)))
	return o, nil
}

// restoreStock reverses exactly what fulfillment consumed, read back from
// the ledger rather than the order items.
func (uc *orderUseCase) restoreStock(ctx context.Context, o *model.Order, input *dto.TransitionInput, reason string) error {
	movements, err := uc.ledger.ListByReference(ctx, o.MerchantID, model.ReferenceOrder, o.ID)
	if err != nil {
		return err
	}

	consumed := make(map[string]int)
	var variantIDs []string
	for _, m := range movements {
		if m.MovementType != model.MovementSale {
			continue
		}
		if _, ok := consumed[m.VariantID]; !ok {
			variantIDs = append(variantIDs, m.VariantID)
		}
		consumed[m.VariantID] += -m.Delta

		// A corrected sale already gave its stock back.
		corrections, err := uc.ledger.ListByReference(ctx, o.MerchantID, model.ReferenceMovement, m.ID)
		if err != nil {
			return err
		}
		for _, c := range corrections {
			consumed[m.VariantID] -= c.Delta
		}
	}
	sort.Strings(variantIDs)

	for _, variantID := range variantIDs {
		if consumed[variantID] <= 0 {
			continue
		}
		if _, err := uc.ledger.Append(ctx, &invDTO.AppendInput{
			MerchantID:    o.MerchantID,
			BranchID:      branchOf(input.BranchID, o.BranchID),
			VariantID:     variantID,
			Type:          model.MovementAdjustment,
			Delta:         consumed[variantID],
			Reason:        reason,
			ReferenceType: model.ReferenceOrder,
			ReferenceID:   o.ID,
			Actor:         input.Actor,
		}); err != nil {
			// A variant deleted after the sale cannot be restocked.
			if apperror.Is(err, apperror.CodeNotFound) {
				uc.logger.Warn("Skipping stock restore for deleted variant",
					zap.String("order_id", o.ID),
					zap.String("variant_id", variantID),
				)
				continue
			}
			return err
		}
	}
	return nil
}

func transitionFromCaller(ctx context.Context, input *dto.TransitionInput) *dto.TransitionInput {
	in := *input
	in.MerchantID, in.BranchID, in.Actor = fromCaller(ctx, in.MerchantID, in.BranchID, in.Actor)
	return &in
}

// fromCaller fills a blank tenant, branch or actor from the caller context
// set by the gRPC interceptor or the order event listener.
func fromCaller(ctx context.Context, merchantID string, branchID *string, actor model.Actor) (string, *string, model.Actor) {
	caller := auth.GetUserContext(ctx)
	if merchantID == "" {
		merchantID = caller.MerchantID
	}
	if branchID == nil {
		branchID = caller.BranchID
	}
	if actor == (model.Actor{}) {
		actor = auth.Actor(ctx)
	}
	return merchantID, branchID, actor
}

func (uc *orderUseCase) lockOrder(ctx context.Context, merchantID, id string) (*model.Order, error) {
	o, err := uc.repo.LockByID(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NotFound("order", id)
	}
	return o, nil
}

// withOrderLock runs fn while holding the per-order Redis lock. The lock
// only filters duplicate submissions; the row lock taken inside fn is what
// guarantees correctness.
func (uc *orderUseCase) withOrderLock(ctx context.Context, orderID string, fn func() (*model.Order, error)) (*model.Order, error) {
	if uc.locker == nil {
		return fn()
	}

	key := "order_lock:" + orderID
	token := uuid.New().String()

	var acquired bool
	for i := 0; i < lockRetries; i++ {
		ok, err := uc.locker.AcquireLock(ctx, key, token, uc.lockTTL)
		if err != nil {
			uc.logger.Warn("Order lock unavailable, relying on row lock", zap.String("order_id", orderID), zap.Error(err))
			return fn()
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(lockInterval)
	}
	if !acquired {
		return nil, apperror.Conflict("order is being processed").WithDetail("order_id", orderID)
	}

	defer func() {
		if err := uc.locker.ReleaseLock(context.Background(), key, token); err != nil {
			uc.logger.Warn("Failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()
	return fn()
}

func (uc *orderUseCase) fail(err error, op string, fields ...zap.Field) error {
	if apperror.Code(err) == apperror.CodeInternal {
		uc.logger.Error("Failed to "+op, append(fields, zap.Error(err))...)
	}
	return apperror.Wrap(err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperror.Code(err)
}

func branchOf(requested, stored *string) *string {
	if requested != nil {
		return requested
	}
	return stored
}

func actorID(a model.Actor) *string {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}
