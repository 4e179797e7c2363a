package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/fekuna/omnipos-inventory-service/internal/inventory")

type inventoryUseCase struct {
	repo     inventory.Repository
	tx       database.Transactor
	observer inventory.StockObserver
	metrics  *metrics.Metrics
	logger   logger.ZapLogger
	now      func() time.Time
}

// NewInventoryUseCase builds the stock ledger. observer may be nil.
func NewInventoryUseCase(repo inventory.Repository, tx database.Transactor, observer inventory.StockObserver, m *metrics.Metrics, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:     repo,
		tx:       tx,
		observer: observer,
		metrics:  m,
		logger:   log,
		now:      time.Now,
	}
}

func (uc *inventoryUseCase) Append(ctx context.Context, input *dto.AppendInput) (*dto.AppendResult, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "inventory.Append")
	defer span.End()
	span.SetAttributes(
		attribute.String("variant.id", input.VariantID),
		attribute.String("movement.type", string(input.Type)),
		attribute.Int("movement.delta", input.Delta),
	)

	var result *dto.AppendResult
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = uc.appendLocked(ctx, input)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, apperror.Code(err))
		return nil, uc.fail(err, "append stock movement", zap.String("variant_id", input.VariantID))
	}
	return result, nil
}

// appendLocked must run inside a transaction: the variant row stays locked
// from the read until commit, so concurrent appends serialize on it.
func (uc *inventoryUseCase) appendLocked(ctx context.Context, input *dto.AppendInput) (*dto.AppendResult, error) {
	v, err := uc.repo.LockVariant(ctx, input.MerchantID, input.VariantID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperror.NotFound("variant", input.VariantID)
	}

	newQuantity := v.Quantity + input.Delta
	if newQuantity < 0 {
		uc.metrics.InsufficientStock()
		return nil, apperror.InsufficientStock(v.ID, v.Quantity, -input.Delta)
	}

	movement := &model.StockMovement{
		ID:             uuid.New().String(),
		VariantID:      v.ID,
		MerchantID:     input.MerchantID,
		BranchID:       input.BranchID,
		MovementType:   input.Type,
		Delta:          input.Delta,
		QuantityBefore: v.Quantity,
		QuantityAfter:  newQuantity,
		ReferenceType:  optional(input.ReferenceType),
		ReferenceID:    optional(input.ReferenceID),
		Notes:          input.Reason,
		CreatedBy:      actorID(input.Actor),
		ActorType:      actorType(input.Actor),
		CreatedAt:      uc.now(),
	}

	if err := uc.repo.InsertMovement(ctx, movement); err != nil {
		return nil, err
	}
	if err := uc.repo.UpdateQuantity(ctx, v.ID, newQuantity); err != nil {
		return nil, err
	}
	v.Quantity = newQuantity

	movementType := string(input.Type)
	database.AfterCommit(ctx, func() { uc.metrics.MovementRecorded(movementType) })

	if input.Delta < 0 && uc.observer != nil {
		if err := uc.observer.OnStockDecreased(ctx, v, newQuantity); err != nil {
			return nil, err
		}
	}

	return &dto.AppendResult{Movement: movement, Variant: v, NewQuantity: newQuantity}, nil
}

func (uc *inventoryUseCase) GetMovements(ctx context.Context, merchantID, variantID string) ([]model.StockMovement, error) {
	if merchantID == "" || variantID == "" {
		return nil, apperror.Validation("merchant and variant are required")
	}
	movements, _, err := uc.repo.ListMovements(ctx, &dto.MovementFilters{
		MerchantID: merchantID,
		VariantID:  variantID,
	})
	if err != nil {
		return nil, uc.fail(err, "list movements", zap.String("variant_id", variantID))
	}
	return movements, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	if filters.MerchantID == "" {
		return nil, 0, apperror.Validation("merchant is required")
	}
	items, count, err := uc.repo.ListMovements(ctx, filters)
	if err != nil {
		return nil, 0, uc.fail(err, "list movements")
	}
	return items, count, nil
}

func (uc *inventoryUseCase) ListByReference(ctx context.Context, merchantID, refType, refID string) ([]model.StockMovement, error) {
	items, err := uc.repo.ListMovementsByReference(ctx, merchantID, refType, refID)
	if err != nil {
		return nil, uc.fail(err, "list movements by reference", zap.String("reference_id", refID))
	}
	return items, nil
}

// CorrectMovement reverses a movement with a compensating adjustment. A
// movement can be corrected once.
func (uc *inventoryUseCase) CorrectMovement(ctx context.Context, input *dto.CorrectMovementInput) (*dto.AppendResult, error) {
	if err := apperror.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Actor.IsPrivileged() {
		return nil, apperror.Forbidden("correcting stock history requires an owner or admin")
	}

	var result *dto.AppendResult
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		original, err := uc.repo.FindMovement(ctx, input.MerchantID, input.MovementID)
		if err != nil {
			return err
		}
		if original == nil {
			return apperror.NotFound("stock movement", input.MovementID)
		}

		previous, err := uc.repo.ListMovementsByReference(ctx, input.MerchantID, model.ReferenceMovement, original.ID)
		if err != nil {
			return err
		}
		if len(previous) > 0 {
			return apperror.Conflict("stock movement already corrected").WithDetail("movement_id", original.ID)
		}
		if restored, err := uc.orderRestored(ctx, original); err != nil {
			return err
		} else if restored {
			return apperror.Conflict("order stock already restored").WithDetail("movement_id", original.ID)
		}

		result, err = uc.appendLocked(ctx, &dto.AppendInput{
			MerchantID:    input.MerchantID,
			BranchID:      input.BranchID,
			VariantID:     original.VariantID,
			Type:          model.MovementAdjustment,
			Delta:         -original.Delta,
			Reason:        input.Reason,
			ReferenceType: model.ReferenceMovement,
			ReferenceID:   original.ID,
			Actor:         input.Actor,
		})
		return err
	})
	if err != nil {
		return nil, uc.fail(err, "correct stock movement", zap.String("movement_id", input.MovementID))
	}

	uc.logger.Info("Stock movement corrected",
		zap.String("movement_id", input.MovementID),
		zap.String("compensation_id", result.Movement.ID),
		zap.String("actor", input.Actor.ID),
	)
	return result, nil
}

// orderRestored reports whether m is an order sale whose stock a cancel or
// refund already gave back.
func (uc *inventoryUseCase) orderRestored(ctx context.Context, m *model.StockMovement) (bool, error) {
	if m.MovementType != model.MovementSale || m.ReferenceType == nil || *m.ReferenceType != model.ReferenceOrder || m.ReferenceID == nil {
		return false, nil
	}
	related, err := uc.repo.ListMovementsByReference(ctx, m.MerchantID, model.ReferenceOrder, *m.ReferenceID)
	if err != nil {
		return false, err
	}
	for _, r := range related {
		if r.MovementType == model.MovementAdjustment && r.VariantID == m.VariantID {
			return true, nil
		}
	}
	return false, nil
}

// RecomputeQuantity rebuilds the cached quantity from the ledger.
func (uc *inventoryUseCase) RecomputeQuantity(ctx context.Context, merchantID, variantID string, actor model.Actor) (int, error) {
	if !actor.IsPrivileged() {
		return 0, apperror.Forbidden("recomputing stock requires an owner or admin")
	}

	var quantity int
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := uc.repo.LockVariant(ctx, merchantID, variantID)
		if err != nil {
			return err
		}
		if v == nil {
			return apperror.NotFound("variant", variantID)
		}

		sum, err := uc.repo.SumDeltas(ctx, variantID)
		if err != nil {
			return err
		}
		if sum < 0 {
			return apperror.Conflict("ledger sum is negative").WithDetail("variant_id", variantID)
		}
		if sum != v.Quantity {
			uc.logger.Warn("Cached quantity drifted from ledger",
				zap.String("variant_id", variantID),
				zap.Int("cached", v.Quantity),
				zap.Int("ledger", sum),
			)
			if err := uc.repo.UpdateQuantity(ctx, variantID, sum); err != nil {
				return err
			}
		}
		quantity = sum
		return nil
	})
	if err != nil {
		return 0, uc.fail(err, "recompute quantity", zap.String("variant_id", variantID))
	}
	return quantity, nil
}

// Transfer moves stock between two variants in one transaction. Both rows
// are locked in id order so opposite transfers cannot deadlock.
func (uc *inventoryUseCase) Transfer(ctx context.Context, input *dto.TransferInput) error {
	if err := apperror.ValidateStruct(input); err != nil {
		return err
	}

	transferID := uuid.New().String()
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		ids := []string{input.FromVariantID, input.ToVariantID}
		sort.Strings(ids)
		for _, id := range ids {
			v, err := uc.repo.LockVariant(ctx, input.MerchantID, id)
			if err != nil {
				return err
			}
			if v == nil {
				return apperror.NotFound("variant", id)
			}
		}

		legs := []struct {
			variantID string
			delta     int
		}{
			{input.FromVariantID, -input.Quantity},
			{input.ToVariantID, input.Quantity},
		}
		for _, leg := range legs {
			if _, err := uc.appendLocked(ctx, &dto.AppendInput{
				MerchantID:    input.MerchantID,
				BranchID:      input.BranchID,
				VariantID:     leg.variantID,
				Type:          model.MovementTransfer,
				Delta:         leg.delta,
				Reason:        input.Reason,
				ReferenceType: model.ReferenceTransfer,
				ReferenceID:   transferID,
				Actor:         input.Actor,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uc.fail(err, "transfer stock",
			zap.String("from_variant_id", input.FromVariantID),
			zap.String("to_variant_id", input.ToVariantID),
		)
	}

	return nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.Variant, int, error) {
	items, count, err := uc.repo.ListLowStock(ctx, merchantID, page, pageSize)
	if err != nil {
		return nil, 0, uc.fail(err, "list low stock")
	}
	return items, count, nil
}

// fail passes business errors through and turns anything else into an
// INTERNAL_ERROR after logging the cause.
func (uc *inventoryUseCase) fail(err error, op string, fields ...zap.Field) error {
	if apperror.Code(err) == apperror.CodeInternal {
		uc.logger.Error("Failed to "+op, append(fields, zap.Error(err))...)
	}
	return apperror.Wrap(err)
}

func validateAppend(input *dto.AppendInput) error {
	if err := apperror.ValidateStruct(input); err != nil {
		return err
	}
	switch input.Type {
	case model.MovementRestock:
		if input.Delta <= 0 {
			return apperror.Validation("restock must increase stock").WithDetail("Delta", "must be positive")
		}
	case model.MovementSale:
		if input.Delta >= 0 {
			return apperror.Validation("sale must decrease stock").WithDetail("Delta", "must be negative")
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func actorID(a model.Actor) *string {
	if a.ID == "" || a.ID == "unknown" {
		return nil
	}
	id := a.ID
	return &id
}

func actorType(a model.Actor) string {
	if a.Type == "" {
		return model.ActorTypeUser
	}
	return a.Type
}
