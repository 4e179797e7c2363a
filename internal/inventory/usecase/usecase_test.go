package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	notifDTO "github.com/fekuna/omnipos-inventory-service/internal/notification/dto"
	notifUC "github.com/fekuna/omnipos-inventory-service/internal/notification/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/storage/memory"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const merchant = "merchant-1"

var (
	owner   = model.Actor{ID: "user-1", Type: model.ActorTypeUser, Role: model.RoleOwner}
	cashier = model.Actor{ID: "user-2", Type: model.ActorTypeUser, Role: "cashier"}
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (o *recordingObserver) OnStockDecreased(_ context.Context, _ *model.Variant, quantity int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, quantity)
	return o.err
}

func setup(t *testing.T, observer *recordingObserver) (*inventoryUseCase, *memory.Store) {
	t.Helper()
	store := memory.New()
	var obs inventory.StockObserver
	if observer != nil {
		obs = observer
	}
	uc := NewInventoryUseCase(store.Inventory(), store, obs, nil, logger.NewNop()).(*inventoryUseCase)
	return uc, store
}

func seedVariant(t *testing.T, store *memory.Store, id string, threshold int) {
	t.Helper()
	now := time.Now()
	err := store.Variants().Create(context.Background(), &model.Variant{
		BaseModel:  model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		MerchantID: merchant,
		ProductID:  "product-1",
		SKU:        "SKU-" + id,
		Threshold:  threshold,
	})
	require.NoError(t, err)
}

func restock(t *testing.T, uc *inventoryUseCase, variantID string, qty int) {
	t.Helper()
	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant,
		VariantID:  variantID,
		Type:       model.MovementRestock,
		Delta:      qty,
		Actor:      owner,
	})
	require.NoError(t, err)
}

func quantity(t *testing.T, store *memory.Store, variantID string) int {
	t.Helper()
	v, err := store.Variants().FindByID(context.Background(), merchant, variantID)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v.Quantity
}

func TestAppendRecordsBeforeAndAfter(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)

	restock(t, uc, "v1", 10)
	res, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant,
		VariantID:  "v1",
		Type:       model.MovementSale,
		Delta:      -3,
		Actor:      cashier,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, res.NewQuantity)
	assert.Equal(t, 10, res.Movement.QuantityBefore)
	assert.Equal(t, 7, res.Movement.QuantityAfter)
	assert.Equal(t, -3, res.Movement.Delta)
	require.NotNil(t, res.Movement.CreatedBy)
	assert.Equal(t, "user-2", *res.Movement.CreatedBy)
	assert.Equal(t, 7, quantity(t, store, "v1"))
}

func TestAppendInsufficientStockLeavesNoTrace(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 2)

	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant,
		VariantID:  "v1",
		Type:       model.MovementSale,
		Delta:      -5,
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "2", appErr.Details["available"])
	assert.Equal(t, "5", appErr.Details["requested"])

	movements, err := uc.GetMovements(context.Background(), merchant, "v1")
	require.NoError(t, err)
	assert.Len(t, movements, 1)
	assert.Equal(t, 2, quantity(t, store, "v1"))
}

func TestAppendSignRules(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)

	tests := []struct {
		name  string
		typ   model.MovementType
		delta int
	}{
		{"restock must be positive", model.MovementRestock, -1},
		{"sale must be negative", model.MovementSale, 2},
		{"zero delta", model.MovementAdjustment, 0},
		{"unknown type", model.MovementType("gift"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Append(context.Background(), &dto.AppendInput{
				MerchantID: merchant,
				VariantID:  "v1",
				Type:       tt.typ,
				Delta:      tt.delta,
			})
			assert.True(t, apperror.Is(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestAppendUnknownVariant(t *testing.T) {
	uc, _ := setup(t, nil)

	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant,
		VariantID:  "missing",
		Type:       model.MovementRestock,
		Delta:      1,
	})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestAppendIsScopedToMerchant(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)

	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: "someone-else",
		VariantID:  "v1",
		Type:       model.MovementRestock,
		Delta:      1,
	})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestAppendAdjustmentMayGoEitherWay(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 4)

	for _, delta := range []int{3, -6} {
		_, err := uc.Append(context.Background(), &dto.AppendInput{
			MerchantID: merchant,
			VariantID:  "v1",
			Type:       model.MovementAdjustment,
			Delta:      delta,
			Reason:     "stock count",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, quantity(t, store, "v1"))
}

func TestQuantityEqualsSumOfDeltas(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)

	restock(t, uc, "v1", 20)
	for _, delta := range []int{-3, -4, -1} {
		_, err := uc.Append(context.Background(), &dto.AppendInput{
			MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: delta,
		})
		require.NoError(t, err)
	}

	sum, err := store.Inventory().SumDeltas(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, 12, sum)
	assert.Equal(t, sum, quantity(t, store, "v1"))
}

func TestConcurrentSalesOfLastUnit(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Append(context.Background(), &dto.AppendInput{
				MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -1,
			})
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if apperror.Is(err, apperror.CodeInsufficientStock) {
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, quantity(t, store, "v1"))
}

func TestObserverSeesDecreasesOnly(t *testing.T) {
	obs := &recordingObserver{}
	uc, store := setup(t, obs)
	seedVariant(t, store, "v1", 5)

	restock(t, uc, "v1", 8)
	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -4,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{4}, obs.calls)
}

func TestObserverFailureRollsBackMovement(t *testing.T) {
	obs := &recordingObserver{err: errors.New("notifications table unavailable")}
	uc, store := setup(t, obs)
	seedVariant(t, store, "v1", 5)
	restock(t, uc, "v1", 8)

	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -4,
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInternal))
	assert.Equal(t, 8, quantity(t, store, "v1"))

	movements, err := uc.GetMovements(context.Background(), merchant, "v1")
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestAppendJoinsOuterTransaction(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 5)

	boom := errors.New("later step failed")
	err := store.WithinTx(context.Background(), func(ctx context.Context) error {
		if _, err := uc.Append(ctx, &dto.AppendInput{
			MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -2,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 5, quantity(t, store, "v1"))
}

func TestGetMovementsNewestFirst(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)

	restock(t, uc, "v1", 5)
	restock(t, uc, "v1", 7)

	movements, err := uc.GetMovements(context.Background(), merchant, "v1")
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, 7, movements[0].Delta)
	assert.Equal(t, 5, movements[1].Delta)
}

func TestListMovementsFilters(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	seedVariant(t, store, "v2", 0)
	restock(t, uc, "v1", 5)
	restock(t, uc, "v2", 5)
	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v2", Type: model.MovementSale, Delta: -1,
	})
	require.NoError(t, err)

	items, total, err := uc.ListMovements(context.Background(), &dto.MovementFilters{
		MerchantID:   merchant,
		MovementType: model.MovementRestock,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = uc.ListMovements(context.Background(), &dto.MovementFilters{
		MerchantID: merchant,
		Page:       2,
		PageSize:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)

	_, _, err = uc.ListMovements(context.Background(), &dto.MovementFilters{})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestCorrectMovement(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 10)

	sale, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -4,
	})
	require.NoError(t, err)

	t.Run("requires a privileged actor", func(t *testing.T) {
		_, err := uc.CorrectMovement(context.Background(), &dto.CorrectMovementInput{
			MerchantID: merchant, MovementID: sale.Movement.ID, Reason: "mis-scan", Actor: cashier,
		})
		assert.True(t, apperror.Is(err, apperror.CodeForbidden))
	})

	t.Run("appends a compensating adjustment", func(t *testing.T) {
		res, err := uc.CorrectMovement(context.Background(), &dto.CorrectMovementInput{
			MerchantID: merchant, MovementID: sale.Movement.ID, Reason: "mis-scan", Actor: owner,
		})
		require.NoError(t, err)
		assert.Equal(t, model.MovementAdjustment, res.Movement.MovementType)
		assert.Equal(t, 4, res.Movement.Delta)
		require.NotNil(t, res.Movement.ReferenceID)
		assert.Equal(t, sale.Movement.ID, *res.Movement.ReferenceID)
		assert.Equal(t, 10, quantity(t, store, "v1"))
	})

	t.Run("only once", func(t *testing.T) {
		_, err := uc.CorrectMovement(context.Background(), &dto.CorrectMovementInput{
			MerchantID: merchant, MovementID: sale.Movement.ID, Reason: "again", Actor: owner,
		})
		assert.True(t, apperror.Is(err, apperror.CodeConflict))
	})

	t.Run("history is kept", func(t *testing.T) {
		movements, err := uc.GetMovements(context.Background(), merchant, "v1")
		require.NoError(t, err)
		assert.Len(t, movements, 3)
	})
}

func TestRecomputeQuantityRepairsDrift(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 6)

	require.NoError(t, store.Inventory().UpdateQuantity(context.Background(), "v1", 99))

	_, err := uc.RecomputeQuantity(context.Background(), merchant, "v1", cashier)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))

	qty, err := uc.RecomputeQuantity(context.Background(), merchant, "v1", owner)
	require.NoError(t, err)
	assert.Equal(t, 6, qty)
	assert.Equal(t, 6, quantity(t, store, "v1"))
}

func TestTransfer(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "a", 0)
	seedVariant(t, store, "b", 0)
	restock(t, uc, "a", 5)

	err := uc.Transfer(context.Background(), &dto.TransferInput{
		MerchantID: merchant, FromVariantID: "a", ToVariantID: "b", Quantity: 3, Actor: owner,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, quantity(t, store, "a"))
	assert.Equal(t, 3, quantity(t, store, "b"))

	movements, err := uc.GetMovements(context.Background(), merchant, "b")
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementTransfer, movements[0].MovementType)

	err = uc.Transfer(context.Background(), &dto.TransferInput{
		MerchantID: merchant, FromVariantID: "a", ToVariantID: "b", Quantity: 10, Actor: owner,
	})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))
	assert.Equal(t, 2, quantity(t, store, "a"))
	assert.Equal(t, 3, quantity(t, store, "b"))

	err = uc.Transfer(context.Background(), &dto.TransferInput{
		MerchantID: merchant, FromVariantID: "a", ToVariantID: "a", Quantity: 1,
	})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestListLowStock(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "low", 5)
	seedVariant(t, store, "ok", 5)
	restock(t, uc, "low", 3)
	restock(t, uc, "ok", 30)

	items, total, err := uc.ListLowStock(context.Background(), merchant, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "low", items[0].ID)
}

func TestRestockThenOversell(t *testing.T) {
	uc, store := setup(t, nil)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 10)

	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -7,
	})
	require.NoError(t, err)

	_, err = uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -4,
	})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	assert.Equal(t, 3, quantity(t, store, "v1"))
	movements, err := uc.GetMovements(context.Background(), merchant, "v1")
	require.NoError(t, err)
	assert.Len(t, movements, 2)
}

func TestSellingOutRaisesOneOutOfStock(t *testing.T) {
	store := memory.New()
	log := logger.NewNop()
	notifier := notifUC.NewNotificationUseCase(store.Notifications(), nil, nil, nil, "en", log)
	uc := NewInventoryUseCase(store.Inventory(), store, notifier, nil, log).(*inventoryUseCase)
	seedVariant(t, store, "v1", 2)
	restock(t, uc, "v1", 5)

	_, err := uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, quantity(t, store, "v1"))

	_, err = uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -1,
	})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	movements, err := uc.GetMovements(context.Background(), merchant, "v1")
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	items, _, err := store.Notifications().List(context.Background(), &notifDTO.NotificationFilters{MerchantID: merchant})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.NotificationOutOfStock, items[0].Type)
}

func TestMovementsCountedOnCommitOnly(t *testing.T) {
	store := memory.New()
	m := metrics.New("ledger_test")
	uc := NewInventoryUseCase(store.Inventory(), store, nil, m, logger.NewNop()).(*inventoryUseCase)
	seedVariant(t, store, "v1", 0)
	restock(t, uc, "v1", 5)

	boom := errors.New("later step failed")
	err := store.WithinTx(context.Background(), func(ctx context.Context) error {
		if _, err := uc.Append(ctx, &dto.AppendInput{
			MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -2,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MovementsTotal.WithLabelValues("sale")))

	_, err = uc.Append(context.Background(), &dto.AppendInput{
		MerchantID: merchant, VariantID: "v1", Type: model.MovementSale, Delta: -2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MovementsTotal.WithLabelValues("sale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MovementsTotal.WithLabelValues("restock")))
}
