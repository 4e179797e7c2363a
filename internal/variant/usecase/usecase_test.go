package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	attrUC "github.com/fekuna/omnipos-inventory-service/internal/attribute/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDTO "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	invUC "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/storage/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/variant/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const merchant = "merchant-1"

type fakeIndexer struct {
	mu        sync.Mutex
	indexed   map[string]bool
	searchErr error
}

func (f *fakeIndexer) Index(_ context.Context, v *model.Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = make(map[string]bool)
	}
	f.indexed[v.ID] = true
	return nil
}

func (f *fakeIndexer) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	return nil
}

func (f *fakeIndexer) Search(context.Context, string, string, int) ([]model.Variant, error) {
	return nil, f.searchErr
}

func (f *fakeIndexer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.indexed)
}

type fixture struct {
	uc      *variantUseCase
	store   *memory.Store
	ledger  inventory.UseCase
	indexer *fakeIndexer
}

func setup(t *testing.T, opts Options) *fixture {
	t.Helper()
	log := logger.NewNop()
	store := memory.New()
	store.AddProduct(model.Product{
		BaseModel:   model.BaseModel{ID: "product-1"},
		MerchantID:  merchant,
		Name:        "Classic T-Shirt",
		HasVariants: true,
		IsActive:    true,
	})

	ledger := invUC.NewInventoryUseCase(store.Inventory(), store, nil, nil, log)
	attributes := attrUC.NewAttributeUseCase(store.Attributes(), store, nil, log)
	idx := &fakeIndexer{searchErr: errors.New("connection refused")}
	uc := NewVariantUseCase(store.Variants(), store.Products(), attributes, ledger, store, idx, nil, opts, log).(*variantUseCase)
	return &fixture{uc: uc, store: store, ledger: ledger, indexer: idx}
}

func matrixInput(baseSKU string, qty int) *dto.GenerateVariantsInput {
	return &dto.GenerateVariantsInput{
		MerchantID: merchant,
		ProductID:  "product-1",
		BaseSKU:    baseSKU,
		Defaults: dto.VariantDefaults{
			SellingPrice: decimal.NewFromInt(100),
			Quantity:     qty,
			Threshold:    2,
		},
		Matrix: []dto.AttributeInput{
			{Name: "Color", Values: []string{"Red", "Blue"}},
			{Name: "Size", Values: []string{"S", "M"}},
		},
		Actor: model.Actor{ID: "user-1", Type: model.ActorTypeUser},
	}
}

func valueNames(t *testing.T, f *fixture, v model.Variant) []string {
	t.Helper()
	attrs, err := f.store.Attributes().ListByMerchant(context.Background(), merchant)
	require.NoError(t, err)
	names := make(map[string]string)
	for _, a := range attrs {
		for _, val := range a.Values {
			names[val.ID] = val.Value
		}
	}
	out := make([]string, len(v.Attributes))
	for i, pair := range v.Attributes {
		out[i] = names[pair.ValueID]
	}
	return out
}

func TestGenerateFromMatrix(t *testing.T) {
	f := setup(t, Options{RejectDuplicateCombinations: true})

	variants, err := f.uc.GenerateVariants(context.Background(), matrixInput("TS", 5))
	require.NoError(t, err)
	require.Len(t, variants, 4)

	wantSKUs := []string{"TS-1", "TS-2", "TS-3", "TS-4"}
	wantValues := [][]string{{"Red", "S"}, {"Red", "M"}, {"Blue", "S"}, {"Blue", "M"}}
	for i, v := range variants {
		assert.Equal(t, wantSKUs[i], v.SKU)
		assert.Equal(t, wantValues[i], valueNames(t, f, v))
		assert.Equal(t, 5, v.Quantity)
		assert.Equal(t, 2, v.Threshold)
	}
}

func TestGenerateSeedsInitialStockOnce(t *testing.T) {
	f := setup(t, Options{})

	variants, err := f.uc.GenerateVariants(context.Background(), matrixInput("TS", 5))
	require.NoError(t, err)

	for _, v := range variants {
		movements, err := f.ledger.GetMovements(context.Background(), merchant, v.ID)
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, model.MovementRestock, movements[0].MovementType)
		assert.Equal(t, 5, movements[0].Delta)
		assert.Equal(t, "initial stock", movements[0].Notes)
	}
}

func TestGenerateWithZeroQuantityWritesNoMovement(t *testing.T) {
	f := setup(t, Options{})

	variants, err := f.uc.GenerateVariants(context.Background(), matrixInput("TS", 0))
	require.NoError(t, err)

	items, total, err := f.ledger.ListMovements(context.Background(), &invDTO.MovementFilters{MerchantID: merchant})
	require.NoError(t, err)
	assert.Len(t, variants, 4)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestGenerateIsAllOrNothingOnDuplicateSKU(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	_, err := f.uc.CreateVariant(ctx, &dto.CreateVariantInput{
		MerchantID: merchant,
		ProductID:  "product-1",
		Variant:    dto.VariantSpec{SKU: "TS-3"},
	})
	require.NoError(t, err)

	_, err = f.uc.GenerateVariants(ctx, matrixInput("TS", 5))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeConflict))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TS-3", appErr.Details["sku"])

	variants, err := f.uc.ListVariants(ctx, merchant, "product-1")
	require.NoError(t, err)
	assert.Len(t, variants, 1)

	attrs, err := f.store.Attributes().ListByMerchant(ctx, merchant)
	require.NoError(t, err)
	assert.Empty(t, attrs)

	_, total, err := f.ledger.ListMovements(ctx, &invDTO.MovementFilters{MerchantID: merchant})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGenerateRejectsRepeatedSKUInBatch(t *testing.T) {
	f := setup(t, Options{})

	_, err := f.uc.GenerateVariants(context.Background(), &dto.GenerateVariantsInput{
		MerchantID: merchant,
		ProductID:  "product-1",
		Variants: []dto.VariantSpec{
			{SKU: "A-1"},
			{SKU: "A-1"},
		},
	})
	assert.True(t, apperror.Is(err, apperror.CodeConflict))
}

func TestGenerateCollapsesCaseDuplicates(t *testing.T) {
	f := setup(t, Options{})

	variants, err := f.uc.GenerateVariants(context.Background(), &dto.GenerateVariantsInput{
		MerchantID: merchant,
		ProductID:  "product-1",
		BaseSKU:    "MUG",
		Matrix: []dto.AttributeInput{
			{Name: "Color", Values: []string{"Red", "red", "RED"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, variants, 1)

	attrs, err := f.store.Attributes().ListByMerchant(context.Background(), merchant)
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	require.Len(t, attrs[0].Values, 1)
	assert.Equal(t, "Red", attrs[0].Values[0].Value)
}

func TestGenerateReusesCatalogCaseInsensitively(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	_, err := f.uc.GenerateVariants(ctx, matrixInput("TS", 0))
	require.NoError(t, err)

	in := matrixInput("TX", 0)
	in.Matrix = []dto.AttributeInput{{Name: "COLOR", Values: []string{"red", "Green"}}}
	_, err = f.uc.GenerateVariants(ctx, in)
	require.NoError(t, err)

	attrs, err := f.store.Attributes().ListByMerchant(ctx, merchant)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	for _, a := range attrs {
		if a.Name == "Color" {
			assert.Len(t, a.Values, 3)
		}
	}
}

func TestGenerateEmptyInputYieldsNothing(t *testing.T) {
	f := setup(t, Options{})

	variants, err := f.uc.GenerateVariants(context.Background(), &dto.GenerateVariantsInput{
		MerchantID: merchant,
		ProductID:  "product-1",
	})
	require.NoError(t, err)
	assert.Empty(t, variants)
}

func TestGenerateUsesProductSlugWithoutBaseSKU(t *testing.T) {
	f := setup(t, Options{})

	variants, err := f.uc.GenerateVariants(context.Background(), matrixInput("", 0))
	require.NoError(t, err)
	require.Len(t, variants, 4)
	assert.Equal(t, "classic-t-shirt-1", variants[0].SKU)
	assert.Equal(t, "classic-t-shirt-4", variants[3].SKU)
}

func TestGenerateUnknownProduct(t *testing.T) {
	f := setup(t, Options{})

	in := matrixInput("TS", 1)
	in.ProductID = "missing"
	_, err := f.uc.GenerateVariants(context.Background(), in)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	in = matrixInput("TS", 1)
	in.MerchantID = "merchant-2"
	_, err = f.uc.GenerateVariants(context.Background(), in)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestGenerateValidation(t *testing.T) {
	f := setup(t, Options{})

	tests := []struct {
		name  string
		input *dto.GenerateVariantsInput
	}{
		{"missing product", &dto.GenerateVariantsInput{MerchantID: merchant}},
		{"negative quantity", &dto.GenerateVariantsInput{
			MerchantID: merchant, ProductID: "product-1",
			Defaults: dto.VariantDefaults{Quantity: -1},
		}},
		{"attribute without values", &dto.GenerateVariantsInput{
			MerchantID: merchant, ProductID: "product-1",
			Matrix: []dto.AttributeInput{{Name: "Color"}},
		}},
		{"attribute with blank values", &dto.GenerateVariantsInput{
			MerchantID: merchant, ProductID: "product-1",
			Matrix: []dto.AttributeInput{{Name: "Size", Values: []string{"  ", "\t"}}},
		}},
		{"attribute twice", &dto.GenerateVariantsInput{
			MerchantID: merchant, ProductID: "product-1",
			Matrix: []dto.AttributeInput{
				{Name: "Color", Values: []string{"Red"}},
				{Name: "color", Values: []string{"Blue"}},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.GenerateVariants(context.Background(), tt.input)
			assert.True(t, apperror.Is(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestDuplicateCombinationPolicy(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		f := setup(t, Options{RejectDuplicateCombinations: true})
		_, err := f.uc.GenerateVariants(context.Background(), matrixInput("TS", 0))
		require.NoError(t, err)

		_, err = f.uc.GenerateVariants(context.Background(), matrixInput("TX", 0))
		assert.True(t, apperror.Is(err, apperror.CodeConflict))
	})

	t.Run("allowed", func(t *testing.T) {
		f := setup(t, Options{})
		_, err := f.uc.GenerateVariants(context.Background(), matrixInput("TS", 0))
		require.NoError(t, err)

		variants, err := f.uc.GenerateVariants(context.Background(), matrixInput("TX", 0))
		require.NoError(t, err)
		assert.Len(t, variants, 4)
	})
}

func TestCreateVariantContinuesNumbering(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	_, err := f.uc.GenerateVariants(ctx, matrixInput("", 0))
	require.NoError(t, err)

	v, err := f.uc.CreateVariant(ctx, &dto.CreateVariantInput{
		MerchantID: merchant,
		ProductID:  "product-1",
		Variant: dto.VariantSpec{
			Barcode:    "8991234567890",
			Attributes: []dto.AttributePair{{Name: "Color", Value: "Green"}},
			Quantity:   3,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "classic-t-shirt-5", v.SKU)
	assert.Equal(t, 3, v.Quantity)
	require.NotNil(t, v.Barcode)

	got, err := f.uc.GetVariant(ctx, merchant, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
}

func TestCreateVariantSkipsTakenNumberAfterDelete(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	variants, err := f.uc.GenerateVariants(ctx, matrixInput("", 0))
	require.NoError(t, err)
	require.NoError(t, f.uc.DeleteVariant(ctx, merchant, variants[1].ID))

	v, err := f.uc.CreateVariant(ctx, &dto.CreateVariantInput{
		MerchantID: merchant,
		ProductID:  "product-1",
		Variant: dto.VariantSpec{
			Attributes: []dto.AttributePair{{Name: "Color", Value: "Green"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "classic-t-shirt-5", v.SKU)
}

func TestVariantsAreIndexedAfterCommit(t *testing.T) {
	f := setup(t, Options{})

	_, err := f.uc.GenerateVariants(context.Background(), matrixInput("TS", 0))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return f.indexer.count() == 4 }, time.Second, 10*time.Millisecond)
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	_, err := f.uc.GenerateVariants(ctx, matrixInput("TS", 0))
	require.NoError(t, err)

	found, err := f.uc.SearchVariants(ctx, merchant, "ts-", 2)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "TS-1", found[0].SKU)

	_, err = f.uc.SearchVariants(ctx, merchant, "  ", 2)
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestDeleteVariantKeepsHistory(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	variants, err := f.uc.GenerateVariants(ctx, matrixInput("TS", 2))
	require.NoError(t, err)
	id := variants[0].ID

	require.NoError(t, f.uc.DeleteVariant(ctx, merchant, id))

	_, err = f.uc.GetVariant(ctx, merchant, id)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	movements, err := f.ledger.GetMovements(ctx, merchant, id)
	require.NoError(t, err)
	assert.Len(t, movements, 1)

	err = f.uc.DeleteVariant(ctx, merchant, id)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}
