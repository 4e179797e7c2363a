package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/attribute"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDTO "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	"github.com/fekuna/omnipos-inventory-service/internal/variant"
	"github.com/fekuna/omnipos-inventory-service/internal/variant/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	otelattr "go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	initialStockReason = "initial stock"
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	indexTimeout       = 5 * time.Second
)

var tracer = otel.Tracer("github.com/fekuna/omnipos-inventory-service/internal/variant")

type Options struct {
	// RejectDuplicateCombinations refuses a second variant with the same
	// attribute pairs on one product.
	RejectDuplicateCombinations bool
}

type variantUseCase struct {
	repo       variant.Repository
	products   product.Repository
	attributes attribute.UseCase
	ledger     inventory.UseCase
	tx         database.Transactor
	indexer    variant.Indexer
	metrics    *metrics.Metrics
	opts       Options
	logger     logger.ZapLogger
}

// NewVariantUseCase builds the variant generator. indexer may be nil.
func NewVariantUseCase(
	repo variant.Repository,
	products product.Repository,
	attributes attribute.UseCase,
	ledger inventory.UseCase,
	tx database.Transactor,
	indexer variant.Indexer,
	m *metrics.Metrics,
	opts Options,
	log logger.ZapLogger,
) variant.UseCase {
	return &variantUseCase{
		repo:       repo,
		products:   products,
		attributes: attributes,
		ledger:     ledger,
		tx:         tx,
		indexer:    indexer,
		metrics:    m,
		opts:       opts,
		logger:     log,
	}
}

// GenerateVariants creates every variant described by the explicit list, or
// by the cartesian product of the matrix when no list is given. The batch is
// all-or-nothing.
func (uc *variantUseCase) GenerateVariants(ctx context.Context, input *dto.GenerateVariantsInput) ([]model.Variant, error) {
	if err := apperror.ValidateStruct(input); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "variant.GenerateVariants")
	defer span.End()

	specs := input.Variants
	if len(specs) == 0 {
		combos, err := expandMatrix(input.Matrix)
		if err != nil {
			return nil, err
		}
		specs = make([]dto.VariantSpec, len(combos))
		for i, pairs := range combos {
			specs[i] = dto.VariantSpec{
				Attributes:   pairs,
				CostPrice:    input.Defaults.CostPrice,
				SellingPrice: input.Defaults.SellingPrice,
				Quantity:     input.Defaults.Quantity,
				Threshold:    input.Defaults.Threshold,
			}
		}
	}
	span.SetAttributes(
		otelattr.String("product.id", input.ProductID),
		otelattr.Int("variant.count", len(specs)),
	)

	return uc.create(ctx, &batch{
		merchantID: input.MerchantID,
		branchID:   input.BranchID,
		productID:  input.ProductID,
		baseSKU:    strings.TrimSpace(input.BaseSKU),
		startIndex: 1,
		specs:      specs,
		actor:      input.Actor,
	})
}

func (uc *variantUseCase) CreateVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.Variant, error) {
	if err := apperror.ValidateStruct(input); err != nil {
		return nil, err
	}

	existing, err := uc.repo.ListByProduct(ctx, input.MerchantID, input.ProductID)
	if err != nil {
		uc.logger.Error("Failed to list variants", zap.String("product_id", input.ProductID), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	created, err := uc.create(ctx, &batch{
		merchantID: input.MerchantID,
		branchID:   input.BranchID,
		productID:  input.ProductID,
		startIndex: len(existing) + 1,
		skipTaken:  true,
		specs:      []dto.VariantSpec{input.Variant},
		actor:      input.Actor,
	})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

type batch struct {
	merchantID string
	branchID   *string
	productID  string
	baseSKU    string
	startIndex int
	// skipTaken advances generated SKU numbers past ones already in use.
	skipTaken bool
	specs     []dto.VariantSpec
	actor     model.Actor
}

func (uc *variantUseCase) create(ctx context.Context, b *batch) ([]model.Variant, error) {
	for i, spec := range b.specs {
		if err := checkPairs(spec.Attributes); err != nil {
			return nil, err.WithDetail("variant", fmt.Sprint(i+1))
		}
	}

	created := make([]model.Variant, 0, len(b.specs))
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := uc.products.FindByID(ctx, b.merchantID, b.productID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.NotFound("product", b.productID)
		}
		if len(b.specs) == 0 {
			return nil
		}

		base := b.baseSKU
		if base == "" {
			base = slug(p.Name)
		}
		skus := make([]string, len(b.specs))
		next := b.startIndex
		for i, spec := range b.specs {
			skus[i] = strings.TrimSpace(spec.SKU)
			if skus[i] != "" {
				continue
			}
			if b.skipTaken {
				if next, err = uc.freeSKUIndex(ctx, b.merchantID, base, next); err != nil {
					return err
				}
			}
			skus[i] = fmt.Sprintf("%s-%d", base, next)
			next++
		}
		if err := uc.checkSKUs(ctx, b.merchantID, skus); err != nil {
			return err
		}

		combos := make(map[string]bool, len(b.specs))
		for i, spec := range b.specs {
			v, err := uc.insert(ctx, b, spec, skus[i], combos)
			if err != nil {
				return err
			}
			created = append(created, *v)
		}

		database.AfterCommit(ctx, func() {
			go uc.index(created)
		})
		return nil
	})
	if err != nil {
		if apperror.Code(err) == apperror.CodeInternal {
			uc.logger.Error("Failed to create variants",
				zap.String("merchant_id", b.merchantID),
				zap.String("product_id", b.productID),
				zap.Error(err),
			)
		}
		return nil, apperror.Wrap(err)
	}

	uc.metrics.VariantsCreated(len(created))
	uc.logger.Info("Variants created",
		zap.String("product_id", b.productID),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// checkSKUs fails on the first SKU, in batch order, that repeats inside the
// batch or already exists in the merchant catalog. Nothing has been written
// when it runs.
func (uc *variantUseCase) checkSKUs(ctx context.Context, merchantID string, skus []string) error {
	seen := make(map[string]bool, len(skus))
	for _, sku := range skus {
		if seen[sku] {
			return apperror.DuplicateSKU(sku)
		}
		seen[sku] = true
	}

	taken, err := uc.repo.ExistingSKUs(ctx, merchantID, skus)
	if err != nil {
		return err
	}
	if len(taken) == 0 {
		return nil
	}
	takenSet := make(map[string]bool, len(taken))
	for _, sku := range taken {
		takenSet[sku] = true
	}
	for _, sku := range skus {
		if takenSet[sku] {
			return apperror.DuplicateSKU(sku)
		}
	}
	return nil
}

func (uc *variantUseCase) insert(ctx context.Context, b *batch, spec dto.VariantSpec, sku string, combos map[string]bool) (*model.Variant, error) {
	pairs := make([]model.VariantAttribute, 0, len(spec.Attributes))
	for pos, pair := range spec.Attributes {
		attr, err := uc.attributes.EnsureAttribute(ctx, b.merchantID, pair.Name)
		if err != nil {
			return nil, err
		}
		val, err := uc.attributes.EnsureValue(ctx, attr, pair.Value)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, model.VariantAttribute{
			Position:    pos,
			AttributeID: attr.ID,
			ValueID:     val.ID,
		})
	}

	key := model.CombinationKey(pairs)
	if uc.opts.RejectDuplicateCombinations && key != "" {
		exists := combos[key]
		if !exists {
			var err error
			exists, err = uc.repo.CombinationExists(ctx, b.productID, key)
			if err != nil {
				return nil, err
			}
		}
		if exists {
			return nil, apperror.Conflict("attribute combination already exists").
				WithDetail("sku", sku).
				WithDetail("combination", describe(spec.Attributes))
		}
	}
	combos[key] = true

	now := time.Now()
	v := &model.Variant{
		BaseModel:      model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		MerchantID:     b.merchantID,
		ProductID:      b.productID,
		SKU:            sku,
		CombinationKey: key,
		Threshold:      spec.Threshold,
		CostPrice:      spec.CostPrice,
		SellingPrice:   spec.SellingPrice,
		ExpiryDate:     spec.ExpiryDate,
		Attributes:     pairs,
	}
	if barcode := strings.TrimSpace(spec.Barcode); barcode != "" {
		v.Barcode = &barcode
	}
	for i := range v.Attributes {
		v.Attributes[i].VariantID = v.ID
	}

	if err := uc.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	// Quantity only ever moves through the ledger, starting from zero.
	if spec.Quantity > 0 {
		res, err := uc.ledger.Append(ctx, &invDTO.AppendInput{
			MerchantID: b.merchantID,
			BranchID:   b.branchID,
			VariantID:  v.ID,
			Type:       model.MovementRestock,
			Delta:      spec.Quantity,
			Reason:     initialStockReason,
			Actor:      b.actor,
		})
		if err != nil {
			return nil, err
		}
		v.Quantity = res.NewQuantity
	}
	return v, nil
}

// freeSKUIndex returns the first n >= from whose generated SKU is unused.
func (uc *variantUseCase) freeSKUIndex(ctx context.Context, merchantID, base string, from int) (int, error) {
	for n := from; ; n++ {
		taken, err := uc.repo.ExistingSKUs(ctx, merchantID, []string{fmt.Sprintf("%s-%d", base, n)})
		if err != nil {
			return 0, err
		}
		if len(taken) == 0 {
			return n, nil
		}
	}
}

func (uc *variantUseCase) GetVariant(ctx context.Context, merchantID, id string) (*model.Variant, error) {
	v, err := uc.repo.FindByID(ctx, merchantID, id)
	if err != nil {
		uc.logger.Error("Failed to get variant", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	if v == nil {
		return nil, apperror.NotFound("variant", id)
	}
	return v, nil
}

func (uc *variantUseCase) ListVariants(ctx context.Context, merchantID, productID string) ([]model.Variant, error) {
	items, err := uc.repo.ListByProduct(ctx, merchantID, productID)
	if err != nil {
		uc.logger.Error("Failed to list variants", zap.String("product_id", productID), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return items, nil
}

// SearchVariants queries the search index and falls back to a database SKU
// match when the index is not configured or unavailable.
func (uc *variantUseCase) SearchVariants(ctx context.Context, merchantID, query string, limit int) ([]model.Variant, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Validation("search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	if uc.indexer != nil {
		items, err := uc.indexer.Search(ctx, merchantID, query, limit)
		if err == nil {
			return items, nil
		}
		uc.logger.Warn("Variant search index unavailable, falling back to database", zap.Error(err))
	}

	items, err := uc.repo.SearchBySKU(ctx, merchantID, query, limit)
	if err != nil {
		uc.logger.Error("Failed to search variants", zap.String("query", query), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return items, nil
}

// DeleteVariant removes the variant row. Its ledger history stays.
func (uc *variantUseCase) DeleteVariant(ctx context.Context, merchantID, id string) error {
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := uc.repo.FindByID(ctx, merchantID, id)
		if err != nil {
			return err
		}
		if v == nil {
			return apperror.NotFound("variant", id)
		}
		if err := uc.repo.Delete(ctx, merchantID, id); err != nil {
			return err
		}
		database.AfterCommit(ctx, func() {
			go uc.unindex(id)
		})
		return nil
	})
	if err != nil {
		if apperror.Code(err) == apperror.CodeInternal {
			uc.logger.Error("Failed to delete variant", zap.String("id", id), zap.Error(err))
		}
		return apperror.Wrap(err)
	}

	uc.logger.Warn("Variant deleted, stock movements kept",
		zap.String("merchant_id", merchantID),
		zap.String("variant_id", id),
	)
	return nil
}

func (uc *variantUseCase) index(variants []model.Variant) {
	if uc.indexer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	for i := range variants {
		if err := uc.indexer.Index(ctx, &variants[i]); err != nil {
			uc.logger.Error("Failed to index variant", zap.String("id", variants[i].ID), zap.Error(err))
		}
	}
}

func (uc *variantUseCase) unindex(id string) {
	if uc.indexer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	if err := uc.indexer.Delete(ctx, id); err != nil {
		uc.logger.Error("Failed to remove variant from index", zap.String("id", id), zap.Error(err))
	}
}
