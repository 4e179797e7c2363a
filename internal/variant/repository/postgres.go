package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	variantColumns = `id, merchant_id, product_id, sku, barcode, combination_key, quantity, threshold,
        cost_price, selling_price, expiry_date, created_at, updated_at`

	uniqueSKUConstraint         = "variants_merchant_id_sku_key"
	uniqueCombinationConstraint = "variants_product_id_combination_key_idx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, v *model.Variant) error {
	conn := database.Conn(ctx, r.DB)

	query := `
        INSERT INTO variants (
            id, merchant_id, product_id, sku, barcode, combination_key, quantity, threshold,
            cost_price, selling_price, expiry_date, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :product_id, :sku, :barcode, :combination_key, :quantity, :threshold,
            :cost_price, :selling_price, :expiry_date, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, conn, query, v); err != nil {
		return mapUniqueViolation(err, v)
	}

	attrQuery := `
        INSERT INTO variant_attributes (variant_id, position, attribute_id, value_id)
        VALUES (:variant_id, :position, :attribute_id, :value_id)
    `
	for i := range v.Attributes {
		if _, err := sqlx.NamedExecContext(ctx, conn, attrQuery, v.Attributes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Variant, error) {
	conn := database.Conn(ctx, r.DB)

	var v model.Variant
	query := `SELECT ` + variantColumns + ` FROM variants WHERE id = $1 AND merchant_id = $2`
	if err := sqlx.GetContext(ctx, conn, &v, query, id, merchantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	items := []model.Variant{v}
	if err := r.loadAttributes(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r *PGRepository) ListByProduct(ctx context.Context, merchantID, productID string) ([]model.Variant, error) {
	items := []model.Variant{}
	query := `
        SELECT ` + variantColumns + ` FROM variants
        WHERE merchant_id = $1 AND product_id = $2
        ORDER BY created_at, sku
    `
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.DB), &items, query, merchantID, productID); err != nil {
		return nil, err
	}
	if err := r.loadAttributes(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PGRepository) SearchBySKU(ctx context.Context, merchantID, q string, limit int) ([]model.Variant, error) {
	items := []model.Variant{}
	query := `
        SELECT ` + variantColumns + ` FROM variants
        WHERE merchant_id = $1 AND (sku ILIKE '%' || $2 || '%' OR barcode = $2)
        ORDER BY sku
        LIMIT $3
    `
	err := sqlx.SelectContext(ctx, database.Conn(ctx, r.DB), &items, query, merchantID, q, limit)
	return items, err
}

// Delete removes the variant and its attribute pairs. Stock movements that
// reference it are kept.
func (r *PGRepository) Delete(ctx context.Context, merchantID, id string) error {
	conn := database.Conn(ctx, r.DB)
	if _, err := conn.ExecContext(ctx, `DELETE FROM variant_attributes WHERE variant_id = $1`, id); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, `DELETE FROM variants WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	return err
}

func (r *PGRepository) ExistingSKUs(ctx context.Context, merchantID string, skus []string) ([]string, error) {
	out := []string{}
	if len(skus) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT sku FROM variants WHERE merchant_id = ? AND sku IN (?)`, merchantID, skus)
	if err != nil {
		return nil, err
	}
	conn := database.Conn(ctx, r.DB)
	err = sqlx.SelectContext(ctx, conn, &out, conn.Rebind(query), args...)
	return out, err
}

func (r *PGRepository) CombinationExists(ctx context.Context, productID, combinationKey string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM variants WHERE product_id = $1 AND combination_key = $2)`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &exists, query, productID, combinationKey)
	return exists, err
}

func (r *PGRepository) loadAttributes(ctx context.Context, items []model.Variant) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	byID := make(map[string]int, len(items))
	for i, v := range items {
		ids[i] = v.ID
		byID[v.ID] = i
	}

	query, args, err := sqlx.In(`
        SELECT variant_id, position, attribute_id, value_id
        FROM variant_attributes
        WHERE variant_id IN (?)
        ORDER BY variant_id, position
    `, ids)
	if err != nil {
		return err
	}
	conn := database.Conn(ctx, r.DB)

	var pairs []model.VariantAttribute
	if err := sqlx.SelectContext(ctx, conn, &pairs, conn.Rebind(query), args...); err != nil {
		return err
	}
	for _, p := range pairs {
		i := byID[p.VariantID]
		items[i].Attributes = append(items[i].Attributes, p)
	}
	return nil
}

// mapUniqueViolation turns a racing insert that lost on a unique index into
// the same conflict the pre-check would have reported.
func mapUniqueViolation(err error, v *model.Variant) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch pqErr.Constraint {
	case uniqueSKUConstraint:
		return apperror.DuplicateSKU(v.SKU)
	case uniqueCombinationConstraint:
		return apperror.Conflict("attribute combination already exists").WithDetail("sku", v.SKU)
	default:
		return apperror.Conflict("variant already exists").WithDetail("sku", v.SKU)
	}
}
