package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

const variantColumns = `id, merchant_id, product_id, sku, barcode, combination_key, quantity, threshold,
        cost_price, selling_price, expiry_date, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) LockVariant(ctx context.Context, merchantID, variantID string) (*model.Variant, error) {
	var v model.Variant
	query := `SELECT ` + variantColumns + ` FROM variants WHERE id = $1 AND merchant_id = $2 FOR UPDATE`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &v, query, variantID, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) UpdateQuantity(ctx context.Context, variantID string, quantity int) error {
	query := `UPDATE variants SET quantity = $1, updated_at = now() WHERE id = $2`
	_, err := database.Conn(ctx, r.DB).ExecContext(ctx, query, quantity, variantID)
	return err
}

func (r *PGRepository) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	query := `
        INSERT INTO stock_movements (
            id, variant_id, merchant_id, branch_id, movement_type, delta,
            quantity_before, quantity_after, reference_type, reference_id,
            notes, created_by, actor_type, created_at
        )
        VALUES (
            :id, :variant_id, :merchant_id, :branch_id, :movement_type, :delta,
            :quantity_before, :quantity_after, :reference_type, :reference_id,
            :notes, :created_by, :actor_type, :created_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, m)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (r *PGRepository) FindMovement(ctx context.Context, merchantID, id string) (*model.StockMovement, error) {
	var m model.StockMovement
	query := `SELECT * FROM stock_movements WHERE id = $1 AND merchant_id = $2`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &m, query, id, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	items := []model.StockMovement{}
	var count int

	conditions := []string{"merchant_id = :merchant_id"}
	args := map[string]interface{}{"merchant_id": f.MerchantID}

	if f.VariantID != "" {
		conditions = append(conditions, "variant_id = :variant_id")
		args["variant_id"] = f.VariantID
	}
	if f.BranchID != nil {
		conditions = append(conditions, "branch_id = :branch_id")
		args["branch_id"] = *f.BranchID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")
	db := database.Conn(ctx, r.DB)

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM stock_movements"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.GetContext(ctx, db, &count, db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at DESC, id DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	listQuery, listArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.SelectContext(ctx, db, &items, db.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) ListMovementsByReference(ctx context.Context, merchantID, refType, refID string) ([]model.StockMovement, error) {
	items := []model.StockMovement{}
	query := `
        SELECT * FROM stock_movements
        WHERE merchant_id = $1 AND reference_type = $2 AND reference_id = $3
        ORDER BY created_at, id
    `
	err := sqlx.SelectContext(ctx, database.Conn(ctx, r.DB), &items, query, merchantID, refType, refID)
	return items, err
}

func (r *PGRepository) SumDeltas(ctx context.Context, variantID string) (int, error) {
	var sum int
	query := `SELECT COALESCE(SUM(delta), 0) FROM stock_movements WHERE variant_id = $1`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &sum, query, variantID)
	return sum, err
}

func (r *PGRepository) ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.Variant, int, error) {
	items := []model.Variant{}
	var count int
	db := database.Conn(ctx, r.DB)

	where := ` FROM variants WHERE merchant_id = $1 AND quantity <= threshold`
	if err := sqlx.GetContext(ctx, db, &count, `SELECT count(*)`+where, merchantID); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + variantColumns + where + ` ORDER BY quantity ASC, sku ASC`
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}
	if err := sqlx.SelectContext(ctx, db, &items, query, merchantID); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}
