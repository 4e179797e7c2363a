package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	conn := database.Conn(ctx, r.DB)

	query := `
        INSERT INTO orders (
            id, merchant_id, branch_id, customer_id, status, total_amount,
            created_by, fulfilled_at, canceled_at, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :branch_id, :customer_id, :status, :total_amount,
            :created_by, :fulfilled_at, :canceled_at, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, conn, query, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
        INSERT INTO order_items (id, order_id, variant_id, quantity, unit_price, total_price)
        VALUES (:id, :order_id, :variant_id, :quantity, :unit_price, :total_price)
    `
	for i := range o.Items {
		if _, err := sqlx.NamedExecContext(ctx, conn, itemQuery, o.Items[i]); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Order, error) {
	return r.find(ctx, merchantID, id, "")
}

func (r *PGRepository) LockByID(ctx context.Context, merchantID, id string) (*model.Order, error) {
	return r.find(ctx, merchantID, id, " FOR UPDATE")
}

func (r *PGRepository) find(ctx context.Context, merchantID, id, suffix string) (*model.Order, error) {
	conn := database.Conn(ctx, r.DB)

	var o model.Order
	query := `SELECT * FROM orders WHERE id = $1 AND merchant_id = $2` + suffix
	if err := sqlx.GetContext(ctx, conn, &o, query, id, merchantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	o.Items = []model.OrderItem{}
	itemQuery := `SELECT * FROM order_items WHERE order_id = $1 ORDER BY id`
	if err := sqlx.SelectContext(ctx, conn, &o.Items, itemQuery, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, o *model.Order) error {
	query := `
        UPDATE orders
        SET status = :status, fulfilled_at = :fulfilled_at, canceled_at = :canceled_at, updated_at = :updated_at
        WHERE id = :id
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, o)
	return err
}
