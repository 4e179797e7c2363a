package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/notification/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ExistsUnread(ctx context.Context, variantID string, typ model.NotificationType) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS (
            SELECT 1 FROM stock_notifications
            WHERE variant_id = $1 AND type = $2 AND is_read = false
        )
    `
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &exists, query, variantID, typ)
	return exists, err
}

// Create relies on the partial unique index over (variant_id, type) for
// unread rows, so two concurrent breaches still produce one notification.
func (r *PGRepository) Create(ctx context.Context, n *model.StockNotification) (bool, error) {
	query := `
        INSERT INTO stock_notifications (
            id, merchant_id, variant_id, type, message, is_read, created_at
        )
        VALUES (
            :id, :merchant_id, :variant_id, :type, :message, :is_read, :created_at
        )
        ON CONFLICT (variant_id, type) WHERE is_read = false DO NOTHING
    `
	res, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, n)
	if err != nil {
		return false, fmt.Errorf("insert stock notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PGRepository) FindByID(ctx context.Context, merchantID, id string) (*model.StockNotification, error) {
	var n model.StockNotification
	query := `SELECT * FROM stock_notifications WHERE id = $1 AND merchant_id = $2`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &n, query, id, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *PGRepository) List(ctx context.Context, f *dto.NotificationFilters) ([]model.StockNotification, int, error) {
	items := []model.StockNotification{}
	var count int

	conditions := []string{"merchant_id = :merchant_id"}
	args := map[string]interface{}{"merchant_id": f.MerchantID}
	if f.VariantID != "" {
		conditions = append(conditions, "variant_id = :variant_id")
		args["variant_id"] = f.VariantID
	}
	if f.UnreadOnly {
		conditions = append(conditions, "is_read = false")
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")
	db := database.Conn(ctx, r.DB)

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM stock_notifications"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.GetContext(ctx, db, &count, db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_notifications" + whereClause + " ORDER BY created_at DESC"
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

func (r *PGRepository) CountUnread(ctx context.Context, merchantID string) (int, error) {
	var count int
	query := `SELECT count(*) FROM stock_notifications WHERE merchant_id = $1 AND is_read = false`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &count, query, merchantID)
	return count, err
}

func (r *PGRepository) MarkRead(ctx context.Context, id, readBy string, at time.Time) error {
	var by *string
	if readBy != "" {
		by = &readBy
	}
	query := `UPDATE stock_notifications SET is_read = true, read_at = $1, read_by = $2 WHERE id = $3`
	_, err := database.Conn(ctx, r.DB).ExecContext(ctx, query, at, by, id)
	return err
}
