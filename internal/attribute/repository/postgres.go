package repository

import (
	"context"
	"database/sql"
	"errors"

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

func (r *PGRepository) FindByName(ctx context.Context, merchantID, name string) (*model.Attribute, error) {
	var attr model.Attribute
	query := `SELECT * FROM attributes WHERE merchant_id = $1 AND lower(name) = lower($2) LIMIT 1`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &attr, query, merchantID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &attr, nil
}

func (r *PGRepository) FindValue(ctx context.Context, attributeID, value string) (*model.AttributeValue, error) {
	var v model.AttributeValue
	query := `SELECT * FROM attribute_values WHERE attribute_id = $1 AND lower(value) = lower($2) LIMIT 1`
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.DB), &v, query, attributeID, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) Create(ctx context.Context, attr *model.Attribute) (*model.Attribute, error) {
	query := `
        INSERT INTO attributes (id, merchant_id, name, created_at, updated_at)
        VALUES (:id, :merchant_id, :name, :created_at, :updated_at)
        ON CONFLICT (merchant_id, lower(name)) DO NOTHING
    `
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, attr); err != nil {
		return nil, err
	}
	return r.FindByName(ctx, attr.MerchantID, attr.Name)
}

func (r *PGRepository) CreateValue(ctx context.Context, v *model.AttributeValue) (*model.AttributeValue, error) {
	query := `
        INSERT INTO attribute_values (id, attribute_id, value, created_at, updated_at)
        VALUES (:id, :attribute_id, :value, :created_at, :updated_at)
        ON CONFLICT (attribute_id, lower(value)) DO NOTHING
    `
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, v); err != nil {
		return nil, err
	}
	return r.FindValue(ctx, v.AttributeID, v.Value)
}

func (r *PGRepository) ListByMerchant(ctx context.Context, merchantID string) ([]model.Attribute, error) {
	conn := database.Conn(ctx, r.DB)

	var attrs []model.Attribute
	err := sqlx.SelectContext(ctx, conn, &attrs,
		`SELECT * FROM attributes WHERE merchant_id = $1 ORDER BY name`, merchantID)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return []model.Attribute{}, nil
	}

	ids := make([]string, len(attrs))
	for i, a := range attrs {
		ids[i] = a.ID
	}
	query, args, err := sqlx.In(`SELECT * FROM attribute_values WHERE attribute_id IN (?) ORDER BY created_at, value`, ids)
	if err != nil {
		return nil, err
	}

	var values []model.AttributeValue
	if err := sqlx.SelectContext(ctx, conn, &values, conn.Rebind(query), args...); err != nil {
		return nil, err
	}

	byAttr := make(map[string][]model.AttributeValue, len(attrs))
	for _, v := range values {
		byAttr[v.AttributeID] = append(byAttr[v.AttributeID], v)
	}
	for i := range attrs {
		attrs[i].Values = byAttr[attrs[i].ID]
	}
	return attrs, nil
}
