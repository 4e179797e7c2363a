package model

import "time"

type NotificationType string

const (
	NotificationLowStock   NotificationType = "low_stock"
	NotificationOutOfStock NotificationType = "out_of_stock"
)

type StockNotification struct {
	ID         string           `db:"id" json:"id"`
	MerchantID string           `db:"merchant_id" json:"merchant_id"`
	VariantID  string           `db:"variant_id" json:"variant_id"`
	Type       NotificationType `db:"type" json:"type"`
	Message    string           `db:"message" json:"message"`
	IsRead     bool             `db:"is_read" json:"is_read"`
	ReadAt     *time.Time       `db:"read_at" json:"read_at"`
	ReadBy     *string          `db:"read_by" json:"read_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}
