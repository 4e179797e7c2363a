package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCanceled  OrderStatus = "canceled"
	OrderRefunded  OrderStatus = "refunded"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderCanceled || s == OrderRefunded
}

type Order struct {
	BaseModel
	MerchantID  string          `db:"merchant_id" json:"merchant_id"`
	BranchID    *string         `db:"branch_id" json:"branch_id"`
	CustomerID  *string         `db:"customer_id" json:"customer_id"`
	Status      OrderStatus     `db:"status" json:"status"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	CreatedBy   *string         `db:"created_by" json:"created_by"`
	FulfilledAt *time.Time      `db:"fulfilled_at" json:"fulfilled_at"`
	CanceledAt  *time.Time      `db:"canceled_at" json:"canceled_at"`
	Items       []OrderItem     `db:"-" json:"items"`
}

type OrderItem struct {
	ID         string          `db:"id" json:"id"`
	OrderID    string          `db:"order_id" json:"order_id"`
	VariantID  string          `db:"variant_id" json:"variant_id"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
}
