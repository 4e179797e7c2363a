package dto

import (
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	VariantID string `validate:"required"`
	Quantity  int    `validate:"gt=0"`
	// UnitPrice defaults to the variant selling price when nil.
	UnitPrice *decimal.Decimal
	// TotalPrice is computed as UnitPrice * Quantity when nil.
	TotalPrice *decimal.Decimal
}

type CreateOrderInput struct {
	MerchantID string `validate:"required"`
	BranchID   *string
	CustomerID *string
	Items      []OrderItemInput `validate:"min=1,dive"`
	Actor      model.Actor
}

type TransitionInput struct {
	MerchantID string `validate:"required"`
	OrderID    string `validate:"required"`
	BranchID   *string
	Actor      model.Actor
}
