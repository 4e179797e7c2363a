package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

// AttributeInput is one row of an attribute matrix.
type AttributeInput struct {
	Name   string   `validate:"required,max=100"`
	Values []string `validate:"min=1,dive,required,max=100"`
}

// AttributePair names an attribute value by text; it is resolved against
// the attribute catalog before the variant is stored.
type AttributePair struct {
	Name  string `validate:"required,max=100"`
	Value string `validate:"required,max=100"`
}

type VariantSpec struct {
	SKU          string
	Barcode      string
	Attributes   []AttributePair `validate:"dive"`
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	Quantity     int `validate:"gte=0"`
	Threshold    int `validate:"gte=0"`
	ExpiryDate   *time.Time
}

// VariantDefaults applies to every combination generated from a matrix.
type VariantDefaults struct {
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	Quantity     int `validate:"gte=0"`
	Threshold    int `validate:"gte=0"`
}

type GenerateVariantsInput struct {
	MerchantID string `validate:"required"`
	BranchID   *string
	ProductID  string `validate:"required"`
	BaseSKU    string `validate:"max=64"`
	Defaults   VariantDefaults
	Matrix     []AttributeInput `validate:"dive"`
	Variants   []VariantSpec    `validate:"dive"`
	Actor      model.Actor
}

type CreateVariantInput struct {
	MerchantID string `validate:"required"`
	BranchID   *string
	ProductID  string `validate:"required"`
	Variant    VariantSpec
	Actor      model.Actor
}
