package model

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Variant struct {
	BaseModel
	MerchantID     string             `db:"merchant_id" json:"merchant_id"`
	ProductID      string             `db:"product_id" json:"product_id"`
	SKU            string             `db:"sku" json:"sku"`
	Barcode        *string            `db:"barcode" json:"barcode"`
	CombinationKey string             `db:"combination_key" json:"-"`
	Quantity       int                `db:"quantity" json:"quantity"`
	Threshold      int                `db:"threshold" json:"threshold"`
	CostPrice      decimal.Decimal    `db:"cost_price" json:"cost_price"`
	SellingPrice   decimal.Decimal    `db:"selling_price" json:"selling_price"`
	ExpiryDate     *time.Time         `db:"expiry_date" json:"expiry_date"`
	Attributes     []VariantAttribute `db:"-" json:"attributes"`
}

// VariantAttribute is one (attribute, value) pair; Position keeps the
// order in which the attributes were given.
type VariantAttribute struct {
	VariantID   string `db:"variant_id" json:"-"`
	Position    int    `db:"position" json:"position"`
	AttributeID string `db:"attribute_id" json:"attribute_id"`
	ValueID     string `db:"value_id" json:"value_id"`
}

// CombinationKey returns an order-independent key for a set of attribute
// pairs, used to detect duplicate combinations on one product.
func CombinationKey(attrs []VariantAttribute) string {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.AttributeID + ":" + a.ValueID
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}
