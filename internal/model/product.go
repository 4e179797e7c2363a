package model

// Product is owned by the catalog service; this core only reads it for
// existence and ownership checks.
type Product struct {
	BaseModel
	MerchantID  string `db:"merchant_id" json:"merchant_id"`
	SKU         string `db:"sku" json:"sku"`
	Name        string `db:"name" json:"name"`
	HasVariants bool   `db:"has_variants" json:"has_variants"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}
