package model

type Attribute struct {
	BaseModel
	MerchantID string           `db:"merchant_id" json:"merchant_id"`
	Name       string           `db:"name" json:"name"`
	Values     []AttributeValue `db:"-" json:"values"`
}

type AttributeValue struct {
	BaseModel
	AttributeID string `db:"attribute_id" json:"attribute_id"`
	Value       string `db:"value" json:"value"`
}
