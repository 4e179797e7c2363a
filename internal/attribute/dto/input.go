package dto

type CreateAttributeInput struct {
	MerchantID string   `validate:"required"`
	Name       string   `validate:"required,max=100"`
	Values     []string `validate:"dive,required,max=100"`
}
