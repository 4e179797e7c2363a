package dto

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type AppendInput struct {
	MerchantID    string `validate:"required"`
	BranchID      *string
	VariantID     string             `validate:"required"`
	Type          model.MovementType `validate:"required,oneof=restock sale adjustment transfer"`
	Delta         int                `validate:"ne=0"`
	Reason        string             `validate:"max=500"`
	ReferenceType string
	ReferenceID   string
	Actor         model.Actor
}

type CorrectMovementInput struct {
	MerchantID string `validate:"required"`
	BranchID   *string
	MovementID string `validate:"required"`
	Reason     string `validate:"required,max=500"`
	Actor      model.Actor
}

type TransferInput struct {
	MerchantID    string `validate:"required"`
	BranchID      *string
	FromVariantID string `validate:"required"`
	ToVariantID   string `validate:"required,nefield=FromVariantID"`
	Quantity      int    `validate:"gt=0"`
	Reason        string `validate:"max=500"`
	Actor         model.Actor
}
