package model

import "time"

type MovementType string

const (
	MovementRestock    MovementType = "restock"
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"
	MovementTransfer   MovementType = "transfer"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementRestock, MovementSale, MovementAdjustment, MovementTransfer:
		return true
	}
	return false
}

const (
	ReferenceOrder    = "order"
	ReferenceMovement = "movement"
	ReferenceTransfer = "transfer"
)

// StockMovement is an immutable ledger row.
type StockMovement struct {
	ID             string       `db:"id" json:"id"`
	VariantID      string       `db:"variant_id" json:"variant_id"`
	MerchantID     string       `db:"merchant_id" json:"merchant_id"`
	BranchID       *string      `db:"branch_id" json:"branch_id"`
	MovementType   MovementType `db:"movement_type" json:"movement_type"`
	Delta          int          `db:"delta" json:"delta"`
	QuantityBefore int          `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int          `db:"quantity_after" json:"quantity_after"`
	ReferenceType  *string      `db:"reference_type" json:"reference_type"`
	ReferenceID    *string      `db:"reference_id" json:"reference_id"`
	Notes          string       `db:"notes" json:"notes"`
	CreatedBy      *string      `db:"created_by" json:"created_by"`
	ActorType      string       `db:"actor_type" json:"actor_type"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}
