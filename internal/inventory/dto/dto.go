package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type MovementFilters struct {
	MerchantID   string
	VariantID    string
	BranchID     *string
	MovementType model.MovementType
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

// AppendResult carries the post-movement state for callers that need to
// react to it, such as the stock notifier.
type AppendResult struct {
	Movement    *model.StockMovement
	Variant     *model.Variant
	NewQuantity int
}
