package dto

type NotificationFilters struct {
	MerchantID string
	VariantID  string
	UnreadOnly bool
	Page       int
	PageSize   int
}
