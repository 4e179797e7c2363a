package memory

import (
	"context"
	"sort"
	"time"

	invDTO "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	notifDTO "github.com/fekuna/omnipos-inventory-service/internal/notification/dto"
)

type InventoryRepository struct {
	s *Store
}

// LockVariant relies on the store mutex held by the enclosing transaction.
func (r *InventoryRepository) LockVariant(ctx context.Context, merchantID, variantID string) (*model.Variant, error) {
	var out *model.Variant
	err := r.s.run(ctx, func(st *state) error {
		if v, ok := st.variants[variantID]; ok && v.MerchantID == merchantID {
			out = copyVariant(v)
		}
		return nil
	})
	return out, err
}

func (r *InventoryRepository) UpdateQuantity(ctx context.Context, variantID string, quantity int) error {
	return r.s.run(ctx, func(st *state) error {
		v, ok := st.variants[variantID]
		if !ok {
			return nil
		}
		v.Quantity = quantity
		v.UpdatedAt = time.Now()
		st.variants[variantID] = v
		return nil
	})
}

func (r *InventoryRepository) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	return r.s.run(ctx, func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *InventoryRepository) FindMovement(ctx context.Context, merchantID, id string) (*model.StockMovement, error) {
	var out *model.StockMovement
	err := r.s.run(ctx, func(st *state) error {
		for _, m := range st.movements {
			if m.ID == id && m.MerchantID == merchantID {
				out = &m
				return nil
			}
		}
		return nil
	})
	return out, err
}

// ListMovements returns matches most recent first.
func (r *InventoryRepository) ListMovements(ctx context.Context, f *invDTO.MovementFilters) ([]model.StockMovement, int, error) {
	var matched []model.StockMovement
	err := r.s.run(ctx, func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if f.MerchantID != "" && m.MerchantID != f.MerchantID {
				continue
			}
			if f.VariantID != "" && m.VariantID != f.VariantID {
				continue
			}
			if f.MovementType != "" && m.MovementType != f.MovementType {
				continue
			}
			if f.BranchID != nil && (m.BranchID == nil || *m.BranchID != *f.BranchID) {
				continue
			}
			if f.StartDate != nil && m.CreatedAt.Before(*f.StartDate) {
				continue
			}
			if f.EndDate != nil && m.CreatedAt.After(*f.EndDate) {
				continue
			}
			matched = append(matched, m)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	start, end := paginate(len(matched), f.Page, f.PageSize)
	out := append([]model.StockMovement{}, matched[start:end]...)
	return out, len(matched), nil
}

func (r *InventoryRepository) ListMovementsByReference(ctx context.Context, merchantID, refType, refID string) ([]model.StockMovement, error) {
	out := []model.StockMovement{}
	err := r.s.run(ctx, func(st *state) error {
		for _, m := range st.movements {
			if m.MerchantID != merchantID || m.ReferenceType == nil || m.ReferenceID == nil {
				continue
			}
			if *m.ReferenceType == refType && *m.ReferenceID == refID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *InventoryRepository) SumDeltas(ctx context.Context, variantID string) (int, error) {
	sum := 0
	err := r.s.run(ctx, func(st *state) error {
		for _, m := range st.movements {
			if m.VariantID == variantID {
				sum += m.Delta
			}
		}
		return nil
	})
	return sum, err
}

func (r *InventoryRepository) ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]model.Variant, int, error) {
	var matched []model.Variant
	err := r.s.run(ctx, func(st *state) error {
		for _, v := range st.variants {
			if v.MerchantID == merchantID && v.Quantity <= v.Threshold {
				matched = append(matched, *copyVariant(v))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Quantity != matched[j].Quantity {
			return matched[i].Quantity < matched[j].Quantity
		}
		return matched[i].SKU < matched[j].SKU
	})
	start, end := paginate(len(matched), page, pageSize)
	return append([]model.Variant{}, matched[start:end]...), len(matched), nil
}

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	return r.s.run(ctx, func(st *state) error {
		stored := *o
		stored.Items = nil
		st.orders[o.ID] = stored
		st.orderItems[o.ID] = append([]model.OrderItem(nil), o.Items...)
		return nil
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Order, error) {
	var out *model.Order
	err := r.s.run(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.MerchantID != merchantID {
			return nil
		}
		o.Items = append([]model.OrderItem(nil), st.orderItems[id]...)
		out = &o
		return nil
	})
	return out, err
}

func (r *OrderRepository) LockByID(ctx context.Context, merchantID, id string) (*model.Order, error) {
	return r.FindByID(ctx, merchantID, id)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *model.Order) error {
	return r.s.run(ctx, func(st *state) error {
		stored, ok := st.orders[o.ID]
		if !ok {
			return nil
		}
		stored.Status = o.Status
		stored.FulfilledAt = o.FulfilledAt
		stored.CanceledAt = o.CanceledAt
		stored.UpdatedAt = o.UpdatedAt
		st.orders[o.ID] = stored
		return nil
	})
}

type NotificationRepository struct {
	s *Store
}

func (r *NotificationRepository) ExistsUnread(ctx context.Context, variantID string, typ model.NotificationType) (bool, error) {
	found := false
	err := r.s.run(ctx, func(st *state) error {
		found = hasUnread(st, variantID, typ)
		return nil
	})
	return found, err
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.StockNotification) (bool, error) {
	created := false
	err := r.s.run(ctx, func(st *state) error {
		if hasUnread(st, n.VariantID, n.Type) {
			return nil
		}
		st.notifications = append(st.notifications, *n)
		created = true
		return nil
	})
	return created, err
}

func (r *NotificationRepository) FindByID(ctx context.Context, merchantID, id string) (*model.StockNotification, error) {
	var out *model.StockNotification
	err := r.s.run(ctx, func(st *state) error {
		for _, n := range st.notifications {
			if n.ID == id && n.MerchantID == merchantID {
				out = &n
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *NotificationRepository) List(ctx context.Context, f *notifDTO.NotificationFilters) ([]model.StockNotification, int, error) {
	var matched []model.StockNotification
	err := r.s.run(ctx, func(st *state) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			n := st.notifications[i]
			if n.MerchantID != f.MerchantID {
				continue
			}
			if f.VariantID != "" && n.VariantID != f.VariantID {
				continue
			}
			if f.UnreadOnly && n.IsRead {
				continue
			}
			matched = append(matched, n)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	start, end := paginate(len(matched), f.Page, f.PageSize)
	return append([]model.StockNotification{}, matched[start:end]...), len(matched), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, merchantID string) (int, error) {
	count := 0
	err := r.s.run(ctx, func(st *state) error {
		for _, n := range st.notifications {
			if n.MerchantID == merchantID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, readBy string, at time.Time) error {
	return r.s.run(ctx, func(st *state) error {
		for i := range st.notifications {
			if st.notifications[i].ID != id {
				continue
			}
			st.notifications[i].IsRead = true
			st.notifications[i].ReadAt = &at
			if readBy != "" {
				by := readBy
				st.notifications[i].ReadBy = &by
			}
		}
		return nil
	})
}

func hasUnread(st *state, variantID string, typ model.NotificationType) bool {
	for _, n := range st.notifications {
		if n.VariantID == variantID && n.Type == typ && !n.IsRead {
			return true
		}
	}
	return false
}
