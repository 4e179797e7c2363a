package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Product, error) {
	var out *model.Product
	err := r.s.run(ctx, func(st *state) error {
		if p, ok := st.products[id]; ok && p.MerchantID == merchantID {
			out = &p
		}
		return nil
	})
	return out, err
}

type AttributeRepository struct {
	s *Store
}

func (r *AttributeRepository) FindByName(ctx context.Context, merchantID, name string) (*model.Attribute, error) {
	var out *model.Attribute
	err := r.s.run(ctx, func(st *state) error {
		out = findAttribute(st, merchantID, name)
		return nil
	})
	return out, err
}

func (r *AttributeRepository) FindValue(ctx context.Context, attributeID, value string) (*model.AttributeValue, error) {
	var out *model.AttributeValue
	err := r.s.run(ctx, func(st *state) error {
		out = findValue(st, attributeID, value)
		return nil
	})
	return out, err
}

func (r *AttributeRepository) Create(ctx context.Context, attr *model.Attribute) (*model.Attribute, error) {
	var out *model.Attribute
	err := r.s.run(ctx, func(st *state) error {
		if existing := findAttribute(st, attr.MerchantID, attr.Name); existing != nil {
			out = existing
			return nil
		}
		stored := *attr
		stored.Values = nil
		st.attributes[stored.ID] = stored
		out = &stored
		return nil
	})
	return out, err
}

func (r *AttributeRepository) CreateValue(ctx context.Context, v *model.AttributeValue) (*model.AttributeValue, error) {
	var out *model.AttributeValue
	err := r.s.run(ctx, func(st *state) error {
		if existing := findValue(st, v.AttributeID, v.Value); existing != nil {
			out = existing
			return nil
		}
		stored := *v
		st.values[stored.ID] = stored
		out = &stored
		return nil
	})
	return out, err
}

func (r *AttributeRepository) ListByMerchant(ctx context.Context, merchantID string) ([]model.Attribute, error) {
	out := []model.Attribute{}
	err := r.s.run(ctx, func(st *state) error {
		for _, a := range st.attributes {
			if a.MerchantID != merchantID {
				continue
			}
			for _, v := range st.values {
				if v.AttributeID == a.ID {
					a.Values = append(a.Values, v)
				}
			}
			sort.Slice(a.Values, func(i, j int) bool {
				if !a.Values[i].CreatedAt.Equal(a.Values[j].CreatedAt) {
					return a.Values[i].CreatedAt.Before(a.Values[j].CreatedAt)
				}
				return a.Values[i].Value < a.Values[j].Value
			})
			out = append(out, a)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func findAttribute(st *state, merchantID, name string) *model.Attribute {
	for _, a := range st.attributes {
		if a.MerchantID == merchantID && strings.EqualFold(a.Name, name) {
			return &a
		}
	}
	return nil
}

func findValue(st *state, attributeID, value string) *model.AttributeValue {
	for _, v := range st.values {
		if v.AttributeID == attributeID && strings.EqualFold(v.Value, value) {
			return &v
		}
	}
	return nil
}

type VariantRepository struct {
	s *Store
}

func (r *VariantRepository) Create(ctx context.Context, v *model.Variant) error {
	return r.s.run(ctx, func(st *state) error {
		stored := *v
		stored.Attributes = append([]model.VariantAttribute(nil), v.Attributes...)
		for i := range stored.Attributes {
			stored.Attributes[i].VariantID = stored.ID
		}
		st.variants[stored.ID] = stored
		return nil
	})
}

func (r *VariantRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Variant, error) {
	var out *model.Variant
	err := r.s.run(ctx, func(st *state) error {
		if v, ok := st.variants[id]; ok && v.MerchantID == merchantID {
			out = copyVariant(v)
		}
		return nil
	})
	return out, err
}

func (r *VariantRepository) ListByProduct(ctx context.Context, merchantID, productID string) ([]model.Variant, error) {
	out := []model.Variant{}
	err := r.s.run(ctx, func(st *state) error {
		for _, v := range st.variants {
			if v.MerchantID == merchantID && v.ProductID == productID {
				out = append(out, *copyVariant(v))
			}
		}
		sortVariants(out)
		return nil
	})
	return out, err
}

func (r *VariantRepository) SearchBySKU(ctx context.Context, merchantID, query string, limit int) ([]model.Variant, error) {
	out := []model.Variant{}
	q := strings.ToLower(query)
	err := r.s.run(ctx, func(st *state) error {
		for _, v := range st.variants {
			if v.MerchantID != merchantID {
				continue
			}
			if strings.Contains(strings.ToLower(v.SKU), q) || (v.Barcode != nil && *v.Barcode == query) {
				out = append(out, *copyVariant(v))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r *VariantRepository) Delete(ctx context.Context, merchantID, id string) error {
	return r.s.run(ctx, func(st *state) error {
		if v, ok := st.variants[id]; ok && v.MerchantID == merchantID {
			delete(st.variants, id)
		}
		return nil
	})
}

func (r *VariantRepository) ExistingSKUs(ctx context.Context, merchantID string, skus []string) ([]string, error) {
	wanted := make(map[string]bool, len(skus))
	for _, s := range skus {
		wanted[s] = true
	}
	out := []string{}
	err := r.s.run(ctx, func(st *state) error {
		for _, v := range st.variants {
			if v.MerchantID == merchantID && wanted[v.SKU] {
				out = append(out, v.SKU)
			}
		}
		return nil
	})
	return out, err
}

func (r *VariantRepository) CombinationExists(ctx context.Context, productID, combinationKey string) (bool, error) {
	found := false
	err := r.s.run(ctx, func(st *state) error {
		for _, v := range st.variants {
			if v.ProductID == productID && v.CombinationKey == combinationKey {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func copyVariant(v model.Variant) *model.Variant {
	v.Attributes = append([]model.VariantAttribute(nil), v.Attributes...)
	return &v
}

func sortVariants(vs []model.Variant) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].CreatedAt.Equal(vs[j].CreatedAt) {
			return vs[i].CreatedAt.Before(vs[j].CreatedAt)
		}
		return vs[i].SKU < vs[j].SKU
	})
}
