package indexer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/search"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	indexed map[string]interface{}
	query   map[string]interface{}
	hits    []json.RawMessage
}

func (f *fakeSearcher) CreateIndex(context.Context, string, string) error { return nil }

func (f *fakeSearcher) Index(_ context.Context, _, id string, doc interface{}) error {
	if f.indexed == nil {
		f.indexed = make(map[string]interface{})
	}
	f.indexed[id] = doc
	return nil
}

func (f *fakeSearcher) Delete(_ context.Context, _, id string) error {
	delete(f.indexed, id)
	return nil
}

func (f *fakeSearcher) Search(_ context.Context, _ string, query map[string]interface{}) (*search.SearchResponse, error) {
	f.query = query
	res := &search.SearchResponse{}
	for _, h := range f.hits {
		res.Hits.Hits = append(res.Hits.Hits, struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		}{Source: h})
	}
	res.Hits.Total.Value = len(f.hits)
	return res, nil
}

func TestIndexAndSearchRoundTrip(t *testing.T) {
	fake := &fakeSearcher{}
	idx := NewElasticIndexer(fake)
	ctx := context.Background()

	v := &model.Variant{
		BaseModel:    model.BaseModel{ID: "v1"},
		MerchantID:   "merchant-1",
		ProductID:    "product-1",
		SKU:          "TSHIRT-1",
		Quantity:     12,
		SellingPrice: decimal.RequireFromString("19.90"),
	}
	require.NoError(t, idx.Index(ctx, v))

	raw, err := json.Marshal(fake.indexed["v1"])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "quantity")
	fake.hits = []json.RawMessage{raw}

	found, err := idx.Search(ctx, "merchant-1", "TSHIRT", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "TSHIRT-1", found[0].SKU)
	assert.True(t, found[0].SellingPrice.Equal(decimal.RequireFromString("19.90")))
	assert.Equal(t, 5, fake.query["size"])

	require.NoError(t, idx.Delete(ctx, "v1"))
	assert.Empty(t, fake.indexed)
}
