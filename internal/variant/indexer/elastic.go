package indexer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/search"
	"github.com/shopspring/decimal"
)

const IndexName = "variants"

const mapping = `{
  "mappings": {
    "properties": {
      "id":            { "type": "keyword" },
      "merchant_id":   { "type": "keyword" },
      "product_id":    { "type": "keyword" },
      "sku":           { "type": "text", "fields": { "raw": { "type": "keyword" } } },
      "barcode":       { "type": "keyword" },
      "threshold":     { "type": "integer" },
      "selling_price": { "type": "keyword" },
      "created_at":    { "type": "date" }
    }
  }
}`

// Searcher is the subset of the Elasticsearch client used here.
// *search.Client satisfies it.
type Searcher interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}

// document is what gets stored in the index. Quantity is left out since it
// changes on every sale and is read from the database.
type document struct {
	ID           string          `json:"id"`
	MerchantID   string          `json:"merchant_id"`
	ProductID    string          `json:"product_id"`
	SKU          string          `json:"sku"`
	Barcode      *string         `json:"barcode,omitempty"`
	Threshold    int             `json:"threshold"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ElasticIndexer struct {
	client Searcher
}

func NewElasticIndexer(client Searcher) *ElasticIndexer {
	return &ElasticIndexer{client: client}
}

func (i *ElasticIndexer) EnsureIndex(ctx context.Context) error {
	return i.client.CreateIndex(ctx, IndexName, mapping)
}

func (i *ElasticIndexer) Index(ctx context.Context, v *model.Variant) error {
	return i.client.Index(ctx, IndexName, v.ID, document{
		ID:           v.ID,
		MerchantID:   v.MerchantID,
		ProductID:    v.ProductID,
		SKU:          v.SKU,
		Barcode:      v.Barcode,
		Threshold:    v.Threshold,
		SellingPrice: v.SellingPrice,
		CreatedAt:    v.CreatedAt,
	})
}

func (i *ElasticIndexer) Delete(ctx context.Context, id string) error {
	return i.client.Delete(ctx, IndexName, id)
}

// Search matches the query against SKU and barcode within one merchant.
func (i *ElasticIndexer) Search(ctx context.Context, merchantID, query string, limit int) ([]model.Variant, error) {
	res, err := i.client.Search(ctx, IndexName, map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"merchant_id": merchantID}},
				},
				"should": []interface{}{
					map[string]interface{}{"match": map[string]interface{}{"sku": query}},
					map[string]interface{}{"prefix": map[string]interface{}{"sku.raw": query}},
					map[string]interface{}{"term": map[string]interface{}{"barcode": query}},
				},
				"minimum_should_match": 1,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Variant, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, err
		}
		out = append(out, model.Variant{
			BaseModel:    model.BaseModel{ID: doc.ID, CreatedAt: doc.CreatedAt},
			MerchantID:   doc.MerchantID,
			ProductID:    doc.ProductID,
			SKU:          doc.SKU,
			Barcode:      doc.Barcode,
			Threshold:    doc.Threshold,
			SellingPrice: doc.SellingPrice,
		})
	}
	return out, nil
}
