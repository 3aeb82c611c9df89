// File: internal/product/search.go
package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"taipei_market_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// searchIndexer keeps the products index in sync with the database and runs
// full-text queries against it. All write operations are best-effort; the
// database row is the source of truth and SQL search is the fallback.
type searchIndexer struct {
	es     *elasticsearch.ESClientWrapper
	logger *zap.Logger
}

func newSearchIndexer(es *elasticsearch.ESClientWrapper, logger *zap.Logger) *searchIndexer {
	return &searchIndexer{es: es, logger: logger.Named("ProductSearchIndexer")}
}

// enabled reports whether an Elasticsearch client is configured.
func (s *searchIndexer) enabled() bool {
	return s.es != nil && s.es.Client != nil
}

func productToDoc(p *Product) map[string]interface{} {
	doc := map[string]interface{}{
		"title":       p.Title,
		"slug":        p.Slug,
		"description": p.Description,
		"owner_id":    p.OwnerID.String(),
		"price":       p.PriceCents,
		"currency":    p.Currency,
		"status":      string(p.Status),
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
	if p.Owner != nil {
		doc["owner_nickname"] = p.Owner.Nickname
	}
	return doc
}

// index upserts the product document. Errors are logged, never returned.
func (s *searchIndexer) index(ctx context.Context, p *Product) {
	if !s.enabled() {
		return
	}
	body, err := json.Marshal(productToDoc(p))
	if err != nil {
		s.logger.Error("Failed to marshal product document", zap.String("productID", p.ID.String()), zap.Error(err))
		return
	}
	req := esapi.IndexRequest{
		Index:      elasticsearch.ProductsIndexName,
		DocumentID: p.ID.String(),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		s.logger.Warn("Failed to index product", zap.String("productID", p.ID.String()), zap.Error(err))
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.logger.Warn("Indexing product returned error status",
			zap.String("productID", p.ID.String()),
			zap.String("status", res.Status()))
	}
}

// remove deletes the product document. Errors are logged, never returned.
func (s *searchIndexer) remove(ctx context.Context, id uuid.UUID) {
	if !s.enabled() {
		return
	}
	req := esapi.DeleteRequest{
		Index:      elasticsearch.ProductsIndexName,
		DocumentID: id.String(),
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		s.logger.Warn("Failed to remove product from index", zap.String("productID", id.String()), zap.Error(err))
		return
	}
	defer res.Body.Close()
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// search runs the query against the index and returns matching product IDs
// in relevance order plus the total hit count.
func (s *searchIndexer) search(ctx context.Context, query ProductSearchQuery) ([]uuid.UUID, int64, error) {
	if !s.enabled() {
		return nil, 0, fmt.Errorf("search index not configured")
	}

	must := []map[string]interface{}{}
	filter := []map[string]interface{}{}

	if query.SearchTerm != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query.SearchTerm,
				"fields": []string{"title^2", "description"},
			},
		})
	}
	status := query.Status
	if status == "" {
		status = StatusActive
	}
	filter = append(filter, map[string]interface{}{
		"term": map[string]interface{}{"status": string(status)},
	})
	if query.OwnerID != nil && *query.OwnerID != uuid.Nil {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"owner_id": query.OwnerID.String()},
		})
	}
	if query.MinPriceCents != nil || query.MaxPriceCents != nil {
		priceRange := map[string]interface{}{}
		if query.MinPriceCents != nil {
			priceRange["gte"] = *query.MinPriceCents
		}
		if query.MaxPriceCents != nil {
			priceRange["lte"] = *query.MaxPriceCents
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"price": priceRange},
		})
	}

	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"from":    (query.Page - 1) * query.PageSize,
		"size":    query.PageSize,
		"_source": false,
	}
	body, err := json.Marshal(esQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(elasticsearch.ProductsIndexName),
		s.es.Search.WithBody(bytes.NewReader(body)),
		s.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search returned status %s", res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, parsed.Hits.Total.Value, nil
}
