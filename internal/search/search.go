package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/sweetshop/backend/internal/models"
)

// Indexer mirrors the sweet catalog into an Elasticsearch index. All methods
// are no-ops on a nil Indexer so the service runs without Elasticsearch.
type Indexer struct {
	ES    *elasticsearch.Client
	Index string
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	return &Indexer{ES: es, Index: index}
}

func (ix *Indexer) IndexSweet(ctx context.Context, sweet *models.Sweet) error {
	if ix == nil || ix.ES == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(sweet); err != nil {
		return fmt.Errorf("encode sweet: %w", err)
	}

	res, err := ix.ES.Index(
		ix.Index,
		&buf,
		ix.ES.Index.WithDocumentID(strconv.FormatUint(uint64(sweet.ID), 10)),
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithRefresh("false"),
	)
	if err != nil {
		return fmt.Errorf("index sweet: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index sweet: %s", res.Status())
	}
	return nil
}

func (ix *Indexer) DeleteSweet(ctx context.Context, id uint) error {
	if ix == nil || ix.ES == nil {
		return nil
	}

	res, err := ix.ES.Delete(
		ix.Index,
		strconv.FormatUint(uint64(id), 10),
		ix.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete sweet: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete sweet: %s", res.Status())
	}
	return nil
}

func (ix *Indexer) Enabled() bool {
	return ix != nil && ix.ES != nil
}

// Search runs a fuzzy multi_match over name and category.
func (ix *Indexer) Search(ctx context.Context, query string) ([]models.Sweet, error) {
	if !ix.Enabled() {
		return nil, fmt.Errorf("search index not configured")
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "category"},
				"fuzziness": "AUTO",
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Index),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Sweet `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	sweets := make([]models.Sweet, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		sweets[i] = hit.Source
	}
	return sweets, nil
}

// LikePattern builds the case-insensitive substring pattern used by the
// DB-backed search path.
func LikePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
