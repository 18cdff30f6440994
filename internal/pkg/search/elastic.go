package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "user_id":       {"type": "keyword"},
      "kind":          {"type": "keyword"},
      "name":          {"type": "keyword"},
      "original_name": {"type": "keyword"}
    }
  }
}`

type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

var _ Index = (*ElasticIndex)(nil)

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	return &ElasticIndex{client: client, index: index}
}

func (e *ElasticIndex) Enabled() bool { return true }

// EnsureIndex 索引不存在时按 keyword 映射创建
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: create index: %s", res.String())
	}
	logger.Info("EnsureIndex: Elasticsearch index created", zap.String("index", e.index))
	return nil
}

func (e *ElasticIndex) Index(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch: encode document: %w", err)
	}
	res, err := e.client.Index(e.index, bytes.NewReader(body),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: index document: %s", res.String())
	}
	return nil
}

func (e *ElasticIndex) Remove(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.index, id, e.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch: delete document: %s", res.String())
	}
	return nil
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func buildSearchQuery(userID, kind, query string, size int) map[string]any {
	pattern := "*" + wildcardEscaper.Replace(query) + "*"
	wildcard := func(field string) map[string]any {
		return map[string]any{
			"wildcard": map[string]any{
				field: map[string]any{"value": pattern, "case_insensitive": true},
			},
		}
	}

	filters := []any{map[string]any{"term": map[string]any{"user_id": userID}}}
	if kind != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"kind": kind}})
	}

	return map[string]any{
		"size":    size,
		"_source": false,
		"query": map[string]any{
			"bool": map[string]any{
				"filter":               filters,
				"should":               []any{wildcard("name"), wildcard("original_name")},
				"minimum_should_match": 1,
			},
		},
	}
}

func (e *ElasticIndex) SearchIDs(ctx context.Context, userID, kind, query string, size int) ([]string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchQuery(userID, kind, query, size)); err != nil {
		return nil, fmt.Errorf("elasticsearch: encode query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: search: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elasticsearch: decode response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
