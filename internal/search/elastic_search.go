package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const indexName = "blogs"

// BlogIndex is a full-text index over published blogs
type BlogIndex interface {
	IndexBlog(ctx context.Context, blog *models.Blog) error
	SearchBlogs(ctx context.Context, query string, limit int) ([]string, error)
}

type ElasticSearch struct {
	client *elasticsearch.Client
}

func NewElasticSearch(client *elasticsearch.Client) *ElasticSearch {
	return &ElasticSearch{client: client}
}

// CreateIndex creates the blogs index with proper mapping
func (es *ElasticSearch) CreateIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"blog_id": {"type": "keyword"},
				"title": {"type": "text"},
				"des": {"type": "text"},
				"tags": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
				"publishedAt": {"type": "date"}
			}
		}
	}`

	req := esapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("error creating index: %s", res.String())
	}
	return nil
}

// IndexBlog indexes a published blog, keyed by its external identifier
func (es *ElasticSearch) IndexBlog(ctx context.Context, blog *models.Blog) error {
	doc := map[string]interface{}{
		"blog_id":     blog.BlogID,
		"title":       blog.Title,
		"des":         blog.Des,
		"tags":        blog.Tags,
		"publishedAt": blog.PublishedAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: blog.BlogID,
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// SearchBlogs runs a multi-match query and returns matching blog ids by relevance
func (es *ElasticSearch) SearchBlogs(ctx context.Context, query string, limit int) ([]string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchQuery(query, limit)); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := es.client.Search(
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(indexName),
		es.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result searchResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.Source.BlogID)
	}
	return ids, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				BlogID string `json:"blog_id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildSearchQuery(query string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^3", "tags^2", "des"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"blog_id"},
		"size":    limit,
	}
}
