package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/weiawesome/microblog/internal/domain"
)

// DefaultIndex is the index posts are written to.
const DefaultIndex = "posts"

// ESIndexer indexes and searches posts in Elasticsearch.
type ESIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewESIndexer creates an Elasticsearch-backed indexer.
func NewESIndexer(client *elasticsearch.Client, index string) *ESIndexer {
	if index == "" {
		index = DefaultIndex
	}
	return &ESIndexer{client: client, index: index}
}

type postDocument struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Body      string    `json:"body"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexPost writes post under its id, replacing any previous version.
func (r *ESIndexer) IndexPost(ctx context.Context, post *domain.Post) error {
	doc := postDocument{ID: post.ID, UserID: post.UserID, Body: post.Body, Timestamp: post.Timestamp}
	if post.Language != nil {
		doc.Language = *post.Language
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(strconv.FormatUint(uint64(post.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// SearchPosts runs a multi_match query on the post body.
func (r *ESIndexer) SearchPosts(ctx context.Context, query string, offset, limit int) ([]uint, int64, error) {
	body := map[string]interface{}{
		"from":             offset,
		"size":             limit,
		"track_total_hits": true,
		"_source":          []string{"id"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"body"},
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"timestamp": map[string]string{"order": "desc"}},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search posts: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	ids := make([]uint, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc struct {
			ID uint `json:"id"`
		}
		if err := json.Unmarshal(hit.Source, &doc); err != nil || doc.ID == 0 {
			continue
		}
		ids = append(ids, doc.ID)
	}

	return ids, result.Hits.Total.Value, nil
}

// esResponse is the part of an Elasticsearch search response we read.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

var _ Indexer = (*ESIndexer)(nil)
