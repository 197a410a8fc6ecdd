// Package search indexes posts and answers full-text queries over them.
package search

import (
	"context"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
)

// Indexer indexes posts and searches them. SearchPosts returns the ids
// of one window of matches, best match first, and the total number of
// matches. A limit of 0 asks for the total only.
type Indexer interface {
	IndexPost(ctx context.Context, post *domain.Post) error
	SearchPosts(ctx context.Context, query string, offset, limit int) ([]uint, int64, error)
}

// PostLoader loads posts by id in the order given.
type PostLoader interface {
	GetByIDs(ctx context.Context, ids []uint) ([]*domain.Post, error)
}

// resultCollection exposes one query's matches as a paginated
// collection. The index decides the order.
type resultCollection struct {
	indexer Indexer
	posts   PostLoader
	query   string
}

// Results returns the matches of query as a collection.
func Results(indexer Indexer, posts PostLoader, query string) pagination.Collection[*domain.Post] {
	return &resultCollection{indexer: indexer, posts: posts, query: query}
}

func (c *resultCollection) Count(ctx context.Context) (int64, error) {
	_, total, err := c.indexer.SearchPosts(ctx, c.query, 0, 0)
	return total, err
}

func (c *resultCollection) Slice(ctx context.Context, offset, limit int) ([]*domain.Post, error) {
	ids, _, err := c.indexer.SearchPosts(ctx, c.query, offset, limit)
	if err != nil {
		return nil, err
	}
	return c.posts.GetByIDs(ctx, ids)
}
