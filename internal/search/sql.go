package search

import (
	"context"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
)

// PostMatcher is the substring search of the post repository.
type PostMatcher interface {
	Search(query string) pagination.Collection[*domain.Post]
}

// SQLIndexer searches posts in the database. The database is the index,
// so IndexPost has nothing to do.
type SQLIndexer struct {
	posts PostMatcher
}

// NewSQLIndexer creates an indexer over the post table.
func NewSQLIndexer(posts PostMatcher) *SQLIndexer {
	return &SQLIndexer{posts: posts}
}

func (s *SQLIndexer) IndexPost(context.Context, *domain.Post) error { return nil }

func (s *SQLIndexer) SearchPosts(ctx context.Context, query string, offset, limit int) ([]uint, int64, error) {
	matches := s.posts.Search(query)

	total, err := matches.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || int64(offset) >= total {
		return []uint{}, total, nil
	}

	posts, err := matches.Slice(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids, total, nil
}

var _ Indexer = (*SQLIndexer)(nil)
