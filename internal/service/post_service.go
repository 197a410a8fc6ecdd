package service

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"github.com/weiawesome/microblog/internal/audit"
	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/events"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/repository"
	"github.com/weiawesome/microblog/internal/search"
	"github.com/weiawesome/microblog/pkg/clock"
	pkglog "github.com/weiawesome/microblog/pkg/log"
)

// maxLanguageLength is the width of the posts.language column.
const maxLanguageLength = 5

type postService struct {
	tx      Transactor
	users   repository.UserRepository
	posts   repository.PostRepository
	indexer search.Indexer
	emitter *events.Emitter
	clock   clock.Clock
}

// NewPostService creates a PostService. A nil indexer searches the
// post table directly.
func NewPostService(
	tx Transactor,
	users repository.UserRepository,
	posts repository.PostRepository,
	indexer search.Indexer,
	emitter *events.Emitter,
	clk clock.Clock,
) PostService {
	if indexer == nil {
		indexer = search.NewSQLIndexer(posts)
	}
	if emitter == nil {
		emitter = events.NewEmitter(nil)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &postService{tx: tx, users: users, posts: posts, indexer: indexer, emitter: emitter, clock: clk}
}

// Create publishes a post by author. The language comes from the
// request when it is a valid short tag, else from locale.
func (s *postService) Create(ctx context.Context, author *domain.User, req *domain.CreatePostRequest, locale string) (*domain.Post, error) {
	l := pkglog.Ctx(ctx)

	body, err := validateBody(req.Body)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		UserID:    author.ID,
		Body:      body,
		Language:  postLanguage(req.Language, locale),
		Timestamp: s.clock.Now(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.posts.Create(ctx, post)
	})
	if err != nil {
		l.Error().Err(err).Uint(pkglog.FieldUserID, author.ID).Msg("failed to create post")
		return nil, err
	}

	if err := s.indexer.IndexPost(ctx, post); err != nil {
		l.Warn().Err(err).Uint(pkglog.FieldPostID, post.ID).Msg("failed to index post")
	}
	s.emitter.PostCreated(ctx, post)
	audit.LogTarget(ctx, audit.ActionPost, author.ID, post.ID, "post created")

	return post, nil
}

func postLanguage(requested, locale string) *string {
	for _, candidate := range []string{strings.TrimSpace(requested), locale} {
		if candidate == "" || len(candidate) > maxLanguageLength {
			continue
		}
		if _, err := language.Parse(candidate); err != nil {
			continue
		}
		return &candidate
	}
	return nil
}

// ByAuthor pages through the posts of userID, newest first.
func (s *postService) ByAuthor(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[*domain.Post], error) {
	var page *pagination.Page[*domain.Post]
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := mustExist(ctx, s.users, userID); err != nil {
			return err
		}
		var err error
		page, err = pagination.Paginate(ctx, s.posts.ByAuthor(userID), req)
		return err
	})
	return page, err
}

// Explore pages through every post, newest first.
func (s *postService) Explore(ctx context.Context, req pagination.Request) (*pagination.Page[*domain.Post], error) {
	var page *pagination.Page[*domain.Post]
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		page, err = pagination.Paginate(ctx, s.posts.All(), req)
		return err
	})
	return page, err
}

// Search pages through the posts matching query, in index order.
func (s *postService) Search(ctx context.Context, query string, req pagination.Request) (*pagination.Page[*domain.Post], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("q", "must include a search query")
	}

	page, err := pagination.Paginate(ctx, search.Results(s.indexer, s.posts, query), req)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str("query", query).Msg("failed to search posts")
		return nil, err
	}
	return page, nil
}

var _ PostService = (*postService)(nil)
