package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/pkg/database"
)

// newestFirst is the ordering of every post listing.
var newestFirst = []string{"timestamp DESC", "id DESC"}

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GORM-based post repository.
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create inserts a post and fills in its id.
func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	model := domain.PostToModel(post)
	if err := database.Conn(ctx, r.db).Create(model).Error; err != nil {
		return err
	}
	post.ID = model.ID
	return nil
}

// GetByIDs loads posts by id, preserving the order of ids. Unknown ids
// are skipped.
func (r *GormPostRepository) GetByIDs(ctx context.Context, ids []uint) ([]*domain.Post, error) {
	if len(ids) == 0 {
		return []*domain.Post{}, nil
	}

	var models []domain.PostModel
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*domain.Post, len(models))
	for i := range models {
		byID[models[i].ID] = models[i].ToDomain()
	}

	out := make([]*domain.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ByAuthor returns the posts of userID, newest first.
func (r *GormPostRepository) ByAuthor(userID uint) pagination.Collection[*domain.Post] {
	return newCollection(r.db, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	}, (*domain.PostModel).ToDomain, newestFirst...)
}

// All returns every post, newest first.
func (r *GormPostRepository) All() pagination.Collection[*domain.Post] {
	return newCollection(r.db, nil, (*domain.PostModel).ToDomain, newestFirst...)
}

// FollowedBy returns the feed of userID in one query over the author set
// {userID} ∪ followed(userID).
func (r *GormPostRepository) FollowedBy(userID uint) pagination.Collection[*domain.Post] {
	return newCollection(r.db, func(q *gorm.DB) *gorm.DB {
		followed := q.Session(&gorm.Session{NewDB: true}).
			Model(&domain.FollowModel{}).
			Select("followed_id").
			Where("follower_id = ?", userID)
		return q.Where("user_id = ? OR user_id IN (?)", userID, followed)
	}, (*domain.PostModel).ToDomain, newestFirst...)
}

// Search returns posts whose body contains query, newest first.
func (r *GormPostRepository) Search(query string) pagination.Collection[*domain.Post] {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return newCollection(r.db, func(q *gorm.DB) *gorm.DB {
		return q.Where("LOWER(body) LIKE ? ESCAPE '!'", pattern)
	}, (*domain.PostModel).ToDomain, newestFirst...)
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

var _ PostRepository = (*GormPostRepository)(nil)
