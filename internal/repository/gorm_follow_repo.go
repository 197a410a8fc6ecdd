package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/pkg/database"
)

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// Follow inserts the (follower, followed) edge unless it already exists.
// The primary key makes concurrent follows of the same pair collapse to
// one row; only the caller that inserted it sees true.
func (r *GormFollowRepository) Follow(ctx context.Context, followerID, followedID uint) (bool, error) {
	edge := domain.FollowModel{FollowerID: followerID, FollowedID: followedID}
	result := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Unfollow removes the edge if present.
func (r *GormFollowRepository) Unfollow(ctx context.Context, followerID, followedID uint) (bool, error) {
	result := database.Conn(ctx, r.db).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&domain.FollowModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetFollowersCount returns the number of followers of userID.
func (r *GormFollowRepository) GetFollowersCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&domain.FollowModel{}).
		Where("followed_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Followers returns the users following userID, ordered by id.
func (r *GormFollowRepository) Followers(userID uint) pagination.Collection[*domain.User] {
	return r.users("follower_id", "followed_id", userID)
}

// Followed returns the users userID follows, ordered by id.
func (r *GormFollowRepository) Followed(userID uint) pagination.Collection[*domain.User] {
	return r.users("followed_id", "follower_id", userID)
}

// users selects users whose id appears in column pick of the edges where
// column match equals userID.
func (r *GormFollowRepository) users(pick, match string, userID uint) pagination.Collection[*domain.User] {
	return newCollection(r.db, func(q *gorm.DB) *gorm.DB {
		edges := q.Session(&gorm.Session{NewDB: true}).
			Model(&domain.FollowModel{}).
			Select(pick).
			Where(match+" = ?", userID)
		return q.Where("id IN (?)", edges)
	}, (*domain.UserModel).ToDomain, "id ASC")
}

var _ FollowRepository = (*GormFollowRepository)(nil)
