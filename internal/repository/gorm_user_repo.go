package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/pkg/database"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// Create inserts a user and fills in its generated id and timestamps.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	if err := r.conn(ctx).Create(model).Error; err != nil {
		return r.handleError(err)
	}

	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *GormUserRepository) first(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var model domain.UserModel
	if err := r.conn(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetByID retrieves a user by id.
func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by username.
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

// GetByToken retrieves the user currently holding token, expired or not.
func (r *GormUserRepository) GetByToken(ctx context.Context, token string) (*domain.User, error) {
	return r.first(ctx, "token = ?", token)
}

func (r *GormUserRepository) taken(ctx context.Context, column, value string, exceptID uint) (bool, error) {
	var n int64
	q := r.conn(ctx).Model(&domain.UserModel{}).Where(column+" = ?", value)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// UsernameTaken reports whether another user already has username.
func (r *GormUserRepository) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	return r.taken(ctx, "username", username, exceptID)
}

// EmailTaken reports whether another user already has email.
func (r *GormUserRepository) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	return r.taken(ctx, "email", email, exceptID)
}

func (r *GormUserRepository) updates(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.conn(ctx).Model(&domain.UserModel{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return r.handleError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Update writes the profile fields of user.
func (r *GormUserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.updates(ctx, user.ID, map[string]interface{}{
		"username":      user.Username,
		"email":         user.Email,
		"about_me":      user.AboutMe,
		"password_hash": user.PasswordHash,
		"last_seen":     user.LastSeen,
	})
}

// SaveToken writes the token and its expiration.
func (r *GormUserRepository) SaveToken(ctx context.Context, user *domain.User) error {
	return r.updates(ctx, user.ID, map[string]interface{}{
		"token":            user.Token,
		"token_expiration": user.TokenExpiration,
		"last_seen":        user.LastSeen,
	})
}

// SaveLastMessageRead writes the inbox read marker.
func (r *GormUserRepository) SaveLastMessageRead(ctx context.Context, user *domain.User) error {
	return r.updates(ctx, user.ID, map[string]interface{}{
		"last_message_read_time": user.LastMessageReadTime,
	})
}

type idCount struct {
	ID uint
	N  int64
}

func (r *GormUserRepository) countBy(ctx context.Context, model interface{}, column string, ids []uint) (map[uint]int64, error) {
	var rows []idCount
	err := r.conn(ctx).Model(model).
		Select(column+" AS id, COUNT(*) AS n").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.N
	}
	return out, nil
}

// Stats computes post, follower and followed counts for ids in three
// grouped queries.
func (r *GormUserRepository) Stats(ctx context.Context, ids []uint) (map[uint]domain.UserStats, error) {
	out := make(map[uint]domain.UserStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	posts, err := r.countBy(ctx, &domain.PostModel{}, "user_id", ids)
	if err != nil {
		return nil, err
	}
	followers, err := r.countBy(ctx, &domain.FollowModel{}, "followed_id", ids)
	if err != nil {
		return nil, err
	}
	followed, err := r.countBy(ctx, &domain.FollowModel{}, "follower_id", ids)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		out[id] = domain.UserStats{
			PostCount:     posts[id],
			FollowerCount: followers[id],
			FollowedCount: followed[id],
		}
	}
	return out, nil
}

// All returns every user ordered by id.
func (r *GormUserRepository) All() pagination.Collection[*domain.User] {
	return newCollection(r.db, nil, (*domain.UserModel).ToDomain, "id ASC")
}

// handleError converts unique violations to domain errors.
func (r *GormUserRepository) handleError(err error) error {
	if !database.IsUniqueViolation(err) {
		return err
	}
	switch database.ViolatedColumn(err, "username", "email") {
	case "username":
		return ErrUsernameExists
	case "email":
		return ErrEmailExists
	default:
		return ErrUserConflict
	}
}

var _ UserRepository = (*GormUserRepository)(nil)
