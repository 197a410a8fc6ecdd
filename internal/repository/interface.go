package repository

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrUserConflict   = errors.New("user conflicts with an existing user")
)

// UserRepository defines persistence for users and their token state.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByToken(ctx context.Context, token string) (*domain.User, error)
	UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error)
	// Update writes the profile fields: username, email, about_me,
	// password hash and last_seen.
	Update(ctx context.Context, user *domain.User) error
	SaveToken(ctx context.Context, user *domain.User) error
	SaveLastMessageRead(ctx context.Context, user *domain.User) error
	Stats(ctx context.Context, ids []uint) (map[uint]domain.UserStats, error)
	All() pagination.Collection[*domain.User]
}

// PostRepository defines persistence for posts.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByIDs(ctx context.Context, ids []uint) ([]*domain.Post, error)
	ByAuthor(userID uint) pagination.Collection[*domain.Post]
	All() pagination.Collection[*domain.Post]
	// FollowedBy is the feed of userID: its own posts plus those of every
	// user it follows, newest first, as a single query.
	FollowedBy(userID uint) pagination.Collection[*domain.Post]
	Search(query string) pagination.Collection[*domain.Post]
}

// MessageRepository defines persistence for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ReceivedBy(recipientID uint) pagination.Collection[*domain.Message]
	CountReceivedSince(ctx context.Context, recipientID uint, since *time.Time) (int64, error)
}

// FollowRepository defines persistence for the follow graph.
type FollowRepository interface {
	// Follow inserts the edge if absent and reports whether it did.
	Follow(ctx context.Context, followerID, followedID uint) (bool, error)
	// Unfollow deletes the edge if present and reports whether it did.
	Unfollow(ctx context.Context, followerID, followedID uint) (bool, error)
	GetFollowersCount(ctx context.Context, userID uint) (int64, error)
	Followers(userID uint) pagination.Collection[*domain.User]
	Followed(userID uint) pagination.Collection[*domain.User]
}
