package service

import (
	"context"
	"io"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/media"
	"github.com/weiawesome/microblog/internal/pagination"
)

// UserService defines the business logic for accounts and tokens.
type UserService interface {
	Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserProfile, error)
	// CheckCredentials and Verify back the basic and bearer middlewares.
	CheckCredentials(ctx context.Context, username, password string) (*domain.User, bool, error)
	Verify(ctx context.Context, token string) (*domain.User, bool, error)
	IssueToken(ctx context.Context, user *domain.User) (*domain.TokenResponse, error)
	RevokeToken(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id uint) (*domain.UserProfile, error)
	ListUsers(ctx context.Context, req pagination.Request) (*pagination.Page[*domain.UserProfile], error)
	UpdateUser(ctx context.Context, actor *domain.User, id uint, req *domain.UpdateUserRequest) (*domain.UserProfile, error)
	UploadAvatar(ctx context.Context, actor *domain.User, image io.Reader) (*media.Avatar, error)
	AvatarURL(ctx context.Context, username string) string
}

// SocialGraphService defines the business logic for the follow graph.
type SocialGraphService interface {
	// Follow and Unfollow return the actor's followed list after the change.
	Follow(ctx context.Context, actor *domain.User, targetID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error)
	Unfollow(ctx context.Context, actor *domain.User, targetID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error)
	Followers(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error)
	Followed(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error)
	FollowedPosts(ctx context.Context, actor *domain.User, req pagination.Request) (*pagination.Page[*domain.Post], error)
	GetFollowersCount(ctx context.Context, userID uint) (int64, error)
}

// MessagingService defines the business logic for direct messages.
type MessagingService interface {
	Send(ctx context.Context, sender *domain.User, recipientID uint, body *string) (*domain.Message, error)
	// Inbox also marks every received message as read.
	Inbox(ctx context.Context, user *domain.User, req pagination.Request) (*pagination.Page[*domain.Message], error)
	UnreadCount(ctx context.Context, user *domain.User) (int64, error)
}

// PostService defines the business logic for posts.
type PostService interface {
	Create(ctx context.Context, author *domain.User, req *domain.CreatePostRequest, locale string) (*domain.Post, error)
	ByAuthor(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[*domain.Post], error)
	Explore(ctx context.Context, req pagination.Request) (*pagination.Page[*domain.Post], error)
	Search(ctx context.Context, query string, req pagination.Request) (*pagination.Page[*domain.Post], error)
}
