package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/weiawesome/microblog/internal/domain"
)

// UserLinks are the navigation links of a user.
type UserLinks struct {
	Self      string `json:"self"`
	Followers string `json:"followers"`
	Followed  string `json:"followed"`
	Avatar    string `json:"avatar"`
}

// UserView is the public representation of a user.
type UserView struct {
	ID            uint      `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	LastSeen      string    `json:"last_seen"`
	AboutMe       string    `json:"about_me"`
	PostCount     int64     `json:"post_count"`
	FollowerCount int64     `json:"follower_count"`
	FollowedCount int64     `json:"followed_count"`
	Links         UserLinks `json:"_links"`
}

// PostLinks are the navigation links of a post.
type PostLinks struct {
	Self   string `json:"self"`
	Author string `json:"author"`
}

// PostView is the public representation of a post.
type PostView struct {
	ID        uint      `json:"id"`
	Body      string    `json:"body"`
	Timestamp string    `json:"timestamp"`
	UserID    uint      `json:"user_id"`
	Language  *string   `json:"language"`
	Links     PostLinks `json:"_links"`
}

// MessageView is the public representation of a message.
type MessageView struct {
	ID          uint   `json:"id"`
	SenderID    uint   `json:"sender_id"`
	RecipientID uint   `json:"recipient_id"`
	Body        string `json:"body"`
	Timestamp   string `json:"timestamp"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func userURL(id uint) string {
	return fmt.Sprintf("/api/users/%d", id)
}

// avatarSource resolves the avatar URL of a username.
type avatarSource interface {
	AvatarURL(ctx context.Context, username string) string
}

// presenter renders domain values for one request. viewerID decides
// whether private fields are included.
type presenter struct {
	ctx      context.Context
	avatars  avatarSource
	viewerID uint
}

func (p presenter) user(profile *domain.UserProfile) UserView {
	u := profile.User
	view := UserView{
		ID:            u.ID,
		Username:      u.Username,
		LastSeen:      formatTime(u.LastSeen),
		AboutMe:       u.AboutMe,
		PostCount:     profile.Stats.PostCount,
		FollowerCount: profile.Stats.FollowerCount,
		FollowedCount: profile.Stats.FollowedCount,
		Links: UserLinks{
			Self:      userURL(u.ID),
			Followers: userURL(u.ID) + "/followers",
			Followed:  userURL(u.ID) + "/followed",
			Avatar:    p.avatars.AvatarURL(p.ctx, u.Username),
		},
	}
	if p.viewerID == u.ID {
		view.Email = u.Email
	}
	return view
}

func (p presenter) post(post *domain.Post) PostView {
	return PostView{
		ID:        post.ID,
		Body:      post.Body,
		Timestamp: formatTime(post.Timestamp),
		UserID:    post.UserID,
		Language:  post.Language,
		Links: PostLinks{
			Self:   fmt.Sprintf("/api/%d/posts", post.UserID),
			Author: userURL(post.UserID),
		},
	}
}

func (p presenter) message(m *domain.Message) MessageView {
	return MessageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		Timestamp:   formatTime(m.Timestamp),
	}
}
