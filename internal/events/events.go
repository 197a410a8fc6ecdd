// Package events publishes domain events after a use case commits.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/weiawesome/microblog/internal/domain"
	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/pubsub"
)

// Topics.
const (
	TopicUsers    = "microblog.users"
	TopicSocial   = "microblog.social"
	TopicPosts    = "microblog.posts"
	TopicMessages = "microblog.messages"
)

// Event types.
const (
	TypeUserRegistered = "user.registered"
	TypeUserFollowed   = "user.followed"
	TypeUserUnfollowed = "user.unfollowed"
	TypePostCreated    = "post.created"
	TypeMessageSent    = "message.sent"
)

// Topics lists every topic the emitter writes to.
func Topics() []string {
	return []string{TopicUsers, TopicSocial, TopicPosts, TopicMessages}
}

type UserRegistered struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

type FollowChanged struct {
	FollowerID uint `json:"follower_id"`
	FollowedID uint `json:"followed_id"`
}

type PostCreated struct {
	PostID    uint      `json:"post_id"`
	UserID    uint      `json:"user_id"`
	Body      string    `json:"body"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageSent struct {
	MessageID   uint      `json:"message_id"`
	SenderID    uint      `json:"sender_id"`
	RecipientID uint      `json:"recipient_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// Emitter publishes domain events. Publishing is best-effort: failures
// are logged and never returned.
type Emitter struct {
	publisher pubsub.Publisher
}

// NewEmitter creates an Emitter. A nil publisher discards events.
func NewEmitter(p pubsub.Publisher) *Emitter {
	if p == nil {
		p = pubsub.NoopPublisher{}
	}
	return &Emitter{publisher: p}
}

func (e *Emitter) emit(ctx context.Context, topic, eventType string, actorID uint, payload interface{}) {
	l := pkglog.Ctx(ctx)

	ev, err := pubsub.NewEvent(eventType, strconv.FormatUint(uint64(actorID), 10), payload)
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to encode event")
		return
	}
	if err := e.publisher.Publish(ctx, topic, ev); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Str("topic", topic).Msg("failed to publish event")
	}
}

func (e *Emitter) UserRegistered(ctx context.Context, u *domain.User) {
	e.emit(ctx, TopicUsers, TypeUserRegistered, u.ID, UserRegistered{UserID: u.ID, Username: u.Username})
}

func (e *Emitter) Followed(ctx context.Context, followerID, followedID uint) {
	e.emit(ctx, TopicSocial, TypeUserFollowed, followerID, FollowChanged{FollowerID: followerID, FollowedID: followedID})
}

func (e *Emitter) Unfollowed(ctx context.Context, followerID, followedID uint) {
	e.emit(ctx, TopicSocial, TypeUserUnfollowed, followerID, FollowChanged{FollowerID: followerID, FollowedID: followedID})
}

func (e *Emitter) PostCreated(ctx context.Context, p *domain.Post) {
	payload := PostCreated{PostID: p.ID, UserID: p.UserID, Body: p.Body, Timestamp: p.Timestamp}
	if p.Language != nil {
		payload.Language = *p.Language
	}
	e.emit(ctx, TopicPosts, TypePostCreated, p.UserID, payload)
}

func (e *Emitter) MessageSent(ctx context.Context, m *domain.Message) {
	e.emit(ctx, TopicMessages, TypeMessageSent, m.SenderID, MessageSent{
		MessageID:   m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Timestamp:   m.Timestamp,
	})
}
