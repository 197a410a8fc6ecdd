package service

import (
	"context"
	"errors"
	"strings"

	"github.com/weiawesome/microblog/internal/audit"
	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/events"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/repository"
	"github.com/weiawesome/microblog/pkg/clock"
	pkglog "github.com/weiawesome/microblog/pkg/log"
)

type messagingService struct {
	tx       Transactor
	users    repository.UserRepository
	messages repository.MessageRepository
	emitter  *events.Emitter
	clock    clock.Clock
}

// NewMessagingService creates a MessagingService.
func NewMessagingService(
	tx Transactor,
	users repository.UserRepository,
	messages repository.MessageRepository,
	emitter *events.Emitter,
	clk clock.Clock,
) MessagingService {
	if emitter == nil {
		emitter = events.NewEmitter(nil)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &messagingService{tx: tx, users: users, messages: messages, emitter: emitter, clock: clk}
}

func (s *messagingService) Send(ctx context.Context, sender *domain.User, recipientID uint, body *string) (*domain.Message, error) {
	l := pkglog.Ctx(ctx)

	var msg *domain.Message
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := mustExist(ctx, s.users, recipientID); err != nil {
			return err
		}
		if sender.ID == recipientID {
			return ErrSelfMessage
		}
		text, err := validateBody(body)
		if err != nil {
			return err
		}

		msg = &domain.Message{
			SenderID:    sender.ID,
			RecipientID: recipientID,
			Body:        text,
			Timestamp:   s.clock.Now(),
		}
		return s.messages.Create(ctx, msg)
	})
	if err != nil {
		if !IsValidation(err) && !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrSelfMessage) {
			l.Error().Err(err).
				Uint(pkglog.FieldUserID, sender.ID).
				Uint(pkglog.FieldTargetID, recipientID).
				Msg("failed to send message")
		}
		return nil, err
	}

	audit.LogTarget(ctx, audit.ActionMessage, sender.ID, recipientID, "message sent")
	s.emitter.MessageSent(ctx, msg)
	return msg, nil
}

func (s *messagingService) Inbox(ctx context.Context, user *domain.User, req pagination.Request) (*pagination.Page[*domain.Message], error) {
	var page *pagination.Page[*domain.Message]
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		user.LastMessageReadTime = &now
		if err := s.users.SaveLastMessageRead(ctx, user); err != nil {
			return err
		}

		var err error
		page, err = pagination.Paginate(ctx, s.messages.ReceivedBy(user.ID), req)
		return err
	})
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Uint(pkglog.FieldUserID, user.ID).Msg("failed to read inbox")
		return nil, err
	}
	return page, nil
}

func (s *messagingService) UnreadCount(ctx context.Context, user *domain.User) (int64, error) {
	var n int64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := mustExist(ctx, s.users, user.ID)
		if err != nil {
			return err
		}
		n, err = s.messages.CountReceivedSince(ctx, fresh.ID, fresh.LastMessageReadTime)
		return err
	})
	return n, err
}

// validateBody requires a non-blank body of at most MaxBodyLength
// characters.
func validateBody(body *string) (string, error) {
	if body == nil || strings.TrimSpace(*body) == "" {
		return "", NewValidationError("body", "must include body")
	}
	if err := validateLength("body", *body, domain.MaxBodyLength); err != nil {
		return "", err
	}
	return *body, nil
}

var _ MessagingService = (*messagingService)(nil)
