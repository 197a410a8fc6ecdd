package service

import (
	"context"
	"errors"

	"github.com/weiawesome/microblog/internal/audit"
	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/events"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/repository"
	pkglog "github.com/weiawesome/microblog/pkg/log"
)

// socialGraphService implements SocialGraphService.
type socialGraphService struct {
	tx      Transactor
	users   repository.UserRepository
	repo    repository.FollowRepository
	posts   repository.PostRepository
	counter *FollowerCounter
	emitter *events.Emitter
}

// NewSocialGraphService creates a new SocialGraphService instance.
func NewSocialGraphService(
	tx Transactor,
	users repository.UserRepository,
	repo repository.FollowRepository,
	posts repository.PostRepository,
	counter *FollowerCounter,
	emitter *events.Emitter,
) SocialGraphService {
	if emitter == nil {
		emitter = events.NewEmitter(nil)
	}
	return &socialGraphService{
		tx:      tx,
		users:   users,
		repo:    repo,
		posts:   posts,
		counter: counter,
		emitter: emitter,
	}
}

// Follow makes actor follow targetID. Following someone already
// followed changes nothing.
func (s *socialGraphService) Follow(ctx context.Context, actor *domain.User, targetID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error) {
	var created bool
	page, err := s.changeEdge(ctx, actor, targetID, req, func(ctx context.Context) error {
		var err error
		created, err = s.repo.Follow(ctx, actor.ID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.counter.Followed(ctx, targetID)
		s.emitter.Followed(ctx, actor.ID, targetID)
		audit.LogTarget(ctx, audit.ActionFollow, actor.ID, targetID, "user followed")
	}
	return page, nil
}

// Unfollow removes the edge from actor to targetID if there is one.
func (s *socialGraphService) Unfollow(ctx context.Context, actor *domain.User, targetID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error) {
	var removed bool
	page, err := s.changeEdge(ctx, actor, targetID, req, func(ctx context.Context) error {
		var err error
		removed, err = s.repo.Unfollow(ctx, actor.ID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if removed {
		s.counter.Unfollowed(ctx, targetID)
		s.emitter.Unfollowed(ctx, actor.ID, targetID)
		audit.LogTarget(ctx, audit.ActionUnfollow, actor.ID, targetID, "user unfollowed")
	}
	return page, nil
}

// changeEdge checks the target, applies change and reads back the
// actor's followed list, all in one transaction.
func (s *socialGraphService) changeEdge(ctx context.Context, actor *domain.User, targetID uint, req pagination.Request, change func(ctx context.Context) error) (*pagination.Page[*domain.UserProfile], error) {
	l := pkglog.Ctx(ctx)

	var page *pagination.Page[*domain.UserProfile]
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := mustExist(ctx, s.users, targetID); err != nil {
			return err
		}
		if actor.ID == targetID {
			return ErrSelfFollow
		}
		if err := change(ctx); err != nil {
			return err
		}

		var err error
		page, err = paginateProfiles(ctx, s.users, s.repo.Followed(actor.ID), req)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrSelfFollow) {
			l.Error().Err(err).
				Uint(pkglog.FieldUserID, actor.ID).
				Uint(pkglog.FieldTargetID, targetID).
				Msg("failed to change follow edge")
		}
		return nil, err
	}
	return page, nil
}

// Followers pages through the users following userID.
func (s *socialGraphService) Followers(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error) {
	return s.listUsers(ctx, userID, req, s.repo.Followers)
}

// Followed pages through the users userID follows.
func (s *socialGraphService) Followed(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error) {
	return s.listUsers(ctx, userID, req, s.repo.Followed)
}

func (s *socialGraphService) listUsers(ctx context.Context, userID uint, req pagination.Request, list func(uint) pagination.Collection[*domain.User]) (*pagination.Page[*domain.UserProfile], error) {
	var page *pagination.Page[*domain.UserProfile]
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := mustExist(ctx, s.users, userID); err != nil {
			return err
		}
		var err error
		page, err = paginateProfiles(ctx, s.users, list(userID), req)
		return err
	})
	return page, err
}

// FollowedPosts pages through the posts of actor and everyone actor
// follows, newest first.
func (s *socialGraphService) FollowedPosts(ctx context.Context, actor *domain.User, req pagination.Request) (*pagination.Page[*domain.Post], error) {
	var page *pagination.Page[*domain.Post]
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		page, err = pagination.Paginate(ctx, s.posts.FollowedBy(actor.ID), req)
		return err
	})
	return page, err
}

// GetFollowersCount returns the number of followers of userID.
func (s *socialGraphService) GetFollowersCount(ctx context.Context, userID uint) (int64, error) {
	return s.counter.Get(ctx, userID)
}

var _ SocialGraphService = (*socialGraphService)(nil)
