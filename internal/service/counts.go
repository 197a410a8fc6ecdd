package service

import (
	"context"
	"errors"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/repository"
	"github.com/weiawesome/microblog/internal/store"
	pkglog "github.com/weiawesome/microblog/pkg/log"
)

// Transactor runs a unit of work in one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// FollowerCounter serves follower counts from the cache, loading misses
// from the database. Concurrent misses for one user share a single load.
type FollowerCounter struct {
	repo  repository.FollowRepository
	store store.FollowStore
	sf    singleflight.Group
}

// NewFollowerCounter creates a FollowerCounter. A nil store disables
// caching.
func NewFollowerCounter(repo repository.FollowRepository, st store.FollowStore) *FollowerCounter {
	if st == nil {
		st = store.NoopFollowStore{}
	}
	return &FollowerCounter{repo: repo, store: st}
}

// Get returns the number of followers of userID.
func (f *FollowerCounter) Get(ctx context.Context, userID uint) (int64, error) {
	l := pkglog.Ctx(ctx)

	if err := f.store.RecordAccess(ctx, userID); err != nil {
		l.Warn().Err(err).Uint(pkglog.FieldUserID, userID).Msg("failed to record hot key access")
	}

	count, found, err := f.store.GetFollowersCount(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Uint(pkglog.FieldUserID, userID).Msg("cache get followers count failed, falling back to db")
	}
	if found {
		return count, nil
	}

	v, err, _ := f.sf.Do(strconv.FormatUint(uint64(userID), 10), func() (interface{}, error) {
		count, err := f.repo.GetFollowersCount(ctx, userID)
		if err != nil {
			return int64(0), err
		}
		if err := f.store.SetFollowersCount(ctx, userID, count); err != nil {
			l.Warn().Err(err).Uint(pkglog.FieldUserID, userID).Msg("failed to set followers count in cache")
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Followed adjusts the cached count after an edge to userID was created.
func (f *FollowerCounter) Followed(ctx context.Context, userID uint) {
	if err := f.store.CondIncrFollowersCount(ctx, userID); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Uint(pkglog.FieldUserID, userID).Msg("failed to incr cached followers count")
	}
}

// Unfollowed adjusts the cached count after an edge to userID was removed.
func (f *FollowerCounter) Unfollowed(ctx context.Context, userID uint) {
	if err := f.store.CondDecrFollowersCount(ctx, userID); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Uint(pkglog.FieldUserID, userID).Msg("failed to decr cached followers count")
	}
}

// paginateProfiles pages a user collection and attaches counters
// computed for the whole page at once.
func paginateProfiles(ctx context.Context, users repository.UserRepository, c pagination.Collection[*domain.User], req pagination.Request) (*pagination.Page[*domain.UserProfile], error) {
	page, err := pagination.Paginate(ctx, c, req)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(page.Items))
	for _, u := range page.Items {
		ids = append(ids, u.ID)
	}
	stats, err := users.Stats(ctx, ids)
	if err != nil {
		return nil, err
	}

	return pagination.Map(page, func(u *domain.User) *domain.UserProfile {
		return &domain.UserProfile{User: u, Stats: stats[u.ID]}
	}), nil
}

// mustExist loads a user, mapping a missing row to ErrUserNotFound.
func mustExist(ctx context.Context, users repository.UserRepository, id uint) (*domain.User, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
