package reconciler

import (
	"context"
	"time"

	pkglog "github.com/weiawesome/microblog/pkg/log"
)

// Config controls how often and how widely counts are reconciled.
type Config struct {
	Interval time.Duration `mapstructure:"interval"`
	TopN     int           `mapstructure:"top_n"`
}

// CountStore is the part of the follower-count cache the reconciler
// rewrites.
type CountStore interface {
	GetTopHotKeys(ctx context.Context, n int64) ([]uint, error)
	SetFollowersCount(ctx context.Context, userID uint, count int64) error
	ResetHotKeyScores(ctx context.Context) error
}

// CountSource yields authoritative follower counts.
type CountSource interface {
	GetFollowersCount(ctx context.Context, userID uint) (int64, error)
}

// Reconciler periodically syncs the cached counts of the most read
// users with the database.
type Reconciler struct {
	store  CountStore
	repo   CountSource
	cfg    Config
	quit   chan struct{}
	doneCh chan struct{}
}

// New creates a new Reconciler.
func New(store CountStore, repo CountSource, cfg Config) *Reconciler {
	return &Reconciler{
		store:  store,
		repo:   repo,
		cfg:    cfg,
		quit:   make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reconciler has fully stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile runs one pass: the top-N hot users get their cached count
// overwritten from the database, then the access scores start over.
func (r *Reconciler) Reconcile(ctx context.Context) int {
	l := pkglog.L()

	topN := int64(r.cfg.TopN)
	if topN <= 0 {
		topN = 100
	}

	userIDs, err := r.store.GetTopHotKeys(ctx, topN)
	if err != nil {
		l.Error().Err(err).Msg("reconciler: failed to get top hot keys")
		return 0
	}
	if len(userIDs) == 0 {
		l.Debug().Msg("reconciler: no hot keys to reconcile")
		return 0
	}

	synced := 0
	for _, userID := range userIDs {
		count, err := r.repo.GetFollowersCount(ctx, userID)
		if err != nil {
			l.Error().Err(err).Uint(pkglog.FieldUserID, userID).Msg("reconciler: failed to get followers count from db")
			continue
		}
		if err := r.store.SetFollowersCount(ctx, userID, count); err != nil {
			l.Error().Err(err).Uint(pkglog.FieldUserID, userID).Msg("reconciler: failed to set cached followers count")
			continue
		}
		synced++
	}

	if err := r.store.ResetHotKeyScores(ctx); err != nil {
		l.Error().Err(err).Msg("reconciler: failed to reset hot key scores")
	}

	l.Info().Int("count", synced).Msg("reconciler: hot-key reconciliation complete")
	return synced
}
