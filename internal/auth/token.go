// Package auth issues and verifies opaque bearer tokens stored on the
// user record.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/repository"
	"github.com/weiawesome/microblog/pkg/clock"
)

const (
	DefaultTTL           = time.Hour
	DefaultReuseWindow   = 60 * time.Second
	tokenBytes           = 32
	revokedExpiryBacklog = time.Second
)

// TokenFinder looks a user up by the token it holds.
type TokenFinder interface {
	GetByToken(ctx context.Context, token string) (*domain.User, error)
}

// Config tunes token lifetimes. Zero values take the defaults.
type Config struct {
	TTL         time.Duration
	ReuseWindow time.Duration
}

// TokenAuthenticator manages the single active token of each user.
type TokenAuthenticator struct {
	users  TokenFinder
	clock  clock.Clock
	ttl    time.Duration
	reuse  time.Duration
	random func([]byte) (int, error)
}

// NewTokenAuthenticator creates a TokenAuthenticator.
func NewTokenAuthenticator(users TokenFinder, clk clock.Clock, cfg Config) *TokenAuthenticator {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ReuseWindow <= 0 {
		cfg.ReuseWindow = DefaultReuseWindow
	}
	return &TokenAuthenticator{
		users:  users,
		clock:  clk,
		ttl:    cfg.TTL,
		reuse:  cfg.ReuseWindow,
		random: rand.Read,
	}
}

// Issue returns the user's current token while it has more than the
// reuse window left, and otherwise rotates it. The user is updated in
// place; persisting it is up to the caller.
func (a *TokenAuthenticator) Issue(user *domain.User) (string, error) {
	now := a.clock.Now()
	if user.Token != nil && *user.Token != "" && user.TokenExpiration != nil &&
		user.TokenExpiration.After(now.Add(a.reuse)) {
		return *user.Token, nil
	}

	buf := make([]byte, tokenBytes)
	if _, err := a.random(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	exp := now.Add(a.ttl)
	user.Token = &token
	user.TokenExpiration = &exp
	return token, nil
}

// Revoke expires the user's token immediately.
func (a *TokenAuthenticator) Revoke(user *domain.User) {
	exp := a.clock.Now().Add(-revokedExpiryBacklog)
	user.TokenExpiration = &exp
}

// Verify resolves token to its user. An unknown, empty or expired token
// is reported as ok == false with a nil error.
func (a *TokenAuthenticator) Verify(ctx context.Context, token string) (*domain.User, bool, error) {
	if token == "" {
		return nil, false, nil
	}

	user, err := a.users.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if user.TokenExpiration == nil || !user.TokenExpiration.After(a.clock.Now()) {
		return nil, false, nil
	}
	return user, true, nil
}
