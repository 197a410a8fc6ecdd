package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/weiawesome/microblog/internal/audit"
	"github.com/weiawesome/microblog/internal/auth"
	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/events"
	"github.com/weiawesome/microblog/internal/media"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/repository"
	"github.com/weiawesome/microblog/pkg/clock"
	"github.com/weiawesome/microblog/pkg/log"
)

const (
	maxUsernameLength = 64
	maxEmailLength    = 120
	maxAboutMeLength  = 140
)

// userServiceImpl implements UserService interface.
type userServiceImpl struct {
	tx         Transactor
	repo       repository.UserRepository
	tokens     *auth.TokenAuthenticator
	counter    *FollowerCounter
	avatars    *media.AvatarProcessor
	emitter    *events.Emitter
	clock      clock.Clock
	bcryptCost int
}

// NewUserService creates a new user service. bcryptCost of 0 uses
// bcrypt.DefaultCost.
func NewUserService(
	tx Transactor,
	repo repository.UserRepository,
	tokens *auth.TokenAuthenticator,
	counter *FollowerCounter,
	avatars *media.AvatarProcessor,
	emitter *events.Emitter,
	clk clock.Clock,
	bcryptCost int,
) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if emitter == nil {
		emitter = events.NewEmitter(nil)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &userServiceImpl{
		tx:         tx,
		repo:       repo,
		tokens:     tokens,
		counter:    counter,
		avatars:    avatars,
		emitter:    emitter,
		clock:      clk,
		bcryptCost: bcryptCost,
	}
}

// Register creates an account. The username and email must be unused.
func (s *userServiceImpl) Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserProfile, error) {
	l := log.Ctx(ctx)

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if err := validateRequired(map[string]string{"username": username, "email": email, "password": req.Password}); err != nil {
		return nil, err
	}
	if err := validateLength("username", username, maxUsernameLength); err != nil {
		return nil, err
	}
	if err := validateLength("email", email, maxEmailLength); err != nil {
		return nil, err
	}
	if err := validateLength("about_me", req.AboutMe, maxAboutMeLength); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		AboutMe:      req.AboutMe,
		LastSeen:     s.clock.Now(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUnique(ctx, user.Username, user.Email, 0); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return mapUniqueError(err)
		}
		return nil
	})
	if err != nil {
		if !IsValidation(err) {
			l.Error().Err(err).Msg("failed to create user")
		}
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")
	s.emitter.UserRegistered(ctx, user)

	return &domain.UserProfile{User: user}, nil
}

// CheckCredentials verifies a username and password.
func (s *userServiceImpl) CheckCredentials(ctx context.Context, username, password string) (*domain.User, bool, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, 0, username, "login failed: user not found")
			return nil, false, nil
		}
		return nil, false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, username, "login failed: wrong password")
		return nil, false, nil
	}
	return user, true, nil
}

// Verify resolves a bearer token to its user.
func (s *userServiceImpl) Verify(ctx context.Context, token string) (*domain.User, bool, error) {
	return s.tokens.Verify(ctx, token)
}

// IssueToken hands out the user's token, rotating it when it is close to
// expiry.
func (s *userServiceImpl) IssueToken(ctx context.Context, actor *domain.User) (*domain.TokenResponse, error) {
	l := log.Ctx(ctx)

	var resp domain.TokenResponse
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := mustExist(ctx, s.repo, actor.ID)
		if err != nil {
			return err
		}

		token, err := s.tokens.Issue(user)
		if err != nil {
			return err
		}
		user.LastSeen = s.clock.Now()
		if err := s.repo.SaveToken(ctx, user); err != nil {
			return fmt.Errorf("save token: %w", err)
		}

		resp = domain.TokenResponse{Token: token, Expiration: *user.TokenExpiration}
		return nil
	})
	if err != nil {
		l.Error().Err(err).Uint(log.FieldUserID, actor.ID).Msg("failed to issue token")
		return nil, err
	}

	audit.Log(ctx, audit.ActionTokenIssue, actor.ID, "token issued")
	return &resp, nil
}

// RevokeToken expires the user's token.
func (s *userServiceImpl) RevokeToken(ctx context.Context, actor *domain.User) error {
	l := log.Ctx(ctx)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := mustExist(ctx, s.repo, actor.ID)
		if err != nil {
			return err
		}
		s.tokens.Revoke(user)
		user.LastSeen = s.clock.Now()
		return s.repo.SaveToken(ctx, user)
	})
	if err != nil {
		l.Error().Err(err).Uint(log.FieldUserID, actor.ID).Msg("failed to revoke token")
		return err
	}

	audit.Log(ctx, audit.ActionTokenRevoke, actor.ID, "token revoked")
	return nil
}

// GetUser returns one user with its counters.
func (s *userServiceImpl) GetUser(ctx context.Context, id uint) (*domain.UserProfile, error) {
	profile, err := s.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.counter.Get(ctx, id)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldUserID, id).Msg("failed to get followers count")
		return nil, err
	}
	profile.Stats.FollowerCount = count
	return profile, nil
}

func (s *userServiceImpl) loadProfile(ctx context.Context, id uint) (*domain.UserProfile, error) {
	var profile *domain.UserProfile
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := mustExist(ctx, s.repo, id)
		if err != nil {
			return err
		}
		stats, err := s.repo.Stats(ctx, []uint{id})
		if err != nil {
			return err
		}
		profile = &domain.UserProfile{User: user, Stats: stats[id]}
		return nil
	})
	return profile, err
}

// ListUsers pages through every user by id.
func (s *userServiceImpl) ListUsers(ctx context.Context, req pagination.Request) (*pagination.Page[*domain.UserProfile], error) {
	var page *pagination.Page[*domain.UserProfile]
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		page, err = paginateProfiles(ctx, s.repo, s.repo.All(), req)
		return err
	})
	return page, err
}

// UpdateUser changes the profile of id. Only the user itself may do so;
// an unknown id is reported before the ownership check.
func (s *userServiceImpl) UpdateUser(ctx context.Context, actor *domain.User, id uint, req *domain.UpdateUserRequest) (*domain.UserProfile, error) {
	l := log.Ctx(ctx)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := mustExist(ctx, s.repo, id)
		if err != nil {
			return err
		}
		if actor.ID != id {
			return ErrForbidden
		}

		if req.Username != nil {
			username := strings.TrimSpace(*req.Username)
			if err := validateRequired(map[string]string{"username": username}); err != nil {
				return err
			}
			if err := validateLength("username", username, maxUsernameLength); err != nil {
				return err
			}
			user.Username = username
		}
		if req.Email != nil {
			email := strings.TrimSpace(*req.Email)
			if err := validateRequired(map[string]string{"email": email}); err != nil {
				return err
			}
			if err := validateLength("email", email, maxEmailLength); err != nil {
				return err
			}
			user.Email = email
		}
		if req.AboutMe != nil {
			if err := validateLength("about_me", *req.AboutMe, maxAboutMeLength); err != nil {
				return err
			}
			user.AboutMe = *req.AboutMe
		}
		if req.Password != nil {
			if err := validateRequired(map[string]string{"password": *req.Password}); err != nil {
				return err
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost)
			if err != nil {
				return err
			}
			user.PasswordHash = string(hashed)
		}

		if err := s.ensureUnique(ctx, user.Username, user.Email, user.ID); err != nil {
			return err
		}
		user.LastSeen = s.clock.Now()
		return mapUniqueError(s.repo.Update(ctx, user))
	})
	if err != nil {
		if !IsValidation(err) && !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrForbidden) {
			l.Error().Err(err).Uint(log.FieldUserID, id).Msg("failed to update user")
		}
		return nil, err
	}

	audit.Log(ctx, audit.ActionUpdateProfile, id, "profile updated")
	return s.GetUser(ctx, id)
}

// UploadAvatar stores resized copies of image as the actor's avatar.
func (s *userServiceImpl) UploadAvatar(ctx context.Context, actor *domain.User, image io.Reader) (*media.Avatar, error) {
	if s.avatars == nil {
		return nil, errors.New("avatar storage not configured")
	}

	avatar, err := s.avatars.Process(ctx, image, actor.Username)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return nil, NewValidationError("photo", "not a supported image")
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldUserID, actor.ID).Msg("failed to process avatar")
		return nil, err
	}

	audit.Log(ctx, audit.ActionAvatarUpload, actor.ID, "avatar uploaded")
	return avatar, nil
}

// AvatarURL returns where the avatar of username is served, or "" when
// avatars are unavailable.
func (s *userServiceImpl) AvatarURL(ctx context.Context, username string) string {
	if s.avatars == nil {
		return ""
	}
	url, err := s.avatars.URL(ctx, username)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUsername, username).Msg("failed to build avatar url")
		return ""
	}
	return url
}

func (s *userServiceImpl) ensureUnique(ctx context.Context, username, email string, exceptID uint) error {
	taken, err := s.repo.UsernameTaken(ctx, username, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return NewValidationError("username", "please use a different username")
	}

	taken, err = s.repo.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return NewValidationError("email", "please use a different email address")
	}
	return nil
}

// mapUniqueError turns a unique violation that slipped past the
// pre-checks into a ValidationError.
func mapUniqueError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUsernameExists):
		return NewValidationError("username", "please use a different username")
	case errors.Is(err, repository.ErrEmailExists):
		return NewValidationError("email", "please use a different email address")
	case errors.Is(err, repository.ErrUserConflict):
		return NewValidationError("", "username or email already in use")
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return err
	}
}

func validateRequired(fields map[string]string) error {
	for _, name := range []string{"username", "email", "password", "body"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			return NewValidationError(name, "must include "+name)
		}
	}
	return nil
}

func validateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

var _ UserService = (*userServiceImpl)(nil)
