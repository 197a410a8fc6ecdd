package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/response"
)

const (
	CurrentUserKey = "current_user"
	UserIDKey      = pkglog.FieldUserID
	UsernameKey    = pkglog.FieldUsername
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// Identity is implemented by the authenticated principal so the
// middleware can tag logs without knowing the concrete type.
type Identity interface {
	Identity() (id uint, username string)
}

// TokenVerifier resolves a bearer token to its owner. ok is false when
// the token is unknown or expired; err is reserved for backend failures.
type TokenVerifier[U Identity] interface {
	Verify(ctx context.Context, token string) (user U, ok bool, err error)
}

// CredentialChecker resolves a username/password pair to its owner.
type CredentialChecker[U Identity] interface {
	CheckCredentials(ctx context.Context, username, password string) (user U, ok bool, err error)
}

// RequireToken returns a Gin middleware that authenticates the request
// with an "Authorization: Bearer <token>" header.
func RequireToken[U Identity](v TokenVerifier[U]) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.Header("WWW-Authenticate", `Bearer realm="Authentication Required"`)
			response.Abort(c, http.StatusUnauthorized, "missing or malformed bearer token")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		user, ok, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			l := pkglog.Ctx(c.Request.Context())
			l.Error().Err(err).Msg("token verification failed")
			response.Abort(c, http.StatusInternalServerError, "failed to verify token")
			return
		}
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="Authentication Required"`)
			response.Abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		setCurrentUser(c, user)
		c.Next()
	}
}

// RequireBasic returns a Gin middleware that authenticates the request
// with HTTP basic credentials.
func RequireBasic[U Identity](v CredentialChecker[U]) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, hasAuth := c.Request.BasicAuth()
		if !hasAuth {
			c.Header("WWW-Authenticate", `Basic realm="Authentication Required"`)
			response.Abort(c, http.StatusUnauthorized, "missing credentials")
			return
		}

		user, ok, err := v.CheckCredentials(c.Request.Context(), username, password)
		if err != nil {
			l := pkglog.Ctx(c.Request.Context())
			l.Error().Err(err).Msg("credential check failed")
			response.Abort(c, http.StatusInternalServerError, "failed to check credentials")
			return
		}
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="Authentication Required"`)
			response.Abort(c, http.StatusUnauthorized, "invalid credentials")
			return
		}

		setCurrentUser(c, user)
		c.Next()
	}
}

func setCurrentUser[U Identity](c *gin.Context, user U) {
	id, username := user.Identity()
	c.Set(CurrentUserKey, user)
	c.Set(UserIDKey, id)
	c.Set(UsernameKey, username)

	ctx := pkglog.With(c.Request.Context(), pkglog.FieldUsername, username)
	c.Request = c.Request.WithContext(ctx)
}

// CurrentUser returns the principal bound by RequireToken or RequireBasic.
func CurrentUser[U any](c *gin.Context) (U, bool) {
	var zero U
	v, exists := c.Get(CurrentUserKey)
	if !exists {
		return zero, false
	}
	u, ok := v.(U)
	return u, ok
}

// GetUserID extracts the authenticated user id from the Gin context.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(UserIDKey); exists {
		if v, ok := id.(uint); ok {
			return v
		}
	}
	return 0
}
