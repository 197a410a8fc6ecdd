package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/service"
	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/middleware"
	"github.com/weiawesome/microblog/pkg/response"
)

// DefaultMaxUpload bounds avatar uploads.
const DefaultMaxUpload = 8 << 20

// Handler serves the REST API.
type Handler struct {
	users     service.UserService
	graph     service.SocialGraphService
	messages  service.MessagingService
	posts     service.PostService
	languages []string
	maxUpload int64
}

// NewHandler creates a new HTTP handler. languages are the locales
// offered for Accept-Language negotiation.
func NewHandler(
	users service.UserService,
	graph service.SocialGraphService,
	messages service.MessagingService,
	posts service.PostService,
	languages []string,
	maxUpload int64,
) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		users:     users,
		graph:     graph,
		messages:  messages,
		posts:     posts,
		languages: languages,
		maxUpload: maxUpload,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	requireToken := middleware.RequireToken[*domain.User](h.users)
	requireBasic := middleware.RequireBasic[*domain.User](h.users)

	api := r.Group("/api", middleware.Locale(h.languages...))
	{
		api.POST("/tokens", requireBasic, h.IssueToken)
		api.DELETE("/tokens", requireToken, h.RevokeToken)
		api.GET("/logout", requireToken, h.RevokeToken)

		api.POST("/users", h.CreateUser)
		users := api.Group("/users", requireToken)
		{
			users.GET("", h.ListUsers)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id", h.UpdateUser)
			users.GET("/:id/followers", h.Followers)
			users.GET("/:id/followed", h.Followed)
		}

		auth := api.Group("", requireToken)
		{
			auth.POST("/follow/:id", h.Follow)
			auth.POST("/unfollow/:id", h.Unfollow)

			auth.GET("/messages", h.Inbox)
			auth.GET("/messages/unread", h.UnreadCount)
			auth.POST("/:id/message", h.SendMessage)

			auth.GET("/:id/posts", h.UserPosts)
			auth.POST("/post", h.CreatePost)
			auth.GET("/explore", h.Explore)
			auth.GET("/feed", h.Feed)
			auth.GET("/search", h.Search)

			auth.POST("/upload", h.UploadAvatar)
		}
	}
}

func (h *Handler) presenter(c *gin.Context) presenter {
	return presenter{ctx: c.Request.Context(), avatars: h.users, viewerID: middleware.GetUserID(c)}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := middleware.CurrentUser[*domain.User](c)
	return u
}

// pathID parses the :id parameter. A non-numeric id answers 404, the
// same as an id that matches nothing.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(c, "resource not found")
		return 0, false
	}
	return uint(id), true
}

// pageRequest reads page and per_page for a listing served at path.
func pageRequest(c *gin.Context, path string, args ...string) pagination.Request {
	page, perPage := pagination.ParseParams(c.Query("page"), c.Query("per_page"))
	return pagination.Request{Page: page, PerPage: perPage, Route: pagination.NewRoute(path, args...)}
}

// handleError maps service errors to responses. Unexpected errors are
// logged and answered with 500 without detail.
func handleError(c *gin.Context, err error, action string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, ve.Message)
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, "you can only change your own user")
	case errors.Is(err, service.ErrSelfFollow):
		response.BadRequest(c, "you cannot follow yourself")
	case errors.Is(err, service.ErrSelfMessage):
		response.BadRequest(c, "you cannot send messages to yourself")
	default:
		l := pkglog.Ctx(c.Request.Context())
		l.Error().Err(err).Str("action", action).Msg("request failed")
		response.InternalError(c, "internal server error")
	}
}

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
