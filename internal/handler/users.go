package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/service"
	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/response"
)

const missingUserFields = "must include username, email and password fields"

// IssueToken handles POST /api/tokens.
func (h *Handler) IssueToken(c *gin.Context) {
	ctx := c.Request.Context()

	tok, err := h.users.IssueToken(ctx, currentUser(c))
	if err != nil {
		handleError(c, err, "issue token")
		return
	}

	response.Success(c, tok)
}

// RevokeToken handles DELETE /api/tokens and GET /api/logout.
func (h *Handler) RevokeToken(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.users.RevokeToken(ctx, currentUser(c)); err != nil {
		handleError(c, err, "revoke token")
		return
	}

	response.NoContent(c)
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CreateUserRequest
	if !bindJSON(c, &req, missingUserFields) {
		return
	}

	profile, err := h.users.Register(ctx, &req)
	if err != nil {
		handleError(c, err, "register user")
		return
	}

	p := h.presenter(c)
	p.viewerID = profile.User.ID
	response.Created(c, userURL(profile.User.ID), p.user(profile))
}

// GetUser handles GET /api/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c)
	if !ok {
		return
	}

	profile, err := h.users.GetUser(ctx, id)
	if err != nil {
		handleError(c, err, "get user")
		return
	}

	response.Success(c, h.presenter(c).user(profile))
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	page, err := h.users.ListUsers(ctx, pageRequest(c, "/api/users"))
	if err != nil {
		handleError(c, err, "list users")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).user))
}

// UpdateUser handles PUT /api/users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	id, ok := pathID(c)
	if !ok {
		return
	}

	// Another user's id is answered 404 or 403 before the body is read.
	actor := currentUser(c)
	var req domain.UpdateUserRequest
	if actor.ID == id && !bindJSON(c, &req, missingUserFields) {
		return
	}

	profile, err := h.users.UpdateUser(ctx, actor, id, &req)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			l.Warn().Uint("target_id", id).Msg("attempt to update another user")
		}
		handleError(c, err, "update user")
		return
	}

	response.Success(c, h.presenter(c).user(profile))
}

// Followers handles GET /api/users/:id/followers.
func (h *Handler) Followers(c *gin.Context) {
	h.listConnections(c, "/api/users/{id}/followers", h.graph.Followers)
}

// Followed handles GET /api/users/:id/followed.
func (h *Handler) Followed(c *gin.Context) {
	h.listConnections(c, "/api/users/{id}/followed", h.graph.Followed)
}

type connectionLister func(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[*domain.UserProfile], error)

func (h *Handler) listConnections(c *gin.Context, route string, list connectionLister) {
	ctx := c.Request.Context()

	id, ok := pathID(c)
	if !ok {
		return
	}

	page, err := list(ctx, id, pageRequest(c, route, "id", c.Param("id")))
	if err != nil {
		handleError(c, err, "list connections")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).user))
}
