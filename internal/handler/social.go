package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/pkg/middleware"
	"github.com/weiawesome/microblog/pkg/response"
)

// Follow handles POST /api/follow/:id and answers with the actor's
// followed list.
func (h *Handler) Follow(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c)
	if !ok {
		return
	}

	actor := currentUser(c)
	page, err := h.graph.Follow(ctx, actor, id, h.followedRequest(c))
	if err != nil {
		handleError(c, err, "follow")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).user))
}

// Unfollow handles POST /api/unfollow/:id.
func (h *Handler) Unfollow(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c)
	if !ok {
		return
	}

	actor := currentUser(c)
	page, err := h.graph.Unfollow(ctx, actor, id, h.followedRequest(c))
	if err != nil {
		handleError(c, err, "unfollow")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).user))
}

// Feed handles GET /api/feed.
func (h *Handler) Feed(c *gin.Context) {
	ctx := c.Request.Context()

	page, err := h.graph.FollowedPosts(ctx, currentUser(c), pageRequest(c, "/api/feed"))
	if err != nil {
		handleError(c, err, "feed")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).post))
}

// followedRequest pages the actor's followed list, which is what follow
// and unfollow respond with.
func (h *Handler) followedRequest(c *gin.Context) pagination.Request {
	return pageRequest(c, "/api/users/{id}/followed", "id", strconv.FormatUint(uint64(middleware.GetUserID(c)), 10))
}
