package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/middleware"
	"github.com/weiawesome/microblog/pkg/response"
)

// CreatePost handles POST /api/post.
func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CreatePostRequest
	if !bindJSON(c, &req, "must include body field") {
		return
	}

	post, err := h.posts.Create(ctx, currentUser(c), &req, middleware.GetLocale(c))
	if err != nil {
		handleError(c, err, "create post")
		return
	}

	view := h.presenter(c).post(post)
	response.Created(c, view.Links.Self, view)
}

// UserPosts handles GET /api/:id/posts.
func (h *Handler) UserPosts(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c)
	if !ok {
		return
	}

	page, err := h.posts.ByAuthor(ctx, id, pageRequest(c, "/api/{id}/posts", "id", c.Param("id")))
	if err != nil {
		handleError(c, err, "user posts")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).post))
}

// Explore handles GET /api/explore.
func (h *Handler) Explore(c *gin.Context) {
	ctx := c.Request.Context()

	page, err := h.posts.Explore(ctx, pageRequest(c, "/api/explore"))
	if err != nil {
		handleError(c, err, "explore")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).post))
}

// Search handles GET /api/search?q=.
func (h *Handler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	q := c.Query("q")
	page, err := h.posts.Search(ctx, q, pageRequest(c, "/api/search", "q", q))
	if err != nil {
		handleError(c, err, "search")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).post))
}

// UploadAvatar handles POST /api/upload with a multipart "photo" file.
func (h *Handler) UploadAvatar(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "photo is too large")
			return
		}
		l.Warn().Err(err).Msg("missing photo upload")
		response.BadRequest(c, "must include a photo file")
		return
	}

	f, err := fh.Open()
	if err != nil {
		handleError(c, err, "open upload")
		return
	}
	defer f.Close()

	avatar, err := h.users.UploadAvatar(ctx, currentUser(c), f)
	if err != nil {
		handleError(c, err, "upload avatar")
		return
	}

	response.Success(c, avatar)
}
