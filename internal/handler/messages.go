package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/pkg/response"
)

// UnreadView is the body of GET /api/messages/unread.
type UnreadView struct {
	Count int64 `json:"count"`
}

// SendMessage handles POST /api/:id/message.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c)
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if !bindJSON(c, &req, "must include body field") {
		return
	}

	msg, err := h.messages.Send(ctx, currentUser(c), id, req.Body)
	if err != nil {
		handleError(c, err, "send message")
		return
	}

	response.Created(c, "", h.presenter(c).message(msg))
}

// Inbox handles GET /api/messages. Reading the inbox marks it as read.
func (h *Handler) Inbox(c *gin.Context) {
	ctx := c.Request.Context()

	page, err := h.messages.Inbox(ctx, currentUser(c), pageRequest(c, "/api/messages"))
	if err != nil {
		handleError(c, err, "inbox")
		return
	}

	response.Success(c, pagination.Map(page, h.presenter(c).message))
}

// UnreadCount handles GET /api/messages/unread.
func (h *Handler) UnreadCount(c *gin.Context) {
	ctx := c.Request.Context()

	n, err := h.messages.UnreadCount(ctx, currentUser(c))
	if err != nil {
		handleError(c, err, "unread count")
		return
	}

	response.Success(c, UnreadView{Count: n})
}
