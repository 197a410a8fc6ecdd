package domain

import "time"

// MaxBodyLength bounds post and message bodies.
const MaxBodyLength = 140

// Post is an append-only status update.
type Post struct {
	ID        uint
	UserID    uint
	Body      string
	Language  *string
	Timestamp time.Time
}

// CreatePostRequest is the body of POST /post.
type CreatePostRequest struct {
	Body     *string `json:"body"`
	Language string  `json:"language"`
}
