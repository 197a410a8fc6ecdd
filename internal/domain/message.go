package domain

import "time"

// Message is a direct message between two users.
type Message struct {
	ID          uint
	SenderID    uint
	RecipientID uint
	Body        string
	Timestamp   time.Time
}

// SendMessageRequest is the body of POST /{id}/message. Body is a
// pointer so a missing field can be told apart from an empty one.
type SendMessageRequest struct {
	Body *string `json:"body"`
}
