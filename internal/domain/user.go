package domain

import "time"

// User is an account. Token state lives on the user: exactly one token
// is active at a time and issuing a new one overwrites the old.
type User struct {
	ID                  uint
	Username            string
	Email               string
	PasswordHash        string
	AboutMe             string
	LastSeen            time.Time
	LastMessageReadTime *time.Time
	Token               *string
	TokenExpiration     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Identity returns the id and username used to tag request logs.
func (u *User) Identity() (uint, string) {
	return u.ID, u.Username
}

// UserStats holds the derived counters shown on a user.
type UserStats struct {
	PostCount     int64
	FollowerCount int64
	FollowedCount int64
}

// UserProfile is a user together with its counters.
type UserProfile struct {
	User  *User
	Stats UserStats
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,max=120"`
	Password string `json:"password" binding:"required"`
	AboutMe  string `json:"about_me" binding:"max=140"`
}

// UpdateUserRequest is the body of PUT /users/{id}. Absent fields are
// left unchanged.
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,max=64"`
	Email    *string `json:"email" binding:"omitempty,max=120"`
	AboutMe  *string `json:"about_me" binding:"omitempty,max=140"`
	Password *string `json:"password"`
}

// TokenResponse is returned when a token is issued.
type TokenResponse struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}
