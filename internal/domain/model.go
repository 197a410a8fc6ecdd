package domain

import "time"

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID                  uint      `gorm:"primaryKey"`
	Username            string    `gorm:"size:64;uniqueIndex;not null"`
	Email               string    `gorm:"size:120;uniqueIndex;not null"`
	PasswordHash        string    `gorm:"size:128;not null"`
	AboutMe             string    `gorm:"size:140"`
	LastSeen            time.Time `gorm:"not null"`
	LastMessageReadTime *time.Time
	Token               *string `gorm:"size:64;uniqueIndex"`
	TokenExpiration     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (UserModel) TableName() string { return "users" }

// PostModel is the GORM model for the posts table.
type PostModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	Body      string    `gorm:"size:140;not null"`
	Language  *string   `gorm:"size:5"`
	Timestamp time.Time `gorm:"not null;index"`
}

func (PostModel) TableName() string { return "posts" }

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID          uint      `gorm:"primaryKey"`
	SenderID    uint      `gorm:"not null;index"`
	RecipientID uint      `gorm:"not null;index"`
	Body        string    `gorm:"size:140;not null"`
	Timestamp   time.Time `gorm:"not null;index"`
}

func (MessageModel) TableName() string { return "messages" }

// FollowModel is one directed edge of the follow graph. The composite
// primary key enforces at most one edge per ordered pair and serves
// lookups by follower; followed_id carries its own index.
type FollowModel struct {
	FollowerID uint `gorm:"primaryKey;autoIncrement:false"`
	FollowedID uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time
}

func (FollowModel) TableName() string { return "followers" }

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{&UserModel{}, &PostModel{}, &MessageModel{}, &FollowModel{}}
}

// ToDomain converts a UserModel to a User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:                  m.ID,
		Username:            m.Username,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		AboutMe:             m.AboutMe,
		LastSeen:            m.LastSeen,
		LastMessageReadTime: m.LastMessageReadTime,
		Token:               m.Token,
		TokenExpiration:     m.TokenExpiration,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// UserToModel converts a User to a UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		AboutMe:             u.AboutMe,
		LastSeen:            u.LastSeen,
		LastMessageReadTime: u.LastMessageReadTime,
		Token:               u.Token,
		TokenExpiration:     u.TokenExpiration,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (m *PostModel) ToDomain() *Post {
	return &Post{
		ID:        m.ID,
		UserID:    m.UserID,
		Body:      m.Body,
		Language:  m.Language,
		Timestamp: m.Timestamp,
	}
}

func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:        p.ID,
		UserID:    p.UserID,
		Body:      p.Body,
		Language:  p.Language,
		Timestamp: p.Timestamp,
	}
}

func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		Timestamp:   m.Timestamp,
	}
}

func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Body:        msg.Body,
		Timestamp:   msg.Timestamp,
	}
}
