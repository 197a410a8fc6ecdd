package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/pkg/database"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create inserts a message and fills in its id.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	model := domain.MessageToModel(msg)
	if err := database.Conn(ctx, r.db).Create(model).Error; err != nil {
		return err
	}
	msg.ID = model.ID
	return nil
}

// ReceivedBy returns the inbox of recipientID, newest first.
func (r *GormMessageRepository) ReceivedBy(recipientID uint) pagination.Collection[*domain.Message] {
	return newCollection(r.db, func(q *gorm.DB) *gorm.DB {
		return q.Where("recipient_id = ?", recipientID)
	}, (*domain.MessageModel).ToDomain, newestFirst...)
}

// CountReceivedSince counts messages to recipientID strictly after since.
// A nil since counts the whole inbox.
func (r *GormMessageRepository) CountReceivedSince(ctx context.Context, recipientID uint, since *time.Time) (int64, error) {
	q := database.Conn(ctx, r.db).Model(&domain.MessageModel{}).Where("recipient_id = ?", recipientID)
	if since != nil {
		q = q.Where("timestamp > ?", since.UTC())
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

var _ MessageRepository = (*GormMessageRepository)(nil)
