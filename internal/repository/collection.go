package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/weiawesome/microblog/pkg/database"
)

// gormCollection is a filtered, ordered query over model M whose rows
// are converted to T. Ordering is applied to Slice only, so Count stays
// a plain aggregate.
type gormCollection[M any, T any] struct {
	db      *gorm.DB
	scope   func(*gorm.DB) *gorm.DB
	order   []string
	convert func(*M) T
}

func newCollection[M any, T any](db *gorm.DB, scope func(*gorm.DB) *gorm.DB, convert func(*M) T, order ...string) *gormCollection[M, T] {
	if scope == nil {
		scope = func(q *gorm.DB) *gorm.DB { return q }
	}
	return &gormCollection[M, T]{db: db, scope: scope, order: order, convert: convert}
}

func (c *gormCollection[M, T]) base(ctx context.Context) *gorm.DB {
	return c.scope(database.Conn(ctx, c.db).Model(new(M)))
}

func (c *gormCollection[M, T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.base(ctx).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (c *gormCollection[M, T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	q := c.base(ctx)
	for _, o := range c.order {
		q = q.Order(o)
	}

	var rows []M
	if err := q.Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for i := range rows {
		out = append(out, c.convert(&rows[i]))
	}
	return out, nil
}
