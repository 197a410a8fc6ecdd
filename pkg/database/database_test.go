package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type item struct {
	ID   uint
	Name string `gorm:"uniqueIndex"`
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := New(&Config{Driver: "sqlite", FilePath: ":memory:", MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db, &item{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func names(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var out []string
	require.NoError(t, db.Model(&item{}).Order("id").Pluck("name", &out).Error)
	return out
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(&Config{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		err := m.WithTx(ctx, func(ctx context.Context) error {
			assert.True(t, InTx(ctx))
			return Conn(ctx, db).Create(&item{Name: "a"}).Error
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, names(t, db))
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := m.WithTx(ctx, func(ctx context.Context) error {
			require.NoError(t, Conn(ctx, db).Create(&item{Name: "b"}).Error)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"a"}, names(t, db))
	})

	t.Run("nested call joins", func(t *testing.T) {
		boom := errors.New("boom")
		err := m.WithTx(ctx, func(ctx context.Context) error {
			inner := m.WithTx(ctx, func(ctx context.Context) error {
				return Conn(ctx, db).Create(&item{Name: "c"}).Error
			})
			require.NoError(t, inner)

			var n int64
			require.NoError(t, Conn(ctx, db).Model(&item{}).Count(&n).Error)
			assert.EqualValues(t, 2, n)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"a"}, names(t, db))
	})

	assert.False(t, InTx(ctx))
}

func TestUniqueViolation(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Create(&item{Name: "dup"}).Error)
	err := db.Create(&item{Name: "dup"}).Error
	require.Error(t, err)

	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))

	assert.Equal(t, "name", ViolatedColumn(errors.New("UNIQUE constraint failed: items.name"), "email", "name"))
	assert.Empty(t, ViolatedColumn(errors.New("duplicate key"), "email"))
	assert.Empty(t, ViolatedColumn(nil, "email"))
}
