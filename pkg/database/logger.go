package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pkglog "github.com/weiawesome/microblog/pkg/log"
)

// zerologGorm routes GORM's logging through the request logger
// carried in the statement context.
type zerologGorm struct {
	level         logger.LogLevel
	slowThreshold time.Duration
}

// NewLogger returns a GORM logger backed by pkg/log.
func NewLogger(level string, slowThreshold time.Duration) logger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return &zerologGorm{level: parseGormLevel(level), slowThreshold: slowThreshold}
}

func parseGormLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (z *zerologGorm) LogMode(level logger.LogLevel) logger.Interface {
	cp := *z
	cp.level = level
	return &cp
}

func (z *zerologGorm) Info(ctx context.Context, msg string, args ...interface{}) {
	if z.level >= logger.Info {
		l := pkglog.Ctx(ctx)
		l.Info().Msgf(msg, args...)
	}
}

func (z *zerologGorm) Warn(ctx context.Context, msg string, args ...interface{}) {
	if z.level >= logger.Warn {
		l := pkglog.Ctx(ctx)
		l.Warn().Msgf(msg, args...)
	}
}

func (z *zerologGorm) Error(ctx context.Context, msg string, args ...interface{}) {
	if z.level >= logger.Error {
		l := pkglog.Ctx(ctx)
		l.Error().Msgf(msg, args...)
	}
}

func (z *zerologGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	l := pkglog.Ctx(ctx)

	switch {
	case err != nil && z.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.Error().Err(err).
			Str(pkglog.FieldSQL, sql).
			Int64(pkglog.FieldRowsAffected, rows).
			Dur("elapsed", elapsed).
			Msg("query failed")
	case elapsed > z.slowThreshold && z.level >= logger.Warn:
		sql, rows := fc()
		l.Warn().
			Str(pkglog.FieldSQL, sql).
			Int64(pkglog.FieldRowsAffected, rows).
			Dur("elapsed", elapsed).
			Msg("slow query")
	case z.level >= logger.Info:
		sql, rows := fc()
		l.Debug().
			Str(pkglog.FieldSQL, sql).
			Int64(pkglog.FieldRowsAffected, rows).
			Dur("elapsed", elapsed).
			Msg("query")
	}
}
