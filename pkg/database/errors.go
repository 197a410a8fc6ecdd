package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a unique or primary key
// conflict. Drivers that do not translate errors are matched by message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry")
}

// ViolatedColumn returns the first of columns mentioned in a unique
// violation message, or "" when none is.
func ViolatedColumn(err error, columns ...string) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, col := range columns {
		if strings.Contains(msg, strings.ToLower(col)) {
			return col
		}
	}
	return ""
}
