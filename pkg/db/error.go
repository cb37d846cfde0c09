package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// duplicateMarkers are the driver messages for a unique violation, used when
// the connection was opened without TranslateError.
var duplicateMarkers = map[string]string{
	"postgres": "duplicate key value violates unique constraint", // 23505
	"mysql":    "Error 1062",
	"sqlite":   "UNIQUE constraint failed",
}

// IsDuplicateKeyErr reports whether err is a unique constraint violation on
// any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range duplicateMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether a First/Take query matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
