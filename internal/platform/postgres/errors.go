package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// foreignKeyViolation is the SQLSTATE for foreign_key_violation.
const foreignKeyViolation = "23503"

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key
// failure, e.g. deleting a row that is still referenced.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == foreignKeyViolation
	}
	return false
}
