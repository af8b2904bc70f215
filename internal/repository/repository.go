// Package repository is the only path by which the service touches persisted
// resources. Every operation resolves the caller's scope first, applies the
// resulting predicate before any read, and validates ownership before any
// write. Rows excluded by scope are reported as not found, never as
// forbidden, so a caller cannot probe another tenant's data for existence.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a resource is absent or invisible to the
// caller. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// ValidationError reports a payload that fails the resource schema. Field
// detail is safe to return to the caller since it carries no cross-tenant
// information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Repository wraps scoped CRUD over the data store
type Repository struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a repository bound to a database handle
func New(db *gorm.DB, log *zap.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// searchFilter narrows a query with a case-insensitive substring match over
// the given columns. An empty term leaves the query untouched.
func searchFilter(db *gorm.DB, term string, columns ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" {
		return db
	}
	pattern := "%" + strings.ToLower(term) + "%"
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = pattern
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

// notFoundOr converts gorm's record-not-found into the repository sentinel
// and passes any other error through
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
