package repository

import (
	"errors"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/lib/pq"
)

// ErrSlugTaken signals a slug unique-constraint collision during activation.
// Callers regenerate the slug and retry the whole transaction.
var ErrSlugTaken = errors.New("invitation slug already taken")

func toStringSlice(roles []models.UserRole) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}

func toUserRoleSlice(values pq.StringArray) []models.UserRole {
	out := make([]models.UserRole, len(values))
	for i, v := range values {
		out[i] = models.UserRole(v)
	}
	return out
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally narrowed to one named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
