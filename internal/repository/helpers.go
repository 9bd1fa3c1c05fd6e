package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation, optionally scoped to a named constraint.
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

// inPlaceholders renders $offset+1..$offset+n placeholders for IN clauses.
func inPlaceholders(n, offset int) string {
	placeholders := make([]string, n)
	for i := 0; i < n; i++ {
		placeholders[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return strings.Join(placeholders, ",")
}
