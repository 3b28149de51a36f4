package store

import (
	"database/sql"
	"fmt"

	"github.com/nampox/reveal/internal/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanVisitor scans a visitor row (id, visited, created_at, completed_at).
func scanVisitor(row rowScanner) (models.Visitor, error) {
	var v models.Visitor
	var completedAt sql.NullTime
	if err := row.Scan(&v.ID, &v.Visited, &v.CreatedAt, &completedAt); err != nil {
		return v, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		v.CompletedAt = &t
	}
	return v, nil
}

// scanUsers drains a users result set.
func scanUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()
	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}
