package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an account that owns feeds and engagement state.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// CreateUser inserts a user, generating an id if none is set.
func (db *DB) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)",
		u.ID, u.Email, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns nil when no user matches.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	var createdAt int64
	err := db.QueryRowContext(ctx,
		"SELECT id, email, created_at FROM users WHERE email = ?", email,
	).Scan(&u.ID, &u.Email, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdAt)
	return &u, nil
}

// ListUsersWithFeeds returns the ids of users that own at least one feed.
// These are the users a global cleanup run visits.
func (db *DB) ListUsersWithFeeds(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT DISTINCT user_id FROM feeds ORDER BY user_id",
	)
	if err != nil {
		return nil, fmt.Errorf("list users with feeds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
