package store

import (
	"context"
	"fmt"
	"time"
)

// Roles.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User is an account that can log in.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

// CreateUser inserts an active user. A duplicate email returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, role string) (User, error) {
	u := User{Email: email, PasswordHash: passwordHash, Role: role, Active: true, CreatedAt: s.now().UTC()}
	id, err := s.insertID(ctx, s.db, `
		INSERT INTO users (email, password_hash, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Role, u.Active, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("user %s: %w", email, ErrConflict)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	return u, nil
}

// UserByEmail returns the user with the given email, active or not.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, password_hash, role, is_active, created_at
		FROM users WHERE email = ?`), email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		return User{}, notFound(err, "user", email)
	}
	return u, nil
}
