package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, created_at) VALUES ($1,$2,$3,NOW())
`, id, email, passwordHash)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx, `
SELECT id, email, password_hash, created_at FROM users WHERE email=$1
`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
