package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already registered")
)

// User represents a registered participant who may create events.
type User struct {
	TelegramID int64     `json:"telegram_id"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department"`
	Phone      string    `json:"phone"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, telegramID int64) (*User, error)
}

// UserService defines registration and lookup operations.
type UserService interface {
	Register(ctx context.Context, input RegisterUserInput) (*User, error)
	Get(ctx context.Context, telegramID int64) (*User, error)
	IsRegistered(ctx context.Context, telegramID int64) (bool, error)
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
}

// RegisterUserInput carries a registration submission.
type RegisterUserInput struct {
	TelegramID int64
	FullName   string
	Department string
	Phone      string
}
