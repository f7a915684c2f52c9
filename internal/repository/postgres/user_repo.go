package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"campusevents/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{
		DB: db,
	}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (telegram_id, full_name, department, phone, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.DB.ExecContext(ctx, query,
		u.TelegramID, u.FullName, u.Department, u.Phone, u.IsAdmin, u.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `
		SELECT telegram_id, full_name, department, phone, is_admin, created_at
		FROM users
		WHERE telegram_id = $1
	`
	u := &domain.User{}
	err := r.DB.QueryRowContext(ctx, query, telegramID).Scan(
		&u.TelegramID, &u.FullName, &u.Department, &u.Phone, &u.IsAdmin, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
