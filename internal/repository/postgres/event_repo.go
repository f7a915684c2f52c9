package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"campusevents/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventWithCreatorColumns = `
	e.id, e.title, e.event_date, e.event_time, e.place, e.comment,
	e.created_by, e.cancelled, e.created_at,
	u.full_name, u.department, u.phone`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, event_date, event_time, place, comment, created_by, cancelled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Date, e.Time, e.Place, e.Comment, e.CreatedBy, e.CreatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.EventWithCreator, error) {
	query := `
		SELECT` + eventWithCreatorColumns + `
		FROM events e
		JOIN users u ON e.created_by = u.telegram_id
		WHERE e.id = $1
	`
	row := r.DB.QueryRowContext(ctx, query, id)
	e, err := scanEventWithCreator(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context) ([]*domain.EventWithCreator, error) {
	query := `
		SELECT` + eventWithCreatorColumns + `
		FROM events e
		JOIN users u ON e.created_by = u.telegram_id
		WHERE NOT e.cancelled
		ORDER BY e.event_date, e.event_time, e.id
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *eventRepository) ListByCreator(ctx context.Context, userID int64) ([]*domain.EventWithCreator, error) {
	query := `
		SELECT` + eventWithCreatorColumns + `
		FROM events e
		JOIN users u ON e.created_by = u.telegram_id
		WHERE e.created_by = $1 AND NOT e.cancelled
		ORDER BY e.event_date, e.event_time, e.id
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *eventRepository) Update(ctx context.Context, id int64, patch domain.EventPatch) (*domain.Event, error) {
	setClauses := []string{}
	args := []interface{}{}
	n := 1
	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Date != nil {
		add("event_date", *patch.Date)
	}
	if patch.Time != nil {
		add("event_time", *patch.Time)
	}
	if patch.Place != nil {
		add("place", *patch.Place)
	}
	if patch.Comment != nil {
		add("comment", *patch.Comment)
	}
	if n == 1 {
		ec, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ec.Event, nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d AND NOT cancelled
		RETURNING id, title, event_date, event_time, place, comment, created_by, cancelled, created_at
	`, strings.Join(setClauses, ", "), n)

	e := &domain.Event{}
	var comment sql.NullString
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&e.ID, &e.Title, &e.Date, &e.Time, &e.Place, &comment,
		&e.CreatedBy, &e.Cancelled, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if comment.Valid {
		e.Comment = comment.String
	}
	return e, nil
}

func (r *eventRepository) Cancel(ctx context.Context, id int64) error {
	query := `UPDATE events SET cancelled = TRUE WHERE id = $1 AND NOT cancelled`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE NOT cancelled`).Scan(&count)
	return count, err
}

func (r *eventRepository) CountByDepartment(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT u.department, COUNT(e.id)
		FROM events e
		JOIN users u ON e.created_by = u.telegram_id
		WHERE NOT e.cancelled
		GROUP BY u.department
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var dept string
		var n int
		if err := rows.Scan(&dept, &n); err != nil {
			return nil, err
		}
		counts[dept] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventWithCreator(row rowScanner) (*domain.EventWithCreator, error) {
	e := &domain.EventWithCreator{}
	var comment sql.NullString
	err := row.Scan(
		&e.ID, &e.Title, &e.Date, &e.Time, &e.Place, &comment,
		&e.CreatedBy, &e.Cancelled, &e.CreatedAt,
		&e.CreatorName, &e.CreatorDepartment, &e.CreatorPhone,
	)
	if err != nil {
		return nil, err
	}
	if comment.Valid {
		e.Comment = comment.String
	}
	return e, nil
}

func collectEvents(rows *sql.Rows) ([]*domain.EventWithCreator, error) {
	events := make([]*domain.EventWithCreator, 0)
	for rows.Next() {
		e, err := scanEventWithCreator(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
