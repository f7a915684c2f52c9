package postgres

import (
	"context"
	"database/sql"
	"time"

	"campusevents/internal/domain"
)

type receiptRepository struct {
	DB *sql.DB
}

func NewReceiptRepository(db *sql.DB) domain.ReceiptRepository {
	return &receiptRepository{
		DB: db,
	}
}

func (r *receiptRepository) Kinds(ctx context.Context, eventID int64) (map[domain.ReminderKind]struct{}, error) {
	query := `SELECT kind FROM reminder_receipts WHERE event_id = $1`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	kinds := make(map[domain.ReminderKind]struct{})
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, err
		}
		kinds[domain.ReminderKind(kind)] = struct{}{}
	}
	return kinds, rows.Err()
}

// Write is idempotent: the (event_id, kind) primary key plus DO NOTHING means
// a replayed write after the sent-but-unrecorded edge case never errors and
// never produces a second row.
func (r *receiptRepository) Write(ctx context.Context, eventID int64, kind domain.ReminderKind, sentAt time.Time) error {
	query := `
		INSERT INTO reminder_receipts (event_id, kind, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, kind) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, query, eventID, string(kind), sentAt)
	return err
}

func (r *receiptRepository) ListByEvent(ctx context.Context, eventID int64) ([]*domain.ReminderReceipt, error) {
	query := `
		SELECT event_id, kind, sent_at
		FROM reminder_receipts
		WHERE event_id = $1
		ORDER BY sent_at
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	receipts := make([]*domain.ReminderReceipt, 0)
	for rows.Next() {
		rec := &domain.ReminderReceipt{}
		var kind string
		if err := rows.Scan(&rec.EventID, &kind, &rec.SentAt); err != nil {
			return nil, err
		}
		rec.Kind = domain.ReminderKind(kind)
		receipts = append(receipts, rec)
	}
	return receipts, rows.Err()
}
