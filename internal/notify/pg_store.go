package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists notifications and backs the in-app notification feed.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Create(ctx context.Context, n Notification) error {
	id := n.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, type, title, message, appointment_id, recipient_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, now())
	`, id, n.Type, n.Title, n.Message, n.AppointmentID, n.Audience.Recipient)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListForUser returns the user's unread notifications, newest first.
// Broadcast rows are included for staff and owner feeds via ListBroadcast.
func (s *PgStore) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, title, message, appointment_id, recipient_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND NOT is_read
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ListBroadcast returns unread broadcast rows (the owner/staff feed).
func (s *PgStore) ListBroadcast(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, title, message, appointment_id, recipient_id, is_read, created_at
		FROM notifications
		WHERE recipient_id IS NULL AND NOT is_read
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (s *PgStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	return err
}

// MarkAllRead marks a user's rows read, or all broadcast rows when userID is
// nil (owner/staff acting on the shared feed).
func (s *PgStore) MarkAllRead(ctx context.Context, userID *uuid.UUID) error {
	if userID == nil {
		_, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE recipient_id IS NULL`)
		return err
	}
	_, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE recipient_id = $1`, *userID)
	return err
}

func scanNotifications(rows pgx.Rows) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.AppointmentID, &n.Audience.Recipient, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
