package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowclinic/scheduling/internal/booking"
)

// db is the subset of *pgxpool.Pool the repository uses.
type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ db = (*pgxpool.Pool)(nil)

type PgRepository struct {
	pool db
}

func NewPgRepository(pool db) *PgRepository {
	return &PgRepository{pool: pool}
}

// dueQuery joins the appointment with the patient and whichever catalog item
// it references, for reminder message composition.
const dueQuery = `
	SELECT a.id, a.transaction_id, a.date, a.time_minutes,
	       pt.first_name, pt.phone,
	       COALESCE(s.name, pr.name, pk.name, 'appointment')
	FROM appointments a
	JOIN patients pt ON pt.id = a.patient_id
	LEFT JOIN services s ON s.id = a.service_id
	LEFT JOIN products pr ON pr.id = a.product_id
	LEFT JOIN packages pk ON pk.id = a.package_id
	WHERE a.status IN ('confirmed', 'approved')`

func (r *PgRepository) ListForDate(ctx context.Context, date time.Time) ([]Due, error) {
	rows, err := r.pool.Query(ctx, dueQuery+`
		  AND a.date = $1
		ORDER BY a.time_minutes
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDue(rows)
}

func (r *PgRepository) ListBetween(ctx context.Context, from, to time.Time) ([]Due, error) {
	rows, err := r.pool.Query(ctx, dueQuery+`
		  AND a.date + make_interval(mins => a.time_minutes) >= $1
		  AND a.date + make_interval(mins => a.time_minutes) < $2
		ORDER BY a.date, a.time_minutes
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDue(rows)
}

func (r *PgRepository) MarkSent(ctx context.Context, appointmentID uuid.UUID, kind Kind, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sms_reminders (id, appointment_id, kind, sent_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), appointmentID, kind, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadySent
		}
		return fmt.Errorf("insert sms reminder: %w", err)
	}
	return nil
}

func scanDue(rows pgx.Rows) ([]Due, error) {
	var out []Due
	for rows.Next() {
		var d Due
		var minutes int
		err := rows.Scan(&d.AppointmentID, &d.TransactionID, &d.Date, &minutes,
			&d.PatientName, &d.PatientPhone, &d.ItemName)
		if err != nil {
			return nil, err
		}
		d.Time = booking.TimeOfDay(minutes)
		d.Date = d.Date.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}
