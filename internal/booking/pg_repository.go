package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// db is the subset of *pgxpool.Pool the repository uses.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ db = (*pgxpool.Pool)(nil)

type PgRepository struct {
	pool db
}

func NewPgRepository(pool db) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, transaction_id, date, time_minutes, status, quantity,
	patient_id, attendant_id, service_id, product_id, package_id, room_id,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var minutes int

	err := row.Scan(
		&a.ID,
		&a.TransactionID,
		&a.Date,
		&minutes,
		&a.Status,
		&a.Quantity,
		&a.PatientID,
		&a.AttendantID,
		&a.ServiceID,
		&a.ProductID,
		&a.PackageID,
		&a.RoomID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Time = TimeOfDay(minutes)
	a.Date = a.Date.UTC()
	return &a, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

const attendantColumns = `a.id, a.first_name, a.last_name, a.is_active, a.created_at, a.updated_at,
	p.work_days, p.start_minutes, p.end_minutes, p.phone`

func scanAttendant(row pgx.Row) (*Attendant, error) {
	var a Attendant
	var workDays []int
	var startMin, endMin *int
	var phone *string

	err := row.Scan(
		&a.ID,
		&a.FirstName,
		&a.LastName,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
		&workDays,
		&startMin,
		&endMin,
		&phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttendantNotFound
		}
		return nil, err
	}

	if startMin != nil && endMin != nil {
		profile := &WorkProfile{
			StartTime: TimeOfDay(*startMin),
			EndTime:   TimeOfDay(*endMin),
		}
		for _, d := range workDays {
			profile.WorkDays = append(profile.WorkDays, time.Weekday(d))
		}
		if phone != nil {
			profile.Phone = *phone
		}
		a.Profile = profile
	}
	return &a, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func weekdayInts(days []time.Weekday) []int {
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAttendantByID(ctx context.Context, id uuid.UUID) (*Attendant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attendantColumns+`
		FROM attendants a
		LEFT JOIN work_profiles p ON p.attendant_id = a.id
		WHERE a.id = $1
	`, id)
	return scanAttendant(row)
}

func (r *PgRepository) ListActiveAttendants(ctx context.Context) ([]Attendant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attendantColumns+`
		FROM attendants a
		LEFT JOIN work_profiles p ON p.attendant_id = a.id
		WHERE a.is_active
		ORDER BY a.first_name, a.last_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Attendant
	for rows.Next() {
		a, err := scanAttendant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	var room Room
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, is_available
		FROM rooms
		WHERE id = $1
	`, id).Scan(&room.ID, &room.Name, &room.IsAvailable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *PgRepository) ListAvailableRooms(ctx context.Context) ([]Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, is_available
		FROM rooms
		WHERE is_available
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.IsAvailable); err != nil {
			return nil, err
		}
		result = append(result, room)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListActiveTimeSlots(ctx context.Context) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, time_minutes, is_active
		FROM time_slots
		WHERE is_active
		ORDER BY time_minutes
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeSlot
	for rows.Next() {
		var slot TimeSlot
		var minutes int
		if err := rows.Scan(&slot.ID, &minutes, &slot.IsActive); err != nil {
			return nil, err
		}
		slot.Time = TimeOfDay(minutes)
		result = append(result, slot)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetClosedDay(ctx context.Context, date time.Time) (*ClosedDay, error) {
	var cd ClosedDay
	err := r.pool.QueryRow(ctx, `
		SELECT id, date, reason
		FROM closed_days
		WHERE date = $1
	`, date).Scan(&cd.ID, &cd.Date, &cd.Reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClosedDayNotFound
		}
		return nil, err
	}
	cd.Date = cd.Date.UTC()
	return &cd, nil
}

func (r *PgRepository) ListClosedDays(ctx context.Context) ([]ClosedDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, date, reason
		FROM closed_days
		ORDER BY date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ClosedDay
	for rows.Next() {
		var cd ClosedDay
		if err := rows.Scan(&cd.ID, &cd.Date, &cd.Reason); err != nil {
			return nil, err
		}
		cd.Date = cd.Date.UTC()
		result = append(result, cd)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*CatalogService, error) {
	var s CatalogService
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price_centavos
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price_centavos, stock
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetPackageByID(ctx context.Context, id uuid.UUID) (*Package, error) {
	var p Package
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price_centavos, sessions
		FROM packages
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Sessions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) CountAttendantAppointments(ctx context.Context, date time.Time, t TimeOfDay, attendantID uuid.UUID, statuses []Status) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE date = $1
		  AND time_minutes = $2
		  AND attendant_id = $3
		  AND status = ANY($4)
	`, date, int(t), attendantID, statusStrings(statuses)).Scan(&n)
	return n, err
}

func (r *PgRepository) CountRoomAppointments(ctx context.Context, date time.Time, t TimeOfDay, roomID uuid.UUID, statuses []Status) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE date = $1
		  AND time_minutes = $2
		  AND room_id = $3
		  AND status = ANY($4)
	`, date, int(t), roomID, statusStrings(statuses)).Scan(&n)
	return n, err
}

func (r *PgRepository) ListAttendantDayAppointments(ctx context.Context, date time.Time, attendantID uuid.UUID, statuses []Status) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1
		  AND attendant_id = $2
		  AND status = ANY($3)
		ORDER BY time_minutes
	`, date, attendantID, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, transaction_id, date, time_minutes, status, quantity,
			patient_id, attendant_id, service_id, product_id, package_id, room_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.TransactionID, a.Date, int(a.Time), a.Status, a.Quantity,
		a.PatientID, a.AttendantID, a.ServiceID, a.ProductID, a.PackageID, a.RoomID)

	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			strings.Contains(pgErr.ConstraintName, "slot") {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date DESC, time_minutes DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns+`
	`, id, to, statusStrings(from))
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentSchedule(ctx context.Context, id uuid.UUID, newDate time.Time, newTime TimeOfDay, from []Status, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    time_minutes = $3,
		    status = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($5)
		RETURNING `+appointmentColumns+`
	`, id, newDate, int(newTime), to, statusStrings(from))
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentAttendant(ctx context.Context, id, attendantID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET attendant_id = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, attendantID)
	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) TransactionIDExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE transaction_id = $1)
	`, code).Scan(&exists)
	return exists, err
}

// AdjustProductStock applies delta inside a transaction with the product row
// locked, clamping the result at zero.
func (r *PgRepository) AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) (int, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prev int
	err = tx.QueryRow(ctx, `
		SELECT stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&prev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrProductNotFound
		}
		return 0, 0, err
	}

	next := prev + delta
	if next < 0 {
		next = 0
	}
	if _, err := tx.Exec(ctx, `
		UPDATE products SET stock = $2, updated_at = now() WHERE id = $1
	`, productID, next); err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return prev, next, nil
}

func (r *PgRepository) InsertStockEntry(ctx context.Context, e StockEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stock_entries (id, product_id, change, previous_stock, new_stock, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`, e.ID, e.ProductID, e.Change, e.PreviousStock, e.NewStock, e.Reason, e.ActorID, nullableTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert stock entry: %w", err)
	}
	return nil
}

const cancellationColumns = `id, appointment_id, patient_id, reason, status, created_at, updated_at`

func scanCancellation(row pgx.Row) (*CancellationRequest, error) {
	var cr CancellationRequest
	err := row.Scan(&cr.ID, &cr.AppointmentID, &cr.PatientID, &cr.Reason, &cr.Status, &cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &cr, nil
}

func (r *PgRepository) CreateCancellationRequest(ctx context.Context, req *CancellationRequest) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO cancellation_requests (id, appointment_id, patient_id, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`, req.ID, req.AppointmentID, req.PatientID, req.Reason, req.Status)
	return row.Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *PgRepository) GetCancellationRequestByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+cancellationColumns+`
		FROM cancellation_requests
		WHERE id = $1
	`, id)
	return scanCancellation(row)
}

func (r *PgRepository) GetPendingCancellationForAppointment(ctx context.Context, appointmentID uuid.UUID) (*CancellationRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+cancellationColumns+`
		FROM cancellation_requests
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	return scanCancellation(row)
}

func (r *PgRepository) UpdateCancellationRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*CancellationRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE cancellation_requests
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+cancellationColumns+`
	`, id, to, from)
	return scanCancellation(row)
}

const rescheduleColumns = `id, appointment_id, patient_id, new_date, new_time_minutes, reason, status, created_at, updated_at`

func scanReschedule(row pgx.Row) (*RescheduleRequest, error) {
	var rr RescheduleRequest
	var minutes int
	err := row.Scan(&rr.ID, &rr.AppointmentID, &rr.PatientID, &rr.NewDate, &minutes, &rr.Reason, &rr.Status, &rr.CreatedAt, &rr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	rr.NewTime = TimeOfDay(minutes)
	rr.NewDate = rr.NewDate.UTC()
	return &rr, nil
}

func (r *PgRepository) CreateRescheduleRequest(ctx context.Context, req *RescheduleRequest) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reschedule_requests (id, appointment_id, patient_id, new_date, new_time_minutes, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, req.ID, req.AppointmentID, req.PatientID, req.NewDate, int(req.NewTime), req.Reason, req.Status)
	return row.Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *PgRepository) GetRescheduleRequestByID(ctx context.Context, id uuid.UUID) (*RescheduleRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+rescheduleColumns+`
		FROM reschedule_requests
		WHERE id = $1
	`, id)
	return scanReschedule(row)
}

func (r *PgRepository) GetPendingRescheduleForAppointment(ctx context.Context, appointmentID uuid.UUID) (*RescheduleRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+rescheduleColumns+`
		FROM reschedule_requests
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	return scanReschedule(row)
}

func (r *PgRepository) UpdateRescheduleRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*RescheduleRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reschedule_requests
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+rescheduleColumns+`
	`, id, to, from)
	return scanReschedule(row)
}

const unavailabilityColumns = `id, appointment_id, reason, status, patient_choice, created_at, resolved_at`

func scanUnavailability(row pgx.Row) (*UnavailabilityRequest, error) {
	var ur UnavailabilityRequest
	var choice *string
	err := row.Scan(&ur.ID, &ur.AppointmentID, &ur.Reason, &ur.Status, &choice, &ur.CreatedAt, &ur.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if choice != nil {
		ur.PatientChoice = PatientChoice(*choice)
	}
	return &ur, nil
}

func (r *PgRepository) CreateUnavailabilityRequest(ctx context.Context, req *UnavailabilityRequest) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO unavailability_requests (id, appointment_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at
	`, req.ID, req.AppointmentID, req.Reason, req.Status)

	if err := row.Scan(&req.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUnavailabilityPending
		}
		return err
	}
	return nil
}

func (r *PgRepository) GetUnavailabilityRequestByID(ctx context.Context, id uuid.UUID) (*UnavailabilityRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+unavailabilityColumns+`
		FROM unavailability_requests
		WHERE id = $1
	`, id)
	return scanUnavailability(row)
}

func (r *PgRepository) GetPendingUnavailabilityForAppointment(ctx context.Context, appointmentID uuid.UUID) (*UnavailabilityRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+unavailabilityColumns+`
		FROM unavailability_requests
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	return scanUnavailability(row)
}

func (r *PgRepository) ResolveUnavailabilityRequest(ctx context.Context, id uuid.UUID, choice PatientChoice, at time.Time) (*UnavailabilityRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE unavailability_requests
		SET status = 'resolved',
		    patient_choice = $2,
		    resolved_at = $3
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+unavailabilityColumns+`
	`, id, choice, at)

	req, err := scanUnavailability(row)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			if _, lookupErr := r.GetUnavailabilityRequestByID(ctx, id); lookupErr == nil {
				return nil, ErrRequestProcessed
			}
		}
		return nil, err
	}
	return req, nil
}

func (r *PgRepository) InsertHistory(ctx context.Context, e HistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO history_entries (id, action, item_type, item_id, item_name, actor_id, details, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`, e.ID, e.Action, e.ItemType, e.ItemID, e.ItemName, e.ActorID, e.Details, nullableTime(e.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
