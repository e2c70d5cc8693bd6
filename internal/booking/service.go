package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/notify"
	redisclient "github.com/glowclinic/scheduling/internal/redis"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Service is the booking engine. It orchestrates resource lookup, the
// conflict checker, slot locking, appointment creation and the lifecycle
// transitions, and fans out notifications and SMS as best-effort side
// effects.
type Service struct {
	repo    Repository
	locker  redisclient.Locker
	sink    notify.Sink
	sms     notify.SMSSender
	checker *ConflictChecker
	log     *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// Options tune the service for tests; zero values give production behavior.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, sink notify.Sink, sms notify.SMSSender, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		sink:    sink,
		sms:     sms,
		checker: NewConflictChecker(repo, now, loc),
		log:     logger,
		loc:     loc,
		now:     now,
	}
}

type BookServiceInput struct {
	PatientID   uuid.UUID
	ServiceID   uuid.UUID
	Date        string
	Time        string
	AttendantID *uuid.UUID
	RoomID      *uuid.UUID
}

type BookPackageInput struct {
	PatientID   uuid.UUID
	PackageID   uuid.UUID
	Date        string
	Time        string
	AttendantID *uuid.UUID
}

type BookProductInput struct {
	PatientID uuid.UUID
	ProductID uuid.UUID
	Date      string
	Time      string
	Quantity  int
}

// BookService books a service appointment: attendant and room are taken from
// the request or auto-assigned, every conflict rule runs inside the slot
// lock, and the appointment is created as scheduled pending staff
// confirmation.
func (s *Service) BookService(ctx context.Context, in BookServiceInput) (*Appointment, error) {
	date, tod, err := parseSchedule(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	svc, err := s.repo.GetServiceByID(ctx, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	patient, err := s.repo.GetPatientByID(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	attendant, err := s.resolveAttendant(ctx, date, tod, in.AttendantID)
	if err != nil {
		return nil, err
	}
	room, err := s.resolveRoom(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		Date:        date,
		Time:        tod,
		Status:      StatusScheduled,
		PatientID:   patient.ID,
		AttendantID: attendant.ID,
		ServiceID:   &svc.ID,
		RoomID:      &room.ID,
	}
	cand := Candidate{Date: date, Time: tod, Attendant: attendant, RoomID: &room.ID}

	if err := s.createLocked(ctx, appt, cand); err != nil {
		return nil, err
	}

	s.afterBooking(ctx, appt, patient, attendant, svc.Name)
	return appt, nil
}

// BookPackage is the service flow without a room.
func (s *Service) BookPackage(ctx context.Context, in BookPackageInput) (*Appointment, error) {
	date, tod, err := parseSchedule(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	pkg, err := s.repo.GetPackageByID(ctx, in.PackageID)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	patient, err := s.repo.GetPatientByID(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	attendant, err := s.resolveAttendant(ctx, date, tod, in.AttendantID)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		Date:        date,
		Time:        tod,
		Status:      StatusScheduled,
		PatientID:   patient.ID,
		AttendantID: attendant.ID,
		PackageID:   &pkg.ID,
	}
	cand := Candidate{Date: date, Time: tod, Attendant: attendant}

	if err := s.createLocked(ctx, appt, cand); err != nil {
		return nil, err
	}

	s.afterBooking(ctx, appt, patient, attendant, pkg.Name)
	return appt, nil
}

// BookProduct books a product pickup. Stock is validated against the
// requested quantity here but only deducted when staff confirms the order,
// and the auto-assigned attendant's service schedule does not constrain the
// pickup time.
func (s *Service) BookProduct(ctx context.Context, in BookProductInput) (*Appointment, error) {
	date, tod, err := parseSchedule(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	product, err := s.repo.GetProductByID(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if product.Stock <= 0 {
		return nil, conflictf("out_of_stock", "sorry, %s is currently out of stock, please check back later", product.Name)
	}
	if in.Quantity < 1 {
		return nil, validationf("quantity", "quantity must be at least 1")
	}
	if in.Quantity > product.Stock {
		return nil, validationf("quantity", "quantity (%d) cannot exceed available stock (%d units)", in.Quantity, product.Stock)
	}

	patient, err := s.repo.GetPatientByID(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	attendant, err := s.firstActiveAttendant(ctx)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		Date:        date,
		Time:        tod,
		Status:      StatusScheduled,
		Quantity:    in.Quantity,
		PatientID:   patient.ID,
		AttendantID: attendant.ID,
		ProductID:   &product.ID,
	}
	cand := Candidate{Date: date, Time: tod, Attendant: attendant, SkipWorkWindow: true}

	if err := s.createLocked(ctx, appt, cand); err != nil {
		return nil, err
	}

	s.afterBooking(ctx, appt, patient, attendant, fmt.Sprintf("%dx %s", in.Quantity, product.Name))
	return appt, nil
}

// createLocked runs the full conflict check and the insert inside the slot
// lock so two concurrent requests for the same (date, time, attendant)
// serialize. The unique partial index backstops the lock.
func (s *Service) createLocked(ctx context.Context, appt *Appointment, cand Candidate) error {
	key := slotKey(appt.Date, appt.Time, appt.AttendantID)

	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		if err := s.checker.Check(lockCtx, cand); err != nil {
			return err
		}

		code, err := s.newTransactionID(lockCtx)
		if err != nil {
			return err
		}

		appt.ID = uuid.New()
		appt.TransactionID = code
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return conflictf("slot_taken", "this time slot (%s) on %s is already fully booked, please choose another time",
					appt.Time.Clock(), appt.Date.Format("2006-01-02"))
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrSlotContended
		}
		return err
	}
	return nil
}

func slotKey(date time.Time, t TimeOfDay, attendantID uuid.UUID) string {
	return fmt.Sprintf("slot:%s:%s:%s", date.Format("2006-01-02"), t, attendantID)
}

// afterBooking fans out the booking side effects: patient notification and
// awaiting-confirmation SMS, staff broadcast, attendant notification and
// assignment SMS. None of these can fail the booking.
func (s *Service) afterBooking(ctx context.Context, appt *Appointment, patient *Patient, attendant *Attendant, itemName string) {
	apptID := appt.ID
	when := fmt.Sprintf("%s at %s", appt.Date.Format("January 02, 2006"), appt.Time.Clock())

	s.notify(ctx, notify.Notification{
		Type:          notify.TypeAppointment,
		Title:         "Appointment Scheduled",
		Message:       fmt.Sprintf("Your %s appointment has been scheduled for %s. Please await staff confirmation. Transaction ID: %s", itemName, when, appt.TransactionID),
		AppointmentID: &apptID,
		Audience:      notify.ToUser(patient.ID),
	})
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeAppointment,
		Title:         "New Appointment Booked",
		Message:       fmt.Sprintf("New appointment booked: %s - %s on %s. Please review and confirm.", patient.FullName(), itemName, when),
		AppointmentID: &apptID,
		Audience:      notify.Broadcast(),
	})
	s.sendSMS(ctx, patient.Phone,
		fmt.Sprintf("Hi %s, your %s appointment is scheduled for %s. You will receive another message once staff confirms it. Ref: %s", patient.FirstName, itemName, when, appt.TransactionID))

	if attendant != nil && attendant.IsActive {
		s.notify(ctx, notify.Notification{
			Type:          notify.TypeAppointment,
			Title:         "New Appointment Assigned",
			Message:       fmt.Sprintf("You have been assigned a new appointment: %s - %s on %s.", patient.FullName(), itemName, when),
			AppointmentID: &apptID,
			Audience:      notify.ToUser(attendant.ID),
		})
		if attendant.Profile != nil {
			s.sendSMS(ctx, attendant.Profile.Phone,
				fmt.Sprintf("Hi %s, you have been assigned a new appointment: %s - %s on %s.", attendant.FirstName, patient.FullName(), itemName, when))
		}
	}

	s.logHistory(ctx, HistoryEntry{
		Action:   "book",
		ItemType: "appointment",
		ItemID:   appt.ID,
		ItemName: fmt.Sprintf("%s - %s", itemName, patient.FullName()),
		ActorID:  patient.ID,
		Details: map[string]any{
			"date":           appt.Date.Format("2006-01-02"),
			"time":           appt.Time.String(),
			"status":         string(appt.Status),
			"transaction_id": appt.TransactionID,
		},
	})
}

// resolveAttendant picks the attendant for a service or package booking: the
// requested one when they are active and available at the requested slot,
// otherwise the first available attendant. No attendant at all is a
// conflict, not a validation error.
func (s *Service) resolveAttendant(ctx context.Context, date time.Time, tod TimeOfDay, explicit *uuid.UUID) (*Attendant, error) {
	available, err := s.AvailableAttendants(ctx, &date, &tod)
	if err != nil {
		return nil, fmt.Errorf("list available attendants: %w", err)
	}

	if explicit != nil {
		att, err := s.repo.GetAttendantByID(ctx, *explicit)
		if err != nil {
			if errors.Is(err, ErrAttendantNotFound) {
				return firstOrNone(available)
			}
			return nil, fmt.Errorf("load attendant: %w", err)
		}
		if !att.IsActive {
			return nil, conflictf("attendant_inactive", "this attendant account is currently inactive, please select another attendant")
		}
		for i := range available {
			if available[i].ID == att.ID {
				return att, nil
			}
		}
		return nil, conflictf("attendant_unavailable", "this attendant is not available, please select another attendant")
	}

	return firstOrNone(available)
}

func firstOrNone(available []Attendant) (*Attendant, error) {
	if len(available) == 0 {
		return nil, conflictf("no_attendants", "no attendants available, please contact the clinic")
	}
	return &available[0], nil
}

func (s *Service) firstActiveAttendant(ctx context.Context) (*Attendant, error) {
	all, err := s.repo.ListActiveAttendants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active attendants: %w", err)
	}
	if len(all) == 0 {
		return nil, conflictf("no_attendants", "no attendants available, please contact the clinic")
	}
	return &all[0], nil
}

// resolveRoom picks the requested room when it exists and is available,
// otherwise the first available room.
func (s *Service) resolveRoom(ctx context.Context, explicit *uuid.UUID) (*Room, error) {
	if explicit != nil {
		room, err := s.repo.GetRoomByID(ctx, *explicit)
		if err == nil && room.IsAvailable {
			return room, nil
		}
		if err != nil && !errors.Is(err, ErrRoomNotFound) {
			return nil, fmt.Errorf("load room: %w", err)
		}
	}
	rooms, err := s.repo.ListAvailableRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, conflictf("no_rooms", "no rooms available, please contact the clinic")
	}
	return &rooms[0], nil
}

func parseSchedule(dateStr, timeStr string) (time.Time, TimeOfDay, error) {
	if dateStr == "" || timeStr == "" {
		return time.Time{}, 0, validationf("", "please fill in all required fields")
	}
	date, err := ParseDate(dateStr)
	if err != nil {
		return time.Time{}, 0, validationf("appointment_date", "invalid date format")
	}
	tod, err := ParseTimeOfDay(timeStr)
	if err != nil {
		return time.Time{}, 0, validationf("appointment_time", "invalid time format")
	}
	return date, tod, nil
}

// GetAppointment loads one appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListPatientAppointments lists a patient's appointments, newest first.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

// notify, sendSMS and logHistory are best-effort side effects: failures are
// logged and never propagate.
func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if err := s.sink.Create(ctx, n); err != nil {
		s.log.Warn("notification create failed", "title", n.Title, "error", err)
	}
}

func (s *Service) sendSMS(ctx context.Context, phone, message string) bool {
	if err := s.sms.Send(ctx, phone, message); err != nil {
		s.log.Warn("sms send failed", "error", err)
		return false
	}
	return true
}

func (s *Service) logHistory(ctx context.Context, e HistoryEntry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	if err := s.repo.InsertHistory(ctx, e); err != nil {
		s.log.Warn("history insert failed", "action", e.Action, "error", err)
	}
}
