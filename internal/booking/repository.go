package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the booking engine.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetAttendantByID(ctx context.Context, id uuid.UUID) (*Attendant, error)
	ListActiveAttendants(ctx context.Context) ([]Attendant, error)

	GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error)
	ListAvailableRooms(ctx context.Context) ([]Room, error)
	ListActiveTimeSlots(ctx context.Context) ([]TimeSlot, error)

	// GetClosedDay returns ErrClosedDayNotFound when the clinic is open.
	GetClosedDay(ctx context.Context, date time.Time) (*ClosedDay, error)
	ListClosedDays(ctx context.Context) ([]ClosedDay, error)

	GetServiceByID(ctx context.Context, id uuid.UUID) (*CatalogService, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetPackageByID(ctx context.Context, id uuid.UUID) (*Package, error)

	// Conflict checks.
	CountAttendantAppointments(ctx context.Context, date time.Time, t TimeOfDay, attendantID uuid.UUID, statuses []Status) (int, error)
	CountRoomAppointments(ctx context.Context, date time.Time, t TimeOfDay, roomID uuid.UUID, statuses []Status) (int, error)
	ListAttendantDayAppointments(ctx context.Context, date time.Time, attendantID uuid.UUID, statuses []Status) ([]Appointment, error)

	// Creation and updates. CreateAppointment maps unique-index violations on
	// the active-slot indexes to ErrSlotTaken.
	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	// UpdateAppointmentStatus transitions only when the current status is in
	// from; otherwise it returns ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error)
	// UpdateAppointmentSchedule moves an appointment to a new slot, guarded by
	// the same current-status condition as UpdateAppointmentStatus.
	UpdateAppointmentSchedule(ctx context.Context, id uuid.UUID, newDate time.Time, newTime TimeOfDay, from []Status, to Status) (*Appointment, error)
	UpdateAppointmentAttendant(ctx context.Context, id, attendantID uuid.UUID) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	TransactionIDExists(ctx context.Context, code string) (bool, error)

	// Stock ledger. AdjustProductStock applies delta (clamped at zero) and
	// returns the product with its previous stock level.
	AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) (prev int, now int, err error)
	InsertStockEntry(ctx context.Context, e StockEntry) error

	// Change requests.
	CreateCancellationRequest(ctx context.Context, r *CancellationRequest) error
	GetCancellationRequestByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	GetPendingCancellationForAppointment(ctx context.Context, appointmentID uuid.UUID) (*CancellationRequest, error)
	UpdateCancellationRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*CancellationRequest, error)

	CreateRescheduleRequest(ctx context.Context, r *RescheduleRequest) error
	GetRescheduleRequestByID(ctx context.Context, id uuid.UUID) (*RescheduleRequest, error)
	GetPendingRescheduleForAppointment(ctx context.Context, appointmentID uuid.UUID) (*RescheduleRequest, error)
	UpdateRescheduleRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*RescheduleRequest, error)

	// Unavailability workflow. CreateUnavailabilityRequest returns
	// ErrUnavailabilityPending when a pending request already exists for the
	// appointment (single-flight, enforced by a partial unique index).
	CreateUnavailabilityRequest(ctx context.Context, r *UnavailabilityRequest) error
	GetUnavailabilityRequestByID(ctx context.Context, id uuid.UUID) (*UnavailabilityRequest, error)
	GetPendingUnavailabilityForAppointment(ctx context.Context, appointmentID uuid.UUID) (*UnavailabilityRequest, error)
	// ResolveUnavailabilityRequest records the patient's choice; it only
	// succeeds while the request is still pending.
	ResolveUnavailabilityRequest(ctx context.Context, id uuid.UUID, choice PatientChoice, at time.Time) (*UnavailabilityRequest, error)

	// Audit trail.
	InsertHistory(ctx context.Context, e HistoryEntry) error
}
