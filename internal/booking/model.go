package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRescheduled Status = "rescheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
)

// ActiveStatuses are the statuses that occupy a slot. An appointment whose
// reschedule was approved keeps its slot, so "approved" counts as active.
var ActiveStatuses = []Status{StatusScheduled, StatusConfirmed, StatusApproved}

// RestGapStatuses are the statuses considered when enforcing the 60-minute
// rest gap between an attendant's appointments on the same day.
var RestGapStatuses = []Status{StatusScheduled, StatusConfirmed, StatusApproved, StatusCompleted}

type Role string

const (
	RolePatient   Role = "patient"
	RoleStaff     Role = "staff"
	RoleOwner     Role = "owner"
	RoleAttendant Role = "attendant"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type UnavailabilityStatus string

const (
	UnavailabilityPending  UnavailabilityStatus = "pending"
	UnavailabilityResolved UnavailabilityStatus = "resolved"
)

type PatientChoice string

const (
	ChooseAnotherAttendant  PatientChoice = "choose_another"
	RescheduleSameAttendant PatientChoice = "reschedule_same"
	CancelAppointment       PatientChoice = "cancel"
)

// Appointment is the central entity. Exactly one of ServiceID, ProductID,
// PackageID is set; Quantity only applies to product orders; RoomID only to
// service bookings.
type Appointment struct {
	ID              uuid.UUID
	TransactionID   string
	Date            time.Time // calendar date, midnight UTC
	Time            TimeOfDay
	Status          Status
	Quantity        int
	PatientID       uuid.UUID
	AttendantID     uuid.UUID
	ServiceID       *uuid.UUID
	ProductID       *uuid.UUID
	PackageID       *uuid.UUID
	RoomID          *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Kind reports what is being booked.
func (a *Appointment) Kind() string {
	switch {
	case a.ServiceID != nil:
		return "service"
	case a.ProductID != nil:
		return "product"
	case a.PackageID != nil:
		return "package"
	}
	return "unknown"
}

// WorkProfile is an attendant's weekly availability. An attendant without a
// profile, or with no work days, cannot be booked.
type WorkProfile struct {
	WorkDays  []time.Weekday
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Phone     string
}

// WorksOn reports whether the profile covers the given weekday.
func (p *WorkProfile) WorksOn(day time.Weekday) bool {
	for _, d := range p.WorkDays {
		if d == day {
			return true
		}
	}
	return false
}

// Covers reports whether t falls inside the daily window. The end of the
// window is inclusive: an attendant finishing at 18:00 can still take an
// 18:00 booking.
func (p *WorkProfile) Covers(t TimeOfDay) bool {
	return t >= p.StartTime && t <= p.EndTime
}

type Attendant struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	IsActive  bool
	Profile   *WorkProfile
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Attendant) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Bookable reports whether the attendant can be assigned at all.
func (a *Attendant) Bookable() bool {
	return a.IsActive && a.Profile != nil && len(a.Profile.WorkDays) > 0
}

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

type Room struct {
	ID          uuid.UUID
	Name        string
	IsAvailable bool
}

type ClosedDay struct {
	ID     uuid.UUID
	Date   time.Time
	Reason string
}

type TimeSlot struct {
	ID       uuid.UUID
	Time     TimeOfDay
	IsActive bool
}

// CatalogService is a bookable clinic service (facial, laser session, ...).
type CatalogService struct {
	ID    uuid.UUID
	Name  string
	Price int64 // centavos
}

type Product struct {
	ID    uuid.UUID
	Name  string
	Price int64
	Stock int
}

type Package struct {
	ID       uuid.UUID
	Name     string
	Price    int64
	Sessions int
}

type CancellationRequest struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Reason        string
	Status        RequestStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RescheduleRequest struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	NewDate       time.Time
	NewTime       TimeOfDay
	Reason        string
	Status        RequestStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type UnavailabilityRequest struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Reason        string
	Status        UnavailabilityStatus
	PatientChoice PatientChoice
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// StockEntry records one stock mutation for auditing.
type StockEntry struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Change        int
	PreviousStock int
	NewStock      int
	Reason        string
	ActorID       uuid.UUID
	CreatedAt     time.Time
}

// HistoryEntry records a domain action (book, confirm, cancel, ...) for the
// admin history screen.
type HistoryEntry struct {
	ID         uuid.UUID
	Action     string
	ItemType   string
	ItemID     uuid.UUID
	ItemName   string
	ActorID    uuid.UUID
	Details    map[string]any
	RecordedAt time.Time
}
