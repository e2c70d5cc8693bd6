package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAppointment  Type = "appointment"
	TypeConfirmation Type = "confirmation"
	TypeCancellation Type = "cancellation"
	TypeReschedule   Type = "reschedule"
	TypeNoShow       Type = "no_show"
	TypeSystem       Type = "system"
)

// Audience identifies who a notification is for. A nil recipient is a
// broadcast row visible to every owner and staff account; attendant
// notifications use the recipient column the same way patient ones do.
type Audience struct {
	Recipient *uuid.UUID
}

func ToUser(id uuid.UUID) Audience { return Audience{Recipient: &id} }
func Broadcast() Audience          { return Audience{} }

type Notification struct {
	ID            uuid.UUID
	Type          Type
	Title         string
	Message       string
	AppointmentID *uuid.UUID
	Audience      Audience
	IsRead        bool
	CreatedAt     time.Time
}

// Sink receives fire-and-forget notifications. Failures are logged by the
// caller and never roll back the booking mutation that produced them.
type Sink interface {
	Create(ctx context.Context, n Notification) error
}

// SMSSender delivers a single text message. Best effort: an error degrades
// to a warning upstream.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}
