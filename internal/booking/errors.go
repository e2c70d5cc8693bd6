package booking

import (
	"errors"
	"fmt"
)

var (
	ErrPatientNotFound       = errors.New("patient not found")
	ErrAttendantNotFound     = errors.New("attendant not found")
	ErrRoomNotFound          = errors.New("room not found")
	ErrServiceNotFound       = errors.New("service not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrPackageNotFound       = errors.New("package not found")
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrRequestNotFound       = errors.New("request not found")
	ErrClosedDayNotFound     = errors.New("closed day not found")

	// ErrSlotTaken is returned by the repository when the unique index on
	// (date, time, attendant) or (date, time, room) rejects an insert. The
	// conflict checker catches most duplicates first; the index catches the
	// rest under concurrent requests.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrSlotContended is surfaced when another request currently holds the
	// booking lock for the same slot.
	ErrSlotContended = errors.New("slot is currently being booked, please retry")

	// ErrUnavailabilityPending is returned when an unresolved unavailability
	// request already exists for the appointment. At most one may be open.
	ErrUnavailabilityPending = errors.New("an unresolved unavailability request already exists for this appointment")

	// ErrRequestProcessed guards one-time approval actions: only pending
	// requests are actionable.
	ErrRequestProcessed = errors.New("this request has already been processed")
)

// ValidationError is bad or missing request input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError is a booking policy violation: slot taken, rest gap, closed
// day, attendant unavailable. Msg is the user-facing explanation naming the
// conflicting resource or time.
type ConflictError struct {
	Rule string
	Msg  string
}

func (e *ConflictError) Error() string { return e.Msg }

func conflictf(rule, format string, args ...any) error {
	return &ConflictError{Rule: rule, Msg: fmt.Sprintf(format, args...)}
}

// StateError is a lifecycle transition attempted from a disallowed status.
// The appointment is left unchanged.
type StateError struct {
	Action  Action
	Current Status
	Allowed []Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("only %s appointments can be %s (current status: %s)",
		statusList(e.Allowed), pastTense(e.Action), e.Current)
}

// PermissionError is an action attempted by a role that may not perform it.
type PermissionError struct {
	Action Action
	Role   Role
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %s may not %s appointments", e.Role, e.Action)
}

func statusList(ss []Status) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " or "
		}
		out += string(s)
	}
	return out
}
