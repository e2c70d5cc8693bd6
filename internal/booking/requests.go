package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/notify"
)

// CancellationNotice is how far ahead a patient should cancel. Shorter
// notice does not block the request but is flagged to staff.
const CancellationNotice = 48 * time.Hour

// reviewRoles may approve or reject patient change requests.
var reviewRoles = []Role{RoleStaff, RoleOwner}

// RequestCancellation files a patient's cancellation request for staff
// review. The appointment itself is untouched until the request is approved.
func (s *Service) RequestCancellation(ctx context.Context, patientID, appointmentID uuid.UUID, reason string) (*CancellationRequest, error) {
	if reason == "" {
		return nil, validationf("reason", "a cancellation reason is required")
	}

	appt, err := s.ownedAppointment(ctx, patientID, appointmentID)
	if err != nil {
		return nil, err
	}
	if !statusIn(appt.Status, transitions[ActionCancel].from) {
		return nil, &StateError{Action: ActionCancel, Current: appt.Status, Allowed: transitions[ActionCancel].from}
	}

	pending, err := s.repo.GetPendingCancellationForAppointment(ctx, appointmentID)
	if err != nil && !errors.Is(err, ErrRequestNotFound) {
		return nil, fmt.Errorf("check pending cancellation: %w", err)
	}
	if pending != nil {
		return nil, conflictf("request_pending", "a cancellation request for this appointment is already pending review")
	}

	req := &CancellationRequest{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		PatientID:     patientID,
		Reason:        reason,
		Status:        RequestPending,
	}
	if err := s.repo.CreateCancellationRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create cancellation request: %w", err)
	}

	patient, itemName := s.describe(ctx, appt)
	when := fmt.Sprintf("%s at %s", appt.Date.Format("January 02, 2006"), appt.Time.Clock())
	msg := fmt.Sprintf("%s requested to cancel their %s appointment on %s. Reason: %s", displayName(patient), itemName, when, reason)
	if s.shortNotice(appt) {
		msg += " NOTE: this appointment is less than 2 days away."
	}
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeCancellation,
		Title:         "Cancellation Request",
		Message:       msg,
		AppointmentID: &appt.ID,
		Audience:      notify.Broadcast(),
	})
	s.logHistory(ctx, HistoryEntry{
		Action:   "request_cancellation",
		ItemType: "cancellation_request",
		ItemID:   req.ID,
		ItemName: itemName,
		ActorID:  patientID,
		Details:  map[string]any{"appointment_id": appointmentID.String(), "reason": reason},
	})
	return req, nil
}

// ApproveCancellation approves a pending cancellation request and cancels
// the appointment, returning any held product stock.
func (s *Service) ApproveCancellation(ctx context.Context, actor Actor, requestID uuid.UUID) (*CancellationRequest, error) {
	if !roleAllowed(actor.Role, reviewRoles) {
		return nil, &PermissionError{Action: ActionCancel, Role: actor.Role}
	}

	req, err := s.repo.GetCancellationRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, ErrRequestProcessed
	}

	appt, err := s.repo.GetAppointmentByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	prevStatus := appt.Status

	// Cancel the appointment before deciding the request: if the transition
	// fails the request stays pending instead of stranding as approved.
	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, transitions[ActionCancel].from, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &StateError{Action: ActionCancel, Current: appt.Status, Allowed: transitions[ActionCancel].from}
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	if updated.ProductID != nil && statusIn(prevStatus, stockHeldStatuses) {
		s.restoreStock(ctx, updated, actor, "cancellation")
	}

	req, err = s.repo.UpdateCancellationRequestStatus(ctx, requestID, RequestPending, RequestApproved)
	if err != nil {
		return nil, s.requestUpdateErr(ctx, err, requestID, kindCancellation)
	}

	patient, itemName := s.describe(ctx, updated)
	when := fmt.Sprintf("%s at %s", updated.Date.Format("January 02, 2006"), updated.Time.Clock())
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeCancellation,
		Title:         "Cancellation Approved",
		Message:       fmt.Sprintf("Your request to cancel the %s appointment on %s has been approved.", itemName, when),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(updated.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, your cancellation request for %s on %s has been approved.", patient.FirstName, itemName, when))
	}
	s.logHistory(ctx, HistoryEntry{
		Action:   "approve_cancellation",
		ItemType: "cancellation_request",
		ItemID:   req.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"appointment_id": updated.ID.String()},
	})
	return req, nil
}

// RejectCancellation rejects a pending cancellation request; the appointment
// stands.
func (s *Service) RejectCancellation(ctx context.Context, actor Actor, requestID uuid.UUID) (*CancellationRequest, error) {
	if !roleAllowed(actor.Role, reviewRoles) {
		return nil, &PermissionError{Action: ActionCancel, Role: actor.Role}
	}

	req, err := s.repo.UpdateCancellationRequestStatus(ctx, requestID, RequestPending, RequestRejected)
	if err != nil {
		return nil, s.requestUpdateErr(ctx, err, requestID, kindCancellation)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, req.AppointmentID)
	if err != nil {
		return req, nil
	}
	_, itemName := s.describe(ctx, appt)
	when := fmt.Sprintf("%s at %s", appt.Date.Format("January 02, 2006"), appt.Time.Clock())
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeCancellation,
		Title:         "Cancellation Request Declined",
		Message:       fmt.Sprintf("Your request to cancel the %s appointment on %s was declined. Please contact the clinic for details.", itemName, when),
		AppointmentID: &appt.ID,
		Audience:      notify.ToUser(appt.PatientID),
	})
	s.logHistory(ctx, HistoryEntry{
		Action:   "reject_cancellation",
		ItemType: "cancellation_request",
		ItemID:   req.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"appointment_id": appt.ID.String()},
	})
	return req, nil
}

// RequestReschedule files a patient's reschedule request. The target slot is
// sanity-checked now and fully re-validated at approval time.
func (s *Service) RequestReschedule(ctx context.Context, patientID, appointmentID uuid.UUID, newDateStr, newTimeStr, reason string) (*RescheduleRequest, error) {
	newDate, newTime, err := parseSchedule(newDateStr, newTimeStr)
	if err != nil {
		return nil, err
	}

	appt, err := s.ownedAppointment(ctx, patientID, appointmentID)
	if err != nil {
		return nil, err
	}
	if !statusIn(appt.Status, transitions[ActionCancel].from) {
		return nil, &StateError{Action: ActionReschedule, Current: appt.Status, Allowed: transitions[ActionCancel].from}
	}

	if err := s.validateRescheduleTarget(ctx, newDate, newTime); err != nil {
		return nil, err
	}

	pending, err := s.repo.GetPendingRescheduleForAppointment(ctx, appointmentID)
	if err != nil && !errors.Is(err, ErrRequestNotFound) {
		return nil, fmt.Errorf("check pending reschedule: %w", err)
	}
	if pending != nil {
		return nil, conflictf("request_pending", "a reschedule request for this appointment is already pending review")
	}

	req := &RescheduleRequest{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		PatientID:     patientID,
		NewDate:       newDate,
		NewTime:       newTime,
		Reason:        reason,
		Status:        RequestPending,
	}
	if err := s.repo.CreateRescheduleRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create reschedule request: %w", err)
	}

	patient, itemName := s.describe(ctx, appt)
	oldWhen := fmt.Sprintf("%s at %s", appt.Date.Format("January 02, 2006"), appt.Time.Clock())
	newWhen := fmt.Sprintf("%s at %s", newDate.Format("January 02, 2006"), newTime.Clock())
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeReschedule,
		Title:         "Reschedule Request",
		Message:       fmt.Sprintf("%s requested to move their %s appointment from %s to %s.", displayName(patient), itemName, oldWhen, newWhen),
		AppointmentID: &appt.ID,
		Audience:      notify.Broadcast(),
	})
	s.logHistory(ctx, HistoryEntry{
		Action:   "request_reschedule",
		ItemType: "reschedule_request",
		ItemID:   req.ID,
		ItemName: itemName,
		ActorID:  patientID,
		Details: map[string]any{
			"appointment_id": appointmentID.String(),
			"new_date":       newDate.Format("2006-01-02"),
			"new_time":       newTime.String(),
		},
	})
	return req, nil
}

// ApproveReschedule re-validates the target slot and moves the appointment.
// The moved appointment lands in "approved": it holds its new slot but staff
// still confirms closer to the day.
func (s *Service) ApproveReschedule(ctx context.Context, actor Actor, requestID uuid.UUID) (*RescheduleRequest, error) {
	if !roleAllowed(actor.Role, reviewRoles) {
		return nil, &PermissionError{Action: ActionReschedule, Role: actor.Role}
	}

	req, err := s.repo.GetRescheduleRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, ErrRequestProcessed
	}
	if err := s.validateRescheduleTarget(ctx, req.NewDate, req.NewTime); err != nil {
		return nil, err
	}

	// Move the appointment before deciding the request, so a failed move
	// leaves the request pending. The conditional update also keeps a stale
	// request from reviving an appointment that has since left the active
	// statuses.
	updated, err := s.repo.UpdateAppointmentSchedule(ctx, req.AppointmentID, req.NewDate, req.NewTime,
		transitions[ActionReschedule].from, StatusApproved)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			if appt, lookupErr := s.repo.GetAppointmentByID(ctx, req.AppointmentID); lookupErr == nil {
				return nil, &StateError{Action: ActionReschedule, Current: appt.Status, Allowed: transitions[ActionReschedule].from}
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("apply reschedule: %w", err)
	}

	req, err = s.repo.UpdateRescheduleRequestStatus(ctx, requestID, RequestPending, RequestApproved)
	if err != nil {
		return nil, s.requestUpdateErr(ctx, err, requestID, kindReschedule)
	}

	patient, itemName := s.describe(ctx, updated)
	newWhen := fmt.Sprintf("%s at %s", updated.Date.Format("January 02, 2006"), updated.Time.Clock())
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeReschedule,
		Title:         "Reschedule Approved",
		Message:       fmt.Sprintf("Your %s appointment has been moved to %s.", itemName, newWhen),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(updated.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, your %s appointment has been rescheduled to %s. Ref: %s", patient.FirstName, itemName, newWhen, updated.TransactionID))
	}
	s.logHistory(ctx, HistoryEntry{
		Action:   "approve_reschedule",
		ItemType: "reschedule_request",
		ItemID:   req.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details: map[string]any{
			"appointment_id": updated.ID.String(),
			"new_date":       updated.Date.Format("2006-01-02"),
			"new_time":       updated.Time.String(),
		},
	})
	return req, nil
}

// RejectReschedule rejects a pending reschedule request; the appointment
// keeps its original slot.
func (s *Service) RejectReschedule(ctx context.Context, actor Actor, requestID uuid.UUID) (*RescheduleRequest, error) {
	if !roleAllowed(actor.Role, reviewRoles) {
		return nil, &PermissionError{Action: ActionReschedule, Role: actor.Role}
	}

	req, err := s.repo.UpdateRescheduleRequestStatus(ctx, requestID, RequestPending, RequestRejected)
	if err != nil {
		return nil, s.requestUpdateErr(ctx, err, requestID, kindReschedule)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, req.AppointmentID)
	if err != nil {
		return req, nil
	}
	_, itemName := s.describe(ctx, appt)
	when := fmt.Sprintf("%s at %s", appt.Date.Format("January 02, 2006"), appt.Time.Clock())
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeReschedule,
		Title:         "Reschedule Request Declined",
		Message:       fmt.Sprintf("Your request to move the %s appointment was declined. It remains on %s.", itemName, when),
		AppointmentID: &appt.ID,
		Audience:      notify.ToUser(appt.PatientID),
	})
	s.logHistory(ctx, HistoryEntry{
		Action:   "reject_reschedule",
		ItemType: "reschedule_request",
		ItemID:   req.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"appointment_id": appt.ID.String()},
	})
	return req, nil
}

// validateRescheduleTarget applies the reschedule-specific slot rules: a
// future slot, not a Sunday, not a closed day, inside the 10:00 to 17:00
// reschedule window.
func (s *Service) validateRescheduleTarget(ctx context.Context, date time.Time, t TimeOfDay) error {
	if date.Weekday() == time.Sunday {
		return conflictf("sunday", "the clinic is closed on Sundays, please choose another day")
	}
	closed, err := s.repo.GetClosedDay(ctx, date)
	if err != nil && !errors.Is(err, ErrClosedDayNotFound) {
		return fmt.Errorf("check closed day: %w", err)
	}
	if closed != nil {
		return conflictf("closed_day", "the clinic is closed on %s, please select another date", date.Format("January 02, 2006"))
	}
	if !At(date, t, s.loc).After(s.now()) {
		return conflictf("past_time", "cannot reschedule to a past date and time")
	}
	if t < RescheduleMin || t > RescheduleMax {
		return conflictf("reschedule_window", "rescheduled appointments must be between %s and %s",
			RescheduleMin.Clock(), RescheduleMax.Clock())
	}
	return nil
}

// ownedAppointment loads an appointment and verifies it belongs to the
// patient. A foreign appointment reads as not found.
func (s *Service) ownedAppointment(ctx context.Context, patientID, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

func (s *Service) shortNotice(appt *Appointment) bool {
	return At(appt.Date, appt.Time, s.loc).Sub(s.now()) < CancellationNotice
}

type requestKind string

const (
	kindCancellation requestKind = "cancellation"
	kindReschedule   requestKind = "reschedule"
)

// requestUpdateErr distinguishes "no such request" from "request already
// decided" after a conditional status update fails.
func (s *Service) requestUpdateErr(ctx context.Context, err error, id uuid.UUID, kind requestKind) error {
	if !errors.Is(err, ErrRequestNotFound) {
		return err
	}
	switch kind {
	case kindCancellation:
		if _, lookupErr := s.repo.GetCancellationRequestByID(ctx, id); lookupErr == nil {
			return ErrRequestProcessed
		}
	case kindReschedule:
		if _, lookupErr := s.repo.GetRescheduleRequestByID(ctx, id); lookupErr == nil {
			return ErrRequestProcessed
		}
	}
	return ErrRequestNotFound
}

func displayName(p *Patient) string {
	if p == nil {
		return "A patient"
	}
	return p.FullName()
}
