package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/notify"
	redisclient "github.com/glowclinic/scheduling/internal/redis"
)

// UnavailabilityResponse is the patient's answer to an attendant
// unavailability notice. NewAttendantID is required for choose_another.
type UnavailabilityResponse struct {
	Choice         PatientChoice
	NewAttendantID *uuid.UUID
}

// UnavailabilityOutcome reports how a response was resolved. NextStep names
// the follow-up flow the client should enter, if any: "request_reschedule"
// or "request_cancellation".
type UnavailabilityOutcome struct {
	Request     *UnavailabilityRequest
	Appointment *Appointment
	NextStep    string
}

// MarkAttendantUnavailable opens an unavailability request for an upcoming
// appointment and asks the patient to choose between another attendant,
// rescheduling with the same attendant, or cancelling. At most one request
// may be open per appointment.
func (s *Service) MarkAttendantUnavailable(ctx context.Context, actor Actor, appointmentID uuid.UUID, reason string) (*UnavailabilityRequest, error) {
	if !roleAllowed(actor.Role, reviewRoles) {
		return nil, &PermissionError{Action: ActionReassign, Role: actor.Role}
	}
	if reason == "" {
		return nil, validationf("reason", "a reason is required")
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !statusIn(appt.Status, ActiveStatuses) {
		return nil, &StateError{Action: ActionReassign, Current: appt.Status, Allowed: ActiveStatuses}
	}

	req := &UnavailabilityRequest{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Reason:        reason,
		Status:        UnavailabilityPending,
	}
	if err := s.repo.CreateUnavailabilityRequest(ctx, req); err != nil {
		return nil, err
	}

	patient, itemName := s.describe(ctx, appt)
	when := fmt.Sprintf("%s at %s", appt.Date.Format("January 02, 2006"), appt.Time.Clock())
	attName := "your attendant"
	if att, err := s.repo.GetAttendantByID(ctx, appt.AttendantID); err == nil {
		attName = att.FullName()
	}

	s.notify(ctx, notify.Notification{
		Type:          notify.TypeAppointment,
		Title:         "Attendant Unavailable",
		Message:       fmt.Sprintf("%s is no longer available for your %s appointment on %s. Please choose: another attendant, a new schedule with the same attendant, or cancellation.", attName, itemName, when),
		AppointmentID: &appt.ID,
		Audience:      notify.ToUser(appt.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, %s is unavailable for your %s appointment on %s. Please log in to choose another attendant, reschedule, or cancel.", patient.FirstName, attName, itemName, when))
	}
	s.logHistory(ctx, HistoryEntry{
		Action:   "mark_unavailable",
		ItemType: "unavailability_request",
		ItemID:   req.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"appointment_id": appointmentID.String(), "reason": reason},
	})
	return req, nil
}

// RespondToUnavailability records the patient's choice and resolves the
// request. choose_another transfers the appointment to the chosen attendant
// after a full conflict check; the other choices direct the patient into the
// regular reschedule or cancellation flow.
func (s *Service) RespondToUnavailability(ctx context.Context, patientID, requestID uuid.UUID, resp UnavailabilityResponse) (*UnavailabilityOutcome, error) {
	req, err := s.repo.GetUnavailabilityRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	appt, err := s.ownedAppointment(ctx, patientID, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if req.Status != UnavailabilityPending {
		return nil, ErrRequestProcessed
	}

	outcome := &UnavailabilityOutcome{Appointment: appt}

	switch resp.Choice {
	case ChooseAnotherAttendant:
		if resp.NewAttendantID == nil {
			return nil, validationf("new_attendant_id", "an attendant must be selected")
		}
		updated, err := s.transferAttendant(ctx, appt, *resp.NewAttendantID)
		if err != nil {
			return nil, err
		}
		outcome.Appointment = updated
	case RescheduleSameAttendant:
		outcome.NextStep = "request_reschedule"
	case CancelAppointment:
		outcome.NextStep = "request_cancellation"
	default:
		return nil, validationf("choice", "choice must be choose_another, reschedule_same or cancel")
	}

	resolved, err := s.repo.ResolveUnavailabilityRequest(ctx, requestID, resp.Choice, s.now())
	if err != nil {
		return nil, err
	}
	outcome.Request = resolved

	_, itemName := s.describe(ctx, outcome.Appointment)
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeAppointment,
		Title:         "Unavailability Resolved",
		Message:       fmt.Sprintf("The patient chose %q for the %s appointment affected by attendant unavailability.", resp.Choice, itemName),
		AppointmentID: &appt.ID,
		Audience:      notify.Broadcast(),
	})
	s.logHistory(ctx, HistoryEntry{
		Action:   "resolve_unavailability",
		ItemType: "unavailability_request",
		ItemID:   resolved.ID,
		ItemName: itemName,
		ActorID:  patientID,
		Details:  map[string]any{"choice": string(resp.Choice), "appointment_id": appt.ID.String()},
	})
	return outcome, nil
}

// ReassignAttendant moves an appointment to a different attendant on staff's
// initiative, with the same validation as a patient-chosen transfer.
func (s *Service) ReassignAttendant(ctx context.Context, actor Actor, appointmentID, newAttendantID uuid.UUID) (*Appointment, error) {
	if !roleAllowed(actor.Role, reviewRoles) {
		return nil, &PermissionError{Action: ActionReassign, Role: actor.Role}
	}
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !statusIn(appt.Status, ActiveStatuses) {
		return nil, &StateError{Action: ActionReassign, Current: appt.Status, Allowed: ActiveStatuses}
	}

	updated, err := s.transferAttendant(ctx, appt, newAttendantID)
	if err != nil {
		return nil, err
	}

	_, itemName := s.describe(ctx, updated)
	s.logHistory(ctx, HistoryEntry{
		Action:   string(ActionReassign),
		ItemType: "appointment",
		ItemID:   updated.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details: map[string]any{
			"previous_attendant_id": appt.AttendantID.String(),
			"new_attendant_id":      newAttendantID.String(),
		},
	})
	return updated, nil
}

// transferAttendant validates the new attendant against the appointment's
// slot and applies the change. The slot lock for the new attendant's slot
// guards against a concurrent booking taking it first.
func (s *Service) transferAttendant(ctx context.Context, appt *Appointment, newAttendantID uuid.UUID) (*Appointment, error) {
	if newAttendantID == appt.AttendantID {
		return nil, validationf("new_attendant_id", "please select a different attendant")
	}
	att, err := s.repo.GetAttendantByID(ctx, newAttendantID)
	if err != nil {
		return nil, err
	}
	if !att.Bookable() {
		return nil, conflictf("attendant_unavailable", "%s cannot be booked, please select another attendant", att.FullName())
	}

	var updated *Appointment
	key := slotKey(appt.Date, appt.Time, att.ID)
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		cand := Candidate{
			Date:           appt.Date,
			Time:           appt.Time,
			Attendant:      att,
			SkipWorkWindow: appt.ProductID != nil,
		}
		if err := s.checker.Check(lockCtx, cand); err != nil {
			return err
		}
		updated, err = s.repo.UpdateAppointmentAttendant(lockCtx, appt.ID, att.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	patient, itemName := s.describe(ctx, updated)
	when := fmt.Sprintf("%s at %s", updated.Date.Format("January 02, 2006"), updated.Time.Clock())

	s.notify(ctx, notify.Notification{
		Type:          notify.TypeAppointment,
		Title:         "Attendant Changed",
		Message:       fmt.Sprintf("Your %s appointment on %s is now with %s.", itemName, when, att.FullName()),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(updated.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, your %s appointment on %s is now with %s.", patient.FirstName, itemName, when, att.FullName()))
	}
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeAppointment,
		Title:         "New Appointment Assigned",
		Message:       fmt.Sprintf("You have been assigned an existing appointment: %s - %s on %s.", displayName(patient), itemName, when),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(att.ID),
	})
	if att.Profile != nil {
		s.sendSMS(ctx, att.Profile.Phone,
			fmt.Sprintf("Hi %s, you have been assigned an appointment: %s - %s on %s.", att.FirstName, displayName(patient), itemName, when))
	}
	return updated, nil
}
