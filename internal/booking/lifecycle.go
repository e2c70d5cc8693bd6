package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/notify"
)

// Action is a lifecycle operation on an appointment.
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionNoShow     Action = "no_show"
	ActionReschedule Action = "reschedule"
	ActionReassign   Action = "reassign"
	ActionDelete     Action = "delete"
)

func pastTense(a Action) string {
	switch a {
	case ActionConfirm:
		return "confirmed"
	case ActionComplete:
		return "marked as completed"
	case ActionCancel:
		return "cancelled"
	case ActionNoShow:
		return "marked as no-show"
	case ActionReschedule:
		return "rescheduled"
	case ActionReassign:
		return "reassigned"
	case ActionDelete:
		return "deleted"
	}
	return string(a)
}

type transition struct {
	from  []Status
	to    Status
	roles []Role
}

// transitions is the appointment state machine. Statuses not listed in any
// "from" set (completed, cancelled, no_show) are terminal.
var transitions = map[Action]transition{
	ActionConfirm: {
		from:  []Status{StatusScheduled, StatusPending},
		to:    StatusConfirmed,
		roles: []Role{RoleStaff, RoleAttendant},
	},
	ActionComplete: {
		from:  []Status{StatusConfirmed, StatusApproved},
		to:    StatusCompleted,
		roles: []Role{RoleStaff, RoleAttendant},
	},
	ActionCancel: {
		from:  []Status{StatusScheduled, StatusPending, StatusConfirmed, StatusApproved, StatusRescheduled},
		to:    StatusCancelled,
		roles: []Role{RoleStaff, RoleOwner},
	},
	ActionNoShow: {
		from:  []Status{StatusConfirmed},
		to:    StatusNoShow,
		roles: []Role{RoleStaff},
	},
	ActionReschedule: {
		from:  []Status{StatusScheduled, StatusConfirmed, StatusApproved},
		to:    StatusApproved,
		roles: []Role{RoleStaff, RoleOwner},
	},
}

// stockHeldStatuses are the statuses in which a product order's stock has
// already been deducted and must be returned if the order dies.
var stockHeldStatuses = []Status{StatusConfirmed, StatusApproved}

func roleAllowed(role Role, allowed []Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// authorize checks the actor's role and the current status against the
// transition table.
func authorize(action Action, actor Actor, current Status) (transition, error) {
	rule, ok := transitions[action]
	if !ok {
		return transition{}, fmt.Errorf("unknown action %q", action)
	}
	if !roleAllowed(actor.Role, rule.roles) {
		return transition{}, &PermissionError{Action: action, Role: actor.Role}
	}
	if !statusIn(current, rule.from) {
		return transition{}, &StateError{Action: action, Current: current, Allowed: rule.from}
	}
	return rule, nil
}

func statusIn(s Status, set []Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// ConfirmResult reports a confirmation. StockWarning is set when a product
// order was confirmed against insufficient stock and the deduction was
// clamped at zero.
type ConfirmResult struct {
	Appointment  *Appointment
	StockWarning string
}

// Confirm moves an appointment to confirmed. For product orders this is the
// point where stock is deducted; short stock does not block confirmation but
// is flagged so staff can restock.
func (s *Service) Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*ConfirmResult, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rule, err := authorize(ActionConfirm, actor, appt.Status)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, rule.from, rule.to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition.
			return nil, &StateError{Action: ActionConfirm, Current: appt.Status, Allowed: rule.from}
		}
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}

	res := &ConfirmResult{Appointment: updated}
	if updated.ProductID != nil {
		res.StockWarning = s.deductStock(ctx, updated, actor)
	}

	patient, itemName := s.describe(ctx, updated)
	when := fmt.Sprintf("%s at %s", updated.Date.Format("January 02, 2006"), updated.Time.Clock())

	s.notify(ctx, notify.Notification{
		Type:          notify.TypeConfirmation,
		Title:         "Appointment Confirmed",
		Message:       fmt.Sprintf("Your %s appointment on %s has been confirmed. We look forward to seeing you!", itemName, when),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(updated.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, your %s appointment on %s is confirmed. See you then! Ref: %s", patient.FirstName, itemName, when, updated.TransactionID))
	}

	s.logHistory(ctx, HistoryEntry{
		Action:   string(ActionConfirm),
		ItemType: "appointment",
		ItemID:   updated.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"status": string(updated.Status), "transaction_id": updated.TransactionID},
	})
	return res, nil
}

// Complete marks a confirmed or approved appointment completed. Only allowed
// on the day of the appointment.
func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rule, err := authorize(ActionComplete, actor, appt.Status)
	if err != nil {
		return nil, err
	}
	if !SameDate(appt.Date, DateOf(s.now(), s.loc)) {
		return nil, conflictf("not_today", "appointments can only be marked as completed on the day of the appointment (%s)",
			appt.Date.Format("January 02, 2006"))
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, rule.from, rule.to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &StateError{Action: ActionComplete, Current: appt.Status, Allowed: rule.from}
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	patient, itemName := s.describe(ctx, updated)
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeAppointment,
		Title:         "Appointment Completed",
		Message:       fmt.Sprintf("Your %s appointment has been completed. Thank you for visiting us!", itemName),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(updated.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, thank you for visiting us today! We hope to see you again soon.", patient.FirstName))
	}
	s.logHistory(ctx, HistoryEntry{
		Action:   string(ActionComplete),
		ItemType: "appointment",
		ItemID:   updated.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"status": string(updated.Status)},
	})
	return updated, nil
}

// Cancel cancels an appointment on staff's initiative. A reason is required
// and is kept as an auto-approved cancellation record. Product stock that
// was deducted at confirmation is returned.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, validationf("reason", "a cancellation reason is required")
	}
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rule, err := authorize(ActionCancel, actor, appt.Status)
	if err != nil {
		return nil, err
	}
	prevStatus := appt.Status

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, rule.from, rule.to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &StateError{Action: ActionCancel, Current: appt.Status, Allowed: rule.from}
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	if updated.ProductID != nil && statusIn(prevStatus, stockHeldStatuses) {
		s.restoreStock(ctx, updated, actor, "cancellation")
	}

	record := &CancellationRequest{
		ID:            uuid.New(),
		AppointmentID: updated.ID,
		PatientID:     updated.PatientID,
		Reason:        reason,
		Status:        RequestApproved,
	}
	if err := s.repo.CreateCancellationRequest(ctx, record); err != nil {
		s.log.Warn("cancellation record insert failed", "appointment_id", updated.ID, "error", err)
	}

	patient, itemName := s.describe(ctx, updated)
	when := fmt.Sprintf("%s at %s", updated.Date.Format("January 02, 2006"), updated.Time.Clock())
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeCancellation,
		Title:         "Appointment Cancelled",
		Message:       fmt.Sprintf("Your %s appointment on %s has been cancelled. Reason: %s", itemName, when, reason),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(updated.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, your %s appointment on %s has been cancelled. Reason: %s. Please contact us to rebook.", patient.FirstName, itemName, when, reason))
	}
	s.logHistory(ctx, HistoryEntry{
		Action:   string(ActionCancel),
		ItemType: "appointment",
		ItemID:   updated.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"status": string(updated.Status), "reason": reason, "previous_status": string(prevStatus)},
	})
	return updated, nil
}

// MarkNoShow marks a confirmed appointment as a no-show and returns any
// deducted product stock.
func (s *Service) MarkNoShow(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rule, err := authorize(ActionNoShow, actor, appt.Status)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, rule.from, rule.to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &StateError{Action: ActionNoShow, Current: appt.Status, Allowed: rule.from}
		}
		return nil, fmt.Errorf("mark no-show: %w", err)
	}

	if updated.ProductID != nil {
		s.restoreStock(ctx, updated, actor, "no_show")
	}

	patient, itemName := s.describe(ctx, updated)
	when := fmt.Sprintf("%s at %s", updated.Date.Format("January 02, 2006"), updated.Time.Clock())
	s.notify(ctx, notify.Notification{
		Type:          notify.TypeNoShow,
		Title:         "Missed Appointment",
		Message:       fmt.Sprintf("You missed your %s appointment on %s. Please contact us to rebook.", itemName, when),
		AppointmentID: &updated.ID,
		Audience:      notify.ToUser(updated.PatientID),
	})
	if patient != nil {
		s.sendSMS(ctx, patient.Phone,
			fmt.Sprintf("Hi %s, we missed you at your %s appointment on %s. Please contact us if you would like to rebook.", patient.FirstName, itemName, when))
	}
	s.logHistory(ctx, HistoryEntry{
		Action:   string(ActionNoShow),
		ItemType: "appointment",
		ItemID:   updated.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"status": string(updated.Status)},
	})
	return updated, nil
}

// Delete removes an appointment record entirely. Terminal records only; live
// bookings must be cancelled first so stock and notifications stay
// consistent.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !roleAllowed(actor.Role, []Role{RoleStaff, RoleOwner}) {
		return &PermissionError{Action: ActionDelete, Role: actor.Role}
	}
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}
	terminal := []Status{StatusCompleted, StatusCancelled, StatusNoShow}
	if !statusIn(appt.Status, terminal) {
		return &StateError{Action: ActionDelete, Current: appt.Status, Allowed: terminal}
	}
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	_, itemName := s.describe(ctx, appt)
	s.logHistory(ctx, HistoryEntry{
		Action:   string(ActionDelete),
		ItemType: "appointment",
		ItemID:   appt.ID,
		ItemName: itemName,
		ActorID:  actor.ID,
		Details:  map[string]any{"status": string(appt.Status), "transaction_id": appt.TransactionID},
	})
	return nil
}

// deductStock takes the order quantity out of stock, clamping at zero, and
// returns a warning message when stock was short.
func (s *Service) deductStock(ctx context.Context, appt *Appointment, actor Actor) string {
	qty := appt.Quantity
	if qty < 1 {
		qty = 1
	}
	prev, now, err := s.repo.AdjustProductStock(ctx, *appt.ProductID, -qty)
	if err != nil {
		s.log.Error("stock deduction failed", "product_id", *appt.ProductID, "error", err)
		return ""
	}
	if err := s.repo.InsertStockEntry(ctx, StockEntry{
		ID:            uuid.New(),
		ProductID:     *appt.ProductID,
		Change:        now - prev,
		PreviousStock: prev,
		NewStock:      now,
		Reason:        "order_confirmed",
		ActorID:       actor.ID,
	}); err != nil {
		s.log.Warn("stock entry insert failed", "product_id", *appt.ProductID, "error", err)
	}
	if prev < qty {
		warning := fmt.Sprintf("order confirmed for %d units but only %d were in stock; stock is now 0 and needs restocking", qty, prev)
		s.log.Warn("stock deduction clamped", "product_id", *appt.ProductID, "requested", qty, "available", prev)
		s.notify(ctx, notify.Notification{
			Type:          notify.TypeSystem,
			Title:         "Stock Shortage",
			Message:       warning,
			AppointmentID: &appt.ID,
			Audience:      notify.Broadcast(),
		})
		return warning
	}
	return ""
}

// restoreStock returns an order's quantity to stock after a cancellation or
// no-show.
func (s *Service) restoreStock(ctx context.Context, appt *Appointment, actor Actor, reason string) {
	qty := appt.Quantity
	if qty < 1 {
		qty = 1
	}
	prev, now, err := s.repo.AdjustProductStock(ctx, *appt.ProductID, qty)
	if err != nil {
		s.log.Error("stock restore failed", "product_id", *appt.ProductID, "error", err)
		return
	}
	if err := s.repo.InsertStockEntry(ctx, StockEntry{
		ID:            uuid.New(),
		ProductID:     *appt.ProductID,
		Change:        now - prev,
		PreviousStock: prev,
		NewStock:      now,
		Reason:        reason,
		ActorID:       actor.ID,
	}); err != nil {
		s.log.Warn("stock entry insert failed", "product_id", *appt.ProductID, "error", err)
	}
}

// describe loads the patient and a display name for what was booked. Both
// are best-effort; messages fall back to the booking kind.
func (s *Service) describe(ctx context.Context, appt *Appointment) (*Patient, string) {
	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		s.log.Warn("patient lookup failed", "patient_id", appt.PatientID, "error", err)
		patient = nil
	}

	name := appt.Kind()
	switch {
	case appt.ServiceID != nil:
		if svc, err := s.repo.GetServiceByID(ctx, *appt.ServiceID); err == nil {
			name = svc.Name
		}
	case appt.ProductID != nil:
		if p, err := s.repo.GetProductByID(ctx, *appt.ProductID); err == nil {
			name = p.Name
			if appt.Quantity > 1 {
				name = fmt.Sprintf("%dx %s", appt.Quantity, p.Name)
			}
		}
	case appt.PackageID != nil:
		if pkg, err := s.repo.GetPackageByID(ctx, *appt.PackageID); err == nil {
			name = pkg.Name
		}
	}
	return patient, name
}
