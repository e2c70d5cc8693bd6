package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clinic-wide booking policy. The clinic opens at 10:00 and closes at 18:00;
// the last 45 minutes are reserved for closing procedures, so 17:15 and later
// is never bookable.
const (
	ClosingCutoff = TimeOfDay(17*60 + 15)
	SameDayLead   = 30 * time.Minute
	RestGap       = 60 // minutes between an attendant's appointments
	RescheduleMin = TimeOfDay(10 * 60)
	RescheduleMax = TimeOfDay(17 * 60)
)

// Candidate is a tentative booking to validate.
type Candidate struct {
	Date time.Time
	Time TimeOfDay
	// Attendant must carry its work profile.
	Attendant *Attendant
	RoomID    *uuid.UUID
	// SkipWorkWindow is set for product orders: an attendant is still
	// auto-assigned for pickup handling, but their service schedule does not
	// constrain when a product can be claimed.
	SkipWorkWindow bool
}

// ConflictChecker validates a candidate slot against the closed-day registry,
// clinic time policies, the attendant's work profile and existing bookings.
// Checks run in a fixed order; the first failure is the one reported.
type ConflictChecker struct {
	repo Repository
	now  func() time.Time
	loc  *time.Location
}

func NewConflictChecker(repo Repository, now func() time.Time, loc *time.Location) *ConflictChecker {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ConflictChecker{repo: repo, now: now, loc: loc}
}

func (c *ConflictChecker) Check(ctx context.Context, cand Candidate) error {
	// 1. Closed day.
	closed, err := c.repo.GetClosedDay(ctx, cand.Date)
	if err != nil && !errors.Is(err, ErrClosedDayNotFound) {
		return fmt.Errorf("check closed day: %w", err)
	}
	if closed != nil {
		reason := ""
		if closed.Reason != "" {
			reason = fmt.Sprintf(" (%s)", closed.Reason)
		}
		return conflictf("closed_day", "the clinic is closed on %s%s, please select another date",
			cand.Date.Format("January 02, 2006"), reason)
	}

	// 2. Past time.
	now := c.now()
	when := At(cand.Date, cand.Time, c.loc)
	if !when.After(now) {
		return conflictf("past_time", "cannot book appointments in the past, please select a future date and time")
	}

	// 3. Closing cutoff.
	if cand.Time >= ClosingCutoff {
		return conflictf("closing_cutoff", "booking is not allowed within 45 minutes of closing time, the last available booking time is 05:15 PM")
	}

	// 4. Same-day minimum lead.
	if SameDate(cand.Date, DateOf(now, c.loc)) && when.Sub(now) < SameDayLead {
		return conflictf("same_day_lead", "same-day appointments must be booked at least 30 minutes in advance")
	}

	if cand.Attendant != nil {
		if err := c.checkAttendant(ctx, cand); err != nil {
			return err
		}
	}

	// 6b. Room occupancy.
	if cand.RoomID != nil {
		n, err := c.repo.CountRoomAppointments(ctx, cand.Date, cand.Time, *cand.RoomID, ActiveStatuses)
		if err != nil {
			return fmt.Errorf("count room appointments: %w", err)
		}
		if n >= 1 {
			return conflictf("room_taken", "this room is already booked at %s on %s, please select another room or time",
				cand.Time.Clock(), cand.Date.Format("2006-01-02"))
		}
	}

	return nil
}

func (c *ConflictChecker) checkAttendant(ctx context.Context, cand Candidate) error {
	att := cand.Attendant

	// 5. Work window. The daily end time is inclusive on both the booking
	// path and the availability listing.
	if !cand.SkipWorkWindow {
		if att.Profile == nil || len(att.Profile.WorkDays) == 0 {
			return conflictf("no_schedule", "%s has no work schedule configured, please contact the clinic or select another attendant", att.FullName())
		}
		day := At(cand.Date, cand.Time, c.loc).Weekday()
		if !att.Profile.WorksOn(day) {
			return conflictf("off_day", "%s is not available on %s, please choose another day or attendant", att.FullName(), day)
		}
		if !att.Profile.Covers(cand.Time) {
			return conflictf("off_hours", "appointment time must be between %s and %s for %s",
				att.Profile.StartTime.Clock(), att.Profile.EndTime.Clock(), att.FullName())
		}
	}

	// 6. Slot occupancy: at most one active appointment per (date, time,
	// attendant).
	n, err := c.repo.CountAttendantAppointments(ctx, cand.Date, cand.Time, att.ID, ActiveStatuses)
	if err != nil {
		return fmt.Errorf("count attendant appointments: %w", err)
	}
	if n >= 1 {
		return conflictf("slot_taken", "this time slot (%s) on %s is already fully booked, please choose another time",
			cand.Time.Clock(), cand.Date.Format("2006-01-02"))
	}

	// 7. Rest gap: 60 minutes between any two of the attendant's
	// appointments on the same day, completed ones included.
	others, err := c.repo.ListAttendantDayAppointments(ctx, cand.Date, att.ID, RestGapStatuses)
	if err != nil {
		return fmt.Errorf("list attendant day appointments: %w", err)
	}
	for _, other := range others {
		if other.Time == cand.Time {
			continue
		}
		if cand.Time.MinutesFrom(other.Time) < RestGap {
			return conflictf("rest_gap", "this time slot is too close to another appointment, attendants require at least 1 hour between appointments, please select a time at least 1 hour away from %s",
				other.Time.Clock())
		}
	}

	return nil
}
