package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AvailableAttendants lists bookable attendants, optionally narrowed to
// those working the given date and time. An attendant with a broken or
// missing profile is simply excluded rather than failing the listing.
func (s *Service) AvailableAttendants(ctx context.Context, date *time.Time, t *TimeOfDay) ([]Attendant, error) {
	all, err := s.repo.ListActiveAttendants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active attendants: %w", err)
	}

	out := make([]Attendant, 0, len(all))
	for _, att := range all {
		if !att.Bookable() {
			continue
		}
		if date != nil && !att.Profile.WorksOn(date.Weekday()) {
			continue
		}
		if t != nil && !att.Profile.Covers(*t) {
			continue
		}
		out = append(out, att)
	}
	return out, nil
}

// AvailableRooms lists rooms open for booking.
func (s *Service) AvailableRooms(ctx context.Context) ([]Room, error) {
	return s.repo.ListAvailableRooms(ctx)
}

// ActiveTimeSlots lists the bookable times of day, excluding any at or past
// the closing cutoff.
func (s *Service) ActiveTimeSlots(ctx context.Context) ([]TimeSlot, error) {
	slots, err := s.repo.ListActiveTimeSlots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Time >= ClosingCutoff {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// ClosedDays lists the closed-day registry.
func (s *Service) ClosedDays(ctx context.Context) ([]ClosedDay, error) {
	return s.repo.ListClosedDays(ctx)
}

// DaySchedule reports which times remain open for an attendant on a date:
// every active slot that passes the full conflict check.
func (s *Service) DaySchedule(ctx context.Context, date time.Time, attendantID uuid.UUID) ([]TimeOfDay, error) {
	att, err := s.repo.GetAttendantByID(ctx, attendantID)
	if err != nil {
		return nil, err
	}
	slots, err := s.ActiveTimeSlots(ctx)
	if err != nil {
		return nil, err
	}

	open := make([]TimeOfDay, 0, len(slots))
	for _, slot := range slots {
		cand := Candidate{Date: date, Time: slot.Time, Attendant: att}
		if err := s.checker.Check(ctx, cand); err != nil {
			if _, conflict := asConflict(err); conflict {
				continue
			}
			return nil, err
		}
		open = append(open, slot.Time)
	}
	return open, nil
}

func asConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
