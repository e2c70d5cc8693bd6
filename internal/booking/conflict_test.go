package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireConflict(t *testing.T, err error, rule string) {
	t.Helper()
	ce, ok := asConflict(err)
	require.True(t, ok, "expected a conflict error, got %v", err)
	assert.Equal(t, rule, ce.Rule)
}

func TestConflictChecker_PolicyRules(t *testing.T) {
	env := newTestEnv()
	checker := NewConflictChecker(env.repo, func() time.Time { return testNow }, time.UTC)
	env.seedClosedDay(day(3), "Maintenance")

	tests := []struct {
		name string
		date time.Time
		time TimeOfDay
		rule string
	}{
		{"closed day", day(3), MustTimeOfDay("14:00"), "closed_day"},
		{"past date", day(-1), MustTimeOfDay("14:00"), "past_time"},
		{"past time today", day(0), MustTimeOfDay("08:00"), "past_time"},
		{"at closing cutoff", day(1), MustTimeOfDay("17:15"), "closing_cutoff"},
		{"after closing cutoff", day(1), MustTimeOfDay("17:30"), "closing_cutoff"},
		{"same day short lead", day(0), MustTimeOfDay("09:20"), "same_day_lead"},
		{"last bookable time", day(1), MustTimeOfDay("17:14"), ""},
		{"same day with enough lead", day(0), MustTimeOfDay("09:30"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checker.Check(context.Background(), Candidate{Date: tt.date, Time: tt.time})
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			requireConflict(t, err, tt.rule)
		})
	}
}

func TestConflictChecker_ClosedDayReportedFirst(t *testing.T) {
	env := newTestEnv()
	checker := NewConflictChecker(env.repo, func() time.Time { return testNow }, time.UTC)

	// A closed day in the past violates two rules; the closed-day check runs
	// first.
	env.seedClosedDay(day(-2), "Holiday")
	err := checker.Check(context.Background(), Candidate{Date: day(-2), Time: MustTimeOfDay("14:00")})
	requireConflict(t, err, "closed_day")
}

func TestConflictChecker_WorkWindow(t *testing.T) {
	env := newTestEnv()
	checker := NewConflictChecker(env.repo, func() time.Time { return testNow }, time.UTC)
	att := env.seedAttendant([]time.Weekday{time.Monday, time.Tuesday}, MustTimeOfDay("10:00"), MustTimeOfDay("16:00"))

	t.Run("off day", func(t *testing.T) {
		// day(2) is a Wednesday.
		err := checker.Check(context.Background(), Candidate{Date: day(2), Time: MustTimeOfDay("11:00"), Attendant: att})
		requireConflict(t, err, "off_day")
	})

	t.Run("before window", func(t *testing.T) {
		err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("09:30"), Attendant: att})
		requireConflict(t, err, "off_hours")
	})

	t.Run("window end is inclusive", func(t *testing.T) {
		err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("16:00"), Attendant: att})
		assert.NoError(t, err)
	})

	t.Run("after window", func(t *testing.T) {
		err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("16:30"), Attendant: att})
		requireConflict(t, err, "off_hours")
	})

	t.Run("no profile", func(t *testing.T) {
		bare := &Attendant{ID: uuid.New(), FirstName: "Lea", LastName: "Cruz", IsActive: true}
		err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("11:00"), Attendant: bare})
		requireConflict(t, err, "no_schedule")
	})

	t.Run("product order skips the window", func(t *testing.T) {
		err := checker.Check(context.Background(), Candidate{Date: day(2), Time: MustTimeOfDay("16:30"), Attendant: att, SkipWorkWindow: true})
		assert.NoError(t, err)
	})
}

func TestConflictChecker_SlotOccupancy(t *testing.T) {
	env := newTestEnv()
	checker := NewConflictChecker(env.repo, func() time.Time { return testNow }, time.UTC)
	att := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	patient := env.seedPatient()
	svc := env.seedService()

	env.seedAppointment(&Appointment{
		Date:        day(1),
		Time:        MustTimeOfDay("14:00"),
		Status:      StatusConfirmed,
		PatientID:   patient.ID,
		AttendantID: att.ID,
		ServiceID:   &svc.ID,
	})

	t.Run("same slot rejected", func(t *testing.T) {
		err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("14:00"), Attendant: att})
		requireConflict(t, err, "slot_taken")
	})

	t.Run("cancelled appointments do not occupy", func(t *testing.T) {
		env.seedAppointment(&Appointment{
			Date:        day(1),
			Time:        MustTimeOfDay("10:00"),
			Status:      StatusCancelled,
			PatientID:   patient.ID,
			AttendantID: att.ID,
			ServiceID:   &svc.ID,
		})
		err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("10:00"), Attendant: att})
		assert.NoError(t, err)
	})
}

func TestConflictChecker_RestGap(t *testing.T) {
	env := newTestEnv()
	checker := NewConflictChecker(env.repo, func() time.Time { return testNow }, time.UTC)
	att := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	patient := env.seedPatient()
	svc := env.seedService()

	env.seedAppointment(&Appointment{
		Date:        day(1),
		Time:        MustTimeOfDay("14:00"),
		Status:      StatusScheduled,
		PatientID:   patient.ID,
		AttendantID: att.ID,
		ServiceID:   &svc.ID,
	})

	tests := []struct {
		name string
		time TimeOfDay
		rule string
	}{
		{"30 minutes after", MustTimeOfDay("14:30"), "rest_gap"},
		{"30 minutes before", MustTimeOfDay("13:30"), "rest_gap"},
		{"exactly one hour after", MustTimeOfDay("15:00"), ""},
		{"well clear", MustTimeOfDay("16:30"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checker.Check(context.Background(), Candidate{Date: day(1), Time: tt.time, Attendant: att})
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			requireConflict(t, err, tt.rule)
		})
	}

	t.Run("completed appointments still block", func(t *testing.T) {
		env.seedAppointment(&Appointment{
			Date:        day(1),
			Time:        MustTimeOfDay("11:00"),
			Status:      StatusCompleted,
			PatientID:   patient.ID,
			AttendantID: att.ID,
			ServiceID:   &svc.ID,
		})
		err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("11:30"), Attendant: att})
		requireConflict(t, err, "rest_gap")
	})
}

func TestConflictChecker_RoomOccupancy(t *testing.T) {
	env := newTestEnv()
	checker := NewConflictChecker(env.repo, func() time.Time { return testNow }, time.UTC)
	att := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	other := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	room := env.seedRoom()
	patient := env.seedPatient()
	svc := env.seedService()

	env.seedAppointment(&Appointment{
		Date:        day(1),
		Time:        MustTimeOfDay("14:00"),
		Status:      StatusScheduled,
		PatientID:   patient.ID,
		AttendantID: other.ID,
		ServiceID:   &svc.ID,
		RoomID:      &room.ID,
	})

	err := checker.Check(context.Background(), Candidate{Date: day(1), Time: MustTimeOfDay("14:00"), Attendant: att, RoomID: &room.ID})
	requireConflict(t, err, "room_taken")
}

func TestDaySchedule(t *testing.T) {
	env := newTestEnv()
	att := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	patient := env.seedPatient()
	svc := env.seedService()

	for _, minutes := range []int{600, 630, 660, 690, 720} {
		env.repo.slots = append(env.repo.slots, TimeSlot{ID: uuid.New(), Time: TimeOfDay(minutes), IsActive: true})
	}
	// 17:30 is past the closing cutoff and never listed.
	env.repo.slots = append(env.repo.slots, TimeSlot{ID: uuid.New(), Time: MustTimeOfDay("17:30"), IsActive: true})

	env.seedAppointment(&Appointment{
		Date:        day(1),
		Time:        MustTimeOfDay("10:30"),
		Status:      StatusConfirmed,
		PatientID:   patient.ID,
		AttendantID: att.ID,
		ServiceID:   &svc.ID,
	})

	open, err := env.svc.DaySchedule(context.Background(), day(1), att.ID)
	require.NoError(t, err)

	// 10:30 is taken; 10:00 and 11:00 fall inside its rest gap.
	assert.Equal(t, []TimeOfDay{MustTimeOfDay("11:30"), MustTimeOfDay("12:00")}, open)
}
