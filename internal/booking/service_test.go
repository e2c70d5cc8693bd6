package booking

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var txidPattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestBookService(t *testing.T) {
	t.Run("happy path with auto-assignment", func(t *testing.T) {
		env := newTestEnv()
		patient := env.seedPatient()
		att := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
		room := env.seedRoom()
		svc := env.seedService()

		appt, err := env.svc.BookService(context.Background(), BookServiceInput{
			PatientID: patient.ID,
			ServiceID: svc.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
		})
		require.NoError(t, err)

		assert.Equal(t, StatusScheduled, appt.Status)
		assert.Equal(t, att.ID, appt.AttendantID)
		require.NotNil(t, appt.RoomID)
		assert.Equal(t, room.ID, *appt.RoomID)
		assert.Regexp(t, txidPattern, appt.TransactionID)

		// Lock covers the slot being booked.
		require.Len(t, env.locker.keys, 1)
		assert.Equal(t, fmt.Sprintf("slot:%s:14:00:%s", day(1).Format("2006-01-02"), att.ID), env.locker.keys[0])

		titles := env.sink.titles()
		assert.Contains(t, titles, "Appointment Scheduled")
		assert.Contains(t, titles, "New Appointment Booked")
		assert.Contains(t, titles, "New Appointment Assigned")
		assert.Len(t, env.sms.messages, 2)
		assert.Contains(t, env.repo.historyActions(), "book")
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.BookService(context.Background(), BookServiceInput{})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("unknown service", func(t *testing.T) {
		env := newTestEnv()
		env.seedPatient()
		_, err := env.svc.BookService(context.Background(), BookServiceInput{
			PatientID: uuid.New(),
			ServiceID: uuid.New(),
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
		})
		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("no attendants", func(t *testing.T) {
		env := newTestEnv()
		patient := env.seedPatient()
		svc := env.seedService()
		env.seedRoom()

		_, err := env.svc.BookService(context.Background(), BookServiceInput{
			PatientID: patient.ID,
			ServiceID: svc.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
		})
		requireConflict(t, err, "no_attendants")
	})

	t.Run("inactive explicit attendant", func(t *testing.T) {
		env := newTestEnv()
		patient := env.seedPatient()
		env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
		inactive := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
		inactive.IsActive = false
		env.seedRoom()
		svc := env.seedService()

		_, err := env.svc.BookService(context.Background(), BookServiceInput{
			PatientID:   patient.ID,
			ServiceID:   svc.ID,
			Date:        day(1).Format("2006-01-02"),
			Time:        "14:00",
			AttendantID: &inactive.ID,
		})
		requireConflict(t, err, "attendant_inactive")
	})

	t.Run("explicit attendant off that day", func(t *testing.T) {
		env := newTestEnv()
		patient := env.seedPatient()
		env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
		// day(1) is a Tuesday; this attendant only works Mondays.
		offDay := env.seedAttendant([]time.Weekday{time.Monday}, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
		env.seedRoom()
		svc := env.seedService()

		_, err := env.svc.BookService(context.Background(), BookServiceInput{
			PatientID:   patient.ID,
			ServiceID:   svc.ID,
			Date:        day(1).Format("2006-01-02"),
			Time:        "14:00",
			AttendantID: &offDay.ID,
		})
		requireConflict(t, err, "attendant_unavailable")
	})

	t.Run("contended slot", func(t *testing.T) {
		env := newTestEnv()
		patient := env.seedPatient()
		env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
		env.seedRoom()
		svc := env.seedService()
		env.locker.contended = true

		_, err := env.svc.BookService(context.Background(), BookServiceInput{
			PatientID: patient.ID,
			ServiceID: svc.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
		})
		assert.ErrorIs(t, err, ErrSlotContended)
	})

	t.Run("transaction id re-rolls on collision", func(t *testing.T) {
		env := newTestEnv()
		patient := env.seedPatient()
		env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
		env.seedRoom()
		svc := env.seedService()
		env.repo.txidTakenOnce = true

		appt, err := env.svc.BookService(context.Background(), BookServiceInput{
			PatientID: patient.ID,
			ServiceID: svc.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
		})
		require.NoError(t, err)
		assert.Regexp(t, txidPattern, appt.TransactionID)
	})
}

func TestBookPackage(t *testing.T) {
	env := newTestEnv()
	patient := env.seedPatient()
	att := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	pkg := env.seedPackage()

	appt, err := env.svc.BookPackage(context.Background(), BookPackageInput{
		PatientID: patient.ID,
		PackageID: pkg.ID,
		Date:      day(1).Format("2006-01-02"),
		Time:      "11:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "package", appt.Kind())
	assert.Equal(t, att.ID, appt.AttendantID)
	assert.Nil(t, appt.RoomID)
}

func TestBookProduct(t *testing.T) {
	setup := func(stock int) (*testEnv, *Patient, *Product) {
		env := newTestEnv()
		patient := env.seedPatient()
		env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("16:00"))
		product := env.seedProduct(stock)
		return env, patient, product
	}

	t.Run("happy path", func(t *testing.T) {
		env, patient, product := setup(10)
		appt, err := env.svc.BookProduct(context.Background(), BookProductInput{
			PatientID: patient.ID,
			ProductID: product.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
			Quantity:  3,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, appt.Quantity)
		// Stock is only deducted at confirmation.
		assert.Equal(t, 10, env.repo.products[product.ID].Stock)
	})

	t.Run("pickup outside the attendant's hours", func(t *testing.T) {
		env, patient, product := setup(10)
		_, err := env.svc.BookProduct(context.Background(), BookProductInput{
			PatientID: patient.ID,
			ProductID: product.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "16:30",
			Quantity:  1,
		})
		assert.NoError(t, err)
	})

	t.Run("out of stock", func(t *testing.T) {
		env, patient, product := setup(0)
		_, err := env.svc.BookProduct(context.Background(), BookProductInput{
			PatientID: patient.ID,
			ProductID: product.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
			Quantity:  1,
		})
		requireConflict(t, err, "out_of_stock")
	})

	t.Run("quantity over stock", func(t *testing.T) {
		env, patient, product := setup(2)
		_, err := env.svc.BookProduct(context.Background(), BookProductInput{
			PatientID: patient.ID,
			ProductID: product.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
			Quantity:  5,
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "quantity", ve.Field)
	})

	t.Run("quantity must be positive", func(t *testing.T) {
		env, patient, product := setup(2)
		_, err := env.svc.BookProduct(context.Background(), BookProductInput{
			PatientID: patient.ID,
			ProductID: product.ID,
			Date:      day(1).Format("2006-01-02"),
			Time:      "14:00",
			Quantity:  0,
		})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestBookService_SlotAlreadyTaken(t *testing.T) {
	env := newTestEnv()
	patient := env.seedPatient()
	env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	env.seedRoom()
	svc := env.seedService()

	in := BookServiceInput{
		PatientID: patient.ID,
		ServiceID: svc.ID,
		Date:      day(1).Format("2006-01-02"),
		Time:      "14:00",
	}
	_, err := env.svc.BookService(context.Background(), in)
	require.NoError(t, err)

	_, err = env.svc.BookService(context.Background(), in)
	requireConflict(t, err, "slot_taken")
}

func TestListPatientAppointments_Limits(t *testing.T) {
	env := newTestEnv()
	patient := env.seedPatient()
	svc := env.seedService()
	for i := 0; i < 3; i++ {
		env.seedAppointment(&Appointment{
			Date:        day(i + 1),
			Time:        MustTimeOfDay("14:00"),
			Status:      StatusScheduled,
			PatientID:   patient.ID,
			AttendantID: uuid.New(),
			ServiceID:   &svc.ID,
		})
	}

	got, err := env.svc.ListPatientAppointments(context.Background(), patient.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Zero and negative inputs fall back to defaults.
	got, err = env.svc.ListPatientAppointments(context.Background(), patient.ID, 0, -5)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestAvailableAttendants_Filtering(t *testing.T) {
	env := newTestEnv()
	env.seedAttendant([]time.Weekday{time.Monday}, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	short := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("12:00"))
	inactive := env.seedAttendant(weekdaysMonSat, MustTimeOfDay("10:00"), MustTimeOfDay("18:00"))
	inactive.IsActive = false

	date := day(1) // Tuesday
	tod := MustTimeOfDay("11:00")

	got, err := env.svc.AvailableAttendants(context.Background(), &date, &tod)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, short.ID, got[0].ID)

	// Later in the day the short-shift attendant drops out too.
	late := MustTimeOfDay("14:00")
	got, err = env.svc.AvailableAttendants(context.Background(), &date, &late)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Without filters every bookable attendant is listed.
	got, err = env.svc.AvailableAttendants(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
