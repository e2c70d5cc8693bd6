package booking

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Tests run against a frozen clock: Monday March 2, 2026, 09:00 UTC.
var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// day returns the civil date offset days from the test clock's date.
func day(offset int) time.Time {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

var weekdaysMonSat = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
}

type testEnv struct {
	repo   *fakeRepo
	locker *fakeLocker
	sink   *fakeSink
	sms    *fakeSMS
	svc    *Service
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	locker := &fakeLocker{}
	sink := &fakeSink{}
	sms := &fakeSMS{}
	svc := NewService(repo, locker, sink, sms, Options{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &testEnv{repo: repo, locker: locker, sink: sink, sms: sms, svc: svc}
}

func (e *testEnv) seedPatient() *Patient {
	p := &Patient{ID: uuid.New(), FirstName: "Maria", LastName: "Santos", Phone: "+639170000001"}
	e.repo.patients[p.ID] = p
	return p
}

func (e *testEnv) seedAttendant(days []time.Weekday, start, end TimeOfDay) *Attendant {
	a := &Attendant{
		ID:        uuid.New(),
		FirstName: "Ana",
		LastName:  "Reyes",
		IsActive:  true,
		Profile: &WorkProfile{
			WorkDays:  days,
			StartTime: start,
			EndTime:   end,
			Phone:     "+639170000002",
		},
	}
	e.repo.attendants[a.ID] = a
	e.repo.attendantOrder = append(e.repo.attendantOrder, a.ID)
	return a
}

func (e *testEnv) seedRoom() *Room {
	r := &Room{ID: uuid.New(), Name: "Treatment Room 1", IsAvailable: true}
	e.repo.rooms[r.ID] = r
	e.repo.roomOrder = append(e.repo.roomOrder, r.ID)
	return r
}

func (e *testEnv) seedService() *CatalogService {
	s := &CatalogService{ID: uuid.New(), Name: "Hydrafacial", Price: 250000}
	e.repo.services[s.ID] = s
	return s
}

func (e *testEnv) seedProduct(stock int) *Product {
	p := &Product{ID: uuid.New(), Name: "Sunscreen SPF50", Price: 85000, Stock: stock}
	e.repo.products[p.ID] = p
	return p
}

func (e *testEnv) seedPackage() *Package {
	p := &Package{ID: uuid.New(), Name: "Facial Package (5 sessions)", Price: 600000, Sessions: 5}
	e.repo.packages[p.ID] = p
	return p
}

func (e *testEnv) seedClosedDay(date time.Time, reason string) {
	e.repo.closedDays[dateKey(date)] = &ClosedDay{ID: uuid.New(), Date: date, Reason: reason}
}

// seedAppointment stores an appointment directly, bypassing the booking flow.
func (e *testEnv) seedAppointment(a *Appointment) *Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.TransactionID == "" {
		a.TransactionID = "TEST" + a.ID.String()[:4]
	}
	cp := *a
	e.repo.appointments[a.ID] = &cp
	return a
}
