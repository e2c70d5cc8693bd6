package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/notify"
	redisclient "github.com/glowclinic/scheduling/internal/redis"
)

var (
	errLockHeld = redisclient.ErrLockNotAcquired
	errSMSDown  = errors.New("sms gateway down")
)

// fakeRepo is an in-memory Repository with the same conditional-update and
// unique-index semantics as the Postgres implementation.
type fakeRepo struct {
	mu sync.Mutex

	patients   map[uuid.UUID]*Patient
	attendants map[uuid.UUID]*Attendant
	rooms      map[uuid.UUID]*Room
	slots      []TimeSlot
	closedDays map[string]*ClosedDay
	services   map[uuid.UUID]*CatalogService
	products   map[uuid.UUID]*Product
	packages   map[uuid.UUID]*Package

	appointments  map[uuid.UUID]*Appointment
	cancellations map[uuid.UUID]*CancellationRequest
	reschedules   map[uuid.UUID]*RescheduleRequest
	unavail       map[uuid.UUID]*UnavailabilityRequest
	stockEntries  []StockEntry
	history       []HistoryEntry

	attendantOrder []uuid.UUID
	roomOrder      []uuid.UUID

	// txidTakenOnce makes the first TransactionIDExists call report a
	// collision, forcing a re-roll.
	txidTakenOnce bool
	usedTxids     map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:      map[uuid.UUID]*Patient{},
		attendants:    map[uuid.UUID]*Attendant{},
		rooms:         map[uuid.UUID]*Room{},
		closedDays:    map[string]*ClosedDay{},
		services:      map[uuid.UUID]*CatalogService{},
		products:      map[uuid.UUID]*Product{},
		packages:      map[uuid.UUID]*Package{},
		appointments:  map[uuid.UUID]*Appointment{},
		cancellations: map[uuid.UUID]*CancellationRequest{},
		reschedules:   map[uuid.UUID]*RescheduleRequest{},
		unavail:       map[uuid.UUID]*UnavailabilityRequest{},
		usedTxids:     map[string]bool{},
	}
}

func dateKey(d time.Time) string { return d.Format("2006-01-02") }

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetAttendantByID(_ context.Context, id uuid.UUID) (*Attendant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attendants[id]
	if !ok {
		return nil, ErrAttendantNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListActiveAttendants(_ context.Context) ([]Attendant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Attendant
	for _, id := range f.attendantOrder {
		if a := f.attendants[id]; a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetRoomByID(_ context.Context, id uuid.UUID) (*Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) ListAvailableRooms(_ context.Context) ([]Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Room
	for _, id := range f.roomOrder {
		if r := f.rooms[id]; r.IsAvailable {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListActiveTimeSlots(_ context.Context) ([]TimeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []TimeSlot
	for _, s := range f.slots {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetClosedDay(_ context.Context, date time.Time) (*ClosedDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cd, ok := f.closedDays[dateKey(date)]
	if !ok {
		return nil, ErrClosedDayNotFound
	}
	cp := *cd
	return &cp, nil
}

func (f *fakeRepo) ListClosedDays(_ context.Context) ([]ClosedDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ClosedDay
	for _, cd := range f.closedDays {
		out = append(out, *cd)
	}
	return out, nil
}

func (f *fakeRepo) GetServiceByID(_ context.Context, id uuid.UUID) (*CatalogService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) GetProductByID(_ context.Context, id uuid.UUID) (*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetPackageByID(_ context.Context, id uuid.UUID) (*Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[id]
	if !ok {
		return nil, ErrPackageNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) CountAttendantAppointments(_ context.Context, date time.Time, t TimeOfDay, attendantID uuid.UUID, statuses []Status) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.appointments {
		if SameDate(a.Date, date) && a.Time == t && a.AttendantID == attendantID && statusIn(a.Status, statuses) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CountRoomAppointments(_ context.Context, date time.Time, t TimeOfDay, roomID uuid.UUID, statuses []Status) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.appointments {
		if SameDate(a.Date, date) && a.Time == t && a.RoomID != nil && *a.RoomID == roomID && statusIn(a.Status, statuses) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ListAttendantDayAppointments(_ context.Context, date time.Time, attendantID uuid.UUID, statuses []Status) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appointments {
		if SameDate(a.Date, date) && a.AttendantID == attendantID && statusIn(a.Status, statuses) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.appointments {
		if SameDate(other.Date, a.Date) && other.Time == a.Time && other.AttendantID == a.AttendantID && statusIn(other.Status, ActiveStatuses) {
			return ErrSlotTaken
		}
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.usedTxids[a.TransactionID] = true
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || !statusIn(a.Status, from) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) UpdateAppointmentSchedule(_ context.Context, id uuid.UUID, newDate time.Time, newTime TimeOfDay, from []Status, to Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || !statusIn(a.Status, from) {
		return nil, ErrAppointmentNotFound
	}
	a.Date = newDate
	a.Time = newTime
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) UpdateAppointmentAttendant(_ context.Context, id, attendantID uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.AttendantID = attendantID
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(f.appointments, id)
	return nil
}

func (f *fakeRepo) TransactionIDExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txidTakenOnce {
		f.txidTakenOnce = false
		return true, nil
	}
	return f.usedTxids[code], nil
}

func (f *fakeRepo) AdjustProductStock(_ context.Context, productID uuid.UUID, delta int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return 0, 0, ErrProductNotFound
	}
	prev := p.Stock
	next := prev + delta
	if next < 0 {
		next = 0
	}
	p.Stock = next
	return prev, next, nil
}

func (f *fakeRepo) InsertStockEntry(_ context.Context, e StockEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockEntries = append(f.stockEntries, e)
	return nil
}

func (f *fakeRepo) CreateCancellationRequest(_ context.Context, r *CancellationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.cancellations[r.ID] = &cp
	return nil
}

func (f *fakeRepo) GetCancellationRequestByID(_ context.Context, id uuid.UUID) (*CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.cancellations[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) GetPendingCancellationForAppointment(_ context.Context, appointmentID uuid.UUID) (*CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.cancellations {
		if r.AppointmentID == appointmentID && r.Status == RequestPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrRequestNotFound
}

func (f *fakeRepo) UpdateCancellationRequestStatus(_ context.Context, id uuid.UUID, from, to RequestStatus) (*CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.cancellations[id]
	if !ok || r.Status != from {
		return nil, ErrRequestNotFound
	}
	r.Status = to
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) CreateRescheduleRequest(_ context.Context, r *RescheduleRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.reschedules[r.ID] = &cp
	return nil
}

func (f *fakeRepo) GetRescheduleRequestByID(_ context.Context, id uuid.UUID) (*RescheduleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reschedules[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) GetPendingRescheduleForAppointment(_ context.Context, appointmentID uuid.UUID) (*RescheduleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reschedules {
		if r.AppointmentID == appointmentID && r.Status == RequestPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrRequestNotFound
}

func (f *fakeRepo) UpdateRescheduleRequestStatus(_ context.Context, id uuid.UUID, from, to RequestStatus) (*RescheduleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reschedules[id]
	if !ok || r.Status != from {
		return nil, ErrRequestNotFound
	}
	r.Status = to
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) CreateUnavailabilityRequest(_ context.Context, r *UnavailabilityRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.unavail {
		if other.AppointmentID == r.AppointmentID && other.Status == UnavailabilityPending {
			return ErrUnavailabilityPending
		}
	}
	cp := *r
	f.unavail[r.ID] = &cp
	return nil
}

func (f *fakeRepo) GetUnavailabilityRequestByID(_ context.Context, id uuid.UUID) (*UnavailabilityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.unavail[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) GetPendingUnavailabilityForAppointment(_ context.Context, appointmentID uuid.UUID) (*UnavailabilityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.unavail {
		if r.AppointmentID == appointmentID && r.Status == UnavailabilityPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrRequestNotFound
}

func (f *fakeRepo) ResolveUnavailabilityRequest(_ context.Context, id uuid.UUID, choice PatientChoice, at time.Time) (*UnavailabilityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.unavail[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.Status != UnavailabilityPending {
		return nil, ErrRequestProcessed
	}
	r.Status = UnavailabilityResolved
	r.PatientChoice = choice
	r.ResolvedAt = &at
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) InsertHistory(_ context.Context, e HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, e)
	return nil
}

func (f *fakeRepo) historyActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.history {
		out = append(out, e.Action)
	}
	return out
}

// fakeLocker runs the critical section inline; contended simulates a held
// lock.
type fakeLocker struct {
	mu        sync.Mutex
	keys      []string
	contended bool
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	contended := l.contended
	l.mu.Unlock()
	if contended {
		return errLockHeld
	}
	return fn(ctx)
}

// fakeSink records notifications.
type fakeSink struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (s *fakeSink) Create(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return nil
}

func (s *fakeSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.notes {
		out = append(out, n.Title)
	}
	return out
}

func (s *fakeSink) find(title string) (notify.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.Title == title {
			return n, true
		}
	}
	return notify.Notification{}, false
}

// fakeSMS records outbound texts.
type fakeSMS struct {
	mu       sync.Mutex
	messages []string
	phones   []string
	fail     bool
}

func (s *fakeSMS) Send(_ context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errSMSDown
	}
	s.phones = append(s.phones, phone)
	s.messages = append(s.messages, message)
	return nil
}
