// Package reminders sends upcoming-appointment SMS reminders. Each
// appointment gets at most one reminder per kind; sent reminders are
// recorded so reruns and overlapping workers stay idempotent.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/booking"
	"github.com/glowclinic/scheduling/internal/notify"
)

type Kind string

const (
	KindTwoDay  Kind = "two_day"
	KindOneDay  Kind = "one_day"
	KindOneHour Kind = "one_hour"
)

// oneHourWindow is how far ahead the one-hour pass looks. Wider than an
// hour so a late worker run does not silently skip reminders.
const oneHourWindow = 65 * time.Minute

// ErrAlreadySent is returned by MarkSent when a reminder of the same kind
// was already recorded for the appointment.
var ErrAlreadySent = errors.New("reminder already sent")

// Due is one appointment eligible for a reminder, with everything needed to
// compose the message.
type Due struct {
	AppointmentID uuid.UUID
	TransactionID string
	Date          time.Time
	Time          booking.TimeOfDay
	PatientName   string
	PatientPhone  string
	ItemName      string
}

type Repository interface {
	// ListForDate returns confirmed and approved appointments on the date.
	ListForDate(ctx context.Context, date time.Time) ([]Due, error)
	// ListBetween returns confirmed and approved appointments whose start
	// falls in [from, to).
	ListBetween(ctx context.Context, from, to time.Time) ([]Due, error)
	// MarkSent records a sent reminder; ErrAlreadySent if one exists.
	MarkSent(ctx context.Context, appointmentID uuid.UUID, kind Kind, at time.Time) error
}

type Service struct {
	repo Repository
	sms  notify.SMSSender
	log  *slog.Logger
	loc  *time.Location
	now  func() time.Time
}

type Options struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

func NewService(repo Repository, sms notify.SMSSender, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sms: sms, log: logger, loc: loc, now: now}
}

// Result counts one run's outcomes across all reminder kinds.
type Result struct {
	Sent    int
	Skipped int
	Failed  int
}

// Run executes all three reminder passes.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var total Result
	for _, kind := range []Kind{KindTwoDay, KindOneDay, KindOneHour} {
		res, err := s.RunKind(ctx, kind)
		total.Sent += res.Sent
		total.Skipped += res.Skipped
		total.Failed += res.Failed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RunKind executes one reminder pass.
func (s *Service) RunKind(ctx context.Context, kind Kind) (Result, error) {
	now := s.now()
	today := booking.DateOf(now, s.loc)

	var due []Due
	var err error
	switch kind {
	case KindTwoDay:
		due, err = s.repo.ListForDate(ctx, today.AddDate(0, 0, 2))
	case KindOneDay:
		due, err = s.repo.ListForDate(ctx, today.AddDate(0, 0, 1))
	case KindOneHour:
		due, err = s.repo.ListBetween(ctx, now, now.Add(oneHourWindow))
	default:
		return Result{}, fmt.Errorf("unknown reminder kind %q", kind)
	}
	if err != nil {
		return Result{}, fmt.Errorf("list %s reminders: %w", kind, err)
	}
	return s.sendAll(ctx, kind, due), nil
}

func (s *Service) sendAll(ctx context.Context, kind Kind, due []Due) Result {
	var res Result
	for _, d := range due {
		// Claim before sending so two overlapping runs cannot both text the
		// patient. A failed send after a claim is logged for manual follow-up.
		err := s.repo.MarkSent(ctx, d.AppointmentID, kind, s.now())
		if err != nil {
			if errors.Is(err, ErrAlreadySent) {
				res.Skipped++
				continue
			}
			s.log.Error("reminder claim failed", "appointment_id", d.AppointmentID, "kind", kind, "error", err)
			res.Failed++
			continue
		}

		if err := s.sms.Send(ctx, d.PatientPhone, s.message(kind, d)); err != nil {
			s.log.Error("reminder send failed", "appointment_id", d.AppointmentID, "kind", kind, "error", err)
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res
}

func (s *Service) message(kind Kind, d Due) string {
	when := fmt.Sprintf("%s at %s", d.Date.Format("January 02, 2006"), d.Time.Clock())
	switch kind {
	case KindTwoDay:
		return fmt.Sprintf("Hi %s, a reminder that your %s appointment is in 2 days, on %s. Ref: %s", d.PatientName, d.ItemName, when, d.TransactionID)
	case KindOneDay:
		return fmt.Sprintf("Hi %s, your %s appointment is tomorrow, %s. See you then! Ref: %s", d.PatientName, d.ItemName, when, d.TransactionID)
	case KindOneHour:
		return fmt.Sprintf("Hi %s, your %s appointment is in about an hour, at %s today. Ref: %s", d.PatientName, d.ItemName, d.Time.Clock(), d.TransactionID)
	}
	return fmt.Sprintf("Hi %s, a reminder about your %s appointment on %s. Ref: %s", d.PatientName, d.ItemName, when, d.TransactionID)
}
