package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coachsite/internal/events"
	"coachsite/internal/metrics"
	"coachsite/internal/model"
	"coachsite/internal/repository"
	"coachsite/internal/slots"
	"coachsite/internal/validation"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrSessionNotFound   = errors.New("wizard session not found")
	ErrSlotTaken         = errors.New("time slot is already booked")
)

// ValidationError names the step input that failed a guard.
type ValidationError = validation.Error

// BookingStore persists bookings created by the wizard.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *model.Booking) error
	IsSlotBooked(ctx context.Context, date, timeSlot string) (bool, error)
}

// ContactDetails is the input of the contact step.
type ContactDetails struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Phone   string `json:"phone" validate:"max=50"`
	Company string `json:"company" validate:"max=200"`
	Message string `json:"message" validate:"max=5000"`
}

// Confirmation is what the last step shows.
type Confirmation struct {
	BookingID int64  `json:"booking_id"`
	Service   string `json:"service"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID           string        `json:"id"`
	State        State         `json:"state"`
	Step         int           `json:"step"`
	Data         Data          `json:"data"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Options configures a Wizard.
type Options struct {
	Schedule             slots.Schedule
	TimezoneLabel        string
	// Timezone, when set, is read for every confirmation; an empty result falls back to TimezoneLabel.
	Timezone             func() string
	PreventDoubleBooking bool
	Now                  func() time.Time
}

// Wizard drives booking sessions through the FSM.
type Wizard struct {
	fsm       *FSM
	sessions  *SessionStore
	catalog   *Catalog
	bookings  BookingStore
	publisher events.Publisher
	logger    zerolog.Logger
	opts      Options
	slotLocks slotLocks
}

// NewWizard wires a wizard. publisher may be nil.
func NewWizard(sessions *SessionStore, catalog *Catalog, bookings BookingStore, publisher events.Publisher, opts Options, logger *zerolog.Logger) *Wizard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TimezoneLabel == "" {
		opts.TimezoneLabel = "EST"
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Wizard{
		fsm:       NewFSM(),
		sessions:  sessions,
		catalog:   catalog,
		bookings:  bookings,
		publisher: publisher,
		logger:    logger.With().Str("component", "booking_wizard").Logger(),
		opts:      opts,
		slotLocks: slotLocks{held: make(map[string]*slotLock)},
	}
}

// Catalog returns the services offered by the wizard.
func (w *Wizard) Catalog() *Catalog {
	return w.catalog
}

// Dates returns the bookable dates as YYYY-MM-DD.
func (w *Wizard) Dates() []string {
	dates := w.opts.Schedule.GenerateDates(w.opts.Now())
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(slots.DateLayout)
	}
	return out
}

// Times returns the bookable slot labels.
func (w *Wizard) Times() ([]string, error) {
	return w.opts.Schedule.GenerateTimes()
}

// Start creates a session in service_selection.
func (w *Wizard) Start() Snapshot {
	session := w.sessions.Create()
	session.mu.Lock()
	defer session.mu.Unlock()
	return w.snapshot(session)
}

// Get returns the snapshot of session id.
func (w *Wizard) Get(id string) (Snapshot, error) {
	session := w.sessions.Get(id)
	if session == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return w.snapshot(session), nil
}

// Close discards the session. Closing an unknown session is a no-op.
func (w *Wizard) Close(id string) {
	w.sessions.Delete(id)
}

// SelectService records the service and moves to datetime_selection.
func (w *Wizard) SelectService(id, service string) (Snapshot, error) {
	return w.step(id, StateServiceSelection, StateDateTimeSelection, func(s *Session) error {
		service = strings.TrimSpace(service)
		if service == "" {
			return validation.Invalid("service", "is required")
		}
		svc, ok := w.catalog.Lookup(service)
		if !ok {
			return validation.Invalid("service", "is not offered")
		}
		s.Data.Service = svc.Key
		s.Data.ServiceName = svc.Name
		return nil
	})
}

// SelectDateTime records the date and time and moves to contact_details.
func (w *Wizard) SelectDateTime(id, date, timeSlot string) (Snapshot, error) {
	return w.step(id, StateDateTimeSelection, StateContactDetails, func(s *Session) error {
		date = strings.TrimSpace(date)
		timeSlot = strings.TrimSpace(timeSlot)
		if date == "" {
			return validation.Invalid("date", "is required")
		}
		if timeSlot == "" {
			return validation.Invalid("time", "is required")
		}
		if !w.opts.Schedule.IsBookableDate(w.opts.Now(), date) {
			return validation.Invalid("date", "is not available")
		}
		if !w.opts.Schedule.IsBookableTime(timeSlot) {
			return validation.Invalid("time", "is not available")
		}
		s.Data.Date = date
		s.Data.Time = timeSlot
		return nil
	})
}

// SubmitContact validates the details, creates the booking and moves to confirmation.
// When the create fails the session stays in contact_details and the error is kept in LastError.
// The booking.created event is published after the session lock is released.
func (w *Wizard) SubmitContact(ctx context.Context, id string, details ContactDetails) (Snapshot, error) {
	var created *model.Booking
	snap, err := w.step(id, StateContactDetails, StateConfirmation, func(s *Session) error {
		details.Name = strings.TrimSpace(details.Name)
		details.Email = strings.TrimSpace(details.Email)
		if err := validation.Struct(details); err != nil {
			return err
		}

		unlock := w.slotLocks.lock(s.Data.Date + "|" + s.Data.Time)
		defer unlock()

		if err := w.checkSlot(ctx, s.Data.Date, s.Data.Time); err != nil {
			return err
		}

		b := &model.Booking{
			Service:     s.Data.Service,
			ServiceName: s.Data.ServiceName,
			Date:        s.Data.Date,
			Time:        s.Data.Time,
			Name:        details.Name,
			Email:       details.Email,
			Phone:       strings.TrimSpace(details.Phone),
			Company:     strings.TrimSpace(details.Company),
			Message:     strings.TrimSpace(details.Message),
			Status:      model.BookingPending,
		}
		if err := w.bookings.CreateBooking(ctx, b); err != nil {
			if w.opts.PreventDoubleBooking && errors.Is(err, repository.ErrConflict) {
				err = ErrSlotTaken
			}
			s.LastError = err.Error()
			w.logger.Error().Err(err).Str("session", s.ID).Msg("create booking failed")
			return err
		}

		s.Data.Name = b.Name
		s.Data.Email = b.Email
		s.Data.Phone = b.Phone
		s.Data.Company = b.Company
		s.Data.Message = b.Message
		s.Data.BookingID = b.ID

		metrics.IncBookingCreated(b.Service)
		w.logger.Info().Int64("booking_id", b.ID).Str("service", b.Service).Str("date", b.Date).Str("time", b.Time).Msg("booking created")
		created = b
		return nil
	})
	if err == nil && created != nil {
		w.publisher.Publish(ctx, events.Event{Type: events.TypeBookingCreated, Payload: *created})
	}
	return snap, err
}

func (w *Wizard) checkSlot(ctx context.Context, date, timeSlot string) error {
	booked, err := w.bookings.IsSlotBooked(ctx, date, timeSlot)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if !booked {
		return nil
	}
	if w.opts.PreventDoubleBooking {
		return ErrSlotTaken
	}
	w.logger.Warn().Str("date", date).Str("time", timeSlot).Msg("slot already booked, creating anyway")
	return nil
}

// step runs apply under the session lock when the session is in from, then moves it to to.
func (w *Wizard) step(id string, from, to State, apply func(*Session) error) (Snapshot, error) {
	session := w.sessions.Get(id)
	if session == nil {
		return Snapshot{}, ErrSessionNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != from || !w.fsm.CanTransition(from, to) {
		metrics.IncWizardTransition(string(session.State), string(to), false)
		return w.snapshot(session), ErrInvalidTransition
	}

	session.touch()
	if err := apply(session); err != nil {
		metrics.IncWizardTransition(string(from), string(to), false)
		return w.snapshot(session), err
	}

	w.fsm.Transition(session, to)
	session.LastError = ""
	metrics.IncWizardTransition(string(from), string(to), true)
	return w.snapshot(session), nil
}

// snapshot copies the session. The caller holds session.mu.
func (w *Wizard) snapshot(s *Session) Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		State:     s.State,
		Step:      s.State.Step(),
		Data:      s.Data,
		LastError: s.LastError,
		UpdatedAt: s.UpdatedAt(),
	}
	if s.State == StateConfirmation {
		snap.Confirmation = w.confirmation(s.Data)
	}
	return snap
}

func (w *Wizard) confirmation(d Data) *Confirmation {
	date, err := slots.FormatLongDate(d.Date)
	if err != nil {
		date = d.Date
	}
	name := d.ServiceName
	if name == "" {
		name = w.catalog.DisplayName(d.Service)
	}
	return &Confirmation{
		BookingID: d.BookingID,
		Service:   name,
		Date:      date,
		Time:      FormatTime(d.Time, w.timezoneLabel()),
		Name:      d.Name,
		Email:     d.Email,
	}
}

// slotLocks serializes the check and insert of one date|time slot.
type slotLocks struct {
	mu   sync.Mutex
	held map[string]*slotLock
}

type slotLock struct {
	mu   sync.Mutex
	refs int
}

func (l *slotLocks) lock(key string) func() {
	l.mu.Lock()
	sl, ok := l.held[key]
	if !ok {
		sl = &slotLock{}
		l.held[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}
}

func (w *Wizard) timezoneLabel() string {
	if w.opts.Timezone != nil {
		if label := strings.TrimSpace(w.opts.Timezone()); label != "" {
			return label
		}
	}
	return w.opts.TimezoneLabel
}

// FormatTime appends the time zone label: "10:00 AM" becomes "10:00 AM EST".
func FormatTime(timeSlot, tzLabel string) string {
	if tzLabel == "" {
		return timeSlot
	}
	return timeSlot + " " + tzLabel
}
