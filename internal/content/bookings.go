package content

import (
	"context"
	"errors"
	"fmt"

	"coachsite/internal/metrics"
	"coachsite/internal/model"
	"coachsite/internal/repository"
	"coachsite/internal/validation"

	"github.com/rs/zerolog"
)

const defaultAdminPageSize = 50

// BookingManager is the admin side of bookings.
type BookingManager struct {
	bookings repository.BookingRepository
	logger   zerolog.Logger
}

func NewBookingManager(bookings repository.BookingRepository, logger *zerolog.Logger) *BookingManager {
	return &BookingManager{
		bookings: bookings,
		logger:   logger.With().Str("component", "booking_manager").Logger(),
	}
}

// List returns bookings newest first. A zero limit returns one default page.
func (m *BookingManager) List(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	if filter.Status != "" && filter.Status != "all" && !model.IsValidBookingStatus(filter.Status) {
		return nil, validation.Invalid("status", "unknown booking status")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAdminPageSize
	}
	return m.bookings.ListBookings(ctx, filter)
}

func (m *BookingManager) Get(ctx context.Context, id int64) (*model.Booking, error) {
	return m.bookings.GetBooking(ctx, id)
}

// UpdateStatus applies an admin decision. Only pending->confirmed|cancelled and
// confirmed->completed|cancelled are allowed.
func (m *BookingManager) UpdateStatus(ctx context.Context, id int64, status string) (*model.Booking, error) {
	if !model.IsValidBookingStatus(status) {
		return nil, validation.Invalid("status", "must be one of pending confirmed cancelled completed")
	}
	b, err := m.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if !model.CanTransitionBooking(b.Status, status) {
		return nil, fmt.Errorf("%w: cannot move booking from %s to %s", ErrInvalidStatus, b.Status, status)
	}
	if err := m.bookings.UpdateBookingStatus(ctx, id, b.Status, status); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: booking changed while updating, reload and retry", ErrInvalidStatus)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	metrics.IncAdminDecision("booking", status)
	m.logger.Info().Int64("booking_id", id).Str("from", b.Status).Str("to", status).Msg("booking status changed")
	b.Status = status
	return b, nil
}

func (m *BookingManager) Delete(ctx context.Context, id int64) error {
	if err := m.bookings.DeleteBooking(ctx, id); err != nil {
		return err
	}
	m.logger.Info().Int64("booking_id", id).Msg("booking deleted")
	return nil
}

// Active returns every booking that still holds its slot.
func (m *BookingManager) Active(ctx context.Context) ([]model.Booking, error) {
	all, err := m.bookings.ListBookings(ctx, model.BookingFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(all))
	for i := range all {
		if all[i].IsActive() {
			out = append(out, all[i])
		}
	}
	return out, nil
}
