package sheets

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"coachsite/internal/fixture"
	"coachsite/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValues struct {
	cleared  []string
	updated  [][]any
	rng      string
	clearErr error
}

func (f *fakeValues) Clear(_ context.Context, _, rng string) error {
	f.cleared = append(f.cleared, rng)
	return f.clearErr
}

func (f *fakeValues) Update(_ context.Context, _, rng string, rows [][]any) error {
	f.rng, f.updated = rng, rows
	return nil
}

func newService(api ValuesAPI, lister BookingLister) *Service {
	logger := zerolog.New(io.Discard)
	return NewService(api, lister, "sheet-id", "Bookings!A1", &logger)
}

func TestFilterActiveBookings(t *testing.T) {
	bookings := []model.Booking{
		{ID: 1, Status: model.BookingPending},
		{ID: 2, Status: model.BookingConfirmed},
		{ID: 3, Status: model.BookingCancelled},
		{ID: 4, Status: model.BookingCompleted},
	}

	active := filterActiveBookings(bookings)
	require.Len(t, active, 3)
	for _, b := range active {
		assert.NotEqual(t, model.BookingCancelled, b.Status)
	}
}

func TestBookingRowValues(t *testing.T) {
	b := &model.Booking{
		ID:        123,
		Service:   "leadership",
		Date:      "2026-10-20",
		Time:      "10:00 AM",
		Status:    model.BookingConfirmed,
		Name:      "Jane Doe",
		Email:     "jane@x.com",
		Phone:     "+15551234567",
		CreatedAt: time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 10, 2, 11, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, []any{
		int64(123), "leadership", "2026-10-20", "10:00 AM", "confirmed", "Jane Doe", "jane@x.com",
		"+15551234567", "", "2026-10-01 10:00:00", "2026-10-02 11:00:00",
	}, bookingRowValues(b))
}

func TestSheetOf(t *testing.T) {
	assert.Equal(t, "Bookings", sheetOf("Bookings!A1"))
	assert.Equal(t, "Sheet1", sheetOf("Sheet1"))
}

func TestSyncActive(t *testing.T) {
	ctx := context.Background()
	store := fixture.New(nil)
	for _, status := range []string{model.BookingPending, model.BookingCancelled, model.BookingConfirmed} {
		require.NoError(t, store.CreateBooking(ctx, &model.Booking{Date: "2026-10-20", Time: "10:00 AM", Name: "N", Status: status}))
	}
	api := &fakeValues{}

	n, err := newService(api, store).SyncActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Bookings"}, api.cleared)
	assert.Equal(t, "Bookings!A1", api.rng)
	require.Len(t, api.updated, 3)
	assert.Equal(t, header, api.updated[0])
}

func TestSyncActiveClearError(t *testing.T) {
	api := &fakeValues{clearErr: errors.New("quota")}
	_, err := newService(api, fixture.New(nil)).SyncActive(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear sheet")
	assert.Nil(t, api.updated)
}
