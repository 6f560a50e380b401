package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionBooking(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingPending, BookingCompleted, false},
		{BookingCancelled, BookingPending, false},
		{BookingCompleted, BookingCancelled, false},
		{"unknown", BookingConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionBooking(tt.from, tt.to))
		})
	}
}

func TestBookingHelpers(t *testing.T) {
	b := Booking{Status: BookingPending}
	assert.True(t, b.IsActive())
	assert.False(t, b.IsTerminal())

	b.Status = BookingCancelled
	assert.False(t, b.IsActive())
	assert.True(t, b.IsTerminal())

	assert.True(t, IsValidBookingStatus(BookingCompleted))
	assert.False(t, IsValidBookingStatus("approved"))
}

func TestCanAdvanceContact(t *testing.T) {
	assert.True(t, CanAdvanceContact(ContactUnread, ContactRead))
	assert.True(t, CanAdvanceContact(ContactUnread, ContactReplied))
	assert.True(t, CanAdvanceContact(ContactRead, ContactRead))
	assert.False(t, CanAdvanceContact(ContactReplied, ContactRead))
	assert.False(t, CanAdvanceContact(ContactRead, ContactUnread))
	assert.False(t, CanAdvanceContact(ContactUnread, "archived"))
}
