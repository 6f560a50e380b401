package model

import "time"

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// Booking is a consultation request created by the public booking wizard.
type Booking struct {
	ID          int64     `json:"id"`
	Service     string    `json:"service"`
	ServiceName string    `json:"service_name"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Time        string    `json:"time"` // "10:00 AM"
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Company     string    `json:"company,omitempty"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookingFilter narrows admin booking listings.
type BookingFilter struct {
	Status string
	Date   string
	Limit  int
	Offset int
}

var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
	BookingCancelled: {},
	BookingCompleted: {},
}

// IsValidBookingStatus reports whether s is a known booking status.
func IsValidBookingStatus(s string) bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionBooking reports whether an admin may move a booking from one status to another.
func CanTransitionBooking(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsActive reports whether the booking still occupies its slot.
func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}

// IsTerminal reports whether no further status changes are possible.
func (b *Booking) IsTerminal() bool {
	return len(bookingTransitions[b.Status]) == 0
}
