package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coachsite/internal/booking"
	"coachsite/internal/model"
	"coachsite/internal/slots"
)

// BookingLister is the read side the daily digest needs.
type BookingLister interface {
	ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error)
}

// Digest sends the admin a morning summary of the next day's bookings.
type Digest struct {
	bookings   BookingLister
	dispatcher *Dispatcher
	hour       int
	now        func() time.Time
}

func NewDigest(bookings BookingLister, dispatcher *Dispatcher, hour int) *Digest {
	if hour < 0 || hour > 23 {
		hour = 9
	}
	return &Digest{bookings: bookings, dispatcher: dispatcher, hour: hour, now: time.Now}
}

// Start waits until the configured hour, then sends a digest every 24h until ctx is done.
func (d *Digest) Start(ctx context.Context) {
	if !d.dispatcher.Enabled() {
		return
	}
	timer := time.NewTimer(timeUntilNextHour(d.now(), d.hour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := d.SendTomorrow(ctx); err != nil {
				d.dispatcher.logger.Error().Err(err).Msg("daily digest failed")
			}
			timer.Reset(24 * time.Hour)
		}
	}
}

// SendTomorrow sends the digest for the day after now. Nothing is sent for an empty day.
func (d *Digest) SendTomorrow(ctx context.Context) error {
	date := d.now().AddDate(0, 0, 1).Format(slots.DateLayout)
	list, err := d.bookings.ListBookings(ctx, model.BookingFilter{Date: date})
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	var active []model.Booking
	for _, b := range list {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	if len(active) == 0 {
		return nil
	}

	prefs := d.dispatcher.settings.Email(ctx)
	if !prefs.NotifyOnBooking {
		return nil
	}
	return d.dispatcher.Send(ctx, prefs.NotificationEmail, withSender(formatDigest(date, active, d.dispatcher.timezoneLabel(ctx)), prefs))
}

func formatDigest(date string, bookings []model.Booking, tzLabel string) Message {
	long, err := slots.FormatLongDate(date)
	if err != nil {
		long = date
	}
	var b strings.Builder
	for _, bk := range bookings {
		fmt.Fprintf(&b, "%s  %s, %s (%s)\n", booking.FormatTime(bk.Time, tzLabel), bk.Name,
			firstNonEmpty(bk.ServiceName, bk.Service), bk.Status)
	}
	return Message{
		Subject: fmt.Sprintf("Tomorrow: %d session(s) on %s", len(bookings), long),
		Body:    b.String(),
	}
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
