// Package notify sends admin notifications for new bookings, contact messages and subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coachsite/internal/booking"
	"coachsite/internal/events"
	"coachsite/internal/settings"

	"github.com/rs/zerolog"
)

const sendTimeout = 10 * time.Second

// Message is a channel-independent notification. FromName and FromAddress come from the
// email settings; channels without a sender ignore them.
type Message struct {
	Subject     string
	Body        string
	FromName    string
	FromAddress string
}

// Notifier delivers a Message on one channel. to is the settings recipient; channels with
// their own addressing ignore it.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, to string, msg Message) error
}

// EmailSettings returns the current notification flags.
type EmailSettings interface {
	Email(ctx context.Context) settings.Email
}

// Dispatcher turns bus events into notifications gated by the email settings flags.
type Dispatcher struct {
	notifiers []Notifier
	settings  EmailSettings
	tzLabel   string
	timezone  func(context.Context) string
	logger    zerolog.Logger
}

func NewDispatcher(prefs EmailSettings, tzLabel string, logger *zerolog.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		settings:  prefs,
		tzLabel:   tzLabel,
		logger:    logger.With().Str("component", "notify").Logger(),
	}
}

// WithTimezone makes the dispatcher read the time zone label per message. An empty
// result falls back to the label given to NewDispatcher.
func (d *Dispatcher) WithTimezone(label func(context.Context) string) *Dispatcher {
	d.timezone = label
	return d
}

func (d *Dispatcher) timezoneLabel(ctx context.Context) string {
	if d.timezone != nil {
		if label := strings.TrimSpace(d.timezone(ctx)); label != "" {
			return label
		}
	}
	return d.tzLabel
}

// Enabled reports whether at least one channel is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.notifiers) > 0
}

// Subscribe registers the dispatcher on the bus.
func (d *Dispatcher) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.TypeBookingCreated, d.Handle)
	bus.Subscribe(events.TypeContactCreated, d.Handle)
	bus.Subscribe(events.TypeSubscriberCreated, d.Handle)
}

// Handle formats and sends one event. Channel failures are logged and joined.
func (d *Dispatcher) Handle(ctx context.Context, e events.Event) error {
	if !d.Enabled() {
		return nil
	}
	prefs := d.settings.Email(ctx)
	msg, ok := d.format(e, prefs, d.timezoneLabel(ctx))
	if !ok {
		return nil
	}
	return d.Send(ctx, prefs.NotificationEmail, withSender(msg, prefs))
}

// Send delivers msg on every channel.
func (d *Dispatcher) Send(ctx context.Context, to string, msg Message) error {
	var errs []error
	for _, n := range d.notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := n.Notify(sendCtx, to, msg)
		cancel()
		if err != nil {
			d.logger.Error().Err(err).Str("channel", n.Name()).Str("subject", msg.Subject).Msg("notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		d.logger.Debug().Str("channel", n.Name()).Str("subject", msg.Subject).Msg("notification sent")
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) format(e events.Event, prefs settings.Email, tzLabel string) (Message, bool) {
	switch e.Type {
	case events.TypeBookingCreated:
		b, ok := e.Booking()
		if !ok || !prefs.NotifyOnBooking {
			return Message{}, false
		}
		var body strings.Builder
		fmt.Fprintf(&body, "New booking #%d\n\n", b.ID)
		fmt.Fprintf(&body, "Service: %s\n", firstNonEmpty(b.ServiceName, b.Service))
		fmt.Fprintf(&body, "When: %s at %s\n", b.Date, booking.FormatTime(b.Time, tzLabel))
		fmt.Fprintf(&body, "Client: %s <%s>\n", b.Name, b.Email)
		writeOptional(&body, "Phone", b.Phone)
		writeOptional(&body, "Company", b.Company)
		writeOptional(&body, "Message", b.Message)
		return Message{Subject: "New booking: " + b.Name, Body: body.String()}, true

	case events.TypeContactCreated:
		m, ok := e.Contact()
		if !ok || !prefs.NotifyOnContact {
			return Message{}, false
		}
		var body strings.Builder
		fmt.Fprintf(&body, "New contact message from %s <%s>\n\n", m.Name, m.Email)
		writeOptional(&body, "Company", m.Company)
		writeOptional(&body, "Service", m.Service)
		body.WriteString("\n" + m.Message + "\n")
		return Message{Subject: "New message: " + m.Name, Body: body.String()}, true

	case events.TypeSubscriberCreated:
		s, ok := e.Subscriber()
		if !ok || !prefs.NotifyOnSubscribe {
			return Message{}, false
		}
		body := fmt.Sprintf("New newsletter subscriber: %s\n", s.Email)
		if s.Source != "" {
			body += "Source: " + s.Source + "\n"
		}
		return Message{Subject: "New subscriber", Body: body}, true
	}
	return Message{}, false
}

func withSender(msg Message, prefs settings.Email) Message {
	msg.FromName = strings.TrimSpace(prefs.FromName)
	msg.FromAddress = strings.TrimSpace(prefs.FromAddress)
	return msg
}

func writeOptional(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
