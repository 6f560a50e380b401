package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coachsite"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of bookings created by service.",
		},
		[]string{"service"},
	)

	wizardTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transition_total",
			Help:      "Count of booking wizard transitions by outcome.",
		},
		[]string{"from", "to", "result"},
	)

	contactSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_submitted_total",
			Help:      "Count of contact form submissions.",
		},
	)

	newsletterSignup = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "newsletter_signup_total",
			Help:      "Count of newsletter signups by result.",
		},
		[]string{"result"},
	)

	fallbackReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_reads_total",
			Help:      "Count of reads served from the demo dataset.",
		},
		[]string{"resource"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	adminDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_decision_total",
			Help:      "Count of admin status changes by entity.",
		},
		[]string{"entity", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated,
			wizardTransition,
			contactSubmitted,
			newsletterSignup,
			fallbackReads,
			httpRequests,
			adminDecision,
		)
	})
}

func IncBookingCreated(service string) {
	bookingCreated.WithLabelValues(service).Inc()
}

func IncWizardTransition(from, to string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	wizardTransition.WithLabelValues(from, to, result).Inc()
}

func IncContactSubmitted() {
	contactSubmitted.Inc()
}

func IncNewsletterSignup(result string) {
	newsletterSignup.WithLabelValues(result).Inc()
}

func IncFallbackRead(resource string) {
	fallbackReads.WithLabelValues(resource).Inc()
}

func IncHTTP(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func IncAdminDecision(entity, status string) {
	adminDecision.WithLabelValues(entity, status).Inc()
}
