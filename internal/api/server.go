// Package api exposes the public site and the admin dashboard over JSON HTTP.
package api

import (
	"net/http"

	"coachsite/internal/auth"
	"coachsite/internal/booking"
	"coachsite/internal/content"
	"coachsite/internal/export"
	"coachsite/internal/media"
	"coachsite/internal/session"
	"coachsite/internal/settings"
	"coachsite/internal/sheets"
	"coachsite/internal/slots"

	"github.com/rs/zerolog"
)

// Deps are the services behind the handlers. Portraits, Sheets and Auth may be nil; the
// routes they back then answer 503.
type Deps struct {
	Wizard       *booking.Wizard
	Slots        *slots.Generator
	Settings     *settings.Service
	Posts        *content.Posts
	Testimonials *content.Testimonials
	Resources    *content.Resources
	Contacts     *content.Contacts
	Newsletter   *content.Newsletter
	Bookings     *content.BookingManager
	Bookmarks    *session.Bookmarks
	Auth         *auth.Service
	Portraits    *media.Portraits
	Exporter     *export.Exporter
	Sheets       *sheets.Service
}

// Options tune the HTTP surface.
type Options struct {
	AllowedOrigins []string
	SecureCookies  bool
	// MediaDir is served under MediaPath when set.
	MediaDir  string
	MediaPath string
	// RequestLimiter applies to every request, LoginLimiter to login attempts and
	// FormLimiter to public form posts. Nil disables the limit.
	RequestLimiter *auth.IPLimiter
	LoginLimiter   *auth.IPLimiter
	FormLimiter    *auth.IPLimiter
	// TrustedProxies is the number of reverse proxies appending to X-Forwarded-For.
	// Zero keys limits on RemoteAddr.
	TrustedProxies int
}

type Server struct {
	Deps
	opts   Options
	logger zerolog.Logger
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) *Server {
	if opts.MediaPath == "" {
		opts.MediaPath = "/media/"
	}
	return &Server{
		Deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler builds the routed handler with the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.publicRoutes(mux)
	s.adminRoutes(mux)

	if s.opts.MediaDir != "" {
		mux.Handle("GET "+s.opts.MediaPath, http.StripPrefix(s.opts.MediaPath, http.FileServer(http.Dir(s.opts.MediaDir))))
	}

	var h http.Handler = mux
	h = s.limit(s.opts.RequestLimiter, h)
	h = s.cors(h)
	h = securityHeaders(h)
	h = s.recoverPanics(h)
	return s.logRequests(h)
}

func (s *Server) publicRoutes(mux *http.ServeMux) {
	form := func(h http.HandlerFunc) http.Handler { return s.limit(s.opts.FormLimiter, h) }

	mux.HandleFunc("GET /api/site", s.handleSite)
	mux.HandleFunc("GET /api/services", s.handleServices)
	mux.HandleFunc("GET /api/contact-link", s.handleContactLink)

	mux.HandleFunc("GET /api/booking/dates", s.handleBookingDates)
	mux.HandleFunc("GET /api/booking/times", s.handleBookingTimes)
	mux.HandleFunc("POST /api/booking/sessions", s.handleWizardStart)
	mux.HandleFunc("GET /api/booking/sessions/{id}", s.handleWizardGet)
	mux.HandleFunc("POST /api/booking/sessions/{id}/service", s.handleWizardService)
	mux.HandleFunc("POST /api/booking/sessions/{id}/datetime", s.handleWizardDateTime)
	mux.Handle("POST /api/booking/sessions/{id}/contact", form(s.handleWizardContact))
	mux.HandleFunc("DELETE /api/booking/sessions/{id}", s.handleWizardClose)

	mux.HandleFunc("GET /api/posts", s.handlePublicPosts)
	mux.HandleFunc("GET /api/posts/{slug}", s.handlePublicPost)
	mux.HandleFunc("GET /api/testimonials", s.handlePublicTestimonials)
	mux.HandleFunc("GET /api/resources", s.handlePublicResources)
	mux.HandleFunc("POST /api/resources/{id}/download", s.handleResourceDownload)

	mux.Handle("POST /api/contact", form(s.handleContactSubmit))
	mux.Handle("POST /api/newsletter", form(s.handleNewsletterSubscribe))
	mux.HandleFunc("DELETE /api/newsletter/{email}", s.handleNewsletterUnsubscribe)

	mux.HandleFunc("GET /api/bookmarks", s.handleBookmarksList)
	mux.HandleFunc("PUT /api/bookmarks/{postID}", s.handleBookmarkAdd)
	mux.HandleFunc("DELETE /api/bookmarks/{postID}", s.handleBookmarkRemove)
}

func (s *Server) adminRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/admin/login", s.limit(s.opts.LoginLimiter, http.HandlerFunc(s.handleLogin)))

	admin := func(pattern string, h http.HandlerFunc) {
		if s.Auth == nil {
			mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "admin is not configured")
			})
			return
		}
		mux.Handle(pattern, s.Auth.RequireAdmin(h))
	}

	admin("POST /api/admin/logout", s.handleLogout)
	admin("GET /api/admin/me", s.handleMe)

	admin("GET /api/admin/bookings", s.handleAdminBookings)
	admin("PATCH /api/admin/bookings/{id}/status", s.handleAdminBookingStatus)
	admin("DELETE /api/admin/bookings/{id}", s.handleAdminBookingDelete)
	admin("POST /api/admin/bookings/sync", s.handleAdminBookingSync)

	admin("GET /api/admin/contacts", s.handleAdminContacts)
	admin("PATCH /api/admin/contacts/{id}/status", s.handleAdminContactStatus)
	admin("DELETE /api/admin/contacts/{id}", s.handleAdminContactDelete)

	admin("GET /api/admin/posts", s.handleAdminPosts)
	admin("POST /api/admin/posts", s.handleAdminPostCreate)
	admin("PUT /api/admin/posts/{id}", s.handleAdminPostUpdate)
	admin("DELETE /api/admin/posts/{id}", s.handleAdminPostDelete)
	admin("PATCH /api/admin/posts/{id}/flags", s.handleAdminPostFlags)

	admin("GET /api/admin/testimonials", s.handleAdminTestimonials)
	admin("POST /api/admin/testimonials", s.handleAdminTestimonialCreate)
	admin("PUT /api/admin/testimonials/{id}", s.handleAdminTestimonialUpdate)
	admin("PATCH /api/admin/testimonials/{id}/flags", s.handleAdminTestimonialFlags)
	admin("DELETE /api/admin/testimonials/{id}", s.handleAdminTestimonialDelete)

	admin("GET /api/admin/resources", s.handleAdminResources)
	admin("POST /api/admin/resources", s.handleAdminResourceCreate)
	admin("PUT /api/admin/resources/{id}", s.handleAdminResourceUpdate)
	admin("DELETE /api/admin/resources/{id}", s.handleAdminResourceDelete)

	admin("GET /api/admin/subscribers", s.handleAdminSubscribers)
	admin("DELETE /api/admin/subscribers/{id}", s.handleAdminSubscriberDelete)

	admin("GET /api/admin/settings/{group}", s.handleAdminSettingsGet)
	admin("PUT /api/admin/settings/{group}", s.handleAdminSettingsUpdate)
	admin("GET /api/admin/seo/score", s.handleAdminSEOScore)

	admin("POST /api/admin/portrait", s.handleAdminPortrait)
	admin("GET /api/admin/export", s.handleAdminExport)
}
