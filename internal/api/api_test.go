package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"coachsite/internal/auth"
	"coachsite/internal/booking"
	"coachsite/internal/content"
	"coachsite/internal/export"
	"coachsite/internal/fixture"
	"coachsite/internal/media"
	"coachsite/internal/model"
	"coachsite/internal/repository"
	"coachsite/internal/session"
	"coachsite/internal/settings"
	"coachsite/internal/slots"
	"coachsite/internal/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "coach@example.com"
	adminPassword = "correct-horse"
)

// 2026-10-14 is a Wednesday.
var today = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *fixture.Store
	server  *Server
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*Deps, *Options)) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store := fixture.New(nil)
	schedule := slots.DefaultSchedule()

	wizard := booking.NewWizard(
		booking.NewSessionStore(time.Hour),
		booking.NewCatalog(booking.DefaultServices()),
		store, nil,
		booking.Options{Schedule: schedule, TimezoneLabel: "EST", PreventDoubleBooking: true, Now: func() time.Time { return today }},
		&logger,
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	authSvc, err := auth.NewService(
		[]auth.Admin{{Email: adminEmail, Name: "Coach", PasswordHash: string(hash)}},
		session.NewAdminSessions(session.NewMemoryStore()),
		auth.Options{Secret: "0123456789abcdef0123456789abcdef"},
		&logger,
	)
	require.NoError(t, err)

	settingsSvc := settings.NewService(store, &logger)
	deps := Deps{
		Wizard:       wizard,
		Slots:        slots.NewGenerator(schedule, store),
		Settings:     settingsSvc,
		Posts:        content.NewPosts(store, store, &logger),
		Testimonials: content.NewTestimonials(store, store, &logger),
		Resources:    content.NewResources(store, store, &logger),
		Contacts:     content.NewContacts(store, nil, &logger),
		Newsletter:   content.NewNewsletter(store, nil, &logger),
		Bookings:     content.NewBookingManager(store, &logger),
		Bookmarks:    session.NewBookmarks(session.NewMemoryStore(), 0),
		Auth:         authSvc,
		Portraits:    media.NewPortraits(media.NewLocal(t.TempDir(), "/media/"), settingsSvc, 5<<20, &logger),
		Exporter:     export.NewExporter(store, &logger),
	}
	opts := Options{AllowedOrigins: []string{"https://coach.example.com"}}
	if mutate != nil {
		mutate(&deps, &opts)
	}

	srv := NewServer(deps, opts, &logger)
	return &testEnv{store: store, server: srv, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) http.Header {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": adminEmail, "password": adminPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok auth.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return http.Header{"Authorization": {"Bearer " + tok.Token}}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestBookingWizardEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/booking/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decode[booking.Snapshot](t, rec)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, 1, snap.Step)
	base := "/api/booking/sessions/" + snap.ID

	rec = env.do(t, http.MethodPost, base+"/service", map[string]string{"service": "leadership"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, base+"/datetime", map[string]string{"date": "2026-10-20", "time": "10:00 AM"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, base+"/contact", map[string]string{"name": "Jane Doe", "email": "jane@x.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap = decode[booking.Snapshot](t, rec)
	require.NotNil(t, snap.Confirmation)
	assert.Equal(t, "Leadership Coaching", snap.Confirmation.Service)
	assert.Equal(t, "Tuesday, October 20, 2026", snap.Confirmation.Date)
	assert.Equal(t, "10:00 AM EST", snap.Confirmation.Time)

	stored, err := env.store.ListBookings(context.Background(), model.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.BookingPending, stored[0].Status)

	rec = env.do(t, http.MethodGet, "/api/booking/times?date=2026-10-20", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	times := decode[struct {
		Times []slots.SlotInfo `json:"times"`
	}](t, rec)
	for _, slot := range times.Times {
		assert.Equal(t, slot.Time != "10:00 AM", slot.Available, slot.Time)
	}

	rec = env.do(t, http.MethodDelete, base, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingWizardErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	snap := decode[booking.Snapshot](t, env.do(t, http.MethodPost, "/api/booking/sessions", nil, nil))
	base := "/api/booking/sessions/" + snap.ID

	tests := []struct {
		name      string
		path      string
		body      any
		wantCode  int
		wantField string
	}{
		{"unknown session", "/api/booking/sessions/nope/service", map[string]string{"service": "leadership"}, http.StatusNotFound, ""},
		{"skip a step", base + "/datetime", map[string]string{"date": "2026-10-20", "time": "10:00 AM"}, http.StatusConflict, ""},
		{"unknown service", base + "/service", map[string]string{"service": "astrology"}, http.StatusBadRequest, "service"},
		{"bad json", base + "/service", `{"service":`, http.StatusBadRequest, "body"},
		{"unknown field", base + "/service", `{"svc":"leadership"}`, http.StatusBadRequest, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			resp := decode[errorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantField, resp.Field)
		})
	}
}

func TestBookingSlotTaken(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.CreateBooking(context.Background(), &model.Booking{Date: "2026-10-20", Time: "10:00 AM", Name: "Earlier"}))

	snap := decode[booking.Snapshot](t, env.do(t, http.MethodPost, "/api/booking/sessions", nil, nil))
	base := "/api/booking/sessions/" + snap.ID
	env.do(t, http.MethodPost, base+"/service", map[string]string{"service": "leadership"}, nil)
	env.do(t, http.MethodPost, base+"/datetime", map[string]string{"date": "2026-10-20", "time": "10:00 AM"}, nil)

	rec := env.do(t, http.MethodPost, base+"/contact", map[string]string{"name": "Jane", "email": "jane@x.com"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingDatesSkipWeekends(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/booking/dates", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[struct {
		Dates []dateOption `json:"dates"`
	}](t, rec)
	require.NotEmpty(t, resp.Dates)
	assert.Equal(t, "2026-10-15", resp.Dates[0].Date)
	assert.Equal(t, "Thursday, October 15, 2026", resp.Dates[0].Label)
	for _, d := range resp.Dates {
		assert.NotContains(t, d.Label, "Saturday")
		assert.NotContains(t, d.Label, "Sunday")
	}
}

func TestPublicContent(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/posts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode[struct {
		Posts []model.BlogPost `json:"posts"`
	}](t, rec)
	require.Len(t, posts.Posts, 3)

	rec = env.do(t, http.MethodGet, "/api/posts/"+posts.Posts[0].Slug, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[model.BlogPost](t, rec).Views)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/posts/missing", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/posts?limit=-1", nil, nil).Code)

	rec = env.do(t, http.MethodGet, "/api/testimonials", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Testimonial](t, rec)["testimonials"], 3)

	rec = env.do(t, http.MethodPost, "/api/resources/1/download", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[model.Resource](t, rec).Downloads)

	rec = env.do(t, http.MethodGet, "/api/services", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]booking.Service](t, rec)["services"], len(booking.DefaultServices()))

	rec = env.do(t, http.MethodGet, "/api/site", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Executive Coaching", decode[settings.PublicSite](t, rec).General.SiteName)
}

func TestContactAndNewsletter(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/contact", map[string]string{"name": "Sam", "email": "sam@x.com", "message": "Hello"}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/contact", map[string]string{"name": "Sam", "email": "not-an-email", "message": "Hello"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode[errorResponse](t, rec).Field)

	rec = env.do(t, http.MethodPost, "/api/newsletter", map[string]string{"email": "reader@x.com"}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/newsletter", map[string]string{"email": "READER@x.com"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content.SignupDuplicate, decode[map[string]any](t, rec)["result"])

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/newsletter/reader@x.com", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/newsletter/ghost@x.com", nil, nil).Code)
}

func TestBookmarks(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/bookmarks", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.VisitorCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	header := http.Header{"Cookie": {cookies[0].Name + "=" + cookies[0].Value}}

	rec = env.do(t, http.MethodPut, "/api/bookmarks/2", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	env.do(t, http.MethodPut, "/api/bookmarks/1", nil, header)

	rec = env.do(t, http.MethodGet, "/api/bookmarks", nil, header)
	assert.Equal(t, []int64{1, 2}, decode[map[string][]int64](t, rec)["bookmarks"])

	rec = env.do(t, http.MethodDelete, "/api/bookmarks/2", nil, header)
	assert.Equal(t, []int64{1}, decode[map[string][]int64](t, rec)["bookmarks"])

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/api/bookmarks/99", nil, header).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/bookmarks/abc", nil, header).Code)
}

func TestContactLink(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.server.Settings.Update(context.Background(), settings.KeyGeneral, []byte(`{"whatsapp_number":"+15551234567","contact_email":"hi@coach.co"}`))
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/contact-link", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	link := decode[contactLink](t, rec)
	assert.True(t, strings.HasPrefix(link.WhatsApp, "https://wa.me/15551234567?text="), link.WhatsApp)
	assert.Equal(t, "hi@coach.co", link.Email)
}

func TestWhatsAppLink(t *testing.T) {
	assert.Equal(t, "", whatsAppLink("", "hi"))
	assert.Equal(t, "", whatsAppLink("n/a", "hi"))
	assert.Equal(t, "https://wa.me/4471234?text=hi+there", whatsAppLink("+44 71 234", "hi there"))
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/admin/bookings", nil, nil).Code)
	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": adminEmail, "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	header := env.login(t)
	rec = env.do(t, http.MethodGet, "/api/admin/me", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminEmail, decode[session.AdminSession](t, rec).Email)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/api/admin/logout", nil, header).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/admin/me", nil, header).Code)
}

func TestAdminLoginSetsCookie(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": adminEmail, "password": adminPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)

	rec = env.do(t, http.MethodGet, "/api/admin/me", nil, http.Header{"Cookie": {auth.CookieName + "=" + cookies[0].Value}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminBookingDecisions(t *testing.T) {
	env := newTestEnv(t, nil)
	header := env.login(t)
	b := &model.Booking{Date: "2026-10-20", Time: "10:00 AM", Name: "Jane"}
	require.NoError(t, env.store.CreateBooking(context.Background(), b))
	statusPath := fmt.Sprintf("/api/admin/bookings/%d/status", b.ID)

	tests := []struct {
		status   string
		wantCode int
	}{
		{model.BookingCompleted, http.StatusConflict},
		{"archived", http.StatusBadRequest},
		{model.BookingConfirmed, http.StatusOK},
		{model.BookingCompleted, http.StatusOK},
		{model.BookingCancelled, http.StatusConflict},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodPatch, statusPath, statusRequest{Status: tt.status}, header)
		assert.Equal(t, tt.wantCode, rec.Code, "%s: %s", tt.status, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/admin/bookings?status=completed", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Booking](t, rec)["bookings"], 1)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/bookings/%d", b.ID), nil, header).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/bookings/%d", b.ID), nil, header).Code)
}

func TestAdminPosts(t *testing.T) {
	env := newTestEnv(t, nil)
	header := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/admin/posts", map[string]any{"title": "Leading Through Change", "content": "Some words here."}, header)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[model.BlogPost](t, rec)
	assert.Equal(t, "leading-through-change", post.Slug)
	assert.False(t, post.Published)

	rec = env.do(t, http.MethodPost, "/api/admin/posts", map[string]any{"title": "Leading Through Change"}, header)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/posts/%d/flags", post.ID), map[string]bool{"published": true}, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.BlogPost](t, rec).Published)

	rec = env.do(t, http.MethodGet, "/api/posts", nil, nil)
	assert.Len(t, decode[map[string][]model.BlogPost](t, rec)["posts"], 4)
}

func TestAdminSettings(t *testing.T) {
	env := newTestEnv(t, nil)
	header := env.login(t)

	rec := env.do(t, http.MethodPut, "/api/admin/settings/general", `{"tagline":"Lead with clarity"}`, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	general := decode[settings.General](t, rec)
	assert.Equal(t, "Lead with clarity", general.Tagline)
	assert.Equal(t, "Executive Coaching", general.SiteName)

	rec = env.do(t, http.MethodGet, "/api/admin/settings/general", nil, header)
	assert.Equal(t, "Lead with clarity", decode[settings.General](t, rec).Tagline)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/admin/settings/billing", nil, header).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/admin/settings/general", `{"site_name":`, header).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/admin/settings/general", `{"site_name":""}`, header).Code)

	rec = env.do(t, http.MethodGet, "/api/admin/seo/score", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[settings.SEOReport](t, rec)
	assert.NotEmpty(t, report.Checks)
}

func TestAdminExport(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/admin/export", nil, env.login(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestAdminSyncNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/admin/bookings/sync", nil, env.login(t))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminPortraitUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	header := env.login(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="me.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, _ = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 128)...))
	require.NoError(t, mw.Close())
	header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(t, http.MethodPost, "/api/admin/portrait", body.String(), header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	portrait := decode[settings.Portrait](t, rec)
	assert.True(t, strings.HasPrefix(portrait.ImageURL, "/media/portrait/"))

	rec = env.do(t, http.MethodGet, "/api/site", nil, nil)
	assert.Equal(t, portrait.ImageURL, decode[settings.PublicSite](t, rec).Portrait.ImageURL)
}

func TestAdminWithoutAuthService(t *testing.T) {
	env := newTestEnv(t, func(d *Deps, _ *Options) { d.Auth = nil })
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/admin/bookings", nil, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodPost, "/api/admin/login", `{}`, nil).Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodOptions, "/api/contact", nil, http.Header{"Origin": {"https://coach.example.com"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://coach.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	rec = env.do(t, http.MethodGet, "/api/site", nil, http.Header{"Origin": {"https://evil.example.com"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRateLimits(t *testing.T) {
	env := newTestEnv(t, func(_ *Deps, o *Options) {
		o.FormLimiter = auth.NewIPLimiter(1)
		o.LoginLimiter = auth.NewIPLimiter(1)
	})

	body := map[string]string{"email": "a@x.com"}
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/newsletter", body, nil).Code)
	rec := env.do(t, http.MethodPost, "/api/newsletter", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	creds := map[string]string{"email": adminEmail, "password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/admin/login", creds, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/api/admin/login", creds, nil).Code)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/site", nil, nil).Code)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	env := newTestEnv(t, func(_ *Deps, o *Options) {
		o.LoginLimiter = auth.NewIPLimiter(2)
	})

	creds := map[string]string{"email": adminEmail, "password": "wrong"}
	limited := 0
	for i := 0; i < 10; i++ {
		hdr := http.Header{"X-Forwarded-For": {fmt.Sprintf("198.51.100.%d", i)}}
		if env.do(t, http.MethodPost, "/api/admin/login", creds, hdr).Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 8, limited)
}

func TestRateLimitTrustedProxy(t *testing.T) {
	env := newTestEnv(t, func(_ *Deps, o *Options) {
		o.LoginLimiter = auth.NewIPLimiter(1)
		o.TrustedProxies = 1
	})

	creds := map[string]string{"email": adminEmail, "password": "wrong"}
	first := http.Header{"X-Forwarded-For": {"203.0.113.1"}}
	second := http.Header{"X-Forwarded-For": {"203.0.113.2"}}
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/admin/login", creds, first).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/api/admin/login", creds, first).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/admin/login", creds, second).Code, "clients behind the proxy are limited separately")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{validation.Invalid("name", "is required"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", repository.ErrNotFound), http.StatusNotFound},
		{booking.ErrSessionNotFound, http.StatusNotFound},
		{settings.ErrUnknownGroup, http.StatusNotFound},
		{repository.ErrConflict, http.StatusConflict},
		{content.ErrInvalidStatus, http.StatusConflict},
		{booking.ErrInvalidTransition, http.StatusConflict},
		{booking.ErrSlotTaken, http.StatusConflict},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrRateLimited, http.StatusTooManyRequests},
		{media.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
