package restdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"coachsite/internal/model"
	"coachsite/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a tiny PostgREST stand-in supporting eq./neq. filters, limit, and the verbs the client uses.
type fakeAPI struct {
	mu       sync.Mutex
	tables   map[string][]map[string]any
	nextID   int64
	gets     map[string]int
	unique   map[string]string
	lastReq  *http.Request
	failWith int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		tables: map[string][]map[string]any{},
		gets:   map[string]int{},
		unique: map[string]string{tablePosts: "slug", tableSubscribers: "email"},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = r

	if f.failWith != 0 {
		http.Error(w, `{"message":"boom"}`, f.failWith)
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	matches := func(row map[string]any) bool {
		for col, vals := range r.URL.Query() {
			switch col {
			case "select", "order", "limit", "offset", "on_conflict":
				continue
			}
			v := vals[0]
			have := fmt.Sprint(row[col])
			switch {
			case strings.HasPrefix(v, "eq."):
				if have != strings.TrimPrefix(v, "eq.") {
					return false
				}
			case strings.HasPrefix(v, "neq."):
				if have == strings.TrimPrefix(v, "neq.") {
					return false
				}
			case strings.HasPrefix(v, "ilike."):
				if !strings.EqualFold(have, strings.TrimPrefix(v, "ilike.")) {
					return false
				}
			}
		}
		return true
	}

	var out []map[string]any
	switch r.Method {
	case http.MethodGet:
		f.gets[table]++
		for _, row := range f.tables[table] {
			if matches(row) {
				out = append(out, row)
			}
		}
		if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && len(out) > l {
			out = out[:l]
		}
	case http.MethodPost:
		var row map[string]any
		_ = json.NewDecoder(r.Body).Decode(&row)
		if table == tableSettings {
			for _, existing := range f.tables[table] {
				if existing["key"] == row["key"] {
					for k, v := range row {
						existing[k] = v
					}
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
		} else {
			if col, ok := f.unique[table]; ok {
				for _, existing := range f.tables[table] {
					if existing[col] == row[col] {
						http.Error(w, `{"code":"23505"}`, http.StatusConflict)
						return
					}
				}
			}
			f.nextID++
			row["id"] = f.nextID
		}
		f.tables[table] = append(f.tables[table], row)
		out = append(out, row)
	case http.MethodPatch:
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		for _, row := range f.tables[table] {
			if matches(row) {
				for k, v := range patch {
					row[k] = v
				}
				out = append(out, row)
			}
		}
	case http.MethodDelete:
		kept := f.tables[table][:0]
		for _, row := range f.tables[table] {
			if matches(row) {
				out = append(out, row)
				continue
			}
			kept = append(kept, row)
		}
		f.tables[table] = kept
	}

	if out == nil {
		out = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func setupClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := zerolog.New(io.Discard)
	return NewClient(srv.URL+"/", "anon-key", time.Second, &logger), api
}

func TestClientHeaders(t *testing.T) {
	c, api := setupClient(t)
	require.NoError(t, c.Ping(context.Background()))

	assert.Equal(t, "anon-key", api.lastReq.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", api.lastReq.Header.Get("Authorization"))
	assert.Equal(t, "/rest/v1/site_settings", api.lastReq.URL.Path)
}

func TestBookingsRoundTrip(t *testing.T) {
	c, api := setupClient(t)
	ctx := context.Background()

	b := &model.Booking{Service: "leadership", Date: "2026-10-20", Time: "10:00 AM", Name: "Jane Doe", Email: "jane@x.com"}
	require.NoError(t, c.CreateBooking(ctx, b))
	assert.Equal(t, int64(1), b.ID)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, preferRepresentation, api.lastReq.Header.Get("Prefer"))

	booked, err := c.IsSlotBooked(ctx, "2026-10-20", "10:00 AM")
	require.NoError(t, err)
	assert.True(t, booked)
	assert.Equal(t, "neq.cancelled", api.lastReq.URL.Query().Get("status"))

	require.NoError(t, c.UpdateBookingStatus(ctx, b.ID, model.BookingPending, model.BookingCancelled))
	assert.Equal(t, "eq.pending", api.lastReq.URL.Query().Get("status"))
	assert.ErrorIs(t, c.UpdateBookingStatus(ctx, b.ID, model.BookingPending, model.BookingConfirmed), repository.ErrConflict, "stale from status")
	booked, err = c.IsSlotBooked(ctx, "2026-10-20", "10:00 AM")
	require.NoError(t, err)
	assert.False(t, booked)

	got, err := c.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	list, err := c.ListBookings(ctx, model.BookingFilter{Status: "all", Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, newestFirst, api.lastReq.URL.Query().Get("order"))
	assert.Equal(t, "10", api.lastReq.URL.Query().Get("limit"))
	assert.Equal(t, "5", api.lastReq.URL.Query().Get("offset"))
	assert.Empty(t, api.lastReq.URL.Query().Get("status"))
	assert.Len(t, list, 1)

	_, err = c.GetBooking(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, c.UpdateBookingStatus(ctx, 42, model.BookingPending, model.BookingConfirmed), repository.ErrNotFound)

	require.NoError(t, c.DeleteBooking(ctx, b.ID))
	assert.ErrorIs(t, c.DeleteBooking(ctx, b.ID), repository.ErrNotFound)
}

func TestPostsConflictAndFlags(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()

	p := &model.BlogPost{Title: "Hello", Slug: "hello", Category: "Leadership"}
	require.NoError(t, c.CreatePost(ctx, p))
	err := c.CreatePost(ctx, &model.BlogPost{Title: "Again", Slug: "hello"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	on := true
	updated, err := c.SetPostFlags(ctx, p.ID, model.PostFlags{Published: &on})
	require.NoError(t, err)
	assert.True(t, updated.Published)
	assert.False(t, updated.Featured)

	byCategory, err := c.ListPosts(ctx, model.PostFilter{Category: "leadership"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	require.NoError(t, c.IncrementPostViews(ctx, p.ID))
	require.NoError(t, c.IncrementPostViews(ctx, p.ID))
	got, err := c.GetPostBySlug(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)
}

func TestSubscribersAndSettings(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()

	s := &model.NewsletterSubscriber{Email: " Jane@X.com", Active: true}
	require.NoError(t, c.CreateSubscriber(ctx, s))
	assert.Equal(t, "jane@x.com", s.Email)
	assert.ErrorIs(t, c.CreateSubscriber(ctx, &model.NewsletterSubscriber{Email: "jane@x.com"}), repository.ErrConflict)

	got, err := c.GetSubscriberByEmail(ctx, "JANE@x.com")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	require.NoError(t, c.UpsertSetting(ctx, "general", json.RawMessage(`{"site_name":"A"}`)))
	require.NoError(t, c.UpsertSetting(ctx, "general", json.RawMessage(`{"site_name":"B"}`)))
	assert.Error(t, c.UpsertSetting(ctx, "general", json.RawMessage(`{`)))

	setting, err := c.GetSetting(ctx, "general")
	require.NoError(t, err)
	assert.JSONEq(t, `{"site_name":"B"}`, string(setting.Value))

	all, err := c.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestServerErrorSurfaces(t *testing.T) {
	c, api := setupClient(t)
	api.failWith = http.StatusInternalServerError

	_, err := c.ListPosts(context.Background(), model.PostFilter{PublishedOnly: true})
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.Contains(t, httpErr.Body, "boom")
}

func TestRedisCacheForPublicLists(t *testing.T) {
	c, api := setupClient(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c.UseRedisCache(rdb, time.Minute)

	require.NoError(t, c.CreateTestimonial(ctx, &model.Testimonial{Name: "A", Quote: "Great", Rating: 5, Active: true}))

	for i := 0; i < 3; i++ {
		list, err := c.ListTestimonials(ctx, true)
		require.NoError(t, err)
		require.Len(t, list, 1)
	}
	assert.Equal(t, 1, api.gets[tableTestimonials])

	_, err := c.ListTestimonials(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.gets[tableTestimonials], "admin lists are not cached")

	require.NoError(t, c.CreateTestimonial(ctx, &model.Testimonial{Name: "B", Quote: "Good", Rating: 4, Active: true}))
	list, err := c.ListTestimonials(ctx, true)
	require.NoError(t, err)
	assert.Len(t, list, 2, "writes invalidate cached reads")
	assert.Equal(t, 3, api.gets[tableTestimonials])

	mr.FastForward(2 * time.Minute)
	_, err = c.ListTestimonials(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 4, api.gets[tableTestimonials])
}
