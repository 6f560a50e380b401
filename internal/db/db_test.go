package db

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coachsite/internal/model"
	"coachsite/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRebind(t *testing.T) {
	sqlite := &DB{dialect: DialectSQLite}
	pg := &DB{dialect: DialectPostgres}

	q := "SELECT * FROM bookings WHERE date = ? AND time = ? LIMIT ?"
	assert.Equal(t, q, sqlite.rebind(q))
	assert.Equal(t, "SELECT * FROM bookings WHERE date = $1 AND time = $2 LIMIT $3", pg.rebind(q))
}

func TestSchemaPerDialect(t *testing.T) {
	assert.Contains(t, schema(DialectSQLite)[0], "AUTOINCREMENT")
	assert.Contains(t, schema(DialectPostgres)[0], "BIGSERIAL")
	assert.Contains(t, schema(DialectPostgres)[0], "TIMESTAMPTZ")
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	first, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer second.Close()
	assert.NoError(t, second.Ping(context.Background()))
}

func TestBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := &model.Booking{Service: "leadership", ServiceName: "Leadership Coaching", Date: "2026-10-20", Time: "10:00 AM", Name: "Jane Doe", Email: "jane@x.com"}
	require.NoError(t, db.CreateBooking(ctx, b))
	assert.NotZero(t, b.ID)
	assert.Equal(t, model.BookingPending, b.Status)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "10:00 AM", got.Time)
	assert.WithinDuration(t, b.CreatedAt, got.CreatedAt, time.Second)

	booked, err := db.IsSlotBooked(ctx, "2026-10-20", "10:00 AM")
	require.NoError(t, err)
	assert.True(t, booked)

	require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, model.BookingPending, model.BookingCancelled))
	assert.ErrorIs(t, db.UpdateBookingStatus(ctx, b.ID, model.BookingPending, model.BookingConfirmed), repository.ErrConflict, "stale from status")
	booked, err = db.IsSlotBooked(ctx, "2026-10-20", "10:00 AM")
	require.NoError(t, err)
	assert.False(t, booked)

	second := &model.Booking{Service: "career", Date: "2026-10-21", Time: "9:00 AM", Name: "Sam", Email: "sam@x.com"}
	require.NoError(t, db.CreateBooking(ctx, second))

	list, err := db.ListBookings(ctx, model.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	pending, err := db.ListBookings(ctx, model.BookingFilter{Status: model.BookingPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	byDate, err := db.ListBookings(ctx, model.BookingFilter{Status: "all", Date: "2026-10-20"})
	require.NoError(t, err)
	require.Len(t, byDate, 1)

	paged, err := db.ListBookings(ctx, model.BookingFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, b.ID, paged[0].ID)

	_, err = db.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, db.UpdateBookingStatus(ctx, 9999, model.BookingPending, model.BookingConfirmed), repository.ErrNotFound)

	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	assert.ErrorIs(t, db.DeleteBooking(ctx, b.ID), repository.ErrNotFound)
}

func TestContacts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := &model.ContactMessage{Name: "Jane", Email: "jane@x.com", Message: "Hello", Service: "team"}
	require.NoError(t, db.CreateContact(ctx, m))
	assert.Equal(t, model.ContactUnread, m.Status)

	require.NoError(t, db.UpdateContactStatus(ctx, m.ID, model.ContactRead))
	got, err := db.GetContact(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContactRead, got.Status)

	unread, err := db.ListContacts(ctx, model.ContactFilter{Status: model.ContactUnread})
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := db.ListContacts(ctx, model.ContactFilter{Status: "all"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, db.DeleteContact(ctx, m.ID))
	_, err = db.GetContact(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPosts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	draft := &model.BlogPost{Title: "Draft", Slug: "draft", Category: "Leadership", ReadTime: "1 min read"}
	live := &model.BlogPost{Title: "Live", Slug: "live", Category: "Career", Published: true, Featured: true}
	require.NoError(t, db.CreatePost(ctx, draft))
	require.NoError(t, db.CreatePost(ctx, live))

	err := db.CreatePost(ctx, &model.BlogPost{Title: "Dup", Slug: "live"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	published, err := db.ListPosts(ctx, model.PostFilter{PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "live", published[0].Slug)
	assert.True(t, published[0].Featured)

	byCategory, err := db.ListPosts(ctx, model.PostFilter{Category: "leadership"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "draft", byCategory[0].Slug)

	on := true
	updated, err := db.SetPostFlags(ctx, draft.ID, model.PostFlags{Published: &on})
	require.NoError(t, err)
	assert.True(t, updated.Published)
	assert.False(t, updated.Featured)

	off := false
	updated, err = db.SetPostFlags(ctx, live.ID, model.PostFlags{Featured: &off})
	require.NoError(t, err)
	assert.False(t, updated.Featured)
	assert.True(t, updated.Published)

	_, err = db.SetPostFlags(ctx, 9999, model.PostFlags{Published: &on})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, db.IncrementPostViews(ctx, live.ID))
	require.NoError(t, db.IncrementPostViews(ctx, live.ID))
	got, err := db.GetPostBySlug(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)

	got.Title = "Live, edited"
	got.Slug = "draft"
	assert.ErrorIs(t, db.UpdatePost(ctx, got), repository.ErrConflict)
	got.Slug = "live-edited"
	require.NoError(t, db.UpdatePost(ctx, got))

	_, err = db.GetPostBySlug(ctx, "live")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, db.DeletePost(ctx, draft.ID))
	all, err := db.ListPosts(ctx, model.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTestimonialsAndResources(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	second := &model.Testimonial{Name: "B", Quote: "Great", Rating: 5, Active: true, SortOrder: 2}
	first := &model.Testimonial{Name: "A", Quote: "Good", Rating: 4, Active: true, SortOrder: 1}
	hidden := &model.Testimonial{Name: "H", Quote: "Meh", Rating: 3, Active: false}
	for _, tm := range []*model.Testimonial{second, first, hidden} {
		require.NoError(t, db.CreateTestimonial(ctx, tm))
	}

	active, err := db.ListTestimonials(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "A", active[0].Name)

	hidden.Active = true
	require.NoError(t, db.UpdateTestimonial(ctx, hidden))
	active, err = db.ListTestimonials(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 3)
	require.NoError(t, db.DeleteTestimonial(ctx, hidden.ID))
	_, err = db.GetTestimonial(ctx, hidden.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	r := &model.Resource{Title: "Guide", URL: "/guide.pdf", FileType: "pdf", Published: true}
	require.NoError(t, db.CreateResource(ctx, r))
	require.NoError(t, db.CreateResource(ctx, &model.Resource{Title: "Draft", URL: "/draft.pdf"}))
	require.NoError(t, db.IncrementResourceDownloads(ctx, r.ID))

	published, err := db.ListResources(ctx, true)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, int64(1), published[0].Downloads)

	r.Title = "Guide v2"
	require.NoError(t, db.UpdateResource(ctx, r))
	got, err := db.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guide v2", got.Title)
	assert.Equal(t, int64(1), got.Downloads)
	require.NoError(t, db.DeleteResource(ctx, r.ID))
}

func TestSubscribersAndSettings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := &model.NewsletterSubscriber{Email: " Jane@X.com ", Active: true, Source: "footer"}
	require.NoError(t, db.CreateSubscriber(ctx, s))
	assert.Equal(t, "jane@x.com", s.Email)

	err := db.CreateSubscriber(ctx, &model.NewsletterSubscriber{Email: "jane@x.com", Active: true})
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := db.GetSubscriberByEmail(ctx, "JANE@x.com")
	require.NoError(t, err)
	assert.True(t, got.Active)

	require.NoError(t, db.SetSubscriberActive(ctx, s.ID, false))
	list, err := db.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Active)
	require.NoError(t, db.DeleteSubscriber(ctx, s.ID))

	_, err = db.GetSetting(ctx, "general")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, db.UpsertSetting(ctx, "general", json.RawMessage(`{"site_name":"A"}`)))
	require.NoError(t, db.UpsertSetting(ctx, "general", json.RawMessage(`{"site_name":"B"}`)))
	require.NoError(t, db.UpsertSetting(ctx, "seo", json.RawMessage(`{}`)))
	assert.Error(t, db.UpsertSetting(ctx, "seo", json.RawMessage(`{nope`)))

	setting, err := db.GetSetting(ctx, "general")
	require.NoError(t, err)
	assert.JSONEq(t, `{"site_name":"B"}`, string(setting.Value))

	all, err := db.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "general", all[0].Key)
}

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateBooking(ctx, &model.Booking{Service: "x", Date: "2026-10-20", Time: "9:00 AM", Name: "A", Email: "a@b.co"}))

	logger := zerolog.New(io.Discard)
	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(db, BackupConfig{Enabled: true, Dir: dir, RetentionDays: 7}, &logger)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	restored, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer restored.Close()
	list, err := restored.ListBookings(ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	old := filepath.Join(dir, "backup_old.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, path)
}
