package export

import (
	"bytes"
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
	"github.com/xuri/excelize/v2"
)

type failingSource struct{ *fixture.Store }

func (failingSource) ListContacts(context.Context, model.ContactFilter) ([]model.ContactMessage, error) {
	return nil, errors.New("db down")
}

func newExporter(src Source) *Exporter {
	logger := zerolog.New(io.Discard)
	e := NewExporter(src, &logger)
	e.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestWriteWorkbook(t *testing.T) {
	ctx := context.Background()
	store := fixture.New(nil)
	require.NoError(t, store.CreateBooking(ctx, &model.Booking{Service: "leadership", ServiceName: "Leadership Coaching", Date: "2026-10-20", Time: "10:00 AM", Name: "Jane Doe", Email: "jane@x.com"}))
	require.NoError(t, store.CreateContact(ctx, &model.ContactMessage{Name: "Sam", Email: "sam@x.com", Message: "Hi", Status: model.ContactUnread}))
	require.NoError(t, store.CreateSubscriber(ctx, &model.NewsletterSubscriber{Email: "reader@x.com", Active: true}))

	var buf bytes.Buffer
	require.NoError(t, newExporter(store).Write(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Bookings", "Contacts", "Subscribers", "Posts"}, f.GetSheetList())

	bookings, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "ID", bookings[0][0])
	assert.Equal(t, "Leadership Coaching", bookings[1][1])
	assert.Equal(t, "pending", bookings[1][9])

	contacts, err := f.GetRows("Contacts")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "sam@x.com", contacts[1][2])

	subs, err := f.GetRows("Subscribers")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "yes", subs[1][4])

	posts, err := f.GetRows("Posts")
	require.NoError(t, err)
	assert.Len(t, posts, 4)

	styleID, err := f.GetCellStyle("Posts", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteStopsOnSourceError(t *testing.T) {
	var buf bytes.Buffer
	err := newExporter(failingSource{fixture.New(nil)}).Write(context.Background(), &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export Contacts")
	assert.Zero(t, buf.Len())
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "coachsite-export-2026-10-14.xlsx", newExporter(fixture.New(nil)).Filename())
}

func TestWorkbookRequiresSheet(t *testing.T) {
	wb, err := NewWorkbook()
	require.NoError(t, err)
	defer wb.Close()
	assert.ErrorIs(t, wb.WriteRow([]any{1}), errNoSheet)
}

func TestSheetNameTruncated(t *testing.T) {
	wb, err := NewWorkbook()
	require.NoError(t, err)
	defer wb.Close()
	require.NoError(t, wb.AddSheet("a-very-long-sheet-name-that-excel-rejects"))
	assert.Len(t, wb.sheet, maxSheetName)
}
