// Package sheets mirrors active bookings into a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"coachsite/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

var header = []any{"ID", "Service", "Date", "Time", "Status", "Name", "Email", "Phone", "Company", "Created", "Updated"}

// ValuesAPI is the spreadsheet values surface the sync uses.
type ValuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// BookingLister returns every booking.
type BookingLister interface {
	ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error)
}

// Client wraps the Sheets v4 values service.
type Client struct {
	values *gsheets.SpreadsheetsValuesService
}

// NewClient authenticates with a service-account JSON key file.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{values: srv.Spreadsheets.Values}, nil
}

func (c *Client) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := c.values.Clear(spreadsheetID, rng, &gsheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (c *Client) Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := c.values.Update(spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// Service rewrites the booking sheet from the current active bookings.
type Service struct {
	api           ValuesAPI
	bookings      BookingLister
	spreadsheetID string
	rng           string
	logger        zerolog.Logger
}

func NewService(api ValuesAPI, bookings BookingLister, spreadsheetID, rng string, logger *zerolog.Logger) *Service {
	return &Service{
		api:           api,
		bookings:      bookings,
		spreadsheetID: spreadsheetID,
		rng:           rng,
		logger:        logger.With().Str("component", "sheets").Logger(),
	}
}

// SyncActive replaces the sheet contents with a header and one row per non-cancelled booking.
// It returns the number of bookings written.
func (s *Service) SyncActive(ctx context.Context) (int, error) {
	all, err := s.bookings.ListBookings(ctx, model.BookingFilter{})
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}
	active := filterActiveBookings(all)

	rows := make([][]any, 0, len(active)+1)
	rows = append(rows, header)
	for i := range active {
		rows = append(rows, bookingRowValues(&active[i]))
	}

	if err := s.api.Clear(ctx, s.spreadsheetID, sheetOf(s.rng)); err != nil {
		return 0, fmt.Errorf("clear sheet: %w", err)
	}
	if err := s.api.Update(ctx, s.spreadsheetID, s.rng, rows); err != nil {
		return 0, fmt.Errorf("update sheet: %w", err)
	}

	s.logger.Info().Int("bookings", len(active)).Str("range", s.rng).Msg("bookings synced to sheet")
	return len(active), nil
}

func filterActiveBookings(bookings []model.Booking) []model.Booking {
	out := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.IsActive() {
			out = append(out, b)
		}
	}
	return out
}

func bookingRowValues(b *model.Booking) []any {
	service := b.ServiceName
	if service == "" {
		service = b.Service
	}
	return []any{
		b.ID,
		service,
		b.Date,
		b.Time,
		b.Status,
		b.Name,
		b.Email,
		b.Phone,
		b.Company,
		b.CreatedAt.Format(time.DateTime),
		b.UpdatedAt.Format(time.DateTime),
	}
}

// sheetOf turns "Bookings!A1" into "Bookings" so the whole tab is cleared.
func sheetOf(rng string) string {
	if i := strings.IndexByte(rng, '!'); i >= 0 {
		return rng[:i]
	}
	return rng
}
