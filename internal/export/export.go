package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"coachsite/internal/model"

	"github.com/rs/zerolog"
)

const timeLayout = "2006-01-02 15:04"

// Source is the read side of the export.
type Source interface {
	ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error)
	ListContacts(ctx context.Context, filter model.ContactFilter) ([]model.ContactMessage, error)
	ListSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error)
	ListPosts(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error)
}

type table struct {
	name    string
	columns []string
	rows    func(ctx context.Context) ([][]any, error)
}

// Exporter builds the admin workbook with one sheet per table.
type Exporter struct {
	source Source
	logger zerolog.Logger
	now    func() time.Time
}

func NewExporter(source Source, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		source: source,
		logger: logger.With().Str("component", "export").Logger(),
		now:    time.Now,
	}
}

// Filename is the download name for an export made now.
func (e *Exporter) Filename() string {
	return fmt.Sprintf("coachsite-export-%s.xlsx", e.now().Format("2006-01-02"))
}

// Write renders every table into out.
func (e *Exporter) Write(ctx context.Context, out io.Writer) error {
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	for _, t := range e.tables() {
		rows, err := t.rows(ctx)
		if err != nil {
			return fmt.Errorf("export %s: %w", t.name, err)
		}
		if err := wb.AddSheet(t.name); err != nil {
			return err
		}
		if err := wb.WriteHeader(t.columns); err != nil {
			return err
		}
		for _, r := range rows {
			if err := wb.WriteRow(r); err != nil {
				return err
			}
		}
		e.logger.Debug().Str("sheet", t.name).Int("rows", len(rows)).Msg("sheet written")
	}

	if _, err := wb.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) tables() []table {
	return []table{
		{
			name:    "Bookings",
			columns: []string{"ID", "Service", "Date", "Time", "Name", "Email", "Phone", "Company", "Message", "Status", "Created"},
			rows: func(ctx context.Context) ([][]any, error) {
				list, err := e.source.ListBookings(ctx, model.BookingFilter{})
				if err != nil {
					return nil, err
				}
				rows := make([][]any, 0, len(list))
				for _, b := range list {
					service := b.ServiceName
					if service == "" {
						service = b.Service
					}
					rows = append(rows, []any{b.ID, service, b.Date, b.Time, b.Name, b.Email, b.Phone, b.Company, b.Message, b.Status, stamp(b.CreatedAt)})
				}
				return rows, nil
			},
		},
		{
			name:    "Contacts",
			columns: []string{"ID", "Name", "Email", "Company", "Service", "Message", "Status", "Created"},
			rows: func(ctx context.Context) ([][]any, error) {
				list, err := e.source.ListContacts(ctx, model.ContactFilter{})
				if err != nil {
					return nil, err
				}
				rows := make([][]any, 0, len(list))
				for _, m := range list {
					rows = append(rows, []any{m.ID, m.Name, m.Email, m.Company, m.Service, m.Message, m.Status, stamp(m.CreatedAt)})
				}
				return rows, nil
			},
		},
		{
			name:    "Subscribers",
			columns: []string{"ID", "Email", "Name", "Source", "Active", "Subscribed"},
			rows: func(ctx context.Context) ([][]any, error) {
				list, err := e.source.ListSubscribers(ctx)
				if err != nil {
					return nil, err
				}
				rows := make([][]any, 0, len(list))
				for _, s := range list {
					rows = append(rows, []any{s.ID, s.Email, s.Name, s.Source, yesNo(s.Active), stamp(s.SubscribedAt)})
				}
				return rows, nil
			},
		},
		{
			name:    "Posts",
			columns: []string{"ID", "Title", "Slug", "Category", "Published", "Featured", "Views", "Read time", "Created"},
			rows: func(ctx context.Context) ([][]any, error) {
				list, err := e.source.ListPosts(ctx, model.PostFilter{})
				if err != nil {
					return nil, err
				}
				rows := make([][]any, 0, len(list))
				for _, p := range list {
					rows = append(rows, []any{p.ID, p.Title, p.Slug, p.Category, yesNo(p.Published), yesNo(p.Featured), p.Views, p.ReadTime, stamp(p.CreatedAt)})
				}
				return rows, nil
			},
		},
	}
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
