package restdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coachsite/internal/model"
	"coachsite/internal/repository"
)

const (
	tableBookings     = "bookings"
	tableContacts     = "contact_messages"
	tablePosts        = "blog_posts"
	tableTestimonials = "testimonials"
	tableResources    = "resources"
	tableSubscribers  = "newsletter_subscribers"
	tableSettings     = "site_settings"

	preferRepresentation = "return=representation"
	newestFirst          = "created_at.desc,id.desc"
)

var _ repository.Store = (*Client)(nil)

func eq(v any) string {
	return "eq." + fmt.Sprint(v)
}

func byID(id int64) url.Values {
	return url.Values{"id": {eq(id)}}
}

func page(q url.Values, limit, offset int) {
	if limit <= 0 {
		return
	}
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

func now() time.Time {
	return time.Now().UTC()
}

func selectRows[T any](ctx context.Context, c *Client, table string, q url.Values, cached bool) ([]T, error) {
	rows := []T{}
	var err error
	if cached {
		err = c.selectCached(ctx, table, q, &rows)
	} else {
		err = c.doGet(ctx, c.endpoint(table, q), &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return rows, nil
}

func selectOne[T any](ctx context.Context, c *Client, table string, q url.Values) (*T, error) {
	q.Set("limit", "1")
	rows, err := selectRows[T](ctx, c, table, q, false)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &rows[0], nil
}

func insertRow[T any](ctx context.Context, c *Client, table string, body map[string]any) (*T, error) {
	var rows []T
	if err := c.doWrite(ctx, http.MethodPost, c.endpoint(table, nil), body, &rows, preferRepresentation); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: empty response", table)
	}
	c.invalidate(ctx, table)
	return &rows[0], nil
}

// updateRows PATCHes the rows matching q and returns them. No match is repository.ErrNotFound.
func updateRows[T any](ctx context.Context, c *Client, table string, q url.Values, body map[string]any) ([]T, error) {
	var rows []T
	if err := c.doWrite(ctx, http.MethodPatch, c.endpoint(table, q), body, &rows, preferRepresentation); err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	c.invalidate(ctx, table)
	return rows, nil
}

func (c *Client) deleteByID(ctx context.Context, table string, id int64) error {
	q := byID(id)
	q.Set("select", "id")
	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := c.doWrite(ctx, http.MethodDelete, c.endpoint(table, q), nil, &rows, preferRepresentation); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	c.invalidate(ctx, table)
	return nil
}

// Bookings

func (c *Client) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	ts := now()
	row, err := insertRow[model.Booking](ctx, c, tableBookings, map[string]any{
		"service":      b.Service,
		"service_name": b.ServiceName,
		"date":         b.Date,
		"time":         b.Time,
		"name":         b.Name,
		"email":        b.Email,
		"phone":        b.Phone,
		"company":      b.Company,
		"message":      b.Message,
		"status":       b.Status,
		"created_at":   ts,
		"updated_at":   ts,
	})
	if err != nil {
		return err
	}
	*b = *row
	return nil
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	return selectOne[model.Booking](ctx, c, tableBookings, byID(id))
}

func (c *Client) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	q := url.Values{"order": {newestFirst}}
	if filter.Status != "" && filter.Status != "all" {
		q.Set("status", eq(filter.Status))
	}
	if filter.Date != "" {
		q.Set("date", eq(filter.Date))
	}
	page(q, filter.Limit, filter.Offset)
	return selectRows[model.Booking](ctx, c, tableBookings, q, false)
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id int64, from, to string) error {
	q := byID(id)
	q.Set("status", eq(from))
	_, err := updateRows[model.Booking](ctx, c, tableBookings, q, map[string]any{
		"status":     to,
		"updated_at": now(),
	})
	if errors.Is(err, repository.ErrNotFound) {
		if _, getErr := c.GetBooking(ctx, id); getErr == nil {
			return fmt.Errorf("%w: booking %d is no longer %s", repository.ErrConflict, id, from)
		}
	}
	return err
}

func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, tableBookings, id)
}

func (c *Client) IsSlotBooked(ctx context.Context, date, timeSlot string) (bool, error) {
	q := url.Values{
		"select": {"id"},
		"date":   {eq(date)},
		"time":   {eq(timeSlot)},
		"status": {"neq." + model.BookingCancelled},
		"limit":  {"1"},
	}
	rows, err := selectRows[struct {
		ID int64 `json:"id"`
	}](ctx, c, tableBookings, q, false)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Contacts

func (c *Client) CreateContact(ctx context.Context, m *model.ContactMessage) error {
	if m.Status == "" {
		m.Status = model.ContactUnread
	}
	ts := now()
	row, err := insertRow[model.ContactMessage](ctx, c, tableContacts, map[string]any{
		"name":       m.Name,
		"email":      m.Email,
		"company":    m.Company,
		"service":    m.Service,
		"message":    m.Message,
		"status":     m.Status,
		"created_at": ts,
		"updated_at": ts,
	})
	if err != nil {
		return err
	}
	*m = *row
	return nil
}

func (c *Client) GetContact(ctx context.Context, id int64) (*model.ContactMessage, error) {
	return selectOne[model.ContactMessage](ctx, c, tableContacts, byID(id))
}

func (c *Client) ListContacts(ctx context.Context, filter model.ContactFilter) ([]model.ContactMessage, error) {
	q := url.Values{"order": {newestFirst}}
	if filter.Status != "" && filter.Status != "all" {
		q.Set("status", eq(filter.Status))
	}
	page(q, filter.Limit, filter.Offset)
	return selectRows[model.ContactMessage](ctx, c, tableContacts, q, false)
}

func (c *Client) UpdateContactStatus(ctx context.Context, id int64, status string) error {
	_, err := updateRows[model.ContactMessage](ctx, c, tableContacts, byID(id), map[string]any{
		"status":     status,
		"updated_at": now(),
	})
	return err
}

func (c *Client) DeleteContact(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, tableContacts, id)
}

// Posts

func postBody(p *model.BlogPost) map[string]any {
	return map[string]any{
		"title":     p.Title,
		"slug":      p.Slug,
		"excerpt":   p.Excerpt,
		"content":   p.Content,
		"category":  p.Category,
		"image_url": p.ImageURL,
		"featured":  p.Featured,
		"published": p.Published,
		"read_time": p.ReadTime,
	}
}

// ListPosts serves published listings from the cache when one is configured.
func (c *Client) ListPosts(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error) {
	q := url.Values{"order": {newestFirst}}
	if filter.PublishedOnly {
		q.Set("published", eq(true))
	}
	if filter.FeaturedOnly {
		q.Set("featured", eq(true))
	}
	if filter.Category != "" {
		q.Set("category", "ilike."+filter.Category)
	}
	page(q, filter.Limit, filter.Offset)
	return selectRows[model.BlogPost](ctx, c, tablePosts, q, filter.PublishedOnly)
}

func (c *Client) GetPost(ctx context.Context, id int64) (*model.BlogPost, error) {
	return selectOne[model.BlogPost](ctx, c, tablePosts, byID(id))
}

func (c *Client) GetPostBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	return selectOne[model.BlogPost](ctx, c, tablePosts, url.Values{"slug": {eq(slug)}})
}

func (c *Client) CreatePost(ctx context.Context, p *model.BlogPost) error {
	ts := now()
	body := postBody(p)
	body["views"] = 0
	body["created_at"] = ts
	body["updated_at"] = ts
	row, err := insertRow[model.BlogPost](ctx, c, tablePosts, body)
	if err != nil {
		return err
	}
	*p = *row
	return nil
}

func (c *Client) UpdatePost(ctx context.Context, p *model.BlogPost) error {
	body := postBody(p)
	body["updated_at"] = now()
	rows, err := updateRows[model.BlogPost](ctx, c, tablePosts, byID(p.ID), body)
	if err != nil {
		return err
	}
	*p = rows[0]
	return nil
}

func (c *Client) SetPostFlags(ctx context.Context, id int64, flags model.PostFlags) (*model.BlogPost, error) {
	body := map[string]any{"updated_at": now()}
	if flags.Published != nil {
		body["published"] = *flags.Published
	}
	if flags.Featured != nil {
		body["featured"] = *flags.Featured
	}
	rows, err := updateRows[model.BlogPost](ctx, c, tablePosts, byID(id), body)
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// IncrementPostViews reads then writes the counter; the data API has no atomic increment.
func (c *Client) IncrementPostViews(ctx context.Context, id int64) error {
	p, err := c.GetPost(ctx, id)
	if err != nil {
		return err
	}
	_, err = updateRows[model.BlogPost](ctx, c, tablePosts, byID(id), map[string]any{"views": p.Views + 1})
	return err
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, tablePosts, id)
}

// Testimonials

func testimonialBody(t *model.Testimonial) map[string]any {
	return map[string]any{
		"name":       t.Name,
		"role":       t.Role,
		"company":    t.Company,
		"quote":      t.Quote,
		"rating":     t.Rating,
		"image_url":  t.ImageURL,
		"featured":   t.Featured,
		"active":     t.Active,
		"sort_order": t.SortOrder,
	}
}

func (c *Client) ListTestimonials(ctx context.Context, activeOnly bool) ([]model.Testimonial, error) {
	q := url.Values{"order": {"sort_order.asc,id.asc"}}
	if activeOnly {
		q.Set("active", eq(true))
	}
	return selectRows[model.Testimonial](ctx, c, tableTestimonials, q, activeOnly)
}

func (c *Client) GetTestimonial(ctx context.Context, id int64) (*model.Testimonial, error) {
	return selectOne[model.Testimonial](ctx, c, tableTestimonials, byID(id))
}

func (c *Client) CreateTestimonial(ctx context.Context, t *model.Testimonial) error {
	body := testimonialBody(t)
	body["created_at"] = now()
	row, err := insertRow[model.Testimonial](ctx, c, tableTestimonials, body)
	if err != nil {
		return err
	}
	*t = *row
	return nil
}

func (c *Client) UpdateTestimonial(ctx context.Context, t *model.Testimonial) error {
	_, err := updateRows[model.Testimonial](ctx, c, tableTestimonials, byID(t.ID), testimonialBody(t))
	return err
}

func (c *Client) DeleteTestimonial(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, tableTestimonials, id)
}

// Resources

func resourceBody(r *model.Resource) map[string]any {
	return map[string]any{
		"title":       r.Title,
		"description": r.Description,
		"category":    r.Category,
		"url":         r.URL,
		"file_type":   r.FileType,
		"featured":    r.Featured,
		"published":   r.Published,
	}
}

func (c *Client) ListResources(ctx context.Context, publishedOnly bool) ([]model.Resource, error) {
	q := url.Values{"order": {newestFirst}}
	if publishedOnly {
		q.Set("published", eq(true))
	}
	return selectRows[model.Resource](ctx, c, tableResources, q, publishedOnly)
}

func (c *Client) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	return selectOne[model.Resource](ctx, c, tableResources, byID(id))
}

func (c *Client) CreateResource(ctx context.Context, r *model.Resource) error {
	body := resourceBody(r)
	body["downloads"] = 0
	body["created_at"] = now()
	row, err := insertRow[model.Resource](ctx, c, tableResources, body)
	if err != nil {
		return err
	}
	*r = *row
	return nil
}

func (c *Client) UpdateResource(ctx context.Context, r *model.Resource) error {
	_, err := updateRows[model.Resource](ctx, c, tableResources, byID(r.ID), resourceBody(r))
	return err
}

func (c *Client) IncrementResourceDownloads(ctx context.Context, id int64) error {
	r, err := c.GetResource(ctx, id)
	if err != nil {
		return err
	}
	_, err = updateRows[model.Resource](ctx, c, tableResources, byID(id), map[string]any{"downloads": r.Downloads + 1})
	return err
}

func (c *Client) DeleteResource(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, tableResources, id)
}

// Subscribers

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Client) CreateSubscriber(ctx context.Context, s *model.NewsletterSubscriber) error {
	row, err := insertRow[model.NewsletterSubscriber](ctx, c, tableSubscribers, map[string]any{
		"email":         normalizeEmail(s.Email),
		"name":          s.Name,
		"source":        s.Source,
		"active":        s.Active,
		"subscribed_at": now(),
	})
	if err != nil {
		return err
	}
	*s = *row
	return nil
}

func (c *Client) GetSubscriberByEmail(ctx context.Context, email string) (*model.NewsletterSubscriber, error) {
	return selectOne[model.NewsletterSubscriber](ctx, c, tableSubscribers, url.Values{"email": {eq(normalizeEmail(email))}})
}

func (c *Client) SetSubscriberActive(ctx context.Context, id int64, active bool) error {
	_, err := updateRows[model.NewsletterSubscriber](ctx, c, tableSubscribers, byID(id), map[string]any{"active": active})
	return err
}

func (c *Client) ListSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error) {
	return selectRows[model.NewsletterSubscriber](ctx, c, tableSubscribers,
		url.Values{"order": {"subscribed_at.desc,id.desc"}}, false)
}

func (c *Client) DeleteSubscriber(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, tableSubscribers, id)
}

// Settings

func (c *Client) GetSetting(ctx context.Context, key string) (*model.SiteSetting, error) {
	return selectOne[model.SiteSetting](ctx, c, tableSettings, url.Values{"key": {eq(key)}})
}

func (c *Client) ListSettings(ctx context.Context) ([]model.SiteSetting, error) {
	return selectRows[model.SiteSetting](ctx, c, tableSettings, url.Values{"order": {"key.asc"}}, false)
}

// UpsertSetting merges on the key column.
func (c *Client) UpsertSetting(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("setting %s: invalid JSON value", key)
	}
	body := map[string]any{"key": key, "value": value, "updated_at": now()}
	q := url.Values{"on_conflict": {"key"}}
	err := c.doWrite(ctx, http.MethodPost, c.endpoint(tableSettings, q), body, nil,
		"resolution=merge-duplicates,return=minimal")
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	c.invalidate(ctx, tableSettings)
	return nil
}
