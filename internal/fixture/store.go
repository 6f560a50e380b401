// Package fixture provides an in-memory Store seeded from a YAML demo dataset.
package fixture

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"coachsite/internal/model"
	"coachsite/internal/repository"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Dataset is the demo content shown when no live data is available.
type Dataset struct {
	Posts        []model.BlogPost    `yaml:"posts"`
	Testimonials []model.Testimonial `yaml:"testimonials"`
	Resources    []model.Resource    `yaml:"resources"`
}

// Parse decodes a dataset from YAML.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &ds, nil
}

// Load reads a dataset file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the embedded demo dataset.
func Default() *Dataset {
	ds, err := Parse(defaultContent)
	if err != nil {
		panic(err)
	}
	return ds
}

// Store keeps every table in memory. Writes are lost on restart.
type Store struct {
	mu           sync.RWMutex
	bookings     []model.Booking
	contacts     []model.ContactMessage
	posts        []model.BlogPost
	testimonials []model.Testimonial
	resources    []model.Resource
	subscribers  []model.NewsletterSubscriber
	settings     map[string]model.SiteSetting
	lastID       map[string]int64
	now          func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New creates a store seeded with ds. A nil ds seeds the embedded dataset.
func New(ds *Dataset) *Store {
	s := &Store{
		settings: make(map[string]model.SiteSetting),
		lastID:   make(map[string]int64),
		now:      time.Now,
	}
	if ds == nil {
		ds = Default()
	}
	s.Replace(ds)
	return s
}

// Replace swaps the demo content tables for ds. Bookings, contacts, subscribers and
// settings are kept.
func (s *Store) Replace(ds *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = append([]model.BlogPost(nil), ds.Posts...)
	s.testimonials = append([]model.Testimonial(nil), ds.Testimonials...)
	s.resources = append([]model.Resource(nil), ds.Resources...)

	s.lastID["posts"] = 0
	for _, p := range s.posts {
		s.bumpID("posts", p.ID)
	}
	s.lastID["testimonials"] = 0
	for _, t := range s.testimonials {
		s.bumpID("testimonials", t.ID)
	}
	s.lastID["resources"] = 0
	for _, r := range s.resources {
		s.bumpID("resources", r.ID)
	}
}

func (s *Store) bumpID(table string, id int64) {
	if id > s.lastID[table] {
		s.lastID[table] = id
	}
}

func (s *Store) nextID(table string) int64 {
	s.lastID[table]++
	return s.lastID[table]
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Bookings

func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	b.ID = s.nextID("bookings")
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	b.CreatedAt, b.UpdatedAt = now, now
	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			b := s.bookings[i]
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	s.mu.RLock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if !matchStatus(filter.Status, b.Status) {
			continue
		}
		if filter.Date != "" && b.Date != filter.Date {
			continue
		}
		out = append(out, b)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return repository.Paginate(out, filter.Limit, filter.Offset), nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			if s.bookings[i].Status != from {
				return fmt.Errorf("%w: booking %d is no longer %s", repository.ErrConflict, id, from)
			}
			s.bookings[i].Status = to
			s.bookings[i].UpdatedAt = s.now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			s.bookings = append(s.bookings[:i], s.bookings[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) IsSlotBooked(ctx context.Context, date, timeSlot string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if b.Date == date && b.Time == timeSlot && b.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

// Contacts

func (s *Store) CreateContact(ctx context.Context, m *model.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	m.ID = s.nextID("contacts")
	if m.Status == "" {
		m.Status = model.ContactUnread
	}
	m.CreatedAt, m.UpdatedAt = now, now
	s.contacts = append(s.contacts, *m)
	return nil
}

func (s *Store) GetContact(ctx context.Context, id int64) (*model.ContactMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			m := s.contacts[i]
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListContacts(ctx context.Context, filter model.ContactFilter) ([]model.ContactMessage, error) {
	s.mu.RLock()
	out := make([]model.ContactMessage, 0, len(s.contacts))
	for _, m := range s.contacts {
		if matchStatus(filter.Status, m.Status) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return repository.Paginate(out, filter.Limit, filter.Offset), nil
}

func (s *Store) UpdateContactStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts[i].Status = status
			s.contacts[i].UpdatedAt = s.now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) DeleteContact(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// Posts

func (s *Store) ListPosts(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error) {
	s.mu.RLock()
	out := make([]model.BlogPost, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.PublishedOnly && !p.Published {
			continue
		}
		if filter.FeaturedOnly && !p.Featured {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return repository.Paginate(out, filter.Limit, filter.Offset), nil
}

func (s *Store) findPost(match func(model.BlogPost) bool) (*model.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.posts {
		if match(s.posts[i]) {
			p := s.posts[i]
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetPost(ctx context.Context, id int64) (*model.BlogPost, error) {
	return s.findPost(func(p model.BlogPost) bool { return p.ID == id })
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	return s.findPost(func(p model.BlogPost) bool { return p.Slug == slug })
}

func (s *Store) CreatePost(ctx context.Context, p *model.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.posts {
		if existing.Slug == p.Slug {
			return repository.ErrConflict
		}
	}
	now := s.now()
	p.ID = s.nextID("posts")
	p.CreatedAt, p.UpdatedAt = now, now
	s.posts = append(s.posts, *p)
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, p *model.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.posts {
		if s.posts[i].ID == p.ID {
			idx = i
		} else if s.posts[i].Slug == p.Slug {
			return repository.ErrConflict
		}
	}
	if idx < 0 {
		return repository.ErrNotFound
	}
	p.CreatedAt = s.posts[idx].CreatedAt
	p.Views = s.posts[idx].Views
	p.UpdatedAt = s.now()
	s.posts[idx] = *p
	return nil
}

func (s *Store) SetPostFlags(ctx context.Context, id int64, flags model.PostFlags) (*model.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID != id {
			continue
		}
		if flags.Published != nil {
			s.posts[i].Published = *flags.Published
		}
		if flags.Featured != nil {
			s.posts[i].Featured = *flags.Featured
		}
		s.posts[i].UpdatedAt = s.now()
		p := s.posts[i]
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) IncrementPostViews(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Views++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// Testimonials

func (s *Store) ListTestimonials(ctx context.Context, activeOnly bool) ([]model.Testimonial, error) {
	s.mu.RLock()
	out := make([]model.Testimonial, 0, len(s.testimonials))
	for _, t := range s.testimonials {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetTestimonial(ctx context.Context, id int64) (*model.Testimonial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.testimonials {
		if s.testimonials[i].ID == id {
			t := s.testimonials[i]
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateTestimonial(ctx context.Context, t *model.Testimonial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID("testimonials")
	t.CreatedAt = s.now()
	s.testimonials = append(s.testimonials, *t)
	return nil
}

func (s *Store) UpdateTestimonial(ctx context.Context, t *model.Testimonial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.testimonials {
		if s.testimonials[i].ID == t.ID {
			t.CreatedAt = s.testimonials[i].CreatedAt
			s.testimonials[i] = *t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) DeleteTestimonial(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.testimonials {
		if s.testimonials[i].ID == id {
			s.testimonials = append(s.testimonials[:i], s.testimonials[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// Resources

func (s *Store) ListResources(ctx context.Context, publishedOnly bool) ([]model.Resource, error) {
	s.mu.RLock()
	out := make([]model.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if publishedOnly && !r.Published {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Store) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.resources {
		if s.resources[i].ID == id {
			r := s.resources[i]
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateResource(ctx context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextID("resources")
	r.CreatedAt = s.now()
	s.resources = append(s.resources, *r)
	return nil
}

func (s *Store) UpdateResource(ctx context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.resources {
		if s.resources[i].ID == r.ID {
			r.CreatedAt = s.resources[i].CreatedAt
			r.Downloads = s.resources[i].Downloads
			s.resources[i] = *r
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) IncrementResourceDownloads(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.resources {
		if s.resources[i].ID == id {
			s.resources[i].Downloads++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) DeleteResource(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.resources {
		if s.resources[i].ID == id {
			s.resources = append(s.resources[:i], s.resources[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// Subscribers

func (s *Store) CreateSubscriber(ctx context.Context, sub *model.NewsletterSubscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subscribers {
		if strings.EqualFold(existing.Email, sub.Email) {
			return repository.ErrConflict
		}
	}
	sub.ID = s.nextID("subscribers")
	sub.SubscribedAt = s.now()
	s.subscribers = append(s.subscribers, *sub)
	return nil
}

func (s *Store) GetSubscriberByEmail(ctx context.Context, email string) (*model.NewsletterSubscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.subscribers {
		if strings.EqualFold(s.subscribers[i].Email, email) {
			sub := s.subscribers[i]
			return &sub, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) SetSubscriberActive(ctx context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subscribers {
		if s.subscribers[i].ID == id {
			s.subscribers[i].Active = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) ListSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error) {
	s.mu.RLock()
	out := append([]model.NewsletterSubscriber(nil), s.subscribers...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return newer(out[i].SubscribedAt, out[i].ID, out[j].SubscribedAt, out[j].ID)
	})
	return out, nil
}

func (s *Store) DeleteSubscriber(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subscribers {
		if s.subscribers[i].ID == id {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// Settings

func (s *Store) GetSetting(ctx context.Context, key string) (*model.SiteSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	setting.Value = append(json.RawMessage(nil), setting.Value...)
	return &setting, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]model.SiteSetting, error) {
	s.mu.RLock()
	out := make([]model.SiteSetting, 0, len(s.settings))
	for _, setting := range s.settings {
		out = append(out, setting)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) UpsertSetting(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("setting %s: invalid JSON value", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = model.SiteSetting{
		Key:       key,
		Value:     append(json.RawMessage(nil), value...),
		UpdatedAt: s.now(),
	}
	return nil
}

func matchStatus(filter, status string) bool {
	return filter == "" || filter == "all" || filter == status
}

// newer orders by creation time descending, then id descending.
func newer(ti time.Time, idi int64, tj time.Time, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}
