// Package repository defines the persistence contracts shared by every storage backend.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	"coachsite/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// BookingRepository stores consultation bookings.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error)
	// UpdateBookingStatus moves booking id from status from to status to. It returns
	// ErrNotFound for a missing booking and ErrConflict when the status is no longer from.
	UpdateBookingStatus(ctx context.Context, id int64, from, to string) error
	DeleteBooking(ctx context.Context, id int64) error
	// IsSlotBooked reports whether a non-cancelled booking already holds date/time.
	IsSlotBooked(ctx context.Context, date, timeSlot string) (bool, error)
}

// ContactRepository stores contact form messages.
type ContactRepository interface {
	CreateContact(ctx context.Context, m *model.ContactMessage) error
	GetContact(ctx context.Context, id int64) (*model.ContactMessage, error)
	ListContacts(ctx context.Context, filter model.ContactFilter) ([]model.ContactMessage, error)
	UpdateContactStatus(ctx context.Context, id int64, status string) error
	DeleteContact(ctx context.Context, id int64) error
}

// PostRepository stores blog posts.
type PostRepository interface {
	ListPosts(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error)
	GetPost(ctx context.Context, id int64) (*model.BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.BlogPost, error)
	CreatePost(ctx context.Context, p *model.BlogPost) error
	UpdatePost(ctx context.Context, p *model.BlogPost) error
	SetPostFlags(ctx context.Context, id int64, flags model.PostFlags) (*model.BlogPost, error)
	IncrementPostViews(ctx context.Context, id int64) error
	DeletePost(ctx context.Context, id int64) error
}

// TestimonialRepository stores testimonials.
type TestimonialRepository interface {
	ListTestimonials(ctx context.Context, activeOnly bool) ([]model.Testimonial, error)
	GetTestimonial(ctx context.Context, id int64) (*model.Testimonial, error)
	CreateTestimonial(ctx context.Context, t *model.Testimonial) error
	UpdateTestimonial(ctx context.Context, t *model.Testimonial) error
	DeleteTestimonial(ctx context.Context, id int64) error
}

// ResourceRepository stores downloadable resources.
type ResourceRepository interface {
	ListResources(ctx context.Context, publishedOnly bool) ([]model.Resource, error)
	GetResource(ctx context.Context, id int64) (*model.Resource, error)
	CreateResource(ctx context.Context, r *model.Resource) error
	UpdateResource(ctx context.Context, r *model.Resource) error
	IncrementResourceDownloads(ctx context.Context, id int64) error
	DeleteResource(ctx context.Context, id int64) error
}

// SubscriberRepository stores newsletter subscribers.
type SubscriberRepository interface {
	CreateSubscriber(ctx context.Context, s *model.NewsletterSubscriber) error
	GetSubscriberByEmail(ctx context.Context, email string) (*model.NewsletterSubscriber, error)
	SetSubscriberActive(ctx context.Context, id int64, active bool) error
	ListSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error)
	DeleteSubscriber(ctx context.Context, id int64) error
}

// SettingRepository stores site_settings key/value rows.
type SettingRepository interface {
	GetSetting(ctx context.Context, key string) (*model.SiteSetting, error)
	ListSettings(ctx context.Context) ([]model.SiteSetting, error)
	UpsertSetting(ctx context.Context, key string, value json.RawMessage) error
}

// Store bundles every repository a backend provides.
type Store interface {
	BookingRepository
	ContactRepository
	PostRepository
	TestimonialRepository
	ResourceRepository
	SubscriberRepository
	SettingRepository
	Ping(ctx context.Context) error
	Close() error
}
