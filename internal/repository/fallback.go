package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"coachsite/internal/metrics"
	"coachsite/internal/model"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FallbackStore serves public list reads from a demo dataset when the primary store fails.
// Writes always go to the primary and their errors are never masked.
type FallbackStore struct {
	Store
	fallback  Store
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

var _ Store = (*FallbackStore)(nil)

// WithFallback wraps primary so that post, testimonial and resource reads fall back to fixture.
func WithFallback(primary, fixture Store, logger *zerolog.Logger) *FallbackStore {
	return &FallbackStore{
		Store:    primary,
		fallback: fixture,
		logger:   logger,
	}
}

// usePrimary reports whether the primary should be tried. While marked down it is retried
// once per recoveryInterval.
func (s *FallbackStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) >= recoveryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

func (s *FallbackStore) markDown(resource string, err error) {
	if !s.isDown.Swap(true) {
		s.mu.Lock()
		s.lastCheck = time.Now()
		s.mu.Unlock()
	}
	metrics.IncFallbackRead(resource)
	s.logger.Error().Err(err).Str("resource", resource).Msg("primary store read failed, serving demo data")
}

func (s *FallbackStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("primary store recovered")
	}
}

// ListPosts implements PostRepository.
func (s *FallbackStore) ListPosts(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error) {
	if s.usePrimary() {
		posts, err := s.Store.ListPosts(ctx, filter)
		if err == nil {
			s.markUp()
			return posts, nil
		}
		s.markDown("posts", err)
	} else {
		metrics.IncFallbackRead("posts")
	}
	return s.fallback.ListPosts(ctx, filter)
}

// GetPostBySlug implements PostRepository. A missing post on a healthy primary is not a failure.
func (s *FallbackStore) GetPostBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	if s.usePrimary() {
		post, err := s.Store.GetPostBySlug(ctx, slug)
		if err == nil || err == ErrNotFound {
			s.markUp()
			return post, err
		}
		s.markDown("posts", err)
	} else {
		metrics.IncFallbackRead("posts")
	}
	return s.fallback.GetPostBySlug(ctx, slug)
}

// ListTestimonials implements TestimonialRepository.
func (s *FallbackStore) ListTestimonials(ctx context.Context, activeOnly bool) ([]model.Testimonial, error) {
	if s.usePrimary() {
		items, err := s.Store.ListTestimonials(ctx, activeOnly)
		if err == nil {
			s.markUp()
			return items, nil
		}
		s.markDown("testimonials", err)
	} else {
		metrics.IncFallbackRead("testimonials")
	}
	return s.fallback.ListTestimonials(ctx, activeOnly)
}

// ListResources implements ResourceRepository.
func (s *FallbackStore) ListResources(ctx context.Context, publishedOnly bool) ([]model.Resource, error) {
	if s.usePrimary() {
		items, err := s.Store.ListResources(ctx, publishedOnly)
		if err == nil {
			s.markUp()
			return items, nil
		}
		s.markDown("resources", err)
	} else {
		metrics.IncFallbackRead("resources")
	}
	return s.fallback.ListResources(ctx, publishedOnly)
}
