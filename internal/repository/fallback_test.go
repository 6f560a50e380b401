package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"coachsite/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
	Store
}

func (m *mockStore) ListPosts(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BlogPost), args.Error(1)
}

func (m *mockStore) GetPostBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlogPost), args.Error(1)
}

func (m *mockStore) ListTestimonials(ctx context.Context, activeOnly bool) ([]model.Testimonial, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Testimonial), args.Error(1)
}

func (m *mockStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func TestFallbackStore(t *testing.T) {
	primary := new(mockStore)
	fixture := new(mockStore)
	logger := zerolog.New(io.Discard)
	store := WithFallback(primary, fixture, &logger)
	ctx := context.Background()
	filter := model.PostFilter{PublishedOnly: true}

	t.Run("PrimarySuccess", func(t *testing.T) {
		posts := []model.BlogPost{{ID: 1, Title: "Live"}}
		primary.On("ListPosts", ctx, filter).Return(posts, nil).Once()

		got, err := store.ListPosts(ctx, filter)
		assert.NoError(t, err)
		assert.Equal(t, posts, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		demo := []model.Testimonial{{ID: 9, Name: "Demo"}}
		primary.On("ListTestimonials", ctx, true).Return(nil, errors.New("connection refused")).Once()
		fixture.On("ListTestimonials", ctx, true).Return(demo, nil).Once()

		got, err := store.ListTestimonials(ctx, true)
		assert.NoError(t, err)
		assert.Equal(t, demo, got)
		assert.True(t, store.isDown.Load())
		primary.AssertExpectations(t)
		fixture.AssertExpectations(t)
	})

	t.Run("SkipsPrimaryWhileDown", func(t *testing.T) {
		demo := []model.BlogPost{{ID: 2, Title: "Demo"}}
		fixture.On("ListPosts", ctx, filter).Return(demo, nil).Once()

		got, err := store.ListPosts(ctx, filter)
		assert.NoError(t, err)
		assert.Equal(t, demo, got)
		fixture.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		store.isDown.Store(true)
		store.lastCheck = time.Now().Add(-2 * time.Minute)

		posts := []model.BlogPost{{ID: 3, Title: "Back"}}
		primary.On("ListPosts", ctx, filter).Return(posts, nil).Once()

		got, err := store.ListPosts(ctx, filter)
		assert.NoError(t, err)
		assert.Equal(t, posts, got)
		assert.False(t, store.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("NotFoundIsNotAFailure", func(t *testing.T) {
		primary.On("GetPostBySlug", ctx, "missing").Return(nil, ErrNotFound).Once()

		_, err := store.GetPostBySlug(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, store.isDown.Load())
	})

	t.Run("WritesAreNotMasked", func(t *testing.T) {
		b := &model.Booking{Name: "Jane"}
		primary.On("CreateBooking", ctx, b).Return(errors.New("insert failed")).Once()

		err := store.CreateBooking(ctx, b)
		assert.EqualError(t, err, "insert failed")
		fixture.AssertNotCalled(t, "CreateBooking", ctx, b)
	})
}
