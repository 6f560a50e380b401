package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	bookmarkPrefix = "bookmarks:"

	// VisitorCookie names the cookie carrying the visitor id.
	VisitorCookie = "visitor_id"

	DefaultBookmarkTTL = 180 * 24 * time.Hour
)

// Bookmarks keeps the set of saved post ids per visitor.
type Bookmarks struct {
	store Store
	ttl   time.Duration
}

func NewBookmarks(store Store, ttl time.Duration) *Bookmarks {
	if ttl <= 0 {
		ttl = DefaultBookmarkTTL
	}
	return &Bookmarks{store: store, ttl: ttl}
}

// TTL is how long bookmarks survive without a write.
func (b *Bookmarks) TTL() time.Duration {
	return b.ttl
}

// NewVisitorID returns a fresh visitor id.
func NewVisitorID() string {
	return uuid.NewString()
}

// ValidVisitorID reports whether id looks like one NewVisitorID produced.
func ValidVisitorID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// List returns the bookmarked post ids in ascending order.
func (b *Bookmarks) List(ctx context.Context, visitorID string) ([]int64, error) {
	ids := []int64{}
	err := b.store.Get(ctx, bookmarkPrefix+visitorID, &ids)
	if errors.Is(err, ErrNotFound) {
		return []int64{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Add bookmarks postID and returns the updated list. Adding twice is a no-op.
func (b *Bookmarks) Add(ctx context.Context, visitorID string, postID int64) ([]int64, error) {
	ids, err := b.List(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if i, found := slices.BinarySearch(ids, postID); !found {
		ids = slices.Insert(ids, i, postID)
	}
	if err := b.store.Set(ctx, bookmarkPrefix+visitorID, ids, b.ttl); err != nil {
		return nil, err
	}
	return ids, nil
}

// Remove drops postID and returns the updated list.
func (b *Bookmarks) Remove(ctx context.Context, visitorID string, postID int64) ([]int64, error) {
	ids, err := b.List(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if i, found := slices.BinarySearch(ids, postID); found {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		return ids, b.store.Delete(ctx, bookmarkPrefix+visitorID)
	}
	if err := b.store.Set(ctx, bookmarkPrefix+visitorID, ids, b.ttl); err != nil {
		return nil, err
	}
	return ids, nil
}
