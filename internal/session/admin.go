package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const adminPrefix = "admin:"

// AdminSession is a logged-in dashboard session.
type AdminSession struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminSessions stores AdminSession values keyed by id.
type AdminSessions struct {
	store Store
	now   func() time.Time
}

func NewAdminSessions(store Store) *AdminSessions {
	return &AdminSessions{store: store, now: time.Now}
}

// Create starts a session for email that expires after ttl.
func (a *AdminSessions) Create(ctx context.Context, email, name string, ttl time.Duration) (*AdminSession, error) {
	now := a.now().UTC()
	s := &AdminSession{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := a.store.Set(ctx, adminPrefix+s.ID, s, ttl); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns ErrNotFound for unknown or expired ids.
func (a *AdminSessions) Get(ctx context.Context, id string) (*AdminSession, error) {
	var s AdminSession
	if err := a.store.Get(ctx, adminPrefix+id, &s); err != nil {
		return nil, err
	}
	if !a.now().Before(s.ExpiresAt) {
		_ = a.store.Delete(ctx, adminPrefix+id)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (a *AdminSessions) Delete(ctx context.Context, id string) error {
	return a.store.Delete(ctx, adminPrefix+id)
}
