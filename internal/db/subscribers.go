package db

import (
	"context"
	"fmt"
	"strings"

	"coachsite/internal/model"
)

const subscriberColumns = `id, email, name, source, active, subscribed_at`

func scanSubscriber(row rowScanner) (*model.NewsletterSubscriber, error) {
	var s model.NewsletterSubscriber
	if err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Source, &s.Active, &s.SubscribedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubscriber stores the email lower-cased. A duplicate email returns repository.ErrConflict.
func (db *DB) CreateSubscriber(ctx context.Context, s *model.NewsletterSubscriber) error {
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	ts := now()
	id, err := db.insert(ctx, `INSERT INTO newsletter_subscribers (email, name, source, active, subscribed_at) VALUES (?, ?, ?, ?, ?)`,
		s.Email, s.Name, s.Source, s.Active, ts)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	s.ID = id
	s.SubscribedAt = ts
	return nil
}

func (db *DB) GetSubscriberByEmail(ctx context.Context, email string) (*model.NewsletterSubscriber, error) {
	s, err := scanSubscriber(db.queryRow(ctx,
		`SELECT `+subscriberColumns+` FROM newsletter_subscribers WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (db *DB) SetSubscriberActive(ctx context.Context, id int64, active bool) error {
	return db.execOne(ctx, `UPDATE newsletter_subscribers SET active = ? WHERE id = ?`, active, id)
}

func (db *DB) ListSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error) {
	rows, err := db.query(ctx, `SELECT `+subscriberColumns+` FROM newsletter_subscribers ORDER BY subscribed_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	out := []model.NewsletterSubscriber{}
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (db *DB) DeleteSubscriber(ctx context.Context, id int64) error {
	return db.execOne(ctx, `DELETE FROM newsletter_subscribers WHERE id = ?`, id)
}
