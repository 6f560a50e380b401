package db

import (
	"context"
	"encoding/json"
	"fmt"

	"coachsite/internal/model"
)

func (db *DB) GetSetting(ctx context.Context, key string) (*model.SiteSetting, error) {
	var s model.SiteSetting
	var value string
	err := db.queryRow(ctx, `SELECT key, value, updated_at FROM site_settings WHERE key = ?`, key).
		Scan(&s.Key, &value, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	s.Value = json.RawMessage(value)
	return &s, nil
}

func (db *DB) ListSettings(ctx context.Context) ([]model.SiteSetting, error) {
	rows, err := db.query(ctx, `SELECT key, value, updated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := []model.SiteSetting{}
	for rows.Next() {
		var s model.SiteSetting
		var value string
		if err := rows.Scan(&s.Key, &value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Value = json.RawMessage(value)
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertSetting inserts or replaces the row for key.
func (db *DB) UpsertSetting(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("setting %s: invalid JSON value", key)
	}
	_, err := db.exec(ctx, `INSERT INTO site_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), now())
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
