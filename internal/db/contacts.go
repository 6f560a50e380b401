package db

import (
	"context"
	"fmt"

	"coachsite/internal/model"
)

const contactColumns = `id, name, email, company, service, message, status, created_at, updated_at`

func scanContact(row rowScanner) (*model.ContactMessage, error) {
	var m model.ContactMessage
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Company, &m.Service, &m.Message, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *DB) CreateContact(ctx context.Context, m *model.ContactMessage) error {
	if m.Status == "" {
		m.Status = model.ContactUnread
	}
	ts := now()
	id, err := db.insert(ctx, `INSERT INTO contact_messages (name, email, company, service, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Email, m.Company, m.Service, m.Message, m.Status, ts, ts)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	m.ID = id
	m.CreatedAt, m.UpdatedAt = ts, ts
	return nil
}

func (db *DB) GetContact(ctx context.Context, id int64) (*model.ContactMessage, error) {
	m, err := scanContact(db.queryRow(ctx, `SELECT `+contactColumns+` FROM contact_messages WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (db *DB) ListContacts(ctx context.Context, filter model.ContactFilter) ([]model.ContactMessage, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_messages`
	var args []any
	if statusFilter(filter.Status) {
		query += " WHERE status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = pageClause(query, args, filter.Limit, filter.Offset)

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	out := []model.ContactMessage{}
	for rows.Next() {
		m, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (db *DB) UpdateContactStatus(ctx context.Context, id int64, status string) error {
	return db.execOne(ctx, `UPDATE contact_messages SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
}

func (db *DB) DeleteContact(ctx context.Context, id int64) error {
	return db.execOne(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
}
