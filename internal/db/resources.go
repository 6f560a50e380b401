package db

import (
	"context"
	"fmt"

	"coachsite/internal/model"
)

const resourceColumns = `id, title, description, category, url, file_type, featured, published, downloads, created_at`

func scanResource(row rowScanner) (*model.Resource, error) {
	var r model.Resource
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.Category, &r.URL, &r.FileType,
		&r.Featured, &r.Published, &r.Downloads, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) ListResources(ctx context.Context, publishedOnly bool) ([]model.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources`
	var args []any
	if publishedOnly {
		query += " WHERE published = ?"
		args = append(args, true)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	out := []model.Resource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (db *DB) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	r, err := scanResource(db.queryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return r, nil
}

func (db *DB) CreateResource(ctx context.Context, r *model.Resource) error {
	ts := now()
	id, err := db.insert(ctx, `INSERT INTO resources (title, description, category, url, file_type, featured, published, downloads, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		r.Title, r.Description, r.Category, r.URL, r.FileType, r.Featured, r.Published, ts)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	r.ID = id
	r.Downloads = 0
	r.CreatedAt = ts
	return nil
}

func (db *DB) UpdateResource(ctx context.Context, r *model.Resource) error {
	return db.execOne(ctx, `UPDATE resources SET title = ?, description = ?, category = ?, url = ?, file_type = ?,
		featured = ?, published = ? WHERE id = ?`,
		r.Title, r.Description, r.Category, r.URL, r.FileType, r.Featured, r.Published, r.ID)
}

func (db *DB) IncrementResourceDownloads(ctx context.Context, id int64) error {
	return db.execOne(ctx, `UPDATE resources SET downloads = downloads + 1 WHERE id = ?`, id)
}

func (db *DB) DeleteResource(ctx context.Context, id int64) error {
	return db.execOne(ctx, `DELETE FROM resources WHERE id = ?`, id)
}
