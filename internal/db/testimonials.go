package db

import (
	"context"
	"fmt"

	"coachsite/internal/model"
)

const testimonialColumns = `id, name, role, company, quote, rating, image_url, featured, active, sort_order, created_at`

func scanTestimonial(row rowScanner) (*model.Testimonial, error) {
	var t model.Testimonial
	err := row.Scan(&t.ID, &t.Name, &t.Role, &t.Company, &t.Quote, &t.Rating, &t.ImageURL,
		&t.Featured, &t.Active, &t.SortOrder, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) ListTestimonials(ctx context.Context, activeOnly bool) ([]model.Testimonial, error) {
	query := `SELECT ` + testimonialColumns + ` FROM testimonials`
	var args []any
	if activeOnly {
		query += " WHERE active = ?"
		args = append(args, true)
	}
	query += " ORDER BY sort_order ASC, id ASC"

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	defer rows.Close()

	out := []model.Testimonial{}
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (db *DB) GetTestimonial(ctx context.Context, id int64) (*model.Testimonial, error) {
	t, err := scanTestimonial(db.queryRow(ctx, `SELECT `+testimonialColumns+` FROM testimonials WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (db *DB) CreateTestimonial(ctx context.Context, t *model.Testimonial) error {
	ts := now()
	id, err := db.insert(ctx, `INSERT INTO testimonials (name, role, company, quote, rating, image_url, featured, active, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Role, t.Company, t.Quote, t.Rating, t.ImageURL, t.Featured, t.Active, t.SortOrder, ts)
	if err != nil {
		return fmt.Errorf("insert testimonial: %w", err)
	}
	t.ID = id
	t.CreatedAt = ts
	return nil
}

func (db *DB) UpdateTestimonial(ctx context.Context, t *model.Testimonial) error {
	return db.execOne(ctx, `UPDATE testimonials SET name = ?, role = ?, company = ?, quote = ?, rating = ?, image_url = ?,
		featured = ?, active = ?, sort_order = ? WHERE id = ?`,
		t.Name, t.Role, t.Company, t.Quote, t.Rating, t.ImageURL, t.Featured, t.Active, t.SortOrder, t.ID)
}

func (db *DB) DeleteTestimonial(ctx context.Context, id int64) error {
	return db.execOne(ctx, `DELETE FROM testimonials WHERE id = ?`, id)
}
