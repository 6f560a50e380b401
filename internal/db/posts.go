package db

import (
	"context"
	"fmt"

	"coachsite/internal/model"
)

const postColumns = `id, title, slug, excerpt, content, category, image_url, featured, published, read_time, views, created_at, updated_at`

func scanPost(row rowScanner) (*model.BlogPost, error) {
	var p model.BlogPost
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.Category, &p.ImageURL,
		&p.Featured, &p.Published, &p.ReadTime, &p.Views, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) ListPosts(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE 1=1`
	var args []any
	if filter.PublishedOnly {
		query += " AND published = ?"
		args = append(args, true)
	}
	if filter.FeaturedOnly {
		query += " AND featured = ?"
		args = append(args, true)
	}
	if filter.Category != "" {
		query += " AND LOWER(category) = LOWER(?)"
		args = append(args, filter.Category)
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = pageClause(query, args, filter.Limit, filter.Offset)

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []model.BlogPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (db *DB) GetPost(ctx context.Context, id int64) (*model.BlogPost, error) {
	p, err := scanPost(db.queryRow(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (db *DB) GetPostBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	p, err := scanPost(db.queryRow(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE slug = ?`, slug))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (db *DB) CreatePost(ctx context.Context, p *model.BlogPost) error {
	ts := now()
	id, err := db.insert(ctx, `INSERT INTO blog_posts (title, slug, excerpt, content, category, image_url, featured, published, read_time, views, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.Title, p.Slug, p.Excerpt, p.Content, p.Category, p.ImageURL, p.Featured, p.Published, p.ReadTime, ts, ts)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	p.ID = id
	p.Views = 0
	p.CreatedAt, p.UpdatedAt = ts, ts
	return nil
}

func (db *DB) UpdatePost(ctx context.Context, p *model.BlogPost) error {
	p.UpdatedAt = now()
	err := db.execOne(ctx, `UPDATE blog_posts SET title = ?, slug = ?, excerpt = ?, content = ?, category = ?, image_url = ?,
		featured = ?, published = ?, read_time = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.Excerpt, p.Content, p.Category, p.ImageURL, p.Featured, p.Published, p.ReadTime, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// SetPostFlags updates published and/or featured and returns the stored row.
func (db *DB) SetPostFlags(ctx context.Context, id int64, flags model.PostFlags) (*model.BlogPost, error) {
	query := `UPDATE blog_posts SET updated_at = ?`
	args := []any{now()}
	if flags.Published != nil {
		query += ", published = ?"
		args = append(args, *flags.Published)
	}
	if flags.Featured != nil {
		query += ", featured = ?"
		args = append(args, *flags.Featured)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	if err := db.execOne(ctx, query, args...); err != nil {
		return nil, err
	}
	return db.GetPost(ctx, id)
}

func (db *DB) IncrementPostViews(ctx context.Context, id int64) error {
	return db.execOne(ctx, `UPDATE blog_posts SET views = views + 1 WHERE id = ?`, id)
}

func (db *DB) DeletePost(ctx context.Context, id int64) error {
	return db.execOne(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
}
