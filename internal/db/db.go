// Package db implements the repository contracts on database/sql for SQLite and Postgres.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"coachsite/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DB wraps sql.DB for one of the supported dialects.
type DB struct {
	*sql.DB
	dialect string
}

var _ repository.Store = (*DB)(nil)

// OpenSQLite opens the database file at path and runs migrations.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	return open(ctx, sqlDB, DialectSQLite)
}

// OpenPostgres connects with the pgx stdlib driver and runs migrations.
func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return open(ctx, sqlDB, DialectPostgres)
}

func open(ctx context.Context, sqlDB *sql.DB, dialect string) (*DB, error) {
	db := &DB{DB: sqlDB, dialect: dialect}
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := db.createTables(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Dialect returns DialectSQLite or DialectPostgres.
func (db *DB) Dialect() string {
	return db.dialect
}

// Ping implements repository.Store.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) createTables(ctx context.Context) error {
	for _, q := range schema(db.dialect) {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func schema(dialect string) []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "DATETIME"
	boolFalse := "BOOLEAN NOT NULL DEFAULT 0"
	boolTrue := "BOOLEAN NOT NULL DEFAULT 1"
	if dialect == DialectPostgres {
		id = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
		boolFalse = "BOOLEAN NOT NULL DEFAULT FALSE"
		boolTrue = "BOOLEAN NOT NULL DEFAULT TRUE"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id ` + id + `,
			service TEXT NOT NULL,
			service_name TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS contact_messages (
			id ` + id + `,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			company TEXT NOT NULL DEFAULT '',
			service TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'unread',
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS blog_posts (
			id ` + id + `,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			excerpt TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			featured ` + boolFalse + `,
			published ` + boolFalse + `,
			read_time TEXT NOT NULL DEFAULT '',
			views BIGINT NOT NULL DEFAULT 0,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS testimonials (
			id ` + id + `,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			quote TEXT NOT NULL,
			rating INTEGER NOT NULL DEFAULT 5,
			image_url TEXT NOT NULL DEFAULT '',
			featured ` + boolFalse + `,
			active ` + boolTrue + `,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS resources (
			id ` + id + `,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			file_type TEXT NOT NULL DEFAULT '',
			featured ` + boolFalse + `,
			published ` + boolFalse + `,
			downloads BIGINT NOT NULL DEFAULT 0,
			created_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS newsletter_subscribers (
			id ` + id + `,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			active ` + boolTrue + `,
			subscribed_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS site_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(date, time, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_contact_messages_status ON contact_messages(status)`,
		`CREATE INDEX IF NOT EXISTS idx_blog_posts_published ON blog_posts(published, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_testimonials_active ON testimonials(active, sort_order)`,
	}
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// rebind rewrites ? placeholders as $1, $2 ... for Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.QueryRowContext(ctx, db.rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id and returns the new id.
func (db *DB) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := db.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// execOne runs an UPDATE or DELETE that must touch exactly one row.
func (db *DB) execOne(ctx context.Context, query string, args ...any) error {
	res, err := db.exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.Detail)
	}
	return err
}

// pageClause appends LIMIT/OFFSET when limit > 0.
func pageClause(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	query += " LIMIT ? OFFSET ?"
	if offset < 0 {
		offset = 0
	}
	return query, append(args, limit, offset)
}

func statusFilter(status string) bool {
	return status != "" && status != "all"
}

func now() time.Time {
	return time.Now().UTC()
}
