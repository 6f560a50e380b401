package db

import (
	"context"
	"errors"
	"fmt"

	"coachsite/internal/model"
	"coachsite/internal/repository"
)

const bookingColumns = `id, service, service_name, date, time, name, email, phone, company, message, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.Service, &b.ServiceName, &b.Date, &b.Time, &b.Name, &b.Email,
		&b.Phone, &b.Company, &b.Message, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBooking implements repository.BookingRepository.
func (db *DB) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	ts := now()
	id, err := db.insert(ctx, `INSERT INTO bookings (service, service_name, date, time, name, email, phone, company, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Service, b.ServiceName, b.Date, b.Time, b.Name, b.Email, b.Phone, b.Company, b.Message, b.Status, ts, ts)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID = id
	b.CreatedAt, b.UpdatedAt = ts, ts
	return nil
}

// GetBooking implements repository.BookingRepository.
func (db *DB) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := scanBooking(db.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

// ListBookings implements repository.BookingRepository. Newest first.
func (db *DB) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	var args []any
	if statusFilter(filter.Status) {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Date != "" {
		query += " AND date = ?"
		args = append(args, filter.Date)
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = pageClause(query, args, filter.Limit, filter.Offset)

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateBookingStatus implements repository.BookingRepository.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, from, to string) error {
	err := db.execOne(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, to, now(), id, from)
	if errors.Is(err, repository.ErrNotFound) {
		if _, getErr := db.GetBooking(ctx, id); getErr == nil {
			return fmt.Errorf("%w: booking %d is no longer %s", repository.ErrConflict, id, from)
		}
	}
	return err
}

// DeleteBooking implements repository.BookingRepository.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	return db.execOne(ctx, `DELETE FROM bookings WHERE id = ?`, id)
}

// IsSlotBooked implements repository.BookingRepository.
func (db *DB) IsSlotBooked(ctx context.Context, date, timeSlot string) (bool, error) {
	var count int
	err := db.queryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE date = ? AND time = ? AND status <> ?`,
		date, timeSlot, model.BookingCancelled,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return count > 0, nil
}

var _ repository.BookingRepository = (*DB)(nil)
