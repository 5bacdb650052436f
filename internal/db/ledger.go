package db

import (
	"context"
	"time"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// LedgerEntry is a booking submitted from a chat.
type LedgerEntry struct {
	ChatID      int64
	BookingID   string
	SaunaID     string
	SaunaName   string
	BookingDate string
	StartTime   string
	EndTime     string
	GuestCount  int
	TotalPrice  float64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecordBooking stores or refreshes a booking made from chatID.
func (db *DB) RecordBooking(ctx context.Context, chatID int64, b *models.Booking) error {
	now := time.Now()
	status := b.Status
	if status == "" {
		status = models.StatusConfirmed
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO chat_bookings (chat_id, booking_id, sauna_id, sauna_name, booking_date,
			start_time, end_time, guest_count, total_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, booking_id) DO UPDATE SET
			sauna_name = excluded.sauna_name,
			booking_date = excluded.booking_date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			guest_count = excluded.guest_count,
			total_price = excluded.total_price,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		chatID, b.ID, b.SaunaID, b.SaunaName, b.BookingDate,
		b.StartTime, b.EndTime, b.GuestCount, b.TotalPrice, status, now, now)
	return err
}

// UpdateBookingStatus sets the status of a booking in every chat it belongs to.
func (db *DB) UpdateBookingStatus(ctx context.Context, bookingID, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE chat_bookings SET status = ?, updated_at = ?
		WHERE booking_id = ?`, status, time.Now(), bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBookings returns the bookings of a chat, newest date first.
func (db *DB) ListBookings(ctx context.Context, chatID int64, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.QueryContext(ctx, `
		SELECT chat_id, booking_id, sauna_id, COALESCE(sauna_name, ''), booking_date,
		       start_time, end_time, guest_count, total_price, status, created_at, updated_at
		FROM chat_bookings
		WHERE chat_id = ?
		ORDER BY booking_date DESC, start_time DESC
		LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ChatID, &e.BookingID, &e.SaunaID, &e.SaunaName, &e.BookingDate,
			&e.StartTime, &e.EndTime, &e.GuestCount, &e.TotalPrice, &e.Status,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OwnsBooking reports whether chatID submitted bookingID.
func (db *DB) OwnsBooking(ctx context.Context, chatID int64, bookingID string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_bookings WHERE chat_id = ? AND booking_id = ?`,
		chatID, bookingID).Scan(&n)
	return n > 0, err
}
