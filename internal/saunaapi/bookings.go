package saunaapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// GetAvailability returns the slots of a sauna for date (YYYY-MM-DD).
// Availability is never cached.
func (c *Client) GetAvailability(ctx context.Context, saunaID, date string) ([]models.TimeSlot, error) {
	q := url.Values{}
	q.Set("sauna_id", saunaID)
	q.Set("date", date)

	var out []models.TimeSlot
	if err := c.doGet(ctx, c.endpoint("/bookings/availability", q), &out); err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return out, nil
}

// CreateBooking submits a booking. A non-empty idempotencyKey is sent as the
// Idempotency-Key header.
func (c *Client) CreateBooking(ctx context.Context, req models.BookingCreate, idempotencyKey string) (*models.Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var out models.Booking
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("/bookings", nil), req, &out, headers); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return &out, nil
}

// GetBooking returns one booking.
func (c *Client) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var out models.Booking
	if err := c.doGet(ctx, c.endpoint("/bookings/"+url.PathEscape(id), nil), &out); err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return &out, nil
}

// CancelBooking cancels a booking.
func (c *Client) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	var out models.Booking
	endpoint := c.endpoint("/bookings/"+url.PathEscape(id)+"/cancel", nil)
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, struct{}{}, &out, nil); err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", id, err)
	}
	return &out, nil
}

// MyBookings lists the bookings of the authenticated user, newest first.
// An empty status returns all of them.
func (c *Client) MyBookings(ctx context.Context, status string) ([]models.Booking, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}

	var out []models.Booking
	if err := c.doGet(ctx, c.endpoint("/bookings/my", q), &out); err != nil {
		return nil, fmt.Errorf("my bookings: %w", err)
	}
	return out, nil
}
