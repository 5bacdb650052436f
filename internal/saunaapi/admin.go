package saunaapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// DashboardStats returns the admin totals.
func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := c.doGet(ctx, c.endpoint("/admin/stats", nil), &out); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &out, nil
}

// RevenueByDate returns daily revenue for the last period days (1..90).
func (c *Client) RevenueByDate(ctx context.Context, period int) ([]models.RevenueByDate, error) {
	period = max(1, min(period, 90))
	q := url.Values{}
	q.Set("period", strconv.Itoa(period))

	var out []models.RevenueByDate
	if err := c.doGet(ctx, c.endpoint("/admin/revenue", q), &out); err != nil {
		return nil, fmt.Errorf("revenue by date: %w", err)
	}
	return out, nil
}

// BookingsBySauna returns booking counts and revenue per sauna.
func (c *Client) BookingsBySauna(ctx context.Context) ([]models.BookingsBySauna, error) {
	var out []models.BookingsBySauna
	if err := c.doGet(ctx, c.endpoint("/admin/bookings-by-sauna", nil), &out); err != nil {
		return nil, fmt.Errorf("bookings by sauna: %w", err)
	}
	return out, nil
}

// RecentBookings returns the latest bookings (at most 50).
func (c *Client) RecentBookings(ctx context.Context, limit int) ([]models.RecentBooking, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(min(limit, 50)))
	}

	var out []models.RecentBooking
	if err := c.doGet(ctx, c.endpoint("/admin/recent-bookings", q), &out); err != nil {
		return nil, fmt.Errorf("recent bookings: %w", err)
	}
	return out, nil
}
