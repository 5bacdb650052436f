package saunaapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// ListReviews returns the reviews of a sauna, newest first.
func (c *Client) ListReviews(ctx context.Context, saunaID string) ([]models.Review, error) {
	q := url.Values{}
	q.Set("sauna_id", saunaID)

	var out []models.Review
	if err := c.doGet(ctx, c.endpoint("/reviews", q), &out); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}

// ReviewSummary returns the rating aggregate of a sauna.
func (c *Client) ReviewSummary(ctx context.Context, saunaID string) (*models.ReviewSummary, error) {
	q := url.Values{}
	q.Set("sauna_id", saunaID)
	key := "reviews:summary:" + saunaID

	var out models.ReviewSummary
	if c.readCache(ctx, key, &out) {
		return &out, nil
	}

	if err := c.doGet(ctx, c.endpoint("/reviews/summary", q), &out); err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}
	c.writeCache(ctx, key, out)
	return &out, nil
}

// CreateReview posts a review for a confirmed or completed booking.
func (c *Client) CreateReview(ctx context.Context, req models.ReviewCreate) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	var out models.Review
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("/reviews", nil), req, &out, nil); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	c.dropCache(ctx, "reviews:summary:"+req.SaunaID, "sauna:"+req.SaunaID)
	return &out, nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, id, saunaID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.endpoint("/reviews/"+url.PathEscape(id), nil), nil, nil, nil); err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	if saunaID != "" {
		c.dropCache(ctx, "reviews:summary:"+saunaID, "sauna:"+saunaID)
	}
	return nil
}
