package saunaapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// SaunaFilter narrows the catalog listing.
type SaunaFilter struct {
	SaunaType string
	MinPrice  float64
	MaxPrice  float64
}

func (f SaunaFilter) query() url.Values {
	q := url.Values{}
	if f.SaunaType != "" {
		q.Set("sauna_type", f.SaunaType)
	}
	if f.MinPrice > 0 {
		q.Set("min_price", strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice > 0 {
		q.Set("max_price", strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}
	return q
}

// ListSaunas returns the active saunas.
func (c *Client) ListSaunas(ctx context.Context, filter SaunaFilter) ([]models.Sauna, error) {
	q := filter.query()
	key := "saunas:" + q.Encode()
	var out []models.Sauna

	if c.readCache(ctx, key, &out) {
		return out, nil
	}

	if err := c.doGet(ctx, c.endpoint("/saunas", q), &out); err != nil {
		return nil, fmt.Errorf("list saunas: %w", err)
	}
	c.writeCache(ctx, key, out)
	return out, nil
}

// GetSauna returns one sauna with images and operating hours.
func (c *Client) GetSauna(ctx context.Context, id string) (*models.SaunaDetail, error) {
	key := "sauna:" + id
	var out models.SaunaDetail

	if c.readCache(ctx, key, &out) {
		return &out, nil
	}

	if err := c.doGet(ctx, c.endpoint("/saunas/"+url.PathEscape(id), nil), &out); err != nil {
		return nil, fmt.Errorf("get sauna %s: %w", id, err)
	}
	c.writeCache(ctx, key, out)
	return &out, nil
}
