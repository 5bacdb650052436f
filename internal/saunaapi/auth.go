package saunaapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	var out models.TokenResponse
	body := models.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("/auth/login", nil), body, &out, nil); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("/auth/register", nil), req, &out, nil); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &out, nil
}

// Me returns the user the token belongs to. An explicit token overrides the
// client token source.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	cl := c
	if token != "" {
		cl = c.WithTokens(StaticToken(token))
	}

	var out models.User
	if err := cl.doGet(ctx, cl.endpoint("/auth/me", nil), &out); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return &out, nil
}
