package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUnauthorized marks a 401 from the auth service. Call sites decide
// whether it clears the session; see Session.Validate vs Session.Refresh.
var ErrUnauthorized = errors.New("unauthorized")

// User is the auth service's user record. Credits are read-only here;
// ledger correctness is owned by the backend.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Plan    string `json:"plan"`
	Credits int    `json:"credits"`
}

// Client talks to the auth service.
type Client struct {
	http *resty.Client
}

// ClientConfig bundles what the client needs from runtime config.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		http.SetTimeout(cfg.Timeout)
	}
	return &Client{http: http}
}

// Me validates the bearer token and returns the user record.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/users/me")
	if err != nil {
		return nil, fmt.Errorf("failed to reach auth service: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.IsError() {
		return nil, fmt.Errorf("auth service returned status %d", resp.StatusCode())
	}
	return &user, nil
}
