// Package authadmin talks to the auth provider's admin API.
// Only identity deletion is needed: everything else stays with the provider.
package authadmin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// Config contains configuration for the admin client.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co
	BaseURL        string
	ServiceRoleKey string
	Timeout        time.Duration

	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client deletes auth identities.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.ServiceRoleKey,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger.With(logger.Component("auth_admin")),
	}
}

// DeleteUser removes the identity so the email can sign up again.
// An identity that is already gone counts as deleted.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if c.baseURL == "" || c.key == "" {
		return shared.ErrAuthAdminUnavailable.Wrap(fmt.Errorf("admin API not configured"))
	}

	endpoint := c.baseURL + "/auth/v1/admin/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("delete identity failed", logger.UserID(userID), logger.Err(err))
		return shared.ErrAuthAdminUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusNotFound:
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("admin API status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		c.logger.Error("delete identity failed", logger.UserID(userID), logger.Err(err))
		return shared.ErrAuthAdminUnavailable.Wrap(err)
	}
}
