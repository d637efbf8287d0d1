// Package email sends transactional email through a Resend-compatible HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/integration-hub/student-hub/pkg/logger"
)

// Config contains configuration for the email client.
type Config struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client implements verification.Mailer.
type Client struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.resend.com"
	}
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
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger.With(logger.Component("email")),
	}
}

// Message is one outgoing email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send delivers one message.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = c.from
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("email provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!doctype html>
<html lang="fr"><body style="font-family:sans-serif">
<h2>Confirme ton adresse universitaire</h2>
<p>Clique sur le lien ci-dessous pour obtenir le statut Témoin. Il est valable 24 heures.</p>
<p><a href="{{.Link}}">Confirmer mon adresse</a></p>
<p style="color:#888">Si tu n'es pas à l'origine de cette demande, ignore ce message.</p>
</body></html>`))

// SendVerification sends the confirmation link.
func (c *Client) SendVerification(ctx context.Context, to, link string) error {
	var html bytes.Buffer
	if err := verificationTemplate.Execute(&html, struct{ Link string }{link}); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	err := c.Send(ctx, Message{
		To:      []string{to},
		Subject: "Confirme ton email universitaire",
		HTML:    html.String(),
	})
	if err != nil {
		c.logger.Error("verification email failed", logger.Err(err))
		return err
	}
	return nil
}
