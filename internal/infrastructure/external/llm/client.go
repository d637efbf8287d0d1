// Package llm implements a streaming client for OpenAI-compatible
// chat-completions gateways.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/coach"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/circuitbreaker"
	"github.com/integration-hub/student-hub/pkg/logger"
	"github.com/integration-hub/student-hub/pkg/sse"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the gateway client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// HeaderTimeout bounds the wait for response headers. The body is not
	// bounded: a stream lives as long as the request context.
	HeaderTimeout time.Duration

	HTTPClient *http.Client
	Breaker    *circuitbreaker.CircuitBreaker
	Logger     *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements coach.Gateway.
type Client struct {
	baseURL       string
	apiKey        string
	model         string
	headerTimeout time.Duration
	http          *http.Client
	breaker       *circuitbreaker.CircuitBreaker
	logger        *logger.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.HeaderTimeout <= 0 {
		cfg.HeaderTimeout = 30 * time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.Upstream("llm", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		headerTimeout: cfg.HeaderTimeout,
		http:          cfg.HTTPClient,
		breaker:       cfg.Breaker,
		logger:        cfg.Logger.With(logger.Component("llm")),
	}
}

type completionRequest struct {
	Model    string          `json:"model"`
	Messages []coach.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

// Stream opens a streaming completion.
// Any failure before the body starts is reported as shared.ErrLLMUnavailable
// with the detail logged.
func (c *Client) Stream(ctx context.Context, msgs []coach.Message) (coach.Stream, error) {
	body, err := json.Marshal(completionRequest{Model: c.model, Messages: msgs, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	var resp *http.Response

	err = c.breaker.Execute(streamCtx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		timer := time.AfterFunc(c.headerTimeout, cancel)
		r, err := c.http.Do(req)
		if fired := !timer.Stop(); fired {
			if err == nil {
				r.Body.Close()
			}
			return fmt.Errorf("%w: no response headers within %s", shared.ErrTimeout, c.headerTimeout)
		}
		if err != nil {
			return err
		}
		if r.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(r.Body, 2048))
			r.Body.Close()
			return &circuitbreaker.StatusError{Service: "gateway", Code: r.StatusCode, Body: strings.TrimSpace(string(detail))}
		}
		resp = r
		return nil
	})
	if err != nil {
		cancel()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("completion stream failed to open", logger.Err(err))
		return nil, shared.ErrLLMUnavailable.Wrap(err)
	}

	return &stream{dec: sse.NewDecoder(resp.Body), body: resp.Body, cancel: cancel}, nil
}

// stream adapts an SSE body to coach.Stream.
type stream struct {
	dec    *sse.Decoder
	body   io.ReadCloser
	cancel context.CancelFunc
}

// Next returns the next raw chunk payload.
func (s *stream) Next() ([]byte, error) {
	return s.dec.Next()
}

// Close releases the connection.
func (s *stream) Close() error {
	s.cancel()
	return s.body.Close()
}
