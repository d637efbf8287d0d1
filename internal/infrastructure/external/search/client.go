// Package search implements the web-search client that produces city insights.
// The provider is a Perplexity-style chat-completions API with live search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/city"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/circuitbreaker"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// Config contains configuration for the search client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	HTTPClient *http.Client
	Breaker    *circuitbreaker.CircuitBreaker
	Logger     *logger.Logger
}

// Client implements city.Source.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.Upstream("search", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    cfg.HTTPClient,
		breaker: cfg.Breaker,
		logger:  cfg.Logger.With(logger.Component("search")),
	}
}

const systemPrompt = `Tu es un assistant spécialisé dans les démarches administratives des étudiants en France.
Réponds uniquement avec un objet JSON, sans texte autour, au format:
{"city": string, "crous": string, "transport": string, "health": [string], "prefecture": string, "caf": string, "tips": [string]}
- crous: adresse et contact du CROUS compétent
- transport: réseau local et abonnement étudiant
- health: centres de santé universitaires ou hôpitaux proches
- prefecture: préfecture ou sous-préfecture pour le titre de séjour
- caf: agence CAF pour l'aide au logement
- tips: conseils pratiques propres à la ville`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Fetch asks the search API about name and parses the answer.
// An unparseable answer is not an error: the Report carries Raw only.
func (c *Client) Fetch(ctx context.Context, name string) (city.Report, error) {
	var content string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		content, err = c.complete(ctx, name)
		return err
	})
	if err != nil {
		c.logger.Error("city search failed", logger.String("city", name), logger.Err(err))
		return city.Report{}, shared.ErrSearchUnavailable.Wrap(err)
	}

	report := city.Report{Raw: content}
	if in, ok := ParseInsights(content); ok {
		if in.City == "" {
			in.City = strings.TrimSpace(name)
		}
		report.Insights = in
	} else {
		c.logger.Warn("city search answer not parseable", logger.String("city", name))
	}
	return report, nil
}

func (c *Client) complete(ctx context.Context, name string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Informations pratiques pour un étudiant qui s'installe à %s.", strings.TrimSpace(name))},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &circuitbreaker.StatusError{Service: "search", Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("search returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// ParseInsights extracts insights from a model answer.
func ParseInsights(content string) (*city.Insights, bool) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, false
	}
	var in city.Insights
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, false
	}
	return &in, true
}
