package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ---------------------------------------------------------------------------
// Anthropic messages API client
// ---------------------------------------------------------------------------

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-3-sonnet-20240229"
	defaultTimeout   = 120 * time.Second
	defaultRetries   = 3
	maxTokens        = 8192
)

// Anthropic translates via the Anthropic messages API.
type Anthropic struct {
	client     *resty.Client
	model      string
	maxRetries int
	verbose    bool
}

// Option configures the client.
type Option func(*Anthropic)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(a *Anthropic) {
		if model != "" {
			a.model = model
		}
	}
}

// WithMaxRetries overrides the retry budget for 429 and 5xx responses.
func WithMaxRetries(n int) Option {
	return func(a *Anthropic) {
		if n > 0 {
			a.maxRetries = n
		}
	}
}

// WithVerbose enables detailed logging of requests and retries.
func WithVerbose(v bool) Option {
	return func(a *Anthropic) { a.verbose = v }
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(a *Anthropic) { a.client.SetBaseURL(url) }
}

// NewAnthropic builds a client. The API key is required.
func NewAnthropic(apiKey string, opts ...Option) *Anthropic {
	a := &Anthropic{
		model:      defaultModel,
		maxRetries: defaultRetries,
	}
	a.client = resty.New().
		SetBaseURL(anthropicBaseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", anthropicVersion)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ---------------------------------------------------------------------------
// Request / response wire types
// ---------------------------------------------------------------------------

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

// Translate sends one segment and returns the model's draft.
func (a *Anthropic) Translate(ctx context.Context, req Request) (string, error) {
	body := apiRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    systemPrompt(req),
		Messages:  []apiMessage{{Role: "user", Content: userPrompt(req)}},
	}

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if a.verbose {
			log.Printf("[DEBUG] %s attempt %d: POST /v1/messages", a.model, attempt+1)
		}
		resp, err := a.client.R().
			SetContext(ctx).
			SetBody(body).
			Post("/v1/messages")
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < a.maxRetries {
				if err := sleep(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", &Error{Kind: ErrUnavailable, Message: err.Error()}
		}

		switch {
		case resp.StatusCode() == http.StatusOK:
			return extractText(resp.Body())

		case resp.StatusCode() == http.StatusTooManyRequests:
			delay := parseRetryDelay(resp.Body(), resp.Header().Get("retry-after"))
			if attempt < a.maxRetries {
				if a.verbose {
					log.Printf("[WARN] 429 rate limited, waiting %v before retry (attempt %d/%d)", delay, attempt+1, a.maxRetries)
				}
				if err := sleep(ctx, delay); err != nil {
					return "", err
				}
				continue
			}
			return "", &Error{Kind: ErrRateLimited, Status: resp.StatusCode(), Message: truncate(string(resp.Body()), 300)}

		case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
			return "", &Error{Kind: ErrAuth, Status: resp.StatusCode(), Message: truncate(string(resp.Body()), 300)}

		case resp.StatusCode() >= 500:
			if attempt < a.maxRetries {
				if a.verbose {
					log.Printf("[WARN] %d from API, retrying in %v (attempt %d/%d)", resp.StatusCode(), backoff(attempt), attempt+1, a.maxRetries)
				}
				if err := sleep(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", &Error{Kind: ErrUnavailable, Status: resp.StatusCode(), Message: truncate(string(resp.Body()), 300)}

		default:
			return "", &Error{Kind: ErrInvalidResponse, Status: resp.StatusCode(), Message: truncate(string(resp.Body()), 300)}
		}
	}

	return "", &Error{Kind: ErrUnavailable, Message: fmt.Sprintf("exhausted all %d retries", a.maxRetries)}
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// extractText pulls the first text block from an Anthropic messages
// response: content[].type=="text" -> .text.
func extractText(body []byte) (string, error) {
	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", &Error{Kind: ErrInvalidResponse, Message: fmt.Sprintf("invalid JSON response: %v", err)}
	}
	if raw.Error != nil {
		return "", &Error{Kind: ErrInvalidResponse, Message: raw.Error.Message}
	}
	for _, block := range raw.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", &Error{Kind: ErrInvalidResponse, Message: "no text block in response: " + truncate(string(body), 300)}
}

// parseRetryDelay extracts the wait from a 429 response. The retry-after
// header wins; otherwise default to 60s plus a small buffer.
func parseRetryDelay(body []byte, retryAfter string) time.Duration {
	const defaultDelay = 65 * time.Second

	if retryAfter != "" {
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil && secs > 0 {
			return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
		}
	}

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}
	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}
	return defaultDelay
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
