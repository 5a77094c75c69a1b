// Package extractor provides the HTTP client for the face-embedding
// extraction service.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/internal/config"
)

// Client calls the external extraction service. The service is a black box
// with the contract "image bytes in, fixed-length float vector out, or no
// face detected".
type Client struct {
	baseURL       string
	apiKey        string
	model         string
	httpClient    *http.Client
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	logger        *slog.Logger
}

// Option is a functional option for Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithAPIKey sets the API key sent with each request.
func WithAPIKey(key string) Option {
	return func(cl *Client) { cl.apiKey = key }
}

// WithModel sets the embedding model requested from the service.
func WithModel(model string) Option {
	return func(cl *Client) { cl.model = model }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) Option {
	return func(cl *Client) { cl.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) Option {
	return func(cl *Client) { cl.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) Option {
	return func(cl *Client) { cl.backoffFactor = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a Client for the given service base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: config.DefaultExtractorTimeout},
		maxRetries:    config.DefaultExtractorRetries,
		initialDelay:  config.DefaultExtractorDelay,
		backoffFactor: config.DefaultExtractorBackoff,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a Client from extractor configuration.
func NewClientFromConfig(cfg config.ExtractorConfig, logger *slog.Logger) *Client {
	opts := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		WithMaxRetries(cfg.MaxRetries()),
		WithInitialDelay(cfg.InitialDelay()),
		WithBackoffFactor(cfg.BackoffFactor()),
	}
	if cfg.APIKey() != "" {
		opts = append(opts, WithAPIKey(cfg.APIKey()))
	}
	if cfg.Model() != "" {
		opts = append(opts, WithModel(cfg.Model()))
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewClient(cfg.BaseURL(), opts...)
}

// extractResponse is the service's success payload.
type extractResponse struct {
	Embedding []float64 `json:"embedding"`
}

// errorResponse is the service's error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// Extract submits the image and returns its embedding vector.
// It returns embedding.ErrFaceNotFound when the service reports no face, and
// embedding.ErrExtractorUnavailable when the service cannot be reached or
// keeps failing after retries.
func (c *Client) Extract(ctx context.Context, image []byte) ([]float64, error) {
	var vector []float64

	err := c.withRetry(ctx, func() error {
		var attemptErr error
		vector, attemptErr = c.extractOnce(ctx, image)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

func (c *Client) extractOnce(ctx context.Context, image []byte) ([]float64, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "image")
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", embedding.ErrExtractorUnavailable, err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("%w: build request: %v", embedding.ErrExtractorUnavailable, err)
	}
	if c.model != "" {
		if err := writer.WriteField("model", c.model); err != nil {
			return nil, fmt.Errorf("%w: build request: %v", embedding.ErrExtractorUnavailable, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: build request: %v", embedding.ErrExtractorUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", embedding.ErrExtractorUnavailable, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retryableError{fmt.Errorf("%w: %v", embedding.ErrExtractorUnavailable, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, retryableError{fmt.Errorf("%w: read response: %v", embedding.ErrExtractorUnavailable, err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var out extractResponse
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", embedding.ErrExtractorUnavailable, err)
		}
		if len(out.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding in response", embedding.ErrExtractorUnavailable)
		}
		return out.Embedding, nil

	case resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusNotFound:
		return nil, embedding.ErrFaceNotFound

	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
		return nil, retryableError{c.statusError(resp.StatusCode, payload)}

	default:
		return nil, c.statusError(resp.StatusCode, payload)
	}
}

func (c *Client) statusError(status int, payload []byte) error {
	var out errorResponse
	if err := json.Unmarshal(payload, &out); err == nil && out.Error != "" {
		return fmt.Errorf("%w: status %d: %s", embedding.ErrExtractorUnavailable, status, out.Error)
	}
	return fmt.Errorf("%w: status %d", embedding.ErrExtractorUnavailable, status)
}

// retryableError marks failures worth retrying (network errors, 429, 5xx).
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := c.initialDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		re, retryable := lastErr.(retryableError)
		if !retryable {
			return lastErr
		}
		lastErr = re.err

		if attempt < c.maxRetries {
			c.logger.WarnContext(ctx, "extractor request failed, retrying",
				"attempt", attempt+1,
				"max_retries", c.maxRetries,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * c.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
