package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"bluetrace-hq/gateway/pkg/config"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt: server
// errors, 408 and 429.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// RetryPolicy bounds retries of a single fetch.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialInterval is the wait before the second attempt. Later waits
	// double, with jitter, up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// RetryPolicyFrom builds a policy from the ingest section of the config.
func RetryPolicyFrom(cfg config.IngestConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
	}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	return b
}

// Client fetches JSON documents with bounded retries.
type Client struct {
	http   *http.Client
	policy RetryPolicy
	logger *slog.Logger
}

// NewClient creates a client whose attempts are each bounded by timeout.
func NewClient(timeout time.Duration, policy RetryPolicy) *Client {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		policy: policy,
		logger: slog.Default().With("component", "ingest.client"),
	}
}

// GetJSON fetches rawURL with params and decodes the body into out.
// Network errors and retryable statuses are retried; other statuses and
// decode failures are returned at once.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	target := rawURL
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		c.logger.DebugContext(ctx, "fetching", "url", rawURL, "attempt", attempt)
		return struct{}{}, c.get(ctx, target, out)
	},
		backoff.WithBackOff(c.policy.backOff()),
		backoff.WithMaxTries(uint(c.policy.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.WarnContext(ctx, "fetch failed, will retry",
				"url", rawURL,
				"attempt", attempt,
				"max_attempts", c.policy.MaxAttempts,
				"backoff", wait,
				"error", err,
			)
		}),
	)
	return err
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Body: string(body)}
		if statusErr.Retryable() {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated response: %w", err)
		}
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
