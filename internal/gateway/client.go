package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/walletd/internal/metrics"
)

// DepositState is the chain gateway's view of an inbound transfer
type DepositState string

const (
	DepositConfirmed DepositState = "confirmed"
	DepositPending   DepositState = "pending"
	DepositRejected  DepositState = "rejected"
)

// Client talks to the external chain gateway that watches deposit
// addresses. Inbound crypto arrivals are only credited once this service
// reports them confirmed.
type Client struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// Option is a function that configures the Client
type Option func(*Client)

// WithTimeout sets the timeout for the underlying HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithRetries configures retry behavior
func WithRetries(maxRetries int, retryDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = retryDelay
	}
}

// WithAPIKey sets the gateway API key sent with every request
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new chain gateway client
func NewClient(baseURL string, logger zerolog.Logger, options ...Option) *Client {
	client := &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    baseURL,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		logger:     logger.With().Str("component", "gateway").Logger(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

type depositStatusResponse struct {
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
}

// DepositStatus asks the gateway whether the inbound transfer identified
// by coin and reference has been confirmed on chain. Transient failures
// are retried with linear backoff; an exhausted retry budget surfaces the
// last error so the caller can requeue the check.
func (c *Client) DepositStatus(ctx context.Context, coin, reference string) (DepositState, error) {
	path := fmt.Sprintf("%s/v1/deposits/%s/%s", c.baseURL, url.PathEscape(coin), url.PathEscape(reference))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
				// Continue with retry after delay
			}
		}

		state, retryable, err := c.fetchStatus(ctx, path)
		if err == nil {
			metrics.RecordGatewayRequest("success")
			return state, nil
		}

		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("reference", reference).
			Msg("Gateway request failed, retrying")
	}

	metrics.RecordGatewayRequest("failed")
	return "", fmt.Errorf("gateway deposit status failed after retries: %w", lastErr)
}

func (c *Client) fetchStatus(ctx context.Context, path string) (DepositState, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The gateway has not seen the transfer yet
		return DepositPending, false, nil
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", false, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var parsed depositStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	switch DepositState(parsed.Status) {
	case DepositConfirmed, DepositPending, DepositRejected:
		return DepositState(parsed.Status), false, nil
	default:
		return "", false, fmt.Errorf("unknown deposit status %q", parsed.Status)
	}
}
