package ecp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/muurk/easyremote/internal/logging"
)

const (
	// DefaultPort is the port streaming devices serve the control protocol on
	DefaultPort = 8060

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts is the default number of attempts per command
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed delay between attempts
	DefaultRetryDelay = 2 * time.Second

	// DefaultMaxRetryDelay caps the delay when exponential backoff is enabled
	DefaultMaxRetryDelay = 30 * time.Second

	// maxBodySize bounds how much of a query response is read
	maxBodySize = 1 << 20
)

// Observer is notified once per Send with the final outcome.
type Observer interface {
	ObserveCommand(address string, cmd Command, attempts int, err error)
}

// Client sends control protocol commands to devices over HTTP.
// A single Client serves every device; the address is passed per call.
type Client struct {
	// HTTPClient is the underlying HTTP client. Keep-alives are disabled so
	// each call releases its connection when the body is closed.
	HTTPClient *http.Client

	// MaxAttempts is the number of attempts made before Send gives up
	MaxAttempts int

	// RetryDelay is the delay between attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after each failed attempt
	UseExponentialBackoff bool

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error

	// Observer receives command outcomes (optional)
	Observer Observer
}

// NewClient creates a client with a fixed-delay retry policy.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		MaxAttempts:   DefaultMaxAttempts,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		Sleep:         SleepContext,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxAttempts int, retryDelay time.Duration) {
	c.MaxAttempts = maxAttempts
	c.RetryDelay = retryDelay
}

// Send issues cmd to the device at address ("host:port") and returns the
// response body for queries or "" for keypresses and launches.
//
// Retryable failures are attempted up to MaxAttempts times with RetryDelay
// between attempts. After that the last *TransportError is returned.
func (c *Client) Send(ctx context.Context, address string, cmd Command) (string, error) {
	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr *TransportError
	attempts := 0
	currentDelay := c.RetryDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, currentDelay); err != nil {
				lastErr = NewNetworkError("canceled while waiting to retry", err, address)
				break
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if c.MaxRetryDelay > 0 && currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		attempts = attempt
		body, err := c.sendAttempt(ctx, address, cmd)
		if err == nil {
			c.finish(address, cmd, attempts, nil)
			return body, nil
		}

		lastErr = err
		if !err.Retryable {
			break
		}
	}

	lastErr.Command = cmd.Path
	lastErr.Attempts = attempts
	c.finish(address, cmd, attempts, lastErr)
	return "", lastErr
}

// sendAttempt performs a single request. The response body is always closed.
func (c *Client) sendAttempt(ctx context.Context, address string, cmd Command) (string, *TransportError) {
	req, err := http.NewRequestWithContext(ctx, cmd.Method, "http://"+address+"/"+cmd.Path, nil)
	if err != nil {
		return "", NewParseError("failed to create request", err, address)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", NewNetworkError("request failed", err, address)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return "", NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), address)
	}

	if !cmd.IsQuery() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", NewNetworkError("failed to read response body", err, address)
	}
	return string(body), nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (c *Client) finish(address string, cmd Command, attempts int, err error) {
	logging.LogCommand(address, cmd.Path, attempts, err)
	if c.Observer != nil {
		c.Observer.ObserveCommand(address, cmd, attempts, err)
	}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
