package transport

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

	"github.com/avast/retry-go"
)

// DefaultRetryDelay is the base delay between attempts
const DefaultRetryDelay = 500 * time.Millisecond

const (
	defaultAttempts = 3
	defaultTimeout  = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept on HTTPError
	maxErrorBody = 64 * 1024
)

// HTTPError is returned for any response outside the 2xx range
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Reason     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s was returned. Body: %s", e.Method, e.URL, e.StatusCode, e.Reason, e.Body)
}

// Temporary reports whether the request may succeed when retried
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client sends JSON requests and decodes JSON responses
type Client struct {
	httpClient *http.Client
	attempts   uint
	delay      time.Duration
	username   string
	password   string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetry sets how many times a request is attempted and the base delay between attempts
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if delay >= 0 {
			c.delay = delay
		}
	}
}

// WithBasicAuth sends the credential pair on every request
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// New creates a Client
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		attempts:   defaultAttempts,
		delay:      DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallOption adjusts a single request
type CallOption func(*call)

type call struct {
	idempotent bool
}

// Idempotent marks a request as safe to repeat, e.g. a search sent as POST
func Idempotent() CallOption {
	return func(c *call) {
		c.idempotent = true
	}
}

// idempotentMethod reports whether method can be repeated without side effects
func idempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// DoJSON sends in as the JSON request body (when non-nil) and decodes the
// response into out (when non-nil). Idempotent requests are retried on
// network failures, 5xx and 429 responses. POST and PATCH are sent once
// unless marked Idempotent, since the server may have acted on a request
// whose response was lost. Other non-2xx responses fail with *HTTPError.
func (c *Client) DoJSON(ctx context.Context, method, url string, in, out any, opts ...CallOption) error {
	var cl call
	for _, opt := range opts {
		opt(&cl)
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error encoding request body: %w", err)
		}
	}

	attempts := c.attempts
	if !cl.idempotent && !idempotentMethod(method) {
		attempts = 1
	}

	return retry.Do(
		func() error {
			return c.do(ctx, method, url, payload, out)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(Retryable),
	)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Reason:     reason(resp),
			Body:       string(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// Retryable reports whether err is worth another attempt
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	return true
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "error decoding response body: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// reason strips the numeric code from resp.Status ("404 Not Found" -> "Not Found")
func reason(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
