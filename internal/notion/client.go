package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.notion.com/v1"

	// DefaultVersion is the API version sent in the Notion-Version header.
	DefaultVersion = "2022-06-28"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Config configures a Client.
type Config struct {
	// Token is the integration secret. Required.
	Token string

	// Version is sent as the Notion-Version header.
	Version string

	// BaseURL overrides the API endpoint (used by tests).
	BaseURL string

	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration

	// MaxRetries is how many times a transient failure is retried.
	MaxRetries int

	// InitialBackoff and MaxBackoff shape the exponential retry delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// RequestsPerSecond caps the request rate. Zero or negative disables
	// client-side limiting.
	RequestsPerSecond float64

	// HTTPClient is used for requests. Defaults to a plain http.Client.
	HTTPClient *http.Client

	// Logger receives retry notices. Defaults to stderr.
	Logger *log.Logger
}

// DefaultConfig returns a Config with production defaults and no token.
func DefaultConfig() *Config {
	return &Config{
		Version:           DefaultVersion,
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		RequestsPerSecond: 3,
	}
}

// Client talks to the Notion API. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// New creates a Client. Zero-valued fields of cfg fall back to
// DefaultConfig values.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notion config is required")
	}
	c := *cfg
	def := DefaultConfig()
	if c.Token == "" {
		return nil, fmt.Errorf("notion token is required")
	}
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := c.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[notion] ", log.LstdFlags)
	}

	limit := rate.Inf
	if c.RequestsPerSecond > 0 {
		limit = rate.Limit(c.RequestsPerSecond)
	}

	return &Client{
		cfg:     c,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

// do sends one logical request, retrying transient failures, and decodes a
// successful JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	hint := &retryAfter{}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialBackoff
	exp.MaxInterval = c.cfg.MaxBackoff
	exp.MaxElapsedTime = 0
	var b backoff.BackOff = &retryAfterBackOff{BackOff: exp, hint: hint, max: c.cfg.MaxBackoff}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := c.attempt(ctx, method, path, payload, out, hint)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Printf("%s %s attempt %d failed: %v (retrying in %s)", method, path, attempt, err, wait.Round(time.Millisecond))
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

// attempt performs a single HTTP round trip.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any, hint *retryAfter) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", c.cfg.Version)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNetworkTimeout, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: reading response: %v", ErrNetworkTimeout, err)
			}
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode, kind: kindForStatus(resp.StatusCode)}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(raw) > 0 {
		if json.Unmarshal(raw, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	// Unmarshal may have overwritten the status with the body's copy.
	apiErr.Status = resp.StatusCode
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		hint.set(parseRetryAfter(resp.Header.Get("Retry-After")))
	}
	return apiErr
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout() || errors.Is(err, context.DeadlineExceeded)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// retryAfter carries a server-requested delay from an attempt to the backoff.
type retryAfter struct {
	d time.Duration
}

func (r *retryAfter) set(d time.Duration) { r.d = d }

func (r *retryAfter) take() time.Duration {
	d := r.d
	r.d = 0
	return d
}

// retryAfterBackOff stretches the next interval to honor Retry-After,
// capped at max.
type retryAfterBackOff struct {
	backoff.BackOff
	hint *retryAfter
	max  time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if h := b.hint.take(); h > next {
		next = h
	}
	if next > b.max {
		next = b.max
	}
	return next
}
