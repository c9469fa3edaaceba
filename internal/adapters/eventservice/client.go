package eventservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"eventregistration/internal/domain"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultTimeout         = 3 * time.Second
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 100 * time.Millisecond
	DefaultMaxInterval     = time.Second
)

// maxBodyBytes bounds how much of the exists response is read. The answer is a bare JSON boolean.
const maxBodyBytes = 512

// errUnexpectedStatus marks a non-200 answer that is not worth retrying.
var errUnexpectedStatus = errors.New("unexpected status from event service")

// Config holds the event service endpoint and call policy.
type Config struct {
	// BaseURL is the events collection URL; the check calls <BaseURL>/{eventId}/exists.
	BaseURL string
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxAttempts bounds the number of attempts for transport failures and 5xx answers.
	MaxAttempts uint
	// InitialInterval is the first retry delay; it grows exponentially up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type httpExistenceClient struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger
}

// NewHTTPExistenceClient returns an EventExistenceChecker that calls the event service over HTTP.
// A nil client uses http.DefaultClient; a nil logger discards retry notices.
func NewHTTPExistenceClient(client *http.Client, cfg Config, logger *slog.Logger) (domain.EventExistenceChecker, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("event service base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid event service base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid event service base URL scheme %q", u.Scheme)
	}
	cfg.BaseURL = base
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &httpExistenceClient{client: client, cfg: cfg, logger: logger}, nil
}

func (c *httpExistenceClient) Exists(ctx context.Context, eventID int64) (bool, error) {
	endpoint := fmt.Sprintf("%s/%d/exists", c.cfg.BaseURL, eventID)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval

	exists, err := backoff.Retry(ctx,
		func() (bool, error) { return c.check(ctx, endpoint) },
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.WarnContext(ctx, "event existence check failed, retrying",
				"event_id", eventID, "retry_in_ms", next.Milliseconds(), "err", err)
		}),
	)
	if err != nil {
		return false, fmt.Errorf("check event %d exists: %w", eventID, err)
	}
	return exists, nil
}

// check performs a single attempt. Errors wrapped in backoff.Permanent are not retried.
func (c *httpExistenceClient) check(ctx context.Context, endpoint string) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call event service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return false, fmt.Errorf("event service returned status: %d", resp.StatusCode)
	default:
		return false, backoff.Permanent(fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, fmt.Errorf("failed to read event service response: %w", err)
	}
	var exists *bool
	if err := json.Unmarshal(body, &exists); err != nil {
		return false, backoff.Permanent(fmt.Errorf("failed to decode event service response: %w", err))
	}
	if exists == nil {
		return false, backoff.Permanent(errors.New("event service returned null"))
	}
	return *exists, nil
}
