package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/webclient"
)

var (
	// ErrProtected is returned for 401/403 responses. It is never retried.
	ErrProtected = errors.New("protected resource")

	// ErrRetriesExhausted is returned once every attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// StatusError describes an unexpected HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Module: fetcher
// Issues single GETs with a per-attempt timeout and bounded retries.
type Fetcher struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
}

// New creates a new Fetcher with the given webclient and logger.
func New(cfg Config, wc webclient.WebClient, logger logging.Logger) (*Fetcher, error) {
	if wc == nil {
		return nil, fmt.Errorf("webclient cannot be nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	defaults := DefaultConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &Fetcher{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "fetcher"}),
	}, nil
}

// Fetch returns the body of url. Failure means "no data" to the caller and is
// one of ErrProtected, ErrRetriesExhausted or the context error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		body, err := f.attempt(ctx, url)
		if err == nil {
			f.logger.Debug("fetched page",
				logging.Field{Key: "url", Value: url},
				logging.Field{Key: "attempt", Value: attempt})
			return body, nil
		}

		if errors.Is(err, ErrProtected) {
			f.logger.Warn("protected resource, not retrying",
				logging.Field{Key: "url", Value: url},
				logging.Field{Key: "attempt", Value: attempt},
				logging.Field{Key: "error", Value: err.Error()})
			return "", err
		}

		lastErr = err
		f.logger.Warn("fetch attempt failed",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "max_retries", Value: f.cfg.MaxRetries},
			logging.Field{Key: "error", Value: err.Error()})

		if attempt < f.cfg.MaxRetries && f.cfg.RetryDelay > 0 {
			select {
			case <-time.After(f.cfg.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("%w after %d attempts for %s: %v", ErrRetriesExhausted, f.cfg.MaxRetries, url, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	resp, err := f.wc.Get(attemptCtx, url)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timeout after %s: %w", f.cfg.Timeout, err)
		}
		return "", err
	}

	if resp.OK() {
		return resp.Text(), nil
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrProtected, resp.StatusCode)
	default:
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
}

// Isolated returns a Fetcher with the same settings whose web client owns its
// own connection pool, plus a release func. Clients that cannot be isolated
// are shared.
func (f *Fetcher) Isolated() (*Fetcher, func()) {
	iso, ok := f.wc.(webclient.Isolator)
	if !ok {
		return f, func() {}
	}
	wc := iso.Isolated()
	child := &Fetcher{cfg: f.cfg, wc: wc, logger: f.logger}
	return child, func() {
		if err := wc.Close(); err != nil {
			f.logger.Debug("closing isolated webclient", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
