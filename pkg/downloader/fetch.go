package downloader

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/logger"
)

// Fetch defaults
const (
	DefaultRetry   = 5
	DefaultDelay   = 2 * time.Second
	DefaultTimeout = 10 * time.Second
)

// Getter performs a single bounded GET
type Getter interface {
	GetBytes(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Fetcher fetches one location with a bounded number of attempts and a fixed
// delay between them
type Fetcher struct {
	Getter  Getter
	Retry   int // total attempts
	Delay   time.Duration
	Timeout time.Duration
}

// NewFetcher creates a fetcher, substituting defaults for non-positive values
func NewFetcher(getter Getter, retry int, delay, timeout time.Duration) *Fetcher {
	if retry <= 0 {
		retry = DefaultRetry
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{Getter: getter, Retry: retry, Delay: delay, Timeout: timeout}
}

// Fetch returns the body of url, or false once every attempt failed or ctx ended.
// Failures are never returned to the caller.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, bool) {
	attempts := f.Retry
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, false
		}

		body, err := f.Getter.GetBytes(ctx, url, f.Timeout)
		if err == nil {
			return body, true
		}
		lastErr = err

		logger.GetLogger().WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
			"of":      attempts,
		}).WithError(err).Debug("Fetch attempt failed")

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(f.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		case <-timer.C:
		}
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"url":      url,
		"attempts": attempts,
	}).WithError(lastErr).Warn("Giving up on segment")
	return nil, false
}
