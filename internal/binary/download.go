package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/skyfe79/provision/internal/config"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "npm-install-script"
	// DefaultRedirectLimit is the default maximum number of redirect hops
	DefaultRedirectLimit = 5
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultBackoff is the delay before the first retry; it doubles each time
	DefaultBackoff = time.Second
)

// Fetcher downloads a URL to a file. Redirects are followed by an explicit
// loop so the hop limit and the error on exceeding it are under our control.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	redirectLimit int
	retries       int
	backoff       time.Duration
	logger        config.Logger
}

// NewFetcher creates a fetcher. A nil client uses a fresh http.Client; a
// non-nil client is copied so its redirect policy can be replaced.
func NewFetcher(opts config.DownloadOptions, client *http.Client, logger config.Logger) *Fetcher {
	var c http.Client
	if client != nil {
		c = *client
	}
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if logger == nil {
		logger = config.NopLogger()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Fetcher{
		client:        &c,
		userAgent:     userAgent,
		redirectLimit: opts.RedirectLimit,
		retries:       opts.Retries,
		backoff:       DefaultBackoff,
		logger:        logger,
	}
}

// Fetch downloads url to destPath. destPath is either fully written or left
// untouched; the partial download lives in destPath+".tmp" and is removed on
// failure.
//
// Transport errors and 5xx responses are retried with exponential backoff.
// After the last attempt the last typed error is returned unchanged.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) error {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := f.backoff << uint(attempt-1)
			f.logger.Debug("retrying download", "url", url, "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return lastErr
			}
		}

		err := f.fetchOnce(ctx, url, destPath)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			return err
		}
	}

	return lastErr
}

// fetchOnce performs a single download attempt, following up to
// redirectLimit redirects.
func (f *Fetcher) fetchOnce(ctx context.Context, url, destPath string) error {
	current := url

	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return fmt.Errorf("create request for %s: %w", current, err)
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return &TransportError{URL: current, Err: err}
		}

		if !isRedirect(resp.StatusCode) {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return &DownloadFailedError{StatusCode: resp.StatusCode, URL: current}
			}
			return writeFile(resp.Body, current, destPath)
		}

		location := resp.Header.Get("Location")
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if location == "" {
			return &DownloadFailedError{StatusCode: resp.StatusCode, URL: current}
		}
		if hops >= f.redirectLimit {
			return &RedirectLoopError{Limit: f.redirectLimit, URL: url}
		}

		next, err := resp.Request.URL.Parse(location)
		if err != nil {
			return fmt.Errorf("%w: %q from %s: %w", ErrInvalidRedirect, location, current, err)
		}
		if next.Scheme != "http" && next.Scheme != "https" {
			return fmt.Errorf("%w: %q from %s: unsupported scheme", ErrInvalidRedirect, location, current)
		}
		f.logger.Debug("following redirect", "from", current, "to", next.String(), "status", resp.StatusCode)
		current = next.String()
	}
}

// writeFile streams body into destPath via a temporary file and a rename.
func writeFile(body io.Reader, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, body); err != nil {
		return &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.transient()
	}
	var failed *DownloadFailedError
	if errors.As(err, &failed) {
		return failed.StatusCode >= 500
	}
	return false
}
