package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
)

var (
	// ErrRedirectLoop matches any *RedirectLoopError.
	ErrRedirectLoop = errors.New("too many redirects")
	// ErrArtifactUnavailable is returned under the strict policy for a
	// platform without a published artifact.
	ErrArtifactUnavailable = errors.New("no published artifact")
	// ErrInvalidRedirect is returned for a Location header that cannot be
	// followed. It is not retried.
	ErrInvalidRedirect = errors.New("invalid redirect location")
	// ErrVersionRequired is returned when locating with an empty version.
	ErrVersionRequired = errors.New("version is required")
)

// DownloadFailedError is a final non-200, non-redirect HTTP status.
type DownloadFailedError struct {
	StatusCode int
	URL        string
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download failed: %d (%s)", e.StatusCode, e.URL)
}

// TransportError is a network-level failure: DNS, TLS, reset, timeout.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// transient reports whether the cause can go away on another attempt.
// Network errors, truncated bodies and timeouts can; a malformed Location
// header or an unsupported scheme reported by the client cannot.
func (e *TransportError) transient() bool {
	cause := e.Err
	var urlErr *url.Error
	if errors.As(cause, &urlErr) {
		cause = urlErr.Err
	}
	if errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrUnexpectedEOF) || errors.Is(cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(cause, &netErr)
}

// RedirectLoopError is returned when a redirect chain exceeds Limit hops.
type RedirectLoopError struct {
	Limit int
	URL   string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("too many redirects (limit %d) fetching %s", e.Limit, e.URL)
}

// Is lets errors.Is(err, ErrRedirectLoop) match.
func (e *RedirectLoopError) Is(target error) bool {
	return target == ErrRedirectLoop
}

// ExtractionFailedError wraps a failed unpack. Output holds whatever the
// extraction tool printed.
type ExtractionFailedError struct {
	Archive string
	Output  string
	Err     error
}

func (e *ExtractionFailedError) Error() string {
	msg := fmt.Sprintf("failed to extract %s: %v", e.Archive, e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *ExtractionFailedError) Unwrap() error {
	return e.Err
}

// PermissionError is returned when the binary cannot be made executable.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("set executable %s: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// VerificationError is returned when a configured check rejects the archive.
type VerificationError struct {
	Method VerificationMethod
	Path   string
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s verification failed for %s: %v", e.Method, e.Path, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// IsDownloadFailed reports whether err is a DownloadFailedError.
func IsDownloadFailed(err error) bool {
	var target *DownloadFailedError
	return errors.As(err, &target)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsRedirectLoop reports whether err is a RedirectLoopError.
func IsRedirectLoop(err error) bool {
	return errors.Is(err, ErrRedirectLoop)
}

// IsExtractionFailed reports whether err is an ExtractionFailedError.
func IsExtractionFailed(err error) bool {
	var target *ExtractionFailedError
	return errors.As(err, &target)
}

// IsPermission reports whether err is a PermissionError.
func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

// IsVerification reports whether err is a VerificationError.
func IsVerification(err error) bool {
	var target *VerificationError
	return errors.As(err, &target)
}
