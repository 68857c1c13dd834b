package retry

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// NetworkError wraps a transport failure such as a reset connection or timeout.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a 5xx response.
type ServerError struct {
	URL        string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error for %s: status %d", e.URL, e.StatusCode)
}

// RateLimitError is a 429 response. RetryAfter holds the server's hint when
// HasHint is true.
type RateLimitError struct {
	URL        string
	RetryAfter time.Duration
	HasHint    bool
}

func (e *RateLimitError) Error() string {
	if !e.HasHint {
		return fmt.Sprintf("rate limited by %s", e.URL)
	}
	return fmt.Sprintf("rate limited by %s, retry after %ds", e.URL, e.RetryAfterSeconds())
}

// RetryAfterSeconds returns the hint rounded up to whole seconds.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := e.RetryAfter / time.Second
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return int(secs)
}

// StatusError is any other unexpected status. It is not retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// FromStatus classifies a response status. It returns nil for 2xx.
func FromStatus(url string, status int, header http.Header) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		d, ok := ParseRetryAfter(header.Get("Retry-After"), time.Now())
		return &RateLimitError{URL: url, RetryAfter: d, HasHint: ok}
	case status >= 500:
		return &ServerError{URL: url, StatusCode: status}
	default:
		return &StatusError{URL: url, StatusCode: status}
	}
}

// ParseRetryAfter understands both delta-seconds and HTTP-date values.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
