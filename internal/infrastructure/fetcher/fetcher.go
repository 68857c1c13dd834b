package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/hipstersmoothie/pitchforkify/internal/metrics"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
	"github.com/hipstersmoothie/pitchforkify/internal/retry"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	defaultTimeout   = 30 * time.Second

	// MaxResponseSize is the largest page body accepted (10MB).
	MaxResponseSize = 10 * 1024 * 1024
)

// Options configures the review-site HTTP client.
type Options struct {
	UserAgent        string
	Timeout          time.Duration
	BypassCloudflare bool
	// Client overrides the underlying resty client, mostly for tests.
	Client *resty.Client
}

// Fetcher performs GETs against the review site, waiting out throttles and
// transient failures according to its retry policy.
type Fetcher struct {
	http   *resty.Client
	policy retry.Policy
	logger *slog.Logger
}

var _ ports.PageFetcher = (*Fetcher)(nil)

// New builds a Fetcher. The policy's logger defaults to the fetcher's.
func New(opts Options, policy retry.Policy, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}

	client := opts.Client
	if client == nil {
		client = resty.New()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client.SetHeader("User-Agent", ua)
	client.SetTimeout(timeout)
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	return &Fetcher{http: client, policy: policy, logger: logger}
}

// Fetch returns the body of pageURL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := validateURL(pageURL); err != nil {
		return "", err
	}
	return retry.Value(ctx, f.policy, pageURL, func(ctx context.Context) (string, error) {
		return f.fetchOnce(ctx, pageURL)
	})
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()
	res, err := f.http.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		metrics.HTTPRequestsTotal.WithLabelValues("site", "error").Inc()
		return "", &retry.NetworkError{URL: pageURL, Err: err}
	}

	metrics.HTTPRequestsTotal.WithLabelValues("site", strconv.Itoa(res.StatusCode())).Inc()
	f.logger.Debug("fetched page", "url", pageURL, "status", res.StatusCode(), "duration", time.Since(start))

	if err := retry.FromStatus(pageURL, res.StatusCode(), res.Header()); err != nil {
		return "", err
	}
	if len(res.Body()) > MaxResponseSize {
		return "", fmt.Errorf("response body too large for %s: %d bytes (max %d)", pageURL, len(res.Body()), MaxResponseSize)
	}

	return string(res.Body()), nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid page url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid page url %q: unsupported scheme", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid page url %q: missing host", raw)
	}
	return nil
}
