package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/metrics"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
	"github.com/hipstersmoothie/pitchforkify/internal/retry"
)

const (
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL   = "https://api.spotify.com/v1"

	defaultTimeout = 30 * time.Second
	upstream       = "catalog"
)

// Options holds catalog endpoints and credentials.
type Options struct {
	TokenURL     string
	APIURL       string
	ClientID     string
	ClientSecret string
	Market       string
	Limit        int
	Timeout      time.Duration
	// Client overrides the underlying resty client, mostly for tests.
	Client *resty.Client
}

// Connector performs the client-credentials grant.
type Connector struct {
	http   *resty.Client
	opts   Options
	policy retry.Policy
	logger *slog.Logger
}

var _ ports.CatalogConnector = (*Connector)(nil)

// NewConnector builds a Connector. The policy's logger defaults to the connector's.
func NewConnector(opts Options, policy retry.Policy, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")

	client := opts.Client
	if client == nil {
		client = resty.New()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client.SetTimeout(timeout)

	return &Connector{http: client, opts: opts, policy: policy, logger: logger}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Connect requests an app token and returns a matcher searching with it.
func (c *Connector) Connect(ctx context.Context) (ports.CatalogMatcher, error) {
	client, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}
	return NewMatcher(client, c.logger), nil
}

// Session requests an app token and returns a search client bound to it.
func (c *Connector) Session(ctx context.Context) (*Client, error) {
	if c.opts.ClientID == "" || c.opts.ClientSecret == "" {
		return nil, errors.New("catalog client credentials are not configured")
	}

	token, err := retry.Value(ctx, c.policy, c.opts.TokenURL, func(ctx context.Context) (tokenResponse, error) {
		return c.grant(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("client credentials grant: %w", err)
	}

	c.logger.Debug("catalog token granted", "expires_in", token.ExpiresIn)
	return &Client{
		http:   c.http,
		token:  token.AccessToken,
		opts:   c.opts,
		policy: c.policy,
		logger: c.logger,
	}, nil
}

func (c *Connector) grant(ctx context.Context) (tokenResponse, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(c.opts.TokenURL)
	if err != nil {
		return tokenResponse{}, transportError(ctx, c.opts.TokenURL, err)
	}

	metrics.HTTPRequestsTotal.WithLabelValues(upstream, strconv.Itoa(res.StatusCode())).Inc()
	if err := retry.FromStatus(c.opts.TokenURL, res.StatusCode(), res.Header()); err != nil {
		return tokenResponse{}, err
	}

	var token tokenResponse
	if err := json.Unmarshal(res.Body(), &token); err != nil {
		return tokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return tokenResponse{}, errors.New("token response carries no access token")
	}
	return token, nil
}

// Client is an authenticated catalog search session.
type Client struct {
	http   *resty.Client
	token  string
	opts   Options
	policy retry.Policy
	logger *slog.Logger
}

var _ ports.CatalogSearcher = (*Client)(nil)

type searchResponse struct {
	Albums struct {
		Items []struct {
			URI     string `json:"uri"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"items"`
	} `json:"albums"`
}

// SearchAlbums runs an album search and returns candidates in relevance order.
func (c *Client) SearchAlbums(ctx context.Context, query string) ([]domain.CatalogCandidate, error) {
	endpoint := c.opts.APIURL + "/search"
	return retry.Value(ctx, c.policy, endpoint, func(ctx context.Context) ([]domain.CatalogCandidate, error) {
		return c.searchOnce(ctx, endpoint, query)
	})
}

func (c *Client) searchOnce(ctx context.Context, endpoint, query string) ([]domain.CatalogCandidate, error) {
	params := map[string]string{
		"q":    query,
		"type": "album",
	}
	if c.opts.Limit > 0 {
		params["limit"] = strconv.Itoa(c.opts.Limit)
	}
	if c.opts.Market != "" {
		params["market"] = c.opts.Market
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		return nil, transportError(ctx, endpoint, err)
	}

	metrics.HTTPRequestsTotal.WithLabelValues(upstream, strconv.Itoa(res.StatusCode())).Inc()
	if err := retry.FromStatus(endpoint, res.StatusCode(), res.Header()); err != nil {
		return nil, err
	}

	var payload searchResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	candidates := make([]domain.CatalogCandidate, 0, len(payload.Albums.Items))
	for _, item := range payload.Albums.Items {
		candidate := domain.CatalogCandidate{URI: item.URI, DisplayName: item.Name}
		for _, artist := range item.Artists {
			candidate.ArtistNames = append(candidate.ArtistNames, artist.Name)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func transportError(ctx context.Context, target string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.HTTPRequestsTotal.WithLabelValues(upstream, "error").Inc()
	return &retry.NetworkError{URL: target, Err: err}
}
