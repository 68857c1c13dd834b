package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/metrics"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
	"github.com/hipstersmoothie/pitchforkify/internal/retry"
)

const (
	DefaultListingPath   = "/reviews/albums/"
	DefaultConcurrency   = 8
	DefaultThrottleDelay = 30 * time.Second
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Fetcher  ports.PageFetcher
	Parser   ports.PageParser
	Catalog  ports.CatalogConnector
	Store    ports.ReviewStore
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// PipelineOptions tunes one listing-page run.
type PipelineOptions struct {
	BaseURL     string
	ListingPath string
	Concurrency int
	// ThrottleDelay is the pause before re-fetching a detail page whose body came back empty.
	ThrottleDelay time.Duration
	// MaxThrottleRetries caps empty-body re-fetches per review; zero keeps retrying.
	MaxThrottleRetries int
	Sleep              retry.Sleeper
}

// Pipeline implements the listing-page ingestion workflow.
type Pipeline struct {
	fetcher    ports.PageFetcher
	parser     ports.PageParser
	catalog    ports.CatalogConnector
	reconciler *Reconciler
	notifier   ports.Notifier
	logger     *slog.Logger
	opts       PipelineOptions
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ListingPath == "" {
		opts.ListingPath = DefaultListingPath
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ThrottleDelay <= 0 {
		opts.ThrottleDelay = DefaultThrottleDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}

	return &Pipeline{
		fetcher:    deps.Fetcher,
		parser:     deps.Parser,
		catalog:    deps.Catalog,
		reconciler: NewReconciler(deps.Store, logger.With("component", "reconciler")),
		notifier:   deps.Notifier,
		logger:     logger,
		opts:       opts,
	}
}

// ListingURL returns the address of listing page n.
func (p *Pipeline) ListingURL(page int) string {
	base := strings.TrimRight(p.opts.BaseURL, "/")
	path := "/" + strings.TrimLeft(p.opts.ListingPath, "/")
	return base + path + "?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
}

type reviewResult struct {
	summary   domain.RawReviewSummary
	review    domain.ParsedReview
	throttles int
	stage     string
	err       error
}

// IngestListingPage fetches listing page n and reconciles every review on it.
// It is idempotent and safe to call for pages in any order. Per-review
// failures are counted in the report; only listing-level failures are returned.
func (p *Pipeline) IngestListingPage(ctx context.Context, page int) (domain.PageReport, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID, "page", page)
	report := domain.PageReport{Page: page, RunID: runID}
	defer func() {
		report.Duration = time.Since(start)
		metrics.PageDuration.Observe(report.Duration.Seconds())
	}()

	var matcher ports.CatalogMatcher
	if p.catalog != nil {
		m, err := p.catalog.Connect(ctx)
		if err != nil {
			return report, fmt.Errorf("connect catalog: %w", err)
		}
		matcher = m
	}

	listingURL := p.ListingURL(page)
	content, err := p.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return report, fmt.Errorf("fetch listing page %d: %w", page, err)
	}
	summaries, err := p.parser.ParseListingPage(content, page)
	if err != nil {
		p.notifyParseFailure(ctx, log, listingURL, err)
		return report, fmt.Errorf("parse listing page %d: %w", page, err)
	}
	report.Discovered = len(summaries)
	log.Info("listing page parsed", "reviews", len(summaries))

	results := make([]reviewResult, len(summaries))
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, summary := range summaries {
		i, summary := i, summary
		g.Go(func() error {
			results[i] = p.processReview(ctx, log, matcher, summary)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Listing pages are newest first; write oldest first so ids follow publish order.
	for i := len(results) - 1; i >= 0; i-- {
		res := results[i]
		report.ThrottleRetries += res.throttles
		reviewLog := log.With("url", res.summary.DetailURL)

		if res.err != nil {
			report.Failed++
			metrics.ReviewFailuresTotal.WithLabelValues(res.stage).Inc()
			reviewLog.Error("review failed", "stage", res.stage, "state", string(domain.StateFailed), "error", res.err)
			if res.stage == "parse" {
				p.notifyParseFailure(ctx, reviewLog, res.summary.DetailURL, res.err)
			}
			continue
		}

		outcome, err := p.reconciler.Reconcile(ctx, res.review)
		if err != nil {
			report.Failed++
			metrics.ReviewFailuresTotal.WithLabelValues("reconcile").Inc()
			reviewLog.Error("review failed", "stage", "reconcile", "state", string(domain.StateFailed), "error", err)
			continue
		}
		report.Record(outcome)
		reviewLog.Debug("review state", "state", string(domain.StateDone), "outcome", string(outcome))
	}

	log.Info("listing page ingested",
		"discovered", report.Discovered,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"throttle_retries", report.ThrottleRetries,
	)
	return report, nil
}

// processReview drives one review from Pending to Normalized.
func (p *Pipeline) processReview(ctx context.Context, log *slog.Logger, matcher ports.CatalogMatcher, summary domain.RawReviewSummary) reviewResult {
	res := reviewResult{summary: summary}
	log = log.With("url", summary.DetailURL)
	state := func(s domain.ReviewState) {
		log.Debug("review state", "state", string(s))
	}
	state(domain.StatePending)

	var review domain.ParsedReview
	for {
		state(domain.StateFetching)
		content, err := p.fetcher.Fetch(ctx, summary.DetailURL)
		if err != nil {
			res.stage, res.err = "fetch", err
			return res
		}

		review, err = p.parser.ParseDetailPage(content)
		if errors.Is(err, domain.ErrThrottled) {
			res.throttles++
			metrics.ThrottledPagesTotal.Inc()
			if p.opts.MaxThrottleRetries > 0 && res.throttles > p.opts.MaxThrottleRetries {
				res.stage = "fetch"
				res.err = fmt.Errorf("giving up after %d empty responses: %w", res.throttles, err)
				return res
			}
			state(domain.StateThrottledRetry)
			log.Warn("review body is empty, waiting", "attempt", res.throttles, "delay", p.opts.ThrottleDelay)
			if err := p.opts.Sleep(ctx, p.opts.ThrottleDelay); err != nil {
				res.stage, res.err = "fetch", err
				return res
			}
			continue
		}
		if err != nil {
			res.stage, res.err = "parse", withURL(err, summary.DetailURL)
			return res
		}
		break
	}
	state(domain.StateParsed)

	review.DetailURL = summary.DetailURL
	review.ApplyHints(summary.Hints)
	if review.PublishDate.IsZero() {
		review.PublishDate = summary.PubDate
	}
	if strings.TrimSpace(review.AlbumTitle) == "" {
		res.stage = "parse"
		res.err = &domain.ParseError{URL: summary.DetailURL, Reason: "album title not found"}
		return res
	}

	if matcher != nil && review.PrimaryArtist() != "" {
		state(domain.StateMatching)
		uri, err := matcher.Match(ctx, review.PrimaryArtist(), review.AlbumTitle)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.stage, res.err = "match", ctxErr
				return res
			}
			// Left unlinked; a later run backfills it.
			log.Warn("catalog lookup failed", "error", err)
		} else {
			review.CatalogURI = uri
		}
		state(domain.StateMatched)
	}

	state(domain.StateNormalized)
	res.review = review
	return res
}

func (p *Pipeline) notifyParseFailure(ctx context.Context, log *slog.Logger, pageURL string, cause error) {
	if p.notifier == nil {
		return
	}
	var parseErr *domain.ParseError
	if !errors.As(cause, &parseErr) && !errors.Is(cause, domain.ErrNoLayout) {
		return
	}
	msg := fmt.Sprintf("pitchforkify: could not parse %s\n%v", pageURL, cause)
	if err := p.notifier.Notify(ctx, msg); err != nil {
		log.Warn("notify parse failure", "error", err)
	}
}

func withURL(err error, pageURL string) error {
	var parseErr *domain.ParseError
	if errors.As(err, &parseErr) && parseErr.URL == "" {
		parseErr.URL = pageURL
	}
	return err
}
