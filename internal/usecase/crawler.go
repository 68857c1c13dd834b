package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/retry"
)

// PageIngester ingests a single listing page.
type PageIngester interface {
	IngestListingPage(ctx context.Context, page int) (domain.PageReport, error)
}

// CrawlerOptions tunes the page loop.
type CrawlerOptions struct {
	// PageAttempts is how many times a failing page is tried before the crawl stops.
	PageAttempts int
	PagePause    time.Duration
	Sleep        retry.Sleeper
}

// Crawler walks a range of listing pages one at a time.
type Crawler struct {
	ingester PageIngester
	opts     CrawlerOptions
	logger   *slog.Logger
}

// NewCrawler wires the page ingester.
func NewCrawler(ingester PageIngester, opts CrawlerOptions, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageAttempts <= 0 {
		opts.PageAttempts = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	return &Crawler{ingester: ingester, opts: opts, logger: logger}
}

// Crawl ingests pages from..to inclusive, counting down when from > to.
// It stops at the first page that keeps failing and returns the reports
// gathered so far.
func (c *Crawler) Crawl(ctx context.Context, from, to int) ([]domain.PageReport, error) {
	if from < 1 || to < 1 {
		return nil, fmt.Errorf("page range %d..%d: pages start at 1", from, to)
	}
	step := 1
	if from > to {
		step = -1
	}

	var reports []domain.PageReport
	for page := from; ; page += step {
		report, err := c.ingestWithRetry(ctx, page)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)

		if page == to {
			return reports, nil
		}
		if err := c.opts.Sleep(ctx, c.opts.PagePause); err != nil {
			return reports, err
		}
	}
}

func (c *Crawler) ingestWithRetry(ctx context.Context, page int) (domain.PageReport, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.PageAttempts; attempt++ {
		c.logger.Info("scraping page", "page", page, "attempt", attempt)
		report, err := c.ingester.IngestListingPage(ctx, page)
		if err == nil {
			return report, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.PageReport{}, ctxErr
		}
		lastErr = err
		c.logger.Warn("page failed", "page", page, "attempt", attempt, "error", err)
	}
	return domain.PageReport{}, fmt.Errorf("page %d failed after %d attempts: %w", page, c.opts.PageAttempts, lastErr)
}
