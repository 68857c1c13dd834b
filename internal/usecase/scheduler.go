package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

// Scheduler wires the ticker driver with the crawler: each tick re-crawls
// the newest pages so missing catalog links get backfilled.
type Scheduler struct {
	driver  ports.Scheduler
	crawler *Crawler
	pages   int
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring crawls of pages..1.
func NewScheduler(driver ports.Scheduler, crawler *Crawler, pages int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if pages <= 0 {
		pages = 1
	}
	return &Scheduler{driver: driver, crawler: crawler, pages: pages, logger: logger}
}

// Start registers the crawl with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.crawler == nil {
		return nil
	}

	job := func(trigger time.Time) {
		reports, err := s.crawler.Crawl(ctx, s.pages, 1)
		if err != nil {
			s.logger.Error("scheduled crawl failed", "trigger", trigger, "pages_done", len(reports), "error", err)
			return
		}
		s.logger.Info("scheduled crawl finished", "trigger", trigger, "pages", len(reports))
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
