package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/hipstersmoothie/pitchforkify/internal/config"
	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/catalog"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/fetcher"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/parser"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/scheduler"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/server"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/storage"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/telegram"
	"github.com/hipstersmoothie/pitchforkify/internal/logging"
	"github.com/hipstersmoothie/pitchforkify/internal/metrics"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
	"github.com/hipstersmoothie/pitchforkify/internal/retry"
	"github.com/hipstersmoothie/pitchforkify/internal/usecase"
)

// Store is everything the application needs from persistence.
type Store interface {
	ports.ReviewStore
	ports.EntityLister
	Ping(ctx context.Context) error
}

// Options alters how the application is wired.
type Options struct {
	// DryRun keeps reviews in memory instead of Postgres.
	DryRun bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sqlx.DB
	store    Store
	pipeline *usecase.Pipeline
	crawler  *usecase.Crawler
	exporter *usecase.Exporter
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	if err := a.openStore(ctx, opts.DryRun); err != nil {
		return nil, err
	}

	siteFetcher := fetcher.New(fetcher.Options{
		UserAgent:        cfg.Site.UserAgent,
		Timeout:          cfg.Site.Timeout,
		BypassCloudflare: cfg.Site.BypassCloudflare,
	}, a.retryPolicy("site"), baseLogger.With("component", "fetcher"))

	registry, err := parser.NewDefaultRegistry(cfg.Site.ItemsExpression)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build layout registry: %w", err)
	}
	pageParser, err := parser.NewPageParser(registry, parser.Options{
		BaseURL:  cfg.Site.BaseURL,
		Denylist: cfg.Site.Denylist,
	}, baseLogger.With("component", "parser"))
	if err != nil {
		a.Close()
		return nil, err
	}

	var connector ports.CatalogConnector
	if cfg.Catalog.Enabled() {
		connector = catalog.NewConnector(catalog.Options{
			TokenURL:     cfg.Catalog.TokenURL,
			APIURL:       cfg.Catalog.APIURL,
			ClientID:     cfg.Catalog.ClientID,
			ClientSecret: cfg.Catalog.ClientSecret,
			Market:       cfg.Catalog.Market,
			Limit:        cfg.Catalog.Limit,
			Timeout:      cfg.Catalog.Timeout,
		}, a.retryPolicy("catalog"), baseLogger.With("component", "catalog"))
	} else {
		baseLogger.Warn("catalog credentials missing, reviews will be stored without catalog links")
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.APIURL)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher:  siteFetcher,
		Parser:   pageParser,
		Catalog:  connector,
		Store:    a.store,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "pipeline"),
	}, usecase.PipelineOptions{
		BaseURL:            cfg.Site.BaseURL,
		ListingPath:        cfg.Site.ListingPath,
		Concurrency:        cfg.Pipeline.Concurrency,
		ThrottleDelay:      cfg.Pipeline.ThrottleDelay,
		MaxThrottleRetries: cfg.Pipeline.MaxThrottleRetries,
	})
	a.crawler = usecase.NewCrawler(a.pipeline, usecase.CrawlerOptions{
		PageAttempts: cfg.Pipeline.PageAttempts,
		PagePause:    cfg.Pipeline.PagePause,
	}, baseLogger.With("component", "crawler"))
	a.exporter = usecase.NewExporter(a.store, baseLogger.With("component", "export"))

	return a, nil
}

func (a *Application) retryPolicy(upstream string) retry.Policy {
	return retry.Policy{
		TransportDelay: a.cfg.Pipeline.TransportDelay,
		MaxAttempts:    a.cfg.Pipeline.MaxAttempts,
		Logger:         a.logger.With("component", "retry", "upstream", upstream),
		OnRetry:        metrics.RetryObserver(upstream),
	}
}

func (a *Application) openStore(ctx context.Context, dryRun bool) error {
	if dryRun {
		a.logger.Info("dry run: reviews are kept in memory")
		a.store = storage.NewMemoryRepository()
		return nil
	}

	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.db = db
	if a.cfg.Database.AutoMigrate {
		if err := storage.Migrate(db.DB, a.logger.With("component", "migrate")); err != nil {
			_ = db.Close()
			return err
		}
	}
	a.store = storage.NewPostgresRepository(db, a.logger.With("component", "storage"))
	return nil
}

// Ingest runs a single listing page.
func (a *Application) Ingest(ctx context.Context, page int) (domain.PageReport, error) {
	return a.pipeline.IngestListingPage(ctx, page)
}

// Crawl runs pages from..to inclusive.
func (a *Application) Crawl(ctx context.Context, from, to int) ([]domain.PageReport, error) {
	return a.crawler.Crawl(ctx, from, to)
}

// Export writes the entity JSON files into dir.
func (a *Application) Export(ctx context.Context, dir string) error {
	return a.exporter.Export(ctx, dir)
}

// Migrate applies the schema. It needs a database connection.
func (a *Application) Migrate() error {
	if a.db == nil {
		return errors.New("migrate needs a database, not a dry run")
	}
	return storage.Migrate(a.db.DB, a.logger.With("component", "migrate"))
}

// Serve starts the periodic crawl and the ops server, and blocks until ctx
// is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	sched := usecase.NewScheduler(
		scheduler.NewTickerScheduler(a.cfg.Scheduler.Interval),
		a.crawler,
		a.cfg.Scheduler.Pages,
		a.logger.With("component", "scheduler"),
	)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(context.Background()); err != nil {
			a.logger.Warn("stop scheduler", "error", err)
		}
	}()

	srv := server.New(a.cfg.Server.Addr, a.pipeline, a.store, a.logger.With("component", "server"))
	return srv.Run(ctx)
}

// Close releases the database connection.
func (a *Application) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
