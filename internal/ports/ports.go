package ports

import (
	"context"
	"time"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
)

// PageFetcher downloads review-site pages, waiting out throttles and transient failures.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageParser turns fetched pages into structured review data.
type PageParser interface {
	ParseListingPage(content string, page int) ([]domain.RawReviewSummary, error)
	ParseDetailPage(content string) (domain.ParsedReview, error)
}

// CatalogSearcher is an authenticated catalog search session.
type CatalogSearcher interface {
	SearchAlbums(ctx context.Context, query string) ([]domain.CatalogCandidate, error)
}

// CatalogMatcher picks the catalog album for a review, "" when none matches.
type CatalogMatcher interface {
	Match(ctx context.Context, primaryArtist, albumTitle string) (string, error)
}

// CatalogConnector performs the anonymous client-credentials grant and
// returns a matcher bound to the resulting token.
type CatalogConnector interface {
	Connect(ctx context.Context) (CatalogMatcher, error)
}

// ReviewStore is the persistence collaborator. FindReviewByKey returns nil
// when no review matches.
type ReviewStore interface {
	FindReviewByKey(ctx context.Context, key domain.ReviewKey) (*domain.Review, error)
	CreateReview(ctx context.Context, review domain.NewReview) (domain.Review, error)
	UpdateReviewCatalogLink(ctx context.Context, id int64, catalogURI string) error
	DeleteJoinRow(ctx context.Context, row domain.JoinRow) error
}

// EntityLister exposes the named entities for export.
type EntityLister interface {
	ListEntities(ctx context.Context, relation domain.Relation) ([]domain.NamedEntity, error)
}

// Notifier alerts an operator about failures that need a human.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Scheduler controls when recurring crawls execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
