package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/metrics"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

// Reconciler applies one parsed review to storage: insert when new, backfill
// the catalog link when it was missing, skip otherwise.
type Reconciler struct {
	store  ports.ReviewStore
	logger *slog.Logger
}

// NewReconciler wires the review store.
func NewReconciler(store ports.ReviewStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// Reconcile writes review and reports what happened. Conflicts from
// concurrent writers are recovered here and never returned.
func (r *Reconciler) Reconcile(ctx context.Context, review domain.ParsedReview) (domain.Outcome, error) {
	review = normalizeReview(review)
	log := r.logger.With("album", review.AlbumTitle, "artists", strings.Join(review.ArtistNames, ", "))

	existing, err := r.store.FindReviewByKey(ctx, review.Key())
	if err != nil {
		return "", fmt.Errorf("find review: %w", err)
	}

	var outcome domain.Outcome
	if existing != nil {
		outcome, err = r.applyExisting(ctx, log, *existing, review)
	} else {
		outcome, err = r.create(ctx, log, review)
	}
	if err != nil {
		return "", err
	}
	metrics.RecordOutcome(outcome)
	return outcome, nil
}

func (r *Reconciler) create(ctx context.Context, log *slog.Logger, review domain.ParsedReview) (domain.Outcome, error) {
	payload := newReviewPayload(review)

	_, err := r.store.CreateReview(ctx, payload)
	if err == nil {
		log.Info("Added")
		return domain.OutcomeInserted, nil
	}

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		return "", fmt.Errorf("create review: %w", err)
	}

	if conflict.IsJoinConflict() {
		row := domain.JoinRow{Relation: conflict.Relation, ReviewID: conflict.ReviewID, EntityID: conflict.EntityID}
		if err := r.store.DeleteJoinRow(ctx, row); err != nil {
			return "", fmt.Errorf("remove conflicting %s link: %w", row.Relation, err)
		}
		log.Warn("removed conflicting link", "relation", string(row.Relation), "review_id", row.ReviewID, "entity_id", row.EntityID)

		_, err = r.store.CreateReview(ctx, payload)
		if err == nil {
			log.Info("Added")
			return domain.OutcomeInserted, nil
		}
		if !errors.As(err, &conflict) {
			return "", fmt.Errorf("create review after cleanup: %w", err)
		}
	}

	// Another writer got there first; take the existing row.
	existing, findErr := r.store.FindReviewByKey(ctx, review.Key())
	if findErr != nil {
		return "", fmt.Errorf("find review after conflict: %w", findErr)
	}
	if existing == nil {
		log.Info("Skipped", "reason", "conflict")
		return domain.OutcomeSkipped, nil
	}
	return r.applyExisting(ctx, log, *existing, review)
}

// applyExisting backfills only the catalog link; stored content is immutable.
func (r *Reconciler) applyExisting(ctx context.Context, log *slog.Logger, existing domain.Review, review domain.ParsedReview) (domain.Outcome, error) {
	if existing.HasCatalogLink() || review.CatalogURI == "" {
		log.Info("Skipped")
		return domain.OutcomeSkipped, nil
	}

	if err := r.store.UpdateReviewCatalogLink(ctx, existing.ID, review.CatalogURI); err != nil {
		return "", fmt.Errorf("update catalog link: %w", err)
	}
	log.Info("Updated", "catalog_uri", review.CatalogURI)
	return domain.OutcomeUpdated, nil
}

func newReviewPayload(review domain.ParsedReview) domain.NewReview {
	return domain.NewReview{
		AlbumTitle:     review.AlbumTitle,
		AuthorName:     review.AuthorName,
		Score:          review.Score,
		CatalogURI:     review.CatalogURI,
		CoverImageURL:  review.CoverImageURL,
		PublishDate:    review.PublishDate,
		IsBestNew:      review.IsBestNew,
		ReviewBodyHTML: review.ReviewBodyHTML,
		Labels:         review.LabelNames,
		Artists:        review.ArtistNames,
		Genres:         review.GenreNames,
	}
}

func normalizeReview(review domain.ParsedReview) domain.ParsedReview {
	review.AlbumTitle = strings.TrimSpace(review.AlbumTitle)
	review.AuthorName = strings.TrimSpace(review.AuthorName)
	review.CatalogURI = strings.TrimSpace(review.CatalogURI)
	review.ArtistNames = normalizeNames(review.ArtistNames)
	review.LabelNames = normalizeNames(review.LabelNames)
	review.GenreNames = normalizeNames(review.GenreNames)
	return review
}

func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
