package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/infrastructure/storage"
)

func parsedReview() domain.ParsedReview {
	return domain.ParsedReview{
		AlbumTitle:     "Kid A",
		AuthorName:     "Brent DiCrescenzo",
		Score:          10,
		ArtistNames:    []string{" Radiohead ", "Radiohead", ""},
		LabelNames:     []string{"Parlophone", "Capitol"},
		GenreNames:     []string{"Rock"},
		ReviewBodyHTML: "<p>body</p>",
	}
}

func TestReconcileInsertsNewReview(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	r := NewReconciler(store, nil)

	outcome, err := r.Reconcile(context.Background(), parsedReview())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInserted, outcome)

	reviews := store.Reviews()
	require.Len(t, reviews, 1)
	assert.Equal(t, []string{"Radiohead"}, reviews[0].Artists)
}

func TestReconcileBackfillsOnlyCatalogLink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryRepository()
	r := NewReconciler(store, nil)

	_, err := r.Reconcile(ctx, parsedReview())
	require.NoError(t, err)
	before := store.Reviews()[0]

	linked := parsedReview()
	linked.CatalogURI = "spotify:album:kid-a"
	linked.ReviewBodyHTML = "<p>edited upstream</p>"
	outcome, err := r.Reconcile(ctx, linked)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, outcome)

	after := store.Reviews()[0]
	before.CatalogURI = "spotify:album:kid-a"
	assert.Equal(t, before, after)
}

func TestReconcileSkips(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryRepository()
	r := NewReconciler(store, nil)

	linked := parsedReview()
	linked.CatalogURI = "spotify:album:kid-a"
	_, err := r.Reconcile(ctx, linked)
	require.NoError(t, err)

	outcome, err := r.Reconcile(ctx, parsedReview())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, outcome)

	other := parsedReview()
	other.CatalogURI = "spotify:album:other"
	outcome, err = r.Reconcile(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, outcome)
	assert.Equal(t, "spotify:album:kid-a", store.Reviews()[0].CatalogURI)
}

func TestReconcileRemovesConflictingLink(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	store.SeedJoinRow(domain.RelationLabels, 1, "Capitol")
	r := NewReconciler(store, nil)

	outcome, err := r.Reconcile(context.Background(), parsedReview())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInserted, outcome)
	assert.Len(t, store.Reviews(), 1)
}

// racingStore hides the first lookup, as if another worker inserted the
// review between find and create.
type racingStore struct {
	*storage.MemoryRepository
	hidden bool
}

func (s *racingStore) FindReviewByKey(ctx context.Context, key domain.ReviewKey) (*domain.Review, error) {
	if !s.hidden {
		s.hidden = true
		return nil, nil
	}
	return s.MemoryRepository.FindReviewByKey(ctx, key)
}

func TestReconcileRecoversFromKeyRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := storage.NewMemoryRepository()
	_, err := NewReconciler(mem, nil).Reconcile(ctx, parsedReview())
	require.NoError(t, err)

	linked := parsedReview()
	linked.CatalogURI = "spotify:album:kid-a"
	outcome, err := NewReconciler(&racingStore{MemoryRepository: mem}, nil).Reconcile(ctx, linked)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, outcome)
	assert.Len(t, mem.Reviews(), 1)
}

// stuckStore always reports a join conflict on create.
type stuckStore struct {
	*storage.MemoryRepository
	deletes int
}

func (s *stuckStore) CreateReview(context.Context, domain.NewReview) (domain.Review, error) {
	return domain.Review{}, &domain.ConflictError{Relation: domain.RelationArtists, ReviewID: 7, EntityID: 3, Err: fmt.Errorf("duplicate link")}
}

func (s *stuckStore) DeleteJoinRow(ctx context.Context, row domain.JoinRow) error {
	s.deletes++
	return s.MemoryRepository.DeleteJoinRow(ctx, row)
}

func TestReconcileTreatsRepeatedConflictAsLinked(t *testing.T) {
	t.Parallel()

	store := &stuckStore{MemoryRepository: storage.NewMemoryRepository()}
	outcome, err := NewReconciler(store, nil).Reconcile(context.Background(), parsedReview())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, outcome)
	assert.Equal(t, 1, store.deletes)
}

type failingStore struct {
	*storage.MemoryRepository
}

func (failingStore) FindReviewByKey(context.Context, domain.ReviewKey) (*domain.Review, error) {
	return nil, errStub
}

func TestReconcileSurfacesStoreErrors(t *testing.T) {
	t.Parallel()

	_, err := NewReconciler(failingStore{storage.NewMemoryRepository()}, nil).Reconcile(context.Background(), parsedReview())
	require.ErrorIs(t, err, errStub)
}
