package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
)

func sampleReview() domain.NewReview {
	return domain.NewReview{
		AlbumTitle:     "Kid A",
		AuthorName:     "Brent DiCrescenzo",
		Score:          10,
		CatalogURI:     "spotify:album:kid-a",
		ReviewBodyHTML: "<p>body</p>",
		Labels:         []string{"Parlophone", "Capitol"},
		Artists:        []string{"Radiohead"},
		Genres:         []string{"Rock"},
	}
}

func TestMemoryRepositoryCreateAndFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	created, err := repo.CreateReview(ctx, sampleReview())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	found, err := repo.FindReviewByKey(ctx, domain.ReviewKey{AlbumTitle: "Kid A", AuthorName: "Brent DiCrescenzo", Score: 10})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "spotify:album:kid-a", found.CatalogURI)

	missing, err := repo.FindReviewByKey(ctx, domain.ReviewKey{AlbumTitle: "Kid A", AuthorName: "Brent DiCrescenzo", Score: 9.9})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryRepositoryConnectsExistingNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.CreateReview(ctx, sampleReview())
	require.NoError(t, err)

	second := sampleReview()
	second.AlbumTitle = "Amnesiac"
	second.Labels = []string{"Parlophone"}
	_, err = repo.CreateReview(ctx, second)
	require.NoError(t, err)

	labels, err := repo.ListEntities(ctx, domain.RelationLabels)
	require.NoError(t, err)
	assert.Equal(t, []domain.NamedEntity{{ID: 1, Name: "Parlophone"}, {ID: 2, Name: "Capitol"}}, labels)

	artists, err := repo.ListEntities(ctx, domain.RelationArtists)
	require.NoError(t, err)
	assert.Len(t, artists, 1)
}

func TestMemoryRepositoryDuplicateKeyConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.CreateReview(ctx, sampleReview())
	require.NoError(t, err)

	_, err = repo.CreateReview(ctx, sampleReview())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.False(t, conflict.IsJoinConflict())
	assert.Len(t, repo.Reviews(), 1)
}

func TestMemoryRepositoryJoinConflictLeavesNoTrace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	entityID := repo.SeedJoinRow(domain.RelationArtists, 1, "Radiohead")

	_, err := repo.CreateReview(ctx, sampleReview())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.True(t, conflict.IsJoinConflict())
	assert.Equal(t, domain.RelationArtists, conflict.Relation)
	assert.Equal(t, int64(1), conflict.ReviewID)
	assert.Equal(t, entityID, conflict.EntityID)
	assert.Empty(t, repo.Reviews())

	labels, err := repo.ListEntities(ctx, domain.RelationLabels)
	require.NoError(t, err)
	assert.Empty(t, labels)

	require.NoError(t, repo.DeleteJoinRow(ctx, domain.JoinRow{Relation: conflict.Relation, ReviewID: conflict.ReviewID, EntityID: conflict.EntityID}))
	created, err := repo.CreateReview(ctx, sampleReview())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func TestMemoryRepositoryUpdateCatalogLink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	in := sampleReview()
	in.CatalogURI = ""
	created, err := repo.CreateReview(ctx, in)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateReviewCatalogLink(ctx, created.ID, "spotify:album:late"))
	stored := repo.Reviews()[0]
	assert.Equal(t, "spotify:album:late", stored.CatalogURI)
	assert.Equal(t, in.ReviewBodyHTML, stored.ReviewBodyHTML)

	require.Error(t, repo.UpdateReviewCatalogLink(ctx, 99, "spotify:album:none"))
}
