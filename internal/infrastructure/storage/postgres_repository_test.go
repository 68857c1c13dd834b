package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
)

func newPostgresRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	if os.Getenv("PITCHFORKIFY_INTEGRATION") != "1" {
		t.Skip("set PITCHFORKIFY_INTEGRATION=1 to run Postgres integration tests")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:17.5",
		postgres.WithDatabase("pitchforkify_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db.DB, nil))
	return NewPostgresRepository(db, nil)
}

func TestPostgresRepositoryRoundTrip(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	in := sampleReview()
	in.PublishDate = time.Date(2000, 10, 2, 0, 0, 0, 0, time.UTC)
	key := domain.ReviewKey{AlbumTitle: in.AlbumTitle, AuthorName: in.AuthorName, Score: in.Score}
	created, err := repo.CreateReview(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := repo.FindReviewByKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, []string{"Capitol", "Parlophone"}, found.Labels)
	assert.Equal(t, []string{"Radiohead"}, found.Artists)
	assert.True(t, found.PublishDate.Equal(in.PublishDate))

	_, err = repo.CreateReview(ctx, in)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.False(t, conflict.IsJoinConflict())

	require.NoError(t, repo.UpdateReviewCatalogLink(ctx, created.ID, "spotify:album:other"))
	found, err = repo.FindReviewByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "spotify:album:other", found.CatalogURI)
}

func TestPostgresRepositoryConnectOrCreate(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	_, err := repo.CreateReview(ctx, sampleReview())
	require.NoError(t, err)

	second := sampleReview()
	second.AlbumTitle = "Amnesiac"
	_, err = repo.CreateReview(ctx, second)
	require.NoError(t, err)

	labels, err := repo.ListEntities(ctx, domain.RelationLabels)
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	genres, err := repo.ListEntities(ctx, domain.RelationGenres)
	require.NoError(t, err)
	require.Len(t, genres, 1)
	assert.Equal(t, "Rock", genres[0].Name)
}
