package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type relationTable struct {
	entity string
	join   string
	fk     string
}

var relationTables = map[domain.Relation]relationTable{
	domain.RelationLabels:  {entity: "labels", join: "review_labels", fk: "label_id"},
	domain.RelationArtists: {entity: "artists", join: "review_artists", fk: "artist_id"},
	domain.RelationGenres:  {entity: "genres", join: "review_genres", fk: "genre_id"},
}

func tableFor(rel domain.Relation) (relationTable, error) {
	t, ok := relationTables[rel]
	if !ok {
		return relationTable{}, fmt.Errorf("unknown relation %q", rel)
	}
	return t, nil
}

var reviewColumns = []string{
	"id", "album_title", "author", "score", "catalog_uri", "cover",
	"publish_date", "is_best_new", "review_html", "created_at",
}

type reviewRow struct {
	ID          int64          `db:"id"`
	AlbumTitle  string         `db:"album_title"`
	Author      string         `db:"author"`
	Score       float64        `db:"score"`
	CatalogURI  sql.NullString `db:"catalog_uri"`
	Cover       string         `db:"cover"`
	PublishDate sql.NullTime   `db:"publish_date"`
	IsBestNew   bool           `db:"is_best_new"`
	ReviewHTML  string         `db:"review_html"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (row reviewRow) toDomain() domain.Review {
	return domain.Review{
		ID:             row.ID,
		AlbumTitle:     row.AlbumTitle,
		AuthorName:     row.Author,
		Score:          domain.Score(row.Score),
		CatalogURI:     row.CatalogURI.String,
		CoverImageURL:  row.Cover,
		PublishDate:    row.PublishDate.Time,
		IsBestNew:      row.IsBestNew,
		ReviewBodyHTML: row.ReviewHTML,
		CreatedAt:      row.CreatedAt,
	}
}

// PostgresRepository persists reviews and their labels, artists and genres.
type PostgresRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var (
	_ ports.ReviewStore  = (*PostgresRepository)(nil)
	_ ports.EntityLister = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sqlx.DB implementation.
func NewPostgresRepository(db *sqlx.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// Ping checks the connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FindReviewByKey returns the review stored under key, or nil.
func (r *PostgresRepository) FindReviewByKey(ctx context.Context, key domain.ReviewKey) (*domain.Review, error) {
	query, args, err := psql.Select(reviewColumns...).
		From("reviews").
		Where(sq.Eq{
			"album_title": key.AlbumTitle,
			"author":      key.AuthorName,
			"score":       float64(key.Score),
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find review: %w", err)
	}

	var row reviewRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find review: %w", err)
	}

	review := row.toDomain()
	for _, rel := range domain.Relations {
		names, err := r.relatedNames(ctx, rel, review.ID)
		if err != nil {
			return nil, err
		}
		switch rel {
		case domain.RelationLabels:
			review.Labels = names
		case domain.RelationArtists:
			review.Artists = names
		case domain.RelationGenres:
			review.Genres = names
		}
	}
	return &review, nil
}

func (r *PostgresRepository) relatedNames(ctx context.Context, rel domain.Relation, reviewID int64) ([]string, error) {
	t, err := tableFor(rel)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select("e.name").
		From(t.entity + " e").
		Join(t.join + " j ON j." + t.fk + " = e.id").
		Where(sq.Eq{"j.review_id": reviewID}).
		OrderBy("e.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", rel, err)
	}

	var names []string
	if err := r.db.SelectContext(ctx, &names, query, args...); err != nil {
		return nil, fmt.Errorf("load %s: %w", rel, err)
	}
	return names, nil
}

// CreateReview inserts the review and connects its names in one transaction.
// Unique violations come back as *domain.ConflictError.
func (r *PostgresRepository) CreateReview(ctx context.Context, in domain.NewReview) (domain.Review, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Review{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var publish sql.NullTime
	if !in.PublishDate.IsZero() {
		publish = sql.NullTime{Time: in.PublishDate, Valid: true}
	}
	var catalog sql.NullString
	if in.CatalogURI != "" {
		catalog = sql.NullString{String: in.CatalogURI, Valid: true}
	}

	query, args, err := psql.Insert("reviews").
		Columns("album_title", "author", "score", "catalog_uri", "cover", "publish_date", "is_best_new", "review_html").
		Values(in.AlbumTitle, in.AuthorName, float64(in.Score), catalog, in.CoverImageURL, publish, in.IsBestNew, in.ReviewBodyHTML).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return domain.Review{}, fmt.Errorf("build insert review: %w", err)
	}

	review := domain.Review{
		AlbumTitle:     in.AlbumTitle,
		AuthorName:     in.AuthorName,
		Score:          in.Score,
		CatalogURI:     in.CatalogURI,
		CoverImageURL:  in.CoverImageURL,
		PublishDate:    in.PublishDate,
		IsBestNew:      in.IsBestNew,
		ReviewBodyHTML: in.ReviewBodyHTML,
		Labels:         in.Labels,
		Artists:        in.Artists,
		Genres:         in.Genres,
	}
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&review.ID, &review.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Review{}, &domain.ConflictError{Err: err}
		}
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}

	links := map[domain.Relation][]string{
		domain.RelationLabels:  in.Labels,
		domain.RelationArtists: in.Artists,
		domain.RelationGenres:  in.Genres,
	}
	for _, rel := range domain.Relations {
		for _, name := range links[rel] {
			entityID, err := connectOrCreate(ctx, tx, rel, name)
			if err != nil {
				return domain.Review{}, err
			}
			if err := insertJoinRow(ctx, tx, domain.JoinRow{Relation: rel, ReviewID: review.ID, EntityID: entityID}); err != nil {
				return domain.Review{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Review{}, fmt.Errorf("commit review: %w", err)
	}
	return review, nil
}

// connectOrCreate returns the id of the named entity, creating it if needed.
// The no-op update makes RETURNING yield the existing row on conflict.
func connectOrCreate(ctx context.Context, tx *sqlx.Tx, rel domain.Relation, name string) (int64, error) {
	t, err := tableFor(rel)
	if err != nil {
		return 0, err
	}
	query, args, err := psql.Insert(t.entity).
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build upsert %s: %w", rel, err)
	}

	var id int64
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert %s %q: %w", rel, name, err)
	}
	return id, nil
}

func insertJoinRow(ctx context.Context, tx *sqlx.Tx, row domain.JoinRow) error {
	t, err := tableFor(row.Relation)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert(t.join).
		Columns("review_id", t.fk).
		Values(row.ReviewID, row.EntityID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build link %s: %w", row.Relation, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Relation: row.Relation, ReviewID: row.ReviewID, EntityID: row.EntityID, Err: err}
		}
		return fmt.Errorf("link %s: %w", row.Relation, err)
	}
	return nil
}

// UpdateReviewCatalogLink sets the catalog URI and nothing else.
func (r *PostgresRepository) UpdateReviewCatalogLink(ctx context.Context, id int64, catalogURI string) error {
	query, args, err := psql.Update("reviews").
		Set("catalog_uri", catalogURI).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update review: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update review %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update review %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// DeleteJoinRow removes one review link.
func (r *PostgresRepository) DeleteJoinRow(ctx context.Context, row domain.JoinRow) error {
	t, err := tableFor(row.Relation)
	if err != nil {
		return err
	}
	query, args, err := psql.Delete(t.join).
		Where(sq.Eq{"review_id": row.ReviewID, t.fk: row.EntityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete link: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s link: %w", row.Relation, err)
	}
	return nil
}

// ListEntities returns every row of the relation's entity table by id.
func (r *PostgresRepository) ListEntities(ctx context.Context, rel domain.Relation) ([]domain.NamedEntity, error) {
	t, err := tableFor(rel)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "name").From(t.entity).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s: %w", rel, err)
	}

	var entities []domain.NamedEntity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", rel, err)
	}
	return entities, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
