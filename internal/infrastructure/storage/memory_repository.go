package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

var errDuplicateKey = errors.New("duplicate review key")

type joinKey struct {
	reviewID int64
	entityID int64
}

// MemoryRepository is an in-process review store used for dry runs and tests.
// It enforces the same unique constraints as the Postgres schema.
type MemoryRepository struct {
	mu sync.RWMutex

	reviews      map[int64]domain.Review
	keys         map[domain.ReviewKey]int64
	entities     map[domain.Relation]map[string]int64
	entityNames  map[domain.Relation]map[int64]string
	joins        map[domain.Relation]map[joinKey]struct{}
	lastReviewID int64
	lastEntityID map[domain.Relation]int64

	now func() time.Time
}

var (
	_ ports.ReviewStore  = (*MemoryRepository)(nil)
	_ ports.EntityLister = (*MemoryRepository)(nil)
)

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{
		reviews:      make(map[int64]domain.Review),
		keys:         make(map[domain.ReviewKey]int64),
		entities:     make(map[domain.Relation]map[string]int64),
		entityNames:  make(map[domain.Relation]map[int64]string),
		joins:        make(map[domain.Relation]map[joinKey]struct{}),
		lastEntityID: make(map[domain.Relation]int64),
		now:          time.Now,
	}
	for _, rel := range domain.Relations {
		r.entities[rel] = make(map[string]int64)
		r.entityNames[rel] = make(map[int64]string)
		r.joins[rel] = make(map[joinKey]struct{})
	}
	return r
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryRepository) FindReviewByKey(_ context.Context, key domain.ReviewKey) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.keys[key]
	if !ok {
		return nil, nil
	}
	review := r.reviews[id]
	return &review, nil
}

// CreateReview behaves like a transaction: nothing is stored when any write
// would violate a constraint.
func (r *MemoryRepository) CreateReview(_ context.Context, in domain.NewReview) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.ReviewKey{AlbumTitle: in.AlbumTitle, AuthorName: in.AuthorName, Score: in.Score}
	if _, exists := r.keys[key]; exists {
		return domain.Review{}, &domain.ConflictError{Err: errDuplicateKey}
	}

	reviewID := r.lastReviewID + 1
	links := map[domain.Relation][]string{
		domain.RelationLabels:  in.Labels,
		domain.RelationArtists: in.Artists,
		domain.RelationGenres:  in.Genres,
	}

	// Resolve ids first so a conflict leaves no trace.
	pendingEntities := make(map[domain.Relation]map[string]int64)
	var rows []domain.JoinRow
	for _, rel := range domain.Relations {
		pendingEntities[rel] = make(map[string]int64)
		next := r.lastEntityID[rel]
		seen := make(map[string]struct{}, len(links[rel]))
		for _, name := range links[rel] {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			id, ok := r.entities[rel][name]
			if !ok {
				if id, ok = pendingEntities[rel][name]; !ok {
					next++
					id = next
					pendingEntities[rel][name] = id
				}
			}
			row := domain.JoinRow{Relation: rel, ReviewID: reviewID, EntityID: id}
			if _, taken := r.joins[rel][joinKey{reviewID, id}]; taken {
				return domain.Review{}, &domain.ConflictError{
					Relation: rel,
					ReviewID: reviewID,
					EntityID: id,
					Err:      fmt.Errorf("%s link already exists", rel),
				}
			}
			rows = append(rows, row)
		}
	}

	for rel, created := range pendingEntities {
		for name, id := range created {
			r.entities[rel][name] = id
			r.entityNames[rel][id] = name
			if id > r.lastEntityID[rel] {
				r.lastEntityID[rel] = id
			}
		}
	}
	for _, row := range rows {
		r.joins[row.Relation][joinKey{row.ReviewID, row.EntityID}] = struct{}{}
	}

	review := domain.Review{
		ID:             reviewID,
		AlbumTitle:     in.AlbumTitle,
		AuthorName:     in.AuthorName,
		Score:          in.Score,
		CatalogURI:     in.CatalogURI,
		CoverImageURL:  in.CoverImageURL,
		PublishDate:    in.PublishDate,
		IsBestNew:      in.IsBestNew,
		ReviewBodyHTML: in.ReviewBodyHTML,
		Labels:         append([]string(nil), in.Labels...),
		Artists:        append([]string(nil), in.Artists...),
		Genres:         append([]string(nil), in.Genres...),
		CreatedAt:      r.now().UTC(),
	}
	r.lastReviewID = reviewID
	r.reviews[reviewID] = review
	r.keys[key] = reviewID
	return review, nil
}

func (r *MemoryRepository) UpdateReviewCatalogLink(_ context.Context, id int64, catalogURI string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return fmt.Errorf("update review %d: not found", id)
	}
	review.CatalogURI = catalogURI
	r.reviews[id] = review
	return nil
}

func (r *MemoryRepository) DeleteJoinRow(_ context.Context, row domain.JoinRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, ok := r.joins[row.Relation]
	if !ok {
		return fmt.Errorf("unknown relation %q", row.Relation)
	}
	delete(links, joinKey{row.ReviewID, row.EntityID})
	return nil
}

func (r *MemoryRepository) ListEntities(_ context.Context, rel domain.Relation) ([]domain.NamedEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names, ok := r.entityNames[rel]
	if !ok {
		return nil, fmt.Errorf("unknown relation %q", rel)
	}
	out := make([]domain.NamedEntity, 0, len(names))
	for id, name := range names {
		out = append(out, domain.NamedEntity{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Reviews returns every stored review in insertion order.
func (r *MemoryRepository) Reviews() []domain.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Review, 0, len(r.reviews))
	for _, review := range r.reviews {
		out = append(out, review)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SeedJoinRow stores a link for a review id that may not exist yet, the
// leftover a concurrent writer can leave behind. It returns the entity id.
func (r *MemoryRepository) SeedJoinRow(rel domain.Relation, reviewID int64, name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.entities[rel][name]
	if !ok {
		r.lastEntityID[rel]++
		id = r.lastEntityID[rel]
		r.entities[rel][name] = id
		r.entityNames[rel][id] = name
	}
	r.joins[rel][joinKey{reviewID, id}] = struct{}{}
	return id
}
