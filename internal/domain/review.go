package domain

import (
	"strconv"
	"time"
)

// Score is a review rating on the 0.0-10.0 scale, kept at full precision.
type Score float64

// String renders the score the way the site displays it: one decimal below 10.
func (s Score) String() string {
	if s < 10 {
		return strconv.FormatFloat(float64(s), 'f', 1, 64)
	}
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// RawReviewSummary is one entry discovered on a listing page.
type RawReviewSummary struct {
	DetailURL string
	PubDate   time.Time
	Hints     SummaryHints
}

// SummaryHints carries fields some listing layouts expose up front. The detail
// page remains authoritative; hints only fill gaps.
type SummaryHints struct {
	AlbumTitle    string
	ArtistNames   []string
	AuthorName    string
	CoverImageURL string
	Score         *Score
	IsBestNew     bool
}

// ParsedReview is the full content of a single review page.
type ParsedReview struct {
	DetailURL      string
	AlbumTitle     string
	ArtistNames    []string
	LabelNames     []string
	GenreNames     []string
	CoverImageURL  string
	Score          Score
	IsBestNew      bool
	AuthorName     string
	PublishDate    time.Time
	ReviewBodyHTML string
	CatalogURI     string
}

// Key returns the de-duplication key for the review.
func (r ParsedReview) Key() ReviewKey {
	return ReviewKey{AlbumTitle: r.AlbumTitle, AuthorName: r.AuthorName, Score: r.Score}
}

// PrimaryArtist is the first credited artist, used for catalog lookups.
func (r ParsedReview) PrimaryArtist() string {
	if len(r.ArtistNames) == 0 {
		return ""
	}
	return r.ArtistNames[0]
}

// ApplyHints fills empty fields from listing-level hints.
func (r *ParsedReview) ApplyHints(h SummaryHints) {
	if r.AlbumTitle == "" {
		r.AlbumTitle = h.AlbumTitle
	}
	if len(r.ArtistNames) == 0 && len(h.ArtistNames) > 0 {
		r.ArtistNames = append([]string(nil), h.ArtistNames...)
	}
	if r.AuthorName == "" {
		r.AuthorName = h.AuthorName
	}
	if r.CoverImageURL == "" {
		r.CoverImageURL = h.CoverImageURL
	}
	if r.Score == 0 && h.Score != nil {
		r.Score = *h.Score
	}
	if !r.IsBestNew && h.IsBestNew {
		r.IsBestNew = true
	}
}

// CatalogCandidate is a single album result returned by the catalog search.
type CatalogCandidate struct {
	URI         string
	DisplayName string
	ArtistNames []string
}

// ReviewKey identifies a persisted review. The site exposes no stable id at
// scrape time, so (album, author, score) stands in for one.
type ReviewKey struct {
	AlbumTitle string
	AuthorName string
	Score      Score
}

// Review is the persisted entity.
type Review struct {
	ID             int64
	AlbumTitle     string
	AuthorName     string
	Score          Score
	CatalogURI     string
	CoverImageURL  string
	PublishDate    time.Time
	IsBestNew      bool
	ReviewBodyHTML string
	Labels         []string
	Artists        []string
	Genres         []string
	CreatedAt      time.Time
}

// HasCatalogLink reports whether the review is already matched.
func (r Review) HasCatalogLink() bool {
	return r.CatalogURI != ""
}

// NewReview is the create payload. Names are connected by name, creating the
// label, artist or genre when it does not exist yet.
type NewReview struct {
	AlbumTitle     string
	AuthorName     string
	Score          Score
	CatalogURI     string
	CoverImageURL  string
	PublishDate    time.Time
	IsBestNew      bool
	ReviewBodyHTML string
	Labels         []string
	Artists        []string
	Genres         []string
}

// NamedEntity is a label, artist or genre row.
type NamedEntity struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Relation names a review's many-to-many association.
type Relation string

const (
	RelationLabels  Relation = "labels"
	RelationArtists Relation = "artists"
	RelationGenres  Relation = "genres"
)

// Relations lists every association in a stable order.
var Relations = []Relation{RelationLabels, RelationArtists, RelationGenres}

// JoinRow is one link between a review and a named entity.
type JoinRow struct {
	Relation Relation
	ReviewID int64
	EntityID int64
}
