package scanner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
)

// Format tags the two listing page layouts the site has served.
type Format string

const (
	// FormatJSONEmbedded pages carry the review list in window.__PRELOADED_STATE__.
	FormatJSONEmbedded Format = "json_embedded"
	// FormatDOMCards pages render one HTML card per review.
	FormatDOMCards Format = "dom_cards"
)

// PreloadedStateMarker identifies the embedded-JSON layout.
const PreloadedStateMarker = "window.__PRELOADED_STATE__"

// DetectFormat inspects a listing page once and picks its layout.
func DetectFormat(content string) Format {
	if strings.Contains(content, PreloadedStateMarker) {
		return FormatJSONEmbedded
	}
	return FormatDOMCards
}

// ListingScanner extracts review summaries from one listing layout.
type ListingScanner interface {
	Format() Format
	ScanListing(content string) ([]domain.RawReviewSummary, error)
}

// DetailFields is what a detail layout locates on the page, before any
// interpretation. Text fields are raw; the parser normalizes them.
type DetailFields struct {
	AlbumTitle    string
	ArtistNames   []string
	AuthorName    string
	ScoreText     string
	IsBestNew     bool
	LabelText     string
	GenreText     string
	CoverImageURL string
	PublishedText string
	BlurbHTML     string
	BodyHTML      []string
}

// DetailLayout knows one detail page template.
type DetailLayout interface {
	Name() string
	Matches(doc *goquery.Document) bool
	Extract(doc *goquery.Document) (DetailFields, error)
}

// Registry keeps listing scanners by format and detail layouts in priority order.
type Registry struct {
	listings map[Format]ListingScanner
	details  []DetailLayout
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{listings: map[Format]ListingScanner{}}
}

// RegisterListing adds or replaces the scanner for its format.
func (r *Registry) RegisterListing(s ListingScanner) {
	if r.listings == nil {
		r.listings = map[Format]ListingScanner{}
	}
	r.listings[s.Format()] = s
}

// RegisterDetail appends a detail layout. Earlier registrations win ties.
func (r *Registry) RegisterDetail(l DetailLayout) {
	r.details = append(r.details, l)
}

// ResolveListing returns the scanner for f or an error if it is absent.
func (r *Registry) ResolveListing(f Format) (ListingScanner, error) {
	if s, ok := r.listings[f]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("listing format %s is not registered: %w", f, domain.ErrNoLayout)
}

// ResolveDetail returns the first layout that recognises doc. Throttled
// placeholder pages match nothing, so the first registered layout is the
// fallback; it will find an empty body and the caller retries.
func (r *Registry) ResolveDetail(doc *goquery.Document) (DetailLayout, error) {
	for _, l := range r.details {
		if l.Matches(doc) {
			return l, nil
		}
	}
	if len(r.details) == 0 {
		return nil, domain.ErrNoLayout
	}
	return r.details[0], nil
}
