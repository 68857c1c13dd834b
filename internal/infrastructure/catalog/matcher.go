package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/metrics"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

// Matcher resolves a review to a catalog album using one search session.
type Matcher struct {
	searcher ports.CatalogSearcher
	logger   *slog.Logger
}

var _ ports.CatalogMatcher = (*Matcher)(nil)

// NewMatcher wraps a connected search session.
func NewMatcher(searcher ports.CatalogSearcher, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{searcher: searcher, logger: logger}
}

// Query builds the search string. Only the first "EP" in the title is
// removed; the catalog rarely carries that suffix in album names.
func Query(primaryArtist, albumTitle string) string {
	return primaryArtist + " " + strings.Replace(albumTitle, "EP", "", 1)
}

// Search returns catalog candidates ordered by the catalog's own relevance.
func (m *Matcher) Search(ctx context.Context, primaryArtist, albumTitle string) ([]domain.CatalogCandidate, error) {
	return m.searcher.SearchAlbums(ctx, Query(primaryArtist, albumTitle))
}

// Match returns the URI of the first candidate, or "" when there is none.
func (m *Matcher) Match(ctx context.Context, primaryArtist, albumTitle string) (string, error) {
	candidates, err := m.Search(ctx, primaryArtist, albumTitle)
	if err != nil {
		metrics.CatalogLookupsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	if len(candidates) == 0 {
		metrics.CatalogLookupsTotal.WithLabelValues("miss").Inc()
		m.logger.Debug("no catalog match", "artist", primaryArtist, "album", albumTitle)
		return "", nil
	}

	metrics.CatalogLookupsTotal.WithLabelValues("hit").Inc()
	return candidates[0].URI, nil
}
