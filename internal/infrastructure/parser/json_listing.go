package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/titanous/json5"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/scanner"
)

// DefaultItemsExpression locates the review list inside the preloaded state.
const DefaultItemsExpression = "transformed.bundle.containers[0].items"

// JSONListingScanner reads listing pages that embed their data as a
// JavaScript object assigned to window.__PRELOADED_STATE__.
type JSONListingScanner struct {
	items *jmespath.JMESPath
}

var _ scanner.ListingScanner = (*JSONListingScanner)(nil)

// NewJSONListingScanner compiles the JMESPath expression that selects review items.
func NewJSONListingScanner(itemsExpression string) (*JSONListingScanner, error) {
	if strings.TrimSpace(itemsExpression) == "" {
		itemsExpression = DefaultItemsExpression
	}
	compiled, err := jmespath.Compile(itemsExpression)
	if err != nil {
		return nil, fmt.Errorf("compile items expression %q: %w", itemsExpression, err)
	}
	return &JSONListingScanner{items: compiled}, nil
}

// Format identifies the layout inside the registry.
func (s *JSONListingScanner) Format() scanner.Format {
	return scanner.FormatJSONEmbedded
}

type preloadedItem struct {
	URL     string `json:"url"`
	PubDate string `json:"pubDate"`
	Image   struct {
		AltText string `json:"altText"`
		Sources struct {
			Lg struct {
				URL string `json:"url"`
			} `json:"lg"`
		} `json:"sources"`
	} `json:"image"`
	SubHed struct {
		Name string `json:"name"`
	} `json:"subHed"`
	RatingValue struct {
		Score          *float64 `json:"score"`
		IsBestNewMusic bool     `json:"isBestNewMusic"`
	} `json:"ratingValue"`
	Contributors struct {
		Author struct {
			Items []struct {
				Name string `json:"name"`
			} `json:"items"`
		} `json:"author"`
	} `json:"contributors"`
}

// ScanListing extracts the embedded state and maps each review item.
func (s *JSONListingScanner) ScanListing(content string) ([]domain.RawReviewSummary, error) {
	literal, err := extractPreloadedState(content)
	if err != nil {
		return nil, err
	}

	var state any
	if err := json5.Unmarshal([]byte(literal), &state); err != nil {
		return nil, &domain.ParseError{Layout: string(s.Format()), Reason: "decode preloaded state: " + err.Error()}
	}

	found, err := s.items.Search(state)
	if err != nil {
		return nil, &domain.ParseError{Layout: string(s.Format()), Reason: "search preloaded state: " + err.Error()}
	}
	rawItems, ok := found.([]any)
	if !ok {
		return nil, &domain.ParseError{Layout: string(s.Format()), Reason: "review items not found in preloaded state"}
	}

	// Round-trip through encoding/json to get typed items out of the generic tree.
	encoded, err := json.Marshal(rawItems)
	if err != nil {
		return nil, fmt.Errorf("re-encode review items: %w", err)
	}
	var items []preloadedItem
	if err := json.Unmarshal(encoded, &items); err != nil {
		return nil, &domain.ParseError{Layout: string(s.Format()), Reason: "unexpected review item shape: " + err.Error()}
	}

	summaries := make([]domain.RawReviewSummary, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		summaries = append(summaries, item.toSummary())
	}
	return summaries, nil
}

func (item preloadedItem) toSummary() domain.RawReviewSummary {
	hints := domain.SummaryHints{
		AlbumTitle:    cleanText(item.Image.AltText),
		ArtistNames:   splitNames(item.SubHed.Name),
		CoverImageURL: strings.TrimSpace(item.Image.Sources.Lg.URL),
		IsBestNew:     item.RatingValue.IsBestNewMusic,
	}
	if len(item.Contributors.Author.Items) > 0 {
		hints.AuthorName = cleanAuthor(item.Contributors.Author.Items[0].Name)
	}
	if item.RatingValue.Score != nil {
		score := domain.Score(*item.RatingValue.Score)
		hints.Score = &score
	}

	return domain.RawReviewSummary{
		DetailURL: strings.TrimSpace(item.URL),
		PubDate:   parsePublished(item.PubDate),
		Hints:     hints,
	}
}

func extractPreloadedState(content string) (string, error) {
	idx := strings.Index(content, scanner.PreloadedStateMarker)
	if idx < 0 {
		return "", &domain.ParseError{Layout: string(scanner.FormatJSONEmbedded), Reason: "preloaded state marker not found"}
	}
	rest := content[idx+len(scanner.PreloadedStateMarker):]
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return "", &domain.ParseError{Layout: string(scanner.FormatJSONEmbedded), Reason: "preloaded state assignment not found"}
	}
	rest = rest[eq+1:]
	if end := strings.Index(rest, "</script>"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, ";")
	return strings.TrimSpace(rest), nil
}
