package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/scanner"
)

// cardSelectors covers the card markups the listing has used, oldest first.
var cardSelectors = []string{
	"div.review",
	`[class*="SummaryItemWrapper"]`,
}

// CardListingScanner reads listing pages that render one HTML card per review.
type CardListingScanner struct{}

var _ scanner.ListingScanner = (*CardListingScanner)(nil)

// NewCardListingScanner builds the DOM-card scanner.
func NewCardListingScanner() *CardListingScanner {
	return &CardListingScanner{}
}

// Format identifies the layout inside the registry.
func (s *CardListingScanner) Format() scanner.Format {
	return scanner.FormatDOMCards
}

// ScanListing walks review cards in page order.
func (s *CardListingScanner) ScanListing(content string) ([]domain.RawReviewSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &domain.ParseError{Layout: string(s.Format()), Reason: "parse document: " + err.Error()}
	}

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			break
		}
	}
	if cards == nil || cards.Length() == 0 {
		return nil, &domain.ParseError{Layout: string(s.Format()), Reason: "no review cards found"}
	}

	summaries := make([]domain.RawReviewSummary, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		summary, ok := parseCard(card)
		if ok {
			summaries = append(summaries, summary)
		}
	})
	return summaries, nil
}

func parseCard(card *goquery.Selection) (domain.RawReviewSummary, bool) {
	link := card.Find(`a.review__link, a[class*="SummaryItemHedLink"], a[href*="/reviews/albums/"]`).First()
	href, ok := link.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return domain.RawReviewSummary{}, false
	}

	var artists []string
	card.Find(`.review__title-artist li, [class*="SummaryItemSubHed"]`).Each(func(_ int, sel *goquery.Selection) {
		artists = append(artists, splitNames(sel.Text())...)
	})

	hints := domain.SummaryHints{
		AlbumTitle:  cleanText(card.Find(`.review__title-album, [class*="SummaryItemHedBase"]`).First().Text()),
		ArtistNames: dedupeNames(artists),
		AuthorName:  cleanAuthor(card.Find(`ul.authors li, [class*="BylineName"]`).First().Text()),
		IsBestNew:   card.Find(`.review__bnm, [class*="BestNew"]`).Length() > 0,
	}
	if src, ok := card.Find("img").First().Attr("src"); ok {
		hints.CoverImageURL = strings.TrimSpace(src)
	}

	pub := card.Find("time").First()
	published, _ := pub.Attr("datetime")
	if published == "" {
		published = pub.Text()
	}

	return domain.RawReviewSummary{
		DetailURL: href,
		PubDate:   parsePublished(published),
		Hints:     hints,
	}, true
}
