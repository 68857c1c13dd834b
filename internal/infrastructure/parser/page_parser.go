package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
	"github.com/hipstersmoothie/pitchforkify/internal/scanner"
)

// DefaultDenylist holds review URLs whose pages break parsing.
var DefaultDenylist = []string{
	"/reviews/albums/1365-no-more-shall-we-part/",
	"/reviews/albums/5911-the-complete-studio-recordings/",
}

// Options configure URL handling for parsed pages.
type Options struct {
	BaseURL  string
	Denylist []string
}

// PageParser implements ports.PageParser by dispatching to registered layouts.
type PageParser struct {
	registry *scanner.Registry
	baseURL  *url.URL
	denylist map[string]struct{}
	logger   *slog.Logger
}

var _ ports.PageParser = (*PageParser)(nil)

// NewPageParser wires a layout registry with URL options.
func NewPageParser(reg *scanner.Registry, opts Options, log *slog.Logger) (*PageParser, error) {
	if reg == nil {
		return nil, errors.New("layout registry is not configured")
	}
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}

	deny := make(map[string]struct{}, len(opts.Denylist))
	for _, u := range opts.Denylist {
		deny[normalizePath(u)] = struct{}{}
	}

	return &PageParser{registry: reg, baseURL: base, denylist: deny, logger: log}, nil
}

// NewDefaultRegistry registers every known layout. The split-screen detail
// layout goes first: it is the current template and the throttle fallback.
func NewDefaultRegistry(itemsExpression string) (*scanner.Registry, error) {
	jsonScanner, err := NewJSONListingScanner(itemsExpression)
	if err != nil {
		return nil, err
	}

	reg := scanner.NewRegistry()
	reg.RegisterListing(jsonScanner)
	reg.RegisterListing(NewCardListingScanner())
	reg.RegisterDetail(SplitScreenLayout{})
	reg.RegisterDetail(TombstoneLayout{})
	return reg, nil
}

// ParseListingPage returns the page's review summaries in page order
// (newest first), minus denylisted and duplicate URLs.
func (p *PageParser) ParseListingPage(content string, page int) ([]domain.RawReviewSummary, error) {
	format := scanner.DetectFormat(content)
	p.debug("parse listing page", "page", page, "format", string(format))

	strategy, err := p.registry.ResolveListing(format)
	if err != nil {
		return nil, fmt.Errorf("listing page %d: %w", page, err)
	}

	raw, err := strategy.ScanListing(content)
	if err != nil {
		return nil, fmt.Errorf("listing page %d: %w", page, err)
	}

	summaries := make([]domain.RawReviewSummary, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	excluded := 0
	for _, summary := range raw {
		path := normalizePath(summary.DetailURL)
		if _, denied := p.denylist[path]; denied {
			excluded++
			continue
		}
		resolved, err := p.resolve(summary.DetailURL)
		if err != nil {
			p.debug("skip unresolvable review url", "page", page, "url", summary.DetailURL, "error", err)
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		summary.DetailURL = resolved
		summaries = append(summaries, summary)
	}

	p.debug("listing page parsed", "page", page, "format", string(format), "found", len(raw), "excluded", excluded, "kept", len(summaries))
	return summaries, nil
}

// ParseDetailPage extracts one review. The catalog link is left empty. An
// empty body is reported as domain.ErrThrottled alongside whatever was found.
func (p *PageParser) ParseDetailPage(content string) (domain.ParsedReview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return domain.ParsedReview{}, fmt.Errorf("parse detail document: %w", err)
	}

	layout, err := p.registry.ResolveDetail(doc)
	if err != nil {
		return domain.ParsedReview{}, err
	}

	fields, err := layout.Extract(doc)
	if err != nil {
		return domain.ParsedReview{}, fmt.Errorf("%s layout: %w", layout.Name(), err)
	}

	return normalizeDetail(fields, layout.Name())
}

func normalizeDetail(fields scanner.DetailFields, layout string) (domain.ParsedReview, error) {
	review := domain.ParsedReview{
		AlbumTitle:     fields.AlbumTitle,
		ArtistNames:    fields.ArtistNames,
		LabelNames:     splitNames(fields.LabelText),
		GenreNames:     splitNames(fields.GenreText),
		CoverImageURL:  fields.CoverImageURL,
		IsBestNew:      fields.IsBestNew,
		AuthorName:     fields.AuthorName,
		PublishDate:    parsePublished(fields.PublishedText),
		ReviewBodyHTML: joinBody(fields.BlurbHTML, fields.BodyHTML),
	}

	if review.ReviewBodyHTML == "" {
		return review, domain.ErrThrottled
	}

	score, ok := parseScore(fields.ScoreText)
	if !ok {
		return review, &domain.ParseError{Layout: layout, Reason: fmt.Sprintf("invalid score %q", fields.ScoreText)}
	}
	review.Score = domain.Score(score)

	return review, nil
}

// joinBody concatenates the optional blurb and the body blocks, keeping markup.
func joinBody(blurb string, blocks []string) string {
	parts := make([]string, 0, len(blocks)+1)
	if strings.TrimSpace(blurb) != "" {
		parts = append(parts, `<div class="review-blurb">`+blurb+`</div>`)
	}
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			parts = append(parts, block)
		}
	}
	return strings.Join(parts, "\n")
}

func (p *PageParser) resolve(ref string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return p.baseURL.ResolveReference(parsed).String(), nil
}

func normalizePath(ref string) string {
	ref = strings.TrimSpace(ref)
	if parsed, err := url.Parse(ref); err == nil && parsed.Path != "" {
		ref = parsed.Path
	}
	if !strings.HasSuffix(ref, "/") {
		ref += "/"
	}
	return ref
}

func (p *PageParser) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
