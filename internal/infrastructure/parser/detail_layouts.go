package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hipstersmoothie/pitchforkify/internal/scanner"
)

// SplitScreenLayout is the current article template: a split-screen header
// with the cover on one side, an info slice listing "Label:" and "Genre:",
// and the body in BodyWrapper blocks.
type SplitScreenLayout struct{}

var _ scanner.DetailLayout = SplitScreenLayout{}

func (SplitScreenLayout) Name() string { return "splitscreen" }

func (SplitScreenLayout) Matches(doc *goquery.Document) bool {
	return doc.Find(`[data-testid="BodyWrapper"], [class*="SplitScreenContentHeader"]`).Length() > 0
}

func (SplitScreenLayout) Extract(doc *goquery.Document) (scanner.DetailFields, error) {
	var fields scanner.DetailFields

	fields.AlbumTitle = cleanText(firstText(doc, `[data-testid="ContentHeaderHed"]`, `h1`))
	doc.Find(`[class*="SplitScreenContentHeaderArtist"]`).Each(func(_ int, sel *goquery.Selection) {
		fields.ArtistNames = append(fields.ArtistNames, splitNames(sel.Text())...)
	})
	fields.ArtistNames = dedupeNames(fields.ArtistNames)
	fields.AuthorName = cleanAuthor(firstText(doc, `[class*="BylineName"]`))
	fields.ScoreText = firstText(doc, `[class*="Rating-"]`, `[class*="ScoreCircle"] p`)
	fields.IsBestNew = doc.Find(`[class*="BestNew"]`).Length() > 0
	fields.LabelText = labelledValue(doc, "Label:")
	fields.GenreText = labelledValue(doc, "Genre:")
	fields.CoverImageURL = firstAttr(doc, "src", `[class*="SplitScreenContentHeaderImage"] img`, `[class*="ContentHeaderImage"] img`)
	fields.PublishedText = firstAttr(doc, "datetime", `time[data-testid="ContentHeaderPublishDate"]`, `time`)
	if fields.PublishedText == "" {
		fields.PublishedText = firstText(doc, `time[data-testid="ContentHeaderPublishDate"]`, `time`)
	}

	fields.BlurbHTML = firstHTML(doc.Find(`[class*="SplitScreenContentHeaderDekDown"]`))
	doc.Find(`[data-testid="BodyWrapper"]`).Each(func(_ int, sel *goquery.Selection) {
		if markup := firstHTML(sel); markup != "" {
			fields.BodyHTML = append(fields.BodyHTML, markup)
		}
	})

	return fields, nil
}

// TombstoneLayout is the older template built around the album "tombstone"
// box, with labels and genres rendered as lists.
type TombstoneLayout struct{}

var _ scanner.DetailLayout = TombstoneLayout{}

func (TombstoneLayout) Name() string { return "tombstone" }

func (TombstoneLayout) Matches(doc *goquery.Document) bool {
	return doc.Find(`.single-album-tombstone, .review-detail`).Length() > 0
}

func (TombstoneLayout) Extract(doc *goquery.Document) (scanner.DetailFields, error) {
	var fields scanner.DetailFields

	fields.AlbumTitle = cleanText(firstText(doc, `.single-album-tombstone__review-title`))
	doc.Find(`.single-album-tombstone .artist-links li, .single-album-tombstone .artist-list li`).Each(func(_ int, sel *goquery.Selection) {
		fields.ArtistNames = append(fields.ArtistNames, splitNames(sel.Text())...)
	})
	fields.ArtistNames = dedupeNames(fields.ArtistNames)
	fields.AuthorName = cleanAuthor(firstText(doc, `.authors-detail__display-name`))
	fields.ScoreText = firstText(doc, `.score`)
	fields.IsBestNew = doc.Find(`.bnm-arrows, .bnm-txt`).Length() > 0
	fields.LabelText = joinTexts(doc.Find(`.labels-list li`))
	fields.GenreText = joinTexts(doc.Find(`.genre-list li`))
	fields.CoverImageURL = firstAttr(doc, "src", `.single-album-tombstone__art img`)
	fields.PublishedText = firstAttr(doc, "datetime", `time.pub-date`)

	fields.BlurbHTML = firstHTML(doc.Find(`.review-detail__abstract`))
	body := doc.Find(`.review-detail__text .contents`)
	if body.Length() == 0 {
		body = doc.Find(`.review-detail__text`)
	}
	body.Each(func(_ int, sel *goquery.Selection) {
		if markup := firstHTML(sel); markup != "" {
			fields.BodyHTML = append(fields.BodyHTML, markup)
		}
	})

	return fields, nil
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// firstHTML returns the inner markup of the first node, or "" if it is blank.
func firstHTML(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	markup, err := sel.First().Html()
	if err != nil || strings.TrimSpace(markup) == "" {
		return ""
	}
	return markup
}

func joinTexts(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, "/")
}

// labelledValue finds the innermost element whose text is exactly label and
// returns the text that follows it.
func labelledValue(doc *goquery.Document, label string) string {
	match := doc.Find("*").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return sel.Children().Length() == 0 && strings.TrimSpace(sel.Text()) == label
	}).First()
	if match.Length() == 0 {
		return ""
	}

	for sib := match.Nodes[0].NextSibling; sib != nil; sib = sib.NextSibling {
		if text := strings.TrimSpace(nodeText(sib)); text != "" {
			return text
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
