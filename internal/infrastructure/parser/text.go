package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}

func cleanAuthor(s string) string {
	s = cleanText(s)
	for _, prefix := range []string{"by:", "By:", "by ", "By "} {
		s = strings.TrimPrefix(s, prefix)
	}
	return strings.TrimSpace(s)
}

// splitNames splits slash-separated names ("Matador / XL") into a trimmed,
// de-duplicated list.
func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return dedupeNames(strings.Split(s, "/"))
}

func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = cleanText(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseScore(s string) (float64, bool) {
	s = cleanText(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 10 {
		return 0, false
	}
	return v, true
}

func parsePublished(s string) time.Time {
	s = cleanText(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
