package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreString(t *testing.T) {
	cases := map[Score]string{
		0:    "0.0",
		7.5:  "7.5",
		8:    "8.0",
		9.3:  "9.3",
		10:   "10",
	}
	for score, want := range cases {
		assert.Equal(t, want, score.String(), "score %v", float64(score))
	}
}

func TestApplyHintsFillsGapsOnly(t *testing.T) {
	hinted := Score(8.1)
	r := ParsedReview{
		AlbumTitle: "Blonde",
		Score:      9,
	}
	r.ApplyHints(SummaryHints{
		AlbumTitle:    "Blond",
		ArtistNames:   []string{"Frank Ocean"},
		AuthorName:    "Ryan Dombal",
		CoverImageURL: "https://media.example/blonde.jpg",
		Score:         &hinted,
		IsBestNew:     true,
	})

	assert.Equal(t, "Blonde", r.AlbumTitle)
	assert.Equal(t, Score(9), r.Score)
	assert.Equal(t, []string{"Frank Ocean"}, r.ArtistNames)
	assert.Equal(t, "Ryan Dombal", r.AuthorName)
	assert.Equal(t, "https://media.example/blonde.jpg", r.CoverImageURL)
	assert.True(t, r.IsBestNew)
	assert.Equal(t, "Frank Ocean", r.PrimaryArtist())
}

func TestApplyHintsUsesHintedScore(t *testing.T) {
	hinted := Score(6.4)
	var r ParsedReview
	r.ApplyHints(SummaryHints{Score: &hinted})
	assert.Equal(t, Score(6.4), r.Score)
	assert.Empty(t, r.PrimaryArtist())
}

func TestParsedReviewKey(t *testing.T) {
	r := ParsedReview{AlbumTitle: "Kid A", AuthorName: "Brent DiCrescenzo", Score: 10, CatalogURI: "x"}
	assert.Equal(t, ReviewKey{AlbumTitle: "Kid A", AuthorName: "Brent DiCrescenzo", Score: 10}, r.Key())
}
