// Package cloud maps ranked keywords onto word-cloud words (display size and
// outbound search link) and renders them into a static HTML page.
package cloud

import (
	"net/url"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
)

// Word is the object the browser layout consumes.
type Word struct {
	Text   string  `json:"text"`
	Size   float64 `json:"size"`
	URL    string  `json:"url"`
	Count  int     `json:"count"`
	Titles int     `json:"titles,omitempty"`
}

// Scale maps a count onto a font size: Base + count/max*Range.
type Scale struct {
	Base  float64
	Range float64
}

func DefaultScale() Scale {
	return Scale{Base: 15, Range: 85}
}

// Size returns the display size for count relative to max. max must be
// positive.
func (s Scale) Size(count, max int) float64 {
	return s.Base + float64(count)/float64(max)*s.Range
}

// LinkBuilder builds the search link a word opens when clicked.
type LinkBuilder struct {
	BaseURL string
	// Prefix is prepended to every word, e.g. the city the cloud is about.
	Prefix string
}

func DefaultLinks() LinkBuilder {
	return LinkBuilder{BaseURL: "https://www.youtube.com/results", Prefix: "부산"}
}

// URL returns the search results link for word.
func (l LinkBuilder) URL(word string) string {
	query := strings.TrimSpace(l.Prefix + " " + word)
	return l.BaseURL + "?search_query=" + url.QueryEscape(query)
}

// Build converts ranked entries into words. Empty input (or input without a
// positive count) returns nil and Size is never evaluated.
func Build(entries []ranker.Entry, scale Scale, links LinkBuilder) []Word {
	highest := ranker.MaxCount(entries)
	if len(entries) == 0 || highest <= 0 {
		return nil
	}
	words := make([]Word, 0, len(entries))
	for _, e := range entries {
		words = append(words, Word{
			Text:   e.Token,
			Size:   scale.Size(e.Count, highest),
			URL:    links.URL(e.Token),
			Count:  e.Count,
			Titles: e.Titles,
		})
	}
	return words
}

// FromConfig returns the scale and link builder configured for the page.
func FromConfig(cfg config.PageConfig) (Scale, LinkBuilder) {
	scale := Scale{Base: cfg.SizeBase, Range: cfg.SizeRange}
	links := LinkBuilder{BaseURL: cfg.LinkBaseURL, Prefix: cfg.LinkPrefix}
	if links.BaseURL == "" {
		links.BaseURL = DefaultLinks().BaseURL
	}
	return scale, links
}
