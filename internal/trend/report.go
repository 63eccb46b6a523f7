// Package trend runs the keyword pipeline end to end: fetch titles per seed
// keyword, normalize them into tokens, rank the pooled tokens and turn the
// ranking into a word-cloud page.
package trend

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/tracing"
)

// KeywordStat records what one seed keyword contributed to a run.
type KeywordStat struct {
	Keyword string `json:"keyword"`
	Titles  int    `json:"titles"`
	Spam    int    `json:"spam"`
	Tokens  int    `json:"tokens"`
	Source  string `json:"source,omitempty"`
	Cached  bool   `json:"cached"`
	Error   string `json:"error,omitempty"`
}

// Report is the result of one pipeline run.
type Report struct {
	Profile        string         `json:"profile"`
	Keywords       []KeywordStat  `json:"keywords"`
	Entries        []ranker.Entry `json:"entries"`
	Words          []cloud.Word   `json:"words"`
	TotalTitles    int            `json:"total_titles"`
	SpamTitles     int            `json:"spam_titles"`
	TotalTokens    int            `json:"total_tokens"`
	DistinctTokens int            `json:"distinct_tokens"`
	Fallback       bool           `json:"fallback"`
	StartedAt      time.Time      `json:"started_at"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Timings        []tracing.Step `json:"timings,omitempty"`
}

// FailedKeywords counts keywords whose search failed.
func (r *Report) FailedKeywords() int {
	n := 0
	for _, k := range r.Keywords {
		if k.Error != "" {
			n++
		}
	}
	return n
}

func (r *Report) Empty() bool {
	return len(r.Entries) == 0
}
