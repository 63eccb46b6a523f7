// Package ranker counts keyword tokens and ranks them by frequency.
package ranker

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// Entry is one ranked keyword. Titles is the number of distinct titles the
// token appeared in; it is zero for tokens added without a title ordinal.
type Entry struct {
	Token  string `json:"token"`
	Count  int    `json:"count"`
	Titles int    `json:"titles"`
}

// Table is a frequency table that remembers the order in which tokens were
// first seen, so equal counts rank by first appearance. A Table is not safe
// for concurrent use.
type Table struct {
	order  []string
	counts map[string]int
	titles map[string]*roaring.Bitmap
	total  int
}

func NewTable() *Table {
	return &Table{
		counts: make(map[string]int),
		titles: make(map[string]*roaring.Bitmap),
	}
}

// Add counts tokens that are not attributed to any title.
func (t *Table) Add(tokens ...string) {
	for _, tok := range tokens {
		t.inc(tok)
	}
}

// AddTitle counts the tokens of the title with the given ordinal and records
// the ordinal in each token's title set.
func (t *Table) AddTitle(ordinal uint32, tokens []string) {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		t.inc(tok)
		bm, ok := t.titles[tok]
		if !ok {
			bm = roaring.New()
			t.titles[tok] = bm
		}
		bm.Add(ordinal)
	}
}

func (t *Table) inc(tok string) {
	if tok == "" {
		return
	}
	if _, seen := t.counts[tok]; !seen {
		t.order = append(t.order, tok)
	}
	t.counts[tok]++
	t.total++
}

// Count returns how many times tok was added.
func (t *Table) Count(tok string) int {
	return t.counts[tok]
}

// Len returns the number of distinct tokens.
func (t *Table) Len() int {
	return len(t.order)
}

// Total returns the number of tokens added, duplicates included.
func (t *Table) Total() int {
	return t.total
}

// Top returns at most k entries ordered by count descending. Ties keep the
// order of first appearance. k <= 0 returns every entry. An empty table
// yields an empty slice.
func (t *Table) Top(k int) []Entry {
	result := make([]Entry, 0, len(t.order))
	for _, tok := range t.order {
		e := Entry{Token: tok, Count: t.counts[tok]}
		if bm, ok := t.titles[tok]; ok {
			e.Titles = int(bm.GetCardinality())
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if k > 0 && len(result) > k {
		result = result[:k]
	}
	return result
}

// CoOccurring returns how many titles contain both a and b.
func (t *Table) CoOccurring(a, b string) int {
	ba, okA := t.titles[a]
	bb, okB := t.titles[b]
	if !okA || !okB {
		return 0
	}
	return int(ba.AndCardinality(bb))
}

// Rank counts tokens in order and returns the top k.
func Rank(tokens []string, k int) []Entry {
	t := NewTable()
	t.Add(tokens...)
	return t.Top(k)
}

// MaxCount returns the largest count in entries, or zero when empty.
func MaxCount(entries []Entry) int {
	highest := 0
	for _, e := range entries {
		if e.Count > highest {
			highest = e.Count
		}
	}
	return highest
}
