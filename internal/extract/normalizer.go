// Package extract turns raw video titles into keyword tokens. It rejects
// spam titles, strips digits and symbols, removes trailing Korean particles
// and filters stop-words according to a Profile.
package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	snowballeng "github.com/kljensen/snowball/english"
)

// absoluteMinTokenLength is the floor for Profile.MinTokenLength.
const absoluteMinTokenLength = 2

// Normalizer applies one Profile to titles. It holds no mutable state after
// construction and is safe for concurrent use.
type Normalizer struct {
	profile   Profile
	stopwords map[string]struct{}
	spam      []string
	minToken  int
}

// NewNormalizer prepares the lookup tables for p.
func NewNormalizer(p Profile) *Normalizer {
	p = p.clone()
	n := &Normalizer{
		profile:   p,
		stopwords: make(map[string]struct{}, len(p.Stopwords)),
		spam:      make([]string, 0, len(p.SpamMarkers)),
		minToken:  p.MinTokenLength,
	}
	if n.minToken < absoluteMinTokenLength {
		n.minToken = absoluteMinTokenLength
	}
	for _, w := range p.Stopwords {
		n.stopwords[strings.ToLower(w)] = struct{}{}
	}
	for _, m := range p.SpamMarkers {
		if m == "" {
			continue
		}
		if p.SpamCaseInsensitive {
			m = strings.ToLower(m)
		}
		n.spam = append(n.spam, m)
	}
	return n
}

// Profile returns a copy of the profile the normalizer was built from.
func (n *Normalizer) Profile() Profile {
	return n.profile.clone()
}

// Normalize breaks one title into tokens. Spam titles and titles made only
// of digits or symbols yield an empty slice.
func (n *Normalizer) Normalize(title string) []string {
	if n.IsSpam(title) {
		return nil
	}
	words := strings.Fields(clean(title))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if tok, ok := n.normalizeWord(w); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// NormalizeAll concatenates the tokens of every title, in order.
func (n *Normalizer) NormalizeAll(titles []string) []string {
	var tokens []string
	for _, title := range titles {
		tokens = append(tokens, n.Normalize(title)...)
	}
	return tokens
}

// IsSpam reports whether title contains one of the profile's spam markers.
func (n *Normalizer) IsSpam(title string) bool {
	if len(n.spam) == 0 {
		return false
	}
	if n.profile.SpamCaseInsensitive {
		title = strings.ToLower(title)
	}
	for _, m := range n.spam {
		if strings.Contains(title, m) {
			return true
		}
	}
	return false
}

// StripSuffixes removes trailing particles from word. Each pass removes at
// most one suffix (the first listed one that matches) and passes stop as soon
// as nothing matches or the word is no longer than MinStripLength.
func (n *Normalizer) StripSuffixes(word string) string {
	for pass := 0; pass < n.profile.StripPasses; pass++ {
		if utf8.RuneCountInString(word) <= n.profile.MinStripLength {
			break
		}
		stripped, ok := n.stripOnce(word)
		if !ok {
			break
		}
		word = stripped
	}
	return word
}

func (n *Normalizer) stripOnce(word string) (string, bool) {
	for _, suffix := range n.profile.Suffixes {
		if suffix == "" || len(suffix) >= len(word) {
			continue
		}
		if strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)], true
		}
	}
	return word, false
}

func (n *Normalizer) normalizeWord(word string) (string, bool) {
	word = n.StripSuffixes(word)
	if n.isInflected(word) {
		return "", false
	}
	if n.profile.FoldCase {
		word = strings.ToLower(word)
	}
	if n.isStopword(word) {
		return "", false
	}
	if n.profile.StemLatin && isLatin(word) {
		word = snowballeng.Stem(word, false)
		if n.isStopword(word) {
			return "", false
		}
	}
	if utf8.RuneCountInString(word) < n.minToken {
		return "", false
	}
	return word, true
}

func (n *Normalizer) isInflected(word string) bool {
	for _, ending := range n.profile.InflectionEndings {
		if ending != "" && strings.HasSuffix(word, ending) {
			return true
		}
	}
	return false
}

func (n *Normalizer) isStopword(word string) bool {
	_, stop := n.stopwords[strings.ToLower(word)]
	return stop
}

// clean drops digits and replaces every rune that is not a word rune,
// whitespace or a Hangul syllable with a space.
func clean(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case unicode.IsDigit(r):
		case isWordRune(r), unicode.IsSpace(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || isHangulSyllable(r)
}

func isHangulSyllable(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

func isLatin(word string) bool {
	for _, r := range word {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}
