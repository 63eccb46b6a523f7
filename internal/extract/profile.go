package extract

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/errors"
)

// Profile is a versioned set of extraction rules. Profiles are plain values:
// several can coexist in one process and each Normalizer owns a copy.
type Profile struct {
	Name string
	// Stopwords match case-insensitively: entries and tokens are compared
	// in lowercase, so "Vlog" also drops "VLOG".
	Stopwords []string
	// Suffixes are tried in order; the first match is removed.
	Suffixes    []string
	SpamMarkers []string
	// InflectionEndings reject words that look like conjugated verbs or
	// adjectives. Empty disables the check.
	InflectionEndings []string

	// MinStripLength is the rune length a word must exceed before suffix
	// stripping is attempted.
	MinStripLength int
	// StripPasses is how many times suffix stripping is repeated.
	StripPasses         int
	MinTokenLength      int
	SpamCaseInsensitive bool
	FoldCase            bool
	StemLatin           bool
}

var busanStopwords = []string{
	"부산", "맛집", "여행", "브이로그", "Vlog", "Korea", "Busan", "Food", "Mukbang", "먹방",
	"추천", "코스", "진짜", "정말", "하는", "있는", "가볼만한곳", "Best", "Top", "존맛",
	"영상", "오늘", "투어", "후기", "식당", "카페", "Cafe", "Street", "Review", "리뷰",
	"2024", "2025", "1박2일", "2박3일", "사람", "이유", "충격", "공개", "가지", "모음",
	"현지인", "솔직", "방문", "위치", "가격", "메뉴", "대박", "유명한", "웨이팅", "필수",
	"Eng", "Sub", "Japanese", "Korean", "Travel", "Trip", "나오", "여기",
}

var busanStrictStopwords = append(append([]string{}, busanStopwords...),
	"박일", "박이일", "the", "in", "of", "and", "to",
	"shorts", "vlog", "asmr", "korean", "street", "food", "travel", "tour", "guide",
	"무조건", "최고", "역대급", "인생", "가성비", "feat", "ep",
	"하나", "우리", "그냥", "완벽", "정리", "총정리", "모든", "가는", "먹는", "없는",
)

var koreanParticles = []string{"은", "는", "이", "가", "을", "를", "에", "의", "서", "로", "고", "하고"}

var koreanParticlesLongestFirst = []string{
	"에서는", "으로", "에서", "하고", "까지", "부터", "처럼", "보다", "이랑",
	"은", "는", "이", "가", "을", "를", "에", "의", "서", "로", "고", "도", "만", "랑",
}

var builtinProfiles = map[string]Profile{
	"busan-v1": {
		Name:                "busan-v1",
		Stopwords:           busanStopwords,
		Suffixes:            koreanParticles,
		MinStripLength:      2,
		StripPasses:         1,
		MinTokenLength:      2,
		SpamCaseInsensitive: true,
	},
	"busan-strict": {
		Name:                "busan-strict",
		Stopwords:           busanStrictStopwords,
		Suffixes:            koreanParticlesLongestFirst,
		SpamMarkers:         []string{"#shorts", "shorts", "광고", "협찬", "유료광고"},
		InflectionEndings:   []string{"습니다", "합니다", "했다", "하다", "해요", "어요", "아요", "네요", "세요", "는데", "었다", "였다"},
		MinStripLength:      2,
		StripPasses:         2,
		MinTokenLength:      2,
		SpamCaseInsensitive: true,
		FoldCase:            true,
	},
}

// Lookup returns a copy of the named built-in profile.
func Lookup(name string) (Profile, error) {
	p, ok := builtinProfiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (known: %v)", apperrors.ErrUnknownProfile, name, ProfileNames())
	}
	return p.clone(), nil
}

// ProfileNames lists the built-in profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromConfig resolves the configured profile and layers the config's extra
// words and overrides on top of it.
func FromConfig(cfg config.ExtractConfig) (Profile, error) {
	name := cfg.Profile
	if name == "" {
		name = "busan-v1"
	}
	p, err := Lookup(name)
	if err != nil {
		return Profile{}, err
	}
	p.Stopwords = append(p.Stopwords, cfg.ExtraStopwords...)
	p.Suffixes = append(p.Suffixes, cfg.ExtraSuffixes...)
	p.SpamMarkers = append(p.SpamMarkers, cfg.ExtraSpamMarkers...)
	if cfg.StripPasses > 0 {
		p.StripPasses = cfg.StripPasses
	}
	if cfg.MinStripLength > 0 {
		p.MinStripLength = cfg.MinStripLength
	}
	if cfg.SpamCaseInsensitive != nil {
		p.SpamCaseInsensitive = *cfg.SpamCaseInsensitive
	}
	if cfg.FoldCase != nil {
		p.FoldCase = *cfg.FoldCase
	}
	if cfg.StemLatin != nil {
		p.StemLatin = *cfg.StemLatin
	}
	return p, nil
}

func (p Profile) clone() Profile {
	p.Stopwords = append([]string(nil), p.Stopwords...)
	p.Suffixes = append([]string(nil), p.Suffixes...)
	p.SpamMarkers = append([]string(nil), p.SpamMarkers...)
	p.InflectionEndings = append([]string(nil), p.InflectionEndings...)
	return p
}
