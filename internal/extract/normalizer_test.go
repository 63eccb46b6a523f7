package extract

import (
	"reflect"
	"testing"
)

func testProfile() Profile {
	return Profile{
		Name:           "test",
		Stopwords:      []string{"부산", "맛집", "추천"},
		Suffixes:       koreanParticles,
		MinStripLength: 2,
		StripPasses:    1,
		MinTokenLength: 2,
	}
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(testProfile())
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"stop words removed", "부산 돼지국밥 맛집 추천", []string{"돼지국밥"}},
		{"symbols become separators", "🔥돼지국밥🔥|노포!!밀면", []string{"돼지국밥", "노포", "밀면"}},
		{"digits dropped", "2024 밀면 10곳", []string{"밀면"}},
		{"only digits and symbols", "2024!!! ### 100%", nil},
		{"empty title", "", nil},
		{"particle stripped", "해운대에 광안리의", []string{"해운대", "광안리"}},
		{"stripped into stop word", "부산은 노포", []string{"노포"}},
		{"single rune dropped", "것 밀면", []string{"밀면"}},
		{"two rune word not stripped", "노는 밀면", []string{"노는", "밀면"}},
		{"latin kept with case", "Busan Gukbap", []string{"Busan", "Gukbap"}},
		{"underscore is a word rune", "top_10 밀면", []string{"top_", "밀면"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.title)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestNormalizeSpam(t *testing.T) {
	p := testProfile()
	p.SpamMarkers = []string{"Shorts", ""}
	p.SpamCaseInsensitive = false
	n := NewNormalizer(p)

	if got := n.Normalize("부산 맛집 Shorts 이벤트"); len(got) != 0 {
		t.Errorf("spam title produced %q", got)
	}
	if got := n.Normalize("부산 맛집 shorts 이벤트"); len(got) == 0 {
		t.Error("case-sensitive profile rejected lowercase marker")
	}
	if got := n.Normalize("돼지국밥 이벤트"); len(got) != 2 {
		t.Errorf("empty marker must be ignored, got %q", got)
	}

	p.SpamCaseInsensitive = true
	n = NewNormalizer(p)
	if got := n.Normalize("부산 맛집 #SHORTS 이벤트"); len(got) != 0 {
		t.Errorf("case-insensitive spam title produced %q", got)
	}
}

func TestNormalizeStopwordsCaseInsensitive(t *testing.T) {
	p := testProfile()
	p.Stopwords = append(p.Stopwords, "Vlog")
	n := NewNormalizer(p)
	if got := n.Normalize("VLOG vlog Vlog 밀면"); !reflect.DeepEqual(got, []string{"밀면"}) {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeAllPoolsTokens(t *testing.T) {
	n := NewNormalizer(testProfile())
	titles := []string{"부산 돼지국밥 맛집 추천", "부산 돼지국밥 노포 맛집", "부산 밀면 맛집"}
	want := []string{"돼지국밥", "돼지국밥", "노포", "밀면"}
	if got := n.NormalizeAll(titles); !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeAll = %q, want %q", got, want)
	}
	if got := n.NormalizeAll(nil); len(got) != 0 {
		t.Errorf("NormalizeAll(nil) = %q", got)
	}
}

func TestStripSuffixesPasses(t *testing.T) {
	p := testProfile()
	one := NewNormalizer(p)
	p.StripPasses = 2
	two := NewNormalizer(p)

	if got := one.StripSuffixes("해운대에서"); got != "해운대에" {
		t.Errorf("one pass = %q, want 해운대에", got)
	}
	if got := two.StripSuffixes("해운대에서"); got != "해운대" {
		t.Errorf("two passes = %q, want 해운대", got)
	}
	if got := two.StripSuffixes("밀면"); got != "밀면" {
		t.Errorf("short word changed to %q", got)
	}
}

func TestStripSuffixesNeverEmpties(t *testing.T) {
	p := testProfile()
	p.MinStripLength = 0
	p.StripPasses = 3
	n := NewNormalizer(p)
	for _, w := range []string{"은", "이가", "하고"} {
		if got := n.StripSuffixes(w); got == "" {
			t.Errorf("StripSuffixes(%q) emptied the word", w)
		}
	}
}

func TestStripSuffixesIdempotentOnceStable(t *testing.T) {
	n := NewNormalizer(testProfile())
	words := []string{"해운대에", "돼지국밥을", "광안리", "서면으로", "자갈치시장의", "Busan"}
	for _, w := range words {
		s := n.StripSuffixes(w)
		if _, matched := n.stripOnce(s); matched {
			continue
		}
		if again := n.StripSuffixes(n.StripSuffixes(s)); again != s {
			t.Errorf("%q: stable form %q changed to %q", w, s, again)
		}
	}
}

func TestStrictProfile(t *testing.T) {
	p, err := Lookup("busan-strict")
	if err != nil {
		t.Fatal(err)
	}
	n := NewNormalizer(p)

	if got := n.Normalize("광안리 맛있어요 다녀왔습니다"); !reflect.DeepEqual(got, []string{"광안리"}) {
		t.Errorf("inflected words kept: %q", got)
	}
	if got := n.Normalize("GoPro 해운대에서"); !reflect.DeepEqual(got, []string{"gopro", "해운대"}) {
		t.Errorf("got %q", got)
	}
	if got := n.Normalize("부산 밀면 #Shorts"); len(got) != 0 {
		t.Errorf("shorts title kept: %q", got)
	}
}

func TestStemLatin(t *testing.T) {
	p := testProfile()
	p.StemLatin = true
	n := NewNormalizer(p)

	a := n.Normalize("restaurants")
	b := n.Normalize("restaurant")
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Errorf("stemming mismatch: %q vs %q", a, b)
	}
	if got := n.Normalize("돼지국밥"); !reflect.DeepEqual(got, []string{"돼지국밥"}) {
		t.Errorf("hangul must not be stemmed: %q", got)
	}
}

func TestLookupAndFromConfig(t *testing.T) {
	if _, err := Lookup("nope"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
	v1, err := Lookup("busan-v1")
	if err != nil {
		t.Fatal(err)
	}
	v1.Stopwords[0] = "changed"
	again, _ := Lookup("busan-v1")
	if again.Stopwords[0] != "부산" {
		t.Error("Lookup must return an independent copy")
	}
}
