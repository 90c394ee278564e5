package synth

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bastiangx/grammarserve/pkg/dictionary"
	"github.com/bastiangx/grammarserve/pkg/tagger"
)

var polishEntries = []dictionary.Entry{
	{Form: "lubię", Lemma: "lubić", Tag: "V:pres:1sg"},
	{Form: "lubisz", Lemma: "lubić", Tag: "V:pres:2sg"},
	{Form: "oczu", Lemma: "oko", Tag: "subst:pl:gen:n"},
	{Form: "ocz", Lemma: "oko", Tag: "subst:pl:gen:n"},
	{Form: "oczy", Lemma: "oko", Tag: "subst:pl:nom:n"},
	{Form: "oczy", Lemma: "oko", Tag: "subst:pl:acc:n"},
	{Form: "ładny", Lemma: "ładny", Tag: "adj:sg:nom:m1:pos:aff"},
	{Form: "ładniejszy", Lemma: "ładny", Tag: "adj:sg:nom:m1:com:aff"},
}

func polish(opts Options) *DictSynthesizer {
	return New(dictionary.Static(dictionary.New(polishEntries)), opts)
}

func TestSynthesize(t *testing.T) {
	s := polish(Options{Negation: PolishNegation()})

	testCases := []struct {
		lemma       string
		tag         string
		expected    []string
		description string
	}{
		{"lubić", "V:pres:1sg", []string{"lubię"}, "exact reverse lookup"},
		{"oko", "subst:pl:gen:n", []string{"oczu", "ocz"}, "several entries for one tag"},
		{"oko", "subst:sg:gen:n", nil, "missing tag"},
		{"ładny", "adj:sg:nom:m1:pos:neg", []string{"nieładny"}, "negation through the affirmative tag"},
		{"nieznany", "V:pres:1sg", nil, "unknown lemma"},
	}
	for _, tc := range testCases {
		got, err := s.Synthesize(tc.lemma, tc.tag)
		if err != nil {
			t.Fatalf("%s: %v", tc.description, err)
		}
		if len(got) == 0 && len(tc.expected) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("%s: Synthesize(%q, %q) = %v, want %v", tc.description, tc.lemma, tc.tag, got, tc.expected)
		}
	}
}

func TestSynthesizePattern(t *testing.T) {
	s := polish(Options{Negation: PolishNegation()})

	testCases := []struct {
		lemma       string
		pattern     string
		expected    []string
		description string
	}{
		{"lubić", "V:pres:.*", []string{"lubię", "lubisz"}, "pattern over the inventory"},
		{"oko", "subst:pl:.*", []string{"oczy", "oczu", "ocz"}, "duplicates removed"},
		{"lubić", "pres", nil, "pattern is anchored"},
		{"ładny", "adj:sg:nom:m1:(pos|com):neg", []string{"nieładny"}, "comparative excluded from negation"},
		{"lubić", "V:(", nil, "invalid pattern yields nothing"},
	}
	for _, tc := range testCases {
		got, err := s.SynthesizePattern(tc.lemma, tc.pattern)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.description, err)
		}
		if len(got) == 0 && len(tc.expected) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("%s: SynthesizePattern(%q, %q) = %v, want %v", tc.description, tc.lemma, tc.pattern, got, tc.expected)
		}
	}
}

func TestSynthesizeAllSkipsInvalidPatterns(t *testing.T) {
	s := polish(Options{})
	got, err := s.SynthesizeAll("lubić", []string{"V:(", "V:pres:1sg", "V:pres:.*"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"lubię", "lubisz"}; !reflect.DeepEqual(got, want) {
		t.Errorf("SynthesizeAll = %v, want %v", got, want)
	}
}

func TestSynthesizeDictionaryFailure(t *testing.T) {
	loadErr := errors.New("no dictionary")
	s := New(dictionary.NewHandle(func() (*dictionary.Dictionary, error) { return nil, loadErr }), Options{})
	if _, err := s.Synthesize("lubić", "V:pres:1sg"); !errors.Is(err, loadErr) {
		t.Errorf("Synthesize error = %v", err)
	}
	if _, err := s.SynthesizePattern("lubić", "V.*"); !errors.Is(err, loadErr) {
		t.Errorf("SynthesizePattern error = %v", err)
	}
}

func TestTaggerInverse(t *testing.T) {
	h := dictionary.Static(dictionary.New(polishEntries))
	s := New(h, Options{})
	tg := tagger.New(h, tagger.Options{})

	for _, e := range polishEntries {
		forms, err := s.Synthesize(e.Lemma, e.Tag)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, f := range forms {
			r, err := tg.TagWord(f)
			if err != nil {
				t.Fatal(err)
			}
			if r.HasTagLemma(e.Tag, e.Lemma) {
				found = true
			}
		}
		if !found {
			t.Errorf("no synthesized form of %s|%s tags back to it (forms %v)", e.Lemma, e.Tag, forms)
		}
	}
}

func TestEnglishDeterminer(t *testing.T) {
	s := New(dictionary.Static(dictionary.New([]dictionary.Entry{
		{Form: "university", Lemma: "university", Tag: "NN"},
		{Form: "apples", Lemma: "apple", Tag: "NNS"},
	})), Options{Determiner: NewEnglishDeterminer()})

	testCases := []struct {
		lemma       string
		tag         string
		expected    []string
		description string
	}{
		{"apple", "+DT", []string{"an apple", "the apple"}, "both articles on the lemma"},
		{"hour", "+INDT", []string{"an hour"}, "silent h"},
		{"university", "NN+INDT", []string{"a university"}, "articles on a synthesized form"},
		{"apple", "NNS+DT", []string{"an apples", "the apples"}, "plural form is decorated as is"},
		{"pear", "NN+DT", nil, "no base form"},
	}
	for _, tc := range testCases {
		got, err := s.Synthesize(tc.lemma, tc.tag)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) == 0 && len(tc.expected) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("%s: Synthesize(%q, %q) = %v, want %v", tc.description, tc.lemma, tc.tag, got, tc.expected)
		}
	}
}

func TestIndefiniteArticle(t *testing.T) {
	d := NewEnglishDeterminer()
	testCases := []struct {
		word, expected string
	}{
		{"apple", "an"}, {"Umbrella", "an"}, {"hour", "an"}, {"honest", "an"},
		{"banana", "a"}, {"university", "a"}, {"euro", "a"}, {"one", "a"}, {"", "a"},
	}
	for _, tc := range testCases {
		if got := d.Indefinite(tc.word); got != tc.expected {
			t.Errorf("Indefinite(%q) = %q, want %q", tc.word, got, tc.expected)
		}
	}
}

func TestCatalanDeterminer(t *testing.T) {
	s := New(dictionary.Static(dictionary.New([]dictionary.Entry{
		{Form: "home", Lemma: "home", Tag: "NCMS000"},
		{Form: "homes", Lemma: "home", Tag: "NCMP000"},
		{Form: "casa", Lemma: "casa", Tag: "NCFS000"},
		{Form: "cases", Lemma: "casa", Tag: "NCFP000"},
		{Form: "illa", Lemma: "illa", Tag: "NCFS000"},
		{Form: "iogurt", Lemma: "iogurt", Tag: "NCMS000"},
		{Form: "ràpid", Lemma: "ràpid", Tag: "RG"},
	})), Options{Determiner: NewCatalanDeterminer()})

	testCases := []struct {
		lemma       string
		tag         string
		expected    []string
		description string
	}{
		{"home", "DT", []string{"els homes", "l'home"}, "masculine with elision"},
		{"casa", "DTde", []string{"de les cases", "de la casa"}, "feminine after preposition"},
		{"home", "DTper", []string{"pels homes", "per l'home"}, "contraction with per"},
		{"iogurt", "DTde", []string{"del iogurt"}, "semivowel blocks elision"},
		{"illa", "DT", []string{"l'illa"}, "feminine elision"},
		{"ràpid", "DT", nil, "adverbs take no article"},
	}
	for _, tc := range testCases {
		got, err := s.Synthesize(tc.lemma, tc.tag)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) == 0 && len(tc.expected) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("%s: Synthesize(%q, %q) = %v, want %v", tc.description, tc.lemma, tc.tag, got, tc.expected)
		}
	}
}

func TestDiacriticCodec(t *testing.T) {
	c := PolishDiacritics()
	for _, w := range []string{"lubić", "Żółć", "ĄĆĘŁŃÓŚŹŻąćęłńóśźż", "zażółć gęślą jaźń", "kot", ""} {
		enc := c.Encode(w)
		if got := c.Decode(enc); got != w {
			t.Errorf("Decode(Encode(%q)) = %q via %q", w, got, enc)
		}
	}
	if got := c.Encode("lubić"); got != "lubi2" {
		t.Errorf("Encode(lubić) = %q", got)
	}

	s := New(dictionary.Static(dictionary.New([]dictionary.Entry{
		{Form: "lubi3", Lemma: "lubi2", Tag: "V:pres:1sg"},
	})), Options{Codec: c})
	got, err := s.Synthesize("lubić", "V:pres:1sg")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"lubię"}) {
		t.Errorf("Synthesize through codec = %v", got)
	}
}

func TestNewDiacriticCodecValidation(t *testing.T) {
	testCases := []struct {
		pairs       []string
		description string
	}{
		{[]string{"ą"}, "odd arguments"},
		{[]string{"ą", "x"}, "non-digit placeholder"},
		{[]string{"ą", "1", "ę", "12"}, "overlapping placeholders"},
		{[]string{"ą", "1", "ą", "2"}, "repeated letter"},
		{[]string{"ą", ""}, "empty placeholder"},
	}
	for _, tc := range testCases {
		if _, err := NewDiacriticCodec(tc.pairs...); err == nil {
			t.Errorf("%s: expected error", tc.description)
		}
	}
}
