package synth

import (
	"regexp"
	"strings"
)

// Synthetic determiner tags. They never appear in a dictionary.
const (
	// TagDeterminer requests both the indefinite and the definite article.
	TagDeterminer = "+DT"
	// TagIndefinite requests the indefinite article only.
	TagIndefinite = "+INDT"
)

// DeterminerRequest is a parsed determiner tag.
type DeterminerRequest struct {
	// Base is the tag, or tag pattern when Pattern is set, of the bare forms.
	// An empty Base decorates the lemma itself.
	Base       string
	Pattern    bool
	Indefinite bool
	// Prep is a preposition to contract with the article.
	Prep string
}

// Determiner inserts articles in front of synthesized forms.
type Determiner interface {
	// Parse reports whether tag asks for determiner insertion.
	Parse(tag string) (DeterminerRequest, bool)
	// Decorate returns the article phrases for one bare form and its tag.
	Decorate(form, tag string, req DeterminerRequest) []string
}

// EnglishDeterminer picks "a" or "an" by pronunciation and adds "the".
// Tags are "+DT", "+INDT", or a dictionary tag followed by either ("NNS+DT").
type EnglishDeterminer struct {
	// AnPrefixes start words that take "an" despite a leading consonant.
	AnPrefixes []string
	// APrefixes start words that take "a" despite a leading vowel.
	APrefixes []string
}

// NewEnglishDeterminer returns a determiner with the usual exceptions.
func NewEnglishDeterminer() *EnglishDeterminer {
	return &EnglishDeterminer{
		AnPrefixes: []string{"hour", "honest", "honor", "honour", "heir", "herb"},
		APrefixes:  []string{"uni", "use", "usu", "uti", "eu", "ewe", "one", "once", "ur", "ubiq"},
	}
}

// Parse implements Determiner.
func (e *EnglishDeterminer) Parse(tag string) (DeterminerRequest, bool) {
	switch {
	case strings.HasSuffix(tag, TagIndefinite):
		return DeterminerRequest{Base: strings.TrimSuffix(tag, TagIndefinite), Indefinite: true}, true
	case strings.HasSuffix(tag, TagDeterminer):
		return DeterminerRequest{Base: strings.TrimSuffix(tag, TagDeterminer)}, true
	}
	return DeterminerRequest{}, false
}

// Decorate implements Determiner.
func (e *EnglishDeterminer) Decorate(form, _ string, req DeterminerRequest) []string {
	out := []string{e.Indefinite(form) + " " + form}
	if !req.Indefinite {
		out = append(out, "the "+form)
	}
	return out
}

// Indefinite returns "a" or "an" for word.
func (e *EnglishDeterminer) Indefinite(word string) string {
	lower := strings.ToLower(word)
	if lower == "" {
		return "a"
	}
	for _, p := range e.AnPrefixes {
		if strings.HasPrefix(lower, p) {
			return "an"
		}
	}
	for _, p := range e.APrefixes {
		if strings.HasPrefix(lower, p) {
			return "a"
		}
	}
	if strings.ContainsRune("aeiou", rune(lower[0])) {
		return "an"
	}
	return "a"
}

// RomanceDeterminer builds Catalan-style definite articles (el, la, l', els,
// les) from the gender and number encoded in the form's tag, contracting
// them with an optional preposition. The tag is "DT" optionally followed by
// the preposition ("DTde", "DTper").
type RomanceDeterminer struct {
	MasculineSingular *regexp.Regexp
	FeminineSingular  *regexp.Regexp
	MasculinePlural   *regexp.Regexp
	FemininePlural    *regexp.Regexp
	// The elision patterns decide "l'" before a masculine or feminine form.
	MascElision   *regexp.Regexp
	MascNoElision *regexp.Regexp
	FemElision    *regexp.Regexp
	FemNoElision  *regexp.Regexp
	// Base is the pattern of the tags an article can precede.
	Base string
}

// NewCatalanDeterminer returns the Catalan article rules.
func NewCatalanDeterminer() *RomanceDeterminer {
	return &RomanceDeterminer{
		MasculineSingular: regexp.MustCompile(`^(?:(?:N|A.).[MC][SN].*|V.P.*SM.?)$`),
		FeminineSingular:  regexp.MustCompile(`^(?:(?:N|A.).[FC][SN].*|V.P.*SF.?)$`),
		MasculinePlural:   regexp.MustCompile(`^(?:(?:N|A.).[MC][PN].*|V.P.*PM.?)$`),
		FemininePlural:    regexp.MustCompile(`^(?:(?:N|A.).[FC][PN].*|V.P.*PF.?)$`),
		MascElision:       regexp.MustCompile(`(?i)^h?[aeiouàèéíòóú].*$`),
		MascNoElision:     regexp.MustCompile(`(?i)^h?[ui][aeioàèéóò].+$`),
		FemElision:        regexp.MustCompile(`(?i)^(?:h?[aeoàèéíòóú].*|h?[ui][^aeiouàèéíòóúüï]+[aeiou][ns]?|urbs)$`),
		FemNoElision:      regexp.MustCompile(`(?i)^(?:host|ira|inxa)$`),
		Base:              `N.*|A.*|V.P.*|PX.`,
	}
}

// Parse implements Determiner.
func (r *RomanceDeterminer) Parse(tag string) (DeterminerRequest, bool) {
	prep, ok := strings.CutPrefix(tag, "DT")
	if !ok {
		return DeterminerRequest{}, false
	}
	return DeterminerRequest{Base: r.Base, Pattern: true, Prep: prep}, true
}

// Decorate implements Determiner. A tag can match several classes
// (common gender, invariable number) and yields one phrase per class.
func (r *RomanceDeterminer) Decorate(form, tag string, req DeterminerRequest) []string {
	var out []string
	elided := func(article string) string {
		if req.Prep == "" {
			return article + form
		}
		return req.Prep + " " + article + form
	}
	if r.MasculineSingular.MatchString(tag) {
		if r.MascElision.MatchString(form) && !r.MascNoElision.MatchString(form) {
			out = append(out, elided("l'"))
		} else {
			out = append(out, contract(req.Prep, "el", "l")+" "+form)
		}
	}
	if r.FeminineSingular.MatchString(tag) {
		if r.FemElision.MatchString(form) && !r.FemNoElision.MatchString(form) {
			out = append(out, elided("l'"))
		} else {
			out = append(out, joinPrep(req.Prep, "la")+" "+form)
		}
	}
	if r.MasculinePlural.MatchString(tag) {
		out = append(out, contract(req.Prep, "els", "ls")+" "+form)
	}
	if r.FemininePlural.MatchString(tag) {
		out = append(out, joinPrep(req.Prep, "les")+" "+form)
	}
	return out
}

// contract fuses a preposition with a masculine article: de+el = del,
// per+el = pel, a+els = als.
func contract(prep, article, suffix string) string {
	switch prep {
	case "":
		return article
	case "per":
		return "pe" + suffix
	}
	return prep + suffix
}

func joinPrep(prep, article string) string {
	if prep == "" {
		return article
	}
	return prep + " " + article
}
