package tagger

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/grammarserve/pkg/dictionary"
	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/kljensen/snowball"
)

// LookupFunc performs one dictionary lookup round, case variants included.
// The tagger hands each hook a LookupFunc that answers only its first call.
type LookupFunc func(word string) []dictionary.Entry

// Hook is a derivational fallback strategy tried when a word has no dictionary entry.
// Returned tokens should use word as their form.
type Hook func(word string, lookup LookupFunc) ([]model.Token, error)

// PrefixHook strips a productive prefix, looks up the remainder and re-tags it
// with the prefix prepended to the lemma ("autoexplicar" -> lemma "auto"+"explicar").
// Only remainder readings whose tag matches tagFilter are kept; nil keeps all.
func PrefixHook(prefixes []string, minRemainder int, tagFilter *regexp.Regexp) Hook {
	return func(word string, lookup LookupFunc) ([]model.Token, error) {
		lower := strings.ToLower(word)
		for _, prefix := range prefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			rest := strings.TrimPrefix(lower[len(prefix):], "-")
			if utf8.RuneCountInString(rest) < minRemainder {
				continue
			}
			var tokens []model.Token
			for _, e := range lookup(rest) {
				if tagFilter != nil && !tagFilter.MatchString(e.Tag) {
					continue
				}
				tokens = append(tokens, model.NewToken(word, prefix+e.Lemma, e.Tag))
			}
			return tokens, nil
		}
		return nil, nil
	}
}

// BaseFinder proposes the base word of a derived form, best candidate first.
type BaseFinder func(word string) []string

// StripSuffix replaces suffix with each of the given endings ("ràpidament" -> "ràpida").
func StripSuffix(suffix string, endings ...string) BaseFinder {
	if len(endings) == 0 {
		endings = []string{""}
	}
	return func(word string) []string {
		lower := strings.ToLower(word)
		if !strings.HasSuffix(lower, suffix) || len(lower) == len(suffix) {
			return nil
		}
		stem := lower[:len(lower)-len(suffix)]
		out := make([]string, 0, len(endings))
		for _, e := range endings {
			out = append(out, stem+e)
		}
		return out
	}
}

// SnowballBase finds the base with the Snowball stemmer of language
// ("english", "spanish", "french", "russian", ...).
func SnowballBase(language string) BaseFinder {
	return func(word string) []string {
		stem, err := snowball.Stem(word, language, true)
		if err != nil || stem == "" || stem == strings.ToLower(word) {
			return nil
		}
		return []string{stem}
	}
}

// SuffixHook recognizes a productive suffix (an adverb-forming "-ment", "-ly") and
// re-tags the word as newTag when its base has a reading matching baseTag.
// The derived lemma is the lowercased word itself.
func SuffixHook(suffix string, base BaseFinder, baseTag *regexp.Regexp, newTag string) Hook {
	return func(word string, lookup LookupFunc) ([]model.Token, error) {
		if baseTag == nil {
			return nil, fmt.Errorf("suffix hook %q has no base tag pattern", suffix)
		}
		if !strings.HasSuffix(strings.ToLower(word), suffix) {
			return nil, nil
		}
		candidates := base(word)
		if len(candidates) == 0 {
			return nil, nil
		}
		for _, e := range lookup(candidates[0]) {
			if baseTag.MatchString(e.Tag) {
				return []model.Token{model.NewToken(word, strings.ToLower(word), newTag)}, nil
			}
		}
		return nil, nil
	}
}

// CliticRetryHook strips one clitic suffix (group 1 of pattern is the host word)
// and retries the lookup once, keeping readings whose tag matches tagFilter.
func CliticRetryHook(pattern *regexp.Regexp, tagFilter *regexp.Regexp) Hook {
	return func(word string, lookup LookupFunc) ([]model.Token, error) {
		m := pattern.FindStringSubmatch(word)
		if len(m) < 2 || m[1] == "" || m[1] == word {
			return nil, nil
		}
		var tokens []model.Token
		for _, e := range lookup(m[1]) {
			if tagFilter != nil && !tagFilter.MatchString(e.Tag) {
				continue
			}
			tokens = append(tokens, model.NewToken(word, e.Lemma, e.Tag))
		}
		return tokens, nil
	}
}

// MapSuffixHook rewrites a suffix to a dictionary spelling and reuses its analysis,
// e.g. the "-iste" variant of "-ista" words.
func MapSuffixHook(from, to string) Hook {
	return func(word string, lookup LookupFunc) ([]model.Token, error) {
		if !strings.HasSuffix(word, from) {
			return nil, nil
		}
		mapped := word[:len(word)-len(from)] + to
		var tokens []model.Token
		for _, e := range lookup(mapped) {
			tokens = append(tokens, model.NewToken(word, e.Lemma, e.Tag))
		}
		return tokens, nil
	}
}
