package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// SuggestionType tells where a suggestion came from.
type SuggestionType int

const (
	SuggestionDefault SuggestionType = iota
	SuggestionCurated
	SuggestionTranslation
)

// Suggestion is one replacement proposed for a match.
type Suggestion struct {
	Replacement string         `msgpack:"replacement"`
	Type        SuggestionType `msgpack:"type"`
}

// Match is a flagged span of a sentence with its suggestions, best first.
type Match struct {
	Start       int          `msgpack:"start"`
	End         int          `msgpack:"end"`
	Suggestions []Suggestion `msgpack:"suggestions"`
}

// SentenceMatches groups the matches of one sentence.
type SentenceMatches struct {
	Text    string
	Words   int
	Matches []*Match
}

// BatchScorer is what the Ranker needs from a Client.
type BatchScorer interface {
	BatchScore(ctx context.Context, reqs []Request) ([][]float64, error)
}

// Ranker reorders suggestions by their score in context.
type Ranker struct {
	scorer BatchScorer
	// Limit and TranslationLimit cap the suggestions kept per match.
	Limit            int
	TranslationLimit int
	// Sentences with more than MinWords words and an error rate above
	// MaxErrorRate lose their suggestions instead of being ranked.
	MinWords     int
	MaxErrorRate float64
}

// NewRanker returns a ranker with the default limits.
func NewRanker(scorer BatchScorer) *Ranker {
	return &Ranker{
		scorer:           scorer,
		Limit:            10,
		TranslationLimit: 25,
		MinWords:         8,
		MaxErrorRate:     0.5,
	}
}

// Rank truncates and reorders the suggestions of every match in place.
// A match keeps its truncated order when scoring fails; the error is returned.
func (r *Ranker) Rank(ctx context.Context, sentences []SentenceMatches) error {
	var total, flagged int
	for _, s := range sentences {
		total += s.Words
		flagged += len(s.Matches)
		if r.tooManyErrors(len(s.Matches), s.Words) {
			log.Infof("Skipping suggestions for sentence, too many matches (%d in %d words)", len(s.Matches), s.Words)
			discard(s.Matches)
		}
	}
	if r.tooManyErrors(flagged, total) {
		log.Infof("Skipping suggestions for request, too many matches (%d in %d words)", flagged, total)
		for _, s := range sentences {
			discard(s.Matches)
		}
		return nil
	}

	var reqs []Request
	var targets []*Match
	for _, s := range sentences {
		for _, m := range s.Matches {
			m.Suggestions = r.truncate(m.Suggestions)
			if len(m.Suggestions) < 2 {
				continue
			}
			candidates := make([]string, len(m.Suggestions))
			for i, sg := range m.Suggestions {
				candidates[i] = sg.Replacement
			}
			reqs = append(reqs, Request{Text: s.Text, Start: m.Start, End: m.End, Candidates: candidates})
			targets = append(targets, m)
		}
	}
	if len(reqs) == 0 {
		return nil
	}

	scores, err := r.scorer.BatchScore(ctx, reqs)
	if err != nil {
		return err
	}
	if len(scores) != len(reqs) {
		return fmt.Errorf("scorer returned %d score lists for %d requests", len(scores), len(reqs))
	}
	for i, m := range targets {
		sortSuggestions(m.Suggestions, scores[i], reqs[i].Masked())
	}
	return nil
}

func (r *Ranker) tooManyErrors(matches, words int) bool {
	return words > r.MinWords && float64(matches)/float64(words) > r.MaxErrorRate
}

func (r *Ranker) truncate(s []Suggestion) []Suggestion {
	limit := r.Limit
	for _, sg := range s {
		if sg.Type == SuggestionTranslation {
			limit = r.TranslationLimit
			break
		}
	}
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

func discard(matches []*Match) {
	for _, m := range matches {
		m.Suggestions = nil
	}
}

// sortSuggestions puts the user's own word (ignoring case) first, then
// curated suggestions, then the rest by descending score.
func sortSuggestions(s []Suggestion, scores []float64, userWord string) {
	type scored struct {
		Suggestion
		score float64
	}
	items := make([]scored, len(s))
	for i := range s {
		items[i] = scored{s[i], 0}
		if i < len(scores) {
			items[i].score = scores[i]
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		aSame := strings.EqualFold(a.Replacement, userWord)
		bSame := strings.EqualFold(b.Replacement, userWord)
		if aSame != bSame {
			return aSame
		}
		aCur, bCur := a.Type == SuggestionCurated, b.Type == SuggestionCurated
		if aCur != bCur {
			return aCur
		}
		return a.score > b.score
	})
	for i := range items {
		s[i] = items[i].Suggestion
	}
}
