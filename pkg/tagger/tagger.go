// Package tagger assigns candidate readings to tokens using the dictionary,
// case variants and derivational fallback hooks.
package tagger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/bastiangx/grammarserve/internal/utils"
	"github.com/bastiangx/grammarserve/pkg/dictionary"
	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/charmbracelet/log"
)

// MaxTokenLength is the default ceiling, in runes, above which a token is not looked up.
const MaxTokenLength = 50

// Tagger resolves tokens to readings, one per token, order preserved.
type Tagger interface {
	Tag(tokens []string) ([]model.Reading, error)
}

// Options configures a DictTagger.
type Options struct {
	// MaxTokenLength overrides the default ceiling when positive.
	MaxTokenLength int
	// DontTagLowercaseWithUppercase disables the lowercase lookup of capitalized words.
	DontTagLowercaseWithUppercase bool
	// Hooks run in order when the dictionary has nothing for a word.
	Hooks []Hook
	// Codec is set when the dictionary stores letters as placeholders. Words are
	// encoded before lookup; forms and lemmas found are decoded.
	Codec Codec
}

// Codec translates between surface spelling and dictionary keys.
type Codec interface {
	Encode(s string) string
	Decode(s string) string
}

// DictTagger is the dictionary-backed Tagger.
type DictTagger struct {
	dict   *dictionary.Handle
	opts   Options
	logger *log.Logger
}

// New creates a tagger over a lazily loaded dictionary.
func New(dict *dictionary.Handle, opts Options) *DictTagger {
	if opts.MaxTokenLength <= 0 {
		opts.MaxTokenLength = MaxTokenLength
	}
	return &DictTagger{dict: dict, opts: opts, logger: logger.New("tagger")}
}

// Tag implements Tagger. The dictionary is loaded on the first token that needs a
// lookup; a load failure is returned for the whole call.
func (t *DictTagger) Tag(tokens []string) ([]model.Reading, error) {
	readings := make([]model.Reading, len(tokens))
	var d *dictionary.Dictionary
	for i, w := range tokens {
		if !t.needsLookup(w) {
			readings[i] = model.UnknownReading(w)
			continue
		}
		if d == nil {
			var err error
			if d, err = t.dict.Get(); err != nil {
				return nil, fmt.Errorf("tagger: %w", err)
			}
		}
		readings[i] = t.tagWord(d, w)
	}
	return readings, nil
}

// TagWord tags a single word.
func (t *DictTagger) TagWord(w string) (model.Reading, error) {
	r, err := t.Tag([]string{w})
	if err != nil {
		return model.Reading{}, err
	}
	return r[0], nil
}

// Known reports whether the dictionary has the word in any case variant.
// It satisfies tokenize.Lexicon.
func (t *DictTagger) Known(word string) bool {
	if !t.needsLookup(word) {
		return false
	}
	d, err := t.dict.Get()
	if err != nil {
		t.logger.Warnf("Dictionary unavailable: %v", err)
		return false
	}
	return len(t.lookup(d, word)) > 0
}

func (t *DictTagger) needsLookup(w string) bool {
	if w == "" || utils.IsBlank(w) {
		return false
	}
	return utf8.RuneCountInString(w) <= t.opts.MaxTokenLength
}

func (t *DictTagger) tagWord(d *dictionary.Dictionary, w string) model.Reading {
	if tokens := t.lookup(d, w); len(tokens) > 0 {
		return model.NewReading(tokens...)
	}
	for _, hook := range t.opts.Hooks {
		tokens, ok := t.runHook(hook, d, w)
		if ok && len(tokens) > 0 {
			return model.NewReading(tokens...)
		}
	}
	return model.UnknownReading(w)
}

// lookup runs the verbatim and case-variant lookups and returns tokens with w as form.
func (t *DictTagger) lookup(d *dictionary.Dictionary, w string) []model.Token {
	entries := t.find(d, w)
	if !utils.IsAllLower(w) && !utils.IsMixedCase(w) && !t.opts.DontTagLowercaseWithUppercase {
		lower := strings.ToLower(w)
		entries = appendEntries(entries, t.find(d, lower))
		if utils.IsAllUpper(w) {
			entries = appendEntries(entries, t.find(d, utils.UppercaseFirst(lower)))
		}
	}
	if len(entries) == 0 && utils.IsAllLower(w) {
		entries = t.find(d, utils.UppercaseFirst(w))
	}
	return toTokens(w, entries)
}

// find is a single dictionary lookup with the codec applied on both sides.
func (t *DictTagger) find(d *dictionary.Dictionary, w string) []dictionary.Entry {
	if t.opts.Codec == nil {
		return d.Lookup(w)
	}
	entries := d.Lookup(t.opts.Codec.Encode(w))
	if len(entries) == 0 {
		return nil
	}
	out := make([]dictionary.Entry, len(entries))
	for i, e := range entries {
		out[i] = dictionary.Entry{Form: t.opts.Codec.Decode(e.Form), Lemma: t.opts.Codec.Decode(e.Lemma), Tag: e.Tag}
	}
	return out
}

// runHook gives a hook one lookup round and turns any failure into "no result".
func (t *DictTagger) runHook(hook Hook, d *dictionary.Dictionary, w string) (tokens []model.Token, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorf("Tagger hook panicked on %q: %v", w, r)
			tokens, ok = nil, false
		}
	}()

	used := false
	lookup := func(word string) []dictionary.Entry {
		if used {
			return nil
		}
		used = true
		return entriesOf(t.lookup(d, word))
	}

	tokens, err := hook(w, lookup)
	if err != nil {
		t.logger.Warnf("Tagger hook failed on %q: %v", w, err)
		return nil, false
	}
	return tokens, true
}

func appendEntries(dst, src []dictionary.Entry) []dictionary.Entry {
	if len(src) == 0 {
		return dst
	}
	out := make([]dictionary.Entry, len(dst), len(dst)+len(src))
	copy(out, dst)
	return append(out, src...)
}

func toTokens(form string, entries []dictionary.Entry) []model.Token {
	if len(entries) == 0 {
		return nil
	}
	type key struct{ lemma, tag string }
	seen := make(map[key]bool, len(entries))
	tokens := make([]model.Token, 0, len(entries))
	for _, e := range entries {
		k := key{e.Lemma, e.Tag}
		if seen[k] {
			continue
		}
		seen[k] = true
		tokens = append(tokens, model.NewToken(form, e.Lemma, e.Tag))
	}
	return tokens
}

func entriesOf(tokens []model.Token) []dictionary.Entry {
	out := make([]dictionary.Entry, len(tokens))
	for i, tok := range tokens {
		out[i] = dictionary.Entry{Form: tok.Form, Lemma: tok.Lemma, Tag: tok.Tag}
	}
	return out
}
