// Package ja analyzes Japanese with the kagome morphological analyzer and
// its IPA dictionary. Tags are the comma-joined part-of-speech features,
// lemmas the dictionary base forms.
package ja

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/charmbracelet/log"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Analyzer is both the word tokenizer and the tagger for Japanese.
// kagome tokenizers are safe for concurrent use.
type Analyzer struct {
	kg *tokenizer.Tokenizer
}

// New loads the IPA dictionary.
func New() (*Analyzer, error) {
	kg, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to create kagome tokenizer: %w", err)
	}
	return &Analyzer{kg: kg}, nil
}

type span struct {
	start int
	tok   tokenizer.Token
}

// analyze aligns kagome tokens with byte offsets of text. Tokens that cannot
// be located are dropped; the gaps are filled by Tokenize.
func (a *Analyzer) analyze(text string) []span {
	toks := a.kg.Tokenize(text)
	out := make([]span, 0, len(toks))
	cursor := 0
	for _, kt := range toks {
		if kt.Surface == "" {
			continue
		}
		idx := strings.Index(text[cursor:], kt.Surface)
		if idx < 0 {
			log.Debugf("kagome token %q not found after offset %d", kt.Surface, cursor)
			continue
		}
		out = append(out, span{start: cursor + idx, tok: kt})
		cursor += idx + len(kt.Surface)
	}
	return out
}

// Tokenize implements tokenize.Tokenizer. Whitespace is split into single runes
// so that the tokens concatenate back to text.
func (a *Analyzer) Tokenize(text string) []string {
	var out []string
	emit := func(s string) {
		if s == "" {
			return
		}
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
			return
		}
		for _, r := range s {
			out = append(out, string(r))
		}
	}
	cursor := 0
	for _, sp := range a.analyze(text) {
		emitGap(text[cursor:sp.start], emit)
		emit(sp.tok.Surface)
		cursor = sp.start + len(sp.tok.Surface)
	}
	emitGap(text[cursor:], emit)
	return out
}

// emitGap splits unanalyzed text at whitespace boundaries.
func emitGap(gap string, emit func(string)) {
	start := 0
	for i, r := range gap {
		if unicode.IsSpace(r) {
			emit(gap[start:i])
			emit(string(r))
			start = i + utf8.RuneLen(r)
		}
	}
	emit(gap[start:])
}

// Tag implements tagger.Tagger. The tokens are analyzed together so that
// context decides between competing segmentations; a token that kagome does
// not produce as such, or only knows as an unknown word, is unrecognized.
func (a *Analyzer) Tag(tokens []string) ([]model.Reading, error) {
	text := strings.Join(tokens, "")
	byStart := make(map[int]tokenizer.Token)
	for _, sp := range a.analyze(text) {
		byStart[sp.start] = sp.tok
	}

	readings := make([]model.Reading, len(tokens))
	offset := 0
	for i, w := range tokens {
		kt, ok := byStart[offset]
		if ok && kt.Surface == w && kt.Class != tokenizer.UNKNOWN && strings.TrimSpace(w) != "" {
			readings[i] = model.NewReading(toToken(kt))
		} else {
			readings[i] = model.UnknownReading(w)
		}
		offset += len(w)
	}
	return readings, nil
}

func toToken(kt tokenizer.Token) model.Token {
	lemma, ok := kt.BaseForm()
	if !ok || lemma == "" || lemma == "*" {
		lemma = kt.Surface
	}
	return model.NewToken(kt.Surface, lemma, strings.Join(kt.POS(), ","))
}

// SentenceTokenizer splits Japanese text after 。！？ and their full-width
// variants, keeping closing brackets and trailing whitespace with the sentence.
type SentenceTokenizer struct{}

const (
	terminals = "。！？!?．"
	closers   = "」』）】〕〉》\"'"
)

// Tokenize implements tokenize.Tokenizer.
func (SentenceTokenizer) Tokenize(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !strings.ContainsRune(terminals, r) {
			i += size
			continue
		}
		j := i + size
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if !strings.ContainsRune(terminals, r2) && !strings.ContainsRune(closers, r2) && !unicode.IsSpace(r2) {
				break
			}
			j += s2
		}
		out = append(out, text[start:j])
		start = j
		i = j
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
